package render

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// pathData builds an SVG path "d" attribute from projected geometries.
// Points that fail to project are skipped.
type pathData struct {
	proj Projection
	b    strings.Builder
}

func newPathData(proj Projection) *pathData {
	return &pathData{proj: proj}
}

func (p *pathData) String() string { return p.b.String() }

func (p *pathData) geometry(g orb.Geometry) {
	switch g := g.(type) {
	case orb.Polygon:
		for _, r := range g {
			p.points(r, true)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			for _, r := range poly {
				p.points(r, true)
			}
		}
	case orb.Ring:
		p.points(g, true)
	case orb.LineString:
		p.points(g, false)
	case orb.MultiLineString:
		for _, ls := range g {
			p.points(ls, false)
		}
	case orb.Collection:
		for _, child := range g {
			p.geometry(child)
		}
	}
}

func (p *pathData) points(pts []orb.Point, closed bool) {
	started := false
	var buf [32]byte
	for _, pt := range pts {
		x, y, ok := p.proj.Project(pt)
		if !ok {
			continue
		}
		if started {
			p.b.WriteByte('L')
		} else {
			p.b.WriteByte('M')
			started = true
		}
		p.b.Write(strconv.AppendFloat(buf[:0], round2(x), 'f', -1, 64))
		p.b.WriteByte(',')
		p.b.Write(strconv.AppendFloat(buf[:0], round2(y), 'f', -1, 64))
	}
	if started && closed {
		p.b.WriteByte('Z')
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sphereOutline traces the edge of the projected globe: the antimeridian on
// both sides.
func sphereOutline() orb.Ring {
	var r orb.Ring
	for lat := -90.0; lat <= 90; lat += 2.5 {
		r = append(r, orb.Point{180, lat})
	}
	for lat := 90.0; lat >= -90; lat -= 2.5 {
		r = append(r, orb.Point{-180, lat})
	}
	return append(r, r[0])
}

// graticule returns a 10° grid. Meridians stop at ±80° except the 90°
// multiples, which run pole to pole.
func graticule() orb.MultiLineString {
	const step, precision = 10.0, 2.5
	var lines orb.MultiLineString
	for lon := -180.0; lon <= 180; lon += step {
		extent := 80.0
		if int(lon)%90 == 0 {
			extent = 90
		}
		var ls orb.LineString
		for lat := -extent; lat <= extent; lat += precision {
			ls = append(ls, orb.Point{lon, lat})
		}
		lines = append(lines, ls)
	}
	for lat := -80.0; lat <= 80; lat += step {
		var ls orb.LineString
		for lon := -180.0; lon <= 180; lon += precision {
			ls = append(ls, orb.Point{lon, lat})
		}
		lines = append(lines, ls)
	}
	return lines
}
