package topology

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
)

// Feature converts an object into orb geometries. A GeometryCollection
// yields one geometry per member, in order; any other object yields one.
// Null geometries are skipped.
func (t *Topology) Feature(o *Geometry) ([]orb.Geometry, error) {
	if o.Type == "GeometryCollection" {
		out := make([]orb.Geometry, 0, len(o.Geometries))
		for i, child := range o.Geometries {
			if child == nil {
				continue
			}
			g, err := t.geometry(child)
			if err != nil {
				return nil, fmt.Errorf("geometry %d: %w", i, err)
			}
			if g != nil {
				out = append(out, g)
			}
		}
		return out, nil
	}

	g, err := t.geometry(o)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	return []orb.Geometry{g}, nil
}

func (t *Topology) geometry(o *Geometry) (orb.Geometry, error) {
	switch o.Type {
	case "Point":
		var p []float64
		if err := decodeRaw(o.Coordinates, &p); err != nil {
			return nil, fmt.Errorf("point coordinates: %w", err)
		}
		if len(p) < 2 {
			return nil, errShortPosition
		}
		q := untransform(p, t.transform)
		return orb.Point{q[0], q[1]}, nil
	case "MultiPoint":
		var ps [][]float64
		if err := decodeRaw(o.Coordinates, &ps); err != nil {
			return nil, fmt.Errorf("multipoint coordinates: %w", err)
		}
		mp := make(orb.MultiPoint, 0, len(ps))
		for _, p := range ps {
			if len(p) < 2 {
				continue
			}
			q := untransform(p, t.transform)
			mp = append(mp, orb.Point{q[0], q[1]})
		}
		return mp, nil
	case "LineString":
		var arcs []int
		if err := decodeRaw(o.Arcs, &arcs); err != nil {
			return nil, fmt.Errorf("linestring arcs: %w", err)
		}
		return t.line(arcs)
	case "MultiLineString":
		var arcs [][]int
		if err := decodeRaw(o.Arcs, &arcs); err != nil {
			return nil, fmt.Errorf("multilinestring arcs: %w", err)
		}
		mls := make(orb.MultiLineString, 0, len(arcs))
		for _, a := range arcs {
			ls, err := t.line(a)
			if err != nil {
				return nil, err
			}
			mls = append(mls, ls)
		}
		return mls, nil
	case "Polygon":
		var rings [][]int
		if err := decodeRaw(o.Arcs, &rings); err != nil {
			return nil, fmt.Errorf("polygon arcs: %w", err)
		}
		return t.polygon(rings)
	case "MultiPolygon":
		var polys [][][]int
		if err := decodeRaw(o.Arcs, &polys); err != nil {
			return nil, fmt.Errorf("multipolygon arcs: %w", err)
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := t.polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	case "", "null":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", o.Type)
	}
}

func (t *Topology) polygon(rings [][]int) (orb.Polygon, error) {
	p := make(orb.Polygon, 0, len(rings))
	for _, r := range rings {
		ring, err := t.ring(r)
		if err != nil {
			return nil, err
		}
		p = append(p, ring)
	}
	return p, nil
}

// stitch joins arcs end to end. Consecutive arcs share their junction point,
// so it is emitted once.
func (t *Topology) stitch(arcs []int) ([]orb.Point, error) {
	var points []orb.Point
	for _, i := range arcs {
		a, err := t.arc(i)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			points = points[:len(points)-1]
		}
		for _, p := range a {
			points = append(points, orb.Point{p[0], p[1]})
		}
	}
	return points, nil
}

func (t *Topology) line(arcs []int) (orb.LineString, error) {
	points, err := t.stitch(arcs)
	if err != nil {
		return nil, err
	}
	if len(points) == 1 {
		points = append(points, points[0])
	}
	return orb.LineString(points), nil
}

// ring pads degenerate rings to four points so they stay closed.
func (t *Topology) ring(arcs []int) (orb.Ring, error) {
	points, err := t.stitch(arcs)
	if err != nil {
		return nil, err
	}
	for len(points) > 0 && len(points) < 4 {
		points = append(points, points[0])
	}
	return orb.Ring(points), nil
}

var (
	errShortPosition = errors.New("position needs two values")
	errMissingValue  = errors.New("missing value")
)

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errMissingValue
	}
	return json.Unmarshal(raw, v)
}
