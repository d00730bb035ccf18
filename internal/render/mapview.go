package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/topology"
)

// DefaultMaxRadius caps bubble radius in canvas units.
const DefaultMaxRadius = 15.0

// Bubble is one projected incident.
type Bubble struct {
	X, Y, R  float64
	Severity int
}

// MapView draws the world background and one bubble per active incident.
type MapView struct {
	Projection Projection
	MaxRadius  float64
}

// NewMapView returns a Natural Earth map view on a width x height canvas.
func NewMapView(width, height, maxRadius float64) MapView {
	return MapView{
		Projection: NewNaturalEarth(width, height),
		MaxRadius:  maxRadius,
	}
}

// SizeScale builds the radius scale from the full, unfiltered dataset so that
// bubble sizes stay comparable while the selection changes.
func (v MapView) SizeScale(all []domain.Incident) SqrtScale {
	return SqrtScale{Max: float64(domain.MaxSeverity(all)), RangeMax: v.MaxRadius}
}

// Bubbles projects active incidents. Incidents whose position or radius is
// not finite are left out.
func (v MapView) Bubbles(active []domain.Incident, size SqrtScale) []Bubble {
	out := make([]Bubble, 0, len(active))
	for i := range active {
		x, y, ok := v.Projection.Project(active[i].Coordinates)
		if !ok {
			continue
		}
		r := size.Map(float64(active[i].Severity))
		if math.IsNaN(r) || r < 0 {
			continue
		}
		out = append(out, Bubble{X: x, Y: y, R: r, Severity: active[i].Severity})
	}
	return out
}

// BaseLayer renders the sphere, graticule, land and interior borders. It
// depends only on the topology and is cached by callers.
func (v MapView) BaseLayer(world topology.World) string {
	var b strings.Builder

	sphere := newPathData(v.Projection)
	sphere.geometry(sphereOutline())
	fmt.Fprintf(&b, `<path class="sphere" d="%s"/>`, sphere)

	grid := newPathData(v.Projection)
	grid.geometry(graticule())
	fmt.Fprintf(&b, `<path class="graticules" d="%s"/>`, grid)

	for _, feature := range world.Land {
		land := newPathData(v.Projection)
		land.geometry(feature)
		fmt.Fprintf(&b, `<path class="land" d="%s"/>`, land)
	}

	interiors := newPathData(v.Projection)
	interiors.geometry(world.Borders)
	fmt.Fprintf(&b, `<path class="interiors" d="%s"/>`, interiors)

	return b.String()
}

// BubbleLayer renders circles for bubbles.
func (v MapView) BubbleLayer(bubbles []Bubble) string {
	var b strings.Builder
	for _, c := range bubbles {
		fmt.Fprintf(&b, `<circle cx="%s" cy="%s" r="%s"/>`, num(c.X), num(c.Y), num(c.R))
	}
	return b.String()
}

// Render wraps the two layers in the marks group.
func (v MapView) Render(base, bubbles string) string {
	return `<g class="marks">` + base + bubbles + `</g>`
}

func num(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}
