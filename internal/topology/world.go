package topology

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Object names in a world-atlas topology.
const (
	ObjectLand      = "land"
	ObjectCountries = "countries"
)

// World is the decoded map background: land polygons and the mesh of
// borders between distinct countries.
type World struct {
	Land    []orb.Geometry
	Borders orb.MultiLineString
}

// Bound returns the bounding box of the land features.
func (w World) Bound() orb.Bound {
	var b orb.Bound
	first := true
	for _, g := range w.Land {
		gb := g.Bound()
		if first {
			b, first = gb, false
			continue
		}
		b = b.Union(gb)
	}
	return b
}

// LoadWorld decodes a world-atlas TopoJSON document.
func LoadWorld(data []byte) (World, error) {
	topo, err := Decode(data)
	if err != nil {
		return World{}, err
	}

	land, err := topo.Object(ObjectLand)
	if err != nil {
		return World{}, err
	}
	countries, err := topo.Object(ObjectCountries)
	if err != nil {
		return World{}, err
	}

	features, err := topo.Feature(land)
	if err != nil {
		return World{}, fmt.Errorf("land features: %w", err)
	}
	borders, err := topo.Mesh(countries, Interiors)
	if err != nil {
		return World{}, fmt.Errorf("country mesh: %w", err)
	}

	return World{Land: features, Borders: borders}, nil
}
