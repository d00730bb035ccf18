package topology

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// MeshFilter decides whether an arc shared by geometries a and b is kept.
// a and b are the first and last geometries referencing the arc, identified
// by their position in a depth-first walk of the object. For an arc used by
// a single geometry, a == b.
type MeshFilter func(a, b int) bool

// Interiors keeps arcs shared by two distinct geometries: internal borders.
func Interiors(a, b int) bool { return a != b }

type arcRef struct {
	signed int
	geom   int
}

// Mesh returns the arcs of o that pass filter as one MultiLineString, in
// arc index order. Each arc keeps the direction of its first reference. A
// nil filter keeps every arc.
func (t *Topology) Mesh(o *Geometry, filter MeshFilter) (orb.MultiLineString, error) {
	byArc := make(map[int][]arcRef)
	geom := 0

	var walk func(g *Geometry) error
	walk = func(g *Geometry) error {
		if g == nil {
			return nil
		}
		if g.Type == "GeometryCollection" {
			for _, child := range g.Geometries {
				if err := walk(child); err != nil {
					return err
				}
			}
			return nil
		}
		refs, err := arcIndices(g)
		if err != nil {
			return err
		}
		for _, i := range refs {
			j := i
			if j < 0 {
				j = ^j
			}
			byArc[j] = append(byArc[j], arcRef{signed: i, geom: geom})
		}
		geom++
		return nil
	}
	if err := walk(o); err != nil {
		return nil, err
	}

	keys := make([]int, 0, len(byArc))
	for k := range byArc {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var mesh orb.MultiLineString
	for _, k := range keys {
		refs := byArc[k]
		if filter != nil && !filter(refs[0].geom, refs[len(refs)-1].geom) {
			continue
		}
		ls, err := t.line([]int{refs[0].signed})
		if err != nil {
			return nil, err
		}
		mesh = append(mesh, ls)
	}
	return mesh, nil
}

// arcIndices flattens every arc reference of a non-collection geometry.
func arcIndices(g *Geometry) ([]int, error) {
	var out []int
	switch g.Type {
	case "LineString":
		if err := json.Unmarshal(g.Arcs, &out); err != nil {
			return nil, fmt.Errorf("linestring arcs: %w", err)
		}
	case "MultiLineString", "Polygon":
		var nested [][]int
		if err := json.Unmarshal(g.Arcs, &nested); err != nil {
			return nil, fmt.Errorf("%s arcs: %w", g.Type, err)
		}
		for _, a := range nested {
			out = append(out, a...)
		}
	case "MultiPolygon":
		var nested [][][]int
		if err := json.Unmarshal(g.Arcs, &nested); err != nil {
			return nil, fmt.Errorf("multipolygon arcs: %w", err)
		}
		for _, p := range nested {
			for _, a := range p {
				out = append(out, a...)
			}
		}
	}
	return out, nil
}
