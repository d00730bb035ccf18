// Package topology decodes TopoJSON world atlases into orb geometries.
//
// Only the subset of TopoJSON needed for a world map is supported: quantized
// or absolute arcs, Polygon, MultiPolygon, LineString, MultiLineString,
// Point, MultiPoint and GeometryCollection objects. Arcs are referenced by
// index; a negative index ^i (which is -i-1) denotes arc i reversed.
package topology

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotTopology is returned when the document type is not "Topology".
	ErrNotTopology = errors.New("not a topology")
	// ErrMissingObject is returned when a named object is absent.
	ErrMissingObject = errors.New("missing topology object")
	// ErrArcIndex is returned when a geometry references an unknown arc.
	ErrArcIndex = errors.New("arc index out of range")
)

// Topology is a decoded TopoJSON document with its arcs already
// dequantized into absolute coordinates.
type Topology struct {
	Objects map[string]*Geometry

	arcs      [][][2]float64
	transform *transform
}

// Geometry is a TopoJSON geometry object. Arcs keeps its raw shape because
// the nesting depth depends on Type.
type Geometry struct {
	Type        string          `json:"type"`
	ID          any             `json:"id,omitempty"`
	Properties  map[string]any  `json:"properties,omitempty"`
	Arcs        json.RawMessage `json:"arcs,omitempty"`
	Coordinates json.RawMessage `json:"coordinates,omitempty"`
	Geometries  []*Geometry     `json:"geometries,omitempty"`
}

type transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type document struct {
	Type      string               `json:"type"`
	Transform *transform           `json:"transform,omitempty"`
	Objects   map[string]*Geometry `json:"objects"`
	Arcs      [][][]float64        `json:"arcs"`
}

// Decode parses a TopoJSON document.
func Decode(data []byte) (*Topology, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	if doc.Type != "Topology" {
		return nil, fmt.Errorf("%w: type %q", ErrNotTopology, doc.Type)
	}

	arcs := make([][][2]float64, len(doc.Arcs))
	for i, arc := range doc.Arcs {
		decoded, err := decodeArc(arc, doc.Transform)
		if err != nil {
			return nil, fmt.Errorf("decode arc %d: %w", i, err)
		}
		arcs[i] = decoded
	}

	return &Topology{Objects: doc.Objects, arcs: arcs, transform: doc.Transform}, nil
}

// decodeArc converts one arc to absolute coordinates. Quantized topologies
// delta-encode positions relative to the previous point of the same arc.
func decodeArc(arc [][]float64, t *transform) ([][2]float64, error) {
	out := make([][2]float64, len(arc))
	var x, y float64
	for i, p := range arc {
		if len(p) < 2 {
			return nil, fmt.Errorf("position %d has %d values", i, len(p))
		}
		if t == nil {
			out[i] = [2]float64{p[0], p[1]}
			continue
		}
		x += p[0]
		y += p[1]
		out[i] = [2]float64{x*t.Scale[0] + t.Translate[0], y*t.Scale[1] + t.Translate[1]}
	}
	return out, nil
}

// Object returns the named object or ErrMissingObject.
func (t *Topology) Object(name string) (*Geometry, error) {
	g, ok := t.Objects[name]
	if !ok || g == nil {
		return nil, fmt.Errorf("%w: %q", ErrMissingObject, name)
	}
	return g, nil
}

// arc returns arc i in forward or reversed order for a signed index.
func (t *Topology) arc(i int) ([][2]float64, error) {
	reversed := i < 0
	if reversed {
		i = ^i
	}
	if i >= len(t.arcs) {
		return nil, fmt.Errorf("%w: %d", ErrArcIndex, i)
	}
	a := t.arcs[i]
	if !reversed {
		return a, nil
	}
	r := make([][2]float64, len(a))
	for j := range a {
		r[len(a)-1-j] = a[j]
	}
	return r, nil
}

// untransform applies the topology transform to an absolute position.
// Point geometries are quantized but never delta-encoded.
func untransform(p []float64, t *transform) [2]float64 {
	if t == nil {
		return [2]float64{p[0], p[1]}
	}
	return [2]float64{p[0]*t.Scale[0] + t.Translate[0], p[1]*t.Scale[1] + t.Translate[1]}
}
