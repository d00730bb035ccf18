package render

import (
	"math"

	"github.com/paulmach/orb"
)

// Projection maps a [lon, lat] point in degrees onto the canvas. ok is false
// when the result is not finite.
type Projection interface {
	Project(p orb.Point) (x, y float64, ok bool)
}

// Natural Earth defaults for a 960 unit wide canvas.
const (
	naturalEarthScale = 175.295
	referenceWidth    = 960.0
)

// NaturalEarth is the Natural Earth I pseudo-cylindrical projection.
type NaturalEarth struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// NewNaturalEarth centers the projection on a width x height canvas with the
// conventional scale, adjusted proportionally to the canvas width.
func NewNaturalEarth(width, height float64) NaturalEarth {
	return NaturalEarth{
		Scale:      naturalEarthScale * width / referenceWidth,
		TranslateX: width / 2,
		TranslateY: height / 2,
	}
}

// Project implements Projection.
func (n NaturalEarth) Project(p orb.Point) (float64, float64, bool) {
	lambda := p.Lon() * math.Pi / 180
	phi := p.Lat() * math.Pi / 180
	rx, ry := naturalEarthRaw(lambda, phi)

	x := n.TranslateX + n.Scale*rx
	y := n.TranslateY - n.Scale*ry
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, 0, false
	}
	return x, y, true
}

// naturalEarthRaw is the polynomial form by Šavrič, Jenny, Patterson,
// Petrovič and Hurni (2011).
func naturalEarthRaw(lambda, phi float64) (float64, float64) {
	phi2 := phi * phi
	phi4 := phi2 * phi2
	x := lambda * (0.8707 - 0.131979*phi2 + phi4*(-0.013791+phi4*(0.003971*phi2-0.001529*phi4)))
	y := phi * (1.007226 + phi2*(0.015085+phi4*(-0.044475+0.028874*phi2-0.005916*phi4)))
	return x, y
}
