// Package geometry converts between the canonical coordinate space of a
// template's base image and the scaled space the editor displays it in.
// Variable geometry is always stored canonically; only rendering and
// pointer capture pass through the transform.
package geometry

import "math"

// MaxDisplayWidth is the widest the editor renders a template.
const MaxDisplayWidth = 900

// Placeholder aspect used until the base image finishes loading.
const (
	PlaceholderWidth  = 1200
	PlaceholderHeight = 700
)

type Point struct {
	X int
	Y int
}

type Rect struct {
	X int
	Y int
	W int
	H int
}

// Transform maps canonical (image-pixel) coordinates to display
// coordinates and back. The zero value is not usable; construct with
// New.
type Transform struct {
	naturalW   int
	naturalH   int
	maxDisplay int
	loaded     bool
}

// New returns a transform with the placeholder aspect. Call
// SetNaturalSize once the base image dimensions are known.
func New(maxDisplayWidth int) Transform {
	if maxDisplayWidth <= 0 {
		maxDisplayWidth = MaxDisplayWidth
	}
	return Transform{
		naturalW:   PlaceholderWidth,
		naturalH:   PlaceholderHeight,
		maxDisplay: maxDisplayWidth,
	}
}

// SetNaturalSize records the true base image dimensions. Only the
// rendering scale changes; canonical values stored elsewhere are left
// alone.
func (t *Transform) SetNaturalSize(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	t.naturalW = w
	t.naturalH = h
	t.loaded = true
}

// Loaded reports whether the natural size came from a real image rather
// than the placeholder.
func (t Transform) Loaded() bool { return t.loaded }

// NaturalSize returns the canonical dimensions in effect.
func (t Transform) NaturalSize() (w, h int) { return t.naturalW, t.naturalH }

// Scale is the factor applied to canonical values for display.
// displayWidth = min(W, maxDisplay), scale = displayWidth / W.
func (t Transform) Scale() float64 {
	dw := t.naturalW
	if dw > t.maxDisplay {
		dw = t.maxDisplay
	}
	return float64(dw) / float64(t.naturalW)
}

// DisplaySize returns the scaled viewport dimensions.
func (t Transform) DisplaySize() (w, h int) {
	s := t.Scale()
	w = roundScale(t.naturalW, s)
	h = roundScale(t.naturalH, s)
	return w, h
}

// ToDisplay maps a canonical point into display space.
func (t Transform) ToDisplay(p Point) Point {
	s := t.Scale()
	return Point{X: roundScale(p.X, s), Y: roundScale(p.Y, s)}
}

// ToCanonical maps a display point back into canonical space, rounding
// to the nearest integer before it is stored on a variable.
func (t Transform) ToCanonical(p Point) Point {
	s := t.Scale()
	return Point{X: roundDiv(p.X, s), Y: roundDiv(p.Y, s)}
}

// RectToDisplay maps a canonical rect into display space.
func (t Transform) RectToDisplay(r Rect) Rect {
	s := t.Scale()
	return Rect{
		X: roundScale(r.X, s),
		Y: roundScale(r.Y, s),
		W: roundScale(r.W, s),
		H: roundScale(r.H, s),
	}
}

// RectToCanonical maps a display rect back into canonical space.
func (t Transform) RectToCanonical(r Rect) Rect {
	s := t.Scale()
	return Rect{
		X: roundDiv(r.X, s),
		Y: roundDiv(r.Y, s),
		W: roundDiv(r.W, s),
		H: roundDiv(r.H, s),
	}
}

func roundScale(v int, s float64) int {
	return int(math.Round(float64(v) * s))
}

func roundDiv(v int, s float64) int {
	return int(math.Round(float64(v) / s))
}
