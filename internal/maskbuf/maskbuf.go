// Package maskbuf holds the freehand mask raster for a template. It is
// deliberately free of any rendering toolkit: strokes land in an
// in-memory buffer at the template's natural resolution and serialize
// to PNG for upload.
package maskbuf

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// Painted pixels are opaque white; everything else stays transparent.
var paint = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Buffer is a raster mask sized to the template's natural dimensions.
// Not safe for concurrent use; the owning controller serializes access.
type Buffer struct {
	img *image.NRGBA
	w   int
	h   int
}

// New allocates an empty buffer of the given natural size.
func New(w, h int) *Buffer {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return &Buffer{
		img: image.NewNRGBA(image.Rect(0, 0, w, h)),
		w:   w,
		h:   h,
	}
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (w, h int) { return b.w, b.h }

// Resize reallocates the buffer at a new natural size, rescaling any
// coverage already painted. Strokes made against placeholder dimensions
// survive the switch to the real image size.
func (b *Buffer) Resize(w, h int) {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if w == b.w && h == b.h {
		return
	}
	old := b.img
	hadPaint := !b.Empty()
	b.img = image.NewNRGBA(image.Rect(0, 0, w, h))
	b.w, b.h = w, h
	if hadPaint {
		xdraw.ApproxBiLinear.Scale(b.img, b.img.Bounds(), old, old.Bounds(), xdraw.Over, nil)
	}
}

// Stroke paints a filled disc of the given radius centered at (x, y),
// clipped to the buffer.
func (b *Buffer) Stroke(x, y, radius int) {
	if radius < 1 {
		radius = 1
	}
	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		py := y + dy
		if py < 0 || py >= b.h {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			px := x + dx
			if px < 0 || px >= b.w {
				continue
			}
			if dx*dx+dy*dy <= r2 {
				b.img.SetNRGBA(px, py, paint)
			}
		}
	}
}

// StrokeLine stamps discs along the segment from (x0, y0) to (x1, y1)
// so fast pointer moves leave no gaps.
func (b *Buffer) StrokeLine(x0, y0, x1, y1, radius int) {
	dx := x1 - x0
	dy := y1 - y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		b.Stroke(x0, y0, radius)
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + dx*i/steps
		y := y0 + dy*i/steps
		b.Stroke(x, y, radius)
	}
}

// Clear resets every pixel. The persisted mask is untouched until an
// explicit save.
func (b *Buffer) Clear() {
	for i := range b.img.Pix {
		b.img.Pix[i] = 0
	}
}

// Empty reports whether no pixel has been painted.
func (b *Buffer) Empty() bool {
	// Alpha bytes sit at every 4th offset.
	for i := 3; i < len(b.img.Pix); i += 4 {
		if b.img.Pix[i] != 0 {
			return false
		}
	}
	return true
}

// Painted reports whether the pixel at (x, y) carries mask coverage.
func (b *Buffer) Painted(x, y int) bool {
	if x < 0 || x >= b.w || y < 0 || y >= b.h {
		return false
	}
	return b.img.NRGBAAt(x, y).A != 0
}

// Image exposes the raster for compositing.
func (b *Buffer) Image() image.Image { return b.img }

// EncodePNG serializes the buffer for upload.
func (b *Buffer) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Load replaces the buffer contents with img, rescaled to the buffer's
// resolution. Used to rehydrate a saved mask when a template is opened.
func (b *Buffer) Load(img image.Image) {
	b.Clear()
	xdraw.ApproxBiLinear.Scale(b.img, b.img.Bounds(), img, img.Bounds(), xdraw.Over, nil)
}

// LoadPNG decodes and loads a serialized mask.
func (b *Buffer) LoadPNG(data []byte) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}
	b.Load(img)
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
