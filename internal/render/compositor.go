// Package render composites a template with one row of values into a
// final image. The same code path serves preview generation and the
// batch worker, so a preview is pixel-identical to the batch output for
// the same inputs.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"mockup/internal/layout"
	"mockup/internal/maskbuf"
	"mockup/internal/models"
	"mockup/internal/namecase"
	"mockup/internal/pkg/errors"

	_ "image/gif"
	_ "image/png"
)

// JPEGQuality for final renders and previews.
const JPEGQuality = 70

// AssetLoader fetches stored objects by key. ports.StorageProvider
// satisfies it.
type AssetLoader interface {
	GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error)
}

// Options tune one render call.
type Options struct {
	// Placeholders substitutes sample text for empty values. Previews
	// turn this on; batch renders leave empty cells empty.
	Placeholders bool
}

// Compositor renders templates. Safe for concurrent use.
type Compositor struct {
	assets AssetLoader
}

func NewCompositor(assets AssetLoader) *Compositor {
	return &Compositor{assets: assets}
}

// Render draws the base image, the resolved variables and the mask
// overlay at the base image's natural resolution.
func (c *Compositor) Render(ctx context.Context, tpl *models.Template, values map[string]string, opts Options) (*image.NRGBA, error) {
	base, err := c.loadImage(ctx, tpl.BaseImagePath)
	if err != nil {
		return nil, errors.Wrap(err, "render.base", "load base image")
	}

	b := base.Bounds()
	canvas := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), base, b.Min, draw.Src)

	for i := range tpl.Variables {
		v := &tpl.Variables[i]
		value := values[v.ID]
		if value == "" {
			value = v.DefaultValue
		}

		switch v.Type {
		case models.VariableImage:
			if value == "" {
				continue
			}
			if err := c.drawImageVariable(ctx, canvas, v, value); err != nil {
				return nil, errors.Wrap(err, "render.variable", "draw image variable "+v.ID)
			}
		default:
			if value == "" && !opts.Placeholders {
				continue
			}
			drawTextVariable(canvas, v, value)
		}
	}

	for _, m := range tpl.Masks {
		if err := c.drawMask(ctx, canvas, m); err != nil {
			return nil, errors.Wrap(err, "render.mask", "draw mask "+m.ID)
		}
	}

	return canvas, nil
}

// drawTextVariable lays the value out inside the variable box and draws
// each line with the alignment the style asks for.
func drawTextVariable(canvas *image.NRGBA, v *models.Variable, value string) {
	if v.Transform == "shorten" {
		value = namecase.Shorten(value)
	}

	res := layout.Layout(layout.Input{
		Text:  value,
		BoxW:  v.W,
		BoxH:  v.H,
		Scale: 1,
		Style: v.Style,
	})
	if len(res.Lines) == 0 {
		return
	}

	col := parseHexColor(v.Style.Normalized().Color)

	layout.WithFace(res.SizePx, res.Bold, func(f font.Face) {
		ascent := f.Metrics().Ascent.Ceil()
		d := font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(col),
			Face: f,
		}
		for i, line := range res.Lines {
			var x int
			switch res.Align {
			case "left":
				x = v.X
			case "right":
				x = v.X + v.W - line.Width
			default: // center
				x = v.X + (v.W-line.Width)/2
			}
			y := v.Y + res.StartY + i*res.LineHeight + ascent
			d.Dot = fixed.P(x, y)
			d.DrawString(line.Text)
		}
	})
}

// drawImageVariable fetches the referenced image and fits it into the
// variable box. Cover fills the box cropping the source; contain letter
// boxes the source inside it.
func (c *Compositor) drawImageVariable(ctx context.Context, canvas *image.NRGBA, v *models.Variable, key string) error {
	src, err := c.loadImage(ctx, key)
	if err != nil {
		return err
	}

	box := image.Rect(v.X, v.Y, v.X+v.W, v.Y+v.H)
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || box.Dx() <= 0 || box.Dy() <= 0 {
		return nil
	}

	srcRect := sb
	dstRect := box

	boxAspect := float64(box.Dx()) / float64(box.Dy())
	srcAspect := float64(sb.Dx()) / float64(sb.Dy())

	if v.Fit == models.FitContain {
		// Shrink the destination to the source aspect, centered.
		if srcAspect > boxAspect {
			h := int(float64(box.Dx()) / srcAspect)
			pad := (box.Dy() - h) / 2
			dstRect = image.Rect(box.Min.X, box.Min.Y+pad, box.Max.X, box.Min.Y+pad+h)
		} else {
			w := int(float64(box.Dy()) * srcAspect)
			pad := (box.Dx() - w) / 2
			dstRect = image.Rect(box.Min.X+pad, box.Min.Y, box.Min.X+pad+w, box.Max.Y)
		}
	} else {
		// Cover: crop the source to the box aspect, centered.
		if srcAspect > boxAspect {
			w := int(float64(sb.Dy()) * boxAspect)
			pad := (sb.Dx() - w) / 2
			srcRect = image.Rect(sb.Min.X+pad, sb.Min.Y, sb.Min.X+pad+w, sb.Max.Y)
		} else {
			h := int(float64(sb.Dx()) / boxAspect)
			pad := (sb.Dy() - h) / 2
			srcRect = image.Rect(sb.Min.X, sb.Min.Y+pad, sb.Max.X, sb.Min.Y+pad+h)
		}
	}

	xdraw.ApproxBiLinear.Scale(canvas, dstRect, src, srcRect, xdraw.Over, nil)
	return nil
}

// drawMask overlays a stored mask, rescaled to the canvas size.
func (c *Compositor) drawMask(ctx context.Context, canvas *image.NRGBA, m models.Mask) error {
	ref := m.Ref()
	if ref == "" {
		return nil
	}

	rc, _, _, err := c.assets.GetObject(ctx, ref)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}

	b := canvas.Bounds()
	buf := maskbuf.New(b.Dx(), b.Dy())
	if err := buf.LoadPNG(data); err != nil {
		return err
	}
	draw.Draw(canvas, b, buf.Image(), image.Point{}, draw.Over)
	return nil
}

func (c *Compositor) loadImage(ctx context.Context, key string) (image.Image, error) {
	rc, _, _, err := c.assets.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return nil, errors.Wrap(err, "render.decode", "decode image "+key)
	}
	return img, nil
}

// EncodeJPEG writes img as a JPEG at the render quality.
func EncodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
}

// EncodeBase64JPEG returns the JPEG bytes base64-encoded, the form the
// preview endpoint ships to the editor.
func EncodeBase64JPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ResolveValues turns one CSV row into variable values through the
// column mapping. Unmapped variables stay absent and fall back to their
// default value inside Render.
func ResolveValues(tpl *models.Template, mapping map[string]string, row map[string]string) map[string]string {
	values := make(map[string]string, len(tpl.Variables))
	for i := range tpl.Variables {
		id := tpl.Variables[i].ID
		if col, ok := mapping[id]; ok {
			values[id] = row[col]
		}
	}
	return values
}

// parseHexColor parses #rrggbb, falling back to opaque black.
func parseHexColor(s string) color.NRGBA {
	black := color.NRGBA{A: 0xff}
	if len(s) != 7 || s[0] != '#' {
		return black
	}
	n, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return black
	}
	return color.NRGBA{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
		A: 0xff,
	}
}
