package editor

import (
	"context"
	"image"
	"sync"

	"mockup/internal/maskbuf"
	"mockup/internal/models"
	"mockup/internal/pkg/errors"
	"mockup/internal/pkg/logger"
)

// MaskUploader serializes a mask raster into a persisted asset.
type MaskUploader interface {
	UploadMask(ctx context.Context, pngData []byte) (models.Mask, error)
}

// MaskController captures freehand brush strokes into a raster buffer
// at the template's natural resolution and manages its persistence.
// Pointer coordinates arrive in display space together with the
// rendered canvas size, from which the inverse scale is derived.
type MaskController struct {
	mu  *sync.Mutex // guards buf and tpl; the session shares it across controllers
	buf *maskbuf.Buffer

	tpl    *models.Template
	upload MaskUploader
	save   Saver
	log    *logger.Logger

	drawing   bool // drawing mode toggled by the operator
	stroking  bool // an active stroke between pointer-down and up
	lastX     int
	lastY     int
	brushSize int // disc diameter, display pixels

	loadErr error // sticky error from a failed mask rehydration
}

const defaultBrushSize = 30

func NewMaskController(tpl *models.Template, mu *sync.Mutex, naturalW, naturalH int, upload MaskUploader, save Saver, log *logger.Logger) *MaskController {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	return &MaskController{
		mu:        mu,
		buf:       maskbuf.New(naturalW, naturalH),
		tpl:       tpl,
		upload:    upload,
		save:      save,
		log:       log.WithComponent("mask"),
		brushSize: defaultBrushSize,
	}
}

// Resize rebuilds the buffer at the template's actual natural size,
// rescaling any strokes already made against the placeholder
// dimensions. Called when the base image finishes decoding.
func (m *MaskController) Resize(naturalW, naturalH int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Resize(naturalW, naturalH)
}

// SetDrawing toggles drawing mode. Pointer events are ignored while
// off.
func (m *MaskController) SetDrawing(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawing = on
	if !on {
		m.stroking = false
	}
}

// SetBrushSize sets the brush disc diameter in display pixels.
func (m *MaskController) SetBrushSize(px int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if px > 0 {
		m.brushSize = px
	}
}

// PointerDown begins a stroke at a display-space position. canvasW is
// the rendered width of the mask canvas on screen; the aspect ratio is
// preserved, so width alone fixes the scale.
func (m *MaskController) PointerDown(x, y, canvasW int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.drawing {
		return
	}

	cx, cy, r := m.toBuffer(x, y, canvasW)
	m.stroking = true
	m.lastX, m.lastY = cx, cy
	m.buf.Stroke(cx, cy, r)
}

// PointerMove extends the active stroke.
func (m *MaskController) PointerMove(x, y, canvasW int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.drawing || !m.stroking {
		return
	}

	cx, cy, r := m.toBuffer(x, y, canvasW)
	m.buf.StrokeLine(m.lastX, m.lastY, cx, cy, r)
	m.lastX, m.lastY = cx, cy
}

// PointerUp ends the stroke.
func (m *MaskController) PointerUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stroking = false
}

// PointerLeave ends the stroke the same way pointer-up does.
func (m *MaskController) PointerLeave() { m.PointerUp() }

// toBuffer converts a display position and the brush radius into buffer
// coordinates through the inverse of the canvas scale.
func (m *MaskController) toBuffer(x, y, canvasW int) (bx, by, radius int) {
	bw, _ := m.buf.Size()
	scale := 1.0
	if canvasW > 0 {
		scale = float64(bw) / float64(canvasW)
	}
	bx = int(float64(x)*scale + 0.5)
	by = int(float64(y)*scale + 0.5)
	radius = int(float64(m.brushSize)/2*scale + 0.5)
	if radius < 1 {
		radius = 1
	}
	return bx, by, radius
}

// Clear empties the buffer without touching the persisted mask.
func (m *MaskController) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Clear()
}

// Empty reports whether the buffer holds any coverage.
func (m *MaskController) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Empty()
}

// Painted reports buffer coverage at a canonical pixel.
func (m *MaskController) Painted(x, y int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Painted(x, y)
}

// Save persists the buffer. A non-empty buffer is uploaded and replaces
// the template's mask list with the single returned entry; an empty
// buffer saves an empty list, which removes any prior mask.
func (m *MaskController) Save(ctx context.Context) error {
	m.mu.Lock()
	empty := m.buf.Empty()
	var data []byte
	var err error
	if !empty {
		data, err = m.buf.EncodePNG()
	}
	m.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, "mask.save", "encode mask")
	}

	var masks []models.Mask
	if !empty {
		mask, err := m.upload.UploadMask(ctx, data)
		if err != nil {
			return errors.Wrap(err, "mask.save", "upload mask")
		}
		masks = []models.Mask{mask}
	}

	m.mu.Lock()
	m.tpl.Masks = masks
	snapshot := m.tpl.Clone()
	m.mu.Unlock()

	if _, err := m.save.SaveTemplate(ctx, snapshot); err != nil {
		return errors.Wrap(err, "mask.save", "save template")
	}
	return nil
}

// RemoveSaved clears the buffer and the persisted list, then saves
// immediately.
func (m *MaskController) RemoveSaved(ctx context.Context) error {
	m.Clear()
	return m.Save(ctx)
}

// Rehydrate redraws a saved mask image into the buffer at buffer
// resolution. A decode failure leaves the editor usable and is exposed
// through LoadError.
func (m *MaskController) Rehydrate(img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Load(img)
	m.loadErr = nil
}

// RehydratePNG decodes and loads serialized mask data.
func (m *MaskController) RehydratePNG(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.buf.LoadPNG(data); err != nil {
		m.loadErr = errors.Wrap(err, "mask.rehydrate", "decode saved mask")
		m.log.Warn("saved mask failed to load", "error", err.Error())
		return m.loadErr
	}
	m.loadErr = nil
	return nil
}

// LoadError returns the sticky rehydration error, if any.
func (m *MaskController) LoadError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadErr
}
