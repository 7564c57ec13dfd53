package layout

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Faces are built from the embedded Go fonts so measurement gives the
// same answer on every machine. The server renderer and the preview
// share these metrics, which is what keeps the two visually aligned.
var (
	parseOnce   sync.Once
	regularFont *opentype.Font
	boldFont    *opentype.Font

	faceMu    sync.Mutex
	faceCache = map[faceKey]font.Face{}
)

type faceKey struct {
	sizePx int
	bold   bool
}

func parseFonts() {
	var err error
	regularFont, err = opentype.Parse(goregular.TTF)
	if err != nil {
		panic("layout: parse goregular: " + err.Error())
	}
	boldFont, err = opentype.Parse(gobold.TTF)
	if err != nil {
		panic("layout: parse gobold: " + err.Error())
	}
}

// face returns a cached face for the given pixel size and weight.
// Callers must hold faceMu: opentype faces carry scratch buffers and
// are not safe for concurrent use.
func face(sizePx int, bold bool) font.Face {
	parseOnce.Do(parseFonts)

	if sizePx < 1 {
		sizePx = 1
	}
	key := faceKey{sizePx: sizePx, bold: bold}

	if f, ok := faceCache[key]; ok {
		return f
	}

	src := regularFont
	if bold {
		src = boldFont
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    float64(sizePx),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		// NewFace only fails on bad options; size is clamped above.
		panic("layout: new face: " + err.Error())
	}
	faceCache[key] = f
	return f
}

// MeasureString returns the advance width of s in pixels, rounded to
// nearest, for the face implied by size and weight.
func MeasureString(s string, sizePx int, bold bool) int {
	faceMu.Lock()
	defer faceMu.Unlock()

	adv := font.MeasureString(face(sizePx, bold), s)
	px := (int(adv) + 32) >> 6
	if px < 0 {
		px = 0
	}
	return px
}

// Metrics returns the face metrics for the given size and weight.
func Metrics(sizePx int, bold bool) font.Metrics {
	faceMu.Lock()
	defer faceMu.Unlock()
	return face(sizePx, bold).Metrics()
}

// WithFace runs fn with exclusive access to the requested face. The
// renderer uses this to draw without racing the measurement cache.
func WithFace(sizePx int, bold bool, fn func(font.Face)) {
	faceMu.Lock()
	defer faceMu.Unlock()
	fn(face(sizePx, bold))
}
