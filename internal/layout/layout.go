// Package layout computes word-wrapped line layout for text variables.
// It runs in two places with the same inputs: the editor preview
// (canonical geometry scaled for display) and the server compositor
// (scale 1.0). Identical inputs always produce identical lines.
package layout

import (
	"math"
	"strings"

	"mockup/internal/models"
)

// Placeholder substituted when the resolved value is empty. Preview
// only; it is never written back to a variable.
const Placeholder = "Sample"

// Input describes one text variable to lay out. BoxW and BoxH are
// canonical; Scale converts them to the target resolution.
type Input struct {
	Text  string
	BoxW  int
	BoxH  int
	Scale float64
	Style models.Style
}

// Line is a single wrapped output line.
type Line struct {
	Text  string
	Width int
}

// Result is the computed layout. StartY is relative to the top of the
// scaled box; horizontal alignment is a per-line directive left to the
// renderer.
type Result struct {
	Lines       []Line
	LineHeight  int
	TotalHeight int
	StartY      int
	SizePx      int
	Bold        bool
	Align       string
}

// Layout wraps the text greedily and places it vertically inside the
// box. A token wider than the box is kept on its own line; there is no
// mid-word breaking.
func Layout(in Input) Result {
	style := in.Style.Normalized()
	scale := in.Scale
	if scale <= 0 {
		scale = 1
	}

	text := in.Text
	if strings.TrimSpace(text) == "" {
		text = Placeholder
	}

	sizePx := int(math.Round(float64(style.Size) * scale))
	if sizePx < 1 {
		sizePx = 1
	}
	bold := style.Bold()

	maxW := int(math.Round(float64(in.BoxW) * scale))
	boxH := int(math.Round(float64(in.BoxH) * scale))

	lines := wrap(text, maxW, sizePx, bold)

	// Line height equals the font size, no extra leading.
	lineHeight := sizePx
	total := len(lines) * lineHeight

	var startY int
	switch style.Valign {
	case "top":
		startY = 0
	case "bottom":
		startY = boxH - total
	default: // middle
		startY = (boxH - total) / 2
	}
	if startY < 0 {
		startY = 0
	}

	return Result{
		Lines:       lines,
		LineHeight:  lineHeight,
		TotalHeight: total,
		StartY:      startY,
		SizePx:      sizePx,
		Bold:        bold,
		Align:       style.Align,
	}
}

// wrap appends whitespace-delimited tokens to the current line while
// the rendered width stays within maxW, starting a new line otherwise.
func wrap(text string, maxW, sizePx int, bold bool) []Line {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []Line
	current := ""

	flush := func() {
		if current != "" {
			lines = append(lines, Line{Text: current, Width: MeasureString(current, sizePx, bold)})
			current = ""
		}
	}

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if MeasureString(candidate, sizePx, bold) <= maxW || current == "" {
			current = candidate
			continue
		}
		flush()
		current = word
	}
	flush()

	return lines
}
