package models

// VariableType distinguishes text placeholders from image slots.
type VariableType string

const (
	VariableText  VariableType = "text"
	VariableImage VariableType = "image"
)

// Fit modes for image variables.
const (
	FitCover   = "cover"
	FitContain = "contain"
)

// Style holds the rendering style of a text variable. Every field has a
// defined default applied at construction, so readers never need to
// fall back at the call site.
type Style struct {
	Size   int    `json:"size"`
	Weight string `json:"weight"`
	Color  string `json:"color"`
	Align  string `json:"align"`
	Valign string `json:"valign"`
}

// DefaultStyle returns the style a fresh text variable starts with.
func DefaultStyle() Style {
	return Style{
		Size:   32,
		Weight: "normal",
		Color:  "#000000",
		Align:  "center",
		Valign: "middle",
	}
}

// Normalized fills any zero-valued field with its default. Templates
// saved by older clients may carry partial styles.
func (s Style) Normalized() Style {
	d := DefaultStyle()
	if s.Size <= 0 {
		s.Size = d.Size
	}
	if s.Weight == "" {
		s.Weight = d.Weight
	}
	if s.Color == "" {
		s.Color = d.Color
	}
	if s.Align == "" {
		s.Align = d.Align
	}
	if s.Valign == "" {
		s.Valign = d.Valign
	}
	return s
}

// Bold reports whether the style asks for the bold face.
func (s Style) Bold() bool { return s.Weight == "bold" }

// Variable is a positioned placeholder on a template. Geometry is
// canonical: image-pixel units of the base image, never display units.
type Variable struct {
	ID           string       `json:"id"`
	Label        string       `json:"label"`
	Type         VariableType `json:"type"`
	X            int          `json:"x"`
	Y            int          `json:"y"`
	W            int          `json:"w"`
	H            int          `json:"h"`
	Fit          string       `json:"fit,omitempty"`       // image only
	Style        Style        `json:"style"`               // text only
	Transform    string       `json:"transform,omitempty"` // "shorten" trims legal suffixes
	DefaultValue string       `json:"defaultValue,omitempty"`
}

// Default geometry for a freshly placed variable.
const (
	DefaultVariableX = 50
	DefaultVariableY = 50
	DefaultVariableW = 200
	DefaultVariableH = 80
)

// NewVariable builds a variable of the given type with default geometry
// and style.
func NewVariable(id string, typ VariableType) Variable {
	v := Variable{
		ID:    id,
		Label: string(typ),
		Type:  typ,
		X:     DefaultVariableX,
		Y:     DefaultVariableY,
		W:     DefaultVariableW,
		H:     DefaultVariableH,
	}
	switch typ {
	case VariableImage:
		v.Fit = FitCover
	default:
		v.Style = DefaultStyle()
	}
	return v
}

// Mask is a persisted raster overlay. Either Data (inline base64) or
// Path (server asset path) is set, matching the upload response.
type Mask struct {
	ID   string `json:"id"`
	Data string `json:"data,omitempty"`
	Path string `json:"path,omitempty"`
}

// Ref returns whichever reference the mask carries.
func (m Mask) Ref() string {
	if m.Path != "" {
		return m.Path
	}
	return m.Data
}

// Template is a reusable layout: a base image plus positioned variables
// and an optional mask. The schema keeps masks as a list although the
// editor only ever writes zero or one entry.
type Template struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	BaseImagePath string     `json:"baseImagePath"`
	Variables     []Variable `json:"variables"`
	Masks         []Mask     `json:"masks"`
}

// FindVariable returns the index of the variable with the given id, or
// -1 when absent.
func (t *Template) FindVariable(id string) int {
	for i := range t.Variables {
		if t.Variables[i].ID == id {
			return i
		}
	}
	return -1
}

// VariableIDs returns the set of ids present on the template.
func (t *Template) VariableIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(t.Variables))
	for i := range t.Variables {
		ids[t.Variables[i].ID] = struct{}{}
	}
	return ids
}

// Clone deep-copies the template so optimistic edits never alias a
// snapshot being saved.
func (t *Template) Clone() Template {
	out := *t
	out.Variables = append([]Variable(nil), t.Variables...)
	out.Masks = append([]Mask(nil), t.Masks...)
	return out
}

// Validate checks the template invariants enforced at save time.
func (t *Template) Validate() error {
	seen := make(map[string]struct{}, len(t.Variables))
	for i := range t.Variables {
		v := &t.Variables[i]
		if v.ID == "" {
			return ErrVariableIDEmpty
		}
		if _, dup := seen[v.ID]; dup {
			return ErrVariableIDDuplicate
		}
		seen[v.ID] = struct{}{}
		if v.Type != VariableText && v.Type != VariableImage {
			return ErrVariableTypeUnknown
		}
	}
	return nil
}
