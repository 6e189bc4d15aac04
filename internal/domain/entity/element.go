package entity

type ElementKind string

const (
	KindLink     ElementKind = "link"
	KindButton   ElementKind = "button"
	KindInput    ElementKind = "input"
	KindSelect   ElementKind = "select"
	KindTextarea ElementKind = "textarea"
	KindCheckbox ElementKind = "checkbox"
	KindRadio    ElementKind = "radio"
	KindText     ElementKind = "text"
	KindOther    ElementKind = "other"
)

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DistilledElement is one addressable unit of a view. Index is only
// meaningful against the view that produced it.
type DistilledElement struct {
	Index        int          `json:"index"`
	Tag          string       `json:"tag"`
	Kind         ElementKind  `json:"kind"`
	Locator      string       `json:"locator"`
	Visible      bool         `json:"visible"`
	Interactable bool         `json:"interactable"`
	Box          *BoundingBox `json:"box,omitempty"`
	Name         string       `json:"name,omitempty"`
	Value        string       `json:"value,omitempty"`
	Placeholder  string       `json:"placeholder,omitempty"`
	Text         string       `json:"text,omitempty"`
}

type SelectOption struct {
	Value    string `json:"value"`
	Text     string `json:"text,omitempty"`
	Selected bool   `json:"selected,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
}

type InputElement struct {
	DistilledElement
	Required bool           `json:"required,omitempty"`
	Disabled bool           `json:"disabled,omitempty"`
	Options  []SelectOption `json:"options,omitempty"`
	Label    string         `json:"label,omitempty"`
}

type InteractiveElement struct {
	DistilledElement
	Href       string            `json:"href,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Context    string            `json:"context,omitempty"`
}

type TextUnit struct {
	Content string `json:"content"`
	Tag     string `json:"tag"`
	Index   int    `json:"index"`
}

// FormGroup lists the indices of the input elements sharing one form container.
type FormGroup struct {
	Locator string `json:"locator"`
	Name    string `json:"name,omitempty"`
	Fields  []int  `json:"fields"`
}

type Landmark struct {
	Role  string `json:"role"`
	Label string `json:"label,omitempty"`
	Index int    `json:"index"`
}
