package entity

import "time"

type DistillMode string

const (
	ModeText        DistillMode = "text"
	ModeInput       DistillMode = "input"
	ModeInteractive DistillMode = "interactive"
	ModeAuto        DistillMode = "auto"
)

func ParseDistillMode(s string) (DistillMode, bool) {
	switch DistillMode(s) {
	case ModeText, ModeInput, ModeInteractive, ModeAuto:
		return DistillMode(s), true
	}
	return "", false
}

type ViewHeader struct {
	Mode        DistillMode `json:"mode"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	TokenCount  int         `json:"tokenCount"`
	ExtractedAt time.Time   `json:"extractedAt"`
}

// DistilledView is the closed union of TextView, InputView and InteractiveView.
type DistilledView interface {
	Header() ViewHeader
	Len() int
	Summaries() []ElementSummary
	view()
}

// ElementSummary is the (tag, text) pair a view contributes to a state fingerprint.
type ElementSummary struct {
	Tag  string
	Text string
}

type TextView struct {
	ViewHeader
	Units []TextUnit `json:"units"`
}

type InputView struct {
	ViewHeader
	Elements []InputElement `json:"elements"`
	Forms    []FormGroup    `json:"forms"`
}

type InteractiveView struct {
	ViewHeader
	Elements  []InteractiveElement `json:"elements"`
	Landmarks []Landmark           `json:"landmarks"`
}

func (v *TextView) Header() ViewHeader        { return v.ViewHeader }
func (v *InputView) Header() ViewHeader       { return v.ViewHeader }
func (v *InteractiveView) Header() ViewHeader { return v.ViewHeader }

func (v *TextView) Len() int        { return len(v.Units) }
func (v *InputView) Len() int       { return len(v.Elements) }
func (v *InteractiveView) Len() int { return len(v.Elements) }

func (v *TextView) Summaries() []ElementSummary {
	out := make([]ElementSummary, 0, len(v.Units))
	for _, u := range v.Units {
		out = append(out, ElementSummary{Tag: u.Tag, Text: u.Content})
	}
	return out
}

func (v *InputView) Summaries() []ElementSummary {
	out := make([]ElementSummary, 0, len(v.Elements))
	for _, el := range v.Elements {
		text := el.Label
		if text == "" {
			text = el.Name
		}
		// value is part of the summary so typing registers as progress
		out = append(out, ElementSummary{Tag: el.Tag, Text: text + "=" + el.Value})
	}
	return out
}

func (v *InteractiveView) Summaries() []ElementSummary {
	out := make([]ElementSummary, 0, len(v.Elements))
	for _, el := range v.Elements {
		text := el.Text
		if text == "" {
			text = el.Name
		}
		if el.Value != "" {
			text += "=" + el.Value
		}
		out = append(out, ElementSummary{Tag: el.Tag, Text: text})
	}
	return out
}

func (*TextView) view()        {}
func (*InputView) view()       {}
func (*InteractiveView) view() {}
