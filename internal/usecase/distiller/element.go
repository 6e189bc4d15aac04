package distiller

import (
	"sort"
	"strings"

	"golang.org/x/net/html"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "checkbox": true, "radio": true, "switch": true,
	"textbox": true, "searchbox": true, "combobox": true, "listbox": true, "option": true,
	"menuitem": true, "menuitemcheckbox": true, "menuitemradio": true, "tab": true,
	"slider": true, "spinbutton": true, "treeitem": true, "gridcell": true,
}

var landmarkRoles = map[string]bool{
	"banner": true, "navigation": true, "main": true, "complementary": true,
	"contentinfo": true, "search": true, "form": true, "region": true,
}

var nativeLandmarks = map[string]string{
	"nav": "navigation", "main": "main", "header": "banner", "footer": "contentinfo",
	"aside": "complementary", "form": "form", "search": "search",
}

// builder carries the per-call state of one distillation.
type builder struct {
	cfg   Config
	doc   *dom.Document
	order map[*html.Node]int
}

type candidate struct {
	node *html.Node
	box  *entity.BoundingBox
	text string
}

func newBuilder(cfg Config, doc *dom.Document) *builder {
	b := &builder{cfg: cfg, doc: doc, order: make(map[*html.Node]int)}
	i := 0
	dom.Walk(doc.Root(), func(n *html.Node) bool {
		b.order[n] = i
		i++
		return true
	})
	return b
}

// query runs an XPath union and returns its matches in document order
// without duplicates.
func (b *builder) query(expr string) []*html.Node {
	nodes, err := b.doc.Find(expr)
	if err != nil {
		return nil
	}
	seen := make(map[*html.Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type != html.ElementNode || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return b.order[out[i]] < b.order[out[j]] })
	return out
}

func (b *builder) box(n *html.Node) *entity.BoundingBox {
	if l, ok := b.doc.Layout(n); ok && l.Box != nil {
		box := *l.Box
		return &box
	}
	return nil
}

// visible requires the node to be rendered and, when geometry is known, to
// have a non-empty box within the buffered viewport.
func (b *builder) visible(n *html.Node) bool {
	if !b.doc.Rendered(n) {
		return false
	}
	box := b.box(n)
	if box == nil {
		return true
	}
	if box.Width <= 0 || box.Height <= 0 {
		return false
	}
	vp := b.doc.Viewport()
	if vp == nil {
		return true
	}
	buf := b.cfg.ViewportBuffer
	return box.X+box.Width >= -buf && box.X <= vp.Width+buf &&
		box.Y+box.Height >= -buf && box.Y <= vp.Height+buf
}

func (b *builder) interactable(n *html.Node, visible bool) bool {
	if !visible || disabled(n) {
		return false
	}
	l, ok := b.doc.Layout(n)
	return !ok || !l.Occluded
}

func disabled(n *html.Node) bool {
	if dom.HasAttr(n, "disabled") || strings.EqualFold(dom.Attr(n, "aria-disabled"), "true") {
		return true
	}
	// a disabled fieldset disables its form controls
	if formTags[n.Data] {
		return dom.Closest(n, func(p *html.Node) bool {
			return p.Data == "fieldset" && dom.HasAttr(p, "disabled")
		}) != nil
	}
	return false
}

func role(n *html.Node) string {
	return strings.ToLower(strings.TrimSpace(dom.Attr(n, "role")))
}

func inputType(n *html.Node) string {
	t := strings.ToLower(strings.TrimSpace(dom.Attr(n, "type")))
	if t == "" && n.Data == "input" {
		return "text"
	}
	return t
}

func kindOf(n *html.Node) entity.ElementKind {
	switch n.Data {
	case "a":
		return entity.KindLink
	case "button":
		return entity.KindButton
	case "select":
		return entity.KindSelect
	case "textarea":
		return entity.KindTextarea
	case "input":
		switch inputType(n) {
		case "checkbox":
			return entity.KindCheckbox
		case "radio":
			return entity.KindRadio
		case "submit", "button", "reset", "image":
			return entity.KindButton
		}
		return entity.KindInput
	}
	switch role(n) {
	case "link":
		return entity.KindLink
	case "button", "menuitem", "tab":
		return entity.KindButton
	case "checkbox", "switch", "menuitemcheckbox":
		return entity.KindCheckbox
	case "radio", "menuitemradio":
		return entity.KindRadio
	case "textbox", "searchbox", "spinbutton", "slider":
		return entity.KindInput
	case "combobox", "listbox":
		return entity.KindSelect
	}
	return entity.KindOther
}

// base fills the fields every view shares.
func (b *builder) base(n *html.Node) entity.DistilledElement {
	visible := b.visible(n)
	el := entity.DistilledElement{
		Tag:          n.Data,
		Kind:         kindOf(n),
		Locator:      locatorFor(b.doc, n),
		Visible:      visible,
		Interactable: b.interactable(n, visible),
		Box:          b.box(n),
		Name:         b.accessibleName(n),
		Value:        b.value(n),
		Placeholder:  dom.Attr(n, "placeholder"),
	}
	if n.Data != "select" && n.Data != "textarea" && n.Data != "input" {
		el.Text = truncateWords(b.doc.TextContent(n), b.cfg.TextLimit)
	}
	return el
}

func (b *builder) accessibleName(n *html.Node) string {
	if v := strings.TrimSpace(dom.Attr(n, "aria-label")); v != "" {
		return v
	}
	if ids := strings.Fields(dom.Attr(n, "aria-labelledby")); len(ids) > 0 {
		var parts []string
		for _, id := range ids {
			for _, ref := range b.doc.Select(`[id="` + cssEscape(id) + `"]`) {
				if t := b.doc.TextContent(ref); t != "" {
					parts = append(parts, t)
				}
			}
		}
		if len(parts) > 0 {
			return truncateWords(strings.Join(parts, " "), b.cfg.TextLimit)
		}
	}
	for _, attr := range []string{"alt", "title"} {
		if v := strings.TrimSpace(dom.Attr(n, attr)); v != "" {
			return v
		}
	}
	if formTags[n.Data] {
		return dom.Attr(n, "name")
	}
	return ""
}

// label resolves the visible label of a form control: an explicit
// label[for], then a wrapping label, then aria-label, then title.
func (b *builder) label(n *html.Node) string {
	if id := dom.Attr(n, "id"); id != "" {
		for _, l := range b.doc.Select(`label[for="` + cssEscape(id) + `"]`) {
			if t := b.doc.TextContent(l); t != "" {
				return truncateWords(t, b.cfg.TextLimit)
			}
		}
	}
	if l := dom.Closest(n, func(p *html.Node) bool { return p.Data == "label" }); l != nil {
		if t := b.doc.TextContent(l); t != "" {
			return truncateWords(t, b.cfg.TextLimit)
		}
	}
	for _, attr := range []string{"aria-label", "title"} {
		if v := strings.TrimSpace(dom.Attr(n, attr)); v != "" {
			return v
		}
	}
	return ""
}

func (b *builder) value(n *html.Node) string {
	switch n.Data {
	case "input":
		switch inputType(n) {
		case "checkbox", "radio":
			if dom.HasAttr(n, "checked") {
				return "checked"
			}
			return ""
		case "password":
			if dom.Attr(n, "value") != "" {
				return "********"
			}
			return ""
		}
		return dom.Attr(n, "value")
	case "textarea":
		if dom.HasAttr(n, "value") {
			return dom.Attr(n, "value")
		}
		return b.doc.TextContent(n)
	case "select":
		opts := b.options(n)
		for _, o := range opts {
			if o.Selected {
				return o.Value
			}
		}
		if len(opts) > 0 {
			return opts[0].Value
		}
	}
	if c := strings.ToLower(dom.Attr(n, "aria-checked")); c == "true" {
		return "checked"
	}
	return ""
}

func (b *builder) options(sel *html.Node) []entity.SelectOption {
	nodes, err := dom.FindUnder(sel, ".//option")
	if err != nil {
		return nil
	}
	out := make([]entity.SelectOption, 0, len(nodes))
	for _, o := range nodes {
		text := dom.InnerText(o)
		value := dom.Attr(o, "value")
		if !dom.HasAttr(o, "value") {
			value = text
		}
		dis := dom.HasAttr(o, "disabled")
		if p := o.Parent; !dis && p != nil && p.Data == "optgroup" && dom.HasAttr(p, "disabled") {
			dis = true
		}
		out = append(out, entity.SelectOption{
			Value:    value,
			Text:     text,
			Selected: dom.HasAttr(o, "selected"),
			Disabled: dis,
		})
	}
	return out
}

// landmarkOf returns the landmark role of n itself, if any.
func landmarkOf(n *html.Node) string {
	if r := role(n); r != "" {
		if landmarkRoles[r] {
			return r
		}
		return ""
	}
	if n.Data == "section" && dom.Attr(n, "aria-label") != "" {
		return "region"
	}
	return nativeLandmarks[n.Data]
}

func landmarkContext(n *html.Node) string {
	lm := dom.Closest(n, func(p *html.Node) bool { return landmarkOf(p) != "" })
	if lm == nil {
		return ""
	}
	ctx := landmarkOf(lm)
	if label := strings.TrimSpace(dom.Attr(lm, "aria-label")); label != "" {
		ctx += ": " + label
	}
	return ctx
}

// truncateWords cuts s to at most limit runes at a word boundary and marks
// the cut with "...".
func truncateWords(s string, limit int) string {
	r := []rune(s)
	if limit <= 0 || len(r) <= limit {
		return s
	}
	cut := string(r[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:") + "..."
}
