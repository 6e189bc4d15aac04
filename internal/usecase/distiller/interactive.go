package distiller

import (
	"strings"

	"golang.org/x/net/html"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

const interactiveXPath = `//a[@href] | //button | //input | //select | //textarea |
	//*[@role] | //*[@tabindex] | //*[@onclick]`

var keptAttributes = []string{
	"type", "role", "aria-label", "aria-expanded", "aria-checked", "aria-selected",
	"aria-haspopup", "title", "alt", "target", "checked", "disabled",
}

func (b *builder) collectInteractive() []candidate {
	var out []candidate
	for _, n := range b.query(interactiveXPath) {
		if len(out) >= b.cfg.InteractiveCap {
			break
		}
		if n.Data == "html" || n.Data == "body" {
			continue
		}
		if n.Data == "input" && inputType(n) == "hidden" {
			continue
		}
		if r := role(n); r != "" && !interactiveRoles[r] && !landmarkRoles[r] {
			continue
		}
		if !b.visible(n) {
			continue
		}
		out = append(out, candidate{node: n, box: b.box(n)})
	}
	return out
}

func (b *builder) interactiveView(cands []candidate) (*entity.InteractiveView, []string) {
	sortByPosition(cands, b.cfg.RowTolerance)
	view := &entity.InteractiveView{
		Elements:  make([]entity.InteractiveElement, 0, len(cands)),
		Landmarks: []entity.Landmark{},
	}
	locators := make([]string, 0, len(cands))

	for i, c := range cands {
		n := c.node
		base := b.base(n)
		base.Index = i
		el := entity.InteractiveElement{
			DistilledElement: base,
			Href:             dom.Attr(n, "href"),
			Context:          landmarkContext(n),
		}
		for _, attr := range keptAttributes {
			if !dom.HasAttr(n, attr) {
				continue
			}
			if el.Attributes == nil {
				el.Attributes = make(map[string]string)
			}
			el.Attributes[attr] = dom.Attr(n, attr)
		}
		view.Elements = append(view.Elements, el)
		locators = append(locators, base.Locator)
	}
	view.Landmarks = b.landmarks(cands)
	return view, locators
}

// landmarks lists the rendered landmark regions, explicit or native, that
// contain at least one element, each pointing at the first element inside it.
func (b *builder) landmarks(cands []candidate) []entity.Landmark {
	out := []entity.Landmark{}
	if len(cands) == 0 {
		return out
	}
	dom.Walk(b.doc.Body(), func(n *html.Node) bool {
		if dom.NonRendering(n) || b.doc.SelfHidden(n) {
			return false
		}
		r := landmarkOf(n)
		if r == "" {
			return true
		}
		for i, c := range cands {
			if c.node == n || contains(n, c.node) {
				out = append(out, entity.Landmark{
					Role:  r,
					Label: strings.TrimSpace(dom.Attr(n, "aria-label")),
					Index: i,
				})
				break
			}
		}
		return true
	})
	return out
}

func contains(ancestor, n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

func (b *builder) countLinks() int {
	count := 0
	for _, n := range b.query("//a[@href]") {
		if b.visible(n) {
			count++
		}
	}
	return count
}
