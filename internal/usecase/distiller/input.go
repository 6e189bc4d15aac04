package distiller

import (
	"strings"

	"golang.org/x/net/html"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

const inputXPath = `//input | //textarea | //select | //button |
	//*[@role='textbox' or @role='combobox' or @role='checkbox' or @role='radio' or @role='switch' or
	    @role='searchbox' or @role='spinbutton' or @role='slider' or @role='listbox' or @role='button']`

func formContainer(n *html.Node) *html.Node {
	return dom.Closest(n, func(p *html.Node) bool {
		return p.Data == "form" || role(p) == "form"
	})
}

// collectInputs keeps visible form controls, and invisible ones inside a
// form since those tend to appear after interaction.
func (b *builder) collectInputs() []candidate {
	var out []candidate
	for _, n := range b.query(inputXPath) {
		if len(out) >= b.cfg.InputCap {
			break
		}
		if n.Data == "input" && inputType(n) == "hidden" {
			continue
		}
		if !b.visible(n) && formContainer(n) == nil {
			continue
		}
		out = append(out, candidate{node: n, box: b.box(n)})
	}
	return out
}

func (b *builder) inputView(cands []candidate) (*entity.InputView, []string) {
	sortByPosition(cands, b.cfg.RowTolerance)
	view := &entity.InputView{
		Elements: make([]entity.InputElement, 0, len(cands)),
		Forms:    []entity.FormGroup{},
	}
	locators := make([]string, 0, len(cands))
	groups := make(map[*html.Node]int)

	for i, c := range cands {
		n := c.node
		base := b.base(n)
		base.Index = i
		el := entity.InputElement{
			DistilledElement: base,
			Required:         dom.HasAttr(n, "required") || strings.EqualFold(dom.Attr(n, "aria-required"), "true"),
			Disabled:         disabled(n),
			Label:            b.label(n),
		}
		if n.Data == "select" {
			el.Options = b.options(n)
		}
		view.Elements = append(view.Elements, el)
		locators = append(locators, base.Locator)

		form := formContainer(n)
		if form == nil {
			continue
		}
		gi, ok := groups[form]
		if !ok {
			gi = len(view.Forms)
			groups[form] = gi
			view.Forms = append(view.Forms, entity.FormGroup{
				Locator: locatorFor(b.doc, form),
				Name:    formName(form),
			})
		}
		view.Forms[gi].Fields = append(view.Forms[gi].Fields, i)
	}
	return view, locators
}

func formName(form *html.Node) string {
	for _, attr := range []string{"aria-label", "name", "id", "action"} {
		if v := dom.Attr(form, attr); v != "" {
			return v
		}
	}
	return ""
}
