package distiller

import (
	"strings"

	"golang.org/x/net/html"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

var textTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "li": true, "td": true, "th": true, "dt": true, "dd": true,
	"blockquote": true, "pre": true, "figcaption": true, "caption": true,
	"label": true, "span": true, "a": true, "button": true,
}

// contentRoot is the first rendered main landmark or article, else the body.
func (b *builder) contentRoot() *html.Node {
	for _, sel := range []string{"main", `[role="main"]`, "article"} {
		for _, n := range b.doc.Select(sel) {
			if b.doc.Rendered(n) && !ariaHidden(n) {
				return n
			}
		}
	}
	return b.doc.Body()
}

// ariaHidden reports aria-hidden on n or any ancestor.
func ariaHidden(n *html.Node) bool {
	hidden := func(p *html.Node) bool { return strings.EqualFold(dom.Attr(p, "aria-hidden"), "true") }
	return hidden(n) || dom.Closest(n, hidden) != nil
}

// collectText walks the content root in document order. Duplicate texts are
// dropped on their exact collapsed form and collection stops at the cap.
func (b *builder) collectText() []candidate {
	root := b.contentRoot()
	if root == nil {
		return nil
	}
	limit := b.cfg.TextCap
	seen := make(map[string]bool)
	var out []candidate
	dom.Walk(root, func(n *html.Node) bool {
		if len(out) >= limit {
			return false
		}
		if dom.NonRendering(n) || b.doc.SelfHidden(n) || strings.EqualFold(dom.Attr(n, "aria-hidden"), "true") {
			return false
		}
		if !textTags[n.Data] {
			return true
		}
		text := b.doc.TextContent(n)
		if text == "" || seen[text] {
			return true
		}
		seen[text] = true
		out = append(out, candidate{node: n, box: b.box(n), text: text})
		return true
	})
	return out
}

func (b *builder) textView(cands []candidate) (*entity.TextView, []string) {
	sortByPosition(cands, b.cfg.RowTolerance)
	view := &entity.TextView{Units: make([]entity.TextUnit, 0, len(cands))}
	locators := make([]string, 0, len(cands))
	for i, c := range cands {
		view.Units = append(view.Units, entity.TextUnit{
			Content: truncateWords(c.text, b.cfg.TextLimit),
			Tag:     c.node.Data,
			Index:   i,
		})
		locators = append(locators, locatorFor(b.doc, c.node))
	}
	return view, locators
}
