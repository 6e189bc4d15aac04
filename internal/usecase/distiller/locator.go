package distiller

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"webagent/internal/domain/dom"
)

var testAttributes = []string{"data-testid", "data-test-id", "data-test", "data-qa", "data-cy"}

var cssIdent = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)

var formTags = map[string]bool{"input": true, "select": true, "textarea": true, "button": true}

// locatorFor builds a CSS selector for n, preferring in order a unique id, a
// unique test attribute, a unique name on form elements and finally the
// structural path from <html>.
func locatorFor(doc *dom.Document, n *html.Node) string {
	if id := dom.Attr(n, "id"); id != "" {
		sel := `[id="` + cssEscape(id) + `"]`
		if cssIdent.MatchString(id) {
			sel = "#" + id
		}
		if uniqueMatch(doc, sel, n) {
			return sel
		}
	}
	for _, attr := range testAttributes {
		if v := dom.Attr(n, attr); v != "" {
			sel := fmt.Sprintf(`%s[%s="%s"]`, n.Data, attr, cssEscape(v))
			if uniqueMatch(doc, sel, n) {
				return sel
			}
		}
	}
	if formTags[n.Data] {
		if v := dom.Attr(n, "name"); v != "" {
			sel := fmt.Sprintf(`%s[name="%s"]`, n.Data, cssEscape(v))
			if uniqueMatch(doc, sel, n) {
				return sel
			}
		}
	}
	return structuralPath(n)
}

func uniqueMatch(doc *dom.Document, sel string, n *html.Node) bool {
	nodes := doc.Select(sel)
	return len(nodes) == 1 && nodes[0] == n
}

// structuralPath walks to the root emitting tag:nth-of-type segments.
func structuralPath(n *html.Node) string {
	var segments []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		tag := cur.Data
		if tag == "html" || tag == "body" || tag == "head" {
			segments = append(segments, tag)
			continue
		}
		pos := 1
		for prev := cur.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && prev.Data == tag {
				pos++
			}
		}
		segments = append(segments, fmt.Sprintf("%s:nth-of-type(%d)", tag, pos))
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, " > ")
}

func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `).Replace(s)
}
