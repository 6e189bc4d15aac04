package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Find evaluates an XPath expression against the whole document.
func (d *Document) Find(expr string) ([]*html.Node, error) {
	return FindUnder(d.root, expr)
}

// FindUnder evaluates an XPath expression relative to top.
func FindUnder(top *html.Node, expr string) ([]*html.Node, error) {
	nodes, err := htmlquery.QueryAll(top, expr)
	if err != nil {
		return nil, fmt.Errorf("xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// Select returns the nodes matching a CSS selector. An invalid selector
// matches nothing.
func (d *Document) Select(css string) []*html.Node {
	return goquery.NewDocumentFromNode(d.root).Find(css).Nodes
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func HasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func IsElement(n *html.Node, tags ...string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if n.Data == t {
			return true
		}
	}
	return false
}

// InnerText is the whitespace-collapsed text content of n.
func InnerText(n *html.Node) string {
	return CollapseSpace(htmlquery.InnerText(n))
}

func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FirstElement does a depth-first search for the first element named tag.
func FirstElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FirstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// Closest returns the nearest ancestor of n (excluding n) accepted by match.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}

// Walk visits elements in document order. Returning false from visit skips
// the element's subtree.
func Walk(n *html.Node, visit func(*html.Node) bool) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		Walk(c, visit)
	}
}
