package dom

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"webagent/internal/domain/entity"
)

// ParseHTML builds a snapshot without geometry: every node counts as laid out
// unless its attributes or inline style hide it.
func ParseHTML(url, raw string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc := newDocument(root, url)
	if t := FirstElement(root, "title"); t != nil {
		doc.title = InnerText(t)
	}
	return doc, nil
}

// TreeNode is the JSON shape produced by the in-page capture script. A node
// with an empty Tag is a text node.
type TreeNode struct {
	Tag        string              `json:"tag,omitempty"`
	Text       string              `json:"text,omitempty"`
	Attrs      map[string]string   `json:"attrs,omitempty"`
	Box        *entity.BoundingBox `json:"box,omitempty"`
	Display    string              `json:"display,omitempty"`
	Visibility string              `json:"visibility,omitempty"`
	Opacity    *float64            `json:"opacity,omitempty"`
	Occluded   bool                `json:"occluded,omitempty"`
	Children   []TreeNode          `json:"children,omitempty"`
}

type Tree struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Viewport Viewport `json:"viewport"`
	Root     TreeNode `json:"root"`
}

// FromTree converts a captured tree into a Document with its layout attached.
func FromTree(tree Tree) *Document {
	root := &html.Node{Type: html.DocumentNode}
	doc := newDocument(root, tree.URL)
	doc.title = tree.Title
	if tree.Viewport.Width > 0 || tree.Viewport.Height > 0 {
		doc.SetViewport(tree.Viewport)
	}

	top := tree.Root
	if !strings.EqualFold(top.Tag, "html") {
		top = TreeNode{Tag: "html", Children: []TreeNode{tree.Root}}
	}
	root.AppendChild(doc.buildNode(top))
	return doc
}

func (d *Document) buildNode(t TreeNode) *html.Node {
	if t.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: t.Text}
	}
	tag := strings.ToLower(t.Tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, k := range slices.Sorted(maps.Keys(t.Attrs)) {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: t.Attrs[k]})
	}
	if t.Box != nil || t.Display != "" || t.Visibility != "" || t.Opacity != nil || t.Occluded {
		d.layout[n] = Layout{
			Box:        t.Box,
			Display:    t.Display,
			Visibility: t.Visibility,
			Opacity:    t.Opacity,
			Occluded:   t.Occluded,
		}
	}
	for _, c := range t.Children {
		n.AppendChild(d.buildNode(c))
	}
	return n
}

// NewElement creates a detached element for use with AppendChild.
func NewElement(tag string, attrs map[string]string, text string) *html.Node {
	tag = strings.ToLower(tag)
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		n.Attr = append(n.Attr, html.Attribute{Key: k, Val: attrs[k]})
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return n
}
