package dom

import (
	"context"

	"golang.org/x/net/html"

	"webagent/internal/domain/entity"
)

// The methods below edit a synthetic document the way a page script would.
// While capture is on, each edit is recorded as a mutation, which makes a
// Document usable as a mutation source in tests and offline runs.

func (d *Document) StartCapture(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capturing = true
	d.records = nil
	return nil
}

func (d *Document) StopCapture(context.Context) ([]entity.MutationRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capturing = false
	out := d.records
	d.records = nil
	return out, nil
}

func (d *Document) PageInfo(context.Context) (entity.PageInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return entity.PageInfo{URL: d.url, Title: d.title}, nil
}

func (d *Document) record(r entity.MutationRecord) {
	if d.capturing {
		d.records = append(d.records, r)
	}
}

func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent.AppendChild(child)
	d.record(entity.MutationRecord{
		Kind:   entity.MutationChildList,
		Target: Describe(parent),
		Added:  []entity.NodeInfo{Describe(child)},
	})
}

func (d *Document) Remove(n *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent := n.Parent
	if parent == nil {
		return
	}
	info := Describe(n)
	parent.RemoveChild(n)
	d.record(entity.MutationRecord{
		Kind:    entity.MutationChildList,
		Target:  Describe(parent),
		Removed: []entity.NodeInfo{info},
	})
}

func (d *Document) SetAttribute(n *html.Node, key, val string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := Attr(n, key)
	found := false
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			found = true
			break
		}
	}
	if !found {
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	}
	d.record(entity.MutationRecord{
		Kind:          entity.MutationAttributes,
		Target:        Describe(n),
		AttributeName: key,
		OldValue:      old,
	})
}

func (d *Document) RemoveAttribute(n *html.Node, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := Attr(n, key)
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
	d.record(entity.MutationRecord{
		Kind:          entity.MutationAttributes,
		Target:        Describe(n),
		AttributeName: key,
		OldValue:      old,
	})
}

// SetText replaces the children of n with a single text node.
func (d *Document) SetText(n *html.Node, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := InnerText(n)
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	d.record(entity.MutationRecord{
		Kind:     entity.MutationCharacterData,
		Target:   Describe(n),
		OldValue: old,
	})
}

func (d *Document) SetURL(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = url
}

func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Navigate swaps the whole tree for a freshly parsed page.
func (d *Document) Navigate(url, raw string) error {
	next, err := ParseHTML(url, raw)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root = next.root
	d.layout = next.layout
	d.url = url
	d.title = next.title
	return nil
}

// Describe extracts the NodeInfo carried by mutation records.
func Describe(n *html.Node) entity.NodeInfo {
	if n == nil {
		return entity.NodeInfo{}
	}
	if n.Type == html.TextNode {
		return entity.NodeInfo{Tag: "#text", Text: truncate(CollapseSpace(n.Data), 80)}
	}
	return entity.NodeInfo{
		Tag:   n.Data,
		ID:    Attr(n, "id"),
		Class: Attr(n, "class"),
		Role:  Attr(n, "role"),
		Text:  truncate(InnerText(n), 80),
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
