package dom

import (
	"context"
	"testing"

	"golang.org/x/net/html"

	"webagent/internal/domain/entity"
)

const samplePage = `<html><head><title> Sample  page </title></head>
<body>
  <div id="main">
    <p>Visible</p>
    <p hidden>Hidden attr</p>
    <p style="display: none">Display none</p>
    <div style="visibility:hidden"><span id="inner">Inherited</span></div>
    <div style="opacity: 0"><span id="faded">Faded</span></div>
    <div style="visibility:hidden"><span id="back" style="visibility: visible">Back</span></div>
  </div>
</body></html>`

func mustParse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := ParseHTML("https://example.com/", raw)
	if err != nil {
		t.Fatalf("ParseHTML failed: %v", err)
	}
	return doc
}

func TestParseHTML_TitleAndURL(t *testing.T) {
	doc := mustParse(t, samplePage)

	if doc.Title() != "Sample page" {
		t.Errorf("expected collapsed title, got %q", doc.Title())
	}
	if doc.URL() != "https://example.com/" {
		t.Errorf("unexpected url %q", doc.URL())
	}
	if doc.Viewport() != nil {
		t.Error("parsed HTML must not carry a viewport")
	}
}

func TestRendered_StyleAndAttributes(t *testing.T) {
	doc := mustParse(t, samplePage)
	ps := doc.Select("p")
	if len(ps) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(ps))
	}
	if !doc.Rendered(ps[0]) {
		t.Error("plain paragraph must be rendered")
	}
	if doc.Rendered(ps[1]) {
		t.Error("hidden attribute must hide the node")
	}
	if doc.Rendered(ps[2]) {
		t.Error("display:none must hide the node")
	}

	checks := map[string]bool{"#inner": false, "#faded": false, "#back": true}
	for sel, want := range checks {
		nodes := doc.Select(sel)
		if len(nodes) != 1 {
			t.Fatalf("%s: expected one node", sel)
		}
		if got := doc.Rendered(nodes[0]); got != want {
			t.Errorf("%s: rendered=%v, want %v", sel, got, want)
		}
	}
}

func TestFromTree_AttachesLayout(t *testing.T) {
	zero := 0.0
	tree := Tree{
		URL:      "https://example.com/app",
		Title:    "App",
		Viewport: Viewport{Width: 1280, Height: 720},
		Root: TreeNode{Tag: "BODY", Children: []TreeNode{
			{Tag: "button", Attrs: map[string]string{"id": "go"}, Box: &entity.BoundingBox{X: 10, Y: 20, Width: 80, Height: 30},
				Children: []TreeNode{{Text: "Go"}}},
			{Tag: "div", Attrs: map[string]string{"id": "ghost"}, Opacity: &zero},
		}},
	}

	doc := FromTree(tree)

	if doc.Viewport() == nil || doc.Viewport().Width != 1280 {
		t.Fatalf("viewport not imported: %+v", doc.Viewport())
	}
	if doc.Body() == nil || doc.Body().Data != "body" {
		t.Fatal("expected body under a synthesized html element")
	}
	btn := doc.Select("#go")
	if len(btn) != 1 {
		t.Fatalf("expected button, got %d nodes", len(btn))
	}
	l, ok := doc.Layout(btn[0])
	if !ok || l.Box == nil || l.Box.Width != 80 {
		t.Errorf("button layout missing: %+v", l)
	}
	if InnerText(btn[0]) != "Go" {
		t.Errorf("unexpected text %q", InnerText(btn[0]))
	}
	ghost := doc.Select("#ghost")
	if len(ghost) != 1 || doc.Rendered(ghost[0]) {
		t.Error("opacity 0 from layout must hide the node")
	}
}

func TestFind_XPathAndInvalidExpression(t *testing.T) {
	doc := mustParse(t, samplePage)

	nodes, err := doc.Find("//span[@id]")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("expected 3 spans, got %d", len(nodes))
	}

	if _, err := doc.Find("//span[@id"); err == nil {
		t.Error("expected an error for a malformed expression")
	}
	if got := doc.Select("p[[["); len(got) != 0 {
		t.Error("invalid CSS must match nothing")
	}
}

func TestCapture_RecordsOnlyWhileArmed(t *testing.T) {
	ctx := context.Background()
	doc := mustParse(t, samplePage)
	main := doc.Select("#main")[0]

	doc.AppendChild(main, NewElement("div", nil, "before capture"))

	if err := doc.StartCapture(ctx); err != nil {
		t.Fatal(err)
	}
	modal := NewElement("div", map[string]string{"role": "dialog", "class": "modal"}, "Hello")
	doc.AppendChild(main, modal)
	doc.SetAttribute(modal, "aria-hidden", "false")
	doc.SetText(modal, "Changed")
	doc.Remove(modal)

	records, err := doc.StopCapture(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d: %+v", len(records), records)
	}
	if records[0].Kind != entity.MutationChildList || records[0].Added[0].Role != "dialog" {
		t.Errorf("unexpected first record %+v", records[0])
	}
	if records[1].AttributeName != "aria-hidden" {
		t.Errorf("unexpected attribute record %+v", records[1])
	}
	if records[2].Kind != entity.MutationCharacterData || records[2].OldValue != "Hello" {
		t.Errorf("unexpected text record %+v", records[2])
	}
	if len(records[3].Removed) != 1 {
		t.Errorf("unexpected removal record %+v", records[3])
	}

	doc.SetAttribute(main, "data-x", "1")
	again, _ := doc.StopCapture(ctx)
	if len(again) != 0 {
		t.Error("mutations after StopCapture must not be recorded")
	}
}

func TestNavigate_ReplacesTree(t *testing.T) {
	doc := mustParse(t, samplePage)

	if err := doc.Navigate("https://example.com/done", "<title>Done</title><p>ok</p>"); err != nil {
		t.Fatal(err)
	}
	info, _ := doc.PageInfo(context.Background())
	if info.URL != "https://example.com/done" || info.Title != "Done" {
		t.Errorf("unexpected page info %+v", info)
	}
	if FirstElement(doc.Root(), "p") == nil || FirstElement(doc.Root(), "span") != nil {
		t.Error("tree was not replaced")
	}
	var count int
	Walk(doc.Root(), func(n *html.Node) bool { count++; return true })
	if count == 0 {
		t.Error("walk visited nothing")
	}
}

func TestTextContent_SkipsHiddenAndScripts(t *testing.T) {
	doc := mustParse(t, `<body><div id="box">Hello <b>bold</b><script>var x</script><span hidden>secret</span><p>para</p></div></body>`)

	got := doc.TextContent(doc.Select("#box")[0])

	if got != "Hello bold para" {
		t.Errorf("unexpected text %q", got)
	}
}
