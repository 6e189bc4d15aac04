package distiller

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

func parse(t *testing.T, raw string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseHTML("https://shop.example.com/", raw)
	require.NoError(t, err)
	return doc
}

func distill(t *testing.T, doc *dom.Document, mode entity.DistillMode) (*Engine, entity.DistilledView) {
	t.Helper()
	e := New(doc, nil, DefaultConfig())
	view, err := e.Distill(context.Background(), mode)
	require.NoError(t, err)
	return e, view
}

func assertDenseIndices(t *testing.T, indices []int) {
	t.Helper()
	for i, idx := range indices {
		assert.Equal(t, i, idx, "indices must be dense and zero based")
	}
}

func TestDistill_TextModeCapsInDocumentOrder(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<body>")
	for i := 0; i < 600; i++ {
		fmt.Fprintf(&sb, "<p>Paragraph number %d</p>", i)
	}
	sb.WriteString("</body>")

	_, view := distill(t, parse(t, sb.String()), entity.ModeText)

	tv, ok := view.(*entity.TextView)
	require.True(t, ok)
	require.Len(t, tv.Units, 500)
	for i, u := range tv.Units {
		assert.Equal(t, fmt.Sprintf("Paragraph number %d", i), u.Content)
		assert.Equal(t, i, u.Index)
	}
	assert.Equal(t, entity.ModeText, tv.Mode)
	assert.Positive(t, tv.TokenCount)
}

func TestDistill_TextModeDeduplicatesAndSkipsHidden(t *testing.T) {
	doc := parse(t, `<body><nav><a href="/">Home</a></nav><main>
		<h1>Title</h1>
		<p>Same text</p>
		<p>Same   text</p>
		<p hidden>Hidden</p>
		<div aria-hidden="true"><p>Aria</p></div>
		<script>var x = 1;</script>
		<ul><li>Item <a href="#">one</a></li></ul>
	</main><footer><p>Outside</p></footer></body>`)

	_, view := distill(t, doc, entity.ModeText)

	tv := view.(*entity.TextView)
	var contents []string
	for _, u := range tv.Units {
		contents = append(contents, u.Content)
	}
	assert.Equal(t, []string{"Title", "Same text", "Item one", "one"}, contents)
}

func TestDistill_TextModeTruncatesAtWordBoundary(t *testing.T) {
	words := make([]string, 60)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	full := strings.Join(words, " ")

	_, view := distill(t, parse(t, "<p>"+full+"</p>"), entity.ModeText)

	content := view.(*entity.TextView).Units[0].Content
	require.True(t, strings.HasSuffix(content, "..."))
	kept := strings.TrimSuffix(content, "...")
	assert.LessOrEqual(t, len(kept), 200)
	assert.True(t, strings.HasPrefix(full, kept))
	assert.Equal(t, byte(' '), full[len(kept)], "cut must fall on a word boundary")
}

func TestDistill_InteractiveExcludesUnknownRoles(t *testing.T) {
	doc := parse(t, `<body>
		<nav role="navigation" aria-label="Main"><a href="/a">A</a></nav>
		<div role="presentation" onclick="go()">Decor</div>
		<div role="tooltip" tabindex="0">Tip</div>
		<div role="tab" tabindex="0">Tab</div>
		<input type="hidden" name="csrf">
		<button>Go</button>
	</body>`)

	_, view := distill(t, doc, entity.ModeInteractive)

	iv := view.(*entity.InteractiveView)
	var texts, roles []string
	var indices []int
	for _, el := range iv.Elements {
		texts = append(texts, el.Text)
		roles = append(roles, el.Attributes["role"])
		indices = append(indices, el.Index)
	}
	assert.Equal(t, []string{"A", "A", "Tab", "Go"}, texts)
	assert.Equal(t, []string{"navigation", "", "tab", ""}, roles)
	assertDenseIndices(t, indices)

	require.Len(t, iv.Landmarks, 1)
	assert.Equal(t, entity.Landmark{Role: "navigation", Label: "Main", Index: 0}, iv.Landmarks[0])
	assert.Equal(t, "navigation: Main", iv.Elements[1].Context)
	assert.Equal(t, entity.KindLink, iv.Elements[1].Kind)
	assert.Equal(t, "/a", iv.Elements[1].Href)
	assert.Equal(t, entity.KindButton, iv.Elements[2].Kind)
}

func TestDistill_LocatorPriority(t *testing.T) {
	doc := parse(t, `<body><div>
		<button id="save">Save</button>
		<button data-testid="cancel-btn">Cancel</button>
		<input name="email" type="email">
		<div><a href="/x">X</a><a href="/y">Y</a></div>
		<span id="dup" role="button">A</span><span id="dup" role="button">B</span>
	</div></body>`)

	e, view := distill(t, doc, entity.ModeInteractive)

	expected := []string{
		"#save",
		`button[data-testid="cancel-btn"]`,
		`input[name="email"]`,
		"html > body > div:nth-of-type(1) > div:nth-of-type(1) > a:nth-of-type(1)",
		"html > body > div:nth-of-type(1) > div:nth-of-type(1) > a:nth-of-type(2)",
		"html > body > div:nth-of-type(1) > span:nth-of-type(1)",
		"html > body > div:nth-of-type(1) > span:nth-of-type(2)",
	}
	iv := view.(*entity.InteractiveView)
	require.Len(t, iv.Elements, len(expected))
	for i, want := range expected {
		assert.Equal(t, want, iv.Elements[i].Locator)
		got, err := e.Resolve(i)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Len(t, doc.Select(got), 1, "locator %q must match exactly one node", got)
	}
}

func TestResolve_UnknownOrStaleIndex(t *testing.T) {
	doc := parse(t, `<body><button id="save">Save</button><button id="other">Other</button></body>`)
	e, _ := distill(t, doc, entity.ModeInteractive)

	_, err := e.Resolve(7)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
	_, err = e.Resolve(-1)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)

	doc.Remove(doc.Select("#save")[0])
	_, err = e.Resolve(0)
	assert.ErrorIs(t, err, entity.ErrElementNotFound)
	assert.Equal(t, entity.CategoryElementNotFound, entity.CategoryOf(err))

	loc, err := e.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "#other", loc)
}

func TestDistill_InputModeLabelsAndForms(t *testing.T) {
	doc := parse(t, `<body>
		<form id="login" aria-label="Login">
			<label for="user">Username</label><input id="user" name="user" required>
			<label>Password <input type="password" name="pw" value="secret"></label>
			<input aria-label="Promo code" name="promo" style="display:none">
			<input type="hidden" name="csrf" value="x">
			<select name="country">
				<option value="us">US</option>
				<option value="de" selected>Germany</option>
				<optgroup disabled><option>Mars</option></optgroup>
			</select>
			<button type="submit" disabled>Sign in</button>
		</form>
		<input title="Search site" name="q">
		<input name="ghost" style="display:none">
	</body>`)

	_, view := distill(t, doc, entity.ModeInput)

	iv := view.(*entity.InputView)
	require.Len(t, iv.Elements, 6)

	user := iv.Elements[0]
	assert.Equal(t, "Username", user.Label)
	assert.True(t, user.Required)
	assert.Equal(t, "#user", user.Locator)
	assert.Equal(t, entity.KindInput, user.Kind)

	pw := iv.Elements[1]
	assert.Equal(t, "Password", pw.Label)
	assert.Equal(t, "********", pw.Value)

	promo := iv.Elements[2]
	assert.Equal(t, "Promo code", promo.Label)
	assert.False(t, promo.Visible)

	country := iv.Elements[3]
	assert.Equal(t, entity.KindSelect, country.Kind)
	assert.Equal(t, "de", country.Value)
	require.Len(t, country.Options, 3)
	assert.Equal(t, "Mars", country.Options[2].Value)
	assert.True(t, country.Options[2].Disabled)

	submit := iv.Elements[4]
	assert.Equal(t, entity.KindButton, submit.Kind)
	assert.True(t, submit.Disabled)
	assert.False(t, submit.Interactable)

	assert.Equal(t, "Search site", iv.Elements[5].Label)

	require.Len(t, iv.Forms, 1)
	assert.Equal(t, entity.FormGroup{Locator: "#login", Name: "Login", Fields: []int{0, 1, 2, 3, 4}}, iv.Forms[0])
}

func linkNode(text string, box entity.BoundingBox) dom.TreeNode {
	return dom.TreeNode{
		Tag:      "a",
		Attrs:    map[string]string{"href": "/" + strings.ToLower(text)},
		Box:      &box,
		Children: []dom.TreeNode{{Text: text}},
	}
}

func TestDistill_GeometrySortingAndVisibility(t *testing.T) {
	covered := linkNode("Covered", entity.BoundingBox{X: 10, Y: 300, Width: 50, Height: 20})
	covered.Occluded = true
	doc := dom.FromTree(dom.Tree{
		URL:      "https://shop.example.com/",
		Viewport: dom.Viewport{Width: 1280, Height: 720},
		Root: dom.TreeNode{Tag: "body", Children: []dom.TreeNode{
			linkNode("C", entity.BoundingBox{X: 300, Y: 105, Width: 40, Height: 20}),
			linkNode("A", entity.BoundingBox{X: 10, Y: 100, Width: 40, Height: 20}),
			linkNode("D", entity.BoundingBox{X: 10, Y: 200, Width: 40, Height: 20}),
			linkNode("B", entity.BoundingBox{X: 150, Y: 118, Width: 40, Height: 20}),
			linkNode("Zero", entity.BoundingBox{X: 10, Y: 10, Width: 0, Height: 0}),
			linkNode("Far", entity.BoundingBox{X: 10, Y: 1400, Width: 40, Height: 20}),
			linkNode("Buffered", entity.BoundingBox{X: 10, Y: 1100, Width: 40, Height: 20}),
			covered,
		}},
	})

	_, view := distill(t, doc, entity.ModeInteractive)

	iv := view.(*entity.InteractiveView)
	var texts []string
	for _, el := range iv.Elements {
		texts = append(texts, el.Text)
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "Covered", "Buffered"}, texts)
	assert.True(t, iv.Elements[0].Interactable)
	assert.False(t, iv.Elements[4].Interactable, "occluded elements are visible but not interactable")
	assert.True(t, iv.Elements[4].Visible)
	require.NotNil(t, iv.Elements[0].Box)
}

func TestDistill_AutoModeSelection(t *testing.T) {
	form := parse(t, `<body><form>
		<input name="a"><input name="b"><input name="c"><a href="/help">Help</a>
	</form></body>`)
	_, view := distill(t, form, entity.ModeAuto)
	assert.Equal(t, entity.ModeInput, view.Header().Mode)

	var article strings.Builder
	article.WriteString(`<body><article>`)
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&article, "<p>%d %s</p>", i, strings.Repeat("lorem ipsum ", 9))
	}
	article.WriteString(`<a href="/next">Next</a></article></body>`)
	_, view = distill(t, parse(t, article.String()), entity.ModeAuto)
	assert.Equal(t, entity.ModeText, view.Header().Mode)

	var nav strings.Builder
	nav.WriteString(`<body><input name="q">`)
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&nav, `<a href="/p/%d">Product %d</a>`, i, i)
	}
	nav.WriteString(`</body>`)
	_, view = distill(t, parse(t, nav.String()), entity.ModeAuto)
	assert.Equal(t, entity.ModeInteractive, view.Header().Mode)
}

func TestDistill_EmptyDocumentIsValid(t *testing.T) {
	doc := parse(t, `<body></body>`)

	for _, mode := range []entity.DistillMode{entity.ModeText, entity.ModeInput, entity.ModeInteractive, entity.ModeAuto} {
		e, view := distill(t, doc, mode)
		assert.Equal(t, 0, view.Len(), "mode %s", mode)
		assert.Equal(t, 0, e.arena.Len())
	}
}

func TestDistill_SummariesFeedFingerprint(t *testing.T) {
	doc := parse(t, `<body><form><input name="q" value="shoes"><button>Search</button></form></body>`)

	_, view := distill(t, doc, entity.ModeInput)

	summaries := view.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, entity.ElementSummary{Tag: "input", Text: "q=shoes"}, summaries[0])
}

func TestDistill_TextModeSkipsHiddenContentRoot(t *testing.T) {
	doc := parse(t, `<body>
		<main hidden><p>gone</p></main>
		<article><p>kept</p></article>
		<p>outside</p>
	</body>`)

	_, view := distill(t, doc, entity.ModeText)

	tv := view.(*entity.TextView)
	require.Len(t, tv.Units, 1)
	assert.Equal(t, "kept", tv.Units[0].Content)
}

func TestDistill_InteractiveListsNativeLandmarks(t *testing.T) {
	doc := parse(t, `<body>
		<header><a href="/">Logo</a></header>
		<nav aria-label="Primary"><a href="/shop">Shop</a><a href="/help">Help</a></nav>
		<main><button>Buy</button></main>
		<aside></aside>
		<footer hidden><a href="/legal">Legal</a></footer>
	</body>`)

	_, view := distill(t, doc, entity.ModeInteractive)

	iv := view.(*entity.InteractiveView)
	require.Len(t, iv.Elements, 4)
	assert.Equal(t, []entity.Landmark{
		{Role: "banner", Index: 0},
		{Role: "navigation", Label: "Primary", Index: 1},
		{Role: "main", Index: 3},
	}, iv.Landmarks)
	assert.Equal(t, "navigation: Primary", iv.Elements[1].Context)
}

func TestDistill_IndicesDenseInEveryMode(t *testing.T) {
	doc := parse(t, `<body>
		<nav><a href="/">Home</a><a href="/about">About</a></nav>
		<h1>Checkout</h1>
		<p>Fill in your details.</p>
		<form id="checkout">
			<label for="email">Email</label><input id="email" name="email">
			<select name="country"><option value="de">Germany</option></select>
			<textarea name="note"></textarea>
			<input type="checkbox" name="terms"> <span>Accept terms</span>
			<input type="hidden" name="csrf">
			<button type="submit">Pay</button>
		</form>
		<div role="button" tabindex="0">Help</div>
		<p>Fill in your details.</p>
	</body>`)

	for _, mode := range []entity.DistillMode{entity.ModeText, entity.ModeInput, entity.ModeInteractive} {
		t.Run(string(mode), func(t *testing.T) {
			e, view := distill(t, doc, mode)

			var indices []int
			switch v := view.(type) {
			case *entity.TextView:
				for _, u := range v.Units {
					indices = append(indices, u.Index)
				}
			case *entity.InputView:
				for _, el := range v.Elements {
					indices = append(indices, el.Index)
				}
			case *entity.InteractiveView:
				for _, el := range v.Elements {
					indices = append(indices, el.Index)
				}
			}
			require.NotEmpty(t, indices)
			require.Equal(t, view.Len(), len(indices))
			assertDenseIndices(t, indices)

			seen := make(map[int]bool)
			for _, idx := range indices {
				assert.False(t, seen[idx], "index %d repeated", idx)
				seen[idx] = true
				_, err := e.Resolve(idx)
				assert.NoError(t, err)
			}
			_, err := e.Resolve(len(indices))
			assert.Error(t, err)
		})
	}
}
