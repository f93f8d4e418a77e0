package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/page"
)

func shopTree() *dom.Node {
	return dom.El(dom.KindBody,
		dom.El(dom.KindMenu, dom.Key("m"), dom.Attr{Name: "rows", Value: dom.String("3")},
			dom.El(dom.KindButton, dom.Key("buy"), "Buy now"),
			dom.El(dom.KindText,
				dom.Attr{Name: "class", Value: dom.String("hint")},
				dom.Attr{Name: dom.ContentAttr, Value: dom.String("Costs 5 & up")},
			),
			dom.El(dom.KindBreak),
		),
	)
}

func TestRenderCompact(t *testing.T) {
	r := NewRenderer(RendererConfig{})
	out, err := r.RenderToString(shopTree())
	require.NoError(t, err)
	assert.Equal(t,
		`<body><menu key="m" rows="3"><button key="buy">Buy now</button>`+
			`<text class="hint" content="Costs 5 &amp; up"/><br/></menu></body>`,
		out)
}

func TestRenderPretty(t *testing.T) {
	r := NewRenderer(RendererConfig{Pretty: true, Header: "surface shop -- committed"})
	out, err := r.RenderToString(shopTree())
	require.NoError(t, err)

	want := `<!-- surface shop - - committed -->
<body>
  <menu key="m" rows="3">
    <button key="buy">Buy now</button>
    <text class="hint" content="Costs 5 &amp; up"/>
    <br/>
  </menu>
</body>
`
	assert.Equal(t, want, out)
}

func TestRenderValues(t *testing.T) {
	n := dom.El(dom.KindItem,
		dom.Attr{Name: "count", Value: dom.Int(64)},
		dom.Attr{Name: "glint", Value: dom.Bool(true)},
		dom.Attr{Name: "gone", Value: dom.Value{}},
	)
	out, err := NewRenderer(RendererConfig{}).RenderToString(n)
	require.NoError(t, err)
	assert.Equal(t, `<item count="64" glint="true"/>`, out)
}

func TestRenderNil(t *testing.T) {
	out, err := NewRenderer(RendererConfig{Header: "empty"}).RenderToString(nil)
	require.NoError(t, err)
	assert.Equal(t, "<!-- empty -->", out)
}

func TestReservedAttr(t *testing.T) {
	n := dom.El(dom.KindDiv, dom.Attr{Name: "key", Value: dom.String("x")})
	_, err := NewRenderer(RendererConfig{}).RenderToString(n)
	assert.ErrorIs(t, err, ErrReservedAttr)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		tree *dom.Node
	}{
		{"shop", shopTree()},
		{"adjacent text", dom.El(dom.KindDiv, "first", "second", dom.El(dom.KindBreak), "third")},
		{"padded text", dom.El(dom.KindDiv, "  padded  ", dom.Text(""))},
		{"keyed text", dom.El(dom.KindDiv, dom.New(dom.KindText, "t", dom.NewAttrs(dom.Attr{Name: dom.ContentAttr, Value: dom.String("hi")})))},
		{"escapes", dom.El(dom.KindButton,
			dom.Attr{Name: "label", Value: dom.String("a \"quoted\" <label>\n\twith 'tabs'")},
			"x < y && y > z",
		)},
		{"multi line", dom.El(dom.KindDiv, "line\nbreak")},
		{"root text", dom.Text("alone")},
		{"nested", dom.El(dom.KindBody,
			dom.El(dom.KindDiv, dom.Key("a"),
				dom.El(dom.KindDiv, dom.Key("b"),
					dom.El(dom.KindInput, dom.Key("c"), dom.Attr{Name: "placeholder", Value: dom.String("name")}),
				),
			),
			dom.El(dom.KindOption, "one"),
		)},
	}
	for _, tt := range tests {
		for _, pretty := range []bool{false, true} {
			r := NewRenderer(RendererConfig{Pretty: pretty, Header: "round trip"})
			out, err := r.RenderToString(tt.tree)
			require.NoError(t, err, tt.name)

			p, err := page.ParseString(out)
			require.NoError(t, err, "%s:\n%s", tt.name, out)
			assert.True(t, dom.Equal(tt.tree, p.Tree), "%s (pretty=%v):\n%s", tt.name, pretty, out)
		}
	}
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(RendererConfig{Pretty: true})
	err := r.RenderPage(&buf, PageData{
		Options: map[string]string{"title": "Shop & Co", "columns": "9"},
		Body:    shopTree(),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<page>\n  <head>\n    <option name=\"columns\" value=\"9\"/>\n")
	assert.Contains(t, out, `<option name="title" value="Shop &amp; Co"/>`)

	p, err := page.ParseString(out)
	require.NoError(t, err)
	assert.True(t, dom.Equal(shopTree(), p.Tree))
	assert.Equal(t, map[string]string{"title": "Shop & Co", "columns": "9"}, p.Options)
}

func TestRenderPageWithoutOptions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{Body: dom.El(dom.KindBody)}))
	assert.Equal(t, "<page><body/></page>", buf.String())
}

func TestRenderPageRejectsNonBody(t *testing.T) {
	var buf bytes.Buffer
	err := NewRenderer(RendererConfig{}).RenderPage(&buf, PageData{Body: dom.El(dom.KindMenu)})
	assert.ErrorIs(t, err, ErrNotBody)
	assert.Zero(t, buf.Len())
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry &lt;3 &gt;", escapeText("Tom & Jerry <3 >"))
	assert.Equal(t, `it's "fine"`, escapeText(`it's "fine"`))
	assert.Equal(t, "it&#39;s &quot;fine&quot;&#10;&#9;&#13;", escapeAttr("it's \"fine\"\n\t\r"))
	assert.Empty(t, escapeAttr(""))
}
