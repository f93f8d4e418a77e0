package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

var (
	// ErrReservedAttr is returned for an attribute that would read back as
	// the node key.
	ErrReservedAttr = errors.New(`render: attribute name "key" is reserved`)

	// ErrNotBody is returned by RenderPage when the tree root is not a body.
	ErrNotBody = errors.New("render: page tree root must be a body element")
)

// RendererConfig configures the renderer.
type RendererConfig struct {
	// Pretty puts each element on its own line, indented by depth.
	Pretty bool

	// Indent is the string used for each indentation level in pretty mode.
	// Defaults to two spaces if not specified.
	Indent string

	// Header, if set, is written as a leading comment.
	Header string
}

// PageData is a complete page document.
type PageData struct {
	// Options are written as head options, ordered by name.
	Options map[string]string

	// Body is the page tree. Its root must be a body element.
	Body *dom.Node
}

// Renderer prints node trees as markup. A Renderer holds no per-call state
// and may be used concurrently.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderToString renders a tree to a string.
func (r *Renderer) RenderToString(node *dom.Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, node); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter writes a tree to w. A nil tree writes only the header.
func (r *Renderer) RenderToWriter(w io.Writer, node *dom.Node) error {
	p := &printer{w: w, config: r.config}
	p.header()
	if node != nil {
		p.node(node, 0, false)
	}
	p.newline()
	return p.err
}

// RenderPage writes a page document holding the options and the tree.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	if page.Body != nil && page.Body.Kind() != dom.KindBody {
		return ErrNotBody
	}

	p := &printer{w: w, config: r.config}
	p.header()
	p.write("<page>")

	names := make([]string, 0, len(page.Options))
	for name := range page.Options {
		names = append(names, name)
	}
	slices.Sort(names)

	if len(names) > 0 {
		p.indent(1)
		p.write("<head>")
		for _, name := range names {
			p.indent(2)
			p.write(fmt.Sprintf(`<option name="%s" value="%s"/>`, escapeAttr(name), escapeAttr(page.Options[name])))
		}
		p.indent(1)
		p.write("</head>")
	}
	if page.Body != nil {
		p.indent(1)
		p.node(page.Body, 1, false)
	}
	p.indent(0)
	p.write("</page>")
	p.newline()
	return p.err
}

type printer struct {
	w      io.Writer
	config RendererConfig
	err    error
}

func (p *printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) indent(depth int) {
	if p.config.Pretty {
		p.write("\n" + strings.Repeat(p.config.Indent, depth))
	}
}

func (p *printer) newline() {
	if p.config.Pretty {
		p.write("\n")
	}
}

func (p *printer) header() {
	if p.config.Header == "" {
		return
	}
	p.write("<!-- " + strings.ReplaceAll(p.config.Header, "--", "- -") + " -->")
	if p.config.Pretty {
		p.write("\n")
	}
}

// bare reports whether a text node can be written as character data. afterText
// is set when the previous sibling was written that way, since the two would
// merge into one text node when read back.
func bare(n *dom.Node, afterText bool) bool {
	if afterText || n.Kind() != dom.KindText || n.Key() != "" || n.Attrs().Len() != 1 {
		return false
	}
	v, ok := n.Attr(dom.ContentAttr)
	if !ok || v.Type() != dom.TypeString {
		return false
	}
	s := v.Str()
	return s != "" && s == strings.TrimSpace(s) && !strings.ContainsRune(s, '\r')
}

// node writes n and reports whether it was written as character data.
func (p *printer) node(n *dom.Node, depth int, inline bool) bool {
	if inline && bare(n, false) {
		p.write(escapeText(n.Content()))
		return true
	}

	p.write("<" + n.Kind().String())
	if n.Key() != "" {
		p.write(` key="` + escapeAttr(n.Key()) + `"`)
	}
	for _, a := range n.Attrs().Slice() {
		if a.Value.IsNull() {
			continue
		}
		if a.Name == "key" {
			p.fail(ErrReservedAttr)
			return false
		}
		p.write(" " + a.Name + `="` + escapeAttr(a.Value.String()) + `"`)
	}

	children := n.Children()
	if len(children) == 0 {
		p.write("/>")
		return false
	}
	p.write(">")

	// A lone text child stays on the element's line.
	if len(children) == 1 && bare(children[0], false) {
		p.node(children[0], depth+1, true)
	} else {
		afterText := false
		for _, c := range children {
			p.indent(depth + 1)
			afterText = p.node(c, depth+1, bare(c, afterText))
		}
		p.indent(depth)
	}
	p.write("</" + n.Kind().String() + ">")
	return false
}

func (p *printer) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
