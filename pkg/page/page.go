package page

import (
	"bytes"
	"encoding/xml"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
)

// Ext is the page file extension.
const Ext = ".xml"

// Reserved element and attribute names.
const (
	RootElement   = "page"
	HeadElement   = "head"
	HeaderElement = "header"
	BodyElement   = "body"
	OptionElement = "option"
	KeyAttr       = "key"
)

// Page is a parsed page.
type Page struct {
	// Name is the file name without extension, or "" for in-memory input.
	Name string

	// Options holds the head options. The first occurrence of a name wins.
	Options map[string]string

	// Ignored lists unknown top-level sections that were skipped.
	Ignored []string

	Tree *dom.Node
}

// Option returns a head option.
func (p *Page) Option(name string) (string, bool) {
	v, ok := p.Options[name]
	return v, ok
}

// ParseFile parses the page at path.
func ParseFile(path string) (*Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("D012").WithDetail("Cannot open " + path).Wrap(err)
	}
	p, err := parse(bytes.NewReader(data), path)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return p, nil
}

// ParseString parses a page held in memory.
func ParseString(s string) (*Page, error) {
	return parse(strings.NewReader(s), "<string>")
}

// Parse parses a page read from r. file is only used in error locations.
func Parse(r io.Reader, file string) (*Page, error) {
	return parse(r, file)
}

// builder is an element under construction.
type builder struct {
	kind     dom.Kind
	key      string
	attrs    []dom.Attr
	children []*dom.Node
	content  strings.Builder
}

func (b *builder) build() *dom.Node {
	attrs := b.attrs
	if b.kind == dom.KindText && b.content.Len() > 0 {
		attrs = append(attrs, dom.Attr{Name: dom.ContentAttr, Value: dom.String(b.content.String())})
	}
	return dom.New(b.kind, b.key, dom.NewAttrs(attrs...), b.children...)
}

type section uint8

const (
	sectionNone section = iota
	sectionDocument
	sectionHead
	sectionBody
	sectionDone
)

type parser struct {
	dec  *xml.Decoder
	file string
	page *Page

	section  section
	document bool
	stack    []*builder
	root     *dom.Node
	skip     int // depth of an ignored subtree
}

func parse(r io.Reader, file string) (*Page, error) {
	p := &parser{
		dec:  xml.NewDecoder(r),
		file: file,
		page: &Page{Options: map[string]string{}},
	}
	p.dec.Strict = true

	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, p.syntaxError(err)
		}
		if err := p.token(tok); err != nil {
			return nil, err
		}
	}

	if p.root == nil {
		return nil, p.structureError("page has no body or root element")
	}
	p.page.Tree = p.root
	return p.page, nil
}

func (p *parser) token(tok xml.Token) error {
	if p.skip > 0 {
		switch tok.(type) {
		case xml.StartElement:
			p.skip++
		case xml.EndElement:
			p.skip--
		}
		return nil
	}

	switch t := tok.(type) {
	case xml.StartElement:
		return p.start(t)
	case xml.EndElement:
		return p.end()
	case xml.CharData:
		return p.text(t)
	}
	return nil
}

func (p *parser) start(t xml.StartElement) error {
	name := t.Name.Local

	switch p.section {
	case sectionDone:
		return p.structureError("content after the root element")

	case sectionNone:
		if name == RootElement {
			p.section = sectionDocument
			p.document = true
			return nil
		}
		// bare element root
		p.section = sectionBody
		return p.push(t)

	case sectionDocument:
		switch name {
		case HeadElement, HeaderElement:
			p.section = sectionHead
			return nil
		case BodyElement:
			if p.root != nil {
				return p.structureError("more than one body")
			}
			p.section = sectionBody
			return p.push(t)
		default:
			p.page.Ignored = append(p.page.Ignored, name)
			p.skip = 1
			return nil
		}

	case sectionHead:
		if name != OptionElement {
			return p.structureError(fmt.Sprintf("<%s> in head; only <option> is allowed", name))
		}
		var key, value string
		for _, a := range t.Attr {
			switch a.Name.Local {
			case "name":
				key = a.Value
			case "value":
				value = a.Value
			}
		}
		if key == "" {
			return p.structureError("head option without a name")
		}
		if _, ok := p.page.Options[key]; !ok {
			p.page.Options[key] = value
		}
		p.skip = 1
		return nil

	default:
		return p.push(t)
	}
}

func (p *parser) push(t xml.StartElement) error {
	kind, ok := dom.ParseKind(t.Name.Local)
	if !ok {
		line, col := p.dec.InputPos()
		return errors.New("D011").
			WithMessage("Unknown element <%s>", t.Name.Local).
			WithLocation(p.file, line, col).
			WithSuggestion("Known elements: " + kindList())
	}
	if n := len(p.stack); n > 0 && p.stack[n-1].kind.IsVoid() {
		return p.voidError(p.stack[n-1].kind)
	}

	b := &builder{kind: kind}
	for _, a := range t.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if a.Name.Local == KeyAttr && a.Name.Space == "" {
			b.key = a.Value
			continue
		}
		b.attrs = append(b.attrs, dom.Attr{Name: a.Name.Local, Value: dom.String(a.Value)})
	}
	p.stack = append(p.stack, b)
	return nil
}

func (p *parser) end() error {
	switch p.section {
	case sectionHead:
		p.section = sectionDocument
		return nil
	case sectionDocument:
		p.section = sectionDone
		return nil
	case sectionNone, sectionDone:
		return nil
	}

	n := len(p.stack)
	b := p.stack[n-1]
	p.stack = p.stack[:n-1]
	node := b.build()

	if n > 1 {
		parent := p.stack[n-2]
		parent.children = append(parent.children, node)
		return nil
	}

	p.root = node
	if p.document {
		p.section = sectionDocument
	} else {
		p.section = sectionDone
	}
	return nil
}

func (p *parser) text(t xml.CharData) error {
	if p.section != sectionBody || len(p.stack) == 0 {
		return nil
	}
	s := strings.TrimSpace(string(t))
	if s == "" {
		return nil
	}

	b := p.stack[len(p.stack)-1]
	switch {
	case b.kind == dom.KindText:
		if b.content.Len() > 0 {
			b.content.WriteByte(' ')
		}
		b.content.WriteString(s)
	case b.kind.IsVoid():
		return p.voidError(b.kind)
	default:
		b.children = append(b.children, dom.Text(s))
	}
	return nil
}

func (p *parser) syntaxError(err error) error {
	line := 0
	var se *xml.SyntaxError
	if stderrors.As(err, &se) {
		line = se.Line
	}
	de := errors.New("D010").Wrap(err)
	if line > 0 {
		de.WithLocation(p.file, line, 0)
	}
	return de
}

func (p *parser) structureError(msg string) error {
	line, col := p.dec.InputPos()
	return errors.New("D013").
		WithDetail(msg).
		WithLocation(p.file, line, col)
}

func (p *parser) voidError(kind dom.Kind) error {
	line, col := p.dec.InputPos()
	return errors.New("D014").
		WithMessage("<%s> cannot have children", kind).
		WithLocation(p.file, line, col)
}

func kindList() string {
	var names []string
	for k := dom.KindBody; k <= dom.KindBreak; k++ {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}
