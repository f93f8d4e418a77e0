package debugdump

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	derrors "github.com/arcadiusmc/delphi/internal/errors"
	"github.com/arcadiusmc/delphi/pkg/dom"
	"github.com/arcadiusmc/delphi/pkg/render"
)

// Ext is the file extension of dumps.
const Ext = ".xml"

// ContentType is the media type dumps are stored with.
const ContentType = "application/xml"

// ErrBadName is returned by sinks for names that are not a single path
// element.
var ErrBadName = errors.New("debugdump: invalid dump name")

// Sink stores dumps.
type Sink interface {
	// Write stores data under name and returns where it was put.
	Write(ctx context.Context, name string, data []byte) (location string, err error)
}

// Dump is a snapshot of one surface.
type Dump struct {
	Surface string
	State   string

	// Taken defaults to the current time.
	Taken time.Time

	Tree *dom.Node
}

// Name returns the dump's file name, e.g. shop-20260102T150405.000Z.xml.
func (d Dump) Name() string {
	surface := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, d.Surface)
	return surface + "-" + d.Taken.UTC().Format("20060102T150405.000Z") + Ext
}

// Encode prints the dump.
func (d Dump) Encode() ([]byte, error) {
	header := fmt.Sprintf("surface %s state %s taken %s nodes %d",
		d.Surface, d.State, d.Taken.UTC().Format(time.RFC3339Nano), d.Tree.Count())

	r := render.NewRenderer(render.RendererConfig{Pretty: true, Header: header})
	out, err := r.RenderToString(d.Tree)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// Save encodes d and writes it to sink. Failures are D041 errors.
func Save(ctx context.Context, sink Sink, d Dump) (string, error) {
	if d.Taken.IsZero() {
		d.Taken = time.Now()
	}
	data, err := d.Encode()
	if err != nil {
		return "", derrors.New("D041").WithDetail("surface " + d.Surface).Wrap(err)
	}
	loc, err := sink.Write(ctx, d.Name(), data)
	if err != nil {
		return "", derrors.New("D041").WithDetail("surface " + d.Surface).Wrap(err)
	}
	return loc, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
