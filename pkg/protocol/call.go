package protocol

import (
	"fmt"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// Method identifies an adapter call.
type Method uint8

const (
	MethodCreate Method = 0x01
	MethodUpdate Method = 0x02
	MethodMove   Method = 0x03
	MethodRemove Method = 0x04
)

// String returns the method name.
func (m Method) String() string {
	switch m {
	case MethodCreate:
		return "Create"
	case MethodUpdate:
		return "Update"
	case MethodMove:
		return "Move"
	case MethodRemove:
		return "Remove"
	default:
		return "Unknown"
	}
}

// Ref names a live object on the bridge side. Refs are assigned by the
// bridge, start at 1 and are never reused within a connection. Ref 0 is the
// surface itself.
type Ref uint64

// Call is one adapter call.
//
// Encoding by method:
//
//	Create: [Seq][0x01][Parent ref][Index: svarint][Kind: byte][Attrs]
//	Update: [Seq][0x02][Ref][AttrDiff]
//	Move:   [Seq][0x03][Ref][Index: svarint]
//	Remove: [Seq][0x04][Ref]
type Call struct {
	Seq    uint64
	Method Method
	Target Ref // parent for Create
	Index  int
	Kind   dom.Kind
	Attrs  dom.Attrs
	Diff   dom.AttrDiff
}

// EncodeCall encodes a Call to bytes.
func EncodeCall(c *Call) []byte {
	e := NewEncoder()
	EncodeCallTo(e, c)
	return e.Bytes()
}

// EncodeCallTo encodes a Call using the provided encoder.
func EncodeCallTo(e *Encoder, c *Call) {
	e.WriteUvarint(c.Seq)
	e.WriteByte(byte(c.Method))
	e.WriteUvarint(uint64(c.Target))

	switch c.Method {
	case MethodCreate:
		e.WriteSvarint(int64(c.Index))
		e.WriteByte(byte(c.Kind))
		e.WriteAttrs(c.Attrs)
	case MethodUpdate:
		e.WriteAttrDiff(c.Diff)
	case MethodMove:
		e.WriteSvarint(int64(c.Index))
	}
}

// DecodeCall decodes a Call from bytes.
func DecodeCall(data []byte) (*Call, error) {
	d := NewDecoder(data)
	c, err := DecodeCallFrom(d)
	if err != nil {
		return nil, err
	}
	return c, d.Finish()
}

// DecodeCallFrom decodes a Call from a decoder.
func DecodeCallFrom(d *Decoder) (*Call, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	method, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	target, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}

	c := &Call{Seq: seq, Method: Method(method), Target: Ref(target)}
	switch c.Method {
	case MethodCreate:
		if c.Index, err = d.ReadInt(); err != nil {
			return nil, err
		}
		kind, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		c.Kind = dom.Kind(kind)
		if c.Attrs, err = d.ReadAttrs(); err != nil {
			return nil, err
		}
	case MethodUpdate:
		if c.Diff, err = d.ReadAttrDiff(); err != nil {
			return nil, err
		}
	case MethodMove:
		if c.Index, err = d.ReadInt(); err != nil {
			return nil, err
		}
	case MethodRemove:
	default:
		return nil, fmt.Errorf("protocol: unknown method 0x%02x", method)
	}
	return c, nil
}

// Result answers a successful Call. Ref is set for Create only.
type Result struct {
	Seq uint64
	Ref Ref
}

// EncodeResult encodes a Result to bytes.
func EncodeResult(r *Result) []byte {
	e := NewEncoder()
	e.WriteUvarint(r.Seq)
	e.WriteUvarint(uint64(r.Ref))
	return e.Bytes()
}

// DecodeResult decodes a Result from bytes.
func DecodeResult(data []byte) (*Result, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	ref, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	return &Result{Seq: seq, Ref: Ref(ref)}, d.Finish()
}
