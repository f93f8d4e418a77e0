package protocol

import (
	"fmt"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

// WriteValue appends an attribute value: type byte then content.
func (e *Encoder) WriteValue(v dom.Value) {
	e.WriteByte(byte(v.Type()))
	switch v.Type() {
	case dom.TypeString:
		e.WriteString(v.Str())
	case dom.TypeInt:
		e.WriteSvarint(v.AsInt())
	case dom.TypeFloat:
		e.WriteFloat64(v.AsFloat())
	case dom.TypeBool:
		e.WriteBool(v.AsBool())
	}
}

// ReadValue reads an attribute value.
func (d *Decoder) ReadValue() (dom.Value, error) {
	t, err := d.ReadByte()
	if err != nil {
		return dom.Value{}, err
	}
	switch dom.ValueType(t) {
	case dom.TypeNull:
		return dom.Value{}, nil
	case dom.TypeString:
		s, err := d.ReadString()
		return dom.String(s), err
	case dom.TypeInt:
		n, err := d.ReadSvarint()
		return dom.Int(n), err
	case dom.TypeFloat:
		f, err := d.ReadFloat64()
		return dom.Float(f), err
	case dom.TypeBool:
		b, err := d.ReadBool()
		return dom.Bool(b), err
	default:
		return dom.Value{}, fmt.Errorf("protocol: unknown value type 0x%02x", t)
	}
}

// WriteAttrs appends an attribute mapping in order.
func (e *Encoder) WriteAttrs(a dom.Attrs) {
	e.WriteUvarint(uint64(a.Len()))
	for name, v := range a.All() {
		e.WriteString(name)
		e.WriteValue(v)
	}
}

// ReadAttrs reads an attribute mapping.
func (d *Decoder) ReadAttrs() (dom.Attrs, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return dom.Attrs{}, err
	}
	list := make([]dom.Attr, count)
	for i := range list {
		if list[i].Name, err = d.ReadString(); err != nil {
			return dom.Attrs{}, err
		}
		if list[i].Value, err = d.ReadValue(); err != nil {
			return dom.Attrs{}, err
		}
	}
	return dom.NewAttrs(list...), nil
}

// WriteAttrDiff appends an attribute diff.
func (e *Encoder) WriteAttrDiff(diff dom.AttrDiff) {
	e.WriteUvarint(uint64(len(diff)))
	for _, c := range diff {
		e.WriteString(c.Name)
		e.WriteByte(byte(c.Action))
		e.WriteValue(c.Old)
		e.WriteValue(c.New)
	}
}

// ReadAttrDiff reads an attribute diff.
func (d *Decoder) ReadAttrDiff() (dom.AttrDiff, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	diff := make(dom.AttrDiff, count)
	for i := range diff {
		c := &diff[i]
		if c.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		action, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		c.Action = dom.AttrAction(action)
		if c.Action < dom.AttrAdded || c.Action > dom.AttrRemoved {
			return nil, fmt.Errorf("protocol: unknown attribute action %d", action)
		}
		if c.Old, err = d.ReadValue(); err != nil {
			return nil, err
		}
		if c.New, err = d.ReadValue(); err != nil {
			return nil, err
		}
	}
	return diff, nil
}
