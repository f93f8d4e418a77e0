package journal

import (
	"fmt"
	"math"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/arcadiusmc/delphi/pkg/dom"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("journal: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// attribute values decode into any; keep integers signed
		IntDec: cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic("journal: CBOR decoder initialization failed: " + err.Error())
	}
}

type wireRecord struct {
	Surface string    `cbor:"1,keyasint"`
	Seq     uint64    `cbor:"2,keyasint"`
	Phase   string    `cbor:"3,keyasint"`
	Time    time.Time `cbor:"4,keyasint"`
	Ops     []wireOp  `cbor:"5,keyasint,omitempty"`
	Applied int       `cbor:"6,keyasint"`
	Err     string    `cbor:"7,keyasint,omitempty"`
}

type wireOp struct {
	_      struct{} `cbor:",toarray"`
	Type   uint8
	Parent []int
	Index  int
	To     int
	Node   *wireNode
	Attrs  []wireChange
}

type wireNode struct {
	_        struct{} `cbor:",toarray"`
	Kind     uint8
	Key      string
	Attrs    []wireAttr
	Children []*wireNode
}

type wireAttr struct {
	_     struct{} `cbor:",toarray"`
	Name  string
	Value any
}

type wireChange struct {
	_      struct{} `cbor:",toarray"`
	Name   string
	Action uint8
	Old    any
	New    any
}

func encodeScript(script dom.Script) []wireOp {
	if len(script) == 0 {
		return nil
	}
	ops := make([]wireOp, len(script))
	for i, op := range script {
		ops[i] = wireOp{
			Type:   uint8(op.Type),
			Parent: []int(op.Parent),
			Index:  op.Index,
			To:     op.To,
			Node:   encodeNode(op.Node),
		}
		for _, c := range op.Attrs {
			ops[i].Attrs = append(ops[i].Attrs, wireChange{
				Name:   c.Name,
				Action: uint8(c.Action),
				Old:    encodeValue(c.Old),
				New:    encodeValue(c.New),
			})
		}
	}
	return ops
}

func encodeNode(n *dom.Node) *wireNode {
	if n == nil {
		return nil
	}
	w := &wireNode{Kind: uint8(n.Kind()), Key: n.Key()}
	for name, v := range n.Attrs().All() {
		w.Attrs = append(w.Attrs, wireAttr{Name: name, Value: encodeValue(v)})
	}
	for _, c := range n.Children() {
		w.Children = append(w.Children, encodeNode(c))
	}
	return w
}

func encodeValue(v dom.Value) any {
	switch v.Type() {
	case dom.TypeString:
		return v.Str()
	case dom.TypeInt:
		return v.AsInt()
	case dom.TypeFloat:
		return v.AsFloat()
	case dom.TypeBool:
		return v.AsBool()
	default:
		return nil
	}
}

func decodeScript(ops []wireOp) (dom.Script, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	script := make(dom.Script, len(ops))
	for i, w := range ops {
		t := dom.OpType(w.Type)
		if t < dom.OpInsert || t > dom.OpReplace {
			return nil, fmt.Errorf("op %d: unknown type %d", i, w.Type)
		}
		node, err := decodeNode(w.Node)
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		op := dom.Op{
			Type:   t,
			Parent: dom.Path(w.Parent),
			Index:  w.Index,
			To:     w.To,
			Node:   node,
		}
		for _, c := range w.Attrs {
			a := dom.AttrAction(c.Action)
			if a < dom.AttrAdded || a > dom.AttrRemoved {
				return nil, fmt.Errorf("op %d: attribute %q: unknown action %d", i, c.Name, c.Action)
			}
			old, err := decodeValue(c.Old)
			if err != nil {
				return nil, fmt.Errorf("op %d: attribute %q: %w", i, c.Name, err)
			}
			nv, err := decodeValue(c.New)
			if err != nil {
				return nil, fmt.Errorf("op %d: attribute %q: %w", i, c.Name, err)
			}
			op.Attrs = append(op.Attrs, dom.AttrChange{Name: c.Name, Action: a, Old: old, New: nv})
		}
		script[i] = op
	}
	return script, nil
}

func decodeNode(w *wireNode) (*dom.Node, error) {
	if w == nil {
		return nil, nil
	}
	kind := dom.Kind(w.Kind)
	if kind.String() == "unknown" {
		return nil, fmt.Errorf("unknown kind %d", w.Kind)
	}
	attrs := make([]dom.Attr, 0, len(w.Attrs))
	for _, a := range w.Attrs {
		v, err := decodeValue(a.Value)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		attrs = append(attrs, dom.Attr{Name: a.Name, Value: v})
	}
	children := make([]*dom.Node, 0, len(w.Children))
	for _, c := range w.Children {
		child, err := decodeNode(c)
		if err != nil {
			return nil, err
		}
		if child == nil {
			return nil, fmt.Errorf("%s: nil child", kind)
		}
		children = append(children, child)
	}
	return dom.New(kind, w.Key, dom.NewAttrs(attrs...), children...), nil
}

func decodeValue(v any) (dom.Value, error) {
	switch v := v.(type) {
	case nil:
		return dom.Value{}, nil
	case string:
		return dom.String(v), nil
	case int64:
		return dom.Int(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return dom.Value{}, fmt.Errorf("integer %d out of range", v)
		}
		return dom.Int(int64(v)), nil
	case float64:
		return dom.Float(v), nil
	case float32:
		return dom.Float(float64(v)), nil
	case bool:
		return dom.Bool(v), nil
	default:
		return dom.Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}
