package dom

import (
	"iter"
	"strings"
)

// ContentAttr is the attribute holding the content of text nodes.
const ContentAttr = "content"

// Attr is a single attribute.
type Attr struct {
	Name  string
	Value Value
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Name == ""
}

// Attrs is an ordered, read-only attribute mapping.
// Setting a name twice keeps the first position and the last value.
type Attrs struct {
	list []Attr
}

// NewAttrs builds an Attrs from the given attributes in order.
// Empty attributes are skipped.
func NewAttrs(attrs ...Attr) Attrs {
	var a Attrs
	for _, at := range attrs {
		a.list = a.set(at)
	}
	return a
}

// set returns a new slice with the attribute added or overwritten. The
// receiver's backing array is never written, so Attrs values stay immutable.
func (a Attrs) set(at Attr) []Attr {
	if at.Name == "" {
		return a.list
	}
	for i, existing := range a.list {
		if existing.Name == at.Name {
			out := make([]Attr, len(a.list))
			copy(out, a.list)
			out[i].Value = at.Value
			return out
		}
	}
	out := make([]Attr, len(a.list), len(a.list)+1)
	copy(out, a.list)
	return append(out, at)
}

// With returns a copy of a with the attribute set.
func (a Attrs) With(name string, v Value) Attrs {
	return Attrs{list: a.set(Attr{Name: name, Value: v})}
}

// Len returns the number of attributes.
func (a Attrs) Len() int { return len(a.list) }

// Get returns the value of the named attribute.
func (a Attrs) Get(name string) (Value, bool) {
	for _, at := range a.list {
		if at.Name == name {
			return at.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether the attribute is present.
func (a Attrs) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// At returns the i-th attribute in insertion order.
func (a Attrs) At(i int) Attr { return a.list[i] }

// All iterates the attributes in insertion order.
func (a Attrs) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for _, at := range a.list {
			if !yield(at.Name, at.Value) {
				return
			}
		}
	}
}

// Names returns the attribute names in insertion order.
func (a Attrs) Names() []string {
	names := make([]string, len(a.list))
	for i, at := range a.list {
		names[i] = at.Name
	}
	return names
}

// Slice returns a copy of the attributes in insertion order.
func (a Attrs) Slice() []Attr {
	out := make([]Attr, len(a.list))
	copy(out, a.list)
	return out
}

// Equal reports whether both mappings hold the same names with equal
// values. Order is not compared, matching DiffAttrs.
func (a Attrs) Equal(o Attrs) bool {
	if len(a.list) != len(o.list) {
		return false
	}
	for _, at := range a.list {
		v, ok := o.Get(at.Name)
		if !ok || !v.Equal(at.Value) {
			return false
		}
	}
	return true
}

// AttrAction is the kind of change applied to one attribute.
type AttrAction uint8

const (
	AttrAdded AttrAction = iota + 1
	AttrChanged
	AttrRemoved
)

// String returns the name of the action.
func (a AttrAction) String() string {
	switch a {
	case AttrAdded:
		return "add"
	case AttrChanged:
		return "set"
	case AttrRemoved:
		return "remove"
	default:
		return "unknown"
	}
}

// AttrChange records a single attribute mutation with the previous and
// new values. Old is null for additions, New is null for removals.
type AttrChange struct {
	Name   string
	Action AttrAction
	Old    Value
	New    Value
}

// AttrDiff is an ordered list of attribute changes.
type AttrDiff []AttrChange

// IsEmpty reports whether the diff contains no changes.
func (d AttrDiff) IsEmpty() bool { return len(d) == 0 }

// Apply returns attrs with the changes applied. Removed names are dropped,
// added names are appended, changed names keep their position.
func (d AttrDiff) Apply(attrs Attrs) Attrs {
	if len(d) == 0 {
		return attrs
	}
	removed := make(map[string]bool)
	for _, c := range d {
		if c.Action == AttrRemoved {
			removed[c.Name] = true
		}
	}
	out := make([]Attr, 0, attrs.Len()+len(d))
	for _, at := range attrs.list {
		if !removed[at.Name] {
			out = append(out, at)
		}
	}
	result := Attrs{list: out}
	for _, c := range d {
		if c.Action != AttrRemoved {
			result.list = result.set(Attr{Name: c.Name, Value: c.New})
		}
	}
	return result
}

// String formats the diff as {name: value, -name}.
func (d AttrDiff) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range d {
		if i > 0 {
			b.WriteString(", ")
		}
		if c.Action == AttrRemoved {
			b.WriteByte('-')
			b.WriteString(c.Name)
			continue
		}
		b.WriteString(c.Name)
		b.WriteString(": ")
		b.WriteString(quoteValue(c.New))
	}
	b.WriteByte('}')
	return b.String()
}

func quoteValue(v Value) string {
	if v.Type() == TypeString {
		return `"` + v.Str() + `"`
	}
	return v.String()
}

// DiffAttrs compares two attribute mappings. Added and changed entries come
// first, in the order of next; removed entries follow in the order of prev.
func DiffAttrs(prev, next Attrs) AttrDiff {
	var d AttrDiff
	for _, at := range next.list {
		old, ok := prev.Get(at.Name)
		switch {
		case !ok:
			d = append(d, AttrChange{Name: at.Name, Action: AttrAdded, New: at.Value})
		case !old.Equal(at.Value):
			d = append(d, AttrChange{Name: at.Name, Action: AttrChanged, Old: old, New: at.Value})
		}
	}
	for _, at := range prev.list {
		if !next.Has(at.Name) {
			d = append(d, AttrChange{Name: at.Name, Action: AttrRemoved, Old: at.Value})
		}
	}
	return d
}
