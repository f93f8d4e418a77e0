package dom

import (
	"math"
	"strconv"
)

// ValueType identifies the scalar stored in a Value.
type ValueType uint8

const (
	TypeNull ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
)

// String returns the name of the value type.
func (t ValueType) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is an immutable attribute scalar. The zero Value is null.
type Value struct {
	typ ValueType
	str string
	num int64
	flt float64
}

// String creates a string value.
func String(s string) Value { return Value{typ: TypeString, str: s} }

// Int creates an integer value.
func Int(n int64) Value { return Value{typ: TypeInt, num: n} }

// Float creates a floating point value.
func Float(f float64) Value { return Value{typ: TypeFloat, flt: f} }

// Bool creates a boolean value.
func Bool(b bool) Value {
	v := Value{typ: TypeBool}
	if b {
		v.num = 1
	}
	return v
}

// Type returns the type of the value.
func (v Value) Type() ValueType { return v.typ }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// Str returns the string content, or "" for non-string values.
func (v Value) Str() string { return v.str }

// AsInt returns the integer content, or 0 for non-integer values.
func (v Value) AsInt() int64 {
	if v.typ == TypeInt {
		return v.num
	}
	return 0
}

// AsFloat returns the float content, converting integers.
func (v Value) AsFloat() float64 {
	switch v.typ {
	case TypeFloat:
		return v.flt
	case TypeInt:
		return float64(v.num)
	}
	return 0
}

// AsBool returns the boolean content, or false for non-boolean values.
func (v Value) AsBool() bool { return v.typ == TypeBool && v.num == 1 }

// Equal reports whether two values have the same type and content.
// NaN floats compare equal to each other so that a tree always equals itself.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeString:
		return v.str == o.str
	case TypeInt, TypeBool:
		return v.num == o.num
	case TypeFloat:
		if math.IsNaN(v.flt) && math.IsNaN(o.flt) {
			return true
		}
		return v.flt == o.flt
	}
	return true
}

// String renders the value the way it appears in an XML attribute.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInt:
		return strconv.FormatInt(v.num, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case TypeBool:
		if v.num == 1 {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// ValueOf converts a Go scalar into a Value. Unsupported types become null.
func ValueOf(x any) Value {
	switch val := x.(type) {
	case Value:
		return val
	case string:
		return String(val)
	case bool:
		return Bool(val)
	case int:
		return Int(int64(val))
	case int32:
		return Int(int64(val))
	case int64:
		return Int(val)
	case uint8:
		return Int(int64(val))
	case float32:
		return Float(float64(val))
	case float64:
		return Float(val)
	default:
		return Value{}
	}
}
