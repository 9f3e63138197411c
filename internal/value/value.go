// Package value holds the scalar value model shared by format readers,
// connectors and the deterministic function layer.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type identifies the kind of a scalar value. The numeric identifiers are
// part of the canonical hash encoding and must never be reordered.
type Type uint32

const (
	TypeNull Type = iota + 1
	TypeBool
	TypeInt16
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBytes
	TypeTimestamp
	TypeList
	TypeUint64
)

func (t Type) String() string {
	switch t {
	case TypeNull:
		return "null"
	case TypeBool:
		return "bool"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBytes:
		return "bytes"
	case TypeTimestamp:
		return "timestamp"
	case TypeList:
		return "list"
	case TypeUint64:
		return "uint64"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

// IsNumeric reports whether values of this type participate in numeric
// comparison and widening.
func (t Type) IsNumeric() bool {
	switch t {
	case TypeInt16, TypeInt32, TypeInt64, TypeUint64, TypeFloat32, TypeFloat64:
		return true
	default:
		return false
	}
}

// Value is an immutable scalar. The zero Value is null.
type Value struct {
	typ  Type
	i    int64
	u    uint64
	f    float64
	s    string
	b    []byte
	t    time.Time
	list []Value
}

func Null() Value { return Value{typ: TypeNull} }

func Bool(v bool) Value {
	var i int64
	if v {
		i = 1
	}
	return Value{typ: TypeBool, i: i}
}

func Int16(v int16) Value         { return Value{typ: TypeInt16, i: int64(v)} }
func Int32(v int32) Value         { return Value{typ: TypeInt32, i: int64(v)} }
func Int64(v int64) Value         { return Value{typ: TypeInt64, i: v} }
func Uint64(v uint64) Value       { return Value{typ: TypeUint64, u: v} }
func Float32(v float32) Value     { return Value{typ: TypeFloat32, f: float64(v)} }
func Float64(v float64) Value     { return Value{typ: TypeFloat64, f: v} }
func String(v string) Value       { return Value{typ: TypeString, s: v} }
func Bytes(v []byte) Value        { return Value{typ: TypeBytes, b: v} }
func Timestamp(v time.Time) Value { return Value{typ: TypeTimestamp, t: v.UTC()} }
func List(items []Value) Value    { return Value{typ: TypeList, list: items} }

func (v Value) Type() Type   { return v.typ.orNull() }
func (v Value) IsNull() bool { return v.typ.orNull() == TypeNull }

func (t Type) orNull() Type {
	if t == 0 {
		return TypeNull
	}
	return t
}

func (v Value) BoolValue() bool       { return v.i != 0 }
func (v Value) IntValue() int64       { return v.i }
func (v Value) UintValue() uint64     { return v.u }
func (v Value) FloatValue() float64   { return v.f }
func (v Value) StringValue() string   { return v.s }
func (v Value) BytesValue() []byte    { return v.b }
func (v Value) TimeValue() time.Time  { return v.t }
func (v Value) ListValue() []Value    { return v.list }

// AsInt returns the value as an int64 when it is integer-typed or a numeric
// with no fractional part. 10.0 is accepted as 10; 10.5 is not.
func (v Value) AsInt() (int64, bool) {
	switch v.typ.orNull() {
	case TypeInt16, TypeInt32, TypeInt64:
		return v.i, true
	case TypeUint64:
		if v.u > math.MaxInt64 {
			return 0, false
		}
		return int64(v.u), true
	case TypeFloat32, TypeFloat64:
		if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return 0, false
		}
		return int64(v.f), true
	default:
		return 0, false
	}
}

// AsFloat returns the value as a float64 for any numeric type.
func (v Value) AsFloat() (float64, bool) {
	switch v.typ.orNull() {
	case TypeInt16, TypeInt32, TypeInt64:
		return float64(v.i), true
	case TypeUint64:
		return float64(v.u), true
	case TypeFloat32, TypeFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// AsBool interprets the value as a boolean, accepting the textual forms
// "true" and "false" in any case.
func (v Value) AsBool() (bool, bool) {
	switch v.typ.orNull() {
	case TypeBool:
		return v.i != 0, true
	case TypeString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Equal reports deep equality of two values, including the type.
func (v Value) Equal(other Value) bool {
	if v.Type() != other.Type() {
		return false
	}
	switch v.Type() {
	case TypeNull:
		return true
	case TypeBool, TypeInt16, TypeInt32, TypeInt64:
		return v.i == other.i
	case TypeUint64:
		return v.u == other.u
	case TypeFloat32, TypeFloat64:
		return v.f == other.f
	case TypeString:
		return v.s == other.s
	case TypeBytes:
		return string(v.b) == string(other.b)
	case TypeTimestamp:
		return v.t.Equal(other.t)
	case TypeList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values of comparable types. It returns -1, 0 or 1 and
// false when the types cannot be compared. Numerics compare as float64.
func (v Value) Compare(other Value) (int, bool) {
	if v.IsNull() || other.IsNull() {
		return 0, false
	}
	if v.Type().IsNumeric() && other.Type().IsNumeric() {
		a, _ := v.AsFloat()
		b, _ := other.AsFloat()
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		default:
			return 0, true
		}
	}
	if v.Type() != other.Type() {
		return 0, false
	}
	switch v.Type() {
	case TypeBool:
		return compareInt64(v.i, other.i), true
	case TypeString:
		return strings.Compare(v.s, other.s), true
	case TypeBytes:
		return strings.Compare(string(v.b), string(other.b)), true
	case TypeTimestamp:
		switch {
		case v.t.Before(other.t):
			return -1, true
		case v.t.After(other.t):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the value for logs and error messages, never for hashing.
func (v Value) String() string {
	switch v.Type() {
	case TypeNull:
		return "NULL"
	case TypeBool:
		return strconv.FormatBool(v.i != 0)
	case TypeInt16, TypeInt32, TypeInt64:
		return strconv.FormatInt(v.i, 10)
	case TypeUint64:
		return strconv.FormatUint(v.u, 10)
	case TypeFloat32, TypeFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeString:
		return v.s
	case TypeBytes:
		return fmt.Sprintf("%d bytes", len(v.b))
	case TypeTimestamp:
		return v.t.Format(time.RFC3339Nano)
	case TypeList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// Unify picks the narrowest type that can represent both inputs. It backs
// schema inference: nulls widen to anything, integers widen to floats, and
// everything else falls back to string.
func Unify(a, b Type) Type {
	a, b = a.orNull(), b.orNull()
	if a == b {
		return a
	}
	if a == TypeNull {
		return b
	}
	if b == TypeNull {
		return a
	}
	if a.IsNumeric() && b.IsNumeric() {
		if a == TypeFloat64 || b == TypeFloat64 || a == TypeFloat32 || b == TypeFloat32 {
			return TypeFloat64
		}
		if widerInt(a) >= widerInt(b) {
			return a
		}
		return b
	}
	return TypeString
}

func widerInt(t Type) int {
	switch t {
	case TypeInt16:
		return 1
	case TypeInt32:
		return 2
	case TypeInt64, TypeUint64:
		return 3
	default:
		return 0
	}
}

// Convert coerces a value to the target type. The bool result is false when
// no coercion exists.
func Convert(v Value, target Type) (Value, bool) {
	if v.Type() == target || v.IsNull() {
		if v.IsNull() {
			return Null(), true
		}
		return v, true
	}
	switch target {
	case TypeInt64:
		if i, ok := v.AsInt(); ok {
			return Int64(i), true
		}
	case TypeInt32:
		if i, ok := v.AsInt(); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			return Int32(int32(i)), true
		}
	case TypeInt16:
		if i, ok := v.AsInt(); ok && i >= math.MinInt16 && i <= math.MaxInt16 {
			return Int16(int16(i)), true
		}
	case TypeFloat64:
		if f, ok := v.AsFloat(); ok {
			return Float64(f), true
		}
	case TypeFloat32:
		if f, ok := v.AsFloat(); ok {
			return Float32(float32(f)), true
		}
	case TypeBool:
		if b, ok := v.AsBool(); ok {
			return Bool(b), true
		}
	case TypeString:
		return String(v.String()), true
	case TypeBytes:
		if v.Type() == TypeString {
			return Bytes([]byte(v.s)), true
		}
	}
	return Null(), false
}
