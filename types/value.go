package types

import (
	"cmp"
	"fmt"
	"math"
	"strconv"

	"github.com/JyotinderSingh/plandb/dberr"
)

// Value is an immutable typed scalar.
type Value struct {
	typ FieldType
	i   int64
	f   float64
	s   string
}

func NewIntValue(v int) Value       { return Value{typ: Integer, i: int64(v)} }
func NewFloatValue(v float64) Value { return Value{typ: Float, f: v} }
func NewStringValue(v string) Value { return Value{typ: Varchar, s: v} }
func NewTextValue(v string) Value   { return Value{typ: Text, s: v} }
func NewDateValue(days int32) Value { return Value{typ: Date, i: int64(days)} }
func NewBoolValue(v bool) Value {
	if v {
		return Value{typ: Boolean, i: 1}
	}
	return Value{typ: Boolean}
}

// Type returns the type of the value, Undefined for the zero Value.
func (v Value) Type() FieldType {
	return v.typ
}

// IsNull reports whether v is the zero Value.
func (v Value) IsNull() bool {
	return v.typ == Undefined
}

func (v Value) AsInt() int {
	switch v.typ {
	case Float:
		return int(v.f)
	case Varchar, Text:
		n, _ := strconv.Atoi(v.s)
		return n
	default:
		return int(v.i)
	}
}

func (v Value) AsFloat() float64 {
	switch v.typ {
	case Float:
		return v.f
	case Varchar, Text:
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	default:
		return float64(v.i)
	}
}

func (v Value) AsString() string {
	if v.typ == Varchar || v.typ == Text {
		return v.s
	}
	return v.String()
}

func (v Value) AsBool() bool {
	switch v.typ {
	case Float:
		return v.f != 0
	case Varchar, Text:
		return v.s != ""
	default:
		return v.i != 0
	}
}

// AsDate returns days since 1970-01-01.
func (v Value) AsDate() int32 {
	return int32(v.i)
}

// String renders the value the way query results print it.
func (v Value) String() string {
	switch v.typ {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return formatFloat(v.f)
	case Varchar, Text:
		return v.s
	case Boolean:
		return strconv.FormatBool(v.i != 0)
	case Date:
		return FormatDate(int32(v.i))
	default:
		return "NULL"
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Numeric returns the position of v on a number line.
func (v Value) Numeric() (float64, bool) {
	switch v.typ {
	case Integer, Date, Boolean:
		return float64(v.i), true
	case Float:
		return v.f, true
	default:
		return 0, false
	}
}

// CompareTo orders v against other. Integers and floats compare
// numerically, CHAR and TEXT compare as strings. Other mixes are an error.
func (v Value) CompareTo(other Value) (int, error) {
	switch {
	case v.typ == other.typ && (v.typ == Integer || v.typ == Date || v.typ == Boolean):
		return cmp.Compare(v.i, other.i), nil
	case v.typ.IsString() && other.typ.IsString():
		return cmp.Compare(v.s, other.s), nil
	case (v.typ == Integer || v.typ == Float) && (other.typ == Integer || other.typ == Float):
		return cmp.Compare(v.AsFloat(), other.AsFloat()), nil
	default:
		return 0, dberr.Newf(dberr.ErrSchemaFieldTypeMismatch, "cannot compare %s with %s", v.typ, other.typ)
	}
}

// Equal reports whether v and other compare equal.
func (v Value) Equal(other Value) bool {
	c, err := v.CompareTo(other)
	return err == nil && c == 0
}

// CastTo converts v to t. Strings become dates by parsing YYYY-MM-DD.
func (v Value) CastTo(t FieldType) (Value, error) {
	if v.typ == t {
		return v, nil
	}
	switch t {
	case Integer:
		if v.typ == Float || v.typ == Boolean {
			return NewIntValue(v.AsInt()), nil
		}
	case Float:
		if v.typ == Integer {
			return NewFloatValue(v.AsFloat()), nil
		}
	case Varchar:
		if v.typ == Text {
			return NewStringValue(v.s), nil
		}
	case Text:
		if v.typ == Varchar {
			return NewTextValue(v.s), nil
		}
	case Date:
		if v.typ == Varchar {
			days, err := ParseDate(v.s)
			if err != nil {
				return Value{}, err
			}
			return NewDateValue(days), nil
		}
	case Boolean:
		if v.typ == Integer {
			return NewBoolValue(v.i != 0), nil
		}
	}
	return Value{}, dberr.Newf(dberr.ErrSchemaFieldTypeMismatch, "cannot convert %s value %s to %s", v.typ, v, t)
}

// GoString is used by %#v and test failure output.
func (v Value) GoString() string {
	return fmt.Sprintf("%s(%s)", v.typ, v)
}
