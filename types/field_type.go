package types

import "strings"

// FieldType is the declared type of a column. The codes follow JDBC.
type FieldType int

const (
	Undefined FieldType = 0
	Integer   FieldType = 4
	Float     FieldType = 6
	Varchar   FieldType = 12
	Boolean   FieldType = 16
	Date      FieldType = 91
	Text      FieldType = 2005
)

// TextSlotSize is the in-record size of a TEXT field: block, slot and total length of its overflow chain.
const TextSlotSize = 12

// MaxTextLength is the longest value a TEXT field accepts.
const MaxTextLength = 65535

func (t FieldType) String() string {
	switch t {
	case Integer:
		return "int"
	case Float:
		return "float"
	case Varchar:
		return "char"
	case Boolean:
		return "bool"
	case Date:
		return "date"
	case Text:
		return "text"
	default:
		return "undefined"
	}
}

// ParseFieldType maps a SQL type name onto a FieldType.
func ParseFieldType(name string) (FieldType, bool) {
	switch strings.ToLower(name) {
	case "int", "integer":
		return Integer, true
	case "float", "double", "real":
		return Float, true
	case "char", "varchar", "string":
		return Varchar, true
	case "bool", "boolean":
		return Boolean, true
	case "date":
		return Date, true
	case "text":
		return Text, true
	default:
		return Undefined, false
	}
}

// FixedSize returns the number of record bytes taken by a value of type t.
// Varchar fields take their declared length instead.
func (t FieldType) FixedSize() int {
	switch t {
	case Integer, Date:
		return 4
	case Float:
		return 8
	case Boolean:
		return 1
	case Text:
		return TextSlotSize
	default:
		return 0
	}
}

// IsNumeric reports whether values of t can be placed on a number line.
func (t FieldType) IsNumeric() bool {
	return t == Integer || t == Float || t == Date
}

// IsString reports whether t holds character data.
func (t FieldType) IsString() bool {
	return t == Varchar || t == Text
}
