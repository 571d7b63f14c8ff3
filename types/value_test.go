package types

import (
	"testing"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_CompareTo(t *testing.T) {
	tests := []struct {
		name string
		lhs  Value
		rhs  Value
		want int
	}{
		{"ints", NewIntValue(1), NewIntValue(2), -1},
		{"int and float", NewIntValue(3), NewFloatValue(2.5), 1},
		{"strings", NewStringValue("b"), NewStringValue("a"), 1},
		{"char and text", NewStringValue("same"), NewTextValue("same"), 0},
		{"dates", NewDateValue(10), NewDateValue(10), 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.lhs.CompareTo(tc.rhs)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := NewIntValue(1).CompareTo(NewStringValue("1"))
	assert.Equal(t, dberr.SchemaFieldTypeMismatch, dberr.Code(err))
}

func TestValue_CastTo(t *testing.T) {
	d, err := NewStringValue("2024-02-29").CastTo(Date)
	require.NoError(t, err)
	assert.Equal(t, Date, d.Type())
	assert.Equal(t, "2024-02-29", d.String())

	_, err = NewStringValue("2023-02-30").CastTo(Date)
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))

	f, err := NewIntValue(4).CastTo(Float)
	require.NoError(t, err)
	assert.Equal(t, 4.0, f.AsFloat())

	_, err = NewBoolValue(true).CastTo(Date)
	assert.Error(t, err)
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "42", NewIntValue(42).String())
	assert.Equal(t, "2.5", NewFloatValue(2.5).String())
	assert.Equal(t, "3.0", NewFloatValue(3).String())
	assert.Equal(t, "true", NewBoolValue(true).String())
	assert.Equal(t, "1970-01-02", NewDateValue(1).String())
	assert.Equal(t, "NULL", Value{}.String())
}

func TestCompare(t *testing.T) {
	ok, err := Compare(NewIntValue(20), NewIntValue(15), GT)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(NewStringValue("apple pie"), NewStringValue("apple%"), LIKE)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(NewStringValue("apple pie"), NewStringValue("apple%"), NOTLIKE)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Compare(NewIntValue(1), NewStringValue("1%"), LIKE)
	assert.Error(t, err)

	ok, err = Compare(Value{}, NewIntValue(1), EQ)
	require.NoError(t, err)
	assert.False(t, ok, "comparisons with NULL are false")
}

func TestLike(t *testing.T) {
	tests := []struct {
		s, pattern string
		want       bool
	}{
		{"hello", "hello", true},
		{"hello", "h%", true},
		{"hello", "%llo", true},
		{"hello", "h_llo", true},
		{"hello", "h_lo", false},
		{"hello", "%", true},
		{"", "%", true},
		{"", "_", false},
		{"abcabc", "%b%c", true},
		{"abc", "a%d", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Like(tc.s, tc.pattern), "%q LIKE %q", tc.s, tc.pattern)
	}
}

func TestOperator(t *testing.T) {
	op, err := OperatorFromString("not like")
	require.NoError(t, err)
	assert.Equal(t, NOTLIKE, op)
	assert.Equal(t, GE, LE.Flip())
	assert.Equal(t, EQ, EQ.Flip())

	_, err = OperatorFromString("=~")
	assert.Error(t, err)
}

func TestParseFieldType(t *testing.T) {
	ft, ok := ParseFieldType("VARCHAR")
	assert.True(t, ok)
	assert.Equal(t, Varchar, ft)
	assert.Equal(t, 12, Text.FixedSize())
	_, ok = ParseFieldType("blob")
	assert.False(t, ok)
}
