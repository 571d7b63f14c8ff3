// Package query holds the row and expression model shared by the planner
// and the executor.
package query

import (
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

// FieldSpec names one cell of a tuple. Table is the name the table was
// bound to in the statement, its alias if it has one.
type FieldSpec struct {
	Table string
	Field string
}

func (s FieldSpec) String() string {
	if s.Table == "" {
		return s.Field
	}
	return s.Table + "." + s.Field
}

// Matches reports whether s satisfies a lookup for other. An empty table
// in other matches any table.
func (s FieldSpec) Matches(other FieldSpec) bool {
	return s.Field == other.Field && (other.Table == "" || s.Table == other.Table)
}

// Tuple is a row view produced by an operator.
type Tuple interface {
	CellCount() int
	Spec(i int) FieldSpec
	Cell(i int) (types.Value, error)
	// Find returns the cell named by spec.
	Find(spec FieldSpec) (types.Value, error)
}

func findIn(t Tuple, spec FieldSpec) (types.Value, error) {
	for i := 0; i < t.CellCount(); i++ {
		if t.Spec(i).Matches(spec) {
			return t.Cell(i)
		}
	}
	return types.Value{}, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s", spec)
}

// ValueListTuple is a tuple of materialized values.
type ValueListTuple struct {
	specs []FieldSpec
	cells []types.Value
}

func NewValueListTuple(specs []FieldSpec, cells []types.Value) *ValueListTuple {
	return &ValueListTuple{specs: specs, cells: cells}
}

// Materialize copies every cell of t.
func Materialize(t Tuple) (*ValueListTuple, error) {
	n := t.CellCount()
	specs := make([]FieldSpec, n)
	cells := make([]types.Value, n)
	for i := 0; i < n; i++ {
		v, err := t.Cell(i)
		if err != nil {
			return nil, err
		}
		specs[i] = t.Spec(i)
		cells[i] = v
	}
	return NewValueListTuple(specs, cells), nil
}

func (t *ValueListTuple) CellCount() int       { return len(t.cells) }
func (t *ValueListTuple) Spec(i int) FieldSpec { return t.specs[i] }
func (t *ValueListTuple) Cell(i int) (types.Value, error) {
	if i < 0 || i >= len(t.cells) {
		return types.Value{}, dberr.Newf(dberr.ErrInvalidArgument, "cell %d out of range", i)
	}
	return t.cells[i], nil
}
func (t *ValueListTuple) Find(spec FieldSpec) (types.Value, error) { return findIn(t, spec) }

// Values returns the cells of the tuple.
func (t *ValueListTuple) Values() []types.Value {
	return t.cells
}

func (t *ValueListTuple) String() string {
	parts := make([]string, len(t.cells))
	for i, v := range t.cells {
		parts[i] = v.String()
	}
	return strings.Join(parts, " | ")
}

// JoinedTuple concatenates the cells of two tuples.
type JoinedTuple struct {
	Left, Right Tuple
}

func (t *JoinedTuple) CellCount() int {
	return t.Left.CellCount() + t.Right.CellCount()
}

func (t *JoinedTuple) Spec(i int) FieldSpec {
	if n := t.Left.CellCount(); i >= n {
		return t.Right.Spec(i - n)
	}
	return t.Left.Spec(i)
}

func (t *JoinedTuple) Cell(i int) (types.Value, error) {
	if n := t.Left.CellCount(); i >= n {
		return t.Right.Cell(i - n)
	}
	return t.Left.Cell(i)
}

func (t *JoinedTuple) Find(spec FieldSpec) (types.Value, error) {
	v, err := t.Left.Find(spec)
	if err == nil || dberr.Code(err) != dberr.SchemaFieldNotExist {
		return v, err
	}
	return t.Right.Find(spec)
}

// RowTuple decodes the fields of a stored record on demand.
type RowTuple struct {
	tbl    *table.Table
	txn    *tx.Transaction
	name   string
	fields []table.FieldMeta
	rec    *table.Record
	cache  []types.Value
	loaded []bool
}

// NewRowTuple returns a tuple over the given fields of tbl, bound under name.
func NewRowTuple(txn *tx.Transaction, tbl *table.Table, name string, fields []table.FieldMeta) *RowTuple {
	return &RowTuple{
		tbl:    tbl,
		txn:    txn,
		name:   name,
		fields: fields,
		cache:  make([]types.Value, len(fields)),
		loaded: make([]bool, len(fields)),
	}
}

// SetRecord points the tuple at rec.
func (t *RowTuple) SetRecord(rec *table.Record) {
	t.rec = rec
	clear(t.loaded)
}

// Record returns the current record.
func (t *RowTuple) Record() *table.Record {
	return t.rec
}

func (t *RowTuple) CellCount() int { return len(t.fields) }

func (t *RowTuple) Spec(i int) FieldSpec {
	return FieldSpec{Table: t.name, Field: t.fields[i].Name}
}

func (t *RowTuple) Cell(i int) (types.Value, error) {
	if i < 0 || i >= len(t.fields) {
		return types.Value{}, dberr.Newf(dberr.ErrInvalidArgument, "cell %d out of range", i)
	}
	if t.rec == nil {
		return types.Value{}, dberr.Newf(dberr.ErrInternal, "tuple of %s has no record", t.name)
	}
	if !t.loaded[i] {
		v, err := t.tbl.Value(t.txn, t.rec, t.fields[i].Name)
		if err != nil {
			return types.Value{}, err
		}
		t.cache[i] = v
		t.loaded[i] = true
	}
	return t.cache[i], nil
}

func (t *RowTuple) Find(spec FieldSpec) (types.Value, error) { return findIn(t, spec) }
