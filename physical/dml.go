package physical

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

// mutation holds the state shared by the operators that change data.
type mutation struct {
	txn      *tx.Transaction
	done     bool
	affected int
}

func (m *mutation) RowsAffected() int         { return m.affected }
func (m *mutation) CurrentTuple() query.Tuple { return nil }

// Insert adds Rows to Table. A row that violates a unique index leaves no
// trace in the table or its indexes; earlier rows stay until the
// transaction is rolled back.
type Insert struct {
	leaf
	mutation
	Table *table.Table
	Rows  [][]types.Value
}

func NewInsert(tbl *table.Table, rows [][]types.Value) *Insert {
	return &Insert{Table: tbl, Rows: rows}
}

func (op *Insert) Open(txn *tx.Transaction) error {
	op.txn, op.done, op.affected = txn, false, 0
	return nil
}

func (op *Insert) Next() (bool, error) {
	if op.done {
		return false, nil
	}
	op.done = true
	for _, row := range op.Rows {
		rec, err := op.Table.MakeRecord(op.txn, row)
		if err != nil {
			return false, err
		}
		if err := op.Table.InsertRecord(op.txn, rec); err != nil {
			return false, err
		}
		op.affected++
	}
	return false, nil
}

func (op *Insert) Close() error           { return nil }
func (op *Insert) Accept(v Visitor) error { return v.VisitInsert(op) }
func (op *Insert) Name() string           { return "Insert" }

func (op *Insert) Param() string {
	return fmt.Sprintf("%s (%d rows)", op.Table.Name(), len(op.Rows))
}

// currentRecord returns the stored record behind a tuple produced by a
// table read.
func currentRecord(t query.Tuple) (*table.Record, error) {
	row, ok := t.(*query.RowTuple)
	if !ok || row.Record() == nil {
		return nil, dberr.Newf(dberr.ErrInternal, "input of a data change is not a table row")
	}
	return row.Record(), nil
}

// Update sets Field of every input row to Value evaluated against the row.
type Update struct {
	unary
	mutation
	Table *table.Table
	Field table.FieldMeta
	Value query.Expression
}

func NewUpdate(tbl *table.Table, field table.FieldMeta, value query.Expression, child Operator) *Update {
	return &Update{unary: unary{child: child}, Table: tbl, Field: field, Value: value}
}

func (op *Update) Open(txn *tx.Transaction) error {
	op.txn, op.done, op.affected = txn, false, 0
	return op.openChild(txn)
}

func (op *Update) Next() (bool, error) {
	if op.done {
		return false, nil
	}
	op.done = true

	// New values are computed from the rows as read, before the first write.
	type change struct {
		rec   *table.Record
		value types.Value
	}
	var changes []change
	for {
		ok, err := op.child.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		in := op.child.CurrentTuple()
		rec, err := currentRecord(in)
		if err != nil {
			return false, err
		}
		v, err := op.Value.Eval(in)
		if err != nil {
			return false, err
		}
		if !v.IsNull() {
			if v, err = v.CastTo(op.Field.Type); err != nil {
				return false, err
			}
		}
		changes = append(changes, change{rec, v})
	}

	for _, c := range changes {
		if err := op.Table.UpdateRecord(op.txn, c.rec, op.Field.Name, c.value); err != nil {
			return false, err
		}
		op.affected++
	}
	return false, nil
}

func (op *Update) Close() error           { return op.closeChild() }
func (op *Update) Accept(v Visitor) error { return v.VisitUpdate(op) }
func (op *Update) Name() string           { return "Update" }

func (op *Update) Param() string {
	return fmt.Sprintf("%s set %s = %s", op.Table.Name(), op.Field.Name, op.Value)
}

// Delete removes every input row. The input is read in full before the
// first row is removed.
type Delete struct {
	unary
	mutation
	Table *table.Table
}

func NewDelete(tbl *table.Table, child Operator) *Delete {
	return &Delete{unary: unary{child: child}, Table: tbl}
}

func (op *Delete) Open(txn *tx.Transaction) error {
	op.txn, op.done, op.affected = txn, false, 0
	return op.openChild(txn)
}

func (op *Delete) Next() (bool, error) {
	if op.done {
		return false, nil
	}
	op.done = true

	var records []*table.Record
	for {
		ok, err := op.child.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		rec, err := currentRecord(op.child.CurrentTuple())
		if err != nil {
			return false, err
		}
		records = append(records, rec)
	}

	for _, rec := range records {
		if err := op.Table.DeleteRecord(op.txn, rec); err != nil {
			return false, err
		}
		op.affected++
	}
	return false, nil
}

func (op *Delete) Close() error           { return op.closeChild() }
func (op *Delete) Accept(v Visitor) error { return v.VisitDelete(op) }
func (op *Delete) Name() string           { return "Delete" }
func (op *Delete) Param() string          { return op.Table.Name() }

// Analyze reads Columns of Table from its child, builds one histogram per
// column and replaces the statistics rows of those columns.
type Analyze struct {
	unary
	mutation
	Table     *table.Table
	Columns   []string
	store     *stats.Store
	collector *stats.Collector
}

func NewAnalyze(tbl *table.Table, columns []string, store *stats.Store, collector *stats.Collector, child Operator) *Analyze {
	return &Analyze{unary: unary{child: child}, Table: tbl, Columns: columns, store: store, collector: collector}
}

func (op *Analyze) Open(txn *tx.Transaction) error {
	op.txn, op.done, op.affected = txn, false, 0
	return op.openChild(txn)
}

func (op *Analyze) Next() (bool, error) {
	if op.done {
		return false, nil
	}
	op.done = true

	var rows [][]types.Value
	for {
		ok, err := op.child.Next()
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		in := op.child.CurrentTuple()
		row := make([]types.Value, len(op.Columns))
		for i, name := range op.Columns {
			if row[i], err = in.Find(query.FieldSpec{Field: name}); err != nil {
				return false, err
			}
		}
		rows = append(rows, row)
	}

	statRows, err := op.collector.Collect(op.Table.Meta(), op.Columns, rows)
	if err != nil {
		return false, err
	}
	if err := op.store.Write(op.txn, statRows); err != nil {
		return false, err
	}
	op.affected = len(statRows)
	slog.Info("statistics written", "table", op.Table.Name(), "columns", op.Columns, "rows", len(rows))
	return false, nil
}

func (op *Analyze) Close() error           { return op.closeChild() }
func (op *Analyze) Accept(v Visitor) error { return v.VisitAnalyze(op) }
func (op *Analyze) Name() string           { return "Analyze" }

func (op *Analyze) Param() string {
	return fmt.Sprintf("%s (%s) into %s", op.Table.Name(), strings.Join(op.Columns, ", "), op.store.Table().Name())
}

// Calc produces one row holding the values of Exprs, labelled by Names.
type Calc struct {
	leaf
	Exprs []query.Expression
	Names []string

	done  bool
	tuple *query.ValueListTuple
}

func NewCalc(exprs []query.Expression, names []string) *Calc {
	return &Calc{Exprs: exprs, Names: names}
}

func (c *Calc) Open(*tx.Transaction) error {
	c.done, c.tuple = false, nil
	return nil
}

func (c *Calc) Next() (bool, error) {
	if c.done {
		return false, nil
	}
	c.done = true
	specs := make([]query.FieldSpec, len(c.Exprs))
	cells := make([]types.Value, len(c.Exprs))
	for i, e := range c.Exprs {
		v, err := e.Eval(nil)
		if err != nil {
			return false, err
		}
		specs[i] = query.FieldSpec{Field: c.Names[i]}
		cells[i] = v
	}
	c.tuple = query.NewValueListTuple(specs, cells)
	return true, nil
}

func (c *Calc) CurrentTuple() query.Tuple { return c.tuple }
func (c *Calc) Close() error              { return nil }
func (c *Calc) Accept(v Visitor) error    { return v.VisitCalc(c) }
func (c *Calc) Name() string              { return "Calc" }

func (c *Calc) Param() string {
	parts := make([]string, len(c.Exprs))
	for i, e := range c.Exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
