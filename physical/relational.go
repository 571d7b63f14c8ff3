package physical

import (
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/google/btree"
)

// Predicate forwards the child tuples for which Condition is true.
type Predicate struct {
	unary
	Condition query.Expression
}

func NewPredicate(cond query.Expression, child Operator) *Predicate {
	return &Predicate{unary: unary{child: child}, Condition: cond}
}

func (p *Predicate) Open(txn *tx.Transaction) error { return p.openChild(txn) }

func (p *Predicate) Next() (bool, error) {
	for {
		ok, err := p.child.Next()
		if err != nil || !ok {
			return false, err
		}
		v, err := p.Condition.Eval(p.child.CurrentTuple())
		if err != nil {
			return false, err
		}
		if v.Type() != types.Boolean {
			return false, dberr.Newf(dberr.ErrSchemaFieldTypeMismatch, "condition %s is not boolean", p.Condition)
		}
		if v.AsBool() {
			return true, nil
		}
	}
}

func (p *Predicate) CurrentTuple() query.Tuple { return p.child.CurrentTuple() }
func (p *Predicate) Close() error              { return p.closeChild() }
func (p *Predicate) Accept(v Visitor) error    { return v.VisitPredicate(p) }
func (p *Predicate) Name() string              { return "Predicate" }
func (p *Predicate) Param() string             { return p.Condition.String() }

// Project narrows child tuples to Fields.
type Project struct {
	unary
	Fields []*query.FieldExpr

	specs []query.FieldSpec
	tuple *query.ValueListTuple
}

func NewProject(fields []*query.FieldExpr, child Operator) *Project {
	specs := make([]query.FieldSpec, len(fields))
	for i, f := range fields {
		specs[i] = f.Spec()
	}
	return &Project{unary: unary{child: child}, Fields: fields, specs: specs}
}

func (p *Project) Open(txn *tx.Transaction) error { return p.openChild(txn) }

func (p *Project) Next() (bool, error) {
	ok, err := p.child.Next()
	if err != nil || !ok {
		return false, err
	}
	in := p.child.CurrentTuple()
	cells := make([]types.Value, len(p.Fields))
	for i, f := range p.Fields {
		if cells[i], err = f.Eval(in); err != nil {
			return false, err
		}
	}
	p.tuple = query.NewValueListTuple(p.specs, cells)
	return true, nil
}

func (p *Project) CurrentTuple() query.Tuple { return p.tuple }
func (p *Project) Close() error              { return p.closeChild() }
func (p *Project) Accept(v Visitor) error    { return v.VisitProject(p) }
func (p *Project) Name() string              { return "Project" }

func (p *Project) Param() string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.String()
	}
	return strings.Join(names, ", ")
}

// NestedLoopJoin pairs every left tuple with every right tuple. The right
// child is reopened for each left tuple.
type NestedLoopJoin struct {
	Left, Right Operator

	txn         *tx.Transaction
	leftOpen    bool
	rightOpen   bool
	leftCurrent bool
	tuple       *query.JoinedTuple
}

func NewNestedLoopJoin(left, right Operator) *NestedLoopJoin {
	return &NestedLoopJoin{Left: left, Right: right}
}

func (j *NestedLoopJoin) Children() []Operator { return []Operator{j.Left, j.Right} }

func (j *NestedLoopJoin) Open(txn *tx.Transaction) error {
	j.txn = txn
	if err := j.Left.Open(txn); err != nil {
		_ = j.Left.Close()
		return err
	}
	j.leftOpen = true
	j.leftCurrent = false
	return nil
}

func (j *NestedLoopJoin) Next() (bool, error) {
	for {
		if j.leftCurrent {
			ok, err := j.Right.Next()
			if err != nil {
				return false, err
			}
			if ok {
				j.tuple = &query.JoinedTuple{Left: j.Left.CurrentTuple(), Right: j.Right.CurrentTuple()}
				return true, nil
			}
		}
		ok, err := j.Left.Next()
		if err != nil || !ok {
			return false, err
		}
		if err := j.rescanRight(); err != nil {
			return false, err
		}
		j.leftCurrent = true
	}
}

func (j *NestedLoopJoin) rescanRight() error {
	if j.rightOpen {
		j.rightOpen = false
		if err := j.Right.Close(); err != nil {
			return err
		}
	}
	if err := j.Right.Open(j.txn); err != nil {
		_ = j.Right.Close()
		return err
	}
	j.rightOpen = true
	return nil
}

func (j *NestedLoopJoin) CurrentTuple() query.Tuple { return j.tuple }

func (j *NestedLoopJoin) Close() error {
	var open []Operator
	if j.leftOpen {
		open = append(open, j.Left)
	}
	if j.rightOpen {
		open = append(open, j.Right)
	}
	j.leftOpen, j.rightOpen, j.leftCurrent = false, false, false
	return closeAll(open...)
}

func (j *NestedLoopJoin) Accept(v Visitor) error { return v.VisitNestedLoopJoin(j) }
func (j *NestedLoopJoin) Name() string           { return "NestedLoopJoin" }
func (j *NestedLoopJoin) Param() string          { return "" }

// sortItem is one buffered tuple of an OrderBy. seq keeps arrival order
// among tuples with equal keys.
type sortItem struct {
	keys  []types.Value
	seq   int
	tuple query.Tuple
}

// OrderBy buffers its input in a B-tree ordered by Keys and emits it in
// order. Tuples with equal keys keep their input order.
type OrderBy struct {
	unary
	Keys []logical.OrderKey

	items []sortItem
	pos   int
}

const sortTreeDegree = 16

func NewOrderBy(keys []logical.OrderKey, child Operator) *OrderBy {
	return &OrderBy{unary: unary{child: child}, Keys: keys}
}

func (o *OrderBy) less(a, b sortItem) bool {
	for i, key := range o.Keys {
		c := compareNullsFirst(a.keys[i], b.keys[i])
		if key.Desc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
	}
	return a.seq < b.seq
}

func compareNullsFirst(a, b types.Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return -1
	case b.IsNull():
		return 1
	}
	c, err := a.CompareTo(b)
	if err != nil {
		return 0
	}
	return c
}

func (o *OrderBy) Open(txn *tx.Transaction) error {
	if err := o.openChild(txn); err != nil {
		return err
	}
	tree := btree.NewG(sortTreeDegree, o.less)
	for seq := 0; ; seq++ {
		ok, err := o.child.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row, err := query.Materialize(o.child.CurrentTuple())
		if err != nil {
			return err
		}
		item := sortItem{keys: make([]types.Value, len(o.Keys)), seq: seq, tuple: row}
		for i, key := range o.Keys {
			if item.keys[i], err = key.Field.Eval(row); err != nil {
				return err
			}
		}
		tree.ReplaceOrInsert(item)
	}

	o.items = make([]sortItem, 0, tree.Len())
	tree.Ascend(func(item sortItem) bool {
		o.items = append(o.items, item)
		return true
	})
	o.pos = -1
	return o.closeChild()
}

func (o *OrderBy) Next() (bool, error) {
	if o.pos+1 >= len(o.items) {
		o.pos = len(o.items)
		return false, nil
	}
	o.pos++
	return true, nil
}

func (o *OrderBy) CurrentTuple() query.Tuple {
	if o.pos < 0 || o.pos >= len(o.items) {
		return nil
	}
	return o.items[o.pos].tuple
}

func (o *OrderBy) Close() error {
	o.items = nil
	return o.closeChild()
}

func (o *OrderBy) Accept(v Visitor) error { return v.VisitOrderBy(o) }
func (o *OrderBy) Name() string           { return "OrderBy" }

func (o *OrderBy) Param() string {
	parts := make([]string, len(o.Keys))
	for i, key := range o.Keys {
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		parts[i] = key.Field.String() + " " + dir
	}
	return strings.Join(parts, ", ")
}
