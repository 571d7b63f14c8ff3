// Package physical holds the iterator operators that execute a plan and the
// generator that builds them from a logical plan.
package physical

import (
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/cockroachdb/errors"
)

// Operator is a pull-based iterator. Open prepares the operator and its
// children, Next advances to the next tuple and Close releases everything
// Open acquired. Close may be called after a failed Open.
type Operator interface {
	Open(txn *tx.Transaction) error
	Next() (bool, error)
	// CurrentTuple is the tuple Next moved to, nil for operators that
	// produce no rows.
	CurrentTuple() query.Tuple
	Close() error
	Children() []Operator
	Accept(v Visitor) error
	// Name and Param describe the operator in EXPLAIN output.
	Name() string
	Param() string
}

// Mutation is an operator that changes stored data. Its work is done by
// the first call to Next, which then reports no rows.
type Mutation interface {
	Operator
	RowsAffected() int
}

// Visitor dispatches on the concrete operator type.
type Visitor interface {
	VisitTableScan(op *TableScan) error
	VisitIndexScan(op *IndexScan) error
	VisitPredicate(op *Predicate) error
	VisitProject(op *Project) error
	VisitNestedLoopJoin(op *NestedLoopJoin) error
	VisitOrderBy(op *OrderBy) error
	VisitInsert(op *Insert) error
	VisitUpdate(op *Update) error
	VisitDelete(op *Delete) error
	VisitAnalyze(op *Analyze) error
	VisitExplain(op *Explain) error
	VisitCalc(op *Calc) error
}

// closeAll closes ops and combines their errors.
func closeAll(ops ...Operator) error {
	var err error
	for _, op := range ops {
		if op == nil {
			continue
		}
		err = errors.CombineErrors(err, op.Close())
	}
	return err
}

// unary is embedded by operators with one child.
type unary struct {
	child  Operator
	opened bool
}

func (u *unary) Children() []Operator { return []Operator{u.child} }

func (u *unary) openChild(txn *tx.Transaction) error {
	if err := u.child.Open(txn); err != nil {
		_ = u.child.Close()
		return err
	}
	u.opened = true
	return nil
}

func (u *unary) closeChild() error {
	if !u.opened {
		return nil
	}
	u.opened = false
	return u.child.Close()
}

// leaf is embedded by operators without children.
type leaf struct{}

func (leaf) Children() []Operator { return nil }
