package physical

import (
	"strings"

	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

// ExplainColumn is the header of EXPLAIN output.
const ExplainColumn = "Query Plan"

// Explain renders the tree of its child, one row per operator, without
// running it.
type Explain struct {
	leaf
	Plan Operator

	lines []string
	pos   int
	tuple *query.ValueListTuple
}

func NewExplain(plan Operator) *Explain {
	return &Explain{Plan: plan}
}

// Render returns the lines of the tree rooted at op, children indented
// under their parent.
func Render(op Operator) []string {
	var lines []string
	var walk func(op Operator, depth int)
	walk = func(op Operator, depth int) {
		line := strings.Repeat("  ", depth) + op.Name()
		if param := op.Param(); param != "" {
			line += ": " + param
		}
		lines = append(lines, line)
		for _, child := range op.Children() {
			walk(child, depth+1)
		}
	}
	walk(op, 0)
	return lines
}

func (e *Explain) Open(*tx.Transaction) error {
	e.lines = Render(e.Plan)
	e.pos = -1
	return nil
}

func (e *Explain) Next() (bool, error) {
	if e.pos+1 >= len(e.lines) {
		return false, nil
	}
	e.pos++
	e.tuple = query.NewValueListTuple(
		[]query.FieldSpec{{Field: ExplainColumn}},
		[]types.Value{types.NewStringValue(e.lines[e.pos])},
	)
	return true, nil
}

func (e *Explain) CurrentTuple() query.Tuple { return e.tuple }
func (e *Explain) Close() error              { return nil }
func (e *Explain) Accept(v Visitor) error    { return v.VisitExplain(e) }
func (e *Explain) Name() string              { return "Explain" }
func (e *Explain) Param() string             { return "" }

// Columns returns the output column names of op, empty for operators that
// produce no rows.
func Columns(op Operator) ([]string, error) {
	var cv columnVisitor
	if err := op.Accept(&cv); err != nil {
		return nil, err
	}
	return cv.columns, nil
}

type columnVisitor struct {
	columns []string
}

func (cv *columnVisitor) fields(fields []string) error {
	cv.columns = fields
	return nil
}

func (cv *columnVisitor) VisitTableScan(op *TableScan) error {
	names := make([]string, len(op.Fields))
	for i, f := range op.Fields {
		names[i] = query.FieldSpec{Table: op.Alias, Field: f.Name}.String()
	}
	return cv.fields(names)
}

func (cv *columnVisitor) VisitIndexScan(op *IndexScan) error {
	return cv.VisitTableScan(&TableScan{Table: op.Table, Alias: op.Alias, Fields: op.Fields})
}

func (cv *columnVisitor) VisitPredicate(op *Predicate) error { return op.child.Accept(cv) }
func (cv *columnVisitor) VisitOrderBy(op *OrderBy) error     { return op.child.Accept(cv) }

func (cv *columnVisitor) VisitProject(op *Project) error {
	seen := make(map[string]int, len(op.Fields))
	for _, f := range op.Fields {
		seen[f.Field]++
	}
	// a field name shared by two tables keeps its table prefix
	names := make([]string, len(op.Fields))
	for i, f := range op.Fields {
		names[i] = f.Field
		if seen[f.Field] > 1 {
			names[i] = f.String()
		}
	}
	return cv.fields(names)
}

func (cv *columnVisitor) VisitNestedLoopJoin(op *NestedLoopJoin) error {
	if err := op.Left.Accept(cv); err != nil {
		return err
	}
	left := cv.columns
	if err := op.Right.Accept(cv); err != nil {
		return err
	}
	return cv.fields(append(left, cv.columns...))
}

func (cv *columnVisitor) VisitInsert(*Insert) error   { return cv.fields(nil) }
func (cv *columnVisitor) VisitUpdate(*Update) error   { return cv.fields(nil) }
func (cv *columnVisitor) VisitDelete(*Delete) error   { return cv.fields(nil) }
func (cv *columnVisitor) VisitAnalyze(*Analyze) error { return cv.fields(nil) }

func (cv *columnVisitor) VisitExplain(*Explain) error {
	return cv.fields([]string{ExplainColumn})
}

func (cv *columnVisitor) VisitCalc(op *Calc) error {
	return cv.fields(op.Names)
}
