// Package logical holds the storage-agnostic plan tree built from a parsed
// statement and the builder that produces it.
package logical

import (
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
)

// Operator is one node of a logical plan. A node owns its children.
type Operator interface {
	Children() []Operator
	SetChildren(children []Operator)
	// Expressions returns the expressions held by the node. Rewrite rules
	// replace entries of the returned slice in place.
	Expressions() []query.Expression
	Accept(v Visitor) error
}

// Visitor dispatches on the concrete operator type.
type Visitor interface {
	VisitTableGet(op *TableGet) error
	VisitPredicate(op *Predicate) error
	VisitProject(op *Project) error
	VisitJoin(op *Join) error
	VisitOrderBy(op *OrderBy) error
	VisitInsert(op *Insert) error
	VisitUpdate(op *Update) error
	VisitDelete(op *Delete) error
	VisitAnalyze(op *Analyze) error
	VisitExplain(op *Explain) error
	VisitCalc(op *Calc) error
}

type node struct {
	children []Operator
	exprs    []query.Expression
}

func (n *node) Children() []Operator            { return n.children }
func (n *node) SetChildren(children []Operator) { n.children = children }
func (n *node) Expressions() []query.Expression { return n.exprs }

// Child returns the only child of a unary node.
func (n *node) Child() Operator {
	if len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// TableGet reads the rows of one table.
type TableGet struct {
	node
	Table *table.Table
	// Name is the name the table is bound to in the statement.
	Name   string
	Fields []table.FieldMeta
	// ReadOnly is false when the rows are going to be updated or deleted.
	ReadOnly bool
	// Filters are the comparisons between a field of this table and a
	// literal. They drive cost estimation; the rows are still filtered by
	// the Predicate above.
	Filters []*query.ComparisonExpr
	Cost    float64
	// IndexCost is the estimated cost of reading through an index, zero
	// when no filter can use one.
	IndexCost float64
}

// IndexFilter returns the first "field = literal" filter on a field with a
// single-field index.
func (op *TableGet) IndexFilter() (*query.ComparisonExpr, table.IndexMeta, bool) {
	for _, f := range op.Filters {
		if f.Op != types.EQ {
			continue
		}
		field, ok := f.Left.(*query.FieldExpr)
		if !ok {
			continue
		}
		if im, ok := op.Table.IndexOn(field.Field); ok {
			return f, im, true
		}
	}
	return nil, table.IndexMeta{}, false
}

func NewTableGet(tbl *table.Table, name string, fields []table.FieldMeta, readOnly bool) *TableGet {
	return &TableGet{Table: tbl, Name: name, Fields: fields, ReadOnly: readOnly}
}

func (op *TableGet) Accept(v Visitor) error { return v.VisitTableGet(op) }

// Predicate forwards the rows for which its condition holds.
type Predicate struct {
	node
}

func NewPredicate(cond query.Expression, child Operator) *Predicate {
	return &Predicate{node{children: []Operator{child}, exprs: []query.Expression{cond}}}
}

func (op *Predicate) Condition() query.Expression { return op.exprs[0] }
func (op *Predicate) Accept(v Visitor) error      { return v.VisitPredicate(op) }

// Project narrows rows to the listed fields.
type Project struct {
	node
}

func NewProject(fields []*query.FieldExpr, child Operator) *Project {
	exprs := make([]query.Expression, len(fields))
	for i, f := range fields {
		exprs[i] = f
	}
	return &Project{node{children: []Operator{child}, exprs: exprs}}
}

// Fields returns the output fields in order.
func (op *Project) Fields() []*query.FieldExpr {
	fields := make([]*query.FieldExpr, 0, len(op.exprs))
	for _, e := range op.exprs {
		if f, ok := e.(*query.FieldExpr); ok {
			fields = append(fields, f)
		}
	}
	return fields
}

func (op *Project) Accept(v Visitor) error { return v.VisitProject(op) }

// Join pairs every row of its left child with every row of its right child.
type Join struct {
	node
}

func NewJoin(left, right Operator) *Join {
	return &Join{node{children: []Operator{left, right}}}
}

func (op *Join) Left() Operator         { return op.children[0] }
func (op *Join) Right() Operator        { return op.children[1] }
func (op *Join) Accept(v Visitor) error { return v.VisitJoin(op) }

// OrderKey is one sort key of an OrderBy.
type OrderKey struct {
	Field *query.FieldExpr
	Desc  bool
}

// OrderBy sorts its input by Keys.
type OrderBy struct {
	node
	Keys []OrderKey
}

func NewOrderBy(keys []OrderKey, child Operator) *OrderBy {
	return &OrderBy{node: node{children: []Operator{child}}, Keys: keys}
}

func (op *OrderBy) Accept(v Visitor) error { return v.VisitOrderBy(op) }

// Insert adds rows to a table. Each row lists the values of the visible
// fields in declaration order.
type Insert struct {
	node
	Table *table.Table
	Rows  [][]types.Value
}

func NewInsert(tbl *table.Table, rows [][]types.Value) *Insert {
	return &Insert{Table: tbl, Rows: rows}
}

func (op *Insert) Accept(v Visitor) error { return v.VisitInsert(op) }

// Update sets Field of every input row to the value of an expression
// evaluated against that row.
type Update struct {
	node
	Table *table.Table
	Field table.FieldMeta
}

func NewUpdate(tbl *table.Table, field table.FieldMeta, value query.Expression, child Operator) *Update {
	return &Update{node: node{children: []Operator{child}, exprs: []query.Expression{value}}, Table: tbl, Field: field}
}

func (op *Update) Value() query.Expression { return op.exprs[0] }
func (op *Update) Accept(v Visitor) error  { return v.VisitUpdate(op) }

// Delete removes every input row.
type Delete struct {
	node
	Table *table.Table
}

func NewDelete(tbl *table.Table, child Operator) *Delete {
	return &Delete{node: node{children: []Operator{child}}, Table: tbl}
}

func (op *Delete) Accept(v Visitor) error { return v.VisitDelete(op) }

// Analyze builds histograms for Columns of Table from its input rows and
// writes them to StatsTable.
type Analyze struct {
	node
	StatsTable *table.Table
	Table      *table.Table
	Columns    []table.FieldMeta
}

func NewAnalyze(statsTable, tbl *table.Table, columns []table.FieldMeta, child Operator) *Analyze {
	return &Analyze{node: node{children: []Operator{child}}, StatsTable: statsTable, Table: tbl, Columns: columns}
}

func (op *Analyze) ColumnNames() []string {
	names := make([]string, len(op.Columns))
	for i, c := range op.Columns {
		names[i] = c.Name
	}
	return names
}

func (op *Analyze) Accept(v Visitor) error { return v.VisitAnalyze(op) }

// Explain describes the plan of its child instead of running it.
type Explain struct {
	node
}

func NewExplain(child Operator) *Explain {
	return &Explain{node{children: []Operator{child}}}
}

func (op *Explain) Accept(v Visitor) error { return v.VisitExplain(op) }

// Calc evaluates expressions that read no table. Names keeps the text of
// each expression as written, before any rewrite.
type Calc struct {
	node
	Names []string
}

func NewCalc(exprs []query.Expression) *Calc {
	names := make([]string, len(exprs))
	for i, e := range exprs {
		names[i] = e.String()
	}
	return &Calc{node: node{exprs: exprs}, Names: names}
}

func (op *Calc) Accept(v Visitor) error { return v.VisitCalc(op) }

// Walk calls fn on op and its descendants, parents first.
func Walk(op Operator, fn func(Operator) error) error {
	if err := fn(op); err != nil {
		return err
	}
	for _, child := range op.Children() {
		if err := Walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// TableGets returns the table reads of a plan in tree order.
func TableGets(op Operator) []*TableGet {
	if get, ok := op.(*TableGet); ok {
		return []*TableGet{get}
	}
	var gets []*TableGet
	for _, child := range op.Children() {
		gets = append(gets, TableGets(child)...)
	}
	return gets
}
