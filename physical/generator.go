package physical

import (
	"log/slog"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
)

// Generator turns a logical plan into physical operators, one per logical
// node.
type Generator struct {
	store     *stats.Store
	collector *stats.Collector
	out       Operator
}

// NewGenerator returns a generator whose Analyze operators write through
// store with histograms built by collector.
func NewGenerator(store *stats.Store, collector *stats.Collector) *Generator {
	return &Generator{store: store, collector: collector}
}

// Create returns the physical operator tree for plan.
func (g *Generator) Create(plan logical.Operator) (Operator, error) {
	if plan == nil {
		return nil, dberr.Newf(dberr.ErrInternal, "no plan to generate")
	}
	if err := plan.Accept(g); err != nil {
		return nil, err
	}
	out := g.out
	g.out = nil
	return out, nil
}

func (g *Generator) child(op logical.Operator) (Operator, error) {
	children := op.Children()
	if len(children) != 1 {
		return nil, dberr.Newf(dberr.ErrInternal, "%T has %d children, want 1", op, len(children))
	}
	return g.Create(children[0])
}

func (g *Generator) VisitTableGet(op *logical.TableGet) error {
	g.out = NewTableScan(op.Table, op.Name, op.Fields, op.Cost)
	return nil
}

// VisitPredicate reads through an index when the predicate sits directly
// on a read-only table read with an equality filter on an indexed field.
// The predicate still runs on top of the index scan.
func (g *Generator) VisitPredicate(op *logical.Predicate) error {
	var child Operator
	if get, ok := op.Child().(*logical.TableGet); ok && get.ReadOnly {
		if f, im, ok := get.IndexFilter(); ok {
			lit := f.Right.(*query.ValueExpr)
			child = NewIndexScan(get.Table, get.Name, get.Fields, im, lit.Value, get.IndexCost)
			slog.Debug("physical: access path", "table", get.Name, "index", im.Name)
		}
	}
	if child == nil {
		var err error
		if child, err = g.child(op); err != nil {
			return err
		}
	}
	g.out = NewPredicate(op.Condition(), child)
	return nil
}

func (g *Generator) VisitProject(op *logical.Project) error {
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewProject(op.Fields(), child)
	return nil
}

func (g *Generator) VisitJoin(op *logical.Join) error {
	left, err := g.Create(op.Left())
	if err != nil {
		return err
	}
	right, err := g.Create(op.Right())
	if err != nil {
		return err
	}
	g.out = NewNestedLoopJoin(left, right)
	return nil
}

func (g *Generator) VisitOrderBy(op *logical.OrderBy) error {
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewOrderBy(op.Keys, child)
	return nil
}

func (g *Generator) VisitInsert(op *logical.Insert) error {
	g.out = NewInsert(op.Table, op.Rows)
	return nil
}

func (g *Generator) VisitUpdate(op *logical.Update) error {
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewUpdate(op.Table, op.Field, op.Value(), child)
	return nil
}

func (g *Generator) VisitDelete(op *logical.Delete) error {
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewDelete(op.Table, child)
	return nil
}

func (g *Generator) VisitAnalyze(op *logical.Analyze) error {
	if g.store == nil || g.collector == nil {
		return dberr.Newf(dberr.ErrInternal, "analyze needs a statistics store")
	}
	if op.StatsTable != g.store.Table() {
		return dberr.Newf(dberr.ErrInternal, "analyze writes to %s, store holds %s", op.StatsTable.Name(), g.store.Table().Name())
	}
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewAnalyze(op.Table, op.ColumnNames(), g.store, g.collector, child)
	return nil
}

func (g *Generator) VisitExplain(op *logical.Explain) error {
	child, err := g.child(op)
	if err != nil {
		return err
	}
	g.out = NewExplain(child)
	return nil
}

func (g *Generator) VisitCalc(op *logical.Calc) error {
	g.out = NewCalc(op.Expressions(), op.Names)
	return nil
}
