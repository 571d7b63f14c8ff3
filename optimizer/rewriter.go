package optimizer

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/types"
)

// maxRewritePasses bounds the fixpoint loop. Every shipped rule shrinks
// the plan, so reaching it means a rule keeps reporting changes.
const maxRewritePasses = 64

// Rule rewrites one operator in place and reports whether it changed
// anything. A rule may replace the children of op but never op itself.
type Rule interface {
	Name() string
	Rewrite(op logical.Operator) (bool, error)
}

// Rewriter applies its rules over a plan until no rule fires.
type Rewriter struct {
	rules []Rule
}

// NewRewriter returns a rewriter applying rules, or the default rules when
// none are given.
func NewRewriter(rules ...Rule) *Rewriter {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Rewriter{rules: rules}
}

// DefaultRules returns constant folding, conjunction simplification and
// predicate elimination.
func DefaultRules() []Rule {
	return []Rule{ConstantFolding{}, ConjunctionSimplification{}, PredicateElimination{}}
}

// Rewrite runs passes over plan until a pass changes nothing.
func (r *Rewriter) Rewrite(plan logical.Operator) error {
	for pass := 0; pass < maxRewritePasses; pass++ {
		changed := false
		err := logical.Walk(plan, func(op logical.Operator) error {
			for _, rule := range r.rules {
				fired, err := rule.Rewrite(op)
				if err != nil {
					return dberr.Wrapf(err, dberr.ErrInternal, "rule %s", rule.Name())
				}
				changed = changed || fired
			}
			return nil
		})
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
	}
	return dberr.Newf(dberr.ErrInternal, "plan rewrite did not settle after %d passes", maxRewritePasses)
}

// ConstantFolding evaluates arithmetic and comparisons whose operands are
// all literals.
type ConstantFolding struct{}

func (ConstantFolding) Name() string { return "constant_folding" }

func (ConstantFolding) Rewrite(op logical.Operator) (bool, error) {
	changed := false
	exprs := op.Expressions()
	for i, e := range exprs {
		if folded, ok := fold(e); ok {
			exprs[i] = folded
			changed = true
		}
	}
	return changed, nil
}

// fold returns the folded form of e and whether anything was folded.
// Expressions whose evaluation fails are left for execution to report.
func fold(e query.Expression) (query.Expression, bool) {
	switch e := e.(type) {
	case *query.ArithmeticExpr:
		left, lchanged := fold(e.Left)
		e.Left = left
		changed := lchanged
		if e.Right != nil {
			right, rchanged := fold(e.Right)
			e.Right = right
			changed = changed || rchanged
		}
		if !isLiteral(e.Left) || (e.Right != nil && !isLiteral(e.Right)) {
			return e, changed
		}
		v, err := e.Eval(nil)
		if err != nil {
			return e, changed
		}
		return query.NewValueExpr(v), true
	case *query.ComparisonExpr:
		left, lchanged := fold(e.Left)
		right, rchanged := fold(e.Right)
		e.Left, e.Right = left, right
		if !isLiteral(left) || !isLiteral(right) {
			return e, lchanged || rchanged
		}
		v, err := e.Eval(nil)
		if err != nil {
			return e, lchanged || rchanged
		}
		return query.NewValueExpr(v), true
	case *query.ConjunctionExpr:
		changed := false
		for i, c := range e.Children {
			if folded, ok := fold(c); ok {
				e.Children[i] = folded
				changed = true
			}
		}
		return e, changed
	default:
		return e, false
	}
}

func isLiteral(e query.Expression) bool {
	_, ok := e.(*query.ValueExpr)
	return ok
}

func boolLiteral(e query.Expression) (value bool, ok bool) {
	lit, isLit := e.(*query.ValueExpr)
	if !isLit || lit.Value.Type() != types.Boolean {
		return false, false
	}
	return lit.Value.AsBool(), true
}

// ConjunctionSimplification drops true members of a conjunction, turns a
// conjunction holding a false member into false and unwraps conjunctions
// of one member.
type ConjunctionSimplification struct{}

func (ConjunctionSimplification) Name() string { return "conjunction_simplification" }

func (ConjunctionSimplification) Rewrite(op logical.Operator) (bool, error) {
	changed := false
	exprs := op.Expressions()
	for i, e := range exprs {
		if simplified, ok := simplify(e); ok {
			exprs[i] = simplified
			changed = true
		}
	}
	return changed, nil
}

func simplify(e query.Expression) (query.Expression, bool) {
	conj, ok := e.(*query.ConjunctionExpr)
	if !ok {
		return e, false
	}
	changed := false
	kept := conj.Children[:0]
	for _, c := range conj.Children {
		if nested, ok := simplify(c); ok {
			c = nested
			changed = true
		}
		v, isBool := boolLiteral(c)
		switch {
		case isBool && !v:
			return query.NewValueExpr(types.NewBoolValue(false)), true
		case isBool && v:
			changed = true
		default:
			kept = append(kept, c)
		}
	}
	conj.Children = kept
	switch len(kept) {
	case 0:
		return query.NewValueExpr(types.NewBoolValue(true)), true
	case 1:
		return kept[0], true
	default:
		return conj, changed
	}
}

// PredicateElimination removes predicates whose condition is the literal
// true.
type PredicateElimination struct{}

func (PredicateElimination) Name() string { return "predicate_elimination" }

func (PredicateElimination) Rewrite(op logical.Operator) (bool, error) {
	changed := false
	children := op.Children()
	for i, child := range children {
		pred, ok := child.(*logical.Predicate)
		if !ok {
			continue
		}
		if v, isBool := boolLiteral(pred.Condition()); isBool && v {
			children[i] = pred.Child()
			changed = true
		}
	}
	return changed, nil
}
