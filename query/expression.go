package query

import (
	"fmt"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/types"
)

// Expression is a scalar expression evaluated against a tuple.
type Expression interface {
	Eval(t Tuple) (types.Value, error)
	// ValueType is the type Eval produces, Undefined when unknown.
	ValueType() types.FieldType
	String() string
}

// FieldExpr reads one field of the input tuple. Table is empty until the
// planner binds the field to a table.
type FieldExpr struct {
	Table string
	Field string
	Type  types.FieldType
}

func (e *FieldExpr) Eval(t Tuple) (types.Value, error) {
	return t.Find(e.Spec())
}

func (e *FieldExpr) ValueType() types.FieldType { return e.Type }

// Spec returns the tuple cell read by the expression.
func (e *FieldExpr) Spec() FieldSpec {
	return FieldSpec{Table: e.Table, Field: e.Field}
}

func (e *FieldExpr) String() string {
	return e.Spec().String()
}

// ValueExpr is a literal.
type ValueExpr struct {
	Value types.Value
}

func NewValueExpr(v types.Value) *ValueExpr {
	return &ValueExpr{Value: v}
}

func (e *ValueExpr) Eval(Tuple) (types.Value, error) { return e.Value, nil }

func (e *ValueExpr) ValueType() types.FieldType { return e.Value.Type() }

func (e *ValueExpr) String() string {
	if e.Value.Type().IsString() {
		return "'" + e.Value.AsString() + "'"
	}
	return e.Value.String()
}

// ComparisonExpr compares two expressions and yields a boolean.
type ComparisonExpr struct {
	Op          types.Operator
	Left, Right Expression
}

func (e *ComparisonExpr) Eval(t Tuple) (types.Value, error) {
	lhs, err := e.Left.Eval(t)
	if err != nil {
		return types.Value{}, err
	}
	rhs, err := e.Right.Eval(t)
	if err != nil {
		return types.Value{}, err
	}
	ok, err := types.Compare(lhs, rhs, e.Op)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewBoolValue(ok), nil
}

func (e *ComparisonExpr) ValueType() types.FieldType { return types.Boolean }

func (e *ComparisonExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.Left, e.Op, e.Right)
}

// ConjunctionExpr is true when every child is true. An empty conjunction
// is true.
type ConjunctionExpr struct {
	Children []Expression
}

func (e *ConjunctionExpr) Eval(t Tuple) (types.Value, error) {
	for _, child := range e.Children {
		v, err := child.Eval(t)
		if err != nil {
			return types.Value{}, err
		}
		if !v.AsBool() {
			return types.NewBoolValue(false), nil
		}
	}
	return types.NewBoolValue(true), nil
}

func (e *ConjunctionExpr) ValueType() types.FieldType { return types.Boolean }

func (e *ConjunctionExpr) String() string {
	parts := make([]string, len(e.Children))
	for i, c := range e.Children {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}

// ArithOp is an arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Negate
)

func (op ArithOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub, Negate:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	default:
		return "?"
	}
}

// ArithmeticExpr applies Op to Left and Right. Negate has no Right.
// Integer operands give an integer except for division; dividing by zero
// gives NULL.
type ArithmeticExpr struct {
	Op          ArithOp
	Left, Right Expression
}

func (e *ArithmeticExpr) Eval(t Tuple) (types.Value, error) {
	lhs, err := e.Left.Eval(t)
	if err != nil {
		return types.Value{}, err
	}
	if e.Op == Negate {
		return Arithmetic(Sub, types.NewIntValue(0), lhs)
	}
	rhs, err := e.Right.Eval(t)
	if err != nil {
		return types.Value{}, err
	}
	return Arithmetic(e.Op, lhs, rhs)
}

func (e *ArithmeticExpr) ValueType() types.FieldType {
	if e.Op == Negate {
		return e.Left.ValueType()
	}
	if e.Op != Div && e.Left.ValueType() == types.Integer && e.Right.ValueType() == types.Integer {
		return types.Integer
	}
	return types.Float
}

func (e *ArithmeticExpr) String() string {
	if e.Op == Negate {
		return "-" + e.Left.String()
	}
	return fmt.Sprintf("(%s %s %s)", e.Left, e.Op, e.Right)
}

// Arithmetic applies a binary operator to two values.
func Arithmetic(op ArithOp, lhs, rhs types.Value) (types.Value, error) {
	if lhs.IsNull() || rhs.IsNull() {
		return types.Value{}, nil
	}
	if lhs.Type() != types.Integer && lhs.Type() != types.Float ||
		rhs.Type() != types.Integer && rhs.Type() != types.Float {
		return types.Value{}, dberr.Newf(dberr.ErrSchemaFieldTypeMismatch, "cannot apply %s to %s and %s", op, lhs.Type(), rhs.Type())
	}
	if op != Div && lhs.Type() == types.Integer && rhs.Type() == types.Integer {
		a, b := lhs.AsInt(), rhs.AsInt()
		switch op {
		case Add:
			return types.NewIntValue(a + b), nil
		case Sub:
			return types.NewIntValue(a - b), nil
		case Mul:
			return types.NewIntValue(a * b), nil
		}
	}
	a, b := lhs.AsFloat(), rhs.AsFloat()
	switch op {
	case Add:
		return types.NewFloatValue(a + b), nil
	case Sub:
		return types.NewFloatValue(a - b), nil
	case Mul:
		return types.NewFloatValue(a * b), nil
	case Div:
		if b == 0 {
			return types.Value{}, nil
		}
		return types.NewFloatValue(a / b), nil
	default:
		return types.Value{}, dberr.Newf(dberr.ErrInvalidArgument, "unknown arithmetic operator %d", op)
	}
}

// Size counts the nodes of an expression tree.
func Size(e Expression) int {
	switch e := e.(type) {
	case *ComparisonExpr:
		return 1 + Size(e.Left) + Size(e.Right)
	case *ConjunctionExpr:
		n := 1
		for _, c := range e.Children {
			n += Size(c)
		}
		return n
	case *ArithmeticExpr:
		if e.Right == nil {
			return 1 + Size(e.Left)
		}
		return 1 + Size(e.Left) + Size(e.Right)
	default:
		return 1
	}
}

// Fields returns the field references of an expression in evaluation order.
func Fields(e Expression) []*FieldExpr {
	var out []*FieldExpr
	var walk func(Expression)
	walk = func(e Expression) {
		switch e := e.(type) {
		case *FieldExpr:
			out = append(out, e)
		case *ComparisonExpr:
			walk(e.Left)
			walk(e.Right)
		case *ConjunctionExpr:
			for _, c := range e.Children {
				walk(c)
			}
		case *ArithmeticExpr:
			walk(e.Left)
			if e.Right != nil {
				walk(e.Right)
			}
		}
	}
	walk(e)
	return out
}
