package types

import (
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
)

// Operator is a comparison operator.
type Operator int

const (
	NONE Operator = iota - 1
	EQ
	LE
	NE
	LT
	GE
	GT
	LIKE
	NOTLIKE
)

// String returns the SQL spelling of the operator.
func (op Operator) String() string {
	switch op {
	case EQ:
		return "="
	case NE:
		return "!="
	case LT:
		return "<"
	case LE:
		return "<="
	case GT:
		return ">"
	case GE:
		return ">="
	case LIKE:
		return "LIKE"
	case NOTLIKE:
		return "NOT LIKE"
	default:
		return ""
	}
}

// OperatorFromString parses a comparison operator.
func OperatorFromString(op string) (Operator, error) {
	switch strings.ToUpper(op) {
	case "=":
		return EQ, nil
	case "<>", "!=":
		return NE, nil
	case "<":
		return LT, nil
	case "<=":
		return LE, nil
	case ">":
		return GT, nil
	case ">=":
		return GE, nil
	case "LIKE":
		return LIKE, nil
	case "NOT LIKE":
		return NOTLIKE, nil
	default:
		return NONE, dberr.Newf(dberr.ErrInvalidArgument, "invalid operator: %s", op)
	}
}

// Flip returns the operator with its operands swapped, so that
// a op b holds exactly when b op.Flip() a does.
func (op Operator) Flip() Operator {
	switch op {
	case LT:
		return GT
	case LE:
		return GE
	case GT:
		return LT
	case GE:
		return LE
	default:
		return op
	}
}
