package types

import "github.com/JyotinderSingh/plandb/dberr"

// Compare evaluates lhs op rhs. LIKE and NOT LIKE need string operands.
func Compare(lhs, rhs Value, op Operator) (bool, error) {
	if lhs.IsNull() || rhs.IsNull() {
		return false, nil
	}
	if op == LIKE || op == NOTLIKE {
		if !lhs.typ.IsString() || !rhs.typ.IsString() {
			return false, dberr.Newf(dberr.ErrSchemaFieldTypeMismatch, "%s needs string operands, got %s and %s", op, lhs.typ, rhs.typ)
		}
		matched := Like(lhs.s, rhs.s)
		return matched == (op == LIKE), nil
	}

	c, err := lhs.CompareTo(rhs)
	if err != nil {
		return false, err
	}
	switch op {
	case EQ:
		return c == 0, nil
	case NE:
		return c != 0, nil
	case LT:
		return c < 0, nil
	case LE:
		return c <= 0, nil
	case GT:
		return c > 0, nil
	case GE:
		return c >= 0, nil
	default:
		return false, dberr.Newf(dberr.ErrInvalidArgument, "unsupported operator %d", op)
	}
}

// Like matches s against a SQL pattern where % matches any run of
// characters and _ matches exactly one.
func Like(s, pattern string) bool {
	str, pat := []rune(s), []rune(pattern)
	si, pi := 0, 0
	starPi, starSi := -1, 0
	for si < len(str) {
		switch {
		case pi < len(pat) && (pat[pi] == '_' || pat[pi] == str[si]):
			si++
			pi++
		case pi < len(pat) && pat[pi] == '%':
			starPi, starSi = pi, si
			pi++
		case starPi >= 0:
			starSi++
			si = starSi
			pi = starPi + 1
		default:
			return false
		}
	}
	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}
	return pi == len(pat)
}
