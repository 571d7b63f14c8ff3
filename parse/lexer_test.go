package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_MatchDelim(t *testing.T) {
	lexer := NewLexer(",")
	assert.True(t, lexer.MatchDelim(','), "Expected true for matching delimiter")
	assert.False(t, lexer.MatchDelim(';'), "Expected false for non-matching delimiter")
}

func TestLexer_MatchNumbers(t *testing.T) {
	lexer := NewLexer("42")
	assert.True(t, lexer.MatchIntConstant())
	assert.False(t, lexer.MatchFloatConstant())

	lexer = NewLexer("4.25")
	assert.True(t, lexer.MatchFloatConstant())
	val, err := lexer.EatFloatConstant()
	require.NoError(t, err)
	assert.Equal(t, 4.25, val)
}

func TestLexer_MatchKeyword(t *testing.T) {
	lexer := NewLexer("SELECT")
	assert.True(t, lexer.MatchKeyword("select"), "Expected true for matching keyword")
	assert.False(t, lexer.MatchKeyword("insert"), "Expected false for non-matching keyword")
	assert.False(t, lexer.MatchId(), "Keywords are not identifiers")
}

func TestLexer_MatchBooleanConstant(t *testing.T) {
	lexer := NewLexer("TRUE")
	assert.True(t, lexer.MatchBooleanConstant())
	val, err := lexer.EatBooleanConstant()
	require.NoError(t, err)
	assert.True(t, val)
}

func TestLexer_Operators(t *testing.T) {
	for _, op := range []string{"=", "<", ">", "<=", ">=", "!=", "<>"} {
		lexer := NewLexer(op + " 1")
		assert.True(t, lexer.MatchOperator(op), "operator %s", op)
		got, err := lexer.EatOperator()
		require.NoError(t, err)
		assert.Equal(t, op, got)
		assert.True(t, lexer.MatchIntConstant())
	}

	lexer := NewLexer("! 1")
	require.Error(t, lexer.Err())
}

func TestLexer_EatStringConstant(t *testing.T) {
	lexer := NewLexer("'it''s'")
	val, err := lexer.EatStringConstant()
	require.NoError(t, err)
	assert.Equal(t, "it's", val)
	assert.True(t, lexer.AtEOF())

	lexer = NewLexer(`"Mixed Case"`)
	val, err = lexer.EatStringConstant()
	require.NoError(t, err)
	assert.Equal(t, "Mixed Case", val, "string constants keep their case")
}

func TestLexer_UnterminatedString(t *testing.T) {
	lexer := NewLexer("'oops")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, lexer.Err(), &syntaxErr)
	assert.Equal(t, 0, syntaxErr.Position)
}

func TestLexer_EatIdLowercases(t *testing.T) {
	lexer := NewLexer("Orders.Amount")
	id, err := lexer.EatId()
	require.NoError(t, err)
	assert.Equal(t, "orders", id)
	require.NoError(t, lexer.EatDelim('.'))
	id, err = lexer.EatId()
	require.NoError(t, err)
	assert.Equal(t, "amount", id)
}

func TestLexer_SkipsComments(t *testing.T) {
	lexer := NewLexer("-- leading comment\n  select -- trailing\n")
	require.NoError(t, lexer.EatKeyword("select"))
	assert.True(t, lexer.AtEOF())
}

func TestLexer_EatErrors(t *testing.T) {
	lexer := NewLexer("select")
	_, err := lexer.EatId()
	assert.Error(t, err)

	_, err = lexer.EatIntConstant()
	assert.Error(t, err)

	err = lexer.EatKeyword("from")
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Contains(t, syntaxErr.Message, "FROM")
}

func TestLexer_ArithmeticDelims(t *testing.T) {
	lexer := NewLexer("1+2*(3-4)/5")
	var runes []rune
	for !lexer.AtEOF() {
		if lexer.MatchIntConstant() {
			_, err := lexer.EatIntConstant()
			require.NoError(t, err)
			continue
		}
		r := lexer.currentToken.Rune
		require.NoError(t, lexer.EatDelim(r))
		runes = append(runes, r)
	}
	assert.Equal(t, []rune{'+', '*', '(', '-', ')', '/'}, runes)
}
