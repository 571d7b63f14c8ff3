package parse

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError indicates invalid syntax encountered by the lexer or parser.
type SyntaxError struct {
	Message  string
	Position int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Position, e.Message)
}

// TokenType enumerates all recognized token types.
type TokenType int

const (
	TTDelimiter TokenType = iota
	TTNumber
	TTFloat
	TTString
	TTWord
	TTBoolean
	TTOperator
	TTEOF
)

// Token holds data about a single token.
type Token struct {
	Type      TokenType
	StringVal string  // for string/word tokens or operator text
	NumVal    int     // for integer tokens
	FloatVal  float64 // for float tokens
	BoolVal   bool    // for boolean tokens
	Rune      rune    // for delimiter tokens (e.g. ',', '(', ')', ...)
	Position  int
}

// Lexer processes an input string and produces tokens on demand.
type Lexer struct {
	input        string
	position     int
	currentToken Token
	err          error
}

var keywords = map[string]struct{}{}

func init() {
	for _, kw := range []string{
		"select", "from", "where", "and", "order", "by", "asc", "desc", "inner", "join", "on", "as",
		"insert", "into", "values", "delete", "update", "set",
		"create", "drop", "table", "tables", "index", "unique", "show",
		"int", "integer", "float", "char", "varchar", "date", "text", "bool", "boolean",
		"like", "not", "analyze", "explain", "calc", "begin", "commit", "rollback", "exit",
	} {
		keywords[kw] = struct{}{}
	}
}

// NewLexer creates a new Lexer from the given SQL text.
func NewLexer(s string) *Lexer {
	l := &Lexer{input: s}
	l.err = l.nextToken()
	return l
}

// Err returns the first error met while scanning ahead.
func (l *Lexer) Err() error {
	return l.err
}

//----------------------------
// Public "match" methods
//----------------------------

// MatchDelim returns true if the current token is the specified delimiter.
func (l *Lexer) MatchDelim(d rune) bool {
	return l.currentToken.Type == TTDelimiter && l.currentToken.Rune == d
}

// MatchIntConstant returns true if the current token is an integer.
func (l *Lexer) MatchIntConstant() bool {
	return l.currentToken.Type == TTNumber
}

// MatchFloatConstant returns true if the current token is a decimal number.
func (l *Lexer) MatchFloatConstant() bool {
	return l.currentToken.Type == TTFloat
}

// MatchStringConstant returns true if the current token is a string constant.
func (l *Lexer) MatchStringConstant() bool {
	return l.currentToken.Type == TTString
}

// MatchKeyword returns true if the current token is the specified keyword.
func (l *Lexer) MatchKeyword(w string) bool {
	return l.currentToken.Type == TTWord && l.currentToken.StringVal == strings.ToLower(w)
}

// MatchId returns true if the current token is a legal identifier (non-keyword).
func (l *Lexer) MatchId() bool {
	if l.currentToken.Type != TTWord {
		return false
	}
	_, isKeyword := keywords[l.currentToken.StringVal]
	return !isKeyword
}

// MatchBooleanConstant returns true if the current token is a boolean (true/false).
func (l *Lexer) MatchBooleanConstant() bool {
	return l.currentToken.Type == TTBoolean
}

// MatchOperator returns true if the current token is the given comparison operator.
func (l *Lexer) MatchOperator(op string) bool {
	return l.currentToken.Type == TTOperator && l.currentToken.StringVal == op
}

// MatchAnyOperator returns true if the current token is any comparison operator.
func (l *Lexer) MatchAnyOperator() bool {
	return l.currentToken.Type == TTOperator
}

// AtEOF returns true when the input is exhausted.
func (l *Lexer) AtEOF() bool {
	return l.currentToken.Type == TTEOF
}

//----------------------------
// Public "eat" methods
//----------------------------

func (l *Lexer) EatDelim(d rune) error {
	if !l.MatchDelim(d) {
		return l.errorf("expected '%c'", d)
	}
	return l.nextToken()
}

func (l *Lexer) EatIntConstant() (int, error) {
	if !l.MatchIntConstant() {
		return 0, l.errorf("expected integer constant")
	}
	val := l.currentToken.NumVal
	if err := l.nextToken(); err != nil {
		return 0, err
	}
	return val, nil
}

func (l *Lexer) EatFloatConstant() (float64, error) {
	if !l.MatchFloatConstant() {
		return 0, l.errorf("expected decimal constant")
	}
	val := l.currentToken.FloatVal
	if err := l.nextToken(); err != nil {
		return 0, err
	}
	return val, nil
}

func (l *Lexer) EatStringConstant() (string, error) {
	if !l.MatchStringConstant() {
		return "", l.errorf("expected string constant")
	}
	val := l.currentToken.StringVal
	if err := l.nextToken(); err != nil {
		return "", err
	}
	return val, nil
}

func (l *Lexer) EatKeyword(w string) error {
	if !l.MatchKeyword(w) {
		return l.errorf("expected keyword '%s'", strings.ToUpper(w))
	}
	return l.nextToken()
}

func (l *Lexer) EatId() (string, error) {
	if !l.MatchId() {
		return "", l.errorf("expected identifier")
	}
	val := l.currentToken.StringVal
	if err := l.nextToken(); err != nil {
		return "", err
	}
	return val, nil
}

func (l *Lexer) EatBooleanConstant() (bool, error) {
	if !l.MatchBooleanConstant() {
		return false, l.errorf("expected boolean constant (true/false)")
	}
	val := l.currentToken.BoolVal
	if err := l.nextToken(); err != nil {
		return false, err
	}
	return val, nil
}

// EatOperator consumes the current comparison operator and returns its text.
func (l *Lexer) EatOperator() (string, error) {
	if !l.MatchAnyOperator() {
		return "", l.errorf("expected comparison operator (e.g. =, >, >=)")
	}
	op := l.currentToken.StringVal
	if err := l.nextToken(); err != nil {
		return "", err
	}
	return op, nil
}

func (l *Lexer) errorf(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if l.currentToken.Type == TTEOF {
		msg += ", found end of input"
	}
	return &SyntaxError{Message: msg, Position: l.currentToken.Position}
}

//----------------------------
// Private methods
//----------------------------

// nextToken advances to the next token and sets l.currentToken accordingly.
func (l *Lexer) nextToken() error {
	l.skipWhitespace()
	start := l.position
	if l.position >= len(l.input) {
		l.currentToken = Token{Type: TTEOF, Position: start}
		return nil
	}

	r, width := utf8.DecodeRuneInString(l.input[l.position:])

	if isOperatorStart(r) {
		op, err := l.scanOperator()
		if err != nil {
			return err
		}
		l.currentToken = Token{Type: TTOperator, StringVal: op, Position: start}
		return nil
	}

	switch {
	case r == '\'' || r == '"':
		strVal, err := l.scanString(r)
		if err != nil {
			return err
		}
		l.currentToken = Token{Type: TTString, StringVal: strVal, Position: start}
		return nil

	case isDelimiter(r):
		l.position += width
		l.currentToken = Token{Type: TTDelimiter, Rune: r, Position: start}
		return nil

	case unicode.IsDigit(r):
		return l.scanNumber()

	case unicode.IsLetter(r) || r == '_':
		wordValLower := strings.ToLower(l.scanWord())
		if wordValLower == "true" || wordValLower == "false" {
			l.currentToken = Token{Type: TTBoolean, BoolVal: wordValLower == "true", Position: start}
			return nil
		}
		l.currentToken = Token{Type: TTWord, StringVal: wordValLower, Position: start}
		return nil
	}

	return &SyntaxError{Message: fmt.Sprintf("unexpected character '%c'", r), Position: start}
}

// scanNumber scans an integer or a decimal number.
func (l *Lexer) scanNumber() error {
	start := l.position
	seenDot := false
	for l.position < len(l.input) {
		r := l.input[l.position]
		if r == '.' && !seenDot {
			seenDot = true
		} else if r < '0' || r > '9' {
			break
		}
		l.position++
	}
	text := l.input[start:l.position]
	if seenDot {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return &SyntaxError{Message: fmt.Sprintf("invalid number '%s'", text), Position: start}
		}
		l.currentToken = Token{Type: TTFloat, FloatVal: f, Position: start}
		return nil
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return &SyntaxError{Message: fmt.Sprintf("invalid number '%s'", text), Position: start}
	}
	l.currentToken = Token{Type: TTNumber, NumVal: n, Position: start}
	return nil
}

// scanOperator checks for either single- or multi-character operators
// like '=', '>', '<', '>=', '<=', '!=', '<>'.
func (l *Lexer) scanOperator() (string, error) {
	r, width := utf8.DecodeRuneInString(l.input[l.position:])
	l.position += width

	if l.position < len(l.input) {
		r2, w2 := utf8.DecodeRuneInString(l.input[l.position:])
		if (r == '>' && r2 == '=') || (r == '<' && r2 == '=') ||
			(r == '!' && r2 == '=') || (r == '<' && r2 == '>') {
			l.position += w2
			return string([]rune{r, r2}), nil
		}
	}
	if r == '!' {
		return "", &SyntaxError{Message: "expected '=' after '!'", Position: l.position - width}
	}
	return string(r), nil
}

// scanString scans a string literal quoted by quote. A doubled quote
// inside the literal stands for one quote character.
func (l *Lexer) scanString(quote rune) (string, error) {
	start := l.position
	l.position++
	var sb strings.Builder

	for l.position < len(l.input) {
		r, width := utf8.DecodeRuneInString(l.input[l.position:])
		l.position += width
		if r == quote {
			if next, w := utf8.DecodeRuneInString(l.input[l.position:]); next == quote {
				sb.WriteRune(quote)
				l.position += w
				continue
			}
			return sb.String(), nil
		}
		sb.WriteRune(r)
	}
	return "", &SyntaxError{Message: "unterminated string constant", Position: start}
}

// scanWord scans an identifier-like token (letters, digits, underscores).
func (l *Lexer) scanWord() string {
	start := l.position
	for l.position < len(l.input) {
		r, width := utf8.DecodeRuneInString(l.input[l.position:])
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			break
		}
		l.position += width
	}
	return l.input[start:l.position]
}

// skipWhitespace advances over whitespace and "--" line comments.
func (l *Lexer) skipWhitespace() {
	for l.position < len(l.input) {
		if strings.HasPrefix(l.input[l.position:], "--") {
			end := strings.IndexByte(l.input[l.position:], '\n')
			if end < 0 {
				l.position = len(l.input)
				return
			}
			l.position += end + 1
			continue
		}
		r, width := utf8.DecodeRuneInString(l.input[l.position:])
		if !unicode.IsSpace(r) {
			break
		}
		l.position += width
	}
}

// isOperatorStart returns true if this rune starts a comparison operator.
func isOperatorStart(r rune) bool {
	switch r {
	case '<', '>', '=', '!':
		return true
	default:
		return false
	}
}

// isDelimiter checks if a rune is treated as a single-character delimiter.
func isDelimiter(r rune) bool {
	switch r {
	case ',', '(', ')', '.', ';', '+', '-', '*', '/':
		return true
	default:
		return false
	}
}
