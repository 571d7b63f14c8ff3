// Package parse turns SQL text into statement syntax trees.
package parse

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/cockroachdb/errors"
)

type Parser struct {
	lex *Lexer
}

func NewParser(s string) *Parser {
	return &Parser{
		lex: NewLexer(s),
	}
}

// Parse parses a single statement, optionally terminated by a semicolon.
func Parse(sql string) (Statement, error) {
	p := NewParser(sql)
	stmt, err := p.Statement()
	if err != nil {
		return nil, markSyntax(err, sql)
	}
	if p.lex.MatchDelim(';') {
		if err := p.lex.EatDelim(';'); err != nil {
			return nil, markSyntax(err, sql)
		}
	}
	if !p.lex.AtEOF() {
		return nil, markSyntax(p.lex.errorf("unexpected input after statement"), sql)
	}
	return stmt, nil
}

// ParseAll parses a semicolon separated list of statements.
func ParseAll(sql string) ([]Statement, error) {
	p := NewParser(sql)
	var stmts []Statement
	for {
		for p.lex.MatchDelim(';') {
			if err := p.lex.EatDelim(';'); err != nil {
				return nil, markSyntax(err, sql)
			}
		}
		if p.lex.AtEOF() {
			return stmts, nil
		}
		stmt, err := p.Statement()
		if err != nil {
			return nil, markSyntax(err, sql)
		}
		stmts = append(stmts, stmt)
		if !p.lex.AtEOF() && !p.lex.MatchDelim(';') {
			return nil, markSyntax(p.lex.errorf("expected ';' between statements"), sql)
		}
	}
}

func markSyntax(err error, sql string) error {
	return dberr.Wrapf(err, dberr.ErrInvalidArgument, "parse %q", sql)
}

// Statement parses the statement at the current position.
func (p *Parser) Statement() (Statement, error) {
	if err := p.lex.Err(); err != nil {
		return nil, err
	}
	switch {
	case p.lex.MatchKeyword("select"):
		return p.Query()
	case p.lex.MatchKeyword("insert"):
		return p.insert()
	case p.lex.MatchKeyword("update"):
		return p.modify()
	case p.lex.MatchKeyword("delete"):
		return p.delete()
	case p.lex.MatchKeyword("create"):
		return p.create()
	case p.lex.MatchKeyword("drop"):
		return p.dropTable()
	case p.lex.MatchKeyword("show"):
		if err := p.lex.EatKeyword("show"); err != nil {
			return nil, err
		}
		if err := p.lex.EatKeyword("tables"); err != nil {
			return nil, err
		}
		return NewCommandData(KindShowTables), nil
	case p.lex.MatchKeyword("desc"):
		if err := p.lex.EatKeyword("desc"); err != nil {
			return nil, err
		}
		name, err := p.lex.EatId()
		if err != nil {
			return nil, err
		}
		return NewTableData(KindDescTable, name), nil
	case p.lex.MatchKeyword("analyze"):
		return p.analyze()
	case p.lex.MatchKeyword("explain"):
		if err := p.lex.EatKeyword("explain"); err != nil {
			return nil, err
		}
		child, err := p.Statement()
		if err != nil {
			return nil, err
		}
		return NewExplainData(child), nil
	case p.lex.MatchKeyword("calc"):
		return p.calc()
	}
	for _, cmd := range []struct {
		word string
		kind StatementKind
	}{{"begin", KindBegin}, {"commit", KindCommit}, {"rollback", KindRollback}, {"exit", KindExit}} {
		if p.lex.MatchKeyword(cmd.word) {
			if err := p.lex.EatKeyword(cmd.word); err != nil {
				return nil, err
			}
			return NewCommandData(cmd.kind), nil
		}
	}
	return nil, p.lex.errorf("unknown statement")
}

// -- Expressions and conditions --

func (p *Parser) constant() (types.Value, error) {
	switch {
	case p.lex.MatchStringConstant():
		s, err := p.lex.EatStringConstant()
		return types.NewStringValue(s), err
	case p.lex.MatchIntConstant():
		n, err := p.lex.EatIntConstant()
		return types.NewIntValue(n), err
	case p.lex.MatchFloatConstant():
		f, err := p.lex.EatFloatConstant()
		return types.NewFloatValue(f), err
	case p.lex.MatchBooleanConstant():
		b, err := p.lex.EatBooleanConstant()
		return types.NewBoolValue(b), err
	}
	return types.Value{}, p.lex.errorf("expected constant")
}

// fieldRef parses "field" or "table.field".
func (p *Parser) fieldRef() (*query.FieldExpr, error) {
	name, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if !p.lex.MatchDelim('.') {
		return &query.FieldExpr{Field: name}, nil
	}
	if err := p.lex.EatDelim('.'); err != nil {
		return nil, err
	}
	field, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	return &query.FieldExpr{Table: name, Field: field}, nil
}

func (p *Parser) expression() (query.Expression, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.lex.MatchDelim('+') || p.lex.MatchDelim('-') {
		op := query.Add
		if p.lex.MatchDelim('-') {
			op = query.Sub
		}
		if err := p.lex.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &query.ArithmeticExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) term() (query.Expression, error) {
	left, err := p.factor()
	if err != nil {
		return nil, err
	}
	for p.lex.MatchDelim('*') || p.lex.MatchDelim('/') {
		op := query.Mul
		if p.lex.MatchDelim('/') {
			op = query.Div
		}
		if err := p.lex.nextToken(); err != nil {
			return nil, err
		}
		right, err := p.factor()
		if err != nil {
			return nil, err
		}
		left = &query.ArithmeticExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) factor() (query.Expression, error) {
	switch {
	case p.lex.MatchDelim('-'):
		if err := p.lex.EatDelim('-'); err != nil {
			return nil, err
		}
		inner, err := p.factor()
		if err != nil {
			return nil, err
		}
		// negative literals stay literals
		if v, ok := inner.(*query.ValueExpr); ok {
			switch v.Value.Type() {
			case types.Integer:
				return query.NewValueExpr(types.NewIntValue(-v.Value.AsInt())), nil
			case types.Float:
				return query.NewValueExpr(types.NewFloatValue(-v.Value.AsFloat())), nil
			}
		}
		return &query.ArithmeticExpr{Op: query.Negate, Left: inner}, nil
	case p.lex.MatchDelim('('):
		if err := p.lex.EatDelim('('); err != nil {
			return nil, err
		}
		inner, err := p.expression()
		if err != nil {
			return nil, err
		}
		return inner, p.lex.EatDelim(')')
	case p.lex.MatchId():
		return p.fieldRef()
	}
	v, err := p.constant()
	if err != nil {
		return nil, err
	}
	return query.NewValueExpr(v), nil
}

func (p *Parser) comparison() (*query.ComparisonExpr, error) {
	lhs, err := p.expression()
	if err != nil {
		return nil, err
	}

	var op types.Operator
	switch {
	case p.lex.MatchKeyword("like"):
		if err := p.lex.EatKeyword("like"); err != nil {
			return nil, err
		}
		op = types.LIKE
	case p.lex.MatchKeyword("not"):
		if err := p.lex.EatKeyword("not"); err != nil {
			return nil, err
		}
		if err := p.lex.EatKeyword("like"); err != nil {
			return nil, err
		}
		op = types.NOTLIKE
	default:
		text, err := p.lex.EatOperator()
		if err != nil {
			return nil, err
		}
		if op, err = types.OperatorFromString(text); err != nil {
			return nil, err
		}
	}

	rhs, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &query.ComparisonExpr{Op: op, Left: lhs, Right: rhs}, nil
}

// conditions parses comparisons joined by AND.
func (p *Parser) conditions() ([]*query.ComparisonExpr, error) {
	var conds []*query.ComparisonExpr
	for {
		c, err := p.comparison()
		if err != nil {
			return nil, err
		}
		conds = append(conds, c)
		if !p.lex.MatchKeyword("and") {
			return conds, nil
		}
		if err := p.lex.EatKeyword("and"); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) optionalWhere() ([]*query.ComparisonExpr, error) {
	if !p.lex.MatchKeyword("where") {
		return nil, nil
	}
	if err := p.lex.EatKeyword("where"); err != nil {
		return nil, err
	}
	return p.conditions()
}

// -- Queries --

func (p *Parser) Query() (*QueryData, error) {
	if err := p.lex.EatKeyword("select"); err != nil {
		return nil, err
	}
	items, err := p.selectList()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("from"); err != nil {
		return nil, err
	}
	tables, joinConds, err := p.tableList()
	if err != nil {
		return nil, err
	}
	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	conds = append(joinConds, conds...)

	var orderBy []OrderItem
	if p.lex.MatchKeyword("order") {
		if orderBy, err = p.orderBy(); err != nil {
			return nil, err
		}
	}
	return NewQueryData(items, tables, conds, orderBy), nil
}

func (p *Parser) selectList() ([]SelectItem, error) {
	var items []SelectItem
	for {
		item, err := p.selectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.lex.MatchDelim(',') {
			return items, nil
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) selectItem() (SelectItem, error) {
	if p.lex.MatchDelim('*') {
		return SelectItem{Field: "*"}, p.lex.EatDelim('*')
	}
	name, err := p.lex.EatId()
	if err != nil {
		return SelectItem{}, err
	}
	if !p.lex.MatchDelim('.') {
		return SelectItem{Field: name}, nil
	}
	if err := p.lex.EatDelim('.'); err != nil {
		return SelectItem{}, err
	}
	if p.lex.MatchDelim('*') {
		return SelectItem{Table: name, Field: "*"}, p.lex.EatDelim('*')
	}
	field, err := p.lex.EatId()
	if err != nil {
		return SelectItem{}, err
	}
	return SelectItem{Table: name, Field: field}, nil
}

// tableList parses the FROM clause. Conditions of INNER JOIN ... ON are
// returned separately.
func (p *Parser) tableList() ([]TableRef, []*query.ComparisonExpr, error) {
	var tables []TableRef
	var conds []*query.ComparisonExpr

	ref, err := p.tableRef()
	if err != nil {
		return nil, nil, err
	}
	tables = append(tables, ref)
	for {
		switch {
		case p.lex.MatchDelim(','):
			if err := p.lex.EatDelim(','); err != nil {
				return nil, nil, err
			}
		case p.lex.MatchKeyword("inner"), p.lex.MatchKeyword("join"):
			if p.lex.MatchKeyword("inner") {
				if err := p.lex.EatKeyword("inner"); err != nil {
					return nil, nil, err
				}
			}
			if err := p.lex.EatKeyword("join"); err != nil {
				return nil, nil, err
			}
		default:
			return tables, conds, nil
		}

		ref, err := p.tableRef()
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, ref)
		if p.lex.MatchKeyword("on") {
			if err := p.lex.EatKeyword("on"); err != nil {
				return nil, nil, err
			}
			on, err := p.conditions()
			if err != nil {
				return nil, nil, err
			}
			conds = append(conds, on...)
		}
	}
}

func (p *Parser) tableRef() (TableRef, error) {
	name, err := p.lex.EatId()
	if err != nil {
		return TableRef{}, err
	}
	ref := TableRef{Name: name}
	if p.lex.MatchKeyword("as") {
		if err := p.lex.EatKeyword("as"); err != nil {
			return TableRef{}, err
		}
		alias, err := p.lex.EatId()
		if err != nil {
			return TableRef{}, err
		}
		ref.Alias = alias
	} else if p.lex.MatchId() {
		ref.Alias, _ = p.lex.EatId()
	}
	return ref, nil
}

func (p *Parser) orderBy() ([]OrderItem, error) {
	if err := p.lex.EatKeyword("order"); err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("by"); err != nil {
		return nil, err
	}
	var items []OrderItem
	for {
		f, err := p.fieldRef()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Field: f}
		if p.lex.MatchKeyword("desc") {
			item.Desc = true
			_ = p.lex.EatKeyword("desc")
		} else if p.lex.MatchKeyword("asc") {
			_ = p.lex.EatKeyword("asc")
		}
		items = append(items, item)
		if !p.lex.MatchDelim(',') {
			return items, nil
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
}

// -- Data modification --

func (p *Parser) delete() (*DeleteData, error) {
	if err := p.lex.EatKeyword("delete"); err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("from"); err != nil {
		return nil, err
	}
	tableName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	return NewDeleteData(tableName, conds), nil
}

func (p *Parser) insert() (*InsertData, error) {
	if err := p.lex.EatKeyword("insert"); err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("into"); err != nil {
		return nil, err
	}
	tableName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	var fields []string
	if p.lex.MatchDelim('(') {
		if err := p.lex.EatDelim('('); err != nil {
			return nil, err
		}
		if fields, err = p.idList(); err != nil {
			return nil, err
		}
		if err := p.lex.EatDelim(')'); err != nil {
			return nil, err
		}
	}
	if err := p.lex.EatKeyword("values"); err != nil {
		return nil, err
	}
	var rows [][]query.Expression
	for {
		if err := p.lex.EatDelim('('); err != nil {
			return nil, err
		}
		row, err := p.expressionList()
		if err != nil {
			return nil, err
		}
		if err := p.lex.EatDelim(')'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		if !p.lex.MatchDelim(',') {
			return NewInsertData(tableName, fields, rows), nil
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) idList() ([]string, error) {
	var ids []string
	for {
		id, err := p.lex.EatId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
		if !p.lex.MatchDelim(',') {
			return ids, nil
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) expressionList() ([]query.Expression, error) {
	var exprs []query.Expression
	for {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.lex.MatchDelim(',') {
			return exprs, nil
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) modify() (*ModifyData, error) {
	if err := p.lex.EatKeyword("update"); err != nil {
		return nil, err
	}
	tableName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("set"); err != nil {
		return nil, err
	}
	fieldName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if !p.lex.MatchOperator("=") {
		return nil, p.lex.errorf("expected '='")
	}
	if _, err := p.lex.EatOperator(); err != nil {
		return nil, err
	}
	newVal, err := p.expression()
	if err != nil {
		return nil, err
	}
	conds, err := p.optionalWhere()
	if err != nil {
		return nil, err
	}
	return NewModifyData(tableName, fieldName, newVal, conds), nil
}

// -- Schema statements --

func (p *Parser) create() (Statement, error) {
	if err := p.lex.EatKeyword("create"); err != nil {
		return nil, err
	}
	if p.lex.MatchKeyword("table") {
		return p.createTable()
	}
	unique := false
	if p.lex.MatchKeyword("unique") {
		unique = true
		if err := p.lex.EatKeyword("unique"); err != nil {
			return nil, err
		}
	}
	return p.createIndex(unique)
}

func (p *Parser) createTable() (*CreateTableData, error) {
	if err := p.lex.EatKeyword("table"); err != nil {
		return nil, err
	}
	tableName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatDelim('('); err != nil {
		return nil, err
	}
	var fields []table.FieldDef
	for {
		def, err := p.fieldDef()
		if err != nil {
			return nil, err
		}
		fields = append(fields, def)
		if !p.lex.MatchDelim(',') {
			break
		}
		if err := p.lex.EatDelim(','); err != nil {
			return nil, err
		}
	}
	if err := p.lex.EatDelim(')'); err != nil {
		return nil, err
	}
	return NewCreateTableData(tableName, fields), nil
}

func (p *Parser) fieldDef() (table.FieldDef, error) {
	name, err := p.lex.EatId()
	if err != nil {
		return table.FieldDef{}, err
	}
	if p.lex.currentToken.Type != TTWord {
		return table.FieldDef{}, p.lex.errorf("expected field type")
	}
	typ, ok := types.ParseFieldType(p.lex.currentToken.StringVal)
	if !ok {
		return table.FieldDef{}, p.lex.errorf("unknown field type '%s'", p.lex.currentToken.StringVal)
	}
	if err := p.lex.nextToken(); err != nil {
		return table.FieldDef{}, err
	}
	def := table.FieldDef{Name: name, Type: typ}
	if typ == types.Varchar {
		if err := p.lex.EatDelim('('); err != nil {
			return table.FieldDef{}, err
		}
		if def.Length, err = p.lex.EatIntConstant(); err != nil {
			return table.FieldDef{}, err
		}
		if err := p.lex.EatDelim(')'); err != nil {
			return table.FieldDef{}, err
		}
	}
	return def, nil
}

func (p *Parser) createIndex(unique bool) (*CreateIndexData, error) {
	if err := p.lex.EatKeyword("index"); err != nil {
		return nil, err
	}
	indexName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("on"); err != nil {
		return nil, err
	}
	tableName, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatDelim('('); err != nil {
		return nil, err
	}
	fields, err := p.idList()
	if err != nil {
		return nil, err
	}
	if err := p.lex.EatDelim(')'); err != nil {
		return nil, err
	}
	return NewCreateIndexData(indexName, tableName, fields, unique), nil
}

func (p *Parser) dropTable() (*TableData, error) {
	if err := p.lex.EatKeyword("drop"); err != nil {
		return nil, err
	}
	if err := p.lex.EatKeyword("table"); err != nil {
		return nil, err
	}
	name, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	return NewTableData(KindDropTable, name), nil
}

// -- Planner statements --

func (p *Parser) analyze() (*AnalyzeData, error) {
	if err := p.lex.EatKeyword("analyze"); err != nil {
		return nil, err
	}
	name, err := p.lex.EatId()
	if err != nil {
		return nil, err
	}
	var columns []string
	if p.lex.MatchDelim('(') {
		if err := p.lex.EatDelim('('); err != nil {
			return nil, err
		}
		if columns, err = p.idList(); err != nil {
			return nil, err
		}
		if err := p.lex.EatDelim(')'); err != nil {
			return nil, err
		}
	}
	return NewAnalyzeData(name, columns), nil
}

func (p *Parser) calc() (*CalcData, error) {
	if err := p.lex.EatKeyword("calc"); err != nil {
		return nil, err
	}
	exprs, err := p.expressionList()
	if err != nil {
		return nil, errors.Wrap(err, "calc")
	}
	return NewCalcData(exprs), nil
}
