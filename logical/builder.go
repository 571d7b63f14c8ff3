package logical

import (
	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
)

// Builder turns parsed statements into logical plans.
type Builder struct {
	db *catalog.Database
}

func NewBuilder(db *catalog.Database) *Builder {
	return &Builder{db: db}
}

// Build returns the plan of stmt. Statements the session runs directly,
// such as DDL, fail with ErrUnimplemented.
func (b *Builder) Build(stmt parse.Statement) (Operator, error) {
	switch s := stmt.(type) {
	case *parse.QueryData:
		return b.buildSelect(s)
	case *parse.InsertData:
		return b.buildInsert(s)
	case *parse.ModifyData:
		return b.buildUpdate(s)
	case *parse.DeleteData:
		return b.buildDelete(s)
	case *parse.AnalyzeData:
		return b.buildAnalyze(s)
	case *parse.ExplainData:
		child, err := b.Build(s.Child())
		if err != nil {
			return nil, err
		}
		return NewExplain(child), nil
	case *parse.CalcData:
		return b.buildCalc(s)
	default:
		return nil, dberr.Newf(dberr.ErrUnimplemented, "%s is not planned", stmt.Kind())
	}
}

func (b *Builder) buildSelect(q *parse.QueryData) (Operator, error) {
	bc, err := newBindContext(b.db, q.Tables())
	if err != nil {
		return nil, err
	}
	conds, err := bc.bindConditions(q.Conditions())
	if err != nil {
		return nil, err
	}

	gets := make([]*TableGet, len(bc.tables))
	for i, bt := range bc.tables {
		meta := bt.tbl.Meta()
		gets[i] = NewTableGet(bt.tbl, bt.name, meta.VisibleFields(), true)
	}
	for _, c := range conds {
		if i, filter, ok := bc.tableFilter(c); ok {
			gets[i].Filters = append(gets[i].Filters, filter)
		}
	}

	var plan Operator = gets[0]
	for _, get := range gets[1:] {
		plan = NewJoin(plan, get)
	}
	if len(conds) > 0 {
		plan = NewPredicate(conjunction(conds), plan)
	}

	if len(q.OrderBy()) > 0 {
		keys := make([]OrderKey, len(q.OrderBy()))
		for i, item := range q.OrderBy() {
			if err := bc.bindField(item.Field); err != nil {
				return nil, err
			}
			keys[i] = OrderKey{Field: item.Field, Desc: item.Desc}
		}
		plan = NewOrderBy(keys, plan)
	}

	var fields []*query.FieldExpr
	for _, item := range q.Items() {
		if item.Field == "*" {
			expanded, err := bc.wildcard(item.Table)
			if err != nil {
				return nil, err
			}
			fields = append(fields, expanded...)
			continue
		}
		f := &query.FieldExpr{Table: item.Table, Field: item.Field}
		if err := bc.bindField(f); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return NewProject(fields, plan), nil
}

func (b *Builder) buildInsert(s *parse.InsertData) (Operator, error) {
	tbl, err := b.db.FindTable(s.TableName())
	if err != nil {
		return nil, err
	}
	meta := tbl.Meta()
	visible := meta.VisibleFields()

	// positions[i] is the field position of the i-th listed value.
	positions := make([]int, len(visible))
	for i := range positions {
		positions[i] = i
	}
	if len(s.Fields()) > 0 {
		if len(s.Fields()) != len(visible) {
			return nil, dberr.Newf(dberr.ErrInvalidArgument, "insert into %s lists %d of %d fields", meta.Name, len(s.Fields()), len(visible))
		}
		seen := make(map[string]bool, len(visible))
		for i, name := range s.Fields() {
			pos := fieldPosition(visible, name)
			if pos < 0 {
				return nil, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s not found in %s", name, meta.Name)
			}
			if seen[name] {
				return nil, dberr.Newf(dberr.ErrInvalidArgument, "field %s listed twice", name)
			}
			seen[name] = true
			positions[i] = pos
		}
	}

	rows := make([][]types.Value, len(s.Rows()))
	for r, exprs := range s.Rows() {
		if len(exprs) != len(visible) {
			return nil, dberr.Newf(dberr.ErrInvalidArgument, "table %s has %d fields, row %d has %d values", meta.Name, len(visible), r+1, len(exprs))
		}
		row := make([]types.Value, len(visible))
		for i, e := range exprs {
			if len(query.Fields(e)) > 0 {
				return nil, dberr.Newf(dberr.ErrInvalidArgument, "insert value %s reads a field", e)
			}
			v, err := e.Eval(nil)
			if err != nil {
				return nil, err
			}
			row[positions[i]] = v
		}
		rows[r] = row
	}
	return NewInsert(tbl, rows), nil
}

func (b *Builder) buildUpdate(s *parse.ModifyData) (Operator, error) {
	bc, err := newBindContext(b.db, []parse.TableRef{{Name: s.TableName()}})
	if err != nil {
		return nil, err
	}
	tbl := bc.tables[0].tbl
	meta := tbl.Meta()
	field, ok := meta.Field(s.TargetField())
	if !ok || !field.Visible {
		return nil, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s not found in %s", s.TargetField(), meta.Name)
	}

	value := s.NewValue()
	if err := bc.bindExpr(value); err != nil {
		return nil, err
	}
	if value, err = coerceDate(field.Type, value); err != nil {
		return nil, err
	}
	if !assignable(field.Type, value.ValueType()) {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "cannot assign %s value to %s field %s", value.ValueType(), field.Type, field.Name)
	}

	plan, err := bc.filteredGet(s.Conditions())
	if err != nil {
		return nil, err
	}
	return NewUpdate(tbl, field, value, plan), nil
}

func (b *Builder) buildDelete(s *parse.DeleteData) (Operator, error) {
	bc, err := newBindContext(b.db, []parse.TableRef{{Name: s.TableName()}})
	if err != nil {
		return nil, err
	}
	plan, err := bc.filteredGet(s.Conditions())
	if err != nil {
		return nil, err
	}
	return NewDelete(bc.tables[0].tbl, plan), nil
}

func (b *Builder) buildAnalyze(s *parse.AnalyzeData) (Operator, error) {
	tbl, err := b.db.FindTable(s.TableName())
	if err != nil {
		return nil, err
	}
	columns, err := stats.ResolveColumns(tbl.Meta(), s.Columns())
	if err != nil {
		return nil, err
	}
	get := NewTableGet(tbl, tbl.Name(), columns, true)
	return NewAnalyze(b.db.StatsTable(), tbl, columns, get), nil
}

func (b *Builder) buildCalc(s *parse.CalcData) (Operator, error) {
	for _, e := range s.Exprs() {
		if fields := query.Fields(e); len(fields) > 0 {
			return nil, dberr.Newf(dberr.ErrSchemaFieldNotExist, "calc cannot read field %s", fields[0])
		}
	}
	return NewCalc(s.Exprs()), nil
}

func conjunction(conds []*query.ComparisonExpr) *query.ConjunctionExpr {
	children := make([]query.Expression, len(conds))
	for i, c := range conds {
		children[i] = c
	}
	return &query.ConjunctionExpr{Children: children}
}

func fieldPosition(fields []table.FieldMeta, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// comparableTypes reports whether values of a and b can be compared.
func comparableTypes(a, b types.FieldType) bool {
	switch {
	case a == types.Undefined || b == types.Undefined || a == b:
		return true
	case a.IsString() && b.IsString():
		return true
	default:
		return isNumber(a) && isNumber(b)
	}
}

// assignable reports whether a value of type v may be stored in a field of
// type f.
func assignable(f, v types.FieldType) bool {
	switch {
	case f == v:
		return true
	case f.IsString() && v.IsString():
		return true
	default:
		return f == types.Float && v == types.Integer
	}
}

func isNumber(t types.FieldType) bool {
	return t == types.Integer || t == types.Float
}

// coerceDate turns a string literal compared with or assigned to a DATE
// into a date literal.
func coerceDate(target types.FieldType, e query.Expression) (query.Expression, error) {
	lit, ok := e.(*query.ValueExpr)
	if target != types.Date || !ok || lit.Value.Type() != types.Varchar {
		return e, nil
	}
	v, err := lit.Value.CastTo(types.Date)
	if err != nil {
		return nil, dberr.Wrapf(err, dberr.ErrInvalidArgument, "invalid date %s", lit)
	}
	return query.NewValueExpr(v), nil
}
