package logical

import (
	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
)

type boundTable struct {
	name string
	tbl  *table.Table
}

// bindContext resolves the names of one statement. It lives for a single
// Build call.
type bindContext struct {
	tables []boundTable
	byName map[string]int
}

func newBindContext(db *catalog.Database, refs []parse.TableRef) (*bindContext, error) {
	if len(refs) == 0 {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "statement names no table")
	}
	bc := &bindContext{byName: make(map[string]int, len(refs))}
	for _, ref := range refs {
		tbl, err := db.FindTable(ref.Name)
		if err != nil {
			return nil, err
		}
		name := ref.BoundName()
		if _, dup := bc.byName[name]; dup {
			return nil, dberr.Newf(dberr.ErrInvalidArgument, "table name %s is used twice", name)
		}
		bc.byName[name] = len(bc.tables)
		bc.tables = append(bc.tables, boundTable{name: name, tbl: tbl})
	}
	return bc, nil
}

// bindField fills in the table and type of f. An unqualified field must
// belong to exactly one table.
func (bc *bindContext) bindField(f *query.FieldExpr) error {
	if f.Table != "" {
		i, ok := bc.byName[f.Table]
		if !ok {
			return dberr.Newf(dberr.ErrSchemaTableNotExist, "table %s is not in the statement", f.Table)
		}
		field, ok := bc.tables[i].tbl.Field(f.Field)
		if !ok || !field.Visible {
			return dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s not found in %s", f.Field, f.Table)
		}
		f.Type = field.Type
		return nil
	}

	found := false
	for _, bt := range bc.tables {
		field, ok := bt.tbl.Field(f.Field)
		if !ok || !field.Visible {
			continue
		}
		if found {
			return dberr.Newf(dberr.ErrInvalidArgument, "field %s is ambiguous", f.Field)
		}
		found = true
		f.Table, f.Type = bt.name, field.Type
	}
	if !found {
		return dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s not found", f.Field)
	}
	return nil
}

func (bc *bindContext) bindExpr(e query.Expression) error {
	for _, f := range query.Fields(e) {
		if err := bc.bindField(f); err != nil {
			return err
		}
	}
	return nil
}

// bindConditions binds every comparison and checks that its operands can
// be compared. String literals compared with DATE fields become dates.
func (bc *bindContext) bindConditions(conds []*query.ComparisonExpr) ([]*query.ComparisonExpr, error) {
	out := make([]*query.ComparisonExpr, len(conds))
	for i, c := range conds {
		if err := bc.bindExpr(c.Left); err != nil {
			return nil, err
		}
		if err := bc.bindExpr(c.Right); err != nil {
			return nil, err
		}
		left, err := coerceDate(c.Right.ValueType(), c.Left)
		if err != nil {
			return nil, err
		}
		right, err := coerceDate(c.Left.ValueType(), c.Right)
		if err != nil {
			return nil, err
		}
		lt, rt := left.ValueType(), right.ValueType()
		if c.Op == types.LIKE || c.Op == types.NOTLIKE {
			if !lt.IsString() || !rt.IsString() {
				return nil, dberr.Newf(dberr.ErrInvalidArgument, "%s needs string operands in %s", c.Op, c)
			}
		} else if !comparableTypes(lt, rt) {
			return nil, dberr.Newf(dberr.ErrInvalidArgument, "cannot compare %s with %s in %s", lt, rt, c)
		}
		out[i] = &query.ComparisonExpr{Op: c.Op, Left: left, Right: right}
	}
	return out, nil
}

// tableFilter reports whether c compares a field with a literal, returning
// the table position and c written as "field op literal".
func (bc *bindContext) tableFilter(c *query.ComparisonExpr) (int, *query.ComparisonExpr, bool) {
	field, fok := c.Left.(*query.FieldExpr)
	lit, lok := c.Right.(*query.ValueExpr)
	op := c.Op
	if !fok || !lok {
		field, fok = c.Right.(*query.FieldExpr)
		lit, lok = c.Left.(*query.ValueExpr)
		if !fok || !lok || op == types.LIKE || op == types.NOTLIKE {
			return 0, nil, false
		}
		op = op.Flip()
	}
	i, ok := bc.byName[field.Table]
	if !ok {
		return 0, nil, false
	}
	return i, &query.ComparisonExpr{Op: op, Left: field, Right: lit}, true
}

// wildcard expands "*" over every table, or "t.*" over one.
func (bc *bindContext) wildcard(tableName string) ([]*query.FieldExpr, error) {
	tables := bc.tables
	if tableName != "" {
		i, ok := bc.byName[tableName]
		if !ok {
			return nil, dberr.Newf(dberr.ErrSchemaTableNotExist, "table %s is not in the statement", tableName)
		}
		tables = bc.tables[i : i+1]
	}
	var fields []*query.FieldExpr
	for _, bt := range tables {
		meta := bt.tbl.Meta()
		for _, f := range meta.VisibleFields() {
			fields = append(fields, &query.FieldExpr{Table: bt.name, Field: f.Name, Type: f.Type})
		}
	}
	return fields, nil
}

// filteredGet reads the single bound table for modification, filtered by
// conds.
func (bc *bindContext) filteredGet(conds []*query.ComparisonExpr) (Operator, error) {
	bound, err := bc.bindConditions(conds)
	if err != nil {
		return nil, err
	}
	bt := bc.tables[0]
	meta := bt.tbl.Meta()
	get := NewTableGet(bt.tbl, bt.name, meta.VisibleFields(), false)
	for _, c := range bound {
		if _, filter, ok := bc.tableFilter(c); ok {
			get.Filters = append(get.Filters, filter)
		}
	}
	if len(bound) == 0 {
		return get, nil
	}
	return NewPredicate(conjunction(bound), get), nil
}
