package parse

import (
	"strings"

	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/table"
)

// StatementKind identifies the kind of a parsed statement.
type StatementKind int

const (
	KindSelect StatementKind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindCreateTable
	KindCreateIndex
	KindDropTable
	KindShowTables
	KindDescTable
	KindAnalyze
	KindExplain
	KindCalc
	KindBegin
	KindCommit
	KindRollback
	KindExit
)

var kindNames = [...]string{
	KindSelect:      "SELECT",
	KindInsert:      "INSERT",
	KindUpdate:      "UPDATE",
	KindDelete:      "DELETE",
	KindCreateTable: "CREATE TABLE",
	KindCreateIndex: "CREATE INDEX",
	KindDropTable:   "DROP TABLE",
	KindShowTables:  "SHOW TABLES",
	KindDescTable:   "DESC",
	KindAnalyze:     "ANALYZE",
	KindExplain:     "EXPLAIN",
	KindCalc:        "CALC",
	KindBegin:       "BEGIN",
	KindCommit:      "COMMIT",
	KindRollback:    "ROLLBACK",
	KindExit:        "EXIT",
}

func (k StatementKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// Statement is the syntax tree of one SQL statement.
type Statement interface {
	Kind() StatementKind
}

// TableRef is a table named in FROM, with its optional alias.
type TableRef struct {
	Name  string
	Alias string
}

// BoundName returns the name the table is referred to by.
func (r TableRef) BoundName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Name
}

// SelectItem is one entry of a select list. Field is "*" for a wildcard;
// Table is empty when the field was not qualified.
type SelectItem struct {
	Table string
	Field string
}

func (s SelectItem) String() string {
	if s.Table == "" {
		return s.Field
	}
	return s.Table + "." + s.Field
}

// OrderItem is one ORDER BY key.
type OrderItem struct {
	Field *query.FieldExpr
	Desc  bool
}

// QueryData is a SELECT statement.
type QueryData struct {
	items      []SelectItem
	tables     []TableRef
	conditions []*query.ComparisonExpr
	orderBy    []OrderItem
}

func NewQueryData(items []SelectItem, tables []TableRef, conditions []*query.ComparisonExpr, orderBy []OrderItem) *QueryData {
	return &QueryData{items: items, tables: tables, conditions: conditions, orderBy: orderBy}
}

func (qd *QueryData) Kind() StatementKind                 { return KindSelect }
func (qd *QueryData) Items() []SelectItem                 { return qd.items }
func (qd *QueryData) Tables() []TableRef                  { return qd.tables }
func (qd *QueryData) Conditions() []*query.ComparisonExpr { return qd.conditions }
func (qd *QueryData) OrderBy() []OrderItem                { return qd.orderBy }

func (qd *QueryData) String() string {
	items := make([]string, len(qd.items))
	for i, it := range qd.items {
		items[i] = it.String()
	}
	tables := make([]string, len(qd.tables))
	for i, t := range qd.tables {
		tables[i] = t.Name
		if t.Alias != "" {
			tables[i] += " " + t.Alias
		}
	}
	result := "select " + strings.Join(items, ", ") + " from " + strings.Join(tables, ", ")
	if len(qd.conditions) > 0 {
		conds := make([]string, len(qd.conditions))
		for i, c := range qd.conditions {
			conds[i] = c.String()
		}
		result += " where " + strings.Join(conds, " and ")
	}
	return result
}

// InsertData is an INSERT statement with one or more value rows. Fields
// is empty when the statement did not list the columns.
type InsertData struct {
	tableName string
	fields    []string
	rows      [][]query.Expression
}

func NewInsertData(tableName string, fields []string, rows [][]query.Expression) *InsertData {
	return &InsertData{tableName: tableName, fields: fields, rows: rows}
}

func (id *InsertData) Kind() StatementKind        { return KindInsert }
func (id *InsertData) TableName() string          { return id.tableName }
func (id *InsertData) Fields() []string           { return id.fields }
func (id *InsertData) Rows() [][]query.Expression { return id.rows }

// ModifyData is an UPDATE statement.
type ModifyData struct {
	tableName  string
	fieldName  string
	newValue   query.Expression
	conditions []*query.ComparisonExpr
}

func NewModifyData(tableName, fieldName string, newValue query.Expression, conditions []*query.ComparisonExpr) *ModifyData {
	return &ModifyData{tableName: tableName, fieldName: fieldName, newValue: newValue, conditions: conditions}
}

func (md *ModifyData) Kind() StatementKind                 { return KindUpdate }
func (md *ModifyData) TableName() string                   { return md.tableName }
func (md *ModifyData) TargetField() string                 { return md.fieldName }
func (md *ModifyData) NewValue() query.Expression          { return md.newValue }
func (md *ModifyData) Conditions() []*query.ComparisonExpr { return md.conditions }

// DeleteData is a DELETE statement.
type DeleteData struct {
	tableName  string
	conditions []*query.ComparisonExpr
}

func NewDeleteData(tableName string, conditions []*query.ComparisonExpr) *DeleteData {
	return &DeleteData{tableName: tableName, conditions: conditions}
}

func (dd *DeleteData) Kind() StatementKind                 { return KindDelete }
func (dd *DeleteData) TableName() string                   { return dd.tableName }
func (dd *DeleteData) Conditions() []*query.ComparisonExpr { return dd.conditions }

// CreateTableData is a CREATE TABLE statement.
type CreateTableData struct {
	tableName string
	fields    []table.FieldDef
}

func NewCreateTableData(tableName string, fields []table.FieldDef) *CreateTableData {
	return &CreateTableData{tableName: tableName, fields: fields}
}

func (ctd *CreateTableData) Kind() StatementKind      { return KindCreateTable }
func (ctd *CreateTableData) TableName() string        { return ctd.tableName }
func (ctd *CreateTableData) Fields() []table.FieldDef { return ctd.fields }

// CreateIndexData is a CREATE [UNIQUE] INDEX statement.
type CreateIndexData struct {
	indexName  string
	tableName  string
	fieldNames []string
	unique     bool
}

func NewCreateIndexData(indexName, tableName string, fieldNames []string, unique bool) *CreateIndexData {
	return &CreateIndexData{indexName: indexName, tableName: tableName, fieldNames: fieldNames, unique: unique}
}

func (cid *CreateIndexData) Kind() StatementKind  { return KindCreateIndex }
func (cid *CreateIndexData) IndexName() string    { return cid.indexName }
func (cid *CreateIndexData) TableName() string    { return cid.tableName }
func (cid *CreateIndexData) FieldNames() []string { return cid.fieldNames }
func (cid *CreateIndexData) Unique() bool         { return cid.unique }

// TableData is a statement naming a single table: DROP TABLE and DESC.
type TableData struct {
	kind      StatementKind
	tableName string
}

func NewTableData(kind StatementKind, tableName string) *TableData {
	return &TableData{kind: kind, tableName: tableName}
}

func (td *TableData) Kind() StatementKind { return td.kind }
func (td *TableData) TableName() string   { return td.tableName }

// AnalyzeData is an ANALYZE statement. An empty column list means every
// column of the table.
type AnalyzeData struct {
	tableName string
	columns   []string
}

func NewAnalyzeData(tableName string, columns []string) *AnalyzeData {
	return &AnalyzeData{tableName: tableName, columns: columns}
}

func (ad *AnalyzeData) Kind() StatementKind { return KindAnalyze }
func (ad *AnalyzeData) TableName() string   { return ad.tableName }
func (ad *AnalyzeData) Columns() []string   { return ad.columns }

// ExplainData wraps the statement to explain.
type ExplainData struct {
	child Statement
}

func NewExplainData(child Statement) *ExplainData {
	return &ExplainData{child: child}
}

func (ed *ExplainData) Kind() StatementKind { return KindExplain }
func (ed *ExplainData) Child() Statement    { return ed.child }

// CalcData is a CALC statement evaluating expressions without a table.
type CalcData struct {
	exprs []query.Expression
}

func NewCalcData(exprs []query.Expression) *CalcData {
	return &CalcData{exprs: exprs}
}

func (cd *CalcData) Kind() StatementKind       { return KindCalc }
func (cd *CalcData) Exprs() []query.Expression { return cd.exprs }

// CommandData is a statement without arguments: SHOW TABLES, BEGIN,
// COMMIT, ROLLBACK and EXIT.
type CommandData struct {
	kind StatementKind
}

func NewCommandData(kind StatementKind) *CommandData {
	return &CommandData{kind: kind}
}

func (cd *CommandData) Kind() StatementKind { return cd.kind }
