package server

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JyotinderSingh/plandb/config"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/physical"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "db")
	cfg.BlockSize = 400
	cfg.BufferCount = 32
	cfg.Stats.Seed = 42
	return cfg
}

func setupSessionTest(t *testing.T) (*PlanDB, *Session) {
	t.Helper()
	db, err := NewDB(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := db.NewSession()
	t.Cleanup(func() { _ = s.Close() })
	return db, s
}

func mustExec(t *testing.T, s *Session, sql string) *Result {
	t.Helper()
	res, err := s.Execute(sql)
	require.NoError(t, err, sql)
	require.Equal(t, dberr.Success, res.Status)
	return res
}

func rowStrings(res *Result) [][]string {
	out := make([][]string, len(res.Rows))
	for i, row := range res.Rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.String()
		}
	}
	return out
}

func setupOrders(t *testing.T, s *Session) {
	t.Helper()
	mustExec(t, s, "CREATE TABLE Orders (id INT, amount INT)")
	res := mustExec(t, s, "INSERT INTO Orders VALUES (1, 10), (2, 20), (3, 30)")
	require.Equal(t, 3, res.RowsAffected)
}

func TestScenario_FilteredSelect(t *testing.T) {
	_, s := setupSessionTest(t)
	setupOrders(t, s)

	res := mustExec(t, s, "SELECT * FROM Orders WHERE amount > 15")
	assert.Equal(t, parse.KindSelect, res.Kind)
	assert.Equal(t, []string{"id", "amount"}, res.Columns)
	assert.Equal(t, [][]string{{"2", "20"}, {"3", "30"}}, rowStrings(res))
}

func TestScenario_Analyze(t *testing.T) {
	db, s := setupSessionTest(t)
	setupOrders(t, s)

	res := mustExec(t, s, "ANALYZE Orders(amount)")
	assert.Equal(t, 1, res.RowsAffected)
	assert.False(t, res.HasRows())

	txn, err := db.NewTx()
	require.NoError(t, err)
	defer func() { require.NoError(t, txn.Commit()) }()
	row, ok, err := db.StatsStore().Lookup(txn, "orders", "amount")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, row.SampledRowCount)
	assert.Equal(t, 10, row.BucketCount)
	assert.Equal(t, 10, strings.Count(row.Histogram, "("))
	assert.True(t, strings.HasPrefix(row.Histogram, "(10,"), row.Histogram)
	assert.True(t, strings.HasSuffix(row.Histogram, ",30)"), row.Histogram)

	// statistics change the estimate of a filtered read
	explain := mustExec(t, s, "EXPLAIN SELECT id FROM Orders WHERE amount < 15")
	require.Len(t, explain.Rows, 3)
	assert.Contains(t, explain.Rows[2][0].String(), "TableScan: orders (cost=")
}

func TestScenario_DuplicateKeyCompensation(t *testing.T) {
	db, s := setupSessionTest(t)
	setupOrders(t, s)
	mustExec(t, s, "CREATE UNIQUE INDEX orders_id ON Orders (id)")

	res, err := s.Execute("INSERT INTO Orders VALUES (2, 99)")
	require.Error(t, err)
	assert.Equal(t, dberr.RecordDuplicateKey, res.Status)
	assert.NotEmpty(t, res.Message)

	assert.Len(t, mustExec(t, s, "SELECT * FROM Orders").Rows, 3)
	tbl, err := db.Catalog().FindTable("orders")
	require.NoError(t, err)
	txn, err := db.NewTx()
	require.NoError(t, err)
	defer func() { require.NoError(t, txn.Commit()) }()
	rows, _, err := tbl.Size(txn)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)
}

func TestScenario_UpdateMovesIndexEntry(t *testing.T) {
	db, s := setupSessionTest(t)
	setupOrders(t, s)
	mustExec(t, s, "CREATE INDEX orders_amount ON Orders (amount)")

	res := mustExec(t, s, "UPDATE Orders SET amount = 99 WHERE id = 2")
	assert.Equal(t, 1, res.RowsAffected)
	assert.Equal(t, [][]string{{"99"}}, rowStrings(mustExec(t, s, "SELECT amount FROM Orders WHERE id = 2")))

	tbl, err := db.Catalog().FindTable("orders")
	require.NoError(t, err)
	txn, err := db.NewTx()
	require.NoError(t, err)
	defer func() { require.NoError(t, txn.Commit()) }()
	idx, err := tbl.OpenIndex(txn, "orders_amount")
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.BeforeFirst(index.Key{types.NewIntValue(20)}))
	found, err := idx.Next()
	require.NoError(t, err)
	assert.False(t, found, "old key no longer indexed")

	// the planner reads through the index for equality on the indexed field
	explain := mustExec(t, s, "EXPLAIN SELECT id FROM Orders WHERE amount = 99")
	assert.Contains(t, explain.Rows[len(explain.Rows)-1][0].String(), "IndexScan: orders using orders_amount")
	assert.Equal(t, [][]string{{"2"}}, rowStrings(mustExec(t, s, "SELECT id FROM Orders WHERE amount = 99")))
	assert.Empty(t, mustExec(t, s, "SELECT id FROM Orders WHERE amount = 20").Rows)
}

func TestExplain(t *testing.T) {
	_, s := setupSessionTest(t)
	setupOrders(t, s)
	mustExec(t, s, "CREATE TABLE customers (id INT, name CHAR(8))")

	res := mustExec(t, s, "EXPLAIN SELECT o.id, c.name FROM Orders o, customers c WHERE o.id = c.id AND 1 = 1")
	assert.Equal(t, []string{physical.ExplainColumn}, res.Columns)
	lines := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		lines[i] = row[0].String()
	}
	require.Len(t, lines, 5)
	assert.Equal(t, "Project: o.id, c.name", lines[0])
	assert.Equal(t, "  Predicate: o.id = c.id", lines[1], "constant comparison folded away")
	assert.Equal(t, "    NestedLoopJoin", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "      TableScan: "), lines[3])
	assert.True(t, strings.HasPrefix(lines[4], "      TableScan: "), lines[4])
}

func TestExecuteBatch_SkipsUnimplemented(t *testing.T) {
	_, s := setupSessionTest(t)

	results, err := s.ExecuteBatch(`
		create table t (a int);
		explain create table u (b int);
		insert into t values (1);
		select a from t;
	`)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, parse.KindCreateTable, results[0].Kind)
	assert.Equal(t, 1, results[1].RowsAffected)
	assert.Equal(t, [][]string{{"1"}}, rowStrings(results[2]))

	res, err := s.Execute("explain show tables")
	assert.True(t, dberr.IsBenign(err))
	assert.Equal(t, dberr.Unimplemented, res.Status)
}

func TestExecuteBatch_StopsAtFailure(t *testing.T) {
	_, s := setupSessionTest(t)
	mustExec(t, s, "create table t (a int)")

	results, err := s.ExecuteBatch("insert into t values (1); select x from t; insert into t values (2)")
	assert.Equal(t, dberr.SchemaFieldNotExist, dberr.Code(err))
	assert.Len(t, results, 1)
	assert.Equal(t, [][]string{{"1"}}, rowStrings(mustExec(t, s, "select a from t")))

	_, err = s.ExecuteBatch("select a from t select a from t")
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))
}

func TestTransactions(t *testing.T) {
	_, s := setupSessionTest(t)
	mustExec(t, s, "create table t (a int)")

	mustExec(t, s, "begin")
	assert.True(t, s.InTransaction())
	mustExec(t, s, "insert into t values (1)")
	assert.Len(t, mustExec(t, s, "select a from t").Rows, 1)
	mustExec(t, s, "rollback")
	assert.False(t, s.InTransaction())
	assert.Empty(t, mustExec(t, s, "select a from t").Rows)

	mustExec(t, s, "begin")
	mustExec(t, s, "insert into t values (2)")
	mustExec(t, s, "commit")
	assert.Equal(t, [][]string{{"2"}}, rowStrings(mustExec(t, s, "select a from t")))

	_, err := s.Execute("commit")
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))
	mustExec(t, s, "begin")
	_, err = s.Execute("begin")
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))

	// a failed statement ends the explicit transaction
	mustExec(t, s, "insert into t values (3)")
	_, err = s.Execute("select nope from t")
	require.Error(t, err)
	assert.False(t, s.InTransaction())
	assert.Equal(t, [][]string{{"2"}}, rowStrings(mustExec(t, s, "select a from t")))
}

func TestSchemaChangesRefusedInTransaction(t *testing.T) {
	_, s := setupSessionTest(t)
	setupOrders(t, s)

	mustExec(t, s, "begin")
	mustExec(t, s, "insert into orders values (4, 40)")
	for _, sql := range []string{
		"create table other (a int)",
		"create index orders_id on orders (id)",
		"create unique index orders_id on orders (id)",
		"drop table orders",
	} {
		_, err := s.Execute(sql)
		assert.Equal(t, dberr.InvalidArgument, dberr.Code(err), sql)
		assert.True(t, s.InTransaction(), sql)
	}
	// reads of the catalog still work
	assert.Len(t, mustExec(t, s, "show tables").Rows, 2)
	assert.Len(t, mustExec(t, s, "desc orders").Rows, 2)
	mustExec(t, s, "rollback")

	assert.Equal(t, [][]string{{"orders"}, {"relstatistics"}}, rowStrings(mustExec(t, s, "show tables")))
	assert.Equal(t, "", mustExec(t, s, "desc orders").Rows[0][3].String())
	assert.Equal(t, [][]string{{"2", "20"}}, rowStrings(mustExec(t, s, "select * from orders where id = 2")))
	assert.Len(t, mustExec(t, s, "select * from orders").Rows, 3)

	mustExec(t, s, "create unique index orders_id on orders (id)")
	_, err := s.Execute("insert into orders values (2, 99)")
	assert.Equal(t, dberr.RecordDuplicateKey, dberr.Code(err))
	assert.Equal(t, [][]string{{"2", "20"}}, rowStrings(mustExec(t, s, "select * from orders where id = 2")))
}

func TestIndexMatchesTableScan(t *testing.T) {
	_, s := setupSessionTest(t)
	mustExec(t, s, "create table t (id int, v int)")
	mustExec(t, s, "create index t_v on t (v)")

	const n = 300
	for start := 0; start < n; start += 50 {
		values := make([]string, 0, 50)
		for i := start; i < start+50; i++ {
			values = append(values, fmt.Sprintf("(%d, %d)", i, i%3))
		}
		mustExec(t, s, "insert into t values "+strings.Join(values, ", "))
	}

	assert.Equal(t, 100, mustExec(t, s, "delete from t where v = 1").RowsAffected)
	assert.Equal(t, 50, mustExec(t, s, "update t set v = 1 where id < 150 and v = 2").RowsAffected)
	assert.Equal(t, 20, mustExec(t, s, "delete from t where id >= 270").RowsAffected)

	byKey := map[string][]string{}
	for _, row := range rowStrings(mustExec(t, s, "select id, v from t")) {
		byKey[row[1]] = append(byKey[row[1]], row[0])
	}
	assert.Len(t, byKey["0"], 90)
	assert.Len(t, byKey["1"], 50)
	assert.Len(t, byKey["2"], 40)

	explain := mustExec(t, s, "explain select id from t where v = 1")
	assert.Contains(t, explain.Rows[len(explain.Rows)-1][0].String(), "IndexScan: t using t_v")
	for _, key := range []string{"0", "1", "2", "3"} {
		var ids []string
		for _, row := range rowStrings(mustExec(t, s, "select id from t where v = "+key)) {
			ids = append(ids, row[0])
		}
		assert.ElementsMatch(t, byKey[key], ids, "v = %s", key)
	}

	// deleting every row of one key leaves no entries behind
	assert.Equal(t, 40, mustExec(t, s, "delete from t where v = 2").RowsAffected)
	assert.Empty(t, mustExec(t, s, "select id from t where v = 2").Rows)
	assert.Len(t, mustExec(t, s, "select id from t where v = 0").Rows, 90)
}

func TestRollbackDiscardsStatistics(t *testing.T) {
	db, s := setupSessionTest(t)
	setupOrders(t, s)

	mustExec(t, s, "begin")
	mustExec(t, s, "analyze orders")
	mustExec(t, s, "rollback")

	txn, err := db.NewTx()
	require.NoError(t, err)
	defer func() { require.NoError(t, txn.Commit()) }()
	rows, err := db.StatsStore().TableRows(txn, "orders")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCommands(t *testing.T) {
	db, s := setupSessionTest(t)
	setupOrders(t, s)
	mustExec(t, s, "create unique index orders_id on orders (id)")

	res := mustExec(t, s, "show tables")
	assert.Equal(t, []string{"Tables"}, res.Columns)
	assert.Equal(t, [][]string{{"orders"}, {"relstatistics"}}, rowStrings(res))

	res = mustExec(t, s, "desc orders")
	assert.Equal(t, []string{"Field", "Type", "Size", "Indexes"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "id", res.Rows[0][0].String())
	assert.Equal(t, "int", res.Rows[0][1].String())
	assert.Equal(t, "orders_id", res.Rows[0][3].String())
	assert.Equal(t, "", res.Rows[1][3].String())

	mustExec(t, s, "analyze orders")
	mustExec(t, s, "drop table orders")
	_, err := s.Execute("select id from orders")
	assert.Equal(t, dberr.SchemaTableNotExist, dberr.Code(err))

	txn, err := db.NewTx()
	require.NoError(t, err)
	defer func() { require.NoError(t, txn.Commit()) }()
	rows, err := db.StatsStore().TableRows(txn, "orders")
	require.NoError(t, err)
	assert.Empty(t, rows, "statistics purged with the table")

	_, err = s.Execute("create table relstatistics (a int)")
	assert.Equal(t, dberr.SchemaTableExist, dberr.Code(err))
}

func TestCalc(t *testing.T) {
	_, s := setupSessionTest(t)
	res := mustExec(t, s, "calc 1 + 2 * 3, (1 + 2) * 3, 7 / 2")
	assert.Equal(t, [][]string{{"7", "9", "3.5"}}, rowStrings(res))
	assert.Equal(t, []string{"(1 + (2 * 3))", "((1 + 2) * 3)", "(7 / 2)"}, res.Columns)
}

func TestReopen(t *testing.T) {
	cfg := testConfig(t)
	db, err := NewDB(cfg)
	require.NoError(t, err)
	s := db.NewSession()
	setupOrders(t, s)
	mustExec(t, s, "create index orders_amount on orders (amount)")
	require.NoError(t, s.Close())
	require.NoError(t, db.Close())

	db, err = NewDB(cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	s = db.NewSession()
	assert.Equal(t, [][]string{{"3"}}, rowStrings(mustExec(t, s, "select id from orders where amount = 30")))
}
