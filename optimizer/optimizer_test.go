package optimizer

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/tx/concurrency"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostFormulas(t *testing.T) {
	assert.InDelta(t, 0.0125*100+10, FullScanCost(100, 10), 1e-9)
	assert.InDelta(t, 0.0, FullScanCost(0, 0), 1e-9)
	assert.InDelta(t, 20+0.5*100*1.01, ReducedCost(20, 0.5, 100), 1e-9)

	// a point lookup through an index is cheaper than scanning a large table
	assert.Less(t, IndexScanCost(10000, 500, 0.001), FullScanCost(10000, 500))
}

func TestSelectivity(t *testing.T) {
	samples := make([]types.Value, 0, 11)
	for i := 0; i <= 100; i += 10 {
		samples = append(samples, types.NewIntValue(i))
	}
	h, err := stats.Build(samples, 10)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, Selectivity(h, types.EQ, types.NewIntValue(0)), 1e-9)
	assert.InDelta(t, 0.3, Selectivity(h, types.LT, types.NewIntValue(25)), 1e-9)
	assert.InDelta(t, 0.8, Selectivity(h, types.GT, types.NewIntValue(25)), 1e-9)
	assert.InDelta(t, 1.0, Selectivity(h, types.EQ, types.NewIntValue(1000)), 1e-9, "beyond every boundary")
	assert.InDelta(t, 1.0, Selectivity(nil, types.EQ, types.NewIntValue(5)), 1e-9)
	assert.InDelta(t, 1.0, Selectivity(&stats.Histogram{}, types.EQ, types.NewIntValue(5)), 1e-9)

	for v := -10; v <= 110; v += 7 {
		for _, op := range []types.Operator{types.EQ, types.LT, types.LE, types.GT, types.GE, types.NE} {
			sel := Selectivity(h, op, types.NewIntValue(v))
			assert.GreaterOrEqual(t, sel, 0.0)
			assert.LessOrEqual(t, sel, 1.0)
		}
	}
}

func TestJoinOrderer_Permutation(t *testing.T) {
	var o JoinOrderer
	rng := rand.New(rand.NewPCG(7, 11))
	for n := 0; n <= 8; n++ {
		for trial := 0; trial < 20; trial++ {
			costs := make([]float64, n)
			for i := range costs {
				costs[i] = float64(rng.IntN(5))
			}
			order := o.Order(costs)
			require.Len(t, order, n)
			sorted := slices.Clone(order)
			slices.Sort(sorted)
			for i := range sorted {
				require.Equal(t, i, sorted[i], "costs %v gave %v", costs, order)
			}
		}
	}
}

func TestJoinOrderer_EqualCostsKeepInputOrder(t *testing.T) {
	var o JoinOrderer
	for n := 1; n <= 7; n++ {
		costs := make([]float64, n)
		for i := range costs {
			costs[i] = 3.5
		}
		want := make([]int, n)
		for i := range want {
			want[i] = i
		}
		assert.Equal(t, want, o.Order(costs))
	}
}

func TestJoinOrderer_CheaperFirst(t *testing.T) {
	var o JoinOrderer
	assert.Equal(t, []int{1, 0}, o.Order([]float64{100, 1}))
	assert.Equal(t, []int{0, 1}, o.Order([]float64{1, 100}))
	assert.Equal(t, []int{2, 0, 1}, o.Order([]float64{50, 50, 1}))
	assert.Equal(t, []int{1, 2, 0}, o.Order([]float64{3, 1, 2}))
	assert.Equal(t, []int{2, 1, 3, 0}, o.Order([]float64{100000, 15000, 5000, 90001}))
}

func TestJoinOrderer_TreeCost(t *testing.T) {
	var o JoinOrderer
	order, cost := o.plan([]float64{4, 1, 2})
	assert.Equal(t, []int{1, 2, 0}, order)
	// sorted 1, 2, 4: splitting after 2 costs 6 + 4 + 1 + 4
	assert.Equal(t, 15.0, cost)

	order, cost = o.plan(nil)
	assert.Empty(t, order)
	assert.Zero(t, cost)
}

func setupOptimizerTest(t *testing.T) (*catalog.Database, *tx.Transaction) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })
	lm, err := log.NewManager(fm, "optimizertest.log")
	require.NoError(t, err)
	bm := buffer.NewManager(fm, lm, 16)
	txn, err := tx.NewTransaction(fm, lm, bm, concurrency.NewLockTable(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Commit() })

	db, err := catalog.Open(fm, "relstatistics")
	require.NoError(t, err)
	return db, txn
}

func fillTable(t *testing.T, txn *tx.Transaction, db *catalog.Database, name string, rows int) *table.Table {
	t.Helper()
	tbl, err := db.CreateTable(name, []table.FieldDef{
		{Name: "id", Type: types.Integer},
		{Name: "amount", Type: types.Integer},
	})
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		rec, err := tbl.MakeRecord(txn, []types.Value{types.NewIntValue(i), types.NewIntValue(i * 10)})
		require.NoError(t, err)
		require.NoError(t, tbl.InsertRecord(txn, rec))
	}
	return tbl
}

func plan(t *testing.T, db *catalog.Database, sql string) logical.Operator {
	t.Helper()
	stmt, err := parse.Parse(sql)
	require.NoError(t, err)
	op, err := logical.NewBuilder(db).Build(stmt)
	require.NoError(t, err)
	return op
}

func TestCalculateCost_WithoutStatistics(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	tbl := fillTable(t, txn, db, "orders", 30)
	model := NewCostModel(stats.NewStore(db.StatsTable()))

	op := plan(t, db, "select id from orders where amount > 100")
	gets := logical.TableGets(op)
	require.Len(t, gets, 1)
	require.NoError(t, model.Annotate(txn, op))

	rows, pages, err := tbl.Size(txn)
	require.NoError(t, err)
	assert.Equal(t, 30, rows)
	assert.InDelta(t, FullScanCost(rows, pages), gets[0].Cost, 1e-9)
	assert.Zero(t, gets[0].IndexCost)
}

func TestCalculateCost_WithStatistics(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	tbl := fillTable(t, txn, db, "orders", 30)
	store := stats.NewStore(db.StatsTable())

	values := make([][]types.Value, 30)
	for i := range values {
		values[i] = []types.Value{types.NewIntValue(i * 10)}
	}
	collector := stats.NewCollector(10, stats.NewSampler(rand.NewPCG(1, 2)))
	statRows, err := collector.Collect(tbl.Meta(), []string{"amount"}, values)
	require.NoError(t, err)
	require.NoError(t, store.Write(txn, statRows))

	model := NewCostModel(store)
	op := plan(t, db, "select id from orders where amount < 100 and id = 3")
	require.NoError(t, model.Annotate(txn, op))
	get := logical.TableGets(op)[0]

	rows, pages, err := tbl.Size(txn)
	require.NoError(t, err)
	h, err := statRows[0].Parse(types.Integer)
	require.NoError(t, err)
	sel := Selectivity(h, types.LT, types.NewIntValue(100))
	assert.InDelta(t, ReducedCost(FullScanCost(rows, pages), sel, rows), get.Cost, 1e-9)
}

func TestCalculateCost_IndexCost(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	tbl := fillTable(t, txn, db, "orders", 30)
	require.NoError(t, tbl.CreateIndex(txn, true, "orders_id", []string{"id"}))

	op := plan(t, db, "select amount from orders where id = 7")
	require.NoError(t, NewCostModel(stats.NewStore(db.StatsTable())).Annotate(txn, op))
	assert.Greater(t, logical.TableGets(op)[0].IndexCost, 0.0)
}

func TestReorder_UsesCosts(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	fillTable(t, txn, db, "big", 60)
	fillTable(t, txn, db, "small", 2)
	model := NewCostModel(stats.NewStore(db.StatsTable()))
	var o JoinOrderer

	op := plan(t, db, "select big.id from big, small")
	require.NoError(t, model.Annotate(txn, op))
	require.NoError(t, o.Reorder(op))
	gets := logical.TableGets(op)
	require.Len(t, gets, 2)
	assert.Equal(t, "small", gets[0].Name)
	assert.Equal(t, "big", gets[1].Name)
}

func TestReorder_FollowsOrder(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	fillTable(t, txn, db, "big", 60)
	fillTable(t, txn, db, "small", 2)
	fillTable(t, txn, db, "mid", 20)
	model := NewCostModel(stats.NewStore(db.StatsTable()))
	var o JoinOrderer

	op := plan(t, db, "select big.id from big, small, mid")
	require.NoError(t, model.Annotate(txn, op))
	before := logical.TableGets(op)
	costs := make([]float64, len(before))
	for i, get := range before {
		costs[i] = get.Cost
	}
	var want []string
	for _, pos := range o.Order(costs) {
		want = append(want, before[pos].Name)
	}

	require.NoError(t, o.Reorder(op))
	var got []string
	for _, get := range logical.TableGets(op) {
		got = append(got, get.Name)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"small", "mid", "big"}, got)
	_, isJoin := op.(*logical.Project).Child().(*logical.Join)
	assert.True(t, isJoin, "join tree keeps its shape")
}

func TestReorder_SingleTableIsUntouched(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	fillTable(t, txn, db, "orders", 3)
	op := plan(t, db, "select id from orders")
	var o JoinOrderer
	require.NoError(t, o.Reorder(op))
	assert.Equal(t, "orders", logical.TableGets(op)[0].Name)
}

func TestRewriter_FoldsAndEliminates(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	fillTable(t, txn, db, "orders", 1)

	op := plan(t, db, "select id from orders where 1 + 1 = 2 and 3 > 2")
	require.NoError(t, NewRewriter().Rewrite(op))

	project := op.(*logical.Project)
	_, ok := project.Child().(*logical.TableGet)
	assert.True(t, ok, "always-true predicate removed")

	op = plan(t, db, "select id from orders where amount > 2 * 5 and 1 = 1")
	require.NoError(t, NewRewriter().Rewrite(op))
	pred := op.(*logical.Project).Child().(*logical.Predicate)
	cmp, ok := pred.Condition().(*query.ComparisonExpr)
	require.True(t, ok, "single member conjunction unwrapped")
	assert.Equal(t, "orders.amount > 10", cmp.String())

	op = plan(t, db, "select id from orders where amount > 2 and 1 = 0")
	require.NoError(t, NewRewriter().Rewrite(op))
	pred = op.(*logical.Project).Child().(*logical.Predicate)
	lit, ok := pred.Condition().(*query.ValueExpr)
	require.True(t, ok)
	assert.Equal(t, types.NewBoolValue(false), lit.Value)
}

func TestRewriter_CalcAndUpdateValues(t *testing.T) {
	db, txn := setupOptimizerTest(t)
	fillTable(t, txn, db, "orders", 1)

	op := plan(t, db, "calc (1 + 2) * 4, -(3)")
	require.NoError(t, NewRewriter().Rewrite(op))
	exprs := op.Expressions()
	assert.Equal(t, "12", exprs[0].String())
	assert.Equal(t, "-3", exprs[1].String())
	assert.Equal(t, []string{"((1 + 2) * 4)", "-3"}, op.(*logical.Calc).Names, "names keep the written text")

	op = plan(t, db, "update orders set amount = 4 * 5 where id = 1")
	require.NoError(t, NewRewriter().Rewrite(op))
	assert.Equal(t, "20", op.(*logical.Update).Value().String())
}

type restlessRule struct{}

func (restlessRule) Name() string                           { return "restless" }
func (restlessRule) Rewrite(logical.Operator) (bool, error) { return true, nil }

func TestRewriter_PassLimit(t *testing.T) {
	err := NewRewriter(restlessRule{}).Rewrite(logical.NewCalc(nil))
	assert.Equal(t, dberr.Internal, dberr.Code(err))
}
