package stats

import (
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/tx/concurrency"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStatsTest(t *testing.T) (*catalog.Database, *tx.Transaction) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })
	lm, err := log.NewManager(fm, "statstest.log")
	require.NoError(t, err)
	bm := buffer.NewManager(fm, lm, 16)
	txn, err := tx.NewTransaction(fm, lm, bm, concurrency.NewLockTable(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Commit() })

	db, err := catalog.Open(fm, "relstatistics")
	require.NoError(t, err)
	return db, txn
}

func ordersMeta(t *testing.T, db *catalog.Database) table.Meta {
	t.Helper()
	tbl, err := db.CreateTable("orders", []table.FieldDef{
		{Name: "id", Type: types.Integer},
		{Name: "amount", Type: types.Integer},
		{Name: "note", Type: types.Varchar, Length: 8},
	})
	require.NoError(t, err)
	return tbl.Meta()
}

func TestCollector_ValidatesColumns(t *testing.T) {
	db, _ := setupStatsTest(t)
	meta := ordersMeta(t, db)
	c := NewCollector(10, NewSampler(rand.NewPCG(1, 1)))

	_, err := c.Collect(meta, []string{"amount", "missing"}, nil)
	assert.Equal(t, dberr.SchemaFieldNotExist, dberr.Code(err))

	_, err = c.Collect(meta, []string{table.TrxField}, nil)
	assert.Equal(t, dberr.SchemaFieldNotExist, dberr.Code(err))

	fields, err := ResolveColumns(meta, nil)
	require.NoError(t, err)
	assert.Len(t, fields, 3)
}

func TestCollector_Collect(t *testing.T) {
	db, _ := setupStatsTest(t)
	meta := ordersMeta(t, db)
	c := NewCollector(10, NewSampler(rand.NewPCG(1, 1)))

	rows := [][]types.Value{
		{types.NewIntValue(10), types.NewStringValue("b")},
		{types.NewIntValue(20), types.NewStringValue("a")},
		{types.NewIntValue(30), types.NewStringValue("c")},
	}
	out, err := c.Collect(meta, []string{"amount", "note"}, rows)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "orders", out[0].Table)
	assert.Equal(t, "amount", out[0].Column)
	assert.Equal(t, 10, out[0].BucketCount)
	assert.Equal(t, 3, out[0].SampledRowCount)
	assert.Equal(t, 10, strings.Count(out[0].Histogram, "("))

	h, err := out[1].Parse(types.Varchar)
	require.NoError(t, err)
	assert.Equal(t, "a", h.Min().AsString())
	assert.Equal(t, "c", h.Max().AsString())
}

func TestStore_WriteSupersedesStaleRows(t *testing.T) {
	db, txn := setupStatsTest(t)
	store := NewStore(db.StatsTable())

	first := Row{Table: "orders", Column: "amount", BucketCount: 10, Histogram: "(1,2)", SampledRowCount: 2}
	require.NoError(t, store.Write(txn, []Row{first}))
	second := first
	second.Histogram = "(1,3)"
	second.SampledRowCount = 3
	require.NoError(t, store.Write(txn, []Row{
		second,
		{Table: "orders", Column: "id", BucketCount: 10, Histogram: "(1,1)", SampledRowCount: 1},
		{Table: "people", Column: "age", BucketCount: 10, Histogram: "(5,9)", SampledRowCount: 4},
	}))

	row, ok, err := store.Lookup(txn, "orders", "amount")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, row)

	rows, err := store.TableRows(txn, "orders")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "amount", rows[0].Column)
	assert.Equal(t, "id", rows[1].Column)

	n, _, err := db.StatsTable().Size(txn)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "one live row per column")

	require.NoError(t, store.Purge(txn, "orders"))
	rows, err = store.TableRows(txn, "orders")
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, ok, err = store.Lookup(txn, "people", "age")
	require.NoError(t, err)
	assert.True(t, ok)
}
