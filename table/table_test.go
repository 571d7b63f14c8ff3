package table

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/tx/concurrency"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableEnv struct {
	fm  *file.Manager
	txn *tx.Transaction
}

func setupTableTest(t *testing.T) *tableEnv {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), 256)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	lm, err := log.NewManager(fm, "tabletest.log")
	require.NoError(t, err)
	bm := buffer.NewManager(fm, lm, 16)
	txn, err := tx.NewTransaction(fm, lm, bm, concurrency.NewLockTable(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Commit() })
	return &tableEnv{fm: fm, txn: txn}
}

func createPeople(t *testing.T, env *tableEnv) *Table {
	t.Helper()
	tbl, err := Create(env.fm, 1, "people", []FieldDef{
		{Name: "id", Type: types.Integer},
		{Name: "name", Type: types.Varchar, Length: 12},
		{Name: "bio", Type: types.Text},
	})
	require.NoError(t, err)
	return tbl
}

func insertPerson(t *testing.T, env *tableEnv, tbl *Table, id int, name, bio string) *Record {
	t.Helper()
	rec, err := tbl.MakeRecord(env.txn, []types.Value{
		types.NewIntValue(id), types.NewStringValue(name), types.NewStringValue(bio),
	})
	require.NoError(t, err)
	require.NoError(t, tbl.InsertRecord(env.txn, rec))
	return rec
}

func lookup(t *testing.T, env *tableEnv, tbl *Table, indexName string, key index.Key) []record.ID {
	t.Helper()
	idx, err := tbl.OpenIndex(env.txn, indexName)
	require.NoError(t, err)
	defer idx.Close()
	require.NoError(t, idx.BeforeFirst(key))
	var ids []record.ID
	for {
		ok, err := idx.Next()
		require.NoError(t, err)
		if !ok {
			return ids
		}
		rid, err := idx.GetDataRecordID()
		require.NoError(t, err)
		ids = append(ids, rid)
	}
}

func countRows(t *testing.T, env *tableEnv, tbl *Table) int {
	t.Helper()
	rows, _, err := tbl.Size(env.txn)
	require.NoError(t, err)
	return rows
}

func TestTable_MetadataRoundTrip(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	require.NoError(t, tbl.CreateIndex(env.txn, true, "idx_id_name", []string{"id", "name"}))

	reopened, err := Open(env.fm, "people.table")
	require.NoError(t, err)
	if diff := pretty.Diff(tbl.Meta(), reopened.Meta()); len(diff) > 0 {
		t.Fatalf("metadata changed on reopen: %v", diff)
	}

	meta := reopened.Meta()
	assert.Equal(t, TrxField, meta.Fields[0].Name)
	assert.False(t, meta.Fields[0].Visible)
	assert.Equal(t, 1, meta.SysFieldCount())
	assert.Len(t, meta.VisibleFields(), 3)

	raw, err := os.ReadFile(MetaPath(env.fm.Dir(), "people"))
	require.NoError(t, err)
	var doc struct {
		Indexes []map[string]any `json:"indexes"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, map[string]any{"index_name": "idx_id_name", "unique": true, "field_name": "id,name"}, doc.Indexes[0])
	assert.NoFileExists(t, MetaPath(env.fm.Dir(), "people")+tmpSuffix)
}

func TestCreate_Validation(t *testing.T) {
	env := setupTableTest(t)
	createPeople(t, env)

	_, err := Create(env.fm, 2, "people", []FieldDef{{Name: "id", Type: types.Integer}})
	assert.Equal(t, dberr.FileExist, dberr.Code(err))

	_, err = Create(env.fm, -1, "other", []FieldDef{{Name: "id", Type: types.Integer}})
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))

	_, err = Create(env.fm, 3, "  ", []FieldDef{{Name: "id", Type: types.Integer}})
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))
}

func TestOpen_IndexOnMissingField(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)

	meta := tbl.Meta()
	meta.Indexes = append(meta.Indexes, IndexMeta{Name: "broken", Fields: []string{"gone"}})
	require.NoError(t, commitMeta(env.fm.Dir(), meta))

	_, err := Open(env.fm, "people.table")
	assert.Equal(t, dberr.Internal, dberr.Code(err))
}

func TestTable_TextOverflowRoundTrip(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)

	long := strings.Repeat("abcdefghij", 100)
	rec := insertPerson(t, env, tbl, 1, "ada", long)
	insertPerson(t, env, tbl, 2, "bob", "")

	got, err := tbl.GetRecord(env.txn, rec.RID)
	require.NoError(t, err)
	bio, err := tbl.Value(env.txn, got, "bio")
	require.NoError(t, err)
	assert.Equal(t, long, bio.AsString())
	assert.Equal(t, types.Text, bio.Type())

	name, err := tbl.Value(env.txn, got, "name")
	require.NoError(t, err)
	assert.Equal(t, "ada", name.AsString())

	trx, err := tbl.Value(env.txn, got, TrxField)
	require.NoError(t, err)
	assert.Equal(t, env.txn.TxNum(), trx.AsInt())
}

func TestTable_TextTooLong(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)

	_, err := tbl.MakeRecord(env.txn, []types.Value{
		types.NewIntValue(1), types.NewStringValue("x"), types.NewStringValue(strings.Repeat("x", types.MaxTextLength+1)),
	})
	assert.Equal(t, dberr.RecordTooLong, dberr.Code(err))
}

func TestTable_MakeRecordChecksArity(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)

	_, err := tbl.MakeRecord(env.txn, []types.Value{types.NewIntValue(1)})
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))

	_, err = tbl.MakeRecord(env.txn, []types.Value{
		types.NewStringValue("one"), types.NewStringValue("x"), types.NewStringValue(""),
	})
	assert.Equal(t, dberr.SchemaFieldTypeMismatch, dberr.Code(err))
}

func TestTable_GetRecordOverLength(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	rec := insertPerson(t, env, tbl, 1, "ada", "")

	rid := rec.RID
	rid.OverLength = 4
	got, err := tbl.GetRecord(env.txn, rid)
	require.NoError(t, err)
	assert.Len(t, got.Data(), 4)

	full, err := tbl.GetRecord(env.txn, rec.RID)
	require.NoError(t, err)
	assert.Len(t, full.Data(), tbl.Meta().RecordSize)
	full.Data()[0] ^= 0xff
	again, err := tbl.GetRecord(env.txn, rec.RID)
	require.NoError(t, err)
	assert.Equal(t, rec.Data(), again.Data(), "GetRecord returns a private copy")
}

func TestTable_DuplicateKeyCompensation(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	require.NoError(t, tbl.CreateIndex(env.txn, false, "idx_name", []string{"name"}))
	require.NoError(t, tbl.CreateIndex(env.txn, true, "idx_id", []string{"id"}))

	first := insertPerson(t, env, tbl, 1, "ada", "first")

	rec, err := tbl.MakeRecord(env.txn, []types.Value{
		types.NewIntValue(1), types.NewStringValue("eve"), types.NewStringValue(strings.Repeat("z", 600)),
	})
	require.NoError(t, err)
	err = tbl.InsertRecord(env.txn, rec)
	assert.Equal(t, dberr.RecordDuplicateKey, dberr.Code(err))

	assert.Equal(t, 1, countRows(t, env, tbl))
	assert.Empty(t, lookup(t, env, tbl, "idx_name", index.Key{types.NewStringValue("eve")}))
	assert.Equal(t, []record.ID{first.RID}, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(1)}))
}

func TestTable_UpdateMovesIndexEntries(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	require.NoError(t, tbl.CreateIndex(env.txn, true, "idx_id", []string{"id"}))

	a := insertPerson(t, env, tbl, 1, "ada", "")
	insertPerson(t, env, tbl, 2, "bob", "")

	require.NoError(t, tbl.UpdateRecord(env.txn, a, "id", types.NewIntValue(10)))
	assert.Empty(t, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(1)}))
	assert.Equal(t, []record.ID{a.RID}, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(10)}))

	stored, err := tbl.GetRecord(env.txn, a.RID)
	require.NoError(t, err)
	id, err := tbl.Value(env.txn, stored, "id")
	require.NoError(t, err)
	assert.Equal(t, 10, id.AsInt())

	err = tbl.UpdateRecord(env.txn, a, "id", types.NewIntValue(2))
	assert.Equal(t, dberr.RecordDuplicateKey, dberr.Code(err))
	assert.Equal(t, []record.ID{a.RID}, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(10)}))
	stored, err = tbl.GetRecord(env.txn, a.RID)
	require.NoError(t, err)
	id, err = tbl.Value(env.txn, stored, "id")
	require.NoError(t, err)
	assert.Equal(t, 10, id.AsInt(), "failed update leaves the old value")
}

func TestTable_UpdateText(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	rec := insertPerson(t, env, tbl, 1, "ada", strings.Repeat("a", 500))

	require.NoError(t, tbl.UpdateRecord(env.txn, rec, "bio", types.NewStringValue("short")))
	bio, err := tbl.Value(env.txn, rec, "bio")
	require.NoError(t, err)
	assert.Equal(t, "short", bio.AsString())
	assert.Equal(t, 1, countChunks(t, env, tbl))
}

func countChunks(t *testing.T, env *tableEnv, tbl *Table) int {
	t.Helper()
	f, err := tbl.ovf.file(env.txn)
	require.NoError(t, err)
	scanner := f.Scan()
	defer scanner.Close()
	n := 0
	for {
		ok, err := scanner.Next()
		require.NoError(t, err)
		if !ok {
			return n
		}
		n++
	}
}

func TestTable_DeleteRemovesIndexEntriesAndText(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	require.NoError(t, tbl.CreateIndex(env.txn, true, "idx_id", []string{"id"}))

	rec := insertPerson(t, env, tbl, 7, "ada", strings.Repeat("q", 700))
	require.Greater(t, countChunks(t, env, tbl), 1)

	require.NoError(t, tbl.DeleteRecord(env.txn, rec))
	assert.Equal(t, 0, countRows(t, env, tbl))
	assert.Equal(t, 0, countChunks(t, env, tbl))
	assert.Empty(t, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(7)}))

	// the key is free again
	insertPerson(t, env, tbl, 7, "bob", "")
	assert.Len(t, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(7)}), 1)
}

func TestTable_CreateIndexBackfill(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	for i := 0; i < 30; i++ {
		insertPerson(t, env, tbl, i%10, "p", "")
	}

	require.NoError(t, tbl.CreateIndex(env.txn, false, "idx_id", []string{"id"}))
	assert.Len(t, lookup(t, env, tbl, "idx_id", index.Key{types.NewIntValue(3)}), 3)

	err := tbl.CreateIndex(env.txn, false, "idx_id", []string{"name"})
	assert.Equal(t, dberr.SchemaIndexNameRepeat, dberr.Code(err))

	err = tbl.CreateIndex(env.txn, false, "idx_missing", []string{"nope"})
	assert.Equal(t, dberr.SchemaFieldNotExist, dberr.Code(err))

	err = tbl.CreateIndex(env.txn, true, "idx_unique", []string{"id"})
	meta := tbl.Meta()
	_, ok := meta.Index("idx_unique")
	assert.False(t, ok)
	assert.False(t, env.fm.Exists("people_idx_unique_leaf"))
}

func TestTable_Drop(t *testing.T) {
	env := setupTableTest(t)
	tbl := createPeople(t, env)
	require.NoError(t, tbl.CreateIndex(env.txn, false, "idx_id", []string{"id"}))
	insertPerson(t, env, tbl, 1, "ada", strings.Repeat("x", 300))

	require.NoError(t, tbl.Drop())
	for _, name := range []string{"people.table", "people.data", "people.ovf", "people_idx_id_leaf", "people_idx_id_directory"} {
		assert.False(t, env.fm.Exists(name), name)
	}
}
