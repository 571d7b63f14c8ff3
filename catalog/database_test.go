package catalog

import (
	"testing"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogTest(t *testing.T, dir string) (*file.Manager, *Database) {
	t.Helper()
	fm, err := file.NewManager(dir, 400)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })
	db, err := Open(fm, "relstatistics")
	require.NoError(t, err)
	return fm, db
}

var orderFields = []table.FieldDef{
	{Name: "id", Type: types.Integer},
	{Name: "amount", Type: types.Integer},
}

func TestOpen_BootstrapsStatsTable(t *testing.T) {
	_, db := setupCatalogTest(t, t.TempDir())

	stats := db.StatsTable()
	require.NotNil(t, stats)
	meta := stats.Meta()
	var names []string
	for _, f := range meta.VisibleFields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"table_name", "column_name", "bucket_count", "histogram", "sampled_row_count"}, names)
	assert.Equal(t, []string{"relstatistics"}, db.TableNames())
}

func TestCreateFindDrop(t *testing.T) {
	_, db := setupCatalogTest(t, t.TempDir())

	id := db.NextTableID()
	tbl, err := db.CreateTable("orders", orderFields)
	require.NoError(t, err)
	assert.Equal(t, id, tbl.Meta().ID)
	assert.Equal(t, id+1, db.NextTableID())

	_, err = db.CreateTable("orders", orderFields)
	assert.Equal(t, dberr.SchemaTableExist, dberr.Code(err))

	found, err := db.FindTable("orders")
	require.NoError(t, err)
	assert.Same(t, tbl, found)

	_, err = db.CreateTable("customers", orderFields)
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "orders", "relstatistics"}, db.TableNames())

	require.NoError(t, db.DropTable("orders"))
	_, err = db.FindTable("orders")
	assert.Equal(t, dberr.SchemaTableNotExist, dberr.Code(err))
	assert.Equal(t, dberr.SchemaTableNotExist, dberr.Code(db.DropTable("orders")))
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(db.DropTable("relstatistics")))
}

func TestOpen_ReloadsTables(t *testing.T) {
	dir := t.TempDir()
	fm, db := setupCatalogTest(t, dir)
	_, err := db.CreateTable("orders", orderFields)
	require.NoError(t, err)
	next := db.NextTableID()
	require.NoError(t, fm.Close())

	_, reopened := setupCatalogTest(t, dir)
	assert.Equal(t, []string{"orders", "relstatistics"}, reopened.TableNames())
	assert.Equal(t, next, reopened.NextTableID())

	tbl, err := reopened.FindTable("orders")
	require.NoError(t, err)
	field, ok := tbl.Field("amount")
	require.True(t, ok)
	assert.Equal(t, types.Integer, field.Type)
}
