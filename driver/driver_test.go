package driver

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(driverName, filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err, "failed to open plandb")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPlanDBDriver(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE student (sname VARCHAR(10), gradyear INT)")
	require.NoError(t, err, "failed to create table")

	insertQueries := []string{
		`INSERT INTO student (sname, gradyear) VALUES ('Charlie', 2025)`,
		`INSERT INTO student (sname, gradyear) VALUES ('Alice', 2023), ('Bob', 2024)`,
	}
	var inserted int64
	for _, query := range insertQueries {
		res, err := db.Exec(query)
		require.NoError(t, err, "failed to insert row")
		n, err := res.RowsAffected()
		require.NoError(t, err)
		inserted += n
	}
	assert.Equal(t, int64(3), inserted)

	rows, err := db.Query("SELECT sname, gradyear FROM student ORDER BY gradyear")
	require.NoError(t, err, "failed to query rows")
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)
	assert.Equal(t, []string{"sname", "gradyear"}, cols)

	type student struct {
		sname    string
		gradyear int
	}
	var results []student
	for rows.Next() {
		var s student
		require.NoError(t, rows.Scan(&s.sname, &s.gradyear), "failed to scan row")
		results = append(results, s)
	}
	require.NoError(t, rows.Err(), "rows iteration error")

	assert.Equal(t, []student{{"Alice", 2023}, {"Bob", 2024}, {"Charlie", 2025}}, results)
}

func TestPlanDBDriver_ValueTypes(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE reading (v FLOAT, passed BOOL, taken DATE)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO reading VALUES (1.5, true, '2024-01-02')")
	require.NoError(t, err)

	var (
		v      float64
		passed bool
		taken  time.Time
	)
	require.NoError(t, db.QueryRow("SELECT v, passed, taken FROM reading").Scan(&v, &passed, &taken))
	assert.Equal(t, 1.5, v)
	assert.True(t, passed)
	assert.Equal(t, time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC), taken)
}

func TestPlanDBDriver_Transactions(t *testing.T) {
	db := openTestDB(t)
	db.SetMaxOpenConns(1)

	_, err := db.Exec("CREATE TABLE t (a INT)")
	require.NoError(t, err)

	txn, err := db.Begin()
	require.NoError(t, err)
	_, err = txn.Exec("INSERT INTO t VALUES (1)")
	require.NoError(t, err)
	require.NoError(t, txn.Rollback())

	var count int
	rows, err := db.Query("SELECT a FROM t")
	require.NoError(t, err)
	for rows.Next() {
		count++
	}
	require.NoError(t, rows.Close())
	assert.Zero(t, count, "rolled back insert is gone")

	txn, err = db.Begin()
	require.NoError(t, err)
	_, err = txn.Exec("INSERT INTO t VALUES (2)")
	require.NoError(t, err)
	require.NoError(t, txn.Commit())

	var a int
	require.NoError(t, db.QueryRow("SELECT a FROM t").Scan(&a))
	assert.Equal(t, 2, a)

	// a failing statement ends the transaction; rollback is then a no-op
	txn, err = db.Begin()
	require.NoError(t, err)
	_, err = txn.Exec("INSERT INTO missing VALUES (3)")
	assert.Equal(t, dberr.SchemaTableNotExist, dberr.Code(err))
	assert.NoError(t, txn.Rollback())
}

func TestPlanDBDriver_Errors(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec("CREATE TABLE t (a INT)")
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE t (a INT)")
	assert.Equal(t, dberr.SchemaTableExist, dberr.Code(err))

	_, err = db.Query("INSERT INTO t VALUES (1)")
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(err))

	_, err = db.Exec("SELECT a FROM t WHERE a = ?", 1)
	assert.Error(t, err)
}

func TestPlanDBDriver_SharesDatabase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	first, err := sql.Open(driverName, dir)
	require.NoError(t, err)
	defer first.Close()
	second, err := sql.Open(driverName, dir)
	require.NoError(t, err)
	defer second.Close()

	_, err = first.Exec("CREATE TABLE t (a INT)")
	require.NoError(t, err)
	_, err = first.Exec("INSERT INTO t VALUES (7)")
	require.NoError(t, err)

	var a int
	require.NoError(t, second.QueryRow("SELECT a FROM t").Scan(&a))
	assert.Equal(t, 7, a)
}
