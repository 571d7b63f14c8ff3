package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AppendWriteRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	fm, err := NewManager(dir, 64)
	require.NoError(t, err)
	defer fm.Close()

	assert.True(t, fm.IsNew())

	blk, err := fm.Append("orders.dat")
	require.NoError(t, err)
	assert.Equal(t, 0, blk.Number())

	page := NewPage(fm.BlockSize())
	page.SetInt(0, 77)
	require.NoError(t, page.SetString(4, "hello"))
	require.NoError(t, fm.Write(blk, page))

	read := NewPage(fm.BlockSize())
	require.NoError(t, fm.Read(blk, read))
	assert.Equal(t, int32(77), read.GetInt(0))
	s, err := read.GetString(4)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	n, err := fm.Length("orders.dat")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManager_ReadPastEndIsZeroed(t *testing.T) {
	fm, err := NewManager(t.TempDir(), 32)
	require.NoError(t, err)
	defer fm.Close()

	page := NewPage(32)
	page.SetInt(0, 9)
	require.NoError(t, fm.Read(NewBlockId("empty.dat", 3), page))
	assert.Equal(t, int32(0), page.GetInt(0))
}

func TestManager_CreateFileIsExclusive(t *testing.T) {
	fm, err := NewManager(t.TempDir(), 32)
	require.NoError(t, err)
	defer fm.Close()

	require.NoError(t, fm.CreateFile("t.table"))
	err = fm.CreateFile("t.table")
	require.Error(t, err)
	assert.Equal(t, dberr.FileExist, dberr.Code(err))

	require.NoError(t, fm.DropFile("t.table"))
	assert.False(t, fm.Exists("t.table"))
	require.NoError(t, fm.DropFile("t.table"), "dropping a missing file is a no-op")
}

func TestManager_RemovesTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.table.tmp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.table"), []byte("{}"), 0o644))

	fm, err := NewManager(dir, 32)
	require.NoError(t, err)
	defer fm.Close()

	assert.False(t, fm.IsNew())
	assert.False(t, fm.Exists("orders.table.tmp"))
	assert.True(t, fm.Exists("orders.table"))
}

func TestManager_DroppedFileIgnoresCachedWrites(t *testing.T) {
	fm, err := NewManager(t.TempDir(), 32)
	require.NoError(t, err)
	defer fm.Close()

	blk, err := fm.Append("idx_leaf")
	require.NoError(t, err)
	require.NoError(t, fm.DropFile("idx_leaf"))

	page := NewPage(32)
	page.SetInt(0, 5)
	require.NoError(t, fm.Write(blk, page))
	assert.False(t, fm.Exists("idx_leaf"))
	n, err := fm.Length("idx_leaf")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = fm.Append("idx_leaf")
	require.NoError(t, err)
	assert.True(t, fm.Exists("idx_leaf"))
}
