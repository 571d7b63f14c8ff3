package buffer

import (
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBufferTest(t *testing.T, numBuffers int, strategy ReplacementStrategy) (*file.Manager, *Manager) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), 128)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })
	lm, err := log.NewManager(fm, "buffertest.log")
	require.NoError(t, err)
	return fm, NewManagerWithReplacementStrategy(fm, lm, numBuffers, strategy)
}

func TestBufferManager_PinUnpin(t *testing.T) {
	_, bm := setupBufferTest(t, 3, NewNaiveStrategy())

	b1, err := bm.Pin(file.NewBlockId("data", 0))
	require.NoError(t, err)
	b2, err := bm.Pin(file.NewBlockId("data", 0))
	require.NoError(t, err)
	assert.Same(t, b1, b2, "pinning the same block reuses the buffer")
	assert.Equal(t, 2, bm.Available())

	bm.Unpin(b1)
	assert.Equal(t, 2, bm.Available())
	bm.Unpin(b2)
	assert.Equal(t, 3, bm.Available())
}

func TestBufferManager_TimeoutWhenExhausted(t *testing.T) {
	_, bm := setupBufferTest(t, 2, NewNaiveStrategy())
	bm.SetMaxWait(50 * time.Millisecond)

	_, err := bm.Pin(file.NewBlockId("data", 0))
	require.NoError(t, err)
	_, err = bm.Pin(file.NewBlockId("data", 1))
	require.NoError(t, err)

	_, err = bm.Pin(file.NewBlockId("data", 2))
	require.Error(t, err)
	assert.Equal(t, dberr.BufferAbort, dberr.Code(err))
}

func TestBufferManager_WaiterWakesOnUnpin(t *testing.T) {
	_, bm := setupBufferTest(t, 1, NewNaiveStrategy())

	b, err := bm.Pin(file.NewBlockId("data", 0))
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		bm.Unpin(b)
	}()

	b2, err := bm.Pin(file.NewBlockId("data", 1))
	require.NoError(t, err)
	assert.Equal(t, 1, b2.Block().Number())
}

func TestBufferManager_FlushOnReplacement(t *testing.T) {
	fm, bm := setupBufferTest(t, 1, NewLRUStrategy())

	blk := file.NewBlockId("data", 0)
	b, err := bm.Pin(blk)
	require.NoError(t, err)
	b.Contents().SetInt(0, 1234)
	b.SetModified(1, -1)
	bm.Unpin(b)

	// Pinning another block evicts and flushes the dirty page.
	other, err := bm.Pin(file.NewBlockId("data", 1))
	require.NoError(t, err)
	bm.Unpin(other)

	page := file.NewPage(fm.BlockSize())
	require.NoError(t, fm.Read(blk, page))
	assert.Equal(t, int32(1234), page.GetInt(0))
}

func TestLRUStrategy_PrefersOldestUnpinned(t *testing.T) {
	_, bm := setupBufferTest(t, 2, NewLRUStrategy())

	a, err := bm.Pin(file.NewBlockId("data", 0))
	require.NoError(t, err)
	b, err := bm.Pin(file.NewBlockId("data", 1))
	require.NoError(t, err)
	bm.Unpin(a)
	bm.Unpin(b)

	c, err := bm.Pin(file.NewBlockId("data", 2))
	require.NoError(t, err)
	assert.Same(t, a, c, "block 0 was unpinned first and is evicted")
}

func TestBufferManager_DropInvalidatesCachedBlocks(t *testing.T) {
	fm, bm := setupBufferTest(t, 3, NewLRUStrategy())

	blk, err := fm.Append("t.data")
	require.NoError(t, err)
	buff, err := bm.Pin(blk)
	require.NoError(t, err)
	buff.Contents().SetInt(0, 77)
	buff.SetModified(1, -1)
	bm.Unpin(buff)

	require.NoError(t, fm.DropFile("t.data"))
	blk, err = fm.Append("t.data")
	require.NoError(t, err)

	buff, err = bm.Pin(blk)
	require.NoError(t, err)
	defer bm.Unpin(buff)
	assert.Equal(t, int32(0), buff.Contents().GetInt(0), "recreated file must not see stale pages")
}
