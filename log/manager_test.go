package log

import (
	"fmt"
	"testing"

	"github.com/JyotinderSingh/plandb/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLogTest(t *testing.T, blockSize int) (*file.Manager, *Manager) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), blockSize)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fm.Close() })

	lm, err := NewManager(fm, "testlog")
	require.NoError(t, err)
	return fm, lm
}

func TestLogManager_AppendAndIteratorConsistency(t *testing.T) {
	_, lm := setupLogTest(t, 128)

	recordCount := 100
	records := make([][]byte, recordCount)
	for i := 0; i < recordCount; i++ {
		records[i] = []byte(fmt.Sprintf("log record %d", i+1))
		lsn, err := lm.Append(records[i])
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), lsn)
	}

	iterator, err := lm.Iterator()
	require.NoError(t, err)

	for i := recordCount - 1; i >= 0; i-- {
		require.True(t, iterator.HasNext(), "expected record %d", i+1)
		rec, err := iterator.Next()
		require.NoError(t, err)
		assert.Equal(t, records[i], rec)
	}
	assert.False(t, iterator.HasNext())
}

func TestLogManager_ReopenContinuesTail(t *testing.T) {
	fm, lm := setupLogTest(t, 128)

	_, err := lm.Append([]byte("first"))
	require.NoError(t, err)
	require.NoError(t, lm.Flush(1))

	reopened, err := NewManager(fm, "testlog")
	require.NoError(t, err)
	_, err = reopened.Append([]byte("second"))
	require.NoError(t, err)

	it, err := reopened.Iterator()
	require.NoError(t, err)
	var got []string
	for it.HasNext() {
		rec, err := it.Next()
		require.NoError(t, err)
		got = append(got, string(rec))
	}
	assert.Equal(t, []string{"second", "first"}, got)
}

func TestLogManager_RecordLargerThanBlock(t *testing.T) {
	_, lm := setupLogTest(t, 64)

	_, err := lm.Append(make([]byte, 100))
	assert.Error(t, err)
}
