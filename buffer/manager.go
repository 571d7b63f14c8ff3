package buffer

import (
	"context"
	"sync"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/cockroachdb/errors"
)

// DefaultMaxWait is how long Pin waits for a free buffer by default.
const DefaultMaxWait = 10 * time.Second

// Manager manages the pinning and unpinning of buffers to blocks.
type Manager struct {
	bufferPool   []*Buffer
	numAvailable int
	maxWait      time.Duration
	mu           sync.Mutex
	cond         *sync.Cond
	strategy     ReplacementStrategy
}

// NewManager creates a buffer manager with numBuffers slots using LRU replacement.
func NewManager(fileManager *file.Manager, logManager *log.Manager, numBuffers int) *Manager {
	return NewManagerWithReplacementStrategy(fileManager, logManager, numBuffers, NewLRUStrategy())
}

// NewManagerWithReplacementStrategy creates a buffer manager with the given replacement strategy.
func NewManagerWithReplacementStrategy(fileManager *file.Manager, logManager *log.Manager, numBuffers int, strategy ReplacementStrategy) *Manager {
	bm := &Manager{
		bufferPool:   make([]*Buffer, numBuffers),
		numAvailable: numBuffers,
		maxWait:      DefaultMaxWait,
		strategy:     strategy,
	}
	bm.cond = sync.NewCond(&bm.mu)
	for i := 0; i < numBuffers; i++ {
		bm.bufferPool[i] = NewBuffer(fileManager, logManager)
	}
	strategy.initialize(bm.bufferPool)
	fileManager.OnDrop(bm.Invalidate)
	return bm
}

// Invalidate detaches the unpinned buffers holding blocks of filename
// without writing them, so a file created later under the same name is
// read from disk.
func (m *Manager) Invalidate(filename string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, buff := range m.bufferPool {
		if b := buff.Block(); b != nil && b.Filename() == filename && !buff.isPinned() {
			buff.detach()
		}
	}
}

// SetMaxWait changes how long Pin waits for a free buffer.
func (m *Manager) SetMaxWait(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxWait = d
}

// Available returns the number of unpinned buffers.
func (m *Manager) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.numAvailable
}

// FlushAll flushes the dirty buffers modified by the specified transaction.
func (m *Manager) FlushAll(txnNum int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, buff := range m.bufferPool {
		if buff.modifyingTxn() == txnNum {
			if err := buff.flush(); err != nil {
				return errors.Wrapf(err, "flush buffers of txn %d", txnNum)
			}
		}
	}
	return nil
}

// Unpin unpins buffer and wakes waiters when it becomes free.
func (m *Manager) Unpin(buffer *Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buffer.unpin()
	m.strategy.unpinBuffer(buffer)
	if !buffer.isPinned() {
		m.numAvailable++
		m.cond.Broadcast()
	}
}

// Pin pins a buffer to block, waiting up to the configured time for one to
// become free. Giving up returns an error marked ErrBufferAbort.
func (m *Manager) Pin(block file.BlockId) (*Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.maxWait)
	defer cancel()

	// Wake the waiter when the deadline passes.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cond.Broadcast()
	})
	defer stop()

	for {
		buff, err := m.tryToPin(block)
		if err != nil {
			return nil, err
		}
		if buff != nil {
			return buff, nil
		}
		if ctx.Err() != nil {
			return nil, dberr.Newf(dberr.ErrBufferAbort, "could not pin block %s within %s", block, m.maxWait)
		}
		m.cond.Wait()
	}
}

// tryToPin pins the buffer already holding block, or assigns an unpinned one.
// It returns nil when every buffer is pinned. Callers must hold m.mu.
func (m *Manager) tryToPin(block file.BlockId) (*Buffer, error) {
	buffer := m.findExistingBuffer(block)
	if buffer == nil {
		buffer = m.strategy.chooseUnpinnedBuffer()
		if buffer == nil {
			return nil, nil
		}
		if err := buffer.assignToBlock(block); err != nil {
			return nil, err
		}
	}
	if !buffer.isPinned() {
		m.numAvailable--
	}
	buffer.pin()
	m.strategy.pinBuffer(buffer)
	return buffer, nil
}

func (m *Manager) findExistingBuffer(block file.BlockId) *Buffer {
	for _, buffer := range m.bufferPool {
		if b := buffer.Block(); b != nil && *b == block {
			return buffer
		}
	}
	return nil
}
