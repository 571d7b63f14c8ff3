package concurrency

import (
	"context"
	"sync"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
)

// DefaultMaxWait is how long a lock request waits by default.
const DefaultMaxWait = 10 * time.Second

// LockTable grants shared and exclusive block locks. A positive value in
// locks is the number of shared holders, -1 marks an exclusive holder.
type LockTable struct {
	locks   map[file.BlockId]int
	maxWait time.Duration
	mu      sync.Mutex
	cond    *sync.Cond
}

// NewLockTable creates a lock table that waits at most maxWait for a lock.
func NewLockTable(maxWait time.Duration) *LockTable {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	lt := &LockTable{
		locks:   make(map[file.BlockId]int),
		maxWait: maxWait,
	}
	lt.cond = sync.NewCond(&lt.mu)
	return lt
}

// SLock grants a shared lock on block, waiting while another transaction holds it exclusively.
func (lt *LockTable) SLock(block file.BlockId) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := lt.waitWhile(block, func() bool { return lt.locks[block] < 0 }); err != nil {
		return err
	}
	lt.locks[block]++
	return nil
}

// XLock grants an exclusive lock on block. The caller must already hold a
// shared lock, so the request waits while anyone else holds one too.
func (lt *LockTable) XLock(block file.BlockId) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if err := lt.waitWhile(block, func() bool { return lt.locks[block] > 1 }); err != nil {
		return err
	}
	lt.locks[block] = -1
	return nil
}

// Unlock releases one lock on block.
func (lt *LockTable) Unlock(block file.BlockId) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if val := lt.locks[block]; val > 1 {
		lt.locks[block]--
	} else {
		delete(lt.locks, block)
		lt.cond.Broadcast()
	}
}

// waitWhile blocks until blocked returns false or the wait times out.
// Callers must hold lt.mu.
func (lt *LockTable) waitWhile(block file.BlockId, blocked func() bool) error {
	if !blocked() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), lt.maxWait)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		lt.cond.Broadcast()
	})
	defer stop()

	for blocked() {
		if ctx.Err() != nil {
			return dberr.Newf(dberr.ErrLockAbort, "lock on %s not granted within %s", block, lt.maxWait)
		}
		lt.cond.Wait()
	}
	return nil
}
