package concurrency

import "github.com/JyotinderSingh/plandb/file"

type lockType int

const (
	shared lockType = iota
	exclusive
)

// Manager tracks the locks held by one transaction. All managers share one LockTable.
type Manager struct {
	lockTable *LockTable
	locks     map[file.BlockId]lockType
}

// NewManager creates a concurrency manager over lockTable.
func NewManager(lockTable *LockTable) *Manager {
	return &Manager{
		lockTable: lockTable,
		locks:     make(map[file.BlockId]lockType),
	}
}

// SLock obtains a shared lock on block unless the transaction already holds one.
func (m *Manager) SLock(block file.BlockId) error {
	if _, ok := m.locks[block]; ok {
		return nil
	}
	if err := m.lockTable.SLock(block); err != nil {
		return err
	}
	m.locks[block] = shared
	return nil
}

// XLock obtains an exclusive lock on block, taking a shared lock first.
func (m *Manager) XLock(block file.BlockId) error {
	if held, ok := m.locks[block]; ok && held == exclusive {
		return nil
	}
	if err := m.SLock(block); err != nil {
		return err
	}
	if err := m.lockTable.XLock(block); err != nil {
		return err
	}
	m.locks[block] = exclusive
	return nil
}

// Release releases every lock held by the transaction.
func (m *Manager) Release() {
	for block := range m.locks {
		m.lockTable.Unlock(block)
	}
	m.locks = make(map[file.BlockId]lockType)
}
