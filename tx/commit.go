package tx

import (
	"fmt"

	"github.com/JyotinderSingh/plandb/log"
)

// CommitRecord marks a committed transaction.
type CommitRecord struct {
	txNum int
}

func (r *CommitRecord) Op() LogRecordType         { return Commit }
func (r *CommitRecord) TxNumber() int             { return r.txNum }
func (r *CommitRecord) Undo(_ *Transaction) error { return nil }

func (r *CommitRecord) String() string {
	return fmt.Sprintf("<COMMIT %d>", r.txNum)
}

// WriteCommitToLog appends a commit record and returns its LSN.
func WriteCommitToLog(logManager *log.Manager, txNum int) (int64, error) {
	return writeTxRecord(logManager, Commit, txNum)
}

// RollbackRecord marks a rolled back transaction.
type RollbackRecord struct {
	txNum int
}

func (r *RollbackRecord) Op() LogRecordType         { return Rollback }
func (r *RollbackRecord) TxNumber() int             { return r.txNum }
func (r *RollbackRecord) Undo(_ *Transaction) error { return nil }

func (r *RollbackRecord) String() string {
	return fmt.Sprintf("<ROLLBACK %d>", r.txNum)
}

// WriteRollbackToLog appends a rollback record and returns its LSN.
func WriteRollbackToLog(logManager *log.Manager, txNum int) (int64, error) {
	return writeTxRecord(logManager, Rollback, txNum)
}

// CheckpointRecord marks a quiescent checkpoint: no transaction was active.
type CheckpointRecord struct{}

func (r *CheckpointRecord) Op() LogRecordType         { return Checkpoint }
func (r *CheckpointRecord) TxNumber() int             { return -1 }
func (r *CheckpointRecord) Undo(_ *Transaction) error { return nil }
func (r *CheckpointRecord) String() string            { return "<CHECKPOINT>" }

// WriteCheckpointToLog appends a checkpoint record and returns its LSN.
func WriteCheckpointToLog(logManager *log.Manager) (int64, error) {
	return writeTxRecord(logManager, Checkpoint, -1)
}
