package tx

import (
	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/cockroachdb/errors"
)

// RecoveryManager writes the undo log of one transaction and uses it for
// rollback and restart recovery.
type RecoveryManager struct {
	logManager    *log.Manager
	bufferManager *buffer.Manager
	tx            *Transaction
	txNum         int
}

// NewRecoveryManager writes a start record for txNum.
func NewRecoveryManager(tx *Transaction, txNum int, logManager *log.Manager, bufferManager *buffer.Manager) (*RecoveryManager, error) {
	if _, err := WriteStartToLog(logManager, txNum); err != nil {
		return nil, errors.Wrapf(err, "tx %d: write start record", txNum)
	}
	return &RecoveryManager{
		logManager:    logManager,
		bufferManager: bufferManager,
		tx:            tx,
		txNum:         txNum,
	}, nil
}

// Commit flushes the transaction's buffers, then writes and flushes a commit record.
func (rm *RecoveryManager) Commit() error {
	if err := rm.bufferManager.FlushAll(rm.txNum); err != nil {
		return err
	}
	lsn, err := WriteCommitToLog(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(lsn)
}

// Rollback undoes the transaction's changes, flushes them and logs a rollback record.
func (rm *RecoveryManager) Rollback() error {
	if err := rm.doRollback(); err != nil {
		return err
	}
	if err := rm.bufferManager.FlushAll(rm.txNum); err != nil {
		return err
	}
	lsn, err := WriteRollbackToLog(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(lsn)
}

// Recover undoes every transaction without a commit or rollback record and
// writes a quiescent checkpoint.
func (rm *RecoveryManager) Recover() error {
	if err := rm.doRecover(); err != nil {
		return err
	}
	if err := rm.bufferManager.FlushAll(rm.txNum); err != nil {
		return err
	}
	lsn, err := WriteCheckpointToLog(rm.logManager)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(lsn)
}

// SetInt logs the value about to be overwritten at offset.
func (rm *RecoveryManager) SetInt(buff *buffer.Buffer, offset int) (int64, error) {
	oldVal := buff.Contents().GetInt(offset)
	return WriteSetIntToLog(rm.logManager, rm.txNum, *buff.Block(), offset, oldVal)
}

// SetBytes logs the n bytes about to be overwritten at offset. Long ranges are
// split across several records so that each fits a log block.
func (rm *RecoveryManager) SetBytes(buff *buffer.Buffer, offset, n int) (int64, error) {
	block := *buff.Block()
	maxPiece := buff.Contents().Len()/2 - headerSize(block) - intSize
	if maxPiece <= 0 {
		return -1, errors.Newf("tx: block %s too small to log updates", block)
	}

	lsn := int64(-1)
	for start := 0; start < n; start += maxPiece {
		size := min(maxPiece, n-start)
		old := buff.Contents().GetRaw(offset+start, size)
		var err error
		if lsn, err = WriteSetBytesToLog(rm.logManager, rm.txNum, block, offset+start, old); err != nil {
			return -1, err
		}
	}
	return lsn, nil
}

func (rm *RecoveryManager) doRollback() error {
	it, err := rm.logManager.Iterator()
	if err != nil {
		return err
	}
	for it.HasNext() {
		bytes, err := it.Next()
		if err != nil {
			return err
		}
		rec, err := CreateLogRecord(bytes)
		if err != nil {
			return err
		}
		if rec.TxNumber() != rm.txNum {
			continue
		}
		if rec.Op() == Start {
			return nil
		}
		if err := rec.Undo(rm.tx); err != nil {
			return errors.Wrapf(err, "tx %d: undo %s", rm.txNum, rec.Op())
		}
	}
	return nil
}

func (rm *RecoveryManager) doRecover() error {
	finished := make(map[int]bool)
	it, err := rm.logManager.Iterator()
	if err != nil {
		return err
	}
	for it.HasNext() {
		bytes, err := it.Next()
		if err != nil {
			return err
		}
		rec, err := CreateLogRecord(bytes)
		if err != nil {
			return err
		}
		switch rec.Op() {
		case Checkpoint:
			return nil
		case Commit, Rollback:
			finished[rec.TxNumber()] = true
		default:
			if !finished[rec.TxNumber()] {
				if err := rec.Undo(rm.tx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
