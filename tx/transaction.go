package tx

import (
	"log/slog"
	"sync/atomic"

	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/JyotinderSingh/plandb/tx/concurrency"
)

// EndOfFile is the block number of the marker locked by Size and Append.
const EndOfFile = -1

var nextTxNum atomic.Int64

// Transaction gives a client transactional access to blocks: reads take
// shared locks, writes take exclusive locks and are undo-logged.
type Transaction struct {
	recoveryManager    *RecoveryManager
	concurrencyManager *concurrency.Manager
	bufferManager      *buffer.Manager
	fileManager        *file.Manager
	txNum              int
	myBuffers          *BufferList
}

// NewTransaction starts a transaction and writes its start record.
func NewTransaction(fileManager *file.Manager, logManager *log.Manager, bufferManager *buffer.Manager, lockTable *concurrency.LockTable) (*Transaction, error) {
	tx := &Transaction{
		fileManager:        fileManager,
		bufferManager:      bufferManager,
		txNum:              int(nextTxNum.Add(1)),
		concurrencyManager: concurrency.NewManager(lockTable),
		myBuffers:          NewBufferList(bufferManager),
	}
	rm, err := NewRecoveryManager(tx, tx.txNum, logManager, bufferManager)
	if err != nil {
		return nil, err
	}
	tx.recoveryManager = rm
	return tx, nil
}

// Commit flushes the transaction's changes and log, then releases its locks and pins.
func (tx *Transaction) Commit() error {
	if err := tx.recoveryManager.Commit(); err != nil {
		return err
	}
	slog.Debug("tx: committed", "tx", tx.txNum)
	tx.concurrencyManager.Release()
	tx.myBuffers.UnpinAll()
	return nil
}

// Rollback undoes the transaction's changes, then releases its locks and pins.
func (tx *Transaction) Rollback() error {
	err := tx.recoveryManager.Rollback()
	slog.Debug("tx: rolled back", "tx", tx.txNum, "err", err)
	tx.concurrencyManager.Release()
	tx.myBuffers.UnpinAll()
	return err
}

// Recover rolls back every uncommitted transaction found in the log. It is
// called at startup before user transactions begin.
func (tx *Transaction) Recover() error {
	if err := tx.bufferManager.FlushAll(tx.txNum); err != nil {
		return err
	}
	return tx.recoveryManager.Recover()
}

// Pin pins block for the transaction.
func (tx *Transaction) Pin(block file.BlockId) error {
	return tx.myBuffers.Pin(block)
}

// Unpin releases one pin on block.
func (tx *Transaction) Unpin(block file.BlockId) {
	tx.myBuffers.Unpin(block)
}

func (tx *Transaction) pinnedBuffer(block file.BlockId) (*buffer.Buffer, error) {
	buff := tx.myBuffers.GetBuffer(block)
	if buff == nil {
		return nil, dberr.Newf(dberr.ErrInternal, "tx %d: block %s is not pinned", tx.txNum, block)
	}
	return buff, nil
}

// GetInt reads the integer at offset of block under a shared lock.
func (tx *Transaction) GetInt(block file.BlockId, offset int) (int32, error) {
	if err := tx.concurrencyManager.SLock(block); err != nil {
		return 0, err
	}
	buff, err := tx.pinnedBuffer(block)
	if err != nil {
		return 0, err
	}
	return buff.Contents().GetInt(offset), nil
}

// GetBytes reads n bytes at offset of block under a shared lock.
func (tx *Transaction) GetBytes(block file.BlockId, offset, n int) ([]byte, error) {
	if err := tx.concurrencyManager.SLock(block); err != nil {
		return nil, err
	}
	buff, err := tx.pinnedBuffer(block)
	if err != nil {
		return nil, err
	}
	return buff.Contents().GetRaw(offset, n), nil
}

// SetInt writes val at offset of block under an exclusive lock. When logIt is
// set the old value is logged first.
func (tx *Transaction) SetInt(block file.BlockId, offset int, val int32, logIt bool) error {
	if err := tx.concurrencyManager.XLock(block); err != nil {
		return err
	}
	buff, err := tx.pinnedBuffer(block)
	if err != nil {
		return err
	}
	lsn := int64(-1)
	if logIt {
		if lsn, err = tx.recoveryManager.SetInt(buff, offset); err != nil {
			return err
		}
	}
	buff.Contents().SetInt(offset, val)
	buff.SetModified(tx.txNum, lsn)
	return nil
}

// SetBytes writes val at offset of block under an exclusive lock. When logIt
// is set the overwritten bytes are logged first.
func (tx *Transaction) SetBytes(block file.BlockId, offset int, val []byte, logIt bool) error {
	if err := tx.concurrencyManager.XLock(block); err != nil {
		return err
	}
	buff, err := tx.pinnedBuffer(block)
	if err != nil {
		return err
	}
	lsn := int64(-1)
	if logIt {
		if lsn, err = tx.recoveryManager.SetBytes(buff, offset, len(val)); err != nil {
			return err
		}
	}
	buff.Contents().SetRaw(offset, val)
	buff.SetModified(tx.txNum, lsn)
	return nil
}

// Size returns the number of blocks in filename. The end-of-file marker is
// share-locked so no other transaction can append meanwhile.
func (tx *Transaction) Size(filename string) (int, error) {
	if err := tx.concurrencyManager.SLock(file.NewBlockId(filename, EndOfFile)); err != nil {
		return 0, err
	}
	return tx.fileManager.Length(filename)
}

// Append adds a block to filename under an exclusive lock on the end-of-file marker.
func (tx *Transaction) Append(filename string) (file.BlockId, error) {
	if err := tx.concurrencyManager.XLock(file.NewBlockId(filename, EndOfFile)); err != nil {
		return file.BlockId{}, err
	}
	return tx.fileManager.Append(filename)
}

// BlockSize returns the size of a block in bytes.
func (tx *Transaction) BlockSize() int {
	return tx.fileManager.BlockSize()
}

// AvailableBuffers returns the number of unpinned buffers.
func (tx *Transaction) AvailableBuffers() int {
	return tx.bufferManager.Available()
}

// TxNum returns the transaction number.
func (tx *Transaction) TxNum() int {
	return tx.txNum
}
