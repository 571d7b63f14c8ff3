package buffer

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/cockroachdb/errors"
)

// Buffer wraps a page together with the block it currently holds, its pin
// count and the transaction (if any) that dirtied it.
type Buffer struct {
	fileManager *file.Manager
	logManager  *log.Manager
	contents    *file.Page
	block       *file.BlockId
	pins        int
	txnNum      int
	lsn         int64
	lastUsed    int64
}

// NewBuffer creates an unassigned buffer.
func NewBuffer(fileManager *file.Manager, logManager *log.Manager) *Buffer {
	return &Buffer{
		fileManager: fileManager,
		logManager:  logManager,
		contents:    file.NewPage(fileManager.BlockSize()),
		txnNum:      -1,
		lsn:         -1,
	}
}

// Contents returns the page held by the buffer.
func (b *Buffer) Contents() *file.Page {
	return b.contents
}

// Block returns the block assigned to the buffer, or nil.
func (b *Buffer) Block() *file.BlockId {
	return b.block
}

// SetModified records that txnNum changed the page. A non-negative lsn is the
// log record describing the change.
func (b *Buffer) SetModified(txnNum int, lsn int64) {
	b.txnNum = txnNum
	if lsn >= 0 {
		b.lsn = lsn
	}
}

func (b *Buffer) isPinned() bool {
	return b.pins > 0
}

func (b *Buffer) modifyingTxn() int {
	return b.txnNum
}

// assignToBlock flushes the current page and reads block into the buffer.
func (b *Buffer) assignToBlock(block file.BlockId) error {
	if err := b.flush(); err != nil {
		return err
	}
	b.block = &block
	if err := b.fileManager.Read(block, b.contents); err != nil {
		return errors.Wrapf(err, "buffer: assign %s", block)
	}
	b.pins = 0
	return nil
}

// flush writes a dirty page to disk after forcing its log record out.
func (b *Buffer) flush() error {
	if b.txnNum < 0 {
		return nil
	}
	if err := b.logManager.Flush(b.lsn); err != nil {
		return err
	}
	if err := b.fileManager.Write(*b.block, b.contents); err != nil {
		return errors.Wrapf(err, "buffer: flush %s", b.block)
	}
	b.txnNum = -1
	return nil
}

// detach forgets the block and any unwritten changes.
func (b *Buffer) detach() {
	b.block = nil
	b.txnNum = -1
	b.lsn = -1
}

func (b *Buffer) pin() {
	b.pins++
}

func (b *Buffer) unpin() {
	b.pins--
}
