package tx

import (
	"fmt"

	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
)

// SetBytesRecord holds the previous contents of an overwritten byte range.
type SetBytesRecord struct {
	txNum  int
	block  file.BlockId
	offset int
	value  []byte
}

func newSetBytesRecord(page *file.Page) (*SetBytesRecord, error) {
	txNum, block, offset, valuePos, err := readBlockHeader(page)
	if err != nil {
		return nil, err
	}
	return &SetBytesRecord{txNum: txNum, block: block, offset: offset, value: page.GetBytes(valuePos)}, nil
}

func (r *SetBytesRecord) Op() LogRecordType { return SetBytes }
func (r *SetBytesRecord) TxNumber() int     { return r.txNum }

func (r *SetBytesRecord) String() string {
	return fmt.Sprintf("<SETBYTES %d %s %d len=%d>", r.txNum, r.block, r.offset, len(r.value))
}

// Undo restores the saved bytes without logging them.
func (r *SetBytesRecord) Undo(tx *Transaction) error {
	if err := tx.Pin(r.block); err != nil {
		return err
	}
	defer tx.Unpin(r.block)
	return tx.SetBytes(r.block, r.offset, r.value, false)
}

// WriteSetBytesToLog appends a SETBYTES record holding the old bytes and returns its LSN.
func WriteSetBytesToLog(logManager *log.Manager, txNum int, block file.BlockId, offset int, oldVal []byte) (int64, error) {
	record := make([]byte, headerSize(block)+intSize+len(oldVal))
	page := file.NewPageFromBytes(record)
	valuePos, err := writeBlockHeader(page, SetBytes, txNum, block, offset)
	if err != nil {
		return -1, err
	}
	page.SetBytes(valuePos, oldVal)
	return logManager.Append(record)
}
