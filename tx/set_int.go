package tx

import (
	"fmt"

	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
)

// SetIntRecord holds the previous value of an overwritten integer.
type SetIntRecord struct {
	txNum  int
	block  file.BlockId
	offset int
	value  int32
}

func newSetIntRecord(page *file.Page) (*SetIntRecord, error) {
	txNum, block, offset, valuePos, err := readBlockHeader(page)
	if err != nil {
		return nil, err
	}
	return &SetIntRecord{txNum: txNum, block: block, offset: offset, value: page.GetInt(valuePos)}, nil
}

func (r *SetIntRecord) Op() LogRecordType { return SetInt }
func (r *SetIntRecord) TxNumber() int     { return r.txNum }

func (r *SetIntRecord) String() string {
	return fmt.Sprintf("<SETINT %d %s %d %d>", r.txNum, r.block, r.offset, r.value)
}

// Undo restores the saved value without logging it.
func (r *SetIntRecord) Undo(tx *Transaction) error {
	if err := tx.Pin(r.block); err != nil {
		return err
	}
	defer tx.Unpin(r.block)
	return tx.SetInt(r.block, r.offset, r.value, false)
}

// WriteSetIntToLog appends a SETINT record holding the old value and returns its LSN.
func WriteSetIntToLog(logManager *log.Manager, txNum int, block file.BlockId, offset int, oldVal int32) (int64, error) {
	record := make([]byte, headerSize(block)+intSize)
	page := file.NewPageFromBytes(record)
	valuePos, err := writeBlockHeader(page, SetInt, txNum, block, offset)
	if err != nil {
		return -1, err
	}
	page.SetInt(valuePos, oldVal)
	return logManager.Append(record)
}
