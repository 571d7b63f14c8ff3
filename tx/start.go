package tx

import (
	"fmt"

	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
)

// StartRecord marks the beginning of a transaction.
type StartRecord struct {
	txNum int
}

func (r *StartRecord) Op() LogRecordType         { return Start }
func (r *StartRecord) TxNumber() int             { return r.txNum }
func (r *StartRecord) Undo(_ *Transaction) error { return nil }

func (r *StartRecord) String() string {
	return fmt.Sprintf("<START %d>", r.txNum)
}

// WriteStartToLog appends a start record and returns its LSN.
func WriteStartToLog(logManager *log.Manager, txNum int) (int64, error) {
	return writeTxRecord(logManager, Start, txNum)
}

func writeTxRecord(logManager *log.Manager, op LogRecordType, txNum int) (int64, error) {
	record := make([]byte, 2*intSize)
	page := file.NewPageFromBytes(record)
	page.SetInt(0, int32(op))
	page.SetInt(intSize, int32(txNum))
	return logManager.Append(record)
}
