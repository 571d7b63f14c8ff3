package tx

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/cockroachdb/errors"
)

// LogRecordType is the type of log record.
type LogRecordType int32

const (
	Checkpoint LogRecordType = iota
	Start
	Commit
	Rollback
	SetInt
	SetBytes
)

func (t LogRecordType) String() string {
	switch t {
	case Checkpoint:
		return "Checkpoint"
	case Start:
		return "Start"
	case Commit:
		return "Commit"
	case Rollback:
		return "Rollback"
	case SetInt:
		return "SetInt"
	case SetBytes:
		return "SetBytes"
	default:
		return "Unknown"
	}
}

const intSize = 4

// LogRecord is one entry of the undo log.
type LogRecord interface {
	// Op returns the log record type.
	Op() LogRecordType

	// TxNumber returns the transaction that wrote the record, or -1 for checkpoints.
	TxNumber() int

	// Undo reverts the change described by the record. Only SETINT and
	// SETBYTES records change anything.
	Undo(tx *Transaction) error
}

// CreateLogRecord decodes a log record. The first 4 bytes hold its type.
func CreateLogRecord(bytes []byte) (LogRecord, error) {
	p := file.NewPageFromBytes(bytes)
	switch LogRecordType(p.GetInt(0)) {
	case Checkpoint:
		return &CheckpointRecord{}, nil
	case Start:
		return &StartRecord{txNum: int(p.GetInt(intSize))}, nil
	case Commit:
		return &CommitRecord{txNum: int(p.GetInt(intSize))}, nil
	case Rollback:
		return &RollbackRecord{txNum: int(p.GetInt(intSize))}, nil
	case SetInt:
		return newSetIntRecord(p)
	case SetBytes:
		return newSetBytesRecord(p)
	default:
		return nil, errors.Newf("tx: unknown log record type %d", p.GetInt(0))
	}
}

// writeBlockHeader encodes the fields shared by update records and returns the
// offset right after them.
func writeBlockHeader(page *file.Page, op LogRecordType, txNum int, block file.BlockId, offset int) (int, error) {
	page.SetInt(0, int32(op))
	page.SetInt(intSize, int32(txNum))
	fileNamePos := 2 * intSize
	if err := page.SetString(fileNamePos, block.Filename()); err != nil {
		return 0, err
	}
	blockNumPos := fileNamePos + file.MaxLength(len(block.Filename()))
	page.SetInt(blockNumPos, int32(block.Number()))
	page.SetInt(blockNumPos+intSize, int32(offset))
	return blockNumPos + 2*intSize, nil
}

func readBlockHeader(page *file.Page) (txNum int, block file.BlockId, offset int, valuePos int, err error) {
	txNum = int(page.GetInt(intSize))
	fileNamePos := 2 * intSize
	fileName, err := page.GetString(fileNamePos)
	if err != nil {
		return 0, file.BlockId{}, 0, 0, err
	}
	blockNumPos := fileNamePos + file.MaxLength(len(fileName))
	block = file.NewBlockId(fileName, int(page.GetInt(blockNumPos)))
	offset = int(page.GetInt(blockNumPos + intSize))
	return txNum, block, offset, blockNumPos + 2*intSize, nil
}

func headerSize(block file.BlockId) int {
	return 2*intSize + file.MaxLength(len(block.Filename())) + 2*intSize
}
