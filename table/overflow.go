package table

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

const (
	maxChunkSize   = 8000
	chunkHeader    = 12
	recordFlagSize = 4
)

// overflow stores TEXT values as chains of chunk records. A chunk record
// holds the id of the next chunk, the chunk length and the chunk bytes.
// A text slot in the table record holds the id of the head chunk and the
// total length; an empty value has head block -1.
type overflow struct {
	filename string
}

// chunkSize returns how many text bytes one chunk carries for blockSize.
func chunkSize(blockSize int) int {
	return min(maxChunkSize, blockSize-recordFlagSize-chunkHeader)
}

func (o overflow) file(txn *tx.Transaction) (*record.File, error) {
	return record.NewFile(txn, o.filename, chunkHeader+chunkSize(txn.BlockSize()))
}

// write stores s and returns the encoded text slot.
func (o overflow) write(txn *tx.Transaction, s string) ([]byte, error) {
	if len(s) > types.MaxTextLength {
		return nil, dberr.Newf(dberr.ErrRecordTooLong, "text of %d bytes exceeds %d", len(s), types.MaxTextLength)
	}
	slot := file.NewPageFromBytes(make([]byte, types.TextSlotSize))
	slot.SetInt(0, -1)
	slot.SetInt(8, int32(len(s)))
	if len(s) == 0 {
		return slot.Contents(), nil
	}

	f, err := o.file(txn)
	if err != nil {
		return nil, err
	}
	size := chunkSize(txn.BlockSize())
	var chunks []string
	for rest := s; len(rest) > 0; {
		n := min(size, len(rest))
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}

	// Tail first, so every chunk can point at its already stored successor.
	next := record.ID{BlockNumber: -1}
	for i := len(chunks) - 1; i >= 0; i-- {
		data := file.NewPageFromBytes(make([]byte, f.RecordSize()))
		data.SetInt(0, int32(next.BlockNumber))
		data.SetInt(4, int32(next.Slot))
		data.SetInt(8, int32(len(chunks[i])))
		data.SetRaw(chunkHeader, []byte(chunks[i]))
		id, err := f.Insert(data.Contents())
		if err != nil {
			return nil, err
		}
		next = id
	}
	slot.SetInt(0, int32(next.BlockNumber))
	slot.SetInt(4, int32(next.Slot))
	return slot.Contents(), nil
}

// read follows the chain referenced by a text slot.
func (o overflow) read(txn *tx.Transaction, textSlot []byte) (string, error) {
	head, total := decodeTextSlot(textSlot)
	if head.BlockNumber < 0 {
		return "", nil
	}
	f, err := o.file(txn)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, total)
	for id := head; id.BlockNumber >= 0; {
		data, err := f.Get(id)
		if err != nil {
			return "", err
		}
		chunk := file.NewPageFromBytes(data)
		n := int(chunk.GetInt(8))
		buf = append(buf, data[chunkHeader:chunkHeader+n]...)
		id = record.NewID(int(chunk.GetInt(0)), int(chunk.GetInt(4)))
	}
	if len(buf) != total {
		return "", dberr.Newf(dberr.ErrInternal, "text chain at %s holds %d bytes, slot says %d", head, len(buf), total)
	}
	return string(buf), nil
}

// free deletes every chunk of the chain referenced by a text slot.
func (o overflow) free(txn *tx.Transaction, textSlot []byte) error {
	head, _ := decodeTextSlot(textSlot)
	if head.BlockNumber < 0 {
		return nil
	}
	f, err := o.file(txn)
	if err != nil {
		return err
	}
	for id := head; id.BlockNumber >= 0; {
		data, err := f.Get(id)
		if err != nil {
			return err
		}
		if err := f.Delete(id); err != nil {
			return err
		}
		chunk := file.NewPageFromBytes(data)
		id = record.NewID(int(chunk.GetInt(0)), int(chunk.GetInt(4)))
	}
	return nil
}

func decodeTextSlot(textSlot []byte) (record.ID, int) {
	p := file.NewPageFromBytes(textSlot)
	return record.NewID(int(p.GetInt(0)), int(p.GetInt(4))), int(p.GetInt(8))
}
