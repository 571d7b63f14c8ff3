package btree

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
)

const (
	flagOffset  = 0
	countOffset = 4
	headerSize  = 8
)

// Page holds the sorted entries of one B-tree block, either leaf entries
// (key, block, id) or directory entries (key, block). The header stores a
// flag followed by the number of entries.
type Page struct {
	tx         *tx.Transaction
	currentBlk file.BlockId
	pinned     bool
	layout     *record.Layout
	keyFields  int
}

func NewPage(tx *tx.Transaction, currentBlk file.BlockId, layout *record.Layout, keyFields int) (*Page, error) {
	if err := tx.Pin(currentBlk); err != nil {
		return nil, err
	}
	return &Page{
		tx:         tx,
		currentBlk: currentBlk,
		pinned:     true,
		layout:     layout,
		keyFields:  keyFields,
	}, nil
}

// FindSlotBefore returns the slot just before the first entry whose key is
// greater than or equal to searchKey.
func (p *Page) FindSlotBefore(searchKey index.Key) (int, error) {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return -1, err
	}
	for slot := 0; slot < numberOfRecords; slot++ {
		key, err := p.GetKey(slot)
		if err != nil {
			return -1, err
		}
		if key.Compare(searchKey) >= 0 {
			return slot - 1, nil
		}
	}
	return numberOfRecords - 1, nil
}

// Close unpins the page's buffer.
func (p *Page) Close() {
	if p.pinned {
		p.tx.Unpin(p.currentBlk)
		p.pinned = false
	}
}

// IsFull returns true if no further entry fits in the block.
func (p *Page) IsFull() (bool, error) {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return false, err
	}
	return p.slotPosition(numberOfRecords+1) >= p.tx.BlockSize(), nil
}

// Split moves the entries starting at splitPos into a new block with the
// given flag and returns that block.
func (p *Page) Split(splitPos, flag int) (file.BlockId, error) {
	newBlk, err := p.AppendNew(flag)
	if err != nil {
		return file.BlockId{}, err
	}
	newPage, err := NewPage(p.tx, newBlk, p.layout, p.keyFields)
	if err != nil {
		return file.BlockId{}, err
	}
	defer newPage.Close()
	if err := p.transferRecords(splitPos, newPage); err != nil {
		return file.BlockId{}, err
	}
	if err := newPage.SetFlag(flag); err != nil {
		return file.BlockId{}, err
	}
	return newBlk, nil
}

// GetKey returns the key of the entry at slot.
func (p *Page) GetKey(slot int) (index.Key, error) {
	data, err := p.tx.GetBytes(p.currentBlk, p.slotPosition(slot), p.layout.RecordSize())
	if err != nil {
		return nil, err
	}
	schema := p.layout.Schema()
	key := make(index.Key, p.keyFields)
	for i := range key {
		field := dataValueField(i)
		if key[i], err = record.DecodeValue(data, p.layout.Offset(field), schema.Info(field)); err != nil {
			return nil, err
		}
	}
	return key, nil
}

// GetFlag returns the page's flag field.
func (p *Page) GetFlag() (int, error) {
	flag, err := p.tx.GetInt(p.currentBlk, flagOffset)
	return int(flag), err
}

// SetFlag sets the page's flag field.
func (p *Page) SetFlag(val int) error {
	return p.tx.SetInt(p.currentBlk, flagOffset, int32(val), true)
}

// AppendNew appends a formatted block with the given flag to the page's file.
func (p *Page) AppendNew(flag int) (file.BlockId, error) {
	blk, err := p.tx.Append(p.currentBlk.Filename())
	if err != nil {
		return file.BlockId{}, err
	}
	if err := p.tx.Pin(blk); err != nil {
		return file.BlockId{}, err
	}
	defer p.tx.Unpin(blk)
	if err := format(p.tx, blk, flag); err != nil {
		return file.BlockId{}, err
	}
	return blk, nil
}

// format writes an empty header. The slot area of a fresh block is already zero.
func format(transaction *tx.Transaction, blk file.BlockId, flag int) error {
	if err := transaction.SetInt(blk, flagOffset, int32(flag), false); err != nil {
		return err
	}
	return transaction.SetInt(blk, countOffset, 0, false)
}

// GetChildNumber returns the block number stored in the entry at slot.
func (p *Page) GetChildNumber(slot int) (int, error) {
	return p.getInt(slot, blockField)
}

// InsertDirectory inserts a directory entry at slot.
func (p *Page) InsertDirectory(slot int, key index.Key, blockNumber int) error {
	if err := p.insert(slot); err != nil {
		return err
	}
	return p.setEntry(slot, key, map[string]int{blockField: blockNumber})
}

// getDataRID returns the record id stored in the leaf entry at slot.
func (p *Page) getDataRID(slot int) (record.ID, error) {
	blockNumber, err := p.getInt(slot, blockField)
	if err != nil {
		return record.ID{}, err
	}
	id, err := p.getInt(slot, idField)
	if err != nil {
		return record.ID{}, err
	}
	return record.NewID(blockNumber, id), nil
}

// InsertLeaf inserts a leaf entry at slot.
func (p *Page) InsertLeaf(slot int, key index.Key, rid record.ID) error {
	if err := p.insert(slot); err != nil {
		return err
	}
	return p.setEntry(slot, key, map[string]int{blockField: rid.BlockNumber, idField: rid.Slot})
}

// GetNumberOfRecords returns the number of entries in the page.
func (p *Page) GetNumberOfRecords() (int, error) {
	n, err := p.tx.GetInt(p.currentBlk, countOffset)
	return int(n), err
}

func (p *Page) setEntry(slot int, key index.Key, ints map[string]int) error {
	schema := p.layout.Schema()
	data := make([]byte, p.layout.RecordSize())
	for i, v := range key {
		field := dataValueField(i)
		cast, err := v.CastTo(schema.Type(field))
		if err != nil {
			return err
		}
		if err := record.EncodeValue(data, p.layout.Offset(field), schema.Info(field), cast); err != nil {
			return err
		}
	}
	page := file.NewPageFromBytes(data)
	for field, n := range ints {
		page.SetInt(p.layout.Offset(field), int32(n))
	}
	return p.tx.SetBytes(p.currentBlk, p.slotPosition(slot), data, true)
}

func (p *Page) getInt(slot int, fieldName string) (int, error) {
	n, err := p.tx.GetInt(p.currentBlk, p.slotPosition(slot)+p.layout.Offset(fieldName))
	return int(n), err
}

func (p *Page) transferRecords(slot int, destination *Page) error {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	for destSlot := 0; slot < numberOfRecords; destSlot++ {
		data, err := p.tx.GetBytes(p.currentBlk, p.slotPosition(slot), p.layout.RecordSize())
		if err != nil {
			return err
		}
		if err := destination.insert(destSlot); err != nil {
			return err
		}
		if err := p.tx.SetBytes(destination.currentBlk, destination.slotPosition(destSlot), data, true); err != nil {
			return err
		}
		if err := p.delete(slot); err != nil {
			return err
		}
		numberOfRecords--
	}
	return nil
}

// transferLast moves the last entry of p into slot of destination.
func (p *Page) transferLast(slot int, destination *Page) error {
	numberOfRecords, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	data, err := p.tx.GetBytes(p.currentBlk, p.slotPosition(numberOfRecords-1), p.layout.RecordSize())
	if err != nil {
		return err
	}
	if err := destination.insert(slot); err != nil {
		return err
	}
	if err := p.tx.SetBytes(destination.currentBlk, destination.slotPosition(slot), data, true); err != nil {
		return err
	}
	return p.setNumberOfRecords(numberOfRecords - 1)
}

func (p *Page) slotPosition(slot int) int {
	return headerSize + slot*p.layout.RecordSize()
}

func (p *Page) insert(slot int) error {
	numRecs, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	for i := numRecs; i > slot; i-- {
		if err := p.copyRecord(i-1, i); err != nil {
			return err
		}
	}
	return p.setNumberOfRecords(numRecs + 1)
}

func (p *Page) delete(slot int) error {
	numRecs, err := p.GetNumberOfRecords()
	if err != nil {
		return err
	}
	for i := slot + 1; i < numRecs; i++ {
		if err := p.copyRecord(i, i-1); err != nil {
			return err
		}
	}
	return p.setNumberOfRecords(numRecs - 1)
}

func (p *Page) setNumberOfRecords(n int) error {
	return p.tx.SetInt(p.currentBlk, countOffset, int32(n), true)
}

func (p *Page) copyRecord(from, to int) error {
	data, err := p.tx.GetBytes(p.currentBlk, p.slotPosition(from), p.layout.RecordSize())
	if err != nil {
		return err
	}
	return p.tx.SetBytes(p.currentBlk, p.slotPosition(to), data, true)
}
