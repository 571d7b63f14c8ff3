package record

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/cockroachdb/errors"
)

const (
	FlagEmpty = iota
	FlagUsed
)

const flagSize = 4

// ErrNoSlotFound is returned by searches that run off the end of the block.
var ErrNoSlotFound = errors.New("no slot found")

// Page manages the fixed-size slots of one block. Every slot is a 4-byte
// in-use flag followed by recordSize bytes of record data.
type Page struct {
	tx         *tx.Transaction
	block      file.BlockId
	recordSize int
}

// NewPage pins block and returns a page over it.
func NewPage(transaction *tx.Transaction, block file.BlockId, recordSize int) (*Page, error) {
	if err := transaction.Pin(block); err != nil {
		return nil, err
	}
	return &Page{
		tx:         transaction,
		block:      block,
		recordSize: recordSize,
	}, nil
}

// Close unpins the block.
func (p *Page) Close() {
	p.tx.Unpin(p.block)
}

// Get returns the record bytes of slot.
func (p *Page) Get(slot int) ([]byte, error) {
	return p.tx.GetBytes(p.block, p.dataOffset(slot), p.recordSize)
}

// Set overwrites the record bytes of slot. Short data is zero-padded.
func (p *Page) Set(slot int, data []byte) error {
	if len(data) > p.recordSize {
		return dberr.Newf(dberr.ErrRecordTooLong, "record of %d bytes does not fit a %d byte slot", len(data), p.recordSize)
	}
	buf := make([]byte, p.recordSize)
	copy(buf, data)
	return p.tx.SetBytes(p.block, p.dataOffset(slot), buf, true)
}

// IsUsed reports whether slot holds a record.
func (p *Page) IsUsed(slot int) (bool, error) {
	if !p.isValidSlot(slot) {
		return false, nil
	}
	flag, err := p.tx.GetInt(p.block, p.offset(slot))
	if err != nil {
		return false, err
	}
	return flag == FlagUsed, nil
}

// Delete marks slot as empty.
func (p *Page) Delete(slot int) error {
	return p.setFlag(slot, FlagEmpty)
}

// Format marks every slot of a fresh block as empty.
// These writes are not logged; the old contents are meaningless.
func (p *Page) Format() error {
	zeros := make([]byte, p.recordSize)
	for slot := 0; p.isValidSlot(slot); slot++ {
		if err := p.tx.SetInt(p.block, p.offset(slot), FlagEmpty, false); err != nil {
			return err
		}
		if err := p.tx.SetBytes(p.block, p.dataOffset(slot), zeros, false); err != nil {
			return err
		}
	}
	return nil
}

// NextAfter returns the next used slot after slot.
func (p *Page) NextAfter(slot int) (int, error) {
	return p.searchAfter(slot, FlagUsed)
}

// InsertAfter claims the next empty slot after slot and returns it.
func (p *Page) InsertAfter(slot int) (int, error) {
	newSlot, err := p.searchAfter(slot, FlagEmpty)
	if err != nil {
		return -1, err
	}
	if err := p.setFlag(newSlot, FlagUsed); err != nil {
		return -1, errors.Wrapf(err, "set flag for slot %d", newSlot)
	}
	return newSlot, nil
}

// Block returns the block of the page.
func (p *Page) Block() file.BlockId {
	return p.block
}

// SlotCount returns the number of slots that fit in a block.
func SlotCount(blockSize, recordSize int) int {
	return blockSize / (recordSize + flagSize)
}

func (p *Page) searchAfter(slot, flag int) (int, error) {
	for slot++; p.isValidSlot(slot); slot++ {
		current, err := p.tx.GetInt(p.block, p.offset(slot))
		if err != nil {
			return -1, errors.Wrapf(err, "read flag at slot %d", slot)
		}
		if int(current) == flag {
			return slot, nil
		}
	}
	return -1, ErrNoSlotFound
}

func (p *Page) setFlag(slot, flag int) error {
	return p.tx.SetInt(p.block, p.offset(slot), int32(flag), true)
}

func (p *Page) isValidSlot(slot int) bool {
	return slot >= 0 && p.offset(slot+1) <= p.tx.BlockSize()
}

func (p *Page) offset(slot int) int {
	return slot * (p.recordSize + flagSize)
}

func (p *Page) dataOffset(slot int) int {
	return p.offset(slot) + flagSize
}
