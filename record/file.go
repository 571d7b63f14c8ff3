package record

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/cockroachdb/errors"
)

// File is a heap of fixed-size records stored in one file.
type File struct {
	tx         *tx.Transaction
	filename   string
	recordSize int
}

// NewFile opens the record file filename within transaction.
func NewFile(transaction *tx.Transaction, filename string, recordSize int) (*File, error) {
	if SlotCount(transaction.BlockSize(), recordSize) == 0 {
		return nil, dberr.Newf(dberr.ErrRecordTooLong, "record size %d does not fit block size %d", recordSize, transaction.BlockSize())
	}
	return &File{
		tx:         transaction,
		filename:   filename,
		recordSize: recordSize,
	}, nil
}

// Filename returns the name of the underlying file.
func (f *File) Filename() string {
	return f.filename
}

// RecordSize returns the size of one record in bytes.
func (f *File) RecordSize() int {
	return f.recordSize
}

// Transaction returns the transaction the file operates in.
func (f *File) Transaction() *tx.Transaction {
	return f.tx
}

// Insert stores data in the first free slot of the last block, appending a
// new block when it is full, and returns the new record's id.
func (f *File) Insert(data []byte) (ID, error) {
	size, err := f.tx.Size(f.filename)
	if err != nil {
		return ID{}, err
	}
	if size > 0 {
		page, err := NewPage(f.tx, file.NewBlockId(f.filename, size-1), f.recordSize)
		if err != nil {
			return ID{}, err
		}
		id, err := f.insertInto(page, data)
		page.Close()
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrNoSlotFound) {
			return ID{}, err
		}
	}

	block, err := f.tx.Append(f.filename)
	if err != nil {
		return ID{}, err
	}
	page, err := NewPage(f.tx, block, f.recordSize)
	if err != nil {
		return ID{}, err
	}
	defer page.Close()
	if err := page.Format(); err != nil {
		return ID{}, err
	}
	return f.insertInto(page, data)
}

func (f *File) insertInto(page *Page, data []byte) (ID, error) {
	slot, err := page.InsertAfter(-1)
	if err != nil {
		return ID{}, err
	}
	if err := page.Set(slot, data); err != nil {
		return ID{}, err
	}
	return NewID(page.Block().Number(), slot), nil
}

// Get returns the bytes of the record at id.
func (f *File) Get(id ID) ([]byte, error) {
	page, err := f.open(id)
	if err != nil {
		return nil, err
	}
	defer page.Close()
	return page.Get(id.Slot)
}

// Update overwrites the record at id.
func (f *File) Update(id ID, data []byte) error {
	page, err := f.open(id)
	if err != nil {
		return err
	}
	defer page.Close()
	return page.Set(id.Slot, data)
}

// Delete frees the slot of the record at id.
func (f *File) Delete(id ID) error {
	page, err := f.open(id)
	if err != nil {
		return err
	}
	defer page.Close()
	return page.Delete(id.Slot)
}

// open pins the block of id and checks that its slot is in use.
func (f *File) open(id ID) (*Page, error) {
	size, err := f.tx.Size(f.filename)
	if err != nil {
		return nil, err
	}
	if id.BlockNumber < 0 || id.BlockNumber >= size {
		return nil, dberr.Newf(dberr.ErrRecordNotExist, "record %s not in %s", id, f.filename)
	}
	page, err := NewPage(f.tx, file.NewBlockId(f.filename, id.BlockNumber), f.recordSize)
	if err != nil {
		return nil, err
	}
	used, err := page.IsUsed(id.Slot)
	if err != nil {
		page.Close()
		return nil, err
	}
	if !used {
		page.Close()
		return nil, dberr.Newf(dberr.ErrRecordNotExist, "record %s not in %s", id, f.filename)
	}
	return page, nil
}

// Scanner walks every used slot of a File in block order.
type Scanner struct {
	file        *File
	page        *Page
	currentSlot int
}

// Scan returns a scanner positioned before the first record.
func (f *File) Scan() *Scanner {
	return &Scanner{file: f, currentSlot: -1}
}

// Next advances to the next record. It returns false at the end of the file.
func (s *Scanner) Next() (bool, error) {
	if s.page == nil {
		size, err := s.file.tx.Size(s.file.filename)
		if err != nil || size == 0 {
			return false, err
		}
		if err := s.moveToBlock(0); err != nil {
			return false, err
		}
	}
	for {
		slot, err := s.page.NextAfter(s.currentSlot)
		if err == nil {
			s.currentSlot = slot
			return true, nil
		}
		if !errors.Is(err, ErrNoSlotFound) {
			return false, err
		}
		size, err := s.file.tx.Size(s.file.filename)
		if err != nil {
			return false, err
		}
		next := s.page.Block().Number() + 1
		if next >= size {
			return false, nil
		}
		if err := s.moveToBlock(next); err != nil {
			return false, err
		}
	}
}

// ID returns the id of the current record.
func (s *Scanner) ID() ID {
	return NewID(s.page.Block().Number(), s.currentSlot)
}

// Bytes returns the data of the current record.
func (s *Scanner) Bytes() ([]byte, error) {
	return s.page.Get(s.currentSlot)
}

// BeforeFirst rewinds the scanner.
func (s *Scanner) BeforeFirst() {
	s.Close()
	s.currentSlot = -1
}

// Close releases the pinned block.
func (s *Scanner) Close() {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
}

func (s *Scanner) moveToBlock(blockNumber int) error {
	s.Close()
	page, err := NewPage(s.file.tx, file.NewBlockId(s.file.filename, blockNumber), s.file.recordSize)
	if err != nil {
		return err
	}
	s.page = page
	s.currentSlot = -1
	return nil
}
