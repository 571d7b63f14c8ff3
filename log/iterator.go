package log

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/cockroachdb/errors"
)

// Iterator walks the log from the newest record to the oldest.
type Iterator struct {
	fileManager     *file.Manager
	block           file.BlockId
	page            *file.Page
	currentPosition int
}

// NewIterator creates an iterator positioned before the newest record of block.
func NewIterator(fileManager *file.Manager, block file.BlockId) (*Iterator, error) {
	it := &Iterator{
		fileManager: fileManager,
		page:        file.NewPage(fileManager.BlockSize()),
	}
	if err := it.moveToBlock(block); err != nil {
		return nil, err
	}
	return it, nil
}

// HasNext reports whether an older record exists.
func (it *Iterator) HasNext() bool {
	return it.currentPosition < it.fileManager.BlockSize() || it.block.Number() > 0
}

// Next returns the next older record, stepping back a block when the current one is exhausted.
func (it *Iterator) Next() ([]byte, error) {
	if it.currentPosition == it.fileManager.BlockSize() {
		if it.block.Number() == 0 {
			return nil, errors.New("log: no more records")
		}
		if err := it.moveToBlock(file.NewBlockId(it.block.Filename(), it.block.Number()-1)); err != nil {
			return nil, err
		}
	}

	record := it.page.GetBytes(it.currentPosition)
	it.currentPosition += 4 + len(record)
	return record, nil
}

func (it *Iterator) moveToBlock(block file.BlockId) error {
	if err := it.fileManager.Read(block, it.page); err != nil {
		return errors.Wrapf(err, "log: read %s", block)
	}
	it.block = block
	it.currentPosition = int(it.page.GetInt(0))
	return nil
}
