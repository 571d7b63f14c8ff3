package btree

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
)

// Leaf is a cursor over the entries of one leaf block that match a search
// key. Entries with equal keys that do not fit one block continue in an
// overflow chain linked through the page flag.
type Leaf struct {
	tx          *tx.Transaction
	layout      *record.Layout
	keyFields   int
	searchKey   index.Key
	contents    *Page
	currentSlot int
	filename    string
}

// NewLeaf opens blk and positions the cursor immediately before the first
// entry matching searchKey.
func NewLeaf(tx *tx.Transaction, blk file.BlockId, layout *record.Layout, keyFields int, searchKey index.Key) (*Leaf, error) {
	contents, err := NewPage(tx, blk, layout, keyFields)
	if err != nil {
		return nil, err
	}
	currentSlot, err := contents.FindSlotBefore(searchKey)
	if err != nil {
		contents.Close()
		return nil, err
	}
	return &Leaf{
		tx:          tx,
		layout:      layout,
		keyFields:   keyFields,
		searchKey:   searchKey,
		contents:    contents,
		currentSlot: currentSlot,
		filename:    blk.Filename(),
	}, nil
}

func (l *Leaf) Close() {
	l.contents.Close()
}

// Next moves to the next entry having the search key.
func (l *Leaf) Next() (bool, error) {
	l.currentSlot++
	numRecs, err := l.contents.GetNumberOfRecords()
	if err != nil {
		return false, err
	}
	if l.currentSlot >= numRecs {
		return l.tryOverflow()
	}
	key, err := l.contents.GetKey(l.currentSlot)
	if err != nil {
		return false, err
	}
	if key.Equal(l.searchKey) {
		return true, nil
	}
	return l.tryOverflow()
}

// GetDataRID returns the record id of the current entry.
func (l *Leaf) GetDataRID() (record.ID, error) {
	return l.contents.getDataRID(l.currentSlot)
}

// Delete removes the entry pointing at dataRID. It reports whether an entry was found.
func (l *Leaf) Delete(dataRID record.ID) (bool, error) {
	for {
		hasNext, err := l.Next()
		if err != nil || !hasNext {
			return false, err
		}
		currentRID, err := l.GetDataRID()
		if err != nil {
			return false, err
		}
		if currentRID.Equals(dataRID) {
			if err := l.contents.delete(l.currentSlot); err != nil {
				return false, err
			}
			if l.currentSlot > 0 {
				return true, nil
			}
			return true, l.refill()
		}
	}
}

// refill restores the shared key in slot 0 of a block with an overflow
// chain after that slot was deleted. An entry moves up from the first
// non-empty block of the chain; emptied blocks are unlinked, and a chain
// with no entries left is dropped.
func (l *Leaf) refill() error {
	flag, err := l.contents.GetFlag()
	if err != nil || flag < 0 {
		return err
	}
	numRecs, err := l.contents.GetNumberOfRecords()
	if err != nil {
		return err
	}
	if numRecs > 0 {
		firstKey, err := l.contents.GetKey(0)
		if err != nil || firstKey.Equal(l.searchKey) {
			return err
		}
	}

	for flag >= 0 {
		overflow, err := NewPage(l.tx, file.NewBlockId(l.filename, flag), l.layout, l.keyFields)
		if err != nil {
			return err
		}
		remaining, err := overflow.GetNumberOfRecords()
		if err == nil && remaining == 0 {
			flag, err = overflow.GetFlag()
			overflow.Close()
			if err != nil {
				return err
			}
			continue
		}
		next := flag
		if err == nil {
			err = overflow.transferLast(0, l.contents)
		}
		if err == nil && remaining == 1 {
			next, err = overflow.GetFlag()
		}
		overflow.Close()
		if err != nil {
			return err
		}
		return l.contents.SetFlag(next)
	}
	return l.contents.SetFlag(-1)
}

// Insert adds an entry for dataRID under the search key. It returns a
// directory entry when the block splits.
func (l *Leaf) Insert(dataRID record.ID) (*DirectoryEntry, error) {
	flag, err := l.contents.GetFlag()
	if err != nil {
		return nil, err
	}

	// An overflow block must keep its shared key in slot 0.
	if flag >= 0 {
		firstKey, err := l.contents.GetKey(0)
		if err != nil {
			return nil, err
		}
		if firstKey.Compare(l.searchKey) > 0 {
			newBlk, err := l.contents.Split(0, flag)
			if err != nil {
				return nil, err
			}
			l.currentSlot = 0
			if err := l.contents.SetFlag(-1); err != nil {
				return nil, err
			}
			if err := l.contents.InsertLeaf(l.currentSlot, l.searchKey, dataRID); err != nil {
				return nil, err
			}
			return NewDirectoryEntry(firstKey, newBlk.Number()), nil
		}
	}

	l.currentSlot++
	if err := l.contents.InsertLeaf(l.currentSlot, l.searchKey, dataRID); err != nil {
		return nil, err
	}
	isFull, err := l.contents.IsFull()
	if err != nil || !isFull {
		return nil, err
	}
	return l.handlePageSplit()
}

func (l *Leaf) handlePageSplit() (*DirectoryEntry, error) {
	firstKey, err := l.contents.GetKey(0)
	if err != nil {
		return nil, err
	}
	numRecs, err := l.contents.GetNumberOfRecords()
	if err != nil {
		return nil, err
	}
	lastKey, err := l.contents.GetKey(numRecs - 1)
	if err != nil {
		return nil, err
	}

	// Every key is the same: move the rest into an overflow block.
	if lastKey.Equal(firstKey) {
		flag, err := l.contents.GetFlag()
		if err != nil {
			return nil, err
		}
		newBlk, err := l.contents.Split(1, flag)
		if err != nil {
			return nil, err
		}
		return nil, l.contents.SetFlag(newBlk.Number())
	}

	splitPos := numRecs / 2
	splitKey, err := l.contents.GetKey(splitPos)
	if err != nil {
		return nil, err
	}

	// Equal keys never straddle the split.
	if splitKey.Equal(firstKey) {
		for {
			key, err := l.contents.GetKey(splitPos)
			if err != nil {
				return nil, err
			}
			if !key.Equal(splitKey) {
				splitKey = key
				break
			}
			splitPos++
		}
	} else {
		for splitPos > 0 {
			key, err := l.contents.GetKey(splitPos - 1)
			if err != nil {
				return nil, err
			}
			if !key.Equal(splitKey) {
				break
			}
			splitPos--
		}
	}

	newBlk, err := l.contents.Split(splitPos, -1)
	if err != nil {
		return nil, err
	}
	return NewDirectoryEntry(splitKey, newBlk.Number()), nil
}

// tryOverflow moves to the next non-empty block of the overflow chain when
// the block's shared key matches.
func (l *Leaf) tryOverflow() (bool, error) {
	flag, err := l.contents.GetFlag()
	if err != nil || flag < 0 {
		return false, err
	}
	numRecs, err := l.contents.GetNumberOfRecords()
	if err != nil || numRecs == 0 {
		return false, err
	}
	firstKey, err := l.contents.GetKey(0)
	if err != nil {
		return false, err
	}
	if !l.searchKey.Equal(firstKey) {
		return false, nil
	}

	for flag >= 0 {
		contents, err := NewPage(l.tx, file.NewBlockId(l.filename, flag), l.layout, l.keyFields)
		if err != nil {
			return false, err
		}
		numRecs, err := contents.GetNumberOfRecords()
		if err == nil && numRecs > 0 {
			l.contents.Close()
			l.contents = contents
			l.currentSlot = 0
			return true, nil
		}
		if err == nil {
			flag, err = contents.GetFlag()
		}
		contents.Close()
		if err != nil {
			return false, err
		}
	}
	return false, nil
}
