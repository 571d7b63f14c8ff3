package btree

import (
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
)

// Directory is a B-tree directory block. The flag of a directory page is its
// level: 0 means its children are leaves.
type Directory struct {
	tx        *tx.Transaction
	layout    *record.Layout
	keyFields int
	contents  *Page
	filename  string
}

func NewDirectory(tx *tx.Transaction, blk file.BlockId, layout *record.Layout, keyFields int) (*Directory, error) {
	contents, err := NewPage(tx, blk, layout, keyFields)
	if err != nil {
		return nil, err
	}
	return &Directory{
		tx:        tx,
		layout:    layout,
		keyFields: keyFields,
		contents:  contents,
		filename:  blk.Filename(),
	}, nil
}

func (d *Directory) Close() {
	d.contents.Close()
}

// Search descends from this block to the leaf level and returns the number
// of the leaf block that may hold searchKey.
func (d *Directory) Search(searchKey index.Key) (int, error) {
	childBlk, err := d.findChildBlock(searchKey)
	if err != nil {
		return -1, err
	}
	for {
		flag, err := d.contents.GetFlag()
		if err != nil {
			return -1, err
		}
		if flag <= 0 {
			break
		}
		d.contents.Close()
		if d.contents, err = NewPage(d.tx, childBlk, d.layout, d.keyFields); err != nil {
			return -1, err
		}
		if childBlk, err = d.findChildBlock(searchKey); err != nil {
			return -1, err
		}
	}
	return childBlk.Number(), nil
}

// MakeNewRoot moves the root's entries into a new block and makes the root
// the parent of that block and of entry's block.
func (d *Directory) MakeNewRoot(entry *DirectoryEntry) error {
	firstKey, err := d.contents.GetKey(0)
	if err != nil {
		return err
	}
	level, err := d.contents.GetFlag()
	if err != nil {
		return err
	}
	newBlk, err := d.contents.Split(0, level)
	if err != nil {
		return err
	}
	oldRoot := NewDirectoryEntry(firstKey, newBlk.Number())
	if _, err := d.insertEntry(oldRoot); err != nil {
		return err
	}
	if _, err := d.insertEntry(entry); err != nil {
		return err
	}
	return d.contents.SetFlag(level + 1)
}

// Insert adds entry below this block, returning a new entry for the parent
// when this block splits.
func (d *Directory) Insert(entry *DirectoryEntry) (*DirectoryEntry, error) {
	flag, err := d.contents.GetFlag()
	if err != nil {
		return nil, err
	}
	if flag == 0 {
		return d.insertEntry(entry)
	}

	childBlk, err := d.findChildBlock(entry.Key())
	if err != nil {
		return nil, err
	}
	child, err := NewDirectory(d.tx, childBlk, d.layout, d.keyFields)
	if err != nil {
		return nil, err
	}
	defer child.Close()

	childEntry, err := child.Insert(entry)
	if err != nil || childEntry == nil {
		return nil, err
	}
	return d.insertEntry(childEntry)
}

func (d *Directory) insertEntry(entry *DirectoryEntry) (*DirectoryEntry, error) {
	slot, err := d.contents.FindSlotBefore(entry.Key())
	if err != nil {
		return nil, err
	}
	if err := d.contents.InsertDirectory(slot+1, entry.Key(), entry.BlockNumber()); err != nil {
		return nil, err
	}
	isFull, err := d.contents.IsFull()
	if err != nil || !isFull {
		return nil, err
	}

	level, err := d.contents.GetFlag()
	if err != nil {
		return nil, err
	}
	numRecs, err := d.contents.GetNumberOfRecords()
	if err != nil {
		return nil, err
	}
	splitPos := numRecs / 2
	splitKey, err := d.contents.GetKey(splitPos)
	if err != nil {
		return nil, err
	}
	newBlk, err := d.contents.Split(splitPos, level)
	if err != nil {
		return nil, err
	}
	return NewDirectoryEntry(splitKey, newBlk.Number()), nil
}

func (d *Directory) findChildBlock(searchKey index.Key) (file.BlockId, error) {
	slot, err := d.contents.FindSlotBefore(searchKey)
	if err != nil {
		return file.BlockId{}, err
	}
	numRecs, err := d.contents.GetNumberOfRecords()
	if err != nil {
		return file.BlockId{}, err
	}
	if slot+1 < numRecs {
		nextKey, err := d.contents.GetKey(slot + 1)
		if err != nil {
			return file.BlockId{}, err
		}
		if nextKey.Equal(searchKey) {
			slot++
		}
	}
	// Keys below the first entry belong to the leftmost child.
	slot = max(slot, 0)

	childNum, err := d.contents.GetChildNumber(slot)
	if err != nil {
		return file.BlockId{}, err
	}
	return file.NewBlockId(d.filename, childNum), nil
}
