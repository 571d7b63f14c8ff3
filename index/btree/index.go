package btree

import (
	"fmt"
	"math"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

var _ index.Index = (*Index)(nil)

const (
	LeafSuffix      = "_leaf"
	DirectorySuffix = "_directory"

	blockField = "block"
	idField    = "id"
)

func dataValueField(i int) string {
	return fmt.Sprintf("dataval%d", i)
}

// LeafSchema returns the schema of leaf entries for keys of the given fields.
func LeafSchema(keyFields []record.FieldInfo) (*record.Schema, error) {
	schema := record.NewSchema()
	for i, info := range keyFields {
		if info.Type == types.Text || info.Type == types.Undefined {
			return nil, dberr.Newf(dberr.ErrInvalidArgument, "%s fields cannot be indexed", info.Type)
		}
		schema.AddField(dataValueField(i), info.Type, info.Length)
	}
	schema.AddIntField(blockField)
	schema.AddIntField(idField)
	return schema, nil
}

// Files returns the names of the files backing the index indexName.
func Files(indexName string) []string {
	return []string{indexName + LeafSuffix, indexName + DirectorySuffix}
}

// Index is a B+-tree over composite keys, stored in a leaf file and a
// directory file.
type Index struct {
	transaction     *tx.Transaction
	keyFields       int
	directoryLayout *record.Layout
	leafLayout      *record.Layout
	leafTable       string
	leaf            *Leaf
	rootBlock       file.BlockId
}

// NewIndex opens the B-tree named indexName, creating its files if they do
// not exist yet.
func NewIndex(transaction *tx.Transaction, indexName string, keyFields []record.FieldInfo) (*Index, error) {
	leafSchema, err := LeafSchema(keyFields)
	if err != nil {
		return nil, err
	}
	idx := &Index{
		transaction: transaction,
		keyFields:   len(keyFields),
		leafTable:   indexName + LeafSuffix,
		leafLayout:  record.NewLayout(leafSchema),
	}

	leafTableSize, err := transaction.Size(idx.leafTable)
	if err != nil {
		return nil, err
	}
	if leafTableSize == 0 {
		if err := idx.appendFormatted(idx.leafTable, -1); err != nil {
			return nil, err
		}
	}

	directorySchema := record.NewSchema()
	for i := range keyFields {
		directorySchema.Add(dataValueField(i), leafSchema)
	}
	directorySchema.Add(blockField, leafSchema)
	idx.directoryLayout = record.NewLayout(directorySchema)

	directoryTable := indexName + DirectorySuffix
	idx.rootBlock = file.NewBlockId(directoryTable, 0)
	directoryTableSize, err := transaction.Size(directoryTable)
	if err != nil {
		return nil, err
	}
	if directoryTableSize == 0 {
		if err := idx.appendFormatted(directoryTable, 0); err != nil {
			return nil, err
		}
		root, err := NewPage(transaction, idx.rootBlock, idx.directoryLayout, idx.keyFields)
		if err != nil {
			return nil, err
		}
		defer root.Close()
		// The initial entry points every key at leaf block 0.
		minKey := make(index.Key, len(keyFields))
		for i, info := range keyFields {
			minKey[i], err = record.DecodeValue(make([]byte, record.ByteSize(info)), 0, info)
			if err != nil {
				return nil, err
			}
		}
		if err := root.InsertDirectory(0, minKey, 0); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (idx *Index) appendFormatted(filename string, flag int) error {
	blk, err := idx.transaction.Append(filename)
	if err != nil {
		return err
	}
	if err := idx.transaction.Pin(blk); err != nil {
		return err
	}
	defer idx.transaction.Unpin(blk)
	return format(idx.transaction, blk, flag)
}

// BeforeFirst finds the leaf block for searchKey and positions the leaf
// cursor before the first entry with that key.
func (idx *Index) BeforeFirst(searchKey index.Key) error {
	idx.Close()
	root, err := NewDirectory(idx.transaction, idx.rootBlock, idx.directoryLayout, idx.keyFields)
	if err != nil {
		return err
	}
	blockNumber, err := root.Search(searchKey)
	root.Close()
	if err != nil {
		return err
	}
	leafBlock := file.NewBlockId(idx.leafTable, blockNumber)
	idx.leaf, err = NewLeaf(idx.transaction, leafBlock, idx.leafLayout, idx.keyFields, searchKey)
	return err
}

// Next moves to the next entry having the key given to BeforeFirst.
func (idx *Index) Next() (bool, error) {
	if idx.leaf == nil {
		return false, nil
	}
	return idx.leaf.Next()
}

// GetDataRecordID returns the record id of the current entry.
func (idx *Index) GetDataRecordID() (record.ID, error) {
	return idx.leaf.GetDataRID()
}

// Contains reports whether any entry has key.
func (idx *Index) Contains(key index.Key) (bool, error) {
	if err := idx.BeforeFirst(key); err != nil {
		return false, err
	}
	defer idx.Close()
	return idx.Next()
}

// Insert adds an entry for key and dataRID. A leaf split is propagated up
// the directory, and a root split grows the tree by one level.
func (idx *Index) Insert(key index.Key, dataRID record.ID) error {
	if len(key) != idx.keyFields {
		return dberr.Newf(dberr.ErrRecordInvalidKey, "key %s has %d fields, index has %d", key, len(key), idx.keyFields)
	}
	if err := idx.BeforeFirst(key); err != nil {
		return err
	}
	directoryEntry, err := idx.leaf.Insert(dataRID)
	idx.Close()
	if err != nil || directoryEntry == nil {
		return err
	}

	root, err := NewDirectory(idx.transaction, idx.rootBlock, idx.directoryLayout, idx.keyFields)
	if err != nil {
		return err
	}
	defer root.Close()
	newDirectoryEntry, err := root.Insert(directoryEntry)
	if err != nil || newDirectoryEntry == nil {
		return err
	}
	return root.MakeNewRoot(newDirectoryEntry)
}

// Delete removes the entry for key and dataRID, failing with
// ErrRecordNotExist when there is none.
func (idx *Index) Delete(key index.Key, dataRID record.ID) error {
	if err := idx.BeforeFirst(key); err != nil {
		return err
	}
	defer idx.Close()
	found, err := idx.leaf.Delete(dataRID)
	if err != nil {
		return err
	}
	if !found {
		return dberr.Newf(dberr.ErrRecordNotExist, "no index entry %s -> %s", key, dataRID)
	}
	return nil
}

// Close releases the current leaf page.
func (idx *Index) Close() {
	if idx.leaf != nil {
		idx.leaf.Close()
		idx.leaf = nil
	}
}

// SearchCost returns the estimated number of block accesses needed to
// find the entries of one key.
func SearchCost(numBlocks, recordsPerBlock int) int {
	if numBlocks <= 1 || recordsPerBlock <= 1 {
		return 1
	}
	return 1 + int(math.Log(float64(numBlocks))/math.Log(float64(recordsPerBlock)))
}
