package btree

import "github.com/JyotinderSingh/plandb/index"

// DirectoryEntry is the key and child block number of one directory record.
type DirectoryEntry struct {
	key         index.Key
	blockNumber int
}

func NewDirectoryEntry(key index.Key, blockNumber int) *DirectoryEntry {
	return &DirectoryEntry{key, blockNumber}
}

// Key returns the smallest key reachable through the entry.
func (de *DirectoryEntry) Key() index.Key {
	return de.key
}

// BlockNumber returns the child block of the entry.
func (de *DirectoryEntry) BlockNumber() int {
	return de.blockNumber
}
