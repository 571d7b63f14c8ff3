package index

import (
	"strings"

	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/types"
)

// Index is an ordered map from keys to data record ids. Duplicate keys are
// allowed; uniqueness is enforced by the caller.
type Index interface {
	// BeforeFirst positions the index before the first record having the
	// specified search key.
	BeforeFirst(searchKey Key) error

	// Next moves to the next record having the search key given to
	// BeforeFirst. Returns false if there are no more such records.
	Next() (bool, error)

	// GetDataRecordID returns the data record id stored in the current index record.
	GetDataRecordID() (record.ID, error)

	// Insert inserts an index record for key and dataRecordID.
	Insert(key Key, dataRecordID record.ID) error

	// Delete removes the index record for key and dataRecordID.
	Delete(key Key, dataRecordID record.ID) error

	// Close releases the pages held by the index.
	Close()
}

// Key is the concatenation of the values of the indexed fields.
type Key []types.Value

// Compare orders keys lexicographically, field by field.
func (k Key) Compare(other Key) int {
	for i := 0; i < len(k) && i < len(other); i++ {
		if c := compareValues(k[i], other[i]); c != 0 {
			return c
		}
	}
	return len(k) - len(other)
}

// Equal reports whether both keys hold equal values.
func (k Key) Equal(other Key) bool {
	return k.Compare(other) == 0
}

func (k Key) String() string {
	parts := make([]string, len(k))
	for i, v := range k {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func compareValues(a, b types.Value) int {
	c, err := a.CompareTo(b)
	if err != nil {
		// keys of one index always share field types
		return int(a.Type()) - int(b.Type())
	}
	return c
}
