package table

import (
	"slices"

	"github.com/JyotinderSingh/plandb/record"
)

// Record is one table row: its location and its encoded bytes. A Record
// owns its data buffer; Take and SetData move that ownership explicitly.
type Record struct {
	RID  record.ID
	data []byte
}

func NewRecord(rid record.ID, data []byte) *Record {
	return &Record{RID: rid, data: data}
}

// Data returns the encoded bytes without copying.
func (r *Record) Data() []byte {
	return r.data
}

// SetData replaces the buffer, taking ownership of data.
func (r *Record) SetData(data []byte) {
	r.data = data
}

// Take hands the buffer to the caller and leaves the record empty.
func (r *Record) Take() []byte {
	data := r.data
	r.data = nil
	return data
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	return &Record{RID: r.RID, data: slices.Clone(r.data)}
}
