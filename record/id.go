package record

import "fmt"

// ID locates a record by block number and slot. OverLength, when positive,
// is the number of meaningful bytes of the record; overflow chunk records
// use it because their last chunk is shorter than the slot.
type ID struct {
	BlockNumber int
	Slot        int
	OverLength  int
}

// NewID creates an ID for the given block and slot.
func NewID(blockNumber int, slot int) ID {
	return ID{BlockNumber: blockNumber, Slot: slot}
}

// Equals compares location only.
func (id ID) Equals(other ID) bool {
	return id.BlockNumber == other.BlockNumber && id.Slot == other.Slot
}

// Compare orders ids by block, then slot.
func (id ID) Compare(other ID) int {
	if id.BlockNumber != other.BlockNumber {
		return id.BlockNumber - other.BlockNumber
	}
	return id.Slot - other.Slot
}

func (id ID) String() string {
	return fmt.Sprintf("[%d, %d]", id.BlockNumber, id.Slot)
}
