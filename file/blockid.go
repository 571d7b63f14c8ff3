package file

import "fmt"

// BlockId identifies a block by its file name and logical block number.
// It is a comparable value and can be used as a map key.
type BlockId struct {
	filename    string
	blockNumber int
}

func NewBlockId(filename string, blockNumber int) BlockId {
	return BlockId{
		filename:    filename,
		blockNumber: blockNumber,
	}
}

func (b BlockId) Filename() string {
	return b.filename
}

func (b BlockId) Number() int {
	return b.blockNumber
}

func (b BlockId) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.filename, b.blockNumber)
}
