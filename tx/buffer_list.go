package tx

import (
	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/file"
)

// BufferList tracks the buffers pinned by one transaction. A block pinned
// several times appears several times in pins.
type BufferList struct {
	buffers       map[file.BlockId]*buffer.Buffer
	pins          []file.BlockId
	bufferManager *buffer.Manager
}

// NewBufferList creates an empty BufferList.
func NewBufferList(bufferManager *buffer.Manager) *BufferList {
	return &BufferList{
		buffers:       make(map[file.BlockId]*buffer.Buffer),
		bufferManager: bufferManager,
	}
}

// GetBuffer returns the buffer pinned to block, or nil.
func (bl *BufferList) GetBuffer(block file.BlockId) *buffer.Buffer {
	return bl.buffers[block]
}

// Pin pins block and remembers the buffer.
func (bl *BufferList) Pin(block file.BlockId) error {
	buff, err := bl.bufferManager.Pin(block)
	if err != nil {
		return err
	}
	bl.buffers[block] = buff
	bl.pins = append(bl.pins, block)
	return nil
}

// Unpin releases one pin on block.
func (bl *BufferList) Unpin(block file.BlockId) {
	buff, ok := bl.buffers[block]
	if !ok {
		return
	}
	bl.bufferManager.Unpin(buff)
	for i, b := range bl.pins {
		if b == block {
			bl.pins = append(bl.pins[:i], bl.pins[i+1:]...)
			break
		}
	}
	for _, b := range bl.pins {
		if b == block {
			return
		}
	}
	delete(bl.buffers, block)
}

// UnpinAll releases every pin held by the transaction.
func (bl *BufferList) UnpinAll() {
	for _, block := range bl.pins {
		if buff, ok := bl.buffers[block]; ok {
			bl.bufferManager.Unpin(buff)
		}
	}
	bl.buffers = make(map[file.BlockId]*buffer.Buffer)
	bl.pins = nil
}
