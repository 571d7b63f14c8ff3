package file

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf8"
)

// Page is the in-memory image of a disk block. All multi-byte values are
// stored big-endian.
type Page struct {
	buffer []byte
}

// NewPage creates a Page with a buffer of the given block size.
func NewPage(blockSize int) *Page {
	return &Page{buffer: make([]byte, blockSize)}
}

// NewPageFromBytes creates a Page by wrapping the provided byte slice.
func NewPageFromBytes(bytes []byte) *Page {
	return &Page{buffer: bytes}
}

// GetInt retrieves a 32-bit integer from the buffer at the specified offset.
func (p *Page) GetInt(offset int) int32 {
	return int32(binary.BigEndian.Uint32(p.buffer[offset:]))
}

// SetInt writes a 32-bit integer to the buffer at the specified offset.
func (p *Page) SetInt(offset int, n int32) {
	binary.BigEndian.PutUint32(p.buffer[offset:], uint32(n))
}

// GetLong retrieves a 64-bit integer from the buffer at the specified offset.
func (p *Page) GetLong(offset int) int64 {
	return int64(binary.BigEndian.Uint64(p.buffer[offset:]))
}

// SetLong writes a 64-bit integer to the buffer at the specified offset.
func (p *Page) SetLong(offset int, n int64) {
	binary.BigEndian.PutUint64(p.buffer[offset:], uint64(n))
}

// GetFloat retrieves a float64 from the buffer at the specified offset.
func (p *Page) GetFloat(offset int) float64 {
	return math.Float64frombits(binary.BigEndian.Uint64(p.buffer[offset:]))
}

// SetFloat writes a float64 to the buffer at the specified offset.
func (p *Page) SetFloat(offset int, f float64) {
	binary.BigEndian.PutUint64(p.buffer[offset:], math.Float64bits(f))
}

// GetBytes retrieves a length-prefixed byte slice starting at the specified offset.
func (p *Page) GetBytes(offset int) []byte {
	length := int(binary.BigEndian.Uint32(p.buffer[offset:]))
	start := offset + 4
	end := start + length
	b := make([]byte, length)
	copy(b, p.buffer[start:end])
	return b
}

// SetBytes writes a length-prefixed byte slice starting at the specified offset.
func (p *Page) SetBytes(offset int, b []byte) {
	length := len(b)
	binary.BigEndian.PutUint32(p.buffer[offset:], uint32(length))
	start := offset + 4
	copy(p.buffer[start:], b)
}

// GetRaw copies n bytes starting at offset, without a length prefix.
func (p *Page) GetRaw(offset, n int) []byte {
	b := make([]byte, n)
	copy(b, p.buffer[offset:offset+n])
	return b
}

// SetRaw copies b into the buffer at offset, without a length prefix.
func (p *Page) SetRaw(offset int, b []byte) {
	copy(p.buffer[offset:], b)
}

// GetString retrieves a string from the buffer at the specified offset.
func (p *Page) GetString(offset int) (string, error) {
	b := p.GetBytes(offset)
	if !utf8.Valid(b) {
		return "", errors.New("invalid UTF-8 encoding")
	}
	return string(b), nil
}

// SetString writes a string to the buffer at the specified offset.
func (p *Page) SetString(offset int, s string) error {
	if !utf8.ValidString(s) {
		return errors.New("string contains invalid UTF-8 characters")
	}
	p.SetBytes(offset, []byte(s))
	return nil
}

// GetBool retrieves a boolean from the buffer at the specified offset.
func (p *Page) GetBool(offset int) bool {
	return p.buffer[offset] != 0
}

// SetBool writes a boolean to the buffer at the specified offset.
func (p *Page) SetBool(offset int, b bool) {
	if b {
		p.buffer[offset] = 1
	} else {
		p.buffer[offset] = 0
	}
}

// MaxLength calculates the maximum number of bytes required to store a string of a given length.
func MaxLength(strlen int) int {
	// Add 4 bytes for the length prefix.
	return 4 + strlen*utf8.UTFMax
}

// Contents returns the byte buffer maintained by the Page.
func (p *Page) Contents() []byte {
	return p.buffer
}

// Len returns the size of the page in bytes.
func (p *Page) Len() int {
	return len(p.buffer)
}
