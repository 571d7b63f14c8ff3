package file

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	t.Run("NewPage", func(t *testing.T) {
		assert := assert.New(t)
		blockSize := 400
		page := NewPage(blockSize)
		assert.Equal(blockSize, len(page.Contents()), "Buffer size should match block size")
	})

	t.Run("IntOperations", func(t *testing.T) {
		assert := assert.New(t)
		page := NewPage(100)
		testCases := []struct {
			offset int
			value  int32
		}{
			{0, 42},
			{4, -123},
			{8, 0},
			{12, math.MaxInt32},
			{16, math.MinInt32},
		}

		for _, tc := range testCases {
			page.SetInt(tc.offset, tc.value)
			assert.Equal(tc.value, page.GetInt(tc.offset), "Integer value at offset %d should match", tc.offset)
		}
	})

	t.Run("LongAndFloatOperations", func(t *testing.T) {
		assert := assert.New(t)
		page := NewPage(64)

		page.SetLong(0, math.MinInt64)
		page.SetFloat(8, 3.25)
		page.SetFloat(16, -0.5)

		assert.Equal(int64(math.MinInt64), page.GetLong(0))
		assert.Equal(3.25, page.GetFloat(8))
		assert.Equal(-0.5, page.GetFloat(16))
	})

	t.Run("BytesOperations", func(t *testing.T) {
		assert := assert.New(t)
		page := NewPage(100)
		testCases := []struct {
			offset int
			data   []byte
		}{
			{0, []byte{1, 2, 3, 4}},
			{20, []byte{}},
			{40, []byte{255, 0, 255}},
			{60, make([]byte, 20)},
		}

		for _, tc := range testCases {
			page.SetBytes(tc.offset, tc.data)
			assert.Equal(tc.data, page.GetBytes(tc.offset), "Byte data at offset %d should match", tc.offset)
		}
	})

	t.Run("RawOperations", func(t *testing.T) {
		assert := assert.New(t)
		page := NewPage(32)

		page.SetRaw(5, []byte("abc"))
		assert.Equal([]byte("abc"), page.GetRaw(5, 3))
		assert.Equal([]byte{0, 0}, page.GetRaw(8, 2))
	})

	t.Run("StringOperations", func(t *testing.T) {
		assert := assert.New(t)
		page := NewPage(1000)
		values := []string{"Hello, World!", "", "Hello, 世界!", "Line 1\nLine 2"}

		offset := 0
		for _, v := range values {
			assert.NoError(page.SetString(offset, v))
			got, err := page.GetString(offset)
			assert.NoError(err)
			assert.Equal(v, got)
			offset += MaxLength(len(v))
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		page := NewPage(100)
		page.SetBytes(0, []byte{0xFF, 0xFE, 0xFD})

		_, err := page.GetString(0)
		assert.Error(t, err, "GetString should fail for invalid UTF-8 sequence")
	})

	t.Run("MaxLength", func(t *testing.T) {
		assert.Equal(t, 4, MaxLength(0))
		assert.Equal(t, 4+10*utf8.UTFMax, MaxLength(10))
	})

	t.Run("Bool", func(t *testing.T) {
		page := NewPage(4)
		page.SetBool(1, true)
		assert.True(t, page.GetBool(1))
		page.SetBool(1, false)
		assert.False(t, page.GetBool(1))
	})
}
