package record

import (
	"slices"
)

// Layout assigns every field of a schema a byte offset inside a record.
// Fields with larger alignment come first, which keeps padding small;
// fields of equal alignment keep their declaration order.
type Layout struct {
	schema     *Schema
	offsets    map[string]int
	recordSize int
}

// NewLayout computes the layout of schema.
func NewLayout(schema *Schema) *Layout {
	layout := &Layout{
		schema:  schema,
		offsets: make(map[string]int),
	}

	fields := slices.Clone(schema.Fields())
	slices.SortStableFunc(fields, func(a, b string) int {
		return alignmentRequirement(schema.Type(b)) - alignmentRequirement(schema.Type(a))
	})

	pos := 0
	largest := 1
	for _, field := range fields {
		align := alignmentRequirement(schema.Type(field))
		largest = max(largest, align)
		if pos%align != 0 {
			pos += align - pos%align
		}
		layout.offsets[field] = pos
		pos += ByteSize(schema.Info(field))
	}
	if pos%largest != 0 {
		pos += largest - pos%largest
	}
	layout.recordSize = pos
	return layout
}

// NewLayoutFromMetadata rebuilds a layout from stored offsets.
func NewLayoutFromMetadata(schema *Schema, offsets map[string]int, recordSize int) *Layout {
	return &Layout{
		schema:     schema,
		offsets:    offsets,
		recordSize: recordSize,
	}
}

// Schema returns the schema the layout was computed for.
func (l *Layout) Schema() *Schema {
	return l.schema
}

// Offset returns the offset of fieldName inside a record.
func (l *Layout) Offset(fieldName string) int {
	return l.offsets[fieldName]
}

// RecordSize returns the number of bytes of one record.
func (l *Layout) RecordSize() int {
	return l.recordSize
}
