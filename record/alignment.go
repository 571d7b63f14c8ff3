package record

import "github.com/JyotinderSingh/plandb/types"

// alignmentRequirement returns the alignment of a field type in bytes.
func alignmentRequirement(fieldType types.FieldType) int {
	switch fieldType {
	case types.Float:
		return 8
	case types.Integer, types.Date, types.Text:
		return 4
	default:
		return 1
	}
}

// ByteSize returns the number of record bytes a field occupies.
func ByteSize(info FieldInfo) int {
	if info.Type == types.Varchar {
		return info.Length
	}
	return info.Type.FixedSize()
}
