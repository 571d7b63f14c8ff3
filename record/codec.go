package record

import (
	"bytes"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/types"
)

// EncodeValue writes v into buf at offset using the on-record format of info.
// TEXT values cannot be encoded here; their slot holds an overflow reference.
func EncodeValue(buf []byte, offset int, info FieldInfo, v types.Value) error {
	p := file.NewPageFromBytes(buf)
	switch info.Type {
	case types.Integer:
		p.SetInt(offset, int32(v.AsInt()))
	case types.Float:
		p.SetFloat(offset, v.AsFloat())
	case types.Date:
		p.SetInt(offset, v.AsDate())
	case types.Boolean:
		p.SetBool(offset, v.AsBool())
	case types.Varchar:
		s := v.AsString()
		if len(s) > info.Length {
			return dberr.Newf(dberr.ErrRecordTooLong, "value of %d bytes exceeds char(%d)", len(s), info.Length)
		}
		dst := buf[offset : offset+info.Length]
		clear(dst)
		copy(dst, s)
	default:
		return dberr.Newf(dberr.ErrInvalidArgument, "cannot encode %s inline", info.Type)
	}
	return nil
}

// DecodeValue reads the value stored at offset of buf.
func DecodeValue(buf []byte, offset int, info FieldInfo) (types.Value, error) {
	p := file.NewPageFromBytes(buf)
	switch info.Type {
	case types.Integer:
		return types.NewIntValue(int(p.GetInt(offset))), nil
	case types.Float:
		return types.NewFloatValue(p.GetFloat(offset)), nil
	case types.Date:
		return types.NewDateValue(p.GetInt(offset)), nil
	case types.Boolean:
		return types.NewBoolValue(p.GetBool(offset)), nil
	case types.Varchar:
		raw := buf[offset : offset+info.Length]
		if i := bytes.IndexByte(raw, 0); i >= 0 {
			raw = raw[:i]
		}
		return types.NewStringValue(string(raw)), nil
	default:
		return types.Value{}, dberr.Newf(dberr.ErrInvalidArgument, "cannot decode %s inline", info.Type)
	}
}
