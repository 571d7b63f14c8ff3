package table

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/types"
)

const (
	// TrxField is the system field holding the id of the inserting transaction.
	TrxField = "__trx"

	metaSuffix     = ".table"
	dataSuffix     = ".data"
	overflowSuffix = ".ovf"
	tmpSuffix      = ".tmp"
)

// FieldDef describes a user field in CREATE TABLE.
type FieldDef struct {
	Name   string
	Type   types.FieldType
	Length int
}

// FieldMeta is the stored description of one field.
type FieldMeta struct {
	Name    string          `json:"name"`
	Type    types.FieldType `json:"-"`
	Offset  int             `json:"offset"`
	Length  int             `json:"len"`
	Visible bool            `json:"visible"`
}

type fieldMetaJSON struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Offset  int    `json:"offset"`
	Length  int    `json:"len"`
	Visible bool   `json:"visible"`
}

func (f FieldMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldMetaJSON{
		Name:    f.Name,
		Type:    f.Type.String(),
		Offset:  f.Offset,
		Length:  f.Length,
		Visible: f.Visible,
	})
}

func (f *FieldMeta) UnmarshalJSON(data []byte) error {
	var raw fieldMetaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, ok := types.ParseFieldType(raw.Type)
	if !ok {
		return dberr.Newf(dberr.ErrInternal, "unknown field type %q for %s", raw.Type, raw.Name)
	}
	*f = FieldMeta{Name: raw.Name, Type: typ, Offset: raw.Offset, Length: raw.Length, Visible: raw.Visible}
	return nil
}

// Info returns the storage description of the field.
func (f FieldMeta) Info() record.FieldInfo {
	return record.FieldInfo{Type: f.Type, Length: f.Length}
}

// IndexMeta names an index and the fields of its key.
type IndexMeta struct {
	Name   string
	Unique bool
	Fields []string
}

type indexMetaJSON struct {
	Name   string `json:"index_name"`
	Unique bool   `json:"unique"`
	Fields string `json:"field_name"`
}

func (im IndexMeta) MarshalJSON() ([]byte, error) {
	return json.Marshal(indexMetaJSON{Name: im.Name, Unique: im.Unique, Fields: strings.Join(im.Fields, ",")})
}

func (im *IndexMeta) UnmarshalJSON(data []byte) error {
	var raw indexMetaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*im = IndexMeta{Name: raw.Name, Unique: raw.Unique}
	if raw.Fields != "" {
		im.Fields = strings.Split(raw.Fields, ",")
	}
	return nil
}

// HasField reports whether field is part of the index key.
func (im IndexMeta) HasField(field string) bool {
	for _, f := range im.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Meta is the persistent description of a table.
type Meta struct {
	ID         int         `json:"table_id"`
	Name       string      `json:"table_name"`
	Fields     []FieldMeta `json:"fields"`
	Indexes    []IndexMeta `json:"indexes"`
	RecordSize int         `json:"record_size"`
}

// newMeta lays out the system field followed by the user fields.
func newMeta(id int, name string, defs []FieldDef) (Meta, error) {
	schema := record.NewSchema()
	schema.AddIntField(TrxField)
	for _, def := range defs {
		if strings.TrimSpace(def.Name) == "" {
			return Meta{}, dberr.Newf(dberr.ErrInvalidArgument, "blank field name in table %s", name)
		}
		if schema.HasField(def.Name) {
			return Meta{}, dberr.Newf(dberr.ErrInvalidArgument, "duplicate field %s in table %s", def.Name, name)
		}
		if def.Type == types.Varchar && def.Length <= 0 {
			return Meta{}, dberr.Newf(dberr.ErrInvalidArgument, "char field %s needs a positive length", def.Name)
		}
		if def.Type == types.Undefined {
			return Meta{}, dberr.Newf(dberr.ErrInvalidArgument, "field %s has no type", def.Name)
		}
		schema.AddField(def.Name, def.Type, def.Length)
	}
	layout := record.NewLayout(schema)

	meta := Meta{ID: id, Name: name, RecordSize: layout.RecordSize()}
	for _, field := range schema.Fields() {
		info := schema.Info(field)
		meta.Fields = append(meta.Fields, FieldMeta{
			Name:    field,
			Type:    info.Type,
			Offset:  layout.Offset(field),
			Length:  record.ByteSize(info),
			Visible: field != TrxField,
		})
	}
	return meta, nil
}

// Field returns the metadata of the named field.
func (m *Meta) Field(name string) (FieldMeta, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldMeta{}, false
}

// VisibleFields returns the user fields in declaration order.
func (m *Meta) VisibleFields() []FieldMeta {
	var fields []FieldMeta
	for _, f := range m.Fields {
		if f.Visible {
			fields = append(fields, f)
		}
	}
	return fields
}

// SysFieldCount returns the number of invisible fields.
func (m *Meta) SysFieldCount() int {
	return len(m.Fields) - len(m.VisibleFields())
}

// Index returns the metadata of the named index.
func (m *Meta) Index(name string) (IndexMeta, bool) {
	for _, im := range m.Indexes {
		if im.Name == name {
			return im, true
		}
	}
	return IndexMeta{}, false
}

// MetaPath returns the metadata file of table name in dir.
func MetaPath(dir, name string) string {
	return filepath.Join(dir, name+metaSuffix)
}

// readMeta loads the metadata file at path.
func readMeta(path string) (Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Meta{}, dberr.IO(err, "read table metadata %s", path)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}, dberr.Wrapf(err, dberr.ErrInternal, "decode table metadata %s", path)
	}
	return meta, nil
}

// createMeta writes the metadata file of a new table, failing if it exists.
func createMeta(dir string, meta Meta) error {
	path := MetaPath(dir, meta.Name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return dberr.Newf(dberr.ErrFileExist, "table file %s already exists", path)
		}
		return dberr.IO(err, "create table file %s", path)
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		_, err = f.Write(data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return dberr.IO(err, "write table file %s", path)
	}
	return nil
}

// commitMeta replaces the metadata file by writing a temporary file and
// renaming it over the old one.
func commitMeta(dir string, meta Meta) error {
	path := MetaPath(dir, meta.Name)
	tmp := path + tmpSuffix
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dberr.Wrapf(err, dberr.ErrInternal, "encode table metadata %s", meta.Name)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		_ = os.Remove(tmp)
		return dberr.IO(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return dberr.IO(err, "rename %s", tmp)
	}
	return nil
}

// IsMetaFile reports whether name is a table metadata file.
func IsMetaFile(name string) bool {
	return strings.HasSuffix(name, metaSuffix)
}
