package record

import "github.com/JyotinderSingh/plandb/types"

// FieldInfo is the type and declared length of one field.
type FieldInfo struct {
	Type   types.FieldType
	Length int
}

// Schema is the ordered list of named, typed fields of a record.
type Schema struct {
	fields []string
	info   map[string]FieldInfo
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{
		info: make(map[string]FieldInfo),
	}
}

// AddField adds a field. length only matters for CHAR fields.
func (s *Schema) AddField(fieldName string, fieldType types.FieldType, length int) {
	if _, ok := s.info[fieldName]; !ok {
		s.fields = append(s.fields, fieldName)
	}
	s.info[fieldName] = FieldInfo{Type: fieldType, Length: length}
}

func (s *Schema) AddIntField(fieldName string)   { s.AddField(fieldName, types.Integer, 0) }
func (s *Schema) AddFloatField(fieldName string) { s.AddField(fieldName, types.Float, 0) }
func (s *Schema) AddBoolField(fieldName string)  { s.AddField(fieldName, types.Boolean, 0) }
func (s *Schema) AddDateField(fieldName string)  { s.AddField(fieldName, types.Date, 0) }
func (s *Schema) AddTextField(fieldName string)  { s.AddField(fieldName, types.Text, 0) }

// AddStringField adds a CHAR field holding up to length bytes.
func (s *Schema) AddStringField(fieldName string, length int) {
	s.AddField(fieldName, types.Varchar, length)
}

// Add copies the definition of fieldName from other.
func (s *Schema) Add(fieldName string, other *Schema) {
	info := other.info[fieldName]
	s.AddField(fieldName, info.Type, info.Length)
}

// AddAll copies every field of other.
func (s *Schema) AddAll(other *Schema) {
	for _, field := range other.fields {
		s.Add(field, other)
	}
}

// Fields returns the field names in declaration order.
func (s *Schema) Fields() []string {
	return s.fields
}

// HasField reports whether the schema contains fieldName.
func (s *Schema) HasField(fieldName string) bool {
	_, ok := s.info[fieldName]
	return ok
}

// Type returns the type of fieldName.
func (s *Schema) Type(fieldName string) types.FieldType {
	return s.info[fieldName].Type
}

// Length returns the declared length of fieldName.
func (s *Schema) Length(fieldName string) int {
	return s.info[fieldName].Length
}

// Info returns the definition of fieldName.
func (s *Schema) Info(fieldName string) FieldInfo {
	return s.info[fieldName]
}
