// Package table stores the rows of one relation in a record file, keeps its
// B+-tree indexes consistent with every mutation, and keeps TEXT values in
// an overflow file.
package table

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/index/btree"
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/cockroachdb/errors"
)

// Table is an open relation. Metadata changes (CreateIndex) are serialized
// by the table; row operations run inside the caller's transaction.
type Table struct {
	fm  *file.Manager
	mu  sync.RWMutex
	// guarded by mu
	meta Meta
	ovf  overflow
}

// Create writes the metadata of a new table and creates its data file.
func Create(fm *file.Manager, id int, name string, fields []FieldDef) (*Table, error) {
	if id < 0 {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "invalid table id %d for %s", id, name)
	}
	if strings.TrimSpace(name) == "" {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "table name cannot be blank")
	}
	if len(fields) == 0 {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "table %s has no fields", name)
	}
	meta, err := newMeta(id, name, fields)
	if err != nil {
		return nil, err
	}
	if err := createMeta(fm.Dir(), meta); err != nil {
		return nil, err
	}
	if err := fm.CreateFile(name + dataSuffix); err != nil {
		_ = os.Remove(MetaPath(fm.Dir(), name))
		return nil, err
	}
	slog.Info("table: created", "table", name, "fields", len(meta.Fields), "record_size", meta.RecordSize)
	return newTable(fm, meta), nil
}

// Open loads the table described by metaFile, a file name inside the
// database directory.
func Open(fm *file.Manager, metaFile string) (*Table, error) {
	meta, err := readMeta(MetaPath(fm.Dir(), strings.TrimSuffix(metaFile, metaSuffix)))
	if err != nil {
		return nil, err
	}
	for _, im := range meta.Indexes {
		for _, field := range im.Fields {
			if _, ok := meta.Field(field); !ok {
				return nil, dberr.Newf(dberr.ErrInternal, "index %s of table %s names missing field %s", im.Name, meta.Name, field)
			}
		}
	}
	slog.Debug("table: opened", "table", meta.Name, "indexes", len(meta.Indexes))
	return newTable(fm, meta), nil
}

func newTable(fm *file.Manager, meta Meta) *Table {
	return &Table{
		fm:   fm,
		meta: meta,
		ovf:  overflow{filename: meta.Name + overflowSuffix},
	}
}

// Drop removes the metadata, data, overflow and index files of the table.
func (t *Table) Drop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	files := []string{t.meta.Name + dataSuffix, t.ovf.filename}
	for _, im := range t.meta.Indexes {
		files = append(files, btree.Files(t.indexFileBase(im.Name))...)
	}
	for _, name := range files {
		if err := t.fm.DropFile(name); err != nil {
			return err
		}
	}
	if err := os.Remove(MetaPath(t.fm.Dir(), t.meta.Name)); err != nil && !os.IsNotExist(err) {
		return dberr.IO(err, "remove metadata of %s", t.meta.Name)
	}
	slog.Info("table: dropped", "table", t.meta.Name)
	return nil
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.meta.Name
}

// Meta returns a copy of the table metadata.
func (t *Table) Meta() Meta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m := t.meta
	m.Fields = slices.Clone(m.Fields)
	m.Indexes = slices.Clone(m.Indexes)
	return m
}

// Field returns the metadata of the named field.
func (t *Table) Field(name string) (FieldMeta, bool) {
	return t.meta.Field(name)
}

// IndexOn returns an index whose key is exactly the given field.
func (t *Table) IndexOn(field string) (IndexMeta, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, im := range t.meta.Indexes {
		if len(im.Fields) == 1 && im.Fields[0] == field {
			return im, true
		}
	}
	return IndexMeta{}, false
}

func (t *Table) indexes() []IndexMeta {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.meta.Indexes)
}

func (t *Table) dataFile(txn *tx.Transaction) (*record.File, error) {
	return record.NewFile(txn, t.meta.Name+dataSuffix, t.meta.RecordSize)
}

func (t *Table) indexFileBase(indexName string) string {
	return t.meta.Name + "_" + indexName
}

// OpenIndex opens the B+-tree of the named index within txn.
func (t *Table) OpenIndex(txn *tx.Transaction, name string) (*btree.Index, error) {
	t.mu.RLock()
	im, ok := t.meta.Index(name)
	t.mu.RUnlock()
	if !ok {
		return nil, dberr.Newf(dberr.ErrSchemaIndexNotExist, "index %s on %s", name, t.meta.Name)
	}
	return t.openIndex(txn, im)
}

func (t *Table) openIndex(txn *tx.Transaction, im IndexMeta) (*btree.Index, error) {
	infos := make([]record.FieldInfo, len(im.Fields))
	for i, name := range im.Fields {
		fm, ok := t.meta.Field(name)
		if !ok {
			return nil, dberr.Newf(dberr.ErrInternal, "index %s names missing field %s", im.Name, name)
		}
		infos[i] = fm.Info()
	}
	return btree.NewIndex(txn, t.indexFileBase(im.Name), infos)
}

// MakeRecord encodes the values of the visible fields, in declaration order,
// into a new record. TEXT values are written to the overflow file.
func (t *Table) MakeRecord(txn *tx.Transaction, values []types.Value) (*Record, error) {
	visible := t.meta.VisibleFields()
	if len(values) != len(visible) {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "table %s has %d fields, got %d values", t.meta.Name, len(visible), len(values))
	}
	data := make([]byte, t.meta.RecordSize)
	trx, _ := t.meta.Field(TrxField)
	if err := record.EncodeValue(data, trx.Offset, trx.Info(), types.NewIntValue(txn.TxNum())); err != nil {
		return nil, err
	}
	for i, field := range visible {
		if err := t.encodeField(txn, data, field, values[i]); err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}
	}
	return NewRecord(record.ID{}, data), nil
}

func (t *Table) encodeField(txn *tx.Transaction, data []byte, field FieldMeta, v types.Value) error {
	cast, err := v.CastTo(field.Type)
	if err != nil {
		return err
	}
	if field.Type != types.Text {
		return record.EncodeValue(data, field.Offset, field.Info(), cast)
	}
	slot, err := t.ovf.write(txn, cast.AsString())
	if err != nil {
		return err
	}
	copy(data[field.Offset:field.Offset+types.TextSlotSize], slot)
	return nil
}

// Value decodes one field of rec.
func (t *Table) Value(txn *tx.Transaction, rec *Record, name string) (types.Value, error) {
	field, ok := t.meta.Field(name)
	if !ok {
		return types.Value{}, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s in %s", name, t.meta.Name)
	}
	if field.Type == types.Text {
		s, err := t.ovf.read(txn, rec.data[field.Offset:field.Offset+types.TextSlotSize])
		if err != nil {
			return types.Value{}, err
		}
		return types.NewTextValue(s), nil
	}
	return record.DecodeValue(rec.data, field.Offset, field.Info())
}

// InsertRecord stores rec and adds it to every index. When an index
// rejects the entry, the entries already added and the record itself are
// removed again and the index error is returned.
func (t *Table) InsertRecord(txn *tx.Transaction, rec *Record) error {
	f, err := t.dataFile(txn)
	if err != nil {
		return err
	}
	rid, err := f.Insert(rec.data)
	if err != nil {
		return err
	}
	rec.RID = rid

	indexes := t.indexes()
	for i, im := range indexes {
		if err := t.insertEntry(txn, im, rec); err != nil {
			slog.Warn("table: rolling back insert", "table", t.meta.Name, "index", im.Name, "rid", rid.String(), "err", err)
			for _, done := range indexes[:i] {
				if derr := t.deleteEntry(txn, done, rec); derr != nil {
					slog.Warn("table: index rollback failed", "index", done.Name, "err", derr)
				}
			}
			if derr := t.freeText(txn, rec.data); derr != nil {
				slog.Warn("table: text rollback failed", "table", t.meta.Name, "err", derr)
			}
			if derr := f.Delete(rid); derr != nil {
				slog.Warn("table: record rollback failed", "table", t.meta.Name, "err", derr)
			}
			return err
		}
	}
	return nil
}

// GetRecord returns a copy of the record at rid. A positive OverLength
// limits the copy to that many bytes.
func (t *Table) GetRecord(txn *tx.Transaction, rid record.ID) (*Record, error) {
	f, err := t.dataFile(txn)
	if err != nil {
		return nil, err
	}
	data, err := f.Get(rid)
	if err != nil {
		return nil, err
	}
	if rid.OverLength > 0 && rid.OverLength < len(data) {
		data = data[:rid.OverLength]
	}
	return NewRecord(rid, data), nil
}

// UpdateRecord sets one field of rec and moves the entries of the indexes
// on that field to the new key. When a unique index already holds the new
// key, the old entries are restored and ErrRecordDuplicateKey is returned.
func (t *Table) UpdateRecord(txn *tx.Transaction, rec *Record, name string, value types.Value) error {
	field, ok := t.meta.Field(name)
	if !ok || !field.Visible {
		return dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s in %s", name, t.meta.Name)
	}
	f, err := t.dataFile(txn)
	if err != nil {
		return err
	}

	newData := slices.Clone(rec.data)
	if err := t.encodeField(txn, newData, field, value); err != nil {
		return err
	}
	updated := NewRecord(rec.RID, newData)

	var affected []IndexMeta
	for _, im := range t.indexes() {
		if im.HasField(name) {
			affected = append(affected, im)
		}
	}
	for _, im := range affected {
		if err := t.deleteEntry(txn, im, rec); err != nil {
			return err
		}
	}
	for i, im := range affected {
		if err := t.insertEntry(txn, im, updated); err != nil {
			slog.Warn("table: restoring index entries after failed update", "table", t.meta.Name, "index", im.Name, "err", err)
			for _, done := range affected[:i] {
				if derr := t.deleteEntry(txn, done, updated); derr != nil {
					slog.Warn("table: index restore failed", "index", done.Name, "err", derr)
				}
			}
			for _, old := range affected {
				if ierr := t.addEntry(txn, old, rec); ierr != nil {
					slog.Warn("table: index restore failed", "index", old.Name, "err", ierr)
				}
			}
			if field.Type == types.Text {
				_ = t.ovf.free(txn, textSlot(newData, field))
			}
			return err
		}
	}

	if err := f.Update(rec.RID, newData); err != nil {
		return err
	}
	if field.Type == types.Text {
		if err := t.ovf.free(txn, textSlot(rec.data, field)); err != nil {
			return err
		}
	}
	rec.SetData(updated.Take())
	return nil
}

// DeleteRecord removes the index entries of rec, frees its TEXT chains and
// deletes the record.
func (t *Table) DeleteRecord(txn *tx.Transaction, rec *Record) error {
	for _, im := range t.indexes() {
		if err := t.deleteEntry(txn, im, rec); err != nil {
			if dberr.Code(err) != dberr.RecordNotExist {
				return err
			}
			slog.Warn("table: missing index entry on delete", "table", t.meta.Name, "index", im.Name, "rid", rec.RID.String())
		}
	}
	if err := t.freeText(txn, rec.data); err != nil {
		return err
	}
	f, err := t.dataFile(txn)
	if err != nil {
		return err
	}
	return f.Delete(rec.RID)
}

func (t *Table) freeText(txn *tx.Transaction, data []byte) error {
	for _, field := range t.meta.Fields {
		if field.Type == types.Text {
			if err := t.ovf.free(txn, textSlot(data, field)); err != nil {
				return err
			}
		}
	}
	return nil
}

func textSlot(data []byte, field FieldMeta) []byte {
	return data[field.Offset : field.Offset+types.TextSlotSize]
}

// Key returns the index key of rec for im.
func (t *Table) Key(im IndexMeta, rec *Record) (index.Key, error) {
	key := make(index.Key, len(im.Fields))
	for i, name := range im.Fields {
		field, ok := t.meta.Field(name)
		if !ok {
			return nil, dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s in %s", name, t.meta.Name)
		}
		v, err := record.DecodeValue(rec.data, field.Offset, field.Info())
		if err != nil {
			return nil, err
		}
		key[i] = v
	}
	return key, nil
}

// insertEntry adds rec to im, rejecting duplicate keys on unique indexes.
func (t *Table) insertEntry(txn *tx.Transaction, im IndexMeta, rec *Record) error {
	idx, err := t.openIndex(txn, im)
	if err != nil {
		return err
	}
	defer idx.Close()
	key, err := t.Key(im, rec)
	if err != nil {
		return err
	}
	if im.Unique {
		exists, err := idx.Contains(key)
		if err != nil {
			return err
		}
		if exists {
			return dberr.Newf(dberr.ErrRecordDuplicateKey, "key %s already present in index %s", key, im.Name)
		}
	}
	return idx.Insert(key, rec.RID)
}

// addEntry adds rec to im without the uniqueness check.
func (t *Table) addEntry(txn *tx.Transaction, im IndexMeta, rec *Record) error {
	idx, err := t.openIndex(txn, im)
	if err != nil {
		return err
	}
	defer idx.Close()
	key, err := t.Key(im, rec)
	if err != nil {
		return err
	}
	return idx.Insert(key, rec.RID)
}

func (t *Table) deleteEntry(txn *tx.Transaction, im IndexMeta, rec *Record) error {
	idx, err := t.openIndex(txn, im)
	if err != nil {
		return err
	}
	defer idx.Close()
	key, err := t.Key(im, rec)
	if err != nil {
		return err
	}
	return idx.Delete(key, rec.RID)
}

// CreateIndex builds a B+-tree over fields, fills it from the existing rows
// and records it in the metadata. If a row cannot be added the partial
// index files are dropped.
func (t *Table) CreateIndex(txn *tx.Transaction, unique bool, name string, fields []string) error {
	if strings.TrimSpace(name) == "" || len(fields) == 0 {
		return dberr.Newf(dberr.ErrInvalidArgument, "index on %s needs a name and fields", t.meta.Name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.meta.Index(name); ok {
		return dberr.Newf(dberr.ErrSchemaIndexNameRepeat, "index %s already exists on %s", name, t.meta.Name)
	}
	for _, f := range fields {
		field, ok := t.meta.Field(f)
		if !ok || !field.Visible {
			return dberr.Newf(dberr.ErrSchemaFieldNotExist, "field %s in %s", f, t.meta.Name)
		}
	}
	im := IndexMeta{Name: name, Unique: unique, Fields: slices.Clone(fields)}

	base := t.indexFileBase(name)
	for _, f := range btree.Files(base) {
		if err := t.fm.DropFile(f); err != nil {
			return err
		}
	}
	if err := t.backfill(txn, im); err != nil {
		for _, f := range btree.Files(base) {
			if derr := t.fm.DropFile(f); derr != nil {
				slog.Warn("table: dropping partial index failed", "file", f, "err", derr)
			}
		}
		return err
	}

	meta := t.meta
	meta.Indexes = append(slices.Clone(meta.Indexes), im)
	if err := commitMeta(t.fm.Dir(), meta); err != nil {
		return err
	}
	t.meta = meta
	slog.Info("table: index created", "table", t.meta.Name, "index", name, "fields", strings.Join(fields, ","), "unique", unique)
	return nil
}

func (t *Table) backfill(txn *tx.Transaction, im IndexMeta) error {
	idx, err := t.openIndex(txn, im)
	if err != nil {
		return err
	}
	defer idx.Close()

	scanner, err := t.Scan(txn)
	if err != nil {
		return err
	}
	defer scanner.Close()
	for {
		ok, err := scanner.Next()
		if err != nil || !ok {
			return err
		}
		rec, err := scanner.Record()
		if err != nil {
			return err
		}
		key, err := t.Key(im, rec)
		if err != nil {
			return err
		}
		if im.Unique {
			exists, err := idx.Contains(key)
			if err != nil {
				return err
			}
			if exists {
				return dberr.Newf(dberr.ErrRecordDuplicateKey, "key %s occurs twice, cannot build unique index %s", key, im.Name)
			}
		}
		if err := idx.Insert(key, rec.RID); err != nil {
			return err
		}
	}
}

// Size returns the number of rows and data blocks of the table.
func (t *Table) Size(txn *tx.Transaction) (rows int, blocks int, err error) {
	if blocks, err = txn.Size(t.meta.Name + dataSuffix); err != nil {
		return 0, 0, err
	}
	scanner, err := t.Scan(txn)
	if err != nil {
		return 0, 0, err
	}
	defer scanner.Close()
	for {
		ok, err := scanner.Next()
		if err != nil {
			return 0, 0, err
		}
		if !ok {
			return rows, blocks, nil
		}
		rows++
	}
}
