package physical

import (
	"fmt"
	"log/slog"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/index"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
)

// TableScan reads every row of a table in storage order.
type TableScan struct {
	leaf
	Table  *table.Table
	Alias  string
	Fields []table.FieldMeta
	Cost   float64

	scanner *table.Scanner
	tuple   *query.RowTuple
}

func NewTableScan(tbl *table.Table, alias string, fields []table.FieldMeta, cost float64) *TableScan {
	return &TableScan{Table: tbl, Alias: alias, Fields: fields, Cost: cost}
}

func (s *TableScan) Open(txn *tx.Transaction) error {
	scanner, err := s.Table.Scan(txn)
	if err != nil {
		return err
	}
	s.scanner = scanner
	s.tuple = query.NewRowTuple(txn, s.Table, s.Alias, s.Fields)
	return nil
}

func (s *TableScan) Next() (bool, error) {
	ok, err := s.scanner.Next()
	if err != nil || !ok {
		return false, err
	}
	rec, err := s.scanner.Record()
	if err != nil {
		return false, err
	}
	s.tuple.SetRecord(rec)
	return true, nil
}

func (s *TableScan) CurrentTuple() query.Tuple { return s.tuple }

func (s *TableScan) Close() error {
	if s.scanner != nil {
		s.scanner.Close()
		s.scanner = nil
	}
	return nil
}

func (s *TableScan) Accept(v Visitor) error { return v.VisitTableScan(s) }
func (s *TableScan) Name() string           { return "TableScan" }

func (s *TableScan) Param() string {
	return fmt.Sprintf("%s (cost=%.2f)", bound(s.Table, s.Alias), s.Cost)
}

// IndexScan reads the rows whose indexed field equals Key through a
// single-field index.
type IndexScan struct {
	leaf
	Table  *table.Table
	Alias  string
	Fields []table.FieldMeta
	Index  table.IndexMeta
	Key    types.Value
	Cost   float64

	idx   index.Index
	txn   *tx.Transaction
	tuple *query.RowTuple
}

func NewIndexScan(tbl *table.Table, alias string, fields []table.FieldMeta, im table.IndexMeta, key types.Value, cost float64) *IndexScan {
	return &IndexScan{Table: tbl, Alias: alias, Fields: fields, Index: im, Key: key, Cost: cost}
}

func (s *IndexScan) Open(txn *tx.Transaction) error {
	field, ok := s.Table.Field(s.Index.Fields[0])
	if !ok {
		return dberr.Newf(dberr.ErrInternal, "index %s names missing field %s", s.Index.Name, s.Index.Fields[0])
	}
	s.txn = txn
	s.tuple = query.NewRowTuple(txn, s.Table, s.Alias, s.Fields)
	// NULL equals no value, so the scan is empty.
	if s.Key.IsNull() {
		return nil
	}
	key, err := s.Key.CastTo(field.Type)
	if err != nil {
		return err
	}
	idx, err := s.Table.OpenIndex(txn, s.Index.Name)
	if err != nil {
		return err
	}
	if err := idx.BeforeFirst(index.Key{key}); err != nil {
		idx.Close()
		return err
	}
	s.idx = idx
	slog.Debug("physical: index scan", "table", s.Table.Name(), "index", s.Index.Name, "key", key)
	return nil
}

func (s *IndexScan) Next() (bool, error) {
	if s.idx == nil {
		return false, nil
	}
	ok, err := s.idx.Next()
	if err != nil || !ok {
		return false, err
	}
	rid, err := s.idx.GetDataRecordID()
	if err != nil {
		return false, err
	}
	rec, err := s.Table.GetRecord(s.txn, rid)
	if err != nil {
		return false, err
	}
	s.tuple.SetRecord(rec)
	return true, nil
}

func (s *IndexScan) CurrentTuple() query.Tuple { return s.tuple }

func (s *IndexScan) Close() error {
	if s.idx != nil {
		s.idx.Close()
		s.idx = nil
	}
	return nil
}

func (s *IndexScan) Accept(v Visitor) error { return v.VisitIndexScan(s) }
func (s *IndexScan) Name() string           { return "IndexScan" }

func (s *IndexScan) Param() string {
	return fmt.Sprintf("%s using %s (%s = %s) (cost=%.2f)", bound(s.Table, s.Alias), s.Index.Name, s.Index.Fields[0], s.Key, s.Cost)
}

func bound(tbl *table.Table, alias string) string {
	if alias == "" || alias == tbl.Name() {
		return tbl.Name()
	}
	return tbl.Name() + " " + alias
}
