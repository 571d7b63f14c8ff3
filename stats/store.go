package stats

import (
	"log/slog"
	"sync"

	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/google/btree"
)

// Store reads and writes the statistics table. Rows are cached in a
// B-tree ordered by (table, column) until the next write.
type Store struct {
	tbl *table.Table

	mu     sync.Mutex
	cache  *btree.BTreeG[Row]
	loaded bool
}

func rowLess(a, b Row) bool {
	if a.Table != b.Table {
		return a.Table < b.Table
	}
	return a.Column < b.Column
}

// NewStore returns a store over the statistics table tbl.
func NewStore(tbl *table.Table) *Store {
	return &Store{tbl: tbl, cache: btree.NewG(16, rowLess)}
}

// Table returns the statistics table.
func (s *Store) Table() *table.Table {
	return s.tbl
}

// Invalidate drops the cached rows. Callers use it when a transaction
// that wrote statistics rolls back.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.cache.Clear(false)
}

// Lookup returns the statistics of one column.
func (s *Store) Lookup(txn *tx.Transaction, tableName, column string) (Row, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(txn); err != nil {
		return Row{}, false, err
	}
	row, ok := s.cache.Get(Row{Table: tableName, Column: column})
	return row, ok, nil
}

// TableRows returns the statistics of every analyzed column of a table,
// ordered by column name.
func (s *Store) TableRows(txn *tx.Transaction, tableName string) ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(txn); err != nil {
		return nil, err
	}
	var rows []Row
	s.cache.AscendGreaterOrEqual(Row{Table: tableName}, func(r Row) bool {
		if r.Table != tableName {
			return false
		}
		rows = append(rows, r)
		return true
	})
	return rows, nil
}

// Write stores rows, replacing earlier statistics of the same columns.
func (s *Store) Write(txn *tx.Transaction, rows []Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.reset()

	for _, row := range rows {
		if err := s.remove(txn, func(r Row) bool { return r.Table == row.Table && r.Column == row.Column }); err != nil {
			return err
		}
		rec, err := s.tbl.MakeRecord(txn, []types.Value{
			types.NewStringValue(row.Table),
			types.NewStringValue(row.Column),
			types.NewIntValue(row.BucketCount),
			types.NewTextValue(row.Histogram),
			types.NewIntValue(row.SampledRowCount),
		})
		if err != nil {
			return err
		}
		if err := s.tbl.InsertRecord(txn, rec); err != nil {
			return err
		}
		slog.Info("stats: histogram written", "table", row.Table, "column", row.Column, "samples", row.SampledRowCount)
	}
	return nil
}

// Purge deletes the statistics of a table.
func (s *Store) Purge(txn *tx.Transaction, tableName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.reset()
	return s.remove(txn, func(r Row) bool { return r.Table == tableName })
}

func (s *Store) reset() {
	s.loaded = false
	s.cache.Clear(false)
}

// remove deletes the stored rows accepted by match. Callers hold s.mu.
func (s *Store) remove(txn *tx.Transaction, match func(Row) bool) error {
	var stale []*table.Record
	err := s.scan(txn, func(rec *table.Record, row Row) {
		if match(row) {
			stale = append(stale, rec)
		}
	})
	if err != nil {
		return err
	}
	for _, rec := range stale {
		if err := s.tbl.DeleteRecord(txn, rec); err != nil {
			return err
		}
	}
	return nil
}

// load fills the cache from the statistics table. Callers hold s.mu.
func (s *Store) load(txn *tx.Transaction) error {
	if s.loaded {
		return nil
	}
	s.cache.Clear(false)
	err := s.scan(txn, func(_ *table.Record, row Row) {
		s.cache.ReplaceOrInsert(row)
	})
	if err != nil {
		s.cache.Clear(false)
		return err
	}
	s.loaded = true
	return nil
}

func (s *Store) scan(txn *tx.Transaction, fn func(*table.Record, Row)) error {
	scanner, err := s.tbl.Scan(txn)
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
		row, err := s.decode(txn, rec)
		if err != nil {
			return err
		}
		fn(rec, row)
	}
}

func (s *Store) decode(txn *tx.Transaction, rec *table.Record) (Row, error) {
	var vals [5]types.Value
	for i, name := range []string{
		catalog.StatsTableName, catalog.StatsColumnName, catalog.StatsBucketCount,
		catalog.StatsHistogram, catalog.StatsSampledRowCount,
	} {
		v, err := s.tbl.Value(txn, rec, name)
		if err != nil {
			return Row{}, err
		}
		vals[i] = v
	}
	return Row{
		Table:           vals[0].AsString(),
		Column:          vals[1].AsString(),
		BucketCount:     vals[2].AsInt(),
		Histogram:       vals[3].AsString(),
		SampledRowCount: vals[4].AsInt(),
	}, nil
}
