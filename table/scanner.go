package table

import (
	"github.com/JyotinderSingh/plandb/record"
	"github.com/JyotinderSingh/plandb/tx"
)

// Scanner iterates over the rows of a table in storage order.
type Scanner struct {
	inner *record.Scanner
}

// Scan opens a scanner positioned before the first row.
func (t *Table) Scan(txn *tx.Transaction) (*Scanner, error) {
	f, err := t.dataFile(txn)
	if err != nil {
		return nil, err
	}
	return &Scanner{inner: f.Scan()}, nil
}

// Next advances to the next row.
func (s *Scanner) Next() (bool, error) {
	return s.inner.Next()
}

// Record returns a copy of the current row.
func (s *Scanner) Record() (*Record, error) {
	data, err := s.inner.Bytes()
	if err != nil {
		return nil, err
	}
	return NewRecord(s.inner.ID(), data), nil
}

// BeforeFirst rewinds the scanner.
func (s *Scanner) BeforeFirst() {
	s.inner.BeforeFirst()
}

// Close releases the scanner's pinned block.
func (s *Scanner) Close() {
	s.inner.Close()
}
