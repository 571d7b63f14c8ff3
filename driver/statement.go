package driver

import (
	"database/sql/driver"

	"github.com/JyotinderSingh/plandb/dberr"
)

var _ driver.Stmt = (*Stmt)(nil)

// Stmt is the text of one statement bound to a connection.
type Stmt struct {
	conn  *Conn
	query string
}

func (s *Stmt) Close() error { return nil }

// NumInput returns -1; placeholders are not parsed.
func (s *Stmt) NumInput() int { return -1 }

// Exec runs the statement and reports the rows it changed. Rows produced by
// a query are discarded.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	res, err := s.conn.execute(s.query, args)
	if err != nil {
		return nil, err
	}
	return &Result{rowsAffected: int64(res.RowsAffected)}, nil
}

// Query runs the statement and returns its rows. The rows are fully
// materialized before Query returns.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	res, err := s.conn.execute(s.query, args)
	if err != nil {
		return nil, err
	}
	if !res.HasRows() {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "%s does not return rows", res.Kind)
	}
	return newRows(res), nil
}

// Result implements driver.Result for the Exec path.
type Result struct {
	rowsAffected int64
}

func (r *Result) LastInsertId() (int64, error) {
	return 0, dberr.Newf(dberr.ErrUnimplemented, "LastInsertId is not supported")
}

func (r *Result) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}
