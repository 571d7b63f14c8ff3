package driver

import (
	"database/sql/driver"
	"io"
	"time"

	"github.com/JyotinderSingh/plandb/server"
	"github.com/JyotinderSingh/plandb/types"
)

var _ driver.Rows = (*Rows)(nil)

// Rows iterates over a materialized result set.
type Rows struct {
	columns []string
	rows    [][]types.Value
	pos     int
}

func newRows(res *server.Result) *Rows {
	return &Rows{columns: res.Columns, rows: res.Rows}
}

func (r *Rows) Columns() []string { return r.columns }

func (r *Rows) Close() error {
	r.rows = nil
	return nil
}

func (r *Rows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	for i, v := range r.rows[r.pos] {
		dest[i] = toDriverValue(v)
	}
	r.pos++
	return nil
}

// toDriverValue converts v to one of the types database/sql accepts.
func toDriverValue(v types.Value) driver.Value {
	switch v.Type() {
	case types.Integer:
		return int64(v.AsInt())
	case types.Float:
		return v.AsFloat()
	case types.Varchar, types.Text:
		return v.AsString()
	case types.Boolean:
		return v.AsBool()
	case types.Date:
		return time.Unix(int64(v.AsDate())*24*60*60, 0).UTC()
	default:
		return nil
	}
}
