package driver

import (
	"database/sql/driver"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/server"
	"github.com/cockroachdb/errors"
)

var _ driver.Conn = (*Conn)(nil)

// Conn is one session on a shared database. Statements run in auto-commit
// mode unless a transaction was started with Begin.
type Conn struct {
	driver  *Driver
	key     string
	session *server.Session
	closed  bool
}

// Prepare keeps the SQL text; planning happens on every execution.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	return &Stmt{conn: c, query: query}, nil
}

// Close rolls back an open transaction and releases the database.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return errors.CombineErrors(c.session.Close(), c.driver.release(c.key))
}

func (c *Conn) Begin() (driver.Tx, error) {
	if _, err := c.run(parse.KindBegin); err != nil {
		return nil, err
	}
	return &Tx{conn: c}, nil
}

func (c *Conn) run(kind parse.StatementKind) (*server.Result, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	return c.session.Run(parse.NewCommandData(kind))
}

func (c *Conn) execute(query string, args []driver.Value) (*server.Result, error) {
	if c.closed {
		return nil, driver.ErrBadConn
	}
	if len(args) > 0 {
		return nil, dberr.Newf(dberr.ErrUnimplemented, "statement parameters are not supported")
	}
	return c.session.Execute(query)
}
