package driver

import (
	"database/sql/driver"

	"github.com/JyotinderSingh/plandb/parse"
)

var _ driver.Tx = (*Tx)(nil)

// Tx is the explicit transaction of a connection's session.
type Tx struct {
	conn *Conn
}

func (t *Tx) Commit() error {
	_, err := t.conn.run(parse.KindCommit)
	return err
}

// Rollback ends the transaction. A transaction already ended by a failed
// statement rolls back without error.
func (t *Tx) Rollback() error {
	if !t.conn.session.InTransaction() {
		return nil
	}
	_, err := t.conn.run(parse.KindRollback)
	return err
}
