package server

import (
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/types"
)

// Result is the outcome of one statement.
type Result struct {
	Kind         parse.StatementKind
	Columns      []string
	Rows         [][]types.Value
	RowsAffected int
	Status       dberr.StatusCode
	// Message is the reason of a failure, empty on success.
	Message string
}

// HasRows reports whether the statement produces a result set.
func (r *Result) HasRows() bool {
	return len(r.Columns) > 0
}

func failure(err error) *Result {
	return &Result{Status: dberr.Code(err), Message: err.Error()}
}
