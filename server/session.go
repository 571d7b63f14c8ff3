package server

import (
	"log/slog"
	"strings"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/logical"
	"github.com/JyotinderSingh/plandb/optimizer"
	"github.com/JyotinderSingh/plandb/parse"
	"github.com/JyotinderSingh/plandb/physical"
	"github.com/JyotinderSingh/plandb/query"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/types"
	"github.com/cockroachdb/errors"
)

// Session runs statements for one client. Statements outside BEGIN and
// COMMIT each run in their own transaction; CREATE and DROP are refused
// inside one. A Session is not safe for concurrent use.
type Session struct {
	db *PlanDB
	// txn is the explicit transaction opened by BEGIN, nil in auto-commit
	// mode.
	txn *tx.Transaction

	builder   *logical.Builder
	rewriter  *optimizer.Rewriter
	costModel *optimizer.CostModel
	orderer   optimizer.JoinOrderer
	generator *physical.Generator
}

func newSession(db *PlanDB) *Session {
	cfg := db.cfg
	collector := stats.NewCollector(cfg.Stats.Buckets, stats.NewSeededSampler(cfg.Stats.Seed))
	return &Session{
		db:        db,
		builder:   logical.NewBuilder(db.catalog),
		rewriter:  optimizer.NewRewriter(),
		costModel: optimizer.NewCostModel(db.statsStore),
		generator: physical.NewGenerator(db.statsStore, collector),
	}
}

// InTransaction reports whether BEGIN opened a transaction that is still
// running.
func (s *Session) InTransaction() bool {
	return s.txn != nil
}

// Execute parses and runs one statement. On failure the returned result
// carries the status code and reason of err.
func (s *Session) Execute(sql string) (*Result, error) {
	stmt, err := parse.Parse(sql)
	if err != nil {
		return failure(err), err
	}
	return s.Run(stmt)
}

// ExecuteBatch runs a semicolon separated list of statements in order. A
// statement that fails as unimplemented is logged and skipped; any other
// failure stops the batch and is returned with the results so far.
func (s *Session) ExecuteBatch(sql string) ([]*Result, error) {
	stmts, err := parse.ParseAll(sql)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(stmts))
	for _, stmt := range stmts {
		res, err := s.Run(stmt)
		if err != nil {
			if dberr.IsBenign(err) {
				slog.Warn("server: statement skipped", "kind", stmt.Kind(), "reason", err)
				continue
			}
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Run executes a parsed statement.
func (s *Session) Run(stmt parse.Statement) (*Result, error) {
	kind := stmt.Kind()
	var res *Result
	var err error
	switch kind {
	case parse.KindBegin:
		res, err = s.begin()
	case parse.KindCommit:
		res, err = s.commit()
	case parse.KindRollback:
		res, err = s.rollback()
	case parse.KindExit:
		res = &Result{}
	case parse.KindCreateTable, parse.KindCreateIndex, parse.KindDropTable, parse.KindShowTables, parse.KindDescTable:
		// Table metadata is written outside any transaction, so schema
		// changes cannot be undone by ROLLBACK.
		if s.txn != nil && isSchemaChange(kind) {
			err = dberr.Newf(dberr.ErrInvalidArgument, "%s cannot run inside a transaction", kind)
			break
		}
		err = s.inTxn(func(txn *tx.Transaction) (runErr error) {
			res, runErr = s.runCommand(txn, stmt)
			return runErr
		})
	default:
		err = s.inTxn(func(txn *tx.Transaction) (runErr error) {
			res, runErr = s.runPlan(txn, stmt)
			return runErr
		})
	}
	if err != nil {
		res = failure(err)
	}
	res.Kind = kind
	return res, err
}

func isSchemaChange(kind parse.StatementKind) bool {
	switch kind {
	case parse.KindCreateTable, parse.KindCreateIndex, parse.KindDropTable:
		return true
	}
	return false
}

// Close rolls back a transaction left open by BEGIN.
func (s *Session) Close() error {
	if s.txn == nil {
		return nil
	}
	_, err := s.rollback()
	return err
}

func (s *Session) begin() (*Result, error) {
	if s.txn != nil {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "a transaction is already open")
	}
	txn, err := s.db.NewTx()
	if err != nil {
		return nil, err
	}
	s.txn = txn
	slog.Info("server: transaction started", "tx", txn.TxNum())
	return &Result{}, nil
}

func (s *Session) commit() (*Result, error) {
	if s.txn == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "no transaction to commit")
	}
	txn := s.txn
	s.txn = nil
	if err := txn.Commit(); err != nil {
		s.db.statsStore.Invalidate()
		return nil, err
	}
	slog.Info("server: transaction committed", "tx", txn.TxNum())
	return &Result{}, nil
}

func (s *Session) rollback() (*Result, error) {
	if s.txn == nil {
		return nil, dberr.Newf(dberr.ErrInvalidArgument, "no transaction to roll back")
	}
	txn := s.txn
	s.txn = nil
	err := txn.Rollback()
	s.db.statsStore.Invalidate()
	if err != nil {
		return nil, err
	}
	slog.Info("server: transaction rolled back", "tx", txn.TxNum())
	return &Result{}, nil
}

// inTxn runs fn in the explicit transaction, or in a new one that is
// committed when fn succeeds. A failure rolls the transaction back, ending
// an explicit transaction too.
func (s *Session) inTxn(fn func(txn *tx.Transaction) error) error {
	txn := s.txn
	explicit := txn != nil
	if !explicit {
		var err error
		if txn, err = s.db.NewTx(); err != nil {
			return err
		}
	}

	if err := fn(txn); err != nil {
		if explicit {
			s.txn = nil
			slog.Warn("server: statement failed, transaction rolled back", "tx", txn.TxNum(), "err", err)
		}
		rbErr := txn.Rollback()
		s.db.statsStore.Invalidate()
		return errors.CombineErrors(err, rbErr)
	}
	if explicit {
		return nil
	}
	if err := txn.Commit(); err != nil {
		s.db.statsStore.Invalidate()
		return err
	}
	return nil
}

// runPlan builds, optimizes and executes a plannable statement.
func (s *Session) runPlan(txn *tx.Transaction, stmt parse.Statement) (*Result, error) {
	plan, err := s.builder.Build(stmt)
	if err != nil {
		return nil, err
	}
	if err := s.rewriter.Rewrite(plan); err != nil {
		return nil, err
	}
	if err := s.costModel.Annotate(txn, plan); err != nil {
		return nil, err
	}
	if err := s.orderer.Reorder(plan); err != nil {
		return nil, err
	}
	op, err := s.generator.Create(plan)
	if err != nil {
		return nil, err
	}
	return drain(txn, op)
}

// drain runs op to completion and collects its rows.
func drain(txn *tx.Transaction, op physical.Operator) (res *Result, err error) {
	if err := op.Open(txn); err != nil {
		return nil, errors.CombineErrors(err, op.Close())
	}
	defer func() {
		err = errors.CombineErrors(err, op.Close())
		if err != nil {
			res = nil
		}
	}()

	columns, err := physical.Columns(op)
	if err != nil {
		return nil, err
	}
	res = &Result{Columns: columns}
	for {
		ok, err := op.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		row, err := query.Materialize(op.CurrentTuple())
		if err != nil {
			return nil, err
		}
		res.Rows = append(res.Rows, row.Values())
	}
	if m, ok := op.(physical.Mutation); ok {
		res.RowsAffected = m.RowsAffected()
	}
	return res, nil
}

// runCommand executes the statements that bypass planning.
func (s *Session) runCommand(txn *tx.Transaction, stmt parse.Statement) (*Result, error) {
	cat := s.db.catalog
	switch st := stmt.(type) {
	case *parse.CreateTableData:
		if _, err := cat.CreateTable(st.TableName(), st.Fields()); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *parse.CreateIndexData:
		tbl, err := cat.FindTable(st.TableName())
		if err != nil {
			return nil, err
		}
		if err := tbl.CreateIndex(txn, st.Unique(), st.IndexName(), st.FieldNames()); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *parse.TableData:
		if st.Kind() == parse.KindDescTable {
			return s.describe(st.TableName())
		}
		if _, err := cat.FindTable(st.TableName()); err != nil {
			return nil, err
		}
		if err := s.db.statsStore.Purge(txn, st.TableName()); err != nil {
			return nil, err
		}
		if err := cat.DropTable(st.TableName()); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case *parse.CommandData:
		res := &Result{Columns: []string{"Tables"}}
		for _, name := range cat.TableNames() {
			res.Rows = append(res.Rows, []types.Value{types.NewStringValue(name)})
		}
		return res, nil
	}
	return nil, dberr.Newf(dberr.ErrUnimplemented, "%s is not supported", stmt.Kind())
}

func (s *Session) describe(name string) (*Result, error) {
	tbl, err := s.db.catalog.FindTable(name)
	if err != nil {
		return nil, err
	}
	meta := tbl.Meta()
	res := &Result{Columns: []string{"Field", "Type", "Size", "Indexes"}}
	for _, f := range meta.VisibleFields() {
		var indexes []string
		for _, im := range meta.Indexes {
			if im.HasField(f.Name) {
				indexes = append(indexes, im.Name)
			}
		}
		res.Rows = append(res.Rows, []types.Value{
			types.NewStringValue(f.Name),
			types.NewStringValue(f.Type.String()),
			types.NewIntValue(f.Length),
			types.NewStringValue(strings.Join(indexes, ",")),
		})
	}
	return res, nil
}
