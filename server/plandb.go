// Package server wires the storage layers into a database instance and runs
// SQL statements through the planning pipeline.
package server

import (
	"log/slog"

	"github.com/JyotinderSingh/plandb/buffer"
	"github.com/JyotinderSingh/plandb/catalog"
	"github.com/JyotinderSingh/plandb/config"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/log"
	"github.com/JyotinderSingh/plandb/stats"
	"github.com/JyotinderSingh/plandb/tx"
	"github.com/JyotinderSingh/plandb/tx/concurrency"
)

// PlanDB is one open database directory.
type PlanDB struct {
	cfg           *config.Config
	fileManager   *file.Manager
	logManager    *log.Manager
	bufferManager *buffer.Manager
	lockTable     *concurrency.LockTable
	catalog       *catalog.Database
	statsStore    *stats.Store
}

// NewDB opens the database in cfg.DataDir, creating it if needed. An
// existing database is recovered before the catalog is loaded.
func NewDB(cfg *config.Config) (*PlanDB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db := &PlanDB{cfg: cfg}
	var err error

	if db.fileManager, err = file.NewManager(cfg.DataDir, cfg.BlockSize); err != nil {
		return nil, err
	}
	if db.logManager, err = log.NewManager(db.fileManager, cfg.LogFile); err != nil {
		_ = db.fileManager.Close()
		return nil, err
	}
	db.bufferManager = buffer.NewManager(db.fileManager, db.logManager, cfg.BufferCount)
	db.bufferManager.SetMaxWait(cfg.BufferTimeout)
	db.lockTable = concurrency.NewLockTable(cfg.LockTimeout)

	if err := db.recover(); err != nil {
		_ = db.fileManager.Close()
		return nil, err
	}
	if db.catalog, err = catalog.Open(db.fileManager, cfg.Stats.Table); err != nil {
		_ = db.fileManager.Close()
		return nil, err
	}
	db.statsStore = stats.NewStore(db.catalog.StatsTable())
	return db, nil
}

func (db *PlanDB) recover() error {
	if db.fileManager.IsNew() {
		slog.Info("server: creating new database", "dir", db.cfg.DataDir)
		return nil
	}
	slog.Info("server: recovering existing database", "dir", db.cfg.DataDir)
	transaction, err := db.NewTx()
	if err != nil {
		return err
	}
	if err := transaction.Recover(); err != nil {
		return err
	}
	return transaction.Commit()
}

// NewTx starts a transaction.
func (db *PlanDB) NewTx() (*tx.Transaction, error) {
	return tx.NewTransaction(db.fileManager, db.logManager, db.bufferManager, db.lockTable)
}

// NewSession returns a session in auto-commit mode.
func (db *PlanDB) NewSession() *Session {
	return newSession(db)
}

func (db *PlanDB) Config() *config.Config {
	return db.cfg
}

func (db *PlanDB) Catalog() *catalog.Database {
	return db.catalog
}

func (db *PlanDB) StatsStore() *stats.Store {
	return db.statsStore
}

func (db *PlanDB) FileManager() *file.Manager {
	return db.fileManager
}

func (db *PlanDB) LogManager() *log.Manager {
	return db.logManager
}

func (db *PlanDB) BufferManager() *buffer.Manager {
	return db.bufferManager
}

// Close releases the open files of the database.
func (db *PlanDB) Close() error {
	return db.fileManager.Close()
}
