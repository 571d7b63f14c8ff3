// Package catalog keeps the registry of the tables of one database
// directory and bootstraps the statistics table used by ANALYZE.
package catalog

import (
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/file"
	"github.com/JyotinderSingh/plandb/table"
	"github.com/JyotinderSingh/plandb/types"
	"golang.org/x/exp/maps"
)

// Columns of the statistics table.
const (
	StatsTableName       = "table_name"
	StatsColumnName      = "column_name"
	StatsBucketCount     = "bucket_count"
	StatsHistogram       = "histogram"
	StatsSampledRowCount = "sampled_row_count"

	maxNameLength = 32
)

// StatsFields is the schema of the statistics table.
var StatsFields = []table.FieldDef{
	{Name: StatsTableName, Type: types.Varchar, Length: maxNameLength},
	{Name: StatsColumnName, Type: types.Varchar, Length: maxNameLength},
	{Name: StatsBucketCount, Type: types.Integer},
	{Name: StatsHistogram, Type: types.Text},
	{Name: StatsSampledRowCount, Type: types.Integer},
}

// Database is the set of tables stored in one directory.
type Database struct {
	fm         *file.Manager
	statsTable string

	mu     sync.RWMutex
	tables map[string]*table.Table
	nextID int
}

// Open loads every table of the directory managed by fm and creates the
// statistics table when it is missing.
func Open(fm *file.Manager, statsTable string) (*Database, error) {
	db := &Database{
		fm:         fm,
		statsTable: statsTable,
		tables:     make(map[string]*table.Table),
	}

	entries, err := os.ReadDir(fm.Dir())
	if err != nil {
		return nil, dberr.IO(err, "read database directory %s", fm.Dir())
	}
	for _, entry := range entries {
		if entry.IsDir() || !table.IsMetaFile(entry.Name()) {
			continue
		}
		tbl, err := table.Open(fm, entry.Name())
		if err != nil {
			return nil, err
		}
		db.tables[tbl.Name()] = tbl
		if id := tbl.Meta().ID; id >= db.nextID {
			db.nextID = id + 1
		}
	}

	if _, ok := db.tables[statsTable]; !ok {
		if _, err := db.CreateTable(statsTable, StatsFields); err != nil {
			return nil, err
		}
	}
	slog.Info("catalog: opened", "dir", fm.Dir(), "tables", len(db.tables))
	return db, nil
}

// CreateTable creates and registers a new table.
func (db *Database) CreateTable(name string, fields []table.FieldDef) (*table.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.tables[name]; ok {
		return nil, dberr.Newf(dberr.ErrSchemaTableExist, "table %s", name)
	}
	tbl, err := table.Create(db.fm, db.nextID, name, fields)
	if err != nil {
		return nil, err
	}
	db.tables[name] = tbl
	db.nextID++
	return tbl, nil
}

// DropTable removes a table and its files. The statistics table cannot be dropped.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tbl, ok := db.tables[name]
	if !ok {
		return dberr.Newf(dberr.ErrSchemaTableNotExist, "table %s", name)
	}
	if name == db.statsTable {
		return dberr.Newf(dberr.ErrInvalidArgument, "cannot drop statistics table %s", name)
	}
	if err := tbl.Drop(); err != nil {
		return err
	}
	delete(db.tables, name)
	return nil
}

// FindTable returns the named table.
func (db *Database) FindTable(name string) (*table.Table, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tbl, ok := db.tables[name]
	if !ok {
		return nil, dberr.Newf(dberr.ErrSchemaTableNotExist, "table %s", name)
	}
	return tbl, nil
}

// TableNames returns the names of all tables in ascending order.
func (db *Database) TableNames() []string {
	db.mu.RLock()
	names := maps.Keys(db.tables)
	db.mu.RUnlock()
	sort.Strings(names)
	return names
}

// StatsTable returns the table holding ANALYZE results.
func (db *Database) StatsTable() *table.Table {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.tables[db.statsTable]
}

// NextTableID returns the id the next created table will get.
func (db *Database) NextTableID() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.nextID
}

// FileManager returns the file manager of the database directory.
func (db *Database) FileManager() *file.Manager {
	return db.fm
}
