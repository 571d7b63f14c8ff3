// Package driver exposes plandb through database/sql. The data source name
// is the path of the database directory.
package driver

import (
	"database/sql"
	"database/sql/driver"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/JyotinderSingh/plandb/config"
	"github.com/JyotinderSingh/plandb/server"
)

const driverName = "plandb"

func init() {
	sql.Register(driverName, &Driver{})
}

var _ driver.Driver = (*Driver)(nil)

// Driver opens connections to plandb directories. Connections to the same
// directory share one database instance, each with its own session.
type Driver struct {
	// Config, when set, supplies every setting except the data directory.
	Config *config.Config

	mu   sync.Mutex
	open map[string]*sharedDB
}

type sharedDB struct {
	db   *server.PlanDB
	refs int
}

// Open returns a connection to the database in directory.
func (d *Driver) Open(directory string) (driver.Conn, error) {
	key, err := filepath.Abs(directory)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open == nil {
		d.open = make(map[string]*sharedDB)
	}
	shared, ok := d.open[key]
	if !ok {
		cfg := config.Default()
		if d.Config != nil {
			copied := *d.Config
			cfg = &copied
		}
		cfg.DataDir = directory
		db, err := server.NewDB(cfg)
		if err != nil {
			return nil, err
		}
		shared = &sharedDB{db: db}
		d.open[key] = shared
		slog.Debug("driver: opened database", "dir", directory)
	}
	shared.refs++
	return &Conn{driver: d, key: key, session: shared.db.NewSession()}, nil
}

// release drops one reference to the database at key and closes it when
// no connection uses it.
func (d *Driver) release(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	shared, ok := d.open[key]
	if !ok {
		return nil
	}
	shared.refs--
	if shared.refs > 0 {
		return nil
	}
	delete(d.open, key)
	slog.Debug("driver: closed database", "dir", key)
	return shared.db.Close()
}
