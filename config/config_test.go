package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 4096, cfg.BlockSize)
	assert.Equal(t, 64, cfg.BufferCount)
	assert.Equal(t, "relstatistics", cfg.Stats.Table)
	assert.Equal(t, 10, cfg.Stats.Buckets)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_OverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plandb.yaml")
	content := `
data_dir: /var/lib/plandb
block_size: 8192
log_level: debug
lock_timeout: 2s
stats:
  buckets: 20
  seed: 42
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/plandb", cfg.DataDir)
	assert.Equal(t, 8192, cfg.BlockSize)
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
	assert.Equal(t, 20, cfg.Stats.Buckets)
	assert.Equal(t, int64(42), cfg.Stats.Seed)
	assert.Equal(t, "relstatistics", cfg.Stats.Table, "unset keys keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BlockSize = 16
	assert.Equal(t, dberr.InvalidArgument, dberr.Code(cfg.Validate()))

	cfg = Default()
	cfg.Stats.Buckets = 0
	assert.Error(t, cfg.Validate())
}
