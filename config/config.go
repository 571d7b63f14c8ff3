package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config holds the tunables of an engine instance.
type Config struct {
	DataDir       string        `mapstructure:"data_dir"`
	BlockSize     int           `mapstructure:"block_size"`
	BufferCount   int           `mapstructure:"buffer_count"`
	LogFile       string        `mapstructure:"log_file"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	BufferTimeout time.Duration `mapstructure:"buffer_timeout"`
	LogLevel      string        `mapstructure:"log_level"`

	Stats struct {
		Table   string `mapstructure:"table"`
		Buckets int    `mapstructure:"buckets"`
		// Seed of the sampling source; zero means seed from the clock.
		Seed int64 `mapstructure:"seed"`
	} `mapstructure:"stats"`
}

const envPrefix = "PLANDB"

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./plandb-data")
	v.SetDefault("block_size", 4096)
	v.SetDefault("buffer_count", 64)
	v.SetDefault("log_file", "plandb.log")
	v.SetDefault("lock_timeout", 10*time.Second)
	v.SetDefault("buffer_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("stats.table", "relstatistics")
	v.SetDefault("stats.buckets", 10)
	v.SetDefault("stats.seed", 0)
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the default configuration.
func Default() *Config {
	cfg, err := FromViper(New())
	if err != nil {
		// defaults always decode
		panic(err)
	}
	return cfg
}

// Load reads the YAML file at path (if non-empty) on top of the defaults.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, dberr.IO(err, "read config %s", path)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return dberr.Newf(dberr.ErrInvalidArgument, "config: data_dir must not be empty")
	}
	if c.BlockSize < 256 {
		return dberr.Newf(dberr.ErrInvalidArgument, "config: block_size %d is too small", c.BlockSize)
	}
	if c.BufferCount < 3 {
		return dberr.Newf(dberr.ErrInvalidArgument, "config: buffer_count must be at least 3, got %d", c.BufferCount)
	}
	if c.Stats.Buckets <= 0 {
		return dberr.Newf(dberr.ErrInvalidArgument, "config: stats.buckets must be positive, got %d", c.Stats.Buckets)
	}
	if c.Stats.Table == "" {
		return dberr.Newf(dberr.ErrInvalidArgument, "config: stats.table must not be empty")
	}
	return nil
}

// SlogLevel maps the configured log level name onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
