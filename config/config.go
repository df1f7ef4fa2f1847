// Package config loads the YAML file describing a generation run.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"miway.dev/gtfs/agency"
	"miway.dev/gtfs/storage"
)

const (
	DefaultFeed    = "input/gtfs.zip"
	DefaultOutput  = "."
	DefaultBackend = "sqlite"
)

type Config struct {
	// URL or local path of the GTFS archive.
	Feed   string `yaml:"feed" validate:"required"`
	Output string `yaml:"output" validate:"required"`
	Prefix string `yaml:"prefix"`

	// Useful service IDs. Absent means no filtering, while an empty
	// list excludes everything.
	ServiceIDs *[]string `yaml:"service_ids"`

	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" validate:"oneof=memory sqlite postgres"`
	DSN     string `yaml:"dsn" validate:"required_if=Backend postgres"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Feed:    DefaultFeed,
		Output:  DefaultOutput,
		Storage: StorageConfig{Backend: DefaultBackend},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads and validates the configuration at path. Fields missing
// from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// Services is nil unless service IDs were configured.
func (c *Config) Services() *agency.ServiceIDs {
	if c.ServiceIDs == nil {
		return nil
	}
	return agency.NewServiceIDs(*c.ServiceIDs...)
}

func (c *Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}

	if c.Log.Level != "" {
		level, err := zap.ParseAtomicLevel(c.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = level
	}

	return zc.Build()
}

// OpenStorage connects to the configured backend. SQLite databases are
// kept in the output directory.
func (c *Config) OpenStorage() (storage.Storage, error) {
	switch c.Storage.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: c.Output})
	case "postgres":
		return storage.NewPSQLStorage(c.Storage.DSN, false)
	}
	return nil, fmt.Errorf("unknown storage backend '%s'", c.Storage.Backend)
}
