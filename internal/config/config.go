package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every environment variable read by Load carries.
// PROJECTS_DATABASE_HOST maps to database.host.
const EnvPrefix = "PROJECTS_"

const (
	DefaultDBPath         = "./projects.db"
	DefaultLogFilePath    = "projects.log"
	DefaultMaxSizeMB      = 50
	DefaultMaxBackups     = 5
	DefaultMaxAgeDays     = 30
	DefaultCompress       = true
	DefaultConnectTimeout = 10 * time.Second
)

// Config is the root configuration for the projects CLI.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// DatabaseConfig describes how to reach the relational backend.
// Path is only used by sqlite; the network fields are required otherwise.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver" validate:"required,oneof=sqlite mysql postgres"`
	Path           string        `koanf:"path" validate:"required_if=Driver sqlite"`
	Host           string        `koanf:"host" validate:"required_unless=Driver sqlite"`
	Port           int           `koanf:"port" validate:"omitempty,min=1,max=65535"`
	Schema         string        `koanf:"schema" validate:"required_unless=Driver sqlite"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	SSLMode        string        `koanf:"ssl_mode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// LogConfig holds log level and rotating file settings.
type LogConfig struct {
	Level      string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
	Compress   bool   `koanf:"compress"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:         "sqlite",
			Path:           DefaultDBPath,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAgeDays: DefaultMaxAgeDays,
			Compress:   DefaultCompress,
		},
	}
}

// DefaultPort returns the conventional port for a network driver.
func DefaultPort(driver string) int {
	switch driver {
	case "mysql":
		return 3306
	case "postgres":
		return 5432
	default:
		return 0
	}
}

// Load reads envFile (if present) into the process environment, then maps
// PROJECTS_* variables over the defaults. Callers apply flag overrides and
// then call Validate.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	k := koanf.New(".")
	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and fills in the default port for
// network drivers.
func (c *Config) Validate() error {
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Port == 0 {
		c.Database.Port = DefaultPort(c.Database.Driver)
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Database.Driver == "sqlite" && inMemory(c.Database.Path) {
		return fmt.Errorf("invalid config: %w", ErrInMemoryDatabase)
	}
	return nil
}

// ErrInMemoryDatabase rejects SQLite paths that would hand every connection
// its own empty database. Connections are not pooled between operations.
var ErrInMemoryDatabase = errors.New("in-memory sqlite databases are not supported, use a file path")

func inMemory(path string) bool {
	p := strings.ToLower(strings.TrimSpace(path))
	return p == ":memory:" || strings.HasPrefix(p, "file::memory:") || strings.Contains(p, "mode=memory")
}

// envKey turns PROJECTS_DATABASE_SSL_MODE into database.ssl_mode: the first
// underscore separates the section, the rest belong to the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}
