// Package config resolves the daemon's configuration from the environment,
// in the teacher's GetSanitizedEnvString/GetSanitizedEnvInt64 idiom
// (sloggo's utils/vars.go), generalized into a single resolved record.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"syslogd/errs"
)

// Driver selects the storage backend.
type Driver string

const (
	DriverSQLite Driver = "sqlite"
	DriverSearch Driver = "search"
)

// Config is the resolved configuration record consumed by the supervisor.
// The status server's port (SLOGGO_STATUS_PORT) is not part of it; package
// server reads that variable itself.
type Config struct {
	BindIP   string
	BindPort int

	Driver Driver

	BatchSize     int
	BatchTimeout  float64 // seconds
	QueueCapacity int

	SQLiteDatabase string // partition filename template

	SearchURL    string
	SearchAPIKey string

	Debug bool
}

// Load reads SLOGGO_-prefixed environment variables (and an optional .env
// file, following Yupoer-logpulse's config.go precedent) and returns the
// resolved Config. Returns a ConfigError for values that fail validation.
func Load() (*Config, error) {
	// Absence of a .env file is not fatal: env vars or defaults still apply.
	_ = godotenv.Load()

	cfg := &Config{
		BindIP:         getString("SLOGGO_BIND_IP", "0.0.0.0"),
		BindPort:       getInt("SLOGGO_BIND_PORT", 5140),
		Driver:         Driver(getString("SLOGGO_DRIVER", string(DriverSQLite))),
		BatchSize:      getInt("SLOGGO_BATCH_SIZE", 100),
		BatchTimeout:   getFloat("SLOGGO_BATCH_TIMEOUT", 5),
		QueueCapacity:  getInt("SLOGGO_QUEUE_CAPACITY", 0),
		SQLiteDatabase: getString("SLOGGO_SQLITE_DATABASE", "syslog.sqlite3"),
		SearchURL:      os.Getenv("SLOGGO_SEARCH_URL"),
		SearchAPIKey:   os.Getenv("SLOGGO_SEARCH_API_KEY"),
		Debug:          getBool("SLOGGO_DEBUG", false),
	}

	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = cfg.BatchSize * 10
	}

	if cfg.Driver != DriverSQLite && cfg.Driver != DriverSearch {
		return nil, errs.NewConfigError("unknown driver: " + string(cfg.Driver))
	}
	if cfg.Driver == DriverSearch && cfg.SearchURL == "" {
		return nil, errs.NewConfigError("search.url is required when driver=search")
	}
	if cfg.BatchSize <= 0 {
		return nil, errs.NewConfigError("batch_size must be positive")
	}
	if cfg.BatchTimeout <= 0 {
		return nil, errs.NewConfigError("batch_timeout must be positive")
	}
	if cfg.BindPort <= 0 || cfg.BindPort > 65535 {
		return nil, errs.NewConfigError("bind_port out of range")
	}

	return cfg, nil
}

func getString(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return def
	}
	return f
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}
