package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"SLOGGO_BIND_IP", "SLOGGO_BIND_PORT", "SLOGGO_DRIVER",
		"SLOGGO_BATCH_SIZE", "SLOGGO_BATCH_TIMEOUT", "SLOGGO_QUEUE_CAPACITY",
		"SLOGGO_SQLITE_DATABASE", "SLOGGO_SEARCH_URL", "SLOGGO_SEARCH_API_KEY",
		"SLOGGO_DEBUG",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BindIP != "0.0.0.0" {
		t.Errorf("bind_ip: got %q", cfg.BindIP)
	}
	if cfg.BindPort != 5140 {
		t.Errorf("bind_port: got %d", cfg.BindPort)
	}
	if cfg.Driver != DriverSQLite {
		t.Errorf("driver: got %q", cfg.Driver)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("batch_size: got %d", cfg.BatchSize)
	}
	if cfg.BatchTimeout != 5 {
		t.Errorf("batch_timeout: got %v", cfg.BatchTimeout)
	}
	if cfg.SQLiteDatabase != "syslog.sqlite3" {
		t.Errorf("sqlite.database: got %q", cfg.SQLiteDatabase)
	}
	if cfg.Debug {
		t.Errorf("debug: expected false by default")
	}
}

func TestLoad_SearchDriverRequiresURL(t *testing.T) {
	clearEnv(t)
	os.Setenv("SLOGGO_DRIVER", "search")
	defer os.Unsetenv("SLOGGO_DRIVER")

	_, err := Load()
	if err == nil {
		t.Fatal("expected ConfigError when driver=search with no search.url")
	}
}

func TestLoad_UnknownDriverRejected(t *testing.T) {
	clearEnv(t)
	os.Setenv("SLOGGO_DRIVER", "postgres")
	defer os.Unsetenv("SLOGGO_DRIVER")

	_, err := Load()
	if err == nil {
		t.Fatal("expected ConfigError for unknown driver")
	}
}

func TestLoad_QueueCapacityDefaultsToMultipleOfBatchSize(t *testing.T) {
	clearEnv(t)
	os.Setenv("SLOGGO_BATCH_SIZE", "50")
	defer os.Unsetenv("SLOGGO_BATCH_SIZE")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.QueueCapacity != 500 {
		t.Errorf("queue_capacity: got %d, want 500", cfg.QueueCapacity)
	}
}
