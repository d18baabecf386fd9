package cfg

import (
	"os"
	"testing"
	"time"
)

// unsetEnv clears variables for the duration of the test; go-flags treats
// a set but empty variable as a value.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgsDefaults(t *testing.T) {
	unsetEnv(t, "DB_PATH", "PORT", "UPSTREAM_URL", "UPSTREAM_TIMEOUT", "BOOTSTRAP_WINDOW", "SYNC_INTERVAL", "WORKER_COUNT", "API_ACCESS_KEY", "EXTRACT_CONTENT", "DEBUG")
	t.Setenv("TZ", "UTC")

	cfg, err := LoadArgs(nil)
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if cfg.DBPath != "./data/quickcheck.db" {
		t.Errorf("Expected default db path, got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.UpstreamURL != "https://hacker-news.firebaseio.com/v0" {
		t.Errorf("Expected default upstream URL, got '%s'", cfg.UpstreamURL)
	}
	if cfg.BootstrapWindow != 100 {
		t.Errorf("Expected bootstrap window 100, got %d", cfg.BootstrapWindow)
	}
	if cfg.SyncIntervalDuration() != 5*time.Minute {
		t.Errorf("Expected sync interval 5m, got %s", cfg.SyncIntervalDuration())
	}
	if cfg.UpstreamTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected upstream timeout 30s, got %s", cfg.UpstreamTimeoutDuration())
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("Expected worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.APIAccessKey != "" {
		t.Errorf("Expected empty API key, got '%s'", cfg.APIAccessKey)
	}
	if cfg.ExtractContent || cfg.Debug {
		t.Error("Expected extract content and debug to be disabled")
	}

	if Get() != cfg {
		t.Error("Get should return the loaded configuration")
	}
}

func TestLoadArgsFlagsAndEnv(t *testing.T) {
	unsetEnv(t, "UPSTREAM_TIMEOUT", "BOOTSTRAP_WINDOW", "WORKER_COUNT")
	t.Setenv("API_ACCESS_KEY", "secret")
	t.Setenv("SYNC_INTERVAL", "60")
	t.Setenv("TZ", "UTC")

	cfg, err := LoadArgs([]string{"--db-path", "/tmp/qc.db", "--port", "9090", "--upstream-fixture", "items.yaml", "--extract-content", "--debug"})
	if err != nil {
		t.Fatalf("LoadArgs failed: %v", err)
	}

	if cfg.DBPath != "/tmp/qc.db" {
		t.Errorf("Expected db path '/tmp/qc.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected port '9090', got '%s'", cfg.Port)
	}
	if cfg.UpstreamFixture != "items.yaml" {
		t.Errorf("Expected fixture 'items.yaml', got '%s'", cfg.UpstreamFixture)
	}
	if cfg.APIAccessKey != "secret" {
		t.Errorf("Expected API key from environment, got '%s'", cfg.APIAccessKey)
	}
	if cfg.SyncInterval != 60 {
		t.Errorf("Expected sync interval 60, got %d", cfg.SyncInterval)
	}
	if !cfg.ExtractContent || !cfg.Debug {
		t.Error("Expected extract content and debug to be enabled")
	}
}

func TestLoadArgsInvalid(t *testing.T) {
	unsetEnv(t, "UPSTREAM_TIMEOUT", "BOOTSTRAP_WINDOW", "SYNC_INTERVAL", "WORKER_COUNT")
	t.Setenv("TZ", "UTC")

	tests := [][]string{
		{"--worker-count", "0"},
		{"--bootstrap-window", "-5"},
		{"--sync-interval", "abc"},
		{"--no-such-flag"},
	}

	for _, args := range tests {
		if _, err := LoadArgs(args); err == nil {
			t.Errorf("LoadArgs(%v) expected error", args)
		}
	}
}
