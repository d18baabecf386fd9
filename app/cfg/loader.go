package cfg

import (
	"cmp"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/quickcheck.db" description:"Path to the SQLite database file"`

	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://qc.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the write API (write API is disabled when empty)"`

	// Upstream sync
	UpstreamURL     string `long:"upstream-url" env:"UPSTREAM_URL" default:"https://hacker-news.firebaseio.com/v0" description:"Base URL of the upstream item API"`
	UpstreamFixture string `long:"upstream-fixture" env:"UPSTREAM_FIXTURE" description:"Serve upstream items from a YAML fixture file instead of the network"`
	UpstreamTimeout int    `long:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"30" description:"Upstream request timeout in seconds"`
	BootstrapWindow int    `long:"bootstrap-window" env:"BOOTSTRAP_WINDOW" default:"100" description:"Number of most recent upstream ids synced into an empty store"`
	SyncInterval    int    `long:"sync-interval" env:"SYNC_INTERVAL" default:"300" description:"Sync interval in seconds"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	ExtractContent  bool   `long:"extract-content" env:"EXTRACT_CONTENT" description:"Extract readable article content for synced stories"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"quickcheck/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment. It returns nil
// without an error when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		Port:            raw.Port,
		BaseUrl:         raw.BaseUrl,
		APIAccessKey:    raw.APIAccessKey,
		UpstreamURL:     raw.UpstreamURL,
		UpstreamFixture: raw.UpstreamFixture,
		UpstreamTimeout: raw.UpstreamTimeout,
		BootstrapWindow: raw.BootstrapWindow,
		SyncInterval:    raw.SyncInterval,
		WorkerCount:     raw.WorkerCount,
		ExtractContent:  raw.ExtractContent,
		UserAgent:       raw.UserAgent,
		Timezone:        raw.Timezone,
		LogFile:         raw.LogFile,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %d", c.UpstreamTimeout)
	}
	if c.BootstrapWindow <= 0 {
		return fmt.Errorf("bootstrap window must be positive, got %d", c.BootstrapWindow)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %d", c.SyncInterval)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
