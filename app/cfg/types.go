package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath string

	// HTTP server
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Upstream sync
	UpstreamURL     string
	UpstreamFixture string
	UpstreamTimeout int
	BootstrapWindow int
	SyncInterval    int
	WorkerCount     int
	ExtractContent  bool

	// Application metadata
	UserAgent string
	Timezone  string
	LogFile   string
	Debug     bool
	Version   string
}

func (c *Cfg) UpstreamTimeoutDuration() time.Duration {
	return time.Duration(c.UpstreamTimeout) * time.Second
}

func (c *Cfg) SyncIntervalDuration() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}
