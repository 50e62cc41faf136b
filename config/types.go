package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port        int      `yaml:"port" validate:"gt=0,lte=65535"`
	CORSOrigins []string `yaml:"corsOrigins"`
	MaxUploadMB int      `yaml:"maxUploadMB" validate:"gte=0"`
}

// ImportConfig tunes background ingestion
type ImportConfig struct {
	ChunkRows     int `yaml:"chunkRows" validate:"gte=0"`
	TimeoutSec    int `yaml:"timeoutSec" validate:"gte=0"`
	MaxDownloadMB int `yaml:"maxDownloadMB" validate:"gte=0"`
	TrackerSize   int `yaml:"trackerSize" validate:"gte=0"`
}

// QueryConfig tunes the query engine's route detail cache
type QueryConfig struct {
	CacheSize   int `yaml:"cacheSize" validate:"gte=-1"`
	CacheTTLSec int `yaml:"cacheTTLSec" validate:"gte=0"`
}

// NATSConfig enables publishing import progress; empty URL disables it
type NATSConfig struct {
	URL           string `yaml:"url" validate:"omitempty,url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
	LogSubjects   bool   `yaml:"logSubjects"`
}

// MetricsConfig exposes Prometheus metrics on a separate listener when Addr
// is set; /metrics on the API server is always available.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// FeedSource is a feed imported at startup
type FeedSource struct {
	Name  string `yaml:"name" validate:"required"`
	URL   string `yaml:"url" validate:"required_without=Path,omitempty,url"`
	Path  string `yaml:"path" validate:"required_without=URL"`
	Notes string `yaml:"notes"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Import  ImportConfig  `yaml:"import"`
	Query   QueryConfig   `yaml:"query"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
	Feeds   []FeedSource  `yaml:"feeds" validate:"dive"`
}
