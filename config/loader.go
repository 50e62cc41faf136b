package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied to zero values after loading.
const (
	DefaultPort          = 8080
	DefaultMaxUploadMB   = 256
	DefaultChunkRows     = 10000
	DefaultTimeoutSec    = 300
	DefaultMaxDownloadMB = 512
	DefaultCacheSize     = 512

	// CacheDisabled as query.cacheSize turns the route detail cache off; 0
	// means unset and takes DefaultCacheSize.
	CacheDisabled = -1
)

// DefaultPath is read when no explicit path is given.
const DefaultPath = "config.yml"

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads .env, then the YAML file at path, applies environment
// overrides and validates the result into Config. An empty path reads
// DefaultPath if it exists and falls back to defaults otherwise.
func LoadAppConfig(path string) error {
	// .env is optional
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		return err
	}

	cfg, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	Config = cfg
	return nil
}

// Parse decodes YAML, applies environment overrides and defaults, and
// validates. Empty data yields the defaults.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = DefaultMaxUploadMB
	}
	if cfg.Import.ChunkRows == 0 {
		cfg.Import.ChunkRows = DefaultChunkRows
	}
	if cfg.Import.TimeoutSec == 0 {
		cfg.Import.TimeoutSec = DefaultTimeoutSec
	}
	if cfg.Import.MaxDownloadMB == 0 {
		cfg.Import.MaxDownloadMB = DefaultMaxDownloadMB
	}
	if cfg.Query.CacheSize == 0 {
		cfg.Query.CacheSize = DefaultCacheSize
	}
}

// applyEnv lets deployment environments override selected keys.
func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("NATS_SUBJECT_PREFIX"); v != "" {
		cfg.NATS.SubjectPrefix = v
	}
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.NATS.LogSubjects = true
		default:
			cfg.NATS.LogSubjects = false
		}
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("QUERY_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < CacheDisabled {
			return fmt.Errorf("invalid QUERY_CACHE_SIZE: %q", v)
		}
		cfg.Query.CacheSize = n
	}
	if v := os.Getenv("IMPORT_CHUNK_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid IMPORT_CHUNK_ROWS: %q", v)
		}
		cfg.Import.ChunkRows = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FindFeed returns the startup feed called name.
func FindFeed(name string) (FeedSource, bool) {
	for _, f := range Config.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return FeedSource{}, false
}
