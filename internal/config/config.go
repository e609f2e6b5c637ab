// Package config loads configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "HUBMIRROR_"

// ErrMissingCredentials is returned by RequireCredentials.
var ErrMissingCredentials = errors.New("HUBMIRROR_CLIENT_ID and HUBMIRROR_CLIENT_SECRET are required")

// Config holds all hubmirror configuration.
type Config struct {
	// Remote API
	ClientID     string
	ClientSecret string
	BaseURL      string
	Region       string
	UserID       string
	Timeout      time.Duration
	TokenFile    string

	// Builds
	FetchConcurrency int
	RetryAttempts    int
	IncludeSpecial   bool

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (empty disables the endpoint)
	MetricsAddr string

	// Snapshot storage backend ("local" or "s3", default: "local")
	SnapshotBackend string
	SnapshotDir     string

	// S3 storage
	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3UseSSL    bool

	// Catalog ("" disables, "postgres" or "sqlite")
	CatalogDriver string
	DatabaseURL   string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ClientID:         envOr("CLIENT_ID", ""),
		ClientSecret:     envOr("CLIENT_SECRET", ""),
		BaseURL:          envOr("BASE_URL", "https://developer.api.autodesk.com"),
		Region:           envOr("REGION", ""),
		UserID:           envOr("USER_ID", ""),
		Timeout:          envDuration("TIMEOUT", 100*time.Second),
		TokenFile:        envOr("TOKEN_FILE", defaultTokenFile()),
		FetchConcurrency: envInt("FETCH_CONCURRENCY", 1),
		RetryAttempts:    envInt("RETRY_ATTEMPTS", 4),
		IncludeSpecial:   envBool("INCLUDE_SPECIAL", false),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFormat:        envOr("LOG_FORMAT", "console"),
		MetricsAddr:      envOr("METRICS_ADDR", ""),
		SnapshotBackend:  envOr("SNAPSHOT_BACKEND", "local"),
		SnapshotDir:      envOr("SNAPSHOT_DIR", "snapshots"),
		S3Endpoint:       envOr("S3_ENDPOINT", ""),
		S3Bucket:         envOr("S3_BUCKET", "hubmirror"),
		S3AccessKey:      envOr("S3_ACCESS_KEY", ""),
		S3SecretKey:      envOr("S3_SECRET_KEY", ""),
		S3Region:         envOr("S3_REGION", "us-east-1"),
		S3UseSSL:         envBool("S3_USE_SSL", true),
		CatalogDriver:    envOr("CATALOG_DRIVER", ""),
		DatabaseURL:      envOr("DATABASE_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("%sFETCH_CONCURRENCY must be at least 1, got %d", envPrefix, c.FetchConcurrency)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("%sRETRY_ATTEMPTS must be at least 1, got %d", envPrefix, c.RetryAttempts)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%sTIMEOUT must be positive", envPrefix)
	}
	switch c.SnapshotBackend {
	case "local", "s3":
	default:
		return fmt.Errorf("%sSNAPSHOT_BACKEND must be local or s3, got %q", envPrefix, c.SnapshotBackend)
	}
	switch c.CatalogDriver {
	case "":
	case "postgres", "sqlite":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%sDATABASE_URL is required with catalog driver %s", envPrefix, c.CatalogDriver)
		}
	default:
		return fmt.Errorf("%sCATALOG_DRIVER must be postgres or sqlite, got %q", envPrefix, c.CatalogDriver)
	}
	return nil
}

// RequireCredentials fails unless the application credentials are set.
// Only commands that call the remote need them.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return ErrMissingCredentials
	}
	return nil
}

func defaultTokenFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hubmirror", "token.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

// envDuration accepts Go durations ("90s") or a plain number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
