/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Artifact storage backend selection.
type StorageBackend string

const (
	StorageFilesystem StorageBackend = "fs"
	StorageS3         StorageBackend = "s3"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	BaseURL     string // Public base URL used in artifact download links
	DBBackend   DatabaseBackend
	DBDSN       string
	CORSOrigins []string
	Timezone    string // IANA zone for calendar exports

	// Redis timetable cache
	CacheEnabled  bool
	CacheTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Cross-instance event fan-out; empty disables the bridge
	NATSURL     string
	NATSSubject string

	// Artifact storage
	StorageBackend StorageBackend
	ArtifactRoot   string

	// S3 Object Storage configuration
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Region          string
	S3Bucket          string
	S3Endpoint        string // For S3-compatible services (MinIO, Spaces, etc.)
	S3PublicBaseURL   string // Optional CDN/CloudFront URL
	S3UsePathStyle    bool   // Required for MinIO

	// Headless browser rendering
	BrowserBin      string // Empty lets rod download or locate a browser
	RenderTimeout   time.Duration
	RenderRateLimit int // Render requests per minute per client

	// Telemetry
	MetricsEnabled    bool
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"EVENTDESK_ENV"}, "development"),
		HTTPBind:    getEnvAny([]string{"EVENTDESK_HTTP_BIND"}, "0.0.0.0"),
		HTTPPort:    getEnvIntAny([]string{"EVENTDESK_HTTP_PORT", "PORT"}, 8080),
		BaseURL:     getEnvAny([]string{"EVENTDESK_BASE_URL"}, ""),
		DBBackend:   DatabaseBackend(getEnvAny([]string{"EVENTDESK_DB_BACKEND"}, string(DatabaseSQLite))),
		DBDSN:       getEnvAny([]string{"EVENTDESK_DB_DSN", "DATABASE_URL"}, "eventdesk.db"),
		CORSOrigins: splitList(getEnvAny([]string{"EVENTDESK_CORS_ORIGINS"}, "")),
		Timezone:    getEnvAny([]string{"EVENTDESK_TIMEZONE", "TZ"}, "Asia/Tokyo"),

		CacheEnabled:  getEnvBoolAny([]string{"EVENTDESK_CACHE_ENABLED"}, false),
		CacheTTL:      time.Duration(getEnvIntAny([]string{"EVENTDESK_CACHE_TTL_SECONDS"}, 300)) * time.Second,
		RedisAddr:     getEnvAny([]string{"EVENTDESK_REDIS_ADDR", "REDIS_ADDR"}, "localhost:6379"),
		RedisPassword: getEnvAny([]string{"EVENTDESK_REDIS_PASSWORD", "REDIS_PASSWORD"}, ""),
		RedisDB:       getEnvIntAny([]string{"EVENTDESK_REDIS_DB", "REDIS_DB"}, 0),

		NATSURL:     getEnvAny([]string{"EVENTDESK_NATS_URL", "NATS_URL"}, ""),
		NATSSubject: getEnvAny([]string{"EVENTDESK_NATS_SUBJECT"}, "eventdesk.events"),

		StorageBackend: StorageBackend(strings.ToLower(getEnvAny([]string{"EVENTDESK_STORAGE_BACKEND"}, string(StorageFilesystem)))),
		ArtifactRoot:   getEnvAny([]string{"EVENTDESK_ARTIFACT_ROOT"}, "./artifacts"),

		// S3 Object Storage configuration
		S3AccessKeyID:     getEnvAny([]string{"EVENTDESK_S3_ACCESS_KEY_ID", "AWS_ACCESS_KEY_ID"}, ""),
		S3SecretAccessKey: getEnvAny([]string{"EVENTDESK_S3_SECRET_ACCESS_KEY", "AWS_SECRET_ACCESS_KEY"}, ""),
		S3Region:          getEnvAny([]string{"EVENTDESK_S3_REGION", "AWS_REGION"}, "us-east-1"),
		S3Bucket:          getEnvAny([]string{"EVENTDESK_S3_BUCKET", "S3_BUCKET"}, ""),
		S3Endpoint:        getEnvAny([]string{"EVENTDESK_S3_ENDPOINT", "S3_ENDPOINT"}, ""),
		S3PublicBaseURL:   getEnvAny([]string{"EVENTDESK_S3_PUBLIC_BASE_URL", "S3_PUBLIC_BASE_URL"}, ""),
		S3UsePathStyle:    getEnvBoolAny([]string{"EVENTDESK_S3_USE_PATH_STYLE", "S3_USE_PATH_STYLE"}, false),

		BrowserBin:      getEnvAny([]string{"EVENTDESK_BROWSER_BIN", "ROD_BROWSER_BIN"}, ""),
		RenderTimeout:   time.Duration(getEnvIntAny([]string{"EVENTDESK_RENDER_TIMEOUT_SECONDS"}, 30)) * time.Second,
		RenderRateLimit: getEnvIntAny([]string{"EVENTDESK_RENDER_RATE_LIMIT"}, 10),

		MetricsEnabled:    getEnvBoolAny([]string{"EVENTDESK_METRICS_ENABLED"}, true),
		TracingEnabled:    getEnvBoolAny([]string{"EVENTDESK_TRACING_ENABLED"}, false),
		OTLPEndpoint:      getEnvAny([]string{"EVENTDESK_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"}, "localhost:4317"),
		TracingSampleRate: getEnvFloatAny([]string{"EVENTDESK_TRACING_SAMPLE_RATE"}, 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("EVENTDESK_DB_DSN or DATABASE_URL must be provided")
	}

	switch cfg.StorageBackend {
	case StorageFilesystem:
		if cfg.ArtifactRoot == "" {
			return nil, fmt.Errorf("EVENTDESK_ARTIFACT_ROOT must be provided for the fs storage backend")
		}
	case StorageS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("EVENTDESK_S3_BUCKET or S3_BUCKET must be provided for the s3 storage backend")
		}
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("invalid EVENTDESK_TIMEZONE %q: %w", cfg.Timezone, err)
	}

	if cfg.TracingSampleRate < 0 || cfg.TracingSampleRate > 1 {
		return nil, fmt.Errorf("EVENTDESK_TRACING_SAMPLE_RATE must be between 0 and 1, got %v", cfg.TracingSampleRate)
	}
	if cfg.RenderRateLimit <= 0 {
		cfg.RenderRateLimit = 10
	}

	return cfg, nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTPBind, c.HTTPPort)
}

// Location returns the configured export time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the process runs with production defaults.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Environment, "production")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvIntAny returns the first set integer environment variable value from keys, or def.
func getEnvIntAny(keys []string, def int) int {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				return parsed
			}
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}

// getEnvFloatAny returns the first set float environment variable value from keys, or def.
func getEnvFloatAny(keys []string, def float64) float64 {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				return parsed
			}
		}
	}
	return def
}
