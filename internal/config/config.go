package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Redis       RedisConfig
	Log         LogConfig
	CORS        CORSConfig
	Metrics     MetricsConfig
	Local       LocalBackendConfig
	Vendor      VendorConfig
	ObjectStore ObjectStoreConfig
	Poller      PollerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration for the resolution audit log
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel string
}

// CacheConfig selects the backing store for cached report URLs
type CacheConfig struct {
	Enabled bool
	Type    string // "memory" or "redis"
	TTL     time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// CORSConfig holds CORS settings for the HTTP surface
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// LocalBackendConfig points at the product's own backend (structured
// reports, presigning, file status)
type LocalBackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// VendorConfig points at the external radiology-network API. Auth is a
// long-lived shared credential, not the caller's session token.
type VendorConfig struct {
	BaseURL              string
	Auth                 string
	DefaultRadiologistID string
	Timeout              time.Duration
}

// ObjectStoreConfig names the URL shape a cached presigned URL must match
// before it is trusted
type ObjectStoreConfig struct {
	Host       string
	PathMarker string
}

// PollerConfig holds status polling settings
type PollerConfig struct {
	Interval time.Duration
}

// Load reads configuration from the environment (and .env if present)
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "report_resolver"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			LogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Type:    getEnv("CACHE_TYPE", "memory"),
			TTL:     getEnvDuration("CACHE_TTL", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvList("CORS_ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvList("CORS_ALLOWED_HEADERS", []string{"Authorization", "Content-Type"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
		Local: LocalBackendConfig{
			BaseURL: getEnv("LOCAL_API_BASE", "http://127.0.0.1:8000"),
			Timeout: getEnvDuration("LOCAL_API_TIMEOUT", 30*time.Second),
		},
		Vendor: VendorConfig{
			BaseURL:              getEnv("VENDOR_API_BASE", "https://api.5cnetwork.com"),
			Auth:                 getEnv("VENDOR_API_AUTH", ""),
			DefaultRadiologistID: getEnv("VENDOR_DEFAULT_RAD_ID", ""),
			Timeout:              getEnvDuration("VENDOR_API_TIMEOUT", 30*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Host:       getEnv("OBJECT_STORE_HOST", "objectstore.e2enetworks.net"),
			PathMarker: getEnv("OBJECT_STORE_PATH_MARKER", "/second-opinion/"),
		},
		Poller: PollerConfig{
			Interval: getEnvDuration("POLL_INTERVAL", 30*time.Second),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Local.BaseURL == "" {
		return fmt.Errorf("LOCAL_API_BASE is required")
	}
	if c.Vendor.BaseURL == "" {
		return fmt.Errorf("VENDOR_API_BASE is required")
	}
	if c.Cache.Type != "memory" && c.Cache.Type != "redis" {
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	if c.ObjectStore.Host == "" || c.ObjectStore.PathMarker == "" {
		return fmt.Errorf("object store host and path marker are required")
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
