package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via STORE_BACKEND.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// defaultClients seeds the tenant list when CLIENTS is unset and the client
// table is not used.
var defaultClients = []string{"sheetz1", "sheetz", "ta", "qa2", "dev1", "rutters", "open", "parkland"}

// DatabaseConfig PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN builds the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config signage-monitor service configuration, loaded from environment
// variables with dev-friendly defaults.
type Config struct {
	HTTP struct {
		Addr string
	}
	Upstream struct {
		StatusURL      string // status feed, client passed as ?client= query param
		DetailsURL     string // details feed template, {client} substituted
		TimeoutSeconds int
	}
	Thresholds struct {
		WarningMinutes int
		ErrorMinutes   int
	}
	Fetch struct {
		StatusIntervalSeconds  int
		DetailsIntervalSeconds int
	}
	Cache struct {
		TTLSeconds          int
		LastFetchTTLSeconds int
	}
	Store struct {
		Backend string
	}
	Clients struct {
		Names  []string
		FromDB bool
	}
	Page struct {
		DefaultSize int
	}
	Database DatabaseConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Upstream.StatusURL = getEnv("DEVICE_API_URL", "")
	cfg.Upstream.DetailsURL = getEnv("DEVICE_DETAILS_API_URL", "")
	cfg.Upstream.TimeoutSeconds = parseInt(getEnv("DEVICE_API_TIMEOUT_SECONDS", "10"), 10)

	cfg.Thresholds.WarningMinutes = parseInt(getEnv("WARNING_THRESHOLD_MINUTES", "10"), 10)
	cfg.Thresholds.ErrorMinutes = parseInt(getEnv("ERROR_THRESHOLD_MINUTES", "30"), 30)

	cfg.Fetch.StatusIntervalSeconds = parseInt(getEnv("STATUS_FETCH_INTERVAL_SECONDS", "60"), 60)
	cfg.Fetch.DetailsIntervalSeconds = parseInt(getEnv("DETAILS_FETCH_INTERVAL_SECONDS", "600"), 600)

	cfg.Cache.TTLSeconds = parseInt(getEnv("CACHE_TTL_SECONDS", "3600"), 3600)
	cfg.Cache.LastFetchTTLSeconds = parseInt(getEnv("LAST_FETCH_TTL_SECONDS", "600"), 600)

	cfg.Store.Backend = getEnv("STORE_BACKEND", BackendRedis)

	if names := getEnv("CLIENTS", ""); names != "" {
		for _, n := range strings.Split(names, ",") {
			if n = strings.TrimSpace(n); n != "" {
				cfg.Clients.Names = append(cfg.Clients.Names, n)
			}
		}
	} else {
		cfg.Clients.Names = append(cfg.Clients.Names, defaultClients...)
	}
	cfg.Clients.FromDB = getEnv("CLIENTS_FROM_DB", "false") == "true"

	cfg.Page.DefaultSize = parseInt(getEnv("DEVICE_DEFAULT_PAGINATION", "50"), 50)

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "signage")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate rejects configurations that would break invariants downstream.
// An error threshold below the warning threshold would let a device be
// "error" without being "warning", so it refuses startup.
func (c *Config) validate() error {
	if c.Thresholds.WarningMinutes <= 0 || c.Thresholds.ErrorMinutes <= 0 {
		return fmt.Errorf("thresholds must be positive: warning=%dm error=%dm",
			c.Thresholds.WarningMinutes, c.Thresholds.ErrorMinutes)
	}
	if c.Thresholds.ErrorMinutes < c.Thresholds.WarningMinutes {
		return fmt.Errorf("ERROR_THRESHOLD_MINUTES (%d) must be >= WARNING_THRESHOLD_MINUTES (%d)",
			c.Thresholds.ErrorMinutes, c.Thresholds.WarningMinutes)
	}
	if c.Store.Backend != BackendRedis && c.Store.Backend != BackendPostgres {
		return fmt.Errorf("unsupported STORE_BACKEND: %s", c.Store.Backend)
	}
	if c.Page.DefaultSize <= 0 {
		return fmt.Errorf("DEVICE_DEFAULT_PAGINATION must be positive, got %d", c.Page.DefaultSize)
	}
	return nil
}

func (c *Config) WarningThreshold() time.Duration {
	return time.Duration(c.Thresholds.WarningMinutes) * time.Minute
}

func (c *Config) ErrorThreshold() time.Duration {
	return time.Duration(c.Thresholds.ErrorMinutes) * time.Minute
}

func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

func (c *Config) LastFetchTTL() time.Duration {
	return time.Duration(c.Cache.LastFetchTTLSeconds) * time.Second
}

func (c *Config) StatusInterval() time.Duration {
	return time.Duration(c.Fetch.StatusIntervalSeconds) * time.Second
}

func (c *Config) DetailsInterval() time.Duration {
	return time.Duration(c.Fetch.DetailsIntervalSeconds) * time.Second
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
