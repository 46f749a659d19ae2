package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Thresholds.WarningMinutes != 10 {
		t.Errorf("Expected WARNING_THRESHOLD_MINUTES default 10, got %d", cfg.Thresholds.WarningMinutes)
	}
	if cfg.Thresholds.ErrorMinutes != 30 {
		t.Errorf("Expected ERROR_THRESHOLD_MINUTES default 30, got %d", cfg.Thresholds.ErrorMinutes)
	}
	if cfg.Store.Backend != BackendRedis {
		t.Errorf("Expected STORE_BACKEND default 'redis', got '%s'", cfg.Store.Backend)
	}
	if cfg.Page.DefaultSize != 50 {
		t.Errorf("Expected DEVICE_DEFAULT_PAGINATION default 50, got %d", cfg.Page.DefaultSize)
	}
	if cfg.Cache.TTLSeconds != 3600 {
		t.Errorf("Expected CACHE_TTL_SECONDS default 3600, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Cache.LastFetchTTLSeconds != 600 {
		t.Errorf("Expected LAST_FETCH_TTL_SECONDS default 600, got %d", cfg.Cache.LastFetchTTLSeconds)
	}
	if cfg.Fetch.StatusIntervalSeconds != 60 {
		t.Errorf("Expected STATUS_FETCH_INTERVAL_SECONDS default 60, got %d", cfg.Fetch.StatusIntervalSeconds)
	}
	if cfg.Fetch.DetailsIntervalSeconds != 600 {
		t.Errorf("Expected DETAILS_FETCH_INTERVAL_SECONDS default 600, got %d", cfg.Fetch.DetailsIntervalSeconds)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}
	if len(cfg.Clients.Names) == 0 {
		t.Error("Expected a non-empty default client list")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DEVICE_API_URL", "http://api.example.com/devices")
	os.Setenv("DEVICE_DETAILS_API_URL", "http://api.example.com/{client}/details")
	os.Setenv("WARNING_THRESHOLD_MINUTES", "5")
	os.Setenv("ERROR_THRESHOLD_MINUTES", "15")
	os.Setenv("STORE_BACKEND", "postgres")
	os.Setenv("CLIENTS", "acme, globex ,initech")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Upstream.StatusURL != "http://api.example.com/devices" {
		t.Errorf("Unexpected status URL: %s", cfg.Upstream.StatusURL)
	}
	if cfg.Thresholds.WarningMinutes != 5 || cfg.Thresholds.ErrorMinutes != 15 {
		t.Errorf("Unexpected thresholds: warning=%d error=%d",
			cfg.Thresholds.WarningMinutes, cfg.Thresholds.ErrorMinutes)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("Expected backend 'postgres', got '%s'", cfg.Store.Backend)
	}
	if len(cfg.Clients.Names) != 3 || cfg.Clients.Names[1] != "globex" {
		t.Errorf("Unexpected client list: %v", cfg.Clients.Names)
	}
}

func TestLoad_RejectsInvertedThresholds(t *testing.T) {
	os.Clearenv()
	os.Setenv("WARNING_THRESHOLD_MINUTES", "30")
	os.Setenv("ERROR_THRESHOLD_MINUTES", "10")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Expected error when error threshold < warning threshold")
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	os.Clearenv()
	os.Setenv("STORE_BACKEND", "cassandra")
	defer os.Clearenv()

	if _, err := Load(); err == nil {
		t.Error("Expected error for unsupported STORE_BACKEND")
	}
}
