package config

import (
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.API.BaseURL != "https://api.lenshaus.test/api/v1" {
		t.Fatalf("unexpected API base URL: %q", cfg.API.BaseURL)
	}

	if got := cfg.API.RequestTimeout; got != 15*time.Second {
		t.Fatalf("expected request timeout 15s, got %v", got)
	}

	if cfg.Storage.Driver != StorageDriverSQLite {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Storage.Driver)
	}

	if got := cfg.Rx.MaxFileBytes; got != 2621440 {
		t.Fatalf("expected 2.5MB prescription cap, got %d", got)
	}

	if got := cfg.Notify.DisplayDuration; got != 4*time.Second {
		t.Fatalf("expected 4s notice duration, got %v", got)
	}

	if got := cfg.Catalog.CacheTTL; got != 5*time.Minute {
		t.Fatalf("expected 5m catalog cache, got %v", got)
	}

	if cfg.Cart.Currency != "USD" {
		t.Fatalf("expected USD default currency, got %q", cfg.Cart.Currency)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv(EnvAppEnv, "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing API base URL to return an error")
	}
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LENSHAUS_STORAGE_DRIVER", "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to return an error")
	}
}

func TestLoad_RedisDriverRequiresURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LENSHAUS_STORAGE_DRIVER", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without URL to return an error")
	}

	t.Setenv("LENSHAUS_STORAGE_REDIS_URL", "redis://localhost:6379/1")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Storage.RedisURL != "redis://localhost:6379/1" {
		t.Fatalf("unexpected redis URL %q", cfg.Storage.RedisURL)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvAPIBaseURL, "https://api.lenshaus.test/api/v1")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "Development"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "PRODUCTION"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
