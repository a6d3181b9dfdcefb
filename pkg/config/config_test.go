package config

import (
	"os"
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
	if cfg.API.BaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected api base url %q", cfg.API.BaseURL)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected default retry attempts 3, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.BaseDelay != time.Second {
		t.Fatalf("expected default base delay 1s, got %v", cfg.Retry.BaseDelay)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Cart.WriteBuffer != 64 {
		t.Fatalf("expected default write buffer 64, got %d", cfg.Cart.WriteBuffer)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsNonHTTPBaseURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPIBaseURL, "ftp://example.com")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http base url to be rejected")
	}
}

func TestLoad_StorageDriverRequirements(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{name: "memory", env: map[string]string{EnvStorageDriver: "memory"}},
		{name: "unknown driver", env: map[string]string{EnvStorageDriver: "etcd"}, wantErr: true},
		{name: "redis without address", env: map[string]string{EnvStorageDriver: "redis"}, wantErr: true},
		{name: "redis with url", env: map[string]string{EnvStorageDriver: "redis", EnvRedisURL: "redis://localhost:6379/0"}},
		{name: "postgres without dsn", env: map[string]string{EnvStorageDriver: "postgres"}, wantErr: true},
		{name: "postgres with dsn", env: map[string]string{EnvStorageDriver: "postgres", EnvDBDSN: "postgres://u:p@localhost:5432/sf"}},
		{name: "sqlite blank path", env: map[string]string{EnvStorageDriver: "sqlite", EnvSQLitePath: " "}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setMinimalEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %s: %v", tt.name, err)
			}
		})
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvAPIBaseURL, "http://localhost:3000")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
