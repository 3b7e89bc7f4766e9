package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scratch")
	t.Setenv("UPLOAD_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 5001 {
		t.Errorf("Port = %d, want 5001", cfg.Server.Port)
	}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Storage.SessionTTL != 5*time.Minute {
		t.Errorf("SessionTTL = %s", cfg.Storage.SessionTTL)
	}
	if cfg.Storage.DebugOutput != "" {
		t.Errorf("DebugOutput should be disabled by default, got %q", cfg.Storage.DebugOutput)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Errorf("upload dir was not created: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://example.com,")
	t.Setenv("MAX_UPLOAD_SIZE", "1024")
	t.Setenv("SESSION_TTL", "2m")
	t.Setenv("DEBUG_OUTPUT", "merged.pdf")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	want := []string{"http://localhost:3000", "https://example.com"}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.Server.AllowedOrigins, want)
	}
	if cfg.Storage.MaxUploadSize != 1024 {
		t.Errorf("MaxUploadSize = %d", cfg.Storage.MaxUploadSize)
	}
	if cfg.Storage.SessionTTL != 2*time.Minute {
		t.Errorf("SessionTTL = %s", cfg.Storage.SessionTTL)
	}
	if cfg.Storage.DebugOutput != "merged.pdf" {
		t.Errorf("DebugOutput = %q", cfg.Storage.DebugOutput)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"port out of range", "PORT", "70000"},
		{"zero upload size", "MAX_UPLOAD_SIZE", "0"},
		{"negative ttl", "SESSION_TTL", "-1s"},
		// Default READ_TIMEOUT + WRITE_TIMEOUT is 90s.
		{"ttl shorter than a request", "SESSION_TTL", "30s"},
		{"ttl equal to a request", "SESSION_TTL", "90s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("UPLOAD_DIR", t.TempDir())
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
