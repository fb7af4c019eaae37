package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "DATABASE_URL", "USER_STORE", "OBJECT_STORE", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS", "GENERATION_TIMEOUT", "MAX_UPLOAD_MB"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.UserStore != "memory" {
		t.Fatalf("expected memory user store without DATABASE_URL, got %q", cfg.UserStore)
	}
	if cfg.ObjectStoreType != "none" {
		t.Fatalf("expected no object store, got %q", cfg.ObjectStoreType)
	}
	if cfg.GeminiModel != "gemini-flash-latest" {
		t.Fatalf("unexpected model %q", cfg.GeminiModel)
	}
	if cfg.GeminiTimeout != 120*time.Second {
		t.Fatalf("unexpected gemini timeout %s", cfg.GeminiTimeout)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")
	t.Setenv("PORT", "9090")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=gemini-test\nPORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg := Load()
	if cfg.GeminiModel != "gemini-test" {
		t.Fatalf("expected model from .env, got %q", cfg.GeminiModel)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected process env to win, got %q", cfg.Port)
	}
}

func TestNormalizeUserStore(t *testing.T) {
	cases := []struct {
		raw, db, want string
	}{
		{"", "", "memory"},
		{"", "postgres://x", "postgres"},
		{"redis", "postgres://x", "redis"},
		{"PG", "", "postgres"},
		{"memory", "postgres://x", "memory"},
	}
	for _, tc := range cases {
		if got := normalizeUserStore(tc.raw, tc.db); got != tc.want {
			t.Fatalf("normalizeUserStore(%q,%q)=%q want %q", tc.raw, tc.db, got, tc.want)
		}
	}
}
