package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gemini.key")
	if err := os.WriteFile(path, []byte("  file-key\n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "env-key")

	secret, err := Load(Source{Name: "gemini api key", Value: "inline", File: path, Env: []string{"GEMINI_API_KEY"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "file-key" {
		t.Fatalf("expected file secret, got %q", secret)
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.key")
	if err := os.WriteFile(path, []byte("\n"), 0o600); err != nil {
		t.Fatalf("writing key file: %v", err)
	}

	_, err := Load(Source{Name: "gemini api key", File: path, Value: "inline"})
	if err == nil || !strings.Contains(err.Error(), "is empty") {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Source{File: filepath.Join(t.TempDir(), "absent")})
	if err == nil || !strings.Contains(err.Error(), "reading secret") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadInlineBeforeEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	secret, err := Load(Source{Value: " inline ", Env: []string{"GEMINI_API_KEY"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "inline" {
		t.Fatalf("expected inline secret, got %q", secret)
	}
}

func TestLoadEnvOrder(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "fallback-key")

	secret, err := Load(Source{Env: []string{"GEMINI_API_KEY", "API_KEY"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if secret != "fallback-key" {
		t.Fatalf("expected fallback env secret, got %q", secret)
	}
}

func TestLoadNotConfigured(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	_, err := Load(Source{Name: "gemini api key", Env: []string{"GEMINI_API_KEY", "API_KEY"}})
	if err == nil || !strings.Contains(err.Error(), "checked GEMINI_API_KEY, API_KEY") {
		t.Fatalf("expected not configured error, got %v", err)
	}

	if _, err := Load(Source{}); err == nil || err.Error() != "secret is not configured" {
		t.Fatalf("unexpected error: %v", err)
	}
}
