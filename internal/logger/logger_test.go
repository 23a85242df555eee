package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ia-soumission.log")

	log, err := New(true, false, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Debug("hidden")
	log.Info("project created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, `"step":"project created"`) {
		t.Fatalf("expected info entry in file, got %q", content)
	}
	if strings.Contains(content, "hidden") {
		t.Fatalf("debug entry must be filtered at info level")
	}
}

func TestNewWithoutFile(t *testing.T) {
	log, err := New(false, true, "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
}
