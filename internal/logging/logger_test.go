package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownLevelAndFormat(t *testing.T) {
	if _, err := New("loud", "json", ""); err == nil {
		t.Fatal("expected level error")
	}
	if _, err := New("info", "xml", ""); err == nil {
		t.Fatal("expected format error")
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streakd.log")
	logger, err := New("debug", "json", path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("habit completed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"habit completed"`) {
		t.Fatalf("unexpected log output: %s", data)
	}
}

func TestForTUIWithoutFileIsNop(t *testing.T) {
	logger, err := ForTUI("info", "console", "")
	if err != nil {
		t.Fatalf("for tui: %v", err)
	}
	if logger.Core().Enabled(-1) {
		t.Fatal("nop logger should not enable any level")
	}
}
