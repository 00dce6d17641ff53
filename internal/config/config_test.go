package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.DatabasePath != "streakd.db" || cfg.SchedulerBuffer != 64 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReminderHour != 9 || cfg.ReminderType != "Soft" {
		t.Fatalf("unexpected reminder defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STREAKD_DB", "data/habits.db")
	t.Setenv("STREAKD_TIMEZONE", "UTC")
	t.Setenv("STREAKD_FIRST_WEEKDAY", "monday")
	t.Setenv("STREAKD_REMINDER_HOUR", "7")
	t.Setenv("STREAKD_SCHEDULER_BUFFER", "128")
	t.Setenv("STREAKD_DESKTOP_NOTIFICATIONS", "yes")
	t.Setenv("STREAKD_LOG_FORMAT", "json")
	t.Setenv("STREAKD_NAG_MINUTES", "-5")

	cfg := FromEnv(Default())
	if cfg.DatabasePath != "data/habits.db" || cfg.Timezone != "UTC" {
		t.Fatalf("unexpected storage overrides: %+v", cfg)
	}
	if cfg.ReminderHour != 7 || cfg.SchedulerBuffer != 128 || !cfg.DesktopNotifications {
		t.Fatalf("unexpected runtime overrides: %+v", cfg)
	}
	if cfg.NagMinutes != 30 {
		t.Fatalf("non-positive nag minutes should be ignored, got %d", cfg.NagMinutes)
	}
	if cfg.LogFormat != "json" {
		t.Fatalf("unexpected log format: %q", cfg.LogFormat)
	}
	if d, err := cfg.Weekday(); err != nil || d != time.Monday {
		t.Fatalf("expected monday, got %v %v", d, err)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streakd.yaml")
	body := "database_path: from-file.db\nreminder_hour: 21\nlisten_addr: \":9090\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STREAKD_REMINDER_HOUR", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabasePath != "from-file.db" || cfg.ListenAddr != ":9090" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ReminderHour != 6 {
		t.Fatalf("env should win over file, got %d", cfg.ReminderHour)
	}
	if cfg.SchedulerBuffer != 64 {
		t.Fatalf("missing keys should keep defaults, got %d", cfg.SchedulerBuffer)
	}
}

func TestLoadUsesConfigEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STREAKD_CONFIG", path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("empty file should load: %v", err)
	}
	if cfg.DatabasePath != "streakd.db" {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*RuntimeConfig){
		"hour":     func(c *RuntimeConfig) { c.ReminderHour = 24 },
		"weekday":  func(c *RuntimeConfig) { c.FirstWeekday = "someday" },
		"timezone": func(c *RuntimeConfig) { c.Timezone = "Nowhere/Atlantis" },
		"type":     func(c *RuntimeConfig) { c.ReminderType = "Contextual" },
		"buffer":   func(c *RuntimeConfig) { c.SchedulerBuffer = 0 },
		"format":   func(c *RuntimeConfig) { c.LogFormat = "xml" },
		"db":       func(c *RuntimeConfig) { c.DatabasePath = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestCalendarFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "UTC"
	cfg.FirstWeekday = "Monday"
	cal, err := cfg.Calendar(nil)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if cal.FirstWeekday() != time.Monday || cal.Location() != time.UTC {
		t.Fatalf("unexpected calendar: %v %v", cal.FirstWeekday(), cal.Location())
	}
}
