package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandeepkv93/streakd/internal/calendar"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type RuntimeConfig struct {
	DatabasePath         string `yaml:"database_path"`
	Timezone             string `yaml:"timezone"`
	FirstWeekday         string `yaml:"first_weekday"`
	ReminderHour         int    `yaml:"reminder_hour"`
	ReminderType         string `yaml:"reminder_type"`
	NagMinutes           int    `yaml:"nag_minutes"`
	SchedulerBuffer      int    `yaml:"scheduler_buffer"`
	DesktopNotifications bool   `yaml:"desktop_notifications"`
	ListenAddr           string `yaml:"listen_addr"`
	LogLevel             string `yaml:"log_level"`
	LogFormat            string `yaml:"log_format"`
	LogFile              string `yaml:"log_file"`
}

func Default() RuntimeConfig {
	return RuntimeConfig{
		DatabasePath:    "streakd.db",
		Timezone:        "Local",
		FirstWeekday:    "sunday",
		ReminderHour:    9,
		ReminderType:    "Soft",
		NagMinutes:      30,
		SchedulerBuffer: 64,
		ListenAddr:      "127.0.0.1:8080",
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load applies defaults, then the YAML file at path (or $STREAKD_CONFIG),
// then STREAKD_* environment overrides.
func Load(path string) (RuntimeConfig, error) {
	cfg := Default()
	if path == "" {
		path = strings.TrimSpace(os.Getenv("STREAKD_CONFIG"))
	}
	if path != "" {
		var err error
		cfg, err = FromFile(path, cfg)
		if err != nil {
			return RuntimeConfig{}, err
		}
	}
	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

// FromFile overlays the keys present in the YAML file onto base.
func FromFile(path string, base RuntimeConfig) (RuntimeConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return RuntimeConfig{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := base
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return RuntimeConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func FromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("STREAKD_DB"); ok {
		cfg.DatabasePath = v
	}
	if v, ok := getEnvString("STREAKD_TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvString("STREAKD_FIRST_WEEKDAY"); ok {
		cfg.FirstWeekday = v
	}
	if v, ok := getEnvInt("STREAKD_REMINDER_HOUR"); ok {
		cfg.ReminderHour = v
	}
	if v, ok := getEnvString("STREAKD_REMINDER_TYPE"); ok {
		cfg.ReminderType = v
	}
	if v, ok := getEnvInt("STREAKD_NAG_MINUTES"); ok && v > 0 {
		cfg.NagMinutes = v
	}
	if v, ok := getEnvInt("STREAKD_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("STREAKD_DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvString("STREAKD_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}
	if v, ok := getEnvString("STREAKD_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvString("STREAKD_LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := getEnvString("STREAKD_LOG_FILE"); ok {
		cfg.LogFile = v
	}
	return cfg
}

func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database_path is required", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Weekday(); err != nil {
		return err
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		return fmt.Errorf("%w: reminder_hour must be between 0 and 23", ErrInvalidConfig)
	}
	switch c.ReminderType {
	case "Hard", "Soft", "Nagging":
	default:
		return fmt.Errorf("%w: unknown reminder_type %q", ErrInvalidConfig, c.ReminderType)
	}
	if c.SchedulerBuffer <= 0 {
		return fmt.Errorf("%w: scheduler_buffer must be positive", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log_format must be json or console", ErrInvalidConfig)
	}
	return nil
}

func (c RuntimeConfig) Location() (*time.Location, error) {
	switch strings.TrimSpace(c.Timezone) {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	return loc, nil
}

func (c RuntimeConfig) Weekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.FirstWeekday))
	if name == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: first_weekday %q", ErrInvalidConfig, c.FirstWeekday)
}

func (c RuntimeConfig) NagInterval() time.Duration {
	return time.Duration(c.NagMinutes) * time.Minute
}

// Calendar builds the calendar every component shares. A nil clock means
// the system clock.
func (c RuntimeConfig) Calendar(clock calendar.Clock) (calendar.Calendar, error) {
	loc, err := c.Location()
	if err != nil {
		return calendar.Calendar{}, err
	}
	first, err := c.Weekday()
	if err != nil {
		return calendar.Calendar{}, err
	}
	return calendar.New(
		calendar.WithLocation(loc),
		calendar.WithFirstWeekday(first),
		calendar.WithClock(clock),
	), nil
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return "", false
	}
	return raw, true
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}
