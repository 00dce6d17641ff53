package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/config"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/logging"
	"github.com/sandeepkv93/streakd/internal/scheduler"
	"github.com/sandeepkv93/streakd/internal/service"
	"github.com/sandeepkv93/streakd/internal/storage"
)

// app holds what every subcommand shares.
type app struct {
	cfg    config.RuntimeConfig
	logger *zap.Logger
	repo   *storage.SQLiteRepository
	svc    *service.HabitService
}

// openApp loads configuration, opens and migrates the database and builds
// the habit service. tui selects the logger that stays off the terminal.
func openApp(tui bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var logger *zap.Logger
	if tui {
		logger, err = logging.ForTUI(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	} else {
		logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	}
	if err != nil {
		return nil, err
	}

	cal, err := cfg.Calendar(nil)
	if err != nil {
		return nil, err
	}

	repo, err := storage.OpenSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := storage.MigrateUp(repo.DB()); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.DatabasePath, err)
	}

	svc := service.New(repo, habit.NewTracker(cal),
		service.WithLogger(logger),
		service.WithReminderDefaults(cfg.ReminderHour, cfg.ReminderType),
	)
	logger.Debug("database ready", zap.String("path", cfg.DatabasePath))
	return &app{cfg: cfg, logger: logger, repo: repo, svc: svc}, nil
}

// startScheduler starts the reminder engine and queues every habit's next
// reminder.
func (a *app) startScheduler(ctx context.Context) (*scheduler.Engine, error) {
	engine := scheduler.NewEngine(a.cfg.SchedulerBuffer,
		scheduler.WithLogger(a.logger),
		scheduler.WithNagInterval(a.cfg.NagInterval()),
	)
	engine.Start()
	planned, err := a.svc.PlanReminders(ctx, engine)
	if err != nil {
		engine.Stop()
		return nil, fmt.Errorf("plan reminders: %w", err)
	}
	a.logger.Info("reminders planned", zap.Int("count", planned))
	return engine, nil
}

func (a *app) Close() {
	_ = a.logger.Sync()
	_ = a.repo.Close()
}
