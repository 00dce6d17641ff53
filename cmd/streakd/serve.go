package main

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/httpapi"
	"github.com/sandeepkv93/streakd/internal/scheduler"
)

var (
	serveAddr      string
	serveReminders bool
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the habit API over HTTP until interrupted.

Examples:
  streakd serve --addr :8080
  streakd serve --reminders`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default listen_addr from config)")
	cmd.Flags().BoolVar(&serveReminders, "reminders", false, "run the reminder engine and log reminders as they fire")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.ListenAddr
	}
	if a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := cmd.Context()
	opts := []httpapi.Option{httpapi.WithLogger(a.logger)}
	if serveReminders {
		engine, err := a.startScheduler(ctx)
		if err != nil {
			return err
		}
		defer engine.Stop()
		go a.logReminders(ctx, engine)
		opts = append(opts, httpapi.WithScheduler(engine))
	}

	server := httpapi.NewServer(a.svc, opts...)
	if err := server.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// logReminders drains fired reminders headlessly: each one is logged,
// stamped in storage and followed by the habit's next reminder.
func (a *app) logReminders(ctx context.Context, engine *scheduler.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-engine.C():
			if !ok {
				return
			}
			a.logger.Info("reminder fired",
				zap.String("habit_id", ev.HabitID),
				zap.String("title", ev.Title),
				zap.String("type", ev.Type),
				zap.String("occurrence", ev.Occurrence.String()),
			)
			if err := a.svc.RecordReminderFired(ctx, ev, ev.TriggerAt); err != nil {
				a.logger.Warn("record reminder failed", zap.String("habit_id", ev.HabitID), zap.Error(err))
			}
			if ev.Type == scheduler.TypeNagging {
				// The engine requeues nagging reminders until acknowledged.
				continue
			}
			if _, err := a.svc.PlanReminder(ctx, engine, ev.HabitID); err != nil {
				a.logger.Warn("plan reminder failed", zap.String("habit_id", ev.HabitID), zap.Error(err))
			}
		}
	}
}
