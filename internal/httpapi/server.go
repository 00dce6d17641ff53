package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/service"
)

// Server exposes HabitService as a JSON API.
type Server struct {
	svc    *service.HabitService
	sched  service.ReminderScheduler
	logger *zap.Logger
	router *gin.Engine
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithScheduler replans a habit's reminder after every change made through
// the API.
func WithScheduler(sched service.ReminderScheduler) Option {
	return func(s *Server) {
		s.sched = sched
	}
}

func NewServer(svc *service.HabitService, opts ...Option) *Server {
	s := &Server{svc: svc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	api := r.Group("/api")
	{
		api.GET("/habits", s.listHabits)
		api.POST("/habits", s.createHabit)
		api.GET("/habits/:id", s.getHabit)
		api.DELETE("/habits/:id", s.deleteHabit)
		api.POST("/habits/:id/archive", s.archiveHabit)
		api.PUT("/habits/:id/schedule", s.updateSchedule)
		api.PUT("/habits/:id/reminder", s.setReminder)
		api.GET("/habits/:id/heatmap", s.heatmap)
		api.GET("/habits/:id/next", s.nextOccurrences)
		api.POST("/habits/:id/completions", s.markCompleted)
		api.DELETE("/habits/:id/completions/:date", s.markIncomplete)
		api.POST("/habits/:id/protections", s.useProtectionDay)
		api.POST("/habits/:id/exceptions", s.addException)
		api.DELETE("/habits/:id/exceptions/:date", s.removeException)

		api.GET("/categories", s.listCategories)
		api.POST("/categories", s.createCategory)
		api.DELETE("/categories/:id", s.deleteCategory)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// replan keeps the reminder engine in step with a changed habit.
func (s *Server) replan(ctx context.Context, habitID string) {
	if s.sched == nil {
		return
	}
	if _, err := s.svc.PlanReminder(ctx, s.sched, habitID); err != nil {
		s.logger.Warn("plan reminder failed", zap.String("habit_id", habitID), zap.Error(err))
	}
}
