package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/commands"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/model"
	"github.com/sandeepkv93/streakd/internal/service"
	"github.com/sandeepkv93/streakd/internal/storage"
)

type habitResponse struct {
	ID                 string          `json:"id"`
	TaskID             string          `json:"task_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	State              string          `json:"state"`
	Priority           string          `json:"priority"`
	CategoryID         string          `json:"category_id,omitempty"`
	Schedule           string          `json:"schedule"`
	Exceptions         []calendar.Date `json:"exceptions"`
	CurrentStreak      int             `json:"current_streak"`
	BestStreak         int             `json:"best_streak"`
	TotalCompletions   int             `json:"total_completions"`
	ProtectionDaysUsed int             `json:"protection_days_used"`
	Target             int             `json:"target_per_week,omitempty"`
	Completions        []calendar.Date `json:"completions"`
	Protections        []calendar.Date `json:"protections"`
}

type summaryResponse struct {
	HabitID            string         `json:"habit_id"`
	Title              string         `json:"title"`
	Schedule           string         `json:"schedule"`
	CurrentStreak      int            `json:"current_streak"`
	BestStreak         int            `json:"best_streak"`
	TotalCompletions   int            `json:"total_completions"`
	CompletionRate     float64        `json:"completion_rate"`
	WeeklyRate         float64        `json:"weekly_rate"`
	MonthlyRate        float64        `json:"monthly_rate"`
	YearlyRate         float64        `json:"yearly_rate"`
	AverageStreak      float64        `json:"average_streak"`
	ProtectionDaysLeft int            `json:"protection_days_left"`
	TargetProgress     *float64       `json:"target_progress,omitempty"`
	CompletedToday     bool           `json:"completed_today"`
	NextOccurrence     *calendar.Date `json:"next_occurrence,omitempty"`
}

type cellResponse struct {
	Date      calendar.Date `json:"date"`
	Completed bool          `json:"completed"`
	Protected bool          `json:"protected"`
	Streak    int           `json:"streak"`
	Intensity float64       `json:"intensity"`
	Level     int           `json:"level"`
}

type runResponse struct {
	Start   calendar.Date `json:"start"`
	End     calendar.Date `json:"end"`
	Length  int           `json:"length"`
	Bridged int           `json:"bridged"`
}

type categoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type createHabitRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	CategoryID  string `json:"category_id"`
	Schedule    string `json:"schedule"`
	Anchor      string `json:"anchor"`
	EndDate     string `json:"end_date"`
	Target      int    `json:"target"`
}

type scheduleRequest struct {
	Schedule string `json:"schedule"`
	EndDate  string `json:"end_date"`
}

type reminderRequest struct {
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	Type    string `json:"type"`
	Enabled *bool  `json:"enabled"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type categoryRequest struct {
	Name  string `json:"name" binding:"required"`
	Color string `json:"color"`
}

func toHabitResponse(h *habit.Habit) habitResponse {
	out := habitResponse{
		ID:                 h.ID,
		TaskID:             h.Task.ID,
		Title:              h.Task.Title,
		Description:        h.Task.Description,
		State:              string(h.Task.State),
		Priority:           string(h.Task.Priority),
		CategoryID:         h.Task.CategoryID,
		CurrentStreak:      h.CurrentStreak,
		BestStreak:         h.BestStreak,
		TotalCompletions:   h.TotalCompletions,
		ProtectionDaysUsed: h.ProtectionDaysUsed,
		Target:             h.TargetCompletionsPerPeriod,
		Completions:        h.CompletionDates(),
		Protections:        h.ProtectedDates(),
		Exceptions:         []calendar.Date{},
	}
	if h.Rule != nil {
		out.Schedule = h.Rule.Describe()
		out.Exceptions = h.Rule.Exceptions()
	}
	return out
}

func toSummaryResponse(s habit.Summary) summaryResponse {
	out := summaryResponse{
		HabitID:            s.HabitID,
		Title:              s.Title,
		Schedule:           s.Schedule,
		CurrentStreak:      s.CurrentStreak,
		BestStreak:         s.BestStreak,
		TotalCompletions:   s.TotalCompletions,
		CompletionRate:     s.CompletionRate,
		WeeklyRate:         s.WeeklyRate,
		MonthlyRate:        s.MonthlyRate,
		YearlyRate:         s.YearlyRate,
		AverageStreak:      s.AverageStreak,
		ProtectionDaysLeft: s.ProtectionDaysLeft,
		CompletedToday:     s.CompletedToday,
	}
	if s.HasTarget {
		p := s.TargetProgress
		out.TargetProgress = &p
	}
	if s.HasNext {
		next := s.NextOccurrence
		out.NextOccurrence = &next
	}
	return out
}

func toCategoryResponse(c storage.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Color: c.Color}
}

func (s *Server) listHabits(c *gin.Context) {
	includeArchived := c.Query("archived") == "true"
	habits, err := s.svc.ListHabits(c.Request.Context(), includeArchived)
	if err != nil {
		s.respondError(c, err)
		return
	}
	tracker := s.svc.Tracker()
	out := make([]summaryResponse, 0, len(habits))
	for _, h := range habits {
		out = append(out, toSummaryResponse(tracker.Summarize(h)))
	}
	c.JSON(http.StatusOK, gin.H{"habits": out})
}

func (s *Server) createHabit(c *gin.Context) {
	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	schedule, err := commands.ParseSchedule(req.Schedule)
	if err != nil {
		s.respondError(c, err)
		return
	}
	in := service.CreateHabitInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    model.Priority(req.Priority),
		CategoryID:  req.CategoryID,
		Schedule:    schedule,
		Target:      req.Target,
	}
	if in.Anchor, err = s.optionalDate(req.Anchor); err != nil {
		s.respondError(c, err)
		return
	}
	if in.EndDate, err = s.optionalDate(req.EndDate); err != nil {
		s.respondError(c, err)
		return
	}
	h, err := s.svc.CreateHabit(c.Request.Context(), in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusCreated, gin.H{"habit": toHabitResponse(h)})
}

func (s *Server) getHabit(c *gin.Context) {
	h, err := s.svc.GetHabit(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"habit":   toHabitResponse(h),
		"summary": toSummaryResponse(s.svc.Tracker().Summarize(h)),
	})
}

func (s *Server) deleteHabit(c *gin.Context) {
	id := c.Param("id")
	if err := s.svc.DeleteHabit(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	if s.sched != nil {
		s.sched.Cancel(id)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) archiveHabit(c *gin.Context) {
	h, err := s.svc.ArchiveHabit(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h)})
}

func (s *Server) updateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	schedule, err := commands.ParseSchedule(req.Schedule)
	if err != nil {
		s.respondError(c, err)
		return
	}
	end, err := s.optionalDate(req.EndDate)
	if err != nil {
		s.respondError(c, err)
		return
	}
	h, err := s.svc.UpdateSchedule(c.Request.Context(), c.Param("id"), schedule, end)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h)})
}

func (s *Server) setReminder(c *gin.Context) {
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	typ := model.ReminderType(req.Type)
	if typ == "" {
		typ = model.ReminderTypeSoft
	}
	id := c.Param("id")
	row, err := s.svc.SetReminder(c.Request.Context(), id, req.Hour, req.Minute, typ, enabled)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"reminder": gin.H{
		"id":      row.ID,
		"type":    row.Type,
		"enabled": row.Enabled,
		"time":    row.TriggerAt.In(s.svc.Calendar().Location()).Format("15:04"),
	}})
}

func (s *Server) heatmap(c *gin.Context) {
	weeks, err := intQuery(c, "weeks", 12, service.MaxHeatmapWeeks)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cells, runs, err := s.svc.Heatmap(c.Request.Context(), c.Param("id"), weeks)
	if err != nil {
		s.respondError(c, err)
		return
	}
	outCells := make([]cellResponse, 0, len(cells))
	for _, cell := range cells {
		outCells = append(outCells, cellResponse(cell))
	}
	outRuns := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		outRuns = append(outRuns, runResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{"cells": outCells, "chains": outRuns})
}

func (s *Server) nextOccurrences(c *gin.Context) {
	count, err := intQuery(c, "count", 1, service.MaxOccurrenceCount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dates, err := s.svc.NextOccurrence(c.Request.Context(), c.Param("id"), count)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

func (s *Server) markCompleted(c *gin.Context) {
	d, ok := s.bodyDate(c)
	if !ok {
		return
	}
	h, changed, err := s.svc.MarkCompleted(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h), "changed": changed})
}

func (s *Server) markIncomplete(c *gin.Context) {
	d, ok := s.paramDate(c)
	if !ok {
		return
	}
	h, changed, err := s.svc.MarkIncomplete(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h), "changed": changed})
}

func (s *Server) useProtectionDay(c *gin.Context) {
	d, ok := s.bodyDate(c)
	if !ok {
		return
	}
	h, err := s.svc.UseProtectionDay(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"habit":                toHabitResponse(h),
		"protection_days_left": s.svc.Tracker().AvailableProtectionDays(h),
	})
}

func (s *Server) addException(c *gin.Context) {
	d, ok := s.bodyDate(c)
	if !ok {
		return
	}
	h, err := s.svc.AddException(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h)})
}

func (s *Server) removeException(c *gin.Context) {
	d, ok := s.paramDate(c)
	if !ok {
		return
	}
	h, err := s.svc.RemoveException(c.Request.Context(), c.Param("id"), d)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.replan(c.Request.Context(), h.ID)
	c.JSON(http.StatusOK, gin.H{"habit": toHabitResponse(h)})
}

func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.svc.ListCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, cat := range cats {
		out = append(out, toCategoryResponse(cat))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (s *Server) createCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := s.svc.CreateCategory(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": toCategoryResponse(cat)})
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.svc.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// bodyDate reads an optional {"date": ...} body. A missing body or date
// means today.
func (s *Server) bodyDate(c *gin.Context) (calendar.Date, bool) {
	var req dateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return calendar.Date{}, false
		}
	}
	d, err := commands.ResolveDate(s.svc.Calendar(), req.Date)
	if err != nil {
		s.respondError(c, err)
		return calendar.Date{}, false
	}
	return d, true
}

func (s *Server) paramDate(c *gin.Context) (calendar.Date, bool) {
	d, err := commands.ResolveDate(s.svc.Calendar(), c.Param("date"))
	if err != nil {
		s.respondError(c, err)
		return calendar.Date{}, false
	}
	return d, true
}

func (s *Server) optionalDate(raw string) (calendar.Date, error) {
	if raw == "" {
		return calendar.Date{}, nil
	}
	return commands.ResolveDate(s.svc.Calendar(), raw)
}

// intQuery reads a positive integer query parameter no larger than limit.
func intQuery(c *gin.Context, name string, def, limit int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("invalid " + name)
	}
	if n > limit {
		return 0, fmt.Errorf("%s must be at most %d", name, limit)
	}
	return n, nil
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var cmdErr *commands.CommandError
	switch {
	case errors.Is(err, service.ErrHabitNotFound), errors.Is(err, service.ErrCategoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrQuotaExhausted):
		status = http.StatusConflict
	case errors.Is(err, service.ErrFutureDate):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidRule),
		errors.Is(err, habit.ErrInvalidHabit),
		errors.As(err, &cmdErr):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("habit_id", c.Param("id")),
			zap.Error(err),
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
