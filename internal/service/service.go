package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/storage"
)

var (
	ErrHabitNotFound    = errors.New("service: habit not found")
	ErrInvalidInput     = errors.New("service: invalid input")
	ErrFutureDate       = errors.New("service: date is in the future")
	ErrQuotaExhausted   = errors.New("service: no protection days left this month")
	ErrCategoryNotFound = errors.New("service: category not found")
)

// HabitService loads a habit, applies one engine mutation and saves the
// result. Mutations of the same habit are serialised.
type HabitService struct {
	repo    storage.Repository
	tracker habit.Tracker
	logger  *zap.Logger
	locks   *keyedMutex
	newID   func() string

	reminderHour int
	reminderType string
}

type Option func(*HabitService)

func WithLogger(logger *zap.Logger) Option {
	return func(s *HabitService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *HabitService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithReminderDefaults sets the hour of day and reminder type used for
// habits without a stored reminder.
func WithReminderDefaults(hour int, typ string) Option {
	return func(s *HabitService) {
		if hour >= 0 && hour <= 23 {
			s.reminderHour = hour
		}
		if typ != "" {
			s.reminderType = typ
		}
	}
}

func New(repo storage.Repository, tracker habit.Tracker, opts ...Option) *HabitService {
	s := &HabitService{
		repo:         repo,
		tracker:      tracker,
		logger:       zap.NewNop(),
		locks:        newKeyedMutex(),
		newID:        uuid.NewString,
		reminderHour: 9,
		reminderType: "Soft",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HabitService) Calendar() calendar.Calendar { return s.tracker.Calendar() }

func (s *HabitService) Tracker() habit.Tracker { return s.tracker }

// load reads and restores a habit without taking its lock.
func (s *HabitService) load(ctx context.Context, id string) (*habit.Habit, storage.HabitRecord, error) {
	rec, err := s.repo.LoadHabitRecord(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.HabitRecord{}, fmt.Errorf("%w: %s", ErrHabitNotFound, id)
		}
		return nil, storage.HabitRecord{}, fmt.Errorf("load habit %s: %w", id, err)
	}
	state, err := stateFromRecord(rec)
	if err != nil {
		return nil, storage.HabitRecord{}, fmt.Errorf("decode habit %s: %w", id, err)
	}
	h, err := s.tracker.Restore(state)
	if err != nil {
		return nil, storage.HabitRecord{}, fmt.Errorf("restore habit %s: %w", id, err)
	}
	return h, rec, nil
}

// mutate runs fn under the habit's lock and persists the habit when fn
// reports a change. A rejected mutation writes nothing.
func (s *HabitService) mutate(ctx context.Context, id string, fn func(h *habit.Habit) (bool, error)) (*habit.Habit, bool, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	h, rec, err := s.load(ctx, id)
	if err != nil {
		return nil, false, err
	}
	changed, err := fn(h)
	if err != nil || !changed {
		return h, false, err
	}
	if err := s.repo.SaveHabitRecord(ctx, recordFromHabit(h, rec, s.tracker.Calendar().Now())); err != nil {
		return nil, false, fmt.Errorf("save habit %s: %w", id, err)
	}
	return h, true, nil
}

// checkNotFuture rejects days after today.
func (s *HabitService) checkNotFuture(d calendar.Date) error {
	if d.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if today := s.tracker.Calendar().Today(); d.After(today) {
		return fmt.Errorf("%w: %s is after %s", ErrFutureDate, d, today)
	}
	return nil
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
