package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
)

// Frequency names the variant of a Schedule, as persisted.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// IsValid reports whether f is one of the known frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidRule      = errors.New("model: invalid recurrence rule")
	ErrInvalidFrequency = errors.New("model: invalid recurrence frequency")
	ErrInvalidInterval  = errors.New("model: invalid recurrence interval")
)

// Schedule is one of Daily, Weekly, Monthly or Custom. Each variant carries
// only the fields its frequency uses.
type Schedule interface {
	Frequency() Frequency
	// Every is the interval in the schedule's unit.
	Every() int
	validate() error
}

// Daily occurs every Interval days from the anchor.
type Daily struct {
	Interval int
}

// Weekly occurs in every Interval-th week counted from the anchor's week.
type Weekly struct {
	Interval int
	// Days restricts occurrences to these weekdays. Empty means the
	// anchor's weekday.
	Days []time.Weekday
}

// Monthly occurs once in every Interval-th month from the anchor's month.
type Monthly struct {
	Interval int
	// DayOfMonth in 1..31; 0 uses the anchor's day. Short months clamp.
	DayOfMonth int
}

// Custom occurs on explicit dates when Dates is set, and steps like Daily
// otherwise.
type Custom struct {
	Interval int
	Dates    []calendar.Date
}

func (Daily) Frequency() Frequency   { return FrequencyDaily }
func (Weekly) Frequency() Frequency  { return FrequencyWeekly }
func (Monthly) Frequency() Frequency { return FrequencyMonthly }
func (Custom) Frequency() Frequency  { return FrequencyCustom }

func (s Daily) Every() int   { return s.Interval }
func (s Weekly) Every() int  { return s.Interval }
func (s Monthly) Every() int { return s.Interval }
func (s Custom) Every() int  { return s.Interval }

func (s Daily) validate() error {
	return validateInterval(s.Interval)
}

func (s Weekly) validate() error {
	if err := validateInterval(s.Interval); err != nil {
		return err
	}
	seen := make(map[time.Weekday]bool, len(s.Days))
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRule, d)
		}
		if seen[d] {
			return fmt.Errorf("%w: duplicate weekday %s", ErrInvalidRule, d)
		}
		seen[d] = true
	}
	return nil
}

func (s Monthly) validate() error {
	if err := validateInterval(s.Interval); err != nil {
		return err
	}
	if s.DayOfMonth < 0 || s.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d", ErrInvalidRule, s.DayOfMonth)
	}
	return nil
}

func (s Custom) validate() error {
	return validateInterval(s.Interval)
}

func validateInterval(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %w: %d", ErrInvalidRule, ErrInvalidInterval, n)
	}
	return nil
}

// RecurrenceRule decides when a task is due. Rules are only built through
// NewRecurrenceRule, so a rule in hand is always valid.
type RecurrenceRule struct {
	schedule   Schedule
	anchor     calendar.Date
	end        calendar.Date
	exceptions map[calendar.Date]struct{}
}

// NewRecurrenceRule validates and builds a rule. anchor is the first
// possible occurrence and week 0 for weekly alignment; a zero end means the
// rule never ends.
func NewRecurrenceRule(schedule Schedule, anchor, end calendar.Date) (*RecurrenceRule, error) {
	r := &RecurrenceRule{exceptions: make(map[calendar.Date]struct{})}
	if anchor.IsZero() {
		return nil, fmt.Errorf("%w: anchor is required", ErrInvalidRule)
	}
	r.anchor = anchor
	if err := r.SetSchedule(schedule); err != nil {
		return nil, err
	}
	if err := r.SetEndDate(end); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RecurrenceRule) Schedule() Schedule     { return r.schedule }
func (r *RecurrenceRule) Frequency() Frequency   { return r.schedule.Frequency() }
func (r *RecurrenceRule) Interval() int          { return r.schedule.Every() }
func (r *RecurrenceRule) Anchor() calendar.Date  { return r.anchor }
func (r *RecurrenceRule) EndDate() calendar.Date { return r.end }
func (r *RecurrenceRule) HasEndDate() bool       { return !r.end.IsZero() }

// SetSchedule swaps the frequency/interval. An invalid schedule leaves the
// rule untouched.
func (r *RecurrenceRule) SetSchedule(schedule Schedule) error {
	if schedule == nil {
		return fmt.Errorf("%w: %w: missing schedule", ErrInvalidRule, ErrInvalidFrequency)
	}
	if err := schedule.validate(); err != nil {
		return err
	}
	r.schedule = normalizeSchedule(schedule)
	return nil
}

func (r *RecurrenceRule) SetEndDate(end calendar.Date) error {
	if !end.IsZero() && end.Before(r.anchor) {
		return fmt.Errorf("%w: end %s before anchor %s", ErrInvalidRule, end, r.anchor)
	}
	r.end = end
	return nil
}

func normalizeSchedule(s Schedule) Schedule {
	switch v := s.(type) {
	case Weekly:
		days := slices.Clone(v.Days)
		slices.Sort(days)
		return Weekly{Interval: v.Interval, Days: days}
	case Custom:
		dates := slices.Clone(v.Dates)
		slices.SortFunc(dates, calendar.Date.Compare)
		dates = slices.CompactFunc(dates, calendar.Date.Equal)
		return Custom{Interval: v.Interval, Dates: dates}
	default:
		return s
	}
}

func (r *RecurrenceRule) AddException(d calendar.Date) {
	if r.exceptions == nil {
		r.exceptions = make(map[calendar.Date]struct{})
	}
	r.exceptions[d] = struct{}{}
}

func (r *RecurrenceRule) RemoveException(d calendar.Date) {
	delete(r.exceptions, d)
}

func (r *RecurrenceRule) HasException(d calendar.Date) bool {
	_, ok := r.exceptions[d]
	return ok
}

// Exceptions returns the excluded dates in ascending order.
func (r *RecurrenceRule) Exceptions() []calendar.Date {
	out := make([]calendar.Date, 0, len(r.exceptions))
	for d := range r.exceptions {
		out = append(out, d)
	}
	slices.SortFunc(out, calendar.Date.Compare)
	return out
}

func (r *RecurrenceRule) Clone() *RecurrenceRule {
	out := &RecurrenceRule{
		schedule:   normalizeSchedule(r.schedule),
		anchor:     r.anchor,
		end:        r.end,
		exceptions: make(map[calendar.Date]struct{}, len(r.exceptions)),
	}
	for d := range r.exceptions {
		out.exceptions[d] = struct{}{}
	}
	return out
}

// NextOccurrence returns the first valid occurrence strictly after after.
// The boolean is false when the rule has no further occurrence.
func (r *RecurrenceRule) NextOccurrence(cal calendar.Calendar, after calendar.Date) (calendar.Date, bool) {
	if after.Before(r.anchor) {
		if r.IsValidOccurrence(cal, r.anchor) {
			return r.anchor, true
		}
		after = r.anchor
	}
	cursor := after
	for {
		candidate, ok := r.step(cal, r.alignedAtOrBefore(cal, cursor))
		if !ok || !candidate.After(cursor) || r.pastEnd(candidate) {
			return calendar.Date{}, false
		}
		if !r.HasException(candidate) {
			return candidate, true
		}
		cursor = candidate
	}
}

// Preview lists the next count occurrences after from.
func (r *RecurrenceRule) Preview(cal calendar.Calendar, from calendar.Date, count int) []calendar.Date {
	if count <= 0 {
		return []calendar.Date{}
	}
	out := make([]calendar.Date, 0, min(count, previewPrealloc))
	cursor := from
	for len(out) < count {
		next, ok := r.NextOccurrence(cal, cursor)
		if !ok {
			break
		}
		out = append(out, next)
		cursor = next
	}
	return out
}

// IsValidOccurrence reports whether d matches the pattern, lies within
// [anchor, end] and is not excepted.
func (r *RecurrenceRule) IsValidOccurrence(cal calendar.Calendar, d calendar.Date) bool {
	if d.Before(r.anchor) || r.pastEnd(d) || r.HasException(d) {
		return false
	}
	return r.matches(cal, d)
}

func (r *RecurrenceRule) pastEnd(d calendar.Date) bool {
	return !r.end.IsZero() && d.After(r.end)
}

const previewPrealloc = 16

// alignedAtOrBefore snaps d back onto the rule's stepping grid: the latest
// anchor + k*interval days, weeks or months that is not after d. Stepping
// from there lands on pattern dates even when d is off the pattern. Weekly
// rules with explicit days and explicit custom dates scan, so d is kept.
func (r *RecurrenceRule) alignedAtOrBefore(cal calendar.Calendar, d calendar.Date) calendar.Date {
	if d.Before(r.anchor) {
		return d
	}
	switch s := r.schedule.(type) {
	case Daily:
		return r.anchorGrid(cal, d, s.Interval)
	case Weekly:
		if len(s.Days) == 0 {
			return r.anchorGrid(cal, d, 7*s.Interval)
		}
	case Monthly:
		months := cal.MonthsBetween(r.anchor, d)
		months -= mod(months, s.Interval)
		for {
			start := cal.AddMonths(cal.StartOfMonth(r.anchor), months)
			base := calendar.ClampedDay(start.Year, start.Month, r.dayOfMonth(s))
			if !base.After(d) {
				return base
			}
			months -= s.Interval
		}
	case Custom:
		if len(s.Dates) == 0 {
			return r.anchorGrid(cal, d, s.Interval)
		}
	}
	return d
}

func (r *RecurrenceRule) anchorGrid(cal calendar.Calendar, d calendar.Date, period int) calendar.Date {
	days := cal.DaysBetween(r.anchor, d)
	return cal.AddDays(r.anchor, days-mod(days, period))
}

func (r *RecurrenceRule) step(cal calendar.Calendar, cursor calendar.Date) (calendar.Date, bool) {
	switch s := r.schedule.(type) {
	case Daily:
		return cal.AddDays(cursor, s.Interval), true
	case Weekly:
		if len(s.Days) == 0 {
			return cal.AddWeeks(cursor, s.Interval), true
		}
		for i := 1; i <= 7*s.Interval; i++ {
			candidate := cursor.AddDays(i)
			if slices.Contains(s.Days, candidate.Weekday()) && r.weekAligned(cal, candidate, s.Interval) {
				return candidate, true
			}
		}
		return calendar.Date{}, false
	case Monthly:
		target := cal.AddMonths(cal.StartOfMonth(cursor), s.Interval)
		return calendar.ClampedDay(target.Year, target.Month, r.dayOfMonth(s)), true
	case Custom:
		if len(s.Dates) == 0 {
			return cal.AddDays(cursor, s.Interval), true
		}
		for _, d := range s.Dates {
			if d.After(cursor) {
				return d, true
			}
		}
		return calendar.Date{}, false
	default:
		return calendar.Date{}, false
	}
}

func (r *RecurrenceRule) matches(cal calendar.Calendar, d calendar.Date) bool {
	switch s := r.schedule.(type) {
	case Daily:
		return mod(cal.DaysBetween(r.anchor, d), s.Interval) == 0
	case Weekly:
		if len(s.Days) == 0 {
			return d.Weekday() == r.anchor.Weekday() && r.weekAligned(cal, d, s.Interval)
		}
		return slices.Contains(s.Days, d.Weekday()) && r.weekAligned(cal, d, s.Interval)
	case Monthly:
		if mod(cal.MonthsBetween(r.anchor, d), s.Interval) != 0 {
			return false
		}
		return d.Equal(calendar.ClampedDay(d.Year, d.Month, r.dayOfMonth(s)))
	case Custom:
		if len(s.Dates) == 0 {
			return mod(cal.DaysBetween(r.anchor, d), s.Interval) == 0
		}
		_, found := slices.BinarySearchFunc(s.Dates, d, calendar.Date.Compare)
		return found
	default:
		return false
	}
}

// weekAligned is true when d's week is a multiple of interval weeks away
// from the week containing the anchor.
func (r *RecurrenceRule) weekAligned(cal calendar.Calendar, d calendar.Date, interval int) bool {
	return mod(cal.WeeksBetween(r.anchor, d), interval) == 0
}

func (r *RecurrenceRule) dayOfMonth(s Monthly) int {
	if s.DayOfMonth > 0 {
		return s.DayOfMonth
	}
	return r.anchor.Day
}

// Describe renders the rule for status lines, e.g. "every 2 weeks on Mon, Fri".
func (r *RecurrenceRule) Describe() string {
	n := r.Interval()
	unit := func(word string) string {
		if n == 1 {
			return "every " + word
		}
		return fmt.Sprintf("every %d %ss", n, word)
	}
	var out string
	switch s := r.schedule.(type) {
	case Daily:
		out = unit("day")
	case Weekly:
		out = unit("week")
		if len(s.Days) > 0 {
			names := make([]string, 0, len(s.Days))
			for _, d := range s.Days {
				names = append(names, d.String()[:3])
			}
			out += " on " + strings.Join(names, ", ")
		}
	case Monthly:
		out = unit("month") + fmt.Sprintf(" on day %d", r.dayOfMonth(s))
	case Custom:
		if len(s.Dates) > 0 {
			out = fmt.Sprintf("on %d custom dates", len(s.Dates))
		} else {
			out = unit("day")
		}
	}
	if r.HasEndDate() {
		out += " until " + r.end.String()
	}
	return out
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}
