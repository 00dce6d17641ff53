package calendar

import (
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant. Tests use it to pin "today".
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// Calendar supplies every date computation the engine performs: the zone
// days are cut in, the first day of the week and the notion of today.
type Calendar struct {
	loc          *time.Location
	firstWeekday time.Weekday
	clock        Clock
}

// Option configures a Calendar built by New.
type Option func(*Calendar)

func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithFirstWeekday(d time.Weekday) Option {
	return func(c *Calendar) {
		if d >= time.Sunday && d <= time.Saturday {
			c.firstWeekday = d
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Calendar) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func New(opts ...Option) Calendar {
	c := Calendar{
		loc:          time.UTC,
		firstWeekday: time.Sunday,
		clock:        SystemClock{},
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

func (c Calendar) FirstWeekday() time.Weekday { return c.firstWeekday }

func (c Calendar) Now() time.Time {
	if c.clock == nil {
		return time.Now().In(c.Location())
	}
	return c.clock.Now().In(c.Location())
}

// Today must be read once per logical operation and passed down.
func (c Calendar) Today() Date {
	return DateOf(c.Now())
}

// DateOf converts an instant to the day it falls on in the calendar's zone.
func (c Calendar) DateOf(t time.Time) Date {
	return DateOf(t.In(c.Location()))
}

func (c Calendar) StartOfDay(t time.Time) time.Time {
	return c.DateOf(t).In(c.Location())
}

func (c Calendar) Time(d Date) time.Time {
	return d.In(c.Location())
}

func (c Calendar) AddDays(d Date, n int) Date {
	return d.AddDays(n)
}

func (c Calendar) AddWeeks(d Date, n int) Date {
	return d.AddDays(7 * n)
}

// AddMonths keeps the day of month when it exists in the target month and
// clamps to the month's last day otherwise (Jan 31 + 1 month = Feb 28/29).
func (c Calendar) AddMonths(d Date, n int) Date {
	first := NewDate(d.Year, d.Month+time.Month(n), 1)
	return ClampedDay(first.Year, first.Month, d.Day)
}

// DayOfWeek numbers weekdays 1=Sunday through 7=Saturday.
func (c Calendar) DayOfWeek(d Date) int {
	return WeekdayNumber(d.Weekday())
}

func (c Calendar) StartOfWeek(d Date) Date {
	offset := (int(d.Weekday()) - int(c.firstWeekday) + 7) % 7
	return d.AddDays(-offset)
}

func (c Calendar) EndOfWeek(d Date) Date {
	return c.StartOfWeek(d).AddDays(6)
}

func (c Calendar) StartOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

func (c Calendar) EndOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: DaysInMonth(d.Year, d.Month)}
}

func (c Calendar) DaysBetween(from, to Date) int {
	return from.DaysUntil(to)
}

// WeeksBetween counts week boundaries crossed between the weeks containing
// from and to.
func (c Calendar) WeeksBetween(from, to Date) int {
	return c.StartOfWeek(from).DaysUntil(c.StartOfWeek(to)) / 7
}

func (c Calendar) MonthsBetween(from, to Date) int {
	return (to.Year-from.Year)*12 + int(to.Month) - int(from.Month)
}

func (c Calendar) SameWeek(a, b Date) bool {
	return c.StartOfWeek(a).Equal(c.StartOfWeek(b))
}

func (c Calendar) SameMonth(a, b Date) bool {
	return a.Year == b.Year && a.Month == b.Month
}

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDay returns day in the given month, or the month's last day when
// the month is shorter.
func ClampedDay(year int, month time.Month, day int) Date {
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return Date{Year: year, Month: month, Day: day}
}

func WeekdayNumber(d time.Weekday) int {
	return int(d) + 1
}

// WeekdayFromNumber maps 1=Sunday..7=Saturday onto time.Weekday.
func WeekdayFromNumber(n int) (time.Weekday, bool) {
	if n < 1 || n > 7 {
		return 0, false
	}
	return time.Weekday(n - 1), true
}
