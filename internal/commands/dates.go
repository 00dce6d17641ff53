package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/model"
)

// ResolveDate turns "today", "yesterday", "-N" (days ago) or YYYY-MM-DD
// into a calendar day. Empty means today.
func ResolveDate(cal calendar.Calendar, raw string) (calendar.Date, error) {
	today := cal.Today()
	switch v := strings.ToLower(strings.TrimSpace(raw)); {
	case v == "" || v == "today":
		return today, nil
	case v == "yesterday":
		return today.AddDays(-1), nil
	case strings.HasPrefix(v, "-"):
		n, err := strconv.Atoi(v[1:])
		if err != nil || n < 0 {
			return calendar.Date{}, invalid("bad relative day: %s", raw)
		}
		return today.AddDays(-n), nil
	default:
		d, err := calendar.ParseDate(v)
		if err != nil {
			return calendar.Date{}, invalid("expected today, yesterday, -N or YYYY-MM-DD: %s", raw)
		}
		return d, nil
	}
}

func isDateToken(s string) bool {
	v := strings.ToLower(s)
	if v == "today" || v == "yesterday" {
		return true
	}
	if strings.HasPrefix(v, "-") {
		_, err := strconv.Atoi(v[1:])
		return err == nil
	}
	_, err := calendar.ParseDate(v)
	return err == nil
}

// ParseSchedule reads the phrase after "every": "day", "3 days",
// "weekdays", "2 weeks on mon,thu", "month on 15", "mon wed fri".
// Empty means every day.
func ParseSchedule(phrase string) (model.Schedule, error) {
	words := strings.Fields(strings.ToLower(strings.ReplaceAll(phrase, ",", " ")))
	if len(words) == 0 {
		return model.Daily{Interval: 1}, nil
	}

	interval := 1
	if n, err := strconv.Atoi(words[0]); err == nil {
		if n < 1 {
			return nil, invalid("interval must be at least 1: %d", n)
		}
		interval = n
		words = words[1:]
		if len(words) == 0 {
			return nil, invalid("missing unit after %d", n)
		}
	}

	unit, rest := words[0], words[1:]
	if len(rest) > 0 && rest[0] == "on" {
		rest = rest[1:]
	}
	switch strings.TrimSuffix(unit, "s") {
	case "day", "daily":
		if len(rest) > 0 {
			return nil, invalid("unexpected words after day: %s", strings.Join(rest, " "))
		}
		return model.Daily{Interval: interval}, nil
	case "weekday":
		return model.Weekly{Interval: interval, Days: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}}, nil
	case "weekend":
		return model.Weekly{Interval: interval, Days: []time.Weekday{time.Saturday, time.Sunday}}, nil
	case "week", "weekly":
		days, err := parseWeekdays(rest)
		if err != nil {
			return nil, err
		}
		return model.Weekly{Interval: interval, Days: days}, nil
	case "month", "monthly":
		day := 0
		if len(rest) > 0 {
			n, err := strconv.Atoi(strings.TrimRight(rest[0], "stndrh"))
			if err != nil || n < 1 || n > 31 {
				return nil, invalid("day of month must be 1-31: %s", rest[0])
			}
			day = n
		}
		return model.Monthly{Interval: interval, DayOfMonth: day}, nil
	}

	days, err := parseWeekdays(words)
	if err != nil {
		return nil, invalid("unknown schedule: %s", phrase)
	}
	return model.Weekly{Interval: interval, Days: days}, nil
}

func parseWeekdays(words []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(words))
	out := make([]time.Weekday, 0, len(words))
	for _, w := range words {
		d, ok := weekdayByName(w)
		if !ok {
			return nil, invalid("unknown weekday: %s", w)
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

func weekdayByName(s string) (time.Weekday, bool) {
	if len(s) < 2 {
		return 0, false
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.HasPrefix(strings.ToLower(d.String()), s) {
			return d, true
		}
	}
	return 0, false
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
