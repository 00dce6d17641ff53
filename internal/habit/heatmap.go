package habit

import (
	"github.com/sandeepkv93/streakd/internal/calendar"
)

// IntensitySaturation is the streak length at which heatmap intensity
// reaches 1.
const IntensitySaturation = 7

// Cell is one day of a heatmap.
type Cell struct {
	Date      calendar.Date
	Completed bool
	Protected bool
	Streak    int
	Intensity float64
	Level     int
}

// CompletionIntensity is 0 for a missed day and grows with the streak on d
// up to IntensitySaturation.
func CompletionIntensity(h *Habit, d calendar.Date) float64 {
	return intensity(h.StreakOnDate(d))
}

// Heatmap annotates every day in [from, to].
func Heatmap(h *Habit, from, to calendar.Date) []Cell {
	if to.Before(from) {
		return []Cell{}
	}
	cells := make([]Cell, 0, from.DaysUntil(to)+1)
	streak := h.StreakOnDate(from.AddDays(-1))
	for d := from; !d.After(to); d = d.AddDays(1) {
		if h.IsCompleted(d) {
			streak++
		} else {
			streak = 0
		}
		cells = append(cells, Cell{
			Date:      d,
			Completed: streak > 0,
			Protected: h.IsProtected(d),
			Streak:    streak,
			Intensity: intensity(streak),
			Level:     level(streak),
		})
	}
	return cells
}

// Chains returns the bridged runs overlapping [from, to], clipped to it.
func Chains(h *Habit, from, to calendar.Date) []Run {
	out := []Run{}
	for _, r := range h.Runs(true) {
		if r.End.Before(from) || r.Start.After(to) {
			continue
		}
		if r.Start.Before(from) {
			r.Start = firstCompletedOnOrAfter(h, from, r.End)
		}
		if r.End.After(to) {
			r.End = lastCompletedOnOrBefore(h, to, r.Start)
		}
		r.Length = h.countBetween(r.Start, r.End)
		r.Bridged = 0
		for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
			if !h.IsCompleted(d) && h.IsProtected(d) {
				r.Bridged++
			}
		}
		out = append(out, r)
	}
	return out
}

func firstCompletedOnOrAfter(h *Habit, d, limit calendar.Date) calendar.Date {
	for !h.IsCompleted(d) && d.Before(limit) {
		d = d.AddDays(1)
	}
	return d
}

func lastCompletedOnOrBefore(h *Habit, d, limit calendar.Date) calendar.Date {
	for !h.IsCompleted(d) && d.After(limit) {
		d = d.AddDays(-1)
	}
	return d
}

func intensity(streak int) float64 {
	if streak <= 0 {
		return 0
	}
	return float64(min(streak, IntensitySaturation)) / IntensitySaturation
}

// level buckets a streak into 0-4 for terminal colour ramps.
func level(streak int) int {
	if streak <= 0 {
		return 0
	}
	return 1 + (min(streak, IntensitySaturation)-1)*3/(IntensitySaturation-1)
}
