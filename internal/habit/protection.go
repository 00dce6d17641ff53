package habit

import (
	"time"

	"github.com/sandeepkv93/streakd/internal/calendar"
)

const MaxProtectionDaysPerMonth = 2

// AvailableProtectionDays is the quota left for the current month. A last
// use in an earlier month reads as a fresh quota; stored state is untouched.
func (t Tracker) AvailableProtectionDays(h *Habit) int {
	return MaxProtectionDaysPerMonth - usedThisMonth(h, t.cal.Today())
}

// UseProtectionDay registers on's calendar day as protected so a single
// missed day there does not break the streak. It returns false and changes
// nothing when this month's quota is spent. Protecting an already protected
// day succeeds without consuming quota.
//
// The quota is charged to the month the protection is used in, so
// LastProtectionDate records today rather than the protected day.
func (t Tracker) UseProtectionDay(h *Habit, on time.Time) bool {
	d := t.cal.DateOf(on)
	today := t.cal.Today()
	if h.IsProtected(d) {
		return true
	}
	used := usedThisMonth(h, today)
	if used >= MaxProtectionDaysPerMonth {
		return false
	}
	if h.protected == nil {
		h.protected = make(map[calendar.Date]struct{})
	}
	h.protected[d] = struct{}{}
	h.ProtectionDaysUsed = used + 1
	h.LastProtectionDate = today
	t.recompute(h, today)
	return true
}

func usedThisMonth(h *Habit, today calendar.Date) int {
	last := h.LastProtectionDate
	if last.IsZero() {
		return 0
	}
	if last.Year < today.Year || (last.Year == today.Year && last.Month < today.Month) {
		return 0
	}
	return h.ProtectionDaysUsed
}
