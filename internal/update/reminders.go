package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/scheduler"
)

const softFollowUp = 10 * time.Minute

// handleReminder surfaces a fired reminder. Hard reminders are shown as
// errors. Soft reminders repeat once after softFollowUp. Nagging reminders
// are requeued by the engine until acknowledged or completed.
func (m Model) handleReminder(ev scheduler.ReminderEvent, now time.Time) (Model, tea.Cmd) {
	m.ReminderLog = append(m.ReminderLog, ev)
	if len(m.ReminderLog) > 20 {
		m.ReminderLog = m.ReminderLog[len(m.ReminderLog)-20:]
	}

	done := m.completedOn(ev.HabitID, ev.Occurrence)
	replan := true
	switch strings.ToLower(strings.TrimSpace(ev.Type)) {
	case "hard":
		m.Status = StatusBar{Text: fmt.Sprintf("HARD reminder: %s is due %s", ev.Title, ev.Occurrence), IsError: true}
	case "soft":
		m.Status = StatusBar{Text: fmt.Sprintf("soft reminder: %s", ev.Title), IsError: false}
		key := ev.HabitID + "@" + ev.Occurrence.String()
		if !done && !m.SoftFollowedUp[key] {
			m.SoftFollowedUp[key] = true
			m.rescheduleReminder(ev, now.Add(softFollowUp))
			replan = false
		}
	case "nagging":
		m.Status = StatusBar{Text: fmt.Sprintf("nagging reminder: %s (press a to acknowledge)", ev.Title), IsError: false}
		replan = done
	default:
		m.Status = StatusBar{Text: fmt.Sprintf("reminder fired: %s", ev.Title), IsError: false}
	}
	m.notify("Reminder", m.Status.Text, levelFromError(m.Status.IsError))

	cmds := []tea.Cmd{recordReminderCmd(m.ctx, m.Backend, m.Scheduler, ev, now, replan)}
	if m.Scheduler != nil {
		cmds = append(cmds, waitForReminderCmd(m.Scheduler.C()))
	}
	return m, tea.Batch(cmds...)
}

// acknowledgeReminder drops the pending reminder of habitID and plans the
// one for its next occurrence.
func (m Model) acknowledgeReminder(habitID string) (Model, tea.Cmd) {
	if m.Scheduler == nil || habitID == "" {
		return m, nil
	}
	m.Scheduler.Cancel(habitID)
	title := habitID
	for _, row := range m.Habits {
		if row.ID == habitID {
			title = row.Title
		}
	}
	m.Status = StatusBar{Text: fmt.Sprintf("reminder acknowledged: %s", title), IsError: false}
	if m.Backend == nil {
		return m, nil
	}
	ctx, b, sched := m.ctx, m.Backend, m.Scheduler
	return m, func() tea.Msg {
		_, err := b.PlanReminder(ctx, sched, habitID)
		return ReminderRecordedMsg{Event: scheduler.ReminderEvent{HabitID: habitID}, Err: err}
	}
}

func (m *Model) rescheduleReminder(ev scheduler.ReminderEvent, next time.Time) {
	if m.Scheduler == nil {
		return
	}
	nextEv := ev
	nextEv.TriggerAt = next
	if err := m.Scheduler.Schedule(nextEv); err != nil {
		m.Status = StatusBar{Text: fmt.Sprintf("reminder reschedule failed: %v", err), IsError: true}
	}
}

func recordReminderCmd(ctx context.Context, b Backend, sched *scheduler.Engine, ev scheduler.ReminderEvent, at time.Time, replan bool) tea.Cmd {
	if b == nil {
		return nil
	}
	return func() tea.Msg {
		err := b.RecordReminderFired(ctx, ev, at)
		if err == nil && replan && sched != nil {
			_, err = b.PlanReminder(ctx, sched, ev.HabitID)
		}
		return ReminderRecordedMsg{Event: ev, Err: err}
	}
}

func (m Model) completedOn(habitID string, d calendar.Date) bool {
	for _, row := range m.Habits {
		if row.ID != habitID {
			continue
		}
		for _, c := range row.Cells {
			if c.Date.Equal(d) {
				return c.Completed
			}
		}
	}
	return false
}

func (m Model) pendingReminder(habitID string) string {
	if m.Scheduler == nil {
		return ""
	}
	loc := time.UTC
	if m.Backend != nil {
		loc = m.Backend.Calendar().Location()
	}
	for _, ev := range m.Scheduler.Pending() {
		if ev.HabitID == habitID {
			return fmt.Sprintf("%s at %s", ev.Type, ev.TriggerAt.In(loc).Format("2006-01-02 15:04"))
		}
	}
	return ""
}
