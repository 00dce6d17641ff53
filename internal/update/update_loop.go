package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/views"
)

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if load := m.reload(); load != nil {
		cmds = append(cmds, load)
	}
	if m.Scheduler != nil {
		cmds = append(cmds, waitForReminderCmd(m.Scheduler.C()))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncBubbleData()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active", IsError: false}
			return m, nil
		case m.Keys.Habits:
			m.CurrentView = ViewHabits
			return m, nil
		case m.Keys.Heatmap:
			m.CurrentView = ViewHeatmap
			return m, nil
		case m.Keys.Stats:
			m.CurrentView = ViewStats
			return m, nil
		case m.Keys.Upcoming:
			m.CurrentView = ViewUpcoming
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown", IsError: false}
			} else {
				m.Status = StatusBar{Text: "help hidden", IsError: false}
			}
			return m, nil
		case "r":
			m.Status = StatusBar{Text: "reloading", IsError: false}
			return m, m.reload()
		case "D":
			m.cycleDensity()
			return m, nil
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		return m.handleHabitKey(typed)
	case spinner.TickMsg:
		if m.Loading {
			var cmd tea.Cmd
			m.loadSpinner, cmd = m.loadSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case HabitsLoadedMsg:
		m.Loading = false
		if typed.Err != nil {
			m.LastError = typed.Err
			m.Status = StatusBar{Text: fmt.Sprintf("load habits: %v", typed.Err), IsError: true}
			m.logger.Warn("load habits failed", zap.Error(typed.Err))
			return m, nil
		}
		m.Habits = typed.Rows
		if m.SelectedHabitID != "" {
			m.selectID(m.SelectedHabitID)
		} else {
			m.selectIndex(0)
		}
		return m, nil
	case CommandResultMsg:
		return m.applyCommandResult(typed)
	case ReminderDueMsg:
		return m.handleReminder(typed.Event, time.Now().UTC())
	case ReminderRecordedMsg:
		if typed.Err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("reminder bookkeeping failed: %v", typed.Err), IsError: true}
			m.logger.Warn("record reminder failed", zap.String("habit_id", typed.Event.HabitID), zap.Error(typed.Err))
		}
		return m, nil
	case AcknowledgeReminderMsg:
		return m.acknowledgeReminder(typed.HabitID)
	}

	return m, nil
}

// handleHabitKey maps single-key actions onto the same slash commands the
// palette accepts.
func (m Model) handleHabitKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.selectIndex(m.Cursor + 1)
		return m, nil
	case "k", "up":
		m.selectIndex(m.Cursor - 1)
		return m, nil
	case " ", "x":
		return m, m.runCommand("done")
	case "u":
		return m, m.runCommand("undo")
	case "p":
		return m, m.runCommand("protect")
	case "s":
		return m, m.runCommand("skip")
	case "a":
		if m.SelectedHabitID == "" {
			return m, nil
		}
		return m.acknowledgeReminder(m.SelectedHabitID)
	case "+", "=":
		return m.resizeHeatmap(4)
	case "-":
		return m.resizeHeatmap(-4)
	}
	return m, nil
}

func (m Model) resizeHeatmap(delta int) (Model, tea.Cmd) {
	weeks := m.HeatmapWeeks + delta
	if weeks < minHeatmapWeeks {
		weeks = minHeatmapWeeks
	}
	if weeks > maxHeatmapWeeks {
		weeks = maxHeatmapWeeks
	}
	if weeks == m.HeatmapWeeks {
		return m, nil
	}
	m.HeatmapWeeks = weeks
	m.Status = StatusBar{Text: fmt.Sprintf("heatmap: %d weeks", weeks), IsError: false}
	return m, m.reload()
}

func (m Model) runCommand(raw string) tea.Cmd {
	if m.Backend == nil {
		return nil
	}
	return runCommandCmd(m.ctx, m.Backend, m.Scheduler, raw, m.SelectedHabitID)
}

func (m Model) applyCommandResult(msg CommandResultMsg) (Model, tea.Cmd) {
	if msg.Err != nil {
		m.LastError = msg.Err
		m.Status = StatusBar{Text: msg.Err.Error(), IsError: true}
		m.notify("Command Failed", msg.Err.Error(), "error")
		return m, nil
	}
	if msg.Result.HabitID != "" {
		m.SelectedHabitID = msg.Result.HabitID
	}
	if msg.View != "" {
		m.CurrentView = msg.View
	}
	m.Status = StatusBar{Text: msg.Result.Message, IsError: false}
	m.notify("Command", msg.Result.Message, "info")
	if msg.PlanErr != nil {
		m.logger.Warn("plan reminder failed", zap.String("habit_id", msg.Result.HabitID), zap.Error(msg.PlanErr))
	}
	return m, m.reload()
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	leftPane := ""
	switch m.CurrentView {
	case ViewHabits:
		leftPane = m.renderHabitsView()
	case ViewHeatmap:
		leftPane = m.renderHeatmapView()
	case ViewStats:
		leftPane = m.renderStatsView()
	case ViewUpcoming:
		leftPane = m.renderUpcomingView()
	}
	rightPane := strings.TrimSpace(strings.Join([]string{
		m.renderDetailPane(),
		m.renderCommandPalette(),
		m.renderHelpIfVisible(),
	}, "\n\n"))

	notificationView := ""
	if len(m.ReminderLog) > 0 {
		last := m.ReminderLog[len(m.ReminderLog)-1]
		notificationView = fmt.Sprintf("last-reminder: %s (%s) @ %s", last.Title, last.Type, last.TriggerAt.Format("15:04:05"))
	}
	if m.Loading {
		notificationView = strings.TrimSpace(strings.Join([]string{notificationView, "loading: " + m.loadSpinner.View()}, "\n"))
	}
	notificationView = strings.TrimSpace(strings.Join([]string{
		notificationView,
		strings.TrimSpace(m.renderNotificationsView()),
	}, "\n"))

	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("streakd | view: %s | selected: %s", m.CurrentView, m.selectedTitle()),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: notificationView,
		Footer: fmt.Sprintf("keys: %s habits | %s heatmap | %s stats | %s upcoming | / cmd | %s help | %s quit",
			m.Keys.Habits, m.Keys.Heatmap, m.Keys.Stats, m.Keys.Upcoming, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) selectedTitle() string {
	if row, ok := m.selected(); ok {
		return row.Title
	}
	return ""
}

func isKnownView(v View) bool {
	switch v {
	case ViewHabits, ViewHeatmap, ViewStats, ViewUpcoming:
		return true
	default:
		return false
	}
}
