package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"

	"github.com/sandeepkv93/streakd/internal/calendar"
	"github.com/sandeepkv93/streakd/internal/commands"
	"github.com/sandeepkv93/streakd/internal/config"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/scheduler"
	"github.com/sandeepkv93/streakd/internal/service"
)

type View string

const (
	ViewHabits   View = "Habits"
	ViewHeatmap  View = "Heatmap"
	ViewStats    View = "Stats"
	ViewUpcoming View = "Upcoming"
)

const (
	defaultHeatmapWeeks = 12
	minHeatmapWeeks     = 4
	maxHeatmapWeeks     = 52
	upcomingPerHabit    = 5
)

// Backend is what the TUI needs from service.HabitService.
type Backend interface {
	commands.Backend
	Tracker() habit.Tracker
	ListHabits(ctx context.Context, includeArchived bool) ([]*habit.Habit, error)
	NextDue(h *habit.Habit) (calendar.Date, bool)
	HeatmapRange(weeks int) (calendar.Date, calendar.Date)
	PlanReminder(ctx context.Context, sched service.ReminderScheduler, habitID string) (bool, error)
	RecordReminderFired(ctx context.Context, ev scheduler.ReminderEvent, at time.Time) error
}

var _ Backend = (*service.HabitService)(nil)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Habits   string
	Heatmap  string
	Stats    string
	Upcoming string
	Help     string
	Quit     string
}

// HabitRow is a loaded habit with everything the views display.
type HabitRow struct {
	ID          string
	Title       string
	Description string
	Summary     habit.Summary
	DueToday    bool
	Next        calendar.Date
	HasNext     bool
	Target      int
	Cells       []habit.Cell
	Chains      []habit.Run
	Upcoming    []calendar.Date
}

type Model struct {
	CurrentView     View
	SelectedHabitID string
	Habits          []HabitRow
	Cursor          int
	HeatmapWeeks    int
	Backend         Backend
	Scheduler       *scheduler.Engine
	ReminderLog     []scheduler.ReminderEvent
	SoftFollowedUp  map[string]bool
	Palette         CommandPaletteState
	HelpVisible     bool
	Notifications   []Notification
	DesktopEnabled  bool
	notifier        DesktopNotifier
	Status          StatusBar
	Keys            GlobalKeyMap
	Quitting        bool
	Loading         bool
	LastError       error
	ctx             context.Context
	logger          *zap.Logger
	// Bubble components used for rich TUI controls
	habitList     list.Model
	upcomingTable table.Model
	commandInput  textinput.Model
	rateBar       progress.Model
	loadSpinner   spinner.Model
	helpModel     help.Model
	descViewport  viewport.Model
	uiDensity     int
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type listItem struct {
	title       string
	description string
}

func (i listItem) FilterValue() string { return i.title + " " + i.description }
func (i listItem) Title() string       { return i.title }
func (i listItem) Description() string { return i.description }

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// HabitsLoadedMsg replaces the loaded habits.
type HabitsLoadedMsg struct {
	Rows []HabitRow
	Err  error
}

// CommandResultMsg reports a palette command or key action run against the
// backend. View is set by show commands.
type CommandResultMsg struct {
	Input   string
	Type    commands.Type
	Result  commands.Result
	View    View
	Err     error
	PlanErr error
}

type ReminderDueMsg struct {
	Event scheduler.ReminderEvent
}

// ReminderRecordedMsg follows a fired reminder once it has been stamped and
// the next one planned.
type ReminderRecordedMsg struct {
	Event scheduler.ReminderEvent
	Err   error
}

// AcknowledgeReminderMsg silences the pending reminder of a habit until its
// next occurrence.
type AcknowledgeReminderMsg struct {
	HabitID string
}

func NewModel(b Backend) Model {
	m := Model{
		CurrentView:    ViewHabits,
		HeatmapWeeks:   defaultHeatmapWeeks,
		Backend:        b,
		SoftFollowedUp: make(map[string]bool),
		DesktopEnabled: false,
		notifier:       NoopDesktopNotifier{},
		ctx:            context.Background(),
		logger:         zap.NewNop(),
		Keys: GlobalKeyMap{
			Habits:   "1",
			Heatmap:  "2",
			Stats:    "3",
			Upcoming: "4",
			Help:     "?",
			Quit:     "q",
		},
		uiDensity: 1,
	}
	m.initBubbleComponents()
	m.syncBubbleData()
	return m
}

func NewModelWithScheduler(b Backend, engine *scheduler.Engine) Model {
	m := NewModel(b)
	m.Scheduler = engine
	return m
}

func NewModelWithConfig(b Backend, engine *scheduler.Engine, notifier DesktopNotifier, cfg config.RuntimeConfig, logger *zap.Logger) Model {
	m := NewModelWithScheduler(b, engine)
	m.DesktopEnabled = cfg.DesktopNotifications
	if notifier != nil {
		m.notifier = notifier
	}
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m Model) selected() (HabitRow, bool) {
	for _, row := range m.Habits {
		if row.ID == m.SelectedHabitID {
			return row, true
		}
	}
	return HabitRow{}, false
}

func (m *Model) selectIndex(i int) {
	if len(m.Habits) == 0 {
		m.Cursor = 0
		m.SelectedHabitID = ""
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.Habits) {
		i = len(m.Habits) - 1
	}
	m.Cursor = i
	m.SelectedHabitID = m.Habits[i].ID
}

func (m *Model) selectID(id string) {
	for i, row := range m.Habits {
		if strings.EqualFold(row.ID, id) {
			m.selectIndex(i)
			return
		}
	}
	m.selectIndex(m.Cursor)
}
