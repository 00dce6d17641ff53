package update

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/streakd/internal/commands"
	"github.com/sandeepkv93/streakd/internal/habit"
	"github.com/sandeepkv93/streakd/internal/scheduler"
	"github.com/sandeepkv93/streakd/internal/views"
)

func (m *Model) initBubbleComponents() {
	m.habitList = list.New([]list.Item{}, list.NewDefaultDelegate(), 56, 12)
	m.habitList.Title = "Habits (list)"
	m.habitList.SetShowHelp(false)
	m.habitList.SetFilteringEnabled(false)

	cols := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Habit", Width: 22},
		{Title: "Schedule", Width: 18},
	}
	m.upcomingTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(10))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.rateBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage())

	m.loadSpinner = spinner.New()
	m.loadSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.descViewport = viewport.New(54, 8)
}

func (m *Model) syncBubbleData() {
	listWidth, listHeight, tableHeight, viewportHeight := densityDimensions(m.uiDensity)
	m.habitList.SetSize(listWidth, listHeight)
	m.upcomingTable.SetHeight(tableHeight)
	m.descViewport.Height = viewportHeight

	items := make([]list.Item, 0, len(m.Habits))
	for _, row := range m.Habits {
		desc := fmt.Sprintf("%s | streak %d", row.Summary.Schedule, row.Summary.CurrentStreak)
		items = append(items, listItem{title: row.Title, description: desc})
	}
	m.habitList.SetItems(items)
	if len(items) > 0 && m.Cursor < len(items) {
		m.habitList.Select(m.Cursor)
	}

	rows := make([]table.Row, 0)
	for _, r := range m.upcomingRows() {
		rows = append(rows, table.Row{r.Date, r.Title, r.Schedule})
	}
	m.upcomingTable.SetRows(rows)

	m.commandInput.SetValue(m.Palette.Input)
	if m.Palette.Active {
		m.commandInput.Focus()
	}

	if sel, ok := m.selected(); ok {
		md := sel.Description
		if strings.TrimSpace(md) == "" {
			md = "_No description_"
		}
		m.descViewport.SetContent(views.RenderMarkdown(md))
	} else {
		m.descViewport.SetContent("")
	}
}

func densityDimensions(level int) (listWidth int, listHeight int, tableHeight int, viewportHeight int) {
	switch level {
	case 2:
		return 60, 14, 12, 10
	case 3:
		return 64, 16, 14, 12
	default:
		return 56, 12, 10, 8
	}
}

func (m *Model) cycleDensity() {
	m.uiDensity++
	if m.uiDensity > 3 {
		m.uiDensity = 1
	}
	m.Status = StatusBar{
		Text:    fmt.Sprintf("density level: %d", m.uiDensity),
		IsError: false,
	}
}

// reload starts a background load and the loading spinner.
func (m *Model) reload() tea.Cmd {
	if m.Backend == nil {
		return nil
	}
	m.Loading = true
	return tea.Batch(m.loadSpinner.Tick, loadHabitsCmd(m.ctx, m.Backend, m.HeatmapWeeks))
}

func loadHabitsCmd(ctx context.Context, b Backend, weeks int) tea.Cmd {
	return func() tea.Msg {
		habits, err := b.ListHabits(ctx, false)
		if err != nil {
			return HabitsLoadedMsg{Err: err}
		}
		tracker := b.Tracker()
		cal := tracker.Calendar()
		today := cal.Today()
		from, to := b.HeatmapRange(weeks)

		rows := make([]HabitRow, 0, len(habits))
		for _, h := range habits {
			row := HabitRow{
				ID:          h.ID,
				Title:       h.Task.Title,
				Description: h.Task.Description,
				Summary:     tracker.Summarize(h),
				DueToday:    h.Rule.IsValidOccurrence(cal, today),
				Target:      h.TargetCompletionsPerPeriod,
				Cells:       habit.Heatmap(h, from, to),
				Chains:      habit.Chains(h, from, to),
				Upcoming:    h.Rule.Preview(cal, today.AddDays(-1), upcomingPerHabit),
			}
			row.Next, row.HasNext = b.NextDue(h)
			rows = append(rows, row)
		}
		return HabitsLoadedMsg{Rows: rows}
	}
}

// runCommandCmd parses and executes a slash command against the backend,
// then plans the next reminder of the habit it touched.
func runCommandCmd(ctx context.Context, b Backend, sched *scheduler.Engine, raw, selectedID string) tea.Cmd {
	return func() tea.Msg {
		cmd, err := commands.Parse(raw)
		if err != nil {
			return CommandResultMsg{Input: raw, Err: err}
		}

		var view View
		handlers := commands.Bind(ctx, b, selectedID)
		handlers.Show = func(s commands.ShowArgs) (commands.Result, error) {
			view = viewForSubject(s.Subject)
			res := commands.Result{Message: "showing " + s.Subject}
			if s.Target != commands.TargetSelected {
				h, err := b.FindHabit(ctx, s.Target)
				if err != nil {
					return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
				}
				res.HabitID = h.ID
			}
			return res, nil
		}

		res, err := commands.Execute(cmd, handlers)
		msg := CommandResultMsg{Input: raw, Type: cmd.Type, Result: res, View: view, Err: err}
		if err == nil && cmd.Type != commands.TypeShow && res.HabitID != "" && sched != nil {
			if _, perr := b.PlanReminder(ctx, sched, res.HabitID); perr != nil {
				msg.PlanErr = perr
			}
		}
		return msg
	}
}

func viewForSubject(subject string) View {
	switch subject {
	case "heatmap":
		return ViewHeatmap
	case "stats":
		return ViewStats
	case "upcoming":
		return ViewUpcoming
	default:
		return ViewHabits
	}
}

func waitForReminderCmd(ch <-chan scheduler.ReminderEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Event: ev}
	}
}

func (m Model) renderHabitsView() string {
	items := make([]views.HabitItemData, 0, len(m.Habits))
	for _, row := range m.Habits {
		items = append(items, views.HabitItemData{
			ID:        row.ID,
			Title:     row.Title,
			Schedule:  row.Summary.Schedule,
			Streak:    row.Summary.CurrentStreak,
			Best:      row.Summary.BestStreak,
			DoneToday: row.Summary.CompletedToday,
			DueToday:  row.DueToday,
		})
	}
	listView := ""
	if m.uiDensity > 1 {
		listView = m.habitList.View()
	}
	return views.RenderHabitsPanel(views.HabitsPanelData{
		ListView:   listView,
		Items:      items,
		SelectedID: m.SelectedHabitID,
	})
}

func (m Model) renderHeatmapView() string {
	row, ok := m.selected()
	if !ok {
		return views.RenderHeatmap(views.HeatmapPanelData{})
	}
	cal := m.Backend.Calendar()
	today := cal.Today()

	weeks := make([][]views.HeatmapCellData, 0, len(row.Cells)/7+1)
	for i := 0; i < len(row.Cells); i += 7 {
		end := i + 7
		if end > len(row.Cells) {
			end = len(row.Cells)
		}
		week := make([]views.HeatmapCellData, 0, 7)
		for _, c := range row.Cells[i:end] {
			week = append(week, views.HeatmapCellData{
				Date:      c.Date.String(),
				Level:     c.Level,
				Streak:    c.Streak,
				Completed: c.Completed,
				Protected: c.Protected,
				Future:    c.Date.After(today),
				Today:     c.Date.Equal(today),
			})
		}
		weeks = append(weeks, week)
	}

	labels := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		d := (int(cal.FirstWeekday()) + i) % 7
		labels = append(labels, dayLabel(d))
	}

	chains := make([]string, 0, len(row.Chains))
	for _, run := range row.Chains {
		line := fmt.Sprintf("%s → %s (%d days)", run.Start, run.End, run.Length)
		if run.Bridged > 0 {
			line += fmt.Sprintf(", %d protected", run.Bridged)
		}
		chains = append(chains, line)
	}

	return views.RenderHeatmap(views.HeatmapPanelData{
		Title:         fmt.Sprintf("%s (%d weeks)", row.Title, m.HeatmapWeeks),
		Weeks:         weeks,
		WeekdayLabels: labels,
		Chains:        chains,
	})
}

func (m Model) renderStatsView() string {
	row, ok := m.selected()
	if !ok {
		return views.RenderStatsPanel(views.StatsPanelData{})
	}
	s := row.Summary
	rates := []struct {
		label string
		value float64
	}{
		{"week", s.WeeklyRate},
		{"month", s.MonthlyRate},
		{"year", s.YearlyRate},
		{"overall", s.CompletionRate},
	}
	data := views.StatsPanelData{
		Title:          row.Title,
		Schedule:       s.Schedule,
		CurrentStreak:  s.CurrentStreak,
		BestStreak:     s.BestStreak,
		Total:          s.TotalCompletions,
		AverageStreak:  s.AverageStreak,
		ProtectionLeft: s.ProtectionDaysLeft,
	}
	for _, r := range rates {
		data.Rates = append(data.Rates, views.RateData{
			Label:   r.label,
			Percent: percent(r.value),
			Bar:     m.rateBar.ViewAs(r.value),
		})
	}
	if s.HasTarget {
		data.Target = fmt.Sprintf("%d%% of %d", percent(s.TargetProgress), row.Target)
	}
	if row.HasNext {
		data.Next = row.Next.String()
	}
	return views.RenderStatsPanel(data)
}

func (m Model) renderUpcomingView() string {
	return views.RenderUpcomingPanel(views.UpcomingPanelData{
		TableView: m.upcomingTable.View(),
		Rows:      m.upcomingRows(),
	})
}

// upcomingRows merges every habit's next occurrences, soonest first.
func (m Model) upcomingRows() []views.UpcomingRowData {
	out := make([]views.UpcomingRowData, 0)
	for _, h := range m.Habits {
		for _, d := range h.Upcoming {
			out = append(out, views.UpcomingRowData{Date: d.String(), Title: h.Title, Schedule: h.Summary.Schedule})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (m Model) renderDetailPane() string {
	row, ok := m.selected()
	if !ok {
		return views.RenderHabitDetail(views.HabitDetailData{})
	}
	data := views.HabitDetailData{
		ID:              row.ID,
		Title:           row.Title,
		Schedule:        row.Summary.Schedule,
		ProtectionLeft:  row.Summary.ProtectionDaysLeft,
		Reminder:        m.pendingReminder(row.ID),
		DescriptionView: m.descViewport.View(),
	}
	if row.HasNext {
		data.Next = row.Next.String()
	}
	return views.RenderHabitDetail(data)
}

func dayLabel(weekday int) string {
	names := []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"}
	return names[weekday%7]
}

func percent(ratio float64) int {
	return int(ratio*100 + 0.5)
}
