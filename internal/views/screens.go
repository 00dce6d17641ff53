package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type HabitItemData struct {
	ID        string
	Title     string
	Schedule  string
	Streak    int
	Best      int
	DoneToday bool
	DueToday  bool
}

type HabitsPanelData struct {
	ListView   string
	Items      []HabitItemData
	SelectedID string
}

type HabitDetailData struct {
	ID              string
	Title           string
	Schedule        string
	Next            string
	ProtectionLeft  int
	Reminder        string
	DescriptionView string
}

type HeatmapCellData struct {
	Date      string
	Level     int
	Streak    int
	Completed bool
	Protected bool
	Future    bool
	Today     bool
}

// HeatmapPanelData lays cells out one column per week. Weeks[i] holds the
// seven days of week i starting at the calendar's first weekday.
type HeatmapPanelData struct {
	Title         string
	Weeks         [][]HeatmapCellData
	WeekdayLabels []string
	Chains        []string
}

type RateData struct {
	Label   string
	Percent int
	Bar     string
}

type StatsPanelData struct {
	Title          string
	Schedule       string
	CurrentStreak  int
	BestStreak     int
	Total          int
	AverageStreak  float64
	Rates          []RateData
	ProtectionLeft int
	Target         string
	Next           string
}

type UpcomingRowData struct {
	Date     string
	Title    string
	Schedule string
}

type UpcomingPanelData struct {
	TableView string
	Rows      []UpcomingRowData
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

var levelColors = []lipgloss.Color{"237", "22", "28", "34", "46"}

var (
	protectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	todayStyle     = lipgloss.NewStyle().Underline(true)
)

func RenderHabitsPanel(data HabitsPanelData) string {
	var b strings.Builder
	b.WriteString("habits:\n")
	b.WriteString("actions: [space]done [u]undo [p]protect yesterday [s]skip today\n")
	if strings.TrimSpace(data.ListView) != "" {
		b.WriteString(data.ListView + "\n")
	}
	if len(data.Items) == 0 {
		b.WriteString("(no habits yet, try /add read every day)")
		return strings.TrimSpace(b.String())
	}
	for _, item := range data.Items {
		cursor := " "
		if item.ID == data.SelectedID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %s  streak:%d best:%d\n", cursor, checkbox(item), item.Title, item.Streak, item.Best))
	}
	return strings.TrimSpace(b.String())
}

func RenderHabitDetail(data HabitDetailData) string {
	if strings.TrimSpace(data.ID) == "" {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(titleStyle.Render(data.Title) + "\n")
	b.WriteString(fmt.Sprintf("id: %s\n", data.ID))
	b.WriteString(fmt.Sprintf("schedule: %s\n", data.Schedule))
	if data.Next != "" {
		b.WriteString(fmt.Sprintf("next: %s\n", data.Next))
	} else {
		b.WriteString("next: (no further occurrences)\n")
	}
	b.WriteString(fmt.Sprintf("protection days left: %d\n", data.ProtectionLeft))
	if data.Reminder != "" {
		b.WriteString(fmt.Sprintf("reminder: %s\n", data.Reminder))
	}
	if strings.TrimSpace(data.DescriptionView) != "" {
		b.WriteString("\n" + data.DescriptionView)
	}
	return strings.TrimSpace(b.String())
}

// RenderHeatmap draws one row per weekday and one column per week.
func RenderHeatmap(data HeatmapPanelData) string {
	var b strings.Builder
	b.WriteString("heatmap:")
	if data.Title != "" {
		b.WriteString(" " + data.Title)
	}
	b.WriteString("\n")
	if len(data.Weeks) == 0 {
		b.WriteString("(no data)")
		return b.String()
	}
	for row := 0; row < 7; row++ {
		label := ""
		if row < len(data.WeekdayLabels) {
			label = data.WeekdayLabels[row]
		}
		b.WriteString(fmt.Sprintf("%-3s ", label))
		for _, week := range data.Weeks {
			if row < len(week) {
				b.WriteString(renderCell(week[row]))
			} else {
				b.WriteString(" ")
			}
			b.WriteString(" ")
		}
		b.WriteString("\n")
	}
	b.WriteString(renderLegend() + "\n")
	if len(data.Chains) > 0 {
		b.WriteString("chains:\n")
		for _, c := range data.Chains {
			b.WriteString("- " + c + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderStatsPanel(data StatsPanelData) string {
	if data.Title == "" {
		return "stats:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("stats: " + titleStyle.Render(data.Title) + "\n")
	b.WriteString(fmt.Sprintf("schedule: %s\n", data.Schedule))
	b.WriteString(fmt.Sprintf("streak: %d (best %d, average %.1f)\n", data.CurrentStreak, data.BestStreak, data.AverageStreak))
	b.WriteString(fmt.Sprintf("completions: %d\n", data.Total))
	for _, r := range data.Rates {
		b.WriteString(fmt.Sprintf("%-8s %s %3d%%\n", r.Label, r.Bar, r.Percent))
	}
	if data.Target != "" {
		b.WriteString(fmt.Sprintf("weekly target: %s\n", data.Target))
	}
	b.WriteString(fmt.Sprintf("protection days left: %d\n", data.ProtectionLeft))
	if data.Next != "" {
		b.WriteString(fmt.Sprintf("next: %s\n", data.Next))
	}
	return strings.TrimSpace(b.String())
}

func RenderUpcomingPanel(data UpcomingPanelData) string {
	var b strings.Builder
	b.WriteString("upcoming:\n")
	if len(data.Rows) == 0 {
		b.WriteString("(nothing scheduled)")
		return b.String()
	}
	b.WriteString(data.TableView)
	return strings.TrimSpace(b.String())
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("\nnotification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func checkbox(item HabitItemData) string {
	switch {
	case item.DoneToday:
		return "[x]"
	case item.DueToday:
		return "[ ]"
	default:
		return "[-]"
	}
}

func renderCell(c HeatmapCellData) string {
	var out string
	switch {
	case c.Future:
		out = mutedStyle.Render("·")
	case c.Protected && !c.Completed:
		out = protectedStyle.Render("◆")
	default:
		lvl := c.Level
		if lvl < 0 {
			lvl = 0
		}
		if lvl >= len(levelColors) {
			lvl = len(levelColors) - 1
		}
		glyph := "■"
		if lvl == 0 {
			glyph = "□"
		}
		out = lipgloss.NewStyle().Foreground(levelColors[lvl]).Render(glyph)
	}
	if c.Today {
		out = todayStyle.Render(out)
	}
	return out
}

func renderLegend() string {
	parts := make([]string, 0, len(levelColors)+2)
	parts = append(parts, "less")
	for i := range levelColors {
		parts = append(parts, renderCell(HeatmapCellData{Level: i}))
	}
	parts = append(parts, "more", protectedStyle.Render("◆")+" protected")
	return strings.Join(parts, " ")
}
