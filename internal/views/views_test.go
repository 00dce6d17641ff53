package views

import (
	"strings"
	"testing"
)

func TestRenderHabitsPanelMarksSelectionAndState(t *testing.T) {
	out := RenderHabitsPanel(HabitsPanelData{
		SelectedID: "h2",
		Items: []HabitItemData{
			{ID: "h1", Title: "Read", Streak: 4, Best: 9, DoneToday: true},
			{ID: "h2", Title: "Run", Streak: 0, Best: 3, DueToday: true},
			{ID: "h3", Title: "Review", Streak: 1, Best: 1},
		},
	})
	for _, want := range []string{"  [x] Read  streak:4 best:9", "> [ ] Run  streak:0 best:3", "[-] Review"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderHabitsPanelEmpty(t *testing.T) {
	out := RenderHabitsPanel(HabitsPanelData{})
	if !strings.Contains(out, "no habits yet") {
		t.Fatalf("expected empty hint, got %q", out)
	}
}

func TestRenderHeatmapGrid(t *testing.T) {
	week := func(levels ...int) []HeatmapCellData {
		cells := make([]HeatmapCellData, 0, 7)
		for _, l := range levels {
			cells = append(cells, HeatmapCellData{Level: l, Completed: l > 0})
		}
		return cells
	}
	second := week(1, 2, 3, 4, 0, 0, 0)
	second[4].Protected = true
	second[6].Future = true

	out := RenderHeatmap(HeatmapPanelData{
		Title:         "Read",
		Weeks:         [][]HeatmapCellData{week(0, 0, 0, 0, 0, 0, 0), second},
		WeekdayLabels: []string{"Su", "Mo", "Tu", "We", "Th", "Fr", "Sa"},
		Chains:        []string{"2026-10-12 → 2026-10-15 (4 days)"},
	})
	lines := strings.Split(out, "\n")
	if lines[0] != "heatmap: Read" {
		t.Fatalf("unexpected title line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Su ") || !strings.HasPrefix(lines[7], "Sa ") {
		t.Fatalf("expected one row per weekday:\n%s", out)
	}
	if !strings.Contains(lines[5], "◆") {
		t.Fatalf("protected day should be marked on the thursday row: %q", lines[5])
	}
	if !strings.Contains(lines[7], "·") {
		t.Fatalf("future day should be dotted: %q", lines[7])
	}
	if !strings.Contains(out, "chains:") || !strings.Contains(out, "(4 days)") {
		t.Fatalf("expected chains section:\n%s", out)
	}
}

func TestRenderStatsPanel(t *testing.T) {
	out := RenderStatsPanel(StatsPanelData{
		Title:          "Meditate",
		Schedule:       "every day",
		CurrentStreak:  5,
		BestStreak:     12,
		AverageStreak:  3.5,
		Total:          40,
		Rates:          []RateData{{Label: "week", Percent: 71, Bar: "[#####--]"}},
		ProtectionLeft: 1,
		Target:         "3/5",
	})
	for _, want := range []string{"streak: 5 (best 12, average 3.5)", "completions: 40", "week", "71%", "weekly target: 3/5", "protection days left: 1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in stats:\n%s", want, out)
		}
	}
	if got := RenderStatsPanel(StatsPanelData{}); !strings.Contains(got, "no selection") {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestRenderUpcomingPanel(t *testing.T) {
	if out := RenderUpcomingPanel(UpcomingPanelData{}); !strings.Contains(out, "nothing scheduled") {
		t.Fatalf("expected empty placeholder, got %q", out)
	}
	out := RenderUpcomingPanel(UpcomingPanelData{TableView: "table", Rows: []UpcomingRowData{{Date: "2026-10-20"}}})
	if out != "upcoming:\ntable" {
		t.Fatalf("unexpected upcoming output %q", out)
	}
}

func TestRenderAppShowsStatusAndFooter(t *testing.T) {
	out := RenderApp(AppData{
		Header:     "streakd",
		LeftPane:   "left",
		RightPane:  "right",
		StatusLine: "status: ok",
		Footer:     "keys",
	})
	for _, want := range []string{"streakd", "left", "right", "status: ok", "keys"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in app view", want)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if got := RenderMarkdown("   "); got != "" {
		t.Fatalf("expected empty markdown output, got %q", got)
	}
}
