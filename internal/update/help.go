package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/streakd/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Habits, Action: "switch to Habits"},
		{Key: m.Keys.Heatmap, Action: "switch to Heatmap"},
		{Key: m.Keys.Stats, Action: "switch to Stats"},
		{Key: m.Keys.Upcoming, Action: "switch to Upcoming"},
		{Key: "/", Action: "open command palette"},
		{Key: "r", Action: "reload habits"},
		{Key: "D", Action: "cycle density"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	marks := []KeyBinding{
		{Key: "j/k", Action: "move selection"},
		{Key: "space/x", Action: "mark done today"},
		{Key: "u", Action: "undo today"},
		{Key: "p", Action: "protect yesterday"},
		{Key: "s", Action: "skip today"},
		{Key: "a", Action: "acknowledge reminder"},
	}
	switch m.CurrentView {
	case ViewHabits, ViewStats:
		return marks
	case ViewHeatmap:
		return append(marks, KeyBinding{Key: "+/-", Action: "more/fewer weeks"})
	case ViewUpcoming:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
