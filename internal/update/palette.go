package update

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed", IsError: false}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		return m.executePaletteCommand()
	default:
		switch msg.Type {
		case tea.KeyRunes:
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		case tea.KeySpace:
			m.commandInput.SetValue(m.commandInput.Value() + " ")
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
	return m, nil
}

// executePaletteCommand closes the palette and hands the input to the
// backend; the outcome comes back as a CommandResultMsg.
func (m Model) executePaletteCommand() (Model, tea.Cmd) {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	if raw == "" {
		m.Status = StatusBar{Text: "command is empty", IsError: true}
		return m, nil
	}
	if m.Backend == nil {
		m.Status = StatusBar{Text: "no habit store configured", IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: "running: /" + strings.TrimPrefix(raw, "/"), IsError: false}
	return m, m.runCommand(raw)
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}
