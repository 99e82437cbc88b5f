package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/syncloop"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case updateMsg:
		m.current = syncloop.DisplayUpdate(msg)
		m.positionMillis = msg.PositionMillis
		return m, m.listenForUpdates()

	case updatesClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		m.tickCount++
		if m.position != nil && m.current.State != syncloop.NoTrack {
			m.positionMillis = m.position()
		}
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		return m, nil
	}

	return m, nil
}
