package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/syncloop"
)

const (
	refreshInterval = 250 * time.Millisecond
	contextLines    = 3
)

type tickMsg time.Time

type updateMsg syncloop.DisplayUpdate

type updatesClosedMsg struct{}

type ModelConfig struct {
	Updates    <-chan syncloop.DisplayUpdate
	Position   func() int64
	Player     string
	HideHeader bool
}

// Model renders the sync loop's display updates. It never resolves or
// tracks anything itself.
type Model struct {
	updates  <-chan syncloop.DisplayUpdate
	position func() int64
	player   string

	current        syncloop.DisplayUpdate
	positionMillis int64
	hideHeader     bool
	quitting       bool
	width          int
	height         int
	tickCount      int
}

func NewModel(cfg ModelConfig) Model {
	return Model{
		updates:    cfg.Updates,
		position:   cfg.Position,
		player:     cfg.Player,
		hideHeader: cfg.HideHeader,
		current:    syncloop.DisplayUpdate{LineIndex: -1},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.listenForUpdates())
}

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) listenForUpdates() tea.Cmd {
	if m.updates == nil {
		return nil
	}

	return func() tea.Msg {
		u, ok := <-m.updates
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

func (m Model) Current() syncloop.DisplayUpdate { return m.current }
func (m Model) IsQuitting() bool                { return m.quitting }
