package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/lyricsync/internal/syncloop"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E0E0E0")).Bold(true)
	artistStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#606060"))
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	pastStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#505050"))
	futureStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	filledStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	if m.current.State == syncloop.NoTrack {
		return m.renderWaitingScreen(width, height)
	}

	var lines []string
	if !m.hideHeader {
		lines = append(lines, m.renderHeader(width)...)
	}

	bodyHeight := height - len(lines)
	lines = append(lines, m.renderBody(width, bodyHeight)...)

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderWaitingScreen(width, height int) string {
	lines := make([]string, height)

	pulse := []string{"·", "•", "●", "•"}
	text := "awaiting music"
	if m.player != "" {
		text = fmt.Sprintf("awaiting music from %s", m.player)
	}

	center := height / 2
	if center-1 >= 0 {
		lines[center-1] = centerText(dimStyle.Italic(true).Render(text), width)
	}
	lines[center] = centerText(artistStyle.Render(pulse[(m.tickCount/4)%len(pulse)]), width)

	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(width int) []string {
	trk := m.current.Track

	lines := []string{""}
	lines = append(lines, "  "+titleStyle.Render(trk.Title))
	if trk.Artist != "" {
		lines = append(lines, "  "+artistStyle.Render(trk.Artist))
	}
	if trk.Album != "" {
		lines = append(lines, "  "+dimStyle.Render(trk.Album))
	}
	lines = append(lines, "")

	if trk.DurationMillis > 0 {
		lines = append(lines, m.renderProgress(width), "")
	}

	return lines
}

func (m Model) renderProgress(width int) string {
	duration := m.current.Track.DurationMillis

	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}

	progress := float64(m.positionMillis) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}
	filled := int(float64(barWidth) * progress)

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(filledStyle.Render("━"))
		case i == filled:
			bar.WriteString(filledStyle.Render("●"))
		default:
			bar.WriteString(dimStyle.Render("─"))
		}
	}

	return fmt.Sprintf("  %s  %s  %s",
		dimStyle.Render(formatClock(m.positionMillis)),
		bar.String(),
		dimStyle.Render(formatClock(duration)))
}

func (m Model) renderBody(width, height int) []string {
	if height <= 0 {
		return nil
	}

	switch {
	case m.current.State == syncloop.Resolving:
		return padVertically([]string{centerText(dimStyle.Render("searching for lyrics…"), width)}, height)
	case m.current.NoLyrics:
		return padVertically([]string{centerText(dimStyle.Render("no lyrics found"), width)}, height)
	}

	doc := m.current.Document
	index := m.current.LineIndex

	var body []string
	for i := index - contextLines; i <= index+contextLines; i++ {
		line, ok := doc.Line(i)
		if !ok {
			body = append(body, "")
			continue
		}

		text := line.Text
		if text == "" {
			text = "♪"
		}

		style := futureStyle
		switch {
		case i == index:
			style = currentStyle
		case i < index:
			style = pastStyle
		}
		body = append(body, centerText(style.Render(text), width))
	}

	return padVertically(body, height)
}

func padVertically(lines []string, height int) []string {
	if len(lines) >= height {
		return lines[:height]
	}

	top := (height - len(lines)) / 2
	out := make([]string, 0, height)
	for i := 0; i < top; i++ {
		out = append(out, "")
	}
	return append(out, lines...)
}

func centerText(text string, width int) string {
	visible := lipgloss.Width(text)
	if visible >= width {
		return text
	}
	return strings.Repeat(" ", (width-visible)/2) + text
}

func formatClock(millis int64) string {
	if millis < 0 {
		millis = 0
	}
	seconds := millis / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
