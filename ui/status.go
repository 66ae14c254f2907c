package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/t2s-studio/t2s/internal/playback"
)

const ellipsis = "…"

var (
	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}).
			Background(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#353533"})

	stateStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500")).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"})
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// statusView describes one frame of the status bar.
type statusView struct {
	state        playback.State
	position     playback.Position
	speed        float64
	voice        string
	pitch        float64
	synthesizing bool
	spinner      string
	notice       string
}

func stateColor(s playback.State) lipgloss.Color {
	switch s {
	case playback.StatePlaying:
		return lipgloss.Color("#00FF00")
	case playback.StateStopped:
		return lipgloss.Color("#FFFF00")
	default:
		return lipgloss.Color("#808080")
	}
}

func stateGlyph(s playback.State) string {
	switch s {
	case playback.StatePlaying:
		return "▶"
	case playback.StateStopped:
		return "⏸"
	default:
		return "■"
	}
}

// formatPitch renders semitones with an explicit sign.
func formatPitch(p float64) string {
	if p == 0 {
		return "pitch 0"
	}
	return fmt.Sprintf("pitch %+g", p)
}

// render lays the bar out on a single line no wider than width.
func (s statusView) render(width int) string {
	glyph := stateGlyph(s.state)
	if s.synthesizing {
		glyph = s.spinner
	}
	left := stateStyle.Foreground(stateColor(s.state)).Render(glyph)

	parts := []string{
		s.position.String(),
		playback.FormatSpeed(s.speed),
		s.voice,
		formatPitch(s.pitch),
	}
	body := strings.Join(parts, "  ")

	var right string
	if s.notice != "" {
		right = noticeStyle.Render(s.notice)
	}

	line := left + body
	if right != "" {
		gap := width - lipgloss.Width(line) - lipgloss.Width(right)
		if gap < 1 {
			gap = 1
		}
		line += strings.Repeat(" ", gap) + right
	}
	if width > 0 {
		line = truncate.StringWithTail(line, uint(width), ellipsis) //nolint:gosec
	}
	return statusBarStyle.Width(max(width, 0)).Render(line)
}

// helpView renders a one line key reference.
func helpView(bindings []key.Binding, width int) string {
	items := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		items = append(items, h.Key+" "+dimStyle.Render(h.Desc))
	}
	line := strings.Join(items, dimStyle.Render(" • "))
	if width > 0 {
		line = truncate.StringWithTail(line, uint(width), ellipsis) //nolint:gosec
	}
	return helpStyle.Render(line)
}
