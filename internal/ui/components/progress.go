package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar shows how far the cursor is through the source material
type ProgressBar struct {
	Width       int
	Elapsed     time.Duration
	Total       time.Duration
	BarChar     string
	EmptyChar   string
	ShowTime    bool
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		ShowTime:    true,
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress sets the elapsed and total source time
func (p *ProgressBar) SetProgress(elapsed, total time.Duration) {
	p.Elapsed = elapsed
	p.Total = total
}

// Fraction returns progress clamped to [0, 1]
func (p ProgressBar) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(max(float64(p.Elapsed)/float64(p.Total), 0), 1)
}

// View renders the progress bar
func (p ProgressBar) View() string {
	barWidth := p.Width
	if p.ShowTime {
		barWidth -= 14 // room for " MM:SS/MM:SS"
	}
	barWidth = max(barWidth, 10)

	filled := int(float64(barWidth) * p.Fraction())

	var sb strings.Builder
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, barWidth-filled)))

	if p.ShowTime {
		fmt.Fprintf(&sb, " %s/%s", formatDuration(p.Elapsed), formatDuration(p.Total))
	}
	return sb.String()
}

// formatDuration formats a duration as MM:SS, or H:MM:SS past an hour
func formatDuration(d time.Duration) string {
	d = max(d, 0).Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
