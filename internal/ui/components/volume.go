package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// VolumeMeter renders a volume on a 0..Scale range. Values past Scale are
// gain boost and shown in a warning color.
type VolumeMeter struct {
	Scale       uint32
	Slots       int
	FilledStyle lipgloss.Style
	BoostStyle  lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewVolumeMeter creates a ten-slot meter
func NewVolumeMeter(scale uint32) VolumeMeter {
	return VolumeMeter{
		Scale:       scale,
		Slots:       10,
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		BoostStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Filled returns how many slots a volume fills, capped at Slots
func (v VolumeMeter) Filled(volume uint32) int {
	if v.Scale == 0 {
		return 0
	}
	return min(int(uint64(volume)*uint64(v.Slots)/uint64(v.Scale)), v.Slots)
}

// Percent returns volume as a percentage of Scale
func (v VolumeMeter) Percent(volume uint32) int {
	if v.Scale == 0 {
		return 0
	}
	return int(uint64(volume) * 100 / uint64(v.Scale))
}

// View renders the meter followed by the percentage
func (v VolumeMeter) View(volume uint32) string {
	filled := v.Filled(volume)
	style := v.FilledStyle
	if volume > v.Scale {
		style = v.BoostStyle
	}

	return style.Render(strings.Repeat("●", filled)) +
		v.EmptyStyle.Render(strings.Repeat("○", v.Slots-filled)) +
		fmt.Sprintf(" %d%%", v.Percent(volume))
}
