package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/golang_playback_engine/api"
	"github.com/jscyril/golang_playback_engine/internal/audio"
	"github.com/jscyril/golang_playback_engine/internal/ui/components"
)

// PlayerView displays the engine's current snapshot
type PlayerView struct {
	Width       int
	Height      int
	Snapshot    api.Snapshot
	SampleRate  int
	Muted       bool
	ProgressBar components.ProgressBar
	VolumeMeter components.VolumeMeter

	// Styles
	TitleStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	AlbumStyle    lipgloss.Style
	StatusStyle   lipgloss.Style
	DetailStyle   lipgloss.Style
	ControlsStyle lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewPlayerView creates a new player view
func NewPlayerView(width, height int) PlayerView {
	return PlayerView{
		Width:       width,
		Height:      height,
		ProgressBar: components.NewProgressBar(width - 8),
		VolumeMeter: components.NewVolumeMeter(audio.VolumeScale),
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		AlbumStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		StatusStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true),
		DetailStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}
}

// SetSnapshot updates the displayed state. sampleRate converts the cursor
// into source time and may be zero when nothing is loaded.
func (v *PlayerView) SetSnapshot(snap api.Snapshot, sampleRate int) {
	v.Snapshot = snap
	v.SampleRate = sampleRate
	if sampleRate > 0 {
		v.ProgressBar.SetProgress(
			time.Duration(snap.Position*float64(time.Second)/float64(sampleRate)),
			time.Duration(snap.Length)*time.Second/time.Duration(sampleRate),
		)
	} else {
		v.ProgressBar.SetProgress(0, 0)
	}
}

// Update handles messages
func (v PlayerView) Update(msg tea.Msg) (PlayerView, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		v.Width = msg.Width
		v.ProgressBar.Width = msg.Width - 8
	}
	return v, nil
}

// StatusIcon returns the glyph shown next to the title
func StatusIcon(status api.Status) string {
	switch status {
	case api.StatusPlaying:
		return "▶"
	case api.StatusStopped:
		return "⏏"
	default:
		return "⏹"
	}
}

// View renders the player view
func (v PlayerView) View() string {
	var sb strings.Builder
	snap := v.Snapshot

	if snap.Track == nil {
		sb.WriteString(v.StatusStyle.Render(StatusIcon(snap.Status) + " "))
		sb.WriteString(v.TitleStyle.Render("No track loaded"))
		sb.WriteString("\n\n")
		sb.WriteString(v.ControlsStyle.Render("Press [o] to open a file"))
	} else {
		track := snap.Track

		sb.WriteString(v.StatusStyle.Render(StatusIcon(snap.Status) + " "))
		sb.WriteString(v.TitleStyle.Render(track.Title))
		sb.WriteString("\n")
		sb.WriteString(v.ArtistStyle.Render(track.Artist))
		sb.WriteString("\n")
		sb.WriteString(v.AlbumStyle.Render(track.Album))
		sb.WriteString("\n\n")

		sb.WriteString(v.ProgressBar.View())
		sb.WriteString("\n")
		sb.WriteString(v.DetailStyle.Render(fmt.Sprintf("%s · %d Hz · sample %d/%d",
			strings.ToUpper(track.Format), v.SampleRate, int(snap.Position), snap.Length)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	volume := "Volume: " + v.VolumeMeter.View(snap.Volume)
	if v.Muted {
		volume += " (muted)"
	}
	sb.WriteString(volume)
	sb.WriteString("\n")
	sb.WriteString(v.DetailStyle.Render("Status: " + snap.Status.String()))

	sb.WriteString("\n\n")
	sb.WriteString(v.ControlsStyle.Render(
		"[+/-] Volume  [m] Mute  [r] Replay  [o] Open  [s] Stop  [q] Quit",
	))

	return v.BorderStyle.Width(v.Width - 4).Render(sb.String())
}
