package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/golang_playback_engine/api"
	"github.com/jscyril/golang_playback_engine/internal/audio"
	"github.com/jscyril/golang_playback_engine/internal/ui/components"
	"github.com/jscyril/golang_playback_engine/internal/ui/views"
)

const (
	// VolumeStep is the change applied by one +/- key press
	VolumeStep uint32 = 50
	// MaxVolume caps the keyboard volume at twice unity gain
	MaxVolume uint32 = 2 * audio.VolumeScale
)

// Controller is what the UI drives. *audio.Engine satisfies it.
type Controller interface {
	api.Player
	Play(buf *audio.Buffer) error
}

// Loader turns a path into a decoded buffer
type Loader func(path string) (*audio.Buffer, error)

// Model is the main bubbletea model
type Model struct {
	// Dimensions
	width  int
	height int

	ctrl       Controller
	events     <-chan api.Event
	loader     Loader
	extensions []string

	// Views
	playerView  views.PlayerView
	browserView views.BrowserView
	eventLog    components.EventLog
	browsing    bool

	// State
	path      string
	buffer    *audio.Buffer
	muted     bool
	unmuted   uint32
	loading   bool
	engineEnd bool
	err       error

	headerStyle lipgloss.Style
	errorStyle  lipgloss.Style
}

// TickMsg is sent periodically to refresh the snapshot
type TickMsg time.Time

// EventMsg carries one engine event
type EventMsg struct {
	Event api.Event
}

// EngineDoneMsg is sent once the engine has ended
type EngineDoneMsg struct{}

// LoadedMsg reports the result of decoding a chosen file
type LoadedMsg struct {
	Path   string
	Buffer *audio.Buffer
	Err    error
}

// NewModel creates a new application model. events may be nil when the
// caller does not forward engine events; loader may be nil to disable
// opening files from the UI.
func NewModel(ctrl Controller, events <-chan api.Event, loader Loader, extensions []string) Model {
	m := Model{
		width:      80,
		height:     24,
		ctrl:       ctrl,
		events:     events,
		loader:     loader,
		extensions: extensions,
		unmuted:    audio.DefaultVolume,
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			MarginBottom(1),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
	}

	m.playerView = views.NewPlayerView(m.width, 12)
	m.eventLog = components.NewEventLog(6, m.width)
	m.playerView.SetSnapshot(ctrl.Snapshot(), 0)
	return m
}

// SetCurrent records the buffer already handed to the engine so replay
// and the progress display work before anything is opened from the UI
func (m *Model) SetCurrent(path string, buf *audio.Buffer) {
	m.path = path
	m.buffer = buf
	m.playerView.SetSnapshot(m.ctrl.Snapshot(), m.sampleRate())
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.listenForEvents(),
		m.waitForEngine(),
	)
}

// tickCmd returns a command that ticks every 200ms
func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// listenForEvents waits for the next engine event
func (m Model) listenForEvents() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return EventMsg{Event: ev}
	}
}

func (m Model) waitForEngine() tea.Cmd {
	done := m.ctrl.Done()
	return func() tea.Msg {
		<-done
		return EngineDoneMsg{}
	}
}

func (m Model) loadCmd(path string) tea.Cmd {
	loader := m.loader
	return func() tea.Msg {
		buf, err := loader(path)
		return LoadedMsg{Path: path, Buffer: buf, Err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playerView, _ = m.playerView.Update(msg)
		m.eventLog.Width = msg.Width
		if m.browsing {
			m.browserView, _ = m.browserView.Update(msg)
		}

	case TickMsg:
		m.refresh()
		cmds = append(cmds, tickCmd())

	case EventMsg:
		m.logEvent(msg.Event)
		m.refresh()
		cmds = append(cmds, m.listenForEvents())

	case EngineDoneMsg:
		m.engineEnd = true
		m.refresh()

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = fmt.Errorf("open %s: %w", filepath.Base(msg.Path), msg.Err)
			break
		}
		m.err = nil
		m.path = msg.Path
		m.buffer = msg.Buffer
		m.play()
		m.refresh()

	case views.FileChosenMsg:
		m.browsing = false
		if m.loader != nil {
			m.loading = true
			cmds = append(cmds, m.loadCmd(msg.Path))
		}

	case views.BrowseCancelledMsg:
		m.browsing = false

	case tea.KeyMsg:
		if m.browsing {
			if msg.String() == "ctrl+c" {
				return m, m.quit()
			}
			var cmd tea.Cmd
			m.browserView, cmd = m.browserView.Update(msg)
			return m, cmd
		}
		cmd := m.handleKey(msg)
		m.refresh()
		return m, cmd
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return m.quit()

	case "s":
		m.report(m.ctrl.Stop())

	case "r":
		m.play()

	case "+", "=":
		m.setVolume(min(m.ctrl.Snapshot().Volume+VolumeStep, MaxVolume))

	case "-":
		vol := m.ctrl.Snapshot().Volume
		m.setVolume(vol - min(vol, VolumeStep))

	case "m":
		if m.muted {
			m.muted = false
			m.report(m.ctrl.SetVolume(m.unmuted))
		} else {
			m.unmuted = m.ctrl.Snapshot().Volume
			m.muted = true
			m.report(m.ctrl.SetVolume(0))
		}
		m.playerView.Muted = m.muted

	case "o":
		if m.loader == nil || m.engineEnd {
			break
		}
		start := ""
		if m.path != "" {
			start = filepath.Dir(m.path)
		}
		m.browserView = views.NewBrowserView(start, m.width, m.height-4, m.extensions)
		m.browsing = true

	default:
		m.eventLog, _ = m.eventLog.Update(msg)
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	if !m.engineEnd {
		m.report(m.ctrl.Stop())
	}
	return tea.Quit
}

func (m *Model) play() {
	if m.buffer == nil {
		return
	}
	m.report(m.ctrl.Play(m.buffer))
}

func (m *Model) setVolume(vol uint32) {
	m.muted = false
	m.playerView.Muted = false
	m.report(m.ctrl.SetVolume(vol))
}

func (m *Model) report(err error) {
	if err != nil {
		m.err = err
	}
}

func (m *Model) refresh() {
	m.playerView.SetSnapshot(m.ctrl.Snapshot(), m.sampleRate())
}

func (m Model) sampleRate() int {
	if m.buffer == nil {
		return 0
	}
	return m.buffer.SampleRate
}

func (m *Model) logEvent(ev api.Event) {
	text, isErr := DescribeEvent(ev)
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	m.eventLog.Add(components.LogEntry{Time: at, Text: text, IsError: isErr})
}

// DescribeEvent renders an engine event as one log line and reports
// whether it is an error
func DescribeEvent(ev api.Event) (string, bool) {
	switch ev.Type {
	case api.EventStateChange:
		if snap, ok := ev.Payload.(api.Snapshot); ok {
			return "state: " + snap.Status.String(), false
		}
		return "state changed", false
	case api.EventVolumeChange:
		if vol, ok := ev.Payload.(uint32); ok {
			return fmt.Sprintf("volume: %d", vol), false
		}
		return "volume changed", false
	case api.EventTrackEnded:
		if track, ok := ev.Payload.(*api.Track); ok && track != nil {
			return "track ended: " + track.Title, false
		}
		return "track ended", false
	case api.EventError:
		if err, ok := ev.Payload.(error); ok {
			return "error: " + err.Error(), true
		}
		return "error", true
	default:
		return "unknown event", false
	}
}

// View renders the UI
func (m Model) View() string {
	if m.browsing {
		return m.browserView.View()
	}

	var sb strings.Builder
	sb.WriteString(m.headerStyle.Render("♪ Playback Engine"))
	sb.WriteString("\n")
	sb.WriteString(m.playerView.View())
	sb.WriteString("\n")
	sb.WriteString(m.eventLog.View())

	if m.loading {
		sb.WriteString("\n\nLoading...")
	}
	if m.engineEnd {
		sb.WriteString("\n\nEngine stopped. Press [q] to quit.")
	}
	if m.err != nil {
		sb.WriteString("\n" + m.errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return sb.String()
}

// Run starts the bubbletea program and blocks until it exits or ctx ends
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
