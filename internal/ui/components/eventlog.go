package components

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LogEntry is one line in an EventLog
type LogEntry struct {
	Time    time.Time
	Text    string
	IsError bool
}

// EventLog is a bounded, scrollable list of recent engine events
type EventLog struct {
	Entries  []LogEntry
	Capacity int
	Height   int
	Width    int
	Offset   int // lines scrolled up from the newest entry
	Title    string

	TitleStyle  lipgloss.Style
	NormalStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	TimeStyle   lipgloss.Style
}

// NewEventLog creates an event log showing height lines
func NewEventLog(height, width int) EventLog {
	return EventLog{
		Capacity: 100,
		Height:   height,
		Width:    width,
		Title:    "Events",
		TitleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		NormalStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		ErrorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		TimeStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Add appends an entry, dropping the oldest beyond Capacity
func (l *EventLog) Add(entry LogEntry) {
	l.Entries = append(l.Entries, entry)
	if over := len(l.Entries) - l.Capacity; l.Capacity > 0 && over > 0 {
		l.Entries = append(l.Entries[:0], l.Entries[over:]...)
	}
	// Stay pinned to the newest entry unless scrolled
	if l.Offset > 0 {
		l.Offset = min(l.Offset+1, l.maxOffset())
	}
}

// Update scrolls with the arrow and page keys
func (l EventLog) Update(msg tea.Msg) (EventLog, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			l.Offset = min(l.Offset+1, l.maxOffset())
		case "down", "j":
			l.Offset = max(l.Offset-1, 0)
		case "pgup":
			l.Offset = min(l.Offset+l.visibleHeight(), l.maxOffset())
		case "pgdown":
			l.Offset = max(l.Offset-l.visibleHeight(), 0)
		case "end":
			l.Offset = 0
		}
	}
	return l, nil
}

func (l EventLog) visibleHeight() int {
	return max(l.Height-1, 1)
}

func (l EventLog) maxOffset() int {
	return max(len(l.Entries)-l.visibleHeight(), 0)
}

// Visible returns the entries currently on screen, oldest first
func (l EventLog) Visible() []LogEntry {
	end := len(l.Entries) - l.Offset
	start := max(end-l.visibleHeight(), 0)
	return l.Entries[start:end]
}

// View renders the event log
func (l EventLog) View() string {
	var sb strings.Builder
	sb.WriteString(l.TitleStyle.Render(l.Title))

	if len(l.Entries) == 0 {
		sb.WriteString("\n")
		sb.WriteString(l.TimeStyle.Render("No events yet"))
		return sb.String()
	}

	for _, e := range l.Visible() {
		line := truncate(e.Text, max(l.Width-12, 10))
		style := l.NormalStyle
		if e.IsError {
			style = l.ErrorStyle
		}
		sb.WriteString("\n")
		sb.WriteString(l.TimeStyle.Render(e.Time.Format("15:04:05")))
		sb.WriteString(" ")
		sb.WriteString(style.Render(line))
	}

	if l.Offset > 0 {
		sb.WriteString("\n")
		sb.WriteString(l.TimeStyle.Render(fmt.Sprintf("  [%d newer]", l.Offset)))
	}
	return sb.String()
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len([]rune(s)) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}
