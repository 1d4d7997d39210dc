package components

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00"},
		{-time.Second, "00:00"},
		{59 * time.Second, "00:59"},
		{61*time.Second + 400*time.Millisecond, "01:01"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgressFraction(t *testing.T) {
	p := NewProgressBar(40)
	if p.Fraction() != 0 {
		t.Errorf("Fraction() with no total = %v", p.Fraction())
	}

	p.SetProgress(30*time.Second, time.Minute)
	if p.Fraction() != 0.5 {
		t.Errorf("Fraction() = %v, want 0.5", p.Fraction())
	}

	p.SetProgress(2*time.Minute, time.Minute)
	if p.Fraction() != 1 {
		t.Errorf("Fraction() past the end = %v, want 1", p.Fraction())
	}
	if !strings.Contains(p.View(), "02:00/01:00") {
		t.Errorf("View() = %q", p.View())
	}
}

func TestVolumeMeter(t *testing.T) {
	v := NewVolumeMeter(1000)
	tests := []struct {
		volume  uint32
		filled  int
		percent int
	}{
		{0, 0, 0},
		{500, 5, 50},
		{1000, 10, 100},
		{1500, 10, 150},
	}
	for _, tt := range tests {
		if got := v.Filled(tt.volume); got != tt.filled {
			t.Errorf("Filled(%d) = %d, want %d", tt.volume, got, tt.filled)
		}
		if got := v.Percent(tt.volume); got != tt.percent {
			t.Errorf("Percent(%d) = %d, want %d", tt.volume, got, tt.percent)
		}
	}
	if !strings.Contains(v.View(1500), "150%") {
		t.Errorf("View(1500) = %q", v.View(1500))
	}
}

func TestEventLogCapacityAndScroll(t *testing.T) {
	l := NewEventLog(4, 80) // three visible lines
	l.Capacity = 5
	for i := range 8 {
		l.Add(LogEntry{Time: time.Now(), Text: string(rune('a' + i))})
	}

	if len(l.Entries) != 5 || l.Entries[0].Text != "d" {
		t.Fatalf("entries = %+v, want the newest five", l.Entries)
	}

	visible := l.Visible()
	if len(visible) != 3 || visible[2].Text != "h" {
		t.Errorf("Visible() = %+v, want the newest three", visible)
	}

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})
	if l.Offset != 1 || l.Visible()[2].Text != "g" {
		t.Errorf("after up: offset = %d, visible = %+v", l.Offset, l.Visible())
	}

	// Cannot scroll past the oldest entry
	for range 10 {
		l, _ = l.Update(tea.KeyMsg{Type: tea.KeyUp})
	}
	if l.Offset != 2 || l.Visible()[0].Text != "d" {
		t.Errorf("offset = %d, want 2", l.Offset)
	}

	l, _ = l.Update(tea.KeyMsg{Type: tea.KeyEnd})
	if l.Offset != 0 {
		t.Errorf("end should pin to newest, offset = %d", l.Offset)
	}
}

func TestFileBrowserFilters(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.wav", "a.MP3", "notes.txt", ".hidden.flac"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	fb := NewFileBrowser(dir, 80, 30, []string{"mp3", ".wav", ".FLAC"})

	var names []string
	for _, e := range fb.Entries {
		names = append(names, e.Name)
	}
	want := []string{"..", "sub", "a.MP3", "b.wav"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", names, want)
	}
	if fb.FileCount() != 2 {
		t.Errorf("FileCount() = %d, want 2", fb.FileCount())
	}

	fb, _ = fb.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(".")})
	if fb.FileCount() != 3 {
		t.Errorf("FileCount() with hidden = %d, want 3", fb.FileCount())
	}
}

func TestFileBrowserEnter(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	track := filepath.Join(sub, "t.flac")
	if err := os.WriteFile(track, nil, 0644); err != nil {
		t.Fatal(err)
	}

	fb := NewFileBrowser(dir, 80, 30, []string{".flac"})
	fb.Selected = 1 // "sub" after ".."
	if got := fb.EnterSelected(); got != "" || fb.CurrentPath != sub {
		t.Fatalf("EnterSelected() = %q, path = %q", got, fb.CurrentPath)
	}

	fb.Selected = 1
	if got := fb.EnterSelected(); got != track {
		t.Errorf("EnterSelected() = %q, want %q", got, track)
	}
}

func TestFileBrowserAcceptsAll(t *testing.T) {
	fb := FileBrowser{}
	if !fb.Accepts("anything.bin") {
		t.Error("empty extension list should accept everything")
	}
}
