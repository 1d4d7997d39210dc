package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FileEntry represents a file or directory in the browser
type FileEntry struct {
	Name  string
	Path  string
	IsDir bool
}

// FileBrowser is a component for navigating the filesystem
type FileBrowser struct {
	Width       int
	Height      int
	CurrentPath string
	Entries     []FileEntry
	Selected    int
	Offset      int
	Extensions  []string // lowercase, with leading dot
	ShowHidden  bool
	Err         error

	// Styles
	DirStyle      lipgloss.Style
	FileStyle     lipgloss.Style
	SelectedStyle lipgloss.Style
	PathStyle     lipgloss.Style
	BorderStyle   lipgloss.Style
}

// NewFileBrowser creates a file browser starting at the given path that
// lists directories and files with one of the given extensions
func NewFileBrowser(startPath string, width, height int, extensions []string) FileBrowser {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}

	fb := FileBrowser{
		Width:      width,
		Height:     height,
		Extensions: exts,
		DirStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true),
		FileStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")),
		SelectedStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("255")).
			Bold(true),
		PathStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")).
			Bold(true),
		BorderStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
	}

	// If startPath is empty, use home directory
	if startPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			startPath = "/"
		} else {
			startPath = home
		}
	}

	fb.Navigate(startPath)
	return fb
}

// Navigate changes to the specified directory
func (fb *FileBrowser) Navigate(path string) {
	fb.CurrentPath = path
	fb.Selected = 0
	fb.Offset = 0
	fb.Err = nil

	entries, err := os.ReadDir(path)
	if err != nil {
		fb.Err = err
		fb.Entries = nil
		return
	}

	fb.Entries = make([]FileEntry, 0)

	// Add parent directory entry (unless at root)
	if path != "/" {
		fb.Entries = append(fb.Entries, FileEntry{
			Name:  "..",
			Path:  filepath.Dir(path),
			IsDir: true,
		})
	}

	// Separate dirs and files
	var dirs, files []FileEntry

	for _, entry := range entries {
		if !fb.ShowHidden && strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		fullPath := filepath.Join(path, entry.Name())

		if entry.IsDir() {
			dirs = append(dirs, FileEntry{
				Name:  entry.Name(),
				Path:  fullPath,
				IsDir: true,
			})
		} else if fb.Accepts(entry.Name()) {
			files = append(files, FileEntry{
				Name: entry.Name(),
				Path: fullPath,
			})
		}
	}

	sortEntries(dirs)
	sortEntries(files)

	// Add directories first, then files
	fb.Entries = append(fb.Entries, dirs...)
	fb.Entries = append(fb.Entries, files...)
}

// Accepts reports whether a file name has one of the browser's extensions.
// An empty extension list accepts everything.
func (fb *FileBrowser) Accepts(name string) bool {
	if len(fb.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range fb.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func sortEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// FileCount returns the number of non-directory entries
func (fb *FileBrowser) FileCount() int {
	n := 0
	for _, e := range fb.Entries {
		if !e.IsDir {
			n++
		}
	}
	return n
}

// Update handles input messages
func (fb FileBrowser) Update(msg tea.Msg) (FileBrowser, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if fb.Selected > 0 {
				fb.Selected--
				fb.ensureVisible()
			}
		case "down", "j":
			if fb.Selected < len(fb.Entries)-1 {
				fb.Selected++
				fb.ensureVisible()
			}
		case "pgup":
			fb.Selected = max(fb.Selected-fb.visibleHeight(), 0)
			fb.ensureVisible()
		case "pgdown":
			fb.Selected = max(min(fb.Selected+fb.visibleHeight(), len(fb.Entries)-1), 0)
			fb.ensureVisible()
		case "home":
			fb.Selected = 0
			fb.ensureVisible()
		case "end":
			fb.Selected = max(len(fb.Entries)-1, 0)
			fb.ensureVisible()
		case ".":
			fb.ShowHidden = !fb.ShowHidden
			fb.Navigate(fb.CurrentPath)
		case "backspace":
			if fb.CurrentPath != "/" {
				fb.Navigate(filepath.Dir(fb.CurrentPath))
			}
		case "~":
			if home, err := os.UserHomeDir(); err == nil {
				fb.Navigate(home)
			}
		}
	}
	return fb, nil
}

// SelectedEntry returns the currently selected entry, or nil if none
func (fb *FileBrowser) SelectedEntry() *FileEntry {
	if fb.Selected >= 0 && fb.Selected < len(fb.Entries) {
		return &fb.Entries[fb.Selected]
	}
	return nil
}

// EnterSelected descends into a selected directory and returns "", or
// returns the path of a selected file
func (fb *FileBrowser) EnterSelected() string {
	entry := fb.SelectedEntry()
	if entry == nil {
		return ""
	}

	if entry.IsDir {
		fb.Navigate(entry.Path)
		return ""
	}
	return entry.Path
}

// visibleHeight returns the number of visible items
func (fb *FileBrowser) visibleHeight() int {
	return max(fb.Height-8, 1) // border, path, count and help
}

// ensureVisible ensures the selected item is visible
func (fb *FileBrowser) ensureVisible() {
	visible := fb.visibleHeight()
	if fb.Selected < fb.Offset {
		fb.Offset = fb.Selected
	} else if fb.Selected >= fb.Offset+visible {
		fb.Offset = fb.Selected - visible + 1
	}
}

// View renders the file browser
func (fb FileBrowser) View() string {
	var sb strings.Builder

	// Current path
	sb.WriteString(fb.PathStyle.Render("📁 " + fb.CurrentPath))
	sb.WriteString("\n\n")

	// Error display
	if fb.Err != nil {
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		sb.WriteString(errorStyle.Render("Error: " + fb.Err.Error()))
		sb.WriteString("\n")
	}

	// File list
	visible := fb.visibleHeight()
	end := min(fb.Offset+visible, len(fb.Entries))

	for i := fb.Offset; i < end; i++ {
		entry := fb.Entries[i]

		var line string
		if entry.IsDir {
			line = "📂 " + entry.Name
		} else {
			line = "🎵 " + entry.Name
		}
		line = truncate(line, max(fb.Width-10, 10))

		if i == fb.Selected {
			sb.WriteString(fb.SelectedStyle.Render(line))
		} else if entry.IsDir {
			sb.WriteString(fb.DirStyle.Render(line))
		} else {
			sb.WriteString(fb.FileStyle.Render(line))
		}
		sb.WriteString("\n")
	}

	// Padding if not enough entries
	for i := end - fb.Offset; i < visible; i++ {
		sb.WriteString("\n")
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sb.WriteString(dim.Render(fmt.Sprintf("%s\nPlayable files: %d  (%s)",
		strings.Repeat("─", 20), fb.FileCount(), strings.Join(fb.Extensions, " "))))

	sb.WriteString("\n\n")
	sb.WriteString(dim.Render("[Enter] Open/Play  [Backspace] Up  [~] Home  [.] Hidden  [Esc] Cancel"))

	return fb.BorderStyle.Width(fb.Width - 4).Render(sb.String())
}
