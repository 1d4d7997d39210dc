package views

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jscyril/golang_playback_engine/internal/ui/components"
)

// FileChosenMsg is sent when a playable file is picked in the browser
type FileChosenMsg struct {
	Path string
}

// BrowseCancelledMsg is sent when the browser is dismissed
type BrowseCancelledMsg struct{}

// BrowserView wraps the file browser for picking the next input
type BrowserView struct {
	Width       int
	Height      int
	Extensions  []string
	FileBrowser components.FileBrowser
}

// NewBrowserView creates a browser view rooted at startPath
func NewBrowserView(startPath string, width, height int, extensions []string) BrowserView {
	return BrowserView{
		Width:       width,
		Height:      height,
		Extensions:  extensions,
		FileBrowser: components.NewFileBrowser(startPath, width, height, extensions),
	}
}

// Update handles messages
func (v BrowserView) Update(msg tea.Msg) (BrowserView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.Width, v.Height = msg.Width, msg.Height-4
		v.FileBrowser.Width, v.FileBrowser.Height = v.Width, v.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return v, func() tea.Msg { return BrowseCancelledMsg{} }
		case "enter":
			// Directories are entered in place
			if path := v.FileBrowser.EnterSelected(); path != "" {
				return v, func() tea.Msg { return FileChosenMsg{Path: path} }
			}
			return v, nil
		default:
			v.FileBrowser, _ = v.FileBrowser.Update(msg)
		}
	}
	return v, nil
}

// View renders the browser
func (v BrowserView) View() string {
	return v.FileBrowser.View()
}
