package tui

import (
	"context"
	"sync"

	"mdstudio/internal/platform"
	"mdstudio/internal/store"
	"mdstudio/internal/studio"

	tea "github.com/charmbracelet/bubbletea"
)

type Options struct {
	// Style is the glamour preview style ("" picks light or dark).
	Style       string
	HidePreview bool

	// Picker answers the studio's file prompts with paths typed into the editor. The
	// studio's Files collaborator must be built on Picker.Pick for save and open to work.
	Picker *Picker

	// StateDir keeps the preview toggle and focus between runs. Empty disables it.
	StateDir string
}

// Picker hands a path collected by the editor to the next file prompt.
type Picker struct {
	mu   sync.Mutex
	next string
}

// Answer queues path for the next Pick.
func (p *Picker) Answer(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = path
}

// Pick implements platform.Picker. Without a queued answer the prompt is cancelled.
func (p *Picker) Pick(context.Context, platform.Purpose, string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	path := p.next
	p.next = ""
	if path == "" {
		return "", platform.ErrCancelled
	}
	return path, nil
}

func Run(s *studio.Studio, opts Options) error {
	applyThemePreference(opts.Style)
	applyColorProfilePreference()

	st, err := store.LoadTUIState(opts.StateDir)
	if err != nil {
		st = &store.TUIState{Version: 1}
	}

	m := newModel(s, opts)
	m.applyState(st)
	defer m.close()
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(appModel); ok {
		fm.captureState(st)
		_ = store.SaveTUIState(opts.StateDir, st)
	}
	return err
}
