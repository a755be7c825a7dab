package tui

import (
	"mdstudio/internal/editor"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Save        key.Binding
	New         key.Binding
	Open        key.Binding
	Export      key.Binding
	PasteImport key.Binding
	Copy        key.Binding
	Undo        key.Binding
	Preview     key.Binding
	Focus       key.Binding
	Rename      key.Binding
	Delete      key.Binding
	Select      key.Binding
	Quit        key.Binding

	// Formatting shortcuts, keyed by the action they run.
	Format map[editor.Action]key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Save:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		New:         key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
		Open:        key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open")),
		Export:      key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "export html")),
		PasteImport: key.NewBinding(key.WithKeys("alt+v"), key.WithHelp("alt+v", "paste as document")),
		Copy:        key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy markdown")),
		Undo:        key.NewBinding(key.WithKeys("ctrl+z"), key.WithHelp("ctrl+z", "undo")),
		Preview:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "preview")),
		Focus:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "documents")),
		Rename:      key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "rename")),
		Delete:      key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
		Select:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Quit:        key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
		Format: map[editor.Action]key.Binding{
			editor.ActionBold:          key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "bold")),
			editor.ActionItalic:        key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "italic")),
			editor.ActionLink:          key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "link")),
			editor.ActionHeading:       key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "heading")),
			editor.ActionCode:          key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "code block")),
			editor.ActionInlineCode:    key.NewBinding(key.WithKeys("alt+c"), key.WithHelp("alt+c", "inline code")),
			editor.ActionHighlight:     key.NewBinding(key.WithKeys("alt+h"), key.WithHelp("alt+h", "highlight")),
			editor.ActionStrikethrough: key.NewBinding(key.WithKeys("alt+s"), key.WithHelp("alt+s", "strikethrough")),
			editor.ActionImage:         key.NewBinding(key.WithKeys("alt+i"), key.WithHelp("alt+i", "image")),
			editor.ActionBulletList:    key.NewBinding(key.WithKeys("alt+u"), key.WithHelp("alt+u", "bullets")),
			editor.ActionOrderedList:   key.NewBinding(key.WithKeys("alt+o"), key.WithHelp("alt+o", "numbered")),
			editor.ActionQuote:         key.NewBinding(key.WithKeys("alt+q"), key.WithHelp("alt+q", "quote")),
			editor.ActionTable:         key.NewBinding(key.WithKeys("alt+t"), key.WithHelp("alt+t", "table")),
			editor.ActionTask:          key.NewBinding(key.WithKeys("alt+x"), key.WithHelp("alt+x", "task")),
		},
	}
}

// formatAction returns the action bound to a key, if any.
func (k keyMap) formatAction(s string) (editor.Action, bool) {
	for _, a := range editor.Actions {
		if b, ok := k.Format[a]; ok {
			for _, bk := range b.Keys() {
				if bk == s {
					return a, true
				}
			}
		}
	}
	return "", false
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.New, k.Focus, k.Preview, k.Undo, k.Format[editor.ActionBold], k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	format := make([]key.Binding, 0, len(k.Format))
	for _, a := range editor.Actions {
		if b, ok := k.Format[a]; ok {
			format = append(format, b)
		}
	}
	return [][]key.Binding{
		{k.Save, k.Open, k.Export, k.PasteImport, k.Copy},
		{k.New, k.Rename, k.Delete, k.Focus, k.Select},
		{k.Undo, k.Preview, k.Quit},
		format,
	}
}
