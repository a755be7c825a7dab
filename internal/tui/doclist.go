package tui

import (
	"fmt"
	"io"
	"strings"

	"mdstudio/internal/model"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type docItem struct {
	id      string
	name    string
	current bool
}

func (d docItem) Title() string       { return d.name }
func (d docItem) FilterValue() string { return d.name }

type docDelegate struct {
	normal   lipgloss.Style
	selected lipgloss.Style
	current  lipgloss.Style
}

func newDocDelegate() docDelegate {
	return docDelegate{
		normal:   lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().Foreground(colorSelectedFg).Background(colorSelectedBg).Bold(true),
		current:  lipgloss.NewStyle().Bold(true),
	}
}

func (d docDelegate) Height() int                             { return 1 }
func (d docDelegate) Spacing() int                            { return 0 }
func (d docDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d docDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	contentW := m.Width()
	if contentW < 4 {
		return
	}
	it, ok := item.(docItem)
	if !ok {
		fmt.Fprint(w, "")
		return
	}

	marker := "  "
	style := d.normal
	if it.current {
		marker = "● "
		style = d.current
	}
	if index == m.Index() {
		style = d.selected
	}

	line := marker + it.name
	lineW := xansi.StringWidth(line)
	if lineW < contentW {
		line += strings.Repeat(" ", contentW-lineW)
	} else if lineW > contentW {
		line = xansi.Truncate(line, contentW-1, "…") + " "
	}
	fmt.Fprint(w, style.Render(line))
}

func newDocList() list.Model {
	l := list.New(nil, newDocDelegate(), 24, 10)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	return l
}

// docItems orders documents most recent first and marks the current one.
func docItems(docs []model.Document, currentID string) []list.Item {
	items := make([]list.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, docItem{id: d.ID, name: d.Name, current: d.ID == currentID})
	}
	return items
}
