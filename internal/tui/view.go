package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"mdstudio/internal/model"
	"mdstudio/internal/render"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	maxListWidth = 28
	minPaneWidth = 20
)

// layout sizes the panes from the window. Each pane carries a one-cell border.
func (m *appModel) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	chrome := 2 // header and footer
	if m.modal != modalNone {
		chrome++
	}
	m.bodyH = max(m.height-chrome, 3)

	m.listW = min(maxListWidth, m.width/4)
	if m.listW < 12 {
		m.listW = 0
	}
	rest := m.width - m.listW
	if m.showPreview && rest >= 2*minPaneWidth {
		m.editorW = rest / 2
		m.previewW = rest - m.editorW
	} else {
		m.editorW = rest
		m.previewW = 0
	}

	m.editor.SetWidth(max(m.editorW-2, 1))
	m.editor.SetHeight(max(m.bodyH-2, 1))
	if m.listW > 0 {
		m.docs.SetSize(m.listW-2, m.bodyH-2)
	}
	m.help.Width = m.width
	m.input.Width = max(m.width-xansi.StringWidth(m.modalLabel())-4, 4)
}

func (m appModel) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	panes := make([]string, 0, 3)
	if m.listW > 0 {
		panes = append(panes, stylePane(m.focus == focusList).
			Width(m.listW-2).Height(m.bodyH-2).MaxHeight(m.bodyH).
			Render(m.docs.View()))
	}
	panes = append(panes, stylePane(m.focus == focusEditor && m.modal == modalNone).
		Width(m.editorW-2).Height(m.bodyH-2).MaxHeight(m.bodyH).
		Render(m.editor.View()))
	if m.previewW > 0 {
		panes = append(panes, stylePane(false).
			Width(m.previewW-2).Height(m.bodyH-2).MaxHeight(m.bodyH).
			Render(m.previewView(m.previewW-2, m.bodyH-2)))
	}

	rows := []string{m.headerView(), lipgloss.JoinHorizontal(lipgloss.Top, panes...)}
	if m.modal != modalNone {
		rows = append(rows, m.modalView())
	}
	rows = append(rows, m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m appModel) headerView() string {
	cur, _ := m.s.Current()
	left := styleTitle().Render(cur.Name)
	if h := m.s.Handle(cur.ID); h != "" {
		left += styleMuted().Render("  " + filepath.Base(string(h)))
	}
	right := styleUsage(m.usage).Render(fmt.Sprintf("%d%% storage", m.usage))

	gap := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
	if gap < 1 {
		return xansi.Truncate(left, m.width, "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m appModel) footerView() string {
	if m.toast.text != "" {
		st := styleMuted()
		switch m.toast.level {
		case model.NoticeWarning:
			st = lipgloss.NewStyle().Foreground(colorWarn)
		case model.NoticeError:
			st = lipgloss.NewStyle().Foreground(colorError).Bold(true)
		}
		return st.Render(xansi.Truncate(m.toast.text, m.width, "…"))
	}
	return m.help.View(m.keys)
}

func (m appModel) modalView() string {
	label := styleTitle().Render(m.modalLabel())
	if m.modal == modalConfirmDelete {
		return label
	}
	return label + " " + renderInputLine(m.width-xansi.StringWidth(m.modalLabel())-1, m.input.View())
}

// previewView renders the open buffer for the terminal, reusing the last render
// while neither the text nor the width changed.
func (m appModel) previewView(width, height int) string {
	src := m.editor.Value()
	if strings.TrimSpace(src) == "" {
		return styleMuted().Render("Nothing to preview yet.")
	}
	c := m.preview
	if c.out == "" || c.src != src || c.width != width {
		c.src, c.width = src, width
		c.out = strings.TrimRight(render.Terminal(src, width, m.opts.Style), "\n")
	}
	lines := strings.Split(c.out, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// renderInputLine draws a text input as one padded line of at most bodyW cells.
func renderInputLine(bodyW int, inputView string) string {
	if bodyW < 10 {
		bodyW = 10
	}
	inputView = strings.ReplaceAll(inputView, "\n", " ")
	inputView = strings.ReplaceAll(inputView, "\r", " ")

	line := lipgloss.PlaceHorizontal(
		bodyW,
		lipgloss.Left,
		" "+inputView+" ",
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceBackground(colorInputBg),
	)
	if xansi.StringWidth(line) > bodyW {
		line = xansi.Cut(line, 0, bodyW) + "\x1b[0m"
	}
	return line
}
