package tui

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"mdstudio/internal/editor"
	"mdstudio/internal/model"
	"mdstudio/internal/render"
	"mdstudio/internal/store"
	"mdstudio/internal/studio"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const toastTTL = 4 * time.Second

type focusArea int

const (
	focusEditor focusArea = iota
	focusList
)

type modalKind int

const (
	modalNone modalKind = iota
	modalRename
	modalSavePath
	modalOpenPath
	modalExportPath
	modalLinkURL
	modalImageAlt
	modalImageURL
	modalConfirmDelete
)

type eventMsg model.Event

type toastExpiredMsg struct{ seq int }

// noticeBacklog holds notices that arrived while the event queue was full. State
// events can be dropped because handlers re-read the studio; notices cannot.
type noticeBacklog struct {
	mu      sync.Mutex
	pending []model.Event
}

func (b *noticeBacklog) push(ev model.Event) {
	b.mu.Lock()
	b.pending = append(b.pending, ev)
	b.mu.Unlock()
}

func (b *noticeBacklog) pop() (model.Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return model.Event{}, false
	}
	ev := b.pending[0]
	b.pending = b.pending[1:]
	return ev, true
}

type toast struct {
	text  string
	level model.NoticeLevel
	seq   int
}

type previewCache struct {
	src   string
	width int
	out   string
}

type appModel struct {
	s    *studio.Studio
	opts Options
	keys keyMap
	help help.Model

	events  chan model.Event
	backlog *noticeBacklog
	unsub   func()

	width, height int
	listW         int
	editorW       int
	previewW      int
	bodyH         int

	focus       focusArea
	showPreview bool

	editor textarea.Model
	docs   list.Model
	input  textinput.Model

	modal       modalKind
	modalTarget string
	pendingAlt  string

	toast toast
	usage int

	preview *previewCache
}

func newModel(s *studio.Studio, opts Options) appModel {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Placeholder = "Start writing markdown…"
	ta.Focus()

	in := textinput.New()
	in.Prompt = ""

	m := appModel{
		s:           s,
		opts:        opts,
		keys:        newKeyMap(),
		help:        help.New(),
		events:      make(chan model.Event, 256),
		backlog:     &noticeBacklog{},
		editor:      ta,
		docs:        newDocList(),
		input:       in,
		showPreview: !opts.HidePreview,
		usage:       s.Usage().Percent,
		preview:     &previewCache{},
	}
	events, backlog := m.events, m.backlog
	m.unsub = s.Subscribe(func(ev model.Event) {
		select {
		case events <- ev:
		default:
			if ev.Type == model.EventNotice {
				backlog.push(ev)
			}
		}
	})
	m.syncFromStudio()
	m.refreshList()
	return m
}

// applyState restores what the previous run left behind. A saved preview toggle wins
// over the configured default.
func (m *appModel) applyState(st *store.TUIState) {
	if st == nil {
		return
	}
	if st.ShowPreview != nil {
		m.showPreview = *st.ShowPreview
	}
	if st.Focus == "list" {
		m.setFocus(focusList)
	}
	m.layout()
}

func (m appModel) captureState(st *store.TUIState) {
	show := m.showPreview
	st.ShowPreview = &show
	st.Focus = "editor"
	if m.focus == focusList {
		st.Focus = "list"
	}
}

func (m appModel) close() {
	if m.unsub != nil {
		m.unsub()
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForEvent())
}

// waitForEvent delivers backlogged notices first. The backlog only grows while the
// channel is full, so the blocking receive below never strands a notice.
func (m appModel) waitForEvent() tea.Cmd {
	ch, backlog := m.events, m.backlog
	return func() tea.Msg {
		if ev, ok := backlog.pop(); ok {
			return eventMsg(ev)
		}
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil
	case eventMsg:
		var cmd tea.Cmd
		m, cmd = m.applyEvent(model.Event(msg))
		return m, tea.Batch(cmd, m.waitForEvent())
	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast = toast{seq: m.toast.seq}
		}
		return m, nil
	case tea.KeyMsg:
		return m.updateKey(msg)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m appModel) applyEvent(ev model.Event) (appModel, tea.Cmd) {
	switch ev.Type {
	case model.EventNotice:
		return m.setToast(ev.Message, ev.Level)
	case model.EventQuotaChanged:
		m.usage = ev.UsagePercent
	case model.EventCurrentChanged, model.EventDocumentUpdated:
		m.syncFromStudio()
		m.refreshList()
	case model.EventListChanged, model.EventDocumentCreated, model.EventDocumentRenamed, model.EventDocumentDeleted:
		m.refreshList()
	}
	return m, nil
}

func (m appModel) setToast(text string, level model.NoticeLevel) (appModel, tea.Cmd) {
	seq := m.toast.seq + 1
	m.toast = toast{text: text, level: level, seq: seq}
	return m, tea.Tick(toastTTL, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

// syncFromStudio loads the open buffer into the textarea when they differ, placing
// the cursor at the end of the buffer's selection.
func (m *appModel) syncFromStudio() {
	snap := m.s.Editor()
	if snap.Text == m.editor.Value() {
		return
	}
	setEditorText(&m.editor, snap.Text, snap.SelectionEnd)
}

func (m *appModel) refreshList() {
	cur, _ := m.s.Current()
	items := docItems(m.s.List(), cur.ID)
	m.docs.SetItems(items)
	if m.focus != focusList {
		for i, it := range items {
			if it.(docItem).current {
				m.docs.Select(i)
				break
			}
		}
	}
}

// target is the document a rename or delete applies to: the highlighted list entry
// while the list has focus, otherwise the current document.
func (m appModel) target() model.Document {
	if m.focus == focusList {
		if it, ok := m.docs.SelectedItem().(docItem); ok {
			if d, ok := m.s.Get(it.id); ok {
				return d
			}
		}
	}
	cur, _ := m.s.Current()
	return cur
}

func (m appModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != modalNone {
		return m.updateModal(msg)
	}

	ctx := context.Background()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Save):
		cur, _ := m.s.Current()
		if m.s.Handle(cur.ID) != "" {
			_ = m.s.Save(ctx)
			return m, nil
		}
		return m.openModal(modalSavePath, cur.Name, "")
	case key.Matches(msg, m.keys.Open):
		return m.openModal(modalOpenPath, "", "")
	case key.Matches(msg, m.keys.Export):
		cur, _ := m.s.Current()
		return m.openModal(modalExportPath, render.ExportName(cur.Name), "")
	case key.Matches(msg, m.keys.PasteImport):
		_, _ = m.s.Paste(ctx)
		m.afterAction()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		_ = m.s.CopyMarkdown(ctx)
		return m, nil
	case key.Matches(msg, m.keys.New):
		m.s.NewDocument("")
		m.setFocus(focusEditor)
		m.afterAction()
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Focus):
		if m.focus == focusEditor {
			m.setFocus(focusList)
		} else {
			m.setFocus(focusEditor)
		}
		return m, nil
	case key.Matches(msg, m.keys.Rename):
		d := m.target()
		return m.openModal(modalRename, d.Name, d.ID)
	case key.Matches(msg, m.keys.Delete):
		d := m.target()
		return m.openModal(modalConfirmDelete, "", d.ID)
	}

	if m.focus == focusList {
		switch {
		case key.Matches(msg, m.keys.Select):
			if it, ok := m.docs.SelectedItem().(docItem); ok {
				m.s.Switch(it.id)
			}
			m.setFocus(focusEditor)
			m.afterAction()
			return m, nil
		case msg.String() == "esc":
			m.setFocus(focusEditor)
			return m, nil
		}
		var cmd tea.Cmd
		m.docs, cmd = m.docs.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, m.keys.Undo) {
		// Only formatting edits are undoable; plain typing has no history.
		if m.s.Undo() {
			m.afterAction()
		}
		return m, nil
	}
	if action, ok := m.keys.formatAction(msg.String()); ok {
		switch action {
		case editor.ActionLink:
			return m.openModal(modalLinkURL, "https://", "")
		case editor.ActionImage:
			return m.openModal(modalImageAlt, "", "")
		}
		m.applyFormat(action, nil)
		return m, nil
	}

	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		off := cursorOffset(m.editor)
		m.s.Type(after, off, off)
	}
	return m, cmd
}

func (m *appModel) applyFormat(action editor.Action, prompt editor.Prompt) {
	off := cursorOffset(m.editor)
	m.s.Select(off, off)
	if m.s.Format(action, prompt) {
		snap := m.s.Editor()
		setEditorText(&m.editor, snap.Text, snap.SelectionEnd)
	}
}

// afterAction pulls studio state into the view right away instead of waiting for
// the queued events.
func (m *appModel) afterAction() {
	snap := m.s.Editor()
	if snap.Text != m.editor.Value() {
		setEditorText(&m.editor, snap.Text, utf8.RuneCountInString(snap.Text))
	}
	m.refreshList()
}

func (m *appModel) setFocus(f focusArea) {
	m.focus = f
	if f == focusEditor {
		m.editor.Focus()
		m.refreshList()
		return
	}
	m.editor.Blur()
}

func (m appModel) openModal(kind modalKind, initial, target string) (tea.Model, tea.Cmd) {
	if m.opts.Picker == nil && (kind == modalSavePath || kind == modalOpenPath || kind == modalExportPath) {
		return m.setToast("File access is not available", model.NoticeWarning)
	}
	m.modal = kind
	m.modalTarget = target
	m.input.SetValue(initial)
	m.input.CursorEnd()
	m.editor.Blur()
	m.layout()
	return m, m.input.Focus()
}

func (m *appModel) closeModal() {
	m.modal = modalNone
	m.modalTarget = ""
	m.input.Blur()
	m.input.SetValue("")
	if m.focus == focusEditor {
		m.editor.Focus()
	}
	m.layout()
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pendingAlt = ""
		m.closeModal()
		return m, nil
	case "enter":
		return m.submitModal(strings.TrimSpace(m.input.Value()))
	}
	if m.modal == modalConfirmDelete {
		switch strings.ToLower(msg.String()) {
		case "y":
			return m.submitModal("")
		case "n":
			m.closeModal()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) submitModal(value string) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	kind, target := m.modal, m.modalTarget
	m.closeModal()

	switch kind {
	case modalRename:
		m.s.Rename(target, value)
	case modalSavePath:
		if value != "" {
			m.opts.Picker.Answer(value)
			_ = m.s.SaveAs(ctx)
		}
	case modalOpenPath:
		if value != "" {
			m.opts.Picker.Answer(value)
			_, _ = m.s.OpenFile(ctx)
		}
	case modalExportPath:
		if value != "" {
			m.opts.Picker.Answer(value)
			_ = m.s.ExportToFile(ctx)
		}
	case modalLinkURL:
		m.applyFormat(editor.ActionLink, answer(map[string]string{editor.LabelURL: value}))
	case modalImageAlt:
		m.pendingAlt = value
		return m.openModal(modalImageURL, "https://", "")
	case modalImageURL:
		m.applyFormat(editor.ActionImage, answer(map[string]string{editor.LabelAlt: m.pendingAlt, editor.LabelImageURL: value}))
		m.pendingAlt = ""
	case modalConfirmDelete:
		m.s.Delete(target)
	}
	m.afterAction()
	return m, nil
}

// answer turns collected values into a Prompt; unknown labels keep their initial value.
func answer(values map[string]string) editor.Prompt {
	return func(label, initial string) (string, bool) {
		if v, ok := values[label]; ok {
			return v, v != ""
		}
		return initial, true
	}
}

func (m appModel) modalLabel() string {
	switch m.modal {
	case modalRename:
		return "Rename to"
	case modalSavePath:
		return "Save as"
	case modalOpenPath:
		return "Open file"
	case modalExportPath:
		return "Export HTML to"
	case modalLinkURL:
		return editor.LabelURL
	case modalImageAlt:
		return editor.LabelAlt
	case modalImageURL:
		return editor.LabelImageURL
	case modalConfirmDelete:
		name := ""
		if d, ok := m.s.Get(m.modalTarget); ok {
			name = d.Name
		}
		return "Delete " + name + "? (y/n)"
	}
	return ""
}

// cursorOffset is the textarea cursor as a rune offset into its value.
func cursorOffset(ta textarea.Model) int {
	lines := strings.Split(ta.Value(), "\n")
	row := ta.Line()
	off := 0
	for i := 0; i < row && i < len(lines); i++ {
		off += utf8.RuneCountInString(lines[i]) + 1
	}
	li := ta.LineInfo()
	return off + li.StartColumn + li.ColumnOffset
}

// setEditorText replaces the textarea value and moves the cursor to rune offset cursor.
func setEditorText(ta *textarea.Model, text string, cursor int) {
	ta.SetValue(text)
	row, col := 0, 0
	for i, r := range []rune(text) {
		if i >= cursor {
			break
		}
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}
	// SetValue leaves the cursor at the end; walk back up to the target row.
	for i := 0; ta.Line() > row && i < 1<<16; i++ {
		ta.CursorUp()
	}
	ta.SetCursor(col)
}
