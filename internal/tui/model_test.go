package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mdstudio/internal/model"
	"mdstudio/internal/platform"
	"mdstudio/internal/store"
	"mdstudio/internal/studio"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	m      appModel
	s      *studio.Studio
	picker *Picker
	dir    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	picker := &Picker{}
	dir := t.TempDir()
	st, err := studio.New(studio.Options{
		KV:        store.NewMemoryKV(),
		Debounce:  time.Hour,
		Clipboard: &platform.MemoryClipboard{},
		Files:     platform.OSFiles{Pick: picker.Pick, Dir: dir},
	})
	require.NoError(t, err)
	require.NoError(t, st.Open(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	m := newModel(st, Options{Style: "dark", Picker: picker})
	t.Cleanup(m.close)
	h := &harness{m: m, s: st, picker: picker, dir: dir}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 30})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(appModel)
	return cmd
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: k})
}

// pump feeds queued studio events through Update the way the program would.
func (h *harness) pump() {
	for {
		if ev, ok := h.m.backlog.pop(); ok {
			h.send(eventMsg(ev))
			continue
		}
		select {
		case ev := <-h.m.events:
			h.send(eventMsg(ev))
		default:
			return
		}
	}
}

func (h *harness) current(t *testing.T) (id, name, content string) {
	t.Helper()
	cur, ok := h.s.Current()
	require.True(t, ok)
	return cur.ID, cur.Name, cur.Content
}

func TestTyping_UpdatesCurrentDocument(t *testing.T) {
	h := newHarness(t)
	h.typeText("héllo")
	h.key(tea.KeyEnter)
	h.typeText("x")

	_, _, content := h.current(t)
	require.Equal(t, "héllo\nx", content)
	require.Equal(t, 7, cursorOffset(h.m.editor))
	require.Zero(t, h.s.UndoDepth(), "typing is not undoable")
}

func TestFormat_ThenUndo(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyCtrlB)
	require.Equal(t, "**bold text**", h.m.editor.Value())
	require.Equal(t, 11, cursorOffset(h.m.editor))
	require.Equal(t, 1, h.s.UndoDepth())

	h.key(tea.KeyCtrlZ)
	require.Equal(t, "", h.m.editor.Value())
	_, _, content := h.current(t)
	require.Equal(t, "", content)

	// Nothing left to undo.
	h.key(tea.KeyCtrlZ)
	require.Equal(t, "", h.m.editor.Value())
}

func TestFormat_LinkAsksForURL(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyCtrlK)
	require.Equal(t, modalLinkURL, h.m.modal)
	h.m.input.SetValue("https://example.com")
	h.key(tea.KeyEnter)

	require.Equal(t, modalNone, h.m.modal)
	require.Equal(t, "[link text](https://example.com)", h.m.editor.Value())
}

func TestFormat_ImageAsksForAltThenURL(t *testing.T) {
	h := newHarness(t)
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'i'}, Alt: true})
	require.Equal(t, modalImageAlt, h.m.modal)
	h.m.input.SetValue("Cat")
	h.key(tea.KeyEnter)
	require.Equal(t, modalImageURL, h.m.modal)
	h.m.input.SetValue("https://img.example/cat.png")
	h.key(tea.KeyEnter)

	require.Equal(t, "![Cat](https://img.example/cat.png)", h.m.editor.Value())
}

func TestModal_EscCancels(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyCtrlK)
	h.key(tea.KeyEsc)
	require.Equal(t, modalNone, h.m.modal)
	require.Equal(t, "", h.m.editor.Value())
}

func TestNewDocument_ClearsEditor(t *testing.T) {
	h := newHarness(t)
	h.typeText("first")
	h.key(tea.KeyCtrlN)

	require.Len(t, h.s.List(), 2)
	require.Equal(t, "", h.m.editor.Value())
	require.Len(t, h.m.docs.Items(), 2)
}

func TestRename_ShowsToast(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyCtrlR)
	require.Equal(t, modalRename, h.m.modal)
	require.Equal(t, "Untitled.md", h.m.input.Value())

	h.m.input.SetValue("Plan")
	h.key(tea.KeyEnter)
	h.pump()

	_, name, _ := h.current(t)
	require.Equal(t, "Plan.md", name)
	require.Equal(t, "Renamed to Plan.md", h.m.toast.text)
	assert.Contains(t, h.m.View(), "Renamed to Plan.md")

	// A stale expiry leaves the newer toast alone.
	h.send(toastExpiredMsg{seq: h.m.toast.seq - 1})
	require.NotEmpty(t, h.m.toast.text)
	h.send(toastExpiredMsg{seq: h.m.toast.seq})
	require.Empty(t, h.m.toast.text)
}

func TestNotice_SurvivesFullEventQueue(t *testing.T) {
	h := newHarness(t)
	h.pump()
	for len(h.m.events) < cap(h.m.events) {
		h.m.events <- model.Event{Type: model.EventListChanged}
	}
	id, _, _ := h.current(t)
	h.s.Rename(id, "Plan")

	msg := h.m.waitForEvent()()
	ev, ok := msg.(eventMsg)
	require.True(t, ok, "got %T", msg)
	require.Equal(t, model.EventNotice, ev.Type)
	h.send(ev)
	require.Equal(t, "Renamed to Plan.md", h.m.toast.text)

	h.pump()
	require.Empty(t, h.m.events)
}

func TestPreview_Toggle(t *testing.T) {
	h := newHarness(t)
	require.Positive(t, h.m.previewW)
	h.typeText("# Hello")
	assert.Contains(t, h.m.View(), "Hello")

	h.key(tea.KeyCtrlP)
	require.Zero(t, h.m.previewW)
	require.False(t, h.m.showPreview)

	h.key(tea.KeyCtrlP)
	require.Positive(t, h.m.previewW)
}

func TestList_SwitchesDocument(t *testing.T) {
	h := newHarness(t)
	h.typeText("first")
	firstID, _, _ := h.current(t)
	h.key(tea.KeyCtrlN)
	h.typeText("second")

	h.key(tea.KeyTab)
	require.Equal(t, focusList, h.m.focus)
	for i, it := range h.m.docs.Items() {
		if it.(docItem).id == firstID {
			h.m.docs.Select(i)
		}
	}
	h.key(tea.KeyEnter)

	id, _, _ := h.current(t)
	require.Equal(t, firstID, id)
	require.Equal(t, focusEditor, h.m.focus)
	require.Equal(t, "first", h.m.editor.Value())
}

func TestSave_AsksForPathThenWritesInPlace(t *testing.T) {
	h := newHarness(t)
	h.typeText("hi")
	h.key(tea.KeyCtrlS)
	require.Equal(t, modalSavePath, h.m.modal)

	h.m.input.SetValue("notes.md")
	h.key(tea.KeyEnter)
	h.pump()

	path := filepath.Join(h.dir, "notes.md")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hi", string(b))
	id, name, _ := h.current(t)
	require.Equal(t, "notes.md", name)
	require.Equal(t, platform.Handle(path), h.s.Handle(id))
	require.Equal(t, "Saved", h.m.toast.text)

	h.typeText("!")
	h.key(tea.KeyCtrlS)
	require.Equal(t, modalNone, h.m.modal, "a saved document writes without asking")
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hi!", string(b))
}

func TestOpen_ImportsFile(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, "todo.md"), []byte("- [ ] ship"), 0o644))

	h.key(tea.KeyCtrlO)
	require.Equal(t, modalOpenPath, h.m.modal)
	h.m.input.SetValue("todo.md")
	h.key(tea.KeyEnter)
	h.pump()

	_, name, content := h.current(t)
	require.Equal(t, "todo.md", name)
	require.Equal(t, "- [ ] ship", content)
	require.Equal(t, "- [ ] ship", h.m.editor.Value())
}

func TestDelete_NeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyCtrlN)
	require.Len(t, h.s.List(), 2)

	h.key(tea.KeyCtrlD)
	require.Equal(t, modalConfirmDelete, h.m.modal)
	h.typeText("n")
	require.Equal(t, modalNone, h.m.modal)
	require.Len(t, h.s.List(), 2)

	h.key(tea.KeyCtrlD)
	h.typeText("y")
	require.Len(t, h.s.List(), 1)
	require.Len(t, h.m.docs.Items(), 1)
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	cmd := h.key(tea.KeyCtrlQ)
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEvents_FromOtherSurfacesReachEditor(t *testing.T) {
	h := newHarness(t)
	id, _, _ := h.current(t)
	h.s.SetContent(id, "from elsewhere")
	h.pump()
	require.Equal(t, "from elsewhere", h.m.editor.Value())
}

func TestPicker_AnswersOnce(t *testing.T) {
	var p Picker
	_, err := p.Pick(context.Background(), platform.PurposeSave, "a.md")
	require.ErrorIs(t, err, platform.ErrCancelled)

	p.Answer("/tmp/a.md")
	got, err := p.Pick(context.Background(), platform.PurposeSave, "a.md")
	require.NoError(t, err)
	require.Equal(t, "/tmp/a.md", got)

	_, err = p.Pick(context.Background(), platform.PurposeOpen, "")
	require.ErrorIs(t, err, platform.ErrCancelled)
}

func TestFormatAction_KnowsBindings(t *testing.T) {
	k := newKeyMap()
	a, ok := k.formatAction("ctrl+b")
	require.True(t, ok)
	require.EqualValues(t, "bold", a)
	_, ok = k.formatAction("ctrl+s")
	require.False(t, ok)
}

func TestState_RestoredAndCaptured(t *testing.T) {
	h := newHarness(t)
	hidden := false
	h.m.applyState(&store.TUIState{ShowPreview: &hidden, Focus: "list"})
	require.False(t, h.m.showPreview)
	require.Zero(t, h.m.previewW)
	require.Equal(t, focusList, h.m.focus)

	h.key(tea.KeyEsc)
	h.key(tea.KeyCtrlP)
	var st store.TUIState
	h.m.captureState(&st)
	require.NotNil(t, st.ShowPreview)
	require.True(t, *st.ShowPreview)
	require.Equal(t, "editor", st.Focus)
}
