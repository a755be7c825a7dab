package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdstudio/internal/history"
)

func newSelected(text string, start, end int) (*Buffer, *history.Manager) {
	h := history.NewManager(0)
	b := NewBuffer(text, h)
	b.SetSelection(start, end)
	return b, h
}

func TestWrapSelection_InsertsPlaceholder(t *testing.T) {
	b, h := newSelected("", 0, 0)
	require.True(t, b.Apply(ActionBold, nil))
	require.Equal(t, "**bold text**", b.Text())
	start, end := b.Selection()
	require.Equal(t, [2]int{2, 11}, [2]int{start, end})
	require.Equal(t, 1, h.Len())
}

func TestWrapSelection_TogglesMarkers(t *testing.T) {
	// Selection includes the markers.
	b, _ := newSelected("say **hi**", 4, 10)
	b.Apply(ActionBold, nil)
	assert.Equal(t, "say hi", b.Text())

	// Markers surround the selection.
	b, _ = newSelected("say **hi**", 6, 8)
	b.Apply(ActionBold, nil)
	assert.Equal(t, "say hi", b.Text())
	start, end := b.Selection()
	assert.Equal(t, [2]int{4, 6}, [2]int{start, end})

	// Plain selection gets wrapped.
	b, _ = newSelected("say hi", 4, 6)
	b.Apply(ActionStrikethrough, nil)
	assert.Equal(t, "say ~~hi~~", b.Text())
}

func TestToggleHeading(t *testing.T) {
	b, _ := newSelected("intro\n### Title\nbody", 8, 8)
	b.Apply(ActionHeading, nil)
	require.Equal(t, "intro\n# Title\nbody", b.Text())
}

func TestInsertFence(t *testing.T) {
	b, _ := newSelected("x", 1, 1)
	b.Apply(ActionCode, nil)
	require.Equal(t, "x\n\n```\ncode\n```\n", b.Text())
}

func TestInsertLink_DismissedPromptIsNoop(t *testing.T) {
	b, h := newSelected("text", 0, 4)
	b.Apply(ActionLink, func(string, string) (string, bool) { return "", false })
	require.Equal(t, "text", b.Text())
	require.Equal(t, 0, h.Len())

	b.Apply(ActionLink, func(string, string) (string, bool) { return "https://go.dev", true })
	require.Equal(t, "[text](https://go.dev)", b.Text())
}

func TestInsertImage(t *testing.T) {
	answers := map[string]string{"Enter alt text": "logo", "Enter image URL": "https://x/y.png"}
	b, _ := newSelected("", 0, 0)
	b.Apply(ActionImage, func(label, _ string) (string, bool) { return answers[label], true })
	require.Equal(t, "![logo](https://x/y.png)", b.Text())
}

func TestPrefixLines(t *testing.T) {
	b, _ := newSelected("one\n  two\n- three", 0, 15)
	b.Apply(ActionBulletList, nil)
	require.Equal(t, "- one\n- two\n- three", b.Text())

	b, _ = newSelected("a\nb", 0, 3)
	b.Apply(ActionTask, nil)
	require.Equal(t, "- [ ] a\n- [ ] b", b.Text())
}

func TestPrefixOrdered_Renumbers(t *testing.T) {
	b, _ := newSelected("3. c\nd\n 7. e", 0, 14)
	b.Apply(ActionOrderedList, nil)
	require.Equal(t, "1. c\n2. d\n3. e", b.Text())
}

func TestInsertTable(t *testing.T) {
	b, _ := newSelected("", 0, 0)
	b.Apply(ActionTable, nil)
	require.Equal(t, tableTemplate, b.Text())
	start, end := b.Selection()
	require.Equal(t, "Column 1", b.Text()[start:end])
}

func TestUnknownActionIsNoop(t *testing.T) {
	b, h := newSelected("keep", 0, 0)
	require.False(t, b.Apply("nope", nil))
	require.Equal(t, "keep", b.Text())
	require.Equal(t, 0, h.Len())
}

func TestUndo_RestoresTextAndSelection(t *testing.T) {
	b, _ := newSelected("hello", 0, 5)
	b.SetScroll(7)
	b.Apply(ActionItalic, nil)
	require.Equal(t, "_hello_", b.Text())

	require.True(t, b.Undo())
	require.Equal(t, "hello", b.Text())
	start, end := b.Selection()
	require.Equal(t, [2]int{0, 5}, [2]int{start, end})
	require.Equal(t, 7, b.Scroll())
	require.False(t, b.Undo())
}

func TestReplaceRange_MultibyteOffsets(t *testing.T) {
	b, _ := newSelected("héllo wörld", 6, 11)
	b.Apply(ActionBold, nil)
	require.Equal(t, "héllo **wörld**", b.Text())
}
