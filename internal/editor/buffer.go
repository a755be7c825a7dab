// Package editor applies programmatic text edits (toolbar-style formatting commands)
// to an in-memory buffer. Every replacement that changes the text records a
// pre-mutation snapshot in the attached history.
package editor

import (
	"mdstudio/internal/history"
	"mdstudio/internal/model"
)

// Buffer is the editable text plus selection and scroll. Offsets count runes.
type Buffer struct {
	text     []rune
	selStart int
	selEnd   int
	scroll   int

	hist *history.Manager
}

// NewBuffer returns a buffer over text with the cursor at the end.
func NewBuffer(text string, h *history.Manager) *Buffer {
	b := &Buffer{hist: h}
	b.SetText(text)
	b.selStart, b.selEnd = len(b.text), len(b.text)
	return b
}

// Text returns the current contents.
func (b *Buffer) Text() string { return string(b.text) }

// Len returns the length in runes.
func (b *Buffer) Len() int { return len(b.text) }

// Selection returns the selection bounds.
func (b *Buffer) Selection() (start, end int) { return b.selStart, b.selEnd }

// Scroll returns the scroll position.
func (b *Buffer) Scroll() int { return b.scroll }

// SetScroll records the scroll position.
func (b *Buffer) SetScroll(n int) {
	if n < 0 {
		n = 0
	}
	b.scroll = n
}

// SetText replaces the whole text without recording history (typing, document switch).
func (b *Buffer) SetText(text string) {
	b.text = []rune(text)
	b.SetSelection(b.selStart, b.selEnd)
}

// SetSelection sets the selection, clamped to the text and ordered.
func (b *Buffer) SetSelection(start, end int) {
	start, end = b.clamp(start), b.clamp(end)
	if end < start {
		start, end = end, start
	}
	b.selStart, b.selEnd = start, end
}

func (b *Buffer) clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > len(b.text) {
		return len(b.text)
	}
	return n
}

// Snapshot captures the current state.
func (b *Buffer) Snapshot() model.Snapshot {
	return model.Snapshot{
		Text:           string(b.text),
		SelectionStart: b.selStart,
		SelectionEnd:   b.selEnd,
		Scroll:         b.scroll,
	}
}

// Restore applies a snapshot wholesale.
func (b *Buffer) Restore(s model.Snapshot) {
	b.text = []rune(s.Text)
	b.scroll = s.Scroll
	b.SetSelection(s.SelectionStart, s.SelectionEnd)
}

// ReplaceRange swaps text[start:end] for repl and selects the inserted text. A snapshot
// is pushed first when the replacement changes anything and no undo is in progress.
func (b *Buffer) ReplaceRange(start, end int, repl string) {
	start, end = b.clamp(start), b.clamp(end)
	if end < start {
		start, end = end, start
	}
	current := string(b.text[start:end])
	if b.hist != nil {
		before := b.Snapshot()
		before.SelectionStart, before.SelectionEnd = start, end
		b.hist.Record(before, current, repl)
	}
	r := []rune(repl)
	out := make([]rune, 0, len(b.text)-(end-start)+len(r))
	out = append(out, b.text[:start]...)
	out = append(out, r...)
	out = append(out, b.text[end:]...)
	b.text = out
	b.selStart, b.selEnd = start, start+len(r)
}

// Undo restores the last recorded snapshot. Reports false when the stack is empty.
func (b *Buffer) Undo() bool {
	if b.hist == nil {
		return false
	}
	return b.hist.Undo(b.Restore)
}

func (b *Buffer) slice(start, end int) string {
	return string(b.text[b.clamp(start):b.clamp(end)])
}

// lineBounds returns the start of the line containing from and the end of the line
// containing to.
func (b *Buffer) lineBounds(from, to int) (start, end int) {
	start = b.clamp(from)
	for start > 0 && b.text[start-1] != '\n' {
		start--
	}
	end = b.clamp(to)
	for end < len(b.text) && b.text[end] != '\n' {
		end++
	}
	return start, end
}
