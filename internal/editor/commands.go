package editor

import (
	"regexp"
	"strconv"
	"strings"
)

// Action names a formatting command.
type Action string

const (
	ActionBold          Action = "bold"
	ActionItalic        Action = "italic"
	ActionInlineCode    Action = "inlineCode"
	ActionHighlight     Action = "highlight"
	ActionStrikethrough Action = "strikethrough"
	ActionHeading       Action = "heading"
	ActionCode          Action = "code"
	ActionLink          Action = "link"
	ActionImage         Action = "image"
	ActionBulletList    Action = "ul"
	ActionOrderedList   Action = "ol"
	ActionQuote         Action = "quote"
	ActionTable         Action = "table"
	ActionTask          Action = "task"
)

// Actions lists every supported command, in toolbar order.
var Actions = []Action{
	ActionBold, ActionItalic, ActionInlineCode, ActionHighlight, ActionStrikethrough,
	ActionHeading, ActionCode, ActionLink, ActionImage,
	ActionBulletList, ActionOrderedList, ActionQuote, ActionTable, ActionTask,
}

// Prompt labels, so callers can answer without a dialog.
const (
	LabelURL      = "Enter URL"
	LabelAlt      = "Enter alt text"
	LabelImageURL = "Enter image URL"
)

// Prompt asks the user for a value. ok=false means the prompt was dismissed.
type Prompt func(label, initial string) (value string, ok bool)

const tableTemplate = "| Column 1 | Column 2 |\n| --- | --- |\n| Text | Text |\n"

var (
	headingPrefixRE = regexp.MustCompile(`^#+\s*`)
	orderedPrefixRE = regexp.MustCompile(`^\d+\.\s+`)
)

// Apply runs action against the buffer. Unknown actions and dismissed prompts leave
// the buffer untouched; the return value reports whether the action was recognized.
func (b *Buffer) Apply(action Action, prompt Prompt) bool {
	switch action {
	case ActionBold:
		b.wrapSelection("**", "**", "bold text")
	case ActionItalic:
		b.wrapSelection("_", "_", "italic text")
	case ActionInlineCode:
		b.wrapSelection("`", "`", "code")
	case ActionHighlight:
		b.wrapSelection("<mark>", "</mark>", "highlight")
	case ActionStrikethrough:
		b.wrapSelection("~~", "~~", "strikethrough")
	case ActionHeading:
		b.toggleHeading()
	case ActionCode:
		b.insertFence()
	case ActionLink:
		b.insertLink(prompt)
	case ActionImage:
		b.insertImage(prompt)
	case ActionBulletList:
		b.prefixLines("- ")
	case ActionOrderedList:
		b.prefixOrdered()
	case ActionQuote:
		b.prefixLines("> ")
	case ActionTable:
		b.insertTable()
	case ActionTask:
		b.prefixLines("- [ ] ")
	default:
		return false
	}
	return true
}

func runeLen(s string) int { return len([]rune(s)) }

func (b *Buffer) wrapSelection(before, after, placeholder string) {
	start, end := b.selStart, b.selEnd
	bl, al := runeLen(before), runeLen(after)

	if start == end {
		b.ReplaceRange(start, end, before+placeholder+after)
		b.SetSelection(start+bl, start+bl+runeLen(placeholder))
		return
	}

	selected := b.slice(start, end)
	if runeLen(selected) >= bl+al && strings.HasPrefix(selected, before) && strings.HasSuffix(selected, after) {
		inner := string([]rune(selected)[bl : runeLen(selected)-al])
		b.ReplaceRange(start, end, inner)
		b.SetSelection(start, start+runeLen(inner))
		return
	}

	outerStart, outerEnd := start-bl, end+al
	if outerStart >= 0 && outerEnd <= len(b.text) && b.slice(outerStart, start) == before && b.slice(end, outerEnd) == after {
		b.ReplaceRange(outerStart, outerEnd, selected)
		b.SetSelection(outerStart, outerStart+runeLen(selected))
		return
	}

	b.ReplaceRange(start, end, before+selected+after)
	b.SetSelection(start+bl, start+bl+runeLen(selected))
}

func (b *Buffer) toggleHeading() {
	lineStart, lineEnd := b.lineBounds(b.selStart, b.selStart)
	trimmed := headingPrefixRE.ReplaceAllString(b.slice(lineStart, lineEnd), "")
	b.ReplaceRange(lineStart, lineEnd, "# "+trimmed)
	b.SetSelection(lineStart+2, lineStart+2+runeLen(trimmed))
}

func (b *Buffer) insertFence() {
	start, end := b.selStart, b.selEnd
	selected := b.slice(start, end)
	if selected == "" {
		selected = "code"
	}
	const opener, closer = "\n\n```\n", "\n```\n"
	b.ReplaceRange(start, end, opener+selected+closer)
	cursor := start + runeLen(opener)
	b.SetSelection(cursor, cursor+runeLen(selected))
}

func (b *Buffer) insertLink(prompt Prompt) {
	start, end := b.selStart, b.selEnd
	text := b.slice(start, end)
	if text == "" {
		text = "link text"
	}
	url, ok := ask(prompt, LabelURL, "https://")
	if !ok || url == "" {
		return
	}
	b.ReplaceRange(start, end, "["+text+"]("+url+")")
	b.SetSelection(start+1, start+1+runeLen(text))
}

func (b *Buffer) insertImage(prompt Prompt) {
	start, end := b.selStart, b.selEnd
	alt := strings.TrimSpace(b.slice(start, end))
	if alt == "" {
		if v, ok := ask(prompt, LabelAlt, "Image description"); ok && v != "" {
			alt = v
		} else {
			alt = "Image"
		}
	}
	url, ok := ask(prompt, LabelImageURL, "https://")
	if !ok || url == "" {
		return
	}
	b.ReplaceRange(start, end, "!["+alt+"]("+url+")")
	b.SetSelection(start+2, start+2+runeLen(alt))
}

func ask(prompt Prompt, label, initial string) (string, bool) {
	if prompt == nil {
		return "", false
	}
	v, ok := prompt(label, initial)
	return strings.TrimSpace(v), ok
}

func (b *Buffer) selectedLines() (start, end int, lines []string) {
	start, end = b.lineBounds(b.selStart, b.selEnd)
	return start, end, strings.Split(b.slice(start, end), "\n")
}

func (b *Buffer) prefixLines(prefix string) {
	start, end, lines := b.selectedLines()
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			continue
		}
		lines[i] = prefix + strings.TrimLeft(line, " \t")
	}
	out := strings.Join(lines, "\n")
	b.ReplaceRange(start, end, out)
	b.SetSelection(start, start+runeLen(out))
}

func (b *Buffer) prefixOrdered() {
	start, end, lines := b.selectedLines()
	for i, line := range lines {
		rest := orderedPrefixRE.ReplaceAllString(strings.TrimSpace(line), "")
		lines[i] = strconv.Itoa(i+1) + ". " + rest
	}
	out := strings.Join(lines, "\n")
	b.ReplaceRange(start, end, out)
	b.SetSelection(start, start+runeLen(out))
}

func (b *Buffer) insertTable() {
	start, end := b.selStart, b.selEnd
	b.ReplaceRange(start, end, tableTemplate)
	b.SetSelection(start+2, start+10)
}
