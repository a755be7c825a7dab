package render

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	termRendererMu sync.Mutex
	// Renderers keyed by style + wrap width. WithAutoStyle is avoided: its terminal
	// background query can block on some terminals.
	termRenderers = map[string]*glamour.TermRenderer{}
)

// Terminal renders markdown for a terminal pane of the given width. style is a glamour
// standard style name; "" or "auto" picks light or dark from the environment.
func Terminal(src string, width int, style string) string {
	src = strings.TrimSpace(Normalize(src))
	if src == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}
	style = ResolveStyle(style)
	key := style + ":" + strconv.Itoa(width)

	termRendererMu.Lock()
	r := termRenderers[key]
	termRendererMu.Unlock()

	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
			glamour.WithEmoji(),
		)
		if err != nil {
			return src
		}
		termRendererMu.Lock()
		if existing := termRenderers[key]; existing != nil {
			r = existing
		} else {
			termRenderers[key] = rr
			r = rr
		}
		termRendererMu.Unlock()
	}

	out, err := r.Render(src)
	if err != nil {
		return src
	}
	return strings.TrimRight(out, "\n")
}

// ResolveStyle maps "", "auto" and unknown names to "light" or "dark".
func ResolveStyle(style string) string {
	switch s := strings.ToLower(strings.TrimSpace(style)); s {
	case "light", "dark", "notty", "ascii", "dracula", "pink", "tokyo-night":
		return s
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("MDSTUDIO_MD_STYLE"))); v == "light" || v == "dark" {
		return v
	}
	// COLORFGBG is often "fg;bg" (e.g. "15;0" => dark bg). Prefer it over terminal queries.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
