package tui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Palette. AdaptiveColor keeps the editor readable on light and dark terminals; faint
// styling is only applied on dark backgrounds where it stays legible.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted       lipgloss.TerminalColor = ac("240", "243")
	colorBorder      lipgloss.TerminalColor = ac("250", "238")
	colorFocusBorder lipgloss.TerminalColor = ac("27", "62")
	colorSelectedBg  lipgloss.TerminalColor = ac("#e9e9e9", "#262626")
	colorSelectedFg  lipgloss.TerminalColor = ac("235", "255")
	colorInputBg     lipgloss.TerminalColor = ac("254", "234")
	colorWarn        lipgloss.TerminalColor = ac("130", "214")
	colorError       lipgloss.TerminalColor = ac("160", "203")
	colorTitleFg     lipgloss.TerminalColor = ac("235", "252")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func styleTitle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(colorTitleFg).Bold(true)
}

func stylePane(focused bool) lipgloss.Style {
	border := colorBorder
	if focused {
		border = colorFocusBorder
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border)
}

// styleUsage colours the quota percentage by tier.
func styleUsage(percent int) lipgloss.Style {
	switch {
	case percent >= 90:
		return lipgloss.NewStyle().Foreground(colorError).Bold(true)
	case percent >= 75:
		return lipgloss.NewStyle().Foreground(colorWarn)
	}
	return styleMuted()
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive editor.
//
// termenv.EnvColorProfile honors CLICOLOR, which can disable colors in a TUI; only
// NO_COLOR is honored here, otherwise the terminal's capabilities are trusted.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()

	// TERM/COLORTERM can report stronger support than the detector (macOS Terminal.app).
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && (profile == termenv.Ascii || profile == termenv.ANSI) {
		profile = termenv.ANSI256
	}

	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures background detection, since some terminals do not
// report their background reliably.
//
// Priority:
// 1) the configured markdown style when it is "light" or "dark"
// 2) MDSTUDIO_TUI_THEME=light|dark
// 3) COLORFGBG heuristic ("fg;bg")
func applyThemePreference(style string) {
	for _, v := range []string{style, os.Getenv("MDSTUDIO_TUI_THEME")} {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "light":
			lipgloss.SetHasDarkBackground(false)
			return
		case "dark":
			lipgloss.SetHasDarkBackground(true)
			return
		}
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}
