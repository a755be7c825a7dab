// Package names turns user-supplied document names into valid, unique file names.
//
// Everything here is a pure function of its inputs: callers pass the current name set
// explicitly, so the same checks serve create, rename, import and load recovery.
package names

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	// MaxLen is the maximum name length in runes, after trimming.
	MaxLen = 120
	// DefaultExt is used when a name carries no extension.
	DefaultExt = ".md"
	// UntitledBase is the base of generated names.
	UntitledBase = "Untitled"

	reserved = `<>:"/\|?*`
)

var untitledRE = regexp.MustCompile(`(?i)^untitled(?: [0-9]+)?(?:\.[^.\s]+)?$`)

// Sanitize strips control and reserved characters, collapses whitespace, trims, drops
// trailing dots/spaces and truncates to MaxLen runes. When nothing survives, the
// sanitized fallback is returned (or fallback verbatim if it is itself unusable).
//
// Sanitize(Sanitize(x, f), f) == Sanitize(x, f) for all x, f.
func Sanitize(raw, fallback string) string {
	if out := clean(raw); out != "" {
		return out
	}
	if out := clean(fallback); out != "" {
		return out
	}
	return fallback
}

func clean(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	space := false
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), strings.ContainsRune(reserved, r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	out := trimTail(b.String())
	if rs := []rune(out); len(rs) > MaxLen {
		out = trimTail(string(rs[:MaxLen]))
	}
	return out
}

func trimTail(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ". ")
}

// SplitExt splits name into base and extension. The extension starts at the last
// interior dot; a leading or trailing dot does not count.
func SplitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// HasExt reports whether name carries an extension.
func HasExt(name string) bool {
	_, ext := SplitExt(name)
	return ext != ""
}

// EnsureExt appends ext when name has none, shortening name to stay within MaxLen.
func EnsureExt(name, ext string) string {
	if HasExt(name) {
		return name
	}
	if ext == "" {
		ext = DefaultExt
	}
	return fitBase(name, ext) + ext
}

// ReplaceExt swaps whatever extension name has for ext.
func ReplaceExt(name, ext string) string {
	base, _ := SplitExt(name)
	return fitBase(base, ext) + ext
}

func fitBase(base, ext string) string {
	if room := MaxLen - len([]rune(ext)); room > 0 {
		if rs := []rune(base); len(rs) > room {
			return trimTail(string(rs[:room]))
		}
	}
	return base
}

// IsUntitled reports whether name looks auto-generated ("Untitled.md", "Untitled 3.txt").
func IsUntitled(name string) bool {
	return untitledRE.MatchString(strings.TrimSpace(name))
}

// Set is a case-insensitive view of the names in use, keyed to the owning id.
type Set map[string]string

// NewSet builds a Set from id -> name.
func NewSet(byID map[string]string) Set {
	s := make(Set, len(byID))
	for id, name := range byID {
		s.Add(id, name)
	}
	return s
}

// Add records name as owned by id.
func (s Set) Add(id, name string) {
	s[fold(name)] = id
}

// Remove forgets name.
func (s Set) Remove(name string) {
	delete(s, fold(name))
}

// Taken reports whether name is used by anyone other than excludeID.
func (s Set) Taken(name, excludeID string) bool {
	owner, ok := s[fold(name)]
	if !ok {
		return false
	}
	return excludeID == "" || owner != excludeID
}

func fold(name string) string {
	return strings.ToLower(name)
}

// ResolveConflict returns candidate if it is free, otherwise "Base N.ext" with the
// smallest N >= 2 that is free.
func ResolveConflict(s Set, candidate, excludeID string) string {
	if !s.Taken(candidate, excludeID) {
		return candidate
	}
	base, ext := SplitExt(candidate)
	for n := 2; ; n++ {
		next := withSuffix(base, ext, n)
		if !s.Taken(next, excludeID) {
			return next
		}
	}
}

func withSuffix(base, ext string, n int) string {
	suffix := " " + strconv.Itoa(n)
	room := MaxLen - len([]rune(suffix)) - len([]rune(ext))
	if rs := []rune(base); room > 0 && len(rs) > room {
		base = strings.TrimRight(string(rs[:room]), ". ")
	}
	return base + suffix + ext
}

// UntitledName returns the first free "Untitled<ext>", "Untitled 2<ext>", ...
func UntitledName(s Set, ext string) string {
	if ext == "" {
		ext = DefaultExt
	}
	return ResolveConflict(s, UntitledBase+ext, "")
}
