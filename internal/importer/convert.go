package importer

import (
	"errors"
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/microcosm-cc/bluemonday"
)

// Converter turns rich HTML into markdown. Implementations may fail.
type Converter interface {
	ToMarkdown(html string) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(html string) (string, error)

func (f ConverterFunc) ToMarkdown(s string) (string, error) { return f(s) }

// ErrEmptyConversion is returned when conversion produced nothing from non-empty input.
var ErrEmptyConversion = errors.New("conversion produced no markdown")

type htmlToMarkdown struct {
	conv *md.Converter
}

// NewConverter returns the default converter (GitHub-flavoured tables, strikethrough
// and task lists).
func NewConverter() Converter {
	conv := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		CodeBlockStyle:   "fenced",
		BulletListMarker: "-",
		EmDelimiter:      "_",
		StrongDelimiter:  "**",
	})
	conv.Use(plugin.GitHubFlavored())
	return htmlToMarkdown{conv: conv}
}

func (c htmlToMarkdown) ToMarkdown(s string) (string, error) {
	out, err := c.conv.ConvertString(s)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" && strings.TrimSpace(StripToText(s)) != "" {
		return "", ErrEmptyConversion
	}
	return out, nil
}

var (
	blockEndRE  = regexp.MustCompile(`(?i)</\s*(?:p|div|h[1-6]|li|tr|blockquote|pre|section|article|table|ul|ol)\s*>|<\s*br\s*/?\s*>`)
	spaceRunRE  = regexp.MustCompile(`[ \t\f\v]+`)
	blankRunsRE = regexp.MustCompile(`\n{3,}`)
)

var strict = bluemonday.StrictPolicy()

// StripToText drops all markup and returns readable plain text. Block boundaries become
// line breaks; entities are decoded.
func StripToText(s string) string {
	s = blockEndRE.ReplaceAllStringFunc(s, func(m string) string { return m + "\n" })
	s = html.UnescapeString(strict.Sanitize(s))
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRunRE.ReplaceAllString(l, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRunsRE.ReplaceAllString(s, "\n\n"))
}
