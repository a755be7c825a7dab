package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		emoji.Emoji,
	),
	goldmark.WithRendererOptions(
		// Single newlines become <br>, matching the editor's live preview.
		html.WithHardWraps(),
		// Raw HTML (<mark>, <kbd>, ...) is kept here and cleaned by previewPolicy below.
		html.WithUnsafe(),
	),
)

var previewPolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowElements("mark", "kbd", "sup", "sub", "details", "summary")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+-]+$`)).OnElements("code")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	return p
}()

var (
	newlineRE = regexp.MustCompile("\r\n?|[\u2028\u2029]")
	anchorRE  = regexp.MustCompile(`<a\s`)
)

// Normalize converts CR, CRLF and Unicode line/paragraph separators to "\n".
func Normalize(src string) string {
	return newlineRE.ReplaceAllString(src, "\n")
}

// HTML renders markdown to sanitized HTML. Every link opens in a new tab without
// leaking the referrer.
func HTML(src string) string {
	src = Normalize(src)
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var b bytes.Buffer
	if err := markdownRenderer.Convert([]byte(src), &b); err != nil {
		return "<pre>" + template.HTMLEscapeString(src) + "</pre>"
	}
	clean := previewPolicy.Sanitize(b.String())
	return anchorRE.ReplaceAllString(clean, `<a target="_blank" rel="noreferrer noopener" `)
}
