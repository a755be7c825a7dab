package importer

import (
	"path/filepath"
	"regexp"
	"strings"

	"mdstudio/internal/model"
)

var structuralTagRE = regexp.MustCompile(`(?i)<\s*(?:!doctype\s+html|html|head|body|div|p|h[1-6]|ul|ol|li|table|thead|tbody|tr|td|th|section|article|header|footer|blockquote|pre|span|strong|em|a\s+href|img|br)\b[^>]*>`)

// Classify decides how content should be treated: by extension first, then by sniffing
// for structural HTML tags, defaulting to markdown.
func Classify(name, content string) model.ContentKind {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(name))) {
	case ".md", ".markdown":
		return model.KindMarkdown
	case ".txt", ".text":
		return model.KindPlainText
	case ".html", ".htm", ".xhtml":
		return model.KindRichHTML
	}
	if LooksLikeHTML(content) {
		return model.KindRichHTML
	}
	return model.KindMarkdown
}

// LooksLikeHTML reports whether s carries structural HTML tags.
func LooksLikeHTML(s string) bool {
	return structuralTagRE.MatchString(s)
}

// Supported reports whether a dropped or picked file should be accepted.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt", ".text", ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// ExtFor is the extension an import of kind is stored under.
func ExtFor(kind model.ContentKind) string {
	if kind == model.KindPlainText {
		return ".txt"
	}
	return ".md"
}

// PickClipboard chooses the representation to paste: the HTML flavour when it carries
// structure, else plain text.
func PickClipboard(plain, html string) (content string, kind model.ContentKind) {
	if strings.TrimSpace(html) != "" && LooksLikeHTML(html) {
		return html, model.KindRichHTML
	}
	if plain == "" && strings.TrimSpace(html) != "" {
		return StripToText(html), model.KindPlainText
	}
	if LooksLikeHTML(plain) {
		return plain, model.KindRichHTML
	}
	return plain, model.KindMarkdown
}
