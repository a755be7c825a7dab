package render

import (
	"html/template"
	"strings"

	"mdstudio/internal/names"
)

const exportStyles = `body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",sans-serif;margin:0;padding:2rem;background:#f6f8fa;color:#24292f;}[data-theme="dark"] body{background:#0d1117;color:#e6edf3;}a{color:#0969da;}code,pre{font-family:"SFMono-Regular",Consolas,"Liberation Mono",Menlo,monospace;border-radius:6px;}pre{padding:1rem;overflow:auto;background:#f6f8fa;color:#24292f;}[data-theme="dark"] pre{background:#161b22;color:#e6edf3;}code{background:#f6f8fa;color:#24292f;padding:0.15rem 0.4rem;}[data-theme="dark"] code{background:#161b22;color:#e6edf3;}table{border-collapse:collapse;width:100%;margin:1rem 0;}th,td{border:1px solid #d0d7de;padding:0.5rem;text-align:left;}blockquote{margin:1rem 0;padding:0.5rem 1rem;border-left:4px solid #d0d7de;color:rgba(87,96,106,0.9);}h1,h2,h3,h4,h5,h6{border-bottom:1px solid #d0d7de;padding-bottom:0.3em;margin:1.5em 0 0.8em;}img{max-width:100%;}article.markdown-body{max-width:860px;margin:0 auto;background:rgba(255,255,255,0.97);padding:2rem;border-radius:12px;box-shadow:0 10px 30px rgba(15,23,42,0.08);font-size:0.97rem;line-height:1.65;}article.markdown-body pre{margin:1.5rem 0;}[data-theme="dark"] article.markdown-body{background:#161b22;color:#e6edf3;box-shadow:0 10px 30px rgba(0,0,0,0.45);}`

// Theme values accepted by ExportHTML.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ExportTitle is name without its extension.
func ExportTitle(name string) string {
	base, _ := names.SplitExt(strings.TrimSpace(name))
	return base
}

// ExportName is the download name for an HTML export of name.
func ExportName(name string) string {
	base := ExportTitle(name)
	if base == "" {
		base = "document"
	}
	return base + ".html"
}

// ExportHTML wraps the rendered markdown in a standalone, styled HTML document.
func ExportHTML(name, src, theme string) []byte {
	if theme != ThemeDark {
		theme = ThemeLight
	}
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="en" data-theme="`)
	b.WriteString(theme)
	b.WriteString(`"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width,initial-scale=1"><title>`)
	b.WriteString(template.HTMLEscapeString(ExportTitle(name)))
	b.WriteString(`</title><style>`)
	b.WriteString(exportStyles)
	b.WriteString(`</style></head><body><article class="markdown-body">`)
	b.WriteString(HTML(src))
	b.WriteString(`</article></body></html>`)
	return []byte(b.String())
}
