package importer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdstudio/internal/model"
	"mdstudio/internal/names"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name, content string
		want          model.ContentKind
	}{
		{"a.md", "<div>x</div>", model.KindMarkdown},
		{"a.MARKDOWN", "", model.KindMarkdown},
		{"a.txt", "# x", model.KindPlainText},
		{"a.text", "", model.KindPlainText},
		{"a.html", "plain", model.KindRichHTML},
		{"a.xhtml", "", model.KindRichHTML},
		{"", "<h1>Hi</h1>", model.KindRichHTML},
		{"notes", "<!DOCTYPE html><html><body>x</body></html>", model.KindRichHTML},
		{"", "# Title\n\nsome *text* with a < b", model.KindMarkdown},
		{"data.csv", "a,b", model.KindMarkdown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.name, tc.content), "%q %q", tc.name, tc.content)
	}
}

func TestSupported(t *testing.T) {
	for _, n := range []string{"a.md", "b.Markdown", "c.txt", "d.html"} {
		assert.True(t, Supported(n), n)
	}
	for _, n := range []string{"a.pdf", "noext", "x.md.bak"} {
		assert.False(t, Supported(n), n)
	}
}

func TestStripToText(t *testing.T) {
	got := StripToText("<h1>Hi</h1><p>one &amp; two<br>three</p><script>bad()</script>")
	require.Equal(t, "Hi\none & two\nthree", got)
}

func TestPlan_ConvertsHTMLPaste(t *testing.T) {
	im := New(nil, nil)
	cur := model.Document{ID: "doc-1", Name: "Untitled.md"}
	set := names.NewSet(map[string]string{"doc-1": "Untitled.md"})

	res := im.Plan(cur, set, Request{Content: "<h1>Hi</h1>", Kind: model.KindRichHTML})
	require.Equal(t, StatusConverted, res.Status)
	require.Equal(t, "# Hi", res.Content)
	require.True(t, res.Reuse)
	require.Equal(t, "doc-1", res.TargetID)
	require.Equal(t, "Untitled.md", res.Name, "reused record may keep its own name")
}

func TestPlan_ConversionFailureFallsBackToText(t *testing.T) {
	boom := errors.New("boom")
	im := New(ConverterFunc(func(string) (string, error) { return "", boom }), nil)

	res := im.Plan(model.Document{}, names.Set{}, Request{Content: "<h1>Hi</h1>", Name: "page.html"})
	require.Equal(t, StatusConversionFailed, res.Status)
	require.ErrorIs(t, res.Err, boom)
	require.Equal(t, "Hi", res.Content)
	require.Equal(t, "page.md", res.Name)
	require.False(t, res.Reuse)
}

func TestPlan_CreatesWhenCurrentHasContentOrName(t *testing.T) {
	im := New(nil, nil)
	set := names.NewSet(map[string]string{"doc-1": "notes.md", "doc-2": "Untitled.md"})

	res := im.Plan(model.Document{ID: "doc-1", Name: "notes.md"}, set, Request{Content: "x", Name: "notes.md"})
	require.False(t, res.Reuse, "named document is not reused")
	require.Equal(t, "notes 2.md", res.Name)

	res = im.Plan(model.Document{ID: "doc-2", Name: "Untitled.md", Content: "typed"}, set, Request{Content: "x"})
	require.False(t, res.Reuse, "edited document is not reused")
	require.Equal(t, "Untitled 2.md", res.Name)
	require.Equal(t, StatusLoaded, res.Status)
}

func TestPlan_InfersExtension(t *testing.T) {
	im := New(nil, nil)
	res := im.Plan(model.Document{}, names.Set{}, Request{Content: "plain", Name: "readme", Kind: model.KindPlainText})
	require.Equal(t, "readme.txt", res.Name)

	res = im.Plan(model.Document{}, names.Set{}, Request{Content: "<p>x</p>", Name: "a.b.htm"})
	require.Equal(t, "a.b.md", res.Name)

	res = im.Plan(model.Document{}, names.Set{}, Request{Content: "# x", Name: "Draft<2>"})
	require.Equal(t, "Draft2.md", res.Name)
}

func TestPickClipboard(t *testing.T) {
	c, k := PickClipboard("Hi", "<h1>Hi</h1>")
	assert.Equal(t, "<h1>Hi</h1>", c)
	assert.Equal(t, model.KindRichHTML, k)

	c, k = PickClipboard("just text", "")
	assert.Equal(t, "just text", c)
	assert.Equal(t, model.KindMarkdown, k)

	c, k = PickClipboard("", "<meta charset=utf-8>hello")
	assert.Equal(t, "hello", c)
	assert.Equal(t, model.KindPlainText, k)
}

func TestResultMessage(t *testing.T) {
	assert.Equal(t, "Opened a.md", Result{Name: "a.md", Status: StatusLoaded}.Message())
	assert.Contains(t, Result{Name: "a.md", Status: StatusConversionFailed}.Message(), "plain text")
}
