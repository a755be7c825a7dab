package platform

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOSFiles_SaveAsWriteOpen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	f := OSFiles{Pick: FixedPicker("out/notes.md"), Dir: dir}

	h, err := f.SaveAs(ctx, "ignored.md")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "out", "notes.md"), string(h))
	require.Equal(t, "notes.md", h.Name())

	require.NoError(t, f.Write(ctx, h, "a\r\nb\rc\n"))
	b, err := os.ReadFile(string(h))
	require.NoError(t, err)
	require.Equal(t, "a\nb\nc\n", string(b))

	got, err := f.Open(ctx)
	require.NoError(t, err)
	require.Equal(t, "notes.md", got.Name)
	require.Equal(t, "a\nb\nc\n", got.Content)
	require.Equal(t, h, got.Handle)
}

func TestOSFiles_Cancelled(t *testing.T) {
	ctx := context.Background()
	_, err := OSFiles{}.Open(ctx)
	require.ErrorIs(t, err, ErrCancelled)

	_, err = OSFiles{Pick: FixedPicker("  ")}.SaveAs(ctx, "x.md")
	require.ErrorIs(t, err, ErrCancelled)

	boom := errors.New("boom")
	_, err = OSFiles{Pick: func(context.Context, Purpose, string) (string, error) { return "", boom }}.Open(ctx)
	require.ErrorIs(t, err, boom)
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadFile(filepath.Join(dir, "missing.md"))
	require.Error(t, err)
	_, err = ReadFile(dir)
	require.Error(t, err)
}

func TestMemoryClipboard(t *testing.T) {
	ctx := context.Background()
	var c MemoryClipboard
	c.Set(ClipboardContent{Plain: "Hi", HTML: "<h1>Hi</h1>"})
	got, err := c.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "<h1>Hi</h1>", got.HTML)

	require.NoError(t, c.Write(ctx, "x"))
	got, _ = c.Read(ctx)
	require.Equal(t, ClipboardContent{Plain: "x"}, got)
}
