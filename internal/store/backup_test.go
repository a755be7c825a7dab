package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBackup_RoundTripAndRestore(t *testing.T) {
	ctx := context.Background()
	src := NewMemoryKV()
	docs := `{"currentId":"a","documents":{"a":{"id":"a","name":"a.md","content":"hi","updatedAt":1700000000000}}}`
	require.NoError(t, src.Set(ctx, DocumentsKey, docs))

	b, err := ReadBackupKV(ctx, src, fixedNow)
	require.NoError(t, err)
	require.Equal(t, docs, b.Documents)
	require.Empty(t, b.Legacy)

	path := filepath.Join(BackupDir(t.TempDir()), BackupFileName(fixedNow))
	require.Equal(t, "mdstudio-20250301-120000.000.json", filepath.Base(path))
	require.NoError(t, WriteBackup(path, b))

	got, err := ReadBackup(path)
	require.NoError(t, err)
	require.Equal(t, b, got)

	dst := NewMemoryKV()
	require.NoError(t, dst.Set(ctx, LegacyKey, `{"content":"stale"}`))
	require.NoError(t, RestoreBackup(ctx, dst, got))

	v, ok, err := dst.Get(ctx, DocumentsKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, docs, v)
	_, ok, _ = dst.Get(ctx, LegacyKey)
	require.False(t, ok, "keys missing from the backup are removed")
}

func TestReadBackup_Rejects(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	_, err := ReadBackup(write("junk.json", "{"))
	require.ErrorContains(t, err, "parse backup")

	_, err = ReadBackup(write("v9.json", `{"version":9,"documents":"{}"}`))
	require.ErrorContains(t, err, "unsupported backup version")

	_, err = ReadBackup(write("empty.json", `{"version":1}`))
	require.ErrorContains(t, err, "empty")

	_, err = ReadBackup(write("bad-docs.json", `{"version":1,"documents":"not json"}`))
	require.ErrorContains(t, err, "unreadable")

	_, err = ReadBackup(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	b, err := ReadBackup(write("legacy-only.json", `{"version":1,"legacy":"{\"content\":\"x\"}","createdAt":1}`))
	require.NoError(t, err)
	require.Equal(t, `{"content":"x"}`, b.Legacy)
}
