package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKVBackends(t *testing.T) {
	ctx := context.Background()
	for _, backend := range []Backend{BackendMemory, BackendFile, BackendSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			dir := t.TempDir()
			kv, err := OpenKV(ctx, backend, dir)
			require.NoError(t, err)
			defer kv.Close()

			_, ok, err := kv.Get(ctx, DocumentsKey)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, kv.Set(ctx, DocumentsKey, `{"a":1}`))
			require.NoError(t, kv.Set(ctx, DocumentsKey, `{"a":2}`))
			v, ok, err := kv.Get(ctx, DocumentsKey)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `{"a":2}`, v)

			require.NoError(t, kv.Delete(ctx, DocumentsKey))
			require.NoError(t, kv.Delete(ctx, DocumentsKey), "deleting a missing key is fine")
			_, ok, err = kv.Get(ctx, DocumentsKey)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestSQLiteKV_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "studio.sqlite")

	kv, err := OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, LegacyKey, "payload"))
	require.NoError(t, kv.Close())

	kv, err = OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	defer kv.Close()
	v, ok, err := kv.Get(ctx, LegacyKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", v)
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, b)

	b, err = ParseBackend(" File ")
	require.NoError(t, err)
	require.Equal(t, BackendFile, b)

	_, err = ParseBackend("redis")
	require.Error(t, err)
}
