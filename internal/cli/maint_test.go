package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdstudio/internal/store"

	"github.com/stretchr/testify/require"
)

func TestDoctor_CleanStore(t *testing.T) {
	_, run := env(t)
	run("new", "--name", "Plan", "--content", "# Plan")

	out := run("doctor", "--fail")
	report := dataMap(t, out)
	require.EqualValues(t, 2, report["documents"])
	require.Empty(t, report["issues"])
	require.Equal(t, false, out["meta"].(map[string]any)["hasErrors"])
}

func TestDoctor_ReportsUnreadableStore(t *testing.T) {
	dir, _ := env(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "kv"), 0o755))
	kv, err := store.OpenFileKV(filepath.Join(dir, "kv"))
	require.NoError(t, err)
	require.NoError(t, kv.Set(t.Context(), store.DocumentsKey, "{not json"))

	args := []string{"--backend", "file", "--dir", dir, "doctor"}
	_, _, err = runCLI(t, args)
	require.NoError(t, err, "without --fail the report is informational")

	_, _, err = runCLI(t, append(args, "--fail"))
	require.True(t, errors.Is(err, store.ErrDoctorIssuesFound))
}

func TestBackupAndRestore(t *testing.T) {
	dir, run := env(t)
	created := dataMap(t, run("new", "--name", "Keep", "--content", "keep me"))
	id := created["id"].(string)

	path := dataMap(t, run("backup"))["path"].(string)
	require.True(t, strings.HasPrefix(path, filepath.Join(dir, "backups")+string(filepath.Separator)))

	run("rm", id)
	_, _, err := runCLI(t, []string{"--backend", "file", "--dir", dir, "show", id})
	require.Error(t, err)

	restored := dataMap(t, run("restore", path))
	require.Equal(t, path, restored["restored"])
	require.NotEmpty(t, restored["previous"], "the state being replaced is backed up first")

	shown := dataMap(t, run("show", id))
	require.Equal(t, "keep me", shown["content"])
}

func TestBackup_ExplicitPath(t *testing.T) {
	_, run := env(t)
	run("list")
	out := filepath.Join(t.TempDir(), "nested", "drafts.json")
	require.Equal(t, out, dataMap(t, run("backup", "--out", out))["path"])
	_, err := store.ReadBackup(out)
	require.NoError(t, err)
}

func TestRestore_RejectsBadFile(t *testing.T) {
	dir, _ := env(t)
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":9}`), 0o600))
	_, _, err := runCLI(t, []string{"--backend", "file", "--dir", dir, "restore", bad})
	require.ErrorContains(t, err, "unsupported backup version")
}

func TestPublish_WritesFiles(t *testing.T) {
	_, run := env(t)
	run("new", "--name", "Plan", "--content", "# Plan")
	out := t.TempDir()

	res := dataMap(t, run("publish", "--to", out, "--html"))
	require.Len(t, res["written"], 4)
	require.Equal(t, []any{"Untitled.md"}, res["skipped"])

	b, err := os.ReadFile(filepath.Join(out, "Plan.md"))
	require.NoError(t, err)
	require.Equal(t, "# Plan", string(b))
	require.FileExists(t, filepath.Join(out, "Plan.html"))
	require.FileExists(t, filepath.Join(out, "index.html"))

	// A fresh memory store has only an empty document, so only the index is written.
	empty := t.TempDir()
	args := []string{"--backend", "memory", "publish", "--to", empty}
	_, _, err = runCLI(t, args)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(empty, "index.md"))
	_, _, err = runCLI(t, args)
	require.ErrorContains(t, err, "use --overwrite")
	_, _, err = runCLI(t, append(args, "--overwrite"))
	require.NoError(t, err)
}

func TestDocs_Topics(t *testing.T) {
	_, run := env(t)
	topics := dataMap(t, run("docs"))["topics"].([]any)
	require.Contains(t, topics, "keys")

	stdout, _, err := runCLI(t, []string{"docs", "keys", "--raw"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(stdout), "# Keys"))

	_, _, err = runCLI(t, []string{"docs", "nope"})
	require.ErrorContains(t, err, "unknown docs topic")
}
