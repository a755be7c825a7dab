package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mdstudio/internal/docs"
	"mdstudio/internal/publish"
	"mdstudio/internal/render"
	"mdstudio/internal/store"

	"github.com/spf13/cobra"
)

var errNothingToBackUp = errors.New("nothing to back up")

func newDoctorCmd(app *App) *cobra.Command {
	var fail bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the stored documents without changing them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			kv, err := openKV(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer kv.Close()

			report := store.Doctor(ctx, kv, app.config().QuotaBytes)
			hints := []string{}
			if len(report.Issues) > 0 {
				hints = append(hints, "mdstudio backup", "mdstudio list")
			}
			if err := writeOut(cmd, app, map[string]any{
				"data": report,
				"meta": map[string]any{
					"issues":    len(report.Issues),
					"hasErrors": report.HasErrors(),
				},
				"_hints": hints,
			}); err != nil {
				return err
			}
			if fail && report.HasErrors() {
				return store.ErrDoctorIssuesFound
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit with non-zero status if errors are found")
	return cmd
}

func newBackupCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a copy of the stored documents to a file",
		Example: strings.TrimSpace(`
mdstudio backup
mdstudio backup --out ~/drafts.json
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			path, err := takeBackup(ctx, app, out)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   map[string]any{"path": path},
				"_hints": []string{"mdstudio restore " + path},
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Backup file (default: <dir>/backups/mdstudio-<time>.json)")
	return cmd
}

// takeBackup writes the current KV values to out, or to a timestamped file in the
// backup directory when out is empty.
func takeBackup(ctx context.Context, app *App, out string) (string, error) {
	kv, err := openKV(ctx, app)
	if err != nil {
		return "", err
	}
	defer kv.Close()

	now := time.Now()
	b, err := store.ReadBackupKV(ctx, kv, now)
	if err != nil {
		return "", err
	}
	if b.Documents == "" && b.Legacy == "" {
		return "", errNothingToBackUp
	}
	path := strings.TrimSpace(out)
	if path == "" {
		dir, err := app.dataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(store.BackupDir(dir), store.BackupFileName(now))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := store.WriteBackup(path, b); err != nil {
		return "", err
	}
	return path, nil
}

func newRestoreCmd(app *App) *cobra.Command {
	var noBackup bool

	cmd := &cobra.Command{
		Use:   "restore <backup-file>",
		Short: "Replace the stored documents with a backup",
		Long: strings.TrimSpace(`
Replace the stored documents with the contents of a backup file. Unless --no-backup
is given, the current state is backed up first and its path is reported.

Close running editors first: they keep their documents in memory and save them over
the restored state.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmdContext(cmd)
			b, err := store.ReadBackup(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			previous := ""
			if !noBackup {
				previous, err = takeBackup(ctx, app, "")
				if err != nil && !errors.Is(err, errNothingToBackUp) {
					return writeErr(cmd, fmt.Errorf("back up current state: %w", err))
				}
			}

			kv, err := openKV(ctx, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer kv.Close()
			if err := store.RestoreBackup(ctx, kv, b); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"restored":  args[0],
					"createdAt": time.UnixMilli(b.CreatedAt).UTC().Format(time.RFC3339Nano),
					"previous":  previous,
				},
				"_hints": []string{"mdstudio list", "mdstudio doctor"},
			})
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Do not back up the current state first")
	return cmd
}

func newPublishCmd(app *App) *cobra.Command {
	var toDir string
	var html bool
	var includeEmpty bool
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Write every document to a directory as files",
		Long: strings.TrimSpace(`
Write every document to a directory under its own name, plus an index.md linking
them. --html adds a standalone page per document in the configured theme.
`),
		Example: strings.TrimSpace(`
mdstudio publish --to ./site --html
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			res, err := publish.WriteAll(s.List(), toDir, publish.WriteOptions{
				HTML:         html,
				Theme:        app.config().Theme,
				IncludeEmpty: includeEmpty,
				Overwrite:    overwrite,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": res,
				"meta": map[string]any{"written": len(res.Written)},
			})
		},
	}
	cmd.Flags().StringVar(&toDir, "to", "", "Output directory")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().BoolVar(&html, "html", false, "Also write an HTML page per document")
	cmd.Flags().BoolVar(&includeEmpty, "include-empty", false, "Include documents with no content")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing files")
	return cmd
}

func newHelpDocsCmd(app *App) *cobra.Command {
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show built-in help topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"topics": docs.Topics()}})
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, fmt.Errorf("unknown docs topic: %q (run `mdstudio docs` to list topics)", topic))
			}
			if raw {
				_, err := fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if app.Format == "text" {
				style := ""
				if tc := app.config().TUI; tc != nil {
					style = tc.Style
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), render.Terminal(body, width, style))
				return err
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"topic": topic, "markdown": body}})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print raw markdown (no JSON envelope)")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --format text")
	return cmd
}
