package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"mdstudio/internal/format"
	"mdstudio/internal/model"
	"mdstudio/internal/platform"
	"mdstudio/internal/store"
	"mdstudio/internal/studio"

	"github.com/spf13/cobra"
)

type App struct {
	Dir        string
	Backend    string
	PrettyJSON bool
	Format     string
	LogLevel   string

	// interactive is set while the TUI owns the terminal; logs and notices must not
	// reach stderr then.
	interactive bool

	cfg *store.GlobalConfig
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "mdstudio",
		Short:        "Multi-draft markdown editor (TUI, CLI and live preview)",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive editor
  mdstudio

  # Scriptable commands
  mdstudio list
  mdstudio new --name "Plan.md" --content "# Plan"

  # Open a file in the editor (shortcut for: mdstudio edit notes.md)
  mdstudio notes.md
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive editor.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("MDSTUDIO_DIR", ""), "Data directory (default: config dir or config.json \"dir\")")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("MDSTUDIO_BACKEND", ""), "Storage backend (sqlite|file|memory)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("MDSTUDIO_FORMAT", "json"), "Output format (json|text)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("MDSTUDIO_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")

	cmd.AddCommand(newNewCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newUseCmd(app))
	cmd.AddCommand(newRenameCmd(app))
	cmd.AddCommand(newRmCmd(app))
	cmd.AddCommand(newWriteCmd(app))
	cmd.AddCommand(newFormatCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newPasteCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newCopyCmd(app))
	cmd.AddCommand(newUsageCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newEditCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newWebTUICmd(app))
	cmd.AddCommand(newPublishCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newBackupCmd(app))
	cmd.AddCommand(newRestoreCmd(app))
	cmd.AddCommand(newHelpDocsCmd(app))

	return cmd
}

func (app *App) config() *store.GlobalConfig {
	if app.cfg != nil {
		return app.cfg
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		// An unreadable config should not lock the user out of their drafts.
		slog.Warn("config: load failed; using defaults", "err", err)
		cfg = &store.GlobalConfig{}
	}
	app.cfg = cfg
	return cfg
}

func (app *App) dataDir() (string, error) {
	if d := strings.TrimSpace(app.Dir); d != "" {
		return d, nil
	}
	return app.config().DataDir()
}

func (app *App) backend() (store.Backend, error) {
	b := strings.TrimSpace(app.Backend)
	if b == "" {
		b = app.config().Backend
	}
	return store.ParseBackend(b)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// openKV opens the configured backend without loading anything from it.
func openKV(ctx context.Context, app *App) (store.KV, error) {
	dir, err := app.dataDir()
	if err != nil {
		return nil, err
	}
	backend, err := app.backend()
	if err != nil {
		return nil, err
	}
	return store.OpenKV(ctx, backend, dir)
}

// openStudio opens the configured KV and loads the document collection. The returned
// close func flushes pending autosaves before releasing the KV.
func openStudio(cmd *cobra.Command, app *App, mods ...func(*studio.Options)) (*studio.Studio, func(), error) {
	ctx := cmdContext(cmd)
	kv, err := openKV(ctx, app)
	if err != nil {
		return nil, nil, err
	}

	cfg := app.config()
	wd, _ := os.Getwd()
	logW := cmd.ErrOrStderr()
	if app.interactive {
		logW = io.Discard
	}
	opts := studio.Options{
		KV:          kv,
		Logger:      newLogger(logW, app.LogLevel),
		Debounce:    cfg.Debounce(),
		QuotaBudget: cfg.QuotaBytes,
		Theme:       cfg.Theme,
		Files:       platform.OSFiles{Dir: wd},
	}
	for _, m := range mods {
		m(&opts)
	}

	s, err := studio.New(opts)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	unsub := func() {}
	if !app.interactive {
		stderr := cmd.ErrOrStderr()
		unsub = s.Subscribe(func(ev model.Event) {
			if ev.Type == model.EventNotice && ev.Level != model.NoticeInfo {
				fmt.Fprintf(stderr, "%s: %s\n", ev.Level, ev.Message)
			}
		})
	}
	if err := s.Open(ctx); err != nil {
		unsub()
		_ = s.Close()
		_ = kv.Close()
		return nil, nil, err
	}
	if serr := s.StorageError(); serr != nil && !app.interactive {
		unsub()
		_ = s.Close()
		_ = kv.Close()
		return nil, nil, serr
	}
	closeFn := func() {
		_ = s.Close()
		unsub()
		_ = kv.Close()
	}
	return s, closeFn, nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
