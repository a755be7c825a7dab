package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"mdstudio/internal/platform"
	"mdstudio/internal/render"
	"mdstudio/internal/store"
	"mdstudio/internal/studio"

	"github.com/spf13/cobra"
)

// systemClipboard is swapped out by tests.
var systemClipboard = func() platform.Clipboard { return platform.SystemClipboard{} }

func withClipboard(c platform.Clipboard) func(*studio.Options) {
	return func(o *studio.Options) { o.Clipboard = c }
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>...",
		Short: "Import markdown, text or HTML files as documents",
		Long: strings.TrimSpace(`
Import files the way dropping them on the editor does. The first file reuses the
current document when it is still blank and untitled; HTML is converted to markdown.
`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			out := make([]docSummary, 0, len(args))
			for _, p := range args {
				id, err := s.DropFile(cmd.Context(), p)
				if err != nil {
					return writeErr(cmd, fmt.Errorf("import %s: %w", p, err))
				}
				d, _ := s.Get(id)
				out = append(out, summarize(d, currentID(s)))
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	}
}

func newPasteCmd(app *App) *cobra.Command {
	var fromStdin bool
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Import the clipboard as a document",
		Example: strings.TrimSpace(`
mdstudio paste
some-html-producer | mdstudio paste --stdin --html
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clip := systemClipboard()
			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return writeErr(cmd, err)
				}
				mem := &platform.MemoryClipboard{}
				if asHTML {
					mem.Set(platform.ClipboardContent{HTML: string(b)})
				} else {
					mem.Set(platform.ClipboardContent{Plain: string(b)})
				}
				clip = mem
			}

			s, done, err := openStudio(cmd, app, withClipboard(clip))
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			id, err := s.Paste(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			if id == "" {
				return writeErr(cmd, errors.New("clipboard is empty"))
			}
			d, _ := s.Get(id)
			return writeOut(cmd, app, map[string]any{"data": summarize(d, currentID(s))})
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the clipboard payload from stdin")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Treat stdin as rich HTML")
	return cmd
}

func newExportCmd(app *App) *cobra.Command {
	var asMarkdown bool
	var out string

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a document as standalone HTML (or markdown)",
		Example: strings.TrimSpace(`
mdstudio export > page.html
mdstudio export doc-123 --out ./site/
mdstudio export doc-123 --md --out notes.md
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			d, err := lookupDoc(s, id)
			if err != nil {
				return writeErr(cmd, err)
			}

			name, body := d.Name, []byte(d.Content)
			if !asMarkdown {
				var ok bool
				name, body, ok = s.ExportHTML(d.ID)
				if !ok {
					return writeErr(cmd, errNotFound("document", d.ID))
				}
			}

			if strings.TrimSpace(out) == "" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			path := out
			if strings.HasSuffix(out, string(filepath.Separator)) || isDir(out) {
				path = filepath.Join(out, name)
			}
			if err := (platform.OSFiles{}).Write(cmd.Context(), platform.Handle(path), string(body)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{"id": d.ID, "path": path, "bytes": len(body)},
			})
		},
	}
	cmd.Flags().BoolVar(&asMarkdown, "md", false, "Export raw markdown instead of HTML")
	cmd.Flags().StringVar(&out, "out", "", "Output file or directory (default: stdout)")
	return cmd
}

func newCopyCmd(app *App) *cobra.Command {
	var asHTML bool

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy the current document to the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app, withClipboard(systemClipboard()))
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			if asHTML {
				err = s.CopyHTML(cmd.Context())
			} else {
				err = s.CopyMarkdown(cmd.Context())
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			kind := "markdown"
			if asHTML {
				kind = "html"
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": currentID(s), "copied": kind}})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Copy rendered HTML instead of markdown")
	return cmd
}

func newUsageCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show storage usage against the quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			return writeOut(cmd, app, map[string]any{"data": s.Usage()})
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the current document to a blank untitled draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer done()

			s.ClearDraft(cmd.Context())
			d, _ := s.Current()
			return writeOut(cmd, app, map[string]any{"data": summarize(d, d.ID)})
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.mdstudio/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.config()
			dir, _ := app.dataDir()
			path, _ := store.ConfigPath()
			return writeOut(cmd, app, map[string]any{
				"data": cfg,
				"meta": map[string]any{"path": path, "dataDir": dir, "debounce": cfg.Debounce().String(), "previewAddr": cfg.Addr()},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config key",
		Long: strings.TrimSpace(`
Keys: backend, dir, debounceMs, quotaBytes, theme, previewAddr, tui.style, tui.hidePreview
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.config()
			if err := setConfigKey(cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})
	return cmd
}

func setConfigKey(cfg *store.GlobalConfig, key, value string) error {
	value = strings.TrimSpace(value)
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("config %s: want a non-negative integer, got %q", key, value)
		}
		return n, nil
	}
	tui := func() *store.TUIConfig {
		if cfg.TUI == nil {
			cfg.TUI = &store.TUIConfig{}
		}
		return cfg.TUI
	}

	switch key {
	case "backend":
		b, err := store.ParseBackend(value)
		if err != nil {
			return err
		}
		cfg.Backend = string(b)
	case "dir":
		cfg.Dir = value
	case "debounceMs":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.DebounceMs = n
	case "quotaBytes":
		n, err := atoi()
		if err != nil {
			return err
		}
		cfg.QuotaBytes = n
	case "theme":
		if value != render.ThemeLight && value != render.ThemeDark {
			return fmt.Errorf("config theme: want %q or %q", render.ThemeLight, render.ThemeDark)
		}
		cfg.Theme = value
	case "previewAddr":
		cfg.PreviewAddr = value
	case "tui.style":
		tui().Style = value
	case "tui.hidePreview":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config tui.hidePreview: %w", err)
		}
		tui().HidePreview = b
	default:
		return errNotFound("config key", key)
	}
	return nil
}

func isDir(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.IsDir()
}
