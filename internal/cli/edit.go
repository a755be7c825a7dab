package cli

import (
	"io"
	"os"
	"strings"

	"mdstudio/internal/platform"
	"mdstudio/internal/studio"
	"mdstudio/internal/tui"

	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	var preview bool
	var addr string

	cmd := &cobra.Command{
		Use:   "edit [path]",
		Short: "Open the interactive editor",
		Long: strings.TrimSpace(`
Open the interactive editor. With a path, the file is imported first and opened as
the current document.

--preview also serves the live web preview while the editor runs.
`),
		Example: strings.TrimSpace(`
mdstudio edit
mdstudio edit notes.md --preview
`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runEditor(cmd, app, path, preview, addr)
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Also serve the live web preview")
	cmd.Flags().StringVar(&addr, "addr", "", "Preview bind address (default from config)")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	return runEditor(cmd, app, "", false, "")
}

func runEditor(cmd *cobra.Command, app *App, path string, preview bool, addr string) error {
	picker := &tui.Picker{}
	wd, _ := os.Getwd()

	app.interactive = true
	s, closeStudio, err := openStudio(cmd, app, func(o *studio.Options) {
		o.Files = platform.OSFiles{Pick: picker.Pick, Dir: wd}
	})
	app.interactive = false
	if err != nil {
		return writeErr(cmd, err)
	}
	defer closeStudio()

	if path != "" {
		if _, err := s.DropFile(cmd.Context(), path); err != nil {
			return writeErr(cmd, err)
		}
	}

	if preview {
		if strings.TrimSpace(addr) == "" {
			addr = app.config().Addr()
		}
		p, err := startPreview(s, app, newLogger(io.Discard, app.LogLevel), addr)
		if err != nil {
			return writeErr(cmd, err)
		}
		go func() { _ = p.serve() }()
		defer p.shutdown()
	}

	opts := tui.Options{Picker: picker}
	if dir, err := app.dataDir(); err == nil {
		opts.StateDir = dir
	}
	if tc := app.config().TUI; tc != nil {
		opts.Style = tc.Style
		opts.HidePreview = tc.HidePreview
	}
	return tui.Run(s, opts)
}
