package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mdstudio/internal/webtui"

	"github.com/spf13/cobra"
)

func newWebTUICmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "webtui",
		Short: "Run the interactive editor in your browser (PTY + WebSocket, experimental)",
		Long: strings.TrimSpace(`
Run the interactive editor over the web via a server-side PTY and a browser terminal.

Notes:
- No authentication; bind to localhost.
- Each browser tab starts its own editor process on the same drafts.
`),
		Example: strings.TrimSpace(`
mdstudio webtui --addr 127.0.0.1:7879
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("webtui: missing --addr"))
			}
			dir, err := app.dataDir()
			if err != nil {
				return writeErr(cmd, err)
			}
			backend, err := app.backend()
			if err != nil {
				return writeErr(cmd, err)
			}

			srv, err := webtui.NewServer(webtui.ServerConfig{
				Dir:     dir,
				Backend: string(backend),
				Logger:  newLogger(cmd.ErrOrStderr(), app.LogLevel),
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			url := "http://" + ln.Addr().String() + "/"

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      ln.Addr().String(),
					"url":       url,
					"dir":       dir,
					"backend":   string(backend),
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"open " + url},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "mdstudio webtui running at %s\n", url)

			ctx := cmdContext(cmd)
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- hs.Serve(ln) }()

			select {
			case <-ctx.Done():
				// Terminal sockets are hijacked and outlive Close; their editor
				// processes get SIGHUP when the ptys close on exit.
				_ = hs.Close()
				return nil
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return writeErr(cmd, err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7879", "Bind address (host:port or :port)")
	return cmd
}
