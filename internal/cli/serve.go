package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"mdstudio/internal/studio"
	"mdstudio/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a live HTML preview of the current document",
		Long: strings.TrimSpace(`
Serve a live preview from a local HTTP server.

The page follows the current document: edits made from the CLI or the interactive
editor are pushed to the browser over server-sent events. /ws streams the raw
document events as JSON for other tools.
`),
		Example: strings.TrimSpace(`
# Serve on the configured address (default 127.0.0.1:7878)
mdstudio serve

# Pick a port and skip the browser
mdstudio serve --addr :4000 --open=false
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.config().Addr()
			}

			s, closeStudio, err := openStudio(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeStudio()

			p, err := startPreview(s, app, newLogger(cmd.ErrOrStderr(), app.LogLevel), listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			opened := false
			openErr := ""
			if open {
				if err := openPath(p.url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			hints := []string{}
			if !opened {
				hints = append(hints, "open "+p.url)
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      p.addr,
					"url":       p.url,
					"opened":    opened,
					"openError": openErr,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": hints,
			})

			fmt.Fprintf(cmd.ErrOrStderr(), "mdstudio preview running at %s\n", p.url)
			if openErr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to open browser: %s\n", openErr)
			}

			ctx := cmdContext(cmd)
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- p.serve() }()

			select {
			case <-ctx.Done():
				p.shutdown()
				return nil
			case err := <-errCh:
				p.shutdown()
				if err != nil {
					return writeErr(cmd, err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default from config)")
	cmd.Flags().BoolVar(&open, "open", true, "Open the preview in your default browser")
	return cmd
}

// previewServer is the web preview bound to a listener but not yet serving.
type previewServer struct {
	web  *web.Server
	http *http.Server
	ln   net.Listener
	addr string
	url  string
}

func startPreview(s *studio.Studio, app *App, logger *slog.Logger, addr string) (*previewServer, error) {
	ws, err := web.NewServer(web.ServerConfig{
		Studio: s,
		Logger: logger,
		Theme:  app.config().Theme,
	})
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		ws.Close()
		return nil, err
	}
	actual := ln.Addr().String()
	return &previewServer{
		web:  ws,
		http: &http.Server{Handler: ws.Handler(), ReadHeaderTimeout: 10 * time.Second},
		ln:   ln,
		addr: actual,
		url:  "http://" + actual + "/",
	}, nil
}

func (p *previewServer) serve() error {
	if err := p.http.Serve(p.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown ends the event streams first so Shutdown does not wait on them.
func (p *previewServer) shutdown() {
	p.web.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.http.Shutdown(ctx)
}

func openPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("empty path")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Run()
	default:
		return exec.Command("xdg-open", path).Run()
	}
}
