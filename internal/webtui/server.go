package webtui

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
)

//go:embed templates/*.html
var assetsFS embed.FS

type ServerConfig struct {
	// Dir and Backend are passed to the editor process so it opens the same drafts.
	Dir     string
	Backend string
	Logger  *slog.Logger

	// Command builds the process attached to each terminal. Nil runs this executable
	// with no subcommand, which starts the interactive editor.
	Command func() (*exec.Cmd, error)
}

type Server struct {
	cfg  ServerConfig
	log  *slog.Logger
	tmpl *template.Template
}

func NewServer(cfg ServerConfig) (*Server, error) {
	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Command == nil {
		cfg.Command = editorCommand(cfg.Dir, cfg.Backend)
	}
	return &Server{cfg: cfg, log: logger, tmpl: tmpl}, nil
}

func editorCommand(dir, backend string) func() (*exec.Cmd, error) {
	return func() (*exec.Cmd, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, err
		}
		if exe == "" {
			return nil, errors.New("webtui: cannot locate executable")
		}
		args := []string{}
		if d := strings.TrimSpace(dir); d != "" {
			args = append(args, "--dir", d)
		}
		if b := strings.TrimSpace(backend); b != "" {
			args = append(args, "--backend", b)
		}
		cmd := exec.Command(exe, args...)
		cmd.Env = append(os.Environ(),
			"TERM=xterm-256color",
			"COLORTERM=truecolor",
		)
		return cmd, nil
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/terminal", http.StatusFound)
	})
	mux.HandleFunc("GET /terminal", s.handleTerminal)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

type terminalVM struct {
	Dir     string
	Backend string
}

func (s *Server) handleTerminal(w http.ResponseWriter, r *http.Request) {
	vm := terminalVM{
		Dir:     strings.TrimSpace(s.cfg.Dir),
		Backend: strings.TrimSpace(s.cfg.Backend),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "terminal.html", vm); err != nil {
		s.log.Warn("webtui: render terminal page", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
