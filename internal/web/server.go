package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"mdstudio/internal/model"
	"mdstudio/internal/quota"
	"mdstudio/internal/render"
	"mdstudio/internal/studio"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Studio *studio.Studio
	Logger *slog.Logger

	// Theme selects the page palette ("light" or "dark").
	Theme string
}

type Server struct {
	cfg   ServerConfig
	log   *slog.Logger
	tmpl  *template.Template
	hub   *eventHub
	unsub func()
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Studio == nil {
		return nil, errors.New("web: studio is nil")
	}
	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	if cfg.Theme != render.ThemeDark {
		cfg.Theme = render.ThemeLight
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := template.ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	srv := &Server{cfg: cfg, log: logger, tmpl: tmpl, hub: newEventHub()}
	srv.unsub = cfg.Studio.Subscribe(srv.hub.broadcast)
	return srv, nil
}

// Close detaches from the studio and ends every open stream.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.hub.close()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /export.html", s.handleExport)
	mux.HandleFunc("POST /documents/{id}/use", s.handleUse)
	mux.HandleFunc("GET /static/app.css", s.handleStatic("static/app.css", "text/css; charset=utf-8"))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(path, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(path)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(b)
	}
}

type docVM struct {
	ID      string
	Name    string
	Current bool
}

type previewVM struct {
	Name  string
	HTML  template.HTML
	Empty bool
}

type pageVM struct {
	Title   string
	Theme   string
	Preview previewVM
	Docs    []docVM
	Usage   quota.Usage
	// Signals is the initial datastar signal object as JSON.
	Signals string
}

func (s *Server) previewVM() previewVM {
	cur, _ := s.cfg.Studio.Current()
	// render.HTML sanitizes its output.
	out := render.HTML(cur.Content)
	return previewVM{Name: cur.Name, HTML: template.HTML(out), Empty: strings.TrimSpace(out) == ""}
}

func (s *Server) docsVM() []docVM {
	cur, _ := s.cfg.Studio.Current()
	docs := s.cfg.Studio.List()
	out := make([]docVM, 0, len(docs))
	for _, d := range docs {
		out = append(out, docVM{ID: d.ID, Name: d.Name, Current: d.ID == cur.ID})
	}
	return out
}

func (s *Server) pageVM() pageVM {
	p := s.previewVM()
	u := s.cfg.Studio.Usage()
	sig, _ := json.Marshal(map[string]any{"name": p.Name, "usage": u.Percent, "notice": "", "level": ""})
	return pageVM{
		Title:   render.ExportTitle(p.Name),
		Theme:   s.cfg.Theme,
		Preview: p,
		Docs:    s.docsVM(),
		Usage:   u,
		Signals: string(sig),
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.writeHTMLTemplate(w, "index.html", s.pageVM())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name, page, ok := s.cfg.Studio.ExportHTML("")
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	_, _ = w.Write(page)
}

func (s *Server) handleUse(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !s.cfg.Studio.Switch(id) {
		http.Error(w, "document not found: "+id, http.StatusNotFound)
		return
	}
	// Connected streams pick the switch up from the studio's events.
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents streams preview and document-list patches. Bursts of studio events are
// coalesced into one re-render.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch, cancel := s.hub.subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)
	if err := s.patchAll(sse); err != nil {
		s.log.Debug("events: initial patch failed", "err", err)
		return
	}

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case ev, ok := <-ch:
			if !ok {
				return
			}
			dirty := s.applyEvent(sse, ev)
		drain:
			for {
				select {
				case ev, ok := <-ch:
					if !ok {
						return
					}
					dirty = s.applyEvent(sse, ev) || dirty
				default:
					break drain
				}
			}
			if dirty {
				if err := s.patchAll(sse); err != nil {
					return
				}
			}
		}
	}
}

// applyEvent forwards signal-only events and reports whether the page needs re-rendering.
func (s *Server) applyEvent(sse *datastar.ServerSentEventGenerator, ev model.Event) bool {
	switch ev.Type {
	case model.EventNotice:
		_ = sse.MarshalAndPatchSignals(map[string]any{"notice": ev.Message, "level": string(ev.Level)})
		return false
	case model.EventQuotaChanged:
		_ = sse.MarshalAndPatchSignals(map[string]any{"usage": ev.UsagePercent})
		return false
	case model.EventPersistRequested:
		return false
	}
	return true
}

func (s *Server) patchAll(sse *datastar.ServerSentEventGenerator) error {
	preview, err := s.renderTemplate("preview", s.previewVM())
	if err != nil {
		_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
		return err
	}
	if err := sse.PatchElements(preview, datastar.WithSelector("#preview"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
		return err
	}
	docs, err := s.renderTemplate("doclist", s.docsVM())
	if err != nil {
		return err
	}
	if err := sse.PatchElements(docs, datastar.WithSelector("#doclist"), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
		return err
	}
	cur, _ := s.cfg.Studio.Current()
	return sse.MarshalAndPatchSignals(map[string]any{
		"name":  cur.Name,
		"usage": s.cfg.Studio.Usage().Percent,
	})
}
