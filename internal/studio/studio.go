// Package studio owns the single editing core: the document collection, the open
// buffer and its undo stack, persistence and quota tracking. Presentation layers
// (CLI, TUI, web preview) drive it through methods and observe it through events.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mdstudio/internal/autosave"
	"mdstudio/internal/docstore"
	"mdstudio/internal/editor"
	"mdstudio/internal/history"
	"mdstudio/internal/importer"
	"mdstudio/internal/model"
	"mdstudio/internal/platform"
	"mdstudio/internal/quota"
	"mdstudio/internal/store"
)

type Options struct {
	// KV is required. The caller owns it and closes it after Close.
	KV     store.KV
	Logger *slog.Logger

	// Debounce is the autosave quiescence window (default 3s).
	Debounce time.Duration
	// QuotaBudget is the storage budget in bytes (default 5 MiB).
	QuotaBudget int

	Converter importer.Converter
	Files     platform.Files
	Clipboard platform.Clipboard

	// Theme is the export theme ("light" or "dark").
	Theme string

	Now   func() time.Time
	NewID func() string
}

type Studio struct {
	log   *slog.Logger
	codec *store.Codec
	docs  *docstore.Store
	hist  *history.Manager
	imp   *importer.Importer
	quota *quota.Monitor
	saver *autosave.Debouncer
	files platform.Files
	clip  platform.Clipboard
	theme string

	// mu guards buf, handles and pending. Every docstore mutation happens under mu, so
	// onStoreEvent always runs with mu held.
	mu      sync.Mutex
	buf     *editor.Buffer
	handles map[string]platform.Handle
	pending []model.Event

	// persistMu guards readErr and serializes writes. A non-nil readErr disables
	// writes for the session so unread stored documents are not overwritten.
	persistMu sync.Mutex
	readErr   error

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int

	unsubDocs func()
	closed    bool
}

// ErrPersistenceDisabled is returned by Persist after Open could not read the store.
var ErrPersistenceDisabled = errors.New("studio: saving is disabled because stored documents could not be read")

type subscriber struct {
	id int
	fn func(model.Event)
}

func New(opts Options) (*Studio, error) {
	if opts.KV == nil {
		return nil, errors.New("studio: nil KV")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	codec := store.NewCodec(opts.KV, logger)
	if opts.Now != nil {
		codec.Now = opts.Now
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = platform.SystemClipboard{}
	}
	files := opts.Files
	if files == nil {
		files = platform.OSFiles{}
	}
	h := history.NewManager(history.DefaultCapacity)
	s := &Studio{
		log:     logger,
		codec:   codec,
		docs:    docstore.New(docstore.Options{Now: opts.Now, NewID: opts.NewID}),
		hist:    h,
		buf:     editor.NewBuffer("", h),
		imp:     importer.New(opts.Converter, logger),
		quota:   quota.NewMonitor(opts.QuotaBudget),
		files:   files,
		clip:    clip,
		theme:   opts.Theme,
		handles: map[string]platform.Handle{},
	}
	s.saver = autosave.New(autosave.Opts{
		Window: opts.Debounce,
		Save:   func() { _ = s.persist(context.Background()) },
	})
	s.unsubDocs = s.docs.Subscribe(s.onStoreEvent)
	return s, nil
}

// Subscribe registers fn for every core event. fn runs on the goroutine that caused
// the change, after the studio's lock is released; it may call back into the Studio.
func (s *Studio) Subscribe(fn func(model.Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Studio) dispatch(events []model.Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := append([]subscriber(nil), s.subs...)
	s.subMu.Unlock()
	for _, ev := range events {
		for _, sub := range subs {
			sub.fn(ev)
		}
	}
}

// do runs fn under mu and dispatches whatever it queued once mu is released.
func (s *Studio) do(fn func()) {
	s.mu.Lock()
	fn()
	events := s.pending
	s.pending = nil
	s.mu.Unlock()
	s.dispatch(events)
}

// onStoreEvent runs with mu held.
func (s *Studio) onStoreEvent(ev model.Event) {
	switch ev.Type {
	case model.EventCurrentChanged:
		d, _ := s.docs.Get(ev.DocumentID)
		s.hist.Clear()
		s.buf.SetText(d.Content)
		n := s.buf.Len()
		s.buf.SetSelection(n, n)
		s.buf.SetScroll(0)
	case model.EventDocumentDeleted:
		delete(s.handles, ev.DocumentID)
	case model.EventPersistRequested:
		s.saver.Notify()
	}
	s.pending = append(s.pending, ev)
}

func (s *Studio) noticeLocked(level model.NoticeLevel, msg string) {
	s.pending = append(s.pending, model.Event{Type: model.EventNotice, Level: level, Message: msg})
}

func (s *Studio) notice(level model.NoticeLevel, msg string) {
	s.dispatch([]model.Event{{Type: model.EventNotice, Level: level, Message: msg}})
}

// Open loads persisted documents. When no multi-document state exists yet, the legacy
// single-document autosave is migrated (once); otherwise a blank untitled document is
// synthesized and written right away so its id survives the session. If the store
// cannot be read at all, the session starts blank with saving disabled.
func (s *Studio) Open(ctx context.Context) error {
	res := s.codec.Load(ctx)
	if res.Err != nil {
		s.persistMu.Lock()
		s.readErr = res.Err
		s.persistMu.Unlock()
	}
	var write bool
	s.do(func() {
		switch {
		case res.Err != nil:
			s.log.Warn("open: store unreadable; saving disabled for this session", "err", res.Err)
			s.docs.Create("", "", docstore.CreateOptions{MakeCurrent: true, Notify: true})
			s.noticeLocked(model.NoticeError, "Stored documents could not be read. Changes in this session will not be saved.")
		case !res.Found:
			id := s.codec.MigrateLegacy(ctx, func(name, content string, at time.Time) string {
				return s.docs.Create(name, content, docstore.CreateOptions{MakeCurrent: true, Notify: true, UpdatedAt: at})
			})
			if id == "" {
				s.docs.Create("", "", docstore.CreateOptions{MakeCurrent: true, Notify: true})
			}
			write = true
		default:
			if res.Warning != "" {
				s.noticeLocked(model.NoticeWarning, res.Warning)
			}
			for _, r := range res.Records {
				if r.Status != store.RecordValid {
					s.log.Info("open: record repaired on load", "key", r.Key, "status", r.Status, "fixes", r.Fixes)
				}
			}
			if !s.docs.Restore(res.Envelope) {
				s.docs.Create("", "", docstore.CreateOptions{MakeCurrent: true, Notify: true})
				write = true
			}
		}
	})
	if write {
		s.saver.Cancel()
		return s.persist(ctx)
	}
	if b, err := s.codec.Encode(s.docs.Snapshot()); err == nil {
		s.quota.ObserveSize(len(b))
	}
	return nil
}

// StorageError is the read failure that disabled saving for this session, or nil.
func (s *Studio) StorageError() error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	return s.readErr
}

// Close writes any pending autosave and stops the scheduler.
func (s *Studio) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.saver.Pending() {
		s.log.Debug("close: flushing pending autosave")
	}
	s.saver.Stop()
	s.unsubDocs()
	return nil
}

// Persist writes the current state now, cancelling any scheduled autosave.
func (s *Studio) Persist(ctx context.Context) error {
	s.saver.Cancel()
	return s.persist(ctx)
}

// persist never holds mu. A failed write leaves the in-memory state authoritative and
// does not touch the quota reading.
func (s *Studio) persist(ctx context.Context) error {
	s.persistMu.Lock()
	if s.readErr != nil {
		s.persistMu.Unlock()
		return ErrPersistenceDisabled
	}
	env := s.docs.Snapshot()
	n, err := s.codec.Save(ctx, env)
	s.persistMu.Unlock()
	if err != nil {
		return err
	}
	u, warn := s.quota.ObserveSize(n)
	events := []model.Event{{Type: model.EventQuotaChanged, UsageBytes: u.Bytes, UsagePercent: u.Percent}}
	if warn {
		events = append(events, model.Event{
			Type:    model.EventNotice,
			Level:   model.NoticeWarning,
			Message: fmt.Sprintf("Storage is %d%% full. Export or delete drafts to free space.", u.Percent),
		})
	}
	s.dispatch(events)
	return nil
}

// Usage is the most recent quota reading.
func (s *Studio) Usage() quota.Usage { return s.quota.Last() }

func (s *Studio) Current() (model.Document, bool) { return s.docs.Current() }

func (s *Studio) Get(id string) (model.Document, bool) { return s.docs.Get(id) }

// List returns every document, most recently updated first.
func (s *Studio) List() []model.Document { return s.docs.List() }

// Handle returns the file handle associated with id, if any.
func (s *Studio) Handle(id string) platform.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[id]
}

// Editor returns the open buffer's text, selection and scroll.
func (s *Studio) Editor() model.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Snapshot()
}

// UndoDepth is the number of recoverable formatting edits.
func (s *Studio) UndoDepth() int { return s.hist.Len() }
