package docstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"mdstudio/internal/model"
	"mdstudio/internal/names"
	"mdstudio/internal/store"
)

// Store is the in-memory document collection plus the current pointer.
// Unknown ids are no-ops; nothing here returns an error.
type Store struct {
	newID func() string
	now   func() time.Time

	mu      sync.Mutex
	docs    map[string]model.Document
	current string
	// issued holds every id handed out or loaded this session; ids are never reused.
	issued map[string]struct{}

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(model.Event)
}

type Options struct {
	NewID func() string
	Now   func() time.Time
}

func New(opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = store.NewDocumentID
	}
	return &Store{
		newID:  opts.NewID,
		now:    opts.Now,
		docs:   map[string]model.Document{},
		issued: map[string]struct{}{},
	}
}

type CreateOptions struct {
	MakeCurrent bool
	Persist     bool
	Notify      bool
	// Ext is used when the name has no extension (default ".md").
	Ext string
	// UpdatedAt overrides the creation timestamp (legacy migration).
	UpdatedAt time.Time
}

// Subscribe registers fn for store events. Events are delivered after the store's
// lock is released, in subscription order.
func (s *Store) Subscribe(fn func(model.Event)) (unsubscribe func()) {
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

func (s *Store) emit(events []model.Event) {
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

func (s *Store) allocIDLocked() string {
	for {
		id := s.newID()
		if id == "" {
			continue
		}
		if _, used := s.issued[id]; used {
			continue
		}
		s.issued[id] = struct{}{}
		return id
	}
}

func (s *Store) namesLocked() names.Set {
	set := make(names.Set, len(s.docs))
	for id, d := range s.docs {
		set.Add(id, d.Name)
	}
	return set
}

// Create inserts a new record and returns its id.
func (s *Store) Create(name, content string, opts CreateOptions) string {
	s.mu.Lock()
	id, events := s.createLocked(name, content, opts)
	s.mu.Unlock()
	s.emit(events)
	return id
}

func (s *Store) createLocked(name, content string, opts CreateOptions) (string, []model.Event) {
	ext := opts.Ext
	if ext == "" {
		ext = names.DefaultExt
	}
	set := s.namesLocked()
	clean := names.Sanitize(name, names.UntitledName(set, ext))
	final := names.ResolveConflict(set, names.EnsureExt(clean, ext), "")

	at := opts.UpdatedAt
	if at.IsZero() {
		at = s.now()
	}
	id := s.allocIDLocked()
	s.docs[id] = model.Document{ID: id, Name: final, Content: content, UpdatedAt: at.UTC()}

	var events []model.Event
	if opts.Notify {
		events = append(events, model.Event{Type: model.EventDocumentCreated, DocumentID: id, Name: final})
	}
	if opts.MakeCurrent || s.current == "" {
		s.current = id
		if opts.Notify {
			events = append(events, model.Event{Type: model.EventCurrentChanged, DocumentID: id, Name: final})
		}
	}
	if opts.Notify {
		events = append(events, model.Event{Type: model.EventListChanged})
	}
	if opts.Persist {
		events = append(events, model.Event{Type: model.EventPersistRequested})
	}
	return id, events
}

// SetCurrent switches the current document. Empty, unknown and already-current ids
// are ignored. Reports whether the pointer moved.
func (s *Store) SetCurrent(id string) bool {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok || id == s.current {
		s.mu.Unlock()
		return false
	}
	s.current = id
	s.mu.Unlock()
	s.emit([]model.Event{
		{Type: model.EventCurrentChanged, DocumentID: id, Name: d.Name},
		{Type: model.EventListChanged},
		{Type: model.EventPersistRequested},
	})
	return true
}

// Delete removes id. If it was current the most recently updated survivor is
// promoted; deleting the last record leaves a fresh blank untitled one behind.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.docs, id)
	events := []model.Event{{Type: model.EventDocumentDeleted, DocumentID: id, Name: d.Name}}

	if len(s.docs) == 0 {
		s.current = ""
		// The removal below is persisted once; the placeholder rides along with it.
		nid, _ := s.createLocked("", "", CreateOptions{MakeCurrent: true})
		events = append(events, model.Event{Type: model.EventDocumentCreated, DocumentID: nid, Name: s.docs[nid].Name})
		events = append(events, model.Event{Type: model.EventCurrentChanged, DocumentID: nid, Name: s.docs[nid].Name})
	} else if s.current == id {
		next := s.mostRecentLocked()
		s.current = next.ID
		events = append(events, model.Event{Type: model.EventCurrentChanged, DocumentID: next.ID, Name: next.Name})
	}
	events = append(events,
		model.Event{Type: model.EventListChanged},
		model.Event{Type: model.EventPersistRequested},
	)
	s.mu.Unlock()
	s.emit(events)
	return true
}

func (s *Store) mostRecentLocked() model.Document {
	var best model.Document
	for _, d := range s.docs {
		if best.ID == "" || newer(d, best) {
			best = d
		}
	}
	return best
}

func newer(a, b model.Document) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return strings.ToLower(a.Name) < strings.ToLower(b.Name)
}

type RenameOutcome string

const (
	RenameNoop                   RenameOutcome = "noop"
	RenameUnchanged              RenameOutcome = "unchanged"
	RenameOK                     RenameOutcome = "renamed"
	RenameCleaned                RenameOutcome = "cleaned"
	RenameDeduplicated           RenameOutcome = "deduplicated"
	RenameCleanedAndDeduplicated RenameOutcome = "cleanedAndDeduplicated"
)

type RenameResult struct {
	Name    string        `json:"name"`
	Prev    string        `json:"prev,omitempty"`
	Outcome RenameOutcome `json:"outcome"`
}

// Rename applies proposed to id. A proposal without an extension keeps the current
// one (or ".md"). Invalid characters are stripped and collisions suffixed; the outcome
// says which of those happened.
func (s *Store) Rename(id, proposed string) RenameResult {
	trimmed := strings.TrimSpace(proposed)
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok || trimmed == "" {
		s.mu.Unlock()
		return RenameResult{Name: d.Name, Outcome: RenameNoop}
	}

	clean := names.Sanitize(trimmed, d.Name)
	cleaned := clean != trimmed
	_, ext := names.SplitExt(d.Name)
	candidate := names.EnsureExt(clean, ext)
	final := names.ResolveConflict(s.namesLocked(), candidate, id)
	deduped := final != candidate

	if final == d.Name {
		s.mu.Unlock()
		return RenameResult{Name: final, Prev: d.Name, Outcome: RenameUnchanged}
	}
	prev := d.Name
	d.Name = final
	d.UpdatedAt = s.now().UTC()
	s.docs[id] = d
	s.mu.Unlock()

	outcome := RenameOK
	switch {
	case cleaned && deduped:
		outcome = RenameCleanedAndDeduplicated
	case cleaned:
		outcome = RenameCleaned
	case deduped:
		outcome = RenameDeduplicated
	}
	s.emit([]model.Event{
		{Type: model.EventDocumentRenamed, DocumentID: id, Name: final, PrevName: prev},
		{Type: model.EventListChanged},
		{Type: model.EventPersistRequested},
	})
	return RenameResult{Name: final, Prev: prev, Outcome: outcome}
}

// SetContent is the keystroke path. Reports whether anything changed.
func (s *Store) SetContent(id, content string) bool {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok || d.Content == content {
		s.mu.Unlock()
		return false
	}
	d.Content = content
	d.UpdatedAt = s.now().UTC()
	s.docs[id] = d
	s.mu.Unlock()
	s.emit([]model.Event{
		{Type: model.EventDocumentUpdated, DocumentID: id, Name: d.Name},
		{Type: model.EventPersistRequested},
	})
	return true
}

// Replace overwrites the name and content of id in place, keeping the id.
// The name is sanitized and conflict-resolved like Create. Returns the final name,
// or "" for an unknown id.
func (s *Store) Replace(id, name, content string) string {
	s.mu.Lock()
	d, ok := s.docs[id]
	if !ok {
		s.mu.Unlock()
		return ""
	}
	_, ext := names.SplitExt(d.Name)
	clean := names.EnsureExt(names.Sanitize(name, d.Name), ext)
	final := names.ResolveConflict(s.namesLocked(), clean, id)
	prev := d.Name
	d.Name = final
	d.Content = content
	d.UpdatedAt = s.now().UTC()
	s.docs[id] = d
	isCurrent := s.current == id
	s.mu.Unlock()

	events := []model.Event{{Type: model.EventDocumentUpdated, DocumentID: id, Name: final}}
	if prev != final {
		events = append(events, model.Event{Type: model.EventDocumentRenamed, DocumentID: id, Name: final, PrevName: prev})
	}
	if isCurrent {
		// Content was swapped wholesale; the editor reloads as if switching.
		events = append(events, model.Event{Type: model.EventCurrentChanged, DocumentID: id, Name: final})
	}
	events = append(events, model.Event{Type: model.EventListChanged}, model.Event{Type: model.EventPersistRequested})
	s.emit(events)
	return final
}

func (s *Store) Current() (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[s.current]
	return d, ok
}

func (s *Store) CurrentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) Get(id string) (model.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

// List returns every record, most recently updated first.
func (s *Store) List() []model.Document {
	s.mu.Lock()
	out := make([]model.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func (s *Store) Names() names.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namesLocked()
}

// Snapshot copies the store into a persistable envelope.
func (s *Store) Snapshot() model.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := model.Envelope{CurrentID: s.current, Documents: make(map[string]model.Document, len(s.docs))}
	for id, d := range s.docs {
		env.Documents[id] = d
	}
	return env
}

// Restore replaces the collection with env. A currentId that is not in env falls back
// to the most recent record. Returns false (leaving the store untouched) for an empty env.
func (s *Store) Restore(env model.Envelope) bool {
	if len(env.Documents) == 0 {
		return false
	}
	s.mu.Lock()
	s.docs = make(map[string]model.Document, len(env.Documents))
	for id, d := range env.Documents {
		d.ID = id
		s.docs[id] = d
		s.issued[id] = struct{}{}
	}
	s.current = env.CurrentID
	if _, ok := s.docs[s.current]; !ok {
		s.current = s.mostRecentLocked().ID
	}
	cur := s.docs[s.current]
	s.mu.Unlock()
	s.emit([]model.Event{
		{Type: model.EventCurrentChanged, DocumentID: cur.ID, Name: cur.Name},
		{Type: model.EventListChanged},
	})
	return true
}
