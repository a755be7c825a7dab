package studio

import (
	"context"
	"errors"
	"fmt"

	"mdstudio/internal/docstore"
	"mdstudio/internal/editor"
	"mdstudio/internal/importer"
	"mdstudio/internal/model"
	"mdstudio/internal/names"
	"mdstudio/internal/platform"
	"mdstudio/internal/render"
	"mdstudio/internal/store"
)

// NewDocument creates an empty document, makes it current and returns its id.
func (s *Studio) NewDocument(name string) string {
	var id string
	s.do(func() {
		id = s.docs.Create(name, "", docstore.CreateOptions{MakeCurrent: true, Persist: true, Notify: true})
	})
	return id
}

// Switch makes id current. Unknown ids are ignored.
func (s *Studio) Switch(id string) bool {
	var ok bool
	s.do(func() { ok = s.docs.SetCurrent(id) })
	return ok
}

// Delete removes id; the collection is never left empty.
func (s *Studio) Delete(id string) bool {
	var ok bool
	s.do(func() {
		d, found := s.docs.Get(id)
		if ok = s.docs.Delete(id); ok && found {
			s.noticeLocked(model.NoticeInfo, "Deleted "+d.Name)
		}
	})
	return ok
}

// Rename renames id and reports what had to be corrected.
func (s *Studio) Rename(id, name string) docstore.RenameResult {
	var res docstore.RenameResult
	s.do(func() {
		res = s.docs.Rename(id, name)
		if msg := renameMessage(res); msg != "" {
			level := model.NoticeInfo
			if res.Outcome != docstore.RenameOK {
				level = model.NoticeWarning
			}
			s.noticeLocked(level, msg)
		}
	})
	return res
}

func renameMessage(res docstore.RenameResult) string {
	switch res.Outcome {
	case docstore.RenameOK:
		return "Renamed to " + res.Name
	case docstore.RenameCleaned:
		return "Removed invalid characters; renamed to " + res.Name
	case docstore.RenameDeduplicated:
		return "Name already in use; renamed to " + res.Name
	case docstore.RenameCleanedAndDeduplicated:
		return "Removed invalid characters and name already in use; renamed to " + res.Name
	}
	return ""
}

// Type is the keystroke path: it replaces the buffer wholesale without touching the
// undo stack and schedules an autosave.
func (s *Studio) Type(text string, selStart, selEnd int) {
	s.do(func() {
		s.buf.SetText(text)
		s.buf.SetSelection(selStart, selEnd)
		s.syncCurrentLocked()
	})
}

// SetScroll records the editor's scroll position for undo snapshots.
func (s *Studio) SetScroll(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.SetScroll(n)
}

// SetContent overwrites the content of any document (keystroke semantics).
func (s *Studio) SetContent(id, content string) bool {
	var ok bool
	s.do(func() {
		ok = s.docs.SetContent(id, content)
		if ok && id == s.docs.CurrentID() {
			s.buf.SetText(content)
		}
	})
	return ok
}

func (s *Studio) syncCurrentLocked() {
	if id := s.docs.CurrentID(); id != "" {
		s.docs.SetContent(id, s.buf.Text())
	}
}

// Format applies a formatting action to the current selection. prompt answers link
// and image questions; a dismissed prompt leaves the text alone.
func (s *Studio) Format(action editor.Action, prompt editor.Prompt) bool {
	var ok bool
	s.do(func() {
		before := s.buf.Text()
		ok = s.buf.Apply(action, prompt)
		if s.buf.Text() != before {
			s.syncCurrentLocked()
		}
	})
	return ok
}

// ReplaceRange is the programmatic replacement primitive; changes are undoable.
func (s *Studio) ReplaceRange(start, end int, text string) {
	s.do(func() {
		s.buf.ReplaceRange(start, end, text)
		s.syncCurrentLocked()
	})
}

// Select sets the selection in rune offsets.
func (s *Studio) Select(start, end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.SetSelection(start, end)
}

// Undo reverts the last formatting edit. It returns false when there is nothing to
// undo so callers can fall back to the input widget's own undo.
func (s *Studio) Undo() bool {
	var ok bool
	s.do(func() {
		if ok = s.buf.Undo(); ok {
			s.syncCurrentLocked()
		}
	})
	return ok
}

// Import places content as a document: the current one is overwritten when it is
// still blank and untitled, otherwise a new document is created and made current.
// handle (possibly empty) becomes the document's save target.
func (s *Studio) Import(ctx context.Context, content, name string, handle platform.Handle) (string, importer.Result) {
	return s.importAs(ctx, importer.Request{Content: content, Name: name}, handle, "")
}

func (s *Studio) importAs(ctx context.Context, req importer.Request, handle platform.Handle, verb string) (string, importer.Result) {
	var id string
	var res importer.Result
	s.do(func() {
		cur, _ := s.docs.Current()
		res = s.imp.Plan(cur, s.docs.Names(), req)
		if res.Reuse {
			id = res.TargetID
			res.Name = s.docs.Replace(id, res.Name, res.Content)
		} else {
			id = s.docs.Create(res.Name, res.Content, docstore.CreateOptions{MakeCurrent: true, Persist: true, Notify: true})
			if d, ok := s.docs.Get(id); ok {
				res.Name = d.Name
			}
		}
		if handle != "" {
			s.handles[id] = handle
		} else {
			delete(s.handles, id)
		}
		msg := res.Message()
		level := model.NoticeInfo
		switch {
		case res.Status == importer.StatusConversionFailed:
			level = model.NoticeWarning
		case verb != "" && res.Status == importer.StatusLoaded:
			msg = verb + " " + res.Name
		}
		s.noticeLocked(level, msg)
	})
	s.saver.Cancel()
	_ = s.persist(ctx)
	return id, res
}

// OpenFile asks the file collaborator for a file and imports it. A dismissed picker
// returns "" and no error.
func (s *Studio) OpenFile(ctx context.Context) (string, error) {
	f, err := s.files.Open(ctx)
	if errors.Is(err, platform.ErrCancelled) {
		return "", nil
	}
	if err != nil {
		s.log.Warn("open file failed", "err", err)
		s.notice(model.NoticeError, "Unable to open file")
		return "", err
	}
	id, _ := s.importAs(ctx, importer.Request{Content: f.Content, Name: f.Name}, f.Handle, "Opened")
	return id, nil
}

// DropFile imports a file handed over by path (drag and drop, CLI arguments).
func (s *Studio) DropFile(ctx context.Context, path string) (string, error) {
	if !importer.Supported(path) {
		s.notice(model.NoticeWarning, "Unsupported file type")
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
	f, err := platform.ReadFile(path)
	if err != nil {
		s.notice(model.NoticeError, "Unable to open file")
		return "", err
	}
	id, _ := s.importAs(ctx, importer.Request{Content: f.Content, Name: f.Name}, f.Handle, "Loaded")
	return id, nil
}

// Paste imports the clipboard, converting rich HTML to markdown.
func (s *Studio) Paste(ctx context.Context) (string, error) {
	c, err := s.clip.Read(ctx)
	if err != nil {
		s.notice(model.NoticeError, "Unable to read clipboard")
		return "", err
	}
	content, kind := importer.PickClipboard(c.Plain, c.HTML)
	if content == "" {
		s.notice(model.NoticeInfo, "Clipboard is empty")
		return "", nil
	}
	id, _ := s.importAs(ctx, importer.Request{Content: content, Kind: kind}, "", "Pasted into")
	return id, nil
}

// Save writes the current document to its file handle, asking for one first when
// there is none.
func (s *Studio) Save(ctx context.Context) error {
	cur, ok := s.docs.Current()
	if !ok {
		return nil
	}
	h := s.Handle(cur.ID)
	if h == "" {
		return s.SaveAs(ctx)
	}
	return s.writeHandle(ctx, cur, h)
}

// SaveAs picks a new handle for the current document, adopts its file name and writes.
func (s *Studio) SaveAs(ctx context.Context) error {
	cur, ok := s.docs.Current()
	if !ok {
		return nil
	}
	h, err := s.files.SaveAs(ctx, cur.Name)
	if errors.Is(err, platform.ErrCancelled) {
		return nil
	}
	if err != nil {
		s.log.Warn("save as failed", "err", err)
		s.notice(model.NoticeError, "Unable to save")
		return err
	}
	s.do(func() {
		s.handles[cur.ID] = h
		if n := h.Name(); n != "" && n != cur.Name {
			s.docs.Rename(cur.ID, n)
		}
	})
	cur, _ = s.docs.Get(cur.ID)
	return s.writeHandle(ctx, cur, h)
}

func (s *Studio) writeHandle(ctx context.Context, doc model.Document, h platform.Handle) error {
	if err := s.files.Write(ctx, h, doc.Content); err != nil {
		s.log.Warn("write failed", "path", string(h), "err", err)
		s.notice(model.NoticeError, "Unable to save")
		return err
	}
	s.notice(model.NoticeInfo, "Saved")
	s.saver.Cancel()
	_ = s.persist(ctx)
	return nil
}

// CopyMarkdown puts the current document's markdown on the clipboard.
func (s *Studio) CopyMarkdown(ctx context.Context) error {
	cur, _ := s.docs.Current()
	if err := s.clip.Write(ctx, cur.Content); err != nil {
		s.notice(model.NoticeError, "Unable to copy")
		return err
	}
	s.notice(model.NoticeInfo, "Markdown copied")
	return nil
}

// CopyHTML puts the rendered, sanitized HTML of the current document on the clipboard.
func (s *Studio) CopyHTML(ctx context.Context) error {
	cur, _ := s.docs.Current()
	out := render.HTML(cur.Content)
	if out == "" {
		s.notice(model.NoticeInfo, "Nothing to copy")
		return nil
	}
	if err := s.clip.Write(ctx, out); err != nil {
		s.notice(model.NoticeError, "Unable to copy")
		return err
	}
	s.notice(model.NoticeInfo, "Rendered HTML copied")
	return nil
}

// ExportHTML renders id (or the current document when id is "") as a standalone
// HTML page and returns it with its suggested file name.
func (s *Studio) ExportHTML(id string) (name string, page []byte, ok bool) {
	var d model.Document
	if id == "" {
		d, ok = s.docs.Current()
	} else {
		d, ok = s.docs.Get(id)
	}
	if !ok {
		return "", nil, false
	}
	return render.ExportName(d.Name), render.ExportHTML(d.Name, d.Content, s.theme), true
}

// ExportToFile writes the current document's HTML export through the file picker.
func (s *Studio) ExportToFile(ctx context.Context) error {
	name, page, ok := s.ExportHTML("")
	if !ok {
		return nil
	}
	h, err := s.files.SaveAs(ctx, name)
	if errors.Is(err, platform.ErrCancelled) {
		return nil
	}
	if err == nil {
		err = s.files.Write(ctx, h, string(page))
	}
	if err != nil {
		s.notice(model.NoticeError, "Unable to export")
		return err
	}
	s.notice(model.NoticeInfo, "Exported HTML")
	return nil
}

// ClearDraft resets the current document to a blank untitled draft, forgets its file
// handle and drops any legacy autosave.
func (s *Studio) ClearDraft(ctx context.Context) {
	s.do(func() {
		cur, ok := s.docs.Current()
		if !ok {
			return
		}
		set := s.docs.Names()
		set.Remove(cur.Name)
		_, ext := names.SplitExt(cur.Name)
		s.docs.Replace(cur.ID, names.UntitledName(set, ext), "")
		delete(s.handles, cur.ID)
		s.noticeLocked(model.NoticeInfo, "Draft cleared")
	})
	if err := s.codec.KV.Delete(ctx, store.LegacyKey); err != nil {
		s.log.Warn("clear: delete legacy autosave failed", "err", err)
	}
	s.saver.Cancel()
	_ = s.persist(ctx)
}
