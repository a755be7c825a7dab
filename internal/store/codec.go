package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"mdstudio/internal/model"
	"mdstudio/internal/names"
)

const (
	// DocumentsKey holds the multi-document envelope.
	DocumentsKey = "markdown-studio-documents"
	// LegacyKey holds the single-document autosave written by older builds.
	LegacyKey = "markdown-studio-autosave"
)

// Codec moves envelopes between the in-memory store and a KV.
type Codec struct {
	KV     KV
	Logger *slog.Logger
	// Now stamps records whose timestamp is missing or invalid.
	Now func() time.Time
}

func NewCodec(kv KV, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Codec{KV: kv, Logger: logger, Now: time.Now}
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now().UTC()
	}
	return time.Now().UTC()
}

func (c *Codec) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Codec) Encode(env model.Envelope) ([]byte, error) {
	if env.Documents == nil {
		env.Documents = map[string]model.Document{}
	}
	return json.Marshal(env)
}

// Save writes env under DocumentsKey and returns the payload size.
// Failures are logged and returned; callers keep the in-memory state authoritative.
func (c *Codec) Save(ctx context.Context, env model.Envelope) (int, error) {
	b, err := c.Encode(env)
	if err != nil {
		c.log().Warn("persist: encode failed", "err", err)
		return 0, fmt.Errorf("encode documents: %w", err)
	}
	if err := c.KV.Set(ctx, DocumentsKey, string(b)); err != nil {
		c.log().Warn("persist: write failed", "bytes", len(b), "err", err)
		return len(b), fmt.Errorf("write documents: %w", err)
	}
	c.log().Debug("persist: saved", "documents", len(env.Documents), "bytes", len(b))
	return len(b), nil
}

type RecordStatus string

const (
	RecordValid     RecordStatus = "valid"
	RecordRecovered RecordStatus = "recovered"
	RecordRejected  RecordStatus = "rejected"
)

// RecordResult describes how one persisted record was decoded.
type RecordResult struct {
	Key    string       `json:"key"`
	ID     string       `json:"id,omitempty"`
	Status RecordStatus `json:"status"`
	// Fixes lists the defaults applied to a recovered record, or the rejection reason.
	Fixes []string `json:"fixes,omitempty"`
}

type LoadResult struct {
	Envelope model.Envelope
	// Found is false when DocumentsKey is absent (or could not be read).
	Found   bool
	Records []RecordResult
	// Warning is set when the stored envelope could not be parsed at all.
	Warning string
	Err     error
}

// Load decodes DocumentsKey without trusting its shape. Records lacking a string id are
// rejected; other missing or mistyped fields fall back to defaults.
func (c *Codec) Load(ctx context.Context) LoadResult {
	res := LoadResult{Envelope: model.Envelope{Documents: map[string]model.Document{}}}
	raw, ok, err := c.KV.Get(ctx, DocumentsKey)
	if err != nil {
		c.log().Warn("load: read failed", "err", err)
		res.Err = fmt.Errorf("read documents: %w", err)
		return res
	}
	if !ok {
		return res
	}
	res.Found = true

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil || top == nil {
		res.Warning = "stored documents were unreadable and have been reset"
		c.log().Warn("load: envelope unparseable", "bytes", len(raw), "err", err)
		return res
	}
	var docs map[string]json.RawMessage
	if err := json.Unmarshal(top["documents"], &docs); err != nil || docs == nil {
		res.Warning = "stored documents were unreadable and have been reset"
		c.log().Warn("load: documents field unparseable", "err", err)
		return res
	}

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type pending struct {
		doc    model.Document
		result RecordResult
	}
	var kept []pending
	seen := map[string]bool{}
	for _, k := range keys {
		d, rr := c.decodeRecord(k, docs[k])
		if rr.Status != RecordRejected && seen[d.ID] {
			rr.Status = RecordRejected
			rr.Fixes = []string{"duplicate id"}
		}
		if rr.Status == RecordRejected {
			c.log().Warn("load: record rejected", "key", k, "reason", rr.Fixes)
			res.Records = append(res.Records, rr)
			continue
		}
		seen[d.ID] = true
		kept = append(kept, pending{doc: d, result: rr})
	}

	// Older records keep their names when two collide.
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i].doc, kept[j].doc
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	set := names.Set{}
	for i := range kept {
		p := &kept[i]
		if p.doc.Name == "" {
			p.doc.Name = names.UntitledName(set, names.DefaultExt)
			p.result.Fixes = append(p.result.Fixes, "name")
		} else if resolved := names.ResolveConflict(set, p.doc.Name, p.doc.ID); resolved != p.doc.Name {
			p.doc.Name = resolved
			p.result.Fixes = append(p.result.Fixes, "duplicate name")
		}
		if len(p.result.Fixes) > 0 {
			p.result.Status = RecordRecovered
		}
		set.Add(p.doc.ID, p.doc.Name)
		res.Envelope.Documents[p.doc.ID] = p.doc
		res.Records = append(res.Records, p.result)
	}

	var current string
	_ = json.Unmarshal(top["currentId"], &current)
	if _, ok := res.Envelope.Documents[current]; !ok {
		current = mostRecentID(res.Envelope.Documents)
	}
	res.Envelope.CurrentID = current
	return res
}

// decodeRecord returns a zero Name when the stored name is unusable; Load assigns one.
func (c *Codec) decodeRecord(key string, raw json.RawMessage) (model.Document, RecordResult) {
	rr := RecordResult{Key: key, Status: RecordValid}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		rr.Status = RecordRejected
		rr.Fixes = []string{"not an object"}
		return model.Document{}, rr
	}
	var id string
	if err := json.Unmarshal(fields["id"], &id); err != nil || id == "" {
		rr.Status = RecordRejected
		rr.Fixes = []string{"missing id"}
		return model.Document{}, rr
	}
	rr.ID = id
	d := model.Document{ID: id}

	var name string
	if err := json.Unmarshal(fields["name"], &name); err == nil {
		d.Name = names.Sanitize(name, "")
	}
	if d.Name != "" && d.Name != name {
		rr.Fixes = append(rr.Fixes, "name")
	}

	if err := json.Unmarshal(fields["content"], &d.Content); err != nil {
		d.Content = ""
		rr.Fixes = append(rr.Fixes, "content")
	}

	var ms json.Number
	if err := json.Unmarshal(fields["updatedAt"], &ms); err == nil {
		if n, err := ms.Int64(); err == nil && n > 0 {
			d.UpdatedAt = time.UnixMilli(n).UTC()
		} else if f, err := ms.Float64(); err == nil && f > 0 {
			d.UpdatedAt = time.UnixMilli(int64(f)).UTC()
		}
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = c.now()
		rr.Fixes = append(rr.Fixes, "updatedAt")
	}
	return d, rr
}

func mostRecentID(docs map[string]model.Document) string {
	var best model.Document
	for _, d := range docs {
		if best.ID == "" || d.UpdatedAt.After(best.UpdatedAt) ||
			(d.UpdatedAt.Equal(best.UpdatedAt) && d.ID < best.ID) {
			best = d
		}
	}
	return best.ID
}

// HasDocuments reports whether DocumentsKey exists.
func (c *Codec) HasDocuments(ctx context.Context) (bool, error) {
	_, ok, err := c.KV.Get(ctx, DocumentsKey)
	return ok, err
}

// MigrateLegacy converts the legacy single-document autosave into one record via create
// and deletes the legacy key. It returns "" when there is nothing to migrate. A malformed
// legacy payload is deleted too, so migration is attempted at most once.
func (c *Codec) MigrateLegacy(ctx context.Context, create func(name, content string, updatedAt time.Time) string) string {
	raw, ok, err := c.KV.Get(ctx, LegacyKey)
	if err != nil {
		c.log().Warn("migrate: read legacy failed", "err", err)
		return ""
	}
	if !ok {
		return ""
	}
	defer func() {
		if err := c.KV.Delete(ctx, LegacyKey); err != nil {
			c.log().Warn("migrate: delete legacy failed", "err", err)
		}
	}()

	legacy, ok := decodeLegacy(raw)
	if !ok {
		c.log().Warn("migrate: legacy payload malformed; discarding", "bytes", len(raw))
		return ""
	}
	ts := c.now()
	if legacy.TS > 0 {
		ts = time.UnixMilli(legacy.TS).UTC()
	}
	id := create(legacy.FileName, legacy.Content, ts)
	c.log().Info("migrate: imported legacy draft", "id", id, "name", legacy.FileName)
	return id
}

func decodeLegacy(raw string) (model.LegacyEnvelope, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return model.LegacyEnvelope{}, false
	}
	var out model.LegacyEnvelope
	if err := json.Unmarshal(fields["content"], &out.Content); err != nil {
		return model.LegacyEnvelope{}, false
	}
	_ = json.Unmarshal(fields["fileName"], &out.FileName)
	for _, k := range []string{"ts", "timestamp"} {
		var n json.Number
		if err := json.Unmarshal(fields[k], &n); err == nil {
			if f, err := n.Float64(); err == nil && f > 0 {
				out.TS = int64(f)
				break
			}
		}
	}
	return out, true
}
