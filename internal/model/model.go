package model

import (
	"encoding/json"
	"time"
)

// Document is one draft in the studio.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"-"`
}

// Empty reports whether the document has no content at all.
func (d Document) Empty() bool {
	return d.Content == ""
}

type documentWire struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	UpdatedAt int64  `json:"updatedAt"`
}

// MarshalJSON encodes UpdatedAt as Unix milliseconds so envelopes written by older
// browser builds and this tool stay interchangeable.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentWire{
		ID:        d.ID,
		Name:      d.Name,
		Content:   d.Content,
		UpdatedAt: d.UpdatedAt.UTC().UnixMilli(),
	})
}

// UnmarshalJSON is strict; lenient decoding of persisted data lives in the store codec.
func (d *Document) UnmarshalJSON(b []byte) error {
	var w documentWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	d.ID = w.ID
	d.Name = w.Name
	d.Content = w.Content
	d.UpdatedAt = time.UnixMilli(w.UpdatedAt).UTC()
	return nil
}

// Envelope is the persisted multi-document state.
type Envelope struct {
	CurrentID string              `json:"currentId"`
	Documents map[string]Document `json:"documents"`
}

// LegacyEnvelope is the single-document autosave format that predates multiple drafts.
type LegacyEnvelope struct {
	Content  string `json:"content"`
	FileName string `json:"fileName,omitempty"`
	TS       int64  `json:"ts,omitempty"`
}

// ContentKind classifies incoming content.
type ContentKind string

const (
	KindMarkdown  ContentKind = "markdown"
	KindPlainText ContentKind = "plaintext"
	KindRichHTML  ContentKind = "richHtml"
)

// Snapshot is the editor state captured before a programmatic text replacement.
type Snapshot struct {
	Text           string `json:"text"`
	SelectionStart int    `json:"selectionStart"`
	SelectionEnd   int    `json:"selectionEnd"`
	Scroll         int    `json:"scroll"`
}
