package store

import "github.com/google/uuid"

// NewDocumentID returns doc-<uuid v4>.
func NewDocumentID() string {
	return "doc-" + uuid.NewString()
}
