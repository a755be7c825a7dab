package model

// EventType names a structured change emitted by the core.
type EventType string

const (
	EventDocumentCreated  EventType = "document.created"
	EventDocumentRenamed  EventType = "document.renamed"
	EventDocumentDeleted  EventType = "document.deleted"
	EventDocumentUpdated  EventType = "document.updated"
	EventCurrentChanged   EventType = "current.changed"
	EventListChanged      EventType = "list.changed"
	EventPersistRequested EventType = "persist.requested"
	EventQuotaChanged     EventType = "quota.changed"
	EventNotice           EventType = "notice"
)

// NoticeLevel ranks transient user-facing messages.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Event is delivered to subscribers after the state change it describes is visible.
type Event struct {
	Type       EventType   `json:"type"`
	DocumentID string      `json:"documentId,omitempty"`
	Name       string      `json:"name,omitempty"`
	PrevName   string      `json:"prevName,omitempty"`
	Message    string      `json:"message,omitempty"`
	Level      NoticeLevel `json:"level,omitempty"`
	// Usage is set on quota.changed.
	UsageBytes   int `json:"usageBytes,omitempty"`
	UsagePercent int `json:"usagePercent,omitempty"`
}
