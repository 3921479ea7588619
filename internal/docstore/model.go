package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	maxCollectionLength = 64
	maxIdentifierLength = 190
)

var (
	// ErrInvalidCollection indicates that a collection name is empty, too long or uses unsupported characters.
	ErrInvalidCollection = errors.New("docstore: invalid collection name")
	// ErrInvalidDocumentID indicates that a document identifier is empty or exceeds storage bounds.
	ErrInvalidDocumentID = errors.New("docstore: invalid document id")
	// ErrInvalidPayload indicates that a document payload is not a JSON object.
	ErrInvalidPayload = errors.New("docstore: invalid payload")
	// ErrDocumentNotFound indicates that no document exists for the requested identifier.
	ErrDocumentNotFound = errors.New("docstore: document not found")
)

// CollectionName represents a validated collection name.
type CollectionName string

// NewCollectionName validates raw input and returns a CollectionName.
func NewCollectionName(rawInput string) (CollectionName, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCollection)
	}
	if len(trimmed) > maxCollectionLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidCollection, maxCollectionLength)
	}
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		return "", fmt.Errorf("%w: unsupported character %q", ErrInvalidCollection, r)
	}
	return CollectionName(trimmed), nil
}

// String returns the underlying collection name.
func (name CollectionName) String() string {
	return string(name)
}

// DocumentID represents a validated document identifier.
type DocumentID string

// NewDocumentID validates raw input and returns a DocumentID.
func NewDocumentID(rawInput string) (DocumentID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDocumentID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidDocumentID, maxIdentifierLength)
	}
	if strings.ContainsAny(trimmed, "/?#") {
		return "", fmt.Errorf("%w: reserved character", ErrInvalidDocumentID)
	}
	return DocumentID(trimmed), nil
}

// String returns the underlying identifier.
func (id DocumentID) String() string {
	return string(id)
}

// Payload stores a validated JSON object document.
type Payload string

// NewPayload validates that raw is a JSON object and returns it compacted.
func NewPayload(raw []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidPayload)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		return "", fmt.Errorf("%w: expected json object", ErrInvalidPayload)
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, trimmed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return Payload(compacted.String()), nil
}

// String returns the JSON text.
func (payload Payload) String() string {
	return string(payload)
}

// Filter restricts List to documents whose top-level Field equals Value.
// A zero Filter matches every document.
type Filter struct {
	Field string
	Value string
}

// IsZero reports whether the filter is unset.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Field) == ""
}

// Matches reports whether payloadJSON satisfies the filter. Strings, numbers and booleans are compared
// by their canonical text form.
func (f Filter) Matches(payloadJSON string) bool {
	if f.IsZero() {
		return true
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(payloadJSON), &fields); err != nil {
		return false
	}
	value, ok := fields[strings.TrimSpace(f.Field)]
	if !ok {
		return false
	}
	switch typed := value.(type) {
	case string:
		return typed == f.Value
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64) == f.Value
	case bool:
		return strconv.FormatBool(typed) == f.Value
	default:
		return false
	}
}

// Document is a persisted JSON document within a collection.
type Document struct {
	Collection       string `gorm:"column:collection;primaryKey;size:64;not null"`
	DocumentID       string `gorm:"column:document_id;primaryKey;size:190;not null"`
	PayloadJSON      string `gorm:"column:payload_json;type:text;not null"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Document) TableName() string {
	return "documents"
}
