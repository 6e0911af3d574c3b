package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateRecord is returned when (sheet_id, kind, seq) is already stored.
var ErrDuplicateRecord = errors.New("duplicate record")

// Kind names what a record body holds.
type Kind string

const (
	// KindSnapshot bodies are sheet snapshots; Seq is the sheet version.
	KindSnapshot Kind = "snapshot"
	// KindACL bodies are permission states; Seq is the ACL revision.
	KindACL Kind = "acl"
)

// Record is one immutable archived entry.
type Record struct {
	AddedID   int64           `json:"added_id"`
	SheetID   uuid.UUID       `json:"sheet_id"`
	Kind      Kind            `json:"kind"`
	Seq       int64           `json:"seq"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
}

// WriteRequest is the input of RecordStore.Write.
type WriteRequest struct {
	SheetID uuid.UUID
	Kind    Kind
	Seq     int64
	Body    json.RawMessage
}

// Page is one batch of a Scan.
type Page struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor,omitempty"`
	HasMore    bool     `json:"has_more"`
}

// RecordStore is the archive interface for a single shard.
type RecordStore interface {
	// Write inserts a new immutable record. Returns the stored record with added_id.
	Write(ctx context.Context, req WriteRequest) (*Record, error)

	// Scan pages through the whole shard in added_id order.
	Scan(ctx context.Context, cursor string, limit int) (*Page, error)
}
