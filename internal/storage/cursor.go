package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MaxPageSize caps the records returned by one Scan.
const MaxPageSize = 1000

// Cursor marks how far a Scan has read a shard. Every record with an
// added_id at or below After has already been returned.
type Cursor struct {
	After int64 `json:"after"`
}

// String renders the cursor as the opaque token handed to callers.
func (c Cursor) String() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// ParseCursor reads a token produced by Cursor.String. The empty token is
// the start of the shard.
func ParseCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("unmarshal cursor: %w", err)
	}
	if c.After < 0 {
		return Cursor{}, fmt.Errorf("cursor position %d is negative", c.After)
	}
	return c, nil
}

// scanArgs validates the inputs of a Scan.
func scanArgs(cursor string, limit int) (Cursor, int, error) {
	pos, err := ParseCursor(cursor)
	if err != nil {
		return Cursor{}, 0, fmt.Errorf("invalid cursor: %w", err)
	}
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	return pos, limit, nil
}

// newPage wraps records read with limit. A full page may have more behind
// it, so it carries a cursor past its last record.
func newPage(records []Record, limit int) *Page {
	page := &Page{Records: records}
	if len(records) == limit {
		page.NextCursor = Cursor{After: records[len(records)-1].AddedID}.String()
		page.HasMore = true
	}
	return page
}
