package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type recordKey struct {
	sheetID uuid.UUID
	kind    Kind
	seq     int64
}

// MemoryStore is a RecordStore held in process memory. It backs the archive
// when no database shards are configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	index   map[recordKey]int
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[recordKey]int), now: time.Now}
}

func (m *MemoryStore) Write(ctx context.Context, req WriteRequest) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("write record: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey{req.SheetID, req.Kind, req.Seq}
	if _, ok := m.index[key]; ok {
		return nil, fmt.Errorf("write %s %d of sheet %s: %w", req.Kind, req.Seq, req.SheetID, ErrDuplicateRecord)
	}
	r := Record{
		AddedID:   int64(len(m.records)) + 1,
		SheetID:   req.SheetID,
		Kind:      req.Kind,
		Seq:       req.Seq,
		Body:      append([]byte(nil), req.Body...),
		CreatedAt: m.now().UTC(),
	}
	m.index[key] = len(m.records)
	m.records = append(m.records, r)
	return &r, nil
}

func (m *MemoryStore) Scan(ctx context.Context, cursor string, limit int) (*Page, error) {
	pos, limit, err := scanArgs(cursor, limit)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []Record
	// added_id is the 1-based position in records.
	for i := int(pos.After); i < len(m.records) && len(records) < limit; i++ {
		records = append(records, m.records[i])
	}
	return newPage(records, limit), nil
}
