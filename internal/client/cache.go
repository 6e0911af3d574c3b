package client

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Cache keeps the last fetched snapshot of each sheet a user looks at. It
// never receives pushes: callers ask NeedsRefresh, or call Sheet, which
// refetches only when the server has moved on.
type Cache struct {
	client *Client

	mu     sync.Mutex
	sheets map[uuid.UUID]*sheet.Snapshot
}

// NewCache returns an empty cache reading through c.
func NewCache(c *Client) *Cache {
	return &Cache{client: c, sheets: make(map[uuid.UUID]*sheet.Snapshot)}
}

// Seen is the version last fetched for id, or 0.
func (c *Cache) Seen(id uuid.UUID) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sheets[id]; ok {
		return s.Version
	}
	return 0
}

// NeedsRefresh reports whether the server holds a newer version than the
// cached one. A sheet never fetched always needs a refresh.
func (c *Cache) NeedsRefresh(ctx context.Context, id uuid.UUID) (bool, error) {
	latest, err := c.client.Version(ctx, id)
	if err != nil {
		return false, err
	}
	return latest != c.Seen(id), nil
}

// Refresh fetches the latest snapshot and replaces the cached copy.
func (c *Cache) Refresh(ctx context.Context, id uuid.UUID) (*sheet.Snapshot, error) {
	snap, err := c.client.Sheet(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent refresh may already hold something newer.
	if cur, ok := c.sheets[id]; ok && cur.Version > snap.Version {
		return cur.Clone(), nil
	}
	c.sheets[id] = snap
	return snap.Clone(), nil
}

// Sheet returns the cached snapshot, refreshing first when it is stale. A
// copy the user may no longer read is dropped.
func (c *Cache) Sheet(ctx context.Context, id uuid.UUID) (*sheet.Snapshot, error) {
	stale, err := c.NeedsRefresh(ctx, id)
	if err != nil {
		if errors.Is(err, sheeterr.ErrPermissionDenied) || errors.Is(err, sheeterr.ErrSheetNotFound) {
			c.Forget(id)
		}
		return nil, err
	}
	if !stale {
		c.mu.Lock()
		snap, ok := c.sheets[id]
		c.mu.Unlock()
		if ok {
			return snap.Clone(), nil
		}
	}
	return c.Refresh(ctx, id)
}

// Forget drops the cached copy of id.
func (c *Cache) Forget(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sheets, id)
}
