package shard

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/storage"
)

// Router maps shard IDs to RecordStore instances.
type Router struct {
	mu     sync.RWMutex
	stores map[ID]storage.RecordStore
}

func NewRouter() *Router {
	return &Router{stores: make(map[ID]storage.RecordStore)}
}

// Register associates a shard ID with a RecordStore.
func (r *Router) Register(id ID, store storage.RecordStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[id] = store
}

// StoreFor returns the RecordStore for the given shard ID.
func (r *Router) StoreFor(id ID) (storage.RecordStore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, fmt.Errorf("no store registered for shard %d", id)
	}
	return s, nil
}

// StoreForSheet routes a sheet id over the registered shards.
func (r *Router) StoreForSheet(sheetID uuid.UUID) (storage.RecordStore, error) {
	n := r.Len()
	if n == 0 {
		return nil, fmt.Errorf("no shards registered")
	}
	return r.StoreFor(ForSheet(sheetID, n))
}

// Len is the number of registered shards.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stores)
}

// All returns every registered store ordered by shard ID.
func (r *Router) All() []storage.RecordStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ID, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]storage.RecordStore, len(ids))
	for i, id := range ids {
		out[i] = r.stores[id]
	}
	return out
}
