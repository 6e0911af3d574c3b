// Package archive copies every committed sheet version and permission
// change to durable storage off the edit path, and reads them back at
// startup.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/circuitbreaker"
	"github.com/ryanbastic/go-shticell/internal/metrics"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/shard"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/storage"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("archiver closed")

type job struct {
	req   storage.WriteRequest
	flush chan struct{}
}

// Archiver writes records to the shard of their sheet from a single
// background goroutine. Enqueueing never blocks: when the queue is full the
// record is dropped and counted.
type Archiver struct {
	router  *shard.Router
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan job
	done   chan struct{}
}

// New creates an Archiver and starts its writer. Close stops it.
func New(router *shard.Router, breaker *circuitbreaker.Breaker, queueSize int, logger *slog.Logger) *Archiver {
	if queueSize < 1 {
		queueSize = 1
	}
	a := &Archiver{
		router:  router,
		breaker: breaker,
		logger:  logger,
		queue:   make(chan job, queueSize),
		done:    make(chan struct{}),
	}
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("archive circuit breaker", "from", from.String(), "to", to.String())
	})
	go a.loop()
	return a
}

// Snapshot enqueues snap as the record of its version.
func (a *Archiver) Snapshot(sheetID uuid.UUID, snap *sheet.Snapshot) bool {
	return a.enqueueJSON(sheetID, storage.KindSnapshot, snap.Version, snap)
}

// ACL enqueues acl as the record of its revision.
func (a *Archiver) ACL(sheetID uuid.UUID, acl permission.ACL) bool {
	return a.enqueueJSON(sheetID, storage.KindACL, acl.Revision, acl)
}

func (a *Archiver) enqueueJSON(sheetID uuid.UUID, kind storage.Kind, seq int64, v any) bool {
	body, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("encode archive record", "sheet_id", sheetID, "kind", kind, "seq", seq, "error", err)
		return false
	}
	return a.Enqueue(storage.WriteRequest{SheetID: sheetID, Kind: kind, Seq: seq, Body: body})
}

// Enqueue queues req for writing. It reports false if the record was
// dropped.
func (a *Archiver) Enqueue(req storage.WriteRequest) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		metrics.RecordArchiveDrop()
		return false
	}
	select {
	case a.queue <- job{req: req}:
		metrics.SetArchiveQueueDepth(len(a.queue))
		return true
	default:
		metrics.RecordArchiveDrop()
		a.logger.Warn("archive queue full, record dropped", "sheet_id", req.SheetID, "kind", req.Kind, "seq", req.Seq)
		return false
	}
}

// Flush waits until every record enqueued before the call has been handled.
func (a *Archiver) Flush(ctx context.Context) error {
	marker := job{flush: make(chan struct{})}
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	select {
	case a.queue <- marker:
		a.mu.RUnlock()
	case <-ctx.Done():
		a.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-marker.flush:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting records, drains the queue and waits for the writer.
func (a *Archiver) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()
	<-a.done
}

func (a *Archiver) loop() {
	defer close(a.done)
	for j := range a.queue {
		metrics.SetArchiveQueueDepth(len(a.queue))
		if j.flush != nil {
			close(j.flush)
			continue
		}
		a.write(context.Background(), j.req)
	}
}

func (a *Archiver) write(ctx context.Context, req storage.WriteRequest) {
	err := a.breaker.Do(ctx, func(ctx context.Context) error {
		store, err := a.router.StoreForSheet(req.SheetID)
		if err != nil {
			return err
		}
		_, err = store.Write(ctx, req)
		if errors.Is(err, storage.ErrDuplicateRecord) {
			// Already archived, e.g. replayed after a restart.
			metrics.RecordArchiveWrite(metrics.ResultDuplicate)
			return nil
		}
		return err
	})
	switch {
	case err == nil:
		metrics.RecordArchiveWrite(metrics.ResultOK)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		metrics.RecordArchiveWrite(metrics.ResultOpen)
		a.logger.Warn("archive write skipped", "sheet_id", req.SheetID, "kind", req.Kind, "seq", req.Seq, "error", err)
	default:
		metrics.RecordArchiveWrite(metrics.ResultError)
		a.logger.Error("archive write failed", "sheet_id", req.SheetID, "kind", req.Kind, "seq", req.Seq, "error", err)
	}
}

// Sheet is everything archived for one sheet.
type Sheet struct {
	ID        uuid.UUID
	Snapshots []*sheet.Snapshot
	ACL       *permission.ACL
}

// Load reads back every archived sheet from all shards, snapshots ordered by
// version. Sheets without a snapshot are skipped.
func Load(ctx context.Context, router *shard.Router) ([]Sheet, error) {
	byID := make(map[uuid.UUID]*Sheet)
	var order []uuid.UUID
	for _, store := range router.All() {
		cursor := ""
		for {
			page, err := store.Scan(ctx, cursor, 0)
			if err != nil {
				return nil, fmt.Errorf("scan archive: %w", err)
			}
			for _, r := range page.Records {
				s, ok := byID[r.SheetID]
				if !ok {
					s = &Sheet{ID: r.SheetID}
					byID[r.SheetID] = s
					order = append(order, r.SheetID)
				}
				if err := s.add(r); err != nil {
					return nil, err
				}
			}
			if !page.HasMore {
				break
			}
			cursor = page.NextCursor
		}
	}

	out := make([]Sheet, 0, len(order))
	for _, id := range order {
		s := byID[id]
		if len(s.Snapshots) == 0 {
			continue
		}
		sort.Slice(s.Snapshots, func(i, j int) bool { return s.Snapshots[i].Version < s.Snapshots[j].Version })
		out = append(out, *s)
	}
	return out, nil
}

func (s *Sheet) add(r storage.Record) error {
	switch r.Kind {
	case storage.KindSnapshot:
		var snap sheet.Snapshot
		if err := json.Unmarshal(r.Body, &snap); err != nil {
			return fmt.Errorf("decode snapshot %d of sheet %s: %w", r.Seq, r.SheetID, err)
		}
		s.Snapshots = append(s.Snapshots, &snap)
	case storage.KindACL:
		var acl permission.ACL
		if err := json.Unmarshal(r.Body, &acl); err != nil {
			return fmt.Errorf("decode acl %d of sheet %s: %w", r.Seq, r.SheetID, err)
		}
		if s.ACL == nil || acl.Revision > s.ACL.Revision {
			s.ACL = &acl
		}
	}
	return nil
}
