package archive

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/circuitbreaker"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/shard"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func memoryRouter(n int) *shard.Router {
	r := shard.NewRouter()
	for i := 0; i < n; i++ {
		r.Register(shard.ID(i), storage.NewMemoryStore())
	}
	return r
}

// failingStore rejects every write until healed.
type failingStore struct {
	*storage.MemoryStore
	mu     sync.Mutex
	writes int
	healed bool
}

func (f *failingStore) Write(ctx context.Context, req storage.WriteRequest) (*storage.Record, error) {
	f.mu.Lock()
	f.writes++
	healed := f.healed
	f.mu.Unlock()
	if !healed {
		return nil, errors.New("connection refused")
	}
	return f.MemoryStore.Write(ctx, req)
}

func (f *failingStore) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func flush(t *testing.T, a *Archiver) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestArchiveAndLoad(t *testing.T) {
	router := memoryRouter(4)
	a := New(router, circuitbreaker.New(3, time.Minute), 16, testLogger())
	defer a.Close()

	s, err := sheet.New("budget", "alice", cell.Bounds{Rows: 5, Cols: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	id := uuid.New()
	now := time.Now()
	a.Snapshot(id, s.Snapshot(now))
	s.SetCell("A1", "2", "alice")
	s.SetCell("B1", "{TIMES,A1,A1}", "alice")
	a.Snapshot(id, s.Snapshot(now))
	a.Snapshot(id, s.Snapshot(now)) // duplicate version is ignored

	gate := permission.NewGate()
	acl, _ := gate.Create(id.String(), "alice")
	a.ACL(id, acl)
	_, acl, _ = gate.Request(id.String(), "bob", permission.Reader)
	a.ACL(id, acl)

	flush(t, a)

	sheets, err := Load(context.Background(), router)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(sheets))
	}
	got := sheets[0]
	if got.ID != id {
		t.Errorf("ID = %s, want %s", got.ID, id)
	}
	if len(got.Snapshots) != 2 || got.Snapshots[0].Version != 1 || got.Snapshots[1].Version != 3 {
		t.Fatalf("snapshots = %+v", got.Snapshots)
	}
	b1, err := got.Snapshots[1].Cell("B1")
	if err != nil || !b1.Value.Equal(cell.Number(4)) {
		t.Errorf("B1 = %+v, %v", b1, err)
	}
	if got.ACL == nil || got.ACL.Revision != 2 || len(got.ACL.Requests) != 1 {
		t.Errorf("ACL = %+v", got.ACL)
	}
}

func TestLoadSkipsSheetsWithoutSnapshots(t *testing.T) {
	router := memoryRouter(1)
	a := New(router, circuitbreaker.New(3, time.Minute), 4, testLogger())
	defer a.Close()
	a.ACL(uuid.New(), permission.ACL{Owner: "x", Revision: 1})
	flush(t, a)

	sheets, err := Load(context.Background(), router)
	if err != nil || len(sheets) != 0 {
		t.Errorf("Load = %+v, %v", sheets, err)
	}
}

func TestClosedArchiverRejects(t *testing.T) {
	a := New(memoryRouter(1), circuitbreaker.New(3, time.Minute), 1, testLogger())
	a.Close()

	if a.Enqueue(storage.WriteRequest{SheetID: uuid.New(), Kind: storage.KindSnapshot, Seq: 1}) {
		t.Error("Enqueue after Close reported success")
	}
	if err := a.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close: got %v", err)
	}
	a.Close() // idempotent
}

// blockingStore holds every write until released.
type blockingStore struct {
	*storage.MemoryStore
	started chan struct{}
	release chan struct{}
}

func (b *blockingStore) Write(ctx context.Context, req storage.WriteRequest) (*storage.Record, error) {
	b.started <- struct{}{}
	<-b.release
	return b.MemoryStore.Write(ctx, req)
}

func TestQueueFullDrops(t *testing.T) {
	store := &blockingStore{
		MemoryStore: storage.NewMemoryStore(),
		started:     make(chan struct{}, 4),
		release:     make(chan struct{}),
	}
	router := shard.NewRouter()
	router.Register(0, store)
	a := New(router, circuitbreaker.New(3, time.Minute), 1, testLogger())

	req := func(seq int64) storage.WriteRequest {
		return storage.WriteRequest{SheetID: uuid.New(), Kind: storage.KindSnapshot, Seq: seq, Body: []byte(`{}`)}
	}
	if !a.Enqueue(req(1)) {
		t.Fatal("first record dropped")
	}
	<-store.started // the writer now holds record 1
	if !a.Enqueue(req(2)) {
		t.Fatal("second record dropped with a free slot")
	}
	if a.Enqueue(req(3)) {
		t.Error("third record accepted by a full queue")
	}
	close(store.release)
	a.Close()

	page, err := store.Scan(context.Background(), "", 0)
	if err != nil || len(page.Records) != 2 {
		t.Errorf("archived %d records, want 2 (%v)", len(page.Records), err)
	}
}

func TestBreakerStopsHammeringFailedBackend(t *testing.T) {
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	router := shard.NewRouter()
	router.Register(0, store)
	breaker := circuitbreaker.New(2, 200*time.Millisecond)
	a := New(router, breaker, 16, testLogger())
	defer a.Close()

	for i := int64(1); i <= 5; i++ {
		a.Enqueue(storage.WriteRequest{SheetID: uuid.New(), Kind: storage.KindSnapshot, Seq: i, Body: []byte(`{}`)})
	}
	flush(t, a)

	if n := store.attempts(); n != 2 {
		t.Errorf("backend saw %d writes, want 2 before the breaker opened", n)
	}
	if breaker.State() != circuitbreaker.Open {
		t.Errorf("breaker = %v, want open", breaker.State())
	}

	store.mu.Lock()
	store.healed = true
	store.mu.Unlock()
	time.Sleep(250 * time.Millisecond)
	id := uuid.New()
	a.Enqueue(storage.WriteRequest{SheetID: id, Kind: storage.KindSnapshot, Seq: 1, Body: []byte(`{}`)})
	flush(t, a)
	page, err := store.Scan(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Records) != 1 || page.Records[0].SheetID != id {
		t.Errorf("records after recovery = %+v", page.Records)
	}
	if breaker.State() != circuitbreaker.Closed {
		t.Errorf("breaker = %v, want closed", breaker.State())
	}
}

// syncBuffer is a log sink shared with the archiver goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestBreakerTransitionsAreLogged(t *testing.T) {
	var logs syncBuffer
	router := shard.NewRouter()
	router.Register(0, &failingStore{MemoryStore: storage.NewMemoryStore()})
	a := New(router, circuitbreaker.New(1, time.Minute), 4, slog.New(slog.NewTextHandler(&logs, nil)))
	defer a.Close()

	a.Enqueue(storage.WriteRequest{SheetID: uuid.New(), Kind: storage.KindSnapshot, Seq: 1, Body: []byte(`{}`)})
	flush(t, a)

	out := logs.String()
	if !strings.Contains(out, "archive circuit breaker") || !strings.Contains(out, "to=open") {
		t.Errorf("breaker transition not logged:\n%s", out)
	}
}

func TestFlushHonoursContext(t *testing.T) {
	a := New(memoryRouter(1), circuitbreaker.New(3, time.Minute), 4, testLogger())
	defer a.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The marker may or may not be accepted; either way Flush must return.
	if err := a.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.Errorf("Flush: %v", err)
	}
}
