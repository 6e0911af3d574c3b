package version

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

const sheetID = "11111111-1111-1111-1111-111111111111"

// edit applies text to id and commits the resulting snapshot.
func edit(t *testing.T, m *Manager, s *sheet.Sheet, id, text string) {
	t.Helper()
	if _, err := s.SetCell(id, text, "alice"); err != nil {
		t.Fatalf("SetCell(%s): %v", id, err)
	}
	if err := m.Commit(sheetID, s.Snapshot(time.Now())); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func newTracked(t *testing.T, m *Manager) *sheet.Sheet {
	t.Helper()
	s, err := sheet.New("sales", "alice", cell.Bounds{Rows: 5, Cols: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(sheetID, s.Snapshot(time.Now())); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCommitAndGetReproduceState(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	edit(t, m, s, "A1", "1")
	edit(t, m, s, "B1", "{PLUS,A1,1}")
	edit(t, m, s, "A1", "5")

	tests := []struct {
		version int64
		b1      cell.Value
	}{
		{2, cell.Empty},
		{3, cell.Number(2)},
		{4, cell.Number(6)},
	}
	for _, tt := range tests {
		snap, err := m.Get(sheetID, tt.version)
		if err != nil {
			t.Fatalf("Get(%d): %v", tt.version, err)
		}
		if snap.Version != tt.version {
			t.Errorf("Get(%d).Version = %d", tt.version, snap.Version)
		}
		got := snap.Grid()[cell.MustParseCoord("B1")].Value
		if !got.Equal(tt.b1) {
			t.Errorf("v%d B1 = %v, want %v", tt.version, got, tt.b1)
		}
	}
}

func TestLatest(t *testing.T) {
	m := NewManager(0)
	if _, err := m.Latest(sheetID); !errors.Is(err, sheeterr.ErrSheetNotFound) {
		t.Errorf("unknown sheet: got %v", err)
	}
	s := newTracked(t, m)
	edit(t, m, s, "A1", "x")
	v, err := m.Latest(sheetID)
	if err != nil || v != 2 {
		t.Errorf("Latest = %d, %v; want 2", v, err)
	}
}

func TestInvalidVersionNumber(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	edit(t, m, s, "A1", "1")
	for _, v := range []int64{0, -1, 3, 100} {
		if _, err := m.Get(sheetID, v); !errors.Is(err, sheeterr.ErrInvalidVersionNumber) {
			t.Errorf("Get(%d): got %v, want InvalidVersionNumber", v, err)
		}
	}
}

func TestCommitMustBeContiguous(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	snap := s.Snapshot(time.Now())
	if err := m.Commit(sheetID, snap); !errors.Is(err, sheeterr.ErrInvalidVersionNumber) {
		t.Errorf("recommit of version %d: got %v", snap.Version, err)
	}
}

func TestVersionsStrictlyIncreasing(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	for i := 0; i < 5; i++ {
		edit(t, m, s, "A1", "v")
	}
	vs, err := m.Versions(sheetID)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(vs); i++ {
		if vs[i].Version <= vs[i-1].Version {
			t.Fatalf("versions not increasing: %+v", vs)
		}
	}
	if len(vs) != 6 {
		t.Errorf("len = %d, want 6", len(vs))
	}
}

func TestRetention(t *testing.T) {
	m := NewManager(3)
	s := newTracked(t, m)
	for i := 0; i < 4; i++ {
		edit(t, m, s, "A1", "v")
	}
	if _, err := m.Get(sheetID, 2); !errors.Is(err, sheeterr.ErrInvalidVersionNumber) {
		t.Errorf("pruned version: got %v", err)
	}
	if _, err := m.Get(sheetID, 3); err != nil {
		t.Errorf("retained version: %v", err)
	}
	vs, _ := m.Versions(sheetID)
	if len(vs) != 3 || vs[0].Version != 3 {
		t.Errorf("Versions = %+v", vs)
	}
}

func TestChangesSince(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	edit(t, m, s, "A1", "1")
	edit(t, m, s, "B1", "{PLUS,A1,1}")
	edit(t, m, s, "C1", "keep")

	edit(t, m, s, "A1", "2")
	edit(t, m, s, "C1", "")

	ch, err := m.ChangesSince(sheetID, 4)
	if err != nil {
		t.Fatal(err)
	}
	if ch.From != 4 || ch.To != 6 {
		t.Errorf("From/To = %d/%d", ch.From, ch.To)
	}
	if len(ch.Cells) != 2 || ch.Cells[0].Coord != cell.MustParseCoord("A1") || ch.Cells[1].Coord != cell.MustParseCoord("B1") {
		t.Errorf("Cells = %+v", ch.Cells)
	}
	if len(ch.Cleared) != 1 || ch.Cleared[0] != cell.MustParseCoord("C1") {
		t.Errorf("Cleared = %v", ch.Cleared)
	}
	if ch.Ranges != nil {
		t.Errorf("Ranges = %v, want nil", ch.Ranges)
	}

	none, err := m.ChangesSince(sheetID, 6)
	if err != nil || len(none.Cells) != 0 || len(none.Cleared) != 0 {
		t.Errorf("ChangesSince(latest) = %+v, %v", none, err)
	}
}

func TestChangesSinceRanges(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	if _, err := s.AddRange("r", "A1..A2", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := m.Commit(sheetID, s.Snapshot(time.Now())); err != nil {
		t.Fatal(err)
	}
	ch, err := m.ChangesSince(sheetID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.Ranges["r"]; !ok {
		t.Errorf("Ranges = %v", ch.Ranges)
	}
}

func TestConcurrentReadersDuringCommits(t *testing.T) {
	m := NewManager(0)
	s := newTracked(t, m)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				v, err := m.Latest(sheetID)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := m.Get(sheetID, v); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		edit(t, m, s, "A1", "x")
	}
	close(stop)
	wg.Wait()
}
