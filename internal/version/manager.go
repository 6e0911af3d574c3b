// Package version keeps the committed snapshot history of every sheet and
// answers "what is the latest version" and "what changed since N" queries.
package version

import (
	"sort"
	"sync"
	"time"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Manager stores snapshots keyed by (sheet id, version). Snapshots are
// immutable once committed; callers must not modify what Get returns.
type Manager struct {
	mu        sync.RWMutex
	histories map[string][]*sheet.Snapshot
	retention int
}

// NewManager returns a manager keeping at most retention snapshots per
// sheet. Zero keeps everything.
func NewManager(retention int) *Manager {
	if retention < 0 {
		retention = 0
	}
	return &Manager{
		histories: make(map[string][]*sheet.Snapshot),
		retention: retention,
	}
}

// Commit appends snap to the history of sheetID. The first commit may carry
// any version; every later one must be exactly latest+1.
func (m *Manager) Commit(sheetID string, snap *sheet.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.histories[sheetID]
	if n := len(h); n > 0 && snap.Version != h[n-1].Version+1 {
		return sheeterr.New(sheeterr.InvalidVersionNumber,
			"sheet %s: commit of version %d after %d", sheetID, snap.Version, h[n-1].Version)
	}
	h = append(h, snap)
	if m.retention > 0 && len(h) > m.retention {
		h = append([]*sheet.Snapshot(nil), h[len(h)-m.retention:]...)
	}
	m.histories[sheetID] = h
	return nil
}

// Get returns the snapshot for version v.
func (m *Manager) Get(sheetID string, v int64) (*sheet.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, err := m.history(sheetID)
	if err != nil {
		return nil, err
	}
	first, last := h[0].Version, h[len(h)-1].Version
	if v < first || v > last {
		return nil, sheeterr.New(sheeterr.InvalidVersionNumber,
			"sheet %s: version %d outside %d..%d", sheetID, v, first, last)
	}
	i := sort.Search(len(h), func(i int) bool { return h[i].Version >= v })
	return h[i], nil
}

// Latest returns the newest version number without copying anything.
func (m *Manager) Latest(sheetID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, err := m.history(sheetID)
	if err != nil {
		return 0, err
	}
	return h[len(h)-1].Version, nil
}

// LatestSnapshot returns the newest snapshot.
func (m *Manager) LatestSnapshot(sheetID string) (*sheet.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, err := m.history(sheetID)
	if err != nil {
		return nil, err
	}
	return h[len(h)-1], nil
}

// Summary describes one commit without its cells.
type Summary struct {
	Version   int64     `json:"version"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
	Changed   int       `json:"changed"`
}

// Versions lists the retained commits oldest first.
func (m *Manager) Versions(sheetID string) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, err := m.history(sheetID)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, len(h))
	for i, s := range h {
		out[i] = Summary{Version: s.Version, Author: s.Author, CreatedAt: s.CreatedAt, Changed: s.Changed}
	}
	return out, nil
}

// Changes is the difference between two versions.
type Changes struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	// Cells holds the current state of every cell whose text or value differs.
	Cells []cell.Cell `json:"cells"`
	// Cleared lists cells present at From and empty at To.
	Cleared []cell.Coord `json:"cleared,omitempty"`
	// Ranges is set when the named ranges differ.
	Ranges map[string]cell.Range `json:"ranges,omitempty"`
}

// ChangesSince diffs version n against the latest version.
func (m *Manager) ChangesSince(sheetID string, n int64) (Changes, error) {
	old, err := m.Get(sheetID, n)
	if err != nil {
		return Changes{}, err
	}
	cur, err := m.LatestSnapshot(sheetID)
	if err != nil {
		return Changes{}, err
	}
	return Diff(old, cur), nil
}

// Diff compares two snapshots of the same sheet.
func Diff(old, cur *sheet.Snapshot) Changes {
	out := Changes{From: old.Version, To: cur.Version}
	before := old.Grid()
	for _, c := range cur.Cells {
		prev, ok := before[c.Coord]
		if !ok || prev.Text != c.Text || !prev.Value.Equal(c.Value) {
			out.Cells = append(out.Cells, c.Clone())
		}
		delete(before, c.Coord)
	}
	for c := range before {
		out.Cleared = append(out.Cleared, c)
	}
	sort.Slice(out.Cleared, func(i, j int) bool { return out.Cleared[i].Less(out.Cleared[j]) })
	if !sameRanges(old.Ranges, cur.Ranges) {
		out.Ranges = make(map[string]cell.Range, len(cur.Ranges))
		for k, v := range cur.Ranges {
			out.Ranges[k] = v
		}
	}
	return out
}

func (m *Manager) history(sheetID string) ([]*sheet.Snapshot, error) {
	h := m.histories[sheetID]
	if len(h) == 0 {
		return nil, sheeterr.New(sheeterr.SheetNotFound, "no versions for sheet %s", sheetID)
	}
	return h, nil
}

func sameRanges(a, b map[string]cell.Range) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
