package engine

import (
	"errors"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/metrics"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
	"github.com/ryanbastic/go-shticell/internal/version"
)

// Sheet returns a copy of version v of the sheet; v <= 0 means the latest.
func (e *Engine) Sheet(username string, id uuid.UUID, v int64) (*sheet.Snapshot, error) {
	if _, err := e.viewable(username, id); err != nil {
		return nil, err
	}
	var (
		snap *sheet.Snapshot
		err  error
	)
	if v <= 0 {
		snap, err = e.versions.LatestSnapshot(id.String())
	} else {
		snap, err = e.versions.Get(id.String(), v)
	}
	if err != nil {
		return nil, err
	}
	return snap.Clone(), nil
}

// Latest returns the newest version number of the sheet.
func (e *Engine) Latest(username string, id uuid.UUID) (int64, error) {
	if _, err := e.viewable(username, id); err != nil {
		return 0, err
	}
	return e.versions.Latest(id.String())
}

// Versions lists the retained versions of the sheet.
func (e *Engine) Versions(username string, id uuid.UUID) ([]version.Summary, error) {
	if _, err := e.viewable(username, id); err != nil {
		return nil, err
	}
	return e.versions.Versions(id.String())
}

// ChangesSince diffs version n against the latest.
func (e *Engine) ChangesSince(username string, id uuid.UUID, n int64) (version.Changes, error) {
	if _, err := e.viewable(username, id); err != nil {
		return version.Changes{}, err
	}
	return e.versions.ChangesSince(id.String(), n)
}

// Cell returns one cell of the latest version.
func (e *Engine) Cell(username string, id uuid.UUID, cellID string) (cell.Cell, error) {
	if _, err := e.viewable(username, id); err != nil {
		return cell.Cell{}, err
	}
	snap, err := e.versions.LatestSnapshot(id.String())
	if err != nil {
		return cell.Cell{}, err
	}
	return snap.Cell(cellID)
}

// SetCell stores text in cellID and commits a new version. A malformed
// formula is still committed; Result.ParseErr reports it.
func (e *Engine) SetCell(username string, id uuid.UUID, cellID, text string) (sheet.Result, error) {
	en, err := e.editable(username, id)
	if err != nil {
		return sheet.Result{}, err
	}
	return e.mutate(en, "set_cell", username, func(s *sheet.Sheet) (sheet.Result, error) {
		return s.SetCell(cellID, text, username)
	})
}

// AddRange defines a named range.
func (e *Engine) AddRange(username string, id uuid.UUID, name, area string) (sheet.Result, error) {
	en, err := e.editable(username, id)
	if err != nil {
		return sheet.Result{}, err
	}
	return e.mutate(en, "add_range", username, func(s *sheet.Sheet) (sheet.Result, error) {
		return s.AddRange(name, area, username)
	})
}

// DeleteRange removes a named range no formula reads.
func (e *Engine) DeleteRange(username string, id uuid.UUID, name string) (sheet.Result, error) {
	en, err := e.editable(username, id)
	if err != nil {
		return sheet.Result{}, err
	}
	return e.mutate(en, "delete_range", username, func(s *sheet.Sheet) (sheet.Result, error) {
		return s.DeleteRange(name, username)
	})
}

// mutate applies fn under the sheet lock and publishes the new version.
// Version commit order is the lock order.
func (e *Engine) mutate(en *entry, op, username string, fn func(*sheet.Sheet) (sheet.Result, error)) (sheet.Result, error) {
	en.mu.Lock()
	defer en.mu.Unlock()

	next := en.sheet.Clone()
	res, err := fn(next)
	if err != nil {
		if errors.Is(err, sheeterr.ErrCyclicDependency) {
			metrics.RecordCycleRejection()
		}
		e.logger.Info("edit rejected", "sheet_id", en.id, "op", op, "user", username, "error", err)
		return sheet.Result{}, err
	}

	snap := next.Snapshot(e.now())
	if err := e.versions.Commit(en.id.String(), snap); err != nil {
		e.logger.Error("version commit failed", "sheet_id", en.id, "version", snap.Version, "error", err)
		return sheet.Result{}, err
	}
	en.sheet = next
	e.archive.Snapshot(en.id, snap)
	metrics.RecordCommit(op, len(res.Changed))
	e.logger.Info("sheet committed",
		"sheet_id", en.id,
		"op", op,
		"user", username,
		"version", res.Version,
		"changed", len(res.Changed),
	)
	return res, nil
}

// Preview evaluates the sheet as if cellID held text. Nothing is committed.
func (e *Engine) Preview(username string, id uuid.UUID, cellID, text string) (*sheet.Snapshot, error) {
	en, err := e.viewable(username, id)
	if err != nil {
		return nil, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.sheet.Preview(cellID, text, username)
}

// Sort returns the rows of a range ordered by the given columns.
func (e *Engine) Sort(username string, id uuid.UUID, area string, by []string) (sheet.View, error) {
	en, err := e.viewable(username, id)
	if err != nil {
		return sheet.View{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.sheet.Sort(area, by)
}

// Filter returns the rows of a range whose column holds one of allowed.
func (e *Engine) Filter(username string, id uuid.UUID, area, column string, allowed []string) (sheet.View, error) {
	en, err := e.viewable(username, id)
	if err != nil {
		return sheet.View{}, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.sheet.Filter(area, column, allowed)
}

// DistinctValues lists the values a Filter on column can choose from.
func (e *Engine) DistinctValues(username string, id uuid.UUID, area, column string) ([]string, error) {
	en, err := e.viewable(username, id)
	if err != nil {
		return nil, err
	}
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.sheet.DistinctValues(area, column)
}
