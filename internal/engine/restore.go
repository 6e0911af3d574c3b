package engine

import (
	"fmt"

	"github.com/ryanbastic/go-shticell/internal/archive"
	"github.com/ryanbastic/go-shticell/internal/metrics"
	"github.com/ryanbastic/go-shticell/internal/sheet"
)

// Restore installs archived sheets into an engine that has not served any
// upload yet. Only the newest run of consecutive versions is kept in the
// history; the live sheet is rebuilt from the newest snapshot.
func (e *Engine) Restore(sheets []archive.Sheet) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range sheets {
		if len(a.Snapshots) == 0 {
			continue
		}
		if _, ok := e.sheets[a.ID]; ok {
			return fmt.Errorf("restore sheet %s: already loaded", a.ID)
		}
		run := consecutiveTail(a.Snapshots)
		latest := run[len(run)-1]
		if _, ok := e.names[latest.Name]; ok {
			e.logger.Warn("archived sheet name taken, skipped", "sheet_id", a.ID, "name", latest.Name)
			continue
		}
		s, err := sheet.Restore(latest, e.eval)
		if err != nil {
			return fmt.Errorf("restore sheet %s: %w", a.ID, err)
		}
		for _, snap := range run {
			if err := e.versions.Commit(a.ID.String(), snap); err != nil {
				return fmt.Errorf("restore sheet %s: %w", a.ID, err)
			}
		}
		if a.ACL != nil {
			e.gate.Load(a.ID.String(), *a.ACL)
		} else if _, err := e.gate.Create(a.ID.String(), latest.Owner); err != nil {
			return fmt.Errorf("restore sheet %s: %w", a.ID, err)
		}
		e.sheets[a.ID] = &entry{id: a.ID, sheet: s}
		e.names[latest.Name] = a.ID
		e.logger.Info("sheet restored", "sheet_id", a.ID, "name", latest.Name, "version", latest.Version, "history", len(run))
	}
	metrics.SetSheets(len(e.sheets))
	return nil
}

// consecutiveTail returns the longest suffix of snaps whose versions grow by
// one. Dropped archive writes leave gaps.
func consecutiveTail(snaps []*sheet.Snapshot) []*sheet.Snapshot {
	i := len(snaps) - 1
	for i > 0 && snaps[i-1].Version == snaps[i].Version-1 {
		i--
	}
	return snaps[i:]
}
