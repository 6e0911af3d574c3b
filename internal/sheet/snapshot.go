package sheet

import (
	"time"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/expr"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Snapshot is an immutable copy of a sheet at one version. Nothing in it
// aliases live sheet state.
type Snapshot struct {
	Name      string                `json:"name"`
	Owner     string                `json:"owner"`
	Bounds    cell.Bounds           `json:"bounds"`
	Version   int64                 `json:"version"`
	Author    string                `json:"author"`
	CreatedAt time.Time             `json:"created_at"`
	Changed   int                   `json:"changed"`
	Cells     []cell.Cell           `json:"cells"`
	Ranges    map[string]cell.Range `json:"ranges,omitempty"`
}

// Snapshot copies the current state, stamped with at.
func (s *Sheet) Snapshot(at time.Time) *Snapshot {
	return &Snapshot{
		Name:      s.name,
		Owner:     s.owner,
		Bounds:    s.bounds,
		Version:   s.version,
		Author:    s.lastAuthor,
		CreatedAt: at.UTC(),
		Changed:   s.lastChanged,
		Cells:     s.Cells(),
		Ranges:    s.Ranges(),
	}
}

// Cell finds id in the snapshot.
func (p *Snapshot) Cell(id string) (cell.Cell, error) {
	c, err := p.Bounds.Resolve(id)
	if err != nil {
		return cell.Cell{}, err
	}
	for _, cl := range p.Cells {
		if cl.Coord == c {
			return cl.Clone(), nil
		}
	}
	return cell.Cell{}, sheeterr.New(sheeterr.CellNotFound, "cell %s is empty at version %d", c, p.Version)
}

// Grid returns the cells keyed by coordinate.
func (p *Snapshot) Grid() map[cell.Coord]cell.Cell {
	out := make(map[cell.Coord]cell.Cell, len(p.Cells))
	for _, cl := range p.Cells {
		out[cl.Coord] = cl
	}
	return out
}

// Clone deep-copies p.
func (p *Snapshot) Clone() *Snapshot {
	out := *p
	out.Cells = make([]cell.Cell, len(p.Cells))
	for i, cl := range p.Cells {
		out.Cells[i] = cl.Clone()
	}
	out.Ranges = make(map[string]cell.Range, len(p.Ranges))
	for k, v := range p.Ranges {
		out.Ranges[k] = v
	}
	return &out
}

// Restore rebuilds a live sheet from a snapshot. Values are recomputed from
// text; per-cell versions and authors are kept as recorded.
func Restore(p *Snapshot, ev *expr.Evaluator) (*Sheet, error) {
	def := Definition{
		Name:   p.Name,
		Rows:   p.Bounds.Rows,
		Cols:   p.Bounds.Cols,
		Cells:  make(map[string]string, len(p.Cells)),
		Ranges: make(map[string]string, len(p.Ranges)),
	}
	for _, cl := range p.Cells {
		def.Cells[cl.Coord.String()] = cl.Text
	}
	for name, r := range p.Ranges {
		def.Ranges[name] = r.String()
	}
	s, err := Load(def, p.Owner, ev)
	if err != nil {
		return nil, err
	}
	for _, cl := range p.Cells {
		if e, ok := s.cells[cl.Coord]; ok {
			e.version = cl.Version
			e.author = cl.Author
		}
	}
	s.version = p.Version
	s.lastAuthor = p.Author
	s.lastChanged = p.Changed
	return s, nil
}
