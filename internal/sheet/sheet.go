// Package sheet owns one spreadsheet grid: raw cell text, computed values,
// the dependency graph between cells, and named ranges. A Sheet is not safe
// for concurrent use; callers serialize mutations per sheet.
package sheet

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/expr"
	"github.com/ryanbastic/go-shticell/internal/graph"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

type entry struct {
	text    string
	node    expr.Node
	value   cell.Value
	version int64
	author  string
	// ranges are the named ranges the formula reads.
	ranges []string
}

// Sheet is a spreadsheet with fixed bounds.
type Sheet struct {
	name    string
	owner   string
	bounds  cell.Bounds
	version int64

	cells  map[cell.Coord]*entry
	graph  *graph.Graph
	ranges map[string]cell.Range
	eval   *expr.Evaluator

	lastAuthor  string
	lastChanged int
}

// New creates an empty sheet at version 1. A nil evaluator uses the default
// function registry.
func New(name, owner string, bounds cell.Bounds, ev *expr.Evaluator) (*Sheet, error) {
	if strings.TrimSpace(name) == "" {
		return nil, sheeterr.New(sheeterr.InvalidDefinition, "sheet name must not be empty")
	}
	if !bounds.Within(cell.Bounds{Rows: cell.MaxRows, Cols: cell.MaxCols}) {
		return nil, sheeterr.New(sheeterr.InvalidDefinition, "sheet bounds %dx%d outside 1x1..%dx%d",
			bounds.Rows, bounds.Cols, cell.MaxRows, cell.MaxCols)
	}
	if ev == nil {
		ev = expr.NewEvaluator(nil)
	}
	return &Sheet{
		name:       name,
		owner:      owner,
		bounds:     bounds,
		version:    1,
		cells:      make(map[cell.Coord]*entry),
		graph:      graph.New(),
		ranges:     make(map[string]cell.Range),
		eval:       ev,
		lastAuthor: owner,
	}, nil
}

func (s *Sheet) Name() string        { return s.name }
func (s *Sheet) Owner() string       { return s.owner }
func (s *Sheet) Bounds() cell.Bounds { return s.bounds }
func (s *Sheet) Version() int64      { return s.version }

// Value implements function.Env.
func (s *Sheet) Value(c cell.Coord) cell.Value {
	if e, ok := s.cells[c]; ok {
		return e.value
	}
	return cell.Empty
}

// NamedRange implements function.Env.
func (s *Sheet) NamedRange(name string) (cell.Range, bool) {
	r, ok := s.ranges[name]
	return r, ok
}

// Result describes a committed cell edit.
type Result struct {
	Version int64
	// Changed lists every cell whose text or value changed, row-major.
	Changed []cell.Coord
	// ParseErr is set when the new text is a malformed formula. The edit is
	// still committed and the cell shows #PARSE!.
	ParseErr error
}

// SetCell stores text at id and recomputes the cell and everything that
// transitively reads it. Empty text clears the cell. Format errors and
// cycles are rejected before anything is modified.
func (s *Sheet) SetCell(id, text, author string) (Result, error) {
	c, err := s.bounds.Resolve(id)
	if err != nil {
		return Result{}, err
	}
	node, parseErr := expr.Parse(text)
	var refs expr.Refs
	if parseErr == nil {
		refs = expr.References(node, s)
	}
	if err := s.graph.SetPrecedents(c, refs.Cells); err != nil {
		return Result{}, err
	}

	s.version++
	var changed []cell.Coord
	if text == "" {
		if _, ok := s.cells[c]; ok {
			changed = append(changed, c)
		}
		delete(s.cells, c)
	} else {
		e := &entry{text: text, node: node, ranges: refs.Ranges, version: s.version, author: author}
		if parseErr != nil {
			e.value = parseMarker(parseErr)
		} else {
			e.value = s.eval.Eval(node, s)
		}
		s.cells[c] = e
		changed = append(changed, c)
	}

	for _, d := range s.graph.RecalcOrder(c) {
		if d == c {
			continue
		}
		if s.recompute(d, author) {
			changed = append(changed, d)
		}
	}
	sortCoords(changed)
	s.lastAuthor = author
	s.lastChanged = len(changed)
	return Result{Version: s.version, Changed: changed, ParseErr: parseErr}, nil
}

// recompute re-evaluates one stored cell and stamps it when its value moved.
func (s *Sheet) recompute(c cell.Coord, author string) bool {
	e, ok := s.cells[c]
	if !ok || e.node == nil {
		return false
	}
	v := s.eval.Eval(e.node, s)
	if v.Equal(e.value) {
		return false
	}
	e.value = v
	e.version = s.version
	e.author = author
	return true
}

// Cell returns a copy of the cell at id. In-bounds cells that were never
// written, or were cleared, are CellNotFound.
func (s *Sheet) Cell(id string) (cell.Cell, error) {
	c, err := s.bounds.Resolve(id)
	if err != nil {
		return cell.Cell{}, err
	}
	e, ok := s.cells[c]
	if !ok {
		return cell.Cell{}, sheeterr.New(sheeterr.CellNotFound, "cell %s is empty", c)
	}
	return s.export(c, e), nil
}

// Cells lists every stored cell row-major.
func (s *Sheet) Cells() []cell.Cell {
	coords := make([]cell.Coord, 0, len(s.cells))
	for c := range s.cells {
		coords = append(coords, c)
	}
	sortCoords(coords)
	out := make([]cell.Cell, len(coords))
	for i, c := range coords {
		out[i] = s.export(c, s.cells[c])
	}
	return out
}

// Len is the number of stored cells.
func (s *Sheet) Len() int { return len(s.cells) }

func (s *Sheet) export(c cell.Coord, e *entry) cell.Cell {
	return cell.Cell{
		Coord:      c,
		Text:       e.text,
		Value:      e.value,
		Version:    e.version,
		Author:     e.author,
		Precedents: s.graph.Precedents(c),
		Dependents: s.graph.Dependents(c),
	}
}

// Ranges returns the named ranges keyed by name.
func (s *Sheet) Ranges() map[string]cell.Range {
	out := make(map[string]cell.Range, len(s.ranges))
	for k, v := range s.ranges {
		out[k] = v
	}
	return out
}

// AddRange defines a named range. Because existing formulas may already
// mention name as a literal, the whole sheet is rebuilt; a rebuild that
// would create a cycle is rejected and nothing changes.
func (s *Sheet) AddRange(name, area, author string) (Result, error) {
	if err := validRangeName(name); err != nil {
		return Result{}, err
	}
	if _, ok := s.ranges[name]; ok {
		return Result{}, sheeterr.New(sheeterr.InvalidRange, "range %q already exists", name)
	}
	r, err := cell.ParseRange(area)
	if err != nil {
		return Result{}, err
	}
	if err := r.Check(s.bounds); err != nil {
		return Result{}, err
	}

	ranges := s.Ranges()
	ranges[name] = r
	return s.rebuild(ranges, author)
}

// DeleteRange removes a named range that no formula reads.
func (s *Sheet) DeleteRange(name, author string) (Result, error) {
	if _, ok := s.ranges[name]; !ok {
		return Result{}, sheeterr.New(sheeterr.RangeNotFound, "no range named %q", name)
	}
	if users := s.RangeUsers(name); len(users) > 0 {
		return Result{}, sheeterr.New(sheeterr.RangeInUse, "range %q is used by %s", name, joinCoords(users))
	}
	delete(s.ranges, name)
	s.version++
	s.lastAuthor = author
	s.lastChanged = 0
	return Result{Version: s.version}, nil
}

// RangeUsers lists the cells whose formulas read the named range.
func (s *Sheet) RangeUsers(name string) []cell.Coord {
	var out []cell.Coord
	for c, e := range s.cells {
		for _, r := range e.ranges {
			if r == name {
				out = append(out, c)
				break
			}
		}
	}
	sortCoords(out)
	return out
}

// rebuild re-derives every edge and value against ranges. On success the
// sheet adopts ranges and advances one version.
func (s *Sheet) rebuild(ranges map[string]cell.Range, author string) (Result, error) {
	next := &Sheet{
		name: s.name, owner: s.owner, bounds: s.bounds, version: s.version + 1,
		cells:  make(map[cell.Coord]*entry, len(s.cells)),
		graph:  graph.New(),
		ranges: ranges,
		eval:   s.eval,
	}
	for c, e := range s.cells {
		cp := *e
		next.cells[c] = &cp
	}
	if err := next.link(); err != nil {
		return Result{}, err
	}
	var changed []cell.Coord
	for _, c := range next.graph.Order(next.coords()) {
		if next.recompute(c, author) {
			changed = append(changed, c)
		}
	}
	sortCoords(changed)

	s.version = next.version
	s.cells = next.cells
	s.graph = next.graph
	s.ranges = next.ranges
	s.lastAuthor = author
	s.lastChanged = len(changed)
	return Result{Version: s.version, Changed: changed}, nil
}

// link parses every stored cell and wires the graph from scratch.
func (s *Sheet) link() error {
	for _, c := range s.coords() {
		e := s.cells[c]
		node, err := expr.Parse(e.text)
		if err != nil {
			e.node, e.ranges = nil, nil
			e.value = parseMarker(err)
			continue
		}
		refs := expr.References(node, s)
		e.node, e.ranges = node, refs.Ranges
		if err := s.graph.SetPrecedents(c, refs.Cells); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sheet) coords() []cell.Coord {
	out := make([]cell.Coord, 0, len(s.cells))
	for c := range s.cells {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

// Clone returns an independent copy of s.
func (s *Sheet) Clone() *Sheet {
	out := *s
	out.cells = make(map[cell.Coord]*entry, len(s.cells))
	for c, e := range s.cells {
		cp := *e
		out.cells[c] = &cp
	}
	out.graph = s.graph.Clone()
	out.ranges = s.Ranges()
	return &out
}

// Preview evaluates the sheet as if id held text and returns the resulting
// snapshot. s itself is never modified.
func (s *Sheet) Preview(id, text, author string) (*Snapshot, error) {
	cp := s.Clone()
	if _, err := cp.SetCell(id, text, author); err != nil {
		return nil, err
	}
	snap := cp.Snapshot(time.Now())
	snap.Version = s.version
	return snap, nil
}

// Definition is the uploaded form of a sheet: raw text by cell id and named
// ranges by name.
type Definition struct {
	Name   string            `json:"name" toml:"name"`
	Rows   int               `json:"rows" toml:"rows"`
	Cols   int               `json:"cols" toml:"cols"`
	Cells  map[string]string `json:"cells" toml:"cells"`
	Ranges map[string]string `json:"ranges,omitempty" toml:"ranges"`
}

// Load builds a sheet from def at version 1. Every cell is stamped with
// owner as author. Cycles reject the whole upload; malformed formulas load
// as #PARSE! cells.
func Load(def Definition, owner string, ev *expr.Evaluator) (*Sheet, error) {
	s, err := New(def.Name, owner, cell.Bounds{Rows: def.Rows, Cols: def.Cols}, ev)
	if err != nil {
		return nil, err
	}
	for name, area := range def.Ranges {
		if err := validRangeName(name); err != nil {
			return nil, err
		}
		r, err := cell.ParseRange(area)
		if err != nil {
			return nil, err
		}
		if err := r.Check(s.bounds); err != nil {
			return nil, err
		}
		s.ranges[name] = r
	}
	for id, text := range def.Cells {
		c, err := s.bounds.Resolve(id)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}
		s.cells[c] = &entry{text: text, version: s.version, author: owner}
	}
	if err := s.link(); err != nil {
		return nil, err
	}
	for _, c := range s.graph.Order(s.coords()) {
		if e := s.cells[c]; e.node != nil {
			e.value = s.eval.Eval(e.node, s)
		}
	}
	s.lastChanged = len(s.cells)
	return s, nil
}

// Definition exports the current text and ranges.
func (s *Sheet) Definition() Definition {
	def := Definition{
		Name:   s.name,
		Rows:   s.bounds.Rows,
		Cols:   s.bounds.Cols,
		Cells:  make(map[string]string, len(s.cells)),
		Ranges: make(map[string]string, len(s.ranges)),
	}
	for c, e := range s.cells {
		def.Cells[c.String()] = e.text
	}
	for name, r := range s.ranges {
		def.Ranges[name] = r.String()
	}
	return def
}

func parseMarker(err error) cell.Value {
	var se *sheeterr.Error
	msg := err.Error()
	if errors.As(err, &se) {
		msg = se.Message
	}
	return cell.Errorf(cell.ErrorCodeParse, sheeterr.ParseError, "%s", msg)
}

// validRangeName rejects names that would be read as something else inside
// a formula.
func validRangeName(name string) error {
	if name == "" || strings.TrimSpace(name) != name {
		return sheeterr.New(sheeterr.InvalidRange, "range name %q must be non-empty without surrounding spaces", name)
	}
	if strings.ContainsAny(name, "{},") || strings.Contains(name, cell.RangeSeparator) {
		return sheeterr.New(sheeterr.InvalidRange, "range name %q contains reserved characters", name)
	}
	if cell.LooksLikeCoord(name) {
		return sheeterr.New(sheeterr.InvalidRange, "range name %q looks like a cell id", name)
	}
	if v := cell.ParseLiteral(name); v.Type() != cell.TypeString {
		return sheeterr.New(sheeterr.InvalidRange, "range name %q is a %s literal", name, v.Type())
	}
	return nil
}

func sortCoords(cs []cell.Coord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

func joinCoords(cs []cell.Coord) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
