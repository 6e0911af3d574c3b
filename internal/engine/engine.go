// Package engine is the multi-user front of the spreadsheet core. It owns
// the logged-in users, every sheet with its version history and access
// list, and serializes edits per sheet.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/expr"
	"github.com/ryanbastic/go-shticell/internal/metrics"
	"github.com/ryanbastic/go-shticell/internal/permission"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
	"github.com/ryanbastic/go-shticell/internal/user"
	"github.com/ryanbastic/go-shticell/internal/version"
	"github.com/ryanbastic/go-shticell/internal/wire"
)

// Archive receives every committed snapshot and ACL revision. Calls must
// not block.
type Archive interface {
	Snapshot(sheetID uuid.UUID, snap *sheet.Snapshot) bool
	ACL(sheetID uuid.UUID, acl permission.ACL) bool
}

type discardArchive struct{}

func (discardArchive) Snapshot(uuid.UUID, *sheet.Snapshot) bool { return true }
func (discardArchive) ACL(uuid.UUID, permission.ACL) bool       { return true }

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// DefaultBounds applies to uploads that declare no rows or cols.
	DefaultBounds cell.Bounds
	// MaxBounds caps uploaded sheets. It defaults to the largest addressable
	// sheet.
	MaxBounds cell.Bounds
	// Retention caps the versions kept per sheet; zero keeps all.
	Retention int
	Evaluator *expr.Evaluator
	Archive   Archive
	Logger    *slog.Logger
}

type entry struct {
	mu    sync.Mutex
	id    uuid.UUID
	sheet *sheet.Sheet
}

// Engine holds all sheets of the process.
type Engine struct {
	users    *user.Registry
	gate     *permission.Gate
	versions *version.Manager
	eval     *expr.Evaluator
	archive  Archive
	logger   *slog.Logger
	bounds   cell.Bounds
	limit    cell.Bounds
	now      func() time.Time

	mu     sync.RWMutex
	sheets map[uuid.UUID]*entry
	names  map[string]uuid.UUID
}

// New returns an empty engine.
func New(opts Options) *Engine {
	if opts.DefaultBounds.Rows < 1 || opts.DefaultBounds.Cols < 1 {
		opts.DefaultBounds = cell.Bounds{Rows: cell.DefaultRows, Cols: cell.DefaultCols}
	}
	if !opts.MaxBounds.Within(cell.Bounds{Rows: cell.MaxRows, Cols: cell.MaxCols}) {
		opts.MaxBounds = cell.Bounds{Rows: cell.MaxRows, Cols: cell.MaxCols}
	}
	if opts.Evaluator == nil {
		opts.Evaluator = expr.NewEvaluator(nil)
	}
	if opts.Archive == nil {
		opts.Archive = discardArchive{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		users:    user.NewRegistry(),
		gate:     permission.NewGate(),
		versions: version.NewManager(opts.Retention),
		eval:     opts.Evaluator,
		archive:  opts.Archive,
		logger:   opts.Logger,
		bounds:   opts.DefaultBounds,
		limit:    opts.MaxBounds,
		now:      time.Now,
		sheets:   make(map[uuid.UUID]*entry),
		names:    make(map[string]uuid.UUID),
	}
}

// Login registers username as logged in.
func (e *Engine) Login(username string) (user.Session, error) {
	s, err := e.users.Add(username)
	if err != nil {
		return user.Session{}, err
	}
	metrics.SetSessions(e.users.Len())
	e.logger.Info("user logged in", "user", s.Username)
	return s, nil
}

// Logout ends the session of username.
func (e *Engine) Logout(username string) error {
	if err := e.users.Remove(username); err != nil {
		return err
	}
	metrics.SetSessions(e.users.Len())
	e.logger.Info("user logged out", "user", username)
	return nil
}

// Users lists the logged-in users.
func (e *Engine) Users() []user.Session { return e.users.List() }

// Authenticate returns NotLoggedIn unless username has a session.
func (e *Engine) Authenticate(username string) error { return e.users.Require(username) }

// Functions lists the formula functions sheets can call, by name.
func (e *Engine) Functions() []wire.FunctionInfo {
	reg := e.eval.Functions()
	names := reg.Names()
	out := make([]wire.FunctionInfo, 0, len(names))
	for _, name := range names {
		f, err := reg.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, wire.FunctionInfo{
			Name:     name,
			Category: f.Category.String(),
			MinArgs:  f.MinArgs,
			MaxArgs:  f.MaxArgs,
		})
	}
	return out
}

// Upload creates a sheet owned by owner from def. Sheet names are unique.
func (e *Engine) Upload(owner string, def sheet.Definition) (wire.SheetInfo, error) {
	if err := e.users.Require(owner); err != nil {
		return wire.SheetInfo{}, err
	}
	if def.Rows == 0 && def.Cols == 0 {
		def.Rows, def.Cols = e.bounds.Rows, e.bounds.Cols
	}
	if def.Rows > e.limit.Rows || def.Cols > e.limit.Cols {
		return wire.SheetInfo{}, sheeterr.New(sheeterr.InvalidDefinition, "sheet %q is %dx%d, larger than the %dx%d limit",
			def.Name, def.Rows, def.Cols, e.limit.Rows, e.limit.Cols)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.names[def.Name]; ok {
		return wire.SheetInfo{}, sheeterr.New(sheeterr.SheetAlreadyExists, "a sheet named %q already exists", def.Name)
	}
	s, err := sheet.Load(def, owner, e.eval)
	if err != nil {
		return wire.SheetInfo{}, err
	}

	id := uuid.New()
	acl, err := e.gate.Create(id.String(), owner)
	if err != nil {
		return wire.SheetInfo{}, err
	}
	snap := s.Snapshot(e.now())
	if err := e.versions.Commit(id.String(), snap); err != nil {
		e.gate.Remove(id.String())
		return wire.SheetInfo{}, err
	}
	e.sheets[id] = &entry{id: id, sheet: s}
	e.names[def.Name] = id

	e.archive.Snapshot(id, snap)
	e.archive.ACL(id, acl)
	metrics.RecordCommit("upload", s.Len())
	metrics.SetSheets(len(e.sheets))
	e.logger.Info("sheet uploaded", "sheet_id", id, "name", def.Name, "owner", owner, "cells", s.Len())
	return e.info(id, s, permission.Owner), nil
}

// ListSheets returns every sheet with the caller's level, sorted by name.
func (e *Engine) ListSheets(username string) ([]wire.SheetInfo, error) {
	if err := e.users.Require(username); err != nil {
		return nil, err
	}
	e.mu.RLock()
	entries := make([]*entry, 0, len(e.sheets))
	for _, en := range e.sheets {
		entries = append(entries, en)
	}
	e.mu.RUnlock()

	out := make([]wire.SheetInfo, 0, len(entries))
	for _, en := range entries {
		level, err := e.gate.Level(en.id.String(), username)
		if err != nil {
			continue
		}
		en.mu.Lock()
		out = append(out, e.info(en.id, en.sheet, level))
		en.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (e *Engine) info(id uuid.UUID, s *sheet.Sheet, level permission.Level) wire.SheetInfo {
	b := s.Bounds()
	return wire.SheetInfo{
		ID:      id,
		Name:    s.Name(),
		Owner:   s.Owner(),
		Rows:    b.Rows,
		Cols:    b.Cols,
		Version: s.Version(),
		Level:   level,
	}
}

func (e *Engine) lookup(id uuid.UUID) (*entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, ok := e.sheets[id]
	if !ok {
		return nil, sheeterr.New(sheeterr.SheetNotFound, "sheet %s not found", id)
	}
	return en, nil
}

// viewable resolves id for a user allowed to read it.
func (e *Engine) viewable(username string, id uuid.UUID) (*entry, error) {
	if err := e.users.Require(username); err != nil {
		return nil, err
	}
	en, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.gate.CheckView(id.String(), username); err != nil {
		return nil, err
	}
	return en, nil
}

// editable resolves id for a user allowed to change it.
func (e *Engine) editable(username string, id uuid.UUID) (*entry, error) {
	if err := e.users.Require(username); err != nil {
		return nil, err
	}
	en, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := e.gate.CheckEdit(id.String(), username); err != nil {
		return nil, err
	}
	return en, nil
}
