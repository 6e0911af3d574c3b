// Package function is the registry of built-in spreadsheet functions.
// Functions are pure: they read cells through Env and never mutate anything.
package function

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Category groups functions for documentation and listing.
type Category int

const (
	Arithmetic Category = iota + 1
	Logical
	String
	Aggregate
	System
)

func (c Category) String() string {
	switch c {
	case Arithmetic:
		return "arithmetic"
	case Logical:
		return "logical"
	case String:
		return "string"
	case Aggregate:
		return "aggregate"
	case System:
		return "system"
	default:
		return "unknown"
	}
}

// Env is the read-only view of the sheet a function evaluates against.
type Env interface {
	// Value returns the computed value of c, Empty if never written.
	Value(c cell.Coord) cell.Value
	Bounds() cell.Bounds
	NamedRange(name string) (cell.Range, bool)
}

// Arg is one unevaluated argument. Functions decide whether and when to
// evaluate it, which is what lets IF skip the branch it does not take.
type Arg interface {
	Eval() cell.Value
	// Ref reports the coordinate when the argument is a bare cell reference.
	Ref() (cell.Coord, bool)
	// Range reports the block when the argument is a range literal or a
	// named range.
	Range() (cell.Range, bool)
}

// Impl computes a value from its arguments.
type Impl func(env Env, args []Arg) cell.Value

// Variadic marks a function without an upper argument bound.
const Variadic = -1

// Function is one registry entry.
type Function struct {
	Name     string
	Category Category
	MinArgs  int
	MaxArgs  int
	Impl     Impl
}

// Registry maps upper-cased names to functions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Function)}
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry holding every built-in function.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		for _, group := range [][]Function{arithmeticFuncs, logicalFuncs, stringFuncs, aggregateFuncs, systemFuncs} {
			for _, f := range group {
				if err := r.Register(f); err != nil {
					panic(err)
				}
			}
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// Register adds f. Names are case-insensitive and must be unique.
func (r *Registry) Register(f Function) error {
	name := strings.ToUpper(strings.TrimSpace(f.Name))
	if name == "" {
		return fmt.Errorf("register function: empty name")
	}
	if f.Impl == nil {
		return fmt.Errorf("register function %s: nil implementation", name)
	}
	if f.MaxArgs != Variadic && f.MaxArgs < f.MinArgs {
		return fmt.Errorf("register function %s: max args %d < min args %d", name, f.MaxArgs, f.MinArgs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("register function %s: already registered", name)
	}
	f.Name = name
	r.funcs[name] = f
	return nil
}

// Lookup finds a function by name, case-insensitively.
func (r *Registry) Lookup(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[strings.ToUpper(name)]
	if !ok {
		return Function{}, sheeterr.New(sheeterr.UnknownFunction, "%s", name)
	}
	return f, nil
}

// CheckArity reports ArityError when n arguments do not fit f.
func (f Function) CheckArity(n int) error {
	if n < f.MinArgs || (f.MaxArgs != Variadic && n > f.MaxArgs) {
		if f.MinArgs == f.MaxArgs {
			return sheeterr.New(sheeterr.ArityError, "%s expects %d arguments, got %d", f.Name, f.MinArgs, n)
		}
		if f.MaxArgs == Variadic {
			return sheeterr.New(sheeterr.ArityError, "%s expects at least %d arguments, got %d", f.Name, f.MinArgs, n)
		}
		return sheeterr.New(sheeterr.ArityError, "%s expects %d to %d arguments, got %d", f.Name, f.MinArgs, f.MaxArgs, n)
	}
	return nil
}

// Call resolves name, checks arity and runs the function. Unknown names and
// arity mismatches come back as error-marker values, never panics.
func (r *Registry) Call(env Env, name string, args []Arg) cell.Value {
	f, err := r.Lookup(name)
	if err != nil {
		return cell.Errorf(cell.ErrorCodeName, sheeterr.UnknownFunction, "unknown function %s", name)
	}
	if err := f.CheckArity(len(args)); err != nil {
		return cell.Errorf(cell.ErrorCodeNA, sheeterr.ArityError, "%s", err.(*sheeterr.Error).Message)
	}
	return f.Impl(env, args)
}

// Names lists registered names alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
