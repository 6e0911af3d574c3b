package expr

import (
	"errors"
	"sort"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/function"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// Evaluator computes node values using a function registry.
type Evaluator struct {
	funcs *function.Registry
}

// NewEvaluator returns an evaluator backed by funcs. A nil registry uses
// function.Default().
func NewEvaluator(funcs *function.Registry) *Evaluator {
	if funcs == nil {
		funcs = function.Default()
	}
	return &Evaluator{funcs: funcs}
}

// Functions returns the registry the evaluator calls into.
func (e *Evaluator) Functions() *function.Registry { return e.funcs }

// Eval computes the value of n. Evaluation never fails; failures become
// error-marker values.
func (e *Evaluator) Eval(n Node, env function.Env) cell.Value {
	switch n := n.(type) {
	case Literal:
		return n.Value
	case Ref:
		return function.Resolve(env, n.Coord)
	case RangeLit:
		if err := n.Range.Check(env.Bounds()); err != nil {
			return cell.Errorf(cell.ErrorCodeBounds, sheeterr.KindOf(err), "%s", err.Error())
		}
		return cell.Errorf(cell.ErrorCodeValue, sheeterr.EvaluationError,
			"range %s used where a single value is expected", n.Range)
	case Call:
		args := make([]function.Arg, len(n.Args))
		for i, a := range n.Args {
			args[i] = arg{ev: e, env: env, node: a}
		}
		return e.funcs.Call(env, n.Name, args)
	}
	return cell.Errorf(cell.ErrorCodeValue, sheeterr.EvaluationError, "unsupported expression %T", n)
}

// EvalText parses and evaluates text in one step. Parse failures produce a
// #PARSE! marker value together with the ParseError.
func (e *Evaluator) EvalText(text string, env function.Env) (cell.Value, error) {
	n, err := Parse(text)
	if err != nil {
		return cell.Errorf(cell.ErrorCodeParse, sheeterr.ParseError, "%s", messageOf(err)), err
	}
	return e.Eval(n, env), nil
}

func messageOf(err error) string {
	var se *sheeterr.Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}

// arg adapts a node to function.Arg so implementations evaluate lazily.
type arg struct {
	ev   *Evaluator
	env  function.Env
	node Node
}

func (a arg) Eval() cell.Value { return a.ev.Eval(a.node, a.env) }

func (a arg) Ref() (cell.Coord, bool) {
	r, ok := a.node.(Ref)
	return r.Coord, ok
}

// Range yields in-bounds range literals and literals naming a defined range.
func (a arg) Range() (cell.Range, bool) {
	switch n := a.node.(type) {
	case RangeLit:
		if n.Range.Check(a.env.Bounds()) != nil {
			return cell.Range{}, false
		}
		return n.Range, true
	case Literal:
		return a.env.NamedRange(strings.TrimSpace(n.Raw))
	}
	return cell.Range{}, false
}

// Refs describes what an expression reads.
type Refs struct {
	// Cells are the in-bounds coordinates read, sorted and unique.
	Cells []cell.Coord
	// Ranges are the named ranges read, sorted and unique.
	Ranges []string
}

// References walks n and collects the cells and named ranges it depends on.
// A literal argument counts as a range reference only if env currently
// defines a range with that name. A plain literal cell reads nothing.
func References(n Node, env function.Env) Refs {
	if _, ok := n.(Call); !ok {
		return Refs{}
	}
	cells := make(map[cell.Coord]struct{})
	names := make(map[string]struct{})
	bounds := env.Bounds()
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case Ref:
			if bounds.Check(n.Coord) == nil {
				cells[n.Coord] = struct{}{}
			}
		case RangeLit:
			if n.Range.Check(bounds) == nil {
				for _, c := range n.Range.Coords() {
					cells[c] = struct{}{}
				}
			}
		case Literal:
			name := strings.TrimSpace(n.Raw)
			if r, ok := env.NamedRange(name); ok {
				names[name] = struct{}{}
				for _, c := range r.Coords() {
					cells[c] = struct{}{}
				}
			}
		case Call:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(n)

	var out Refs
	for c := range cells {
		out.Cells = append(out.Cells, c)
	}
	sort.Slice(out.Cells, func(i, j int) bool { return out.Cells[i].Less(out.Cells[j]) })
	for name := range names {
		out.Ranges = append(out.Ranges, name)
	}
	sort.Strings(out.Ranges)
	return out
}
