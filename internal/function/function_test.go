package function

import (
	"errors"
	"math"
	"testing"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// fakeEnv is a map-backed Env for exercising functions without a parser.
type fakeEnv struct {
	values map[cell.Coord]cell.Value
	ranges map[string]cell.Range
	bounds cell.Bounds
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		values: make(map[cell.Coord]cell.Value),
		ranges: make(map[string]cell.Range),
		bounds: cell.Bounds{Rows: 20, Cols: 10},
	}
}

func (e *fakeEnv) Value(c cell.Coord) cell.Value { return e.values[c] }
func (e *fakeEnv) Bounds() cell.Bounds           { return e.bounds }
func (e *fakeEnv) NamedRange(name string) (cell.Range, bool) {
	r, ok := e.ranges[name]
	return r, ok
}

// lit is an argument holding an already-computed value.
type lit struct {
	v     cell.Value
	evals *int
}

func (l lit) Eval() cell.Value {
	if l.evals != nil {
		*l.evals++
	}
	return l.v
}
func (l lit) Ref() (cell.Coord, bool)   { return cell.Coord{}, false }
func (l lit) Range() (cell.Range, bool) { return cell.Range{}, false }

type ref struct {
	env *fakeEnv
	c   cell.Coord
}

func (r ref) Eval() cell.Value          { return Resolve(r.env, r.c) }
func (r ref) Ref() (cell.Coord, bool)   { return r.c, true }
func (r ref) Range() (cell.Range, bool) { return cell.Range{}, false }

type rng struct{ r cell.Range }

func (r rng) Eval() cell.Value          { return cell.Undefined }
func (r rng) Ref() (cell.Coord, bool)   { return cell.Coord{}, false }
func (r rng) Range() (cell.Range, bool) { return r.r, true }

func num(f float64) Arg   { return lit{v: cell.Number(f)} }
func str(s string) Arg    { return lit{v: cell.String(s)} }
func boolean(b bool) Arg  { return lit{v: cell.Boolean(b)} }
func args(a ...Arg) []Arg { return a }

func call(t *testing.T, env Env, name string, a []Arg) cell.Value {
	t.Helper()
	return Default().Call(env, name, a)
}

func wantKind(t *testing.T, v cell.Value, kind sheeterr.Kind) {
	t.Helper()
	if !v.IsError() {
		t.Fatalf("got %v (%v), want error marker of kind %v", v, v.Type(), kind)
	}
	if got := sheeterr.KindOf(v.Err()); got != kind {
		t.Errorf("kind: got %v, want %v", got, kind)
	}
}

func TestRegistry_LookupCaseInsensitive(t *testing.T) {
	for _, name := range []string{"plus", "Plus", "PLUS"} {
		f, err := Default().Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if f.Name != "PLUS" || f.Category != Arithmetic {
			t.Errorf("Lookup(%q) = %+v", name, f)
		}
	}
}

func TestRegistry_UnknownFunction(t *testing.T) {
	_, err := Default().Lookup("NOPE")
	if !errors.Is(err, sheeterr.ErrUnknownFunction) {
		t.Errorf("Lookup: got %v, want UnknownFunction", err)
	}
	v := call(t, newFakeEnv(), "NOPE", args(num(1)))
	wantKind(t, v, sheeterr.UnknownFunction)
	if v.Code() != cell.ErrorCodeName {
		t.Errorf("code: got %s", v.Code())
	}
}

func TestRegistry_Arity(t *testing.T) {
	env := newFakeEnv()
	wantKind(t, call(t, env, "PLUS", args(num(1))), sheeterr.ArityError)
	wantKind(t, call(t, env, "PLUS", args(num(1), num(2), num(3))), sheeterr.ArityError)
	wantKind(t, call(t, env, "IF", args(boolean(true))), sheeterr.ArityError)
	wantKind(t, call(t, env, "SUM", nil), sheeterr.ArityError)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	f := Function{Name: "double", Category: Arithmetic, MinArgs: 1, MaxArgs: 1, Impl: func(env Env, a []Arg) cell.Value {
		n, _ := a[0].Eval().Num()
		return cell.Number(2 * n)
	}}
	if err := r.Register(f); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(f); err == nil {
		t.Error("expected duplicate registration to fail")
	}
	if err := r.Register(Function{Name: "bad", MinArgs: 2, MaxArgs: 1, Impl: f.Impl}); err == nil {
		t.Error("expected max < min to fail")
	}
	if got := r.Call(newFakeEnv(), "DOUBLE", args(num(4))); !got.Equal(cell.Number(8)) {
		t.Errorf("DOUBLE(4) = %v", got)
	}
	if names := r.Names(); len(names) != 1 || names[0] != "DOUBLE" {
		t.Errorf("Names: %v", names)
	}
}

func TestArithmetic(t *testing.T) {
	env := newFakeEnv()
	tests := []struct {
		name string
		args []Arg
		want float64
	}{
		{"PLUS", args(num(5), num(3)), 8},
		{"MINUS", args(num(5), num(3)), 2},
		{"TIMES", args(num(5), num(3)), 15},
		{"DIVIDE", args(num(9), num(3)), 3},
		{"MOD", args(num(10), num(3)), 1},
		{"POW", args(num(2), num(10)), 1024},
		{"ABS", args(num(-4.5)), 4.5},
	}
	for _, tt := range tests {
		got := call(t, env, tt.name, tt.args)
		if !got.Equal(cell.Number(tt.want)) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestArithmetic_Errors(t *testing.T) {
	env := newFakeEnv()
	div := call(t, env, "DIVIDE", args(num(1), num(0)))
	wantKind(t, div, sheeterr.EvaluationError)
	if div.Code() != cell.ErrorCodeDiv0 {
		t.Errorf("DIVIDE code: %s", div.Code())
	}
	wantKind(t, call(t, env, "MOD", args(num(1), num(0))), sheeterr.EvaluationError)
	wantKind(t, call(t, env, "PLUS", args(str("a"), num(1))), sheeterr.EvaluationError)
	wantKind(t, call(t, env, "POW", args(num(-1), num(0.5))), sheeterr.EvaluationError)
}

func TestUndefinedPropagates(t *testing.T) {
	env := newFakeEnv()
	undefined := ref{env: env, c: cell.MustParseCoord("C3")}
	for _, name := range []string{"PLUS", "TIMES", "EQUAL", "BIGGER", "CONCAT", "PERCENT"} {
		got := call(t, env, name, args(undefined, num(1)))
		if !got.IsUndefined() {
			t.Errorf("%s(undefined, 1) = %v, want undefined", name, got)
		}
	}
}

func TestLogical(t *testing.T) {
	env := newFakeEnv()
	tests := []struct {
		name string
		args []Arg
		want bool
	}{
		{"EQUAL", args(num(2), num(2)), true},
		{"EQUAL", args(str("2"), num(2)), false},
		{"NOT", args(boolean(false)), true},
		{"BIGGER", args(num(3), num(2)), true},
		{"BIGGER", args(num(2), num(2)), true},
		{"LESS", args(num(3), num(2)), false},
		{"AND", args(boolean(true), boolean(false)), false},
		{"OR", args(boolean(true), boolean(false)), true},
	}
	for _, tt := range tests {
		got := call(t, env, tt.name, tt.args)
		if !got.Equal(cell.Boolean(tt.want)) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
	wantKind(t, call(t, env, "NOT", args(num(1))), sheeterr.EvaluationError)
}

func TestIf_ShortCircuits(t *testing.T) {
	env := newFakeEnv()
	var thenEvals, elseEvals int
	then := lit{v: cell.String("yes"), evals: &thenEvals}
	otherwise := lit{v: cell.Errorf(cell.ErrorCodeDiv0, sheeterr.EvaluationError, "boom"), evals: &elseEvals}

	got := call(t, env, "IF", args(boolean(true), then, otherwise))
	if !got.Equal(cell.String("yes")) {
		t.Errorf("IF = %v, want yes", got)
	}
	if thenEvals != 1 || elseEvals != 0 {
		t.Errorf("evaluations: then=%d else=%d, want 1/0", thenEvals, elseEvals)
	}

	wantKind(t, call(t, env, "IF", args(num(1), then, otherwise)), sheeterr.EvaluationError)
}

func TestString(t *testing.T) {
	env := newFakeEnv()
	if got := call(t, env, "CONCAT", args(str("ab"), str("cd"))); !got.Equal(cell.String("abcd")) {
		t.Errorf("CONCAT = %v", got)
	}
	if got := call(t, env, "SUB", args(str("hello"), num(1), num(3))); !got.Equal(cell.String("ell")) {
		t.Errorf("SUB = %v", got)
	}
	if got := call(t, env, "SUB", args(str("hello"), num(5), num(0))); !got.Equal(cell.String("")) {
		t.Errorf("SUB at end = %v", got)
	}
	for _, a := range [][]Arg{
		args(str("hello"), num(3), num(5)),
		args(str("hello"), num(-1), num(1)),
		args(str("hello"), num(0), num(-1)),
		args(str("hello"), num(1<<62), num(1<<62)),
		args(str("hello"), num(6), num(0)),
	} {
		wantKind(t, call(t, env, "SUB", a), sheeterr.ArgumentOutOfBounds)
	}
	wantKind(t, call(t, env, "SUB", args(str("hello"), num(1.5), num(1))), sheeterr.EvaluationError)
	if got := call(t, env, "UPPER", args(str("abc"))); !got.Equal(cell.String("ABC")) {
		t.Errorf("UPPER = %v", got)
	}
	if got := call(t, env, "LEN", args(str("héllo"))); !got.Equal(cell.Number(5)) {
		t.Errorf("LEN = %v", got)
	}
}

func TestAggregate(t *testing.T) {
	env := newFakeEnv()
	env.values[cell.MustParseCoord("A1")] = cell.Number(2)
	env.values[cell.MustParseCoord("A2")] = cell.Number(4)
	env.values[cell.MustParseCoord("A3")] = cell.String("skip")
	col := rng{r: cell.NewRange(cell.MustParseCoord("A1"), cell.MustParseCoord("A4"))}

	tests := []struct {
		name string
		want float64
	}{
		{"SUM", 6}, {"AVERAGE", 3}, {"COUNT", 2}, {"MIN", 2}, {"MAX", 4},
	}
	for _, tt := range tests {
		if got := call(t, env, tt.name, args(col)); !got.Equal(cell.Number(tt.want)) {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
	if got := call(t, env, "PERCENT", args(num(50), num(20))); !got.Equal(cell.Number(10)) {
		t.Errorf("PERCENT = %v", got)
	}
}

func TestAggregate_EmptyRange(t *testing.T) {
	env := newFakeEnv()
	empty := rng{r: cell.NewRange(cell.MustParseCoord("D1"), cell.MustParseCoord("D5"))}

	if got := call(t, env, "SUM", args(empty)); !got.Equal(cell.Number(0)) {
		t.Errorf("SUM(empty) = %v, want 0", got)
	}
	avg := call(t, env, "AVERAGE", args(empty))
	wantKind(t, avg, sheeterr.EvaluationError)
	if avg.Code() != cell.ErrorCodeDiv0 {
		t.Errorf("AVERAGE(empty) code = %s", avg.Code())
	}
}

func TestAggregate_UnknownRangeName(t *testing.T) {
	env := newFakeEnv()
	wantKind(t, call(t, env, "SUM", args(str("grades"))), sheeterr.EvaluationError)
}

func TestRef(t *testing.T) {
	env := newFakeEnv()
	a1 := cell.MustParseCoord("A1")
	env.values[a1] = cell.Number(5)
	env.values[cell.MustParseCoord("B1")] = cell.Errorf(cell.ErrorCodeDiv0, sheeterr.EvaluationError, "x")

	if got := call(t, env, "REF", args(ref{env: env, c: a1})); !got.Equal(cell.Number(5)) {
		t.Errorf("REF(A1) = %v", got)
	}
	for _, id := range []string{"C1", "B1", "Z99"} {
		got := call(t, env, "REF", args(ref{env: env, c: cell.MustParseCoord(id)}))
		if !got.IsUndefined() {
			t.Errorf("REF(%s) = %v, want undefined", id, got)
		}
	}
	if got := call(t, env, "REF", args(num(1))); !got.IsUndefined() {
		t.Errorf("REF(1) = %v, want undefined", got)
	}
}

func TestPow_Finite(t *testing.T) {
	got := call(t, newFakeEnv(), "POW", args(num(2), num(0.5)))
	n, ok := got.Num()
	if !ok || math.Abs(n-math.Sqrt2) > 1e-12 {
		t.Errorf("POW(2, .5) = %v", got)
	}
}
