package function

import (
	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

// halt reports whether v must short-circuit the calling function: undefined
// and error markers propagate unchanged.
func halt(v cell.Value) bool {
	return v.IsUndefined() || v.IsError()
}

func typeMismatch(fn string, pos int, want string, got cell.Value) cell.Value {
	return cell.Errorf(cell.ErrorCodeValue, sheeterr.EvaluationError,
		"%s argument %d: expected %s, got %s", fn, pos+1, want, got.Type())
}

func numberArgs(fn string, args []Arg) ([]float64, cell.Value, bool) {
	out := make([]float64, len(args))
	for i, a := range args {
		v := a.Eval()
		if halt(v) {
			return nil, v, false
		}
		n, ok := v.Num()
		if !ok {
			return nil, typeMismatch(fn, i, "number", v), false
		}
		out[i] = n
	}
	return out, cell.Value{}, true
}

func boolArg(fn string, pos int, a Arg) (bool, cell.Value, bool) {
	v := a.Eval()
	if halt(v) {
		return false, v, false
	}
	b, ok := v.Bool()
	if !ok {
		return false, typeMismatch(fn, pos, "boolean", v), false
	}
	return b, cell.Value{}, true
}

func stringArg(fn string, pos int, a Arg) (string, cell.Value, bool) {
	v := a.Eval()
	if halt(v) {
		return "", v, false
	}
	s, ok := v.Str()
	if !ok {
		return "", typeMismatch(fn, pos, "string", v), false
	}
	return s, cell.Value{}, true
}

func intArg(fn string, pos int, a Arg) (int, cell.Value, bool) {
	v := a.Eval()
	if halt(v) {
		return 0, v, false
	}
	n, ok := v.Num()
	if !ok || n != float64(int(n)) {
		return 0, typeMismatch(fn, pos, "integer", v), false
	}
	return int(n), cell.Value{}, true
}
