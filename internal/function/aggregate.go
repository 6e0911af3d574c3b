package function

import (
	"math"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

var aggregateFuncs = []Function{
	{
		Name: "SUM", Category: Aggregate, MinArgs: 1, MaxArgs: Variadic,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := collectNumbers(env, "SUM", args)
			if !ok {
				return stop
			}
			sum := 0.0
			for _, n := range nums {
				sum += n
			}
			return cell.Number(sum)
		},
	},
	{
		Name: "AVERAGE", Category: Aggregate, MinArgs: 1, MaxArgs: Variadic,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := collectNumbers(env, "AVERAGE", args)
			if !ok {
				return stop
			}
			if len(nums) == 0 {
				return cell.Errorf(cell.ErrorCodeDiv0, sheeterr.EvaluationError, "AVERAGE of an empty range")
			}
			sum := 0.0
			for _, n := range nums {
				sum += n
			}
			return cell.Number(sum / float64(len(nums)))
		},
	},
	{
		Name: "COUNT", Category: Aggregate, MinArgs: 1, MaxArgs: Variadic,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := collectNumbers(env, "COUNT", args)
			if !ok {
				return stop
			}
			return cell.Number(float64(len(nums)))
		},
	},
	extreme("MIN", math.Min),
	extreme("MAX", math.Max),
	{
		// PERCENT(part, whole) is part percent of whole.
		Name: "PERCENT", Category: Aggregate, MinArgs: 2, MaxArgs: 2,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := numberArgs("PERCENT", args)
			if !ok {
				return stop
			}
			return cell.Number(nums[0] * nums[1] / 100)
		},
	},
}

// MIN and MAX of an empty range are 0.
func extreme(name string, pick func(a, b float64) float64) Function {
	return Function{
		Name: name, Category: Aggregate, MinArgs: 1, MaxArgs: Variadic,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := collectNumbers(env, name, args)
			if !ok {
				return stop
			}
			if len(nums) == 0 {
				return cell.Number(0)
			}
			out := nums[0]
			for _, n := range nums[1:] {
				out = pick(out, n)
			}
			return cell.Number(out)
		},
	}
}

// collectNumbers flattens range arguments to their numeric cells, skipping
// anything else, and requires scalar arguments to be numbers.
func collectNumbers(env Env, fn string, args []Arg) ([]float64, cell.Value, bool) {
	var out []float64
	for i, a := range args {
		if r, ok := a.Range(); ok {
			for _, c := range r.Coords() {
				if n, ok := env.Value(c).Num(); ok {
					out = append(out, n)
				}
			}
			continue
		}
		v := a.Eval()
		if halt(v) {
			return nil, v, false
		}
		n, ok := v.Num()
		if !ok {
			if s, isStr := v.Str(); isStr {
				return nil, cell.Errorf(cell.ErrorCodeRef, sheeterr.EvaluationError,
					"%s argument %d: no range named %q", fn, i+1, s), false
			}
			return nil, typeMismatch(fn, i, "range or number", v), false
		}
		out = append(out, n)
	}
	return out, cell.Value{}, true
}
