package function

import (
	"math"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

var arithmeticFuncs = []Function{
	binaryNumeric("PLUS", func(a, b float64) cell.Value { return cell.Number(a + b) }),
	binaryNumeric("MINUS", func(a, b float64) cell.Value { return cell.Number(a - b) }),
	binaryNumeric("TIMES", func(a, b float64) cell.Value { return cell.Number(a * b) }),
	binaryNumeric("DIVIDE", func(a, b float64) cell.Value {
		if b == 0 {
			return divByZero("DIVIDE")
		}
		return cell.Number(a / b)
	}),
	binaryNumeric("MOD", func(a, b float64) cell.Value {
		if b == 0 {
			return divByZero("MOD")
		}
		return cell.Number(math.Mod(a, b))
	}),
	binaryNumeric("POW", func(a, b float64) cell.Value {
		p := math.Pow(a, b)
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return cell.Errorf(cell.ErrorCodeValue, sheeterr.EvaluationError, "POW(%v, %v) is not a finite number", a, b)
		}
		return cell.Number(p)
	}),
	{
		Name: "ABS", Category: Arithmetic, MinArgs: 1, MaxArgs: 1,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := numberArgs("ABS", args)
			if !ok {
				return stop
			}
			return cell.Number(math.Abs(nums[0]))
		},
	},
}

func binaryNumeric(name string, op func(a, b float64) cell.Value) Function {
	return Function{
		Name: name, Category: Arithmetic, MinArgs: 2, MaxArgs: 2,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := numberArgs(name, args)
			if !ok {
				return stop
			}
			return op(nums[0], nums[1])
		},
	}
}

func divByZero(fn string) cell.Value {
	return cell.Errorf(cell.ErrorCodeDiv0, sheeterr.EvaluationError, "%s by zero", fn)
}
