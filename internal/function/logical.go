package function

import (
	"github.com/ryanbastic/go-shticell/internal/cell"
)

var logicalFuncs = []Function{
	{
		Name: "EQUAL", Category: Logical, MinArgs: 2, MaxArgs: 2,
		Impl: func(env Env, args []Arg) cell.Value {
			a := args[0].Eval()
			if halt(a) {
				return a
			}
			b := args[1].Eval()
			if halt(b) {
				return b
			}
			return cell.Boolean(a.Equal(b))
		},
	},
	{
		Name: "NOT", Category: Logical, MinArgs: 1, MaxArgs: 1,
		Impl: func(env Env, args []Arg) cell.Value {
			b, stop, ok := boolArg("NOT", 0, args[0])
			if !ok {
				return stop
			}
			return cell.Boolean(!b)
		},
	},
	compare("BIGGER", func(a, b float64) bool { return a >= b }),
	compare("LESS", func(a, b float64) bool { return a <= b }),
	connective("AND", func(a, b bool) bool { return a && b }),
	connective("OR", func(a, b bool) bool { return a || b }),
	{
		Name: "IF", Category: Logical, MinArgs: 3, MaxArgs: 3,
		Impl: func(env Env, args []Arg) cell.Value {
			cond, stop, ok := boolArg("IF", 0, args[0])
			if !ok {
				return stop
			}
			if cond {
				return args[1].Eval()
			}
			return args[2].Eval()
		},
	},
}

// BIGGER and LESS compare inclusively: {BIGGER,2,2} is TRUE.
func compare(name string, op func(a, b float64) bool) Function {
	return Function{
		Name: name, Category: Logical, MinArgs: 2, MaxArgs: 2,
		Impl: func(env Env, args []Arg) cell.Value {
			nums, stop, ok := numberArgs(name, args)
			if !ok {
				return stop
			}
			return cell.Boolean(op(nums[0], nums[1]))
		},
	}
}

func connective(name string, op func(a, b bool) bool) Function {
	return Function{
		Name: name, Category: Logical, MinArgs: 2, MaxArgs: 2,
		Impl: func(env Env, args []Arg) cell.Value {
			a, stop, ok := boolArg(name, 0, args[0])
			if !ok {
				return stop
			}
			b, stop, ok := boolArg(name, 1, args[1])
			if !ok {
				return stop
			}
			return cell.Boolean(op(a, b))
		},
	}
}
