package function

import (
	"github.com/ryanbastic/go-shticell/internal/cell"
)

var systemFuncs = []Function{
	{
		Name: "REF", Category: System, MinArgs: 1, MaxArgs: 1,
		Impl: func(env Env, args []Arg) cell.Value {
			c, ok := args[0].Ref()
			if !ok {
				return cell.Undefined
			}
			return Resolve(env, c)
		},
	},
}

// Resolve is the effective value of a reference: the referenced cell's value
// when it is a primitive, otherwise the undefined sentinel. Out-of-bounds,
// empty and error cells all resolve to undefined.
func Resolve(env Env, c cell.Coord) cell.Value {
	if env.Bounds().Check(c) != nil {
		return cell.Undefined
	}
	v := env.Value(c)
	if !v.IsPrimitive() {
		return cell.Undefined
	}
	return v
}
