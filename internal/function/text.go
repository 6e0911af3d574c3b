package function

import (
	"strings"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

var stringFuncs = []Function{
	{
		Name: "CONCAT", Category: String, MinArgs: 2, MaxArgs: Variadic,
		Impl: func(env Env, args []Arg) cell.Value {
			var b strings.Builder
			for i, a := range args {
				s, stop, ok := stringArg("CONCAT", i, a)
				if !ok {
					return stop
				}
				b.WriteString(s)
			}
			return cell.String(b.String())
		},
	},
	{
		// SUB(source, start, length) with a 0-based start, counted in runes.
		Name: "SUB", Category: String, MinArgs: 3, MaxArgs: 3,
		Impl: func(env Env, args []Arg) cell.Value {
			s, stop, ok := stringArg("SUB", 0, args[0])
			if !ok {
				return stop
			}
			start, stop, ok := intArg("SUB", 1, args[1])
			if !ok {
				return stop
			}
			length, stop, ok := intArg("SUB", 2, args[2])
			if !ok {
				return stop
			}
			runes := []rune(s)
			if start < 0 || length < 0 || start > len(runes) || length > len(runes)-start {
				return cell.Errorf(cell.ErrorCodeBounds, sheeterr.ArgumentOutOfBounds,
					"SUB start %d length %d outside string of length %d", start, length, len(runes))
			}
			return cell.String(string(runes[start : start+length]))
		},
	},
	stringMap("UPPER", strings.ToUpper),
	stringMap("LOWER", strings.ToLower),
	stringMap("TRIM", strings.TrimSpace),
	{
		Name: "LEN", Category: String, MinArgs: 1, MaxArgs: 1,
		Impl: func(env Env, args []Arg) cell.Value {
			s, stop, ok := stringArg("LEN", 0, args[0])
			if !ok {
				return stop
			}
			return cell.Number(float64(len([]rune(s))))
		},
	},
}

func stringMap(name string, fn func(string) string) Function {
	return Function{
		Name: name, Category: String, MinArgs: 1, MaxArgs: 1,
		Impl: func(env Env, args []Arg) cell.Value {
			s, stop, ok := stringArg(name, 0, args[0])
			if !ok {
				return stop
			}
			return cell.String(fn(s))
		},
	}
}
