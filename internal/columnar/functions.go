package columnar

import (
	"fmt"
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
)

// ScalarFn evaluates a scalar function call over already-evaluated
// argument columns, producing one Value per row (§4.9's scalar function
// registry, the `Call(name, args)` expression kind).
type ScalarFn func(args [][]Value, rows int) ([]Value, error)

// ScalarFunctions is the fixed registry of built-in scalar functions.
// Grounded on the teacher's internal/engine function dispatch table,
// generalized to operate column-at-a-time.
var ScalarFunctions = map[string]ScalarFn{
	"abs": func(args [][]Value, rows int) ([]Value, error) {
		if len(args) != 1 {
			return nil, arityErr("abs", 1, len(args))
		}
		out := make([]Value, rows)
		for i, v := range args[0] {
			switch {
			case v.IsNull():
				out[i] = Null()
			case v.Kind == KindInt:
				if v.I < 0 {
					out[i] = Int(-v.I)
				} else {
					out[i] = v
				}
			case v.Kind == KindFloat:
				if v.F < 0 {
					out[i] = Float(-v.F)
				} else {
					out[i] = v
				}
			default:
				return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "abs() requires a numeric argument")
			}
		}
		return out, nil
	},
	"upper": stringMap(strings.ToUpper),
	"lower": stringMap(strings.ToLower),
	"length": func(args [][]Value, rows int) ([]Value, error) {
		if len(args) != 1 {
			return nil, arityErr("length", 1, len(args))
		}
		out := make([]Value, rows)
		for i, v := range args[0] {
			if v.IsNull() {
				out[i] = Null()
				continue
			}
			if v.Kind != KindString {
				return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "length() requires a string argument")
			}
			out[i] = Int(int64(len(v.S)))
		}
		return out, nil
	},
	"coalesce": func(args [][]Value, rows int) ([]Value, error) {
		out := make([]Value, rows)
		for i := 0; i < rows; i++ {
			out[i] = Null()
			for _, col := range args {
				if !col[i].IsNull() {
					out[i] = col[i]
					break
				}
			}
		}
		return out, nil
	},
	"cast_int": func(args [][]Value, rows int) ([]Value, error) {
		if len(args) != 1 {
			return nil, arityErr("cast_int", 1, len(args))
		}
		out := make([]Value, rows)
		for i, v := range args[0] {
			r, err := CastToInt(v)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	},
	"cast_float": func(args [][]Value, rows int) ([]Value, error) {
		if len(args) != 1 {
			return nil, arityErr("cast_float", 1, len(args))
		}
		out := make([]Value, rows)
		for i, v := range args[0] {
			r, err := CastToFloat(v)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	},
}

func stringMap(f func(string) string) ScalarFn {
	return func(args [][]Value, rows int) ([]Value, error) {
		if len(args) != 1 {
			return nil, arityErr("string function", 1, len(args))
		}
		out := make([]Value, rows)
		for i, v := range args[0] {
			if v.IsNull() {
				out[i] = Null()
				continue
			}
			if v.Kind != KindString {
				return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "function requires a string argument")
			}
			out[i] = Str(f(v.S))
		}
		return out, nil
	}
}

func arityErr(name string, want, got int) error {
	return diagnostic.New(diagnostic.CodeTypeMismatch, "wrong number of arguments").
		WithLabel(name).
		WithNote(fmt.Sprintf("expected %d argument(s), got %d", want, got))
}
