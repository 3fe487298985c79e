// Package columnar implements the columnar execution engine of spec.md
// §4.8/§4.9: operators that consume and produce Columns, and an
// expression evaluator compiling RQL AST nodes into per-row closures.
// Grounded on the teacher's internal/engine/exec.go (row-batch
// evaluation, function dispatch), adapted from tinySQL's row-at-a-time
// model to column-at-a-time batches.
package columnar

import (
	"fmt"
	"math"
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/types"
)

// Kind discriminates the dynamic type a Value currently holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
)

// Value is one scalar cell. The execution engine is dynamically typed
// at this layer; static FieldType enforcement happens at the row-buffer
// boundary (internal/types) when results are persisted.
type Value struct {
	Kind Kind
	B    bool
	I    int64
	F    float64
	S    string
}

func Null() Value           { return Value{Kind: KindNull} }
func Bool(b bool) Value     { return Value{Kind: KindBool, B: b} }
func Int(i int64) Value     { return Value{Kind: KindInt, I: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, F: f} }
func Str(s string) Value    { return Value{Kind: KindString, S: s} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.B)
	case KindInt:
		return fmt.Sprintf("%d", v.I)
	case KindFloat:
		return fmt.Sprintf("%g", v.F)
	case KindString:
		return v.S
	default:
		return "?"
	}
}

// asFloat widens any numeric Value to float64 for mixed-type arithmetic,
// the "checked_promote lattice" of §4.9 collapsed to Go's native numeric
// widening since the engine has exactly two numeric kinds.
func (v Value) asFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I), true
	case KindFloat:
		return v.F, true
	default:
		return 0, false
	}
}

// SaturationPolicy selects how numeric overflow is handled (§4.9).
type SaturationPolicy int

const (
	// SaturateUndefined yields null on overflow.
	SaturateUndefined SaturationPolicy = iota
	// SaturateError raises a NUMBER_OUT_OF_RANGE diagnostic on overflow.
	SaturateError
)

// Compare orders two values of the same dynamic kind; numeric Values of
// different kinds are compared after promotion to float64. Returns -1,
// 0, 1; the second return is false if the values are not comparable
// (e.g. one is a string and the other numeric).
func Compare(a, b Value) (int, bool) {
	if a.Kind == KindString && b.Kind == KindString {
		return strings.Compare(a.S, b.S), true
	}
	if a.Kind == KindBool && b.Kind == KindBool {
		if a.B == b.B {
			return 0, true
		}
		if !a.B {
			return -1, true
		}
		return 1, true
	}
	af, aok := a.asFloat()
	bf, bok := b.asFloat()
	if !aok || !bok {
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	default:
		return 0, true
	}
}

// Equal reports value equality for use in hash-based operators (group
// by, distinct, equi-join keys).
func Equal(a, b Value) bool {
	if a.Kind == KindNull || b.Kind == KindNull {
		return a.Kind == KindNull && b.Kind == KindNull
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// hashKey renders a Value into a canonical string suitable as a Go map
// key for grouping/dedup operators — simple and adequate at the scale
// this engine targets (no SIMD vectorized hash join).
func hashKey(v Value) string {
	switch v.Kind {
	case KindNull:
		return "\x00N"
	case KindBool:
		if v.B {
			return "\x00T"
		}
		return "\x00F"
	case KindInt:
		return "\x00I" + fmt.Sprintf("%d", v.I)
	case KindFloat:
		return "\x00D" + fmt.Sprintf("%g", v.F)
	case KindString:
		return "\x00S" + v.S
	default:
		return "\x00?"
	}
}

// Add implements numeric addition with the given saturation policy.
func Add(a, b Value, policy SaturationPolicy) (Value, error) {
	return numericOp(a, b, policy, func(x, y int64) (int64, bool) {
		sum := x + y
		overflow := (y > 0 && sum < x) || (y < 0 && sum > x)
		return sum, overflow
	}, func(x, y float64) float64 { return x + y })
}

func Sub(a, b Value, policy SaturationPolicy) (Value, error) {
	return numericOp(a, b, policy, func(x, y int64) (int64, bool) {
		diff := x - y
		overflow := (y < 0 && diff < x) || (y > 0 && diff > x)
		return diff, overflow
	}, func(x, y float64) float64 { return x - y })
}

func Mul(a, b Value, policy SaturationPolicy) (Value, error) {
	return numericOp(a, b, policy, func(x, y int64) (int64, bool) {
		if x == 0 || y == 0 {
			return 0, false
		}
		prod := x * y
		overflow := prod/y != x
		return prod, overflow
	}, func(x, y float64) float64 { return x * y })
}

func Div(a, b Value, policy SaturationPolicy) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		if b.I == 0 {
			return Value{}, diagnostic.New(diagnostic.CodeNumberDivByZero, "division by zero")
		}
		return Int(a.I / b.I), nil
	}
	af, aok := a.asFloat()
	bf, bok := b.asFloat()
	if !aok || !bok {
		return Value{}, diagnostic.New(diagnostic.CodeTypeMismatch, "division requires numeric operands")
	}
	if bf == 0 {
		return Value{}, diagnostic.New(diagnostic.CodeNumberDivByZero, "division by zero")
	}
	return Float(af / bf), nil
}

func numericOp(a, b Value, policy SaturationPolicy, intOp func(x, y int64) (int64, bool), floatOp func(x, y float64) float64) (Value, error) {
	if a.Kind == KindInt && b.Kind == KindInt {
		r, overflow := intOp(a.I, b.I)
		if overflow {
			if policy == SaturateError {
				return Value{}, diagnostic.New(diagnostic.CodeNumberOutOfRange, "integer overflow").
					WithNote("target type: int64")
			}
			return Null(), nil
		}
		return Int(r), nil
	}
	af, aok := a.asFloat()
	bf, bok := b.asFloat()
	if !aok || !bok {
		return Value{}, diagnostic.New(diagnostic.CodeTypeMismatch, "arithmetic requires numeric operands")
	}
	r := floatOp(af, bf)
	if math.IsInf(r, 0) || math.IsNaN(r) {
		if policy == SaturateError {
			return Value{}, diagnostic.New(diagnostic.CodeNumberOutOfRange, "floating point overflow")
		}
		return Null(), nil
	}
	return Float(r), nil
}

// CastToInt implements the UTF8->int path of §4.9's string casts.
func CastToInt(v Value) (Value, error) {
	switch v.Kind {
	case KindInt:
		return v, nil
	case KindFloat:
		return Int(int64(v.F)), nil
	case KindString:
		var n int64
		if _, err := fmt.Sscanf(v.S, "%d", &n); err != nil {
			return Value{}, diagnostic.New(diagnostic.CodeCastBadString, "cannot cast string to int").
				WithNote(v.S).WithCause(err)
		}
		return Int(n), nil
	case KindNull:
		return Null(), nil
	default:
		return Value{}, diagnostic.New(diagnostic.CodeCastInvalid, "unsupported cast to int")
	}
}

// CastToFloat implements the UTF8->float path of §4.9.
func CastToFloat(v Value) (Value, error) {
	switch v.Kind {
	case KindFloat:
		return v, nil
	case KindInt:
		return Float(float64(v.I)), nil
	case KindString:
		var f float64
		if _, err := fmt.Sscanf(v.S, "%g", &f); err != nil {
			return Value{}, diagnostic.New(diagnostic.CodeCastBadString, "cannot cast string to float").
				WithNote(v.S).WithCause(err)
		}
		return Float(f), nil
	case KindNull:
		return Null(), nil
	default:
		return Value{}, diagnostic.New(diagnostic.CodeCastInvalid, "unsupported cast to float")
	}
}

// FieldTypeOf maps a dynamic Kind to the closest static FieldType, used
// when a computed column must be persisted through the row-buffer layer.
func FieldTypeOf(k Kind) types.FieldType {
	switch k {
	case KindBool:
		return types.Bool
	case KindInt:
		return types.Int8
	case KindFloat:
		return types.Float8
	case KindString:
		return types.Utf8
	default:
		return types.Utf8
	}
}
