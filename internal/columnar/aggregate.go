package columnar

import "github.com/reifydb/reifydb/internal/diagnostic"

// Accumulator implements one aggregate function's running state over a
// single group, per §4.8: "per-aggregate aggregate(column, groups) +
// finalize()". Each call to Aggregate feeds it one column's worth of
// values already partitioned to this accumulator's group.
type Accumulator interface {
	Aggregate(values []Value)
	Finalize() Value
}

// AccumulatorFactory builds a fresh Accumulator instance per group, so
// distinct groups never share mutable state.
type AccumulatorFactory func() Accumulator

// AggregateFunctions is the fixed registry of aggregate functions
// usable in `aggregate`/`window` stages.
var AggregateFunctions = map[string]AccumulatorFactory{
	"sum":   func() Accumulator { return &sumAcc{} },
	"count": func() Accumulator { return &countAcc{} },
	"avg":   func() Accumulator { return &avgAcc{} },
	"min":   func() Accumulator { return &minMaxAcc{wantMin: true} },
	"max":   func() Accumulator { return &minMaxAcc{wantMin: false} },
}

type sumAcc struct {
	isFloat bool
	i       int64
	f       float64
	any     bool
}

func (a *sumAcc) Aggregate(values []Value) {
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		a.any = true
		switch v.Kind {
		case KindFloat:
			if !a.isFloat && a.i != 0 {
				a.f = float64(a.i)
			}
			a.isFloat = true
			a.f += v.F
		case KindInt:
			if a.isFloat {
				a.f += float64(v.I)
			} else {
				a.i += v.I
			}
		}
	}
}

func (a *sumAcc) Finalize() Value {
	if !a.any {
		return Null()
	}
	if a.isFloat {
		return Float(a.f)
	}
	return Int(a.i)
}

type countAcc struct{ n int64 }

func (a *countAcc) Aggregate(values []Value) {
	for _, v := range values {
		if !v.IsNull() {
			a.n++
		}
	}
}
func (a *countAcc) Finalize() Value { return Int(a.n) }

type avgAcc struct {
	sum float64
	n   int64
}

func (a *avgAcc) Aggregate(values []Value) {
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		f, ok := v.asFloat()
		if ok {
			a.sum += f
			a.n++
		}
	}
}

func (a *avgAcc) Finalize() Value {
	if a.n == 0 {
		return Null()
	}
	return Float(a.sum / float64(a.n))
}

type minMaxAcc struct {
	wantMin bool
	best    Value
	any     bool
}

func (a *minMaxAcc) Aggregate(values []Value) {
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if !a.any {
			a.best = v
			a.any = true
			continue
		}
		c, ok := Compare(v, a.best)
		if !ok {
			continue
		}
		if (a.wantMin && c < 0) || (!a.wantMin && c > 0) {
			a.best = v
		}
	}
}

func (a *minMaxAcc) Finalize() Value {
	if !a.any {
		return Null()
	}
	return a.best
}

// NewAccumulator resolves a registered aggregate function by name.
func NewAccumulator(name string) (Accumulator, error) {
	f, ok := AggregateFunctions[name]
	if !ok {
		return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown aggregate function").WithNote(name)
	}
	return f(), nil
}
