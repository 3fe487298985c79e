package columnar

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// ParseDuration parses the bare duration literals produced by the RQL
// lexer (§3.1): a number immediately followed by one of
// ns/us/ms/s/m/h/d/w, with no separating space.
func ParseDuration(text string) (time.Duration, error) {
	i := 0
	for i < len(text) && (text[i] >= '0' && text[i] <= '9' || text[i] == '.') {
		i++
	}
	if i == 0 || i == len(text) {
		return 0, diagnostic.New(diagnostic.CodeTypeMismatch, "malformed duration literal").WithNote(text)
	}
	n, err := strconv.ParseFloat(text[:i], 64)
	if err != nil {
		return 0, diagnostic.New(diagnostic.CodeTypeMismatch, "malformed duration literal").WithNote(text).WithCause(err)
	}
	unit := text[i:]
	var base time.Duration
	switch unit {
	case "ns":
		base = time.Nanosecond
	case "us":
		base = time.Microsecond
	case "ms":
		base = time.Millisecond
	case "s":
		base = time.Second
	case "m":
		base = time.Minute
	case "h":
		base = time.Hour
	case "d":
		base = 24 * time.Hour
	case "w":
		base = 7 * 24 * time.Hour
	default:
		return 0, diagnostic.New(diagnostic.CodeTypeMismatch, "unknown duration unit").WithNote(unit)
	}
	return time.Duration(n * float64(base)), nil
}

// windowKind discriminates the four window shapes of §4.6/§4.8.
type windowKind int

const (
	windowTumbling windowKind = iota
	windowSliding
	windowCount
	windowRolling
)

func classifyWindow(cfg rql.WindowConfig) windowKind {
	if cfg.Rolling != nil && *cfg.Rolling && cfg.Count != nil {
		return windowRolling
	}
	if cfg.Interval != nil {
		if cfg.Slide != nil {
			return windowSliding
		}
		return windowTumbling
	}
	return windowCount
}

// Window implements the §4.8 window operator: events are grouped first
// by the `by` keys, then bucketed into windows per the `with` config,
// and each bucket's aggregations are finalized into one output row.
// Tumbling/count windows close as soon as every event has been
// assigned (this is a one-shot batch evaluation, not the incrementally
// maintained flow-runtime version of the same semantics, which lives in
// internal/flow and closes windows as CDC events arrive in real time).
func Window(cols *Columns, aggregations []rql.AsExpr, cfg rql.WindowConfig, by []rql.Expr, ctx EvalContext) (*Columns, error) {
	tsCol := "timestamp"
	if cfg.TimestampColumn != nil {
		tsCol = *cfg.TimestampColumn
	}
	tsIdx := cols.IndexOf(tsCol)
	if tsIdx < 0 {
		return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "window requires a timestamp column").WithNote(tsCol)
	}
	timestamps := cols.Cols[tsIdx].Values

	groupKeyCols := make([][]Value, len(by))
	for i, e := range by {
		v, err := Eval(e, cols, ctx)
		if err != nil {
			return nil, err
		}
		groupKeyCols[i] = v
	}

	minEvents := int64(1)
	if cfg.MinEvents != nil {
		minEvents = *cfg.MinEvents
	}

	kind := classifyWindow(cfg)

	type bucketKey struct {
		group  string
		window int64
	}
	buckets := map[bucketKey][]int{}
	var order []bucketKey

	n := cols.NumRows()
	switch kind {
	case windowTumbling, windowSliding:
		interval, err := ParseDuration(*cfg.Interval)
		if err != nil {
			return nil, err
		}
		step := interval
		if kind == windowSliding {
			step, err = ParseDuration(*cfg.Slide)
			if err != nil {
				return nil, err
			}
		}

		// The earliest observed timestamp bounds how far back a sliding
		// window may open: a window whose start precedes the first event
		// never had a chance to be populated from scratch, so it is not
		// emitted (its would-be boundary to the left of minTs is clamped).
		minTs := int64(0)
		haveMinTs := false
		if kind == windowSliding {
			for row := 0; row < n; row++ {
				ts, ok := tsNanos(timestamps[row])
				if !ok {
					continue
				}
				if !haveMinTs || ts < minTs {
					minTs = ts
					haveMinTs = true
				}
			}
		}
		firstWindowFloor := int64(0)
		if haveMinTs {
			firstWindowFloor = minTs / int64(step)
			if minTs%int64(step) != 0 && minTs < 0 {
				firstWindowFloor--
			}
		}

		for row := 0; row < n; row++ {
			ts, ok := tsNanos(timestamps[row])
			if !ok {
				continue
			}
			gk := groupKeyString(groupKeyCols, row)
			if kind == windowTumbling {
				w := ts / int64(interval)
				key := bucketKey{gk, w}
				if _, ok := buckets[key]; !ok {
					order = append(order, key)
				}
				buckets[key] = append(buckets[key], row)
			} else {
				// Sliding: a row belongs to every overlapping window boundary
				// stepped by `step` within the interval span.
				first := (ts - int64(interval) + int64(step)) / int64(step)
				if first < firstWindowFloor {
					first = firstWindowFloor
				}
				last := ts / int64(step)
				for w := first; w <= last; w++ {
					key := bucketKey{gk, w}
					if _, ok := buckets[key]; !ok {
						order = append(order, key)
					}
					buckets[key] = append(buckets[key], row)
				}
			}
		}
	case windowCount:
		count := int64(1)
		if cfg.Count != nil {
			count = *cfg.Count
		}
		perGroupIdx := map[string]int64{}
		for row := 0; row < n; row++ {
			gk := groupKeyString(groupKeyCols, row)
			w := perGroupIdx[gk] / count
			perGroupIdx[gk]++
			key := bucketKey{gk, w}
			if _, ok := buckets[key]; !ok {
				order = append(order, key)
			}
			buckets[key] = append(buckets[key], row)
		}
	case windowRolling:
		count := *cfg.Count
		perGroupRows := map[string][]int{}
		var groupOrder []string
		for row := 0; row < n; row++ {
			gk := groupKeyString(groupKeyCols, row)
			if _, ok := perGroupRows[gk]; !ok {
				groupOrder = append(groupOrder, gk)
			}
			perGroupRows[gk] = append(perGroupRows[gk], row)
		}
		// Each row emits one rolling window over the trailing `count` events
		// in its group, including itself.
		for _, gk := range groupOrder {
			rows := perGroupRows[gk]
			for i, row := range rows {
				start := i - int(count) + 1
				if start < 0 {
					start = 0
				}
				key := bucketKey{gk, int64(row)}
				order = append(order, key)
				buckets[key] = append(buckets[key], rows[start:i+1]...)
			}
		}
	}

	if cfg.MaxWindowCount != nil && int64(len(order)) > *cfg.MaxWindowCount {
		// LRU-drop the oldest windows beyond the configured capacity
		// (§4.10: "max_window_count LRU-drops state").
		drop := len(order) - int(*cfg.MaxWindowCount)
		for _, key := range order[:drop] {
			delete(buckets, key)
		}
		order = order[drop:]
	}

	if cfg.MaxWindowAge != nil && kind != windowCount && kind != windowRolling {
		maxAge, err := ParseDuration(*cfg.MaxWindowAge)
		if err != nil {
			return nil, err
		}
		var maxWindow int64 = -1 << 62
		for _, key := range order {
			if key.window > maxWindow {
				maxWindow = key.window
			}
		}
		interval, _ := ParseDuration(valueOr(cfg.Interval, "1s"))
		kept := order[:0]
		for _, key := range order {
			age := time.Duration(maxWindow-key.window) * interval
			if age <= maxAge {
				kept = append(kept, key)
			} else {
				delete(buckets, key)
			}
		}
		order = kept
	}

	sort.SliceStable(order, func(a, b int) bool {
		if order[a].group != order[b].group {
			return order[a].group < order[b].group
		}
		return order[a].window < order[b].window
	})

	out := &Columns{}
	for i, e := range by {
		name, err := groupColumnName(e, i)
		if err != nil {
			return nil, err
		}
		out.Cols = append(out.Cols, Column{Name: name})
	}
	for _, agg := range aggregations {
		call, ok := agg.Inner.(rql.CallExpr)
		if !ok {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "window aggregation item must be a function call")
		}
		name := agg.Alias
		if name == "" {
			name = call.Name
		}
		out.Cols = append(out.Cols, Column{Name: name})
	}

	for _, key := range order {
		rows := buckets[key]
		if int64(len(rows)) < minEvents {
			continue
		}
		sub := cols.Select(rows)
		colOff := 0
		for i, e := range by {
			v, err := Eval(e, sub, ctx)
			if err != nil {
				return nil, err
			}
			out.Cols[colOff+i].Values = append(out.Cols[colOff+i].Values, v[0])
		}
		colOff += len(by)
		for j, agg := range aggregations {
			call := agg.Inner.(rql.CallExpr)
			var argVals []Value
			if len(call.Args) == 1 {
				v, err := Eval(call.Args[0], sub, ctx)
				if err != nil {
					return nil, err
				}
				argVals = v
			}
			acc, err := NewAccumulator(strings.ToLower(call.Name))
			if err != nil {
				return nil, err
			}
			if argVals != nil {
				acc.Aggregate(argVals)
			} else {
				acc.Aggregate(make([]Value, len(rows)))
			}
			out.Cols[colOff+j].Values = append(out.Cols[colOff+j].Values, acc.Finalize())
		}
	}
	return out, nil
}

func valueOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func groupKeyString(groupKeyCols [][]Value, row int) string {
	var b strings.Builder
	for _, gc := range groupKeyCols {
		b.WriteString(hashKey(gc[row]))
		b.WriteByte('\x1f')
	}
	return b.String()
}

func tsNanos(v Value) (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.I, true
	case KindFloat:
		return int64(v.F), true
	default:
		return 0, false
	}
}
