// Operators implementing the §4.8 columnar operator contracts. Grounded
// on the teacher's internal/engine/exec.go row-iteration operators
// (Filter/Project/Sort/Limit), generalized here to operate a full
// Columns batch at a time instead of one row at a time.
package columnar

import (
	"sort"
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// Filter keeps only rows for which predicate evaluates true; null and
// false both exclude the row (three-valued WHERE semantics).
func Filter(cols *Columns, predicate rql.Expr, ctx EvalContext) (*Columns, error) {
	mask, err := Eval(predicate, cols, ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]int, 0, len(mask))
	for i, v := range mask {
		if v.Kind == KindBool && v.B {
			rows = append(rows, i)
		}
	}
	return cols.Select(rows), nil
}

// deriveName implements §4.6's name-derivation rule: an explicit alias
// wins; otherwise a bare identifier keeps its own name; anything else
// has no derivable name and must be aliased in RQL source.
func deriveName(item rql.AsExpr) (string, error) {
	if item.Alias != "" {
		return item.Alias, nil
	}
	if id, ok := item.Inner.(rql.Ident); ok {
		return id.Name, nil
	}
	return "", diagnostic.New(diagnostic.CodeResolveAmbiguous, "computed column requires an explicit alias")
}

// Project replaces the input's column set with the evaluated items
// (the lowering of a `map` stage).
func Project(cols *Columns, items []rql.AsExpr, ctx EvalContext) (*Columns, error) {
	out := &Columns{RowNumbers: cols.RowNumbers}
	seen := map[string]bool{}
	for _, item := range items {
		name, err := deriveName(item)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, diagnostic.New(diagnostic.CodeExtendDuplicate, "duplicate output column").WithNote(name)
		}
		seen[name] = true
		vals, err := Eval(item.Inner, cols, ctx)
		if err != nil {
			return nil, err
		}
		out.Cols = append(out.Cols, Column{Name: name, Values: vals})
	}
	return out, nil
}

// Extend appends the evaluated items to the input's existing columns,
// rejecting duplicate output names against both the existing columns
// and each other (§4.6: "extend rejects duplicate output column names").
func Extend(cols *Columns, items []rql.AsExpr, ctx EvalContext) (*Columns, error) {
	out := &Columns{Cols: append([]Column(nil), cols.Cols...), RowNumbers: cols.RowNumbers}
	seen := map[string]bool{}
	for _, c := range out.Cols {
		seen[c.Name] = true
	}
	for _, item := range items {
		name, err := deriveName(item)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, diagnostic.New(diagnostic.CodeExtendDuplicate, "duplicate output column").WithNote(name)
		}
		seen[name] = true
		vals, err := Eval(item.Inner, cols, ctx)
		if err != nil {
			return nil, err
		}
		out.Cols = append(out.Cols, Column{Name: name, Values: vals})
	}
	return out, nil
}

// Sort reorders rows by the given keys, stable, each key independently
// ascending or descending.
func Sort(cols *Columns, keys []rql.SortKey, ctx EvalContext) (*Columns, error) {
	n := cols.NumRows()
	keyVals := make([][]Value, len(keys))
	for i, k := range keys {
		v, err := Eval(k.Column, cols, ctx)
		if err != nil {
			return nil, err
		}
		keyVals[i] = v
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(a, b int) bool {
		ra, rb := rows[a], rows[b]
		for i, k := range keys {
			va, vb := keyVals[i][ra], keyVals[i][rb]
			if va.IsNull() && vb.IsNull() {
				continue
			}
			if va.IsNull() {
				return !k.Desc
			}
			if vb.IsNull() {
				return k.Desc
			}
			c, ok := Compare(va, vb)
			if !ok || c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return cols.Select(rows), nil
}

// Take keeps the first n rows (or all rows, if n exceeds the row count).
func Take(cols *Columns, n int64) *Columns {
	total := cols.NumRows()
	if n < 0 {
		n = 0
	}
	if int(n) > total {
		n = int64(total)
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return cols.Select(rows)
}

// Distinct hash-dedups rows by the given columns (or every column, if
// columns is empty), keeping the first occurrence of each key.
func Distinct(cols *Columns, columns []rql.Expr, ctx EvalContext) (*Columns, error) {
	var keyCols [][]Value
	if len(columns) == 0 {
		for _, c := range cols.Cols {
			keyCols = append(keyCols, c.Values)
		}
	} else {
		for _, e := range columns {
			v, err := Eval(e, cols, ctx)
			if err != nil {
				return nil, err
			}
			keyCols = append(keyCols, v)
		}
	}
	seen := map[string]bool{}
	rows := make([]int, 0, cols.NumRows())
	for i := 0; i < cols.NumRows(); i++ {
		var b strings.Builder
		for _, kc := range keyCols {
			b.WriteString(hashKey(kc[i]))
			b.WriteByte('\x1f')
		}
		key := b.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, i)
	}
	return cols.Select(rows), nil
}

// Aggregate hash-groups rows by groupBy and applies each aggregation's
// accumulator per group (§4.8).
func Aggregate(cols *Columns, aggregations []rql.AsExpr, groupBy []rql.Expr, ctx EvalContext) (*Columns, error) {
	groupKeyCols := make([][]Value, len(groupBy))
	for i, e := range groupBy {
		v, err := Eval(e, cols, ctx)
		if err != nil {
			return nil, err
		}
		groupKeyCols[i] = v
	}
	n := cols.NumRows()
	order := []string{}
	groupRows := map[string][]int{}
	groupKeyVals := map[string][]Value{}
	for row := 0; row < n; row++ {
		keyVals := make([]Value, len(groupKeyCols))
		var b strings.Builder
		for i, kc := range groupKeyCols {
			keyVals[i] = kc[row]
			b.WriteString(hashKey(kc[row]))
			b.WriteByte('\x1f')
		}
		key := b.String()
		if _, ok := groupRows[key]; !ok {
			order = append(order, key)
			groupKeyVals[key] = keyVals
		}
		groupRows[key] = append(groupRows[key], row)
	}
	if n == 0 && len(groupBy) == 0 {
		// Aggregating an empty input with no grouping still produces one
		// row of accumulator defaults (e.g. count() = 0), matching SQL's
		// implicit single-group behavior.
		order = []string{""}
		groupRows[""] = nil
		groupKeyVals[""] = nil
	}

	out := &Columns{}
	for i, e := range groupBy {
		name, err := groupColumnName(e, i)
		if err != nil {
			return nil, err
		}
		vals := make([]Value, len(order))
		for r, key := range order {
			vals[r] = groupKeyVals[key][i]
		}
		out.Cols = append(out.Cols, Column{Name: name, Values: vals})
	}
	for _, agg := range aggregations {
		call, ok := agg.Inner.(rql.CallExpr)
		if !ok {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "aggregation item must be a function call")
		}
		name := agg.Alias
		if name == "" {
			name = call.Name
		}
		if len(call.Args) > 1 {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "aggregate functions take at most one argument")
		}
		var argVals []Value
		if len(call.Args) == 1 {
			v, err := Eval(call.Args[0], cols, ctx)
			if err != nil {
				return nil, err
			}
			argVals = v
		}
		vals := make([]Value, len(order))
		for r, key := range order {
			acc, err := NewAccumulator(strings.ToLower(call.Name))
			if err != nil {
				return nil, err
			}
			if argVals != nil {
				rowIdxs := groupRows[key]
				group := make([]Value, len(rowIdxs))
				for j, ri := range rowIdxs {
					group[j] = argVals[ri]
				}
				acc.Aggregate(group)
			} else {
				acc.Aggregate(make([]Value, len(groupRows[key])))
			}
			vals[r] = acc.Finalize()
		}
		out.Cols = append(out.Cols, Column{Name: name, Values: vals})
	}
	return out, nil
}

func groupColumnName(e rql.Expr, idx int) (string, error) {
	if id, ok := e.(rql.Ident); ok {
		return id.Name, nil
	}
	return "", diagnostic.New(diagnostic.CodeResolveAmbiguous, "group-by key requires a plain column reference")
}
