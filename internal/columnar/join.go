package columnar

import (
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// Join implements §4.8's three join kinds. Equi-joins (an `on` predicate
// that is a chain of `left.x == right.x` comparisons, or a `using`
// clause) use a hash join; anything else falls back to nested-loop
// evaluation of the full predicate.
func Join(left, right *Columns, kind rql.JoinKind, on rql.Expr, using []string, ctx EvalContext) (*Columns, error) {
	switch kind {
	case rql.JoinNatural:
		using = naturalUsing(left, right)
		return hashJoin(left, right, using, false, ctx)
	case rql.JoinLeft:
		if len(using) > 0 {
			return hashJoin(left, right, using, true, ctx)
		}
		if keys, ok := equiKeysFromOn(on); ok {
			return hashJoinKeys(left, right, keys, true, ctx)
		}
		return nestedLoopJoin(left, right, on, true, ctx)
	default: // JoinInner
		if len(using) > 0 {
			return hashJoin(left, right, using, false, ctx)
		}
		if keys, ok := equiKeysFromOn(on); ok {
			return hashJoinKeys(left, right, keys, false, ctx)
		}
		return nestedLoopJoin(left, right, on, false, ctx)
	}
}

// naturalUsing auto-joins on every column name shared by both sides
// (§4.8: "Natural auto-equi-joins identical-named cols").
func naturalUsing(left, right *Columns) []string {
	rset := map[string]bool{}
	for _, c := range right.Cols {
		rset[c.Name] = true
	}
	var names []string
	for _, c := range left.Cols {
		if rset[c.Name] {
			names = append(names, c.Name)
		}
	}
	return names
}

type equiKey struct{ leftCol, rightCol string }

// equiKeysFromOn recognizes an `on` predicate made entirely of
// AND-chained `left.col == right.col` comparisons, returning the
// column-name pairs if so.
func equiKeysFromOn(on rql.Expr) ([]equiKey, bool) {
	if on == nil {
		return nil, false
	}
	var keys []equiKey
	var walk func(e rql.Expr) bool
	walk = func(e rql.Expr) bool {
		b, ok := e.(rql.BinaryExpr)
		if !ok {
			return false
		}
		op := strings.ToLower(b.Op)
		if op == "and" || op == "&&" {
			return walk(b.Left) && walk(b.Right)
		}
		if op != "==" {
			return false
		}
		li, lok := b.Left.(rql.Ident)
		ri, rok := b.Right.(rql.Ident)
		if !lok || !rok {
			return false
		}
		keys = append(keys, equiKey{leftCol: li.Name, rightCol: ri.Name})
		return true
	}
	if !walk(on) {
		return nil, false
	}
	return keys, true
}

func hashJoin(left, right *Columns, using []string, leftOuter bool, ctx EvalContext) (*Columns, error) {
	keys := make([]equiKey, len(using))
	for i, name := range using {
		keys[i] = equiKey{leftCol: name, rightCol: name}
	}
	return hashJoinKeys(left, right, keys, leftOuter, ctx)
}

func hashJoinKeys(left, right *Columns, keys []equiKey, leftOuter bool, ctx EvalContext) (*Columns, error) {
	rightKeyVals := make([][]Value, len(keys))
	for i, k := range keys {
		idx := right.IndexOf(k.rightCol)
		if idx < 0 {
			return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown join column").WithNote(k.rightCol)
		}
		rightKeyVals[i] = right.Cols[idx].Values
	}
	leftKeyVals := make([][]Value, len(keys))
	for i, k := range keys {
		idx := left.IndexOf(k.leftCol)
		if idx < 0 {
			return nil, diagnostic.New(diagnostic.CodeResolveUnknownName, "unknown join column").WithNote(k.leftCol)
		}
		leftKeyVals[i] = left.Cols[idx].Values
	}

	buckets := map[string][]int{}
	for r := 0; r < right.NumRows(); r++ {
		var b strings.Builder
		for i := range keys {
			b.WriteString(hashKey(rightKeyVals[i][r]))
			b.WriteByte('\x1f')
		}
		buckets[b.String()] = append(buckets[b.String()], r)
	}

	var leftRows, rightRows []int // rightRows entries of -1 mean "no match" (left outer)
	for l := 0; l < left.NumRows(); l++ {
		var b strings.Builder
		for i := range keys {
			b.WriteString(hashKey(leftKeyVals[i][l]))
			b.WriteByte('\x1f')
		}
		matches := buckets[b.String()]
		if len(matches) == 0 {
			if leftOuter {
				leftRows = append(leftRows, l)
				rightRows = append(rightRows, -1)
			}
			continue
		}
		for _, r := range matches {
			leftRows = append(leftRows, l)
			rightRows = append(rightRows, r)
		}
	}
	return combine(left, right, leftRows, rightRows), nil
}

func nestedLoopJoin(left, right *Columns, on rql.Expr, leftOuter bool, ctx EvalContext) (*Columns, error) {
	var leftRows, rightRows []int
	for l := 0; l < left.NumRows(); l++ {
		matched := false
		for r := 0; r < right.NumRows(); r++ {
			ok, err := evalJoinPredicate(on, left, l, right, r, ctx)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = true
				leftRows = append(leftRows, l)
				rightRows = append(rightRows, r)
			}
		}
		if !matched && leftOuter {
			leftRows = append(leftRows, l)
			rightRows = append(rightRows, -1)
		}
	}
	return combine(left, right, leftRows, rightRows), nil
}

// evalJoinPredicate evaluates `on` for exactly one (left-row, right-row)
// pair by building a single-row combined Columns and evaluating against
// it — acceptable cost for the nested-loop fallback path, which is only
// reached when no equi-join shortcut applies.
func evalJoinPredicate(on rql.Expr, left *Columns, l int, right *Columns, r int, ctx EvalContext) (bool, error) {
	combined := &Columns{}
	for _, c := range left.Cols {
		combined.Cols = append(combined.Cols, Column{Name: c.Name, Values: []Value{c.Values[l]}})
	}
	for _, c := range right.Cols {
		combined.Cols = append(combined.Cols, Column{Name: c.Name, Values: []Value{c.Values[r]}})
	}
	vals, err := Eval(on, combined, ctx)
	if err != nil {
		return false, err
	}
	return vals[0].Kind == KindBool && vals[0].B, nil
}

// combine builds the output Columns for a join result, with left
// columns first, then right columns. A right column whose name already
// exists on the left is left out, so a `using`/natural key appears once
// (from the left side), as does any other column name both sides share.
// A rightRow of -1 fills right-side columns with null (left-outer
// unmatched row).
func combine(left, right *Columns, leftRows, rightRows []int) *Columns {
	out := &Columns{}
	leftNames := map[string]bool{}
	for _, c := range left.Cols {
		leftNames[c.Name] = true
		vals := make([]Value, len(leftRows))
		for i, lr := range leftRows {
			vals[i] = c.Values[lr]
		}
		out.Cols = append(out.Cols, Column{Name: c.Name, Values: vals})
	}
	for _, c := range right.Cols {
		if leftNames[c.Name] {
			continue
		}
		vals := make([]Value, len(rightRows))
		for i, rr := range rightRows {
			if rr < 0 {
				vals[i] = Null()
				continue
			}
			vals[i] = c.Values[rr]
		}
		out.Cols = append(out.Cols, Column{Name: c.Name, Values: vals})
	}
	if left.RowNumbers != nil {
		rn := make([]uint64, len(leftRows))
		for i, lr := range leftRows {
			rn[i] = left.RowNumbers[lr]
		}
		out.RowNumbers = rn
	}
	return out
}
