package flow

import (
	"sort"
	"strings"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// MapOperator recomputes one or more derived columns per incoming row.
// It is stateless: no operator state is needed beyond the expressions
// themselves.
type MapOperator struct {
	Items []rql.AsExpr
	Ctx   columnar.EvalContext
}

func (o *MapOperator) Process(change FlowChange) ([]FlowChange, error) {
	apply := func(row map[string]columnar.Value) (map[string]columnar.Value, error) {
		if row == nil {
			return nil, nil
		}
		cols := rowToColumns(row)
		out, err := columnar.Project(cols, o.Items, o.Ctx)
		if err != nil {
			return nil, err
		}
		return columnsToRow(out, 0), nil
	}
	before, err := apply(change.Before)
	if err != nil {
		return nil, err
	}
	after, err := apply(change.After)
	if err != nil {
		return nil, err
	}
	return []FlowChange{{Kind: change.Kind, Before: before, After: after}}, nil
}

// FilterOperator drops changes whose row does not satisfy Predicate,
// re-deriving a delete/insert pair when a row moves in or out of the
// predicate's result set on update (§4.10: update semantics translate
// to recomputations).
type FilterOperator struct {
	Predicate rql.Expr
	Ctx       columnar.EvalContext
}

func (o *FilterOperator) matches(row map[string]columnar.Value) (bool, error) {
	if row == nil {
		return false, nil
	}
	cols := rowToColumns(row)
	vals, err := columnar.Eval(o.Predicate, cols, o.Ctx)
	if err != nil {
		return false, err
	}
	return vals[0].Kind == columnar.KindBool && vals[0].B, nil
}

func (o *FilterOperator) Process(change FlowChange) ([]FlowChange, error) {
	beforeMatch, err := o.matches(change.Before)
	if err != nil {
		return nil, err
	}
	afterMatch, err := o.matches(change.After)
	if err != nil {
		return nil, err
	}
	switch change.Kind {
	case ChangeInsert:
		if afterMatch {
			return []FlowChange{change}, nil
		}
		return nil, nil
	case ChangeDelete:
		if beforeMatch {
			return []FlowChange{change}, nil
		}
		return nil, nil
	default: // Update
		switch {
		case beforeMatch && afterMatch:
			return []FlowChange{change}, nil
		case beforeMatch && !afterMatch:
			return []FlowChange{{Kind: ChangeDelete, Before: change.Before}}, nil
		case !beforeMatch && afterMatch:
			return []FlowChange{{Kind: ChangeInsert, After: change.After}}, nil
		default:
			return nil, nil
		}
	}
}

// AggregateOperator keeps, per group key, the group's column values and
// every input row currently in the group in persistent per-operator
// state, and recomputes the group's aggregates from those rows as each
// FlowChange arrives — the materialized-view counterpart of
// columnar.Aggregate's one-shot batch computation.
type AggregateOperator struct {
	GroupBy      []rql.Expr
	Aggregations []rql.AsExpr
	Ctx          columnar.EvalContext
	Cache        *StateCache[groupState]
}

// groupState is the JSON-serializable state for one group: the group
// key's own column values plus every input row currently in the group.
// No per-aggregate running value is stored; this operator recomputes
// every aggregate from Rows on each change, so no partial accumulator
// internals need to survive a restart.
type groupState struct {
	GroupValues []columnarJSON      `json:"group_values"`
	Rows        []map[string]columnarJSON `json:"rows"`
}

// columnarJSON is a JSON-friendly mirror of columnar.Value.
type columnarJSON struct {
	Kind int     `json:"k"`
	B    bool    `json:"b,omitempty"`
	I    int64   `json:"i,omitempty"`
	F    float64 `json:"f,omitempty"`
	S    string  `json:"s,omitempty"`
}

func toJSON(v columnar.Value) columnarJSON {
	return columnarJSON{Kind: int(v.Kind), B: v.B, I: v.I, F: v.F, S: v.S}
}

func fromJSON(v columnarJSON) columnar.Value {
	switch columnar.Kind(v.Kind) {
	case columnar.KindBool:
		return columnar.Bool(v.B)
	case columnar.KindInt:
		return columnar.Int(v.I)
	case columnar.KindFloat:
		return columnar.Float(v.F)
	case columnar.KindString:
		return columnar.Str(v.S)
	default:
		return columnar.Null()
	}
}

func (o *AggregateOperator) groupKeyFor(row map[string]columnar.Value) ([]byte, []columnar.Value, error) {
	cols := rowToColumns(row)
	vals := make([]columnar.Value, len(o.GroupBy))
	var b strings.Builder
	for i, e := range o.GroupBy {
		v, err := columnar.Eval(e, cols, o.Ctx)
		if err != nil {
			return nil, nil, err
		}
		vals[i] = v[0]
		b.WriteString(v[0].String())
		b.WriteByte('\x1f')
	}
	return []byte(b.String()), vals, nil
}

func (o *AggregateOperator) Process(change FlowChange) ([]FlowChange, error) {
	row := change.After
	if row == nil {
		row = change.Before
	}
	key, groupVals, err := o.groupKeyFor(row)
	if err != nil {
		return nil, err
	}

	zero := groupState{}
	next, err := o.Cache.Update(key, zero, func(gs groupState) groupState {
		if len(gs.GroupValues) == 0 {
			gv := make([]columnarJSON, len(groupVals))
			for i, v := range groupVals {
				gv[i] = toJSON(v)
			}
			gs.GroupValues = gv
		}
		switch change.Kind {
		case ChangeInsert:
			gs.Rows = append(gs.Rows, rowToJSON(change.After))
		case ChangeDelete:
			gs.Rows = removeRow(gs.Rows, rowToJSON(change.Before))
		case ChangeUpdate:
			gs.Rows = removeRow(gs.Rows, rowToJSON(change.Before))
			gs.Rows = append(gs.Rows, rowToJSON(change.After))
		}
		return gs
	})
	if err != nil {
		return nil, err
	}

	result := map[string]columnar.Value{}
	for i, e := range o.GroupBy {
		name, err := groupExprName(e, i)
		if err != nil {
			return nil, err
		}
		result[name] = fromJSON(next.GroupValues[i])
	}
	for _, agg := range o.Aggregations {
		call, ok := agg.Inner.(rql.CallExpr)
		if !ok {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "aggregation item must be a function call")
		}
		name := agg.Alias
		if name == "" {
			name = call.Name
		}
		acc, err := columnar.NewAccumulator(strings.ToLower(call.Name))
		if err != nil {
			return nil, err
		}
		if len(call.Args) == 1 {
			vals := make([]columnar.Value, len(next.Rows))
			for i, r := range next.Rows {
				row := jsonToRow(r)
				cols := rowToColumns(row)
				v, err := columnar.Eval(call.Args[0], cols, o.Ctx)
				if err != nil {
					return nil, err
				}
				vals[i] = v[0]
			}
			acc.Aggregate(vals)
		} else {
			acc.Aggregate(make([]columnar.Value, len(next.Rows)))
		}
		result[name] = acc.Finalize()
	}
	return []FlowChange{{Kind: ChangeUpdate, Before: nil, After: result}}, nil
}

func groupExprName(e rql.Expr, idx int) (string, error) {
	if id, ok := e.(rql.Ident); ok {
		return id.Name, nil
	}
	return "", diagnostic.New(diagnostic.CodeResolveAmbiguous, "group-by key requires a plain column reference")
}

func rowToJSON(row map[string]columnar.Value) map[string]columnarJSON {
	out := map[string]columnarJSON{}
	for k, v := range row {
		out[k] = toJSON(v)
	}
	return out
}

func jsonToRow(row map[string]columnarJSON) map[string]columnar.Value {
	out := map[string]columnar.Value{}
	for k, v := range row {
		out[k] = fromJSON(v)
	}
	return out
}

func removeRow(rows []map[string]columnarJSON, target map[string]columnarJSON) []map[string]columnarJSON {
	for i, r := range rows {
		if rowsEqual(r, target) {
			return append(rows[:i], rows[i+1:]...)
		}
	}
	return rows
}

func rowsEqual(a, b map[string]columnarJSON) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

// TopNOperator maintains the top N rows by a sort key over every row it
// has buffered under its single Key (rows are not partitioned into
// groups), re-deriving its output set from the full buffered row set on
// every change.
type TopNOperator struct {
	N       int
	SortKey rql.Expr
	Desc    bool
	Ctx     columnar.EvalContext
	Cache   *StateCache[[]map[string]columnarJSON]
	Key     []byte // fixed shared state key; a real deployment would derive one per partition
}

func (o *TopNOperator) Process(change FlowChange) ([]FlowChange, error) {
	zero := []map[string]columnarJSON(nil)
	rows, err := o.Cache.Update(o.Key, zero, func(rows []map[string]columnarJSON) []map[string]columnarJSON {
		switch change.Kind {
		case ChangeInsert:
			rows = append(rows, rowToJSON(change.After))
		case ChangeDelete:
			rows = removeRow(rows, rowToJSON(change.Before))
		case ChangeUpdate:
			rows = removeRow(rows, rowToJSON(change.Before))
			rows = append(rows, rowToJSON(change.After))
		}
		return rows
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		vi := o.sortValue(rows[i])
		vj := o.sortValue(rows[j])
		c, ok := columnar.Compare(vi, vj)
		if !ok {
			return false
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	})
	if len(rows) > o.N {
		rows = rows[:o.N]
	}
	var out []FlowChange
	for _, r := range rows {
		out = append(out, FlowChange{Kind: ChangeUpdate, After: jsonToRow(r)})
	}
	return out, nil
}

func (o *TopNOperator) sortValue(row map[string]columnarJSON) columnar.Value {
	cols := rowToColumns(jsonToRow(row))
	v, err := columnar.Eval(o.SortKey, cols, o.Ctx)
	if err != nil || len(v) == 0 {
		return columnar.Null()
	}
	return v[0]
}

func rowToColumns(row map[string]columnar.Value) *columnar.Columns {
	cols := &columnar.Columns{}
	for k, v := range row {
		cols.Cols = append(cols.Cols, columnar.Column{Name: k, Values: []columnar.Value{v}})
	}
	return cols
}

func columnsToRow(cols *columnar.Columns, row int) map[string]columnar.Value {
	out := map[string]columnar.Value{}
	for _, c := range cols.Cols {
		out[c.Name] = c.Values[row]
	}
	return out
}
