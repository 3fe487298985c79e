package flow

import (
	"sort"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/rql"
)

// WindowOperator incrementally maintains one or more windows by
// buffering every row seen so far (scoped to its operator state) and
// re-running the batch columnar.Window evaluator whenever a new event
// arrives. This reuses columnar.Window's bucketing/closing/eviction
// rules (tumbling/sliding/count/rolling, max_window_age, max_window_count)
// rather than re-deriving them incrementally, trading some recomputation
// cost for a single source of truth between the one-shot query path and
// the materialized-view path.
type WindowOperator struct {
	Aggregations []rql.AsExpr
	With         rql.WindowConfig
	By           []rql.Expr
	Ctx          columnar.EvalContext
	Cache        *StateCache[[]map[string]columnarJSON]
	Key          []byte
}

func (o *WindowOperator) Process(change FlowChange) ([]FlowChange, error) {
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

	cols := rowsToColumns(rows)
	result, err := columnar.Window(cols, o.Aggregations, o.With, o.By, o.Ctx)
	if err != nil {
		return nil, err
	}
	var out []FlowChange
	for i := 0; i < result.NumRows(); i++ {
		out = append(out, FlowChange{Kind: ChangeUpdate, After: columnsToRow(result, i)})
	}
	return out, nil
}

func rowsToColumns(rows []map[string]columnarJSON) *columnar.Columns {
	if len(rows) == 0 {
		return columnar.Empty()
	}
	seen := map[string]bool{}
	var names []string
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	cols := &columnar.Columns{}
	for _, name := range names {
		vals := make([]columnar.Value, len(rows))
		for i, r := range rows {
			if v, ok := r[name]; ok {
				vals[i] = fromJSON(v)
			} else {
				vals[i] = columnar.Null()
			}
		}
		cols.Cols = append(cols.Cols, columnar.Column{Name: name, Values: vals})
	}
	return cols
}
