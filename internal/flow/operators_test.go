package flow

import (
	"testing"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/rql"
	"github.com/reifydb/reifydb/internal/store"
)

func newCache[V any](t *testing.T, node keycode.FlowNodeId) *StateCache[V] {
	t.Helper()
	s := store.NewSingleVersionStore()
	ns := NewNodeState(s, keycode.FlowId(1), node)
	return NewStateCache[V](ns, 100)
}

func row(kv map[string]columnar.Value) map[string]columnar.Value { return kv }

func TestMapOperatorRecomputesDerivedColumns(t *testing.T) {
	op := &MapOperator{
		Items: []rql.AsExpr{{Inner: rql.BinaryExpr{
			Op:    "*",
			Left:  rql.Ident{Name: "qty"},
			Right: rql.Ident{Name: "price"},
		}, Alias: "total"}},
		Ctx: columnar.DefaultEvalContext(),
	}
	change := FlowChange{Kind: ChangeInsert, After: row(map[string]columnar.Value{
		"qty": columnar.Int(3), "price": columnar.Int(10),
	})}
	out, err := op.Process(change)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d changes, want 1", len(out))
	}
	got := out[0].After["total"]
	if got.Kind != columnar.KindInt || got.I != 30 {
		t.Fatalf("got total=%v, want 30", got)
	}
}

func TestFilterOperatorTranslatesUpdateCrossingBoundaryToInsert(t *testing.T) {
	op := &FilterOperator{
		Predicate: rql.BinaryExpr{Op: ">", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 5}},
		Ctx:       columnar.DefaultEvalContext(),
	}
	change := FlowChange{
		Kind:   ChangeUpdate,
		Before: row(map[string]columnar.Value{"qty": columnar.Int(2)}),
		After:  row(map[string]columnar.Value{"qty": columnar.Int(9)}),
	}
	out, err := op.Process(change)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) != 1 || out[0].Kind != ChangeInsert {
		t.Fatalf("got %+v, want single synthesized Insert", out)
	}
}

func TestFilterOperatorTranslatesUpdateLeavingMatchToDelete(t *testing.T) {
	op := &FilterOperator{
		Predicate: rql.BinaryExpr{Op: ">", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 5}},
		Ctx:       columnar.DefaultEvalContext(),
	}
	change := FlowChange{
		Kind:   ChangeUpdate,
		Before: row(map[string]columnar.Value{"qty": columnar.Int(9)}),
		After:  row(map[string]columnar.Value{"qty": columnar.Int(2)}),
	}
	out, err := op.Process(change)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) != 1 || out[0].Kind != ChangeDelete {
		t.Fatalf("got %+v, want single synthesized Delete", out)
	}
}

func TestFilterOperatorDropsNonMatchingInsert(t *testing.T) {
	op := &FilterOperator{
		Predicate: rql.BinaryExpr{Op: ">", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 5}},
		Ctx:       columnar.DefaultEvalContext(),
	}
	out, err := op.Process(FlowChange{Kind: ChangeInsert, After: row(map[string]columnar.Value{"qty": columnar.Int(1)})})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d changes, want 0", len(out))
	}
}

func TestAggregateOperatorMaintainsRunningSumPerGroup(t *testing.T) {
	cache := newCache[groupState](t, 1)
	op := &AggregateOperator{
		GroupBy:      []rql.Expr{rql.Ident{Name: "region"}},
		Aggregations: []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "amount"}}}, Alias: "total"}},
		Ctx:          columnar.DefaultEvalContext(),
		Cache:        cache,
	}
	changes := []FlowChange{
		{Kind: ChangeInsert, After: row(map[string]columnar.Value{"region": columnar.Str("east"), "amount": columnar.Int(10)})},
		{Kind: ChangeInsert, After: row(map[string]columnar.Value{"region": columnar.Str("east"), "amount": columnar.Int(5)})},
	}
	var last []FlowChange
	for _, c := range changes {
		out, err := op.Process(c)
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		last = out
	}
	if len(last) != 1 {
		t.Fatalf("got %d changes, want 1", len(last))
	}
	got := last[0].After["total"]
	if got.Kind != columnar.KindInt || got.I != 15 {
		t.Fatalf("got total=%v, want 15", got)
	}
}

func TestAggregateOperatorRemovesDeletedRowFromSum(t *testing.T) {
	cache := newCache[groupState](t, 1)
	op := &AggregateOperator{
		GroupBy:      []rql.Expr{rql.Ident{Name: "region"}},
		Aggregations: []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "amount"}}}, Alias: "total"}},
		Ctx:          columnar.DefaultEvalContext(),
		Cache:        cache,
	}
	r1 := row(map[string]columnar.Value{"region": columnar.Str("east"), "amount": columnar.Int(10)})
	r2 := row(map[string]columnar.Value{"region": columnar.Str("east"), "amount": columnar.Int(5)})
	op.Process(FlowChange{Kind: ChangeInsert, After: r1})
	op.Process(FlowChange{Kind: ChangeInsert, After: r2})
	out, err := op.Process(FlowChange{Kind: ChangeDelete, Before: r1})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	got := out[0].After["total"]
	if got.I != 5 {
		t.Fatalf("got total=%v, want 5", got)
	}
}

func TestTopNOperatorKeepsOnlyTopNBySortKey(t *testing.T) {
	cache := newCache[[]map[string]columnarJSON](t, 1)
	op := &TopNOperator{
		N:       2,
		SortKey: rql.Ident{Name: "score"},
		Desc:    true,
		Ctx:     columnar.DefaultEvalContext(),
		Cache:   cache,
		Key:     []byte("all"),
	}
	scores := []int64{3, 9, 1, 7}
	var out []FlowChange
	for _, s := range scores {
		var err error
		out, err = op.Process(FlowChange{Kind: ChangeInsert, After: row(map[string]columnar.Value{
			"id": columnar.Int(s), "score": columnar.Int(s),
		})})
		if err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if len(out) != 2 {
		t.Fatalf("got %d rows, want 2", len(out))
	}
	top := out[0].After["score"].I
	second := out[1].After["score"].I
	if top != 9 || second != 7 {
		t.Fatalf("got top=%d second=%d, want 9 then 7", top, second)
	}
}
