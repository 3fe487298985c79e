package flow

import (
	"testing"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/rql"
	"github.com/reifydb/reifydb/internal/store"
)

func TestWindowOperatorEmitsCountBucketAsEventsArrive(t *testing.T) {
	s := store.NewSingleVersionStore()
	ns := NewNodeState(s, keycode.FlowId(1), keycode.FlowNodeId(1))
	cache := NewStateCache[[]map[string]columnarJSON](ns, 10)

	count := int64(2)
	op := &WindowOperator{
		Aggregations: []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "amount"}}}, Alias: "total"}},
		With:         rql.WindowConfig{Count: &count, MinEvents: &count},
		Ctx:          columnar.DefaultEvalContext(),
		Cache:        cache,
		Key:          []byte("all"),
	}

	mkRow := func(ts, amount int64) map[string]columnar.Value {
		return map[string]columnar.Value{"timestamp": columnar.Int(ts), "amount": columnar.Int(amount)}
	}

	out, err := op.Process(FlowChange{Kind: ChangeInsert, After: mkRow(1, 10)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	// One event is below MinEvents=2, so the count-2 bucket is not emitted.
	if len(out) != 0 {
		t.Fatalf("got %d windows after 1 event, want 0", len(out))
	}

	out, err = op.Process(FlowChange{Kind: ChangeInsert, After: mkRow(2, 20)})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d windows after 2 events, want 1", len(out))
	}
	total := out[0].After["total"]
	if total.Kind != columnar.KindInt || total.I != 30 {
		t.Fatalf("got total=%v, want 30", total)
	}
}
