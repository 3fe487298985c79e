package flow

import (
	"testing"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/keycode"
	"github.com/reifydb/reifydb/internal/store"
)

func TestJoinOperatorEmitsMatchOnceBothSidesPresent(t *testing.T) {
	s := store.NewSingleVersionStore()
	ns := NewNodeState(s, keycode.FlowId(1), keycode.FlowNodeId(1))
	cache := NewStateCache[joinBucket](ns, 100)
	op := &JoinOperator{LeftKey: "customer_id", RightKey: "id", Cache: cache}

	leftRow := map[string]columnar.Value{"customer_id": columnar.Int(1), "order": columnar.Str("widget")}
	out, err := op.ProcessLeft(FlowChange{Kind: ChangeInsert, After: leftRow})
	if err != nil {
		t.Fatalf("process left: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d matches before right side arrives, want 0", len(out))
	}

	rightRow := map[string]columnar.Value{"id": columnar.Int(1), "name": columnar.Str("alice")}
	out, err = op.ProcessRight(FlowChange{Kind: ChangeInsert, After: rightRow})
	if err != nil {
		t.Fatalf("process right: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d matches, want 1", len(out))
	}
	merged := out[0].After
	if merged["order"].S != "widget" || merged["name"].S != "alice" {
		t.Fatalf("got merged row %+v, want both sides' fields", merged)
	}
}

func TestJoinOperatorProducesCrossProductWithinOneKey(t *testing.T) {
	s := store.NewSingleVersionStore()
	ns := NewNodeState(s, keycode.FlowId(1), keycode.FlowNodeId(1))
	cache := NewStateCache[joinBucket](ns, 100)
	op := &JoinOperator{LeftKey: "k", RightKey: "k", Cache: cache}

	op.ProcessLeft(FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"k": columnar.Int(1), "l": columnar.Int(1)}})
	op.ProcessLeft(FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"k": columnar.Int(1), "l": columnar.Int(2)}})
	out, err := op.ProcessRight(FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"k": columnar.Int(1), "r": columnar.Int(9)}})
	if err != nil {
		t.Fatalf("process right: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d matches, want 2 (cross product of 2 left rows x 1 right row)", len(out))
	}
}
