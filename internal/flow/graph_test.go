package flow

import (
	"testing"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/rql"
)

func TestGraphPropagatesThroughMapThenFilter(t *testing.T) {
	g := NewGraph()
	mapOp := &MapOperator{
		Items: []rql.AsExpr{{Inner: rql.Ident{Name: "qty"}, Alias: "qty"}, {Inner: rql.Ident{Name: "price"}, Alias: "price"},
			{Inner: rql.BinaryExpr{Op: "*", Left: rql.Ident{Name: "qty"}, Right: rql.Ident{Name: "price"}}, Alias: "total"}},
		Ctx: columnar.DefaultEvalContext(),
	}
	filterOp := &FilterOperator{
		Predicate: rql.BinaryExpr{Op: ">", Left: rql.Ident{Name: "total"}, Right: rql.IntLit{Value: 20}},
		Ctx:       columnar.DefaultEvalContext(),
	}
	g.AddNode(1, mapOp)
	g.AddNode(2, filterOp, 1)

	low := FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"qty": columnar.Int(2), "price": columnar.Int(5)}}
	out, err := g.Feed(1, low)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d outputs for a below-threshold total, want 0", len(out))
	}

	high := FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"qty": columnar.Int(10), "price": columnar.Int(5)}}
	out, err = g.Feed(1, high)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d outputs for an above-threshold total, want 1", len(out))
	}
	if out[0].After["total"].I != 50 {
		t.Fatalf("got total=%v, want 50", out[0].After["total"])
	}
}

func TestGraphJoinsTwoUpstreamsBySide(t *testing.T) {
	g := NewGraph()
	cache := newCache[joinBucket](t, 1)
	joinOp := &JoinOperator{LeftKey: "id", RightKey: "id", Cache: cache}

	g.AddNode(1, &passthroughOperator{}) // left source
	g.AddNode(2, &passthroughOperator{}) // right source
	g.AddNode(3, joinOp, 1, 2)

	left := FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"id": columnar.Int(1), "l": columnar.Str("L")}}
	out, err := g.Feed(1, left)
	if err != nil {
		t.Fatalf("feed left: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d matches before right side arrives, want 0", len(out))
	}

	right := FlowChange{Kind: ChangeInsert, After: map[string]columnar.Value{"id": columnar.Int(1), "r": columnar.Str("R")}}
	out, err = g.Feed(2, right)
	if err != nil {
		t.Fatalf("feed right: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d matches, want 1", len(out))
	}
	if out[0].After["l"].S != "L" || out[0].After["r"].S != "R" {
		t.Fatalf("got merged row %+v, want both sides", out[0].After)
	}
}

// passthroughOperator emits its input unchanged; used as a graph source
// node standing in for "changes arriving straight from CDC translation".
type passthroughOperator struct{}

func (passthroughOperator) Process(c FlowChange) ([]FlowChange, error) { return []FlowChange{c}, nil }
