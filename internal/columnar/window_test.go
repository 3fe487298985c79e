package columnar

import (
	"testing"

	"github.com/reifydb/reifydb/internal/rql"
)

func eventColumns() *Columns {
	return &Columns{Cols: []Column{
		{Name: "user_id", Values: []Value{Int(1), Int(1), Int(1), Int(2)}},
		{Name: "amount", Values: []Value{Int(10), Int(20), Int(30), Int(5)}},
		{Name: "timestamp", Values: []Value{Int(0), Int(1_000_000_000), Int(4_000_000_000), Int(0)}},
	}}
}

func TestParseDurationUnits(t *testing.T) {
	d, err := ParseDuration("5m")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Minutes() != 5 {
		t.Fatalf("got %v, want 5m", d)
	}
}

func TestTumblingWindowBucketsByInterval(t *testing.T) {
	cols := eventColumns()
	interval := "2s"
	cfg := rql.WindowConfig{Interval: &interval}
	aggs := []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "amount"}}}, Alias: "total"}}
	out, err := Window(cols, aggs, cfg, []rql.Expr{rql.Ident{Name: "user_id"}}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("got %d window rows, want 3 (user1@[0,2s), user1@[4s,6s), user2@[0,2s))", out.NumRows())
	}
}

func TestWindowMinEventsDropsSparseBuckets(t *testing.T) {
	cols := eventColumns()
	interval := "2s"
	minEvents := int64(2)
	cfg := rql.WindowConfig{Interval: &interval, MinEvents: &minEvents}
	aggs := []rql.AsExpr{{Inner: rql.CallExpr{Name: "count"}, Alias: "n"}}
	out, err := Window(cols, aggs, cfg, []rql.Expr{rql.Ident{Name: "user_id"}}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	// Only user 1's [0,2s) bucket has >= 2 events (timestamps 0 and 1s).
	if out.NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", out.NumRows())
	}
}

func TestRollingCountWindowAccumulatesTrailingEvents(t *testing.T) {
	cols := eventColumns()
	rolling := true
	count := int64(2)
	cfg := rql.WindowConfig{Rolling: &rolling, Count: &count}
	aggs := []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "amount"}}}, Alias: "total"}}
	out, err := Window(cols, aggs, cfg, []rql.Expr{rql.Ident{Name: "user_id"}}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	// user 1 has 3 events -> 3 rolling windows; user 2 has 1 -> 1 window.
	if out.NumRows() != 4 {
		t.Fatalf("got %d rows, want 4", out.NumRows())
	}
}
