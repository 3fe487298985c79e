package columnar

import (
	"testing"

	"github.com/reifydb/reifydb/internal/rql"
)

func sampleColumns() *Columns {
	return &Columns{
		Cols: []Column{
			{Name: "id", Values: []Value{Int(1), Int(2), Int(3), Int(4)}},
			{Name: "qty", Values: []Value{Int(10), Int(5), Int(20), Int(5)}},
			{Name: "name", Values: []Value{Str("a"), Str("b"), Str("c"), Str("b")}},
		},
		RowNumbers: []uint64{100, 101, 102, 103},
	}
}

func TestFilterKeepsMatchingRowsOnly(t *testing.T) {
	cols := sampleColumns()
	pred := rql.BinaryExpr{Op: ">", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 6}}
	out, err := Filter(cols, pred, DefaultEvalContext())
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", out.NumRows())
	}
	idCol := out.Cols[out.IndexOf("id")]
	if idCol.Values[0].I != 1 || idCol.Values[1].I != 3 {
		t.Fatalf("got ids %+v, want [1,3]", idCol.Values)
	}
	if out.RowNumbers[0] != 100 || out.RowNumbers[1] != 102 {
		t.Fatalf("row numbers not preserved: %+v", out.RowNumbers)
	}
}

func TestProjectReplacesColumnsAndDerivesNames(t *testing.T) {
	cols := sampleColumns()
	items := []rql.AsExpr{
		{Inner: rql.Ident{Name: "id"}},
		{Inner: rql.BinaryExpr{Op: "*", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 2}}, Alias: "double_qty"},
	}
	out, err := Project(cols, items, DefaultEvalContext())
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(out.Cols) != 2 || out.Cols[0].Name != "id" || out.Cols[1].Name != "double_qty" {
		t.Fatalf("got %+v", out.Names())
	}
	if out.Cols[1].Values[1].I != 10 {
		t.Fatalf("got %v, want 10", out.Cols[1].Values[1])
	}
}

func TestProjectRequiresAliasForComputedColumn(t *testing.T) {
	cols := sampleColumns()
	items := []rql.AsExpr{{Inner: rql.BinaryExpr{Op: "+", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 1}}}}
	if _, err := Project(cols, items, DefaultEvalContext()); err == nil {
		t.Fatalf("expected an error for unaliased computed column")
	}
}

func TestExtendRejectsDuplicateColumnName(t *testing.T) {
	cols := sampleColumns()
	items := []rql.AsExpr{{Inner: rql.IntLit{Value: 1}, Alias: "id"}}
	if _, err := Extend(cols, items, DefaultEvalContext()); err == nil {
		t.Fatalf("expected EXTEND_DUP error")
	}
}

func TestExtendAppendsComputedColumn(t *testing.T) {
	cols := sampleColumns()
	items := []rql.AsExpr{{Inner: rql.BinaryExpr{Op: "+", Left: rql.Ident{Name: "qty"}, Right: rql.IntLit{Value: 1}}, Alias: "qty_plus_1"}}
	out, err := Extend(cols, items, DefaultEvalContext())
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	if len(out.Cols) != 4 {
		t.Fatalf("got %d columns, want 4", len(out.Cols))
	}
	if out.Cols[3].Values[0].I != 11 {
		t.Fatalf("got %v, want 11", out.Cols[3].Values[0])
	}
}

func TestSortStableAscending(t *testing.T) {
	cols := sampleColumns()
	keys := []rql.SortKey{{Column: rql.Ident{Name: "qty"}, Desc: false}}
	out, err := Sort(cols, keys, DefaultEvalContext())
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	got := make([]int64, out.NumRows())
	for i, v := range out.Cols[out.IndexOf("qty")].Values {
		got[i] = v.I
	}
	want := []int64{5, 5, 10, 20}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	// Stability: the two qty=5 rows must keep their original relative order (id 2 before id 4).
	idCol := out.Cols[out.IndexOf("id")]
	if idCol.Values[0].I != 2 || idCol.Values[1].I != 4 {
		t.Fatalf("sort was not stable: ids %+v", idCol.Values)
	}
}

func TestTakeClampsToAvailableRows(t *testing.T) {
	cols := sampleColumns()
	out := Take(cols, 2)
	if out.NumRows() != 2 {
		t.Fatalf("got %d, want 2", out.NumRows())
	}
	out = Take(cols, 100)
	if out.NumRows() != 4 {
		t.Fatalf("got %d, want 4 (clamped)", out.NumRows())
	}
}

func TestDistinctDedupsOnGivenColumns(t *testing.T) {
	cols := sampleColumns()
	out, err := Distinct(cols, []rql.Expr{rql.Ident{Name: "name"}}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("got %d rows, want 3 (a,b,c)", out.NumRows())
	}
}

func TestAggregateGroupsAndSums(t *testing.T) {
	cols := sampleColumns()
	aggs := []rql.AsExpr{{Inner: rql.CallExpr{Name: "sum", Args: []rql.Expr{rql.Ident{Name: "qty"}}}, Alias: "total"}}
	out, err := Aggregate(cols, aggs, []rql.Expr{rql.Ident{Name: "name"}}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if out.NumRows() != 3 {
		t.Fatalf("got %d groups, want 3", out.NumRows())
	}
	totals := map[string]int64{}
	nameCol := out.Cols[out.IndexOf("name")]
	totalCol := out.Cols[out.IndexOf("total")]
	for i := 0; i < out.NumRows(); i++ {
		totals[nameCol.Values[i].S] = totalCol.Values[i].I
	}
	if totals["a"] != 10 || totals["b"] != 10 || totals["c"] != 20 {
		t.Fatalf("got %+v", totals)
	}
}

func TestInnerHashJoinOnEquiKeys(t *testing.T) {
	left := &Columns{Cols: []Column{
		{Name: "user_id", Values: []Value{Int(1), Int(2), Int(3)}},
		{Name: "order_total", Values: []Value{Int(10), Int(20), Int(30)}},
	}}
	right := &Columns{Cols: []Column{
		{Name: "user_id", Values: []Value{Int(2), Int(3)}},
		{Name: "user_name", Values: []Value{Str("bob"), Str("carol")}},
	}}
	on := rql.BinaryExpr{Op: "==", Left: rql.Ident{Name: "user_id"}, Right: rql.Ident{Name: "user_id"}}
	out, err := Join(left, right, rql.JoinInner, on, nil, DefaultEvalContext())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", out.NumRows())
	}
}

func TestLeftJoinPreservesUnmatchedLeftRowsWithNulls(t *testing.T) {
	left := &Columns{Cols: []Column{
		{Name: "user_id", Values: []Value{Int(1), Int(2)}},
	}}
	right := &Columns{Cols: []Column{
		{Name: "user_id", Values: []Value{Int(2)}},
		{Name: "user_name", Values: []Value{Str("bob")}},
	}}
	out, err := Join(left, right, rql.JoinLeft, nil, []string{"user_id"}, DefaultEvalContext())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if out.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", out.NumRows())
	}
	nameCol := out.Cols[out.IndexOf("user_name")]
	if !nameCol.Values[0].IsNull() {
		t.Fatalf("expected null for unmatched left row, got %v", nameCol.Values[0])
	}
	if nameCol.Values[1].S != "bob" {
		t.Fatalf("expected 'bob', got %v", nameCol.Values[1])
	}
}

func TestNaturalJoinUsesSharedColumnNames(t *testing.T) {
	left := &Columns{Cols: []Column{
		{Name: "id", Values: []Value{Int(1), Int(2)}},
		{Name: "a", Values: []Value{Str("x"), Str("y")}},
	}}
	right := &Columns{Cols: []Column{
		{Name: "id", Values: []Value{Int(2)}},
		{Name: "b", Values: []Value{Str("z")}},
	}}
	out, err := Join(left, right, rql.JoinNatural, nil, nil, DefaultEvalContext())
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if out.NumRows() != 1 {
		t.Fatalf("got %d rows, want 1", out.NumRows())
	}
	if out.IndexOf("id") < 0 || out.Cols[out.IndexOf("b")].Values[0].S != "z" {
		t.Fatalf("unexpected output columns: %+v", out.Names())
	}
}
