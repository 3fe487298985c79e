package rql

import (
	"testing"
)

func parseOne(t *testing.T, src string) Pipeline {
	t.Helper()
	p := NewParser(src)
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("parse %q: got %d statements, want 1", src, len(prog.Statements))
	}
	return prog.Statements[0]
}

func TestParseSimplePipeline(t *testing.T) {
	pipe := parseOne(t, `from orders | filter qty > 10 | take 5`)
	if len(pipe.Stages) != 3 {
		t.Fatalf("got %d stages, want 3", len(pipe.Stages))
	}
	if _, ok := pipe.Stages[0].(FromStage); !ok {
		t.Fatalf("stage 0 = %T, want FromStage", pipe.Stages[0])
	}
	if _, ok := pipe.Stages[1].(FilterStage); !ok {
		t.Fatalf("stage 1 = %T, want FilterStage", pipe.Stages[1])
	}
	take, ok := pipe.Stages[2].(TakeStage)
	if !ok || take.N != 5 {
		t.Fatalf("stage 2 = %+v, want TakeStage{N:5}", pipe.Stages[2])
	}
}

func TestMapWithoutBracesAndMultipleExprsIsParseError(t *testing.T) {
	p := NewParser(`from t | map a, b`)
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("expected a MAP_001 parse error")
	}
}

func TestMapSingleBareExpressionIsAllowed(t *testing.T) {
	pipe := parseOne(t, `from t | map a + 1`)
	m, ok := pipe.Stages[1].(MapStage)
	if !ok || len(m.Items) != 1 {
		t.Fatalf("stage 1 = %+v, want single-item MapStage", pipe.Stages[1])
	}
}

func TestMapColonDesugarsToAsExpr(t *testing.T) {
	pipe := parseOne(t, `from t | map total: qty * price`)
	m := pipe.Stages[1].(MapStage)
	if len(m.Items) != 1 || m.Items[0].Alias != "total" {
		t.Fatalf("got %+v, want alias 'total'", m.Items)
	}
	if _, ok := m.Items[0].Inner.(BinaryExpr); !ok {
		t.Fatalf("expected inner expr to be a BinaryExpr, got %T", m.Items[0].Inner)
	}
}

func TestExtendRejectsDuplicateColumns(t *testing.T) {
	p := NewParser(`from t | extend { x: 1, x: 2 }`)
	_, err := p.ParseProgram()
	if err == nil {
		t.Fatalf("expected an EXTEND_DUP parse error")
	}
}

func TestWindowWithAndByInEitherOrder(t *testing.T) {
	pipe := parseOne(t, `from events | window { total: sum(amount) } by { user_id } with { interval: 5m, min_events: 1 }`)
	w, ok := pipe.Stages[1].(WindowStage)
	if !ok {
		t.Fatalf("stage 1 = %T, want WindowStage", pipe.Stages[1])
	}
	if w.With.Interval == nil || *w.With.Interval != "5m" {
		t.Fatalf("expected interval 5m, got %+v", w.With)
	}
	if w.With.MinEvents == nil || *w.With.MinEvents != 1 {
		t.Fatalf("expected min_events 1, got %+v", w.With)
	}
	if len(w.By) != 1 {
		t.Fatalf("expected one grouping key, got %d", len(w.By))
	}
}

func TestWindowRollingCountConfig(t *testing.T) {
	pipe := parseOne(t, `from events | window { c: count() } with { rolling: true, count: 100 }`)
	w := pipe.Stages[1].(WindowStage)
	if w.With.Rolling == nil || !*w.With.Rolling {
		t.Fatalf("expected rolling=true, got %+v", w.With)
	}
	if w.With.Count == nil || *w.With.Count != 100 {
		t.Fatalf("expected count=100, got %+v", w.With)
	}
}

func TestSortAscDesc(t *testing.T) {
	pipe := parseOne(t, `from t | sort a asc, b desc`)
	s := pipe.Stages[1].(SortStage)
	if len(s.Keys) != 2 || s.Keys[0].Desc || !s.Keys[1].Desc {
		t.Fatalf("got %+v", s.Keys)
	}
}

func TestBetweenAndInExpressions(t *testing.T) {
	pipe := parseOne(t, `from t | filter a between 1 and 10 | filter b in (1, 2, 3)`)
	f1 := pipe.Stages[1].(FilterStage)
	if _, ok := f1.Predicate.(BetweenExpr); !ok {
		t.Fatalf("expected BetweenExpr, got %T", f1.Predicate)
	}
	f2 := pipe.Stages[2].(FilterStage)
	in, ok := f2.Predicate.(InExpr)
	if !ok || len(in.List) != 3 {
		t.Fatalf("expected a 3-element InExpr, got %+v", f2.Predicate)
	}
}

func TestLowerBuildsLinearPlanTree(t *testing.T) {
	pipe := parseOne(t, `from orders | filter qty > 0 | take 1`)
	plan, err := Lower(pipe)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	take, ok := plan.(TakePlan)
	if !ok {
		t.Fatalf("root = %T, want TakePlan", plan)
	}
	filter, ok := take.Input.(FilterPlan)
	if !ok {
		t.Fatalf("take.Input = %T, want FilterPlan", take.Input)
	}
	scan, ok := filter.Input.(ScanPlan)
	if !ok || scan.Source != "orders" {
		t.Fatalf("filter.Input = %+v, want ScanPlan{orders}", filter.Input)
	}
}

func TestMultipleStatementsSeparatedByNewline(t *testing.T) {
	p := NewParser("from a | take 1\nfrom b | take 2")
	prog, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
}
