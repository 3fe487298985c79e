package rql

import "github.com/reifydb/reifydb/internal/diagnostic"

// PlanNode is a typed logical-plan node (§4.6: "the AST is then lowered
// to a logical plan tree with typed nodes").
type PlanNode interface{ planNode() }

type ScanPlan struct{ Source string }

type FilterPlan struct {
	Input     PlanNode
	Predicate Expr
}

// ProjectPlan is the lowering of a `map` stage: it replaces the input's
// column set entirely with Items.
type ProjectPlan struct {
	Input PlanNode
	Items []AsExpr
}

// ExtendPlan is the lowering of an `extend` stage: it appends Items to
// the input's existing columns.
type ExtendPlan struct {
	Input PlanNode
	Items []AsExpr
}

type SortPlan struct {
	Input PlanNode
	Keys  []SortKey
}

type TakePlan struct {
	Input PlanNode
	N     int64
}

type DistinctPlan struct {
	Input   PlanNode
	Columns []Expr
}

type AggregatePlan struct {
	Input        PlanNode
	Aggregations []AsExpr
	GroupBy      []Expr
}

type WindowPlan struct {
	Input        PlanNode
	Aggregations []AsExpr
	With         WindowConfig
	By           []Expr
}

type JoinPlan struct {
	Left, Right PlanNode
	Kind        JoinKind
	On          Expr
	Using       []string
}

type MergePlan struct{ Left, Right PlanNode }

type ApplyPlan struct {
	Input PlanNode
	Sub   PlanNode
}

type InsertPlan struct {
	Target string
	Rows   []map[string]Expr
}

type UpdatePlan struct {
	Input  PlanNode
	Target string
	Set    map[string]Expr
}

type DeletePlan struct {
	Input  PlanNode
	Target string
}

func (ScanPlan) planNode()      {}
func (FilterPlan) planNode()    {}
func (ProjectPlan) planNode()   {}
func (ExtendPlan) planNode()    {}
func (SortPlan) planNode()      {}
func (TakePlan) planNode()      {}
func (DistinctPlan) planNode()  {}
func (AggregatePlan) planNode() {}
func (WindowPlan) planNode()    {}
func (JoinPlan) planNode()      {}
func (MergePlan) planNode()     {}
func (ApplyPlan) planNode()     {}
func (InsertPlan) planNode()    {}
func (UpdatePlan) planNode()    {}
func (DeletePlan) planNode()    {}

// Lower lowers one parsed Pipeline into a logical plan tree, threading
// each stage's output as the next stage's input.
func Lower(pipe Pipeline) (PlanNode, error) {
	var node PlanNode
	for i, stage := range pipe.Stages {
		switch s := stage.(type) {
		case FromStage:
			if i != 0 {
				return nil, diagnostic.New(diagnostic.CodeParseUnexpectedToken, "'from' must be the first stage of a pipeline")
			}
			node = ScanPlan{Source: s.Source}
		case FilterStage:
			node = FilterPlan{Input: node, Predicate: s.Predicate}
		case MapStage:
			node = ProjectPlan{Input: node, Items: s.Items}
		case ExtendStage:
			node = ExtendPlan{Input: node, Items: s.Items}
		case SortStage:
			node = SortPlan{Input: node, Keys: s.Keys}
		case TakeStage:
			node = TakePlan{Input: node, N: s.N}
		case DistinctStage:
			node = DistinctPlan{Input: node, Columns: s.Columns}
		case WindowStage:
			node = WindowPlan{Input: node, Aggregations: s.Aggregations, With: s.With, By: s.By}
		case JoinStage:
			node = JoinPlan{Left: node, Right: ScanPlan{Source: s.Right}, Kind: s.Kind, On: s.On, Using: s.Using}
		case InsertStage:
			node = InsertPlan{Target: s.Target, Rows: s.Rows}
		case UpdateStage:
			node = UpdatePlan{Input: FilterOrScan(s.Target, s.Where), Target: s.Target, Set: s.Set}
		case DeleteStage:
			node = DeletePlan{Input: FilterOrScan(s.Target, s.Where), Target: s.Target}
		default:
			return nil, diagnostic.New(diagnostic.CodeInternal, "unhandled stage type in lowering")
		}
	}
	return node, nil
}

// FilterOrScan builds a Scan(target) optionally wrapped in a Filter,
// used by update/delete stages that carry their own implicit source.
func FilterOrScan(target string, where Expr) PlanNode {
	var node PlanNode = ScanPlan{Source: target}
	if where != nil {
		node = FilterPlan{Input: node, Predicate: where}
	}
	return node
}
