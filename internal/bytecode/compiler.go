package bytecode

import (
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// Compile lowers one logical plan tree (already produced by rql.Lower)
// into a Program. Plan nodes are walked so that each node's inputs are
// compiled — and therefore executed — before the node itself, matching
// Volcano-style pull evaluation collapsed into a linear instruction
// stream: the VM's pipeline stack plays the role pull-iterators would,
// without needing real coroutines for a single-threaded batch engine.
func Compile(plan rql.PlanNode) (*Program, error) {
	prog := newProgram()
	if err := compileNode(prog, plan); err != nil {
		return nil, err
	}
	prog.emit(OpCollect, -1)
	prog.emit(OpHalt, -1)
	return prog, nil
}

// CompileSubquery compiles a nested plan into its own Program, recorded
// in the parent's Subqueries table and referenced from an
// OpSubquery{Scalar,Exists,In} instruction by index.
func CompileSubquery(parent *Program, plan rql.PlanNode) (int, error) {
	sub, err := Compile(plan)
	if err != nil {
		return 0, err
	}
	parent.Subqueries = append(parent.Subqueries, sub)
	return len(parent.Subqueries) - 1, nil
}

func compileNode(prog *Program, node rql.PlanNode) error {
	switch n := node.(type) {
	case rql.ScanPlan:
		idx := len(prog.Sources)
		prog.Sources = append(prog.Sources, SourceRef{Name: n.Source})
		prog.emit(OpScan, idx)
		return nil

	case rql.FilterPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(filterOperand{Predicate: n.Predicate})
		prog.emit(OpFilter, op)
		return nil

	case rql.ProjectPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(itemsOperand{Items: n.Items})
		prog.emit(OpProject, op)
		return nil

	case rql.ExtendPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(itemsOperand{Items: n.Items})
		prog.emit(OpExtend, op)
		return nil

	case rql.SortPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(sortOperand{Keys: n.Keys})
		prog.emit(OpSort, op)
		return nil

	case rql.TakePlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(takeOperand{N: n.N})
		prog.emit(OpTake, op)
		return nil

	case rql.DistinctPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(distinctOperand{Columns: n.Columns})
		prog.emit(OpDistinct, op)
		return nil

	case rql.AggregatePlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(aggregateOperand{Aggregations: n.Aggregations, GroupBy: n.GroupBy})
		prog.emit(OpAggregate, op)
		return nil

	case rql.WindowPlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(windowOperand{Aggregations: n.Aggregations, With: n.With, By: n.By})
		prog.emit(OpWindow, op)
		return nil

	case rql.JoinPlan:
		if err := compileNode(prog, n.Left); err != nil {
			return err
		}
		if err := compileNode(prog, n.Right); err != nil {
			return err
		}
		op := prog.addOperand(joinOperand{On: n.On, Using: n.Using})
		switch n.Kind {
		case rql.JoinLeft:
			prog.emit(OpJoinLeft, op)
		case rql.JoinNatural:
			prog.emit(OpJoinNatural, op)
		default:
			prog.emit(OpJoinInner, op)
		}
		return nil

	case rql.MergePlan:
		if err := compileNode(prog, n.Left); err != nil {
			return err
		}
		if err := compileNode(prog, n.Right); err != nil {
			return err
		}
		prog.emit(OpMerge, -1)
		return nil

	case rql.InsertPlan:
		op := prog.addOperand(insertOperand{Target: n.Target, Rows: n.Rows})
		prog.emit(OpInsertRow, op)
		return nil

	case rql.UpdatePlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(updateOperand{Target: n.Target, Set: n.Set})
		prog.emit(OpUpdateRow, op)
		return nil

	case rql.DeletePlan:
		if err := compileNode(prog, n.Input); err != nil {
			return err
		}
		op := prog.addOperand(deleteOperand{Target: n.Target})
		prog.emit(OpDeleteRow, op)
		return nil

	default:
		return diagnostic.New(diagnostic.CodeInternal, "unhandled plan node in bytecode compiler")
	}
}
