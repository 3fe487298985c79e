package bytecode

import (
	"context"

	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// Host is the set of effectful operations a VM delegates to its
// embedding transaction/catalog layer: resolving a scan source to its
// current row set, and applying DML mutations. pkg/reifydb wires this
// to internal/txn + internal/catalog + internal/store; tests can supply
// an in-memory fake.
type Host interface {
	// Scan returns the current Columns for a named table, view, or ring
	// buffer, as visible to the VM's transaction snapshot.
	Scan(ctx context.Context, source string) (*columnar.Columns, error)
	// InsertRows inserts rows (each a map of already-evaluated column
	// values) into target, returning the number of rows inserted.
	InsertRows(ctx context.Context, target string, rows []map[string]columnar.Value) (int, error)
	// UpdateRows applies set (already-evaluated column values, one slice
	// per input row) to the rows identified by input.RowNumbers.
	UpdateRows(ctx context.Context, target string, input *columnar.Columns, set map[string][]columnar.Value) (int, error)
	// DeleteRows removes the rows identified by input.RowNumbers from
	// target.
	DeleteRows(ctx context.Context, target string, input *columnar.Columns) (int, error)
}

// VM executes one compiled Program (§4.7): an operand stack for scalar
// subquery results and a pipeline stack of in-flight Columns batches.
// The frames field is declared, but no opcode pushes or pops a frame.
type VM struct {
	host    Host
	ctx     EvalCtx
	pipe    []*columnar.Columns
	operand []columnar.Value
	frames  []frame
}

// EvalCtx carries the expression-evaluation settings threaded into
// every operator (§4.9's saturation policy).
type EvalCtx = columnar.EvalContext

type frame struct {
	prog *Program
	pc   int
}

// NewVM builds a VM bound to host for Scan/DML effects, evaluating
// expressions under ctx.
func NewVM(host Host, ctx EvalCtx) *VM {
	return &VM{host: host, ctx: ctx}
}

// Run executes prog to completion and returns the collected result
// Columns (the operand of the program's OpCollect instruction).
func (vm *VM) Run(ctx context.Context, prog *Program) (*columnar.Columns, error) {
	var result *columnar.Columns
	pc := 0
	for pc < len(prog.Instructions) {
		ins := prog.Instructions[pc]
		switch ins.Op {
		case OpHalt:
			return result, nil

		case OpCollect:
			if len(vm.pipe) == 0 {
				return nil, diagnostic.New(diagnostic.CodeInternal, "COLLECT with empty pipeline stack")
			}
			result = vm.pipe[len(vm.pipe)-1]
			vm.pipe = vm.pipe[:len(vm.pipe)-1]

		case OpScan:
			src := prog.Sources[ins.Operand]
			cols, err := vm.host.Scan(ctx, src.Name)
			if err != nil {
				return nil, err
			}
			vm.push(cols)

		case OpFilter:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(filterOperand)
			out, err := columnar.Filter(in, args.Predicate, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpProject:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(itemsOperand)
			out, err := columnar.Project(in, args.Items, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpExtend:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(itemsOperand)
			out, err := columnar.Extend(in, args.Items, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpSort:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(sortOperand)
			out, err := columnar.Sort(in, args.Keys, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpTake:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(takeOperand)
			vm.push(columnar.Take(in, args.N))

		case OpDistinct:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(distinctOperand)
			out, err := columnar.Distinct(in, args.Columns, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpAggregate:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(aggregateOperand)
			out, err := columnar.Aggregate(in, args.Aggregations, args.GroupBy, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpWindow:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(windowOperand)
			out, err := columnar.Window(in, args.Aggregations, args.With, args.By, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpJoinInner, OpJoinLeft, OpJoinNatural:
			right := vm.pop()
			left := vm.pop()
			args := prog.Operands[ins.Operand].(joinOperand)
			kind := joinKindOf(ins.Op)
			out, err := columnar.Join(left, right, kind, args.On, args.Using, vm.ctx)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpMerge:
			right := vm.pop()
			left := vm.pop()
			out, err := mergeColumns(left, right)
			if err != nil {
				return nil, err
			}
			vm.push(out)

		case OpInsertRow:
			args := prog.Operands[ins.Operand].(insertOperand)
			rows := make([]map[string]columnar.Value, len(args.Rows))
			// `insert` row values reference no input columns (§4.6), so they
			// are evaluated against a single placeholder row, yielding one
			// value per expression.
			oneRow := &columnar.Columns{Cols: []columnar.Column{{Values: []columnar.Value{columnar.Null()}}}}
			for i, row := range args.Rows {
				evaluated := map[string]columnar.Value{}
				for col, expr := range row {
					v, err := columnar.Eval(expr, oneRow, vm.ctx)
					if err != nil {
						return nil, err
					}
					evaluated[col] = v[0]
				}
				rows[i] = evaluated
			}
			n, err := vm.host.InsertRows(ctx, args.Target, rows)
			if err != nil {
				return nil, err
			}
			vm.push(resultCount(n))

		case OpUpdateRow:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(updateOperand)
			set := map[string][]columnar.Value{}
			for col, expr := range args.Set {
				v, err := columnar.Eval(expr, in, vm.ctx)
				if err != nil {
					return nil, err
				}
				set[col] = v
			}
			n, err := vm.host.UpdateRows(ctx, args.Target, in, set)
			if err != nil {
				return nil, err
			}
			vm.push(resultCount(n))

		case OpDeleteRow:
			in := vm.pop()
			args := prog.Operands[ins.Operand].(deleteOperand)
			n, err := vm.host.DeleteRows(ctx, args.Target, in)
			if err != nil {
				return nil, err
			}
			vm.push(resultCount(n))

		case OpSubqueryScalar, OpSubqueryExists, OpSubqueryIn:
			sub := prog.Subqueries[ins.Operand]
			out, err := vm.Run(ctx, sub)
			if err != nil {
				return nil, err
			}
			v := subqueryResult(ins.Op, out)
			vm.operand = append(vm.operand, v)

		default:
			return nil, diagnostic.New(diagnostic.CodeInternal, "unsupported opcode in VM").WithNote(ins.Op.String())
		}
		pc++
	}
	return result, nil
}

func (vm *VM) push(c *columnar.Columns) { vm.pipe = append(vm.pipe, c) }

func (vm *VM) pop() *columnar.Columns {
	if len(vm.pipe) == 0 {
		return columnar.Empty()
	}
	c := vm.pipe[len(vm.pipe)-1]
	vm.pipe = vm.pipe[:len(vm.pipe)-1]
	return c
}

func joinKindOf(op OpCode) rql.JoinKind {
	switch op {
	case OpJoinLeft:
		return rql.JoinLeft
	case OpJoinNatural:
		return rql.JoinNatural
	default:
		return rql.JoinInner
	}
}

// mergeColumns concatenates two same-shaped Columns row-wise (the
// lowering of a `merge` stage, §4.6: union two pipelines of matching
// schema into one).
func mergeColumns(left, right *columnar.Columns) (*columnar.Columns, error) {
	if len(left.Cols) != len(right.Cols) {
		return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "merge requires both inputs to have the same columns")
	}
	out := &columnar.Columns{Cols: make([]columnar.Column, len(left.Cols))}
	for i, c := range left.Cols {
		if right.Cols[i].Name != c.Name {
			return nil, diagnostic.New(diagnostic.CodeTypeMismatch, "merge requires both inputs to have the same columns in the same order")
		}
		vals := append(append([]columnar.Value{}, c.Values...), right.Cols[i].Values...)
		out.Cols[i] = columnar.Column{Name: c.Name, Values: vals}
	}
	return out, nil
}

func resultCount(n int) *columnar.Columns {
	return &columnar.Columns{Cols: []columnar.Column{{Name: "rows_affected", Values: []columnar.Value{columnar.Int(int64(n))}}}}
}

func subqueryResult(op OpCode, out *columnar.Columns) columnar.Value {
	switch op {
	case OpSubqueryExists:
		return columnar.Bool(out != nil && out.NumRows() > 0)
	case OpSubqueryScalar:
		if out == nil || out.NumRows() == 0 || len(out.Cols) == 0 {
			return columnar.Null()
		}
		return out.Cols[0].Values[0]
	default:
		return columnar.Null()
	}
}
