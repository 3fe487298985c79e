package bytecode

import (
	"github.com/reifydb/reifydb/internal/columnar"
	"github.com/reifydb/reifydb/internal/diagnostic"
	"github.com/reifydb/reifydb/internal/rql"
)

// Instruction is one linear bytecode step. Operand indexes into the
// owning Program's Operands table rather than packing opcode-specific
// fields inline — RQL plan nodes carry rich typed payloads (expression
// trees, sort-key lists, window configs) that do not fit a fixed-width
// instruction word, so the operand pool plays the role the spec's
// "constants pool" plays for scalar literals.
type Instruction struct {
	Op      OpCode
	Operand int // index into Program.Operands, or -1 if unused
	Span    int // index into Program.SourceMap, or -1 if unused
}

// SourceRef names a scan target resolved against the catalog at compile
// time (table, view, or ring buffer).
type SourceRef struct {
	Name string
}

// Program is one compiled RQL statement (§4.7): an instruction stream
// plus its supporting tables.
type Program struct {
	Instructions []Instruction
	Operands     []any
	Constants    []columnar.Value
	Sources      []SourceRef
	Subqueries   []*Program
	SourceMap    []diagnostic.Fragment
	Functions    map[string]*Program
}

func newProgram() *Program {
	return &Program{Functions: map[string]*Program{}}
}

func (p *Program) addOperand(v any) int {
	p.Operands = append(p.Operands, v)
	return len(p.Operands) - 1
}

func (p *Program) emit(op OpCode, operand int) {
	p.Instructions = append(p.Instructions, Instruction{Op: op, Operand: operand, Span: -1})
}

// filterOperand / itemsOperand / joinOperand / etc. are the typed payload shapes held
// in Program.Operands for each opcode that needs more than a bare
// integer or none at all.
type filterOperand struct{ Predicate rql.Expr }
type itemsOperand struct{ Items []rql.AsExpr }
type sortOperand struct{ Keys []rql.SortKey }
type takeOperand struct{ N int64 }
type distinctOperand struct{ Columns []rql.Expr }
type aggregateOperand struct {
	Aggregations []rql.AsExpr
	GroupBy      []rql.Expr
}
type windowOperand struct {
	Aggregations []rql.AsExpr
	With         rql.WindowConfig
	By           []rql.Expr
}
type joinOperand struct {
	On    rql.Expr
	Using []string
}
type insertOperand struct {
	Target string
	Rows   []map[string]rql.Expr
}
type updateOperand struct {
	Target string
	Set    map[string]rql.Expr
}
type deleteOperand struct {
	Target string
}
