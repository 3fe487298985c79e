package rql

// Expr is any RQL scalar expression node.
type Expr interface{ exprNode() }

type IntLit struct{ Value int64 }
type FloatLit struct{ Value float64 }
type StringLit struct{ Value string }
type BoolLit struct{ Value bool }
type NullLit struct{}
type DurationLit struct{ Text string } // raw text, e.g. "5m"; §3.1 Duration parsing happens downstream
type Ident struct{ Name string }

type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

type UnaryExpr struct {
	Op      string
	Operand Expr
}

// AsExpr names an expression's output column: `expr as col`, or the
// desugared form of `map col: expr` (§4.6).
type AsExpr struct {
	Inner Expr
	Alias string
}

type CallExpr struct {
	Name string
	Args []Expr
}

type BetweenExpr struct {
	Operand  Expr
	Low, High Expr
}

type InExpr struct {
	Operand Expr
	List    []Expr
}

func (IntLit) exprNode()      {}
func (FloatLit) exprNode()    {}
func (StringLit) exprNode()   {}
func (BoolLit) exprNode()     {}
func (NullLit) exprNode()     {}
func (DurationLit) exprNode() {}
func (Ident) exprNode()       {}
func (BinaryExpr) exprNode()  {}
func (UnaryExpr) exprNode()   {}
func (AsExpr) exprNode()      {}
func (CallExpr) exprNode()    {}
func (BetweenExpr) exprNode() {}
func (InExpr) exprNode()      {}

// Stage is one `|`-separated pipeline stage of §4.6.
type Stage interface{ stageNode() }

type FromStage struct{ Source string }

type FilterStage struct{ Predicate Expr }

// MapStage's Items are already desugared: `map col: expr` becomes
// AsExpr{Inner: expr, Alias: "col"}, identical in shape to `extend`.
type MapStage struct{ Items []AsExpr }

type ExtendStage struct{ Items []AsExpr }

type SortKey struct {
	Column Expr
	Desc   bool
}

type SortStage struct{ Keys []SortKey }

type TakeStage struct{ N int64 }

type DistinctStage struct{ Columns []Expr } // empty means "every column"

// WindowConfig is the `with { ... }` clause of a window stage (§4.6).
type WindowConfig struct {
	Interval        *string
	Count           *int64
	Slide           *string
	TimestampColumn *string
	MinEvents       *int64
	MaxWindowCount  *int64
	MaxWindowAge    *string
	Rolling         *bool
}

type WindowStage struct {
	Aggregations []AsExpr
	With         WindowConfig
	By           []Expr
}

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinNatural
)

type JoinStage struct {
	Kind  JoinKind
	Right string
	On    Expr   // nil for Natural or Using
	Using []string
}

type InsertStage struct {
	Target string
	Rows   []map[string]Expr
}

type UpdateStage struct {
	Target string
	Set    map[string]Expr
	Where  Expr
}

type DeleteStage struct {
	Target string
	Where  Expr
}

func (FromStage) stageNode()     {}
func (FilterStage) stageNode()   {}
func (MapStage) stageNode()      {}
func (ExtendStage) stageNode()   {}
func (SortStage) stageNode()     {}
func (TakeStage) stageNode()     {}
func (DistinctStage) stageNode() {}
func (WindowStage) stageNode()   {}
func (JoinStage) stageNode()     {}
func (InsertStage) stageNode()   {}
func (UpdateStage) stageNode()   {}
func (DeleteStage) stageNode()   {}

// Pipeline is one `|`-chained statement.
type Pipeline struct{ Stages []Stage }

// Program is every statement parsed from one source text, each
// separated by a newline or semicolon (§6.2), compiled into one
// bytecode program executed sequentially.
type Program struct{ Statements []Pipeline }
