package rql

import (
	"strconv"
	"strings"

	"github.com/reifydb/reifydb/internal/diagnostic"
)

// Parser is a hand-written, Pratt-style recursive-descent parser over
// the token stream produced by Lexer (§4.6: "A handwritten Pratt-style
// parser produces an AST").
type Parser struct {
	toks []Token
	pos  int
}

// NewParser tokenizes src in full and returns a Parser positioned at
// the first token. Tokenizing eagerly (rather than streaming) keeps
// lookahead trivial, matching the teacher's parser.go approach.
func NewParser(src string) *Parser {
	lx := NewLexer(src)
	var toks []Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == TokEOF {
			break
		}
	}
	return &Parser{toks: toks}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}
func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.cur().Kind == TokSymbol && p.cur().Text == "\n" {
		p.advance()
	}
}

func (p *Parser) errorf(code, msg string) *diagnostic.Diagnostic {
	t := p.cur()
	return diagnostic.New(code, msg).At(diagnostic.Fragment{Text: t.Text, Line: t.Line, Column: t.Column})
}

func (p *Parser) expectSymbol(sym string) error {
	if p.cur().Kind == TokSymbol && p.cur().Text == sym {
		p.advance()
		return nil
	}
	return p.errorf(diagnostic.CodeParseUnexpectedToken, "expected '"+sym+"'")
}

func (p *Parser) expectKeyword(kw string) error {
	if p.cur().Kind == TokKeyword && p.cur().Text == kw {
		p.advance()
		return nil
	}
	return p.errorf(diagnostic.CodeParseUnexpectedToken, "expected keyword '"+kw+"'")
}

func (p *Parser) atKeyword(kw string) bool {
	return p.cur().Kind == TokKeyword && p.cur().Text == kw
}

func (p *Parser) atSymbol(sym string) bool {
	return p.cur().Kind == TokSymbol && p.cur().Text == sym
}

// ParseProgram parses every statement in the source (§6.2: "Statement
// boundaries: newline and semicolon").
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	p.skipStatementBoundaries()
	for p.cur().Kind != TokEOF {
		pipe, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, *pipe)
		p.skipStatementBoundaries()
	}
	return prog, nil
}

func (p *Parser) skipStatementBoundaries() {
	for (p.cur().Kind == TokSymbol && (p.cur().Text == "\n" || p.cur().Text == ";")) {
		p.advance()
	}
}

func (p *Parser) atStatementBoundary() bool {
	if p.cur().Kind == TokEOF {
		return true
	}
	return p.cur().Kind == TokSymbol && (p.cur().Text == "\n" || p.cur().Text == ";")
}

func (p *Parser) parsePipeline() (*Pipeline, error) {
	pipe := &Pipeline{}
	for {
		stage, err := p.parseStage()
		if err != nil {
			return nil, err
		}
		pipe.Stages = append(pipe.Stages, stage)
		p.skipNewlinesWithinPipeline()
		if p.atSymbol("|") {
			p.advance()
			p.skipNewlinesWithinPipeline()
			continue
		}
		break
	}
	return pipe, nil
}

// skipNewlinesWithinPipeline allows a pipe to continue on the next
// line without ending the statement, but does not consume a newline
// that is actually a statement boundary (no trailing '|' follows).
func (p *Parser) skipNewlinesWithinPipeline() {
	save := p.pos
	for p.cur().Kind == TokSymbol && p.cur().Text == "\n" {
		p.advance()
	}
	if !p.atSymbol("|") {
		p.pos = save
	}
}

func (p *Parser) parseStage() (Stage, error) {
	t := p.cur()
	if t.Kind != TokKeyword {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a pipeline stage keyword")
	}
	switch t.Text {
	case "from":
		return p.parseFrom()
	case "filter":
		return p.parseFilter()
	case "map":
		return p.parseMap()
	case "extend":
		return p.parseExtend()
	case "sort":
		return p.parseSort()
	case "take":
		return p.parseTake()
	case "distinct":
		return p.parseDistinct()
	case "window":
		return p.parseWindow()
	case "join", "inner", "left", "natural":
		return p.parseJoin()
	case "insert":
		return p.parseInsert()
	case "update":
		return p.parseUpdate()
	case "delete":
		return p.parseDelete()
	default:
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "unexpected stage keyword '"+t.Text+"'")
	}
}

func (p *Parser) parseFrom() (Stage, error) {
	p.advance() // from
	if p.cur().Kind != TokIdent {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a source name after 'from'")
	}
	name := p.advance().Text
	return FromStage{Source: name}, nil
}

func (p *Parser) parseFilter() (Stage, error) {
	p.advance() // filter
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	return FilterStage{Predicate: expr}, nil
}

// parseMap implements §4.6's literal rule: bare comma-separated
// expressions without braces are a parse error (MAP_001); braces are
// required for more than one projection.
func (p *Parser) parseMap() (Stage, error) {
	p.advance() // map
	items, braced, err := p.parseAssignmentList()
	if err != nil {
		return nil, err
	}
	if !braced && len(items) > 1 {
		return nil, p.errorf(diagnostic.CodeMapNoBraces, "map with multiple expressions requires braces { ... }")
	}
	return MapStage{Items: items}, nil
}

func (p *Parser) parseExtend() (Stage, error) {
	p.advance() // extend
	items, _, err := p.parseAssignmentList()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, it := range items {
		if it.Alias == "" {
			continue
		}
		if seen[it.Alias] {
			return nil, p.errorf(diagnostic.CodeExtendDuplicate, "duplicate extend column '"+it.Alias+"'")
		}
		seen[it.Alias] = true
	}
	return ExtendStage{Items: items}, nil
}

// parseAssignmentList parses either a braced `{ col: expr, ... }` list
// or a single bare `expr` / `col: expr`, reporting whether braces were
// present so callers (map) can enforce MAP_001.
func (p *Parser) parseAssignmentList() ([]AsExpr, bool, error) {
	if p.atSymbol("{") {
		p.advance()
		var items []AsExpr
		for !p.atSymbol("}") {
			item, err := p.parseAssignment()
			if err != nil {
				return nil, true, err
			}
			items = append(items, item)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, true, err
		}
		return items, true, nil
	}
	item, err := p.parseAssignment()
	if err != nil {
		return nil, false, err
	}
	items := []AsExpr{item}
	for p.atSymbol(",") {
		p.advance()
		next, err := p.parseAssignment()
		if err != nil {
			return nil, false, err
		}
		items = append(items, next)
	}
	return items, false, nil
}

// parseAssignment parses `col: expr` (desugared to `expr as col`, per
// §4.6) or a bare expression, optionally followed by `as alias`.
func (p *Parser) parseAssignment() (AsExpr, error) {
	if p.cur().Kind == TokIdent && p.peekN(1).Kind == TokSymbol && p.peekN(1).Text == ":" {
		alias := p.advance().Text
		p.advance() // ':'
		expr, err := p.parseExpr(0)
		if err != nil {
			return AsExpr{}, err
		}
		return AsExpr{Inner: expr, Alias: alias}, nil
	}
	expr, err := p.parseExpr(0)
	if err != nil {
		return AsExpr{}, err
	}
	// parseExpr already consumes a trailing `as alias`.
	if as, ok := expr.(AsExpr); ok {
		return as, nil
	}
	if p.atKeyword("as") {
		p.advance()
		if p.cur().Kind != TokIdent {
			return AsExpr{}, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an alias after 'as'")
		}
		alias := p.advance().Text
		return AsExpr{Inner: expr, Alias: alias}, nil
	}
	return AsExpr{Inner: expr}, nil
}

func (p *Parser) parseSort() (Stage, error) {
	p.advance() // sort
	var keys []SortKey
	for {
		col, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		desc := false
		if p.cur().Kind == TokIdent && p.cur().Text == "desc" {
			p.advance()
			desc = true
		} else if p.cur().Kind == TokIdent && p.cur().Text == "asc" {
			p.advance()
		}
		keys = append(keys, SortKey{Column: col, Desc: desc})
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return SortStage{Keys: keys}, nil
}

func (p *Parser) parseTake() (Stage, error) {
	p.advance() // take
	if p.cur().Kind != TokInt {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an integer after 'take'")
	}
	n, err := strconv.ParseInt(p.advance().Text, 10, 64)
	if err != nil {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "invalid integer literal")
	}
	return TakeStage{N: n}, nil
}

func (p *Parser) parseDistinct() (Stage, error) {
	p.advance() // distinct
	var cols []Expr
	if p.atSymbol("{") {
		p.advance()
		for !p.atSymbol("}") {
			e, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			cols = append(cols, e)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
	}
	return DistinctStage{Columns: cols}, nil
}

// parseWindow implements §4.6's `window { aggs } with { config } by
// { groupings }`, where `with`/`by` may appear in either order and
// repeat.
func (p *Parser) parseWindow() (Stage, error) {
	p.advance() // window
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	var aggs []AsExpr
	for !p.atSymbol("}") {
		item, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		aggs = append(aggs, item)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}

	stage := WindowStage{Aggregations: aggs}
	for p.atKeyword("with") || p.atKeyword("by") {
		if p.atKeyword("with") {
			p.advance()
			cfg, err := p.parseWindowWith()
			if err != nil {
				return nil, err
			}
			mergeWindowConfig(&stage.With, cfg)
		} else {
			p.advance() // by
			groupings, err := p.parseByGroupings()
			if err != nil {
				return nil, err
			}
			stage.By = append(stage.By, groupings...)
		}
	}
	if stage.With.MinEvents != nil && *stage.With.MinEvents < 1 {
		return nil, p.errorf(diagnostic.CodeTypeMismatch, "min_events must be >= 1")
	}
	return stage, nil
}

func (p *Parser) parseByGroupings() ([]Expr, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	var groupings []Expr
	for !p.atSymbol("}") {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		groupings = append(groupings, e)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return groupings, p.expectSymbol("}")
}

func mergeWindowConfig(dst *WindowConfig, src WindowConfig) {
	if src.Interval != nil {
		dst.Interval = src.Interval
	}
	if src.Count != nil {
		dst.Count = src.Count
	}
	if src.Slide != nil {
		dst.Slide = src.Slide
	}
	if src.TimestampColumn != nil {
		dst.TimestampColumn = src.TimestampColumn
	}
	if src.MinEvents != nil {
		dst.MinEvents = src.MinEvents
	}
	if src.MaxWindowCount != nil {
		dst.MaxWindowCount = src.MaxWindowCount
	}
	if src.MaxWindowAge != nil {
		dst.MaxWindowAge = src.MaxWindowAge
	}
	if src.Rolling != nil {
		dst.Rolling = src.Rolling
	}
}

func (p *Parser) parseWindowWith() (WindowConfig, error) {
	var cfg WindowConfig
	if err := p.expectSymbol("{"); err != nil {
		return cfg, err
	}
	for !p.atSymbol("}") {
		if p.cur().Kind != TokIdent {
			return cfg, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a with-clause key")
		}
		key := strings.ToLower(p.advance().Text)
		if err := p.expectSymbol(":"); err != nil {
			return cfg, err
		}
		switch key {
		case "interval":
			v, err := p.expectDurationOrString()
			if err != nil {
				return cfg, err
			}
			cfg.Interval = &v
		case "count":
			v, err := p.expectInt()
			if err != nil {
				return cfg, err
			}
			cfg.Count = &v
		case "slide":
			v, err := p.expectDurationOrString()
			if err != nil {
				return cfg, err
			}
			cfg.Slide = &v
		case "timestamp_column":
			if p.cur().Kind != TokString && p.cur().Kind != TokIdent {
				return cfg, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a column name")
			}
			v := p.advance().Text
			cfg.TimestampColumn = &v
		case "min_events":
			v, err := p.expectInt()
			if err != nil {
				return cfg, err
			}
			cfg.MinEvents = &v
		case "max_window_count":
			v, err := p.expectInt()
			if err != nil {
				return cfg, err
			}
			cfg.MaxWindowCount = &v
		case "max_window_age":
			v, err := p.expectDurationOrString()
			if err != nil {
				return cfg, err
			}
			cfg.MaxWindowAge = &v
		case "rolling":
			if p.cur().Kind != TokBool {
				return cfg, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected true/false for 'rolling'")
			}
			v := p.advance().Text == "true"
			cfg.Rolling = &v
		default:
			return cfg, p.errorf(diagnostic.CodeParseUnexpectedToken, "unknown with-clause key '"+key+"'")
		}
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return cfg, p.expectSymbol("}")
}

func (p *Parser) expectDurationOrString() (string, error) {
	if p.cur().Kind == TokDuration || p.cur().Kind == TokString {
		return p.advance().Text, nil
	}
	return "", p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a duration")
}

func (p *Parser) expectInt() (int64, error) {
	if p.cur().Kind != TokInt {
		return 0, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an integer")
	}
	v, err := strconv.ParseInt(p.advance().Text, 10, 64)
	if err != nil {
		return 0, p.errorf(diagnostic.CodeParseUnexpectedToken, "invalid integer literal")
	}
	return v, nil
}

func (p *Parser) parseJoin() (Stage, error) {
	kind := JoinInner
	switch p.cur().Text {
	case "left":
		kind = JoinLeft
		p.advance()
	case "natural":
		kind = JoinNatural
		p.advance()
	case "inner":
		p.advance()
	}
	if err := p.expectKeyword("join"); err != nil {
		return nil, err
	}
	if p.cur().Kind != TokIdent {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a join target name")
	}
	right := p.advance().Text

	stage := JoinStage{Kind: kind, Right: right}
	if p.atKeyword("on") {
		p.advance()
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		stage.On = expr
	} else if p.atKeyword("using") {
		p.advance()
		if err := p.expectSymbol("{"); err != nil {
			return nil, err
		}
		for !p.atSymbol("}") {
			if p.cur().Kind != TokIdent {
				return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a column name")
			}
			stage.Using = append(stage.Using, p.advance().Text)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
	}
	return stage, nil
}

func (p *Parser) parseInsert() (Stage, error) {
	p.advance() // insert
	if p.cur().Kind != TokIdent {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an insert target")
	}
	target := p.advance().Text
	stage := InsertStage{Target: target}
	for p.atSymbol("{") {
		row, err := p.parseRowLiteral()
		if err != nil {
			return nil, err
		}
		stage.Rows = append(stage.Rows, row)
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return stage, nil
}

func (p *Parser) parseRowLiteral() (map[string]Expr, error) {
	row := make(map[string]Expr)
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	for !p.atSymbol("}") {
		if p.cur().Kind != TokIdent {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a field name")
		}
		name := p.advance().Text
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		row[name] = val
		if p.atSymbol(",") {
			p.advance()
			continue
		}
		break
	}
	return row, p.expectSymbol("}")
}

func (p *Parser) parseUpdate() (Stage, error) {
	p.advance() // update
	if p.cur().Kind != TokIdent {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an update target")
	}
	target := p.advance().Text
	row, err := p.parseRowLiteral()
	if err != nil {
		return nil, err
	}
	stage := UpdateStage{Target: target, Set: row}
	if p.atKeyword("filter") {
		p.advance()
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		stage.Where = expr
	}
	return stage, nil
}

func (p *Parser) parseDelete() (Stage, error) {
	p.advance() // delete
	if p.cur().Kind != TokIdent {
		return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a delete target")
	}
	target := p.advance().Text
	stage := DeleteStage{Target: target}
	if p.atKeyword("filter") {
		p.advance()
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		stage.Where = expr
	}
	return stage, nil
}

// ── expression parsing (Pratt) ──────────────────────────────────────────

var binaryPrecedence = map[string]int{
	"or": 1, "xor": 1,
	"and": 2,
	"==": 3, "!=": 3, "<": 3, "<=": 3, ">": 3, ">=": 3, "in": 3, "between": 3,
	"+": 4, "-": 4,
	"*": 5, "/": 5, "%": 5,
}

func (p *Parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.peekBinaryOp()
		if !ok {
			break
		}
		prec, known := binaryPrecedence[op]
		if !known || prec < minPrec {
			break
		}
		p.consumeBinaryOp(op)

		if op == "between" {
			low, err := p.parseExpr(prec + 1)
			if err != nil {
				return nil, err
			}
			if err := p.expectKeyword("and"); err != nil {
				return nil, err
			}
			high, err := p.parseExpr(prec + 1)
			if err != nil {
				return nil, err
			}
			left = BetweenExpr{Operand: left, Low: low, High: high}
			continue
		}
		if op == "in" {
			if err := p.expectSymbol("("); err != nil {
				return nil, err
			}
			var list []Expr
			for !p.atSymbol(")") {
				e, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				list = append(list, e)
				if p.atSymbol(",") {
					p.advance()
					continue
				}
				break
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			left = InExpr{Operand: left, List: list}
			continue
		}

		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}

	if p.atKeyword("as") {
		p.advance()
		if p.cur().Kind != TokIdent {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected an alias after 'as'")
		}
		alias := p.advance().Text
		return AsExpr{Inner: left, Alias: alias}, nil
	}
	return left, nil
}

func (p *Parser) peekBinaryOp() (string, bool) {
	t := p.cur()
	if t.Kind == TokOperator {
		switch t.Text {
		case "==", "!=", "<", "<=", ">", ">=", "+", "-", "*", "/", "%":
			return t.Text, true
		}
		return "", false
	}
	if t.Kind == TokKeyword {
		switch t.Text {
		case "and", "or", "xor", "in", "between":
			return t.Text, true
		}
	}
	return "", false
}

func (p *Parser) consumeBinaryOp(op string) { p.advance() }

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur().Kind == TokKeyword && p.cur().Text == "not" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "not", Operand: operand}, nil
	}
	if p.cur().Kind == TokOperator && p.cur().Text == "-" {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.atSymbol(".") {
		p.advance()
		if p.cur().Kind != TokIdent {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "expected a field name after '.'")
		}
		field := p.advance().Text
		base, ok := expr.(Ident)
		if !ok {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "'.' requires an identifier on the left")
		}
		expr = Ident{Name: base.Name + "." + field}
	}
	return expr, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case TokInt:
		p.advance()
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "invalid integer literal")
		}
		return IntLit{Value: v}, nil
	case TokFloat:
		p.advance()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "invalid float literal")
		}
		return FloatLit{Value: v}, nil
	case TokString:
		p.advance()
		return StringLit{Value: t.Text}, nil
	case TokBool:
		p.advance()
		return BoolLit{Value: t.Text == "true"}, nil
	case TokDuration:
		p.advance()
		return DurationLit{Text: t.Text}, nil
	case TokKeyword:
		if t.Text == "null" {
			p.advance()
			return NullLit{}, nil
		}
	case TokIdent:
		name := p.advance().Text
		if p.atSymbol("(") {
			p.advance()
			var args []Expr
			for !p.atSymbol(")") {
				a, err := p.parseExpr(0)
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.atSymbol(",") {
					p.advance()
					continue
				}
				break
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return CallExpr{Name: name, Args: args}, nil
		}
		return Ident{Name: name}, nil
	case TokSymbol:
		if t.Text == "(" {
			p.advance()
			expr, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return expr, nil
		}
	}
	return nil, p.errorf(diagnostic.CodeParseUnexpectedToken, "unexpected token '"+t.Text+"'")
}
