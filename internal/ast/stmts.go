package ast

import "lumen/internal/source"

type StmtKind uint8

const (
	StmtBlock StmtKind = iota + 1
	StmtLet
	StmtReturn
	StmtExpr
	StmtIf
	StmtWhile
	StmtFor
	StmtMatch
)

func (k StmtKind) String() string {
	switch k {
	case StmtBlock:
		return "block"
	case StmtLet:
		return "let"
	case StmtReturn:
		return "return"
	case StmtExpr:
		return "expr"
	case StmtIf:
		return "if"
	case StmtWhile:
		return "while"
	case StmtFor:
		return "for"
	case StmtMatch:
		return "match"
	default:
		return "stmt?"
	}
}

type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

type BlockStmt struct {
	Stmts []StmtID
}

type LetStmt struct {
	Name  source.StringID
	Type  TypeExprID // optional annotation
	Value ExprID
	Mut   bool
}

type ReturnStmt struct {
	Value ExprID // optional
}

type ExprStmt struct {
	Expr ExprID
}

type IfStmt struct {
	Cond ExprID
	Then StmtID
	Else StmtID // optional
}

type WhileStmt struct {
	Cond ExprID
	Body StmtID
}

type ForStmt struct {
	Binding  source.StringID
	Iterable ExprID
	Body     StmtID
}

type MatchArm struct {
	Pattern PatternID
	Body    StmtID
	Span    source.Span
}

type MatchStmt struct {
	Scrutinee ExprID
	Arms      []MatchArm
}

type Stmts struct {
	Arena   *Arena[Stmt]
	Blocks  *Arena[BlockStmt]
	Lets    *Arena[LetStmt]
	Returns *Arena[ReturnStmt]
	Exprs   *Arena[ExprStmt]
	Ifs     *Arena[IfStmt]
	Whiles  *Arena[WhileStmt]
	Fors    *Arena[ForStmt]
	Matches *Arena[MatchStmt]
}

func NewStmts(capHint uint) *Stmts {
	return &Stmts{
		Arena:   NewArena[Stmt](capHint),
		Blocks:  NewArena[BlockStmt](capHint / 4),
		Lets:    NewArena[LetStmt](capHint / 2),
		Returns: NewArena[ReturnStmt](capHint / 4),
		Exprs:   NewArena[ExprStmt](capHint / 4),
		Ifs:     NewArena[IfStmt](capHint / 8),
		Whiles:  NewArena[WhileStmt](capHint / 16),
		Fors:    NewArena[ForStmt](capHint / 16),
		Matches: NewArena[MatchStmt](capHint / 16),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload uint32) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: kind, Span: span, Payload: PayloadID(payload)}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) payload(id StmtID, kind StmtKind) (uint32, bool) {
	st := s.Get(id)
	if st == nil || st.Kind != kind {
		return 0, false
	}
	return uint32(st.Payload), true
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	return s.new(StmtBlock, span, s.Blocks.Allocate(BlockStmt{Stmts: stmts}))
}

func (s *Stmts) Block(id StmtID) (*BlockStmt, bool) {
	p, ok := s.payload(id, StmtBlock)
	if !ok {
		return nil, false
	}
	return s.Blocks.Get(p), true
}

func (s *Stmts) NewLet(span source.Span, let LetStmt) StmtID {
	return s.new(StmtLet, span, s.Lets.Allocate(let))
}

func (s *Stmts) Let(id StmtID) (*LetStmt, bool) {
	p, ok := s.payload(id, StmtLet)
	if !ok {
		return nil, false
	}
	return s.Lets.Get(p), true
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	return s.new(StmtReturn, span, s.Returns.Allocate(ReturnStmt{Value: value}))
}

func (s *Stmts) Return(id StmtID) (*ReturnStmt, bool) {
	p, ok := s.payload(id, StmtReturn)
	if !ok {
		return nil, false
	}
	return s.Returns.Get(p), true
}

func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	return s.new(StmtExpr, span, s.Exprs.Allocate(ExprStmt{Expr: expr}))
}

func (s *Stmts) Expr(id StmtID) (*ExprStmt, bool) {
	p, ok := s.payload(id, StmtExpr)
	if !ok {
		return nil, false
	}
	return s.Exprs.Get(p), true
}

func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	return s.new(StmtIf, span, s.Ifs.Allocate(IfStmt{Cond: cond, Then: then, Else: els}))
}

func (s *Stmts) If(id StmtID) (*IfStmt, bool) {
	p, ok := s.payload(id, StmtIf)
	if !ok {
		return nil, false
	}
	return s.Ifs.Get(p), true
}

func (s *Stmts) NewWhile(span source.Span, cond ExprID, body StmtID) StmtID {
	return s.new(StmtWhile, span, s.Whiles.Allocate(WhileStmt{Cond: cond, Body: body}))
}

func (s *Stmts) While(id StmtID) (*WhileStmt, bool) {
	p, ok := s.payload(id, StmtWhile)
	if !ok {
		return nil, false
	}
	return s.Whiles.Get(p), true
}

func (s *Stmts) NewFor(span source.Span, binding source.StringID, iterable ExprID, body StmtID) StmtID {
	return s.new(StmtFor, span, s.Fors.Allocate(ForStmt{Binding: binding, Iterable: iterable, Body: body}))
}

func (s *Stmts) For(id StmtID) (*ForStmt, bool) {
	p, ok := s.payload(id, StmtFor)
	if !ok {
		return nil, false
	}
	return s.Fors.Get(p), true
}

func (s *Stmts) NewMatch(span source.Span, scrutinee ExprID, arms []MatchArm) StmtID {
	return s.new(StmtMatch, span, s.Matches.Allocate(MatchStmt{Scrutinee: scrutinee, Arms: arms}))
}

func (s *Stmts) Match(id StmtID) (*MatchStmt, bool) {
	p, ok := s.payload(id, StmtMatch)
	if !ok {
		return nil, false
	}
	return s.Matches.Get(p), true
}
