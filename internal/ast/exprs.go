package ast

import "lumen/internal/source"

// ExprKind enumerates the different kinds of expressions.
type ExprKind uint8

const (
	ExprIdent ExprKind = iota + 1
	ExprLit
	ExprBinary
	ExprUnary
	ExprCall
	ExprSpawn
	ExprMember
	ExprIndex
	ExprStruct
	ExprList
	ExprMap
	ExprTuple
	ExprAssign
	ExprGroup
)

func (k ExprKind) String() string {
	switch k {
	case ExprIdent:
		return "ident"
	case ExprLit:
		return "literal"
	case ExprBinary:
		return "binary"
	case ExprUnary:
		return "unary"
	case ExprCall:
		return "call"
	case ExprSpawn:
		return "spawn"
	case ExprMember:
		return "member"
	case ExprIndex:
		return "index"
	case ExprStruct:
		return "struct literal"
	case ExprList:
		return "list"
	case ExprMap:
		return "map"
	case ExprTuple:
		return "tuple"
	case ExprAssign:
		return "assign"
	case ExprGroup:
		return "group"
	default:
		return "expr?"
	}
}

// Expr represents an expression node in the AST.
type Expr struct {
	Kind    ExprKind
	Span    source.Span
	Payload PayloadID
}

type LitKind uint8

const (
	LitInt LitKind = iota + 1
	LitFloat
	LitString
	LitBool
	LitNull
)

type ExprIdentData struct {
	Name source.StringID
}

// ExprLiteralData keeps the literal's source text; numbers are parsed later.
type ExprLiteralData struct {
	Kind  LitKind
	Value source.StringID
}

type ExprBinaryData struct {
	Op          BinaryOp
	Left, Right ExprID
}

type ExprUnaryData struct {
	Op      UnaryOp
	Operand ExprID
}

type ExprCallData struct {
	Target ExprID
	Args   []ExprID
}

type ExprSpawnData struct {
	Call ExprID
}

type ExprMemberData struct {
	Target ExprID
	Field  source.StringID
}

type ExprIndexData struct {
	Target ExprID
	Index  ExprID
}

type StructLitField struct {
	Name  source.StringID
	Value ExprID
	Span  source.Span
}

type ExprStructData struct {
	Name   source.StringID
	Fields []StructLitField
}

type MapEntry struct {
	Key, Value ExprID
}

type ExprListData struct {
	Elems []ExprID
}

type ExprMapData struct {
	Entries []MapEntry
}

type ExprTupleData struct {
	Elems []ExprID
}

type ExprAssignData struct {
	Target ExprID
	Value  ExprID
}

type ExprGroupData struct {
	Inner ExprID
}

// Exprs manages allocation of expressions.
type Exprs struct {
	Arena    *Arena[Expr]
	Idents   *Arena[ExprIdentData]
	Literals *Arena[ExprLiteralData]
	Binaries *Arena[ExprBinaryData]
	Unaries  *Arena[ExprUnaryData]
	Calls    *Arena[ExprCallData]
	Spawns   *Arena[ExprSpawnData]
	Members  *Arena[ExprMemberData]
	Indices  *Arena[ExprIndexData]
	Structs  *Arena[ExprStructData]
	Lists    *Arena[ExprListData]
	Maps     *Arena[ExprMapData]
	Tuples   *Arena[ExprTupleData]
	Assigns  *Arena[ExprAssignData]
	Groups   *Arena[ExprGroupData]
}

func NewExprs(capHint uint) *Exprs {
	if capHint == 0 {
		capHint = 1 << 8
	}
	small := capHint / 8
	return &Exprs{
		Arena:    NewArena[Expr](capHint),
		Idents:   NewArena[ExprIdentData](capHint / 2),
		Literals: NewArena[ExprLiteralData](capHint / 2),
		Binaries: NewArena[ExprBinaryData](capHint / 4),
		Unaries:  NewArena[ExprUnaryData](small),
		Calls:    NewArena[ExprCallData](capHint / 4),
		Spawns:   NewArena[ExprSpawnData](small),
		Members:  NewArena[ExprMemberData](small),
		Indices:  NewArena[ExprIndexData](small),
		Structs:  NewArena[ExprStructData](small),
		Lists:    NewArena[ExprListData](small),
		Maps:     NewArena[ExprMapData](small),
		Tuples:   NewArena[ExprTupleData](small),
		Assigns:  NewArena[ExprAssignData](small),
		Groups:   NewArena[ExprGroupData](small),
	}
}

func (e *Exprs) new(kind ExprKind, span source.Span, payload uint32) ExprID {
	return ExprID(e.Arena.Allocate(Expr{Kind: kind, Span: span, Payload: PayloadID(payload)}))
}

// Get returns the expression with the given ID.
func (e *Exprs) Get(id ExprID) *Expr {
	return e.Arena.Get(uint32(id))
}

func (e *Exprs) payload(id ExprID, kind ExprKind) (uint32, bool) {
	expr := e.Get(id)
	if expr == nil || expr.Kind != kind {
		return 0, false
	}
	return uint32(expr.Payload), true
}

func (e *Exprs) NewIdent(span source.Span, name source.StringID) ExprID {
	return e.new(ExprIdent, span, e.Idents.Allocate(ExprIdentData{Name: name}))
}

func (e *Exprs) Ident(id ExprID) (*ExprIdentData, bool) {
	p, ok := e.payload(id, ExprIdent)
	if !ok {
		return nil, false
	}
	return e.Idents.Get(p), true
}

func (e *Exprs) NewLiteral(span source.Span, kind LitKind, value source.StringID) ExprID {
	return e.new(ExprLit, span, e.Literals.Allocate(ExprLiteralData{Kind: kind, Value: value}))
}

func (e *Exprs) Literal(id ExprID) (*ExprLiteralData, bool) {
	p, ok := e.payload(id, ExprLit)
	if !ok {
		return nil, false
	}
	return e.Literals.Get(p), true
}

func (e *Exprs) NewBinary(span source.Span, op BinaryOp, left, right ExprID) ExprID {
	return e.new(ExprBinary, span, e.Binaries.Allocate(ExprBinaryData{Op: op, Left: left, Right: right}))
}

func (e *Exprs) Binary(id ExprID) (*ExprBinaryData, bool) {
	p, ok := e.payload(id, ExprBinary)
	if !ok {
		return nil, false
	}
	return e.Binaries.Get(p), true
}

func (e *Exprs) NewUnary(span source.Span, op UnaryOp, operand ExprID) ExprID {
	return e.new(ExprUnary, span, e.Unaries.Allocate(ExprUnaryData{Op: op, Operand: operand}))
}

func (e *Exprs) Unary(id ExprID) (*ExprUnaryData, bool) {
	p, ok := e.payload(id, ExprUnary)
	if !ok {
		return nil, false
	}
	return e.Unaries.Get(p), true
}

func (e *Exprs) NewCall(span source.Span, target ExprID, args []ExprID) ExprID {
	return e.new(ExprCall, span, e.Calls.Allocate(ExprCallData{Target: target, Args: args}))
}

func (e *Exprs) Call(id ExprID) (*ExprCallData, bool) {
	p, ok := e.payload(id, ExprCall)
	if !ok {
		return nil, false
	}
	return e.Calls.Get(p), true
}

func (e *Exprs) NewSpawn(span source.Span, call ExprID) ExprID {
	return e.new(ExprSpawn, span, e.Spawns.Allocate(ExprSpawnData{Call: call}))
}

func (e *Exprs) Spawn(id ExprID) (*ExprSpawnData, bool) {
	p, ok := e.payload(id, ExprSpawn)
	if !ok {
		return nil, false
	}
	return e.Spawns.Get(p), true
}

func (e *Exprs) NewMember(span source.Span, target ExprID, field source.StringID) ExprID {
	return e.new(ExprMember, span, e.Members.Allocate(ExprMemberData{Target: target, Field: field}))
}

func (e *Exprs) Member(id ExprID) (*ExprMemberData, bool) {
	p, ok := e.payload(id, ExprMember)
	if !ok {
		return nil, false
	}
	return e.Members.Get(p), true
}

func (e *Exprs) NewIndex(span source.Span, target, index ExprID) ExprID {
	return e.new(ExprIndex, span, e.Indices.Allocate(ExprIndexData{Target: target, Index: index}))
}

func (e *Exprs) Index(id ExprID) (*ExprIndexData, bool) {
	p, ok := e.payload(id, ExprIndex)
	if !ok {
		return nil, false
	}
	return e.Indices.Get(p), true
}

func (e *Exprs) NewStruct(span source.Span, name source.StringID, fields []StructLitField) ExprID {
	return e.new(ExprStruct, span, e.Structs.Allocate(ExprStructData{Name: name, Fields: fields}))
}

func (e *Exprs) Struct(id ExprID) (*ExprStructData, bool) {
	p, ok := e.payload(id, ExprStruct)
	if !ok {
		return nil, false
	}
	return e.Structs.Get(p), true
}

func (e *Exprs) NewList(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprList, span, e.Lists.Allocate(ExprListData{Elems: elems}))
}

func (e *Exprs) List(id ExprID) (*ExprListData, bool) {
	p, ok := e.payload(id, ExprList)
	if !ok {
		return nil, false
	}
	return e.Lists.Get(p), true
}

func (e *Exprs) NewMap(span source.Span, entries []MapEntry) ExprID {
	return e.new(ExprMap, span, e.Maps.Allocate(ExprMapData{Entries: entries}))
}

func (e *Exprs) Map(id ExprID) (*ExprMapData, bool) {
	p, ok := e.payload(id, ExprMap)
	if !ok {
		return nil, false
	}
	return e.Maps.Get(p), true
}

func (e *Exprs) NewTuple(span source.Span, elems []ExprID) ExprID {
	return e.new(ExprTuple, span, e.Tuples.Allocate(ExprTupleData{Elems: elems}))
}

func (e *Exprs) Tuple(id ExprID) (*ExprTupleData, bool) {
	p, ok := e.payload(id, ExprTuple)
	if !ok {
		return nil, false
	}
	return e.Tuples.Get(p), true
}

func (e *Exprs) NewAssign(span source.Span, target, value ExprID) ExprID {
	return e.new(ExprAssign, span, e.Assigns.Allocate(ExprAssignData{Target: target, Value: value}))
}

func (e *Exprs) Assign(id ExprID) (*ExprAssignData, bool) {
	p, ok := e.payload(id, ExprAssign)
	if !ok {
		return nil, false
	}
	return e.Assigns.Get(p), true
}

func (e *Exprs) NewGroup(span source.Span, inner ExprID) ExprID {
	return e.new(ExprGroup, span, e.Groups.Allocate(ExprGroupData{Inner: inner}))
}

func (e *Exprs) Group(id ExprID) (*ExprGroupData, bool) {
	p, ok := e.payload(id, ExprGroup)
	if !ok {
		return nil, false
	}
	return e.Groups.Get(p), true
}

// Unparen strips any number of grouping parentheses.
func (e *Exprs) Unparen(id ExprID) ExprID {
	for {
		g, ok := e.Group(id)
		if !ok {
			return id
		}
		id = g.Inner
	}
}

// Children appends the direct sub-expressions of id to dst in evaluation order.
func (e *Exprs) Children(dst []ExprID, id ExprID) []ExprID {
	expr := e.Get(id)
	if expr == nil {
		return dst
	}
	p := uint32(expr.Payload)
	switch expr.Kind {
	case ExprBinary:
		d := e.Binaries.Get(p)
		dst = append(dst, d.Left, d.Right)
	case ExprUnary:
		dst = append(dst, e.Unaries.Get(p).Operand)
	case ExprCall:
		d := e.Calls.Get(p)
		dst = append(dst, d.Target)
		dst = append(dst, d.Args...)
	case ExprSpawn:
		dst = append(dst, e.Spawns.Get(p).Call)
	case ExprMember:
		dst = append(dst, e.Members.Get(p).Target)
	case ExprIndex:
		d := e.Indices.Get(p)
		dst = append(dst, d.Target, d.Index)
	case ExprStruct:
		for _, f := range e.Structs.Get(p).Fields {
			dst = append(dst, f.Value)
		}
	case ExprList:
		dst = append(dst, e.Lists.Get(p).Elems...)
	case ExprMap:
		for _, en := range e.Maps.Get(p).Entries {
			dst = append(dst, en.Key, en.Value)
		}
	case ExprTuple:
		dst = append(dst, e.Tuples.Get(p).Elems...)
	case ExprAssign:
		d := e.Assigns.Get(p)
		dst = append(dst, d.Target, d.Value)
	case ExprGroup:
		dst = append(dst, e.Groups.Get(p).Inner)
	}
	return dst
}
