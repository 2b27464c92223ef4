package ast

import "lumen/internal/source"

// TypeExprKind enumerates written type syntax.
type TypeExprKind uint8

const (
	TypePath TypeExprKind = iota + 1 // Name or Name<Args>
	TypeFn
	TypeList
	TypeMap
	TypeTuple
	TypeOptional
)

// TypeExpr is a type as written in the program. Elems holds generic args,
// fn params, tuple elements or the single list/optional element; Map uses
// Elems[0] and Elems[1] for key and value.
type TypeExpr struct {
	Kind   TypeExprKind
	Span   source.Span
	Name   source.StringID
	Elems  []TypeExprID
	Result TypeExprID // TypeFn only
}

type TypeExprs struct {
	Arena *Arena[TypeExpr]
}

func NewTypeExprs(capHint uint) *TypeExprs {
	return &TypeExprs{Arena: NewArena[TypeExpr](capHint)}
}

func (t *TypeExprs) Get(id TypeExprID) *TypeExpr {
	return t.Arena.Get(uint32(id))
}

func (t *TypeExprs) new(te TypeExpr) TypeExprID {
	return TypeExprID(t.Arena.Allocate(te))
}

func (t *TypeExprs) NewPath(span source.Span, name source.StringID, args []TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypePath, Span: span, Name: name, Elems: args})
}

func (t *TypeExprs) NewFn(span source.Span, params []TypeExprID, result TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypeFn, Span: span, Elems: params, Result: result})
}

func (t *TypeExprs) NewList(span source.Span, elem TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypeList, Span: span, Elems: []TypeExprID{elem}})
}

func (t *TypeExprs) NewMap(span source.Span, key, value TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypeMap, Span: span, Elems: []TypeExprID{key, value}})
}

func (t *TypeExprs) NewTuple(span source.Span, elems []TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypeTuple, Span: span, Elems: elems})
}

func (t *TypeExprs) NewOptional(span source.Span, inner TypeExprID) TypeExprID {
	return t.new(TypeExpr{Kind: TypeOptional, Span: span, Elems: []TypeExprID{inner}})
}
