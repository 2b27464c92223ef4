package ast

import "lumen/internal/source"

type PatternKind uint8

const (
	PatWildcard PatternKind = iota + 1
	PatBinding
	PatLiteral
	PatVariant
)

type Pattern struct {
	Kind    PatternKind
	Span    source.Span
	Name    source.StringID // binding name or variant name
	Enum    source.StringID // variant: optional qualifying enum
	Literal ExprID          // literal pattern value
	Binds   []source.StringID
}

type Patterns struct {
	Arena *Arena[Pattern]
}

func NewPatterns(capHint uint) *Patterns {
	return &Patterns{Arena: NewArena[Pattern](capHint)}
}

func (p *Patterns) Get(id PatternID) *Pattern {
	return p.Arena.Get(uint32(id))
}

func (p *Patterns) NewWildcard(span source.Span) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatWildcard, Span: span}))
}

func (p *Patterns) NewBinding(span source.Span, name source.StringID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatBinding, Span: span, Name: name}))
}

func (p *Patterns) NewLiteral(span source.Span, lit ExprID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatLiteral, Span: span, Literal: lit}))
}

func (p *Patterns) NewVariant(span source.Span, enum, name source.StringID, binds []source.StringID) PatternID {
	return PatternID(p.Arena.Allocate(Pattern{Kind: PatVariant, Span: span, Enum: enum, Name: name, Binds: binds}))
}

// IsIrrefutable reports patterns that match every value.
func (p *Pattern) IsIrrefutable() bool {
	return p != nil && (p.Kind == PatWildcard || p.Kind == PatBinding)
}
