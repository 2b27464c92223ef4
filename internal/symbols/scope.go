package symbols

import (
	"lumen/internal/source"
	"lumen/internal/types"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeRoot               // one per checked program
	ScopeModule             // nested module items
	ScopeFunction           // function body scope
	ScopeBlock              // if/while/for/match/plain blocks
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRoot:
		return "root"
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope is one record of the arena. Parent always has a smaller index than
// the scope itself, so root-ward walks terminate.
type Scope struct {
	Kind   ScopeKind
	Parent ScopeID
	Depth  uint32
	Span   source.Span
	Closed bool

	variables map[source.StringID]types.TypeID
	functions map[source.StringID]*FunctionSignature
	typeNames map[source.StringID]types.TypeID
	structs   map[source.StringID]*StructDef
	enums     map[source.StringID]*EnumDef
}

func newScope(kind ScopeKind, parent ScopeID, depth uint32, span source.Span) Scope {
	return Scope{
		Kind:      kind,
		Parent:    parent,
		Depth:     depth,
		Span:      span,
		variables: make(map[source.StringID]types.TypeID),
		functions: make(map[source.StringID]*FunctionSignature),
		typeNames: make(map[source.StringID]types.TypeID),
		structs:   make(map[source.StringID]*StructDef),
		enums:     make(map[source.StringID]*EnumDef),
	}
}

// release drops the name maps; the record itself stays for Encloses.
func (s *Scope) release() {
	s.Closed = true
	s.variables = nil
	s.functions = nil
	s.typeNames = nil
	s.structs = nil
	s.enums = nil
}
