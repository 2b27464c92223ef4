package symbols

import (
	"fmt"

	"lumen/internal/source"
	"lumen/internal/types"
)

// Environment is a handle to one scope of a Table. It is a small value:
// copying it does not copy the scope.
type Environment struct {
	table *Table
	id    ScopeID
}

// WithParent creates a child block scope of parent.
func WithParent(parent Environment) Environment {
	return parent.Child(ScopeBlock, source.Span{})
}

// Child creates a nested scope of the given kind.
func (e Environment) Child(kind ScopeKind, span source.Span) Environment {
	return Environment{table: e.table, id: e.table.newScope(kind, e.id, span)}
}

// Scope returns the scope ID this environment points at.
func (e Environment) Scope() ScopeID { return e.id }

// Table returns the owning arena.
func (e Environment) Table() *Table { return e.table }

// IsValid reports whether the handle refers to an allocated scope.
func (e Environment) IsValid() bool { return e.table != nil && e.table.Get(e.id) != nil }

// Parent returns the enclosing environment, or an invalid one at the root.
func (e Environment) Parent() Environment {
	s := e.table.Get(e.id)
	if s == nil {
		return Environment{}
	}
	return Environment{table: e.table, id: s.Parent}
}

// Discard closes the scope once its block has been checked.
func (e Environment) Discard() {
	if s := e.table.Get(e.id); s != nil {
		s.release()
	}
}

func (e Environment) open() *Scope {
	s := e.table.Get(e.id)
	if s == nil || s.Closed {
		panic(fmt.Errorf("symbols: define in closed or invalid scope %d", e.id))
	}
	return s
}

// DefineVariable binds name in this scope. A later define of the same name
// replaces the earlier one.
func (e Environment) DefineVariable(name source.StringID, ty types.TypeID) {
	e.open().variables[name] = ty
}

func (e Environment) DefineFunction(name source.StringID, sig *FunctionSignature) {
	e.open().functions[name] = sig
}

func (e Environment) DefineType(name source.StringID, ty types.TypeID) {
	e.open().typeNames[name] = ty
}

func (e Environment) DefineStruct(name source.StringID, def *StructDef) {
	e.open().structs[name] = def
}

func (e Environment) DefineEnum(name source.StringID, def *EnumDef) {
	e.open().enums[name] = def
}

// lookup walks from e toward the root and returns the first scope for which
// hit reports true. A closed starting scope finds nothing.
func lookup[T any](e Environment, get func(*Scope) (T, bool)) (T, ScopeID, bool) {
	var zero T
	if e.table == nil {
		return zero, NoScopeID, false
	}
	if s := e.table.Get(e.id); s == nil || s.Closed {
		return zero, NoScopeID, false
	}
	for id := e.id; id.IsValid(); {
		s := e.table.Get(id)
		if s == nil {
			break
		}
		if v, ok := get(s); ok {
			return v, id, true
		}
		id = s.Parent
	}
	return zero, NoScopeID, false
}

// Variable returns the nearest binding of name.
func (e Environment) Variable(name source.StringID) (types.TypeID, bool) {
	v, _, ok := e.VariableScope(name)
	return v, ok
}

// VariableScope also returns the scope that holds the binding.
func (e Environment) VariableScope(name source.StringID) (types.TypeID, ScopeID, bool) {
	return lookup(e, func(s *Scope) (types.TypeID, bool) {
		v, ok := s.variables[name]
		return v, ok
	})
}

func (e Environment) Function(name source.StringID) (*FunctionSignature, bool) {
	v, _, ok := lookup(e, func(s *Scope) (*FunctionSignature, bool) {
		v, ok := s.functions[name]
		return v, ok
	})
	return v, ok
}

func (e Environment) Type(name source.StringID) (types.TypeID, bool) {
	v, _, ok := lookup(e, func(s *Scope) (types.TypeID, bool) {
		v, ok := s.typeNames[name]
		return v, ok
	})
	return v, ok
}

func (e Environment) Struct(name source.StringID) (*StructDef, bool) {
	v, _, ok := lookup(e, func(s *Scope) (*StructDef, bool) {
		v, ok := s.structs[name]
		return v, ok
	})
	return v, ok
}

func (e Environment) Enum(name source.StringID) (*EnumDef, bool) {
	v, _, ok := lookup(e, func(s *Scope) (*EnumDef, bool) {
		v, ok := s.enums[name]
		return v, ok
	})
	return v, ok
}

func (e Environment) HasVariable(name source.StringID) bool {
	_, ok := e.Variable(name)
	return ok
}

func (e Environment) HasFunction(name source.StringID) bool {
	_, ok := e.Function(name)
	return ok
}

func (e Environment) HasType(name source.StringID) bool {
	_, ok := e.Type(name)
	return ok
}

func (e Environment) HasStruct(name source.StringID) bool {
	_, ok := e.Struct(name)
	return ok
}

func (e Environment) HasEnum(name source.StringID) bool {
	_, ok := e.Enum(name)
	return ok
}
