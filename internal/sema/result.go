package sema

import (
	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/trace"
	"lumen/internal/types"
)

// Options configure a semantic pass over a file. Nil fields get fresh
// per-file instances.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Interner
	Table    *symbols.Table
	Tracer   trace.Tracer
	// TraceParent is the span the pass nests under.
	TraceParent uint64
}

// BindingID indexes Result.Bindings (1-based; 0 is none).
type BindingID uint32

const NoBindingID BindingID = 0

// BindingKind records how a binding was introduced.
type BindingKind uint8

const (
	BindingParam BindingKind = iota + 1
	BindingLet
	BindingFor
	BindingPattern
)

func (k BindingKind) String() string {
	switch k {
	case BindingParam:
		return "param"
	case BindingLet:
		return "let"
	case BindingFor:
		return "for"
	case BindingPattern:
		return "pattern"
	default:
		return "binding?"
	}
}

// Binding is one named value introduced into a scope.
type Binding struct {
	ID    BindingID
	Name  source.StringID
	Type  types.TypeID
	Scope symbols.ScopeID
	Kind  BindingKind
	Fn    ast.ItemID
	Decl  ast.StmtID // let/for/match statement, if any
	Init  ast.ExprID // let initializer
	Mut   bool
	Span  source.Span
}

// CalleeKind classifies what a call expression invokes.
type CalleeKind uint8

const (
	CalleeFunction CalleeKind = iota + 1 // named function, by qualified name
	CalleeValue                          // function-typed value
	CalleeVariant                        // enum variant constructor
)

// Callee is the resolved target of a call expression.
type Callee struct {
	Kind    CalleeKind
	Name    string // qualified function name
	Sig     *symbols.FunctionSignature
	Enum    *symbols.EnumDef
	Variant int
}

// MemberKind classifies a resolved member expression.
type MemberKind uint8

const (
	MemberField   MemberKind = iota + 1 // struct field
	MemberVariant                       // payload-less enum variant
	MemberTuple                         // tuple element by literal index
)

// Member is the resolution of a member or tuple-index expression.
type Member struct {
	Kind   MemberKind
	Index  int
	Struct *symbols.StructDef
	Enum   *symbols.EnumDef
}

// FuncInfo describes a checked function.
type FuncInfo struct {
	Item  ast.ItemID
	Name  string // qualified name
	Sig   *symbols.FunctionSignature
	Scope symbols.ScopeID
	Body  ast.StmtID
	// Params holds the parameter bindings in declaration order.
	Params []BindingID
	// Failed marks functions with at least one error inside.
	Failed bool
}

// Result stores semantic artefacts produced by the checker.
type Result struct {
	Types       *types.Interner
	Table       *symbols.Table
	Root        symbols.Environment
	ExprTypes   map[ast.ExprID]types.TypeID
	Bindings    []Binding
	ExprBinding map[ast.ExprID]BindingID
	StmtBinding map[ast.StmtID]BindingID // let and for statements
	ArmBindings map[ast.PatternID][]BindingID
	StmtScopes  map[ast.StmtID]symbols.ScopeID // scope opened by a block-like statement
	Callees     map[ast.ExprID]Callee
	Members     map[ast.ExprID]Member
	Funcs       []*FuncInfo
	Structs     map[string]*symbols.StructDef
	Enums       map[string]*symbols.EnumDef
	Errors      []TypeError
}

// OK reports whether checking produced no errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Binding returns the binding record for id.
func (r *Result) Binding(id BindingID) *Binding {
	if id == NoBindingID || int(id) > len(r.Bindings) {
		return nil
	}
	return &r.Bindings[id-1]
}

// Func returns the checked function for an item.
func (r *Result) Func(item ast.ItemID) *FuncInfo {
	for _, fn := range r.Funcs {
		if fn.Item == item {
			return fn
		}
	}
	return nil
}

// ErrorsOf returns the errors of the given kind.
func (r *Result) ErrorsOf(kind TypeErrorKind) []TypeError {
	var out []TypeError
	for _, e := range r.Errors {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
