package symbols_test

import (
	"testing"

	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

func TestLookupWalksTowardRoot(t *testing.T) {
	table := symbols.NewTable(symbols.Hints{}, nil)
	in := types.NewInterner(table.Strings)
	b := in.Builtins()
	x := table.Strings.Intern("x")
	y := table.Strings.Intern("y")

	root := table.Root(source.Span{})
	root.DefineVariable(x, b.Number)
	child := symbols.WithParent(root)
	child.DefineVariable(y, b.String)

	if got, ok := child.Variable(x); !ok || got != b.Number {
		t.Fatalf("child should see root binding, got %v %v", got, ok)
	}
	if root.HasVariable(y) {
		t.Fatalf("root must not see child binding")
	}
	if _, scope, _ := child.VariableScope(x); scope != root.Scope() {
		t.Fatalf("binding scope = %d, want root %d", scope, root.Scope())
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRedefineOverwritesInSameScope(t *testing.T) {
	table := symbols.NewTable(symbols.Hints{}, nil)
	in := types.NewInterner(table.Strings)
	b := in.Builtins()
	x := table.Strings.Intern("x")

	env := table.Root(source.Span{})
	env.DefineVariable(x, b.Int)
	env.DefineVariable(x, b.String)
	if got, _ := env.Variable(x); got != b.String {
		t.Fatalf("last define should win, got %s", types.Label(in, got))
	}
}

func TestUnknownNameAtRoot(t *testing.T) {
	table := symbols.NewTable(symbols.Hints{}, nil)
	env := symbols.WithParent(symbols.WithParent(table.Root(source.Span{})))
	name := table.Strings.Intern("missing")
	if env.HasFunction(name) || env.HasStruct(name) || env.HasEnum(name) || env.HasType(name) {
		t.Fatalf("lookup of unknown name must fail")
	}
}

func TestDiscardKeepsAncestry(t *testing.T) {
	table := symbols.NewTable(symbols.Hints{}, nil)
	in := types.NewInterner(table.Strings)
	x := table.Strings.Intern("x")

	root := table.Root(source.Span{})
	fn := root.Child(symbols.ScopeFunction, source.Span{})
	block := symbols.WithParent(fn)
	block.DefineVariable(x, in.Builtins().Bool)
	block.Discard()

	if block.HasVariable(x) {
		t.Fatalf("discarded scope must not resolve names")
	}
	if !table.Encloses(root.Scope(), block.Scope()) || !table.Encloses(fn.Scope(), block.Scope()) {
		t.Fatalf("ancestry must survive discard")
	}
	if table.Encloses(block.Scope(), fn.Scope()) {
		t.Fatalf("inner scope must not enclose its parent")
	}
	if got := table.Get(block.Scope()).Depth; got != 2 {
		t.Fatalf("depth = %d, want 2", got)
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestDefinitionsByKind(t *testing.T) {
	table := symbols.NewTable(symbols.Hints{}, nil)
	in := types.NewInterner(table.Strings)
	b := in.Builtins()
	env := table.Root(source.Span{})

	point := table.Strings.Intern("Point")
	xName := table.Strings.Intern("x")
	def := &symbols.StructDef{Name: point, Type: in.Named(point), Fields: []symbols.Field{{Name: xName, Type: b.Number}}}
	env.DefineStruct(point, def)
	env.DefineType(point, def.Type)

	add := table.Strings.Intern("add")
	env.DefineFunction(add, &symbols.FunctionSignature{Name: add, Result: b.Number})

	got, ok := env.Struct(point)
	if !ok {
		t.Fatalf("struct not found")
	}
	if f, idx, ok := got.Field(xName); !ok || idx != 0 || f.Type != b.Number {
		t.Fatalf("field lookup failed")
	}
	if env.HasVariable(point) {
		t.Fatalf("kinds must not leak into each other")
	}
	if sig, ok := env.Function(add); !ok || sig.Result != b.Number {
		t.Fatalf("function not found")
	}
}
