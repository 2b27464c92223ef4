package sema_test

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/astfile"
	"lumen/internal/diag"
	"lumen/internal/sema"
	"lumen/internal/trace"
	"lumen/internal/types"
)

func check(t *testing.T, doc string) (*sema.Result, *astfile.Program) {
	t.Helper()
	prog, err := astfile.Decode("test.yaml", []byte(doc), astfile.Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return sema.Check(prog.Builder, prog.File, sema.Options{}), prog
}

func kinds(errs []sema.TypeError) []sema.TypeErrorKind {
	out := make([]sema.TypeErrorKind, len(errs))
	for i, e := range errs {
		out[i] = e.Kind
	}
	return out
}

func funcByName(t *testing.T, res *sema.Result, name string) *sema.FuncInfo {
	t.Helper()
	for _, fn := range res.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not checked", name)
	return nil
}

const addProgram = `
items:
  - fn: add
    params: [{name: a, type: number}, {name: b, type: number}]
    returns: number
    body:
      - return: {op: "+", args: [a, b]}
`

func TestSymbolTableCheckedAtDebugLevel(t *testing.T) {
	for _, level := range []trace.Level{trace.LevelDetail, trace.LevelDebug} {
		prog, err := astfile.Decode("test.yaml", []byte(addProgram), astfile.Options{})
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		ring := trace.NewRingTracer(64, level)
		sema.Check(prog.Builder, prog.File, sema.Options{Tracer: ring})
		var detail string
		for _, ev := range ring.Snapshot() {
			if ev.Name == "symbol_table" {
				detail = ev.Detail
			}
		}
		switch {
		case level == trace.LevelDebug && detail != "ok":
			t.Fatalf("debug trace: symbol_table detail = %q, want ok", detail)
		case level != trace.LevelDebug && detail != "":
			t.Fatalf("%s trace must not validate the table", level)
		}
	}
}

func TestAddTypeChecks(t *testing.T) {
	res, prog := check(t, addProgram)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	fn := funcByName(t, res, "add")
	if fn.Sig.Result != res.Types.Builtins().Number {
		t.Fatalf("result type %s, want number", types.Label(res.Types, fn.Sig.Result))
	}

	b := prog.Builder
	body, _ := b.Stmts.Block(fn.Body)
	ret, _ := b.Stmts.Return(body.Stmts[0])
	if got := types.Label(res.Types, res.ExprTypes[ret.Value]); got != "number" {
		t.Fatalf("a + b has type %s, want number", got)
	}
}

func TestIdentifiersResolveToBindings(t *testing.T) {
	res, prog := check(t, addProgram)
	exprs := prog.Builder.Exprs
	for i := uint32(1); i <= exprs.Arena.Len(); i++ {
		id := ast.ExprID(i)
		if exprs.Get(id).Kind != ast.ExprIdent {
			continue
		}
		b := res.Binding(res.ExprBinding[id])
		if b == nil {
			t.Fatalf("identifier %d has no binding", id)
		}
		if b.Kind != sema.BindingParam {
			t.Fatalf("identifier %d bound to %s, want param", id, b.Kind)
		}
		if !res.Table.Encloses(funcByName(t, res, "add").Scope, b.Scope) {
			t.Fatalf("binding %d lives outside the function scope", b.ID)
		}
	}
}

func TestRepeatedLetOverwrites(t *testing.T) {
	res, prog := check(t, `
items:
  - fn: f
    body:
      - {let: x, value: 1}
      - {let: x, value: 2}
`)
	if !res.OK() {
		t.Fatalf("repeated let must not raise errors, got %v", res.Errors)
	}
	if len(res.Bindings) != 2 {
		t.Fatalf("expected two bindings, got %d", len(res.Bindings))
	}
	first, second := res.Bindings[0], res.Bindings[1]
	if first.Scope != second.Scope {
		t.Fatalf("both lets should live in the function scope")
	}
	if prog.Builder.Lookup(first.Name) != "x" || first.Name != second.Name {
		t.Fatalf("unexpected binding names")
	}
}

func TestUndefinedFunction(t *testing.T) {
	prog, err := astfile.Decode("test.yaml", []byte(`
items:
  - fn: main
    body:
      - {call: foo}
`), astfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(10)
	res := sema.Check(prog.Builder, prog.File, sema.Options{Reporter: diag.BagReporter{Bag: bag}})

	if len(res.Errors) != 1 {
		t.Fatalf("expected one error, got %v", res.Errors)
	}
	e := res.Errors[0]
	if e.Kind != sema.UndefinedFunction || e.Subject != "foo" {
		t.Fatalf("got %s(%q), want UndefinedFunction(\"foo\")", e.Kind, e.Subject)
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaUndefinedFunction {
		t.Fatalf("reporter did not receive the diagnostic: %v", bag.Items())
	}
	if !funcByName(t, res, "main").Failed {
		t.Fatalf("main should be marked failed")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want sema.TypeErrorKind
	}{
		{
			name: "annotation mismatch",
			doc: `
items:
  - fn: f
    body:
      - {let: x, type: string, value: 1}
`,
			want: sema.TypeMismatch,
		},
		{
			name: "wrong return type",
			doc: `
items:
  - fn: f
    returns: bool
    body: [return: 1]
`,
			want: sema.TypeMismatch,
		},
		{
			name: "undefined variable",
			doc: `
items:
  - fn: f
    returns: number
    body: [return: y]
`,
			want: sema.UndefinedVariable,
		},
		{
			name: "undefined type",
			doc: `
items:
  - fn: f
    params: [{a: Missing}]
`,
			want: sema.UndefinedType,
		},
		{
			name: "duplicate item",
			doc: `
items:
  - fn: f
  - fn: f
`,
			want: sema.DuplicateDefinition,
		},
		{
			name: "empty list without annotation",
			doc: `
items:
  - fn: f
    body:
      - {let: xs, value: {list: []}}
`,
			want: sema.CannotInferType,
		},
		{
			name: "number plus string",
			doc: `
items:
  - fn: f
    body:
      - {expr: {op: "+", args: [1, {str: a}]}}
`,
			want: sema.InvalidOperation,
		},
		{
			name: "assign to immutable",
			doc: `
items:
  - fn: f
    body:
      - {let: n, value: 1}
      - {assign: n, value: 2}
`,
			want: sema.InvalidOperation,
		},
		{
			name: "missing return",
			doc: `
items:
  - fn: f
    returns: number
    body:
      - {let: x, value: 1}
`,
			want: sema.MissingReturn,
		},
		{
			name: "too few arguments",
			doc: addProgram + `
  - fn: main
    body:
      - {call: add, args: [1]}
`,
			want: sema.WrongArgumentCount,
		},
		{
			name: "argument type",
			doc: addProgram + `
  - fn: main
    body:
      - {call: add, args: [{str: x}, 1]}
`,
			want: sema.InvalidArgumentType,
		},
		{
			name: "unknown field",
			doc: `
items:
  - struct: Point
    fields: {x: number, y: number}
  - fn: f
    params: [{p: Point}]
    returns: number
    body: [return: p.z]
`,
			want: sema.InvalidMemberAccess,
		},
		{
			name: "missing struct literal field",
			doc: `
items:
  - struct: Point
    fields: {x: number, y: number}
  - fn: f
    body:
      - {let: p, value: {struct: Point, fields: {x: 1}}}
`,
			want: sema.InvalidMemberAccess,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := check(t, tt.doc)
			got := kinds(res.Errors)
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("errors %v, want exactly [%s]", res.Errors, tt.want)
			}
			if code := res.Errors[0].Diagnostic().Code; code != tt.want.Code() {
				t.Fatalf("diagnostic code %s, want %s", code, tt.want.Code())
			}
		})
	}
}

func TestErrorsAccumulate(t *testing.T) {
	res, _ := check(t, `
items:
  - fn: f
    returns: number
    body:
      - {expr: {call: nope}}
      - {let: s, type: string, value: true}
      - return: missing
`)
	want := []sema.TypeErrorKind{sema.UndefinedFunction, sema.TypeMismatch, sema.UndefinedVariable}
	got := kinds(res.Errors)
	if len(got) != len(want) {
		t.Fatalf("errors %v, want %v", res.Errors, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("error %d is %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBlockBindingsDoNotLeak(t *testing.T) {
	res, _ := check(t, `
items:
  - fn: f
    returns: number
    body:
      - if: true
        then:
          - {let: inner, value: 1}
      - return: inner
`)
	got := kinds(res.Errors)
	if len(got) != 1 || got[0] != sema.UndefinedVariable {
		t.Fatalf("errors %v, want [UndefinedVariable]", res.Errors)
	}
}

const shapeProgram = `
items:
  - enum: Shape
    variants: [Empty, {Circle: [number]}]
  - fn: area
    params: [{s: Shape}]
    returns: number
    body:
      - match: s
        arms:
          - pattern: Shape.Empty
            body: [return: 0]
`

func TestMatchExhaustiveness(t *testing.T) {
	res, _ := check(t, shapeProgram+`
          - pattern: {variant: Circle, bind: [r]}
            body:
              - return: {op: "*", args: [r, r]}
`)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}

	res, _ = check(t, shapeProgram)
	got := kinds(res.Errors)
	if len(got) != 1 || got[0] != sema.MissingReturn {
		t.Fatalf("non-exhaustive match: errors %v, want [MissingReturn]", res.Errors)
	}
}

func TestVariantPatternArity(t *testing.T) {
	res, _ := check(t, `
items:
  - enum: Shape
    variants: [{Circle: [number]}]
  - fn: f
    params: [{s: Shape}]
    body:
      - match: s
        arms:
          - pattern: {variant: Circle, bind: [a, b]}
            body: []
`)
	got := kinds(res.Errors)
	if len(got) != 1 || got[0] != sema.WrongArgumentCount {
		t.Fatalf("errors %v, want [WrongArgumentCount]", res.Errors)
	}
}

func TestModuleQualifiedCall(t *testing.T) {
	res, _ := check(t, `
items:
  - module: math
    items:
      - fn: sq
        params: [{x: number}]
        returns: number
        body: [return: {op: "*", args: [x, x]}]
  - fn: main
    returns: number
    body:
      - return: {call: math.sq, args: [3]}
`)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	funcByName(t, res, "math.sq")
	var found bool
	for _, c := range res.Callees {
		if c.Kind == sema.CalleeFunction && c.Name == "math.sq" {
			found = true
		}
	}
	if !found {
		t.Fatalf("call to math.sq not recorded")
	}
}

func TestGenericStructInference(t *testing.T) {
	res, _ := check(t, `
items:
  - struct: Box
    params: [T]
    fields: {value: T}
  - fn: f
    returns: number
    body:
      - {let: b, value: {struct: Box, fields: {value: 1}}}
      - return: b.value
`)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	for _, b := range res.Bindings {
		if b.Kind == sema.BindingLet {
			if got := types.Label(res.Types, b.Type); got != "Box<int>" {
				t.Fatalf("b has type %s, want Box<int>", got)
			}
		}
	}
}

func TestWhileTrueCloses(t *testing.T) {
	res, _ := check(t, `
items:
  - fn: spin
    returns: number
    body:
      - while: true
        do: [return: 1]
`)
	if !res.OK() {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestNumberDoesNotNarrowToFloat(t *testing.T) {
	res, _ := check(t, `
items:
  - fn: sum
    params: [{xs: "[number]"}]
    returns: number
    body:
      - {let: total, mut: true, value: 0.0}
      - for: x
        in: xs
        do:
          - {assign: total, value: {op: "+", args: [total, x]}}
      - return: total
`)
	if len(res.Errors) != 1 || res.Errors[0].Kind != sema.TypeMismatch {
		t.Fatalf("float total cannot take a number sum: errors %v", res.Errors)
	}
}
