package ir_test

import (
	"errors"
	"strings"
	"testing"

	"lumen/internal/astfile"
	"lumen/internal/diag"
	"lumen/internal/ir"
	"lumen/internal/ownership"
	"lumen/internal/sema"
	"lumen/internal/types"
)

func lower(t *testing.T, doc string) *ir.Module {
	t.Helper()
	prog, err := astfile.Decode("ir.yaml", []byte(doc), astfile.Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sem := sema.Check(prog.Builder, prog.File, sema.Options{})
	own := ownership.Resolve(prog.Builder, sem, ownership.Options{})
	return ir.Lower(prog.Builder, sem, own, ir.Options{})
}

func dump(t *testing.T, m *ir.Module) string {
	t.Helper()
	var sb strings.Builder
	if err := ir.Dump(&sb, m); err != nil {
		t.Fatalf("dump: %v", err)
	}
	return sb.String()
}

func mustValidate(t *testing.T, m *ir.Module) {
	t.Helper()
	if err := ir.Validate(m, ir.ValidateOptions{WholeFunctionSSA: true}); err != nil {
		t.Fatalf("lowered IR is invalid:\n%v\n%s", err, dump(t, m))
	}
}

func constInt(dest ir.Value, in *types.Interner) ir.Instr {
	return ir.Instr{Kind: ir.InstrConst, Dest: dest, Type: in.Builtins().Int, Const: ir.ConstInstr{Kind: ir.ConstInt, Text: "1"}}
}

func ret(v ir.Value) ir.Instr {
	return ir.Instr{Kind: ir.InstrReturn, Return: ir.ReturnInstr{Value: v}}
}

func module(in *types.Interner, fs ...*ir.Func) *ir.Module {
	return &ir.Module{Funcs: fs, Types: in}
}

func TestDuplicateDestinationInBlock(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{
		Name:  "dup",
		Entry: 0,
		Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{
			constInt(1, in),
			constInt(1, in),
			ret(1),
		}}},
	}
	err := ir.Validate(module(in, f), ir.ValidateOptions{})
	errs, ok := ir.AsValidationErrors(err)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	ssa := errs.Of(ir.InvalidSSA)
	if len(ssa) != 1 || ssa[0].Value != 1 {
		t.Fatalf("want one InvalidSSA for %%1, got %v", errs)
	}
	if len(errs) != 1 {
		t.Fatalf("unexpected extra errors: %v", errs)
	}
	if got := ssa[0].Diagnostic().Code; got != diag.IRInvalidSSA {
		t.Fatalf("diagnostic code = %v", got)
	}
}

func TestVoidParameter(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{
		Name:   "f",
		Params: []ir.Param{{Name: "x", Type: in.Builtins().Void, Value: 1}},
		Entry:  0,
		Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{ret(ir.NoValue)}}},
	}
	errs, _ := ir.AsValidationErrors(ir.Validate(module(in, f), ir.ValidateOptions{}))
	bad := errs.Of(ir.InvalidType)
	if len(bad) != 1 {
		t.Fatalf("want one InvalidType, got %v", errs)
	}
	if bad[0].Expected != "non-void type" || bad[0].Found != "void" {
		t.Fatalf("expected/found = %q/%q", bad[0].Expected, bad[0].Found)
	}
}

func TestSSAScope(t *testing.T) {
	in := types.NewInterner(nil)
	newFunc := func() *ir.Func {
		return &ir.Func{
			Name:  "twice",
			Entry: 0,
			Blocks: []ir.Block{
				{ID: 0, Instrs: []ir.Instr{
					constInt(1, in),
					{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 1}},
				}},
				{ID: 1, Instrs: []ir.Instr{constInt(1, in), ret(1)}},
			},
		}
	}
	if err := ir.Validate(module(in, newFunc()), ir.ValidateOptions{}); err != nil {
		t.Fatalf("per-block SSA should accept reuse across blocks: %v", err)
	}
	errs, _ := ir.AsValidationErrors(ir.Validate(module(in, newFunc()), ir.ValidateOptions{WholeFunctionSSA: true}))
	if len(errs.Of(ir.InvalidSSA)) != 1 {
		t.Fatalf("whole-function SSA: got %v", errs)
	}
}

func TestWholeFunctionSSACoversParams(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{
		Name:   "f",
		Params: []ir.Param{{Name: "a", Type: in.Builtins().Int, Value: 1}},
		Entry:  0,
		Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{constInt(1, in), ret(1)}}},
	}
	errs, _ := ir.AsValidationErrors(ir.Validate(module(in, f), ir.ValidateOptions{WholeFunctionSSA: true}))
	if len(errs.Of(ir.InvalidSSA)) != 1 {
		t.Fatalf("redefining a parameter must fail: %v", errs)
	}
}

func TestStructuralErrors(t *testing.T) {
	in := types.NewInterner(nil)
	b := in.Builtins()
	cases := []struct {
		name string
		f    *ir.Func
		want ir.ErrorKind
	}{
		{
			name: "jump to missing block",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{
				{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 7}},
			}}}},
			want: ir.InvalidReference,
		},
		{
			name: "jump to declared id missing by position",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{
				{ID: 0, Instrs: []ir.Instr{{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 1}}}},
				{ID: 7, Instrs: []ir.Instr{ret(ir.NoValue)}},
			}},
			want: ir.InvalidReference,
		},
		{
			name: "duplicate block id",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{
				{ID: 0, Instrs: []ir.Instr{{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 2}}}},
				{ID: 2, Instrs: []ir.Instr{ret(ir.NoValue)}},
				{ID: 2, Instrs: []ir.Instr{ret(ir.NoValue)}},
			}},
			want: ir.InvalidReference,
		},
		{
			name: "match without default",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{
				{ID: 0, Instrs: []ir.Instr{
					constInt(1, in),
					{Kind: ir.InstrMatch, Match: ir.MatchInstr{Value: 1, Arms: []ir.MatchArm{{Label: "1", Target: 1}}}},
				}},
				{ID: 1, Instrs: []ir.Instr{ret(ir.NoValue)}},
			}},
			want: ir.InvalidReference,
		},
		{
			name: "missing entry",
			f: &ir.Func{Name: "f", Entry: 3, Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{ret(ir.NoValue)}}}},
			want: ir.InvalidReference,
		},
		{
			name: "undefined operand",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{ret(9)}}}},
			want: ir.UndefinedVariable,
		},
		{
			name: "branch on int",
			f: &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{
				{ID: 0, Instrs: []ir.Instr{
					{Kind: ir.InstrConst, Dest: 1, Type: b.Int, Const: ir.ConstInstr{Kind: ir.ConstInt, Text: "1"}},
					{Kind: ir.InstrBranch, Branch: ir.BranchInstr{Cond: 1, Then: 1, Else: 1}},
				}},
				{ID: 1, Instrs: []ir.Instr{ret(ir.NoValue)}},
			}},
			want: ir.TypeMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs, ok := ir.AsValidationErrors(ir.Validate(module(in, tc.f), ir.ValidateOptions{}))
			if !ok || len(errs) != 1 || errs[0].Kind != tc.want {
				t.Fatalf("got %v, want one %s", errs, tc.want)
			}
		})
	}
}

func TestBlockReferencesUseDeclaredIDs(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{Name: "sparse", Entry: 4, Blocks: []ir.Block{
		{ID: 4, Instrs: []ir.Instr{
			constInt(1, in),
			{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 9}},
		}},
		{ID: 2, Instrs: []ir.Instr{{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 9}}}},
		{ID: 9, Instrs: []ir.Instr{
			{Kind: ir.InstrPhi, Dest: 2, Type: in.Builtins().Int, Phi: ir.PhiInstr{Incoming: []ir.PhiEdge{{Block: 4, Value: 1}, {Block: 2, Value: 1}}}},
			ret(2),
		}},
	}}
	if err := ir.Validate(module(in, f), ir.ValidateOptions{}); err != nil {
		t.Fatalf("sparse block ids must validate: %v", err)
	}
	if bb := f.Block(9); bb == nil || bb.ID != 9 {
		t.Fatalf("Block(9) = %v", bb)
	}
	if f.Block(1) != nil {
		t.Fatalf("Block(1) must be nil for an undeclared id")
	}

	ir.RemoveUnreachable(f)
	if len(f.Blocks) != 2 || f.Entry != 0 || f.Blocks[1].ID != 1 {
		t.Fatalf("blocks = %+v, entry = %s", f.Blocks, f.Entry)
	}
	if jmp := f.Blocks[0].Instrs[1]; jmp.Jump.Target != 1 {
		t.Fatalf("jump target = %s, want bb1", jmp.Jump.Target)
	}
	if phi := f.Blocks[1].Instrs[0].Phi; len(phi.Incoming) != 1 || phi.Incoming[0].Block != 0 {
		t.Fatalf("phi edges = %v", phi.Incoming)
	}
	if err := ir.Validate(module(in, f), ir.ValidateOptions{}); err != nil {
		t.Fatalf("renumbered function is invalid: %v", err)
	}
}

func TestErrorsAccumulateAcrossFunctions(t *testing.T) {
	in := types.NewInterner(nil)
	bad := func(name string) *ir.Func {
		return &ir.Func{Name: name, Entry: 0, Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{ret(5)}}}}
	}
	bag := diag.NewBag(10)
	err := ir.Validate(module(in, bad("a"), bad("b")), ir.ValidateOptions{Reporter: diag.BagReporter{Bag: bag}})
	errs, _ := ir.AsValidationErrors(err)
	if len(errs) != 2 || errs[0].Func != "a" || errs[1].Func != "b" {
		t.Fatalf("got %v", errs)
	}
	if bag.Len() != 2 {
		t.Fatalf("reporter got %d diagnostics, want 2", bag.Len())
	}
	var one ir.ValidationError
	if !errors.As(err, &one) {
		t.Fatalf("errors.As should reach individual ValidationError values")
	}
}

func TestValidateDoesNotModify(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{Name: "f", Entry: 0, Blocks: []ir.Block{{ID: 0, Instrs: []ir.Instr{constInt(1, in), constInt(1, in)}}}}
	_ = ir.Validate(module(in, f), ir.ValidateOptions{})
	if len(f.Blocks) != 1 || len(f.Blocks[0].Instrs) != 2 {
		t.Fatalf("Validate changed the function")
	}
}

func TestLowerAdd(t *testing.T) {
	m := lower(t, `
items:
  - fn: add
    params: [{a: number}, {b: number}]
    returns: number
    body:
      - return: {op: "+", args: [a, b]}
`)
	mustValidate(t, m)
	out := dump(t, m)
	for _, want := range []string{
		"fn add(%1: number, %2: number) -> number {",
		"%3 = alloca number ; a copy",
		"store %1 -> %3",
		"%5 = load %3",
		"%7 = add %5, %6",
		"ret %7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if f := m.Func("add"); f == nil || len(f.Blocks) != 1 {
		t.Fatalf("add should lower to a single block")
	}
}

func TestLowerControlFlow(t *testing.T) {
	m := lower(t, `
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
          - pattern: {variant: Circle, bind: [r]}
            body:
              - return: {op: "*", args: [r, r]}
  - fn: sum
    params: [{xs: "[number]"}, {limit: number}]
    returns: number
    body:
      - {let: total, mut: true, type: number, value: 0}
      - for: x
        in: xs
        do:
          - if: {op: "&&", args: [{op: ">", args: [x, 0]}, {op: "<", args: [x, limit]}]}
            then:
              - {assign: total, value: {op: "+", args: [total, x]}}
            else:
              - {assign: total, value: {op: "-", args: [total, 1]}}
      - while: {op: ">", args: [total, limit]}
        do:
          - {assign: total, value: {op: "-", args: [total, 1]}}
      - return: total
`)
	mustValidate(t, m)
	if len(m.Skipped) != 0 {
		t.Fatalf("nothing should be skipped: %v", m.Skipped)
	}
	out := dump(t, m)
	for _, want := range []string{"match %", "Empty => bb", "Circle => bb", "access %", "phi [bb", "call @iter.next", "br %"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestLowerSkipsFailedFunctions(t *testing.T) {
	m := lower(t, `
items:
  - fn: bad
    returns: number
    body:
      - return: {str: x}
  - fn: escapes
    returns: string
    body:
      - {let: x, value: {str: a}}
      - return: {ref: x}
  - fn: good
    returns: int
    body:
      - return: 1
`)
	if len(m.Funcs) != 1 || m.Funcs[0].Name != "good" {
		t.Fatalf("lowered %d funcs, want only good", len(m.Funcs))
	}
	if strings.Join(m.Skipped, ",") != "bad,escapes" {
		t.Fatalf("skipped = %v", m.Skipped)
	}
	if !strings.Contains(dump(t, m), "; bad skipped: errors") {
		t.Fatalf("dump should mention skipped functions")
	}
}

func TestRemoveUnreachable(t *testing.T) {
	in := types.NewInterner(nil)
	f := &ir.Func{
		Name:  "f",
		Entry: 0,
		Blocks: []ir.Block{
			{ID: 0, Instrs: []ir.Instr{{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 2}}}},
			{ID: 1, Instrs: []ir.Instr{constInt(1, in), {Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 2}}}},
			{ID: 2, Instrs: []ir.Instr{
				{Kind: ir.InstrPhi, Dest: 2, Type: in.Builtins().Int, Phi: ir.PhiInstr{Incoming: []ir.PhiEdge{{Block: 0, Value: 3}, {Block: 1, Value: 1}}}},
				ret(2),
			}},
		},
	}
	f.Blocks[0].Instrs = append([]ir.Instr{constInt(3, in)}, f.Blocks[0].Instrs...)
	ir.RemoveUnreachable(f)
	if len(f.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(f.Blocks))
	}
	if f.Blocks[1].ID != 1 {
		t.Fatalf("blocks were not renumbered")
	}
	if jmp := f.Blocks[0].Instrs[1]; jmp.Jump.Target != 1 {
		t.Fatalf("jump target = %s, want bb1", jmp.Jump.Target)
	}
	phi := f.Blocks[1].Instrs[0].Phi
	if len(phi.Incoming) != 1 || phi.Incoming[0].Block != 0 {
		t.Fatalf("phi edges = %v", phi.Incoming)
	}
	if err := ir.Validate(module(in, f), ir.ValidateOptions{}); err != nil {
		t.Fatalf("simplified function is invalid: %v", err)
	}
}

func TestFormatInstr(t *testing.T) {
	in := types.NewInterner(nil)
	cases := []struct {
		ins  ir.Instr
		want string
	}{
		{ir.Instr{Kind: ir.InstrJump, Jump: ir.JumpInstr{Target: 4}}, "jmp bb4"},
		{ir.Instr{Kind: ir.InstrReturn}, "ret"},
		{ir.Instr{Kind: ir.InstrConst, Dest: 2, Type: in.Builtins().String, Const: ir.ConstInstr{Kind: ir.ConstString, Text: "hi"}}, `%2 = const string "hi"`},
		{ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Addr: 1, Path: []ir.PathElem{{Field: "x"}}, Value: 3}}, "store %3 -> %1.x"},
		{ir.Instr{Kind: ir.InstrCall, Dest: 5, Call: ir.CallInstr{Callee: "f", Args: []ir.Value{1, 2}}}, "%5 = call @f(%1, %2)"},
	}
	for _, tc := range cases {
		if got := ir.FormatInstr(in, &tc.ins); got != tc.want {
			t.Errorf("FormatInstr = %q, want %q", got, tc.want)
		}
	}
}
