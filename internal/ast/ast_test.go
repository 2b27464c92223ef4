package ast_test

import (
	"testing"

	"lumen/internal/ast"
	"lumen/internal/source"
)

func TestArenaIsOneBased(t *testing.T) {
	a := ast.NewArena[int](0)
	if a.Get(0) != nil {
		t.Fatalf("index 0 must be empty")
	}
	id := a.Allocate(42)
	if id != 1 || *a.Get(id) != 42 {
		t.Fatalf("got id=%d value=%v", id, a.Get(id))
	}
	if a.Get(2) != nil {
		t.Fatalf("out of range index must be nil")
	}
}

func TestBuilderKindChecks(t *testing.T) {
	b := ast.NewBuilder(ast.Hints{}, nil)
	x := b.Exprs.NewIdent(source.Span{}, b.Name("x"))
	one := b.Exprs.NewLiteral(source.Span{}, ast.LitInt, b.Name("1"))
	sum := b.Exprs.NewBinary(source.Span{}, ast.BinaryAdd, x, one)
	grp := b.Exprs.NewGroup(source.Span{}, b.Exprs.NewGroup(source.Span{}, sum))

	if _, ok := b.Exprs.Ident(sum); ok {
		t.Errorf("binary must not decode as ident")
	}
	bin, ok := b.Exprs.Binary(sum)
	if !ok || bin.Op != ast.BinaryAdd || bin.Left != x {
		t.Fatalf("unexpected binary payload: %+v", bin)
	}
	if got := b.Exprs.Unparen(grp); got != sum {
		t.Errorf("Unparen = %d, want %d", got, sum)
	}
	if kids := b.Exprs.Children(nil, sum); len(kids) != 2 || kids[1] != one {
		t.Errorf("Children = %v", kids)
	}
	if b.Lookup(b.Exprs.Literals.Get(1).Value) != "1" {
		t.Errorf("literal text lost")
	}
}

func TestBinaryOpText(t *testing.T) {
	for _, text := range []string{"+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=", "&&", "||"} {
		op, ok := ast.ParseBinaryOp(text)
		if !ok || op.String() != text {
			t.Errorf("ParseBinaryOp(%q) = %v, %v", text, op, ok)
		}
	}
	if _, ok := ast.ParseBinaryOp("<<"); ok {
		t.Errorf("unexpected operator accepted")
	}
}
