package diag

import (
	"testing"

	"lumen/internal/source"
)

func TestFormatShort(t *testing.T) {
	fs := source.NewFileSet()
	withText := fs.AddVirtual("main.lm", []byte("a\nb\n"))
	pathOnly := fs.AddPath("gen.lm")

	diags := []Diagnostic{
		NewError(SemaTypeMismatch, source.Span{File: withText, Start: 2, End: 3}, "second\nline").
			WithNote(source.Span{File: withText, Start: 0, End: 1}, "declared here"),
		NewError(SemaUndefinedVariable, source.Span{File: withText, Start: 0, End: 1}, "undefined variable \"x\""),
		New(SevWarning, IRInvalidSSA, source.Span{File: pathOnly}, "no position"),
	}

	want := "warning IRV5001 gen.lm no position\n" +
		"note SEM3001 main.lm:1:1 declared here\n" +
		"error SEM3002 main.lm:1:1 undefined variable \"x\"\n" +
		"error SEM3001 main.lm:2:1 second line"
	if got := FormatShort(diags, fs, true); got != want {
		t.Fatalf("unexpected output:\nwant:\n%s\n\ngot:\n%s", want, got)
	}
}

func TestBagLimitAndErrors(t *testing.T) {
	bag := NewBag(2)
	r := BagReporter{Bag: bag}
	r.Report(SemaInfo, SevInfo, source.Span{}, "a", nil)
	r.Report(SemaTypeMismatch, SevError, source.Span{}, "b", nil)
	r.Report(SemaTypeMismatch, SevError, source.Span{}, "c", nil)
	if bag.Len() != 2 || bag.Dropped() != 1 {
		t.Fatalf("expected 2 kept and 1 dropped, got %d/%d", bag.Len(), bag.Dropped())
	}
	if !bag.HasErrors() {
		t.Fatalf("expected errors")
	}
}

func TestBagDedupAndFilter(t *testing.T) {
	bag := NewBag(10)
	r := MultiReporter{BagReporter{Bag: bag}, nil, NopReporter{}}
	sp := source.Span{File: 0, Start: 1, End: 2}
	for n := 0; n < 3; n++ {
		r.Report(SemaUndefinedFunction, SevError, sp, "undefined function \"foo\"", nil)
	}
	r.Report(SemaUndefinedFunction, SevWarning, sp, "undefined function \"foo\"", nil)
	r.Report(SemaInfo, SevInfo, sp, "note", nil)

	bag.Dedup()
	if bag.Len() != 3 {
		t.Fatalf("expected 3 distinct diagnostics, got %d", bag.Len())
	}
	if !bag.HasWarnings() {
		t.Fatalf("expected warnings")
	}
	bag.Filter(func(d Diagnostic) bool { return d.Severity != SevWarning })
	if bag.Len() != 2 || !bag.HasErrors() {
		t.Fatalf("filter kept %d diagnostics", bag.Len())
	}

	infoOnly := NewBag(0)
	infoOnly.Add(New(SevInfo, SemaInfo, sp, "fyi"))
	if infoOnly.HasWarnings() {
		t.Fatalf("info is not a warning")
	}
}

func TestCodeIDs(t *testing.T) {
	cases := map[Code]string{
		SemaMissingReturn: "SEM3008",
		OwnBorrowEscape:   "OWN4001",
		IRInvalidType:     "IRV5004",
		CfgUnknownNode:    "CFG6001",
		UnknownCode:       "E0000",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d: want %s, got %s", code, want, got)
		}
	}
}
