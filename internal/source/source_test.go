package source

import "testing"

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.lm", []byte("fn main() {\n  let x = 1;\n}\n"))

	start, end, ok := fs.Resolve(Span{File: id, Start: 18, End: 19})
	if !ok {
		t.Fatalf("expected span to resolve")
	}
	if start != (LineCol{Line: 2, Col: 7}) {
		t.Fatalf("unexpected start: %+v", start)
	}
	if end != (LineCol{Line: 2, Col: 8}) {
		t.Fatalf("unexpected end: %+v", end)
	}
	if got := fs.Get(id).GetLine(2); got != "  let x = 1;" {
		t.Fatalf("unexpected line text %q", got)
	}
}

func TestFileSetPathOnlyFilesDoNotResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddPath("gen/out.lm")
	if _, _, ok := fs.Resolve(Span{File: id, Start: 3, End: 4}); ok {
		t.Fatalf("path-only file must not resolve positions")
	}
	if _, _, ok := fs.Resolve(Span{File: 42}); ok {
		t.Fatalf("unknown file must not resolve positions")
	}
}

func TestFileSetNormalizesCRLFAndBOM(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("win.lm", []byte("\xEF\xBB\xBFa\r\nb\r\n"), 0)
	f := fs.Get(id)
	if string(f.Content) != "a\nb\n" {
		t.Fatalf("unexpected content %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected BOM and CRLF flags, got %b", f.Flags)
	}
	latest, ok := fs.GetLatest("win.lm")
	if !ok || latest != id {
		t.Fatalf("GetLatest mismatch: %d %v", latest, ok)
	}
}

func TestInternerRoundTrip(t *testing.T) {
	in := NewInterner()
	a := in.Intern("alpha")
	b := in.Intern("beta")
	if a == b || in.Intern("alpha") != a {
		t.Fatalf("interner must deduplicate")
	}
	if s, ok := in.Lookup(b); !ok || s != "beta" {
		t.Fatalf("lookup failed: %q %v", s, ok)
	}
	if _, ok := in.Lookup(StringID(99)); ok {
		t.Fatalf("unknown id must not resolve")
	}
	if id, ok := in.Find(""); !ok || id != NoStringID {
		t.Fatalf("empty string must map to NoStringID")
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 10, End: 20}
	b := Span{File: 1, Start: 5, End: 12}
	if got := a.Cover(b); got != (Span{File: 1, Start: 5, End: 20}) {
		t.Fatalf("unexpected cover %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 50}); got != a {
		t.Fatalf("cross-file cover must keep receiver, got %v", got)
	}
	if !a.Contains(Span{File: 1, Start: 11, End: 19}) {
		t.Fatalf("expected containment")
	}
}

func TestFileOffsetRoundTrip(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("main.lm", []byte("fn main() {\n  let x = 1;\n}\n"))
	f := fs.Get(id)
	if got := f.Offset(2, 7); got != 18 {
		t.Fatalf("Offset(2, 7) = %d, want 18", got)
	}
	if got := f.Offset(1, 1); got != 0 {
		t.Fatalf("Offset(1, 1) = %d, want 0", got)
	}
	if got := f.Offset(40, 1); got != uint32(len(f.Content)) {
		t.Fatalf("Offset past end = %d, want clamp to %d", got, len(f.Content))
	}
}
