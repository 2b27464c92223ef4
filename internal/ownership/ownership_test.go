package ownership_test

import (
	"testing"

	"lumen/internal/astfile"
	"lumen/internal/diag"
	"lumen/internal/ownership"
	"lumen/internal/sema"
	"lumen/internal/types"
)

type fixture struct {
	prog *astfile.Program
	sem  *sema.Result
	own  *ownership.Result
}

func resolve(t *testing.T, doc string) fixture {
	t.Helper()
	prog, err := astfile.Decode("own.yaml", []byte(doc), astfile.Options{})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sem := sema.Check(prog.Builder, prog.File, sema.Options{})
	if !sem.OK() {
		t.Fatalf("type errors: %v", sem.Errors)
	}
	return fixture{prog: prog, sem: sem, own: ownership.Resolve(prog.Builder, sem, ownership.Options{})}
}

// binding returns the last binding with the given name.
func (f fixture) binding(t *testing.T, name string) *sema.Binding {
	t.Helper()
	for i := len(f.sem.Bindings) - 1; i >= 0; i-- {
		b := &f.sem.Bindings[i]
		if f.prog.Builder.Lookup(b.Name) == name {
			return b
		}
	}
	t.Fatalf("no binding named %q", name)
	return nil
}

func (f fixture) codes() []diag.Code {
	out := make([]diag.Code, len(f.own.Issues))
	for i, is := range f.own.Issues {
		out[i] = is.Code
	}
	return out
}

func TestOwnershipString(t *testing.T) {
	lt := ownership.Lifetime{ID: 1}
	cases := []struct {
		o    ownership.Ownership
		want string
	}{
		{ownership.Owned(), "owned"},
		{ownership.Shared(), "shared"},
		{ownership.Copy(), "copy"},
		{ownership.Borrowed(lt), "&'l1"},
		{ownership.BorrowedMut(lt), "&mut 'l1"},
	}
	for _, tc := range cases {
		if got := tc.o.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestLifetimeOnlyOnBorrows(t *testing.T) {
	lt := ownership.Lifetime{ID: 3}
	for _, o := range []ownership.Ownership{ownership.Owned(), ownership.Shared(), ownership.Copy()} {
		if _, ok := o.Lifetime(); ok {
			t.Errorf("%s must not carry a lifetime", o)
		}
	}
	got, ok := ownership.BorrowedMut(lt).Lifetime()
	if !ok || got != lt {
		t.Fatalf("BorrowedMut lifetime = %v, %v", got, ok)
	}
}

func TestDefaultOwnership(t *testing.T) {
	in := types.NewInterner(nil)
	b := in.Builtins()
	cases := []struct {
		ty   types.TypeID
		want ownership.Kind
	}{
		{b.Bool, ownership.KindCopy},
		{b.Int, ownership.KindCopy},
		{b.Float, ownership.KindCopy},
		{b.Number, ownership.KindCopy},
		{b.String, ownership.KindOwned},
		{in.List(b.Int), ownership.KindOwned},
	}
	for _, tc := range cases {
		first := ownership.DefaultOwnership(in, tc.ty)
		if first.Kind != tc.want {
			t.Errorf("%s: got %s, want %s", types.Label(in, tc.ty), first.Kind, tc.want)
		}
		if again := ownership.DefaultOwnership(in, tc.ty); again != first {
			t.Errorf("%s: DefaultOwnership is not stable", types.Label(in, tc.ty))
		}
	}
}

func TestParamsAndLets(t *testing.T) {
	f := resolve(t, `
items:
  - fn: f
    params: {a: int, s: string, h: "Shared<string>"}
    body:
      - {let: x, value: a}
      - {let: t, value: s}
`)
	want := map[string]ownership.Kind{
		"a": ownership.KindCopy,
		"s": ownership.KindOwned,
		"h": ownership.KindShared,
		"x": ownership.KindCopy,
		"t": ownership.KindOwned,
	}
	for name, kind := range want {
		if got := f.own.Of(f.binding(t, name).ID).Kind; got != kind {
			t.Errorf("%s: got %s, want %s", name, got, kind)
		}
	}
	if len(f.own.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", f.own.Issues)
	}
}

func TestBorrowLet(t *testing.T) {
	f := resolve(t, `
items:
  - fn: f
    body:
      - {let: s, mut: true, value: {str: hi}}
      - {let: r, value: {ref: s}}
      - {let: m, value: {refmut: s}}
      - {let: r2, value: r}
`)
	s := f.binding(t, "s")
	r := f.own.Of(f.binding(t, "r").ID)
	if r.Kind != ownership.KindBorrowed {
		t.Fatalf("r is %s, want borrowed", r)
	}
	lt, _ := r.Lifetime()
	if lt.Scope != s.Scope {
		t.Fatalf("borrow of s should live in s's scope")
	}
	if m := f.own.Of(f.binding(t, "m").ID); m.Kind != ownership.KindBorrowedMut {
		t.Fatalf("m is %s, want borrowed-mut", m)
	}
	if r2 := f.own.Of(f.binding(t, "r2").ID); r2 != r {
		t.Fatalf("r2 = %s, want the same borrow as r (%s)", r2, r)
	}
	if len(f.own.Sites) != 2 {
		t.Fatalf("expected 2 borrow sites, got %d", len(f.own.Sites))
	}
	for _, site := range f.own.Sites {
		if site.Target != s.ID {
			t.Fatalf("site %v should target s", site)
		}
	}
	if f.own.Sites[0].Lifetime.ID == f.own.Sites[1].Lifetime.ID {
		t.Fatalf("each site needs a fresh lifetime")
	}
}

const workerFn = `
  - fn: worker
    params: {s: string}
    returns: int
    body:
      - return: 1
`

func TestSpawnSharesArguments(t *testing.T) {
	f := resolve(t, `
items:`+workerFn+`
  - fn: main
    body:
      - {let: s, value: {str: x}}
      - {let: n, value: 2}
      - spawn: {call: worker, args: [s]}
`)
	if got := f.own.Of(f.binding(t, "s").ID).Kind; got != ownership.KindShared {
		t.Fatalf("s is %s, want shared", got)
	}
	if got := f.own.Of(f.binding(t, "n").ID).Kind; got != ownership.KindCopy {
		t.Fatalf("n is %s, want copy", got)
	}
	codes := f.codes()
	if len(codes) != 1 || codes[0] != diag.OwnSharedAcrossJob {
		t.Fatalf("issues = %v, want one OWN4003", codes)
	}
	if f.own.HasErrors() {
		t.Fatalf("sharing is not an error")
	}
}

func TestBorrowEscapes(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"return ref to local", `
items:
  - fn: f
    returns: string
    body:
      - {let: x, value: {str: a}}
      - return: {ref: x}
`},
		{"return borrowed binding", `
items:
  - fn: f
    returns: string
    body:
      - {let: x, value: {str: a}}
      - {let: r, value: {ref: x}}
      - return: r
`},
		{"store into outer binding", `
items:
  - fn: f
    body:
      - {let: a, value: {str: a}}
      - {let: r, mut: true, value: {ref: a}}
      - block:
          - {let: b, value: {str: b}}
          - {assign: r, value: {ref: b}}
`},
		{"borrow passed to spawn", `
items:` + workerFn + `
  - fn: main
    body:
      - {let: s, value: {str: x}}
      - spawn: {call: worker, args: [{ref: s}]}
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := resolve(t, tc.doc)
			codes := f.codes()
			if len(codes) != 1 || codes[0] != diag.OwnBorrowEscape {
				t.Fatalf("issues = %v, want one OWN4001", codes)
			}
			if !f.own.HasErrors() {
				t.Fatalf("escape must mark the function failed")
			}
			if f.own.Issues[0].Severity != diag.SevError {
				t.Fatalf("escape must be an error")
			}
		})
	}
}

func TestBorrowWithinScopeIsFine(t *testing.T) {
	f := resolve(t, `
items:
  - fn: f
    body:
      - {let: a, value: {str: a}}
      - {let: r, mut: true, value: {ref: a}}
      - block:
          - {assign: r, value: {ref: a}}
`)
	if len(f.own.Issues) != 0 {
		t.Fatalf("unexpected issues: %v", f.codes())
	}
}

func TestBorrowOfTemporary(t *testing.T) {
	bag := diag.NewBag(10)
	prog, err := astfile.Decode("own.yaml", []byte(`
items:
  - fn: f
    body:
      - {let: r, value: {ref: {str: tmp}}}
`), astfile.Options{})
	if err != nil {
		t.Fatal(err)
	}
	sem := sema.Check(prog.Builder, prog.File, sema.Options{})
	own := ownership.Resolve(prog.Builder, sem, ownership.Options{Reporter: diag.BagReporter{Bag: bag}})
	if bag.Len() != 1 || bag.Items()[0].Code != diag.OwnBorrowOfTemp {
		t.Fatalf("expected one OWN4002, got %v", bag.Items())
	}
	if own.HasErrors() {
		t.Fatalf("borrowing a temporary is only a warning")
	}
}
