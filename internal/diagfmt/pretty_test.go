package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"lumen/internal/diag"
	"lumen/internal/source"
)

func oneDiag(t *testing.T, path, content string, start, end uint32) (*diag.Bag, *source.FileSet) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual(path, []byte(content))
	bag := diag.NewBag(10)
	d := diag.New(diag.SevError, diag.SemaUndefinedFunction,
		source.Span{File: id, Start: start, End: end}, "call to undefined function 'foo'")
	bag.Add(d.WithNote(source.Span{File: id, Start: start, End: end}, "declare foo first"))
	return bag, fs
}

func TestPrettySnippet(t *testing.T) {
	content := "items:\n  - {call: foo}\n"
	start := uint32(strings.Index(content, "foo"))
	bag, fs := oneDiag(t, "src/main.yaml", content, start, start+3)

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"error[SEM3003]: call to undefined function 'foo'",
		"  --> src/main.yaml:2:12",
		"   |",
		" 2 |   - {call: foo}",
		"   |            ^^^",
		"note: declare foo first",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestPrettyColor(t *testing.T) {
	bag, fs := oneDiag(t, "a.yaml", "x: 1\n", 0, 1)
	var plain, colored bytes.Buffer
	_ = Pretty(&plain, bag, fs, PrettyOpts{})
	_ = Pretty(&colored, bag, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("plain output has escape codes: %q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("colored output has no escape codes")
	}
}

func TestCaretRange(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		start, end int
		off, width int
	}{
		{"ascii", "let x = y", 5, 6, 4, 1},
		{"wide runes before", "名前 = foo", 10, 13, 7, 3},
		{"tab", "\tfoo", 2, 5, tabWidth, 3},
		{"empty span", "abc", 2, 2, 1, 1},
		{"past end", "ab", 5, 9, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, width := caretRange(tt.line, tt.start, tt.end)
			if off != tt.off || width != tt.width {
				t.Fatalf("caretRange = (%d, %d), want (%d, %d)", off, width, tt.off, tt.width)
			}
		})
	}
}

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/home/user/project/src/test.yaml", []byte("x: 1\n"))
	f := fs.Get(id)
	tests := []struct {
		mode PathMode
		base string
		want string
	}{
		{PathModeAbsolute, "", "/home/user/project/src/test.yaml"},
		{PathModeRelative, "/home/user/project", "src/test.yaml"},
		{PathModeBasename, "", "test.yaml"},
		{PathModeAuto, "/home/user/project", "src/test.yaml"},
	}
	for _, tt := range tests {
		if got := formatPath(f, tt.mode, tt.base); got != tt.want {
			t.Errorf("mode %d: got %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestPrettyMax(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("a.yaml", []byte("x: 1\n"))
	bag := diag.NewBag(10)
	for n := 0; n < 3; n++ {
		bag.Add(diag.NewError(diag.SemaTypeMismatch, source.Span{File: id}, "mismatch"))
	}
	var buf bytes.Buffer
	_ = Pretty(&buf, bag, fs, PrettyOpts{Max: 1})
	if c := strings.Count(buf.String(), "error[SEM3001]"); c != 1 {
		t.Fatalf("printed %d diagnostics, want 1", c)
	}
	if !strings.Contains(buf.String(), "2 more diagnostic(s) not shown") {
		t.Fatalf("missing truncation notice:\n%s", buf.String())
	}
}
