package ui_test

import (
	"strings"
	"testing"

	"lumen/internal/ui"
)

func TestRenderPlain(t *testing.T) {
	tbl := ui.Table{
		Headers: []string{"binding", "type", "ownership"},
		Rows: [][]string{
			{"a", "number", "copy"},
			{"s", "string", "owned"},
			{"r", "string", "&'l1"},
		},
		Status: 2,
	}
	want := strings.Join([]string{
		"binding  type    ownership",
		"a        number  copy",
		"s        string  owned",
		"r        string  &'l1",
		"",
	}, "\n")
	if got := tbl.Render(0, false); got != want {
		t.Fatalf("got:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderTruncatesLastColumn(t *testing.T) {
	tbl := ui.Table{
		Headers: []string{"fn", "note"},
		Rows:    [][]string{{"main", "a very long explanation"}},
		Status:  -1,
	}
	out := tbl.Render(16, false)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if len(line) > 16 {
			t.Fatalf("line %q is wider than 16", line)
		}
	}
	if !strings.Contains(out, "...") {
		t.Fatalf("expected truncation marker in %q", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 6, "abc..."},
		{"abcdefgh", 2, "ab"},
		{"名前名前", 5, "名..."},
		{"anything", 0, "anything"},
	}
	for _, tt := range tests {
		if got := ui.Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
