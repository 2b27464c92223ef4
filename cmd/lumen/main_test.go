package main

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"lumen/internal/diag"
	"lumen/internal/driver"
	"lumen/internal/source"
	"lumen/internal/project"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("lumen", pflag.ContinueOnError)
	fs.Int("max-diagnostics", 100, "")
	fs.Int("jobs", 0, "")
	fs.Bool("cache", false, "")
	fs.Bool("whole-function-ssa", false, "")
	fs.String("trace", "", "")
	fs.String("trace-level", "off", "")
	return fs
}

func TestApplyFlagsOverridesOnlyChanged(t *testing.T) {
	cfg := project.DefaultConfig()
	cfg.Check.Jobs = 3
	cfg.Check.Cache = true

	fs := testFlags()
	if err := fs.Parse([]string{"--max-diagnostics=5", "--whole-function-ssa", "--trace=out.ndjson"}); err != nil {
		t.Fatal(err)
	}
	if err := applyFlags(fs, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Check.MaxDiagnostics != 5 || !cfg.Check.WholeFunctionSSA {
		t.Errorf("flags not applied: %+v", cfg.Check)
	}
	if cfg.Check.Jobs != 3 || !cfg.Check.Cache {
		t.Errorf("unset flags must keep manifest values: %+v", cfg.Check)
	}
	if cfg.Trace.Output != "out.ndjson" || cfg.Trace.Level != "phase" {
		t.Errorf("trace = %+v, want output with phase level", cfg.Trace)
	}
}

func TestResolveColor(t *testing.T) {
	tests := []struct {
		mode string
		tty  bool
		want bool
		err  bool
	}{
		{"auto", true, true, false},
		{"auto", false, false, false},
		{"on", false, true, false},
		{"OFF", true, false, false},
		{"sometimes", true, false, true},
	}
	for _, tt := range tests {
		got, err := resolveColor(tt.mode, tt.tty)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("resolveColor(%q, %t) = %t, %v", tt.mode, tt.tty, got, err)
		}
	}
}

const ownDoc = `
items:
  - fn: keep
    params: [{a: number}, {s: string}]
    returns: number
    body:
      - {let: t, value: s}
      - return: a
`

func TestOwnershipRows(t *testing.T) {
	res := driver.CheckFile(context.Background(), driver.FileInput{Path: "own.yaml", Data: []byte(ownDoc)}, driver.Options{})
	if res.HasErrors() {
		t.Fatalf("unexpected errors: %v", res.Bag.Items())
	}
	rows := ownershipRows(res)
	want := [][]string{
		{"keep", "a", "param", "number", "copy"},
		{"keep", "s", "param", "string", "owned"},
		{"keep", "t", "let", "string", "owned"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows: %v", len(rows), rows)
	}
	for i, w := range want {
		r := rows[i]
		got := []string{r[0], r[1], r[2], r[3], r[5]}
		if strings.Join(got, " ") != strings.Join(w, " ") {
			t.Errorf("row %d = %v, want %v", i, got, w)
		}
	}
}

func TestCheckSummary(t *testing.T) {
	ctx := context.Background()
	good := driver.CheckFile(ctx, driver.FileInput{Path: "a.yaml", Data: []byte(ownDoc)}, driver.Options{})
	bad := driver.CheckFile(ctx, driver.FileInput{Path: "b.yaml", Data: []byte("items:\n  - fn: main\n    body:\n      - {call: foo}\n")}, driver.Options{})
	got := checkSummary([]*driver.FileResult{good, bad})
	if got != "checked 2 file(s): 1 error(s), 0 warning(s)" {
		t.Fatalf("summary = %q", got)
	}
}

func TestWarningPolicy(t *testing.T) {
	res := driver.CheckFile(context.Background(), driver.FileInput{Path: "a.yaml", Data: []byte(ownDoc)}, driver.Options{})
	res.Bag.Add(diag.New(diag.SevWarning, diag.CfgCacheUnreadable, source.Span{}, "stale"))
	results := []*driver.FileResult{res}

	if checkFailed(results, false) {
		t.Fatalf("a warning alone must not fail the check")
	}
	if !checkFailed(results, true) {
		t.Fatalf("warnings-as-errors must fail on a warning")
	}
	dropWarnings(results)
	if res.Bag.HasWarnings() || checkFailed(results, true) {
		t.Fatalf("warnings left after dropWarnings: %v", res.Bag.Items())
	}
}
