package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"lumen/internal/diag"
	"lumen/internal/source"
)

func TestJSONBasic(t *testing.T) {
	bag, fs := oneDiag(t, "dir/test.yaml", "items:\n  - {call: foo}\n", 18, 21)

	var buf bytes.Buffer
	err := JSON(&buf, bag, fs, JSONOpts{IncludePositions: true, PathMode: PathModeBasename, IncludeNotes: true})
	if err != nil {
		t.Fatalf("JSON() error: %v", err)
	}

	// Парсим JSON чтобы убедиться что он валидный
	var output DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &output); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, buf.String())
	}
	if output.Count != 1 || len(output.Diagnostics) != 1 {
		t.Fatalf("count = %d, diagnostics = %d", output.Count, len(output.Diagnostics))
	}
	d := output.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "SEM3003" || d.Title != "Undefined function" {
		t.Errorf("unexpected header %+v", d)
	}
	loc := d.Location
	if loc.File != "test.yaml" || loc.StartLine != 2 || loc.StartCol != 12 || loc.EndCol != 15 {
		t.Errorf("unexpected location %+v", loc)
	}
	if len(d.Notes) != 1 || d.Notes[0].Message != "declare foo first" {
		t.Errorf("notes = %+v", d.Notes)
	}
}

func TestJSONWithoutPositions(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddPath("doc.msgpack")
	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.IRInvalidSSA, source.Span{File: id, Start: 4, End: 9}, "value %1 is assigned more than once"))
	bag.Add(diag.NewError(diag.IRInvalidSSA, source.Span{File: id}, "second"))

	out := BuildDiagnosticsOutput(bag, fs, JSONOpts{IncludePositions: true, Max: 1})
	if out.Count != 1 || out.Dropped != 1 {
		t.Fatalf("count/dropped = %d/%d", out.Count, out.Dropped)
	}
	loc := out.Diagnostics[0].Location
	if loc.StartLine != 0 || loc.StartByte != 4 || loc.EndByte != 9 {
		t.Fatalf("file without text must keep byte offsets only: %+v", loc)
	}
	if out.Diagnostics[0].Notes != nil {
		t.Fatalf("notes are opt-in")
	}
}
