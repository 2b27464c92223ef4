package project_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lumen/internal/project"
	"lumen/internal/trace"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, project.ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeManifest(t, root, "[package]\nname = \"demo\"\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := project.FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest: %v, ok=%v", err, ok)
	}
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	dir, ok, err := project.FindProjectRoot(nested)
	if err != nil || !ok || dir != root {
		t.Fatalf("FindProjectRoot = %s, %v, %v", dir, ok, err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[package]
name = "demo"

[check]
jobs = 4
whole_function_ssa = true

[output]
target = "zig"

[trace]
level = "phase"
output = "trace.ndjson"
`)
	cfg, err := project.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Package.Name != "demo" || cfg.Check.Jobs != 4 || !cfg.Check.WholeFunctionSSA {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Check.MaxDiagnostics != 100 {
		t.Fatalf("max_diagnostics should keep its default, got %d", cfg.Check.MaxDiagnostics)
	}
	if cfg.Output.Target != "zig" || cfg.TraceLevel() != trace.LevelPhase {
		t.Fatalf("output/trace = %q/%s", cfg.Output.Target, cfg.TraceLevel())
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"no package", "[check]\njobs = 1\n", "missing [package]"},
		{"no name", "[package]\n", "missing [package].name"},
		{"bad target", "[package]\nname = \"x\"\n[output]\ntarget = \"go\"\n", "not one of rust|c|zig"},
		{"bad level", "[package]\nname = \"x\"\n[trace]\nlevel = \"loud\"\n", "[trace].level"},
		{"unknown key", "[package]\nname = \"x\"\n[check]\nfast = true\n", "unknown keys: check.fast"},
		{"not toml", "[package\n", "failed to parse TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.body)
			_, err := project.LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadManifestMissing(t *testing.T) {
	m, ok, err := project.LoadManifest(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	// a lumen.toml above the temp dir would be picked up; only assert shape
	if !ok && m != nil {
		t.Fatalf("manifest without ok")
	}
}

func TestDigest(t *testing.T) {
	a := project.HashBytes([]byte("items: []"))
	b := project.HashBytes([]byte("items: []"))
	if a != b || a.IsZero() {
		t.Fatalf("HashBytes must be stable and non-zero")
	}
	if project.Combine(a, []byte{1}) == project.Combine(a, []byte{2}) {
		t.Fatalf("Combine must depend on its parts")
	}
	if len(a.String()) != 64 {
		t.Fatalf("hex digest has length %d", len(a.String()))
	}
}
