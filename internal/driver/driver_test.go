package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/diag"
	"lumen/internal/driver"
	"lumen/internal/trace"
)

const addDoc = `
items:
  - fn: add
    params: [{a: number}, {b: number}]
    returns: number
    body:
      - return: {op: "+", args: [a, b]}
`

const badDoc = `
items:
  - fn: main
    body:
      - {call: foo}
`

func input(path, doc string) driver.FileInput {
	return driver.FileInput{Path: path, Data: []byte(doc)}
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestCheckFileValidProgram(t *testing.T) {
	res := driver.CheckFile(context.Background(), input("add.yaml", addDoc), driver.Options{})
	require.NoError(t, res.Err)
	assert.False(t, res.HasErrors())
	assert.Zero(t, res.Bag.Len())
	require.NotNil(t, res.Module)
	assert.NoError(t, res.Validation)
	assert.Equal(t, driver.Summary{Funcs: 1, Valid: true}, res.Summary())
	assert.NotNil(t, res.Module.Func("add"))
}

func TestCheckFileReportsUndefinedFunction(t *testing.T) {
	res := driver.CheckFile(context.Background(), input("bad.yaml", badDoc), driver.Options{})
	require.NoError(t, res.Err)
	assert.True(t, res.HasErrors())
	assert.Equal(t, []diag.Code{diag.SemaUndefinedFunction}, codes(res.Bag))
	assert.Equal(t, []string{"main"}, res.Summary().Skipped)
}

func TestCheckFileDecodeFailure(t *testing.T) {
	res := driver.CheckFile(context.Background(), input("empty.yaml", ""), driver.Options{})
	require.Error(t, res.Err)
	assert.True(t, res.HasErrors())
	assert.Equal(t, []diag.Code{diag.CfgDecodeFailed}, codes(res.Bag))
	assert.Nil(t, res.Module)
}

func TestCheckFilesKeepsOrder(t *testing.T) {
	inputs := []driver.FileInput{
		input("a.yaml", addDoc),
		input("b.yaml", badDoc),
		input("c.yaml", addDoc),
	}
	results, err := driver.CheckFiles(context.Background(), inputs, driver.Options{Jobs: 2})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, inputs[i].Path, r.Path)
	}
	assert.False(t, results[0].HasErrors())
	assert.True(t, results[1].HasErrors())
	assert.False(t, results[2].HasErrors())
	assert.NoError(t, driver.DecodeErrors(results))
}

func TestCheckFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := driver.CheckFiles(ctx, []driver.FileInput{input("a.yaml", addDoc)}, driver.Options{Jobs: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckFileTraces(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDebug)
	driver.CheckFile(context.Background(), input("add.yaml", addDoc), driver.Options{Tracer: ring})
	names := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		names[ev.Name] = true
	}
	for _, want := range []string{"check_file", "ownership", "lower", "validate"} {
		assert.True(t, names[want], "missing %s span", want)
	}
}

func TestCheckFileTracesDiagnostics(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	res := driver.CheckFile(context.Background(), input("bad.yaml", badDoc), driver.Options{Tracer: ring})
	require.True(t, res.HasErrors())

	var seen []string
	for _, ev := range ring.Snapshot() {
		if ev.Name == "diagnostic" {
			seen = append(seen, ev.Extra["code"])
			assert.Equal(t, "error", ev.Extra["severity"])
		}
	}
	assert.Equal(t, []string{diag.SemaUndefinedFunction.ID()}, seen)
	assert.Equal(t, 1, res.Bag.Len())
}

func TestDiskCacheReplay(t *testing.T) {
	cache, err := driver.NewDiskCache(t.TempDir())
	require.NoError(t, err)
	opts := driver.Options{Cache: cache}

	first := driver.CheckFile(context.Background(), input("bad.yaml", badDoc), opts)
	require.False(t, first.Cached)

	second := driver.CheckFile(context.Background(), input("bad.yaml", badDoc), opts)
	require.True(t, second.Cached)
	assert.Nil(t, second.Module)
	assert.Equal(t, codes(first.Bag), codes(second.Bag))
	assert.Equal(t, first.Bag.Items()[0].Primary, second.Bag.Items()[0].Primary)
	assert.Equal(t, first.Summary(), second.Summary())

	changed := driver.CheckFile(context.Background(), input("bad.yaml", badDoc+"\n"), opts)
	assert.False(t, changed.Cached, "different bytes must miss")

	strict := driver.CheckFile(context.Background(), input("bad.yaml", badDoc),
		driver.Options{Cache: cache, WholeFunctionSSA: true})
	assert.False(t, strict.Cached, "options are part of the key")
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	cache, err := driver.NewDiskCache(dir)
	require.NoError(t, err)
	opts := driver.Options{Cache: cache}
	driver.CheckFile(context.Background(), input("add.yaml", addDoc), opts)

	entries, err := filepath.Glob(filepath.Join(dir, "files", "*.mp"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(entries[0], []byte{0xc1}, 0o600))

	res := driver.CheckFile(context.Background(), input("add.yaml", addDoc), opts)
	assert.False(t, res.Cached)
	assert.Equal(t, []diag.Code{diag.CfgCacheUnreadable}, codes(res.Bag))
	assert.False(t, res.HasErrors())

	again := driver.CheckFile(context.Background(), input("add.yaml", addDoc), opts)
	assert.True(t, again.Cached, "the entry is rewritten after a bad read")
	assert.Zero(t, again.Bag.Len())

	require.NoError(t, cache.DropAll())
	dropped := driver.CheckFile(context.Background(), input("add.yaml", addDoc), opts)
	assert.False(t, dropped.Cached)
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, body string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	write("b.yaml", addDoc)
	write("sub/a.yml", addDoc)
	write("notes.txt", "ignored")
	write(".hidden/c.yaml", addDoc)

	inputs, err := driver.CollectInputs([]string{dir})
	require.NoError(t, err)
	var paths []string
	for _, in := range inputs {
		rel, err := filepath.Rel(dir, in.Path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"b.yaml", "sub/a.yml"}, paths)

	_, err = driver.CollectInputs([]string{filepath.Join(dir, "missing.yaml")})
	assert.Error(t, err)
}
