package astfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/ast"
	"lumen/internal/astfile"
	"lumen/internal/diag"
)

const addDoc = `
source: add.lm
items:
  - fn: add
    params: [{name: a, type: number}, {name: b, type: number}]
    returns: number
    body:
      - return: {op: "+", args: [a, b]}
`

func decode(t *testing.T, doc string) (*astfile.Program, *diag.Bag) {
	t.Helper()
	bag := diag.NewBag(100)
	prog, err := astfile.Decode("test.yaml", []byte(doc), astfile.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.NoError(t, err)
	return prog, bag
}

func TestDecodeFunction(t *testing.T) {
	prog, bag := decode(t, addDoc)
	require.Equal(t, 0, bag.Len())
	assert.Equal(t, "add.lm", prog.SourcePath)

	b := prog.Builder
	file := b.Files.Get(prog.File)
	require.Len(t, file.Items, 1)

	item := b.Items.Get(file.Items[0])
	assert.Equal(t, ast.ItemFn, item.Kind)
	assert.Equal(t, "add", b.Lookup(item.Name))

	fn, ok := b.Items.Fn(file.Items[0])
	require.True(t, ok)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "b", b.Lookup(fn.Params[1].Name))
	assert.True(t, fn.Result.IsValid())

	body, ok := b.Stmts.Block(fn.Body)
	require.True(t, ok)
	require.Len(t, body.Stmts, 1)
	ret, ok := b.Stmts.Return(body.Stmts[0])
	require.True(t, ok)
	bin, ok := b.Exprs.Binary(ret.Value)
	require.True(t, ok)
	assert.Equal(t, ast.BinaryAdd, bin.Op)
}

func TestDecodeSpansPointIntoDocument(t *testing.T) {
	prog, _ := decode(t, addDoc)
	b := prog.Builder
	file := b.Files.Get(prog.File)
	fn, _ := b.Items.Fn(file.Items[0])
	body, _ := b.Stmts.Block(fn.Body)
	ret, _ := b.Stmts.Return(body.Stmts[0])

	span := b.Exprs.Get(ret.Value).Span
	start, _, ok := prog.Files.Resolve(span)
	require.True(t, ok)
	assert.Equal(t, uint32(8), start.Line)
}

func TestDecodeTypeSyntax(t *testing.T) {
	doc := `
items:
  - struct: Bag
    params: [T]
    fields:
      items: "[T]"
      index: "{string: int}"
      pair: "(int, bool)"
      next: "Bag<T>?"
      cb: "fn(int) -> bool"
`
	prog, bag := decode(t, doc)
	require.Equal(t, 0, bag.Len())
	b := prog.Builder
	st, ok := b.Items.Struct(b.Files.Get(prog.File).Items[0])
	require.True(t, ok)
	require.Len(t, st.Fields, 5)

	kinds := make([]ast.TypeExprKind, len(st.Fields))
	for i, f := range st.Fields {
		kinds[i] = b.Types.Get(f.Type).Kind
	}
	assert.Equal(t, []ast.TypeExprKind{ast.TypeList, ast.TypeMap, ast.TypeTuple, ast.TypeOptional, ast.TypeFn}, kinds)

	next := b.Types.Get(st.Fields[3].Type)
	inner := b.Types.Get(next.Elems[0])
	assert.Equal(t, "Bag", b.Lookup(inner.Name))
	assert.Len(t, inner.Elems, 1)
}

func TestDecodeStatementsAndPatterns(t *testing.T) {
	doc := `
items:
  - enum: Shape
    variants: [Empty, {Circle: [number]}]
  - fn: area
    params: [{s: Shape}]
    returns: number
    body:
      - let: total
        mut: true
        value: 0
      - match: s
        arms:
          - pattern: Shape.Empty
            body: [return: 0]
          - pattern: {variant: Circle, bind: [r]}
            body:
              - return: {op: "*", args: [r, r]}
      - if: {op: ">", args: [total, 1]}
        then: [return: total]
        else:
          if: true
          then: [return: 1.5]
      - return
`
	prog, bag := decode(t, doc)
	require.Equal(t, 0, bag.Len(), "%v", bag.Items())
	b := prog.Builder
	items := b.Files.Get(prog.File).Items
	require.Len(t, items, 2)

	en, ok := b.Items.Enum(items[0])
	require.True(t, ok)
	require.Len(t, en.Variants, 2)
	assert.Len(t, en.Variants[1].Payload, 1)

	fn, _ := b.Items.Fn(items[1])
	body, _ := b.Stmts.Block(fn.Body)
	require.Len(t, body.Stmts, 4)

	let, ok := b.Stmts.Let(body.Stmts[0])
	require.True(t, ok)
	assert.True(t, let.Mut)

	match, ok := b.Stmts.Match(body.Stmts[1])
	require.True(t, ok)
	require.Len(t, match.Arms, 2)
	first := b.Patterns.Get(match.Arms[0].Pattern)
	assert.Equal(t, ast.PatVariant, first.Kind)
	assert.Equal(t, "Shape", b.Lookup(first.Enum))
	second := b.Patterns.Get(match.Arms[1].Pattern)
	assert.Equal(t, []string{"r"}, []string{b.Lookup(second.Binds[0])})

	ifs, ok := b.Stmts.If(body.Stmts[2])
	require.True(t, ok)
	_, nested := b.Stmts.If(ifs.Else)
	assert.True(t, nested)

	ret, ok := b.Stmts.Return(body.Stmts[3])
	require.True(t, ok)
	assert.False(t, ret.Value.IsValid())
}

func TestUnknownNodesAreReportedAndSkipped(t *testing.T) {
	doc := `
items:
  - class: Nope
  - fn: main
    body:
      - {yield: 1}
      - {call: print, args: [{str: hi}]}
`
	prog, bag := decode(t, doc)
	require.Equal(t, 2, bag.Len())
	for _, d := range bag.Items() {
		assert.Equal(t, diag.CfgUnknownNode, d.Code)
	}
	items := prog.Builder.Files.Get(prog.File).Items
	require.Len(t, items, 1)
	fn, _ := prog.Builder.Items.Fn(items[0])
	body, _ := prog.Builder.Stmts.Block(fn.Body)
	assert.Len(t, body.Stmts, 1)
}

func TestMalformedTypeIsReported(t *testing.T) {
	doc := `
items:
  - type: Broken
    target: "[number"
`
	_, bag := decode(t, doc)
	require.Equal(t, 1, bag.Len())
	assert.Equal(t, diag.CfgMalformedNode, bag.Items()[0].Code)
}

func TestIdentifiersAreNFCNormalised(t *testing.T) {
	doc := "items:\n  - fn: \"cafe\u0301\"\n"
	prog, _ := decode(t, doc)
	item := prog.Builder.Items.Get(prog.Builder.Files.Get(prog.File).Items[0])
	assert.Equal(t, "caf\u00e9", prog.Builder.Lookup(item.Name))
}

func TestMsgpackMatchesYAML(t *testing.T) {
	packed, err := astfile.Transcode([]byte(addDoc))
	require.NoError(t, err)

	prog, err := astfile.Decode("add.msgpack", packed, astfile.Options{})
	require.NoError(t, err)
	b := prog.Builder
	items := b.Files.Get(prog.File).Items
	require.Len(t, items, 1)
	fn, ok := b.Items.Fn(items[0])
	require.True(t, ok)
	assert.Len(t, fn.Params, 2)
	assert.Equal(t, "a", b.Lookup(fn.Params[0].Name))

	_, _, resolved := prog.Files.Resolve(b.Items.Get(items[0]).Span)
	assert.False(t, resolved, "msgpack documents carry no positions")
}

func TestDecodeErrors(t *testing.T) {
	_, err := astfile.Decode("x.yaml", []byte("items: [\n"), astfile.Options{})
	assert.Error(t, err)

	_, err = astfile.Decode("x.yaml", []byte(""), astfile.Options{})
	assert.ErrorIs(t, err, astfile.ErrEmptyDocument)

	_, err = astfile.Decode("x.yaml", []byte("name: nothing"), astfile.Options{})
	assert.Error(t, err)
}
