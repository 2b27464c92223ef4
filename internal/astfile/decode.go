package astfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
)

// Encoding selects the document format.
type Encoding uint8

const (
	EncodingAuto Encoding = iota
	EncodingYAML
	EncodingMsgpack
)

// EncodingFor picks the encoding from a file extension; unknown extensions
// are treated as YAML.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".msgpack", ".mpk", ".lmp":
		return EncodingMsgpack
	default:
		return EncodingYAML
	}
}

// Options configure decoding. Nil fields get fresh instances.
type Options struct {
	Files    *source.FileSet
	Strings  *source.Interner
	Reporter diag.Reporter
	Encoding Encoding
}

// Program is a decoded document.
type Program struct {
	Builder *ast.Builder
	File    ast.FileID
	Source  source.FileID
	Files   *source.FileSet
	// SourcePath is the program path named by the document, if any.
	SourcePath string
}

var ErrEmptyDocument = errors.New("empty document")

// LoadFile reads and decodes the document at path.
func LoadFile(path string, opts Options) (*Program, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, data, opts)
}

// Decode decodes data as a program document. Malformed or unknown nodes are
// reported and skipped; an error is returned only when the document itself
// cannot be read.
func Decode(path string, data []byte, opts Options) (*Program, error) {
	if opts.Files == nil {
		opts.Files = source.NewFileSet()
	}
	if opts.Reporter == nil {
		opts.Reporter = diag.NopReporter{}
	}
	enc := opts.Encoding
	if enc == EncodingAuto {
		enc = EncodingFor(path)
	}

	var (
		root   *node
		fileID source.FileID
		err    error
	)
	switch enc {
	case EncodingMsgpack:
		fileID = opts.Files.AddPath(path)
		var v any
		if err = msgpack.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		root, err = fromValue(v, fileID)
	default:
		fileID = opts.Files.AddVirtual(path, data)
		file := opts.Files.Get(fileID)
		var doc yaml.Node
		err = yaml.NewDecoder(bytes.NewReader(file.Content)).Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode %s: %w", path, ErrEmptyDocument)
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		root, err = fromYAML(&doc, file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if root.isNull() {
		return nil, fmt.Errorf("decode %s: %w", path, ErrEmptyDocument)
	}

	d := &decoder{
		b:    ast.NewBuilder(ast.Hints{}, opts.Strings),
		rep:  opts.Reporter,
		file: fileID,
	}
	prog := &Program{Builder: d.b, Source: fileID, Files: opts.Files}
	items := root
	if root.kind == nodeMap {
		if src, ok := root.get("source"); ok {
			prog.SourcePath, _ = src.str()
		}
		var ok bool
		if items, ok = root.get("items"); !ok {
			return nil, fmt.Errorf("decode %s: document has no items", path)
		}
	}
	prog.File = d.b.NewFile(fileID, root.span)
	for _, id := range d.items(items) {
		d.b.PushItem(prog.File, id)
	}
	return prog, nil
}

// Transcode re-encodes a YAML document as msgpack. Positions are dropped.
func Transcode(yamlData []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(yamlData, &v); err != nil {
		return nil, fmt.Errorf("transcode: %w", err)
	}
	return msgpack.Marshal(v)
}

type decoder struct {
	b    *ast.Builder
	rep  diag.Reporter
	file source.FileID
}

// name interns an identifier in NFC so that differently composed spellings
// of the same name compare equal.
func (d *decoder) name(s string) source.StringID {
	return d.b.Name(norm.NFC.String(s))
}

func (d *decoder) unknown(n *node, context string) {
	d.rep.Report(diag.CfgUnknownNode, diag.SevWarning, n.span,
		fmt.Sprintf("unknown %s node %s, skipped", context, n.describe()), nil)
}

func (d *decoder) malformed(n *node, format string, args ...any) {
	d.rep.Report(diag.CfgMalformedNode, diag.SevError, d.spanOf(n), fmt.Sprintf(format, args...), nil)
}

// spanOf honours an explicit span: [start, end] and otherwise uses the
// document position.
func (d *decoder) spanOf(n *node) source.Span {
	if n == nil {
		return source.Span{File: d.file}
	}
	sp, ok := n.get("span")
	if !ok || sp.kind != nodeSeq || len(sp.items) != 2 {
		return n.span
	}
	var start, end uint32
	if _, err := fmt.Sscan(sp.items[0].text, &start); err != nil {
		return n.span
	}
	if _, err := fmt.Sscan(sp.items[1].text, &end); err != nil || end < start {
		return n.span
	}
	return source.Span{File: d.file, Start: start, End: end}
}

func (d *decoder) seq(n *node) []*node {
	switch {
	case n.isNull():
		return nil
	case n.kind == nodeSeq:
		return n.items
	}
	return []*node{n}
}

var itemKinds = []string{"fn", "struct", "enum", "type", "module"}

func (d *decoder) items(n *node) []ast.ItemID {
	var out []ast.ItemID
	for _, in := range d.seq(n) {
		if id, ok := d.item(in); ok {
			out = append(out, id)
		}
	}
	return out
}

func (d *decoder) item(n *node) (ast.ItemID, bool) {
	kind, head, ok := n.first(itemKinds...)
	if !ok {
		d.unknown(n, "item")
		return ast.NoItemID, false
	}
	text, ok := head.str()
	if !ok || text == "" {
		d.malformed(n, "%s item needs a name", kind)
		return ast.NoItemID, false
	}
	name := d.name(text)
	span := d.spanOf(n)
	items := d.b.Items
	switch kind {
	case "fn":
		fn := ast.FnItem{Async: d.flag(n, "async")}
		if params, ok := n.get("params"); ok {
			for _, p := range d.seq(params) {
				pname, ptype, pspan, ok := d.namedType(p)
				if !ok {
					continue
				}
				fn.Params = append(fn.Params, ast.FnParam{Name: pname, Type: ptype, Span: pspan})
			}
		}
		if ret, ok := n.get("returns"); ok && !ret.isNull() {
			fn.Result = d.typeExpr(ret)
		}
		if body, ok := n.get("body"); ok {
			fn.Body = d.block(body)
		}
		return items.NewFn(span, name, fn), true

	case "struct":
		var st ast.StructItem
		if params, ok := n.get("params"); ok {
			for _, p := range d.seq(params) {
				if s, ok := p.str(); ok {
					st.TypeParams = append(st.TypeParams, d.name(s))
				}
			}
		}
		if fields, ok := n.get("fields"); ok {
			for _, f := range d.fieldList(fields) {
				fname, ftype, fspan, ok := d.namedType(f)
				if !ok {
					continue
				}
				st.Fields = append(st.Fields, ast.StructField{Name: fname, Type: ftype, Span: fspan})
			}
		}
		return items.NewStruct(span, name, st), true

	case "enum":
		var en ast.EnumItem
		if variants, ok := n.get("variants"); ok {
			for _, v := range d.seq(variants) {
				if variant, ok := d.variant(v); ok {
					en.Variants = append(en.Variants, variant)
				}
			}
		}
		return items.NewEnum(span, name, en), true

	case "type":
		target, ok := n.get("target")
		if !ok {
			d.malformed(n, "type alias %s needs a target", text)
			return ast.NoItemID, false
		}
		return items.NewTypeAlias(span, name, d.typeExpr(target)), true

	default:
		body, _ := n.get("items")
		return items.NewModule(span, name, d.items(body)), true
	}
}

func (d *decoder) flag(n *node, key string) bool {
	v, ok := n.get(key)
	return ok && v.boolean()
}

// fieldList accepts both [{name, type}] lists and {name: type} maps.
func (d *decoder) fieldList(n *node) []*node {
	if n.kind != nodeMap {
		return d.seq(n)
	}
	out := make([]*node, len(n.keys))
	for i, k := range n.keys {
		out[i] = &node{kind: nodeMap, keys: []string{k}, vals: []*node{n.vals[i]}, span: n.vals[i].span}
	}
	return out
}

// namedType decodes {name: a, type: T} or the short form {a: T}.
func (d *decoder) namedType(n *node) (source.StringID, ast.TypeExprID, source.Span, bool) {
	if n.kind != nodeMap {
		d.malformed(n, "expected {name, type}, got %s", n.describe())
		return source.NoStringID, ast.NoTypeExprID, source.Span{}, false
	}
	if nameNode, ok := n.get("name"); ok {
		text, _ := nameNode.str()
		typeNode, ok := n.get("type")
		if text == "" || !ok {
			d.malformed(n, "expected {name, type}")
			return source.NoStringID, ast.NoTypeExprID, source.Span{}, false
		}
		return d.name(text), d.typeExpr(typeNode), d.spanOf(n), true
	}
	if len(n.keys) != 1 {
		d.malformed(n, "expected {name, type} or a single {name: type} pair")
		return source.NoStringID, ast.NoTypeExprID, source.Span{}, false
	}
	return d.name(n.keys[0]), d.typeExpr(n.vals[0]), d.spanOf(n), true
}

func (d *decoder) variant(n *node) (ast.EnumVariant, bool) {
	if s, ok := n.str(); ok {
		return ast.EnumVariant{Name: d.name(s), Span: n.span}, true
	}
	if n.kind != nodeMap {
		d.malformed(n, "expected an enum variant, got %s", n.describe())
		return ast.EnumVariant{}, false
	}
	var v ast.EnumVariant
	var payload *node
	if nameNode, ok := n.get("name"); ok {
		text, _ := nameNode.str()
		v.Name = d.name(text)
		payload, _ = n.get("payload")
	} else if len(n.keys) == 1 {
		v.Name = d.name(n.keys[0])
		payload = n.vals[0]
	} else {
		d.malformed(n, "expected {name, payload} variant")
		return ast.EnumVariant{}, false
	}
	v.Span = d.spanOf(n)
	for _, t := range d.seq(payload) {
		v.Payload = append(v.Payload, d.typeExpr(t))
	}
	return v, true
}

var typeForms = []string{"list", "map", "optional", "tuple", "fn", "path"}

func (d *decoder) typeExpr(n *node) ast.TypeExprID {
	span := d.spanOf(n)
	if text, ok := n.str(); ok {
		id, err := d.parseTypeString(text, span)
		if err != nil {
			d.malformed(n, "%v", err)
			return ast.NoTypeExprID
		}
		return id
	}
	kind, v, ok := n.first(typeForms...)
	if !ok {
		d.unknown(n, "type")
		return ast.NoTypeExprID
	}
	types := d.b.Types
	switch kind {
	case "list":
		return types.NewList(span, d.typeExpr(v))
	case "optional":
		return types.NewOptional(span, d.typeExpr(v))
	case "map":
		kv := d.seq(v)
		if len(kv) != 2 {
			d.malformed(n, "map type needs [key, value]")
			return ast.NoTypeExprID
		}
		return types.NewMap(span, d.typeExpr(kv[0]), d.typeExpr(kv[1]))
	case "tuple":
		return types.NewTuple(span, d.typeList(v))
	case "fn":
		result := ast.NoTypeExprID
		if r, ok := n.get("returns"); ok && !r.isNull() {
			result = d.typeExpr(r)
		}
		return types.NewFn(span, d.typeList(v), result)
	default:
		text, _ := v.str()
		var args []ast.TypeExprID
		if a, ok := n.get("args"); ok {
			args = d.typeList(a)
		}
		return types.NewPath(span, d.name(text), args)
	}
}

func (d *decoder) typeList(n *node) []ast.TypeExprID {
	var out []ast.TypeExprID
	for _, t := range d.seq(n) {
		out = append(out, d.typeExpr(t))
	}
	return out
}
