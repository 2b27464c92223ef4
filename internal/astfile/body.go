package astfile

import (
	"strconv"
	"strings"

	"lumen/internal/ast"
	"lumen/internal/source"
)

// block decodes a statement list into a Block statement. A single map is
// accepted as a one-statement block.
func (d *decoder) block(n *node) ast.StmtID {
	var stmts []ast.StmtID
	for _, s := range d.seq(n) {
		if id := d.stmt(s); id.IsValid() {
			stmts = append(stmts, id)
		}
	}
	return d.b.Stmts.NewBlock(d.spanOf(n), stmts)
}

var stmtKinds = []string{"let", "return", "expr", "if", "while", "for", "match", "block"}

func (d *decoder) stmt(n *node) ast.StmtID {
	span := d.spanOf(n)
	stmts := d.b.Stmts
	if text, ok := n.str(); ok && text == "return" && n.scalar == scalarString {
		return stmts.NewReturn(span, ast.NoExprID)
	}
	kind, v, ok := n.first(stmtKinds...)
	if !ok {
		if e := d.expr(n); e.IsValid() {
			return stmts.NewExpr(span, e)
		}
		return ast.NoStmtID
	}
	switch kind {
	case "let":
		text, _ := v.str()
		if text == "" {
			d.malformed(n, "let needs a name")
			return ast.NoStmtID
		}
		let := ast.LetStmt{Name: d.name(text), Mut: d.flag(n, "mut")}
		if t, ok := n.get("type"); ok && !t.isNull() {
			let.Type = d.typeExpr(t)
		}
		if val, ok := n.get("value"); ok {
			let.Value = d.expr(val)
		}
		return stmts.NewLet(span, let)

	case "return":
		if v.isNull() {
			return stmts.NewReturn(span, ast.NoExprID)
		}
		return stmts.NewReturn(span, d.expr(v))

	case "expr":
		e := d.expr(v)
		if !e.IsValid() {
			return ast.NoStmtID
		}
		return stmts.NewExpr(span, e)

	case "if":
		return d.ifStmt(n, v, span)

	case "while":
		body, _ := n.get("do")
		return stmts.NewWhile(span, d.expr(v), d.block(body))

	case "for":
		text, _ := v.str()
		iter, ok := n.get("in")
		if text == "" || !ok {
			d.malformed(n, "for needs a binding and an 'in' iterable")
			return ast.NoStmtID
		}
		body, _ := n.get("do")
		return stmts.NewFor(span, d.name(text), d.expr(iter), d.block(body))

	case "match":
		var arms []ast.MatchArm
		list, _ := n.get("arms")
		for _, a := range d.seq(list) {
			pat, ok := a.get("pattern")
			if !ok {
				d.malformed(a, "match arm needs a pattern")
				continue
			}
			body, _ := a.get("body")
			arms = append(arms, ast.MatchArm{Pattern: d.pattern(pat), Body: d.block(body), Span: d.spanOf(a)})
		}
		return stmts.NewMatch(span, d.expr(v), arms)

	default:
		return d.block(v)
	}
}

func (d *decoder) ifStmt(n, cond *node, span source.Span) ast.StmtID {
	then, _ := n.get("then")
	els := ast.NoStmtID
	if e, ok := n.get("else"); ok && !e.isNull() {
		if _, isIf := e.get("if"); isIf {
			els = d.stmt(e)
		} else {
			els = d.block(e)
		}
	}
	return d.b.Stmts.NewIf(span, d.expr(cond), d.block(then), els)
}

var exprKinds = []string{
	"str", "int", "float", "op", "ref", "refmut", "await", "call", "spawn",
	"member", "index", "struct", "list", "map", "tuple", "assign", "group",
}

var unaryOps = map[string]ast.UnaryOp{
	"-":   ast.UnaryNeg,
	"!":   ast.UnaryNot,
	"not": ast.UnaryNot,
}

func (d *decoder) expr(n *node) ast.ExprID {
	span := d.spanOf(n)
	exprs := d.b.Exprs
	switch {
	case n.isNull():
		return exprs.NewLiteral(span, ast.LitNull, source.NoStringID)
	case n.kind == nodeScalar:
		switch n.scalar {
		case scalarInt:
			return exprs.NewLiteral(span, ast.LitInt, d.b.Name(n.text))
		case scalarFloat:
			return exprs.NewLiteral(span, ast.LitFloat, d.b.Name(n.text))
		case scalarBool:
			return exprs.NewLiteral(span, ast.LitBool, d.b.Name(strconv.FormatBool(n.boolean())))
		}
		return d.path(n.text, span)
	case n.kind == nodeSeq:
		d.unknown(n, "expression")
		return ast.NoExprID
	}

	kind, v, ok := n.first(exprKinds...)
	if !ok {
		d.unknown(n, "expression")
		return ast.NoExprID
	}
	switch kind {
	case "str":
		text, _ := v.str()
		return exprs.NewLiteral(span, ast.LitString, d.b.Name(text))
	case "int":
		text, _ := v.str()
		return exprs.NewLiteral(span, ast.LitInt, d.b.Name(text))
	case "float":
		text, _ := v.str()
		return exprs.NewLiteral(span, ast.LitFloat, d.b.Name(text))

	case "op":
		text, _ := v.str()
		args, _ := n.get("args")
		operands := d.seq(args)
		switch len(operands) {
		case 1:
			op, ok := unaryOps[text]
			if !ok {
				d.malformed(n, "unknown unary operator %q", text)
				return ast.NoExprID
			}
			return exprs.NewUnary(span, op, d.expr(operands[0]))
		case 2:
			op, ok := ast.ParseBinaryOp(text)
			if !ok {
				d.malformed(n, "unknown binary operator %q", text)
				return ast.NoExprID
			}
			return exprs.NewBinary(span, op, d.expr(operands[0]), d.expr(operands[1]))
		}
		d.malformed(n, "operator %q needs one or two args, got %d", text, len(operands))
		return ast.NoExprID

	case "ref":
		return exprs.NewUnary(span, ast.UnaryRef, d.expr(v))
	case "refmut":
		return exprs.NewUnary(span, ast.UnaryRefMut, d.expr(v))
	case "await":
		return exprs.NewUnary(span, ast.UnaryAwait, d.expr(v))

	case "call":
		var args []ast.ExprID
		if a, ok := n.get("args"); ok {
			for _, arg := range d.seq(a) {
				args = append(args, d.expr(arg))
			}
		}
		return exprs.NewCall(span, d.expr(v), args)

	case "spawn":
		return exprs.NewSpawn(span, d.expr(v))

	case "member":
		field, _ := n.get("field")
		text, _ := field.str()
		return exprs.NewMember(span, d.expr(v), d.name(text))

	case "index":
		at, _ := n.get("at")
		return exprs.NewIndex(span, d.expr(v), d.expr(at))

	case "struct":
		text, _ := v.str()
		var fields []ast.StructLitField
		if f, ok := n.get("fields"); ok {
			for _, pair := range d.pairs(f) {
				fname, _ := pair[0].str()
				fields = append(fields, ast.StructLitField{
					Name:  d.name(fname),
					Value: d.expr(pair[1]),
					Span:  pair[1].span,
				})
			}
		}
		return exprs.NewStruct(span, d.name(text), fields)

	case "list":
		var elems []ast.ExprID
		for _, e := range d.seq(v) {
			elems = append(elems, d.expr(e))
		}
		return exprs.NewList(span, elems)

	case "map":
		var entries []ast.MapEntry
		for _, pair := range d.pairs(v) {
			entries = append(entries, ast.MapEntry{Key: d.expr(pair[0]), Value: d.expr(pair[1])})
		}
		return exprs.NewMap(span, entries)

	case "tuple":
		var elems []ast.ExprID
		for _, e := range d.seq(v) {
			elems = append(elems, d.expr(e))
		}
		return exprs.NewTuple(span, elems)

	case "assign":
		value, _ := n.get("value")
		return exprs.NewAssign(span, d.expr(v), d.expr(value))

	default:
		return exprs.NewGroup(span, d.expr(v))
	}
}

// pairs accepts [[k, v], ...] lists and plain maps; map keys become
// string scalars.
func (d *decoder) pairs(n *node) [][2]*node {
	var out [][2]*node
	if n.kind == nodeMap {
		for i, k := range n.keys {
			key := &node{kind: nodeScalar, text: k, span: n.vals[i].span}
			out = append(out, [2]*node{key, n.vals[i]})
		}
		return out
	}
	for _, p := range d.seq(n) {
		if p.kind != nodeSeq || len(p.items) != 2 {
			d.malformed(p, "expected a [key, value] pair, got %s", p.describe())
			continue
		}
		out = append(out, [2]*node{p.items[0], p.items[1]})
	}
	return out
}

// path turns "a.b.c" into member accesses on identifier a.
func (d *decoder) path(text string, span source.Span) ast.ExprID {
	exprs := d.b.Exprs
	segs := strings.Split(text, ".")
	id := exprs.NewIdent(span, d.name(segs[0]))
	for _, s := range segs[1:] {
		id = exprs.NewMember(span, id, d.name(s))
	}
	return id
}

func (d *decoder) pattern(n *node) ast.PatternID {
	span := d.spanOf(n)
	pats := d.b.Patterns
	if n.kind == nodeScalar && n.scalar == scalarString {
		switch {
		case n.text == "_":
			return pats.NewWildcard(span)
		case strings.Contains(n.text, "."):
			i := strings.LastIndex(n.text, ".")
			return pats.NewVariant(span, d.name(n.text[:i]), d.name(n.text[i+1:]), nil)
		}
		return pats.NewBinding(span, d.name(n.text))
	}
	if n.kind != nodeMap {
		return pats.NewLiteral(span, d.expr(n))
	}
	if lit, ok := n.get("lit"); ok {
		return pats.NewLiteral(span, d.expr(lit))
	}
	v, ok := n.get("variant")
	if !ok {
		d.unknown(n, "pattern")
		return pats.NewWildcard(span)
	}
	text, _ := v.str()
	enum := source.NoStringID
	if e, ok := n.get("enum"); ok {
		s, _ := e.str()
		enum = d.name(s)
	}
	var binds []source.StringID
	if b, ok := n.get("bind"); ok {
		for _, name := range d.seq(b) {
			s, _ := name.str()
			binds = append(binds, d.name(s))
		}
	}
	return pats.NewVariant(span, enum, d.name(text), binds)
}
