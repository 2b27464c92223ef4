package astfile

import (
	"fmt"
	"strings"
	"unicode"

	"lumen/internal/ast"
	"lumen/internal/source"
)

// typeParser reads the compact type notation used in documents:
//
//	number  [T]  {K: V}  (A, B)  T?  Box<T>  fn(A, B) -> R  mod.Name
//
// Every produced TypeExpr carries the span of the whole string.
type typeParser struct {
	d    *decoder
	src  string
	pos  int
	span source.Span
}

func (d *decoder) parseTypeString(text string, span source.Span) (ast.TypeExprID, error) {
	p := &typeParser{d: d, src: text, span: span}
	id, err := p.parseType()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return ast.NoTypeExprID, fmt.Errorf("unexpected %q in type %q", p.src[p.pos:], text)
	}
	return id, nil
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeParser) accept(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) expect(tok string) error {
	if !p.accept(tok) {
		return fmt.Errorf("expected %q at offset %d in type %q", tok, p.pos, p.src)
	}
	return nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		r := rune(p.src[p.pos])
		if r >= 0x80 {
			// multi-byte identifier characters
			p.pos++
			continue
		}
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) parseType() (ast.TypeExprID, error) {
	id, err := p.parseBase()
	if err != nil {
		return ast.NoTypeExprID, err
	}
	for p.accept("?") {
		id = p.d.b.Types.NewOptional(p.span, id)
	}
	return id, nil
}

func (p *typeParser) list(closer string) ([]ast.TypeExprID, error) {
	var out []ast.TypeExprID
	if p.accept(closer) {
		return out, nil
	}
	for {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if p.accept(closer) {
			return out, nil
		}
		if err := p.expect(","); err != nil {
			return nil, err
		}
		if p.accept(closer) {
			return out, nil
		}
	}
}

func (p *typeParser) parseBase() (ast.TypeExprID, error) {
	types := p.d.b.Types
	switch {
	case p.accept("["):
		elem, err := p.parseType()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		if err := p.expect("]"); err != nil {
			return ast.NoTypeExprID, err
		}
		return types.NewList(p.span, elem), nil

	case p.accept("{"):
		key, err := p.parseType()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		if err := p.expect(":"); err != nil {
			return ast.NoTypeExprID, err
		}
		val, err := p.parseType()
		if err != nil {
			return ast.NoTypeExprID, err
		}
		if err := p.expect("}"); err != nil {
			return ast.NoTypeExprID, err
		}
		return types.NewMap(p.span, key, val), nil

	case p.accept("("):
		before := p.pos
		elems, err := p.list(")")
		if err != nil {
			return ast.NoTypeExprID, err
		}
		// (T) is grouping; (T,) and (A, B) are tuples
		if len(elems) == 1 && !strings.Contains(p.src[before:p.pos], ",") {
			return elems[0], nil
		}
		return types.NewTuple(p.span, elems), nil
	}

	name := p.ident()
	if name == "" {
		return ast.NoTypeExprID, fmt.Errorf("expected a type at offset %d in %q", p.pos, p.src)
	}
	if name == "fn" && p.accept("(") {
		params, err := p.list(")")
		if err != nil {
			return ast.NoTypeExprID, err
		}
		result := ast.NoTypeExprID
		if p.accept("->") {
			if result, err = p.parseType(); err != nil {
				return ast.NoTypeExprID, err
			}
		}
		return types.NewFn(p.span, params, result), nil
	}
	var args []ast.TypeExprID
	if p.accept("<") {
		var err error
		if args, err = p.list(">"); err != nil {
			return ast.NoTypeExprID, err
		}
	}
	return types.NewPath(p.span, p.d.name(name), args), nil
}
