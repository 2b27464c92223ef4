package ast

import (
	"lumen/internal/source"
)

type Hints struct{ Files, Items, Stmts, Exprs uint }

// Builder owns every arena of one program. The external parser (or the
// interchange decoder) fills it; later passes only read it.
type Builder struct {
	Files    *Files
	Items    *Items
	Stmts    *Stmts
	Exprs    *Exprs
	Patterns *Patterns
	Types    *TypeExprs
	Strings  *source.Interner
}

func NewBuilder(hints Hints, strings *source.Interner) *Builder {
	if hints.Files == 0 {
		hints.Files = 1 << 2
	}
	if hints.Items == 0 {
		hints.Items = 1 << 6
	}
	if hints.Stmts == 0 {
		hints.Stmts = 1 << 8
	}
	if hints.Exprs == 0 {
		hints.Exprs = 1 << 8
	}
	if strings == nil {
		strings = source.NewInterner()
	}
	return &Builder{
		Files:    NewFiles(hints.Files),
		Items:    NewItems(hints.Items),
		Stmts:    NewStmts(hints.Stmts),
		Exprs:    NewExprs(hints.Exprs),
		Patterns: NewPatterns(hints.Exprs / 4),
		Types:    NewTypeExprs(hints.Exprs / 4),
		Strings:  strings,
	}
}

func (b *Builder) NewFile(src source.FileID, sp source.Span) FileID {
	return b.Files.New(src, sp)
}

func (b *Builder) PushItem(file FileID, item ItemID) {
	f := b.Files.Get(file)
	f.Items = append(f.Items, item)
}

// Name interns s.
func (b *Builder) Name(s string) source.StringID {
	return b.Strings.Intern(s)
}

// Lookup returns the text of an interned name, or "" for NoStringID.
func (b *Builder) Lookup(id source.StringID) string {
	if id == source.NoStringID {
		return ""
	}
	s, _ := b.Strings.Lookup(id)
	return s
}
