package sema

import (
	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

// bindPattern checks one match arm pattern against the scrutinee type and
// binds the names it introduces into the arm's environment.
func (tc *checker) bindPattern(id ast.PatternID, scrut types.TypeID, env symbols.Environment, match ast.StmtID) {
	pat := tc.builder.Patterns.Get(id)
	if pat == nil {
		return
	}
	var bound []BindingID
	switch pat.Kind {
	case ast.PatWildcard:
	case ast.PatBinding:
		bound = append(bound, tc.bind(env, Binding{
			Name: pat.Name, Type: scrut, Kind: BindingPattern, Decl: match, Span: pat.Span,
		}))
	case ast.PatLiteral:
		lt := tc.checkExpr(pat.Literal, env, scrut)
		if _, ok := tc.in.BinaryResultType(ast.BinaryEq, scrut, lt); !ok && lt != types.NoTypeID && scrut != types.NoTypeID {
			tc.report(TypeMismatch, pat.Span, "", "pattern of type %s cannot match a value of type %s",
				tc.label(lt), tc.label(scrut))
		}
	case ast.PatVariant:
		def, ok := tc.enumByType[scrut]
		if !ok {
			if scrut != types.NoTypeID {
				tc.report(TypeMismatch, pat.Span, tc.name(pat.Name),
					"variant pattern '%s' cannot match a value of type %s", tc.name(pat.Name), tc.label(scrut))
			}
			for _, b := range pat.Binds {
				bound = append(bound, tc.bind(env, Binding{Name: b, Kind: BindingPattern, Decl: match, Span: pat.Span}))
			}
			break
		}
		if pat.Enum != 0 && !tc.sameEnum(def, pat.Enum) {
			tc.report(TypeMismatch, pat.Span, tc.name(pat.Enum),
				"pattern names enum %s but the value has type %s", tc.name(pat.Enum), tc.label(scrut))
		}
		variant, _, found := def.Variant(pat.Name)
		if !found {
			tc.report(InvalidMemberAccess, pat.Span, tc.name(pat.Name),
				"enum %s has no variant '%s'", tc.name(def.Name), tc.name(pat.Name))
		} else if len(pat.Binds) != len(variant.Payload) {
			tc.report(WrongArgumentCount, pat.Span, tc.name(pat.Name),
				"variant %s carries %d value(s), but the pattern binds %d",
				tc.name(pat.Name), len(variant.Payload), len(pat.Binds))
		}
		for i, b := range pat.Binds {
			ty := types.NoTypeID
			if found && i < len(variant.Payload) {
				ty = variant.Payload[i]
			}
			bound = append(bound, tc.bind(env, Binding{Name: b, Type: ty, Kind: BindingPattern, Decl: match, Span: pat.Span}))
		}
	}
	if len(bound) > 0 {
		tc.res.ArmBindings[id] = bound
	}
}

// sameEnum accepts both the plain and the module-qualified enum name.
func (tc *checker) sameEnum(def *symbols.EnumDef, name source.StringID) bool {
	if def.Name == name {
		return true
	}
	full := tc.name(def.Name)
	short := tc.name(name)
	return len(full) > len(short) && full[len(full)-len(short)-1] == '.' && full[len(full)-len(short):] == short
}

// matchCloses reports whether every arm returns and the arms cover every
// value: an irrefutable arm, or all variants of the scrutinee's enum.
func (tc *checker) matchCloses(id ast.StmtID) bool {
	ms, _ := tc.builder.Stmts.Match(id)
	if len(ms.Arms) == 0 {
		return false
	}
	covered := make(map[string]bool)
	exhaustive := false
	for _, arm := range ms.Arms {
		if !tc.closed[arm.Body] {
			return false
		}
		pat := tc.builder.Patterns.Get(arm.Pattern)
		if pat.IsIrrefutable() {
			exhaustive = true
		}
		if pat != nil && pat.Kind == ast.PatVariant {
			covered[tc.name(pat.Name)] = true
		}
	}
	if exhaustive {
		return true
	}
	def, ok := tc.enumByType[tc.res.ExprTypes[ms.Scrutinee]]
	if !ok {
		return false
	}
	for _, v := range def.Variants {
		if !covered[tc.name(v.Name)] {
			return false
		}
	}
	return true
}
