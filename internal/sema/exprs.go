package sema

import (
	"strconv"
	"strings"

	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

// pendingCallee is the call target resolved when the call is entered.
// skipTarget means the target is a name path, not a value to evaluate.
type pendingCallee struct {
	callee     Callee
	resolved   bool
	skipTarget bool
	path       string
}

type exprFrame struct {
	id   ast.ExprID
	exit bool
}

// checkExpr computes the type of root and all of its sub-expressions.
// expected is a hint used by empty collections and literals; it is not
// enforced here, the caller decides whether the result fits.
func (tc *checker) checkExpr(root ast.ExprID, env symbols.Environment, expected types.TypeID) types.TypeID {
	if !root.IsValid() {
		return types.NoTypeID
	}
	tc.expected[root] = expected
	var kids []ast.ExprID
	stack := []exprFrame{{id: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.exit {
			tc.res.ExprTypes[f.id] = tc.exprType(f.id, env)
			continue
		}
		stack = append(stack, exprFrame{id: f.id, exit: true})
		kids = tc.exprChildren(kids[:0], f.id, env)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, exprFrame{id: kids[i]})
		}
	}
	return tc.res.ExprTypes[root]
}

func (tc *checker) expect(id ast.ExprID, t types.TypeID) {
	tc.expected[id] = t
}

// exprChildren appends the sub-expressions of id that must be evaluated
// before it and records the type each child is expected to have.
func (tc *checker) exprChildren(dst []ast.ExprID, id ast.ExprID, env symbols.Environment) []ast.ExprID {
	expr := tc.builder.Exprs.Get(id)
	if expr == nil {
		return dst
	}
	exprs := tc.builder.Exprs
	want := tc.expected[id]
	switch expr.Kind {
	case ast.ExprIdent, ast.ExprLit:
		return dst

	case ast.ExprCall:
		call, _ := exprs.Call(id)
		p := tc.resolveCallee(call.Target, env)
		tc.pending[id] = p
		if !p.skipTarget {
			dst = append(dst, call.Target)
		}
		var params []types.TypeID
		switch {
		case p.callee.Kind == CalleeFunction:
			params = p.callee.Sig.ParamTypes()
		case p.callee.Kind == CalleeVariant:
			params = p.callee.Enum.Variants[p.callee.Variant].Payload
		case p.callee.Kind == CalleeValue:
			if head, ok := exprs.Ident(exprs.Unparen(call.Target)); ok {
				if t, found := env.Variable(head.Name); found {
					if fn, ok := tc.in.FnInfo(t); ok {
						params = fn.Params
					}
				}
			}
		}
		for i, a := range call.Args {
			if i < len(params) {
				tc.expect(a, params[i])
			}
			dst = append(dst, a)
		}
		return dst

	case ast.ExprMember:
		m, _ := exprs.Member(id)
		if _, _, ok := tc.namePath(id, env); ok {
			// enum variant or qualified function value; resolved on exit
			return dst
		}
		return append(dst, m.Target)

	case ast.ExprStruct:
		sl, _ := exprs.Struct(id)
		def, _ := env.Struct(sl.Name)
		var params, args []types.TypeID
		if def != nil {
			if d, p, a, ok := tc.structOf(want); ok && d == def {
				params, args = p, a
			}
		}
		for _, f := range sl.Fields {
			if def != nil {
				if field, _, ok := def.Field(f.Name); ok {
					ft := field.Type
					if len(def.GenericParams) > 0 {
						if args == nil && tc.isGenericParam(def, ft) {
							ft = types.NoTypeID
						} else {
							ft = tc.substitute(ft, params, args)
						}
					}
					tc.expect(f.Value, ft)
				}
			}
			dst = append(dst, f.Value)
		}
		return dst

	case ast.ExprList:
		l, _ := exprs.List(id)
		elem := types.NoTypeID
		if tt, ok := tc.in.Lookup(want); ok && tt.Kind == types.KindList {
			elem = tt.Elem
		}
		for _, e := range l.Elems {
			tc.expect(e, elem)
		}
		return append(dst, l.Elems...)

	case ast.ExprMap:
		m, _ := exprs.Map(id)
		key, val := types.NoTypeID, types.NoTypeID
		if tt, ok := tc.in.Lookup(want); ok && tt.Kind == types.KindMap {
			key, val = tt.Elem, tt.Value
		}
		for _, en := range m.Entries {
			tc.expect(en.Key, key)
			tc.expect(en.Value, val)
			dst = append(dst, en.Key, en.Value)
		}
		return dst

	case ast.ExprTuple:
		t, _ := exprs.Tuple(id)
		if info, ok := tc.in.TupleInfo(want); ok && len(info.Elems) == len(t.Elems) {
			for i, e := range t.Elems {
				tc.expect(e, info.Elems[i])
			}
		}
		return append(dst, t.Elems...)

	case ast.ExprAssign:
		a, _ := exprs.Assign(id)
		if head, ok := exprs.Ident(exprs.Unparen(a.Target)); ok {
			if t, found := env.Variable(head.Name); found {
				tc.expect(a.Value, t)
			}
		}
		return append(dst, a.Target, a.Value)

	case ast.ExprGroup:
		g, _ := exprs.Group(id)
		tc.expect(g.Inner, want)
		return append(dst, g.Inner)
	}
	return exprs.Children(dst, id)
}

// pathSegments returns the dotted name of an ident/member chain, or false
// when the chain contains anything else.
func (tc *checker) pathSegments(id ast.ExprID) ([]string, source.StringID, bool) {
	var segs []string
	exprs := tc.builder.Exprs
	id = exprs.Unparen(id)
	for {
		if m, ok := exprs.Member(id); ok {
			segs = append(segs, tc.name(m.Field))
			id = exprs.Unparen(m.Target)
			continue
		}
		ident, ok := exprs.Ident(id)
		if !ok {
			return nil, source.NoStringID, false
		}
		segs = append(segs, tc.name(ident.Name))
		for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
			segs[i], segs[j] = segs[j], segs[i]
		}
		return segs, ident.Name, true
	}
}

// namePath reports whether a member chain names a declaration rather than a
// value: its head is not a variable and the whole path resolves to an enum
// variant or a module-qualified function.
func (tc *checker) namePath(id ast.ExprID, env symbols.Environment) (Callee, string, bool) {
	segs, head, ok := tc.pathSegments(id)
	if !ok || len(segs) < 2 || env.HasVariable(head) {
		return Callee{}, "", false
	}
	path := strings.Join(segs, ".")
	if c, ok := tc.variantCallee(segs, env); ok {
		return c, path, true
	}
	if sig, ok := env.Function(tc.builder.Name(path)); ok {
		return Callee{Kind: CalleeFunction, Name: tc.qualifiedName(sig, path), Sig: sig}, path, true
	}
	return Callee{}, path, false
}

func (tc *checker) variantCallee(segs []string, env symbols.Environment) (Callee, bool) {
	enumName := strings.Join(segs[:len(segs)-1], ".")
	def, ok := env.Enum(tc.builder.Name(enumName))
	if !ok {
		return Callee{}, false
	}
	_, idx, ok := def.Variant(tc.builder.Name(segs[len(segs)-1]))
	if !ok {
		return Callee{}, false
	}
	return Callee{Kind: CalleeVariant, Name: tc.name(def.Name), Enum: def, Variant: idx}, true
}

func (tc *checker) qualifiedName(sig *symbols.FunctionSignature, fallback string) string {
	if q, ok := tc.qualified[sig]; ok {
		return q
	}
	return fallback
}

// resolveCallee decides what a call invokes before its arguments are
// checked, so parameter types can guide them.
func (tc *checker) resolveCallee(target ast.ExprID, env symbols.Environment) pendingCallee {
	segs, head, ok := tc.pathSegments(target)
	if !ok {
		return pendingCallee{callee: Callee{Kind: CalleeValue}, resolved: true}
	}
	path := strings.Join(segs, ".")
	if env.HasVariable(head) {
		return pendingCallee{callee: Callee{Kind: CalleeValue}, resolved: true, path: path}
	}
	if len(segs) > 1 {
		if c, ok := tc.variantCallee(segs, env); ok {
			return pendingCallee{callee: c, resolved: true, skipTarget: true, path: path}
		}
	}
	if sig, ok := env.Function(tc.builder.Name(path)); ok {
		c := Callee{Kind: CalleeFunction, Name: tc.qualifiedName(sig, path), Sig: sig}
		return pendingCallee{callee: c, resolved: true, skipTarget: true, path: path}
	}
	return pendingCallee{skipTarget: true, path: path}
}

func (tc *checker) isGenericParam(def *symbols.StructDef, t types.TypeID) bool {
	for _, p := range def.GenericParams {
		if tc.in.Named(p) == t {
			return true
		}
	}
	return false
}

func (tc *checker) typeOf(id ast.ExprID) types.TypeID {
	return tc.res.ExprTypes[id]
}

func (tc *checker) exprType(id ast.ExprID, env symbols.Environment) types.TypeID {
	expr := tc.builder.Exprs.Get(id)
	exprs := tc.builder.Exprs
	b := tc.in.Builtins()
	switch expr.Kind {
	case ast.ExprIdent:
		ident, _ := exprs.Ident(id)
		return tc.identType(id, ident.Name, expr.Span, env)

	case ast.ExprLit:
		lit, _ := exprs.Literal(id)
		switch lit.Kind {
		case ast.LitInt:
			return b.Int
		case ast.LitFloat:
			return b.Float
		case ast.LitString:
			return b.String
		case ast.LitBool:
			return b.Bool
		case ast.LitNull:
			return b.Null
		}
		return types.NoTypeID

	case ast.ExprBinary:
		bin, _ := exprs.Binary(id)
		return tc.binaryType(bin, expr.Span)

	case ast.ExprUnary:
		un, _ := exprs.Unary(id)
		return tc.unaryType(un, expr.Span)

	case ast.ExprCall:
		return tc.callType(id, expr.Span)

	case ast.ExprSpawn:
		sp, _ := exprs.Spawn(id)
		inner := exprs.Unparen(sp.Call)
		if _, ok := exprs.Call(inner); !ok {
			tc.report(InvalidOperation, expr.Span, "", "spawn requires a function call")
			return types.NoTypeID
		}
		if c, ok := tc.res.Callees[inner]; ok && c.Kind == CalleeVariant {
			tc.report(InvalidOperation, expr.Span, c.Name, "cannot spawn enum variant constructor")
		}
		return tc.typeOf(sp.Call)

	case ast.ExprMember:
		return tc.memberType(id, expr.Span, env)

	case ast.ExprIndex:
		ix, _ := exprs.Index(id)
		return tc.indexType(ix, expr.Span)

	case ast.ExprStruct:
		return tc.structLitType(id, expr.Span, env)

	case ast.ExprList:
		l, _ := exprs.List(id)
		elem, ok := tc.joinAll(l.Elems, elemOf(tc.in, tc.expected[id], types.KindList))
		if !ok {
			tc.report(TypeMismatch, expr.Span, "", "list elements have incompatible types")
			return types.NoTypeID
		}
		return tc.in.List(elem)

	case ast.ExprMap:
		m, _ := exprs.Map(id)
		keys := make([]ast.ExprID, len(m.Entries))
		vals := make([]ast.ExprID, len(m.Entries))
		for i, en := range m.Entries {
			keys[i], vals[i] = en.Key, en.Value
		}
		var wantKey, wantVal types.TypeID
		if tt, ok := tc.in.Lookup(tc.expected[id]); ok && tt.Kind == types.KindMap {
			wantKey, wantVal = tt.Elem, tt.Value
		}
		key, ok1 := tc.joinAll(keys, wantKey)
		val, ok2 := tc.joinAll(vals, wantVal)
		if !ok1 || !ok2 {
			tc.report(TypeMismatch, expr.Span, "", "map entries have incompatible types")
			return types.NoTypeID
		}
		return tc.in.Map(key, val)

	case ast.ExprTuple:
		t, _ := exprs.Tuple(id)
		elems := make([]types.TypeID, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = tc.typeOf(e)
		}
		return tc.in.RegisterTuple(elems)

	case ast.ExprAssign:
		a, _ := exprs.Assign(id)
		tc.checkAssign(a, expr.Span)
		return b.Void

	case ast.ExprGroup:
		g, _ := exprs.Group(id)
		return tc.typeOf(g.Inner)
	}
	return types.NoTypeID
}

func (tc *checker) identType(id ast.ExprID, name source.StringID, span source.Span, env symbols.Environment) types.TypeID {
	if bid, ty, ok := tc.lookupBinding(env, name); ok {
		tc.res.ExprBinding[id] = bid
		return ty
	}
	if sig, ok := env.Function(name); ok {
		tc.res.Callees[id] = Callee{Kind: CalleeFunction, Name: tc.qualifiedName(sig, tc.name(name)), Sig: sig}
		return tc.fnType(sig)
	}
	tc.report(UndefinedVariable, span, tc.name(name), "undefined variable '%s'", tc.name(name))
	return types.NoTypeID
}

func elemOf(in *types.Interner, t types.TypeID, kind types.Kind) types.TypeID {
	if tt, ok := in.Lookup(t); ok && tt.Kind == kind {
		return tt.Elem
	}
	return types.NoTypeID
}

// joinAll merges element types. An expected element type wins when every
// element fits it, so [1, 2] under [number] stays [number].
func (tc *checker) joinAll(ids []ast.ExprID, want types.TypeID) (types.TypeID, bool) {
	if want != types.NoTypeID {
		fits := true
		for _, e := range ids {
			if !tc.in.Assignable(want, tc.typeOf(e)) {
				fits = false
				break
			}
		}
		if fits {
			return want, true
		}
	}
	acc := types.NoTypeID
	for _, e := range ids {
		j, ok := tc.in.Join(acc, tc.typeOf(e))
		if !ok {
			return types.NoTypeID, false
		}
		acc = j
	}
	return acc, true
}

func (tc *checker) binaryType(bin *ast.ExprBinaryData, span source.Span) types.TypeID {
	l, r := tc.typeOf(bin.Left), tc.typeOf(bin.Right)
	if l == types.NoTypeID || r == types.NoTypeID {
		if bin.Op.IsComparison() || bin.Op.IsLogical() {
			return tc.in.Builtins().Bool
		}
		return types.NoTypeID
	}
	if t, ok := tc.in.BinaryResultType(bin.Op, l, r); ok {
		return t
	}
	tc.report(InvalidOperation, span, bin.Op.String(), "operator %s cannot be applied to %s and %s",
		bin.Op, tc.label(l), tc.label(r))
	return types.NoTypeID
}

func (tc *checker) unaryType(un *ast.ExprUnaryData, span source.Span) types.TypeID {
	t := tc.typeOf(un.Operand)
	if t == types.NoTypeID {
		return t
	}
	if un.Op == ast.UnaryAwait {
		if info, ok := tc.in.GenericInfo(t); ok && tc.name(info.Name) == "Promise" && len(info.Args) == 1 {
			return info.Args[0]
		}
		return t
	}
	if un.Op == ast.UnaryRefMut {
		if b := tc.res.Binding(tc.res.ExprBinding[tc.builder.Exprs.Unparen(un.Operand)]); b != nil && b.Kind == BindingLet && !b.Mut {
			tc.report(InvalidOperation, span, tc.name(b.Name), "cannot borrow immutable '%s' as mutable", tc.name(b.Name))
		}
	}
	res, ok := tc.in.UnaryResultType(un.Op, t)
	if !ok {
		tc.report(InvalidOperation, span, un.Op.String(), "operator %s cannot be applied to %s", un.Op, tc.label(t))
		return types.NoTypeID
	}
	return res
}

func (tc *checker) callType(id ast.ExprID, span source.Span) types.TypeID {
	call, _ := tc.builder.Exprs.Call(id)
	p := tc.pending[id]
	delete(tc.pending, id)
	if !p.resolved {
		tc.report(UndefinedFunction, tc.exprSpan(call.Target), p.path, "undefined function '%s'", p.path)
		return types.NoTypeID
	}
	c := p.callee
	switch c.Kind {
	case CalleeFunction:
		tc.res.Callees[id] = c
		tc.checkArgs(c.Name, c.Sig.ParamTypes(), call.Args, span)
		return tc.resultOrVoid(c.Sig)

	case CalleeVariant:
		tc.res.Callees[id] = c
		v := c.Enum.Variants[c.Variant]
		tc.checkArgs(c.Name+"."+tc.name(v.Name), v.Payload, call.Args, span)
		return c.Enum.Type

	default:
		t := tc.typeOf(call.Target)
		if t == types.NoTypeID {
			return t
		}
		fn, ok := tc.in.FnInfo(t)
		if !ok {
			tc.report(InvalidOperation, span, p.path, "cannot call a value of type %s", tc.label(t))
			return types.NoTypeID
		}
		c.Name = p.path
		tc.res.Callees[id] = c
		tc.checkArgs(p.path, fn.Params, call.Args, span)
		return fn.Result
	}
}

func (tc *checker) checkArgs(name string, params []types.TypeID, args []ast.ExprID, span source.Span) {
	if len(params) != len(args) {
		tc.report(WrongArgumentCount, span, name, "'%s' expects %d argument(s), got %d", name, len(params), len(args))
		return
	}
	for i, a := range args {
		got := tc.typeOf(a)
		if !tc.in.Assignable(params[i], got) {
			tc.report(InvalidArgumentType, tc.exprSpan(a), name,
				"argument %d of '%s': expected %s, got %s", i+1, name, tc.label(params[i]), tc.label(got))
		}
	}
}

func (tc *checker) memberType(id ast.ExprID, span source.Span, env symbols.Environment) types.TypeID {
	m, _ := tc.builder.Exprs.Member(id)
	field := tc.name(m.Field)
	if c, path, ok := tc.namePath(id, env); ok {
		if c.Kind == CalleeFunction {
			tc.res.Callees[id] = c
			return tc.fnType(c.Sig)
		}
		v := c.Enum.Variants[c.Variant]
		if len(v.Payload) > 0 {
			tc.report(InvalidMemberAccess, span, path,
				"variant %s carries %d value(s) and must be called", path, len(v.Payload))
		}
		tc.res.Members[id] = Member{Kind: MemberVariant, Index: c.Variant, Enum: c.Enum}
		return c.Enum.Type
	}

	t := tc.typeOf(m.Target)
	if t == types.NoTypeID {
		return t
	}
	if def, params, args, ok := tc.structOf(t); ok {
		if f, idx, found := def.Field(m.Field); found {
			tc.res.Members[id] = Member{Kind: MemberField, Index: idx, Struct: def}
			return tc.substitute(f.Type, params, args)
		}
		tc.report(InvalidMemberAccess, span, field, "struct %s has no field '%s'", tc.name(def.Name), field)
		return types.NoTypeID
	}
	if info, ok := tc.in.TupleInfo(t); ok {
		if n, err := strconv.Atoi(field); err == nil && n >= 0 && n < len(info.Elems) {
			tc.res.Members[id] = Member{Kind: MemberTuple, Index: n}
			return info.Elems[n]
		}
	}
	tc.report(InvalidMemberAccess, span, field, "type %s has no member '%s'", tc.label(t), field)
	return types.NoTypeID
}

func (tc *checker) indexType(ix *ast.ExprIndexData, span source.Span) types.TypeID {
	t, it := tc.typeOf(ix.Target), tc.typeOf(ix.Index)
	if t == types.NoTypeID {
		return t
	}
	tt, _ := tc.in.Lookup(t)
	switch tt.Kind {
	case types.KindList, types.KindString:
		if it != types.NoTypeID && !tc.in.IsNumeric(it) {
			tc.report(TypeMismatch, tc.exprSpan(ix.Index), "", "index must be a number, got %s", tc.label(it))
		}
		if tt.Kind == types.KindString {
			return t
		}
		return tt.Elem
	case types.KindMap:
		if !tc.in.Assignable(tt.Elem, it) {
			tc.report(TypeMismatch, tc.exprSpan(ix.Index), "", "map key must be %s, got %s", tc.label(tt.Elem), tc.label(it))
		}
		return tt.Value
	case types.KindTuple:
		info, _ := tc.in.TupleInfo(t)
		lit, ok := tc.builder.Exprs.Literal(tc.builder.Exprs.Unparen(ix.Index))
		if ok && lit.Kind == ast.LitInt {
			if n, err := strconv.Atoi(tc.name(lit.Value)); err == nil && n >= 0 && n < len(info.Elems) {
				return info.Elems[n]
			}
		}
		tc.report(InvalidMemberAccess, span, "", "tuple %s must be indexed by an in-range integer literal", tc.label(t))
		return types.NoTypeID
	}
	tc.report(InvalidMemberAccess, span, "", "cannot index a value of type %s", tc.label(t))
	return types.NoTypeID
}

func (tc *checker) structLitType(id ast.ExprID, span source.Span, env symbols.Environment) types.TypeID {
	sl, _ := tc.builder.Exprs.Struct(id)
	name := tc.name(sl.Name)
	def, ok := env.Struct(sl.Name)
	if !ok {
		tc.report(UndefinedType, span, name, "undefined struct '%s'", name)
		return types.NoTypeID
	}

	given := make(map[source.StringID]ast.ExprID, len(sl.Fields))
	for _, f := range sl.Fields {
		fname := tc.name(f.Name)
		if _, dup := given[f.Name]; dup {
			tc.report(InvalidMemberAccess, f.Span, fname, "field '%s' given twice in %s literal", fname, name)
			continue
		}
		if _, _, known := def.Field(f.Name); !known {
			tc.report(InvalidMemberAccess, f.Span, fname, "struct %s has no field '%s'", name, fname)
			continue
		}
		given[f.Name] = f.Value
	}

	result := def.Type
	var params, args []types.TypeID
	if len(def.GenericParams) > 0 {
		params, args = tc.inferGenericArgs(def, given, tc.expected[id])
		for i, a := range args {
			if a == types.NoTypeID {
				tc.report(CannotInferType, span, name, "cannot infer type parameter %s of %s",
					tc.name(def.GenericParams[i]), name)
				return types.NoTypeID
			}
		}
		result = tc.in.RegisterGeneric(def.Name, args)
	}

	for _, f := range def.Fields {
		value, ok := given[f.Name]
		if !ok {
			tc.report(InvalidMemberAccess, span, tc.name(f.Name), "missing field '%s' in %s literal", tc.name(f.Name), name)
			continue
		}
		want := tc.substitute(f.Type, params, args)
		if got := tc.typeOf(value); !tc.in.Assignable(want, got) {
			tc.report(TypeMismatch, tc.exprSpan(value), tc.name(f.Name),
				"field '%s' of %s expects %s, got %s", tc.name(f.Name), name, tc.label(want), tc.label(got))
		}
	}
	return result
}

// inferGenericArgs takes type arguments from the expected type when it is an
// instance of def, otherwise from fields declared directly as a parameter.
func (tc *checker) inferGenericArgs(def *symbols.StructDef, given map[source.StringID]ast.ExprID, want types.TypeID) ([]types.TypeID, []types.TypeID) {
	params := make([]types.TypeID, len(def.GenericParams))
	for i, p := range def.GenericParams {
		params[i] = tc.in.Named(p)
	}
	if d, _, a, ok := tc.structOf(want); ok && d == def {
		return params, a
	}
	args := make([]types.TypeID, len(params))
	for _, f := range def.Fields {
		value, ok := given[f.Name]
		if !ok {
			continue
		}
		for i, p := range params {
			if f.Type == p && args[i] == types.NoTypeID {
				args[i] = tc.typeOf(value)
			}
		}
	}
	return params, args
}

func (tc *checker) checkAssign(a *ast.ExprAssignData, span source.Span) {
	exprs := tc.builder.Exprs
	target := exprs.Unparen(a.Target)
	switch exprs.Get(target).Kind {
	case ast.ExprIdent:
		if b := tc.res.Binding(tc.res.ExprBinding[target]); b != nil && !b.Mut {
			tc.report(InvalidOperation, span, tc.name(b.Name), "cannot assign to immutable binding '%s'", tc.name(b.Name))
		}
	case ast.ExprMember, ast.ExprIndex:
	default:
		tc.report(InvalidOperation, span, "", "invalid assignment target")
		return
	}
	want, got := tc.typeOf(a.Target), tc.typeOf(a.Value)
	if !tc.in.Assignable(want, got) {
		tc.report(TypeMismatch, tc.exprSpan(a.Value), "", "cannot assign %s to a target of type %s", tc.label(got), tc.label(want))
	}
}
