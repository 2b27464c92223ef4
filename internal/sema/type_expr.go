package sema

import (
	"lumen/internal/ast"
	"lumen/internal/symbols"
	"lumen/internal/types"
)

// wrapperGenerics are generic names understood without a declaration.
var wrapperGenerics = map[string]bool{
	"Shared":  true,
	"Rc":      true,
	"Arc":     true,
	"Box":     true,
	"Promise": true,
}

func (tc *checker) builtinType(name string) (types.TypeID, bool) {
	b := tc.in.Builtins()
	switch name {
	case "number":
		return b.Number, true
	case "int":
		return b.Int, true
	case "float":
		return b.Float, true
	case "string":
		return b.String, true
	case "bool", "boolean":
		return b.Bool, true
	case "void":
		return b.Void, true
	case "null":
		return b.Null, true
	}
	return types.NoTypeID, false
}

// resolveType turns written type syntax into a TypeID. Unknown names report
// UndefinedType and resolve to NoTypeID. The walk is post-order over an
// explicit stack.
func (tc *checker) resolveType(root ast.TypeExprID, env symbols.Environment) types.TypeID {
	if !root.IsValid() {
		return types.NoTypeID
	}
	type frame struct {
		id   ast.TypeExprID
		exit bool
	}
	done := make(map[ast.TypeExprID]types.TypeID)
	stack := []frame{{id: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		te := tc.builder.Types.Get(f.id)
		if te == nil {
			continue
		}
		if !f.exit {
			stack = append(stack, frame{id: f.id, exit: true})
			for _, child := range te.Elems {
				stack = append(stack, frame{id: child})
			}
			if te.Result.IsValid() {
				stack = append(stack, frame{id: te.Result})
			}
			continue
		}
		elems := make([]types.TypeID, len(te.Elems))
		for i, child := range te.Elems {
			elems[i] = done[child]
		}
		switch te.Kind {
		case ast.TypePath:
			done[f.id] = tc.resolvePath(te, elems, env)
		case ast.TypeFn:
			result := tc.in.Builtins().Void
			if te.Result.IsValid() {
				result = done[te.Result]
			}
			done[f.id] = tc.in.RegisterFn(elems, result)
		case ast.TypeList:
			done[f.id] = tc.in.List(elems[0])
		case ast.TypeMap:
			done[f.id] = tc.in.Map(elems[0], elems[1])
		case ast.TypeTuple:
			done[f.id] = tc.in.RegisterTuple(elems)
		case ast.TypeOptional:
			done[f.id] = tc.in.Optional(elems[0])
		}
	}
	return done[root]
}

func (tc *checker) resolvePath(te *ast.TypeExpr, args []types.TypeID, env symbols.Environment) types.TypeID {
	name := tc.name(te.Name)
	if def, ok := env.Struct(te.Name); ok && len(def.GenericParams) > 0 {
		if len(args) != len(def.GenericParams) {
			tc.report(UndefinedType, te.Span, name, "generic type %s expects %d type argument(s), got %d",
				name, len(def.GenericParams), len(args))
			return types.NoTypeID
		}
		return tc.in.RegisterGeneric(def.Name, args)
	}
	if len(args) == 0 {
		if ty, ok := tc.builtinType(name); ok {
			return ty
		}
		if ty, ok := env.Type(te.Name); ok {
			return ty
		}
		tc.report(UndefinedType, te.Span, name, "undefined type '%s'", name)
		return types.NoTypeID
	}
	switch {
	case name == "List" && len(args) == 1:
		return tc.in.List(args[0])
	case name == "Map" && len(args) == 2:
		return tc.in.Map(args[0], args[1])
	case name == "Optional" && len(args) == 1:
		return tc.in.Optional(args[0])
	case wrapperGenerics[name]:
		return tc.in.RegisterGeneric(te.Name, args)
	}
	if env.HasType(te.Name) {
		tc.report(UndefinedType, te.Span, name, "type %s takes no type arguments", name)
		return types.NoTypeID
	}
	tc.report(UndefinedType, te.Span, name, "undefined generic type '%s'", name)
	return types.NoTypeID
}

// substitute replaces generic parameters of a struct instance inside t.
func (tc *checker) substitute(t types.TypeID, params []types.TypeID, args []types.TypeID) types.TypeID {
	if len(params) == 0 {
		return t
	}
	for i, p := range params {
		if p == t && i < len(args) {
			return args[i]
		}
	}
	tt, ok := tc.in.Lookup(t)
	if !ok {
		return t
	}
	switch tt.Kind {
	case types.KindList:
		return tc.in.List(tc.substitute(tt.Elem, params, args))
	case types.KindOptional:
		return tc.in.Optional(tc.substitute(tt.Elem, params, args))
	case types.KindMap:
		return tc.in.Map(tc.substitute(tt.Elem, params, args), tc.substitute(tt.Value, params, args))
	case types.KindTuple:
		info, _ := tc.in.TupleInfo(t)
		elems := make([]types.TypeID, len(info.Elems))
		for i, e := range info.Elems {
			elems[i] = tc.substitute(e, params, args)
		}
		return tc.in.RegisterTuple(elems)
	case types.KindGeneric:
		info, _ := tc.in.GenericInfo(t)
		inner := make([]types.TypeID, len(info.Args))
		for i, e := range info.Args {
			inner[i] = tc.substitute(e, params, args)
		}
		return tc.in.RegisterGeneric(info.Name, inner)
	}
	return t
}

// structOf returns the struct definition behind a named or generic type,
// with the generic parameter/argument lists for substitution.
func (tc *checker) structOf(t types.TypeID) (*symbols.StructDef, []types.TypeID, []types.TypeID, bool) {
	if def, ok := tc.structByType[t]; ok {
		return def, nil, nil, true
	}
	info, ok := tc.in.GenericInfo(t)
	if !ok {
		return nil, nil, nil, false
	}
	def, ok := tc.structByType[tc.in.Named(info.Name)]
	if !ok {
		return nil, nil, nil, false
	}
	params := make([]types.TypeID, len(def.GenericParams))
	for i, p := range def.GenericParams {
		params[i] = tc.in.Named(p)
	}
	return def, params, info.Args, true
}
