package sema

import (
	"fmt"
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/trace"
	"lumen/internal/types"
)

// Check type-checks one program file. It never stops at the first error:
// every problem found is appended to Result.Errors and sent to the reporter.
func Check(builder *ast.Builder, fileID ast.FileID, opts Options) *Result {
	if opts.Types == nil {
		opts.Types = types.NewInterner(builderStrings(builder))
	}
	if opts.Table == nil {
		opts.Table = symbols.NewTable(symbols.Hints{}, opts.Types.Strings)
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	res := &Result{
		Types:       opts.Types,
		Table:       opts.Table,
		ExprTypes:   make(map[ast.ExprID]types.TypeID),
		ExprBinding: make(map[ast.ExprID]BindingID),
		StmtBinding: make(map[ast.StmtID]BindingID),
		ArmBindings: make(map[ast.PatternID][]BindingID),
		StmtScopes:  make(map[ast.StmtID]symbols.ScopeID),
		Callees:     make(map[ast.ExprID]Callee),
		Members:     make(map[ast.ExprID]Member),
		Structs:     make(map[string]*symbols.StructDef),
		Enums:       make(map[string]*symbols.EnumDef),
	}
	if builder == nil {
		return res
	}
	file := builder.Files.Get(fileID)
	if file == nil {
		return res
	}

	span := trace.Begin(opts.Tracer, trace.ScopePass, "sema", opts.TraceParent)
	defer func() {
		span.WithExtra("errors", strconv.Itoa(len(res.Errors))).End("")
	}()

	res.Root = opts.Table.Root(file.Span)
	tc := &checker{
		builder:       builder,
		reporter:      opts.Reporter,
		tracer:        opts.Tracer,
		traceSpan:     span.ID(),
		in:            opts.Types,
		res:           res,
		scopeBindings: make(map[symbols.ScopeID]map[source.StringID]BindingID),
		closed:        make(map[ast.StmtID]bool),
		expected:      make(map[ast.ExprID]types.TypeID),
		pending:       make(map[ast.ExprID]pendingCallee),
		qualified:     make(map[*symbols.FunctionSignature]string),
		structByType:  make(map[types.TypeID]*symbols.StructDef),
		enumByType:    make(map[types.TypeID]*symbols.EnumDef),
		fnEnv:         make(map[*FuncInfo]symbols.Environment),
	}
	tc.run(file)
	if opts.Tracer.Level() == trace.LevelDebug {
		detail := "ok"
		if err := opts.Table.Validate(); err != nil {
			detail = err.Error()
		}
		trace.Point(opts.Tracer, trace.ScopePass, "symbol_table", detail, span.ID(),
			map[string]string{"scopes": strconv.Itoa(opts.Table.Len())})
	}
	return res
}

func builderStrings(b *ast.Builder) *source.Interner {
	if b == nil {
		return nil
	}
	return b.Strings
}

type checker struct {
	builder   *ast.Builder
	reporter  diag.Reporter
	tracer    trace.Tracer
	traceSpan uint64
	in        *types.Interner
	res       *Result

	scopeBindings map[symbols.ScopeID]map[source.StringID]BindingID
	closed        map[ast.StmtID]bool
	expected      map[ast.ExprID]types.TypeID
	pending       map[ast.ExprID]pendingCallee
	qualified     map[*symbols.FunctionSignature]string
	structByType  map[types.TypeID]*symbols.StructDef
	enumByType    map[types.TypeID]*symbols.EnumDef
	fnEnv         map[*FuncInfo]symbols.Environment

	curFn *FuncInfo
}

func (tc *checker) report(kind TypeErrorKind, span source.Span, subject, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	e := TypeError{Kind: kind, Message: msg, Subject: subject, Span: span}
	tc.res.Errors = append(tc.res.Errors, e)
	if tc.curFn != nil {
		tc.curFn.Failed = true
	}
	if tc.reporter != nil {
		diag.Emit(tc.reporter, e.Diagnostic())
	}
}

func (tc *checker) name(id source.StringID) string {
	return tc.builder.Lookup(id)
}

func (tc *checker) label(id types.TypeID) string {
	return types.Label(tc.in, id)
}

func (tc *checker) exprSpan(id ast.ExprID) source.Span {
	if e := tc.builder.Exprs.Get(id); e != nil {
		return e.Span
	}
	return source.Span{}
}

func (tc *checker) run(file *ast.File) {
	decls := tc.collectDecls(file.Items)
	tc.declareTypeNames(decls)
	tc.resolveAliases(decls)
	tc.resolveShapes(decls)
	tc.registerFunctions(decls)
	for _, fn := range tc.res.Funcs {
		tc.checkFunction(fn)
	}
}

// decl is a top-level or module-nested item together with the environment
// its plain name lives in and its qualified-name prefix.
type decl struct {
	item   ast.ItemID
	env    symbols.Environment
	prefix string
}

func (d decl) qualify(name string) string {
	return d.prefix + name
}

// collectDecls flattens nested modules (worklist, not recursion) and reports
// duplicate item names per module namespace.
func (tc *checker) collectDecls(roots []ast.ItemID) []decl {
	type group struct {
		items  []ast.ItemID
		env    symbols.Environment
		prefix string
	}
	var decls []decl
	queue := []group{{items: roots, env: tc.res.Root}}
	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		seen := make(map[source.StringID]source.Span, len(g.items))
		for _, id := range g.items {
			item := tc.builder.Items.Get(id)
			if item == nil {
				continue
			}
			if first, dup := seen[item.Name]; dup {
				tc.reportDuplicate(item, first, g.prefix)
				continue
			}
			seen[item.Name] = item.Span
			if item.Kind == ast.ItemModule {
				mod, _ := tc.builder.Items.Module(id)
				queue = append(queue, group{
					items:  mod.Items,
					env:    g.env.Child(symbols.ScopeModule, item.Span),
					prefix: g.prefix + tc.name(item.Name) + ".",
				})
				continue
			}
			decls = append(decls, decl{item: id, env: g.env, prefix: g.prefix})
		}
	}
	return decls
}

func (tc *checker) reportDuplicate(item *ast.Item, first source.Span, prefix string) {
	name := prefix + tc.name(item.Name)
	msg := fmt.Sprintf("duplicate definition of %s '%s'", item.Kind, name)
	e := TypeError{Kind: DuplicateDefinition, Message: msg, Subject: name, Span: item.Span}
	tc.res.Errors = append(tc.res.Errors, e)
	if tc.reporter != nil {
		diag.Emit(tc.reporter, e.Diagnostic().WithNote(first, "first defined here"))
	}
}

// define binds a type-level name under its plain name in the module scope
// and under its qualified name at the root.
func defineBoth[T any](tc *checker, d decl, plain source.StringID, def T, fn func(symbols.Environment, source.StringID, T)) {
	fn(d.env, plain, def)
	if d.prefix != "" {
		fn(tc.res.Root, tc.builder.Name(d.qualify(tc.name(plain))), def)
	}
}

func (tc *checker) declareTypeNames(decls []decl) {
	for _, d := range decls {
		item := tc.builder.Items.Get(d.item)
		qname := tc.builder.Name(d.qualify(tc.name(item.Name)))
		switch item.Kind {
		case ast.ItemStruct:
			st, _ := tc.builder.Items.Struct(d.item)
			def := &symbols.StructDef{
				Name:          qname,
				Type:          tc.in.Named(qname),
				GenericParams: st.TypeParams,
				Span:          item.Span,
			}
			tc.structByType[def.Type] = def
			tc.res.Structs[tc.name(qname)] = def
			defineBoth(tc, d, item.Name, def, symbols.Environment.DefineStruct)
			defineBoth(tc, d, item.Name, def.Type, symbols.Environment.DefineType)
		case ast.ItemEnum:
			def := &symbols.EnumDef{Name: qname, Type: tc.in.Named(qname), Span: item.Span}
			tc.enumByType[def.Type] = def
			tc.res.Enums[tc.name(qname)] = def
			defineBoth(tc, d, item.Name, def, symbols.Environment.DefineEnum)
			defineBoth(tc, d, item.Name, def.Type, symbols.Environment.DefineType)
		}
	}
}

// resolveAliases binds aliases in declaration order; an alias may refer to
// any struct or enum and to aliases declared before it.
func (tc *checker) resolveAliases(decls []decl) {
	for _, d := range decls {
		item := tc.builder.Items.Get(d.item)
		if item.Kind != ast.ItemTypeAlias {
			continue
		}
		alias, _ := tc.builder.Items.TypeAlias(d.item)
		target := tc.resolveType(alias.Target, d.env)
		defineBoth(tc, d, item.Name, target, symbols.Environment.DefineType)
	}
}

func (tc *checker) resolveShapes(decls []decl) {
	for _, d := range decls {
		item := tc.builder.Items.Get(d.item)
		switch item.Kind {
		case ast.ItemStruct:
			st, _ := tc.builder.Items.Struct(d.item)
			def, _ := d.env.Struct(item.Name)
			env := d.env
			if len(st.TypeParams) > 0 {
				env = d.env.Child(symbols.ScopeBlock, item.Span)
				for _, p := range st.TypeParams {
					env.DefineType(p, tc.in.Named(p))
				}
			}
			for _, f := range st.Fields {
				if _, _, dup := def.Field(f.Name); dup {
					tc.report(DuplicateDefinition, f.Span, tc.name(f.Name),
						"duplicate field '%s' in struct %s", tc.name(f.Name), tc.name(def.Name))
					continue
				}
				def.Fields = append(def.Fields, symbols.Field{
					Name: f.Name,
					Type: tc.resolveType(f.Type, env),
					Span: f.Span,
				})
			}
			if env != d.env {
				env.Discard()
			}
		case ast.ItemEnum:
			en, _ := tc.builder.Items.Enum(d.item)
			def, _ := d.env.Enum(item.Name)
			for _, v := range en.Variants {
				if _, _, dup := def.Variant(v.Name); dup {
					tc.report(DuplicateDefinition, v.Span, tc.name(v.Name),
						"duplicate variant '%s' in enum %s", tc.name(v.Name), tc.name(def.Name))
					continue
				}
				payload := make([]types.TypeID, len(v.Payload))
				for i, te := range v.Payload {
					payload[i] = tc.resolveType(te, d.env)
				}
				def.Variants = append(def.Variants, symbols.Variant{Name: v.Name, Payload: payload, Span: v.Span})
			}
		}
	}
}

func (tc *checker) registerFunctions(decls []decl) {
	for _, d := range decls {
		item := tc.builder.Items.Get(d.item)
		if item.Kind != ast.ItemFn {
			continue
		}
		fn, _ := tc.builder.Items.Fn(d.item)
		info := &FuncInfo{Item: d.item, Name: d.qualify(tc.name(item.Name)), Body: fn.Body}
		tc.curFn = info
		sig := &symbols.FunctionSignature{
			Name:  item.Name,
			Async: fn.Async,
			Span:  item.Span,
		}
		for _, p := range fn.Params {
			ty := tc.resolveType(p.Type, d.env)
			sig.Params = append(sig.Params, symbols.Param{Name: p.Name, Type: ty, Span: p.Span})
		}
		if fn.Result.IsValid() {
			sig.Result = tc.resolveType(fn.Result, d.env)
		}
		info.Sig = sig
		tc.qualified[sig] = info.Name
		defineBoth(tc, d, item.Name, sig, symbols.Environment.DefineFunction)
		tc.res.Funcs = append(tc.res.Funcs, info)
		tc.fnEnv[info] = d.env
		tc.curFn = nil
	}
}

// resultOrVoid returns the declared result, treating "none" as void.
func (tc *checker) resultOrVoid(sig *symbols.FunctionSignature) types.TypeID {
	if sig.Result == types.NoTypeID {
		return tc.in.Builtins().Void
	}
	return sig.Result
}

func (tc *checker) fnType(sig *symbols.FunctionSignature) types.TypeID {
	return tc.in.RegisterFn(sig.ParamTypes(), tc.resultOrVoid(sig))
}

func (tc *checker) newBinding(b Binding) BindingID {
	b.ID = BindingID(len(tc.res.Bindings) + 1)
	tc.res.Bindings = append(tc.res.Bindings, b)
	m := tc.scopeBindings[b.Scope]
	if m == nil {
		m = make(map[source.StringID]BindingID)
		tc.scopeBindings[b.Scope] = m
	}
	m[b.Name] = b.ID
	return b.ID
}

// bind defines name in env and records a binding for it.
func (tc *checker) bind(env symbols.Environment, b Binding) BindingID {
	env.DefineVariable(b.Name, b.Type)
	b.Scope = env.Scope()
	if tc.curFn != nil {
		b.Fn = tc.curFn.Item
	}
	return tc.newBinding(b)
}

// lookupBinding resolves name the way the environment does and returns the
// binding record for the hit.
func (tc *checker) lookupBinding(env symbols.Environment, name source.StringID) (BindingID, types.TypeID, bool) {
	ty, scope, ok := env.VariableScope(name)
	if !ok {
		return NoBindingID, types.NoTypeID, false
	}
	return tc.scopeBindings[scope][name], ty, true
}
