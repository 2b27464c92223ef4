package sema

import (
	"lumen/internal/ast"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/trace"
	"lumen/internal/types"
)

// stmtFrame is one entry of the statement worklist. scoped means env was
// opened for this statement alone and is discarded when it completes.
type stmtFrame struct {
	id     ast.StmtID
	env    symbols.Environment
	exit   bool
	scoped bool
}

func (tc *checker) checkFunction(fn *FuncInfo) {
	tc.curFn = fn
	defer func() { tc.curFn = nil }()

	trace.Point(tc.tracer, trace.ScopeNode, "fn:"+fn.Name, "", tc.traceSpan, nil)

	item := tc.builder.Items.Get(fn.Item)
	env := tc.fnEnv[fn].Child(symbols.ScopeFunction, item.Span)
	fn.Scope = env.Scope()
	for _, p := range fn.Sig.Params {
		fn.Params = append(fn.Params, tc.bind(env, Binding{
			Name: p.Name,
			Type: p.Type,
			Kind: BindingParam,
			Span: p.Span,
		}))
	}
	if !fn.Body.IsValid() {
		env.Discard()
		return
	}
	tc.walkStmts(fn.Body, env)

	result := tc.resultOrVoid(fn.Sig)
	if result != tc.in.Builtins().Void && !tc.closed[fn.Body] {
		tc.report(MissingReturn, item.Span, fn.Name,
			"function '%s' declares return type %s but not every path returns a value", fn.Name, tc.label(result))
	}
}

// walkStmts checks the statement tree rooted at body using an explicit stack.
// Each block-like statement records whether every path through it returns.
func (tc *checker) walkStmts(body ast.StmtID, fnEnv symbols.Environment) {
	stack := []stmtFrame{{id: body, env: fnEnv, scoped: true}}
	push := func(f stmtFrame) { stack = append(stack, f) }
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.exit {
			tc.leaveStmt(f)
			continue
		}
		tc.enterStmt(f, push)
	}
}

func (tc *checker) child(env symbols.Environment, span source.Span) symbols.Environment {
	return env.Child(symbols.ScopeBlock, span)
}

func (tc *checker) enterStmt(f stmtFrame, push func(stmtFrame)) {
	stmt := tc.builder.Stmts.Get(f.id)
	if stmt == nil {
		return
	}
	switch stmt.Kind {
	case ast.StmtBlock:
		block, _ := tc.builder.Stmts.Block(f.id)
		env := f.env
		if !f.scoped {
			env = tc.child(f.env, stmt.Span)
		}
		tc.res.StmtScopes[f.id] = env.Scope()
		push(stmtFrame{id: f.id, env: env, exit: true, scoped: true})
		for i := len(block.Stmts) - 1; i >= 0; i-- {
			push(stmtFrame{id: block.Stmts[i], env: env})
		}
		return

	case ast.StmtLet:
		tc.checkLet(f.id, stmt, f.env)
	case ast.StmtReturn:
		tc.checkReturn(f.id, stmt, f.env)
		tc.closed[f.id] = true
	case ast.StmtExpr:
		es, _ := tc.builder.Stmts.Expr(f.id)
		tc.checkExpr(es.Expr, f.env, types.NoTypeID)

	case ast.StmtIf:
		ifs, _ := tc.builder.Stmts.If(f.id)
		tc.expectBool(ifs.Cond, f.env, "if condition")
		push(stmtFrame{id: f.id, env: f.env, exit: true, scoped: f.scoped})
		if ifs.Else.IsValid() {
			push(stmtFrame{id: ifs.Else, env: tc.child(f.env, tc.stmtSpan(ifs.Else)), scoped: true})
		}
		push(stmtFrame{id: ifs.Then, env: tc.child(f.env, tc.stmtSpan(ifs.Then)), scoped: true})
		return

	case ast.StmtWhile:
		ws, _ := tc.builder.Stmts.While(f.id)
		tc.expectBool(ws.Cond, f.env, "while condition")
		push(stmtFrame{id: f.id, env: f.env, exit: true, scoped: f.scoped})
		push(stmtFrame{id: ws.Body, env: tc.child(f.env, tc.stmtSpan(ws.Body)), scoped: true})
		return

	case ast.StmtFor:
		fs, _ := tc.builder.Stmts.For(f.id)
		elem := tc.iterElem(fs.Iterable, f.env)
		env := tc.child(f.env, stmt.Span)
		tc.res.StmtScopes[f.id] = env.Scope()
		tc.res.StmtBinding[f.id] = tc.bind(env, Binding{
			Name: fs.Binding,
			Type: elem,
			Kind: BindingFor,
			Decl: f.id,
			Span: stmt.Span,
		})
		push(stmtFrame{id: f.id, env: f.env, exit: true, scoped: f.scoped})
		push(stmtFrame{id: fs.Body, env: env, scoped: true})
		return

	case ast.StmtMatch:
		ms, _ := tc.builder.Stmts.Match(f.id)
		scrut := tc.checkExpr(ms.Scrutinee, f.env, types.NoTypeID)
		push(stmtFrame{id: f.id, env: f.env, exit: true, scoped: f.scoped})
		envs := make([]symbols.Environment, len(ms.Arms))
		for i, arm := range ms.Arms {
			envs[i] = tc.child(f.env, arm.Span)
			tc.bindPattern(arm.Pattern, scrut, envs[i], f.id)
		}
		for i := len(ms.Arms) - 1; i >= 0; i-- {
			push(stmtFrame{id: ms.Arms[i].Body, env: envs[i], scoped: true})
		}
		return
	}

	// Simple statement that owned its scope: nothing nested, close it now.
	if f.scoped {
		f.env.Discard()
	}
}

func (tc *checker) leaveStmt(f stmtFrame) {
	stmt := tc.builder.Stmts.Get(f.id)
	switch stmt.Kind {
	case ast.StmtBlock:
		block, _ := tc.builder.Stmts.Block(f.id)
		for _, s := range block.Stmts {
			if tc.closed[s] {
				tc.closed[f.id] = true
				break
			}
		}
	case ast.StmtIf:
		ifs, _ := tc.builder.Stmts.If(f.id)
		tc.closed[f.id] = ifs.Else.IsValid() && tc.closed[ifs.Then] && tc.closed[ifs.Else]
	case ast.StmtWhile:
		ws, _ := tc.builder.Stmts.While(f.id)
		tc.closed[f.id] = tc.isTrueLiteral(ws.Cond) && tc.closed[ws.Body]
	case ast.StmtFor:
		// the iterable may be empty
	case ast.StmtMatch:
		tc.closed[f.id] = tc.matchCloses(f.id)
	}
	if f.scoped {
		f.env.Discard()
	}
}

func (tc *checker) stmtSpan(id ast.StmtID) source.Span {
	if s := tc.builder.Stmts.Get(id); s != nil {
		return s.Span
	}
	return source.Span{}
}

func (tc *checker) checkLet(id ast.StmtID, stmt *ast.Stmt, env symbols.Environment) {
	let, _ := tc.builder.Stmts.Let(id)
	name := tc.name(let.Name)
	declared := types.NoTypeID
	if let.Type.IsValid() {
		declared = tc.resolveType(let.Type, env)
	}
	valueType := types.NoTypeID
	if let.Value.IsValid() {
		valueType = tc.checkExpr(let.Value, env, declared)
	}

	bindingType := declared
	switch {
	case let.Type.IsValid():
		if !tc.in.Assignable(declared, valueType) {
			tc.report(TypeMismatch, tc.exprSpan(let.Value), name,
				"cannot initialize '%s' of type %s with a value of type %s", name, tc.label(declared), tc.label(valueType))
		}
	case !let.Value.IsValid():
		tc.report(CannotInferType, stmt.Span, name, "cannot infer type of '%s' without an initializer or annotation", name)
	case tc.in.KindOf(valueType) == types.KindVoid:
		tc.report(InvalidOperation, tc.exprSpan(let.Value), name, "cannot bind '%s' to a void value", name)
	case valueType != types.NoTypeID && !tc.in.IsComplete(valueType):
		tc.report(CannotInferType, tc.exprSpan(let.Value), name,
			"cannot infer element type of '%s' (%s); add a type annotation", name, tc.label(valueType))
	default:
		bindingType = valueType
	}

	// A repeated let of the same name in one scope replaces the earlier
	// binding; no duplicate-definition error is raised for locals.
	tc.res.StmtBinding[id] = tc.bind(env, Binding{
		Name: let.Name,
		Type: bindingType,
		Kind: BindingLet,
		Decl: id,
		Init: let.Value,
		Mut:  let.Mut,
		Span: stmt.Span,
	})
}

func (tc *checker) checkReturn(id ast.StmtID, stmt *ast.Stmt, env symbols.Environment) {
	ret, _ := tc.builder.Stmts.Return(id)
	fn := tc.curFn
	want := tc.resultOrVoid(fn.Sig)
	void := tc.in.Builtins().Void
	if !ret.Value.IsValid() {
		if want != void {
			tc.report(TypeMismatch, stmt.Span, fn.Name,
				"function '%s' must return a value of type %s", fn.Name, tc.label(want))
		}
		return
	}
	expected := types.NoTypeID
	if want != void {
		expected = want
	}
	got := tc.checkExpr(ret.Value, env, expected)
	if !tc.in.Assignable(want, got) {
		tc.report(TypeMismatch, tc.exprSpan(ret.Value), fn.Name,
			"function '%s' returns %s, but the returned value has type %s", fn.Name, tc.label(want), tc.label(got))
	}
}

func (tc *checker) expectBool(cond ast.ExprID, env symbols.Environment, what string) {
	got := tc.checkExpr(cond, env, types.NoTypeID)
	if got != types.NoTypeID && got != tc.in.Builtins().Bool {
		tc.report(TypeMismatch, tc.exprSpan(cond), "", "%s must be bool, got %s", what, tc.label(got))
	}
}

// iterElem checks a for-in iterable and returns the loop variable type:
// list elements, map keys, or one-character strings.
func (tc *checker) iterElem(iter ast.ExprID, env symbols.Environment) types.TypeID {
	t := tc.checkExpr(iter, env, types.NoTypeID)
	if t == types.NoTypeID {
		return types.NoTypeID
	}
	tt, _ := tc.in.Lookup(t)
	switch tt.Kind {
	case types.KindList:
		return tt.Elem
	case types.KindMap:
		return tt.Elem
	case types.KindString:
		return t
	}
	tc.report(InvalidOperation, tc.exprSpan(iter), "", "cannot iterate over a value of type %s", tc.label(t))
	return types.NoTypeID
}

func (tc *checker) isTrueLiteral(id ast.ExprID) bool {
	lit, ok := tc.builder.Exprs.Literal(tc.builder.Exprs.Unparen(id))
	return ok && lit.Kind == ast.LitBool && tc.name(lit.Value) == "true"
}
