package ownership

import (
	"fmt"
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/sema"
	"lumen/internal/source"
	"lumen/internal/symbols"
	"lumen/internal/trace"
)

// Options configure Resolve.
type Options struct {
	Reporter    diag.Reporter
	Tracer      trace.Tracer
	TraceParent uint64
}

// Site is one explicit borrow expression (&x or &mut x).
type Site struct {
	Expr     ast.ExprID
	Mut      bool
	Lifetime Lifetime
	// Target is the borrowed binding when the operand is a plain name.
	Target sema.BindingID
	Span   source.Span
}

// Issue is an ownership problem found while classifying bindings.
type Issue struct {
	Code     diag.Code
	Severity diag.Severity
	Message  string
	Span     source.Span
	Fn       ast.ItemID
}

func (i Issue) Diagnostic() diag.Diagnostic {
	return diag.New(i.Severity, i.Code, i.Span, i.Message)
}

// Result holds one Ownership per sema binding plus every borrow site.
type Result struct {
	Bindings map[sema.BindingID]Ownership
	Sites    []Site
	// SiteOf maps a borrow expression to its index in Sites.
	SiteOf map[ast.ExprID]int
	Issues []Issue
	// Failed marks functions with at least one ownership error.
	Failed map[ast.ItemID]bool
}

// Of returns the tag of a binding; unknown bindings are Owned.
func (r *Result) Of(id sema.BindingID) Ownership {
	if o, ok := r.Bindings[id]; ok {
		return o
	}
	return Owned()
}

// HasErrors reports whether any issue is an error.
func (r *Result) HasErrors() bool {
	return len(r.Failed) > 0
}

type resolver struct {
	builder *ast.Builder
	sem     *sema.Result
	table   *symbols.Table
	rep     diag.Reporter
	res     *Result
	nextLt  uint32
	fn      *sema.FuncInfo
}

// Resolve classifies every binding recorded by the type checker. Bindings
// start from DefaultOwnership, then explicit borrows, shared wrapper types
// and values handed to spawned tasks refine the tag. Borrows that would
// outlive their lexical block are reported as OWN4001.
func Resolve(builder *ast.Builder, sem *sema.Result, opts Options) *Result {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePass, "ownership", opts.TraceParent)
	r := &resolver{
		builder: builder,
		sem:     sem,
		table:   sem.Table,
		rep:     opts.Reporter,
		res: &Result{
			Bindings: make(map[sema.BindingID]Ownership, len(sem.Bindings)),
			SiteOf:   make(map[ast.ExprID]int),
			Failed:   make(map[ast.ItemID]bool),
		},
	}
	for _, b := range sem.Bindings {
		o := DefaultOwnership(sem.Types, b.Type)
		if isSharedType(sem.Types, b.Type) {
			o = Shared()
		}
		r.res.Bindings[b.ID] = o
	}
	for _, fn := range sem.Funcs {
		if !fn.Body.IsValid() {
			continue
		}
		r.fn = fn
		r.walkFunction(fn)
	}
	span.WithExtra("sites", strconv.Itoa(len(r.res.Sites))).
		WithExtra("issues", strconv.Itoa(len(r.res.Issues))).
		End("")
	return r.res
}

func (r *resolver) report(code diag.Code, sev diag.Severity, span source.Span, format string, args ...any) {
	is := Issue{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...), Span: span}
	if r.fn != nil {
		is.Fn = r.fn.Item
		if sev == diag.SevError {
			r.res.Failed[r.fn.Item] = true
		}
	}
	r.res.Issues = append(r.res.Issues, is)
	if r.rep != nil {
		diag.Emit(r.rep, is.Diagnostic())
	}
}

func (r *resolver) name(id sema.BindingID) string {
	if b := r.sem.Binding(id); b != nil {
		return r.builder.Lookup(b.Name)
	}
	return "?"
}

type stmtItem struct {
	id    ast.StmtID
	scope symbols.ScopeID
}

// walkFunction visits statements in program order with the scope each one
// executes in, so lets are classified before later uses read them.
func (r *resolver) walkFunction(fn *sema.FuncInfo) {
	stmts := r.builder.Stmts
	stack := []stmtItem{{id: fn.Body, scope: fn.Scope}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stmt := stmts.Get(it.id)
		if stmt == nil {
			continue
		}
		scope := it.scope
		if s, ok := r.sem.StmtScopes[it.id]; ok && stmt.Kind == ast.StmtBlock {
			scope = s
		}
		var children []ast.StmtID
		switch stmt.Kind {
		case ast.StmtBlock:
			block, _ := stmts.Block(it.id)
			children = block.Stmts
		case ast.StmtLet:
			let, _ := stmts.Let(it.id)
			r.walkExpr(let.Value, scope)
			r.classifyLet(it.id, let)
		case ast.StmtReturn:
			ret, _ := stmts.Return(it.id)
			r.walkExpr(ret.Value, scope)
			r.checkReturn(ret.Value, stmt.Span)
		case ast.StmtExpr:
			es, _ := stmts.Expr(it.id)
			r.walkExpr(es.Expr, scope)
		case ast.StmtIf:
			ifs, _ := stmts.If(it.id)
			r.walkExpr(ifs.Cond, scope)
			children = []ast.StmtID{ifs.Then, ifs.Else}
		case ast.StmtWhile:
			ws, _ := stmts.While(it.id)
			r.walkExpr(ws.Cond, scope)
			children = []ast.StmtID{ws.Body}
		case ast.StmtFor:
			fs, _ := stmts.For(it.id)
			r.walkExpr(fs.Iterable, scope)
			if s, ok := r.sem.StmtScopes[it.id]; ok {
				scope = s
			}
			children = []ast.StmtID{fs.Body}
		case ast.StmtMatch:
			ms, _ := stmts.Match(it.id)
			r.walkExpr(ms.Scrutinee, scope)
			for _, arm := range ms.Arms {
				children = append(children, arm.Body)
			}
		}
		for i := len(children) - 1; i >= 0; i-- {
			if children[i].IsValid() {
				stack = append(stack, stmtItem{id: children[i], scope: scope})
			}
		}
	}
}

// walkExpr mints lifetimes for borrow sites and applies the spawn and
// assignment rules. Sub-expressions are visited before their parents.
func (r *resolver) walkExpr(root ast.ExprID, scope symbols.ScopeID) {
	if !root.IsValid() {
		return
	}
	exprs := r.builder.Exprs
	type frame struct {
		id   ast.ExprID
		exit bool
	}
	stack := []frame{{id: root}}
	var kids []ast.ExprID
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !f.exit {
			stack = append(stack, frame{id: f.id, exit: true})
			kids = exprs.Children(kids[:0], f.id)
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, frame{id: kids[i]})
			}
			continue
		}
		expr := exprs.Get(f.id)
		switch expr.Kind {
		case ast.ExprUnary:
			un, _ := exprs.Unary(f.id)
			if un.Op == ast.UnaryRef || un.Op == ast.UnaryRefMut {
				r.borrowSite(f.id, un, scope, expr.Span)
			}
		case ast.ExprSpawn:
			sp, _ := exprs.Spawn(f.id)
			r.checkSpawn(sp.Call)
		case ast.ExprAssign:
			as, _ := exprs.Assign(f.id)
			r.checkAssign(as, expr.Span)
		}
	}
}

// borrowSite mints a lifetime for &x or &mut x. A borrow of a named place
// lives as long as the binding it starts from; anything else is a temporary
// scoped to the enclosing block.
func (r *resolver) borrowSite(id ast.ExprID, un *ast.ExprUnaryData, scope symbols.ScopeID, span source.Span) {
	r.nextLt++
	site := Site{
		Expr: id,
		Mut:  un.Op == ast.UnaryRefMut,
		Span: span,
	}
	operand := r.builder.Exprs.Unparen(un.Operand)
	switch r.builder.Exprs.Get(operand).Kind {
	case ast.ExprIdent:
		site.Target = r.sem.ExprBinding[operand]
	case ast.ExprMember, ast.ExprIndex:
		site.Target = r.rootBinding(operand)
	default:
		r.report(diag.OwnBorrowOfTemp, diag.SevWarning, span,
			"borrow of a temporary value; it lives only until the end of the enclosing block")
	}
	if b := r.sem.Binding(site.Target); b != nil {
		scope = b.Scope
	}
	site.Lifetime = Lifetime{ID: r.nextLt, Scope: scope}
	r.res.SiteOf[id] = len(r.res.Sites)
	r.res.Sites = append(r.res.Sites, site)
}

// rootBinding follows member/index chains to the binding they start from.
func (r *resolver) rootBinding(id ast.ExprID) sema.BindingID {
	exprs := r.builder.Exprs
	for {
		id = exprs.Unparen(id)
		if m, ok := exprs.Member(id); ok {
			id = m.Target
			continue
		}
		if ix, ok := exprs.Index(id); ok {
			id = ix.Target
			continue
		}
		return r.sem.ExprBinding[id]
	}
}

func (r *resolver) siteOf(id ast.ExprID) (Site, bool) {
	idx, ok := r.res.SiteOf[r.builder.Exprs.Unparen(id)]
	if !ok {
		return Site{}, false
	}
	return r.res.Sites[idx], true
}

func (r *resolver) classifyLet(id ast.StmtID, let *ast.LetStmt) {
	bid := r.sem.StmtBinding[id]
	if bid == sema.NoBindingID {
		return
	}
	if site, ok := r.siteOf(let.Value); ok {
		if site.Mut {
			r.res.Bindings[bid] = BorrowedMut(site.Lifetime)
		} else {
			r.res.Bindings[bid] = Borrowed(site.Lifetime)
		}
		return
	}
	// let y = x where x is a borrow: y shares x's lifetime
	if src := r.sem.ExprBinding[r.builder.Exprs.Unparen(let.Value)]; src != sema.NoBindingID {
		if o := r.res.Of(src); o.IsBorrow() {
			r.res.Bindings[bid] = o
		}
	}
}

func (r *resolver) checkReturn(value ast.ExprID, span source.Span) {
	if !value.IsValid() {
		return
	}
	if site, ok := r.siteOf(value); ok {
		if site.Target != sema.NoBindingID {
			r.report(diag.OwnBorrowEscape, diag.SevError, span,
				"cannot return a reference to local '%s'; it is dropped when %s returns", r.name(site.Target), r.fn.Name)
		} else {
			r.report(diag.OwnBorrowEscape, diag.SevError, span, "cannot return a reference to a temporary value")
		}
		return
	}
	bid := r.sem.ExprBinding[r.builder.Exprs.Unparen(value)]
	if o := r.res.Of(bid); bid != sema.NoBindingID && o.IsBorrow() {
		r.report(diag.OwnBorrowEscape, diag.SevError, span,
			"cannot return '%s' (%s); its lifetime ends inside %s", r.name(bid), o, r.fn.Name)
	}
}

// checkAssign rejects storing a borrow into a binding declared in a scope
// that outlives the borrow's lifetime.
func (r *resolver) checkAssign(as *ast.ExprAssignData, span source.Span) {
	target := r.rootBinding(as.Target)
	tb := r.sem.Binding(target)
	if tb == nil {
		return
	}
	var lt Lifetime
	if site, ok := r.siteOf(as.Value); ok {
		lt = site.Lifetime
	} else {
		src := r.sem.ExprBinding[r.builder.Exprs.Unparen(as.Value)]
		l, ok := r.res.Of(src).Lifetime()
		if src == sema.NoBindingID || !ok {
			return
		}
		lt = l
	}
	if tb.Scope != lt.Scope && r.table.Encloses(tb.Scope, lt.Scope) {
		r.report(diag.OwnBorrowEscape, diag.SevError, span,
			"borrow %s does not live long enough to be stored in '%s'", lt, r.builder.Lookup(tb.Name))
	}
}

// checkSpawn marks non-copy bindings passed to a spawned call as Shared and
// rejects borrows crossing the task boundary.
func (r *resolver) checkSpawn(callID ast.ExprID) {
	call, ok := r.builder.Exprs.Call(r.builder.Exprs.Unparen(callID))
	if !ok {
		return
	}
	for _, arg := range call.Args {
		if site, ok := r.siteOf(arg); ok {
			r.report(diag.OwnBorrowEscape, diag.SevError, r.builder.Exprs.Get(arg).Span,
				"borrow %s cannot be passed to a spawned task", site.Lifetime)
			continue
		}
		bid := r.sem.ExprBinding[r.builder.Exprs.Unparen(arg)]
		if bid == sema.NoBindingID {
			continue
		}
		o := r.res.Of(bid)
		switch {
		case o.IsBorrow():
			r.report(diag.OwnBorrowEscape, diag.SevError, r.builder.Exprs.Get(arg).Span,
				"'%s' (%s) cannot be passed to a spawned task", r.name(bid), o)
		case o.Kind == KindOwned:
			r.res.Bindings[bid] = Shared()
			r.report(diag.OwnSharedAcrossJob, diag.SevInfo, r.builder.Exprs.Get(arg).Span,
				"'%s' is shared with a spawned task", r.name(bid))
		}
	}
}
