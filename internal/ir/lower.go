package ir

import (
	"fmt"
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/diag"
	"lumen/internal/ownership"
	"lumen/internal/sema"
	"lumen/internal/source"
	"lumen/internal/trace"
	"lumen/internal/types"
)

// Options configure Lower.
type Options struct {
	Reporter    diag.Reporter
	Tracer      trace.Tracer
	TraceParent uint64
}

// Lower builds one Func per checked function. Functions the type checker or
// the ownership pass marked as failed are listed in Module.Skipped instead:
// no IR is produced for code with outstanding errors.
//
// Locals live in Alloca slots and are read with Load, so every Value is
// assigned exactly once. Control flow is lowered with an explicit task
// stack and never recurses on nesting depth.
func Lower(builder *ast.Builder, sem *sema.Result, own *ownership.Result, opts Options) *Module {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	span := trace.Begin(opts.Tracer, trace.ScopePass, "lower", opts.TraceParent)
	m := &Module{Types: sem.Types}
	for _, info := range sem.Funcs {
		if info.Failed || own != nil && own.Failed[info.Item] {
			m.Skipped = append(m.Skipped, info.Name)
			continue
		}
		trace.Point(opts.Tracer, trace.ScopeNode, "lower:"+info.Name, "", span.ID(), nil)
		l := &lowerer{
			b:     builder,
			sem:   sem,
			own:   own,
			in:    sem.Types,
			rep:   opts.Reporter,
			info:  info,
			slots: make(map[sema.BindingID]Value),
		}
		f := l.function()
		if l.failed {
			m.Skipped = append(m.Skipped, info.Name)
			continue
		}
		m.Funcs = append(m.Funcs, f)
	}
	span.WithExtra("funcs", strconv.Itoa(len(m.Funcs))).
		WithExtra("skipped", strconv.Itoa(len(m.Skipped))).
		End("")
	return m
}

type lowerer struct {
	b    *ast.Builder
	sem  *sema.Result
	own  *ownership.Result
	in   *types.Interner
	rep  diag.Reporter
	info *sema.FuncInfo

	fn     *Func
	cur    BlockID
	next   Value
	slots  map[sema.BindingID]Value
	failed bool
}

func (l *lowerer) fail(span source.Span, format string, args ...any) {
	l.failed = true
	if l.rep != nil {
		msg := fmt.Sprintf("%s: %s", l.info.Name, fmt.Sprintf(format, args...))
		diag.Emit(l.rep, diag.New(diag.SevError, diag.IRLowering, span, msg))
	}
}

func (l *lowerer) function() *Func {
	item := l.b.Items.Get(l.info.Item)
	l.fn = &Func{
		Name:   l.info.Name,
		Span:   item.Span,
		Result: l.info.Sig.Result,
		Async:  l.info.Sig.Async,
		Entry:  NoBlockID,
	}
	if !l.info.Body.IsValid() {
		for _, p := range l.info.Sig.Params {
			l.fn.Params = append(l.fn.Params, Param{Name: l.b.Lookup(p.Name), Type: p.Type})
		}
		return l.fn
	}
	l.fn.Entry = l.newBlock()
	l.cur = l.fn.Entry
	for _, p := range l.info.Sig.Params {
		l.fn.Params = append(l.fn.Params, Param{Name: l.b.Lookup(p.Name), Type: p.Type, Value: l.fresh()})
	}
	for i, bid := range l.info.Params {
		if i < len(l.fn.Params) {
			l.store(l.slot(bid), nil, l.fn.Params[i].Value)
		}
	}
	l.body(l.info.Body)
	if !l.terminated() {
		l.emit(Instr{Kind: InstrReturn})
	}
	RemoveUnreachable(l.fn)
	return l.fn
}

func (l *lowerer) fresh() Value {
	l.next++
	return l.next
}

func (l *lowerer) newBlock() BlockID {
	id := BlockID(len(l.fn.Blocks))
	l.fn.Blocks = append(l.fn.Blocks, Block{ID: id})
	return id
}

func (l *lowerer) terminated() bool {
	return l.fn.Block(l.cur).Terminated()
}

// emit appends ins to the current block. Code following a terminator goes
// to a fresh block that RemoveUnreachable later drops.
func (l *lowerer) emit(ins Instr) {
	if l.terminated() {
		l.cur = l.newBlock()
	}
	bb := l.fn.Block(l.cur)
	bb.Instrs = append(bb.Instrs, ins)
}

// value emits ins with a fresh destination and returns it.
func (l *lowerer) value(ins Instr) Value {
	ins.Dest = l.fresh()
	l.emit(ins)
	return ins.Dest
}

func (l *lowerer) jump(target BlockID) {
	if !l.terminated() {
		l.emit(Instr{Kind: InstrJump, Jump: JumpInstr{Target: target}})
	}
}

// slot allocates the stack slot of a binding.
func (l *lowerer) slot(id sema.BindingID) Value {
	b := l.sem.Binding(id)
	if b == nil {
		return NoValue
	}
	own := ownership.DefaultOwnership(l.in, b.Type).String()
	if l.own != nil {
		own = l.own.Of(id).String()
	}
	v := l.value(Instr{
		Kind:   InstrAlloca,
		Type:   b.Type,
		Alloca: AllocaInstr{Name: l.b.Lookup(b.Name), Elem: b.Type, Own: own},
	})
	l.slots[id] = v
	return v
}

func (l *lowerer) store(addr Value, path []PathElem, v Value) {
	l.emit(Instr{Kind: InstrStore, Store: StoreInstr{Addr: addr, Path: path, Value: v}})
}

func (l *lowerer) call(name string, t types.TypeID, args ...Value) Value {
	return l.value(Instr{Kind: InstrCall, Type: t, Call: CallInstr{Callee: name, Args: args}})
}

type taskKind uint8

const (
	taskStmt  taskKind = iota
	taskBlock          // continue emitting into block
	taskJump           // jump to block unless already terminated
	taskBind           // bind a match arm's pattern to value
)

type task struct {
	kind    taskKind
	stmt    ast.StmtID
	block   BlockID
	pattern ast.PatternID
	value   Value
}

func (l *lowerer) body(root ast.StmtID) {
	tasks := []task{{kind: taskStmt, stmt: root}}
	for len(tasks) > 0 {
		t := tasks[len(tasks)-1]
		tasks = tasks[:len(tasks)-1]
		switch t.kind {
		case taskBlock:
			l.cur = t.block
		case taskJump:
			l.jump(t.block)
		case taskBind:
			l.bindPattern(t.pattern, t.value)
		case taskStmt:
			tasks = l.stmt(t.stmt, tasks)
		}
	}
}

// stmt lowers straight-line statements directly and pushes the pieces of
// compound ones onto tasks in reverse execution order.
func (l *lowerer) stmt(id ast.StmtID, tasks []task) []task {
	stmts := l.b.Stmts
	stmt := stmts.Get(id)
	if stmt == nil {
		return tasks
	}
	push := func(ts ...task) { tasks = append(tasks, ts...) }
	switch stmt.Kind {
	case ast.StmtBlock:
		block, _ := stmts.Block(id)
		for i := len(block.Stmts) - 1; i >= 0; i-- {
			push(task{kind: taskStmt, stmt: block.Stmts[i]})
		}

	case ast.StmtLet:
		let, _ := stmts.Let(id)
		v := l.expr(let.Value)
		slot := l.slot(l.sem.StmtBinding[id])
		if v != NoValue && slot != NoValue {
			l.store(slot, nil, v)
		}

	case ast.StmtReturn:
		ret, _ := stmts.Return(id)
		v := l.expr(ret.Value)
		l.emit(Instr{Kind: InstrReturn, Return: ReturnInstr{Value: v}})

	case ast.StmtExpr:
		es, _ := stmts.Expr(id)
		l.expr(es.Expr)

	case ast.StmtIf:
		ifs, _ := stmts.If(id)
		cond := l.expr(ifs.Cond)
		thenB := l.newBlock()
		elseB := NoBlockID
		if ifs.Else.IsValid() {
			elseB = l.newBlock()
		}
		join := l.newBlock()
		if elseB == NoBlockID {
			l.emit(branch(cond, thenB, join))
		} else {
			l.emit(branch(cond, thenB, elseB))
		}
		push(task{kind: taskBlock, block: join})
		if elseB != NoBlockID {
			push(task{kind: taskJump, block: join},
				task{kind: taskStmt, stmt: ifs.Else},
				task{kind: taskBlock, block: elseB})
		}
		push(task{kind: taskJump, block: join},
			task{kind: taskStmt, stmt: ifs.Then},
			task{kind: taskBlock, block: thenB})

	case ast.StmtWhile:
		ws, _ := stmts.While(id)
		header := l.newBlock()
		l.jump(header)
		l.cur = header
		cond := l.expr(ws.Cond)
		bodyB, exit := l.newBlock(), l.newBlock()
		l.emit(branch(cond, bodyB, exit))
		push(task{kind: taskBlock, block: exit},
			task{kind: taskJump, block: header},
			task{kind: taskStmt, stmt: ws.Body},
			task{kind: taskBlock, block: bodyB})

	case ast.StmtFor:
		fs, _ := stmts.For(id)
		b := l.in.Builtins()
		iterable := l.expr(fs.Iterable)
		iter := l.call("iter.init", types.NoTypeID, iterable)
		header := l.newBlock()
		l.jump(header)
		l.cur = header
		has := l.call("iter.has_next", b.Bool, iter)
		bodyB, exit := l.newBlock(), l.newBlock()
		l.emit(branch(has, bodyB, exit))
		l.cur = bodyB
		bid := l.sem.StmtBinding[id]
		elem := types.NoTypeID
		if bd := l.sem.Binding(bid); bd != nil {
			elem = bd.Type
		}
		x := l.call("iter.next", elem, iter)
		if slot := l.slot(bid); slot != NoValue {
			l.store(slot, nil, x)
		}
		push(task{kind: taskBlock, block: exit},
			task{kind: taskJump, block: header},
			task{kind: taskStmt, stmt: fs.Body})

	case ast.StmtMatch:
		ms, _ := stmts.Match(id)
		scrut := l.expr(ms.Scrutinee)
		m := MatchInstr{Value: scrut, Default: NoBlockID}
		blocks := make([]BlockID, len(ms.Arms))
		for i, arm := range ms.Arms {
			blocks[i] = l.newBlock()
			pat := l.b.Patterns.Get(arm.Pattern)
			switch {
			case pat == nil:
			case pat.IsIrrefutable():
				if m.Default == NoBlockID {
					m.Default = blocks[i]
				}
			case pat.Kind == ast.PatVariant:
				m.Arms = append(m.Arms, MatchArm{Label: l.b.Lookup(pat.Name), Target: blocks[i]})
			case pat.Kind == ast.PatLiteral:
				m.Arms = append(m.Arms, MatchArm{Label: l.literalText(pat.Literal), Target: blocks[i]})
			}
		}
		exit := l.newBlock()
		if m.Default == NoBlockID {
			m.Default = exit
		}
		l.emit(Instr{Kind: InstrMatch, Match: m})
		push(task{kind: taskBlock, block: exit})
		for i := len(ms.Arms) - 1; i >= 0; i-- {
			push(task{kind: taskJump, block: exit},
				task{kind: taskStmt, stmt: ms.Arms[i].Body},
				task{kind: taskBind, pattern: ms.Arms[i].Pattern, value: scrut},
				task{kind: taskBlock, block: blocks[i]})
		}
	}
	return tasks
}

func branch(cond Value, then, els BlockID) Instr {
	return Instr{Kind: InstrBranch, Branch: BranchInstr{Cond: cond, Then: then, Else: els}}
}

// bindPattern stores the scrutinee, or each variant payload slot, into the
// arm's bindings.
func (l *lowerer) bindPattern(id ast.PatternID, scrut Value) {
	pat := l.b.Patterns.Get(id)
	binds := l.sem.ArmBindings[id]
	if pat == nil || len(binds) == 0 {
		return
	}
	switch pat.Kind {
	case ast.PatBinding:
		l.store(l.slot(binds[0]), nil, scrut)
	case ast.PatVariant:
		variant := l.b.Lookup(pat.Name)
		for i, bid := range binds {
			bd := l.sem.Binding(bid)
			if bd == nil {
				continue
			}
			v := l.value(Instr{
				Kind:   InstrStructAccess,
				Type:   bd.Type,
				Access: AccessInstr{Object: scrut, Field: variant, Index: i},
			})
			l.store(l.slot(bid), nil, v)
		}
	}
}

func (l *lowerer) literalText(id ast.ExprID) string {
	lit, ok := l.b.Exprs.Literal(l.b.Exprs.Unparen(id))
	if !ok {
		return "?"
	}
	if lit.Kind == ast.LitNull {
		return "null"
	}
	return l.b.Lookup(lit.Value)
}
