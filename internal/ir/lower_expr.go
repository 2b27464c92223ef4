package ir

import (
	"strconv"

	"lumen/internal/ast"
	"lumen/internal/sema"
	"lumen/internal/types"
)

var binaryKinds = map[ast.BinaryOp]InstrKind{
	ast.BinaryAdd:   InstrAdd,
	ast.BinarySub:   InstrSubtract,
	ast.BinaryMul:   InstrMultiply,
	ast.BinaryDiv:   InstrDivide,
	ast.BinaryMod:   InstrModulo,
	ast.BinaryEq:    InstrEq,
	ast.BinaryNotEq: InstrNotEq,
	ast.BinaryLt:    InstrLt,
	ast.BinaryLtEq:  InstrLtEq,
	ast.BinaryGt:    InstrGt,
	ast.BinaryGtEq:  InstrGtEq,
}

var constKinds = map[ast.LitKind]ConstKind{
	ast.LitInt:    ConstInt,
	ast.LitFloat:  ConstFloat,
	ast.LitString: ConstString,
	ast.LitBool:   ConstBool,
	ast.LitNull:   ConstNull,
}

// exprFrame is one entry of the expression worklist. step 0 enters the
// node; later steps run once the values of its children are on the stack.
type exprFrame struct {
	id    ast.ExprID
	step  uint8
	async bool
	left  Value
	from  BlockID
	join  BlockID
	// keys counts index keys evaluated for an assignment target
	keys int
}

type exprWalk struct {
	l     *lowerer
	stack []exprFrame
	vals  []Value
}

func (w *exprWalk) push(f exprFrame) { w.stack = append(w.stack, f) }

func (w *exprWalk) result(v Value) { w.vals = append(w.vals, v) }

// pop removes the top n values and returns them in evaluation order.
func (w *exprWalk) pop(n int) []Value {
	out := make([]Value, n)
	copy(out, w.vals[len(w.vals)-n:])
	w.vals = w.vals[:len(w.vals)-n]
	return out
}

func (w *exprWalk) pop1() Value {
	v := w.vals[len(w.vals)-1]
	w.vals = w.vals[:len(w.vals)-1]
	return v
}

// expr lowers an expression tree and returns the value it produces, or
// NoValue for void expressions.
func (l *lowerer) expr(root ast.ExprID) Value {
	if !root.IsValid() {
		return NoValue
	}
	w := &exprWalk{l: l, stack: []exprFrame{{id: root}}}
	for len(w.stack) > 0 {
		f := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]
		if f.step == 0 {
			w.enter(f)
		} else {
			w.exit(f)
		}
	}
	if len(w.vals) == 0 {
		return NoValue
	}
	return w.vals[len(w.vals)-1]
}

func (l *lowerer) typeOf(id ast.ExprID) types.TypeID {
	return l.sem.ExprTypes[id]
}

func (w *exprWalk) pushChildren(f exprFrame) {
	w.push(exprFrame{id: f.id, step: 1, async: f.async})
	kids := w.l.b.Exprs.Children(nil, f.id)
	for i := len(kids) - 1; i >= 0; i-- {
		w.push(exprFrame{id: kids[i]})
	}
}

func (w *exprWalk) enter(f exprFrame) {
	l := w.l
	exprs := l.b.Exprs
	expr := exprs.Get(f.id)
	if expr == nil {
		w.result(NoValue)
		return
	}
	switch expr.Kind {
	case ast.ExprIdent:
		w.result(l.ident(f.id))

	case ast.ExprLit:
		lit, _ := exprs.Literal(f.id)
		w.result(l.value(Instr{
			Kind:  InstrConst,
			Type:  l.typeOf(f.id),
			Const: ConstInstr{Kind: constKinds[lit.Kind], Text: l.literalText(f.id)},
		}))

	case ast.ExprGroup:
		g, _ := exprs.Group(f.id)
		w.push(exprFrame{id: g.Inner, async: f.async})

	case ast.ExprUnary:
		un, _ := exprs.Unary(f.id)
		if un.Op == ast.UnaryRef || un.Op == ast.UnaryRefMut {
			operand := exprs.Unparen(un.Operand)
			if slot, ok := l.slots[l.sem.ExprBinding[operand]]; ok {
				w.result(slot)
				return
			}
		}
		w.pushChildren(f)

	case ast.ExprBinary:
		bin, _ := exprs.Binary(f.id)
		if bin.Op.IsLogical() {
			w.push(exprFrame{id: f.id, step: 1})
			w.push(exprFrame{id: bin.Left})
			return
		}
		w.pushChildren(f)

	case ast.ExprCall:
		call, _ := exprs.Call(f.id)
		w.push(exprFrame{id: f.id, step: 1, async: f.async})
		for i := len(call.Args) - 1; i >= 0; i-- {
			w.push(exprFrame{id: call.Args[i]})
		}
		if c, ok := l.sem.Callees[f.id]; !ok || c.Kind == sema.CalleeValue {
			w.push(exprFrame{id: call.Target})
		}

	case ast.ExprSpawn:
		sp, _ := exprs.Spawn(f.id)
		w.push(exprFrame{id: exprs.Unparen(sp.Call), async: true})

	case ast.ExprMember:
		if m, ok := l.sem.Members[f.id]; ok && m.Kind == sema.MemberVariant {
			v := m.Enum.Variants[m.Index]
			w.result(l.value(Instr{
				Kind:      InstrEnumConstruct,
				Type:      m.Enum.Type,
				Construct: ConstructInstr{Name: types.Label(l.in, m.Enum.Type), Variant: l.b.Lookup(v.Name)},
			}))
			return
		}
		if c, ok := l.sem.Callees[f.id]; ok && c.Kind == sema.CalleeFunction {
			w.result(l.funcRef(f.id, c.Name))
			return
		}
		w.pushChildren(f)

	case ast.ExprAssign:
		as, _ := exprs.Assign(f.id)
		keys := l.targetKeys(as.Target)
		w.push(exprFrame{id: f.id, step: 1, keys: len(keys)})
		w.push(exprFrame{id: as.Value})
		for i := len(keys) - 1; i >= 0; i-- {
			w.push(exprFrame{id: keys[i]})
		}

	default:
		w.pushChildren(f)
	}
}

func (w *exprWalk) exit(f exprFrame) {
	l := w.l
	exprs := l.b.Exprs
	expr := exprs.Get(f.id)
	t := l.typeOf(f.id)
	switch expr.Kind {
	case ast.ExprUnary:
		un, _ := exprs.Unary(f.id)
		operand := w.pop1()
		switch un.Op {
		case ast.UnaryNeg:
			zero := l.value(Instr{Kind: InstrConst, Type: t, Const: ConstInstr{Kind: ConstInt, Text: "0"}})
			w.result(l.value(Instr{Kind: InstrSubtract, Type: t, Binary: BinaryInstr{Left: zero, Right: operand}}))
		case ast.UnaryNot:
			w.result(l.value(Instr{Kind: InstrNot, Type: t, Not: NotInstr{Operand: operand}}))
		case ast.UnaryAwait:
			w.result(l.call("async.await", t, operand))
		default:
			// borrow of a temporary: spill it to a slot
			tmp := l.value(Instr{Kind: InstrAlloca, Type: t, Alloca: AllocaInstr{Elem: t, Own: "owned"}})
			l.store(tmp, nil, operand)
			w.result(tmp)
		}

	case ast.ExprBinary:
		bin, _ := exprs.Binary(f.id)
		if bin.Op.IsLogical() {
			w.logical(f, bin.Op, t)
			return
		}
		vs := w.pop(2)
		w.result(l.value(Instr{Kind: binaryKinds[bin.Op], Type: t, Binary: BinaryInstr{Left: vs[0], Right: vs[1]}}))

	case ast.ExprCall:
		call, _ := exprs.Call(f.id)
		args := w.pop(len(call.Args))
		c, ok := l.sem.Callees[f.id]
		if ok && c.Kind == sema.CalleeVariant {
			v := c.Enum.Variants[c.Variant]
			w.result(l.value(Instr{
				Kind:      InstrEnumConstruct,
				Type:      t,
				Construct: ConstructInstr{Name: types.Label(l.in, c.Enum.Type), Variant: l.b.Lookup(v.Name), Args: args},
			}))
			return
		}
		ins := Instr{Kind: InstrCall, Type: t, Call: CallInstr{Args: args}}
		if f.async {
			ins.Kind = InstrCallAsync
		}
		if ok && c.Kind == sema.CalleeFunction {
			ins.Call.Callee = c.Name
		} else {
			ins.Call.Fn = w.pop1()
		}
		if t == types.NoTypeID || l.in.KindOf(t) == types.KindVoid {
			l.emit(ins)
			w.result(NoValue)
			return
		}
		w.result(l.value(ins))

	case ast.ExprMember:
		m, _ := exprs.Member(f.id)
		obj := w.pop1()
		info := l.sem.Members[f.id]
		w.result(l.value(Instr{
			Kind:   InstrStructAccess,
			Type:   t,
			Access: AccessInstr{Object: obj, Field: l.b.Lookup(m.Field), Index: info.Index},
		}))

	case ast.ExprIndex:
		ix, _ := exprs.Index(f.id)
		vs := w.pop(2)
		switch l.in.KindOf(l.typeOf(ix.Target)) {
		case types.KindMap:
			w.result(l.value(Instr{Kind: InstrMapGet, Type: t, Get: GetInstr{Collection: vs[0], Key: vs[1]}}))
		case types.KindTuple:
			n, _ := strconv.Atoi(l.literalText(ix.Index))
			w.result(l.value(Instr{Kind: InstrStructAccess, Type: t, Access: AccessInstr{Object: vs[0], Field: strconv.Itoa(n), Index: n}}))
		default:
			w.result(l.value(Instr{Kind: InstrListGet, Type: t, Get: GetInstr{Collection: vs[0], Key: vs[1]}}))
		}

	case ast.ExprStruct:
		sl, _ := exprs.Struct(f.id)
		args := w.pop(len(sl.Fields))
		names := make([]string, len(sl.Fields))
		for i, fl := range sl.Fields {
			names[i] = l.b.Lookup(fl.Name)
		}
		w.result(l.value(Instr{
			Kind:      InstrStructConstruct,
			Type:      t,
			Construct: ConstructInstr{Name: l.b.Lookup(sl.Name), Fields: names, Args: args},
		}))

	case ast.ExprList:
		list, _ := exprs.List(f.id)
		w.result(l.call("list.of", t, w.pop(len(list.Elems))...))

	case ast.ExprMap:
		mp, _ := exprs.Map(f.id)
		w.result(l.call("map.of", t, w.pop(2*len(mp.Entries))...))

	case ast.ExprTuple:
		tp, _ := exprs.Tuple(f.id)
		w.result(l.value(Instr{Kind: InstrStructConstruct, Type: t, Construct: ConstructInstr{Args: w.pop(len(tp.Elems))}}))

	case ast.ExprAssign:
		as, _ := exprs.Assign(f.id)
		value := w.pop1()
		keys := w.pop(f.keys)
		l.assign(as.Target, keys, value)
		w.result(NoValue)
	}
}

// logical lowers && and || with short-circuit control flow joined by a phi.
func (w *exprWalk) logical(f exprFrame, op ast.BinaryOp, t types.TypeID) {
	l := w.l
	if f.step == 1 {
		bin, _ := l.b.Exprs.Binary(f.id)
		left := w.pop1()
		from := l.cur
		rhs, join := l.newBlock(), l.newBlock()
		if op == ast.BinaryAnd {
			l.emit(branch(left, rhs, join))
		} else {
			l.emit(branch(left, join, rhs))
		}
		l.cur = rhs
		w.push(exprFrame{id: f.id, step: 2, left: left, from: from, join: join})
		w.push(exprFrame{id: bin.Right})
		return
	}
	right := w.pop1()
	rhsEnd := l.cur
	l.jump(f.join)
	l.cur = f.join
	w.result(l.value(Instr{
		Kind: InstrPhi,
		Type: t,
		Phi:  PhiInstr{Incoming: []PhiEdge{{Block: f.from, Value: f.left}, {Block: rhsEnd, Value: right}}},
	}))
}

func (l *lowerer) ident(id ast.ExprID) Value {
	if bid, ok := l.sem.ExprBinding[id]; ok {
		if slot, ok := l.slots[bid]; ok {
			return l.value(Instr{Kind: InstrLoad, Type: l.typeOf(id), Load: LoadInstr{Addr: slot}})
		}
	}
	if c, ok := l.sem.Callees[id]; ok && c.Kind == sema.CalleeFunction {
		return l.funcRef(id, c.Name)
	}
	ident, _ := l.b.Exprs.Ident(id)
	l.fail(l.b.Exprs.Get(id).Span, "no storage for '%s'", l.b.Lookup(ident.Name))
	return NoValue
}

func (l *lowerer) funcRef(id ast.ExprID, name string) Value {
	return l.value(Instr{Kind: InstrConst, Type: l.typeOf(id), Const: ConstInstr{Kind: ConstFunc, Text: name}})
}

// targetChain returns the member/index chain of an assignment target from
// its root identifier outward.
func (l *lowerer) targetChain(target ast.ExprID) []ast.ExprID {
	exprs := l.b.Exprs
	var chain []ast.ExprID
	for id := exprs.Unparen(target); id.IsValid(); {
		chain = append(chain, id)
		if m, ok := exprs.Member(id); ok {
			id = exprs.Unparen(m.Target)
			continue
		}
		if ix, ok := exprs.Index(id); ok {
			id = exprs.Unparen(ix.Target)
			continue
		}
		break
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// targetKeys lists the index expressions of an assignment target in
// evaluation order.
func (l *lowerer) targetKeys(target ast.ExprID) []ast.ExprID {
	var keys []ast.ExprID
	for _, id := range l.targetChain(target) {
		if ix, ok := l.b.Exprs.Index(id); ok {
			keys = append(keys, ix.Index)
		}
	}
	return keys
}

func (l *lowerer) assign(target ast.ExprID, keys []Value, value Value) {
	exprs := l.b.Exprs
	chain := l.targetChain(target)
	root := chain[0]
	slot, ok := l.slots[l.sem.ExprBinding[root]]
	if !ok {
		l.fail(exprs.Get(target).Span, "assignment target has no storage")
		return
	}
	var path []PathElem
	k := 0
	for _, id := range chain[1:] {
		if m, ok := exprs.Member(id); ok {
			path = append(path, PathElem{Field: l.b.Lookup(m.Field), Index: l.sem.Members[id].Index})
			continue
		}
		path = append(path, PathElem{Key: keys[k]})
		k++
	}
	l.store(slot, path, value)
}
