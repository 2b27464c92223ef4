package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"lumen/internal/types"
)

// Dump writes a human-readable listing of the module:
//
//	fn add(%1: number, %2: number) -> number {
//	bb0:
//	  %3 = alloca number ; a copy
//	  ...
//	}
func Dump(w io.Writer, m *Module) error {
	if w == nil || m == nil {
		return nil
	}
	for i, f := range m.Funcs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := dumpFunc(w, f, m.Types); err != nil {
			return err
		}
	}
	for _, name := range m.Skipped {
		if _, err := fmt.Fprintf(w, "\n; %s skipped: errors\n", name); err != nil {
			return err
		}
	}
	return nil
}

func dumpFunc(w io.Writer, f *Func, in *types.Interner) error {
	var sb strings.Builder
	if f.Async {
		sb.WriteString("async ")
	}
	sb.WriteString("fn ")
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Value != NoValue {
			sb.WriteString(p.Value.String())
		} else {
			sb.WriteString(p.Name)
		}
		sb.WriteString(": ")
		sb.WriteString(typeStr(in, p.Type))
	}
	sb.WriteByte(')')
	if f.Result != types.NoTypeID {
		sb.WriteString(" -> ")
		sb.WriteString(typeStr(in, f.Result))
	}
	if len(f.Blocks) == 0 {
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}
	sb.WriteString(" {\n")
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&sb, "%s:\n", bb.ID)
		for j := range bb.Instrs {
			sb.WriteString("  ")
			sb.WriteString(FormatInstr(in, &bb.Instrs[j]))
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func typeStr(in *types.Interner, id types.TypeID) string {
	if in == nil {
		return "type#" + strconv.FormatUint(uint64(id), 10)
	}
	return types.Label(in, id)
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// FormatInstr renders one instruction the way Dump prints it.
func FormatInstr(in *types.Interner, ins *Instr) string {
	var body string
	switch ins.Kind {
	case InstrAdd, InstrSubtract, InstrMultiply, InstrDivide, InstrModulo,
		InstrEq, InstrNotEq, InstrLt, InstrGt, InstrLtEq, InstrGtEq, InstrAnd, InstrOr:
		body = fmt.Sprintf("%s %s, %s", ins.Kind, ins.Binary.Left, ins.Binary.Right)
	case InstrNot:
		body = fmt.Sprintf("not %s", ins.Not.Operand)
	case InstrConst:
		text := ins.Const.Text
		switch ins.Const.Kind {
		case ConstString:
			text = strconv.Quote(text)
		case ConstFunc:
			text = "@" + text
		}
		body = fmt.Sprintf("const %s %s", typeStr(in, ins.Type), text)
	case InstrAlloca:
		body = "alloca " + typeStr(in, ins.Alloca.Elem)
		if ins.Alloca.Name != "" {
			body += " ; " + ins.Alloca.Name + " " + ins.Alloca.Own
		}
	case InstrLoad:
		body = fmt.Sprintf("load %s", ins.Load.Addr)
	case InstrStore:
		var path strings.Builder
		for _, p := range ins.Store.Path {
			if p.Key != NoValue {
				fmt.Fprintf(&path, "[%s]", p.Key)
			} else {
				path.WriteString("." + p.Field)
			}
		}
		body = fmt.Sprintf("store %s -> %s%s", ins.Store.Value, ins.Store.Addr, path.String())
	case InstrStructAccess:
		body = fmt.Sprintf("access %s.%s", ins.Access.Object, ins.Access.Field)
	case InstrStructConstruct:
		c := ins.Construct
		if c.Name == "" {
			body = fmt.Sprintf("tuple (%s)", joinValues(c.Args))
			break
		}
		fields := make([]string, len(c.Args))
		for i, a := range c.Args {
			name := strconv.Itoa(i)
			if i < len(c.Fields) {
				name = c.Fields[i]
			}
			fields[i] = name + ": " + a.String()
		}
		body = fmt.Sprintf("struct %s {%s}", c.Name, strings.Join(fields, ", "))
	case InstrEnumConstruct:
		body = fmt.Sprintf("enum %s.%s(%s)", ins.Construct.Name, ins.Construct.Variant, joinValues(ins.Construct.Args))
	case InstrListGet, InstrMapGet:
		body = fmt.Sprintf("%s %s[%s]", ins.Kind, ins.Get.Collection, ins.Get.Key)
	case InstrPhi:
		edges := make([]string, len(ins.Phi.Incoming))
		for i, e := range ins.Phi.Incoming {
			edges[i] = fmt.Sprintf("[%s, %s]", e.Block, e.Value)
		}
		body = "phi " + strings.Join(edges, ", ")
	case InstrCall, InstrCallAsync:
		callee := "@" + ins.Call.Callee
		if ins.Call.Callee == "" {
			callee = ins.Call.Fn.String()
		}
		body = fmt.Sprintf("%s %s(%s)", ins.Kind, callee, joinValues(ins.Call.Args))
	case InstrBranch:
		body = fmt.Sprintf("br %s, %s, %s", ins.Branch.Cond, ins.Branch.Then, ins.Branch.Else)
	case InstrJump:
		body = fmt.Sprintf("jmp %s", ins.Jump.Target)
	case InstrMatch:
		arms := make([]string, 0, len(ins.Match.Arms)+1)
		for _, a := range ins.Match.Arms {
			arms = append(arms, fmt.Sprintf("%s => %s", a.Label, a.Target))
		}
		if ins.Match.Default != NoBlockID {
			arms = append(arms, fmt.Sprintf("_ => %s", ins.Match.Default))
		}
		body = fmt.Sprintf("match %s [%s]", ins.Match.Value, strings.Join(arms, ", "))
	case InstrReturn:
		body = "ret"
		if ins.Return.Value != NoValue {
			body += " " + ins.Return.Value.String()
		}
	default:
		body = ins.Kind.String()
	}
	if ins.Dest != NoValue {
		return ins.Dest.String() + " = " + body
	}
	return body
}
