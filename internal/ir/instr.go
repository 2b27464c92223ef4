package ir

import "lumen/internal/types"

// InstrKind enumerates instruction kinds. The set is closed; every switch
// over it in this package is exhaustive.
type InstrKind uint8

const (
	InstrAdd InstrKind = iota + 1
	InstrSubtract
	InstrMultiply
	InstrDivide
	InstrModulo
	InstrEq
	InstrNotEq
	InstrLt
	InstrGt
	InstrLtEq
	InstrGtEq
	InstrAnd
	InstrOr
	InstrNot
	InstrConst
	InstrAlloca
	InstrLoad
	InstrStore
	InstrStructAccess
	InstrStructConstruct
	InstrEnumConstruct
	InstrListGet
	InstrMapGet
	InstrPhi
	InstrCall
	InstrCallAsync
	// terminators
	InstrBranch
	InstrJump
	InstrMatch
	InstrReturn
)

var instrNames = [...]string{
	InstrAdd:             "add",
	InstrSubtract:        "sub",
	InstrMultiply:        "mul",
	InstrDivide:          "div",
	InstrModulo:          "mod",
	InstrEq:              "eq",
	InstrNotEq:           "ne",
	InstrLt:              "lt",
	InstrGt:              "gt",
	InstrLtEq:            "le",
	InstrGtEq:            "ge",
	InstrAnd:             "and",
	InstrOr:              "or",
	InstrNot:             "not",
	InstrConst:           "const",
	InstrAlloca:          "alloca",
	InstrLoad:            "load",
	InstrStore:           "store",
	InstrStructAccess:    "access",
	InstrStructConstruct: "struct",
	InstrEnumConstruct:   "enum",
	InstrListGet:         "list_get",
	InstrMapGet:          "map_get",
	InstrPhi:             "phi",
	InstrCall:            "call",
	InstrCallAsync:       "call_async",
	InstrBranch:          "br",
	InstrJump:            "jmp",
	InstrMatch:           "match",
	InstrReturn:          "ret",
}

func (k InstrKind) String() string {
	if int(k) < len(instrNames) && instrNames[k] != "" {
		return instrNames[k]
	}
	return "instr?"
}

// IsTerminator reports kinds that end a block.
func (k InstrKind) IsTerminator() bool {
	return k >= InstrBranch && k <= InstrReturn
}

// IsBinary reports the two-operand arithmetic, comparison and logical kinds.
func (k InstrKind) IsBinary() bool {
	return k >= InstrAdd && k <= InstrOr
}

// Instr is one IR instruction. Kind selects which payload is meaningful.
type Instr struct {
	Kind InstrKind
	// Dest is NoValue for Store, terminators and calls whose result is
	// discarded.
	Dest Value
	Type types.TypeID

	Binary    BinaryInstr
	Not       NotInstr
	Const     ConstInstr
	Alloca    AllocaInstr
	Load      LoadInstr
	Store     StoreInstr
	Access    AccessInstr
	Construct ConstructInstr
	Get       GetInstr
	Phi       PhiInstr
	Call      CallInstr
	Branch    BranchInstr
	Jump      JumpInstr
	Match     MatchInstr
	Return    ReturnInstr
}

type BinaryInstr struct {
	Left, Right Value
}

type NotInstr struct {
	Operand Value
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota + 1
	ConstFloat
	ConstString
	ConstBool
	ConstNull
	// ConstFunc names a function used as a value.
	ConstFunc
)

type ConstInstr struct {
	Kind ConstKind
	Text string
}

// AllocaInstr reserves a slot for a local. Own is the binding's ownership
// tag as displayed by the ownership pass.
type AllocaInstr struct {
	Name string
	Elem types.TypeID
	Own  string
}

type LoadInstr struct {
	Addr Value
}

// PathElem selects a struct field (Field set) or a collection element (Key
// set) below a store address.
type PathElem struct {
	Field string
	Index int
	Key   Value
}

type StoreInstr struct {
	Addr  Value
	Path  []PathElem
	Value Value
}

// AccessInstr reads a struct field, tuple element or variant payload slot.
type AccessInstr struct {
	Object Value
	Field  string
	Index  int
}

// ConstructInstr builds a struct (Fields names each arg), a tuple (empty
// Name) or an enum variant.
type ConstructInstr struct {
	Name    string
	Variant string
	Fields  []string
	Args    []Value
}

type GetInstr struct {
	Collection Value
	Key        Value
}

type PhiEdge struct {
	Block BlockID
	Value Value
}

type PhiInstr struct {
	Incoming []PhiEdge
}

// CallInstr calls Callee by name, or Fn when Callee is empty.
type CallInstr struct {
	Callee string
	Fn     Value
	Args   []Value
}

type BranchInstr struct {
	Cond       Value
	Then, Else BlockID
}

type JumpInstr struct {
	Target BlockID
}

// MatchArm routes values equal to Label (a variant name or literal text).
type MatchArm struct {
	Label  string
	Target BlockID
}

// MatchInstr must set Default explicitly: NoBlockID when every value is
// covered by an arm. The zero value would route to bb0, the entry block,
// which Validate rejects as a target.
type MatchInstr struct {
	Value   Value
	Arms    []MatchArm
	Default BlockID
}

type ReturnInstr struct {
	Value Value
}

// Operands appends every value the instruction reads to dst.
func (in *Instr) Operands(dst []Value) []Value {
	add := func(vs ...Value) {
		for _, v := range vs {
			if v != NoValue {
				dst = append(dst, v)
			}
		}
	}
	switch in.Kind {
	case InstrAdd, InstrSubtract, InstrMultiply, InstrDivide, InstrModulo,
		InstrEq, InstrNotEq, InstrLt, InstrGt, InstrLtEq, InstrGtEq, InstrAnd, InstrOr:
		add(in.Binary.Left, in.Binary.Right)
	case InstrNot:
		add(in.Not.Operand)
	case InstrConst, InstrAlloca:
	case InstrLoad:
		add(in.Load.Addr)
	case InstrStore:
		add(in.Store.Addr)
		for _, p := range in.Store.Path {
			add(p.Key)
		}
		add(in.Store.Value)
	case InstrStructAccess:
		add(in.Access.Object)
	case InstrStructConstruct, InstrEnumConstruct:
		add(in.Construct.Args...)
	case InstrListGet, InstrMapGet:
		add(in.Get.Collection, in.Get.Key)
	case InstrPhi:
		for _, e := range in.Phi.Incoming {
			add(e.Value)
		}
	case InstrCall, InstrCallAsync:
		add(in.Call.Fn)
		add(in.Call.Args...)
	case InstrBranch:
		add(in.Branch.Cond)
	case InstrJump:
	case InstrMatch:
		add(in.Match.Value)
	case InstrReturn:
		add(in.Return.Value)
	}
	return dst
}

// Targets appends the blocks a terminator may transfer control to.
func (in *Instr) Targets(dst []BlockID) []BlockID {
	switch in.Kind {
	case InstrBranch:
		dst = append(dst, in.Branch.Then, in.Branch.Else)
	case InstrJump:
		dst = append(dst, in.Jump.Target)
	case InstrMatch:
		for _, a := range in.Match.Arms {
			dst = append(dst, a.Target)
		}
		if in.Match.Default != NoBlockID {
			dst = append(dst, in.Match.Default)
		}
	}
	return dst
}

// retarget rewrites every block reference through fn.
func (in *Instr) retarget(fn func(BlockID) BlockID) {
	switch in.Kind {
	case InstrBranch:
		in.Branch.Then = fn(in.Branch.Then)
		in.Branch.Else = fn(in.Branch.Else)
	case InstrJump:
		in.Jump.Target = fn(in.Jump.Target)
	case InstrMatch:
		for i := range in.Match.Arms {
			in.Match.Arms[i].Target = fn(in.Match.Arms[i].Target)
		}
		if in.Match.Default != NoBlockID {
			in.Match.Default = fn(in.Match.Default)
		}
	case InstrPhi:
		for i := range in.Phi.Incoming {
			in.Phi.Incoming[i].Block = fn(in.Phi.Incoming[i].Block)
		}
	}
}
