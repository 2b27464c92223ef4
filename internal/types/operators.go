package types

import "lumen/internal/ast"

// FamilyMask describes broad categories of types an operator accepts.
type FamilyMask uint32

const (
	FamilyNone FamilyMask = 0
	FamilyAny  FamilyMask = 1 << iota
	FamilyBool
	FamilyInt
	FamilyFloat
	FamilyNumber
	FamilyString
	FamilyList
	FamilyMap
	FamilyOptional
	FamilyNull
)

const FamilyNumeric = FamilyInt | FamilyFloat | FamilyNumber

// BinaryResult describes how to derive the result type for an operator.
type BinaryResult uint8

const (
	BinaryResultUnknown BinaryResult = iota
	BinaryResultLeft
	BinaryResultBool
	BinaryResultNumeric
)

// BinaryFlags annotate special handling for binary operators.
type BinaryFlags uint8

const (
	BinaryFlagNone         BinaryFlags = 0
	BinaryFlagShortCircuit BinaryFlags = 1 << iota
	BinaryFlagSameFamily
)

// BinarySpec lists operand families and expected result for an operation.
type BinarySpec struct {
	Left   FamilyMask
	Right  FamilyMask
	Result BinaryResult
	Flags  BinaryFlags
}

// UnaryResult indicates how to derive the resulting type.
type UnaryResult uint8

const (
	UnaryResultUnknown UnaryResult = iota
	UnaryResultSame
	UnaryResultBool
)

// UnarySpec describes operand expectations for unary operators.
type UnarySpec struct {
	Operand FamilyMask
	Result  UnaryResult
}

var binarySpecTable = map[ast.BinaryOp][]BinarySpec{
	ast.BinaryAdd: {
		{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric},
		{Left: FamilyString, Right: FamilyString, Result: BinaryResultLeft},
	},
	ast.BinarySub: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	ast.BinaryMul: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	ast.BinaryDiv: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	ast.BinaryMod: {{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultNumeric}},
	ast.BinaryAnd: {{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit}},
	ast.BinaryOr:  {{Left: FamilyBool, Right: FamilyBool, Result: BinaryResultBool, Flags: BinaryFlagShortCircuit}},
	ast.BinaryEq: {
		{Left: FamilyAny, Right: FamilyAny, Result: BinaryResultBool, Flags: BinaryFlagSameFamily},
	},
	ast.BinaryNotEq: {
		{Left: FamilyAny, Right: FamilyAny, Result: BinaryResultBool, Flags: BinaryFlagSameFamily},
	},
	ast.BinaryLt:   orderingSpecs,
	ast.BinaryLtEq: orderingSpecs,
	ast.BinaryGt:   orderingSpecs,
	ast.BinaryGtEq: orderingSpecs,
}

var orderingSpecs = []BinarySpec{
	{Left: FamilyNumeric, Right: FamilyNumeric, Result: BinaryResultBool},
	{Left: FamilyString, Right: FamilyString, Result: BinaryResultBool},
}

var unarySpecTable = map[ast.UnaryOp]UnarySpec{
	ast.UnaryNeg:    {Operand: FamilyNumeric, Result: UnaryResultSame},
	ast.UnaryNot:    {Operand: FamilyBool, Result: UnaryResultBool},
	ast.UnaryRef:    {Operand: FamilyAny, Result: UnaryResultSame},
	ast.UnaryRefMut: {Operand: FamilyAny, Result: UnaryResultSame},
	ast.UnaryAwait:  {Operand: FamilyAny, Result: UnaryResultSame},
}

// BinarySpecs returns the operator table entries for op.
func BinarySpecs(op ast.BinaryOp) []BinarySpec {
	return binarySpecTable[op]
}

// UnarySpecFor returns the operator table entry for op.
func UnarySpecFor(op ast.UnaryOp) (UnarySpec, bool) {
	spec, ok := unarySpecTable[op]
	return spec, ok
}

// FamilyOf classifies a type into operator families.
func (in *Interner) FamilyOf(id TypeID) FamilyMask {
	switch in.KindOf(id) {
	case KindBool:
		return FamilyAny | FamilyBool
	case KindInt:
		return FamilyAny | FamilyInt
	case KindFloat:
		return FamilyAny | FamilyFloat
	case KindNumber:
		return FamilyAny | FamilyNumber
	case KindString:
		return FamilyAny | FamilyString
	case KindList:
		return FamilyAny | FamilyList
	case KindMap:
		return FamilyAny | FamilyMap
	case KindOptional:
		return FamilyAny | FamilyOptional
	case KindNull:
		return FamilyAny | FamilyNull
	case KindInvalid:
		return FamilyNone
	}
	return FamilyAny
}

// BinaryResultType applies the operator table to operand types. ok is false
// when no table row accepts the pair.
func (in *Interner) BinaryResultType(op ast.BinaryOp, left, right TypeID) (TypeID, bool) {
	lf, rf := in.FamilyOf(left), in.FamilyOf(right)
	for _, spec := range BinarySpecs(op) {
		if lf&spec.Left == 0 || rf&spec.Right == 0 {
			continue
		}
		if spec.Flags&BinaryFlagSameFamily != 0 && !in.comparable(left, right) {
			continue
		}
		switch spec.Result {
		case BinaryResultBool:
			return in.builtins.Bool, true
		case BinaryResultLeft:
			return left, true
		case BinaryResultNumeric:
			return in.numericResult(left, right), true
		}
	}
	return NoTypeID, false
}

// UnaryResultType applies the unary table to an operand type.
func (in *Interner) UnaryResultType(op ast.UnaryOp, operand TypeID) (TypeID, bool) {
	spec, ok := UnarySpecFor(op)
	if !ok || in.FamilyOf(operand)&spec.Operand == 0 {
		return NoTypeID, false
	}
	if spec.Result == UnaryResultBool {
		return in.builtins.Bool, true
	}
	return operand, true
}

func (in *Interner) comparable(a, b TypeID) bool {
	if in.Assignable(a, b) || in.Assignable(b, a) {
		return true
	}
	return in.IsNumeric(a) && in.IsNumeric(b)
}

// numericResult: int op int stays int, anything with number widens to
// number, otherwise float.
func (in *Interner) numericResult(a, b TypeID) TypeID {
	ka, kb := in.KindOf(a), in.KindOf(b)
	switch {
	case ka == KindInt && kb == KindInt:
		return in.builtins.Int
	case ka == KindNumber || kb == KindNumber:
		return in.builtins.Number
	}
	return in.builtins.Float
}
