package ast

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinaryAdd BinaryOp = iota + 1
	BinarySub
	BinaryMul
	BinaryDiv
	BinaryMod
	BinaryEq
	BinaryNotEq
	BinaryLt
	BinaryLtEq
	BinaryGt
	BinaryGtEq
	BinaryAnd // short-circuit &&
	BinaryOr  // short-circuit ||
)

var binaryOpText = map[BinaryOp]string{
	BinaryAdd:   "+",
	BinarySub:   "-",
	BinaryMul:   "*",
	BinaryDiv:   "/",
	BinaryMod:   "%",
	BinaryEq:    "==",
	BinaryNotEq: "!=",
	BinaryLt:    "<",
	BinaryLtEq:  "<=",
	BinaryGt:    ">",
	BinaryGtEq:  ">=",
	BinaryAnd:   "&&",
	BinaryOr:    "||",
}

func (op BinaryOp) String() string {
	if s, ok := binaryOpText[op]; ok {
		return s
	}
	return "?"
}

// ParseBinaryOp maps operator text to a BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for op, text := range binaryOpText {
		if text == s {
			return op, true
		}
	}
	return 0, false
}

// IsComparison reports ops that always produce bool.
func (op BinaryOp) IsComparison() bool {
	return op >= BinaryEq && op <= BinaryGtEq
}

func (op BinaryOp) IsLogical() bool {
	return op == BinaryAnd || op == BinaryOr
}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnaryNeg UnaryOp = iota + 1
	UnaryNot
	UnaryRef    // &x
	UnaryRefMut // &mut x
	UnaryAwait
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNeg:
		return "-"
	case UnaryNot:
		return "!"
	case UnaryRef:
		return "&"
	case UnaryRefMut:
		return "&mut"
	case UnaryAwait:
		return "await"
	default:
		return "?"
	}
}
