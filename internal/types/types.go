package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type. Inside collection descriptors it
// stands for "element not known yet" (empty literals).
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindNull
	KindBool
	KindString
	KindNumber // language-level number; lowers to a float
	KindInt    // integer refinement of number
	KindFloat  // fractional refinement of number
	KindNamed
	KindGeneric
	KindFn
	KindList
	KindMap
	KindTuple
	KindOptional
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindNamed:
		return "named"
	case KindGeneric:
		return "generic"
	case KindFn:
		return "fn"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTuple:
		return "tuple"
	case KindOptional:
		return "optional"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor. Elem is the list/optional element or the map
// key; Value is the map value; Name is set for named types; Payload indexes
// the fn/tuple/generic side tables.
type Type struct {
	Kind    Kind
	Elem    TypeID
	Value   TypeID
	Name    uint32 // source.StringID
	Payload uint32
}

// MakeList describes [elem].
func MakeList(elem TypeID) Type {
	return Type{Kind: KindList, Elem: elem}
}

// MakeMap describes {key: value}.
func MakeMap(key, value TypeID) Type {
	return Type{Kind: KindMap, Elem: key, Value: value}
}

// MakeOptional describes inner?.
func MakeOptional(inner TypeID) Type {
	return Type{Kind: KindOptional, Elem: inner}
}
