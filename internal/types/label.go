package types

import (
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindVoid, KindNull, KindBool, KindString, KindNumber, KindInt, KindFloat:
		return tt.Kind.String()
	case KindNamed:
		name, _ := typesIn.NameOf(id)
		return name
	case KindGeneric:
		info, _ := typesIn.GenericInfo(id)
		name, _ := typesIn.NameOf(id)
		return name + "<" + labelList(typesIn, info.Args, depth) + ">"
	case KindFn:
		info, _ := typesIn.FnInfo(id)
		out := "fn(" + labelList(typesIn, info.Params, depth) + ")"
		if info.Result != NoTypeID {
			out += " -> " + labelDepth(typesIn, info.Result, depth+1)
		}
		return out
	case KindList:
		return "[" + labelDepth(typesIn, tt.Elem, depth+1) + "]"
	case KindMap:
		return "{" + labelDepth(typesIn, tt.Elem, depth+1) + ": " + labelDepth(typesIn, tt.Value, depth+1) + "}"
	case KindTuple:
		info, _ := typesIn.TupleInfo(id)
		return "(" + labelList(typesIn, info.Elems, depth) + ")"
	case KindOptional:
		inner := labelDepth(typesIn, tt.Elem, depth+1)
		if typesIn.KindOf(tt.Elem) == KindFn {
			inner = "(" + inner + ")"
		}
		return inner + "?"
	default:
		return "?"
	}
}

func labelList(typesIn *Interner, ids []TypeID, depth int) string {
	parts := make([]string, len(ids))
	for i, elem := range ids {
		parts[i] = labelDepth(typesIn, elem, depth+1)
	}
	return strings.Join(parts, ", ")
}
