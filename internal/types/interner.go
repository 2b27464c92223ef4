package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"lumen/internal/source"
)

// Builtins stores TypeIDs for primitive types.
type Builtins struct {
	Void   TypeID
	Null   TypeID
	Bool   TypeID
	String TypeID
	Number TypeID
	Int    TypeID
	Float  TypeID
}

// FnInfo stores metadata for function types.
type FnInfo struct {
	Params []TypeID
	Result TypeID
}

// TupleInfo stores the element types for a tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// GenericInfo stores a generic instantiation such as Box<T>.
type GenericInfo struct {
	Name source.StringID
	Args []TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors, so two
// structurally equal types always share one TypeID.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	sigs     map[string]TypeID // fn/tuple/generic signatures
	builtins Builtins
	fns      []FnInfo
	tuples   []TupleInfo
	generics []GenericInfo
	Strings  *source.Interner
}

// NewInterner constructs an interner seeded with built-in primitives.
// strings resolves names of named and generic types; nil gets a fresh one.
func NewInterner(strings *source.Interner) *Interner {
	if strings == nil {
		strings = source.NewInterner()
	}
	in := &Interner{
		index:   make(map[Type]TypeID, 64),
		sigs:    make(map[string]TypeID, 32),
		Strings: strings,
	}
	in.types = append(in.types, Type{Kind: KindInvalid}) // slot 0 = NoTypeID
	in.fns = append(in.fns, FnInfo{})
	in.tuples = append(in.tuples, TupleInfo{})
	in.generics = append(in.generics, GenericInfo{})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Null = in.Intern(Type{Kind: KindNull})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	in.builtins.Number = in.Intern(Type{Kind: KindNumber})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// KindOf returns the kind of id, or KindInvalid.
func (in *Interner) KindOf(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// Named returns the nominal type with the given name.
func (in *Interner) Named(name source.StringID) TypeID {
	return in.Intern(Type{Kind: KindNamed, Name: uint32(name)})
}

// NamedByString interns name first.
func (in *Interner) NamedByString(name string) TypeID {
	return in.Named(in.Strings.Intern(name))
}

func (in *Interner) List(elem TypeID) TypeID { return in.Intern(MakeList(elem)) }
func (in *Interner) Map(key, value TypeID) TypeID { return in.Intern(MakeMap(key, value)) }
func (in *Interner) Optional(inner TypeID) TypeID { return in.Intern(MakeOptional(inner)) }

// RegisterFn creates or finds a function type.
func (in *Interner) RegisterFn(params []TypeID, result TypeID) TypeID {
	key := sigKey("fn", 0, params, result)
	if id, ok := in.sigs[key]; ok {
		return id
	}
	in.fns = append(in.fns, FnInfo{Params: slices.Clone(params), Result: result})
	id := in.internRaw(Type{Kind: KindFn, Payload: lastSlot(len(in.fns))})
	in.sigs[key] = id
	return id
}

// FnInfo retrieves function type metadata by TypeID.
func (in *Interner) FnInfo(id TypeID) (*FnInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindFn || int(tt.Payload) >= len(in.fns) {
		return nil, false
	}
	return &in.fns[tt.Payload], true
}

// RegisterTuple creates or finds a tuple type with the given elements.
func (in *Interner) RegisterTuple(elems []TypeID) TypeID {
	key := sigKey("tuple", 0, elems, NoTypeID)
	if id, ok := in.sigs[key]; ok {
		return id
	}
	in.tuples = append(in.tuples, TupleInfo{Elems: slices.Clone(elems)})
	id := in.internRaw(Type{Kind: KindTuple, Payload: lastSlot(len(in.tuples))})
	in.sigs[key] = id
	return id
}

// TupleInfo returns the element types for a tuple TypeID.
func (in *Interner) TupleInfo(id TypeID) (*TupleInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple || int(tt.Payload) >= len(in.tuples) {
		return nil, false
	}
	return &in.tuples[tt.Payload], true
}

// RegisterGeneric creates or finds Name<Args...>.
func (in *Interner) RegisterGeneric(name source.StringID, args []TypeID) TypeID {
	key := sigKey("generic", name, args, NoTypeID)
	if id, ok := in.sigs[key]; ok {
		return id
	}
	in.generics = append(in.generics, GenericInfo{Name: name, Args: slices.Clone(args)})
	id := in.internRaw(Type{Kind: KindGeneric, Name: uint32(name), Payload: lastSlot(len(in.generics))})
	in.sigs[key] = id
	return id
}

// GenericInfo returns the generic instantiation for a TypeID.
func (in *Interner) GenericInfo(id TypeID) (*GenericInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindGeneric || int(tt.Payload) >= len(in.generics) {
		return nil, false
	}
	return &in.generics[tt.Payload], true
}

// NameOf returns the name of a named or generic type.
func (in *Interner) NameOf(id TypeID) (string, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindNamed && tt.Kind != KindGeneric) {
		return "", false
	}
	return in.Strings.Lookup(source.StringID(tt.Name))
}

// Len reports how many types have been interned, including the sentinel.
func (in *Interner) Len() int {
	return len(in.types)
}

func lastSlot(n int) uint32 {
	slot, err := safecast.Conv[uint32](n - 1)
	if err != nil {
		panic(fmt.Errorf("type side table overflow: %w", err))
	}
	return slot
}

func sigKey(kind string, name source.StringID, ids []TypeID, result TypeID) string {
	var sb strings.Builder
	sb.WriteString(kind)
	sb.WriteByte(':')
	sb.WriteString(strconv.FormatUint(uint64(name), 10))
	sb.WriteByte('(')
	for i, id := range ids {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	sb.WriteString(")->")
	sb.WriteString(strconv.FormatUint(uint64(result), 10))
	return sb.String()
}
