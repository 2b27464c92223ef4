package symbols

import (
	"lumen/internal/source"
	"lumen/internal/types"
)

// Param is one named, typed function parameter.
type Param struct {
	Name source.StringID
	Type types.TypeID
	Span source.Span
}

// FunctionSignature captures a function's callable shape. Result is
// types.NoTypeID when the function declares none (treated as void).
type FunctionSignature struct {
	Name   source.StringID
	Params []Param
	Result types.TypeID
	Async  bool
	Span   source.Span
}

// ParamTypes returns the parameter types in order.
func (s *FunctionSignature) ParamTypes() []types.TypeID {
	out := make([]types.TypeID, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Type
	}
	return out
}

type Field struct {
	Name source.StringID
	Type types.TypeID
	Span source.Span
}

// StructDef is a user-defined record type.
type StructDef struct {
	Name          source.StringID
	Type          types.TypeID
	Fields        []Field
	GenericParams []source.StringID
	Span          source.Span
}

// Field returns the field with the given name.
func (d *StructDef) Field(name source.StringID) (Field, int, bool) {
	for i, f := range d.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

type Variant struct {
	Name    source.StringID
	Payload []types.TypeID
	Span    source.Span
}

// EnumDef is a tagged union type.
type EnumDef struct {
	Name     source.StringID
	Type     types.TypeID
	Variants []Variant
	Span     source.Span
}

// Variant returns the variant with the given name and its tag index.
func (d *EnumDef) Variant(name source.StringID) (Variant, int, bool) {
	for i, v := range d.Variants {
		if v.Name == name {
			return v, i, true
		}
	}
	return Variant{}, -1, false
}
