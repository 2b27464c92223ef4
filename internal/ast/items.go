package ast

import "lumen/internal/source"

type ItemKind uint8

const (
	ItemFn ItemKind = iota + 1
	ItemStruct
	ItemEnum
	ItemTypeAlias
	ItemModule
)

func (k ItemKind) String() string {
	switch k {
	case ItemFn:
		return "fn"
	case ItemStruct:
		return "struct"
	case ItemEnum:
		return "enum"
	case ItemTypeAlias:
		return "type"
	case ItemModule:
		return "module"
	default:
		return "item?"
	}
}

type Item struct {
	Kind    ItemKind
	Span    source.Span
	Name    source.StringID
	Payload PayloadID
}

type FnParam struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

type FnItem struct {
	Params []FnParam
	Result TypeExprID // NoTypeExprID: no declared result
	Body   StmtID
	Async  bool
}

type StructField struct {
	Name source.StringID
	Type TypeExprID
	Span source.Span
}

type StructItem struct {
	TypeParams []source.StringID
	Fields     []StructField
}

type EnumVariant struct {
	Name    source.StringID
	Payload []TypeExprID
	Span    source.Span
}

type EnumItem struct {
	Variants []EnumVariant
}

type TypeAliasItem struct {
	Target TypeExprID
}

type ModuleItem struct {
	Items []ItemID
}

type Items struct {
	Arena   *Arena[Item]
	Fns     *Arena[FnItem]
	Structs *Arena[StructItem]
	Enums   *Arena[EnumItem]
	Aliases *Arena[TypeAliasItem]
	Modules *Arena[ModuleItem]
}

func NewItems(capHint uint) *Items {
	return &Items{
		Arena:   NewArena[Item](capHint),
		Fns:     NewArena[FnItem](capHint),
		Structs: NewArena[StructItem](capHint / 2),
		Enums:   NewArena[EnumItem](capHint / 4),
		Aliases: NewArena[TypeAliasItem](capHint / 4),
		Modules: NewArena[ModuleItem](capHint / 8),
	}
}

func (i *Items) new(kind ItemKind, span source.Span, name source.StringID, payload PayloadID) ItemID {
	return ItemID(i.Arena.Allocate(Item{Kind: kind, Span: span, Name: name, Payload: payload}))
}

func (i *Items) Get(id ItemID) *Item {
	return i.Arena.Get(uint32(id))
}

func (i *Items) NewFn(span source.Span, name source.StringID, fn FnItem) ItemID {
	return i.new(ItemFn, span, name, PayloadID(i.Fns.Allocate(fn)))
}

func (i *Items) Fn(id ItemID) (*FnItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemFn {
		return nil, false
	}
	return i.Fns.Get(uint32(item.Payload)), true
}

func (i *Items) NewStruct(span source.Span, name source.StringID, st StructItem) ItemID {
	return i.new(ItemStruct, span, name, PayloadID(i.Structs.Allocate(st)))
}

func (i *Items) Struct(id ItemID) (*StructItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemStruct {
		return nil, false
	}
	return i.Structs.Get(uint32(item.Payload)), true
}

func (i *Items) NewEnum(span source.Span, name source.StringID, en EnumItem) ItemID {
	return i.new(ItemEnum, span, name, PayloadID(i.Enums.Allocate(en)))
}

func (i *Items) Enum(id ItemID) (*EnumItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemEnum {
		return nil, false
	}
	return i.Enums.Get(uint32(item.Payload)), true
}

func (i *Items) NewTypeAlias(span source.Span, name source.StringID, target TypeExprID) ItemID {
	return i.new(ItemTypeAlias, span, name, PayloadID(i.Aliases.Allocate(TypeAliasItem{Target: target})))
}

func (i *Items) TypeAlias(id ItemID) (*TypeAliasItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemTypeAlias {
		return nil, false
	}
	return i.Aliases.Get(uint32(item.Payload)), true
}

func (i *Items) NewModule(span source.Span, name source.StringID, items []ItemID) ItemID {
	return i.new(ItemModule, span, name, PayloadID(i.Modules.Allocate(ModuleItem{Items: items})))
}

func (i *Items) Module(id ItemID) (*ModuleItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemModule {
		return nil, false
	}
	return i.Modules.Get(uint32(item.Payload)), true
}
