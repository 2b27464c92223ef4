package ownership

import (
	"fmt"

	"lumen/internal/symbols"
	"lumen/internal/types"
)

// Kind is the ownership relation of a binding to its value.
type Kind uint8

const (
	KindOwned Kind = iota + 1
	KindBorrowed
	KindBorrowedMut
	KindShared
	KindCopy
)

func (k Kind) String() string {
	switch k {
	case KindOwned:
		return "owned"
	case KindBorrowed:
		return "borrowed"
	case KindBorrowedMut:
		return "borrowed-mut"
	case KindShared:
		return "shared"
	case KindCopy:
		return "copy"
	default:
		return "?"
	}
}

// Lifetime names the lexical region a borrow is valid in.
type Lifetime struct {
	ID    uint32
	Scope symbols.ScopeID
}

func (l Lifetime) String() string {
	return fmt.Sprintf("'l%d", l.ID)
}

// Ownership is a binding's tag. Only borrows carry a lifetime; use the
// constructors so the zero Lifetime never leaks into other kinds.
type Ownership struct {
	Kind Kind
	life Lifetime
}

func Owned() Ownership  { return Ownership{Kind: KindOwned} }
func Shared() Ownership { return Ownership{Kind: KindShared} }
func Copy() Ownership   { return Ownership{Kind: KindCopy} }

func Borrowed(l Lifetime) Ownership    { return Ownership{Kind: KindBorrowed, life: l} }
func BorrowedMut(l Lifetime) Ownership { return Ownership{Kind: KindBorrowedMut, life: l} }

// IsCopy reports value semantics.
func (o Ownership) IsCopy() bool { return o.Kind == KindCopy }

// IsBorrow reports Borrowed and BorrowedMut.
func (o Ownership) IsBorrow() bool {
	return o.Kind == KindBorrowed || o.Kind == KindBorrowedMut
}

// Lifetime returns the borrow's lifetime; ok is false for every other kind.
func (o Ownership) Lifetime() (Lifetime, bool) {
	if !o.IsBorrow() {
		return Lifetime{}, false
	}
	return o.life, true
}

func (o Ownership) String() string {
	switch o.Kind {
	case KindBorrowed:
		return "&" + o.life.String()
	case KindBorrowedMut:
		return "&mut " + o.life.String()
	}
	return o.Kind.String()
}

// IsCopyType reports the types duplicated implicitly: bool, int and float.
// number lowers to a float in every backend and is copied too.
func IsCopyType(in *types.Interner, id types.TypeID) bool {
	switch in.KindOf(id) {
	case types.KindBool, types.KindInt, types.KindFloat, types.KindNumber:
		return true
	}
	return false
}

// DefaultOwnership is Copy for copy types and Owned otherwise.
func DefaultOwnership(in *types.Interner, id types.TypeID) Ownership {
	if IsCopyType(in, id) {
		return Copy()
	}
	return Owned()
}

var sharedWrappers = map[string]bool{
	"Shared": true,
	"Rc":     true,
	"Arc":    true,
}

// isSharedType reports reference-counted wrapper types.
func isSharedType(in *types.Interner, id types.TypeID) bool {
	info, ok := in.GenericInfo(id)
	if !ok {
		return false
	}
	name, _ := in.Strings.Lookup(info.Name)
	return sharedWrappers[name]
}
