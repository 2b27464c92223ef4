package ir

import (
	"strconv"

	"lumen/internal/source"
	"lumen/internal/types"
)

// Value is an SSA value id; it prints as %N.
type Value uint32

// NoValue marks an instruction without a destination.
const NoValue Value = 0

func (v Value) String() string {
	if v == NoValue {
		return "_"
	}
	return "%" + strconv.FormatUint(uint64(v), 10)
}

type BlockID int32

const NoBlockID BlockID = -1

func (b BlockID) String() string {
	if b == NoBlockID {
		return "bb?"
	}
	return "bb" + strconv.FormatInt(int64(b), 10)
}

// Param is a function parameter bound to its SSA value.
type Param struct {
	Name  string
	Type  types.TypeID
	Value Value
}

type Block struct {
	ID     BlockID
	Instrs []Instr
}

// Terminator returns the block's final instruction if it ends control flow.
func (b *Block) Terminator() (*Instr, bool) {
	if b == nil || len(b.Instrs) == 0 {
		return nil, false
	}
	last := &b.Instrs[len(b.Instrs)-1]
	return last, last.Kind.IsTerminator()
}

func (b *Block) Terminated() bool {
	_, ok := b.Terminator()
	return ok
}

type Func struct {
	Name   string
	Span   source.Span
	Params []Param
	// Result is NoTypeID for functions without a declared result.
	Result types.TypeID
	Async  bool
	Blocks []Block
	Entry  BlockID
}

// Block returns the block that declares id, or nil. Lowered functions
// keep Blocks[i].ID == i; other builders may number blocks freely.
func (f *Func) Block(id BlockID) *Block {
	if f == nil || id < 0 {
		return nil
	}
	if int(id) < len(f.Blocks) && f.Blocks[id].ID == id {
		return &f.Blocks[id]
	}
	for i := range f.Blocks {
		if f.Blocks[i].ID == id {
			return &f.Blocks[i]
		}
	}
	return nil
}

// blockIndex maps declared block ids to their position in Blocks. The
// first declaration wins for duplicated ids.
func (f *Func) blockIndex() map[BlockID]int {
	idx := make(map[BlockID]int, len(f.Blocks))
	for i := range f.Blocks {
		if _, dup := idx[f.Blocks[i].ID]; !dup {
			idx[f.Blocks[i].ID] = i
		}
	}
	return idx
}

// Module is the lowered form of one program file.
type Module struct {
	Funcs []*Func
	// Skipped lists functions not lowered because of earlier errors.
	Skipped []string
	Types   *types.Interner
}

// Func returns the function with the given qualified name, or nil.
func (m *Module) Func(name string) *Func {
	if m == nil {
		return nil
	}
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
