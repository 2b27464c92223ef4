package ir

// RemoveUnreachable drops blocks not reachable from the entry, removes phi
// edges that came from them and renumbers the rest 0..n-1 in their
// original order.
func RemoveUnreachable(f *Func) {
	if f == nil || len(f.Blocks) == 0 {
		return
	}
	index := f.blockIndex()
	reachable := computeReachability(f, index)
	remap := make(map[BlockID]BlockID, len(f.Blocks))
	next := BlockID(0)
	renumbered := false
	for i, ok := range reachable {
		if !ok {
			continue
		}
		id := f.Blocks[i].ID
		if _, dup := remap[id]; dup {
			continue
		}
		remap[id] = next
		renumbered = renumbered || id != next
		next++
	}
	if int(next) == len(f.Blocks) && !renumbered {
		return
	}
	redirect := func(id BlockID) BlockID {
		if to, ok := remap[id]; ok {
			return to
		}
		return id
	}

	blocks := make([]Block, 0, next)
	for i := range f.Blocks {
		if !reachable[i] {
			continue
		}
		bb := f.Blocks[i]
		bb.ID = redirect(bb.ID)
		for j := range bb.Instrs {
			ins := &bb.Instrs[j]
			if ins.Kind == InstrPhi {
				kept := ins.Phi.Incoming[:0]
				for _, e := range ins.Phi.Incoming {
					if k, ok := index[e.Block]; ok && reachable[k] {
						kept = append(kept, e)
					}
				}
				ins.Phi.Incoming = kept
			}
			ins.retarget(redirect)
		}
		blocks = append(blocks, bb)
	}
	f.Blocks = blocks
	f.Entry = redirect(f.Entry)
}

// computeReachability walks successors from the entry block; the result
// is indexed by position in f.Blocks.
func computeReachability(f *Func, index map[BlockID]int) []bool {
	reachable := make([]bool, len(f.Blocks))
	stack := []BlockID{f.Entry}
	var succ []BlockID
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		i, ok := index[id]
		if !ok || reachable[i] {
			continue
		}
		reachable[i] = true
		if term, ok := f.Blocks[i].Terminator(); ok {
			succ = term.Targets(succ[:0])
			stack = append(stack, succ...)
		}
	}
	return reachable
}
