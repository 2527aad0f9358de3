package opt

import "bell/internal/mir"

// simplifyCFG collapses empty arms, removes blocks the entry can no longer
// reach and merges straight-line chains. A block named as the join of a
// conditional branch is never merged away. It returns the number of blocks
// removed.
func simplifyCFG(fn *mir.Function) int {
	collapseEmptyArms(fn)
	removed := removeUnreachable(fn)

	for {
		merged := mergeChain(fn)
		if merged == 0 {
			break
		}
		removed += merged
	}
	return removed
}

func collapseEmptyArms(fn *mir.Function) {
	byID := blockMap(fn)
	emptyTo := func(id, join mir.BlockID) bool {
		b := byID[id]
		if b == nil || id == join || len(b.Instrs) > 0 {
			return false
		}
		br, ok := b.Term.(*mir.Br)
		return ok && br.Target == join
	}

	for _, b := range fn.Blocks {
		cb, ok := b.Term.(*mir.CondBr)
		if !ok {
			continue
		}
		if emptyTo(cb.Then, cb.Join) {
			cb.Then = cb.Join
		}
		if emptyTo(cb.Else, cb.Join) {
			cb.Else = cb.Join
		}
		if cb.Then == cb.Join && cb.Else == cb.Join {
			b.Term = &mir.Br{Target: cb.Join, Location: cb.Location}
		}
	}
}

func removeUnreachable(fn *mir.Function) int {
	byID := blockMap(fn)
	live := make(map[mir.BlockID]bool)
	var visit func(id mir.BlockID)
	visit = func(id mir.BlockID) {
		if live[id] || byID[id] == nil {
			return
		}
		live[id] = true
		for _, succ := range mir.Successors(byID[id].Term) {
			visit(succ)
		}
	}
	visit(fn.Entry)

	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if live[b.ID] {
			kept = append(kept, b)
		}
	}
	removed := len(fn.Blocks) - len(kept)
	fn.Blocks = kept
	return removed
}

// mergeChain folds one block ending in Br into its target when that target
// has no other predecessor and is not a join point.
func mergeChain(fn *mir.Function) int {
	preds := make(map[mir.BlockID]int)
	joins := make(map[mir.BlockID]bool)
	for _, b := range fn.Blocks {
		for _, succ := range mir.Successors(b.Term) {
			preds[succ]++
		}
		if cb, ok := b.Term.(*mir.CondBr); ok {
			joins[cb.Join] = true
		}
	}

	byID := blockMap(fn)
	for _, b := range fn.Blocks {
		br, ok := b.Term.(*mir.Br)
		if !ok || br.Target == b.ID || br.Target == fn.Entry {
			continue
		}
		next := byID[br.Target]
		if next == nil || preds[next.ID] != 1 || joins[next.ID] {
			continue
		}
		b.Instrs = append(b.Instrs, next.Instrs...)
		b.Term = next.Term
		dropBlock(fn, next.ID)
		return 1
	}
	return 0
}

func dropBlock(fn *mir.Function, id mir.BlockID) {
	for i, b := range fn.Blocks {
		if b.ID == id {
			fn.Blocks = append(fn.Blocks[:i], fn.Blocks[i+1:]...)
			return
		}
	}
}

func blockMap(fn *mir.Function) map[mir.BlockID]*mir.Block {
	out := make(map[mir.BlockID]*mir.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		out[b.ID] = b
	}
	return out
}
