package opt

import (
	"bell/internal/mir"
	"bell/internal/slots"
)

type facts map[*slots.Slot]int32

func (f facts) clone() facts {
	out := make(facts, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

func meet(in []facts) facts {
	if len(in) == 0 {
		return facts{}
	}
	out := in[0].clone()
	for _, f := range in[1:] {
		for k, v := range out {
			if w, ok := f[k]; !ok || w != v {
				delete(out, k)
			}
		}
	}
	return out
}

// foldConstants propagates must-constants forward through the acyclic block
// graph of fn, seeded with the values its invokers guarantee. Instructions
// with constant operands become Const and decided branches become Br.
// It returns the number of rewrites.
func foldConstants(fn *mir.Function) int {
	order := topoOrder(fn)
	incoming := make(map[mir.BlockID][]facts)
	reached := map[mir.BlockID]bool{fn.Entry: true}
	rewrites := 0

	for _, block := range order {
		if !reached[block.ID] {
			continue
		}
		var known facts
		if block.ID == fn.Entry {
			known = make(facts, len(fn.Assume))
			for k, v := range fn.Assume {
				known[k] = v
			}
		} else {
			known = meet(incoming[block.ID])
		}

		for i, instr := range block.Instrs {
			if folded := foldInstr(fn, instr, known); folded != nil {
				block.Instrs[i] = folded
				rewrites++
			}
		}

		if cb, ok := block.Term.(*mir.CondBr); ok {
			if v, ok := known[cb.Cond]; ok {
				target := cb.Else
				if v != 0 {
					target = cb.Then
				}
				block.Term = &mir.Br{Target: target, Location: cb.Location}
				rewrites++
			}
		}

		for _, succ := range mir.Successors(block.Term) {
			if cb, ok := block.Term.(*mir.CondBr); ok && succ == cb.Join && cb.Join != cb.Then && cb.Join != cb.Else {
				// The join is reached through the arms, not directly.
				continue
			}
			reached[succ] = true
			incoming[succ] = append(incoming[succ], known)
		}
	}
	return rewrites
}

// foldInstr updates known for instr and returns a replacement when the
// instruction can be turned into a constant store.
func foldInstr(fn *mir.Function, instr mir.Instr, known facts) mir.Instr {
	switch i := instr.(type) {
	case *mir.Const:
		known[i.Dst] = i.Value
	case *mir.Copy:
		if v, ok := known[i.Src]; ok {
			known[i.Dst] = v
			return &mir.Const{Dst: i.Dst, Value: v, Location: i.Location}
		}
		delete(known, i.Dst)
	case *mir.Binary:
		l, lok := known[i.Left]
		r, rok := known[i.Right]
		if lok && rok {
			if v, ok := i.Op.Eval(l, r); ok {
				known[i.Dst] = v
				return &mir.Const{Dst: i.Dst, Value: v, Location: i.Location}
			}
		}
		delete(known, i.Dst)
	case *mir.Compare:
		l, lok := known[i.Left]
		r, rok := known[i.Right]
		if lok && rok {
			v := i.Op.Eval(l, r)
			known[i.Dst] = v
			return &mir.Const{Dst: i.Dst, Value: v, Location: i.Location}
		}
		delete(known, i.Dst)
	case *mir.Not:
		if v, ok := known[i.Src]; ok {
			out := int32(0)
			if v == 0 {
				out = 1
			}
			known[i.Dst] = out
			return &mir.Const{Dst: i.Dst, Value: out, Location: i.Location}
		}
		delete(known, i.Dst)
	case *mir.Adjust:
		delete(known, i.Dst)
	case *mir.Raw:
		clear(known)
	case *mir.Invoke:
		if i.Loop {
			clear(known)
			break
		}
		for k := range known {
			if !fn.Owns(k.Frame) {
				delete(known, k)
			}
		}
	}
	return nil
}

// topoOrder lists the blocks of fn in reverse postorder from the entry.
func topoOrder(fn *mir.Function) []*mir.Block {
	byID := make(map[mir.BlockID]*mir.Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		byID[b.ID] = b
	}

	seen := make(map[mir.BlockID]bool)
	var post []*mir.Block
	var visit func(id mir.BlockID)
	visit = func(id mir.BlockID) {
		if seen[id] || byID[id] == nil {
			return
		}
		seen[id] = true
		for _, succ := range mir.Successors(byID[id].Term) {
			visit(succ)
		}
		post = append(post, byID[id])
	}
	visit(fn.Entry)

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
