package lir

import (
	"bell/internal/slots"
)

// PeepholeStats counts what Peephole removed.
type PeepholeStats struct {
	Commands  int
	Functions int
	Inlined   int
}

// Peephole runs the local cleanups until nothing changes: self-copies and
// overwritten stores go, empty functions and their invocations go,
// single-command functions are inlined into their callers and functions
// nothing invokes are dropped. Entry functions are never removed.
func Peephole(prog *Program) PeepholeStats {
	var stats PeepholeStats
	for changed := true; changed; {
		changed = false
		for _, fn := range prog.Functions {
			if n := removeSelfCopies(fn) + removeOverwritten(fn); n > 0 {
				stats.Commands += n
				changed = true
			}
		}
		if n := removeEmpty(prog); n > 0 {
			stats.Functions += n
			changed = true
		}
		if n := inlineSingles(prog); n > 0 {
			stats.Inlined += n
			changed = true
		}
		if n := removeUninvoked(prog); n > 0 {
			stats.Functions += n
			changed = true
		}
	}
	return stats
}

func removeSelfCopies(fn *Function) int {
	kept := fn.Commands[:0]
	n := 0
	for _, c := range fn.Commands {
		if op, ok := c.Op.(*Operation); ok && op.Kind == OpAssign && op.Dst == op.Src {
			n++
			continue
		}
		kept = append(kept, c)
	}
	fn.Commands = kept
	return n
}

// removeOverwritten drops an unguarded store whose cell is stored again,
// unconditionally, before anything could read it.
func removeOverwritten(fn *Function) int {
	dead := make(map[int]bool)
	for i, c := range fn.Commands {
		dst := Writes(c)
		if c.Guard != nil || dst == nil || !overwrites(c) || dst.Observable() {
			continue
		}
		for _, next := range fn.Commands[i+1:] {
			if barrier(next) || readsSlot(next, dst) {
				break
			}
			if Writes(next) == dst {
				if next.Guard == nil && overwrites(next) {
					dead[i] = true
				}
				break
			}
		}
	}
	if len(dead) == 0 {
		return 0
	}
	kept := fn.Commands[:0]
	for i, c := range fn.Commands {
		if !dead[i] {
			kept = append(kept, c)
		}
	}
	fn.Commands = kept
	return len(dead)
}

// overwrites reports whether a command's result ignores the previous value
// of its destination.
func overwrites(c Command) bool {
	switch op := c.Op.(type) {
	case *Set, *StoreCompare, *StoreNot:
		return true
	case *Operation:
		return op.Kind == OpAssign
	}
	return false
}

func readsSlot(c Command, s *slots.Slot) bool {
	for _, r := range Reads(c) {
		if r == s {
			return true
		}
	}
	return false
}

func removeEmpty(prog *Program) int {
	empty := make(map[string]bool)
	for _, fn := range prog.Functions {
		if !fn.Entry && len(fn.Commands) == 0 {
			empty[fn.Name] = true
		}
	}
	if len(empty) == 0 {
		return 0
	}
	for _, fn := range prog.Functions {
		kept := fn.Commands[:0]
		for _, c := range fn.Commands {
			if inv, ok := c.Op.(*Invoke); ok && empty[inv.Target] {
				continue
			}
			kept = append(kept, c)
		}
		fn.Commands = kept
	}
	return dropFunctions(prog, empty)
}

// inlineSingles replaces the invocation of a one-command function with the
// command itself when the guards can be combined.
func inlineSingles(prog *Program) int {
	single := make(map[string]Command)
	for _, fn := range prog.Functions {
		if !fn.Entry && len(fn.Commands) == 1 {
			single[fn.Name] = fn.Commands[0]
		}
	}
	n := 0
	for _, fn := range prog.Functions {
		for i, c := range fn.Commands {
			inv, ok := c.Op.(*Invoke)
			if !ok {
				continue
			}
			body, ok := single[inv.Target]
			if !ok || inv.Target == fn.Name || (c.Guard != nil && body.Guard != nil) {
				continue
			}
			if c.Guard != nil {
				body.Guard = c.Guard
			}
			fn.Commands[i] = body
			n++
		}
	}
	return n
}

func removeUninvoked(prog *Program) int {
	byName := make(map[string]*Function, len(prog.Functions))
	for _, fn := range prog.Functions {
		byName[fn.Name] = fn
	}

	live := make(map[string]bool)
	var work []*Function
	for _, fn := range prog.Functions {
		if fn.Entry {
			live[fn.Name] = true
			work = append(work, fn)
		}
	}
	for len(work) > 0 {
		fn := work[len(work)-1]
		work = work[:len(work)-1]
		for _, c := range fn.Commands {
			if inv, ok := c.Op.(*Invoke); ok && !live[inv.Target] {
				live[inv.Target] = true
				if callee := byName[inv.Target]; callee != nil {
					work = append(work, callee)
				}
			}
		}
	}

	gone := make(map[string]bool)
	for _, fn := range prog.Functions {
		if !live[fn.Name] {
			gone[fn.Name] = true
		}
	}
	return dropFunctions(prog, gone)
}

func dropFunctions(prog *Program, gone map[string]bool) int {
	if len(gone) == 0 {
		return 0
	}
	kept := prog.Functions[:0]
	for _, fn := range prog.Functions {
		if !gone[fn.Name] {
			kept = append(kept, fn)
		}
	}
	n := len(prog.Functions) - len(kept)
	prog.Functions = kept
	return n
}
