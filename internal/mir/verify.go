package mir

import "fmt"

// Verify checks the structural invariants later stages rely on: every block
// is terminated, branch targets exist, the block graph of each unit is
// acyclic and every invoked unit is defined.
func Verify(prog *Program) error {
	names := make(map[string]bool, len(prog.Functions))
	for _, fn := range prog.Functions {
		if names[fn.Name] {
			return fmt.Errorf("duplicate unit %s", fn.Name)
		}
		names[fn.Name] = true
	}

	for _, fn := range prog.Functions {
		if err := verifyFunction(fn, names); err != nil {
			return fmt.Errorf("%s: %w", fn.Name, err)
		}
	}

	for _, e := range prog.Entries {
		if !names[e.Unit] {
			return fmt.Errorf("entry %s names missing unit %s", e.Name, e.Unit)
		}
	}
	return nil
}

func verifyFunction(fn *Function, units map[string]bool) error {
	blocks := make(map[BlockID]*Block, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blocks[b.ID] = b
	}
	if blocks[fn.Entry] == nil {
		return fmt.Errorf("missing entry block %s", formatBlock(fn.Entry))
	}

	for _, b := range fn.Blocks {
		if b.Term == nil {
			return fmt.Errorf("block %s has no terminator", formatBlock(b.ID))
		}
		for _, succ := range Successors(b.Term) {
			if blocks[succ] == nil {
				return fmt.Errorf("block %s branches to missing %s", formatBlock(b.ID), formatBlock(succ))
			}
		}
		if cb, ok := b.Term.(*CondBr); ok && cb.Cond == nil {
			return fmt.Errorf("block %s branches on nothing", formatBlock(b.ID))
		}
		for _, instr := range b.Instrs {
			if inv, ok := instr.(*Invoke); ok && !units[inv.Target] {
				return fmt.Errorf("block %s invokes missing unit %s", formatBlock(b.ID), inv.Target)
			}
		}
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[BlockID]int, len(fn.Blocks))
	var visit func(id BlockID) error
	visit = func(id BlockID) error {
		switch color[id] {
		case grey:
			return fmt.Errorf("cycle through block %s", formatBlock(id))
		case black:
			return nil
		}
		color[id] = grey
		for _, succ := range Successors(blocks[id].Term) {
			if err := visit(succ); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	return visit(fn.Entry)
}
