package opt

import (
	"strings"

	"bell/internal/mir"
	"bell/internal/slots"
)

// eliminateDeadStores removes pure writes to cells nothing in the program
// ever reads, repeating until no more go away. Cells are global, so reads
// are collected across every unit. Counters and entry results stay.
func eliminateDeadStores(prog *mir.Program) int {
	keep := make(map[*slots.Slot]bool)
	for _, e := range prog.Entries {
		for _, leaf := range e.Result.Leaves() {
			keep[leaf] = true
		}
	}

	var raws []string
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if r, ok := instr.(*mir.Raw); ok {
					raws = append(raws, r.Text)
				}
			}
		}
	}

	removed := 0
	for {
		read := collectReads(prog)
		n := 0
		for _, fn := range prog.Functions {
			for _, b := range fn.Blocks {
				kept := b.Instrs[:0]
				for _, instr := range b.Instrs {
					if dst := mir.Writes(instr); dst != nil && mir.IsPure(instr) &&
						!read[dst] && !keep[dst] && !dst.Observable() && !mentioned(raws, dst) {
						n++
						continue
					}
					kept = append(kept, instr)
				}
				b.Instrs = kept
			}
		}
		if n == 0 {
			return removed
		}
		removed += n
	}
}

func collectReads(prog *mir.Program) map[*slots.Slot]bool {
	read := make(map[*slots.Slot]bool)
	for _, fn := range prog.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				for _, s := range mir.Reads(instr) {
					read[s] = true
				}
			}
			if cb, ok := b.Term.(*mir.CondBr); ok {
				read[cb.Cond] = true
			}
		}
	}
	return read
}

// mentioned reports whether passthrough command text names the cell.
func mentioned(raws []string, s *slots.Slot) bool {
	for _, text := range raws {
		if strings.Contains(text, s.String()) {
			return true
		}
	}
	return false
}
