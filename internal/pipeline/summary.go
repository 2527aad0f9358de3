package pipeline

import (
	"fmt"

	"bell/colors"
	"bell/internal/lir"
	"bell/internal/mir/opt"
)

// PrintSummary prints what the compilation produced.
func (p *Pipeline) PrintSummary() {
	fmt.Println()
	colors.CYAN.Println("═══════════════════════════════════════")
	colors.CYAN.Println("          LOWERING SUMMARY")
	colors.CYAN.Println("═══════════════════════════════════════")

	fmt.Printf("Phase: %s\n", p.phase)
	fmt.Printf("Optimization: %s\n", p.cfg.OptLevel)
	if o := p.Stats.Opt; o != (opt.Stats{}) {
		fmt.Printf("  folded %d, merged %d blocks, %d dead stores\n", o.Folded, o.Blocks, o.DeadStores)
	}
	if ph := p.Stats.Peephole; ph != (lir.PeepholeStats{}) {
		fmt.Printf("  peephole: %d commands, %d functions removed, %d inlined\n", ph.Commands, ph.Functions, ph.Inlined)
	}
	fmt.Printf("MIR units: %d\n", p.Stats.Units)
	fmt.Printf("Functions: %d\n", p.Stats.Functions)
	fmt.Printf("Commands: %d\n", p.Stats.Commands)
	fmt.Printf("Cells: %d\n\n", len(p.alloc.Slots()))

	if p.Output == nil {
		return
	}
	for _, e := range p.Output.Entries {
		fmt.Printf(" - %s (params %v, result %v)\n", e.Function, e.Params, e.Result)
	}
}
