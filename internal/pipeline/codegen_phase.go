package pipeline

import (
	"bell/colors"
	"bell/internal/codegen/mcfunction"
	"bell/internal/config"
	"bell/internal/lir"
	"bell/internal/phase"
)

// runLIRPhase flattens MIR into guarded command lists. The peephole only
// runs at the release level.
func (p *Pipeline) runLIRPhase() error {
	prog, err := lir.Build(p.MIR, p.alloc, p.cfg)
	if err != nil {
		return p.fail(err)
	}
	if p.cfg.OptLevel == config.OptRelease {
		p.Stats.Peephole = lir.Peephole(prog)
		if p.cfg.Debug {
			st := p.Stats.Peephole
			colors.PURPLE.Printf("  ✓ peephole: %d commands, %d functions removed, %d inlined\n", st.Commands, st.Functions, st.Inlined)
		}
	}
	p.LIR = prog
	p.dumpLIR()
	return p.advance(phase.PhaseLIRLowered)
}

func (p *Pipeline) runEmitPhase() error {
	out, err := mcfunction.Emit(p.LIR, p.cfg)
	if err != nil {
		return p.fail(err)
	}
	p.Output = out
	p.Stats.Functions = len(out.Functions)
	p.Stats.Commands = 0
	for _, fn := range out.Functions {
		p.Stats.Commands += len(fn.Commands)
		if p.cfg.Debug {
			colors.PURPLE.Printf("  ✓ %s:%s (%d commands)\n", out.Namespace, fn.Name, len(fn.Commands))
		}
	}
	return p.advance(phase.PhaseEmitted)
}

func (p *Pipeline) dumpLIR() {
	if !p.cfg.Debug || p.DumpPath == "" {
		return
	}
	path := p.DumpPath + ".lir"
	if err := lir.WriteProgramFile(p.LIR, path); err != nil {
		colors.YELLOW.Printf("  ⚠ Could not write LIR: %v\n", err)
		return
	}
	colors.CYAN.Printf("  ℹ LIR written to %s\n", path)
}
