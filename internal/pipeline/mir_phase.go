package pipeline

import (
	"bell/colors"
	"bell/internal/diagnostics"
	"bell/internal/mir"
	mirgen "bell/internal/mir/gen"
	"bell/internal/mir/opt"
	"bell/internal/phase"
)

// runMIRGenerationPhase builds every depth copy and loop iteration reachable
// from an entry point, then checks the result is well formed.
func (p *Pipeline) runMIRGenerationPhase() error {
	gen := mirgen.New(p.tree, p.alloc, p.cfg, p.diags)
	prog, err := gen.Generate()
	if err != nil {
		return p.fail(err)
	}
	if p.diags.HasErrors() {
		return ErrCompilationFailed
	}
	p.MIR = prog
	p.Stats.Units = len(prog.Functions)

	if p.cfg.Debug {
		for _, fn := range prog.Functions {
			colors.PURPLE.Printf("  ✓ %s (%s, %d blocks)\n", fn.Name, fn.Kind, len(fn.Blocks))
		}
	}
	if err := p.advance(phase.PhaseMIRGenerated); err != nil {
		return err
	}
	if err := p.verifyMIR("generation"); err != nil {
		return err
	}
	return p.advance(phase.PhaseMIRVerified)
}

func (p *Pipeline) runOptimizationPhase() error {
	stats := opt.Optimize(p.MIR, p.cfg)
	p.Stats.Opt = stats
	if p.cfg.Debug {
		colors.PURPLE.Printf("  ✓ %d folded, %d blocks merged, %d dead stores\n", stats.Folded, stats.Blocks, stats.DeadStores)
	}
	if err := p.verifyMIR("optimization"); err != nil {
		return err
	}
	p.dumpMIR()
	return p.advance(phase.PhaseOptimized)
}

func (p *Pipeline) verifyMIR(after string) error {
	if err := mir.Verify(p.MIR); err != nil {
		return p.fail(diagnostics.InternalConsistency("malformed MIR after "+after, err.Error()))
	}
	return nil
}

func (p *Pipeline) dumpMIR() {
	if !p.cfg.Debug || p.DumpPath == "" {
		return
	}
	path := p.DumpPath + ".mir"
	if err := mir.WriteProgramFile(p.MIR, path); err != nil {
		colors.YELLOW.Printf("  ⚠ Could not write MIR: %v\n", err)
		return
	}
	colors.CYAN.Printf("  ℹ MIR written to %s\n", path)
}
