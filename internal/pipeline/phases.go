package pipeline

import (
	"bell/colors"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/phase"
)

func (p *Pipeline) runValidationPhase() error {
	if p.tree == nil {
		return p.fail(diagnostics.ContractViolation(nil, diagnostics.ErrContractViolation, "no typed tree to lower"))
	}

	failed := false
	for _, d := range hir.Validate(p.tree) {
		p.diags.Add(d)
		failed = true
	}
	if failed {
		return ErrCompilationFailed
	}
	p.checkEntryNames()

	if p.cfg.Debug {
		for _, def := range p.tree.Functions {
			if def.Entry {
				colors.PURPLE.Printf("  ✓ %s (entry)\n", def.Name)
			} else {
				colors.PURPLE.Printf("  ✓ %s\n", def.Name)
			}
		}
	}
	return p.advance(phase.PhaseValidated)
}
