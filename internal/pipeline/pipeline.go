package pipeline

import (
	"errors"
	"fmt"

	"bell/colors"
	"bell/internal/codegen/mcfunction"
	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/lir"
	"bell/internal/mir"
	"bell/internal/mir/opt"
	"bell/internal/phase"
	"bell/internal/slots"
)

// ErrCompilationFailed is returned by Run once any error diagnostic exists.
var ErrCompilationFailed = errors.New("compilation failed with errors")

// Stats summarizes what the stages produced and removed.
type Stats struct {
	Units     int
	Functions int
	Commands  int
	Opt       opt.Stats
	Peephole  lir.PeepholeStats
}

// Pipeline coordinates lowering of one typed tree to datapack commands.
type Pipeline struct {
	cfg   *config.Config
	diags *diagnostics.DiagnosticBag
	tree  *hir.Program
	alloc *slots.Allocator
	phase phase.Phase

	// DumpPath, when set in debug mode, receives DumpPath.mir and DumpPath.lir.
	DumpPath string

	MIR    *mir.Program
	LIR    *lir.Program
	Output *mcfunction.Program
	Stats  Stats
}

// New creates a pipeline. A nil config means config.Default().
func New(cfg *config.Config, diags *diagnostics.DiagnosticBag, tree *hir.Program) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	if diags == nil {
		diags = diagnostics.NewDiagnosticBag("")
	}
	return &Pipeline{
		cfg:   cfg,
		diags: diags,
		tree:  tree,
		alloc: slots.NewAllocator(),
	}
}

// Phase reports the last phase completed.
func (p *Pipeline) Phase() phase.Phase { return p.phase }

// Allocator exposes the cells assigned during lowering.
func (p *Pipeline) Allocator() *slots.Allocator { return p.alloc }

// Run executes every stage in order and stops at the first failing one.
func (p *Pipeline) Run() error {
	if p.cfg.Debug {
		colors.CYAN.Printf("\n[Phase 1] Typed Tree Validation\n")
	}
	if err := p.runValidationPhase(); err != nil {
		return err
	}

	if p.cfg.Debug {
		colors.CYAN.Printf("\n[Phase 2] MIR Generation\n")
	}
	if err := p.runMIRGenerationPhase(); err != nil {
		return err
	}

	if p.cfg.Debug {
		colors.CYAN.Printf("\n[Phase 3] MIR Optimization (%s)\n", p.cfg.OptLevel)
	}
	if err := p.runOptimizationPhase(); err != nil {
		return err
	}

	if p.cfg.Debug {
		colors.CYAN.Printf("\n[Phase 4] LIR Lowering\n")
	}
	if err := p.runLIRPhase(); err != nil {
		return err
	}

	if p.cfg.Debug {
		colors.CYAN.Printf("\n[Phase 5] Command Emission\n")
	}
	if err := p.runEmitPhase(); err != nil {
		return err
	}

	if p.cfg.Debug {
		colors.GREEN.Printf("\n✓ Lowering successful! (%d functions, %d commands)\n", p.Stats.Functions, p.Stats.Commands)
	}
	return nil
}

func (p *Pipeline) advance(next phase.Phase) error {
	if err := phase.Advance(&p.phase, next); err != nil {
		return p.fail(diagnostics.InternalConsistency(err.Error(), ""))
	}
	return nil
}

// fail records err as a diagnostic unless a stage already did, and turns
// it into the pipeline's failure.
func (p *Pipeline) fail(err error) error {
	var diag *diagnostics.Diagnostic
	if !errors.As(err, &diag) {
		diag = diagnostics.InternalConsistency(err.Error(), "")
	}
	if !p.reported(diag) {
		p.diags.Add(diag)
	}
	return fmt.Errorf("%w: %v", ErrCompilationFailed, diag)
}

func (p *Pipeline) reported(d *diagnostics.Diagnostic) bool {
	for _, existing := range p.diags.Diagnostics() {
		if existing == d {
			return true
		}
	}
	return false
}
