package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	. "bell/internal/hir/hirtest"
	"bell/internal/phase"
	"bell/internal/types"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	return cfg
}

func printSum() *hir.Program {
	return Program(Entry("main", nil, nil, Do(
		Let("x", Int(2)),
		Print(Bin(hir.OpAdd, IntVar("x"), Int(3))),
	)))
}

func TestPipelineRunsEveryPhase(t *testing.T) {
	for _, level := range []config.OptLevel{config.OptDebug, config.OptRelease} {
		t.Run(level.String(), func(t *testing.T) {
			cfg := testConfig()
			cfg.OptLevel = level
			diags := diagnostics.NewDiagnosticBag("test.json")
			p := New(cfg, diags, printSum())
			if err := p.Run(); err != nil {
				t.Fatalf("Pipeline failed: %v\n%s", err, diags.EmitAllToString())
			}
			if p.Phase() != phase.PhaseEmitted {
				t.Errorf("Expected Emitted, got %s", p.Phase())
			}
			if p.Output == nil || p.Output.Function("main") == nil {
				t.Fatalf("Expected an emitted main function")
			}
			if p.Stats.Functions != len(p.Output.Functions) || p.Stats.Commands == 0 {
				t.Errorf("Expected stats to describe the output, got %+v", p.Stats)
			}
			if !strings.HasPrefix(p.Output.Function("main").Commands[0], "scoreboard objectives add") {
				t.Errorf("Expected the entry to set up the objective, got %v", p.Output.Function("main").Commands)
			}
		})
	}
}

func TestPipelineStopsOnContractViolation(t *testing.T) {
	prog := Program(Entry("main", nil, nil, Do(Print(Call("missing", types.TypeInt)))))
	diags := diagnostics.NewDiagnosticBag("test.json")
	p := New(testConfig(), diags, prog)

	err := p.Run()
	if !errors.Is(err, ErrCompilationFailed) {
		t.Fatalf("Expected compilation failure, got %v", err)
	}
	if p.Phase() != phase.PhaseNotStarted {
		t.Errorf("Expected no phase to complete, got %s", p.Phase())
	}
	if !diags.HasErrors() || p.MIR != nil {
		t.Errorf("Expected a contract diagnostic and no MIR")
	}
}

func TestPipelineReportsRecursionBudget(t *testing.T) {
	n := IntVar("n")
	down := Func("down", []hir.Param{P("n", types.TypeInt)}, types.TypeInt, Yield(
		IfElse(Bin(hir.OpLe, n, Int(0)),
			Yield(Int(0)),
			Yield(Call("down", types.TypeInt, Bin(hir.OpSub, n, Int(1))))),
	))
	prog := Program(down, Entry("main", []hir.Param{P("k", types.TypeInt)}, nil, Do(
		Print(Call("down", types.TypeInt, IntVar("k"))),
	)))

	cfg := testConfig()
	cfg.MaxDepth = 4
	diags := diagnostics.NewDiagnosticBag("test.json")
	p := New(cfg, diags, prog)
	if err := p.Run(); err == nil {
		t.Fatalf("Expected unbounded recursion to fail")
	}
	found := false
	for _, d := range diags.Errors() {
		if d.Code == diagnostics.ErrRecursionBudgetExceeded {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected R0001, got:\n%s", diags.EmitAllToString())
	}
	if diags.ErrorCount() != 1 {
		t.Errorf("Expected the diagnostic once, got %d", diags.ErrorCount())
	}
}

func TestPipelineDebugDumps(t *testing.T) {
	cfg := testConfig()
	cfg.Debug = true
	base := filepath.Join(t.TempDir(), "tree.json")

	p := New(cfg, nil, printSum())
	p.DumpPath = base
	if err := p.Run(); err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	for _, ext := range []string{".mir", ".lir"} {
		data, err := os.ReadFile(base + ext)
		if err != nil {
			t.Errorf("Expected %s dump, got %v", ext, err)
			continue
		}
		if !strings.Contains(string(data), "main") {
			t.Errorf("Expected the %s dump to mention main", ext)
		}
	}
}

func TestPipelineWarnsAboutEntryNames(t *testing.T) {
	prog := Program(Entry("Main", nil, nil, Do(Print(Int(1)))))
	diags := diagnostics.NewDiagnosticBag("test.json")
	p := New(testConfig(), diags, prog)
	if err := p.Run(); err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if diags.WarningCount() != 1 {
		t.Errorf("Expected one warning, got %d", diags.WarningCount())
	} else if d := diags.Diagnostics()[0]; d.Code != diagnostics.WarnEntryRenamed {
		t.Errorf("Expected %s, got %s", diagnostics.WarnEntryRenamed, d.Code)
	}
	if p.Output.Function("main") == nil {
		t.Errorf("Expected the entry under its sanitized name")
	}
}

func TestPipelineClampsZeroWorkers(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 0
	p := New(cfg, nil, printSum())

	done := make(chan error, 1)
	go func() { done <- p.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Pipeline failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Run to finish with zero workers configured")
	}
	if p.Output.Function("main") == nil {
		t.Errorf("Expected an emitted main function")
	}
}
