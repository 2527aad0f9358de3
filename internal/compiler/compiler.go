package compiler

import (
	"fmt"
	"os"

	"bell/colors"
	"bell/internal/codegen/mcfunction"
	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/pipeline"
)

type FORMAT int

const (
	ANSI FORMAT = iota
	HTML
)

// Options for compilation
type Options struct {
	// For file-based compilation: a typed tree in JSON form
	InputFile string
	// For in-memory compilation (WASM); takes precedence over InputFile
	Tree []byte
	// An already decoded tree; takes precedence over Tree
	Program *hir.Program
	// Lowering knobs; nil means config.FromEnv()
	Config *config.Config
	// Debug output
	Debug bool
	// Output format of diagnostics: ANSI to stderr, or HTML in Result.Output
	LogFormat FORMAT
	// Listing path; empty keeps the listing in memory only
	OutputFile string
	// Quiet suppresses diagnostics on stderr
	Quiet bool
}

// Result of compilation
type Result struct {
	Success bool
	// Rendered diagnostics when LogFormat is HTML
	Output      string
	Listing     string
	Program     *mcfunction.Program
	Pipeline    *pipeline.Pipeline
	Diagnostics *diagnostics.DiagnosticBag
}

// Compile lowers a typed tree and returns the emitted program.
func Compile(opts *Options) Result {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.FromEnv()
	}
	if opts.Debug {
		cfg.Debug = true
	}

	name := opts.InputFile
	if name == "" {
		name = "<memory>"
	}
	diags := diagnostics.NewDiagnosticBag(name)
	res := Result{Diagnostics: diags}

	if err := cfg.Validate(); err != nil {
		diags.Add(diagnostics.NewError(fmt.Sprintf("invalid configuration: %v", err)).WithCode(diagnostics.ErrInputFailure))
		return finish(opts, res)
	}

	tree, err := load(opts, name, diags)
	if err != nil {
		return finish(opts, res)
	}

	p := pipeline.New(cfg, diags, tree)
	if opts.InputFile != "" {
		p.DumpPath = opts.InputFile
	}
	res.Pipeline = p
	if err := p.Run(); err != nil {
		return finish(opts, res)
	}

	res.Program = p.Output
	res.Listing = p.Output.String()
	if opts.OutputFile != "" {
		if err := os.WriteFile(opts.OutputFile, []byte(res.Listing), 0644); err != nil {
			diags.Add(diagnostics.InputFailure(opts.OutputFile, err))
			return finish(opts, res)
		}
		if cfg.Debug {
			colors.GREEN.Printf("  ✓ Listing written to %s\n", opts.OutputFile)
		}
	}
	if cfg.Debug {
		p.PrintSummary()
	}

	res.Success = !diags.HasErrors()
	return finish(opts, res)
}

func load(opts *Options, name string, diags *diagnostics.DiagnosticBag) (*hir.Program, error) {
	if opts.Program != nil {
		return opts.Program, nil
	}
	data := opts.Tree
	if data == nil {
		content, err := os.ReadFile(opts.InputFile)
		if err != nil {
			diags.Add(diagnostics.InputFailure(opts.InputFile, err))
			return nil, err
		}
		data = content
		diags.AddSourceContent(opts.InputFile, string(content))
	}

	tree, err := hir.DecodeBytes(data)
	if err != nil {
		diags.Add(diagnostics.InputFailure(name, err))
		return nil, err
	}
	return tree, nil
}

func finish(opts *Options, res Result) Result {
	if opts.LogFormat == HTML {
		res.Output = colors.ConvertANSIToHTML(res.Diagnostics.EmitAllToString())
		return res
	}
	if !opts.Quiet && len(res.Diagnostics.Diagnostics()) > 0 {
		res.Diagnostics.EmitAll()
	}
	return res
}
