package gen

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/source"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Generator lowers a validated typed tree into MIR. Every function is
// instantiated once per (depth, constant argument signature) it is reached
// with; every loop iteration becomes its own unit.
type Generator struct {
	prog  *hir.Program
	graph *hir.CallGraph
	alloc *slots.Allocator
	cfg   *config.Config
	diags *diagnostics.DiagnosticBag

	flight singleflight.Group

	mu      sync.Mutex
	copies  map[string]*copyResult
	units   map[string]*mir.Function
	entries map[string]mir.Entry
}

// copyResult is the memoized outcome of building one function copy.
type copyResult struct {
	name   string
	frame  *slots.Frame
	ret    slots.Place
	consts map[*slots.Slot]int32 // values of ret leaves known on every return
	err    error
}

// argConst is one leaf of a constant argument signature.
type argConst struct {
	known bool
	value int32
}

// New creates a generator. A nil config means config.Default().
func New(prog *hir.Program, alloc *slots.Allocator, cfg *config.Config, diags *diagnostics.DiagnosticBag) *Generator {
	if cfg == nil {
		cfg = config.Default()
	}
	if alloc == nil {
		alloc = slots.NewAllocator()
	}
	return &Generator{
		prog:    prog,
		graph:   hir.BuildCallGraph(prog),
		alloc:   alloc,
		cfg:     cfg,
		diags:   diags,
		copies:  make(map[string]*copyResult),
		units:   make(map[string]*mir.Function),
		entries: make(map[string]mir.Entry),
	}
}

// Generate builds every entry point concurrently. Entries that fail report
// their diagnostics and contribute nothing; the first failure is returned.
func (g *Generator) Generate() (*mir.Program, error) {
	entries := g.prog.Entries()
	if len(entries) == 0 {
		d := diagnostics.ContractViolation(g.prog.Loc(), diagnostics.ErrNoEntryPoint, "program has no entry point")
		g.report(d)
		return nil, d
	}

	var group errgroup.Group
	group.SetLimit(max(g.cfg.Workers, 1))
	for _, def := range entries {
		group.Go(func() error {
			return g.buildEntry(def)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	return g.Program(), nil
}

// Program assembles everything built so far, ordered by unit name.
func (g *Generator) Program() *mir.Program {
	g.mu.Lock()
	defer g.mu.Unlock()

	prog := &mir.Program{}
	for _, fn := range g.units {
		prog.Functions = append(prog.Functions, fn)
	}
	sort.Slice(prog.Functions, func(i, j int) bool {
		return prog.Functions[i].Name < prog.Functions[j].Name
	})
	for _, e := range g.entries {
		prog.Entries = append(prog.Entries, e)
	}
	sort.Slice(prog.Entries, func(i, j int) bool {
		return prog.Entries[i].Name < prog.Entries[j].Name
	})
	return prog
}

func (g *Generator) report(d *diagnostics.Diagnostic) {
	if g.diags != nil {
		g.diags.Add(d)
	}
}

func (g *Generator) addUnit(fn *mir.Function) {
	g.mu.Lock()
	g.units[fn.Name] = fn
	g.mu.Unlock()
}

func (g *Generator) buildEntry(def *hir.FuncDef) error {
	sig := make([]argConst, paramCells(def))
	res := g.copy(def, 0, sig, nil, def.Loc())
	if res.err != nil {
		return res.err
	}

	wrapper := &mir.Function{
		Name:     def.Name,
		Kind:     mir.UnitEntry,
		Source:   def.Name,
		Location: def.Location,
	}
	block := wrapper.NewBlock("entry", def.Location)
	wrapper.Entry = block.ID
	block.Instrs = append(block.Instrs, &mir.Invoke{Target: res.name, Location: def.Location})
	block.Term = &mir.Return{Location: def.Location}

	entry := mir.Entry{Name: def.Name, Unit: def.Name, Result: res.ret, Location: def.Location}
	for _, p := range def.Params {
		entry.Params = append(entry.Params, g.alloc.Place(res.frame, p.Name, slots.Param, p.Type))
	}

	g.addUnit(wrapper)
	g.mu.Lock()
	g.entries[def.Name] = entry
	g.mu.Unlock()
	return nil
}

// copyName is fn/d<depth>, suffixed with the signature when any argument is
// a known constant.
func copyName(fn string, depth int, sig []argConst) string {
	name := fmt.Sprintf("%s/d%d", fn, depth)
	specialized := false
	parts := make([]string, len(sig))
	for i, a := range sig {
		switch {
		case !a.known:
			parts[i] = "x"
		case a.value < 0:
			parts[i] = fmt.Sprintf("n%d", -int64(a.value))
			specialized = true
		default:
			parts[i] = fmt.Sprintf("%d", a.value)
			specialized = true
		}
	}
	if specialized {
		name += "_" + strings.Join(parts, "_")
	}
	return name
}

// copy returns the unit of def at depth for the given signature, building it
// on first request. Concurrent requests for the same copy share one build.
// Copies only request strictly deeper or unrelated copies, so the nested
// waits cannot form a cycle.
func (g *Generator) copy(def *hir.FuncDef, depth int, sig []argConst, chain []string, loc *source.Location) *copyResult {
	name := copyName(def.Name, depth, sig)

	g.mu.Lock()
	if res, ok := g.copies[name]; ok {
		g.mu.Unlock()
		return res
	}
	g.mu.Unlock()

	v, _, _ := g.flight.Do(name, func() (any, error) {
		g.mu.Lock()
		if res, ok := g.copies[name]; ok {
			g.mu.Unlock()
			return res, nil
		}
		g.mu.Unlock()

		res := g.buildCopy(def, depth, sig, name, append(append([]string(nil), chain...), name), loc)

		g.mu.Lock()
		g.copies[name] = res
		g.mu.Unlock()
		return res, nil
	})
	return v.(*copyResult)
}

func (g *Generator) buildCopy(def *hir.FuncDef, depth int, sig []argConst, name string, chain []string, loc *source.Location) *copyResult {
	limit := g.cfg.DepthLimit(def.MaxDepth)
	frame, err := g.alloc.Frame(def.Name, depth, limit)
	if err != nil {
		d := diagnostics.RecursionBudgetExceeded(loc, def.Name, limit, chain)
		g.report(d)
		return &copyResult{name: name, err: d}
	}

	fn := &mir.Function{
		Name:     name,
		Kind:     mir.UnitFunction,
		Source:   def.Name,
		Depth:    depth,
		Frames:   []*slots.Frame{frame},
		Assume:   make(map[*slots.Slot]int32),
		Location: def.Location,
	}

	b := newFunctionBuilder(g, fn, def, frame, depth, chain)
	b.pushScope()
	i := 0
	for _, p := range def.Params {
		place := g.alloc.Place(frame, p.Name, slots.Param, p.Type)
		b.bind(p.Name, place)
		for _, leaf := range place.Leaves() {
			if sig[i].known {
				b.st.set(leaf, sig[i].value)
				fn.Assume[leaf] = sig[i].value
			} else {
				b.st.unknown(leaf)
			}
			i++
		}
	}

	ret := g.alloc.Place(frame, "$ret", slots.Result, def.Result)
	b.buildFuncBody(def.Body, ret)
	if b.err != nil {
		return &copyResult{name: name, err: b.err}
	}

	res := &copyResult{name: name, frame: frame, ret: ret, consts: make(map[*slots.Slot]int32)}
	if out := join(b.fnc.states...); out != nil {
		for _, leaf := range ret.Leaves() {
			if v, ok := out.value(leaf); ok {
				res.consts[leaf] = v
			}
		}
	}
	g.addUnit(fn)
	return res
}

func paramCells(def *hir.FuncDef) int {
	n := 0
	for _, p := range def.Params {
		n += p.Type.Cells()
	}
	return n
}
