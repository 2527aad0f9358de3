package gen

import (
	"fmt"

	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/source"
	"bell/internal/types"
)

type regionKind int

const (
	regionFunction regionKind = iota
	regionLoopBody
	regionArm
)

type escapeKind int

const (
	escReturn escapeKind = iota
	escBreak
	escContinue
)

// region is a structured scope an escape can leave: an if arm, a loop
// iteration body or the whole function.
type region struct {
	kind    regionKind
	end     mir.BlockID
	escapes [3]bool
}

// fnContext is shared by a function copy and the loop iterations nested in it.
type fnContext struct {
	ret     slots.Place
	flag    *slots.Slot
	exit    mir.BlockID
	states  []*state
	flagged bool
}

type scope struct {
	vars map[string]slots.Place
}

type functionBuilder struct {
	gen   *Generator
	fn    *mir.Function
	def   *hir.FuncDef
	frame *slots.Frame
	depth int
	chain []string

	current *mir.Block
	st      *state
	err     error

	scopes  []*scope
	regions []*region
	fnc     *fnContext
	iters   []*iterContext

	temps  int
	loops  int
	locals map[string]int
}

func newFunctionBuilder(gen *Generator, fn *mir.Function, def *hir.FuncDef, frame *slots.Frame, depth int, chain []string) *functionBuilder {
	return &functionBuilder{
		gen:    gen,
		fn:     fn,
		def:    def,
		frame:  frame,
		depth:  depth,
		chain:  chain,
		st:     newState(),
		locals: make(map[string]int),
	}
}

func (b *functionBuilder) buildFuncBody(body *hir.Block, ret slots.Place) {
	b.fnc = &fnContext{
		ret:  ret,
		flag: b.gen.alloc.Slot(b.frame, "$returned", slots.Flag),
	}

	entry := b.newBlock("entry", b.def.Location)
	exit := b.newBlock("exit", b.def.Location)
	b.fn.Entry = entry.ID
	b.fnc.exit = exit.ID

	b.pushRegion(regionFunction, exit.ID)
	b.setBlock(entry)
	v := b.lowerBlock(body)
	if b.reachable() {
		if !ret.IsUnit() {
			b.assign(ret, v, body.Location)
		}
		b.fnc.states = append(b.fnc.states, b.st)
		b.branchIfNoTerm(exit.ID, body.Location)
	}
	b.popRegion()
	exit.Term = &mir.Return{Location: b.def.Location}

	if b.fnc.flagged {
		b.prepend(entry, &mir.Const{Dst: b.fnc.flag, Value: 0, Location: b.def.Location})
	}
}

func (b *functionBuilder) reachable() bool { return b.st != nil && b.err == nil }

// fail reports d and stops lowering of this unit.
func (b *functionBuilder) fail(d *diagnostics.Diagnostic) {
	if d.Unit == "" {
		d.InUnit(b.fn.Name)
	}
	b.gen.report(d)
	b.abort(d)
}

// abort stops lowering with an error that was already reported.
func (b *functionBuilder) abort(err error) {
	if b.err == nil {
		b.err = err
	}
	b.st = nil
}

func (b *functionBuilder) contract(loc *source.Location, code, format string, args ...any) {
	b.fail(diagnostics.ContractViolation(loc, code, fmt.Sprintf(format, args...)))
}

func (b *functionBuilder) emitInstr(instr mir.Instr) {
	if !b.reachable() || b.current == nil || b.current.Term != nil {
		return
	}
	b.current.Instrs = append(b.current.Instrs, instr)
}

func (b *functionBuilder) prepend(block *mir.Block, instr mir.Instr) {
	block.Instrs = append([]mir.Instr{instr}, block.Instrs...)
}

func (b *functionBuilder) newBlock(name string, loc source.Location) *mir.Block {
	return b.fn.NewBlock(name, loc)
}

func (b *functionBuilder) setBlock(block *mir.Block) {
	b.current = block
}

func (b *functionBuilder) branchIfNoTerm(target mir.BlockID, loc source.Location) {
	if b.current == nil || b.current.Term != nil {
		return
	}
	b.current.Term = &mir.Br{Target: target, Location: loc}
}

func (b *functionBuilder) pushRegion(kind regionKind, end mir.BlockID) *region {
	r := &region{kind: kind, end: end}
	b.regions = append(b.regions, r)
	return r
}

func (b *functionBuilder) popRegion() {
	b.regions = b.regions[:len(b.regions)-1]
}

func (b *functionBuilder) topRegion() *region {
	return b.regions[len(b.regions)-1]
}

func (b *functionBuilder) pushScope() {
	b.scopes = append(b.scopes, &scope{vars: make(map[string]slots.Place)})
}

func (b *functionBuilder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *functionBuilder) bind(name string, p slots.Place) {
	b.scopes[len(b.scopes)-1].vars[name] = p
}

func (b *functionBuilder) lookup(name string) (slots.Place, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if p, ok := b.scopes[i].vars[name]; ok {
			return p, true
		}
	}
	return slots.Place{}, false
}

// declare allocates the cells of a new local. Shadowing declarations in the
// same frame get a numbered path so each binding keeps its own cells.
func (b *functionBuilder) declare(name string, t types.SemType) slots.Place {
	n := b.locals[name]
	b.locals[name] = n + 1
	path := name
	if n > 0 {
		path = fmt.Sprintf("%s~%d", name, n)
	}
	p := b.gen.alloc.Place(b.frame, path, slots.Local, t)
	b.bind(name, p)
	return p
}

func (b *functionBuilder) temp(t types.SemType) slots.Place {
	p := b.gen.alloc.Place(b.frame, fmt.Sprintf("$t%d", b.temps), slots.Temp, t)
	b.temps++
	return p
}

func (b *functionBuilder) tempSlot() *slots.Slot {
	return b.temp(types.TypeInt).Slot
}

// use checks that every leaf of p is definitely assigned.
func (b *functionBuilder) use(p slots.Place, name string, loc *source.Location) bool {
	if !b.reachable() {
		return false
	}
	for _, leaf := range p.Leaves() {
		if !b.st.isAssigned(leaf) {
			b.fail(diagnostics.UseBeforeAssignment(loc, name))
			return false
		}
	}
	return true
}

func (b *functionBuilder) constant(dst *slots.Slot, v int32, loc source.Location) {
	if !b.reachable() {
		return
	}
	b.emitInstr(&mir.Const{Dst: dst, Value: v, Location: loc})
	b.st.set(dst, v)
}

// assign copies src into dst leaf by leaf.
func (b *functionBuilder) assign(dst, src slots.Place, loc source.Location) {
	if !b.reachable() {
		return
	}
	dl, sl := dst.Leaves(), src.Leaves()
	if len(dl) != len(sl) {
		b.fail(diagnostics.InternalConsistency("assignment between places of different shape", dst.Type.String()))
		return
	}
	for i := range dl {
		if dl[i] == sl[i] {
			continue
		}
		b.emitInstr(&mir.Copy{Dst: dl[i], Src: sl[i], Location: loc})
		if v, ok := b.st.value(sl[i]); ok {
			b.st.set(dl[i], v)
		} else {
			b.st.unknown(dl[i])
		}
	}
}

// snapshot copies p into fresh temps when it names variable cells that a
// later sibling expression may overwrite.
func (b *functionBuilder) snapshot(p slots.Place, rest []hir.Expr, loc source.Location) slots.Place {
	if p.IsUnit() || !b.reachable() {
		return p
	}
	effects := false
	for _, e := range rest {
		if e != nil && hir.HasEffects(e) {
			effects = true
			break
		}
	}
	if !effects {
		return p
	}
	for _, leaf := range p.Leaves() {
		if leaf.Kind != slots.Temp {
			t := b.temp(p.Type)
			b.assign(t, p, loc)
			return t
		}
	}
	return p
}
