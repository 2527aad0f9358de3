package gen

import (
	"fmt"

	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/types"
)

// loopContext describes one source loop. Its cells belong to the frame of
// the unit that runs the loop, so every iteration can reach them.
type loopContext struct {
	base    string
	owner   string
	result  slots.Place
	done    *slots.Slot
	counter *slots.Slot
	limit   int
	body    *hir.Block
	scopes  []*scope
	frames  []*slots.Frame
	outer   []*iterContext

	breakStates []*state
	mayReturn   bool
}

// iterContext is one iteration unit of a loop.
type iterContext struct {
	loop *loopContext
	k    int
	next mir.BlockID
	exit mir.BlockID
	cont *slots.Slot

	nextStates   []*state
	usedContinue bool
}

// lowerLoop runs the loop as a chain of iteration units: iteration k runs
// the body once and invokes iteration k+1 unless it broke out. The chain is
// cut at the depth ceiling, so a loop the builder cannot prove to stop in
// time is rejected.
func (b *functionBuilder) lowerLoop(loop *hir.Loop) slots.Place {
	seq := b.loops
	b.loops++

	lc := &loopContext{
		base:    fmt.Sprintf("%s/loop%d", b.fn.Name, seq),
		owner:   fmt.Sprintf("%s.l%d", b.frame, seq),
		done:    b.gen.alloc.Slot(b.frame, fmt.Sprintf("$l%d.done", seq), slots.Flag),
		limit:   b.gen.cfg.DepthLimit(b.def.MaxDepth),
		body:    loop.Body,
		scopes:  append([]*scope(nil), b.scopes...),
		frames:  b.fn.Frames,
		outer:   append([]*iterContext(nil), b.iters...),
		result:  slots.Unit,
	}
	lc.counter = b.gen.alloc.Counter(lc.owner)
	if !types.IsUnit(loop.Type) {
		lc.result = b.gen.alloc.Place(b.frame, fmt.Sprintf("$l%d.value", seq), slots.Result, loop.Type)
	}

	b.constant(lc.done, 0, loop.Location)
	if !b.reachable() {
		return slots.Unit
	}

	first, err := b.buildIteration(lc, 0, b.st.clone(), loop)
	if err != nil {
		b.abort(err)
		return slots.Unit
	}
	b.emitInstr(&mir.Invoke{Target: first, Loop: true, Location: loop.Location})

	b.st = join(lc.breakStates...)
	if b.st == nil && !lc.mayReturn {
		b.fail(diagnostics.InternalConsistency("loop has no exit", lc.base))
		return slots.Unit
	}
	if lc.mayReturn {
		kind := escReturn
		if len(b.iters) > 0 {
			kind = escBreak
		}
		b.checkEscapes([]escapeKind{kind})
	}
	return lc.result
}

func (b *functionBuilder) buildIteration(lc *loopContext, k int, entry *state, loop *hir.Loop) (string, error) {
	name := fmt.Sprintf("%s/i%d", lc.base, k)
	frame, err := b.gen.alloc.Frame(lc.owner, k, lc.limit)
	if err != nil {
		d := diagnostics.RecursionBudgetExceeded(loop.Loc(), "loop in "+b.def.Name, lc.limit, append(append([]string(nil), b.chain...), name))
		b.gen.report(d)
		return "", d
	}

	fn := &mir.Function{
		Name:     name,
		Kind:     mir.UnitLoop,
		Source:   b.def.Name,
		Depth:    k,
		Frames:   append(append([]*slots.Frame(nil), lc.frames...), frame),
		Assume:   make(map[*slots.Slot]int32, len(entry.consts)),
		Location: loop.Location,
	}
	for s, v := range entry.consts {
		fn.Assume[s] = v
	}

	it := &iterContext{
		loop: lc,
		k:    k,
		cont: b.gen.alloc.Slot(frame, "$continue", slots.Flag),
	}

	ib := newFunctionBuilder(b.gen, fn, b.def, frame, b.depth, append(append([]string(nil), b.chain...), name))
	ib.st = entry
	ib.fnc = b.fnc
	ib.scopes = append([]*scope(nil), lc.scopes...)
	ib.iters = append(append([]*iterContext(nil), lc.outer...), it)

	entryBlock := ib.newBlock("entry", loop.Location)
	next := ib.newBlock("loop.next", loop.Location)
	exit := ib.newBlock("loop.exit", loop.Location)
	fn.Entry = entryBlock.ID
	it.next, it.exit = next.ID, exit.ID

	ib.pushRegion(regionLoopBody, exit.ID)
	ib.setBlock(entryBlock)
	ib.lowerBlock(lc.body)
	if ib.reachable() {
		it.nextStates = append(it.nextStates, ib.st)
		ib.branchIfNoTerm(next.ID, loop.Location)
	}
	ib.popRegion()
	if ib.err != nil {
		return "", ib.err
	}

	ib.setBlock(next)
	ib.st = join(it.nextStates...)
	if ib.st != nil {
		ib.emitInstr(&mir.Adjust{Dst: lc.counter, Delta: 1, Location: loop.Location})
		then, err := ib.buildIteration(lc, k+1, ib.st.clone(), loop)
		if err != nil {
			return "", err
		}
		ib.emitInstr(&mir.Invoke{Target: then, Loop: true, Location: loop.Location})
		ib.emitInstr(&mir.Adjust{Dst: lc.counter, Delta: -1, Location: loop.Location})
	}
	next.Term = &mir.Br{Target: exit.ID, Location: loop.Location}
	exit.Term = &mir.Return{Location: loop.Location}

	if it.usedContinue {
		ib.prepend(entryBlock, &mir.Const{Dst: it.cont, Value: 0, Location: loop.Location})
	}

	b.gen.addUnit(fn)
	return name, nil
}
