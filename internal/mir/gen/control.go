package gen

import (
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/types"
)

// lowerIf lowers an else-if chain as nested two-way branches. Each condition
// is computed once into its own temp and no arm writes it, so exactly one
// arm runs however the arms change the variables the conditions read.
func (b *functionBuilder) lowerIf(stmt *hir.If) slots.Place {
	result := slots.Unit
	if !types.IsUnit(stmt.Type) {
		result = b.temp(stmt.Type)
	}
	b.lowerArms(stmt, 0, result)
	return result
}

func (b *functionBuilder) lowerArms(stmt *hir.If, i int, result slots.Place) {
	if !b.reachable() {
		return
	}
	if i == len(stmt.Arms) {
		if stmt.Else != nil {
			v := b.lowerBlock(stmt.Else)
			if b.reachable() && !result.IsUnit() {
				b.assign(result, v, stmt.Else.Location)
			}
		}
		return
	}

	arm := stmt.Arms[i]
	cond := b.lowerCond(arm.Cond)
	if !b.reachable() {
		return
	}

	// A condition the builder can already decide keeps only the taken path.
	if v, ok := b.st.value(cond); ok {
		if v != 0 {
			b.lowerArmBody(arm.Body, result)
		} else {
			b.lowerArms(stmt, i+1, result)
		}
		return
	}

	thenBlock := b.newBlock("if.then", arm.Body.Location)
	mergeBlock := b.newBlock("if.end", stmt.Location)
	hasElse := i+1 < len(stmt.Arms) || stmt.Else != nil

	var elseBlock *mir.Block
	if hasElse {
		elseBlock = b.newBlock("if.else", stmt.Location)
	}
	elseTarget := mergeBlock.ID
	if elseBlock != nil {
		elseTarget = elseBlock.ID
	}

	b.current.Term = &mir.CondBr{
		Cond:     cond,
		Then:     thenBlock.ID,
		Else:     elseTarget,
		Join:     mergeBlock.ID,
		Location: stmt.Location,
	}

	entry := b.st
	reg := b.pushRegion(regionArm, mergeBlock.ID)
	var outs []*state

	b.setBlock(thenBlock)
	b.st = entry.clone()
	b.lowerArmBody(arm.Body, result)
	if b.reachable() {
		outs = append(outs, b.st)
		b.branchIfNoTerm(mergeBlock.ID, stmt.Location)
	}

	if elseBlock != nil {
		if b.err == nil {
			b.setBlock(elseBlock)
			b.st = entry.clone()
			b.lowerArms(stmt, i+1, result)
			if b.reachable() {
				outs = append(outs, b.st)
				b.branchIfNoTerm(mergeBlock.ID, stmt.Location)
			}
		}
	} else {
		outs = append(outs, entry)
	}
	b.popRegion()

	if b.err != nil {
		return
	}
	b.setBlock(mergeBlock)
	b.st = join(outs...)
	b.resolveEscapes(reg)
}

func (b *functionBuilder) lowerArmBody(body *hir.Block, result slots.Place) {
	v := b.lowerBlock(body)
	if b.reachable() && !result.IsUnit() {
		b.assign(result, v, body.Location)
	}
}

// escapeTarget is where an escape of kind k jumps from the innermost region.
// final is false when the jump only reaches the end of an if arm and the
// escape must be re-checked there.
func (b *functionBuilder) escapeTarget(k escapeKind) (target mir.BlockID, final bool) {
	top := b.topRegion()
	switch top.kind {
	case regionArm:
		return top.end, false
	case regionLoopBody:
		it := b.iter()
		if k == escContinue {
			return it.next, true
		}
		return it.exit, true
	}
	return b.fnc.exit, true
}

func (b *functionBuilder) escapeFlag(k escapeKind) *slots.Slot {
	switch k {
	case escBreak:
		return b.iter().loop.done
	case escContinue:
		return b.iter().cont
	}
	b.fnc.flagged = true
	return b.fnc.flag
}

// escape ends the current path. The flag of k has already been set.
func (b *functionBuilder) escape(k escapeKind) {
	target, final := b.escapeTarget(k)
	b.current.Term = &mir.Br{Target: target}
	if !final {
		b.topRegion().escapes[k] = true
	}
	b.st = nil
}

// resolveEscapes runs after an if joins. For every escape kind raised inside
// the arms it tests the escape flag and leaves for the enclosing target;
// the ordinary continuation goes on in a fresh block.
func (b *functionBuilder) resolveEscapes(reg *region) {
	var kinds []escapeKind
	for k, raised := range reg.escapes {
		if raised {
			kinds = append(kinds, escapeKind(k))
		}
	}
	b.checkEscapes(kinds)
}

func (b *functionBuilder) checkEscapes(kinds []escapeKind) {
	for n, k := range kinds {
		target, final := b.escapeTarget(k)
		if !final {
			b.topRegion().escapes[k] = true
		}

		// Nothing falls through normally, so the last remaining escape
		// must be the one that happened.
		if b.st == nil && n == len(kinds)-1 {
			b.current.Term = &mir.Br{Target: target}
			return
		}

		rest := b.newBlock("esc.rest", b.current.Location)
		b.current.Term = &mir.CondBr{
			Cond: b.escapeFlag(k),
			Then: target,
			Else: rest.ID,
			Join: target,
		}
		b.setBlock(rest)
	}
}

func (b *functionBuilder) iter() *iterContext {
	if len(b.iters) == 0 {
		return nil
	}
	return b.iters[len(b.iters)-1]
}

func (b *functionBuilder) lowerReturn(stmt *hir.Return) {
	v := slots.Unit
	if stmt.Value != nil {
		v = b.lowerExpr(stmt.Value)
	}
	if !b.reachable() {
		return
	}
	if !b.fnc.ret.IsUnit() {
		b.assign(b.fnc.ret, v, stmt.Location)
	}

	b.fnc.flagged = true
	b.constant(b.fnc.flag, 1, stmt.Location)
	kind := escReturn
	for _, it := range b.iters {
		b.constant(it.loop.done, 1, stmt.Location)
		it.loop.mayReturn = true
		kind = escBreak
	}
	b.fnc.states = append(b.fnc.states, b.st.clone())
	b.escape(kind)
}

func (b *functionBuilder) lowerBreak(stmt *hir.Break) {
	it := b.iter()
	if it == nil {
		b.contract(stmt.Loc(), diagnostics.ErrInvalidBreak, "break outside of a loop")
		return
	}
	v := slots.Unit
	if stmt.Value != nil {
		v = b.lowerExpr(stmt.Value)
	}
	if !b.reachable() {
		return
	}
	if !it.loop.result.IsUnit() && !v.IsUnit() {
		b.assign(it.loop.result, v, stmt.Location)
	}
	b.constant(it.loop.done, 1, stmt.Location)
	it.loop.breakStates = append(it.loop.breakStates, b.st.clone())
	b.escape(escBreak)
}

func (b *functionBuilder) lowerContinue(stmt *hir.Continue) {
	it := b.iter()
	if it == nil {
		b.contract(stmt.Loc(), diagnostics.ErrInvalidContinue, "continue outside of a loop")
		return
	}
	b.constant(it.cont, 1, stmt.Location)
	if !b.reachable() {
		return
	}
	it.nextStates = append(it.nextStates, b.st.clone())
	it.usedContinue = true
	b.escape(escContinue)
}
