package gen

import (
	"bell/internal/diagnostics"
	"bell/internal/hir"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/types"
)

// lowerExpr evaluates e and returns the place holding its value. Variable
// references return the variable's own cells; callers that need a stable
// value across later effects go through snapshot.
func (b *functionBuilder) lowerExpr(expr hir.Expr) slots.Place {
	if expr == nil || !b.reachable() {
		return slots.Unit
	}

	switch e := expr.(type) {
	case *hir.Literal:
		t := b.temp(e.Type)
		b.constant(t.Slot, e.Value, e.Location)
		return t
	case *hir.VarRef:
		p, ok := b.lookup(e.Name)
		if !ok {
			b.contract(e.Loc(), diagnostics.ErrUnknownVariable, "unknown variable %q", e.Name)
			return slots.Unit
		}
		b.use(p, e.Name, e.Loc())
		return p
	case *hir.Let:
		b.lowerLet(e)
	case *hir.Assign:
		b.lowerAssign(e)
	case *hir.BinaryOp:
		return b.lowerBinary(e)
	case *hir.UnaryOp:
		return b.lowerUnary(e)
	case *hir.Call:
		return b.lowerCall(e)
	case *hir.FieldAccess:
		return b.lowerField(e)
	case *hir.StructLiteral:
		return b.lowerStruct(e)
	case *hir.If:
		return b.lowerIf(e)
	case *hir.Loop:
		return b.lowerLoop(e)
	case *hir.Break:
		b.lowerBreak(e)
	case *hir.Continue:
		b.lowerContinue(e)
	case *hir.Return:
		b.lowerReturn(e)
	case *hir.Block:
		return b.lowerBlock(e)
	case *hir.Print:
		if v := b.scalar(e.Value); v != nil {
			b.emitInstr(&mir.Print{Src: v, Location: e.Location})
		}
	case *hir.Command:
		b.emitInstr(&mir.Raw{Text: e.Text, Location: e.Location})
		if b.reachable() {
			b.st.forget(func(*slots.Slot) bool { return true })
		}
	default:
		b.fail(diagnostics.InternalConsistency("unhandled expression", expr.Loc().String()))
	}
	return slots.Unit
}

func (b *functionBuilder) lowerBlock(block *hir.Block) slots.Place {
	if block == nil {
		return slots.Unit
	}
	b.pushScope()
	defer b.popScope()

	for _, e := range block.Exprs {
		if !b.reachable() {
			return slots.Unit
		}
		b.lowerExpr(e)
	}
	if block.Tail == nil || !b.reachable() {
		return slots.Unit
	}
	return b.lowerExpr(block.Tail)
}

func (b *functionBuilder) lowerLet(let *hir.Let) {
	var v slots.Place
	if let.Value != nil {
		v = b.lowerExpr(let.Value)
		if !b.reachable() {
			return
		}
	}
	p := b.declare(let.Name, let.Type)
	if let.Value != nil {
		b.assign(p, v, let.Location)
	}
}

func (b *functionBuilder) lowerAssign(stmt *hir.Assign) {
	v := b.lowerExpr(stmt.Value)
	if !b.reachable() {
		return
	}
	dst, ok := b.placeOf(stmt.Target)
	if !ok {
		b.contract(stmt.Loc(), diagnostics.ErrContractViolation, "assignment target is not a variable or field")
		return
	}
	b.assign(dst, v, stmt.Location)
}

// placeOf resolves a variable or field path to its cells without reading them.
func (b *functionBuilder) placeOf(e hir.Expr) (slots.Place, bool) {
	switch x := e.(type) {
	case *hir.VarRef:
		return b.lookup(x.Name)
	case *hir.FieldAccess:
		base, ok := b.placeOf(x.X)
		if !ok {
			return slots.Place{}, false
		}
		return base.Field(x.Field)
	}
	return slots.Place{}, false
}

func (b *functionBuilder) lowerField(f *hir.FieldAccess) slots.Place {
	if p, ok := b.placeOf(f); ok {
		b.use(p, fieldPath(f), f.Loc())
		return p
	}
	base := b.lowerExpr(f.X)
	if !b.reachable() {
		return slots.Unit
	}
	p, ok := base.Field(f.Field)
	if !ok {
		b.contract(f.Loc(), diagnostics.ErrFieldNotFound, "no field %q", f.Field)
		return slots.Unit
	}
	return p
}

func fieldPath(e hir.Expr) string {
	switch x := e.(type) {
	case *hir.VarRef:
		return x.Name
	case *hir.FieldAccess:
		return fieldPath(x.X) + "." + x.Field
	}
	return "value"
}

// lowerStruct evaluates field initializers in source order straight into a
// fresh temp, so later initializers cannot disturb earlier values.
func (b *functionBuilder) lowerStruct(lit *hir.StructLiteral) slots.Place {
	result := b.temp(lit.Type)
	for _, init := range lit.Fields {
		v := b.lowerExpr(init.Value)
		if !b.reachable() {
			return slots.Unit
		}
		dst, ok := result.Field(init.Name)
		if !ok {
			b.contract(lit.Loc(), diagnostics.ErrFieldNotFound, "no field %q in %s", init.Name, lit.Type.Name)
			return slots.Unit
		}
		b.assign(dst, v, lit.Location)
	}
	return result
}

// scalar evaluates e and returns its single cell.
func (b *functionBuilder) scalar(e hir.Expr) *slots.Slot {
	p := b.lowerExpr(e)
	if !b.reachable() {
		return nil
	}
	if !p.IsScalar() {
		b.contract(e.Loc(), diagnostics.ErrContractViolation, "expected a scalar value")
		return nil
	}
	return p.Slot
}

func (b *functionBuilder) lowerBinary(e *hir.BinaryOp) slots.Place {
	left := b.lowerExpr(e.Left)
	left = b.snapshot(left, []hir.Expr{e.Right}, e.Location)
	right := b.lowerExpr(e.Right)
	if !b.reachable() {
		return slots.Unit
	}
	if !left.IsScalar() || !right.IsScalar() {
		b.contract(e.Loc(), diagnostics.ErrContractViolation, "operator %s needs scalar operands", e.Op)
		return slots.Unit
	}
	l, r := left.Slot, right.Slot
	dst := b.temp(e.Type)

	lv, lok := b.st.value(l)
	rv, rok := b.st.value(r)

	if op, ok := comparisonOp(e.Op); ok {
		b.emitInstr(&mir.Compare{Dst: dst.Slot, Op: op, Left: l, Right: r, Location: e.Location})
		if lok && rok {
			b.st.set(dst.Slot, op.Eval(lv, rv))
		} else {
			b.st.unknown(dst.Slot)
		}
		return dst
	}

	op, ok := binaryOp(e.Op)
	if !ok {
		b.contract(e.Loc(), diagnostics.ErrContractViolation, "unsupported binary operator %s", e.Op)
		return slots.Unit
	}
	b.emitInstr(&mir.Binary{Dst: dst.Slot, Op: op, Left: l, Right: r, Location: e.Location})
	b.setComputed(dst.Slot, func() (int32, bool) {
		if !lok || !rok {
			return 0, false
		}
		return op.Eval(lv, rv)
	})
	return dst
}

// setComputed records dst as assigned, and constant when eval can tell.
func (b *functionBuilder) setComputed(dst *slots.Slot, eval func() (int32, bool)) {
	if v, ok := eval(); ok {
		b.st.set(dst, v)
		return
	}
	b.st.unknown(dst)
}

func (b *functionBuilder) lowerUnary(e *hir.UnaryOp) slots.Place {
	x := b.scalar(e.X)
	if !b.reachable() {
		return slots.Unit
	}
	dst := b.temp(e.Type)
	xv, known := b.st.value(x)

	switch e.Op {
	case hir.OpNot:
		b.emitInstr(&mir.Not{Dst: dst.Slot, Src: x, Location: e.Location})
		b.setComputed(dst.Slot, func() (int32, bool) {
			if !known {
				return 0, false
			}
			if xv == 0 {
				return 1, true
			}
			return 0, true
		})
	case hir.OpNeg:
		zero := b.tempSlot()
		b.constant(zero, 0, e.Location)
		b.emitInstr(&mir.Binary{Dst: dst.Slot, Op: mir.BinSub, Left: zero, Right: x, Location: e.Location})
		b.setComputed(dst.Slot, func() (int32, bool) {
			if !known {
				return 0, false
			}
			return mir.BinSub.Eval(0, xv)
		})
	default:
		b.contract(e.Loc(), diagnostics.ErrContractViolation, "unsupported unary operator %s", e.Op)
		return slots.Unit
	}
	return dst
}

func comparisonOp(op hir.Op) (mir.CmpOp, bool) {
	switch op {
	case hir.OpLt:
		return mir.CmpLt, true
	case hir.OpLe:
		return mir.CmpLe, true
	case hir.OpGt:
		return mir.CmpGt, true
	case hir.OpGe:
		return mir.CmpGe, true
	case hir.OpEq:
		return mir.CmpEq, true
	case hir.OpNe:
		return mir.CmpNe, true
	}
	return 0, false
}

// binaryOp maps arithmetic and the eager boolean operators. Booleans are
// 0 or 1, so && is the minimum and || the maximum of its operands.
func binaryOp(op hir.Op) (mir.BinOp, bool) {
	switch op {
	case hir.OpAdd:
		return mir.BinAdd, true
	case hir.OpSub:
		return mir.BinSub, true
	case hir.OpMul:
		return mir.BinMul, true
	case hir.OpDiv:
		return mir.BinDiv, true
	case hir.OpMod:
		return mir.BinMod, true
	case hir.OpAnd:
		return mir.BinMin, true
	case hir.OpOr:
		return mir.BinMax, true
	}
	return 0, false
}

func (b *functionBuilder) lowerCall(call *hir.Call) slots.Place {
	def := b.gen.prog.Function(call.Callee)
	if def == nil {
		b.contract(call.Loc(), diagnostics.ErrUnknownCallee, "call to unknown function %q", call.Callee)
		return slots.Unit
	}
	if len(call.Args) != len(def.Params) {
		b.contract(call.Loc(), diagnostics.ErrArgumentCount, "%s expects %d arguments, got %d", def.Name, len(def.Params), len(call.Args))
		return slots.Unit
	}

	args := make([]slots.Place, len(call.Args))
	for i, a := range call.Args {
		args[i] = b.snapshot(b.lowerExpr(a), call.Args[i+1:], call.Location)
		if !b.reachable() {
			return slots.Unit
		}
	}

	var sig []argConst
	for _, a := range args {
		for _, leaf := range a.Leaves() {
			v, ok := b.st.value(leaf)
			sig = append(sig, argConst{known: ok, value: v})
		}
	}

	depth := 0
	recursive := b.gen.graph.SameGroup(b.def.Name, def.Name)
	if recursive {
		depth = b.depth + 1
	}

	res := b.gen.copy(def, depth, sig, b.chain, call.Loc())
	if res.err != nil {
		b.abort(res.err)
		return slots.Unit
	}

	for i, p := range def.Params {
		b.assign(b.gen.alloc.Place(res.frame, p.Name, slots.Param, p.Type), args[i], call.Location)
	}

	counter := b.gen.alloc.Counter(b.gen.graph.GroupName(def.Name))
	if recursive {
		b.emitInstr(&mir.Adjust{Dst: counter, Delta: 1, Location: call.Location})
	}
	b.emitInstr(&mir.Invoke{Target: res.name, Location: call.Location})
	if recursive {
		b.emitInstr(&mir.Adjust{Dst: counter, Delta: -1, Location: call.Location})
	}
	b.afterInvoke(res)

	if res.ret.IsUnit() {
		return slots.Unit
	}
	out := b.temp(def.Result)
	b.assign(out, res.ret, call.Location)
	return out
}

// afterInvoke forgets what the callee may have changed. A copy writes only
// its own frame and the frames below it, never the caller's.
func (b *functionBuilder) afterInvoke(res *copyResult) {
	if !b.reachable() {
		return
	}
	b.st.forget(func(s *slots.Slot) bool { return !b.fn.Owns(s.Frame) })
	for _, leaf := range res.ret.Leaves() {
		if v, ok := res.consts[leaf]; ok {
			b.st.set(leaf, v)
		} else {
			b.st.unknown(leaf)
		}
	}
}

// lowerCond evaluates an if condition into a temp no arm writes.
func (b *functionBuilder) lowerCond(e hir.Expr) *slots.Slot {
	c := b.scalar(e)
	if !b.reachable() {
		return nil
	}
	if c.Kind == slots.Temp {
		return c
	}
	t := b.tempSlot()
	b.assign(slots.ScalarPlace(t, types.TypeBool), slots.ScalarPlace(c, types.TypeBool), *e.Loc())
	return t
}
