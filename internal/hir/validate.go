package hir

import (
	"fmt"

	"bell/internal/diagnostics"
	"bell/internal/types"
)

// Validate checks that a typed tree honours the front-end contract: every
// expression is typed, names resolve, calls match their callee and loop
// control sits inside a loop. It never reports lowering errors.
func Validate(p *Program) []*diagnostics.Diagnostic {
	v := &validator{prog: p, funcs: make(map[string]*FuncDef)}

	for _, fn := range p.Functions {
		if _, dup := v.funcs[fn.Name]; dup {
			v.report(fn, diagnostics.ErrContractViolation, "function %s is defined twice", fn.Name)
			continue
		}
		v.funcs[fn.Name] = fn
	}

	if len(p.Entries()) == 0 {
		v.diags = append(v.diags, diagnostics.ContractViolation(nil, diagnostics.ErrNoEntryPoint, "program has no entry point"))
	}

	for _, fn := range p.Functions {
		v.function(fn)
	}
	return v.diags
}

type validator struct {
	prog   *Program
	funcs  map[string]*FuncDef
	scopes []map[string]types.SemType
	loops  int
	diags  []*diagnostics.Diagnostic
}

func (v *validator) report(n Node, code, format string, args ...any) {
	v.diags = append(v.diags, diagnostics.ContractViolation(n.Loc(), code, fmt.Sprintf(format, args...)))
}

func (v *validator) push() { v.scopes = append(v.scopes, make(map[string]types.SemType)) }
func (v *validator) pop()  { v.scopes = v.scopes[:len(v.scopes)-1] }

func (v *validator) declare(name string, t types.SemType) {
	v.scopes[len(v.scopes)-1][name] = t
}

func (v *validator) lookup(name string) (types.SemType, bool) {
	for i := len(v.scopes) - 1; i >= 0; i-- {
		if t, ok := v.scopes[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

func (v *validator) function(fn *FuncDef) {
	if fn.Result == nil {
		v.report(fn, diagnostics.ErrContractViolation, "function %s has no result type", fn.Name)
	}
	if fn.Body == nil {
		v.report(fn, diagnostics.ErrContractViolation, "function %s has no body", fn.Name)
		return
	}
	if fn.MaxDepth < 0 {
		v.report(fn, diagnostics.ErrContractViolation, "function %s has a negative depth ceiling", fn.Name)
	}

	v.scopes = nil
	v.loops = 0
	v.push()
	for _, param := range fn.Params {
		if param.Type == nil {
			v.report(fn, diagnostics.ErrContractViolation, "parameter %s of %s has no type", param.Name, fn.Name)
		}
		v.declare(param.Name, param.Type)
	}
	v.expr(fn.Body)
	v.pop()
}

func (v *validator) expr(e Expr) {
	if e == nil {
		return
	}
	if e.ExprType() == nil {
		v.report(e, diagnostics.ErrContractViolation, "expression has no resolved type")
	}

	switch n := e.(type) {
	case *Continue:
		if v.loops == 0 {
			v.report(n, diagnostics.ErrInvalidContinue, "continue outside of a loop")
		}
	case *VarRef:
		if _, ok := v.lookup(n.Name); !ok {
			v.report(n, diagnostics.ErrUnknownVariable, "unknown variable %s", n.Name)
		}
	case *Let:
		v.expr(n.Value)
		v.declare(n.Name, n.Type)
	case *Assign:
		v.expr(n.Value)
		v.assignTarget(n.Target)
	case *BinaryOp:
		if n.Op.IsArithmetic() || n.Op.IsComparison() || n.Op.IsLogical() {
			v.expr(n.Left)
			v.expr(n.Right)
		} else {
			v.report(n, diagnostics.ErrContractViolation, "invalid binary operator %s", n.Op)
		}
	case *UnaryOp:
		if n.Op != OpNot && n.Op != OpNeg {
			v.report(n, diagnostics.ErrContractViolation, "invalid unary operator %s", n.Op)
		}
		v.expr(n.X)
	case *Call:
		v.call(n)
	case *FieldAccess:
		v.expr(n.X)
		v.field(n)
	case *StructLiteral:
		v.structLiteral(n)
	case *If:
		for _, arm := range n.Arms {
			v.expr(arm.Cond)
			if arm.Cond != nil && !types.IsScalar(arm.Cond.ExprType()) {
				v.report(arm.Cond, diagnostics.ErrContractViolation, "condition must be a scalar")
			}
			v.block(arm.Body)
		}
		v.block(n.Else)
	case *Loop:
		v.loops++
		v.block(n.Body)
		v.loops--
	case *Break:
		if v.loops == 0 {
			v.report(n, diagnostics.ErrInvalidBreak, "break outside of a loop")
		}
		v.expr(n.Value)
	case *Return:
		v.expr(n.Value)
	case *Block:
		v.block(n)
	case *Print:
		v.expr(n.Value)
		if n.Value != nil && !types.IsScalar(n.Value.ExprType()) {
			v.report(n, diagnostics.ErrContractViolation, "print takes a scalar value")
		}
	}
}

func (v *validator) block(b *Block) {
	if b == nil {
		return
	}
	v.push()
	for _, e := range b.Exprs {
		v.expr(e)
	}
	v.expr(b.Tail)
	v.pop()
}

func (v *validator) assignTarget(target Expr) {
	switch t := target.(type) {
	case *VarRef:
		v.expr(t)
	case *FieldAccess:
		v.expr(t)
		v.assignTarget(t.X)
	default:
		v.report(target, diagnostics.ErrContractViolation, "cannot assign to this expression")
	}
}

func (v *validator) call(c *Call) {
	for _, arg := range c.Args {
		v.expr(arg)
	}
	callee, ok := v.funcs[c.Callee]
	if !ok {
		v.report(c, diagnostics.ErrUnknownCallee, "unknown function %s", c.Callee)
		return
	}
	if len(callee.Params) != len(c.Args) {
		v.report(c, diagnostics.ErrArgumentCount, "%s expects %d arguments, found %d", c.Callee, len(callee.Params), len(c.Args))
		return
	}
	for i, arg := range c.Args {
		if at := arg.ExprType(); at != nil && callee.Params[i].Type != nil && !at.Equals(callee.Params[i].Type) {
			v.report(arg, diagnostics.ErrContractViolation, "argument %d of %s has type %s, expected %s", i+1, c.Callee, at, callee.Params[i].Type)
		}
	}
}

func (v *validator) field(f *FieldAccess) {
	if f.X == nil {
		return
	}
	st, ok := f.X.ExprType().(*types.StructType)
	if !ok {
		v.report(f, diagnostics.ErrFieldNotFound, "field %s accessed on a non-struct value", f.Field)
		return
	}
	if _, ok := st.Field(f.Field); !ok {
		v.report(f, diagnostics.ErrFieldNotFound, "%s has no field %s", st, f.Field)
	}
}

func (v *validator) structLiteral(s *StructLiteral) {
	for _, init := range s.Fields {
		v.expr(init.Value)
	}
	if s.Type == nil {
		return
	}
	seen := make(map[string]bool)
	for _, init := range s.Fields {
		if _, ok := s.Type.Field(init.Name); !ok {
			v.report(s, diagnostics.ErrFieldNotFound, "%s has no field %s", s.Type, init.Name)
		}
		if seen[init.Name] {
			v.report(s, diagnostics.ErrContractViolation, "field %s initialized twice", init.Name)
		}
		seen[init.Name] = true
	}
	for _, f := range s.Type.Fields {
		if !seen[f.Name] && !types.IsUnit(f.Type) {
			v.report(s, diagnostics.ErrContractViolation, "missing field %s in %s literal", f.Name, s.Type)
		}
	}
}
