// Package hirtest builds typed trees for tests without going through JSON.
package hirtest

import (
	"bell/internal/hir"
	"bell/internal/types"
)

func Int(v int32) *hir.Literal { return &hir.Literal{Value: v, Type: types.TypeInt} }

func Bool(b bool) *hir.Literal {
	if b {
		return &hir.Literal{Value: 1, Type: types.TypeBool}
	}
	return &hir.Literal{Value: 0, Type: types.TypeBool}
}

func Var(name string, t types.SemType) *hir.VarRef { return &hir.VarRef{Name: name, Type: t} }

// IntVar and BoolVar are the common scalar references.
func IntVar(name string) *hir.VarRef  { return Var(name, types.TypeInt) }
func BoolVar(name string) *hir.VarRef { return Var(name, types.TypeBool) }

func Let(name string, value hir.Expr) *hir.Let {
	return &hir.Let{Name: name, Type: value.ExprType(), Value: value}
}

// Decl declares a variable without initializing it.
func Decl(name string, t types.SemType) *hir.Let { return &hir.Let{Name: name, Type: t} }

func Set(name string, value hir.Expr) *hir.Assign {
	return &hir.Assign{Target: Var(name, value.ExprType()), Value: value}
}

func SetField(target hir.Expr, value hir.Expr) *hir.Assign {
	return &hir.Assign{Target: target, Value: value}
}

func Bin(op hir.Op, l, r hir.Expr) *hir.BinaryOp {
	t := types.SemType(types.TypeInt)
	if op.IsComparison() || op.IsLogical() {
		t = types.TypeBool
	}
	return &hir.BinaryOp{Op: op, Left: l, Right: r, Type: t}
}

func Not(x hir.Expr) *hir.UnaryOp { return &hir.UnaryOp{Op: hir.OpNot, X: x, Type: types.TypeBool} }
func Neg(x hir.Expr) *hir.UnaryOp { return &hir.UnaryOp{Op: hir.OpNeg, X: x, Type: types.TypeInt} }

func Call(callee string, result types.SemType, args ...hir.Expr) *hir.Call {
	return &hir.Call{Callee: callee, Args: args, Type: result}
}

func Field(x hir.Expr, name string) *hir.FieldAccess {
	var t types.SemType
	if st, ok := x.ExprType().(*types.StructType); ok {
		if f, ok := st.Field(name); ok {
			t = f.Type
		}
	}
	return &hir.FieldAccess{X: x, Field: name, Type: t}
}

func Init(name string, value hir.Expr) hir.FieldInit { return hir.FieldInit{Name: name, Value: value} }

func Struct(st *types.StructType, inits ...hir.FieldInit) *hir.StructLiteral {
	return &hir.StructLiteral{Type: st, Fields: inits}
}

func Arm(cond hir.Expr, body *hir.Block) hir.IfArm { return hir.IfArm{Cond: cond, Body: body} }

// If is a one-armed conditional of unit type.
func If(cond hir.Expr, then *hir.Block) *hir.If {
	return &hir.If{Arms: []hir.IfArm{Arm(cond, then)}, Type: types.TypeUnit}
}

// IfElse takes its type from the then block.
func IfElse(cond hir.Expr, then, els *hir.Block) *hir.If {
	return Chain([]hir.IfArm{Arm(cond, then)}, els)
}

// Chain is an else-if chain; els may be nil.
func Chain(arms []hir.IfArm, els *hir.Block) *hir.If {
	t := types.SemType(types.TypeUnit)
	if els != nil {
		t = arms[0].Body.Type
	}
	return &hir.If{Arms: arms, Else: els, Type: t}
}

func Loop(t types.SemType, body ...hir.Expr) *hir.Loop {
	return &hir.Loop{Body: Do(body...), Type: t}
}

func Break(value hir.Expr) *hir.Break   { return &hir.Break{Value: value} }
func Continue() *hir.Continue           { return &hir.Continue{} }
func Return(value hir.Expr) *hir.Return { return &hir.Return{Value: value} }
func Print(value hir.Expr) *hir.Print   { return &hir.Print{Value: value} }
func Command(text string) *hir.Command  { return &hir.Command{Text: text} }

// Do is a unit block.
func Do(exprs ...hir.Expr) *hir.Block {
	return &hir.Block{Exprs: exprs, Type: types.TypeUnit}
}

// Yield is a block whose last expression is its value.
func Yield(exprs ...hir.Expr) *hir.Block {
	tail := exprs[len(exprs)-1]
	return &hir.Block{Exprs: exprs[:len(exprs)-1], Tail: tail, Type: tail.ExprType()}
}

func P(name string, t types.SemType) hir.Param { return hir.Param{Name: name, Type: t} }

func Func(name string, params []hir.Param, result types.SemType, body *hir.Block) *hir.FuncDef {
	if result == nil {
		result = types.TypeUnit
	}
	return &hir.FuncDef{Name: name, Params: params, Result: result, Body: body}
}

// Entry is Func marked as an entry point.
func Entry(name string, params []hir.Param, result types.SemType, body *hir.Block) *hir.FuncDef {
	fn := Func(name, params, result, body)
	fn.Entry = true
	return fn
}

func Program(fns ...*hir.FuncDef) *hir.Program { return &hir.Program{Functions: fns} }
