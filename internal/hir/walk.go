package hir

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. Children are skipped when f returns false.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	switch node := n.(type) {
	case *Program:
		for _, fn := range node.Functions {
			Inspect(fn, f)
		}
	case *FuncDef:
		if node.Body != nil {
			Inspect(node.Body, f)
		}
	case *Let:
		inspectExpr(node.Value, f)
	case *Assign:
		inspectExpr(node.Target, f)
		inspectExpr(node.Value, f)
	case *BinaryOp:
		inspectExpr(node.Left, f)
		inspectExpr(node.Right, f)
	case *UnaryOp:
		inspectExpr(node.X, f)
	case *Call:
		for _, arg := range node.Args {
			inspectExpr(arg, f)
		}
	case *FieldAccess:
		inspectExpr(node.X, f)
	case *StructLiteral:
		for _, init := range node.Fields {
			inspectExpr(init.Value, f)
		}
	case *If:
		for _, arm := range node.Arms {
			inspectExpr(arm.Cond, f)
			if arm.Body != nil {
				Inspect(arm.Body, f)
			}
		}
		if node.Else != nil {
			Inspect(node.Else, f)
		}
	case *Loop:
		if node.Body != nil {
			Inspect(node.Body, f)
		}
	case *Break:
		inspectExpr(node.Value, f)
	case *Return:
		inspectExpr(node.Value, f)
	case *Block:
		for _, e := range node.Exprs {
			inspectExpr(e, f)
		}
		inspectExpr(node.Tail, f)
	case *Print:
		inspectExpr(node.Value, f)
	}
}

func inspectExpr(e Expr, f func(Node) bool) {
	if e != nil {
		Inspect(e, f)
	}
}

// HasEffects reports whether evaluating e can write a cell, transfer
// control or produce output.
func HasEffects(e Expr) bool {
	if e == nil {
		return false
	}
	effects := false
	Inspect(e, func(n Node) bool {
		switch n.(type) {
		case *Let, *Assign, *Call, *Print, *Command, *Break, *Continue, *Return, *Loop:
			effects = true
		}
		return !effects
	})
	return effects
}
