package hir

import (
	"bell/internal/source"
	"bell/internal/types"
)

// Node is the base interface for all typed-tree nodes.
type Node interface {
	hirNode()
	Loc() *source.Location
}

// Expr is a typed expression. Statements are expressions of unit type.
type Expr interface {
	Node
	hirExpr()
	ExprType() types.SemType
}

// Program is the typed tree of a whole compilation.
type Program struct {
	Structs   []*types.StructType
	Functions []*FuncDef
	Location  source.Location
}

func (p *Program) hirNode()              {}
func (p *Program) Loc() *source.Location { return &p.Location }

// Function looks up a function definition by name.
func (p *Program) Function(name string) *FuncDef {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Entries returns the externally invocable functions in declaration order.
func (p *Program) Entries() []*FuncDef {
	var out []*FuncDef
	for _, fn := range p.Functions {
		if fn.Entry {
			out = append(out, fn)
		}
	}
	return out
}

// Param is a named, typed function parameter.
type Param struct {
	Name     string
	Type     types.SemType
	Location source.Location
}

// FuncDef is a function definition.
type FuncDef struct {
	Name     string
	Params   []Param
	Result   types.SemType
	Body     *Block
	MaxDepth int  // recursion ceiling for this function; 0 uses the global one
	Entry    bool // exported as a datapack function
	Location source.Location
}

func (f *FuncDef) hirNode()              {}
func (f *FuncDef) Loc() *source.Location { return &f.Location }

// Literal is an integer or boolean constant. Booleans are 0 or 1.
type Literal struct {
	Value    int32
	Type     types.SemType
	Location source.Location
}

func (l *Literal) hirNode()                {}
func (l *Literal) hirExpr()                {}
func (l *Literal) Loc() *source.Location   { return &l.Location }
func (l *Literal) ExprType() types.SemType { return l.Type }

// VarRef reads a local variable or parameter.
type VarRef struct {
	Name     string
	Type     types.SemType
	Location source.Location
}

func (v *VarRef) hirNode()                {}
func (v *VarRef) hirExpr()                {}
func (v *VarRef) Loc() *source.Location   { return &v.Location }
func (v *VarRef) ExprType() types.SemType { return v.Type }

// Let declares a variable, optionally initializing it.
type Let struct {
	Name     string
	Type     types.SemType
	Value    Expr // nil for a bare declaration
	Location source.Location
}

func (l *Let) hirNode()                {}
func (l *Let) hirExpr()                {}
func (l *Let) Loc() *source.Location   { return &l.Location }
func (l *Let) ExprType() types.SemType { return types.TypeUnit }

// Assign stores a value into a variable or field.
type Assign struct {
	Target   Expr // *VarRef or *FieldAccess
	Value    Expr
	Location source.Location
}

func (a *Assign) hirNode()                {}
func (a *Assign) hirExpr()                {}
func (a *Assign) Loc() *source.Location   { return &a.Location }
func (a *Assign) ExprType() types.SemType { return types.TypeUnit }

// BinaryOp applies an arithmetic, comparison or logical operator.
type BinaryOp struct {
	Op       Op
	Left     Expr
	Right    Expr
	Type     types.SemType
	Location source.Location
}

func (b *BinaryOp) hirNode()                {}
func (b *BinaryOp) hirExpr()                {}
func (b *BinaryOp) Loc() *source.Location   { return &b.Location }
func (b *BinaryOp) ExprType() types.SemType { return b.Type }

// UnaryOp applies logical not or negation.
type UnaryOp struct {
	Op       Op // OpNot or OpNeg
	X        Expr
	Type     types.SemType
	Location source.Location
}

func (u *UnaryOp) hirNode()                {}
func (u *UnaryOp) hirExpr()                {}
func (u *UnaryOp) Loc() *source.Location   { return &u.Location }
func (u *UnaryOp) ExprType() types.SemType { return u.Type }

// Call invokes a function by name.
type Call struct {
	Callee   string
	Args     []Expr
	Type     types.SemType
	Location source.Location
}

func (c *Call) hirNode()                {}
func (c *Call) hirExpr()                {}
func (c *Call) Loc() *source.Location   { return &c.Location }
func (c *Call) ExprType() types.SemType { return c.Type }

// FieldAccess selects a struct member.
type FieldAccess struct {
	X        Expr
	Field    string
	Type     types.SemType
	Location source.Location
}

func (f *FieldAccess) hirNode()                {}
func (f *FieldAccess) hirExpr()                {}
func (f *FieldAccess) Loc() *source.Location   { return &f.Location }
func (f *FieldAccess) ExprType() types.SemType { return f.Type }

// FieldInit is one member of a struct literal.
type FieldInit struct {
	Name  string
	Value Expr
}

// StructLiteral builds a struct value. Fields may be listed in any order.
type StructLiteral struct {
	Type     *types.StructType
	Fields   []FieldInit
	Location source.Location
}

func (s *StructLiteral) hirNode()                {}
func (s *StructLiteral) hirExpr()                {}
func (s *StructLiteral) Loc() *source.Location   { return &s.Location }
func (s *StructLiteral) ExprType() types.SemType {
	if s.Type == nil {
		return nil
	}
	return s.Type
}

// IfArm is one guarded block of an if chain.
type IfArm struct {
	Cond Expr
	Body *Block
}

// If is an if / else-if / else chain. The first arm whose condition holds runs.
type If struct {
	Arms     []IfArm
	Else     *Block // nil when absent
	Type     types.SemType
	Location source.Location
}

func (i *If) hirNode()                {}
func (i *If) hirExpr()                {}
func (i *If) Loc() *source.Location   { return &i.Location }
func (i *If) ExprType() types.SemType { return i.Type }

// Loop repeats its body until a break.
type Loop struct {
	Body     *Block
	Type     types.SemType
	Location source.Location
}

func (l *Loop) hirNode()                {}
func (l *Loop) hirExpr()                {}
func (l *Loop) Loc() *source.Location   { return &l.Location }
func (l *Loop) ExprType() types.SemType { return l.Type }

// Break leaves the innermost loop, optionally with its value.
type Break struct {
	Value    Expr
	Location source.Location
}

func (b *Break) hirNode()                {}
func (b *Break) hirExpr()                {}
func (b *Break) Loc() *source.Location   { return &b.Location }
func (b *Break) ExprType() types.SemType { return types.TypeUnit }

// Continue starts the next iteration of the innermost loop.
type Continue struct {
	Location source.Location
}

func (c *Continue) hirNode()                {}
func (c *Continue) hirExpr()                {}
func (c *Continue) Loc() *source.Location   { return &c.Location }
func (c *Continue) ExprType() types.SemType { return types.TypeUnit }

// Return leaves the enclosing function.
type Return struct {
	Value    Expr
	Location source.Location
}

func (r *Return) hirNode()                {}
func (r *Return) hirExpr()                {}
func (r *Return) Loc() *source.Location   { return &r.Location }
func (r *Return) ExprType() types.SemType { return types.TypeUnit }

// Block is a lexical scope; its value is the value of Tail.
type Block struct {
	Exprs    []Expr
	Tail     Expr // nil for a unit block
	Type     types.SemType
	Location source.Location
}

func (b *Block) hirNode()                {}
func (b *Block) hirExpr()                {}
func (b *Block) Loc() *source.Location   { return &b.Location }
func (b *Block) ExprType() types.SemType { return b.Type }

// Print shows a scalar value to every player.
type Print struct {
	Value    Expr
	Location source.Location
}

func (p *Print) hirNode()                {}
func (p *Print) hirExpr()                {}
func (p *Print) Loc() *source.Location   { return &p.Location }
func (p *Print) ExprType() types.SemType { return types.TypeUnit }

// Command passes raw command text through to the output.
type Command struct {
	Text     string
	Location source.Location
}

func (c *Command) hirNode()                {}
func (c *Command) hirExpr()                {}
func (c *Command) Loc() *source.Location   { return &c.Location }
func (c *Command) ExprType() types.SemType { return types.TypeUnit }
