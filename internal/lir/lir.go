// Package lir holds the target-shaped intermediate form: flat command lists,
// one list per emitted function, where the only control flow is a guard on
// a single command and invocation of another function.
package lir

import (
	"bell/internal/mir"
	"bell/internal/slots"
)

// OpKind is an in-place scoreboard operation.
type OpKind int

const (
	OpAssign OpKind = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpMin
	OpMax
)

// Symbol is the operator as written in the target command.
func (k OpKind) Symbol() string {
	switch k {
	case OpAssign:
		return "="
	case OpAdd:
		return "+="
	case OpSub:
		return "-="
	case OpMul:
		return "*="
	case OpDiv:
		return "/="
	case OpMod:
		return "%="
	case OpMin:
		return "<"
	case OpMax:
		return ">"
	}
	return "?"
}

func opKind(op mir.BinOp) OpKind {
	switch op {
	case mir.BinAdd:
		return OpAdd
	case mir.BinSub:
		return OpSub
	case mir.BinMul:
		return OpMul
	case mir.BinDiv:
		return OpDiv
	case mir.BinMod:
		return OpMod
	case mir.BinMin:
		return OpMin
	default:
		return OpMax
	}
}

// Guard makes a command run only while Slot holds Value.
type Guard struct {
	Slot  *slots.Slot
	Value int32
}

// Command is one target command, optionally guarded.
type Command struct {
	Guard *Guard
	Op    Op
}

// Op is the body of a command.
type Op interface {
	lirOp()
}

// Set stores a literal.
type Set struct {
	Dst   *slots.Slot
	Value int32
}

// Operation applies Dst op= Src.
type Operation struct {
	Kind OpKind
	Dst  *slots.Slot
	Src  *slots.Slot
}

// Adjust adds a literal in place.
type Adjust struct {
	Dst   *slots.Slot
	Delta int32
}

// StoreCompare stores 1 when Left op Right holds, else 0.
type StoreCompare struct {
	Dst   *slots.Slot
	Op    mir.CmpOp
	Left  *slots.Slot
	Right *slots.Slot
}

// StoreNot stores 1 when Src is 0, else 0.
type StoreNot struct {
	Dst *slots.Slot
	Src *slots.Slot
}

// Invoke runs another function. Loop marks loop iterations, which may
// write cells of the invoking function.
type Invoke struct {
	Target string
	Loop   bool
}

// Print shows a cell to every player.
type Print struct {
	Src *slots.Slot
}

// Raw is passthrough command text.
type Raw struct {
	Text string
}

// Init creates the objective that holds every cell.
type Init struct{}

func (*Set) lirOp()          {}
func (*Operation) lirOp()    {}
func (*Adjust) lirOp()       {}
func (*StoreCompare) lirOp() {}
func (*StoreNot) lirOp()     {}
func (*Invoke) lirOp()       {}
func (*Print) lirOp()        {}
func (*Raw) lirOp()          {}
func (*Init) lirOp()         {}

// Function is one emitted command list.
type Function struct {
	Name     string
	Source   string
	Entry    bool
	Commands []Command
}

// Entry is an exported function and the cells its caller exchanges with it.
type Entry struct {
	Name   string
	Params []*slots.Slot
	Result []*slots.Slot
}

// Program is every function of a compilation, ordered by name.
type Program struct {
	Functions []*Function
	Entries   []Entry
}

// Function returns the function called name, or nil.
func (p *Program) Function(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// Writes returns the cell a command stores into, or nil.
func Writes(c Command) *slots.Slot {
	switch op := c.Op.(type) {
	case *Set:
		return op.Dst
	case *Operation:
		return op.Dst
	case *Adjust:
		return op.Dst
	case *StoreCompare:
		return op.Dst
	case *StoreNot:
		return op.Dst
	}
	return nil
}

// Reads returns the cells a command reads, including its guard.
func Reads(c Command) []*slots.Slot {
	var out []*slots.Slot
	if c.Guard != nil {
		out = append(out, c.Guard.Slot)
	}
	switch op := c.Op.(type) {
	case *Operation:
		if op.Kind != OpAssign {
			out = append(out, op.Dst)
		}
		out = append(out, op.Src)
	case *Adjust:
		out = append(out, op.Dst)
	case *StoreCompare:
		out = append(out, op.Left, op.Right)
	case *StoreNot:
		out = append(out, op.Src)
	case *Print:
		out = append(out, op.Src)
	}
	return out
}

// barrier commands have effects the peephole cannot see through.
func barrier(c Command) bool {
	switch c.Op.(type) {
	case *Invoke, *Raw:
		return true
	}
	return false
}
