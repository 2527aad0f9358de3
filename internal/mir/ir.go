package mir

import (
	"bell/internal/slots"
	"bell/internal/source"
)

// BlockID identifies a basic block within a function.
type BlockID uint32

const InvalidBlock BlockID = 0

// Program is the MIR of a whole compilation: every emitted unit plus the
// externally invocable entry points.
type Program struct {
	Functions []*Function
	Entries   []Entry
}

// Entry describes an exported entry point. Params are set by the caller of
// the datapack before invoking Name; Result holds the returned value after.
type Entry struct {
	Name     string
	Unit     string
	Params   []slots.Place
	Result   slots.Place
	Location source.Location
}

// Function returns the unit called name, or nil.
func (p *Program) Function(name string) *Function {
	for _, fn := range p.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// UnitKind tells what a MIR function was lowered from.
type UnitKind int

const (
	UnitFunction UnitKind = iota // a depth copy of a source function
	UnitLoop                     // one iteration of a loop
	UnitEntry                    // exported wrapper of an entry point
)

func (k UnitKind) String() string {
	switch k {
	case UnitFunction:
		return "fn"
	case UnitLoop:
		return "loop"
	case UnitEntry:
		return "entry"
	default:
		return "unit"
	}
}

// Function is one invocable unit. Its blocks form a structured acyclic
// graph rooted at Entry: every CondBr names the block where its arms meet.
type Function struct {
	Name   string
	Kind   UnitKind
	Source string // source function the unit was lowered from
	Depth  int
	Blocks []*Block
	Entry  BlockID

	// Frames lists the frames whose cells this unit writes directly.
	Frames []*slots.Frame
	// Assume holds cell values every invoker guarantees on entry.
	Assume map[*slots.Slot]int32

	Location source.Location

	nextBlock BlockID
}

// NewBlock appends a fresh block to the function.
func (f *Function) NewBlock(name string, loc source.Location) *Block {
	f.nextBlock++
	block := &Block{
		ID:       f.nextBlock,
		Name:     name,
		Location: loc,
	}
	f.Blocks = append(f.Blocks, block)
	return block
}

// Block returns the block with the given id, or nil.
func (f *Function) Block(id BlockID) *Block {
	for _, b := range f.Blocks {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// Owns reports whether frame is written directly by this unit.
func (f *Function) Owns(frame *slots.Frame) bool {
	for _, fr := range f.Frames {
		if fr == frame {
			return true
		}
	}
	return false
}

// Block is a basic block with a list of instructions and a terminator.
type Block struct {
	ID       BlockID
	Name     string
	Instrs   []Instr
	Term     Term
	Location source.Location
}
