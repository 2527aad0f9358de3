package slots

import "fmt"

// Kind classifies what a slot holds.
type Kind int

const (
	Local   Kind = iota // source variable
	Param                // function parameter
	Temp                 // intermediate expression value
	Result               // function or loop result
	Flag                 // one-shot escape flag (returned, loop done, continue)
	Counter              // recursion depth counter
	Scratch              // lowering scratch cell
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Param:
		return "param"
	case Temp:
		return "temp"
	case Result:
		return "result"
	case Flag:
		return "flag"
	case Counter:
		return "counter"
	case Scratch:
		return "scratch"
	default:
		return "unknown"
	}
}

// Frame is one activation of a function or loop at a fixed static depth.
// Frames are interned by the Allocator; compare them by pointer.
type Frame struct {
	Owner string
	Depth int
}

func (f *Frame) String() string {
	return fmt.Sprintf("%s@%d", f.Owner, f.Depth)
}

// Slot is a named global integer cell of the target. Slots are interned by
// the Allocator, so two slots are the same cell iff they are the same pointer.
type Slot struct {
	Frame *Frame
	Path  string
	Kind  Kind
	name  string
}

// Name is the cell name without the fake-player marker.
func (s *Slot) Name() string { return s.name }

func (s *Slot) String() string { return "#" + s.name }

// Observable slots are read from outside the emitted program and must
// never be removed by dead-store elimination.
func (s *Slot) Observable() bool { return s.Kind == Counter }

// BudgetError means an activation deeper than the configured ceiling was
// requested.
type BudgetError struct {
	Owner string
	Depth int
	Limit int
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%s needs activation depth %d, the limit is %d", e.Owner, e.Depth, e.Limit)
}
