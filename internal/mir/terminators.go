package mir

import (
	"bell/internal/slots"
	"bell/internal/source"
)

// Term is the base interface for MIR terminators.
type Term interface {
	mirTerm()
	Loc() *source.Location
}

// Return leaves the current unit.
type Return struct {
	Location source.Location
}

func (r *Return) mirTerm()              {}
func (r *Return) Loc() *source.Location { return &r.Location }

// Br continues unconditionally in another block of the same unit.
type Br struct {
	Target   BlockID
	Location source.Location
}

func (b *Br) mirTerm()              {}
func (b *Br) Loc() *source.Location { return &b.Location }

// CondBr runs Then when Cond holds 1 and Else when it holds 0; both paths
// continue at Join. Cond is read once and never written by either arm, so
// exactly one arm runs. Then or Else may equal Join for an empty arm.
type CondBr struct {
	Cond     *slots.Slot
	Then     BlockID
	Else     BlockID
	Join     BlockID
	Location source.Location
}

func (c *CondBr) mirTerm()              {}
func (c *CondBr) Loc() *source.Location { return &c.Location }

// Successors lists the blocks control may reach next.
func Successors(t Term) []BlockID {
	switch term := t.(type) {
	case *Br:
		return []BlockID{term.Target}
	case *CondBr:
		out := []BlockID{term.Then}
		if term.Else != term.Then {
			out = append(out, term.Else)
		}
		if term.Join != term.Then && term.Join != term.Else {
			out = append(out, term.Join)
		}
		return out
	}
	return nil
}
