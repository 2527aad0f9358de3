package mir

import (
	"bell/internal/slots"
	"bell/internal/source"
)

// Instr is the base interface for MIR instructions.
type Instr interface {
	mirInstr()
	Loc() *source.Location
}

// Const stores a literal into a cell.
type Const struct {
	Dst      *slots.Slot
	Value    int32
	Location source.Location
}

func (c *Const) mirInstr()             {}
func (c *Const) Loc() *source.Location { return &c.Location }

// Copy stores the value of one cell into another.
type Copy struct {
	Dst      *slots.Slot
	Src      *slots.Slot
	Location source.Location
}

func (c *Copy) mirInstr()             {}
func (c *Copy) Loc() *source.Location { return &c.Location }

// Binary computes Dst = Left op Right.
type Binary struct {
	Dst      *slots.Slot
	Op       BinOp
	Left     *slots.Slot
	Right    *slots.Slot
	Location source.Location
}

func (b *Binary) mirInstr()             {}
func (b *Binary) Loc() *source.Location { return &b.Location }

// Compare stores 1 into Dst when Left op Right holds, else 0.
type Compare struct {
	Dst      *slots.Slot
	Op       CmpOp
	Left     *slots.Slot
	Right    *slots.Slot
	Location source.Location
}

func (c *Compare) mirInstr()             {}
func (c *Compare) Loc() *source.Location { return &c.Location }

// Not stores 1 into Dst when Src is 0, else 0.
type Not struct {
	Dst      *slots.Slot
	Src      *slots.Slot
	Location source.Location
}

func (n *Not) mirInstr()             {}
func (n *Not) Loc() *source.Location { return &n.Location }

// Adjust adds Delta to Dst in place. Used for depth counters.
type Adjust struct {
	Dst      *slots.Slot
	Delta    int32
	Location source.Location
}

func (a *Adjust) mirInstr()             {}
func (a *Adjust) Loc() *source.Location { return &a.Location }

// Invoke runs another unit to completion. Loop is set when the target is a
// loop iteration, which writes the invoker's own frames.
type Invoke struct {
	Target   string
	Loop     bool
	Location source.Location
}

func (i *Invoke) mirInstr()             {}
func (i *Invoke) Loc() *source.Location { return &i.Location }

// Print shows the value of a cell.
type Print struct {
	Src      *slots.Slot
	Location source.Location
}

func (p *Print) mirInstr()             {}
func (p *Print) Loc() *source.Location { return &p.Location }

// Raw is passthrough command text with unknown effects.
type Raw struct {
	Text     string
	Location source.Location
}

func (r *Raw) mirInstr()             {}
func (r *Raw) Loc() *source.Location { return &r.Location }

// Writes returns the cell an instruction stores into, or nil.
func Writes(instr Instr) *slots.Slot {
	switch i := instr.(type) {
	case *Const:
		return i.Dst
	case *Copy:
		return i.Dst
	case *Binary:
		return i.Dst
	case *Compare:
		return i.Dst
	case *Not:
		return i.Dst
	case *Adjust:
		return i.Dst
	}
	return nil
}

// Reads returns the cells an instruction reads.
func Reads(instr Instr) []*slots.Slot {
	switch i := instr.(type) {
	case *Copy:
		return []*slots.Slot{i.Src}
	case *Binary:
		return []*slots.Slot{i.Left, i.Right}
	case *Compare:
		return []*slots.Slot{i.Left, i.Right}
	case *Not:
		return []*slots.Slot{i.Src}
	case *Adjust:
		return []*slots.Slot{i.Dst}
	case *Print:
		return []*slots.Slot{i.Src}
	}
	return nil
}

// IsPure reports instructions whose only effect is their destination cell.
func IsPure(instr Instr) bool {
	switch instr.(type) {
	case *Const, *Copy, *Binary, *Compare, *Not:
		return true
	}
	return false
}
