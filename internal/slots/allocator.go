package slots

import (
	"sort"
	"sync"

	"bell/internal/types"
)

type frameKey struct {
	owner string
	depth int
}

type slotKey struct {
	frame *Frame
	path  string
}

// Allocator hands out frames and slots. It is the single naming authority of
// a compilation and is safe for concurrent use by parallel builders.
type Allocator struct {
	mu     sync.Mutex
	frames map[frameKey]*Frame
	slots  map[slotKey]*Slot
}

func NewAllocator() *Allocator {
	return &Allocator{
		frames: make(map[frameKey]*Frame),
		slots:  make(map[slotKey]*Slot),
	}
}

// Frame returns the activation frame of owner at depth. A depth above limit
// is refused with a *BudgetError; a negative limit disables the check.
func (a *Allocator) Frame(owner string, depth, limit int) (*Frame, error) {
	if limit >= 0 && depth > limit {
		return nil, &BudgetError{Owner: owner, Depth: depth, Limit: limit}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := frameKey{owner, depth}
	if f, ok := a.frames[key]; ok {
		return f, nil
	}
	f := &Frame{Owner: owner, Depth: depth}
	a.frames[key] = f
	return f, nil
}

// Slot interns the cell at path inside frame. The kind of the first request
// wins.
func (a *Allocator) Slot(frame *Frame, path string, kind Kind) *Slot {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := slotKey{frame, path}
	if s, ok := a.slots[key]; ok {
		return s
	}
	s := &Slot{Frame: frame, Path: path, Kind: kind, name: frame.String() + "." + path}
	a.slots[key] = s
	return s
}

// Place allocates one slot per scalar leaf of t under base.
func (a *Allocator) Place(frame *Frame, base string, kind Kind, t types.SemType) Place {
	st, ok := t.(*types.StructType)
	if !ok {
		if types.IsUnit(t) {
			return Place{Type: t}
		}
		return ScalarPlace(a.Slot(frame, base, kind), t)
	}

	p := Place{Type: t}
	for _, f := range st.Fields {
		p.Fields = append(p.Fields, Field{
			Name:  f.Name,
			Place: a.Place(frame, base+"."+f.Name, kind, f.Type),
		})
	}
	return p
}

// Counter is the depth counter shared by every activation of a recursion group.
func (a *Allocator) Counter(group string) *Slot {
	f, _ := a.Frame(group, 0, -1)
	return a.Slot(f, "$depth", Counter)
}

// Scratch is the cell used to stage non-commutative in-place arithmetic.
func (a *Allocator) Scratch() *Slot {
	f, _ := a.Frame("_", 0, -1)
	return a.Slot(f, "$scratch", Scratch)
}

// Slots returns every allocated slot ordered by name.
func (a *Allocator) Slots() []*Slot {
	a.mu.Lock()
	out := make([]*Slot, 0, len(a.slots))
	for _, s := range a.slots {
		out = append(out, s)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}
