package gen

import "bell/internal/slots"

// state is what the builder knows at the current program point: which cells
// are definitely assigned and which hold a known constant. A nil state means
// the point is unreachable.
type state struct {
	consts   map[*slots.Slot]int32
	assigned map[*slots.Slot]bool
}

func newState() *state {
	return &state{
		consts:   make(map[*slots.Slot]int32),
		assigned: make(map[*slots.Slot]bool),
	}
}

func (s *state) clone() *state {
	if s == nil {
		return nil
	}
	out := &state{
		consts:   make(map[*slots.Slot]int32, len(s.consts)),
		assigned: make(map[*slots.Slot]bool, len(s.assigned)),
	}
	for k, v := range s.consts {
		out.consts[k] = v
	}
	for k := range s.assigned {
		out.assigned[k] = true
	}
	return out
}

func (s *state) set(slot *slots.Slot, v int32) {
	s.assigned[slot] = true
	s.consts[slot] = v
}

// unknown marks slot assigned with a value the builder cannot predict.
func (s *state) unknown(slot *slots.Slot) {
	s.assigned[slot] = true
	delete(s.consts, slot)
}

func (s *state) value(slot *slots.Slot) (int32, bool) {
	v, ok := s.consts[slot]
	return v, ok
}

func (s *state) isAssigned(slot *slots.Slot) bool { return s.assigned[slot] }

// forget drops constants of every slot matching pred.
func (s *state) forget(pred func(*slots.Slot) bool) {
	for k := range s.consts {
		if pred(k) {
			delete(s.consts, k)
		}
	}
}

// join is the meet of the states reaching one point: a cell is assigned or
// constant only if it is so on every incoming path. Nil states are skipped;
// the result is nil when every input is.
func join(states ...*state) *state {
	var out *state
	for _, s := range states {
		if s == nil {
			continue
		}
		if out == nil {
			out = s.clone()
			continue
		}
		for k := range out.assigned {
			if !s.assigned[k] {
				delete(out.assigned, k)
			}
		}
		for k, v := range out.consts {
			if w, ok := s.consts[k]; !ok || w != v {
				delete(out.consts, k)
			}
		}
	}
	return out
}
