package slots

import "bell/internal/types"

// Place is where a value lives: a scalar slot, a struct spread over field
// places in declaration order, or nothing at all for unit values.
type Place struct {
	Type   types.SemType
	Slot   *Slot
	Fields []Field
}

// Field is a named member place of a struct place.
type Field struct {
	Name  string
	Place Place
}

// Unit is the empty place of a unit-typed value.
var Unit = Place{Type: types.TypeUnit}

// ScalarPlace wraps a single slot.
func ScalarPlace(s *Slot, t types.SemType) Place {
	return Place{Type: t, Slot: s}
}

func (p Place) IsUnit() bool   { return p.Slot == nil && len(p.Fields) == 0 }
func (p Place) IsScalar() bool { return p.Slot != nil }

// Field selects a member place by name.
func (p Place) Field(name string) (Place, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Place, true
		}
	}
	return Place{}, false
}

// Leaves lists every scalar slot of the place in declaration order.
func (p Place) Leaves() []*Slot {
	if p.Slot != nil {
		return []*Slot{p.Slot}
	}
	var out []*Slot
	for _, f := range p.Fields {
		out = append(out, f.Place.Leaves()...)
	}
	return out
}
