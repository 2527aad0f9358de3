package types

// Leaf is one scalar cell of a (possibly nested) value, addressed by its
// dotted field path. The path of a scalar value itself is "".
type Leaf struct {
	Path string
	Type SemType
}

// Leaves flattens a type into its scalar cells in field declaration order.
func Leaves(t SemType) []Leaf {
	var out []Leaf
	collectLeaves(t, "", &out)
	return out
}

func collectLeaves(t SemType, prefix string, out *[]Leaf) {
	switch tt := t.(type) {
	case *StructType:
		for _, f := range tt.Fields {
			path := f.Name
			if prefix != "" {
				path = prefix + "." + f.Name
			}
			collectLeaves(f.Type, path, out)
		}
	default:
		if t != nil && t.Cells() > 0 {
			*out = append(*out, Leaf{Path: prefix, Type: t})
		}
	}
}

// IsUnit reports whether values of t occupy no cells.
func IsUnit(t SemType) bool {
	return t == nil || t.Cells() == 0
}

// IsScalar reports whether t is a single-cell type.
func IsScalar(t SemType) bool {
	_, ok := t.(*PrimitiveType)
	return ok && t.Cells() == 1
}
