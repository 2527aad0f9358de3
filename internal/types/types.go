package types

import (
	"fmt"
	"strings"
)

// SemType is the resolved type of a typed-tree expression.
//
// Every value of the target lives in integer cells, so a type is fully
// described by how many cells it occupies and how they are named.
type SemType interface {
	// String returns a human-readable representation of the type
	String() string

	// Equals checks structural equality with another type
	Equals(other SemType) bool

	// Cells returns how many scoreboard cells a value of this type needs
	Cells() int

	// isType is a marker method to prevent external implementation
	isType()
}

// PrimitiveType represents the built-in scalar types (int, bool) and unit.
type PrimitiveType struct {
	name TYPE_NAME
}

func NewPrimitive(name TYPE_NAME) *PrimitiveType {
	return &PrimitiveType{name: name}
}

func (p *PrimitiveType) String() string { return string(p.name) }
func (p *PrimitiveType) isType()        {}
func (p *PrimitiveType) Equals(other SemType) bool {
	if o, ok := other.(*PrimitiveType); ok {
		return p.name == o.name
	}
	return false
}

func (p *PrimitiveType) Cells() int {
	if p.name == TYPE_UNIT {
		return 0
	}
	return 1
}

// GetName returns the primitive type name
func (p *PrimitiveType) GetName() TYPE_NAME {
	return p.name
}

// StructField is a named member of a struct type.
type StructField struct {
	Name string
	Type SemType
}

// StructType represents struct types
type StructType struct {
	Name   string // Can be empty for anonymous structs
	Fields []StructField
}

func NewStruct(name string, fields []StructField) *StructType {
	return &StructType{Name: name, Fields: fields}
}

func (s *StructType) String() string {
	if s.Name != "" {
		return s.Name
	}
	// Anonymous struct
	fields := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		fields[i] = fmt.Sprintf(".%s: %s", f.Name, f.Type.String())
	}
	return fmt.Sprintf("struct { %s }", strings.Join(fields, ", "))
}

func (s *StructType) Cells() int {
	total := 0
	for _, f := range s.Fields {
		total += f.Type.Cells()
	}
	return total
}

func (s *StructType) isType() {}

func (s *StructType) Equals(other SemType) bool {
	if st, ok := other.(*StructType); ok {
		// Named structs must have same name
		if s.Name != "" && st.Name != "" {
			return s.Name == st.Name
		}
		// Anonymous structs must have same structure
		if len(s.Fields) != len(st.Fields) {
			return false
		}
		for i := range s.Fields {
			if s.Fields[i].Name != st.Fields[i].Name || !s.Fields[i].Type.Equals(st.Fields[i].Type) {
				return false
			}
		}
		return true
	}
	return false
}

// Field looks up a field by name.
func (s *StructType) Field(name string) (StructField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return StructField{}, false
}
