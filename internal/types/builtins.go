package types

type TYPE_NAME string

const (
	TYPE_INT     TYPE_NAME = "int"
	TYPE_BOOL    TYPE_NAME = "bool"
	TYPE_UNIT    TYPE_NAME = "unit"
	TYPE_STRUCT  TYPE_NAME = "struct"
	TYPE_UNKNOWN TYPE_NAME = "unknown"
)

var (
	TypeInt  = NewPrimitive(TYPE_INT)
	TypeBool = NewPrimitive(TYPE_BOOL)
	TypeUnit = NewPrimitive(TYPE_UNIT)
)

// FromName maps a primitive type name to its shared instance.
func FromName(name TYPE_NAME) (SemType, bool) {
	switch name {
	case TYPE_INT:
		return TypeInt, true
	case TYPE_BOOL:
		return TypeBool, true
	case TYPE_UNIT:
		return TypeUnit, true
	}
	return nil, false
}
