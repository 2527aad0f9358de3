package hir

// Op is an operator of a BinaryOp or UnaryOp.
type Op int

const (
	OpInvalid Op = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
	OpNot
	OpNeg
)

var opSymbols = map[Op]string{
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpEq:  "==",
	OpNe:  "!=",
	OpAnd: "&&",
	OpOr:  "||",
	OpNot: "!",
	OpNeg: "neg",
}

func (o Op) String() string {
	if s, ok := opSymbols[o]; ok {
		return s
	}
	return "invalid"
}

// ParseOp maps an operator symbol back to its Op.
func ParseOp(s string) Op {
	for op, sym := range opSymbols {
		if sym == s {
			return op
		}
	}
	return OpInvalid
}

// IsArithmetic reports + - * / %.
func (o Op) IsArithmetic() bool { return o >= OpAdd && o <= OpMod }

// IsComparison reports < <= > >= == !=.
func (o Op) IsComparison() bool { return o >= OpLt && o <= OpNe }

// IsLogical reports && and ||.
func (o Op) IsLogical() bool { return o == OpAnd || o == OpOr }
