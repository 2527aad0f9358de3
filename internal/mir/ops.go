package mir

// BinOp is a three-address arithmetic operator.
type BinOp int

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinMin
	BinMax
)

func (o BinOp) String() string {
	switch o {
	case BinAdd:
		return "add"
	case BinSub:
		return "sub"
	case BinMul:
		return "mul"
	case BinDiv:
		return "div"
	case BinMod:
		return "mod"
	case BinMin:
		return "min"
	case BinMax:
		return "max"
	default:
		return "binop?"
	}
}

// Commutative operators may swap operands when lowering in place.
func (o BinOp) Commutative() bool {
	return o == BinAdd || o == BinMul || o == BinMin || o == BinMax
}

// Eval computes the operator with the target runtime's semantics: 32-bit
// wrapping, floored division and modulo. ok is false for a zero divisor,
// which leaves the destination unchanged at run time.
func (o BinOp) Eval(a, b int32) (v int32, ok bool) {
	switch o {
	case BinAdd:
		return a + b, true
	case BinSub:
		return a - b, true
	case BinMul:
		return a * b, true
	case BinDiv:
		if b == 0 {
			return 0, false
		}
		return FloorDiv(a, b), true
	case BinMod:
		if b == 0 {
			return 0, false
		}
		return FloorMod(a, b), true
	case BinMin:
		return min(a, b), true
	case BinMax:
		return max(a, b), true
	}
	return 0, false
}

// FloorDiv rounds the quotient toward negative infinity.
func FloorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// FloorMod has the sign of the divisor.
func FloorMod(a, b int32) int32 {
	return a - FloorDiv(a, b)*b
}

// CmpOp is a comparison producing 0 or 1.
type CmpOp int

const (
	CmpLt CmpOp = iota
	CmpLe
	CmpGt
	CmpGe
	CmpEq
	CmpNe
)

func (o CmpOp) String() string {
	switch o {
	case CmpLt:
		return "lt"
	case CmpLe:
		return "le"
	case CmpGt:
		return "gt"
	case CmpGe:
		return "ge"
	case CmpEq:
		return "eq"
	case CmpNe:
		return "ne"
	default:
		return "cmp?"
	}
}

// Eval returns 1 when the comparison holds, else 0.
func (o CmpOp) Eval(a, b int32) int32 {
	var r bool
	switch o {
	case CmpLt:
		r = a < b
	case CmpLe:
		r = a <= b
	case CmpGt:
		r = a > b
	case CmpGe:
		r = a >= b
	case CmpEq:
		r = a == b
	case CmpNe:
		r = a != b
	}
	if r {
		return 1
	}
	return 0
}
