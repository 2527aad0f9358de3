package mir

import (
	"math"
	"testing"
)

func TestFloorDivMod(t *testing.T) {
	tests := []struct {
		a, b     int32
		div, mod int32
	}{
		{7, 2, 3, 1},
		{-7, 2, -4, 1},
		{7, -2, -4, -1},
		{-7, -2, 3, -1},
		{6, 3, 2, 0},
		{-6, 3, -2, 0},
		{0, 5, 0, 0},
	}

	for _, tt := range tests {
		if got := FloorDiv(tt.a, tt.b); got != tt.div {
			t.Errorf("FloorDiv(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.div)
		}
		if got := FloorMod(tt.a, tt.b); got != tt.mod {
			t.Errorf("FloorMod(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.mod)
		}
	}
}

func TestBinOpEval(t *testing.T) {
	tests := []struct {
		op   BinOp
		a, b int32
		want int32
		ok   bool
	}{
		{BinAdd, 2, 3, 5, true},
		{BinAdd, math.MaxInt32, 1, math.MinInt32, true},
		{BinSub, 2, 3, -1, true},
		{BinMul, -4, 3, -12, true},
		{BinDiv, -7, 2, -4, true},
		{BinMod, -7, 2, 1, true},
		{BinDiv, 5, 0, 0, false},
		{BinMod, 5, 0, 0, false},
		{BinMin, 1, 0, 0, true},
		{BinMax, 1, 0, 1, true},
	}

	for _, tt := range tests {
		got, ok := tt.op.Eval(tt.a, tt.b)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("%s.Eval(%d, %d) = %d, %v; want %d, %v", tt.op, tt.a, tt.b, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCmpOpEval(t *testing.T) {
	tests := []struct {
		op   CmpOp
		a, b int32
		want int32
	}{
		{CmpLt, 1, 2, 1},
		{CmpLt, 2, 2, 0},
		{CmpLe, 2, 2, 1},
		{CmpGt, 3, 2, 1},
		{CmpGe, 1, 2, 0},
		{CmpEq, 4, 4, 1},
		{CmpNe, 4, 4, 0},
	}

	for _, tt := range tests {
		if got := tt.op.Eval(tt.a, tt.b); got != tt.want {
			t.Errorf("%s.Eval(%d, %d) = %d, want %d", tt.op, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCommutative(t *testing.T) {
	for _, op := range []BinOp{BinAdd, BinMul, BinMin, BinMax} {
		if !op.Commutative() {
			t.Errorf("Expected %s to be commutative", op)
		}
	}
	for _, op := range []BinOp{BinSub, BinDiv, BinMod} {
		if op.Commutative() {
			t.Errorf("Expected %s not to be commutative", op)
		}
	}
}
