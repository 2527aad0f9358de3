package hir_test

import (
	"testing"

	"bell/internal/diagnostics"
	"bell/internal/hir"
	. "bell/internal/hir/hirtest"
	"bell/internal/types"
)

func codes(diags []*diagnostics.Diagnostic) map[string]bool {
	out := make(map[string]bool)
	for _, d := range diags {
		out[d.Code] = true
	}
	return out
}

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	prog := Program(
		Entry("main", []hir.Param{P("x", types.TypeInt)}, nil, Do(
			Let("y", Bin(hir.OpAdd, IntVar("x"), Int(1))),
			Loop(types.TypeUnit, If(Bin(hir.OpGt, IntVar("y"), Int(3)), Do(Break(nil))), Set("y", Int(4))),
			Print(Call("double", types.TypeInt, IntVar("y"))),
		)),
		Func("double", []hir.Param{P("v", types.TypeInt)}, types.TypeInt, Yield(Bin(hir.OpMul, IntVar("v"), Int(2)))),
	)

	if diags := hir.Validate(prog); len(diags) != 0 {
		t.Errorf("Expected no diagnostics, got %v", diags)
	}
}

func TestValidateReportsContractViolations(t *testing.T) {
	tests := []struct {
		name string
		prog *hir.Program
		code string
	}{
		{
			"unknown callee",
			Program(Entry("main", nil, nil, Do(Call("missing", types.TypeUnit)))),
			diagnostics.ErrUnknownCallee,
		},
		{
			"argument count",
			Program(
				Entry("main", nil, nil, Do(Call("f", types.TypeUnit))),
				Func("f", []hir.Param{P("a", types.TypeInt)}, nil, Do()),
			),
			diagnostics.ErrArgumentCount,
		},
		{
			"unknown variable",
			Program(Entry("main", nil, nil, Do(Print(IntVar("ghost"))))),
			diagnostics.ErrUnknownVariable,
		},
		{
			"break outside loop",
			Program(Entry("main", nil, nil, Do(Break(nil)))),
			diagnostics.ErrInvalidBreak,
		},
		{
			"continue outside loop",
			Program(Entry("main", nil, nil, Do(Continue()))),
			diagnostics.ErrInvalidContinue,
		},
		{
			"no entry",
			Program(Func("main", nil, nil, Do())),
			diagnostics.ErrNoEntryPoint,
		},
		{
			"variable out of scope",
			Program(Entry("main", nil, nil, Do(Do(Let("a", Int(1))), Print(IntVar("a"))))),
			diagnostics.ErrUnknownVariable,
		},
	}

	for _, tt := range tests {
		got := codes(hir.Validate(tt.prog))
		if !got[tt.code] {
			t.Errorf("%s: expected code %s, got %v", tt.name, tt.code, got)
		}
	}
}

func TestValidateStructs(t *testing.T) {
	pos := types.NewStruct("Pos", []types.StructField{{Name: "x", Type: types.TypeInt}, {Name: "y", Type: types.TypeInt}})
	p := Var("p", pos)

	missing := Program(Entry("main", nil, nil, Do(Let("p", Struct(pos, Init("x", Int(1)))))))
	if !codes(hir.Validate(missing))[diagnostics.ErrContractViolation] {
		t.Error("Expected missing field to be reported")
	}

	badField := Program(Entry("main", nil, nil, Do(
		Let("p", Struct(pos, Init("x", Int(1)), Init("y", Int(2)))),
		Print(&hir.FieldAccess{X: p, Field: "z", Type: types.TypeInt}),
	)))
	if !codes(hir.Validate(badField))[diagnostics.ErrFieldNotFound] {
		t.Error("Expected unknown field to be reported")
	}
}
