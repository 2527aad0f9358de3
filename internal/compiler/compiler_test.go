package compiler

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/hir"
	. "bell/internal/hir/hirtest"
	"bell/internal/machine"
	"bell/internal/types"
)

func testConfig(level config.OptLevel) *config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.OptLevel = level
	return cfg
}

func compile(t *testing.T, prog *hir.Program, level config.OptLevel) Result {
	t.Helper()
	res := Compile(&Options{Program: prog, Config: testConfig(level), Quiet: true})
	if !res.Success {
		t.Fatalf("Expected successful compilation, got:\n%s", res.Diagnostics.EmitAllToString())
	}
	return res
}

// run executes an entry with its parameters bound in declaration order.
func run(t *testing.T, res Result, entry string, args ...int32) []int32 {
	t.Helper()
	m := machine.New(res.Program)
	m.Strict = false
	for _, e := range res.Program.Entries {
		if e.Name != entry {
			continue
		}
		if len(e.Params) != len(args) {
			t.Fatalf("Expected %d arguments for %s, got %d", len(e.Params), entry, len(args))
		}
		for i, cell := range e.Params {
			m.Set(res.Program.Objective, cell, args[i])
		}
	}
	if err := m.Run(entry); err != nil {
		t.Fatalf("Run %s failed: %v\n%s", entry, err, res.Listing)
	}
	return m.Printed()
}

var levels = []config.OptLevel{config.OptDebug, config.OptRelease}

func elseIfChain() *hir.If {
	x := IntVar("x")
	return Chain([]hir.IfArm{
		Arm(Bin(hir.OpEq, x, Int(3)), Do(Print(x), Set("x", Bin(hir.OpAdd, x, Int(1))))),
		Arm(Bin(hir.OpEq, x, Int(4)), Do(Print(x))),
		Arm(Bin(hir.OpEq, x, Int(5)), Do(Print(x))),
	}, nil)
}

func TestCompile_ElseIfDoesNotSeeEarlierArmWrites(t *testing.T) {
	param := Program(Entry("main", []hir.Param{P("x", types.TypeInt)}, nil, Do(elseIfChain())))
	local := Program(Entry("main", nil, nil, Do(Let("x", Int(3)), elseIfChain())))

	for _, level := range levels {
		res := compile(t, param, level)
		for _, x := range []int32{3, 4, 5} {
			if got := run(t, res, "main", x); !reflect.DeepEqual(got, []int32{x}) {
				t.Errorf("%s x=%d: expected prints [%d], got %v", level, x, x, got)
			}
		}
		if got := run(t, res, "main", 6); len(got) != 0 {
			t.Errorf("%s x=6: expected no prints, got %v", level, got)
		}

		res = compile(t, local, level)
		if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{3}) {
			t.Errorf("%s let x = 3: expected prints [3], got %v", level, got)
		}
	}
}

func TestCompile_ExactlyOneArmRuns(t *testing.T) {
	x := IntVar("x")
	prog := Program(Entry("main", []hir.Param{P("x", types.TypeInt)}, nil, Do(
		Chain([]hir.IfArm{
			Arm(Bin(hir.OpEq, x, Int(1)), Do(Print(Int(10)))),
			Arm(Bin(hir.OpLt, x, Int(3)), Do(Print(Int(20)))),
		}, Do(Print(Int(30)))),
	)))

	tests := []struct {
		x    int32
		want []int32
	}{
		{1, []int32{10}},
		{2, []int32{20}},
		{0, []int32{20}},
		{5, []int32{30}},
	}
	for _, level := range levels {
		res := compile(t, prog, level)
		for _, tt := range tests {
			if got := run(t, res, "main", tt.x); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s x=%d: expected %v, got %v", level, tt.x, tt.want, got)
			}
		}
	}
}

func TestCompile_LoopBreaksOnce(t *testing.T) {
	prog := Program(Entry("main", nil, nil, Do(
		Loop(types.TypeUnit, Print(Int(7)), Break(nil)),
		Print(Int(8)),
	)))

	res := compile(t, prog, config.OptDebug)
	if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{7, 8}) {
		t.Errorf("Expected prints [7 8], got %v", got)
	}
}

func TestCompile_LoopBreakValue(t *testing.T) {
	prog := Program(Entry("main", nil, nil, Do(
		Let("done", Bool(true)),
		Let("v", Loop(types.TypeInt, If(BoolVar("done"), Do(Break(Int(42)))))),
		Print(IntVar("v")),
	)))

	res := compile(t, prog, config.OptDebug)
	m := machine.New(res.Program)
	if err := m.Run("main"); err != nil {
		t.Fatalf("Run failed: %v\n%s", err, res.Listing)
	}
	if !reflect.DeepEqual(m.Printed(), []int32{42}) {
		t.Errorf("Expected prints [42], got %v", m.Printed())
	}
	if n := m.Calls()["main/d0/loop0/i0"]; n != 1 {
		t.Errorf("Expected the first iteration to run once, got %d\n%s", n, res.Listing)
	}
	if res.Program.Function("main/d0/loop0/i1") != nil {
		t.Errorf("Expected no second iteration unit")
	}
}

func TestCompile_CountedLoop(t *testing.T) {
	i := IntVar("i")
	prog := Program(Entry("main", nil, nil, Do(
		Let("i", Int(0)),
		Loop(types.TypeUnit,
			If(Bin(hir.OpEq, i, Int(3)), Do(Break(nil))),
			Print(i),
			Set("i", Bin(hir.OpAdd, i, Int(1))),
		),
	)))

	for _, level := range levels {
		res := compile(t, prog, level)
		if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{0, 1, 2}) {
			t.Errorf("%s: expected prints [0 1 2], got %v", level, got)
		}
	}
}

func TestCompile_RecursiveFramesAreIsolated(t *testing.T) {
	n := IntVar("n")
	f := Func("f", []hir.Param{P("n", types.TypeInt)}, types.TypeUnit, Do(
		Let("local", Bin(hir.OpMul, n, Int(10))),
		If(Bin(hir.OpGt, n, Int(0)), Do(Call("f", types.TypeUnit, Bin(hir.OpSub, n, Int(1))))),
		Print(IntVar("local")),
	))
	prog := Program(f, Entry("main", nil, nil, Do(Call("f", types.TypeUnit, Int(3)))))

	for _, level := range levels {
		res := compile(t, prog, level)
		if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{0, 10, 20, 30}) {
			t.Errorf("%s: expected prints [0 10 20 30], got %v", level, got)
		}
	}
}

func TestCompile_DepthCeiling(t *testing.T) {
	n := IntVar("n")
	down := Func("down", []hir.Param{P("n", types.TypeInt)}, types.TypeInt, Yield(
		IfElse(Bin(hir.OpLe, n, Int(0)),
			Yield(Int(0)),
			Yield(Call("down", types.TypeInt, Bin(hir.OpSub, n, Int(1))))),
	))
	prog := Program(down, Entry("main", nil, nil, Do(Print(Call("down", types.TypeInt, Int(10))))))

	cfg := testConfig(config.OptRelease)
	cfg.MaxDepth = 4
	res := Compile(&Options{Program: prog, Config: cfg, Quiet: true})
	if res.Success {
		t.Fatalf("Expected down(10) to exceed a depth of 4")
	}
	if res.Program != nil || res.Listing != "" {
		t.Errorf("Expected no output on failure")
	}
	errs := res.Diagnostics.Errors()
	if len(errs) != 1 || errs[0].Code != diagnostics.ErrRecursionBudgetExceeded {
		t.Errorf("Expected a single R0001, got:\n%s", res.Diagnostics.EmitAllToString())
	}

	cfg = testConfig(config.OptRelease)
	res = Compile(&Options{Program: prog, Config: cfg, Quiet: true})
	if !res.Success {
		t.Fatalf("Expected down(10) to fit the default depth, got:\n%s", res.Diagnostics.EmitAllToString())
	}
	if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{0}) {
		t.Errorf("Expected prints [0], got %v", got)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	x := IntVar("x")
	helper := Func("helper", []hir.Param{P("a", types.TypeInt)}, types.TypeInt, Yield(Bin(hir.OpMul, IntVar("a"), Int(2))))
	prog := Program(helper,
		Entry("main", []hir.Param{P("x", types.TypeInt)}, nil, Do(
			If(Bin(hir.OpGt, x, Int(0)), Do(Print(Call("helper", types.TypeInt, x)))),
			Print(Call("helper", types.TypeInt, Int(5))),
		)),
		Entry("other", nil, nil, Do(Print(Call("helper", types.TypeInt, Int(1))))),
	)

	first := compile(t, prog, config.OptRelease).Listing
	for i := 0; i < 5; i++ {
		if next := compile(t, prog, config.OptRelease).Listing; next != first {
			t.Fatalf("Expected identical listings, got:\n%s\n---\n%s", first, next)
		}
	}
	if !strings.HasPrefix(first, "@") {
		t.Errorf("Expected the listing to start with a function header, got %q", first)
	}
}

func TestCompile_LevelsAgree(t *testing.T) {
	x := IntVar("x")
	prog := Program(Entry("main", []hir.Param{P("x", types.TypeInt)}, nil, Do(
		Let("y", Bin(hir.OpAdd, Int(2), Int(3))),
		Set("y", Bin(hir.OpMul, IntVar("y"), x)),
		IfElse(Bin(hir.OpNe, IntVar("y"), Int(0)), Do(Print(IntVar("y"))), Do(Print(Neg(Int(1))))),
		Print(Bin(hir.OpMod, IntVar("y"), Int(7))),
	)))

	debug := compile(t, prog, config.OptDebug)
	release := compile(t, prog, config.OptRelease)
	for _, arg := range []int32{0, 1, -4, 9} {
		a, b := run(t, debug, "main", arg), run(t, release, "main", arg)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("x=%d: debug printed %v, release printed %v", arg, a, b)
		}
	}
}

func TestCompile_FromFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tree.json")
	output := filepath.Join(dir, "out.mcfunction")
	tree := `{"file": "main.bell", "functions": [{"name": "main", "entry": true, "body": {"kind": "block", "exprs": [
		{"kind": "print", "value": {"kind": "lit", "value": 4}}
	]}}]}`
	if err := os.WriteFile(input, []byte(tree), 0644); err != nil {
		t.Fatal(err)
	}

	res := Compile(&Options{InputFile: input, OutputFile: output, Config: testConfig(config.OptRelease), Quiet: true})
	if !res.Success {
		t.Fatalf("Expected successful compilation, got:\n%s", res.Diagnostics.EmitAllToString())
	}
	written, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Expected the listing on disk, got %v", err)
	}
	if string(written) != res.Listing {
		t.Errorf("Expected the written listing to match the result")
	}
	if got := run(t, res, "main"); !reflect.DeepEqual(got, []int32{4}) {
		t.Errorf("Expected prints [4], got %v", got)
	}
}

func TestCompile_InputFailures(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
	}{
		{"missing file", &Options{InputFile: filepath.Join(t.TempDir(), "nope.json")}},
		{"malformed tree", &Options{Tree: []byte(`{"functions": [`)}},
		{"unknown node", &Options{Tree: []byte(`{"functions": [{"name": "main", "entry": true, "body": {"kind": "goto"}}]}`)}},
	}
	for _, tt := range tests {
		tt.opts.Quiet = true
		tt.opts.Config = testConfig(config.OptRelease)
		res := Compile(tt.opts)
		if res.Success {
			t.Errorf("%s: expected failure", tt.name)
			continue
		}
		errs := res.Diagnostics.Errors()
		if len(errs) != 1 || errs[0].Code != diagnostics.ErrInputFailure {
			t.Errorf("%s: expected one F0001, got:\n%s", tt.name, res.Diagnostics.EmitAllToString())
		}
	}
}

func TestCompile_HTMLDiagnostics(t *testing.T) {
	res := Compile(&Options{Tree: []byte(`{`), LogFormat: HTML, Config: testConfig(config.OptRelease)})
	if res.Success {
		t.Fatalf("Expected failure")
	}
	if !strings.Contains(res.Output, "[F0001]") || strings.Contains(res.Output, "\x1b[") {
		t.Errorf("Expected escape-free HTML diagnostics, got %q", res.Output)
	}
}

func TestCompile_Structs(t *testing.T) {
	pos := types.NewStruct("Pos", []types.StructField{{Name: "x", Type: types.TypeInt}, {Name: "y", Type: types.TypeInt}})
	ent := types.NewStruct("Ent", []types.StructField{{Name: "id", Type: types.TypeInt}, {Name: "p", Type: pos}})

	p := Var("p", pos)
	swap := Func("swap", []hir.Param{P("p", pos)}, pos, Yield(
		Struct(pos, Init("x", Field(p, "y")), Init("y", Field(p, "x"))),
	))

	e := Var("e", ent)
	q := Var("q", pos)
	ex := Field(Field(e, "p"), "x")
	prog := Program(swap, Entry("main", []hir.Param{P("a", types.TypeInt)}, nil, Do(
		Let("e", Struct(ent,
			Init("id", Int(7)),
			Init("p", Struct(pos, Init("x", IntVar("a")), Init("y", Int(2)))),
		)),
		SetField(ex, Bin(hir.OpAdd, ex, Int(10))),
		Let("q", Call("swap", pos, Field(e, "p"))),
		Print(Field(q, "x")),
		Print(Field(q, "y")),
		Print(Field(e, "id")),
		Print(Field(Call("swap", pos, q), "x")),
	)))
	prog.Structs = []*types.StructType{pos, ent}

	for _, level := range levels {
		res := compile(t, prog, level)
		if got := run(t, res, "main", 1); !reflect.DeepEqual(got, []int32{2, 11, 7, 11}) {
			t.Errorf("%s: expected prints [2 11 7 11], got %v", level, got)
		}
		if got := run(t, res, "main", -5); !reflect.DeepEqual(got, []int32{2, 5, 7, 5}) {
			t.Errorf("%s: expected prints [2 5 7 5], got %v", level, got)
		}
	}

	// Field cells are named by path, one per leaf.
	listing := compile(t, prog, config.OptDebug).Listing
	for _, cell := range []string{".e.id ", ".e.p.x ", ".e.p.y "} {
		if !strings.Contains(listing, cell) {
			t.Errorf("Expected a cell ending in %q in:\n%s", cell, listing)
		}
	}
}
