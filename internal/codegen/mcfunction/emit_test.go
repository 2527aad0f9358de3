package mcfunction

import (
	"errors"
	"strings"
	"testing"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/lir"
	"bell/internal/mir"
	"bell/internal/slots"
)

func cells() (a, b, c *slots.Slot) {
	alloc := slots.NewAllocator()
	frame, _ := alloc.Frame("main", 0, -1)
	return alloc.Slot(frame, "a", slots.Local), alloc.Slot(frame, "b", slots.Local), alloc.Slot(frame, "$t0", slots.Temp)
}

func TestCommandText(t *testing.T) {
	a, b, c := cells()
	e := &emitter{ns: "bell", obj: "bell", names: map[string]string{"fib/d0": "fib/d0"}}

	tests := []struct {
		cmd  lir.Command
		want string
	}{
		{lir.Command{Op: &lir.Set{Dst: a, Value: -5}}, "scoreboard players set #main@0.a bell -5"},
		{lir.Command{Op: &lir.Operation{Kind: lir.OpMod, Dst: a, Src: b}}, "scoreboard players operation #main@0.a bell %= #main@0.b bell"},
		{lir.Command{Op: &lir.Operation{Kind: lir.OpMin, Dst: a, Src: b}}, "scoreboard players operation #main@0.a bell < #main@0.b bell"},
		{lir.Command{Op: &lir.Adjust{Dst: a, Delta: 1}}, "scoreboard players add #main@0.a bell 1"},
		{lir.Command{Op: &lir.Adjust{Dst: a, Delta: -1}}, "scoreboard players remove #main@0.a bell 1"},
		{lir.Command{Op: &lir.StoreCompare{Dst: c, Op: mir.CmpLe, Left: a, Right: b}},
			"execute store result score #main@0.$t0 bell if score #main@0.a bell <= #main@0.b bell"},
		{lir.Command{Op: &lir.StoreCompare{Dst: c, Op: mir.CmpNe, Left: a, Right: b}},
			"execute store result score #main@0.$t0 bell unless score #main@0.a bell = #main@0.b bell"},
		{lir.Command{Op: &lir.StoreNot{Dst: c, Src: a}}, "execute store result score #main@0.$t0 bell if score #main@0.a bell matches 0"},
		{lir.Command{Op: &lir.Invoke{Target: "fib/d0"}}, "function bell:fib/d0"},
		{lir.Command{Op: &lir.Print{Src: a}}, `tellraw @a {"score":{"name":"#main@0.a","objective":"bell"}}`},
		{lir.Command{Op: &lir.Raw{Text: "say hi"}}, "say hi"},
		{lir.Command{Op: &lir.Raw{Text: "/say  hi "}}, "/say  hi "},
		{lir.Command{Op: &lir.Init{}}, "scoreboard objectives add bell dummy"},
		{lir.Command{Guard: &lir.Guard{Slot: c, Value: 0}, Op: &lir.Invoke{Target: "fib/d0"}},
			"execute if score #main@0.$t0 bell matches 0 run function bell:fib/d0"},
	}
	for _, tt := range tests {
		if got := e.command(tt.cmd); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestEmitListing(t *testing.T) {
	a, _, _ := cells()
	prog := &lir.Program{
		Functions: []*lir.Function{
			{Name: "main", Entry: true, Commands: []lir.Command{
				{Op: &lir.Init{}},
				{Op: &lir.Invoke{Target: "main/d0"}},
			}},
			{Name: "main/d0", Commands: []lir.Command{
				{Op: &lir.Set{Dst: a, Value: 3}},
				{Op: &lir.Print{Src: a}},
			}},
		},
		Entries: []lir.Entry{{Name: "main"}},
	}
	cfg := config.Default()
	cfg.Namespace = "demo"
	out, err := Emit(prog, cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := strings.Join([]string{
		"@main.mcfunction",
		"scoreboard objectives add bell dummy",
		"function demo:main/d0",
		"",
		"@main/d0.mcfunction",
		"scoreboard players set #main@0.a bell 3",
		`tellraw @a {"score":{"name":"#main@0.a","objective":"bell"}}`,
		"",
	}, "\n")
	if got := out.String(); got != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, got)
	}
	if len(out.Entries) != 1 || out.Entries[0].Function != "demo:main" {
		t.Errorf("Expected entry demo:main, got %+v", out.Entries)
	}
	if out.Function("main/d0") == nil {
		t.Errorf("Expected lookup by name to work")
	}
}

func TestEmitRejectsInconsistentPrograms(t *testing.T) {
	a, b, _ := cells()
	tests := []struct {
		name string
		prog *lir.Program
	}{
		{"unwritten read", &lir.Program{Functions: []*lir.Function{
			{Name: "main", Entry: true, Commands: []lir.Command{{Op: &lir.Print{Src: a}}}},
		}}},
		{"missing callee", &lir.Program{Functions: []*lir.Function{
			{Name: "main", Entry: true, Commands: []lir.Command{{Op: &lir.Invoke{Target: "gone"}}}},
		}}},
		{"colliding names", &lir.Program{Functions: []*lir.Function{
			{Name: "Main", Entry: true},
			{Name: "main", Entry: true},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Emit(tt.prog, nil)
			var diag *diagnostics.Diagnostic
			if !errors.As(err, &diag) || diag.Code != diagnostics.ErrInternalConsistency {
				t.Errorf("Expected an internal consistency error, got %v", err)
			}
		})
	}

	ok := &lir.Program{
		Functions: []*lir.Function{{Name: "main", Entry: true, Commands: []lir.Command{
			{Op: &lir.Operation{Kind: lir.OpAssign, Dst: b, Src: a}},
		}}},
		Entries: []lir.Entry{{Name: "main", Params: []*slots.Slot{a}}},
	}
	if _, err := Emit(ok, nil); err != nil {
		t.Errorf("Expected entry parameters to count as written, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("Fact/d0_n3"); got != "fact/d0_n3" {
		t.Errorf("Expected fact/d0_n3, got %s", got)
	}
	if got := Sanitize("a b+c"); got != "a_b_c" {
		t.Errorf("Expected a_b_c, got %s", got)
	}
}
