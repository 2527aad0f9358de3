package lir

import (
	"strings"
	"testing"

	"bell/internal/config"
	"bell/internal/mir"
	"bell/internal/slots"
	"bell/internal/source"
)

type fixture struct {
	alloc *slots.Allocator
	frame *slots.Frame
}

func newFixture() *fixture {
	alloc := slots.NewAllocator()
	frame, _ := alloc.Frame("main", 0, -1)
	return &fixture{alloc: alloc, frame: frame}
}

func (f *fixture) slot(path string, kind slots.Kind) *slots.Slot {
	return f.alloc.Slot(f.frame, path, kind)
}

func (f *fixture) build(t *testing.T, cfg *config.Config, fns ...*mir.Function) *Program {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	prog, err := Build(&mir.Program{Functions: fns}, f.alloc, cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	return prog
}

// diamond is `r = if x == y { 1 } else { 2 }; print r`.
func (f *fixture) diamond(thenInstrs ...mir.Instr) (*mir.Function, *mir.Block) {
	x := f.slot("x", slots.Param)
	y := f.slot("y", slots.Param)
	c := f.slot("$t0", slots.Temp)
	r := f.slot("r", slots.Local)

	fn := &mir.Function{Name: "main/d0", Source: "main"}
	entry := fn.NewBlock("entry", source.Location{})
	then := fn.NewBlock("if.then", source.Location{})
	els := fn.NewBlock("if.else", source.Location{})
	join := fn.NewBlock("if.end", source.Location{})
	fn.Entry = entry.ID

	entry.Instrs = []mir.Instr{&mir.Compare{Dst: c, Op: mir.CmpEq, Left: x, Right: y}}
	entry.Term = &mir.CondBr{Cond: c, Then: then.ID, Else: els.ID, Join: join.ID}
	if len(thenInstrs) == 0 {
		thenInstrs = []mir.Instr{&mir.Const{Dst: r, Value: 1}}
	}
	then.Instrs = thenInstrs
	then.Term = &mir.Br{Target: join.ID}
	els.Instrs = []mir.Instr{&mir.Const{Dst: r, Value: 2}}
	els.Term = &mir.Br{Target: join.ID}
	join.Instrs = []mir.Instr{&mir.Print{Src: r}}
	join.Term = &mir.Return{}
	return fn, then
}

func TestBuildGuardsShortArms(t *testing.T) {
	f := newFixture()
	fn, _ := f.diamond()
	prog := f.build(t, nil, fn)

	if len(prog.Functions) != 1 {
		t.Fatalf("Expected one function, got:\n%s", FormatProgram(prog))
	}
	got := FormatFunction(prog.Functions[0])
	want := strings.Join([]string{
		"fn main/d0 {",
		"  #main@0.$t0 := #main@0.x eq #main@0.y",
		"  [#main@0.$t0 == 1] #main@0.r := 1",
		"  [#main@0.$t0 == 0] #main@0.r := 2",
		"  print #main@0.r",
		"}",
		"",
	}, "\n")
	if got != want {
		t.Errorf("Expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestBuildOutlinesArmsThatWriteTheCondition(t *testing.T) {
	f := newFixture()
	c := f.slot("$t0", slots.Temp)
	fn, then := f.diamond(&mir.Const{Dst: c, Value: 0})
	prog := f.build(t, nil, fn)

	sub := prog.Function("main/d0/b2")
	if sub == nil || then.ID != 2 {
		t.Fatalf("Expected the then arm in its own function, got:\n%s", FormatProgram(prog))
	}
	call := prog.Function("main/d0").Commands[1]
	inv, ok := call.Op.(*Invoke)
	if !ok || inv.Target != sub.Name || call.Guard == nil || call.Guard.Value != 1 {
		t.Errorf("Expected a guarded invoke of %s, got %s", sub.Name, FormatCommand(call))
	}
}

func TestBuildOutlinesLongArms(t *testing.T) {
	f := newFixture()
	r := f.slot("r", slots.Local)
	fn, _ := f.diamond(&mir.Const{Dst: r, Value: 1}, &mir.Print{Src: r})

	cfg := config.Default()
	cfg.InlineLimit = 1
	prog := f.build(t, cfg, fn)
	if prog.Function("main/d0/b2") == nil {
		t.Errorf("Expected an outlined arm, got:\n%s", FormatProgram(prog))
	}
	if prog.Function("main/d0/b3") != nil {
		t.Errorf("Expected the one-command arm to stay inline")
	}
}

func TestBuildSkipsArmsEqualToTheJoin(t *testing.T) {
	f := newFixture()
	flag := f.slot("$returned", slots.Flag)
	x := f.slot("x", slots.Local)

	fn := &mir.Function{Name: "main/d0"}
	entry := fn.NewBlock("entry", source.Location{})
	rest := fn.NewBlock("rest", source.Location{})
	exit := fn.NewBlock("exit", source.Location{})
	fn.Entry = entry.ID
	entry.Term = &mir.CondBr{Cond: flag, Then: exit.ID, Else: rest.ID, Join: exit.ID}
	rest.Instrs = []mir.Instr{&mir.Print{Src: x}}
	rest.Term = &mir.Br{Target: exit.ID}
	exit.Term = &mir.Return{}

	prog := f.build(t, nil, fn)
	cmds := prog.Functions[0].Commands
	if len(cmds) != 1 || cmds[0].Guard == nil || cmds[0].Guard.Value != 0 {
		t.Errorf("Expected only the guarded rest, got:\n%s", FormatProgram(prog))
	}
}

func TestLowerBinary(t *testing.T) {
	f := newFixture()
	a := f.slot("a", slots.Local)
	b := f.slot("b", slots.Local)
	d := f.slot("d", slots.Local)
	l := &lowerer{scratch: f.alloc.Scratch()}

	tests := []struct {
		name  string
		instr *mir.Binary
		want  []string
	}{
		{"in place", &mir.Binary{Dst: a, Op: mir.BinSub, Left: a, Right: b},
			[]string{"#main@0.a -= #main@0.b"}},
		{"commutative on the right", &mir.Binary{Dst: b, Op: mir.BinAdd, Left: a, Right: b},
			[]string{"#main@0.b += #main@0.a"}},
		{"ordered on the right", &mir.Binary{Dst: b, Op: mir.BinDiv, Left: a, Right: b},
			[]string{"#_@0.$scratch = #main@0.a", "#_@0.$scratch /= #main@0.b", "#main@0.b = #_@0.$scratch"}},
		{"fresh destination", &mir.Binary{Dst: d, Op: mir.BinMin, Left: a, Right: b},
			[]string{"#main@0.d = #main@0.a", "#main@0.d < #main@0.b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := l.lowerBinary(tt.instr)
			if len(cmds) != len(tt.want) {
				t.Fatalf("Expected %d commands, got %d", len(tt.want), len(cmds))
			}
			for i, c := range cmds {
				if got := FormatCommand(c); got != tt.want[i] {
					t.Errorf("Expected %q, got %q", tt.want[i], got)
				}
			}
		})
	}
}

func TestBuildEntryUnit(t *testing.T) {
	f := newFixture()
	x := f.slot("x", slots.Param)
	ret := f.slot("$ret", slots.Result)

	wrapper := &mir.Function{Name: "main", Kind: mir.UnitEntry}
	b := wrapper.NewBlock("entry", source.Location{})
	wrapper.Entry = b.ID
	b.Instrs = []mir.Instr{&mir.Invoke{Target: "main/d0"}}
	b.Term = &mir.Return{}

	body := &mir.Function{Name: "main/d0"}
	bb := body.NewBlock("entry", source.Location{})
	body.Entry = bb.ID
	bb.Instrs = []mir.Instr{&mir.Copy{Dst: ret, Src: x}}
	bb.Term = &mir.Return{}

	mprog := &mir.Program{
		Functions: []*mir.Function{wrapper, body},
		Entries: []mir.Entry{{
			Name:   "main",
			Unit:   "main/d0",
			Params: []slots.Place{slots.ScalarPlace(x, nil)},
			Result: slots.ScalarPlace(ret, nil),
		}},
	}
	prog, err := Build(mprog, f.alloc, config.Default())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	main := prog.Function("main")
	if main == nil || !main.Entry {
		t.Fatalf("Expected an entry function, got:\n%s", FormatProgram(prog))
	}
	if _, ok := main.Commands[0].Op.(*Init); !ok {
		t.Errorf("Expected the entry to start with init, got %s", FormatCommand(main.Commands[0]))
	}
	if prog.Functions[0].Name != "main" || prog.Functions[1].Name != "main/d0" {
		t.Errorf("Expected functions sorted by name")
	}
	if len(prog.Entries) != 1 || len(prog.Entries[0].Params) != 1 || prog.Entries[0].Params[0] != x {
		t.Errorf("Expected the entry parameter cells, got %+v", prog.Entries)
	}
}
