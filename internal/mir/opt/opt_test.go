package opt

import (
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

func (f *fixture) unit(name string) *mir.Function {
	return &mir.Function{Name: name, Frames: []*slots.Frame{f.frame}, Assume: map[*slots.Slot]int32{}}
}

func release() *config.Config {
	cfg := config.Default()
	cfg.Workers = 2
	return cfg
}

func TestFoldUsesAssumptions(t *testing.T) {
	f := newFixture()
	x := f.slot("x", slots.Param)
	sum := f.slot("$t0", slots.Temp)

	fn := f.unit("main/d0_3")
	fn.Assume[x] = 3
	entry := fn.NewBlock("entry", source.Location{})
	fn.Entry = entry.ID
	entry.Instrs = []mir.Instr{
		&mir.Binary{Dst: sum, Op: mir.BinAdd, Left: x, Right: x},
		&mir.Print{Src: sum},
	}
	entry.Term = &mir.Return{}

	if n := foldConstants(fn); n != 1 {
		t.Errorf("Expected 1 rewrite, got %d", n)
	}
	c, ok := entry.Instrs[0].(*mir.Const)
	if !ok || c.Value != 6 {
		t.Errorf("Expected const 6, got %s", mir.FormatInstr(entry.Instrs[0]))
	}
}

func TestFoldDecidesBranches(t *testing.T) {
	f := newFixture()
	c := f.slot("$t0", slots.Temp)
	x := f.slot("x", slots.Local)

	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	then := fn.NewBlock("if.then", source.Location{})
	els := fn.NewBlock("if.else", source.Location{})
	join := fn.NewBlock("if.end", source.Location{})
	fn.Entry = entry.ID

	entry.Instrs = []mir.Instr{&mir.Const{Dst: c, Value: 0}}
	entry.Term = &mir.CondBr{Cond: c, Then: then.ID, Else: els.ID, Join: join.ID}
	then.Instrs = []mir.Instr{&mir.Const{Dst: x, Value: 1}}
	then.Term = &mir.Br{Target: join.ID}
	els.Instrs = []mir.Instr{&mir.Const{Dst: x, Value: 2}}
	els.Term = &mir.Br{Target: join.ID}
	join.Instrs = []mir.Instr{&mir.Print{Src: x}}
	join.Term = &mir.Return{}

	foldConstants(fn)
	br, ok := entry.Term.(*mir.Br)
	if !ok || br.Target != els.ID {
		t.Fatalf("Expected br to the else arm, got %s", mir.FormatTerm(entry.Term))
	}

	simplifyCFG(fn)
	if fn.Block(then.ID) != nil {
		t.Errorf("Expected the dead arm to be removed")
	}
	if len(fn.Blocks) != 1 {
		t.Errorf("Expected the chain to merge into one block, got:\n%s", mir.FormatFunction(fn))
	}
	if err := mir.Verify(&mir.Program{Functions: []*mir.Function{fn}}); err != nil {
		t.Errorf("Expected well-formed MIR, got %v", err)
	}
}

func TestFoldMeetsAtJoins(t *testing.T) {
	f := newFixture()
	c := f.slot("c", slots.Param)
	x := f.slot("x", slots.Local)
	y := f.slot("y", slots.Local)
	t0 := f.slot("$t0", slots.Temp)

	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	then := fn.NewBlock("if.then", source.Location{})
	join := fn.NewBlock("if.end", source.Location{})
	fn.Entry = entry.ID

	entry.Instrs = []mir.Instr{&mir.Const{Dst: x, Value: 1}, &mir.Const{Dst: y, Value: 5}}
	entry.Term = &mir.CondBr{Cond: c, Then: then.ID, Else: join.ID, Join: join.ID}
	then.Instrs = []mir.Instr{&mir.Const{Dst: x, Value: 2}}
	then.Term = &mir.Br{Target: join.ID}
	join.Instrs = []mir.Instr{
		&mir.Copy{Dst: t0, Src: x},
		&mir.Copy{Dst: t0, Src: y},
	}
	join.Term = &mir.Return{}

	foldConstants(fn)
	if _, ok := join.Instrs[0].(*mir.Copy); !ok {
		t.Errorf("Expected x to be unknown after the join, got %s", mir.FormatInstr(join.Instrs[0]))
	}
	if c, ok := join.Instrs[1].(*mir.Const); !ok || c.Value != 5 {
		t.Errorf("Expected y to fold to 5, got %s", mir.FormatInstr(join.Instrs[1]))
	}
}

func TestFoldForgetsAcrossInvokes(t *testing.T) {
	f := newFixture()
	own := f.slot("x", slots.Local)
	other, _ := f.alloc.Frame("helper", 0, -1)
	ret := f.alloc.Slot(other, "$ret", slots.Result)
	a := f.slot("$t0", slots.Temp)
	b := f.slot("$t1", slots.Temp)

	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	fn.Entry = entry.ID
	entry.Instrs = []mir.Instr{
		&mir.Const{Dst: own, Value: 1},
		&mir.Const{Dst: ret, Value: 9},
		&mir.Invoke{Target: "helper/d0"},
		&mir.Copy{Dst: a, Src: own},
		&mir.Copy{Dst: b, Src: ret},
		&mir.Raw{Text: "say hi"},
		&mir.Copy{Dst: a, Src: own},
	}
	entry.Term = &mir.Return{}

	foldConstants(fn)
	if _, ok := entry.Instrs[3].(*mir.Const); !ok {
		t.Errorf("Expected the unit's own cell to survive the call, got %s", mir.FormatInstr(entry.Instrs[3]))
	}
	if _, ok := entry.Instrs[4].(*mir.Copy); !ok {
		t.Errorf("Expected the callee cell to be forgotten, got %s", mir.FormatInstr(entry.Instrs[4]))
	}
	if _, ok := entry.Instrs[6].(*mir.Copy); !ok {
		t.Errorf("Expected a raw command to clear every fact, got %s", mir.FormatInstr(entry.Instrs[6]))
	}
}

func TestDeadStoreElimination(t *testing.T) {
	f := newFixture()
	dead := f.slot("$t0", slots.Temp)
	live := f.slot("$t1", slots.Temp)
	result := f.slot("$ret", slots.Result)
	named := f.slot("$t2", slots.Temp)
	counter := f.alloc.Counter("main")

	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	fn.Entry = entry.ID
	entry.Instrs = []mir.Instr{
		&mir.Const{Dst: dead, Value: 1},
		&mir.Copy{Dst: dead, Src: live},
		&mir.Const{Dst: live, Value: 2},
		&mir.Print{Src: live},
		&mir.Const{Dst: result, Value: 3},
		&mir.Const{Dst: named, Value: 4},
		&mir.Raw{Text: "scoreboard players get #main@0.$t2 bell"},
		&mir.Adjust{Dst: counter, Delta: 1},
	}
	entry.Term = &mir.Return{}

	prog := &mir.Program{
		Functions: []*mir.Function{fn},
		Entries:   []mir.Entry{{Name: "main", Unit: "main/d0", Result: slots.ScalarPlace(result, nil)}},
	}
	if n := eliminateDeadStores(prog); n != 2 {
		t.Errorf("Expected 2 removed stores, got %d:\n%s", n, mir.FormatFunction(fn))
	}
	for _, instr := range entry.Instrs {
		if mir.Writes(instr) == dead {
			t.Errorf("Expected writes to %s to be removed, got %s", dead, mir.FormatInstr(instr))
		}
	}
	if len(entry.Instrs) != 6 {
		t.Errorf("Expected 6 instructions left, got %d", len(entry.Instrs))
	}
}

func TestCollapseEmptyArms(t *testing.T) {
	f := newFixture()
	c := f.slot("c", slots.Param)

	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	then := fn.NewBlock("if.then", source.Location{})
	join := fn.NewBlock("if.end", source.Location{})
	fn.Entry = entry.ID
	entry.Term = &mir.CondBr{Cond: c, Then: then.ID, Else: join.ID, Join: join.ID}
	then.Term = &mir.Br{Target: join.ID}
	join.Term = &mir.Return{}

	simplifyCFG(fn)
	if len(fn.Blocks) != 1 {
		t.Errorf("Expected a single block, got:\n%s", mir.FormatFunction(fn))
	}
	if _, ok := fn.Blocks[0].Term.(*mir.Return); !ok {
		t.Errorf("Expected return, got %s", mir.FormatTerm(fn.Blocks[0].Term))
	}
}

func TestOptimizeDebugLevelIsNoop(t *testing.T) {
	f := newFixture()
	dead := f.slot("$t0", slots.Temp)
	fn := f.unit("main/d0")
	entry := fn.NewBlock("entry", source.Location{})
	fn.Entry = entry.ID
	entry.Instrs = []mir.Instr{&mir.Const{Dst: dead, Value: 1}}
	entry.Term = &mir.Return{}

	cfg := release()
	cfg.OptLevel = config.OptDebug
	stats := Optimize(&mir.Program{Functions: []*mir.Function{fn}}, cfg)
	if stats != (Stats{}) || len(entry.Instrs) != 1 {
		t.Errorf("Expected no changes at the debug level, got %+v", stats)
	}

	stats = Optimize(&mir.Program{Functions: []*mir.Function{fn}}, release())
	if stats.DeadStores != 1 || len(entry.Instrs) != 0 {
		t.Errorf("Expected the dead store to go at the release level, got %+v", stats)
	}
}
