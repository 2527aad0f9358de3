package mir

import (
	"strings"
	"testing"

	"bell/internal/slots"
)

func TestFormatInstr(t *testing.T) {
	alloc := slots.NewAllocator()
	frame, _ := alloc.Frame("fact", 1, -1)
	n := alloc.Slot(frame, "n", slots.Param)
	r := alloc.Slot(frame, "$ret", slots.Result)

	tests := []struct {
		instr Instr
		want  string
	}{
		{&Const{Dst: n, Value: 3}, "#fact@1.n = const 3"},
		{&Copy{Dst: r, Src: n}, "#fact@1.$ret = copy #fact@1.n"},
		{&Binary{Dst: r, Op: BinMul, Left: r, Right: n}, "#fact@1.$ret = mul #fact@1.$ret, #fact@1.n"},
		{&Compare{Dst: r, Op: CmpLe, Left: n, Right: n}, "#fact@1.$ret = le #fact@1.n, #fact@1.n"},
		{&Adjust{Dst: n, Delta: -1}, "#fact@1.n += -1"},
		{&Invoke{Target: "fact/d2"}, "invoke fact/d2"},
		{&Invoke{Target: "main/d0/loop0/i1", Loop: true}, "invoke loop main/d0/loop0/i1"},
		{&Raw{Text: "say hi"}, `raw "say hi"`},
	}

	for _, tt := range tests {
		if got := FormatInstr(tt.instr); got != tt.want {
			t.Errorf("FormatInstr() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormatProgram(t *testing.T) {
	alloc := slots.NewAllocator()
	fn := diamond(alloc)
	frame, _ := alloc.Frame("main", 0, -1)
	prog := &Program{
		Functions: []*Function{fn},
		Entries: []Entry{{
			Name:   "main",
			Unit:   "main/d0",
			Params: []slots.Place{slots.ScalarPlace(alloc.Slot(frame, "x", slots.Param), nil)},
		}},
	}

	out := FormatProgram(prog)
	for _, want := range []string{
		"entry main -> main/d0(#main@0.x)",
		"fn main/d0 (from , depth 0) {",
		"block b1 entry (entry):",
		"condbr #main@0.$t0, b2, b3 join b3",
		"print #main@0.x",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}
