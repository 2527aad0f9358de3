package mir

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"bell/internal/slots"
)

// FormatProgram returns a readable text representation of the MIR program.
func FormatProgram(prog *Program) string {
	if prog == nil {
		return ""
	}

	var b strings.Builder
	for _, entry := range prog.Entries {
		fmt.Fprintf(&b, "entry %s -> %s(", entry.Name, entry.Unit)
		for i, param := range entry.Params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatSlots(param.Leaves()))
		}
		b.WriteString(")\n")
	}

	for _, fn := range prog.Functions {
		b.WriteString("\n")
		writeFunction(&b, fn)
	}

	return b.String()
}

// WriteProgramFile writes the formatted MIR program to disk.
func WriteProgramFile(prog *Program, path string) error {
	if prog == nil || path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(FormatProgram(prog)), 0644)
}

// FormatFunction renders a single unit.
func FormatFunction(fn *Function) string {
	var b strings.Builder
	writeFunction(&b, fn)
	return b.String()
}

func writeFunction(b *strings.Builder, fn *Function) {
	if fn == nil {
		return
	}

	fmt.Fprintf(b, "%s %s (from %s, depth %d) {\n", fn.Kind, fn.Name, fn.Source, fn.Depth)
	if len(fn.Assume) > 0 {
		keys := make([]string, 0, len(fn.Assume))
		for slot, v := range fn.Assume {
			keys = append(keys, fmt.Sprintf("%s=%d", slot, v))
		}
		sort.Strings(keys)
		fmt.Fprintf(b, "  assume %s\n", strings.Join(keys, ", "))
	}

	for _, block := range fn.Blocks {
		writeBlock(b, block, block.ID == fn.Entry)
	}

	b.WriteString("}\n")
}

func writeBlock(b *strings.Builder, block *Block, entry bool) {
	if block == nil {
		return
	}

	marker := ""
	if entry {
		marker = " (entry)"
	}
	if block.Name != "" {
		fmt.Fprintf(b, "  block b%d %s%s:\n", block.ID, block.Name, marker)
	} else {
		fmt.Fprintf(b, "  block b%d%s:\n", block.ID, marker)
	}

	for _, instr := range block.Instrs {
		fmt.Fprintf(b, "    %s\n", FormatInstr(instr))
	}

	if block.Term != nil {
		fmt.Fprintf(b, "    %s\n", FormatTerm(block.Term))
	} else {
		b.WriteString("    term <nil>\n")
	}
}

// FormatInstr renders one instruction.
func FormatInstr(instr Instr) string {
	switch i := instr.(type) {
	case *Const:
		return fmt.Sprintf("%s = const %d", i.Dst, i.Value)
	case *Copy:
		return fmt.Sprintf("%s = copy %s", i.Dst, i.Src)
	case *Binary:
		return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.Left, i.Right)
	case *Compare:
		return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.Left, i.Right)
	case *Not:
		return fmt.Sprintf("%s = not %s", i.Dst, i.Src)
	case *Adjust:
		return fmt.Sprintf("%s += %d", i.Dst, i.Delta)
	case *Invoke:
		if i.Loop {
			return fmt.Sprintf("invoke loop %s", i.Target)
		}
		return fmt.Sprintf("invoke %s", i.Target)
	case *Print:
		return fmt.Sprintf("print %s", i.Src)
	case *Raw:
		return fmt.Sprintf("raw %q", i.Text)
	default:
		return fmt.Sprintf("<unknown instr %T>", instr)
	}
}

// FormatTerm renders one terminator.
func FormatTerm(term Term) string {
	switch t := term.(type) {
	case *Return:
		return "return"
	case *Br:
		return fmt.Sprintf("br %s", formatBlock(t.Target))
	case *CondBr:
		return fmt.Sprintf("condbr %s, %s, %s join %s", t.Cond, formatBlock(t.Then), formatBlock(t.Else), formatBlock(t.Join))
	default:
		return fmt.Sprintf("<unknown term %T>", term)
	}
}

func formatBlock(id BlockID) string {
	if id == InvalidBlock {
		return "<invalid>"
	}
	return fmt.Sprintf("b%d", id)
}

func formatSlots(list []*slots.Slot) string {
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.String()
	}
	return strings.Join(names, " ")
}
