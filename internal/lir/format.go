package lir

import (
	"fmt"
	"os"
	"strings"
)

// FormatProgram renders every function for the debug dump.
func FormatProgram(prog *Program) string {
	var b strings.Builder
	for i, fn := range prog.Functions {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(FormatFunction(fn))
	}
	return b.String()
}

// WriteProgramFile writes the debug dump next to the output.
func WriteProgramFile(prog *Program, path string) error {
	return os.WriteFile(path, []byte(FormatProgram(prog)), 0o644)
}

func FormatFunction(fn *Function) string {
	var b strings.Builder
	kind := "fn"
	if fn.Entry {
		kind = "entry"
	}
	fmt.Fprintf(&b, "%s %s {\n", kind, fn.Name)
	for _, c := range fn.Commands {
		fmt.Fprintf(&b, "  %s\n", FormatCommand(c))
	}
	b.WriteString("}\n")
	return b.String()
}

func FormatCommand(c Command) string {
	body := formatOp(c.Op)
	if c.Guard != nil {
		return fmt.Sprintf("[%s == %d] %s", c.Guard.Slot, c.Guard.Value, body)
	}
	return body
}

func formatOp(op Op) string {
	switch o := op.(type) {
	case *Set:
		return fmt.Sprintf("%s := %d", o.Dst, o.Value)
	case *Operation:
		return fmt.Sprintf("%s %s %s", o.Dst, o.Kind.Symbol(), o.Src)
	case *Adjust:
		return fmt.Sprintf("%s += %d", o.Dst, o.Delta)
	case *StoreCompare:
		return fmt.Sprintf("%s := %s %s %s", o.Dst, o.Left, o.Op, o.Right)
	case *StoreNot:
		return fmt.Sprintf("%s := !%s", o.Dst, o.Src)
	case *Invoke:
		if o.Loop {
			return "invoke loop " + o.Target
		}
		return "invoke " + o.Target
	case *Print:
		return fmt.Sprintf("print %s", o.Src)
	case *Raw:
		return fmt.Sprintf("raw %q", o.Text)
	case *Init:
		return "init"
	}
	return fmt.Sprintf("<%T>", op)
}
