// Package mcfunction renders LIR as datapack function command text.
package mcfunction

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/lir"
	"bell/internal/mir"
	"bell/internal/slots"
)

// Program is the emitted datapack content.
type Program struct {
	Namespace string
	Objective string
	Functions []*Function
	Entries   []Entry
}

// Function is one .mcfunction file.
type Function struct {
	Name     string
	Commands []string
}

// Entry names an exported function and the cells exchanged with its caller.
type Entry struct {
	Name     string
	Function string // namespaced reference, ns:name
	Params   []string
	Result   []string
}

// Function returns the function called name, or nil.
func (p *Program) Function(name string) *Function {
	i := sort.Search(len(p.Functions), func(i int) bool { return p.Functions[i].Name >= name })
	if i < len(p.Functions) && p.Functions[i].Name == name {
		return p.Functions[i]
	}
	return nil
}

// String renders the listing: every function as its file name followed by
// its commands, one per line.
func (p *Program) String() string {
	parts := make([]string, 0, len(p.Functions))
	for _, fn := range p.Functions {
		var b strings.Builder
		fmt.Fprintf(&b, "@%s.mcfunction\n", fn.Name)
		for _, cmd := range fn.Commands {
			b.WriteString(cmd)
			b.WriteByte('\n')
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

// Emit validates prog and renders every command. A read of a cell nothing
// writes, or an invocation of a missing function, is an internal error.
func Emit(prog *lir.Program, cfg *config.Config) (*Program, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := validate(prog); err != nil {
		return nil, err
	}

	e := &emitter{ns: cfg.Namespace, obj: cfg.Objective, names: make(map[string]string, len(prog.Functions))}
	owner := make(map[string]string, len(prog.Functions))
	for _, fn := range prog.Functions {
		name := Sanitize(fn.Name)
		if prev, ok := owner[name]; ok {
			return nil, diagnostics.InternalConsistency("function names collide after sanitizing", prev+", "+fn.Name)
		}
		owner[name] = fn.Name
		e.names[fn.Name] = name
	}

	out := &Program{Namespace: cfg.Namespace, Objective: cfg.Objective}
	for _, fn := range prog.Functions {
		f := &Function{Name: e.names[fn.Name], Commands: make([]string, 0, len(fn.Commands))}
		for _, c := range fn.Commands {
			f.Commands = append(f.Commands, e.command(c))
		}
		out.Functions = append(out.Functions, f)
	}
	sort.Slice(out.Functions, func(i, j int) bool { return out.Functions[i].Name < out.Functions[j].Name })

	for _, entry := range prog.Entries {
		out.Entries = append(out.Entries, Entry{
			Name:     entry.Name,
			Function: e.ref(entry.Name),
			Params:   names(entry.Params),
			Result:   names(entry.Result),
		})
	}
	return out, nil
}

func names(list []*slots.Slot) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.String()
	}
	return out
}

func validate(prog *lir.Program) error {
	written := make(map[*slots.Slot]bool)
	for _, entry := range prog.Entries {
		for _, p := range entry.Params {
			written[p] = true
		}
	}
	defined := make(map[string]bool, len(prog.Functions))
	for _, fn := range prog.Functions {
		defined[fn.Name] = true
		for _, c := range fn.Commands {
			if dst := lir.Writes(c); dst != nil {
				written[dst] = true
			}
		}
	}

	for _, fn := range prog.Functions {
		for _, c := range fn.Commands {
			for _, r := range lir.Reads(c) {
				if !written[r] {
					return diagnostics.InternalConsistency("command reads a cell nothing writes", fn.Name+": "+lir.FormatCommand(c))
				}
			}
			if inv, ok := c.Op.(*lir.Invoke); ok && !defined[inv.Target] {
				return diagnostics.InternalConsistency("invocation of a missing function", fn.Name+": "+lir.FormatCommand(c))
			}
		}
	}
	return nil
}

// Sanitize maps a unit name onto the characters a function path allows.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '/', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

type emitter struct {
	ns    string
	obj   string
	names map[string]string
}

func (e *emitter) ref(unit string) string {
	name, ok := e.names[unit]
	if !ok {
		name = Sanitize(unit)
	}
	return e.ns + ":" + name
}

func (e *emitter) score(s *slots.Slot) string {
	return s.String() + " " + e.obj
}

func (e *emitter) command(c lir.Command) string {
	body := e.op(c.Op)
	if c.Guard == nil {
		return body
	}
	return fmt.Sprintf("execute if score %s matches %d run %s", e.score(c.Guard.Slot), c.Guard.Value, body)
}

func (e *emitter) op(op lir.Op) string {
	switch o := op.(type) {
	case *lir.Set:
		return fmt.Sprintf("scoreboard players set %s %d", e.score(o.Dst), o.Value)
	case *lir.Operation:
		return fmt.Sprintf("scoreboard players operation %s %s %s", e.score(o.Dst), o.Kind.Symbol(), e.score(o.Src))
	case *lir.Adjust:
		if o.Delta < 0 {
			return fmt.Sprintf("scoreboard players remove %s %d", e.score(o.Dst), -int64(o.Delta))
		}
		return fmt.Sprintf("scoreboard players add %s %d", e.score(o.Dst), o.Delta)
	case *lir.StoreCompare:
		test, symbol := comparison(o.Op)
		return fmt.Sprintf("execute store result score %s %s score %s %s %s", e.score(o.Dst), test, e.score(o.Left), symbol, e.score(o.Right))
	case *lir.StoreNot:
		return fmt.Sprintf("execute store result score %s if score %s matches 0", e.score(o.Dst), e.score(o.Src))
	case *lir.Invoke:
		return "function " + e.ref(o.Target)
	case *lir.Print:
		return "tellraw @a " + e.scoreText(o.Src)
	case *lir.Raw:
		return o.Text
	case *lir.Init:
		return fmt.Sprintf("scoreboard objectives add %s dummy", e.obj)
	}
	return fmt.Sprintf("# unknown %T", op)
}

type scoreComponent struct {
	Score struct {
		Name      string `json:"name"`
		Objective string `json:"objective"`
	} `json:"score"`
}

func (e *emitter) scoreText(s *slots.Slot) string {
	var c scoreComponent
	c.Score.Name = s.String()
	c.Score.Objective = e.obj
	data, _ := json.Marshal(c)
	return string(data)
}

// comparison returns the execute test and operator for op. The target has
// no inequality operator, so != is `unless ... =`.
func comparison(op mir.CmpOp) (string, string) {
	switch op {
	case mir.CmpLt:
		return "if", "<"
	case mir.CmpLe:
		return "if", "<="
	case mir.CmpGt:
		return "if", ">"
	case mir.CmpGe:
		return "if", ">="
	case mir.CmpNe:
		return "unless", "="
	}
	return "if", "="
}
