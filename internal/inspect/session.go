// Package inspect drives the command simulator over an emitted program, for
// the -run flag and the interactive prompt.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"bell/colors"
	"bell/internal/codegen/mcfunction"
	"bell/internal/machine"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownEntry   = errors.New("unknown entry")
	ErrBadAssignment  = errors.New("expected cell=value")
)

// Session holds one emitted program and the cell values to bind before
// each run.
type Session struct {
	prog    *mcfunction.Program
	machine *machine.Machine
	pending []binding
	strict  bool
}

type binding struct {
	name  string
	value int32
}

// NewSession wraps prog. strict controls whether reading an unset cell
// aborts a run.
func NewSession(prog *mcfunction.Program, strict bool) *Session {
	return &Session{prog: prog, machine: machine.New(prog), strict: strict}
}

// Machine exposes the simulator state left by the last run.
func (s *Session) Machine() *machine.Machine { return s.machine }

// Bind parses "cell=value" and queues it for the next run. The cell may be
// a full score holder name or the bare name of an entry parameter.
func (s *Session) Bind(assignment string) error {
	name, raw, ok := strings.Cut(assignment, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return fmt.Errorf("%w: %q", ErrBadAssignment, assignment)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadAssignment, assignment)
	}
	s.pending = append(s.pending, binding{name: name, value: int32(v)})
	return nil
}

// Resolve maps a name to the score holder it refers to when running entry.
// Full holder names starting with '#' pass through unchanged.
func (s *Session) Resolve(entry, name string) (string, error) {
	if strings.HasPrefix(name, "#") {
		return name, nil
	}
	e := s.entry(entry)
	if e == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownEntry, entry)
	}
	for _, p := range e.Params {
		if strings.HasSuffix(p, "."+name) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s has no parameter %q", entry, name)
}

func (s *Session) entry(name string) *mcfunction.Entry {
	name = strings.TrimPrefix(name, s.prog.Namespace+":")
	for i := range s.prog.Entries {
		if s.prog.Entries[i].Name == name || s.prog.Entries[i].Function == s.prog.Namespace+":"+name {
			return &s.prog.Entries[i]
		}
	}
	return nil
}

// Run resets the simulator, applies the queued bindings and runs entry.
// It returns the printed values.
func (s *Session) Run(entry string) ([]int32, error) {
	e := s.entry(entry)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntry, entry)
	}
	s.machine.Reset()
	s.machine.Strict = s.strict
	for _, b := range s.pending {
		cell, err := s.Resolve(e.Name, b.name)
		if err != nil {
			return nil, err
		}
		s.machine.Set(s.prog.Objective, cell, b.value)
	}
	err := s.machine.Run(e.Function)
	return s.machine.Printed(), err
}

// Exec runs one prompt line. It reports true once the session should end.
func (s *Session) Exec(line string, w io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case ":quit", ":q":
		return true, nil
	case ":help":
		fmt.Fprintln(w, ":list                 functions and their sizes")
		fmt.Fprintln(w, ":show <function>      commands of one function")
		fmt.Fprintln(w, ":set <cell>=<value>   bind a cell before the next run")
		fmt.Fprintln(w, ":run <entry>          run an entry point")
		fmt.Fprintln(w, ":cells                scores left by the last run")
		fmt.Fprintln(w, ":quit")
	case ":list":
		for _, fn := range s.prog.Functions {
			marker := ""
			if s.entry(fn.Name) != nil {
				marker = " (entry)"
			}
			fmt.Fprintf(w, "%s:%s  %d commands%s\n", s.prog.Namespace, fn.Name, len(fn.Commands), marker)
		}
	case ":show":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: :show <function>")
		}
		fn := s.prog.Function(strings.TrimPrefix(fields[1], s.prog.Namespace+":"))
		if fn == nil {
			return false, fmt.Errorf("%w: %s", machine.ErrUnknownFunction, fields[1])
		}
		for _, cmd := range fn.Commands {
			fmt.Fprintln(w, cmd)
		}
	case ":set":
		if len(fields) < 2 {
			return false, ErrBadAssignment
		}
		return false, s.Bind(strings.Join(fields[1:], ""))
	case ":run":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: :run <entry>")
		}
		printed, err := s.Run(fields[1])
		for _, v := range printed {
			fmt.Fprintln(w, v)
		}
		if err != nil {
			return false, err
		}
		fmt.Fprintln(w, colors.GREY.Sprintf("(%d commands executed)", s.machine.Executed()))
	case ":cells":
		for _, cell := range s.machine.Cells(s.prog.Objective) {
			v, _ := s.machine.Get(s.prog.Objective, cell)
			fmt.Fprintf(w, "%s = %d\n", cell, v)
		}
	default:
		return false, fmt.Errorf("%w: %s (type :help)", ErrUnknownCommand, fields[0])
	}
	return false, nil
}
