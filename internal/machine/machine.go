// Package machine interprets emitted datapack commands: the scoreboard
// subset the emitter produces plus function invocation and score printing.
package machine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"bell/internal/codegen/mcfunction"
	"bell/internal/mir"
)

// DefaultMaxCommands matches the runtime's default maxCommandChainLength.
const DefaultMaxCommands = 65536

// DefaultMaxDepth bounds nested function invocations.
const DefaultMaxDepth = 512

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnsetCell       = errors.New("read of unset cell")
	ErrNoObjective     = errors.New("objective does not exist")
	ErrDepthExceeded   = errors.New("invocation depth exceeded")
	ErrCommandBudget   = errors.New("command budget exhausted")
	ErrSyntax          = errors.New("malformed command")
)

// Machine holds the scoreboard and the loaded functions. It is not safe
// for concurrent use.
type Machine struct {
	Namespace   string
	MaxDepth    int
	MaxCommands int
	// Strict rejects reads of cells that were never assigned. Adjusting an
	// unset cell still counts it as 0, as the runtime does.
	Strict bool
	// Output receives printed values, one per line, when set.
	Output io.Writer

	functions map[string][]string
	scores    map[string]map[string]int32
	printed   []int32
	calls     map[string]int
	passed    []string
	executed  int
	deepest   int
}

// New loads every function of prog.
func New(prog *mcfunction.Program) *Machine {
	m := &Machine{
		Namespace:   prog.Namespace,
		MaxDepth:    DefaultMaxDepth,
		MaxCommands: DefaultMaxCommands,
		Strict:      true,
		functions:   make(map[string][]string, len(prog.Functions)),
	}
	for _, fn := range prog.Functions {
		m.functions[fn.Name] = fn.Commands
	}
	m.Reset()
	return m
}

// Reset clears the scoreboard and everything recorded by earlier runs.
func (m *Machine) Reset() {
	m.scores = make(map[string]map[string]int32)
	m.calls = make(map[string]int)
	m.printed = nil
	m.passed = nil
	m.executed = 0
	m.deepest = 0
}

// Set assigns a cell, creating the objective if needed.
func (m *Machine) Set(objective, cell string, v int32) {
	if m.scores[objective] == nil {
		m.scores[objective] = make(map[string]int32)
	}
	m.scores[objective][cell] = v
}

// Get returns a cell and whether it was ever assigned.
func (m *Machine) Get(objective, cell string) (int32, bool) {
	v, ok := m.scores[objective][cell]
	return v, ok
}

// Cells returns the assigned cells of objective, sorted by name.
func (m *Machine) Cells(objective string) []string {
	out := make([]string, 0, len(m.scores[objective]))
	for name := range m.scores[objective] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Printed returns every value shown by tellraw, in order.
func (m *Machine) Printed() []int32 { return m.printed }

// Passthrough returns commands the machine does not model, in order.
func (m *Machine) Passthrough() []string { return m.passed }

// Calls returns how many times each function ran.
func (m *Machine) Calls() map[string]int { return m.calls }

// Executed is the number of commands run since the last Reset.
func (m *Machine) Executed() int { return m.executed }

// Deepest is the highest invocation depth reached since the last Reset.
func (m *Machine) Deepest() int { return m.deepest }

// Run invokes a function by name, with or without the namespace.
func (m *Machine) Run(name string) error {
	return m.call(m.resolve(name), 1)
}

func (m *Machine) resolve(ref string) string {
	if ns, name, ok := strings.Cut(ref, ":"); ok && ns == m.Namespace {
		return name
	}
	return ref
}

func (m *Machine) call(name string, depth int) error {
	body, ok := m.functions[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if depth > m.MaxDepth {
		return fmt.Errorf("%w: %s at depth %d", ErrDepthExceeded, name, depth)
	}
	m.deepest = max(m.deepest, depth)
	m.calls[name]++
	for _, cmd := range body {
		if err := m.exec(cmd, depth); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (m *Machine) exec(cmd string, depth int) error {
	m.executed++
	if m.executed > m.MaxCommands {
		return ErrCommandBudget
	}
	args := strings.Fields(cmd)
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "scoreboard":
		return m.scoreboard(args[1:])
	case "execute":
		return m.execute(args[1:], depth)
	case "function":
		if len(args) != 2 {
			return fmt.Errorf("%w: %s", ErrSyntax, cmd)
		}
		return m.call(m.resolve(args[1]), depth+1)
	case "tellraw":
		return m.tellraw(cmd)
	}
	m.passed = append(m.passed, cmd)
	return nil
}

func (m *Machine) scoreboard(args []string) error {
	if len(args) >= 3 && args[0] == "objectives" {
		switch args[1] {
		case "add":
			if m.scores[args[2]] == nil {
				m.scores[args[2]] = make(map[string]int32)
			}
			return nil
		case "remove":
			delete(m.scores, args[2])
			return nil
		}
	}
	if len(args) < 4 || args[0] != "players" {
		return fmt.Errorf("%w: scoreboard %s", ErrSyntax, strings.Join(args, " "))
	}

	cell, obj := args[2], args[3]
	board, ok := m.scores[obj]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoObjective, obj)
	}
	switch args[1] {
	case "set", "add", "remove":
		if len(args) != 5 {
			return fmt.Errorf("%w: scoreboard %s", ErrSyntax, strings.Join(args, " "))
		}
		v, err := parseInt(args[4])
		if err != nil {
			return err
		}
		switch args[1] {
		case "set":
			board[cell] = v
		case "add":
			board[cell] += v
		case "remove":
			board[cell] -= v
		}
		return nil
	case "get":
		_, err := m.read(obj, cell)
		return err
	case "operation":
		if len(args) != 7 {
			return fmt.Errorf("%w: scoreboard %s", ErrSyntax, strings.Join(args, " "))
		}
		return m.operation(cell, obj, args[4], args[5], args[6])
	}
	return fmt.Errorf("%w: scoreboard %s", ErrSyntax, strings.Join(args, " "))
}

func (m *Machine) operation(dst, dstObj, op, src, srcObj string) error {
	right, err := m.read(srcObj, src)
	if err != nil {
		return err
	}
	if op == "=" {
		m.scores[dstObj][dst] = right
		return nil
	}
	if op == "><" {
		left, err := m.read(dstObj, dst)
		if err != nil {
			return err
		}
		m.scores[dstObj][dst], m.scores[srcObj][src] = right, left
		return nil
	}

	var bin mir.BinOp
	switch op {
	case "+=":
		bin = mir.BinAdd
	case "-=":
		bin = mir.BinSub
	case "*=":
		bin = mir.BinMul
	case "/=":
		bin = mir.BinDiv
	case "%=":
		bin = mir.BinMod
	case "<":
		bin = mir.BinMin
	case ">":
		bin = mir.BinMax
	default:
		return fmt.Errorf("%w: operation %s", ErrSyntax, op)
	}
	left, err := m.read(dstObj, dst)
	if err != nil {
		return err
	}
	if v, ok := bin.Eval(left, right); ok {
		m.scores[dstObj][dst] = v
	}
	return nil
}

// execute runs the subcommand chain. A failing condition stops the chain;
// a stored result records whether the final condition held.
func (m *Machine) execute(args []string, depth int) error {
	var store *[2]string
	for len(args) > 0 {
		switch args[0] {
		case "store":
			if len(args) < 5 || args[1] != "result" || args[2] != "score" {
				return fmt.Errorf("%w: execute %s", ErrSyntax, strings.Join(args, " "))
			}
			store = &[2]string{args[3], args[4]}
			args = args[5:]
		case "if", "unless":
			held, rest, err := m.condition(args[1:])
			if err != nil {
				return err
			}
			if args[0] == "unless" {
				held = !held
			}
			args = rest
			if len(args) == 0 {
				if store != nil {
					return m.store(*store, held)
				}
				return nil
			}
			if !held {
				return nil
			}
		case "run":
			if store != nil {
				return fmt.Errorf("%w: stored run is not supported", ErrSyntax)
			}
			return m.exec(strings.Join(args[1:], " "), depth)
		default:
			return fmt.Errorf("%w: execute %s", ErrSyntax, strings.Join(args, " "))
		}
	}
	return nil
}

func (m *Machine) store(target [2]string, held bool) error {
	board, ok := m.scores[target[1]]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoObjective, target[1])
	}
	board[target[0]] = 0
	if held {
		board[target[0]] = 1
	}
	return nil
}

// condition evaluates `score <cell> <obj> (matches <range> | <op> <cell> <obj>)`.
func (m *Machine) condition(args []string) (bool, []string, error) {
	if len(args) < 4 || args[0] != "score" {
		return false, nil, fmt.Errorf("%w: condition %s", ErrSyntax, strings.Join(args, " "))
	}
	left, err := m.read(args[2], args[1])
	if err != nil {
		return false, nil, err
	}
	if args[3] == "matches" {
		if len(args) < 5 {
			return false, nil, fmt.Errorf("%w: matches without a range", ErrSyntax)
		}
		lo, hi, err := parseRange(args[4])
		if err != nil {
			return false, nil, err
		}
		return left >= lo && left <= hi, args[5:], nil
	}
	if len(args) < 6 {
		return false, nil, fmt.Errorf("%w: condition %s", ErrSyntax, strings.Join(args, " "))
	}
	right, err := m.read(args[5], args[4])
	if err != nil {
		return false, nil, err
	}
	var held bool
	switch args[3] {
	case "<":
		held = left < right
	case "<=":
		held = left <= right
	case ">":
		held = left > right
	case ">=":
		held = left >= right
	case "=":
		held = left == right
	default:
		return false, nil, fmt.Errorf("%w: comparison %s", ErrSyntax, args[3])
	}
	return held, args[6:], nil
}

type scoreText struct {
	Score *struct {
		Name      string `json:"name"`
		Objective string `json:"objective"`
	} `json:"score"`
}

func (m *Machine) tellraw(cmd string) error {
	rest, ok := strings.CutPrefix(cmd, "tellraw @a ")
	if !ok {
		m.passed = append(m.passed, cmd)
		return nil
	}
	var text scoreText
	if err := json.Unmarshal([]byte(rest), &text); err != nil || text.Score == nil {
		m.passed = append(m.passed, cmd)
		return nil
	}
	v, err := m.read(text.Score.Objective, text.Score.Name)
	if err != nil {
		return err
	}
	m.printed = append(m.printed, v)
	if m.Output != nil {
		fmt.Fprintln(m.Output, v)
	}
	return nil
}

func (m *Machine) read(obj, cell string) (int32, error) {
	board, ok := m.scores[obj]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoObjective, obj)
	}
	v, ok := board[cell]
	if !ok && m.Strict {
		return 0, fmt.Errorf("%w: %s", ErrUnsetCell, cell)
	}
	return v, nil
}

func parseInt(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a 32-bit integer", ErrSyntax, s)
	}
	return int32(v), nil
}

// parseRange accepts `n`, `lo..`, `..hi` and `lo..hi`.
func parseRange(s string) (int32, int32, error) {
	lo, hi, found := strings.Cut(s, "..")
	if !found {
		v, err := parseInt(s)
		return v, v, err
	}
	low, high := int32(-1<<31), int32(1<<31-1)
	var err error
	if lo != "" {
		if low, err = parseInt(lo); err != nil {
			return 0, 0, err
		}
	}
	if hi != "" {
		if high, err = parseInt(hi); err != nil {
			return 0, 0, err
		}
	}
	return low, high, nil
}
