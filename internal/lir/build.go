package lir

import (
	"fmt"
	"sort"

	"bell/internal/config"
	"bell/internal/diagnostics"
	"bell/internal/mir"
	"bell/internal/slots"

	"golang.org/x/sync/errgroup"
)

// Build flattens every MIR unit into command lists. Units are lowered
// concurrently; the result does not depend on scheduling.
func Build(prog *mir.Program, alloc *slots.Allocator, cfg *config.Config) (*Program, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	scratch := alloc.Scratch()

	results := make([][]*Function, len(prog.Functions))
	var group errgroup.Group
	group.SetLimit(max(cfg.Workers, 1))
	for i, fn := range prog.Functions {
		group.Go(func() error {
			l := &lowerer{fn: fn, blocks: make(map[mir.BlockID]*mir.Block, len(fn.Blocks)), scratch: scratch, inlineLimit: cfg.InlineLimit}
			for _, b := range fn.Blocks {
				l.blocks[b.ID] = b
			}
			main, err := l.flatten(fn.Entry, mir.InvalidBlock)
			if err != nil {
				return err
			}
			if fn.Kind == mir.UnitEntry {
				main = append([]Command{{Op: &Init{}}}, main...)
			}
			results[i] = append([]*Function{{Name: fn.Name, Source: fn.Source, Entry: fn.Kind == mir.UnitEntry, Commands: main}}, l.subs...)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := &Program{}
	for _, fns := range results {
		out.Functions = append(out.Functions, fns...)
	}
	sort.Slice(out.Functions, func(i, j int) bool { return out.Functions[i].Name < out.Functions[j].Name })

	for _, e := range prog.Entries {
		entry := Entry{Name: e.Name, Result: e.Result.Leaves()}
		for _, p := range e.Params {
			entry.Params = append(entry.Params, p.Leaves()...)
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

type lowerer struct {
	fn          *mir.Function
	blocks      map[mir.BlockID]*mir.Block
	scratch     *slots.Slot
	inlineLimit int
	subs        []*Function
}

// flatten emits the commands of the straight path from id up to, but not
// including, stop. Both arms of a conditional branch are emitted under
// complementary guards of the same condition cell, then the path continues
// at the join.
func (l *lowerer) flatten(id, stop mir.BlockID) ([]Command, error) {
	var cmds []Command
	for steps := 0; id != stop; steps++ {
		block := l.blocks[id]
		if block == nil || steps > len(l.blocks) {
			return nil, diagnostics.InternalConsistency("unstructured control flow", fmt.Sprintf("b%d", id)).InUnit(l.fn.Name)
		}
		for _, instr := range block.Instrs {
			cmds = append(cmds, l.lowerInstr(instr)...)
		}

		switch term := block.Term.(type) {
		case *mir.Return:
			return cmds, nil
		case *mir.Br:
			id = term.Target
		case *mir.CondBr:
			for _, arm := range []struct {
				value int32
				start mir.BlockID
			}{{1, term.Then}, {0, term.Else}} {
				armCmds, err := l.arm(term.Cond, arm.value, arm.start, term.Join)
				if err != nil {
					return nil, err
				}
				cmds = append(cmds, armCmds...)
			}
			id = term.Join
		default:
			return nil, diagnostics.InternalConsistency("block without terminator", fmt.Sprintf("b%d", id)).InUnit(l.fn.Name)
		}
	}
	return cmds, nil
}

func (l *lowerer) arm(cond *slots.Slot, value int32, start, join mir.BlockID) ([]Command, error) {
	if start == join {
		return nil, nil
	}
	body, err := l.flatten(start, join)
	if err != nil || len(body) == 0 {
		return nil, err
	}

	guard := &Guard{Slot: cond, Value: value}
	if l.canInline(body, cond) {
		for i := range body {
			body[i].Guard = guard
		}
		return body, nil
	}

	sub := &Function{Name: fmt.Sprintf("%s/b%d", l.fn.Name, start), Source: l.fn.Source, Commands: body}
	l.subs = append(l.subs, sub)
	return []Command{{Guard: guard, Op: &Invoke{Target: sub.Name}}}, nil
}

// canInline allows short straight-line arms to carry the guard on every
// command, as long as none of them can change the condition cell.
func (l *lowerer) canInline(body []Command, cond *slots.Slot) bool {
	if len(body) > l.inlineLimit {
		return false
	}
	for _, c := range body {
		if c.Guard != nil || Writes(c) == cond {
			return false
		}
		if inv, ok := c.Op.(*Invoke); ok && inv.Loop {
			return false
		}
		if _, ok := c.Op.(*Raw); ok {
			return false
		}
	}
	return true
}

func (l *lowerer) lowerInstr(instr mir.Instr) []Command {
	switch i := instr.(type) {
	case *mir.Const:
		return []Command{{Op: &Set{Dst: i.Dst, Value: i.Value}}}
	case *mir.Copy:
		return []Command{{Op: &Operation{Kind: OpAssign, Dst: i.Dst, Src: i.Src}}}
	case *mir.Binary:
		return l.lowerBinary(i)
	case *mir.Compare:
		return []Command{{Op: &StoreCompare{Dst: i.Dst, Op: i.Op, Left: i.Left, Right: i.Right}}}
	case *mir.Not:
		return []Command{{Op: &StoreNot{Dst: i.Dst, Src: i.Src}}}
	case *mir.Adjust:
		return []Command{{Op: &Adjust{Dst: i.Dst, Delta: i.Delta}}}
	case *mir.Invoke:
		return []Command{{Op: &Invoke{Target: i.Target, Loop: i.Loop}}}
	case *mir.Print:
		return []Command{{Op: &Print{Src: i.Src}}}
	case *mir.Raw:
		return []Command{{Op: &Raw{Text: i.Text}}}
	}
	return nil
}

// lowerBinary turns three-address arithmetic into in-place operations.
// Non-commutative operators whose destination is the right operand are
// staged through the scratch cell.
func (l *lowerer) lowerBinary(i *mir.Binary) []Command {
	kind := opKind(i.Op)
	switch {
	case i.Dst == i.Left:
		return []Command{{Op: &Operation{Kind: kind, Dst: i.Dst, Src: i.Right}}}
	case i.Dst == i.Right && i.Op.Commutative():
		return []Command{{Op: &Operation{Kind: kind, Dst: i.Dst, Src: i.Left}}}
	case i.Dst == i.Right:
		return []Command{
			{Op: &Operation{Kind: OpAssign, Dst: l.scratch, Src: i.Left}},
			{Op: &Operation{Kind: kind, Dst: l.scratch, Src: i.Right}},
			{Op: &Operation{Kind: OpAssign, Dst: i.Dst, Src: l.scratch}},
		}
	}
	return []Command{
		{Op: &Operation{Kind: OpAssign, Dst: i.Dst, Src: i.Left}},
		{Op: &Operation{Kind: kind, Dst: i.Dst, Src: i.Right}},
	}
}
