package hir

import "sort"

// CallGraph is the static call graph of a program together with its
// strongly connected components. Each component is a recursion group: its
// members share one depth counter and one activation depth sequence.
type CallGraph struct {
	callees map[string][]string
	group   map[string]int
	groups  [][]string
	cyclic  []bool
}

// BuildCallGraph collects the call edges of every function body.
func BuildCallGraph(p *Program) *CallGraph {
	g := &CallGraph{
		callees: make(map[string][]string),
		group:   make(map[string]int),
	}

	for _, fn := range p.Functions {
		seen := make(map[string]bool)
		var out []string
		if fn.Body != nil {
			Inspect(fn.Body, func(n Node) bool {
				if call, ok := n.(*Call); ok && !seen[call.Callee] {
					seen[call.Callee] = true
					out = append(out, call.Callee)
				}
				return true
			})
		}
		g.callees[fn.Name] = out
	}

	g.computeGroups(p)
	return g
}

// computeGroups runs Tarjan's algorithm over the call edges.
func (g *CallGraph) computeGroups(p *Program) {
	index := 0
	indices := make(map[string]int)
	lowlink := make(map[string]int)
	onStack := make(map[string]bool)
	var stack []string

	var connect func(fn string)
	connect = func(fn string) {
		indices[fn] = index
		lowlink[fn] = index
		index++
		stack = append(stack, fn)
		onStack[fn] = true

		for _, callee := range g.callees[fn] {
			if _, known := g.callees[callee]; !known {
				continue
			}
			if _, visited := indices[callee]; !visited {
				connect(callee)
				lowlink[fn] = min(lowlink[fn], lowlink[callee])
			} else if onStack[callee] {
				lowlink[fn] = min(lowlink[fn], indices[callee])
			}
		}

		if lowlink[fn] != indices[fn] {
			return
		}

		var members []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			members = append(members, top)
			if top == fn {
				break
			}
		}
		sort.Strings(members)

		id := len(g.groups)
		cyclic := len(members) > 1
		for _, m := range members {
			g.group[m] = id
			for _, callee := range g.callees[m] {
				if callee == m {
					cyclic = true
				}
			}
		}
		g.groups = append(g.groups, members)
		g.cyclic = append(g.cyclic, cyclic)
	}

	for _, fn := range p.Functions {
		if _, visited := indices[fn.Name]; !visited {
			connect(fn.Name)
		}
	}
}

// Callees lists the distinct functions fn calls, in first-call order.
func (g *CallGraph) Callees(fn string) []string { return g.callees[fn] }

// SameGroup reports whether a call from caller to callee stays inside one
// recursion group, i.e. deepens the activation.
func (g *CallGraph) SameGroup(caller, callee string) bool {
	a, ok1 := g.group[caller]
	b, ok2 := g.group[callee]
	return ok1 && ok2 && a == b && g.cyclic[a]
}

// Recursive reports whether fn can reach itself.
func (g *CallGraph) Recursive(fn string) bool {
	id, ok := g.group[fn]
	return ok && g.cyclic[id]
}

// GroupName names the recursion group of fn after its alphabetically first member.
func (g *CallGraph) GroupName(fn string) string {
	id, ok := g.group[fn]
	if !ok {
		return fn
	}
	return g.groups[id][0]
}

// Groups returns every component in reverse topological order (callees first).
func (g *CallGraph) Groups() [][]string { return g.groups }
