package schedule

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sagaflow/internal/event"
)

// CycleWarning reports ordering edges that could not be honoured.
//
// A cycle is not an error: a stage that re-emits a type already drained this
// tick is legal and its output is simply delivered one tick later.
type CycleWarning struct {
	Path    []string `json:"path"`    // ["demo.A", "demo.B", "demo.A"]
	Message string   `json:"message"` // Human-readable description
	Lagged  []Edge   `json:"lagged"`  // Edges dropped from the plan
}

// Plan is a compiled, immutable execution order for one schedule.
type Plan struct {
	Label    string         `json:"label"`
	Order    []*Unit        `json:"-"`
	Levels   [][]*Unit      `json:"-"`
	Edges    []Edge         `json:"edges"`  // Edges honoured by Order
	Lagged   []Edge         `json:"lagged"` // Edges dropped to break cycles
	Warnings []CycleWarning `json:"warnings"`
}

// Types returns the unit types in execution order.
func (p *Plan) Types() []event.Type {
	out := make([]event.Type, len(p.Order))
	for i, u := range p.Order {
		out[i] = u.Type
	}
	return out
}

// graph is the unit dependency graph indexed by registration position.
type graph [][]int

// Compile orders units so that every honoured edge runs Before ahead of
// After.
//
// The algorithm:
//  1. Build the unit graph from edges whose endpoints both have units
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Topologically sort the components, breaking ties by the earliest
//     registered unit, and lay each component out in registration order
//  4. Drop every edge that now points backwards and report it per component
//  5. Assign each unit the lowest level that follows all its predecessors
//
// Compile is deterministic: the same units and edges give the same plan.
func Compile(label string, units []*Unit, edges []Edge) *Plan {
	index := make(map[event.Type]int, len(units))
	for i, u := range units {
		index[u.Type] = i
	}

	g := make(graph, len(units))
	var unitEdges []Edge
	for _, e := range edges {
		from, ok1 := index[e.Before]
		to, ok2 := index[e.After]
		if !ok1 || !ok2 {
			continue
		}
		g[from] = append(g[from], to)
		unitEdges = append(unitEdges, e)
	}

	sccs := tarjanSCC(g)

	comp := make([]int, len(units))
	for ci, scc := range sccs {
		for _, n := range scc {
			comp[n] = ci
		}
	}

	order := topoComponents(g, sccs, comp)

	pos := make([]int, len(units))
	plan := &Plan{
		Label:    label,
		Order:    make([]*Unit, 0, len(units)),
		Edges:    []Edge{},
		Lagged:   []Edge{},
		Warnings: []CycleWarning{},
	}
	for _, ci := range order {
		for _, n := range sccs[ci] {
			pos[n] = len(plan.Order)
			plan.Order = append(plan.Order, units[n])
		}
	}

	laggedByComp := make(map[int][]Edge)
	for _, e := range unitEdges {
		from, to := index[e.Before], index[e.After]
		if pos[from] < pos[to] {
			plan.Edges = append(plan.Edges, e)
			continue
		}
		plan.Lagged = append(plan.Lagged, e)
		laggedByComp[comp[from]] = append(laggedByComp[comp[from]], e)
	}

	for _, ci := range order {
		scc := sccs[ci]
		if len(scc) > 1 || hasSelfLoop(scc[0], g) {
			plan.Warnings = append(plan.Warnings, cycleToWarning(scc, g, units, laggedByComp[ci]))
		}
	}

	plan.Levels = levels(plan.Order, plan.Edges, index, pos)
	return plan
}

func hasSelfLoop(node int, g graph) bool {
	for _, n := range g[node] {
		if n == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in index order and each returned SCC is sorted
// ascending, so the result is deterministic.
func tarjanSCC(g graph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(g))
		lowlink = make([]int, len(g))
		onStack = make([]bool, len(g))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for node := range g {
		if indices[node] < 0 {
			strongConnect(node)
		}
	}

	return sccs
}

// topoComponents runs Kahn's algorithm over the condensation. Among ready
// components the one holding the earliest registered unit goes first.
func topoComponents(g graph, sccs [][]int, comp []int) []int {
	indegree := make([]int, len(sccs))
	succ := make([][]int, len(sccs))
	seen := make(map[[2]int]bool)

	for from, tos := range g {
		for _, to := range tos {
			cf, ct := comp[from], comp[to]
			if cf == ct || seen[[2]int{cf, ct}] {
				continue
			}
			seen[[2]int{cf, ct}] = true
			succ[cf] = append(succ[cf], ct)
			indegree[ct]++
		}
	}

	var ready []int
	for ci := range sccs {
		if indegree[ci] == 0 {
			ready = append(ready, ci)
		}
	}

	order := make([]int, 0, len(sccs))
	for len(ready) > 0 {
		best := 0
		for i := 1; i < len(ready); i++ {
			if sccs[ready[i]][0] < sccs[ready[best]][0] {
				best = i
			}
		}
		ci := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, ci)

		for _, next := range succ[ci] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return order
}

// levels groups units so that every unit sits one level after its latest
// predecessor. Units on the same level have no path between them.
func levels(order []*Unit, edges []Edge, index map[event.Type]int, pos []int) [][]*Unit {
	level := make([]int, len(order))
	preds := make([][]int, len(order))
	for _, e := range edges {
		from, to := pos[index[e.Before]], pos[index[e.After]]
		preds[to] = append(preds[to], from)
	}

	var out [][]*Unit
	for i, u := range order {
		for _, p := range preds[i] {
			level[i] = max(level[i], level[p]+1)
		}
		for len(out) <= level[i] {
			out = append(out, nil)
		}
		out[level[i]] = append(out[level[i]], u)
	}
	return out
}

func cycleToWarning(scc []int, g graph, units []*Unit, lagged []Edge) CycleWarning {
	if len(scc) == 1 {
		name := units[scc[0]].Type.String()
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-feeding event type: %s → %s, re-emitted values are delivered next tick", name, name),
			Lagged:  lagged,
		}
	}

	nodes := reconstructCyclePath(scc, g)
	path := make([]string, len(nodes))
	for i, n := range nodes {
		path[i] = units[n].Type.String()
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Event cycle detected: %s, values closing the cycle are delivered next tick", strings.Join(path, " → ")),
		Lagged:  lagged,
	}
}

// reconstructCyclePath finds a path from the first SCC member back to
// itself using only edges inside the SCC. Dead ends are backtracked out of,
// so the path always closes.
func reconstructCyclePath(scc []int, g graph) []int {
	if len(scc) == 0 {
		return []int{}
	}

	member := make(map[int]bool, len(scc))
	for _, n := range scc {
		member[n] = true
	}

	start := scc[0]
	path := []int{start}
	visited := map[int]bool{start: true}

	var walk func(n int) bool
	walk = func(n int) bool {
		for _, next := range g[n] {
			if !member[next] {
				continue
			}
			if next == start {
				path = append(path, start)
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			if walk(next) {
				return true
			}
			path = path[:len(path)-1]
		}
		return false
	}

	if !walk(start) {
		// Unreachable for a real SCC; list the members instead.
		return append(slices.Clone(scc), start)
	}
	return path
}
