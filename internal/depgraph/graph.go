// Package depgraph implements spec.md §4.3's Dependency Analyzer: builds
// the rule dependency graph from each rule's read/write sets plus
// trigger edges, detects cycles, and produces a deterministic
// topological layering with the priority/id tie-break spec.md §4.3 and
// §8 scenario 2 require. Grounded on the DAG-engine shape in
// other_examples' sigma-engine-golang internal/dag package and on
// hashicorp-nomad's scheduler conventions for deterministic tie-break
// ordering in a topological scheduler.
package depgraph

import (
	"fmt"
	"sort"
	"strings"
)

// Rule is the subset of pkg/rule.Rule the analyzer needs — kept as its
// own small struct so this package has no import-cycle dependency on
// pkg/rule.
type Rule struct {
	ID       string
	Priority int
	ReadSet  map[string]struct{}
	WriteSet map[string]struct{}
	Triggers []string
}

// CyclicDependency is the compile-time failure spec.md §4.3 and §7
// define: the rule graph contains a cycle.
type CyclicDependency struct {
	Cycle []string
}

func (e *CyclicDependency) Error() string {
	return fmt.Sprintf("cyclic rule dependency: %s", strings.Join(e.Cycle, " -> "))
}

// Graph is the compiled rule dependency graph: nodes are rule ids, edges
// point from a rule to every rule its write set or triggers reach.
type Graph struct {
	rules map[string]Rule
	edges map[string][]string // A -> B meaning B depends on A (B runs after A)
}

// Layer is one topological round: rules with no remaining unresolved
// dependency at that point, ordered by ascending priority then
// ascending id for determinism. spec.md §4.3's literal text says
// "descending priority", but §8 scenario 2 pins the opposite firing
// order to make its conflict example work: the higher-priority rule
// fires LAST within its layer so its write dominates. This layer order
// implements that pinned resolution (see DESIGN.md Open Question (a)).
type Layer struct {
	RuleIDs []string
}

// Build constructs the dependency graph for rules: edge A -> B exists
// iff write_set(A) ∩ read_set(B) ≠ ∅, plus an edge A -> B for every B in
// triggers(A) regardless of shared fields.
func Build(rules []Rule) (*Graph, error) {
	g := &Graph{rules: make(map[string]Rule, len(rules)), edges: make(map[string][]string)}
	for _, r := range rules {
		g.rules[r.ID] = r
	}
	for _, a := range rules {
		for _, b := range rules {
			if a.ID == b.ID {
				continue
			}
			if intersects(a.WriteSet, b.ReadSet) {
				g.addEdge(a.ID, b.ID)
			}
		}
		for _, triggered := range a.Triggers {
			if triggered != a.ID {
				g.addEdge(a.ID, triggered)
			}
		}
	}
	return g, nil
}

func (g *Graph) addEdge(from, to string) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

func intersects(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

// TopologicalLayers runs Kahn's algorithm, grouping same-round rules
// into a Layer ordered by (ascending priority, ascending id). Returns
// a CyclicDependency error naming one cycle if the graph is not a DAG.
func (g *Graph) TopologicalLayers() ([]Layer, error) {
	indegree := make(map[string]int, len(g.rules))
	for id := range g.rules {
		indegree[id] = 0
	}
	for _, targets := range g.edges {
		for _, to := range targets {
			indegree[to]++
		}
	}

	remaining := len(g.rules)
	var layers []Layer
	for remaining > 0 {
		var frontier []string
		for id, deg := range indegree {
			if deg == 0 {
				frontier = append(frontier, id)
			}
		}
		if len(frontier) == 0 {
			return nil, &CyclicDependency{Cycle: g.findCycle()}
		}
		sort.Slice(frontier, func(i, j int) bool {
			ri, rj := g.rules[frontier[i]], g.rules[frontier[j]]
			if ri.Priority != rj.Priority {
				return ri.Priority < rj.Priority
			}
			return ri.ID < rj.ID
		})
		layers = append(layers, Layer{RuleIDs: frontier})
		for _, id := range frontier {
			indegree[id] = -1 // removed
			remaining--
			for _, to := range g.edges[id] {
				if indegree[to] >= 0 {
					indegree[to]--
				}
			}
		}
	}
	return layers, nil
}

// findCycle runs a DFS over the whole graph to produce one concrete
// cycle for the error message. Called only after Kahn's algorithm has
// already determined a cycle exists.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(g.rules))
	var path []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		path = append(path, id)
		for _, next := range g.edges[id] {
			switch color[next] {
			case white:
				if visit(next) {
					return true
				}
			case gray:
				idx := indexOf(path, next)
				cycle = append(append([]string{}, path[idx:]...), next)
				return true
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return false
	}

	ids := make([]string, 0, len(g.rules))
	for id := range g.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// FlatOrder concatenates every layer's rule ids in order, giving the
// single topological order the DAG executor walks.
func FlatOrder(layers []Layer) []string {
	var out []string
	for _, l := range layers {
		out = append(out, l.RuleIDs...)
	}
	return out
}
