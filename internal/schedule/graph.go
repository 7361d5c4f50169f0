package schedule

import (
	"fmt"
	"sort"

	"github.com/gammazero/toposort"
)

// Graph holds one project's tasks keyed by code together with the dependency
// structure between them. A Graph is immutable after BuildGraph and safe for
// concurrent reads.
type Graph struct {
	tasks      map[string]*Task
	pos        map[string]int      // input position, tie-breaker after SortOrder
	order      []string            // codes in topological order
	dependents map[string][]string // code -> codes that directly depend on it
}

// BuildGraph constructs the dependency graph for a task set and rejects any
// configuration containing a cycle with a *CycleError naming the task where
// the cycle was closed. Dependency codes that match no task in the set are
// ignored: templates may reference optional tasks excluded by configuration,
// and an absent prerequisite is treated as already satisfied.
func BuildGraph(tasks []*Task) (*Graph, error) {
	g := &Graph{
		tasks:      make(map[string]*Task, len(tasks)),
		pos:        make(map[string]int, len(tasks)),
		dependents: make(map[string][]string),
	}

	for i, t := range tasks {
		if t.Code == "" {
			return nil, fmt.Errorf("task %q has no code", t.ID)
		}
		if _, exists := g.tasks[t.Code]; exists {
			return nil, fmt.Errorf("duplicate task code %q", t.Code)
		}
		g.tasks[t.Code] = t
		g.pos[t.Code] = i
	}

	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, known := g.tasks[dep]; !known {
				continue
			}
			g.dependents[dep] = append(g.dependents[dep], t.Code)
		}
	}

	// Acyclicity check over the edge list. toposort reports the cycle's
	// existence; the DFS below recovers which code closed it so the caller
	// can point at the offending task.
	var edges []toposort.Edge
	for _, t := range tasks {
		deps := g.knownDeps(t)
		if len(deps) == 0 {
			edges = append(edges, toposort.Edge{nil, t.Code})
			continue
		}
		for _, dep := range deps {
			edges = append(edges, toposort.Edge{dep, t.Code})
		}
	}
	if _, err := toposort.Toposort(edges); err != nil {
		return nil, &CycleError{Code: g.cycleCode()}
	}

	g.order = g.kahnOrder()
	return g, nil
}

// knownDeps filters a task's dependency codes down to those present in the set.
func (g *Graph) knownDeps(t *Task) []string {
	deps := make([]string, 0, len(t.DependsOn))
	for _, dep := range t.DependsOn {
		if _, known := g.tasks[dep]; known {
			deps = append(deps, dep)
		}
	}
	return deps
}

// cycleCode runs a three-color DFS and returns the code of the task at which
// a cycle is closed (an edge into a node still being visited). Only called
// after toposort has established a cycle exists, so it always finds one.
func (g *Graph) cycleCode() string {
	const (
		white = 0 // unvisited
		gray  = 1 // visiting
		black = 2 // visited
	)

	color := make(map[string]int, len(g.tasks))

	var dfs func(code string) string
	dfs = func(code string) string {
		color[code] = gray
		for _, next := range g.dependents[code] {
			switch color[next] {
			case gray:
				return next
			case white:
				if closed := dfs(next); closed != "" {
					return closed
				}
			}
		}
		color[code] = black
		return ""
	}

	codes := g.sortedCodes()
	for _, code := range codes {
		if color[code] == white {
			if closed := dfs(code); closed != "" {
				return closed
			}
		}
	}
	return ""
}

// kahnOrder computes the topological order. Ties between unconstrained tasks
// are broken by ascending SortOrder, then input position, so the result is
// deterministic for a given input.
func (g *Graph) kahnOrder() []string {
	inDegree := make(map[string]int, len(g.tasks))
	for code, t := range g.tasks {
		inDegree[code] = len(g.knownDeps(t))
	}

	var ready []string
	for _, code := range g.sortedCodes() {
		if inDegree[code] == 0 {
			ready = append(ready, code)
		}
	}
	g.sortByRank(ready)

	order := make([]string, 0, len(g.tasks))
	for len(ready) > 0 {
		code := ready[0]
		ready = ready[1:]
		order = append(order, code)

		released := false
		for _, dependent := range g.dependents[code] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				ready = append(ready, dependent)
				released = true
			}
		}
		if released {
			g.sortByRank(ready)
		}
	}
	return order
}

func (g *Graph) sortByRank(codes []string) {
	sort.Slice(codes, func(i, j int) bool {
		a, b := g.tasks[codes[i]], g.tasks[codes[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return g.pos[codes[i]] < g.pos[codes[j]]
	})
}

func (g *Graph) sortedCodes() []string {
	codes := make([]string, 0, len(g.tasks))
	for code := range g.tasks {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Task returns the task with the given code.
func (g *Graph) Task(code string) (*Task, bool) {
	t, ok := g.tasks[code]
	return t, ok
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.tasks)
}

// TopologicalOrder returns all tasks ordered so that every task appears
// after all of its dependencies.
func (g *Graph) TopologicalOrder() []*Task {
	out := make([]*Task, 0, len(g.order))
	for _, code := range g.order {
		out = append(out, g.tasks[code])
	}
	return out
}

// DependentsOf returns the tasks whose DependsOn directly contains code,
// ordered deterministically. Transitive closure is the caller's concern.
func (g *Graph) DependentsOf(code string) []*Task {
	codes := append([]string(nil), g.dependents[code]...)
	g.sortByRank(codes)
	out := make([]*Task, 0, len(codes))
	for _, c := range codes {
		out = append(out, g.tasks[c])
	}
	return out
}
