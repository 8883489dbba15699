package compiler

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/roach88/agentmark/internal/tree"
)

// ImportCycle is one strongly connected group of units that import each
// other.
type ImportCycle struct {
	Path    []string `json:"path"`    // ["a.yaml", "b.yaml", "a.yaml"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeImports reports every import cycle among units at once.
//
// Compile stops at the first cycle it walks into; this is the project-wide
// view used by validate. The algorithm:
//  1. Build unit -> imported unit edges from relative imports
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-import as a cycle
//
// Imports of units outside the given set are ignored. Output is sorted so
// the same project always yields the same report.
func AnalyzeImports(units []*tree.Unit) []ImportCycle {
	if len(units) == 0 {
		return []ImportCycle{}
	}

	graph := buildImportGraph(units)
	sccs := tarjanSCC(graph)

	cycles := []ImportCycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b ImportCycle) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return cycles
}

// importGraph maps a unit path to the unit paths it imports.
type importGraph map[string][]string

func buildImportGraph(units []*tree.Unit) importGraph {
	graph := make(importGraph, len(units))
	for _, u := range units {
		graph[filepath.Clean(u.Path)] = []string{}
	}

	for _, u := range units {
		from := filepath.Clean(u.Path)
		for _, imp := range u.Imports {
			candidates, ok := importCandidates(imp.From, from)
			if !ok {
				continue
			}
			for _, to := range candidates {
				if _, known := graph[to]; !known {
					continue
				}
				if !slices.Contains(graph[from], to) {
					graph[from] = append(graph[from], to)
				}
				break
			}
		}
		slices.Sort(graph[from])
	}
	return graph
}

func hasSelfLoop(node string, graph importGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order.
func tarjanSCC(graph importGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component.
		if lowlink[v] == indices[v] {
			var scc []string
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

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToCycle(scc []string, graph importGraph) ImportCycle {
	if len(scc) == 1 {
		return ImportCycle{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("unit imports itself: %s", scc[0]),
		}
	}
	path := reconstructCyclePath(scc, graph)
	return ImportCycle{
		Path:    path,
		Message: fmt.Sprintf("circular import: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath walks edges inside the SCC from its first member
// until it returns to it.
func reconstructCyclePath(scc []string, graph importGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
