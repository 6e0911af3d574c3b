// Package graph tracks which cells read which other cells. Edges point from a
// cell to its precedents: if A1 holds {PLUS,B1,C1}, there are edges A1 → B1
// and A1 → C1. The graph is kept acyclic; an edge set that would close a loop
// is rejected without modifying the graph.
package graph

import (
	"sort"
	"strings"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/sheeterr"
)

type set map[cell.Coord]bool

// Graph is the dependency graph of one sheet. It is not safe for concurrent
// use; the owning sheet serializes access.
type Graph struct {
	// adjacency maps a cell to the cells it reads.
	adjacency map[cell.Coord]set
	// reverse maps a cell to the cells that read it.
	reverse map[cell.Coord]set
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[cell.Coord]set),
		reverse:   make(map[cell.Coord]set),
	}
}

// Check reports whether giving c the precedents precs would introduce a
// cycle. It never modifies the graph.
func (g *Graph) Check(c cell.Coord, precs []cell.Coord) error {
	for _, p := range precs {
		if p == c {
			return sheeterr.New(sheeterr.CyclicDependency, "%s refers to itself", c)
		}
	}
	for _, p := range precs {
		if path := g.path(p, c); path != nil {
			return sheeterr.New(sheeterr.CyclicDependency, "cycle %s → %s", c, joinPath(path))
		}
	}
	return nil
}

// SetPrecedents replaces the outgoing edges of c. On a cycle the graph is
// left unchanged and a CyclicDependency error is returned.
func (g *Graph) SetPrecedents(c cell.Coord, precs []cell.Coord) error {
	// path stops on reaching c, so the edges being replaced do not affect
	// the check.
	if err := g.Check(c, precs); err != nil {
		return err
	}
	g.Clear(c)
	if len(precs) == 0 {
		return nil
	}
	out := make(set, len(precs))
	for _, p := range precs {
		out[p] = true
		if g.reverse[p] == nil {
			g.reverse[p] = make(set)
		}
		g.reverse[p][c] = true
	}
	g.adjacency[c] = out
	return nil
}

// Clear removes every edge leaving c. Edges into c are kept: other cells
// still read c even when it is empty.
func (g *Graph) Clear(c cell.Coord) {
	for p := range g.adjacency[c] {
		delete(g.reverse[p], c)
		if len(g.reverse[p]) == 0 {
			delete(g.reverse, p)
		}
	}
	delete(g.adjacency, c)
}

// Precedents returns the cells c reads directly, sorted row-major.
func (g *Graph) Precedents(c cell.Coord) []cell.Coord { return sorted(g.adjacency[c]) }

// Dependents returns the cells that read c directly, sorted row-major.
func (g *Graph) Dependents(c cell.Coord) []cell.Coord { return sorted(g.reverse[c]) }

// RecalcOrder returns roots together with all of their transitive
// dependents, ordered so that every cell comes after the cells it reads.
// Each cell appears once. Ties break row-major.
func (g *Graph) RecalcOrder(roots ...cell.Coord) []cell.Coord {
	affected := make(set)
	for _, r := range roots {
		affected[r] = true
		g.collectDescendants(r, affected)
	}
	return g.order(affected)
}

// Order returns nodes in dependency order, precedents first.
func (g *Graph) Order(nodes []cell.Coord) []cell.Coord {
	s := make(set, len(nodes))
	for _, n := range nodes {
		s[n] = true
	}
	return g.order(s)
}

// Len is the number of cells with at least one precedent.
func (g *Graph) Len() int { return len(g.adjacency) }

// Clone returns an independent copy of g.
func (g *Graph) Clone() *Graph {
	out := New()
	for c, precs := range g.adjacency {
		out.adjacency[c] = copySet(precs)
	}
	for c, deps := range g.reverse {
		out.reverse[c] = copySet(deps)
	}
	return out
}

// order is Kahn's algorithm restricted to the cells in s.
func (g *Graph) order(s set) []cell.Coord {
	inDegree := make(map[cell.Coord]int, len(s))
	for c := range s {
		for p := range g.adjacency[c] {
			if s[p] {
				inDegree[c]++
			}
		}
	}
	var queue []cell.Coord
	for c := range s {
		if inDegree[c] == 0 {
			queue = append(queue, c)
		}
	}
	sortCoords(queue)

	out := make([]cell.Coord, 0, len(s))
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		out = append(out, c)

		var freed []cell.Coord
		for d := range g.reverse[c] {
			if !s[d] {
				continue
			}
			inDegree[d]--
			if inDegree[d] == 0 {
				freed = append(freed, d)
			}
		}
		sortCoords(freed)
		queue = append(queue, freed...)
	}
	return out
}

// path returns a chain of precedent edges from src to dst, or nil.
func (g *Graph) path(src, dst cell.Coord) []cell.Coord {
	if src == dst {
		return []cell.Coord{src}
	}
	parent := map[cell.Coord]cell.Coord{}
	visited := set{src: true}
	queue := []cell.Coord{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range sorted(g.adjacency[cur]) {
			if visited[p] {
				continue
			}
			visited[p] = true
			parent[p] = cur
			if p == dst {
				chain := []cell.Coord{dst}
				for n := dst; n != src; {
					n = parent[n]
					chain = append([]cell.Coord{n}, chain...)
				}
				return chain
			}
			queue = append(queue, p)
		}
	}
	return nil
}

func (g *Graph) collectDescendants(c cell.Coord, visited set) {
	for d := range g.reverse[c] {
		if !visited[d] {
			visited[d] = true
			g.collectDescendants(d, visited)
		}
	}
}

func joinPath(path []cell.Coord) string {
	parts := make([]string, len(path))
	for i, c := range path {
		parts[i] = c.String()
	}
	return strings.Join(parts, " → ")
}

func sorted(s set) []cell.Coord {
	if len(s) == 0 {
		return nil
	}
	out := make([]cell.Coord, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

func sortCoords(cs []cell.Coord) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}

func copySet(s set) set {
	out := make(set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
