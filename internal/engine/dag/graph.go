// Package dag provides a generic directed acyclic graph and a concurrent executor for it.
package dag

import (
	"maps"
	"slices"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Graph is a directed graph whose vertices carry a payload of type V.
// An edge from a to b means a depends on b. Neighbor lists are always returned sorted by id.
type Graph[V any] struct {
	vertices map[string]V
	out      map[string]map[string]struct{}
	in       map[string]map[string]struct{}
}

// New creates an empty graph.
func New[V any]() *Graph[V] {
	return &Graph[V]{
		vertices: make(map[string]V),
		out:      make(map[string]map[string]struct{}),
		in:       make(map[string]map[string]struct{}),
	}
}

// AddVertex adds a vertex with the given id.
func (g *Graph[V]) AddVertex(id string, v V) error {
	if _, exists := g.vertices[id]; exists {
		return zerr.With(zerr.Wrap(domain.ErrVertexExists, id), "vertex", id)
	}
	g.vertices[id] = v
	g.out[id] = make(map[string]struct{})
	g.in[id] = make(map[string]struct{})
	return nil
}

// AddEdge records that from depends on to. Adding an existing edge is a no-op.
func (g *Graph[V]) AddEdge(from, to string) error {
	if _, ok := g.vertices[from]; !ok {
		return zerr.With(zerr.Wrap(domain.ErrVertexNotFound, from), "vertex", from)
	}
	if _, ok := g.vertices[to]; !ok {
		return zerr.With(zerr.Wrap(domain.ErrVertexNotFound, to), "vertex", to)
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	return nil
}

// HasEdge reports whether from depends on to.
func (g *Graph[V]) HasEdge(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

// Vertex returns the payload of id.
func (g *Graph[V]) Vertex(id string) (V, bool) {
	v, ok := g.vertices[id]
	return v, ok
}

// Has reports whether id is a vertex of the graph.
func (g *Graph[V]) Has(id string) bool {
	_, ok := g.vertices[id]
	return ok
}

// Len returns the number of vertices.
func (g *Graph[V]) Len() int {
	return len(g.vertices)
}

// IDs returns every vertex id in sorted order.
func (g *Graph[V]) IDs() []string {
	return slices.Sorted(maps.Keys(g.vertices))
}

// Neighbors returns the ids id depends on.
func (g *Graph[V]) Neighbors(id string) []string {
	return slices.Sorted(maps.Keys(g.out[id]))
}

// BackNeighbors returns the ids that depend on id.
func (g *Graph[V]) BackNeighbors(id string) []string {
	return slices.Sorted(maps.Keys(g.in[id]))
}

// RemoveVertex deletes id and every edge touching it.
func (g *Graph[V]) RemoveVertex(id string) {
	if _, ok := g.vertices[id]; !ok {
		return
	}
	for to := range g.out[id] {
		delete(g.in[to], id)
	}
	for from := range g.in[id] {
		delete(g.out[from], id)
	}
	delete(g.vertices, id)
	delete(g.out, id)
	delete(g.in, id)
}

// Copy returns a structural clone. Payloads are shared, adjacency is not.
func (g *Graph[V]) Copy() *Graph[V] {
	c := &Graph[V]{
		vertices: maps.Clone(g.vertices),
		out:      make(map[string]map[string]struct{}, len(g.out)),
		in:       make(map[string]map[string]struct{}, len(g.in)),
	}
	for id, edges := range g.out {
		c.out[id] = maps.Clone(edges)
	}
	for id, edges := range g.in {
		c.in[id] = maps.Clone(edges)
	}
	return c
}

// FindCycle returns a cycle as a path whose first and last element are equal,
// or nil when the graph is acyclic.
//
// Vertices without dependencies are peeled off with a LIFO (Kahn). Whatever remains lies on or
// behind a cycle, and following dependencies from any remaining vertex must revisit one.
func (g *Graph[V]) FindCycle() []string {
	outDegree := make(map[string]int, len(g.vertices))
	var stack []string
	for _, id := range g.IDs() {
		outDegree[id] = len(g.out[id])
		if outDegree[id] == 0 {
			stack = append(stack, id)
		}
	}

	removed := 0
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		removed++
		for _, dependent := range g.BackNeighbors(id) {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				stack = append(stack, dependent)
			}
		}
	}
	if removed == len(g.vertices) {
		return nil
	}

	var start string
	for _, id := range g.IDs() {
		if outDegree[id] > 0 {
			start = id
			break
		}
	}

	seen := make(map[string]int)
	var path []string
	for current := start; ; {
		if idx, ok := seen[current]; ok {
			return append(path[idx:], current)
		}
		seen[current] = len(path)
		path = append(path, current)
		for _, next := range g.Neighbors(current) {
			if outDegree[next] > 0 {
				current = next
				break
			}
		}
	}
}

// Validate returns ErrCycleDetected naming the cycle, if any.
func (g *Graph[V]) Validate() error {
	cycle := g.FindCycle()
	if cycle == nil {
		return nil
	}
	path := strings.Join(cycle, " -> ")
	return zerr.With(zerr.Wrap(domain.ErrCycleDetected, path), "cycle", path)
}

// TopologicalOrder returns the ids with every vertex after its dependencies.
// Ties are broken by id, which makes the order deterministic.
func (g *Graph[V]) TopologicalOrder() ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	outDegree := make(map[string]int, len(g.vertices))
	var ready []string
	for _, id := range g.IDs() {
		outDegree[id] = len(g.out[id])
		if outDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(g.vertices))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range g.BackNeighbors(id) {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				pos, _ := slices.BinarySearch(ready, dependent)
				ready = slices.Insert(ready, pos, dependent)
			}
		}
	}
	return order, nil
}

// ReachableFrom returns every vertex reachable from the starting ids by following edges
// in the given direction, including the starting ids.
func (g *Graph[V]) ReachableFrom(start []string, backward bool) map[string]bool {
	seen := make(map[string]bool, len(start))
	queue := slices.Clone(start)
	for _, id := range start {
		seen[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		next := g.Neighbors(id)
		if backward {
			next = g.BackNeighbors(id)
		}
		for _, n := range next {
			if !seen[n] {
				seen[n] = true
				queue = append(queue, n)
			}
		}
	}
	return seen
}
