package graph

import (
	"errors"
	"iter"
)

// ErrSelfEdge is returned when both endpoints of a connection are the same system.
var ErrSelfEdge = errors.New("graph: self-edge")

// Node is a solar system in the graph. Neighbours are kept in insertion order
// so that iteration is deterministic.
type Node struct {
	order []int32
	edges map[int32]Edge
}

func (n *Node) set(to int32, e Edge) {
	if _, ok := n.edges[to]; !ok {
		n.order = append(n.order, to)
	}
	n.edges[to] = e
}

// Graph is an undirected graph of solar systems. Each direction of a
// connection is stored on its own node, so the two sides of a wormhole can
// carry different signatures.
//
// A Graph is not safe for concurrent mutation. Once built and published it is
// treated as read-only and may be queried from any number of goroutines.
type Graph struct {
	nodes map[int32]*Node
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[int32]*Node)}
}

// AddSystem creates the node for id if it does not exist and returns it.
func (g *Graph) AddSystem(id int32) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{edges: make(map[int32]Edge)}
	g.nodes[id] = n
	return n
}

// AddGate inserts a stargate between a and b in both directions.
func (g *Graph) AddGate(a, b int32) error {
	if a == b {
		return ErrSelfEdge
	}
	g.AddSystem(a).set(b, Gate{})
	g.AddSystem(b).set(a, Gate{})
	return nil
}

// WormholeLink describes a physical wormhole with the signature and type code
// observed on each side.
type WormholeLink struct {
	SigA, CodeA string
	SigB, CodeB string
	Size        Size
	Life        Life
	Mass        Mass
	AgeHours    float64
}

// AddWormhole inserts a wormhole between a and b. The a→b edge carries SigA and
// CodeA, the b→a edge carries SigB and CodeB; everything else is shared.
func (g *Graph) AddWormhole(a, b int32, l WormholeLink) error {
	if a == b {
		return ErrSelfEdge
	}
	g.AddSystem(a).set(b, Wormhole{
		Signature: l.SigA, Code: l.CodeA,
		Size: l.Size, Life: l.Life, Mass: l.Mass, AgeHours: l.AgeHours,
	})
	g.AddSystem(b).set(a, Wormhole{
		Signature: l.SigB, Code: l.CodeB,
		Size: l.Size, Life: l.Life, Mass: l.Mass, AgeHours: l.AgeHours,
	})
	return nil
}

// Contains reports whether id is a node of the graph.
func (g *Graph) Contains(id int32) bool {
	_, ok := g.nodes[id]
	return ok
}

// Edge returns the edge from a to b as seen from a.
func (g *Graph) Edge(a, b int32) (Edge, bool) {
	n, ok := g.nodes[a]
	if !ok {
		return nil, false
	}
	e, ok := n.edges[b]
	return e, ok
}

// Neighbors yields every neighbour of id with the edge leading to it.
// Each call starts a fresh iteration; unknown ids yield nothing.
func (g *Graph) Neighbors(id int32) iter.Seq2[int32, Edge] {
	return func(yield func(int32, Edge) bool) {
		n, ok := g.nodes[id]
		if !ok {
			return
		}
		for _, to := range n.order {
			if !yield(to, n.edges[to]) {
				return
			}
		}
	}
}

// systems yields every node id in unspecified order.
func (g *Graph) systems() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		for id := range g.nodes {
			if !yield(id) {
				return
			}
		}
	}
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// WormholeCount returns the number of physical wormholes (each counted once).
func (g *Graph) WormholeCount() int {
	directed := 0
	for _, n := range g.nodes {
		for _, e := range n.edges {
			if _, ok := e.(Wormhole); ok {
				directed++
			}
		}
	}
	return directed / 2
}
