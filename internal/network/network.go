package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Capability tags a road edge with the infrastructure it provides.
type Capability string

const (
	CapRoad      Capability = "road"
	CapTramTrack Capability = "tram-track"
	CapHighway   Capability = "highway"
)

// CapabilitySet is the set of edge tags a vehicle class may traverse.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given tags.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Contains reports whether the tag is in the set.
func (s CapabilitySet) Contains(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Key returns a stable string form, usable as a cache-key component.
func (s CapabilitySet) Key() string {
	tags := make([]string, 0, len(s))
	for c := range s {
		tags = append(tags, string(c))
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

var (
	ErrUnknownNode   = errors.New("network: unknown node")
	ErrUnknownEdge   = errors.New("network: unknown edge")
	ErrDuplicateEdge = errors.New("network: duplicate edge")
	ErrInvalidWeight = errors.New("network: invalid weight")
)

// Node is a station or junction. Identity is immutable; the position is
// display-only.
type Node struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Edge is a directed road segment. Weight is the current traversal cost,
// never below BaseWeight and always positive.
type Edge struct {
	ID         string     `json:"id"`
	From       string     `json:"from"`
	To         string     `json:"to"`
	Capability Capability `json:"capability"`
	BaseWeight float64    `json:"base_weight"`
	Weight     float64    `json:"weight"`
}

// RoadNetwork is the shared directed weighted graph. All mutation goes
// through it; a monotonically increasing version counter is bumped on every
// effective weight change so cached paths can be invalidated. Readers take
// an atomic Snapshot and never observe a partial update.
type RoadNetwork struct {
	mu      sync.RWMutex
	nodes   map[string]Node
	edges   map[string]*Edge
	out     map[string][]*Edge
	version uint64
}

// New returns an empty network at version 0.
func New() *RoadNetwork {
	return &RoadNetwork{
		nodes: make(map[string]Node),
		edges: make(map[string]*Edge),
		out:   make(map[string][]*Edge),
	}
}

// AddNode registers a node. Re-adding an existing node updates its position.
func (n *RoadNetwork) AddNode(id string, x, y float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[id] = Node{ID: id, X: x, Y: y}
}

// AddEdge inserts a directed edge between two known nodes.
func (n *RoadNetwork) AddEdge(id, from, to string, cap Capability, baseWeight float64) error {
	if baseWeight <= 0 {
		return fmt.Errorf("network: edge %s: base weight %.2f: %w", id, baseWeight, ErrInvalidWeight)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.nodes[from]; !ok {
		return fmt.Errorf("network: edge %s: from %q: %w", id, from, ErrUnknownNode)
	}
	if _, ok := n.nodes[to]; !ok {
		return fmt.Errorf("network: edge %s: to %q: %w", id, to, ErrUnknownNode)
	}
	if _, ok := n.edges[id]; ok {
		return fmt.Errorf("network: edge %s: %w", id, ErrDuplicateEdge)
	}
	for _, e := range n.out[from] {
		if e.To == to && e.Capability == cap {
			return fmt.Errorf("network: edge %s: %s->%s (%s): %w", id, from, to, cap, ErrDuplicateEdge)
		}
	}
	e := &Edge{ID: id, From: from, To: to, Capability: cap, BaseWeight: baseWeight, Weight: baseWeight}
	n.edges[id] = e
	n.out[from] = append(n.out[from], e)
	return nil
}

// SetEdgeWeight mutates the current weight of an edge. Weights at or below
// zero are rejected; values below the base-weight floor are clamped up to
// it. The version counter is bumped only when the weight actually changes,
// making repeated identical mutations idempotent.
func (n *RoadNetwork) SetEdgeWeight(id string, weight float64) error {
	if weight <= 0 {
		return fmt.Errorf("network: edge %s: weight %.2f: %w", id, weight, ErrInvalidWeight)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.edges[id]
	if !ok {
		return fmt.Errorf("network: edge %s: %w", id, ErrUnknownEdge)
	}
	if weight < e.BaseWeight {
		weight = e.BaseWeight
	}
	if e.Weight == weight {
		return nil
	}
	e.Weight = weight
	n.version++
	return nil
}

// Version returns the current graph version.
func (n *RoadNetwork) Version() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.version
}

// Edge returns a copy of the edge with the given id.
func (n *RoadNetwork) Edge(id string) (Edge, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// EdgeIDs returns all edge ids in stable order.
func (n *RoadNetwork) EdgeIDs() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]string, 0, len(n.edges))
	for id := range n.edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot returns an immutable, internally consistent view of the graph:
// the version and every edge weight are captured under one read lock.
func (n *RoadNetwork) Snapshot() *Topology {
	n.mu.RLock()
	defer n.mu.RUnlock()
	t := &Topology{
		Version: n.version,
		nodes:   make(map[string]Node, len(n.nodes)),
		edges:   make(map[string]Edge, len(n.edges)),
		out:     make(map[string][]Edge, len(n.out)),
	}
	for id, nd := range n.nodes {
		t.nodes[id] = nd
	}
	for id, e := range n.edges {
		t.edges[id] = *e
	}
	for from, es := range n.out {
		copied := make([]Edge, len(es))
		for i, e := range es {
			copied[i] = *e
		}
		t.out[from] = copied
	}
	return t
}

// Topology is a frozen view of the network at a single version.
type Topology struct {
	Version uint64
	nodes   map[string]Node
	edges   map[string]Edge
	out     map[string][]Edge
}

// HasNode reports whether the node exists.
func (t *Topology) HasNode(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// Nodes returns all nodes in stable order.
func (t *Topology) Nodes() []Node {
	nodes := make([]Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// Edges returns all edges in stable order.
func (t *Topology) Edges() []Edge {
	edges := make([]Edge, 0, len(t.edges))
	for _, e := range t.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// Edge returns the edge with the given id.
func (t *Topology) Edge(id string) (Edge, bool) {
	e, ok := t.edges[id]
	return e, ok
}

// EdgesFrom returns the outgoing edges of a node restricted to the
// capability set, i.e. the induced subgraph used for multi-modal routing.
func (t *Topology) EdgesFrom(node string, caps CapabilitySet) []Edge {
	all := t.out[node]
	edges := make([]Edge, 0, len(all))
	for _, e := range all {
		if caps.Contains(e.Capability) {
			edges = append(edges, e)
		}
	}
	return edges
}

// Reachable reports whether to can be reached from from within the induced
// subgraph for the capability set.
func (t *Topology) Reachable(from, to string, caps CapabilitySet) bool {
	if !t.HasNode(from) || !t.HasNode(to) {
		return false
	}
	if from == to {
		return true
	}
	visited := map[string]struct{}{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, e := range t.EdgesFrom(cur, caps) {
			if e.To == to {
				return true
			}
			if _, seen := visited[e.To]; !seen {
				visited[e.To] = struct{}{}
				queue = append(queue, e.To)
			}
		}
	}
	return false
}
