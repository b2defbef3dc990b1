package routing

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"

	"github.com/smartcity/transitnet/internal/network"
)

// ErrNoPath is returned when the destination is unreachable under the
// capability restriction.
var ErrNoPath = errors.New("routing: no path found")

// Route is an ordered sequence of edges with its total cost, stamped with
// the graph version it was computed against.
type Route struct {
	Edges   []network.Edge
	Cost    float64
	Version uint64
}

// EdgeIDs returns the route's edge ids in traversal order.
func (r Route) EdgeIDs() []string {
	ids := make([]string, len(r.Edges))
	for i, e := range r.Edges {
		ids[i] = e.ID
	}
	return ids
}

// BaseCost sums the base weights of the route's edges.
func (r Route) BaseCost() float64 {
	var sum float64
	for _, e := range r.Edges {
		sum += e.BaseWeight
	}
	return sum
}

// Penalty sums the traffic surcharge (current minus base weight) along the
// route.
func (r Route) Penalty() float64 {
	var sum float64
	for _, e := range r.Edges {
		sum += e.Weight - e.BaseWeight
	}
	return sum
}

// ShouldReroute implements the mid-trip threshold: the vehicle reroutes
// only when the fresh cost exceeds the old remaining cost by more than the
// tolerance ratio, preventing thrashing on marginal changes.
func ShouldReroute(remaining, fresh, tolerance float64) bool {
	return fresh > remaining*(1+tolerance)
}

// Router answers capability-filtered shortest-path queries over the road
// network. Cached paths are valid only while the graph version they were
// computed at is current; any weight mutation invalidates the whole cache.
type Router struct {
	net   *network.RoadNetwork
	mu    sync.Mutex
	topo  *network.Topology
	cache map[string]Route
}

// New creates a router over the given network.
func New(net *network.RoadNetwork) *Router {
	return &Router{net: net, cache: make(map[string]Route)}
}

// topology returns a snapshot at the current version, dropping every cached
// path when the version moved.
func (r *Router) topology() *network.Topology {
	if r.topo == nil || r.topo.Version != r.net.Version() {
		r.topo = r.net.Snapshot()
		r.cache = make(map[string]Route)
	}
	return r.topo
}

// ShortestPath runs Dijkstra restricted to the induced subgraph for the
// capability set. Tie-break among equal-cost paths: fewer edges first, then
// lowest edge-id sequence, so repeated queries on an unchanged graph are
// reproducible.
func (r *Router) ShortestPath(from, to string, caps network.CapabilitySet) (Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topo := r.topology()
	key := from + "|" + to + "|" + caps.Key()
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}

	if !topo.HasNode(from) || !topo.HasNode(to) {
		return Route{}, fmt.Errorf("routing: %s -> %s: %w", from, to, ErrNoPath)
	}

	best := map[string]pathState{from: {node: from}}
	pq := &pathQueue{{node: from}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathState)
		if better(best[cur.node], cur) {
			continue // superseded entry
		}
		for _, e := range topo.EdgesFrom(cur.node, caps) {
			next := pathState{
				node:  e.To,
				cost:  cur.cost + e.Weight,
				edges: appendEdge(cur.edges, e),
			}
			prev, seen := best[e.To]
			if !seen || better(next, prev) {
				best[e.To] = next
				heap.Push(pq, next)
			}
		}
	}

	goal, ok := best[to]
	if !ok || (from != to && len(goal.edges) == 0) {
		return Route{}, fmt.Errorf("routing: %s -> %s: %w", from, to, ErrNoPath)
	}
	route := Route{Edges: goal.edges, Cost: goal.cost, Version: topo.Version}
	r.cache[key] = route
	return route, nil
}

type pathState struct {
	node  string
	cost  float64
	edges []network.Edge
}

// better orders path states by cost, then hop count, then lexicographic
// edge-id sequence.
func better(a, b pathState) bool {
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.edges) != len(b.edges) {
		return len(a.edges) < len(b.edges)
	}
	for i := range a.edges {
		if a.edges[i].ID != b.edges[i].ID {
			return a.edges[i].ID < b.edges[i].ID
		}
	}
	return false
}

func appendEdge(edges []network.Edge, e network.Edge) []network.Edge {
	out := make([]network.Edge, len(edges)+1)
	copy(out, edges)
	out[len(edges)] = e
	return out
}

type pathQueue []pathState

func (pq pathQueue) Len() int            { return len(pq) }
func (pq pathQueue) Less(i, j int) bool  { return better(pq[i], pq[j]) }
func (pq pathQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *pathQueue) Push(x interface{}) { *pq = append(*pq, x.(pathState)) }
func (pq *pathQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	it := old[n-1]
	*pq = old[:n-1]
	return it
}
