package graph

import "container/heap"

// pathCost is the accumulated weight of one shortest path.
type pathCost struct {
	seconds float64
	meters  float64
}

type queueItem struct {
	node    int64
	seconds float64
	meters  float64
}

type minQueue []queueItem

func (q minQueue) Len() int            { return len(q) }
func (q minQueue) Less(i, j int) bool  { return q[i].seconds < q[j].seconds }
func (q minQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *minQueue) Push(x interface{}) { *q = append(*q, x.(queueItem)) }

func (q *minQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// shortestPaths runs Dijkstra from one node and stops once every target
// is settled. Duplicate queue entries stand in for decrease-key; stale
// entries are skipped on pop. Targets missing from the result are
// unreachable.
func (g *RoadGraph) shortestPaths(from int64, targets map[int64]struct{}) map[int64]pathCost {
	settled := make(map[int64]pathCost, len(targets))
	if _, ok := g.nodes[from]; !ok || len(targets) == 0 {
		return settled
	}

	remaining := len(targets)
	visited := make(map[int64]bool, len(g.nodes))
	dist := map[int64]float64{from: 0}

	q := &minQueue{{node: from}}
	heap.Init(q)

	for q.Len() > 0 && remaining > 0 {
		item := heap.Pop(q).(queueItem)
		if visited[item.node] {
			continue
		}
		visited[item.node] = true

		if _, want := targets[item.node]; want {
			settled[item.node] = pathCost{seconds: item.seconds, meters: item.meters}
			remaining--
		}

		for _, e := range g.adj[item.node] {
			if visited[e.to] {
				continue
			}
			next := item.seconds + e.seconds
			if current, seen := dist[e.to]; seen && next >= current {
				continue
			}
			dist[e.to] = next
			heap.Push(q, queueItem{node: e.to, seconds: next, meters: item.meters + e.meters})
		}
	}
	return settled
}
