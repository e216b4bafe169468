package graph

import "container/heap"

// CostFunc returns the non-negative cost of moving into system to over edge.
type CostFunc func(to int32, edge Edge) float64

// ShortestPathWeighted returns the path from source to destination with the
// lowest total cost, using only edges accepted by admit and never entering a
// system in avoid. Equal-cost candidates are expanded in the order they were
// queued. Endpoint and no-path semantics match ShortestPath.
func ShortestPathWeighted(g *Graph, source, destination int32, avoid map[int32]bool, admit EdgeFilter, cost CostFunc) []int32 {
	if !g.Contains(source) || !g.Contains(destination) {
		return nil
	}
	if source == destination {
		return []int32{source}
	}

	visited := make(map[int32]bool, len(avoid)+1)
	for id, ok := range avoid {
		if ok {
			visited[id] = true
		}
	}
	dist := map[int32]float64{source: 0}
	parent := make(map[int32]int32)

	var seq uint64
	pq := &priorityQueue{{systemID: source, dist: 0, seq: seq}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pqItem)
		if visited[item.systemID] && item.systemID != source {
			continue
		}
		if d, ok := dist[item.systemID]; ok && item.dist > d {
			continue
		}
		visited[item.systemID] = true

		if item.systemID == destination {
			return reconstruct(parent, source, destination)
		}
		for neighbor, edge := range g.Neighbors(item.systemID) {
			if visited[neighbor] {
				continue
			}
			if admit != nil && !admit(edge) {
				continue
			}
			nd := item.dist + cost(neighbor, edge)
			if d, ok := dist[neighbor]; !ok || nd < d {
				dist[neighbor] = nd
				parent[neighbor] = item.systemID
				seq++
				heap.Push(pq, pqItem{systemID: neighbor, dist: nd, seq: seq})
			}
		}
	}
	return nil
}

// PathCost sums cost over consecutive hops of path. It returns false if a hop
// has no edge.
func PathCost(g *Graph, path []int32, cost CostFunc) (float64, bool) {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		e, ok := g.Edge(path[i], path[i+1])
		if !ok {
			return 0, false
		}
		total += cost(path[i+1], e)
	}
	return total, true
}

// Priority queue for Dijkstra
type pqItem struct {
	systemID int32
	dist     float64
	seq      uint64
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist == pq[j].dist {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].dist < pq[j].dist
}
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
