package graph

// ShortestPath returns the minimum-hop path from source to destination using
// only edges accepted by admit. Systems in avoid are never entered. A nil admit
// accepts every edge.
//
// The result includes both endpoints. source == destination yields
// []int32{source} whenever the system exists, regardless of avoid. A nil slice
// means there is no path or an endpoint is unknown.
func ShortestPath(g *Graph, source, destination int32, avoid map[int32]bool, admit EdgeFilter) []int32 {
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
	visited[source] = true
	parent := make(map[int32]int32)

	queue := []int32{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == destination {
			return reconstruct(parent, source, destination)
		}
		for neighbor, edge := range g.Neighbors(current) {
			if visited[neighbor] {
				continue
			}
			// A rejected edge leaves the neighbour open for another edge type.
			if admit != nil && !admit(edge) {
				continue
			}
			visited[neighbor] = true
			parent[neighbor] = current
			queue = append(queue, neighbor)
		}
	}
	return nil
}

// reconstruct walks parent pointers back from destination.
func reconstruct(parent map[int32]int32, source, destination int32) []int32 {
	path := []int32{destination}
	for cur := destination; cur != source; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
