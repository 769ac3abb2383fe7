package resolver

import "time"

// CriticalPath returns the longest chain of dependent suites by estimated
// duration, and its total. Each node's best suffix is computed once, in
// reverse topological order.
func CriticalPath(g *Graph) ([]string, time.Duration) {
	if g == nil || g.Len() == 0 {
		return nil, 0
	}

	order := g.topologicalOrder()
	best := make(map[string]time.Duration, len(order))
	next := make(map[string]string, len(order))

	for i := len(order) - 1; i >= 0; i-- {
		node := g.Nodes[order[i]]
		var tail time.Duration
		for _, depID := range node.Dependents {
			if best[depID] > tail || (next[node.ID] == "" && best[depID] == tail) {
				tail = best[depID]
				next[node.ID] = depID
			}
		}
		best[node.ID] = node.EstimatedDuration + tail
	}

	start := ""
	for _, id := range g.Levels[0] {
		if start == "" || best[id] > best[start] {
			start = id
		}
	}

	var path []string
	for id := start; id != ""; id = next[id] {
		path = append(path, id)
	}
	return path, best[start]
}
