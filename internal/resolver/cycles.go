package resolver

import "github.com/suitepilot/suitepilot/internal/model"

// DetectCycles looks for a dependency cycle using a depth-first search with
// an explicit recursion stack. It returns the first cycle found as a path
// whose first and last elements are the same suite, or nil when the suites
// are acyclic. References to unknown suites are ignored here.
func DetectCycles(suites []model.SuiteDescriptor) []string {
	deps := make(map[string][]string, len(suites))
	for _, s := range suites {
		deps[s.ID] = s.Dependencies
	}

	visited := make(map[string]bool, len(suites))
	onStack := make(map[string]int) // id -> index in stack
	var stack []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		visited[id] = true
		onStack[id] = len(stack)
		stack = append(stack, id)

		for _, depID := range deps[id] {
			if _, known := deps[depID]; !known {
				continue
			}
			if start, ok := onStack[depID]; ok {
				cycle := append([]string(nil), stack[start:]...)
				return append(cycle, depID)
			}
			if !visited[depID] {
				if cycle := dfs(depID); cycle != nil {
					return cycle
				}
			}
		}

		stack = stack[:len(stack)-1]
		delete(onStack, id)
		return nil
	}

	for _, s := range suites {
		if visited[s.ID] {
			continue
		}
		if cycle := dfs(s.ID); cycle != nil {
			return cycle
		}
	}
	return nil
}
