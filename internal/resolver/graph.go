package resolver

import (
	"time"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// Node is one suite in the dependency graph. Dependents and Level are
// derived during construction.
type Node struct {
	ID                string
	Name              string
	Dependencies      []string
	Dependents        []string
	Level             int
	EstimatedDuration time.Duration
	Resources         resource.Requirements
}

// Graph is a leveled dependency DAG.
type Graph struct {
	Nodes    map[string]*Node
	Levels   map[int][]string
	MaxLevel int

	order []string // suite ids in input order
}

// Node returns the node for id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// Len returns the number of suites.
func (g *Graph) Len() int {
	return len(g.order)
}

// Order returns suite ids in the order they were declared.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

// BuildGraph constructs the graph: nodes, reverse edges, reference
// validation and levels. Level 0 holds suites without dependencies; every
// other suite sits one level above its deepest dependency.
//
// A reference to an unknown suite fails with ErrMissingDependency. Cyclic
// input fails with ErrDependencyCycle; callers that want the offending path
// should run DetectCycles first.
func BuildGraph(suites []model.SuiteDescriptor) (*Graph, error) {
	g := &Graph{
		Nodes:  make(map[string]*Node, len(suites)),
		Levels: make(map[int][]string),
		order:  make([]string, 0, len(suites)),
	}

	for _, s := range suites {
		if _, dup := g.Nodes[s.ID]; dup {
			return nil, errors.NewDependencyError("duplicate suite", errors.ErrDuplicateSuite).WithSuiteID(s.ID)
		}
		g.Nodes[s.ID] = &Node{
			ID:                s.ID,
			Name:              s.DisplayName(),
			Dependencies:      append([]string(nil), s.Dependencies...),
			EstimatedDuration: s.EstimatedDuration,
			Resources:         s.Resources,
		}
		g.order = append(g.order, s.ID)
	}

	for _, id := range g.order {
		node := g.Nodes[id]
		for _, depID := range node.Dependencies {
			dep, ok := g.Nodes[depID]
			if !ok {
				return nil, errors.NewDependencyError("unknown dependency", errors.ErrMissingDependency).
					WithSuiteID(id).
					WithDependencyID(depID)
			}
			dep.Dependents = append(dep.Dependents, id)
		}
	}

	levels := make(map[string]int, len(g.order))
	inProgress := make(map[string]bool)
	var level func(id string) (int, error)
	level = func(id string) (int, error) {
		if l, ok := levels[id]; ok {
			return l, nil
		}
		if inProgress[id] {
			return 0, errors.NewDependencyError("cannot level cyclic dependencies", errors.ErrDependencyCycle).WithSuiteID(id)
		}
		inProgress[id] = true
		l := 0
		for _, depID := range g.Nodes[id].Dependencies {
			dl, err := level(depID)
			if err != nil {
				return 0, err
			}
			l = max(l, dl+1)
		}
		delete(inProgress, id)
		levels[id] = l
		return l, nil
	}

	for _, id := range g.order {
		l, err := level(id)
		if err != nil {
			return nil, err
		}
		g.Nodes[id].Level = l
		g.Levels[l] = append(g.Levels[l], id)
		g.MaxLevel = max(g.MaxLevel, l)
	}
	return g, nil
}

// topologicalOrder returns suite ids sorted by level, declaration order
// within a level.
func (g *Graph) topologicalOrder() []string {
	out := make([]string, 0, len(g.order))
	for l := 0; l <= g.MaxLevel; l++ {
		out = append(out, g.Levels[l]...)
	}
	return out
}
