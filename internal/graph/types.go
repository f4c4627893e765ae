// Package graph provides the mapper dependency graph for Congregate.
//
// Nodes are mapper names and edges point from a prerequisite mapper to the
// mappers that consume the entities it produces. A valid run order is any
// topological order of this graph.
package graph

// Edge represents a prerequisite relationship between mappers.
type Edge struct {
	From string // Prerequisite mapper name
	To   string // Dependent mapper name
}

// Graph represents the complete prerequisite structure of an import run.
type Graph struct {
	Nodes    map[string]bool     // mapper name -> present
	Children map[string][]string // mapper name -> dependents (outgoing edges)
	Parents  map[string][]string // mapper name -> prerequisites (incoming edges)
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:    make(map[string]bool),
		Children: make(map[string][]string),
		Parents:  make(map[string][]string),
	}
}

// AddNode adds a mapper node to the graph.
func (g *Graph) AddNode(name string) {
	g.Nodes[name] = true
}

// AddEdge adds a prerequisite -> dependent relationship to the graph.
// Both endpoints are added as nodes if not already present.
func (g *Graph) AddEdge(prerequisite, dependent string) {
	g.AddNode(prerequisite)
	g.AddNode(dependent)

	g.Children[prerequisite] = append(g.Children[prerequisite], dependent)
	g.Parents[dependent] = append(g.Parents[dependent], prerequisite)
}

// GetChildren returns all direct dependents of a mapper.
func (g *Graph) GetChildren(prerequisite string) []string {
	return g.Children[prerequisite]
}

// GetParents returns all direct prerequisites of a mapper.
func (g *Graph) GetParents(dependent string) []string {
	return g.Parents[dependent]
}

// HasNode returns true if the graph contains a node with the given name.
func (g *Graph) HasNode(name string) bool {
	return g.Nodes[name]
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.Nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.Children {
		count += len(children)
	}
	return count
}

// AllNodes returns a slice of all mapper names in the graph.
func (g *Graph) AllNodes() []string {
	nodes := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		nodes = append(nodes, name)
	}
	return nodes
}

// AllEdges returns a slice of all edges in the graph.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for prerequisite, children := range g.Children {
		for _, child := range children {
			edges = append(edges, Edge{From: prerequisite, To: child})
		}
	}
	return edges
}

// InDegree returns the number of incoming edges (prerequisites) for a node.
func (g *Graph) InDegree(name string) int {
	return len(g.Parents[name])
}

// OutDegree returns the number of outgoing edges (dependents) for a node.
func (g *Graph) OutDegree(name string) int {
	return len(g.Children[name])
}
