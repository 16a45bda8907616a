// Package flowgraph provides topology analysis of an assembled pipeline.
package flowgraph

import (
	"fmt"
	"sort"

	"github.com/c360/flowpipe/node"
)

// FlowGraph is a directed graph of pipeline nodes and their connections.
type FlowGraph struct {
	nodes map[string]*Node
	order []string
	edges []Edge
}

// Node is a pipeline node in the flow graph.
type Node struct {
	Name        string
	Kind        node.Kind
	Activatable bool
	InputPorts  []PortInfo
	OutputPorts []PortInfo
}

// PortInfo describes one port of a node.
type PortInfo struct {
	Index int
	Type  string
}

// PortRef references a port of a node.
type PortRef struct {
	Node string `json:"node"`
	Port int    `json:"port"`
}

func (r PortRef) String() string {
	return fmt.Sprintf("%s:%d", r.Node, r.Port)
}

// Edge is a connection from an output port to an input port.
type Edge struct {
	From PortRef `json:"from"`
	To   PortRef `json:"to"`
	Type string  `json:"type"`
}

// AnalysisResult contains the results of connectivity analysis.
type AnalysisResult struct {
	ConnectedComponents [][]string         `json:"connected_components"`
	ConnectedEdges      []Edge             `json:"connected_edges"`
	DisconnectedNodes   []DisconnectedNode `json:"disconnected_nodes"`
	OrphanedPorts       []OrphanedPort     `json:"orphaned_ports"`
	Cycles              [][]string         `json:"cycles"`
	ValidationStatus    string             `json:"validation_status"`
}

// DisconnectedNode is a node with no connections.
type DisconnectedNode struct {
	Node  string `json:"node"`
	Issue string `json:"issue"`
}

// OrphanedPort is a port with no connections.
type OrphanedPort struct {
	Node      string `json:"node"`
	Port      int    `json:"port"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
	Issue     string `json:"issue"`
}

// Validation states.
const (
	StatusHealthy  = "healthy"
	StatusWarnings = "warnings"
)

// Orphan issues.
const (
	IssueNoPredecessors = "no_predecessors"
	IssueNoSuccessors   = "no_successors"
)

// NewFlowGraph creates an empty FlowGraph.
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{nodes: make(map[string]*Node)}
}

// AddNode adds n under name, reading its ports.
func (g *FlowGraph) AddNode(name string, n node.Node) error {
	if name == "" {
		return fmt.Errorf("node name cannot be empty")
	}
	if n == nil {
		return fmt.Errorf("node %s cannot be nil", name)
	}
	if _, exists := g.nodes[name]; exists {
		return fmt.Errorf("node %s already exists in graph", name)
	}

	fn := &Node{Name: name, Kind: n.Kind()}
	_, fn.Activatable = n.(node.Activatable)
	for i := 0; ; i++ {
		r, ok := n.Receiver(i)
		if !ok {
			break
		}
		fn.InputPorts = append(fn.InputPorts, PortInfo{Index: i, Type: r.Type().String()})
	}
	for i := 0; ; i++ {
		s, ok := n.Sender(i)
		if !ok {
			break
		}
		fn.OutputPorts = append(fn.OutputPorts, PortInfo{Index: i, Type: s.Type().String()})
	}

	g.nodes[name] = fn
	g.order = append(g.order, name)
	return nil
}

// AddEdge records a connection between two known ports.
func (g *FlowGraph) AddEdge(from, to PortRef) error {
	src, ok := g.nodes[from.Node]
	if !ok {
		return fmt.Errorf("node %s not in graph", from.Node)
	}
	dst, ok := g.nodes[to.Node]
	if !ok {
		return fmt.Errorf("node %s not in graph", to.Node)
	}
	if from.Port < 0 || from.Port >= len(src.OutputPorts) {
		return fmt.Errorf("node %s has no output %d", from.Node, from.Port)
	}
	if to.Port < 0 || to.Port >= len(dst.InputPorts) {
		return fmt.Errorf("node %s has no input %d", to.Node, to.Port)
	}

	g.edges = append(g.edges, Edge{From: from, To: to, Type: src.OutputPorts[from.Port].Type})
	return nil
}

// GetNodes returns a copy of the nodes.
func (g *FlowGraph) GetNodes() map[string]*Node {
	result := make(map[string]*Node, len(g.nodes))
	for k, v := range g.nodes {
		cp := *v
		cp.InputPorts = append([]PortInfo(nil), v.InputPorts...)
		cp.OutputPorts = append([]PortInfo(nil), v.OutputPorts...)
		result[k] = &cp
	}
	return result
}

// GetEdges returns a copy of the edges.
func (g *FlowGraph) GetEdges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// AnalyzeConnectivity reports components, disconnected nodes, orphaned ports
// and cycles. A cycle without a functional node, an unconnected node or an
// input nothing feeds makes the status "warnings".
func (g *FlowGraph) AnalyzeConnectivity() *AnalysisResult {
	result := &AnalysisResult{
		ConnectedEdges:      g.GetEdges(),
		ConnectedComponents: g.findConnectedComponents(),
		DisconnectedNodes:   []DisconnectedNode{},
		OrphanedPorts:       g.findOrphanedPorts(),
		Cycles:              g.findCycles(),
		ValidationStatus:    StatusHealthy,
	}

	degree := make(map[string]int)
	for _, e := range g.edges {
		degree[e.From.Node]++
		degree[e.To.Node]++
	}
	for _, name := range g.order {
		if degree[name] == 0 {
			result.DisconnectedNodes = append(result.DisconnectedNodes, DisconnectedNode{
				Node:  name,
				Issue: "node has no connections",
			})
		}
	}

	critical := false
	for _, p := range result.OrphanedPorts {
		if p.Issue == IssueNoPredecessors {
			critical = true
			break
		}
	}
	for _, cycle := range result.Cycles {
		if !g.hasFunctional(cycle) {
			critical = true
			break
		}
	}
	if critical || len(result.DisconnectedNodes) > 0 {
		result.ValidationStatus = StatusWarnings
	}
	return result
}

func (g *FlowGraph) hasFunctional(names []string) bool {
	for _, name := range names {
		if g.nodes[name].Kind == node.Functional {
			return true
		}
	}
	return false
}

// findConnectedComponents uses DFS over the undirected edges; components come
// out in declaration order of their first node.
func (g *FlowGraph) findConnectedComponents() [][]string {
	adj := make(map[string][]string)
	for _, e := range g.edges {
		adj[e.From.Node] = append(adj[e.From.Node], e.To.Node)
		adj[e.To.Node] = append(adj[e.To.Node], e.From.Node)
	}

	visited := make(map[string]bool)
	components := [][]string{}
	for _, name := range g.order {
		if visited[name] {
			continue
		}
		var cluster []string
		g.dfs(name, adj, visited, &cluster)
		sort.Strings(cluster)
		components = append(components, cluster)
	}
	return components
}

func (g *FlowGraph) dfs(name string, adj map[string][]string, visited map[string]bool, cluster *[]string) {
	visited[name] = true
	*cluster = append(*cluster, name)
	for _, next := range adj[name] {
		if !visited[next] {
			g.dfs(next, adj, visited, cluster)
		}
	}
}

// findOrphanedPorts lists ports no edge touches. An unfed output is only
// informational: its values can still be pulled with TryGet.
func (g *FlowGraph) findOrphanedPorts() []OrphanedPort {
	in := make(map[PortRef]bool)
	out := make(map[PortRef]bool)
	for _, e := range g.edges {
		out[e.From] = true
		in[e.To] = true
	}

	orphaned := []OrphanedPort{}
	for _, name := range g.order {
		n := g.nodes[name]
		for _, p := range n.InputPorts {
			if !in[PortRef{Node: name, Port: p.Index}] {
				orphaned = append(orphaned, OrphanedPort{
					Node: name, Port: p.Index, Direction: "input", Type: p.Type, Issue: IssueNoPredecessors,
				})
			}
		}
		for _, p := range n.OutputPorts {
			if !out[PortRef{Node: name, Port: p.Index}] {
				orphaned = append(orphaned, OrphanedPort{
					Node: name, Port: p.Index, Direction: "output", Type: p.Type, Issue: IssueNoSuccessors,
				})
			}
		}
	}
	return orphaned
}

// findCycles returns the strongly connected components with more than one
// node, or a single node feeding itself (Tarjan).
func (g *FlowGraph) findCycles() [][]string {
	succ := make(map[string][]string)
	self := make(map[string]bool)
	for _, e := range g.edges {
		succ[e.From.Node] = append(succ[e.From.Node], e.To.Node)
		if e.From.Node == e.To.Node {
			self[e.From.Node] = true
		}
	}

	var (
		index   int
		stack   []string
		onStack = make(map[string]bool)
		indices = make(map[string]int)
		low     = make(map[string]int)
		cycles  = [][]string{}
		visit   func(string)
	)
	visit = func(v string) {
		indices[v], low[v] = index, index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range succ[v] {
			if _, seen := indices[w]; !seen {
				visit(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], indices[w])
			}
		}

		if low[v] != indices[v] {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || self[v] {
			sort.Strings(scc)
			cycles = append(cycles, scc)
		}
	}

	for _, name := range g.order {
		if _, seen := indices[name]; !seen {
			visit(name)
		}
	}
	return cycles
}
