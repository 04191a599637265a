package graph

// NodeType identifies which automation component a node represents.
type NodeType string

const (
	NodeTrigger   NodeType = "trigger"
	NodeCondition NodeType = "condition"
	NodeAction    NodeType = "action"
	NodeMetadata  NodeType = "metadata"
)

// nodeColours maps node types to their display colour.
// These match the palette used by the visualisation frontends.
var nodeColours = map[NodeType]string{
	NodeTrigger:   "#4CAF50", // Green
	NodeCondition: "#FFC107", // Amber
	NodeAction:    "#2196F3", // Blue
	NodeMetadata:  "#9E9E9E", // Grey
}

// Node is a single vertex in an automation graph.
//
// IDs are unique within one graph and carry a type-derived prefix
// (e.g. "trigger_1", "action_4"). Data holds the raw configuration
// fragment the node was built from, so frontends can show details
// without re-parsing the definition.
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Type  NodeType       `json:"type"`
	Data  map[string]any `json:"data"`
	Color string         `json:"color,omitempty"`
}

// Edge is a directed connection between two nodes of the same graph.
// The label is optional and describes the control-flow relationship
// ("if", "then", "AND", "option 2", "loop", ...).
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Graph is the complete parsed representation of one automation.
//
// Nodes and Edges preserve creation order, which follows the extraction
// order of the definition (metadata, triggers, conditions, actions).
// A Graph is built once per Parse call and never mutated afterwards.
type Graph struct {
	Nodes    []Node            `json:"nodes"`
	Edges    []Edge            `json:"edges"`
	Metadata map[string]string `json:"metadata"`
}

// NodesOfType returns all nodes of the given type in creation order.
func (g *Graph) NodesOfType(t NodeType) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// EdgesFrom returns all edges originating at the given node ID.
func (g *Graph) EdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}
