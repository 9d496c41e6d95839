package model

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// NodeType identifies one of the ten calculation step kinds.
type NodeType string

const (
	NodeProfitLoss              NodeType = "profit_loss"
	NodeNCIHandling             NodeType = "nci_handling"
	NodeRetainedEarnings        NodeType = "retained_earnings_rollforward"
	NodeFXTranslation           NodeType = "fx_translation"
	NodeIntercompanyElimination NodeType = "intercompany_elimination"
	NodeFairValueAdjustment     NodeType = "fair_value_adjustment"
	NodeDeferredTax             NodeType = "deferred_tax"
	NodeOpeningBalance          NodeType = "opening_balance"
	NodeOCI                     NodeType = "other_comprehensive_income"
	NodeEquityStatement         NodeType = "equity_statement"
)

// NodeTypes lists every node type in catalog order.
var NodeTypes = []NodeType{
	NodeOpeningBalance,
	NodeProfitLoss,
	NodeRetainedEarnings,
	NodeFXTranslation,
	NodeIntercompanyElimination,
	NodeFairValueAdjustment,
	NodeDeferredTax,
	NodeOCI,
	NodeNCIHandling,
	NodeEquityStatement,
}

// Valid reports whether t is one of the enumerated node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ProcessStatus is the builder-side lifecycle of a process definition.
type ProcessStatus string

const (
	ProcessDraft    ProcessStatus = "draft"
	ProcessActive   ProcessStatus = "active"
	ProcessArchived ProcessStatus = "archived"
)

// ConnectionType distinguishes builder edge styles. The engine treats both
// as hard ordering edges.
type ConnectionType string

const (
	ConnectionSequential  ConnectionType = "sequential"
	ConnectionConditional ConnectionType = "conditional"
)

// ProcessDefinition owns the nodes and connections of one consolidation process.
type ProcessDefinition struct {
	ID          string        `json:"id" yaml:"id" validate:"required"`
	Name        string        `json:"name" yaml:"name" validate:"required"`
	FiscalYear  int           `json:"fiscal_year" yaml:"fiscal_year" validate:"gte=1900,lte=2999"`
	Status      ProcessStatus `json:"status" yaml:"status"`
	Nodes       []Node        `json:"nodes" yaml:"nodes" validate:"dive"`
	Connections []Connection  `json:"connections" yaml:"connections" validate:"dive"`
}

// Node is one typed calculation step. Config is decoded against the
// per-type schema before any run.
type Node struct {
	ID            string         `json:"id" yaml:"id" validate:"required"`
	ProcessID     string         `json:"process_id" yaml:"process_id"`
	Type          NodeType       `json:"type" yaml:"type" validate:"required"`
	Title         string         `json:"title" yaml:"title"`
	SequenceOrder int            `json:"sequence_order" yaml:"sequence_order"`
	Config        map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Enabled       bool           `json:"enabled" yaml:"enabled"`
}

// UnmarshalJSON decodes a node. A missing "enabled" key means enabled.
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	p := plain{Enabled: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = Node(p)
	return nil
}

// UnmarshalYAML is UnmarshalJSON for YAML documents.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type plain Node
	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*n = Node(p)
	return nil
}

// Connection is a directed edge From -> To: To depends on From.
type Connection struct {
	From string         `json:"from_node_id" yaml:"from" validate:"required"`
	To   string         `json:"to_node_id" yaml:"to" validate:"required"`
	Type ConnectionType `json:"connection_type" yaml:"type"`
}

// Clone returns a deep copy safe to hand to a run.
func (p ProcessDefinition) Clone() ProcessDefinition {
	out := p
	out.Nodes = make([]Node, len(p.Nodes))
	for i, n := range p.Nodes {
		out.Nodes[i] = n.Clone()
	}
	out.Connections = append([]Connection(nil), p.Connections...)
	return out
}

// Clone returns a deep copy of the node including its config map.
func (n Node) Clone() Node {
	out := n
	out.Config = cloneAnyMap(n.Config)
	return out
}

// NodeByID returns the node with the given id.
func (p ProcessDefinition) NodeByID(id string) (Node, bool) {
	for _, n := range p.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// SortNodes orders nodes by id for deterministic iteration.
func SortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneAnyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cloneAny(elem)
		}
		return out
	default:
		return val
	}
}
