package graph

import (
	"fmt"
	"sync"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Store holds the nodes and connections of one process while the builder
// edits them. It performs no validation beyond id bookkeeping.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	process     model.ProcessDefinition
	nodes       map[string]model.Node
	connections []model.Connection
}

// NewStore creates a store seeded with proc's nodes and connections.
func NewStore(proc model.ProcessDefinition) *Store {
	s := &Store{
		process: proc,
		nodes:   make(map[string]model.Node, len(proc.Nodes)),
	}
	s.process.Nodes = nil
	s.process.Connections = nil
	for _, n := range proc.Nodes {
		n.ProcessID = proc.ID
		s.nodes[n.ID] = n.Clone()
	}
	s.connections = append(s.connections, proc.Connections...)
	return s
}

// ProcessID returns the id of the process the store holds.
func (s *Store) ProcessID() string {
	return s.process.ID
}

// AddNode inserts a new node. The id must not already exist.
func (s *Store) AddNode(n model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		return fmt.Errorf("add node: id is required")
	}
	if _, exists := s.nodes[n.ID]; exists {
		return fmt.Errorf("add node: node %q already exists", n.ID)
	}
	n.ProcessID = s.process.ID
	s.nodes[n.ID] = n.Clone()
	return nil
}

// UpdateNode replaces an existing node.
func (s *Store) UpdateNode(n model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[n.ID]; !exists {
		return fmt.Errorf("update node: node %q not found", n.ID)
	}
	n.ProcessID = s.process.ID
	s.nodes[n.ID] = n.Clone()
	return nil
}

// RemoveNode deletes a node and every connection touching it.
func (s *Store) RemoveNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.nodes[id]; !exists {
		return fmt.Errorf("remove node: node %q not found", id)
	}
	delete(s.nodes, id)
	kept := s.connections[:0]
	for _, c := range s.connections {
		if c.From != id && c.To != id {
			kept = append(kept, c)
		}
	}
	s.connections = kept
	return nil
}

// AddConnection appends an edge. Duplicates and dangling endpoints are
// accepted here and reported by Validate.
func (s *Store) AddConnection(c model.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Type == "" {
		c.Type = model.ConnectionSequential
	}
	s.connections = append(s.connections, c)
}

// RemoveConnection deletes every edge from -> to and reports whether any existed.
func (s *Store) RemoveConnection(from, to string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	kept := s.connections[:0]
	for _, c := range s.connections {
		if c.From == from && c.To == to {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	s.connections = kept
	return removed
}

// Nodes returns a copy of all nodes sorted by id.
func (s *Store) Nodes() []model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n.Clone())
	}
	model.SortNodes(out)
	return out
}

// Connections returns a copy of all connections in insertion order.
func (s *Store) Connections() []model.Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Connection(nil), s.connections...)
}

// Snapshot returns a deep copy of the process suitable for a run. Later
// edits to the store do not affect it.
func (s *Store) Snapshot() model.ProcessDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.process
	out.Nodes = make([]model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out.Nodes = append(out.Nodes, n.Clone())
	}
	model.SortNodes(out.Nodes)
	out.Connections = append([]model.Connection(nil), s.connections...)
	return out
}
