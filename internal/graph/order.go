package graph

import (
	"container/heap"
	"sort"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Plan is the frozen execution plan of one run.
type Plan struct {
	// Order is the deterministic topological order of enabled nodes.
	Order []string

	// Index maps node id to its position in Order.
	Index map[string]int

	// Preds and Succs are the deduplicated enabled edges, ids ascending.
	Preds map[string][]string
	Succs map[string][]string

	// Ancestors maps each node to every enabled node with a path to it.
	Ancestors map[string]map[string]bool

	// Nodes holds every node of the snapshot, enabled or not.
	Nodes map[string]model.Node

	// Disabled lists disabled node ids, ascending.
	Disabled []string
}

// Order computes a topological order of the enabled nodes using Kahn's
// algorithm. Among ready nodes the lowest (SequenceOrder, ID) goes first.
// Nodes left unordered after the loop mean a residual cycle, reported as
// CycleDetected.
func Order(nodes []model.Node, conns []model.Connection) ([]string, error) {
	return order(buildAdjacency(nodes, conns))
}

func order(adj *adjacency) ([]string, error) {
	inDegree := make(map[string]int, len(adj.ids))
	for _, id := range adj.ids {
		inDegree[id] = len(adj.pred[id])
	}

	ready := &readyQueue{}
	for _, id := range adj.ids {
		if inDegree[id] == 0 {
			heap.Push(ready, adj.nodes[id])
		}
	}

	result := make([]string, 0, len(adj.ids))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(model.Node)
		result = append(result, n.ID)
		for _, next := range adj.succ[n.ID] {
			inDegree[next]--
			if inDegree[next] == 0 {
				heap.Push(ready, adj.nodes[next])
			}
		}
	}

	if len(result) != len(adj.ids) {
		var residual []string
		for _, id := range adj.ids {
			if inDegree[id] > 0 {
				residual = append(residual, id)
			}
		}
		path := adj.findCycle(residual)
		if path == nil {
			path = []string{residual[0]}
		}
		return nil, newGraphError([]Problem{cycleProblem(path)})
	}
	return result, nil
}

// NewPlan orders the snapshot and records the edge sets the executor needs.
func NewPlan(proc model.ProcessDefinition) (*Plan, error) {
	adj := buildAdjacency(proc.Nodes, proc.Connections)
	ord, err := order(adj)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Order:     ord,
		Index:     make(map[string]int, len(ord)),
		Preds:     adj.pred,
		Succs:     adj.succ,
		Ancestors: make(map[string]map[string]bool, len(ord)),
		Nodes:     make(map[string]model.Node, len(proc.Nodes)),
	}
	for i, id := range ord {
		p.Index[id] = i
		p.Ancestors[id] = adj.ancestors(id)
	}
	for _, n := range proc.Nodes {
		p.Nodes[n.ID] = n
		if !n.Enabled {
			p.Disabled = append(p.Disabled, n.ID)
		}
	}
	sort.Strings(p.Disabled)
	return p, nil
}

// IsAncestor reports whether anc has a path to id.
func (p *Plan) IsAncestor(anc, id string) bool {
	return p.Ancestors[id][anc]
}

// Descendants returns every enabled node reachable from id, in plan order.
func (p *Plan) Descendants(id string) []string {
	seen := make(map[string]bool)
	queue := append([]string(nil), p.Succs[id]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		queue = append(queue, p.Succs[n]...)
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return p.Index[out[i]] < p.Index[out[j]] })
	return out
}

// readyQueue is a min-heap of nodes keyed by (SequenceOrder, ID).
type readyQueue []model.Node

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].SequenceOrder != q[j].SequenceOrder {
		return q[i].SequenceOrder < q[j].SequenceOrder
	}
	return q[i].ID < q[j].ID
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) { *q = append(*q, x.(model.Node)) }

func (q *readyQueue) Pop() any {
	old := *q
	n := old[len(old)-1]
	*q = old[:len(old)-1]
	return n
}
