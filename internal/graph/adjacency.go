package graph

import (
	"sort"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// adjacency is the enabled subgraph: edges touching disabled or unknown
// nodes are dropped and parallel edges collapse to one.
type adjacency struct {
	nodes map[string]model.Node
	ids   []string // enabled ids, ascending
	succ  map[string][]string
	pred  map[string][]string
}

func buildAdjacency(nodes []model.Node, conns []model.Connection) *adjacency {
	a := &adjacency{
		nodes: make(map[string]model.Node, len(nodes)),
		succ:  make(map[string][]string),
		pred:  make(map[string][]string),
	}
	for _, n := range nodes {
		if !n.Enabled {
			continue
		}
		a.nodes[n.ID] = n
		a.ids = append(a.ids, n.ID)
	}
	sort.Strings(a.ids)

	seen := make(map[[2]string]bool)
	for _, c := range conns {
		if _, ok := a.nodes[c.From]; !ok {
			continue
		}
		if _, ok := a.nodes[c.To]; !ok {
			continue
		}
		key := [2]string{c.From, c.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		a.succ[c.From] = append(a.succ[c.From], c.To)
		a.pred[c.To] = append(a.pred[c.To], c.From)
	}
	for id := range a.succ {
		sort.Strings(a.succ[id])
	}
	for id := range a.pred {
		sort.Strings(a.pred[id])
	}
	return a
}

// findCycle runs a DFS with a recursion-stack marker over ids (in order)
// and returns the first back-edge cycle as a closed path, or nil.
func (a *adjacency) findCycle(ids []string) []string {
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(ids))
	var stack []string
	var cycle []string

	var visit func(v string) bool
	visit = func(v string) bool {
		color[v] = gray
		stack = append(stack, v)
		for _, w := range a.succ[v] {
			switch color[w] {
			case gray:
				for i, s := range stack {
					if s == w {
						cycle = append(append([]string(nil), stack[i:]...), w)
						break
					}
				}
				return true
			case white:
				if visit(w) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[v] = black
		return false
	}

	for _, id := range ids {
		if color[id] == white && visit(id) {
			return cycle
		}
	}
	return nil
}

// ancestors returns every node with a path to id.
func (a *adjacency) ancestors(id string) map[string]bool {
	out := make(map[string]bool)
	queue := append([]string(nil), a.pred[id]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if out[n] {
			continue
		}
		out[n] = true
		queue = append(queue, a.pred[n]...)
	}
	delete(out, id)
	return out
}
