package graph

import (
	"fmt"
	"sort"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Contracts resolves the declared inputs and outputs of each node type and
// checks node configuration against the type's schema.
type Contracts interface {
	Contract(t model.NodeType) (model.Contract, bool)
	CheckConfig(n model.Node) error
}

// Validate checks that the enabled subgraph can be run. It returns nil or a
// *GraphError listing every problem found.
//
// Checks, all collected in one pass:
//   - connection endpoints exist in the process (UnknownNode)
//   - no (from, to) pair repeats (DuplicateConnection)
//   - the enabled subgraph is acyclic (CycleDetected, with the cycle path)
//   - each node has a known type and its config satisfies the type schema
//     (InvalidConfiguration)
//   - each required input is a context input or produced by an enabled
//     ancestor (OrphanNode)
//
// Disabled nodes and the edges touching them are ignored.
func Validate(nodes []model.Node, conns []model.Connection, contracts Contracts) error {
	var problems []Problem

	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}

	seen := make(map[[2]string]bool)
	for _, c := range conns {
		for _, end := range []string{c.From, c.To} {
			if !known[end] {
				problems = append(problems, Problem{
					Code:    ErrCodeUnknownNode,
					NodeID:  end,
					Message: fmt.Sprintf("connection %s -> %s references unknown node %q", c.From, c.To, end),
				})
			}
		}
		key := [2]string{c.From, c.To}
		if seen[key] {
			problems = append(problems, Problem{
				Code:    ErrCodeDuplicateConnection,
				NodeID:  c.From,
				Path:    []string{c.From, c.To},
				Message: fmt.Sprintf("duplicate connection %s -> %s", c.From, c.To),
			})
			continue
		}
		seen[key] = true
	}

	adj := buildAdjacency(nodes, conns)
	if cycle := adj.findCycle(adj.ids); cycle != nil {
		problems = append(problems, cycleProblem(cycle))
	}

	typed := make(map[string]model.Contract, len(adj.ids))
	for _, id := range adj.ids {
		n := adj.nodes[id]
		contract, ok := contracts.Contract(n.Type)
		if !ok {
			problems = append(problems, Problem{
				Code:    ErrCodeInvalidConfiguration,
				NodeID:  id,
				Message: fmt.Sprintf("node %s: unknown node type %q", id, n.Type),
			})
			continue
		}
		typed[id] = contract
		if err := contracts.CheckConfig(n); err != nil {
			problems = append(problems, Problem{
				Code:    ErrCodeInvalidConfiguration,
				NodeID:  id,
				Message: fmt.Sprintf("node %s: %v", id, err),
			})
		}
	}

	for _, id := range adj.ids {
		contract, ok := typed[id]
		if !ok {
			continue
		}
		produced := make(map[string]bool)
		for anc := range adj.ancestors(id) {
			for _, out := range typed[anc].Outputs {
				produced[out] = true
			}
		}
		for _, in := range contract.Inputs {
			if model.IsContextInput(in) || produced[in] {
				continue
			}
			problems = append(problems, Problem{
				Code:    ErrCodeOrphanNode,
				NodeID:  id,
				Input:   in,
				Message: fmt.Sprintf("node %s (%s): required input %q is not produced by any predecessor", id, contract.Type, in),
			})
		}
	}

	if len(problems) == 0 {
		return nil
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return codeRank[problems[i].Code] < codeRank[problems[j].Code]
	})
	return newGraphError(problems)
}
