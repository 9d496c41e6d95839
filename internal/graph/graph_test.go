package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// fakeContracts is a two-type catalog: "source" needs only context inputs,
// "sink" needs the "value" output of a source.
type fakeContracts struct {
	badConfig map[string]bool
}

func (f fakeContracts) Contract(t model.NodeType) (model.Contract, bool) {
	switch t {
	case "source":
		return model.Contract{Type: t, Inputs: []string{model.InputEntity}, Outputs: []string{"value"}}, true
	case "sink":
		return model.Contract{Type: t, Inputs: []string{"value"}, Outputs: []string{"total"}}, true
	}
	return model.Contract{}, false
}

func (f fakeContracts) CheckConfig(n model.Node) error {
	if f.badConfig[n.ID] {
		return errors.New("rate must be positive")
	}
	return nil
}

func node(id string, typ model.NodeType, seq int) model.Node {
	return model.Node{ID: id, Type: typ, SequenceOrder: seq, Enabled: true}
}

func edge(from, to string) model.Connection {
	return model.Connection{From: from, To: to, Type: model.ConnectionSequential}
}

func TestValidateAcceptsDAG(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2)}
	err := Validate(nodes, []model.Connection{edge("a", "b")}, fakeContracts{})
	assert.NoError(t, err)
}

func TestValidateCycleNamesNodeOnCycle(t *testing.T) {
	nodes := []model.Node{
		node("a", "source", 1),
		node("b", "sink", 2),
		node("c", "sink", 3),
		node("d", "sink", 4),
	}
	conns := []model.Connection{edge("a", "b"), edge("b", "c"), edge("c", "d"), edge("d", "b")}

	err := Validate(nodes, conns, fakeContracts{})
	require.Error(t, err)
	assert.True(t, IsCycleError(err))

	ge, ok := AsGraphError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeCycleDetected, ge.Code, "cycle is reported first")
	assert.Contains(t, []string{"b", "c", "d"}, ge.NodeID)
	assert.Equal(t, []string{"b", "c", "d", "b"}, ge.Path)
}

func TestValidateSelfLoop(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1)}
	err := Validate(nodes, []model.Connection{edge("a", "a")}, fakeContracts{})
	require.True(t, IsCycleError(err))
	ge, _ := AsGraphError(err)
	assert.Equal(t, "a", ge.NodeID)
	assert.Equal(t, []string{"a", "a"}, ge.Path)
}

func TestValidateDuplicateConnection(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2)}
	conns := []model.Connection{edge("a", "b"), edge("a", "b")}
	err := Validate(nodes, conns, fakeContracts{})
	require.Error(t, err)
	assert.True(t, IsDuplicateError(err))
	assert.False(t, IsCycleError(err))
}

func TestValidateUnknownNode(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1)}
	err := Validate(nodes, []model.Connection{edge("a", "ghost")}, fakeContracts{})
	ge, ok := AsGraphError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeUnknownNode, ge.Code)
	assert.Equal(t, "ghost", ge.NodeID)
}

func TestValidateOrphanNode(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2)}
	err := Validate(nodes, nil, fakeContracts{})
	require.True(t, IsOrphanError(err))
	ge, _ := AsGraphError(err)
	assert.Equal(t, "b", ge.NodeID)
	assert.Equal(t, "value", ge.Problems[0].Input)
}

func TestValidateDisabledProducerMakesOrphan(t *testing.T) {
	src := node("a", "source", 1)
	src.Enabled = false
	nodes := []model.Node{src, node("b", "sink", 2)}
	err := Validate(nodes, []model.Connection{edge("a", "b")}, fakeContracts{})
	assert.True(t, IsOrphanError(err))
}

func TestValidateInvalidConfigurationAndUnknownType(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("z", "mystery", 2)}
	err := Validate(nodes, nil, fakeContracts{badConfig: map[string]bool{"a": true}})
	ge, ok := AsGraphError(err)
	require.True(t, ok)
	require.Len(t, ge.Problems, 2)
	assert.Equal(t, ErrCodeInvalidConfiguration, ge.Problems[0].Code)
	assert.Equal(t, "a", ge.Problems[0].NodeID)
	assert.Equal(t, "z", ge.Problems[1].NodeID)
}

func TestValidateCollectsAllProblemsInRankOrder(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2), node("c", "sink", 3)}
	conns := []model.Connection{edge("a", "b"), edge("a", "b"), edge("b", "ghost")}
	err := Validate(nodes, conns, fakeContracts{})
	ge, ok := AsGraphError(err)
	require.True(t, ok)

	var codes []ErrorCode
	for _, p := range ge.Problems {
		codes = append(codes, p.Code)
	}
	assert.Equal(t, []ErrorCode{ErrCodeUnknownNode, ErrCodeDuplicateConnection, ErrCodeOrphanNode}, codes)
}

func TestOrderTieBreaksOnSequenceThenID(t *testing.T) {
	nodes := []model.Node{
		node("root", "source", 0),
		node("x", "sink", 2),
		node("b", "sink", 1),
		node("a", "sink", 1),
		node("last", "sink", 0),
	}
	conns := []model.Connection{
		edge("root", "x"), edge("root", "b"), edge("root", "a"),
		edge("x", "last"), edge("a", "last"), edge("b", "last"),
	}

	first, err := Order(nodes, conns)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "a", "b", "x", "last"}, first)

	for i := 0; i < 20; i++ {
		again, err := Order(nodes, conns)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOrderIsValidTopologicalOrder(t *testing.T) {
	nodes := []model.Node{
		node("n1", "source", 5), node("n2", "sink", 4), node("n3", "sink", 3),
		node("n4", "sink", 2), node("n5", "sink", 1), node("n6", "sink", 0),
	}
	conns := []model.Connection{
		edge("n1", "n2"), edge("n2", "n3"), edge("n1", "n4"),
		edge("n4", "n5"), edge("n3", "n6"), edge("n5", "n6"),
	}
	ord, err := Order(nodes, conns)
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, id := range ord {
		pos[id] = i
	}
	for _, c := range conns {
		assert.Less(t, pos[c.From], pos[c.To], "%s before %s", c.From, c.To)
	}
}

func TestOrderResidualCycle(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2), node("c", "sink", 3)}
	_, err := Order(nodes, []model.Connection{edge("a", "b"), edge("b", "c"), edge("c", "b")})
	require.True(t, IsCycleError(err))
	ge, _ := AsGraphError(err)
	assert.Contains(t, []string{"b", "c"}, ge.NodeID)
}

func TestOrderSkipsDisabled(t *testing.T) {
	off := node("off", "sink", 0)
	off.Enabled = false
	nodes := []model.Node{node("a", "source", 1), off, node("b", "sink", 2)}
	conns := []model.Connection{edge("a", "off"), edge("off", "b"), edge("a", "b")}

	plan, err := NewPlan(model.ProcessDefinition{ID: "p", Nodes: nodes, Connections: conns})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, plan.Order)
	assert.Equal(t, []string{"off"}, plan.Disabled)
	assert.Contains(t, plan.Nodes, "off")
	assert.True(t, plan.IsAncestor("a", "b"))
}

func TestPlanDescendants(t *testing.T) {
	nodes := []model.Node{node("a", "source", 1), node("b", "sink", 2), node("c", "sink", 3), node("d", "sink", 4)}
	conns := []model.Connection{edge("a", "b"), edge("b", "c"), edge("a", "d")}
	plan, err := NewPlan(model.ProcessDefinition{Nodes: nodes, Connections: conns})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d"}, plan.Descendants("a"))
	assert.Equal(t, []string{"c"}, plan.Descendants("b"))
	assert.Empty(t, plan.Descendants("d"))
}

func TestStoreEditsAndSnapshot(t *testing.T) {
	s := NewStore(model.ProcessDefinition{ID: "p1", Name: "Group close"})
	require.NoError(t, s.AddNode(node("b", "sink", 2)))
	require.NoError(t, s.AddNode(node("a", "source", 1)))
	assert.Error(t, s.AddNode(node("a", "source", 1)), "duplicate id")

	s.AddConnection(model.Connection{From: "a", To: "b"})
	s.AddConnection(model.Connection{From: "a", To: "b"})

	snap := s.Snapshot()
	assert.Equal(t, "p1", snap.ID)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, "a", snap.Nodes[0].ID)
	assert.Equal(t, "p1", snap.Nodes[0].ProcessID)
	assert.Len(t, snap.Connections, 2, "store keeps invalid intermediate states")
	assert.Equal(t, model.ConnectionSequential, snap.Connections[0].Type)

	assert.True(t, s.RemoveConnection("a", "b"))
	assert.False(t, s.RemoveConnection("a", "b"))
	assert.Len(t, snap.Connections, 2, "snapshot is frozen")

	s.AddConnection(model.Connection{From: "a", To: "b"})
	require.NoError(t, s.RemoveNode("a"))
	assert.Empty(t, s.Connections())
	assert.Len(t, s.Nodes(), 1)

	upd := node("b", "sink", 9)
	require.NoError(t, s.UpdateNode(upd))
	assert.Equal(t, 9, s.Nodes()[0].SequenceOrder)
	assert.Error(t, s.UpdateNode(node("zz", "sink", 1)))
}
