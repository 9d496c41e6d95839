package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Amounts maps an entity (or account) code to an amount. Most executor
// outputs are per-entity Amounts.
type Amounts map[string]decimal.Decimal

// Total sums every amount.
func (a Amounts) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range a {
		total = total.Add(v)
	}
	return total
}

// Keys returns the codes, ascending.
func (a Amounts) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Output is what an executor returns: named output values plus the journal
// entries it wants posted as pending ledger deltas.
//
// Reporting entries live in the reporting-currency layer. They are kept
// for the journal balance check and the run report but never become
// ledger deltas, because the entity ledgers hold functional-currency
// amounts only.
type Output struct {
	Values    map[string]any
	Entries   []model.JournalEntry
	Reporting []model.JournalEntry
}

// future resolves once when its node finishes.
type future struct {
	done chan struct{}
	ok   bool
}

// FXReference records one rate lookup made during a run.
type FXReference struct {
	Key    model.FXKey `json:"key"`
	Found  bool        `json:"found"`
	NodeID string      `json:"node_id"`
}

// Context is the per-run store of node outputs and pending ledger deltas.
//
// Writes happen only through Complete and Fail, which the Runner calls once
// per node after its executor returns. Reads of another node's output go
// through Scope, which waits on that node's future.
type Context struct {
	ref       *RefData
	plan      *graph.Plan
	contracts graph.Contracts

	mu         sync.RWMutex
	outputs    map[string]map[string]any
	entries    map[string][]model.JournalEntry
	deltas     map[string][]model.LedgerDelta
	futures    map[string]*future
	fxRefs     map[model.FXKey]FXReference
	groups     map[string][]model.ICGroup
	warnings   map[string][]model.CheckResult
	translated map[string]bool
}

// NewContext creates an empty context with one unresolved future per
// enabled node of plan.
func NewContext(ref *RefData, plan *graph.Plan, contracts graph.Contracts) *Context {
	c := &Context{
		ref:        ref,
		plan:       plan,
		contracts:  contracts,
		outputs:    make(map[string]map[string]any),
		entries:    make(map[string][]model.JournalEntry),
		deltas:     make(map[string][]model.LedgerDelta),
		futures:    make(map[string]*future, len(plan.Order)),
		fxRefs:     make(map[model.FXKey]FXReference),
		groups:     make(map[string][]model.ICGroup),
		warnings:   make(map[string][]model.CheckResult),
		translated: make(map[string]bool),
	}
	for _, id := range plan.Order {
		c.futures[id] = &future{done: make(chan struct{})}
	}
	return c
}

// Ref returns the run's reference data.
func (c *Context) Ref() *RefData { return c.ref }

// Plan returns the run's execution plan.
func (c *Context) Plan() *graph.Plan { return c.plan }

// Complete stores a node's outputs and pending deltas and resolves its
// future. Journal lines must reference known accounts.
func (c *Context) Complete(nodeID string, out Output) error {
	var deltas []model.LedgerDelta
	for _, e := range out.Entries {
		d, err := e.Deltas(c.ref.Accounts)
		if err != nil {
			return fmt.Errorf("node %s: %w", nodeID, err)
		}
		deltas = append(deltas, d...)
	}
	for _, e := range out.Reporting {
		if _, err := e.Deltas(c.ref.Accounts); err != nil {
			return fmt.Errorf("node %s: %w", nodeID, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.futures[nodeID]
	if !ok {
		return fmt.Errorf("node %s is not part of the plan", nodeID)
	}
	select {
	case <-f.done:
		return fmt.Errorf("node %s completed twice", nodeID)
	default:
	}
	values := make(map[string]any, len(out.Values))
	for k, v := range out.Values {
		values[k] = v
	}
	c.outputs[nodeID] = values
	entries := make([]model.JournalEntry, 0, len(out.Entries)+len(out.Reporting))
	entries = append(entries, out.Entries...)
	c.entries[nodeID] = append(entries, out.Reporting...)
	c.deltas[nodeID] = deltas
	f.ok = true
	close(f.done)
	return nil
}

// Fail resolves a node's future without outputs.
func (c *Context) Fail(nodeID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.futures[nodeID]
	if !ok {
		return
	}
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

// Output returns one stored output value.
func (c *Context) Output(nodeID, name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.outputs[nodeID][name]
	return v, ok
}

// Outputs returns a copy of a node's stored outputs.
func (c *Context) Outputs(nodeID string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.outputs[nodeID]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// OutputsOfType returns the outputs of every completed node of type t, in
// plan order, keyed by node id.
func (c *Context) OutputsOfType(t model.NodeType) []NodeOutputs {
	var out []NodeOutputs
	for _, id := range c.plan.Order {
		if c.plan.Nodes[id].Type != t {
			continue
		}
		if vals := c.Outputs(id); vals != nil {
			out = append(out, NodeOutputs{NodeID: id, Values: vals})
		}
	}
	return out
}

// NodeOutputs pairs a node id with its outputs.
type NodeOutputs struct {
	NodeID string
	Values map[string]any
}

// Entries returns every journal entry of the run, ledger and reporting
// layer alike, in plan order.
func (c *Context) Entries() []model.JournalEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.JournalEntry
	for _, id := range c.plan.Order {
		out = append(out, c.entries[id]...)
	}
	return out
}

// Deltas returns pending ledger deltas ordered by the producing node's
// topological index, then emission order.
func (c *Context) Deltas() []model.LedgerDelta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.LedgerDelta{}
	for _, id := range c.plan.Order {
		out = append(out, c.deltas[id]...)
	}
	return out
}

// FXReferences returns every rate lookup of the run, sorted by key.
func (c *Context) FXReferences() []FXReference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]FXReference, 0, len(c.fxRefs))
	for _, ref := range c.fxRefs {
		out = append(out, ref)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out
}

// Groups returns every recorded elimination group in plan order.
func (c *Context) Groups() []model.ICGroup {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.ICGroup
	for _, id := range c.plan.Order {
		out = append(out, c.groups[id]...)
	}
	return out
}

// Warnings returns executor warnings in plan order.
func (c *Context) Warnings() []model.CheckResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []model.CheckResult
	for _, id := range c.plan.Order {
		out = append(out, c.warnings[id]...)
	}
	return out
}

// Translated reports whether any translation node covered entity.
func (c *Context) Translated(entity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.translated[entity]
}

func (c *Context) recordFX(nodeID string, key model.FXKey, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, seen := c.fxRefs[key]
	if seen && prev.Found {
		return
	}
	c.fxRefs[key] = FXReference{Key: key, Found: found, NodeID: nodeID}
}

func (c *Context) recordGroups(nodeID string, groups []model.ICGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[nodeID] = append(c.groups[nodeID], groups...)
}

func (c *Context) recordWarning(nodeID string, w model.CheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w.NodeID = nodeID
	c.warnings[nodeID] = append(c.warnings[nodeID], w)
}

func (c *Context) markTranslated(entity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translated[entity] = true
}

// producerOf finds the ancestor of nodeID that produces name. When several
// ancestors produce it, the one latest in plan order wins.
func (c *Context) producerOf(nodeID, name string) (string, bool) {
	best, bestIdx := "", -1
	for anc := range c.plan.Ancestors[nodeID] {
		contract, ok := c.contracts.Contract(c.plan.Nodes[anc].Type)
		if !ok || !contract.Produces(name) {
			continue
		}
		if idx := c.plan.Index[anc]; idx > bestIdx {
			best, bestIdx = anc, idx
		}
	}
	return best, bestIdx >= 0
}
