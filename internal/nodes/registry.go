// Package nodes implements the ten consolidation node types: their static
// contracts, config schemas and executors.
package nodes

import (
	"context"
	"fmt"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/compiler"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// ExecutorFunc adapts a function to engine.Executor.
type ExecutorFunc func(ctx context.Context, scope *engine.Scope, cfg any) (engine.Output, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, scope *engine.Scope, cfg any) (engine.Output, error) {
	return f(ctx, scope, cfg)
}

type entry struct {
	contract model.Contract
	def      string
	newCfg   func() any
	exec     engine.Executor
}

// Registry maps node types to contracts, config schemas and executors.
// It satisfies engine.Registry.
type Registry struct {
	schema  *compiler.Schema
	entries map[model.NodeType]entry
}

// NewRegistry builds the registry of all ten node types.
func NewRegistry() (*Registry, error) {
	schema, err := compiler.NewSchema()
	if err != nil {
		return nil, fmt.Errorf("compile node schema: %w", err)
	}
	r := &Registry{schema: schema, entries: make(map[model.NodeType]entry, len(Catalog))}

	r.register(model.NodeOpeningBalance, func() any { return &OpeningBalanceConfig{} }, ExecutorFunc(openingBalance))
	r.register(model.NodeProfitLoss, func() any { return &ProfitLossConfig{} }, ExecutorFunc(profitLoss))
	r.register(model.NodeRetainedEarnings, func() any { return &RetainedEarningsConfig{} }, ExecutorFunc(retainedEarnings))
	r.register(model.NodeFXTranslation, func() any { return &FXTranslationConfig{} }, ExecutorFunc(fxTranslation))
	r.register(model.NodeIntercompanyElimination, func() any { return &IntercompanyConfig{} }, ExecutorFunc(intercompanyElimination))
	r.register(model.NodeFairValueAdjustment, func() any { return &FairValueConfig{} }, ExecutorFunc(fairValueAdjustment))
	r.register(model.NodeDeferredTax, func() any { return &DeferredTaxConfig{} }, ExecutorFunc(deferredTax))
	r.register(model.NodeOCI, func() any { return &OCIConfig{} }, ExecutorFunc(otherComprehensiveIncome))
	r.register(model.NodeNCIHandling, func() any { return &NCIConfig{} }, ExecutorFunc(nciHandling))
	r.register(model.NodeEquityStatement, func() any { return &EquityStatementConfig{} }, ExecutorFunc(equityStatement))

	for _, c := range Catalog {
		if _, ok := r.entries[c.Type]; !ok {
			return nil, fmt.Errorf("node type %s has no executor", c.Type)
		}
		if !schema.Has(definitions[c.Type]) {
			return nil, fmt.Errorf("node type %s has no config schema %s", c.Type, definitions[c.Type])
		}
	}
	return r, nil
}

// MustNewRegistry is NewRegistry for package-level and test use.
func MustNewRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) register(t model.NodeType, newCfg func() any, exec engine.Executor) {
	var contract model.Contract
	for _, c := range Catalog {
		if c.Type == t {
			contract = c
		}
	}
	r.entries[t] = entry{contract: contract, def: definitions[t], newCfg: newCfg, exec: exec}
}

// Contract returns the static contract of t.
func (r *Registry) Contract(t model.NodeType) (model.Contract, bool) {
	e, ok := r.entries[t]
	return e.contract, ok
}

// Contracts returns every contract in catalog order.
func (r *Registry) Contracts() []model.Contract {
	out := make([]model.Contract, 0, len(Catalog))
	for _, c := range Catalog {
		out = append(out, r.entries[c.Type].contract)
	}
	return out
}

// Executor returns the executor of t.
func (r *Registry) Executor(t model.NodeType) (engine.Executor, bool) {
	e, ok := r.entries[t]
	if !ok {
		return nil, false
	}
	return e.exec, true
}

// Decode checks n's config against its schema and returns the typed config
// (a pointer to one of the *Config structs).
func (r *Registry) Decode(n model.Node) (any, error) {
	e, ok := r.entries[n.Type]
	if !ok {
		return nil, fmt.Errorf("unknown node type %q", n.Type)
	}
	cfg := e.newCfg()
	if err := r.schema.Compile(e.def, n.Config, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CheckConfig reports whether n's config satisfies its schema.
func (r *Registry) CheckConfig(n model.Node) error {
	_, err := r.Decode(n)
	return err
}

var _ engine.Registry = (*Registry)(nil)
