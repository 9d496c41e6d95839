package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
)

// Executor computes one node type. Implementations read inputs only through
// scope and return their outputs; they never write to the run context.
type Executor interface {
	Execute(ctx context.Context, scope *Scope, cfg any) (Output, error)
}

// Registry resolves node type contracts, executors and typed configs.
type Registry interface {
	graph.Contracts
	Executor(t model.NodeType) (Executor, bool)
	Decode(n model.Node) (any, error)
}

// DefaultParallelism is the default worker count of a Runner.
const DefaultParallelism = 4

// Runner executes a plan on a bounded pool of worker goroutines.
type Runner struct {
	registry    Registry
	parallelism int
	nodeTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithParallelism bounds how many nodes execute at once.
func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithNodeTimeout bounds each node's execution. Zero disables the timeout.
func WithNodeTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.nodeTimeout = d
	}
}

// WithLogger sets the logger for node lifecycle events.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithNow overrides the wall clock used for node timestamps.
func WithNow(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner creates a Runner over registry.
func NewRunner(registry Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:    registry,
		parallelism: DefaultParallelism,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// nodeState tracks one node while a plan executes.
type nodeState struct {
	node     model.Node
	depCount atomic.Int32
	once     sync.Once
}

// Execute runs every enabled node of rc's plan and returns one result per
// node of the snapshot, disabled nodes included.
//
// A node becomes ready once all its predecessors succeeded. A failed node
// marks every descendant DependencyFailed; unrelated branches keep running.
// Cancellation of ctx is checked before each node starts.
func (r *Runner) Execute(ctx context.Context, rc *Context) map[string]model.NodeResult {
	plan := rc.Plan()
	results := make(map[string]model.NodeResult, len(plan.Nodes))
	var mu sync.Mutex
	record := func(res model.NodeResult) {
		mu.Lock()
		results[res.NodeID] = res
		mu.Unlock()
	}

	for _, id := range plan.Disabled {
		n := plan.Nodes[id]
		results[id] = model.NodeResult{NodeID: id, Type: n.Type, Status: model.NodeDisabled}
	}
	if len(plan.Order) == 0 {
		return results
	}

	states := make(map[string]*nodeState, len(plan.Order))
	for _, id := range plan.Order {
		st := &nodeState{node: plan.Nodes[id]}
		st.depCount.Store(int32(len(plan.Preds[id])))
		states[id] = st
	}

	readyChan := make(chan string, len(plan.Order))
	var wg sync.WaitGroup
	wg.Add(len(plan.Order))

	for _, id := range plan.Order {
		if states[id].depCount.Load() == 0 {
			readyChan <- id
		}
	}

	var skipDependents func(id, root string)
	skipDependents = func(id, root string) {
		for _, dep := range plan.Succs[id] {
			st := states[dep]
			st.once.Do(func() {
				r.logger.Warn("skipping node due to upstream failure", "node_id", dep, "failed_node", root)
				record(model.NodeResult{
					NodeID: dep,
					Type:   st.node.Type,
					Status: model.NodeDependencyFailed,
					Error:  NewDependencyFailedError(dep, root).Info(),
				})
				rc.Fail(dep)
				wg.Done()
				skipDependents(dep, root)
			})
		}
	}

	workers := min(r.parallelism, len(plan.Order))
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			for id := range readyChan {
				st := states[id]
				logger := r.logger.With("worker", workerID, "node_id", id, "type", st.node.Type)

				if err := ctx.Err(); err != nil {
					st.once.Do(func() {
						logger.Warn("run cancelled, skipping node")
						ne := &NodeError{Code: ErrCodeCancelled, NodeID: id, Message: "run cancelled before node started", Err: err}
						record(model.NodeResult{NodeID: id, Type: st.node.Type, Status: model.NodeCancelled, Error: ne.Info()})
						rc.Fail(id)
						wg.Done()
						skipDependents(id, id)
					})
					continue
				}

				res := r.runNode(ctx, rc, st.node, logger)
				if res.Status != model.NodeSucceeded {
					st.once.Do(func() {
						record(res)
						rc.Fail(id)
						wg.Done()
						skipDependents(id, id)
					})
					continue
				}

				st.once.Do(func() {
					record(res)
					for _, dep := range plan.Succs[id] {
						if states[dep].depCount.Add(-1) == 0 {
							readyChan <- dep
						}
					}
					wg.Done()
				})
			}
		}(i)
	}

	wg.Wait()
	close(readyChan)
	return results
}

// runNode decodes the config, executes the node under the per-node timeout
// and, on success, writes its outputs into rc.
func (r *Runner) runNode(ctx context.Context, rc *Context, node model.Node, logger *slog.Logger) model.NodeResult {
	res := model.NodeResult{NodeID: node.ID, Type: node.Type, StartedAt: r.now()}
	fail := func(err error) model.NodeResult {
		ne, ok := AsNodeError(err)
		if !ok {
			ne = &NodeError{Code: ErrCodeExecutionFailed, NodeID: node.ID, Message: err.Error(), Err: err}
		}
		if ne.NodeID == "" {
			ne.NodeID = node.ID
		}
		res.Status = model.NodeFailed
		if ne.Code == ErrCodeCancelled {
			res.Status = model.NodeCancelled
		}
		res.Error = ne.Info()
		res.FinishedAt = r.now()
		logger.Warn("node failed", "code", ne.Code, "error", ne.Message)
		return res
	}

	exec, ok := r.registry.Executor(node.Type)
	if !ok {
		return fail(NewNodeError(ErrCodeInvalidConfiguration, node.ID, "no executor for node type %q", node.Type))
	}
	contract, _ := r.registry.Contract(node.Type)
	cfg, err := r.registry.Decode(node)
	if err != nil {
		return fail(&NodeError{Code: ErrCodeInvalidConfiguration, NodeID: node.ID, Message: err.Error(), Err: err})
	}

	logger.Debug("node started")
	out, err := r.invoke(ctx, exec, NewScope(rc, node, contract), cfg)
	if err != nil {
		return fail(err)
	}
	for _, name := range contract.Outputs {
		if _, ok := out.Values[name]; !ok {
			return fail(NewNodeError(ErrCodeExecutionFailed, node.ID, "executor did not produce declared output %q", name))
		}
	}
	if err := rc.Complete(node.ID, out); err != nil {
		return fail(err)
	}

	res.Status = model.NodeSucceeded
	res.Outputs = rc.Outputs(node.ID)
	res.FinishedAt = r.now()
	logger.Debug("node succeeded", "entries", len(out.Entries))
	return res
}

type execResult struct {
	out Output
	err error
}

// invoke runs the executor in its own goroutine so a node that overruns its
// timeout can be abandoned. An abandoned node's scope is closed, so a late
// result and any late diagnostics are discarded.
func (r *Runner) invoke(ctx context.Context, exec Executor, scope *Scope, cfg any) (Output, error) {
	nctx, cancel := ctx, context.CancelFunc(func() {})
	if r.nodeTimeout > 0 {
		nctx, cancel = context.WithTimeout(ctx, r.nodeTimeout)
	}
	defer cancel()

	ch := make(chan execResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- execResult{err: NewNodeError(ErrCodeExecutionFailed, scope.NodeID(), "panic: %v", p)}
			}
		}()
		out, err := exec.Execute(nctx, scope, cfg)
		ch <- execResult{out: out, err: err}
	}()

	cancelled := func() (Output, error) {
		scope.close()
		msg := "run cancelled during execution"
		if ctx.Err() == nil {
			msg = fmt.Sprintf("node exceeded timeout of %s", r.nodeTimeout)
		}
		return Output{}, &NodeError{Code: ErrCodeCancelled, NodeID: scope.NodeID(), Message: msg, Err: nctx.Err()}
	}

	var res execResult
	select {
	case res = <-ch:
	case <-nctx.Done():
		select {
		case res = <-ch:
		default:
			return cancelled()
		}
	}
	if res.err != nil && nctx.Err() != nil {
		if _, ok := AsNodeError(res.err); !ok {
			return cancelled()
		}
	}
	return res.out, res.err
}
