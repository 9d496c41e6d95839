package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/engine"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/validation"
)

// Store is the persistence the manager needs. *store.Store satisfies it.
type Store interface {
	LoadProcess(ctx context.Context, id string) (model.ProcessDefinition, error)
	LoadRefData(ctx context.Context, period string) (*engine.RefData, error)
	LoadRun(ctx context.Context, runID string) (model.RunResult, error)
	SaveRunWithAudit(ctx context.Context, r model.RunResult, audit []model.AuditEntry) error
	AppendAudit(ctx context.Context, entries ...model.AuditEntry) error
	ApplyCommit(ctx context.Context, c store.Commit) error
}

// Request asks for one run of a process.
type Request struct {
	ProcessID string        `json:"process_id" validate:"required"`
	RunType   model.RunType `json:"run_type" validate:"oneof=simulation commit"`
	// Period defaults to December of the process fiscal year.
	Period string `json:"period,omitempty" validate:"omitempty,period"`
}

// Manager runs processes: it takes the process lock, executes the graph,
// validates the result and, for commit runs, writes the ledger.
type Manager struct {
	store      Store
	registry   engine.Registry
	validator  *validation.Engine
	locker     Locker
	ids        engine.RunIDGenerator
	clock      *engine.Clock
	now        func() time.Time
	logger     *slog.Logger
	runnerOpts []engine.RunnerOption

	groupEntity string
	tolerance   decimal.Decimal

	mu      sync.Mutex
	active  map[string]*model.RunResult
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker replaces the default LocalLocker.
func WithLocker(l Locker) Option {
	return func(m *Manager) {
		if l != nil {
			m.locker = l
		}
	}
}

// WithIDGenerator sets the run id source.
func WithIDGenerator(g engine.RunIDGenerator) Option {
	return func(m *Manager) {
		if g != nil {
			m.ids = g
		}
	}
}

// WithClock sets the logical clock that sequences audit entries.
func WithClock(c *engine.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithNow overrides the wall clock for run and audit timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger for run lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRunnerOptions passes options to every run's engine.Runner.
func WithRunnerOptions(opts ...engine.RunnerOption) Option {
	return func(m *Manager) {
		m.runnerOpts = append(m.runnerOpts, opts...)
	}
}

// WithValidator replaces the default check set.
func WithValidator(v *validation.Engine) Option {
	return func(m *Manager) {
		if v != nil {
			m.validator = v
		}
	}
}

// WithGroupEntity names the group (top) entity.
func WithGroupEntity(code string) Option {
	return func(m *Manager) {
		m.groupEntity = model.NormalizeCode(code)
	}
}

// WithTolerance sets the balancing tolerance of every run.
func WithTolerance(tol decimal.Decimal) Option {
	return func(m *Manager) {
		m.tolerance = tol
	}
}

// NewManager creates a Manager over st and registry.
func NewManager(st Store, registry engine.Registry, opts ...Option) *Manager {
	m := &Manager{
		store:     st,
		registry:  registry,
		validator: validation.NewEngine(),
		locker:    NewLocalLocker(),
		ids:       engine.UUIDv7Generator{},
		clock:     engine.NewClock(),
		now:       time.Now,
		logger:    slog.Default(),
		tolerance: model.Tolerance,
		active:    make(map[string]*model.RunResult),
		cancels:   make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes req synchronously and returns the stored result. A non-nil
// error alongside a result means the run finished but was rejected or its
// commit refused; the result says how far it got.
func (m *Manager) Run(ctx context.Context, req Request) (model.RunResult, error) {
	if err := model.Validate(req); err != nil {
		return model.RunResult{}, err
	}
	lock, err := m.acquire(ctx, req)
	if err != nil {
		return model.RunResult{}, err
	}
	defer m.release(lock, req.ProcessID)

	runID := m.ids.Generate()
	m.track(runID, req)
	return m.execute(ctx, runID, req)
}

// Start takes the process lock and runs req in the background. It returns
// the run id to poll with Status.
func (m *Manager) Start(ctx context.Context, req Request) (string, error) {
	if err := model.Validate(req); err != nil {
		return "", err
	}
	lock, err := m.acquire(ctx, req)
	if err != nil {
		return "", err
	}

	runID := m.ids.Generate()
	m.track(runID, req)
	rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.mu.Lock()
	m.cancels[runID] = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer m.release(lock, req.ProcessID)
		if _, err := m.execute(rctx, runID, req); err != nil {
			m.logger.Warn("background run ended with error", "run_id", runID, "error", err)
		}
	}()
	return runID, nil
}

// Cancel asks a background run to stop. Nodes already executing finish;
// nodes not yet started are marked cancelled.
func (m *Manager) Cancel(runID string) bool {
	m.mu.Lock()
	cancel, ok := m.cancels[runID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Wait blocks until every background run has finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Status returns the live state of a run, falling back to the store once
// the run has finished.
func (m *Manager) Status(ctx context.Context, runID string) (model.RunResult, error) {
	m.mu.Lock()
	r, ok := m.active[runID]
	var snapshot model.RunResult
	if ok {
		snapshot = *r
	}
	m.mu.Unlock()
	if ok {
		return snapshot, nil
	}
	return m.store.LoadRun(ctx, runID)
}

func (m *Manager) acquire(ctx context.Context, req Request) (Lock, error) {
	lock, err := m.locker.TryLock(ctx, req.ProcessID)
	if err == nil {
		return lock, nil
	}
	if !errors.Is(err, ErrLockHeld) {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	ce := &CommitError{
		Code:      ErrCodeConcurrentRun,
		ProcessID: req.ProcessID,
		Message:   fmt.Sprintf("process %s already has a run in progress", req.ProcessID),
	}
	m.logger.Warn("run rejected", "process_id", req.ProcessID, "code", ce.Code)
	entry := m.audit("", req.ProcessID, model.AuditRunRejected, model.SeverityError, ce.Message)
	if aerr := m.store.AppendAudit(ctx, entry); aerr != nil {
		m.logger.Error("write audit", "process_id", req.ProcessID, "error", aerr)
	}
	return nil, ce
}

func (m *Manager) release(lock Lock, processID string) {
	if err := lock.Release(context.Background()); err != nil {
		m.logger.Error("release run lock", "process_id", processID, "error", err)
	}
}

func (m *Manager) track(runID string, req Request) {
	m.mu.Lock()
	m.active[runID] = &model.RunResult{
		RunID:     runID,
		ProcessID: req.ProcessID,
		RunType:   req.RunType,
		Period:    req.Period,
		Status:    model.RunPending,
		StartedAt: m.now(),
	}
	m.mu.Unlock()
}

func (m *Manager) setStatus(runID string, status model.RunStatus) {
	m.mu.Lock()
	if r, ok := m.active[runID]; ok {
		r.Status = status
	}
	m.mu.Unlock()
}

func (m *Manager) untrack(runID string) {
	m.mu.Lock()
	delete(m.active, runID)
	delete(m.cancels, runID)
	m.mu.Unlock()
}
