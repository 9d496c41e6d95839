// Package api serves the process builder and run endpoints over HTTP.
//
// Graph edits go through graph.Store so the API may persist intermediate
// states that would not pass validation; validation problems are returned
// alongside the saved graph instead of rejecting the edit. Runs are always
// started in the background and polled via GET /runs/:id.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/nodes"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
)

// Store is the persistence the API reads and writes. *store.Store
// satisfies it.
type Store interface {
	SaveProcess(ctx context.Context, p model.ProcessDefinition) error
	LoadProcess(ctx context.Context, id string) (model.ProcessDefinition, error)
	PutEntity(ctx context.Context, e model.Entity) error
	ListEntities(ctx context.Context) ([]model.Entity, error)
	PutFXRate(ctx context.Context, r model.FXRate) error
	ListFXRates(ctx context.Context) ([]model.FXRate, error)
	PutRule(ctx context.Context, r model.EliminationRule) error
	ListRules(ctx context.Context) ([]model.EliminationRule, error)
	LatestRun(ctx context.Context, processID string) (model.RunResult, error)
	ListAudit(ctx context.Context, processID string) ([]model.AuditEntry, error)
	ListRunAudit(ctx context.Context, runID string) ([]model.AuditEntry, error)
}

// Server wires the HTTP routes to the store, the node registry and the
// run manager.
type Server struct {
	store    Store
	registry *nodes.Registry
	manager  *run.Manager
	logger   *slog.Logger
	engine   *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server and registers its routes.
func New(st Store, registry *nodes.Registry, manager *run.Manager, opts ...Option) *Server {
	useModelValidator()
	s := &Server{
		store:    st,
		registry: registry,
		manager:  manager,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	e := gin.New()
	e.Use(gin.Recovery(), s.requestLogger())
	s.routes(e)
	s.engine = e
	return s
}

func (s *Server) routes(e *gin.Engine) {
	e.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	e.GET("/catalog", s.catalog)

	p := e.Group("/processes/:id")
	p.GET("/graph", s.getGraph)
	p.PUT("/graph", s.putGraph)
	p.POST("/connections", s.addConnection)
	p.DELETE("/connections", s.removeConnection)
	p.POST("/runs", s.startRun)
	p.GET("/validation-report", s.validationReport)
	p.GET("/audit", s.auditTrail)

	e.GET("/runs/:id", s.getRun)

	e.GET("/entities", s.listEntities)
	e.POST("/entities", s.putEntity)
	e.GET("/fx-rates", s.listFXRates)
	e.POST("/fx-rates", s.putFXRate)
	e.GET("/elimination-rules", s.listRules)
	e.POST("/elimination-rules", s.putRule)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down and
// waits for background runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.manager.Wait()
	s.logger.Info("http server stopped")
	return err
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

var validatorOnce sync.Once

// useModelValidator makes gin's binding run the model validator, so the
// `validate` tags on model types apply to request bodies.
func useModelValidator() {
	validatorOnce.Do(func() {
		binding.Validator = modelValidator{}
	})
}

type modelValidator struct{}

func (modelValidator) ValidateStruct(obj any) error {
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return model.Validator().Struct(obj)
}

func (modelValidator) Engine() any {
	return model.Validator()
}

// decodeOnly is a JSON binding that skips validation. Handlers that
// normalize codes use it and validate afterwards.
type decodeOnly struct{}

func (decodeOnly) Name() string { return "json" }

func (decodeOnly) Bind(req *http.Request, obj any) error {
	if req == nil || req.Body == nil {
		return errors.New("invalid request")
	}
	return json.NewDecoder(req.Body).Decode(obj)
}
