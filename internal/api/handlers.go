package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// GraphBody replaces the nodes and connections of a process. Name and
// FiscalYear are required only when the process does not exist yet.
type GraphBody struct {
	Name        string              `json:"name"`
	FiscalYear  int                 `json:"fiscal_year"`
	Status      model.ProcessStatus `json:"status" validate:"omitempty,oneof=draft active archived"`
	Nodes       []model.Node        `json:"nodes" validate:"dive"`
	Connections []model.Connection  `json:"connections" validate:"dive"`
}

// GraphResponse is a stored process plus what validation thinks of it.
type GraphResponse struct {
	Process  model.ProcessDefinition `json:"process"`
	Valid    bool                    `json:"valid"`
	Order    []string                `json:"order"`
	Problems []graph.Problem         `json:"problems"`
}

// RunBody starts a run.
type RunBody struct {
	RunType model.RunType `json:"run_type" validate:"oneof=simulation commit"`
	Period  string        `json:"period,omitempty" validate:"omitempty,period"`
}

// RunAccepted is returned when a background run is started.
type RunAccepted struct {
	RunID     string          `json:"run_id"`
	ProcessID string          `json:"process_id"`
	Status    model.RunStatus `json:"status"`
}

// ValidationReport summarises the checks of a process's latest run.
type ValidationReport struct {
	ProcessID string              `json:"process_id"`
	RunID     string              `json:"run_id"`
	Status    model.RunStatus     `json:"status"`
	Blocking  bool                `json:"blocking"`
	Warnings  int                 `json:"warnings"`
	Checks    []model.CheckResult `json:"checks"`
}

func (s *Server) catalog(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Contracts())
}

func (s *Server) getGraph(c *gin.Context) {
	proc, err := s.store.LoadProcess(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.describe(proc))
}

func (s *Server) putGraph(c *gin.Context) {
	var body GraphBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	proc, err := s.store.LoadProcess(ctx, id)
	switch {
	case store.IsNotFound(err):
		proc = model.ProcessDefinition{ID: id, Status: model.ProcessDraft}
	case err != nil:
		fail(c, err)
		return
	}
	if body.Name != "" {
		proc.Name = body.Name
	}
	if body.FiscalYear != 0 {
		proc.FiscalYear = body.FiscalYear
	}
	if body.Status != "" {
		proc.Status = body.Status
	}
	proc.Nodes = body.Nodes
	proc.Connections = body.Connections
	if err := model.Validator().Struct(proc); err != nil {
		badRequest(c, err)
		return
	}

	snap := graph.NewStore(proc).Snapshot()
	if err := s.store.SaveProcess(ctx, snap); err != nil {
		fail(c, err)
		return
	}
	s.logger.Info("process graph saved", "process_id", id, "nodes", len(snap.Nodes), "connections", len(snap.Connections))
	s.respondGraph(c, http.StatusOK, id)
}

func (s *Server) addConnection(c *gin.Context) {
	var conn model.Connection
	if err := c.ShouldBindJSON(&conn); err != nil {
		badRequest(c, err)
		return
	}
	s.editGraph(c, http.StatusCreated, func(gs *graph.Store) error {
		gs.AddConnection(conn)
		return nil
	})
}

func (s *Server) removeConnection(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, errors.New("query parameters from and to are required"))
		return
	}
	s.editGraph(c, http.StatusOK, func(gs *graph.Store) error {
		if !gs.RemoveConnection(from, to) {
			return fmt.Errorf("connection %s -> %s: %w", from, to, store.ErrNotFound)
		}
		return nil
	})
}

// editGraph loads the process into a graph.Store, applies edit and saves
// the snapshot.
func (s *Server) editGraph(c *gin.Context, status int, edit func(*graph.Store) error) {
	ctx := c.Request.Context()
	id := c.Param("id")
	proc, err := s.store.LoadProcess(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	gs := graph.NewStore(proc)
	if err := edit(gs); err != nil {
		fail(c, err)
		return
	}
	if err := s.store.SaveProcess(ctx, gs.Snapshot()); err != nil {
		fail(c, err)
		return
	}
	s.respondGraph(c, status, id)
}

func (s *Server) respondGraph(c *gin.Context, status int, id string) {
	proc, err := s.store.LoadProcess(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(status, s.describe(proc))
}

func (s *Server) describe(proc model.ProcessDefinition) GraphResponse {
	resp := GraphResponse{Process: proc, Order: []string{}, Problems: []graph.Problem{}}
	if err := graph.Validate(proc.Nodes, proc.Connections, s.registry); err != nil {
		if ge, ok := graph.AsGraphError(err); ok {
			resp.Problems = ge.Problems
		} else {
			resp.Problems = []graph.Problem{{Code: graph.ErrCodeInvalidConfiguration, Message: err.Error()}}
		}
		return resp
	}
	order, err := graph.Order(proc.Nodes, proc.Connections)
	if err != nil {
		resp.Problems = []graph.Problem{{Code: graph.ErrCodeCycleDetected, Message: err.Error()}}
		return resp
	}
	resp.Valid = true
	resp.Order = order
	return resp
}

func (s *Server) startRun(c *gin.Context) {
	var body RunBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := s.store.LoadProcess(ctx, id); err != nil {
		fail(c, err)
		return
	}

	runID, err := s.manager.Start(ctx, run.Request{ProcessID: id, RunType: body.RunType, Period: body.Period})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, RunAccepted{RunID: runID, ProcessID: id, Status: model.RunPending})
}

func (s *Server) getRun(c *gin.Context) {
	res, err := s.manager.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) validationReport(c *gin.Context) {
	id := c.Param("id")
	res, err := s.store.LatestRun(c.Request.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			notFound(c, fmt.Sprintf("process %s has no runs", id))
			return
		}
		fail(c, err)
		return
	}
	checks := res.Validation
	if checks == nil {
		checks = []model.CheckResult{}
	}
	c.JSON(http.StatusOK, ValidationReport{
		ProcessID: id,
		RunID:     res.RunID,
		Status:    res.Status,
		Blocking:  res.HasErrors(),
		Warnings:  len(res.Warnings()),
		Checks:    checks,
	})
}

func (s *Server) auditTrail(c *gin.Context) {
	var (
		entries []model.AuditEntry
		err     error
	)
	if runID := c.Query("run_id"); runID != "" {
		entries, err = s.store.ListRunAudit(c.Request.Context(), runID)
	} else {
		entries, err = s.store.ListAudit(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) listEntities(c *gin.Context) {
	list, err := s.store.ListEntities(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) putEntity(c *gin.Context) {
	var e model.Entity
	if err := c.ShouldBindWith(&e, decodeOnly{}); err != nil {
		badRequest(c, err)
		return
	}
	e.Code = model.NormalizeCode(e.Code)
	e.ParentCode = model.NormalizeCode(e.ParentCode)
	e.FunctionalCurrency = model.NormalizeCode(e.FunctionalCurrency)
	e.ReportingCurrency = model.NormalizeCode(e.ReportingCurrency)
	if err := model.Validator().Struct(e); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.PutEntity(c.Request.Context(), e); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) listFXRates(c *gin.Context) {
	list, err := s.store.ListFXRates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) putFXRate(c *gin.Context) {
	var r model.FXRate
	if err := c.ShouldBindWith(&r, decodeOnly{}); err != nil {
		badRequest(c, err)
		return
	}
	r.From = model.NormalizeCode(r.From)
	r.To = model.NormalizeCode(r.To)
	if err := model.Validator().Struct(r); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.store.PutFXRate(c.Request.Context(), r); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (s *Server) listRules(c *gin.Context) {
	list, err := s.store.ListRules(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) putRule(c *gin.Context) {
	var r model.EliminationRule
	if err := c.ShouldBindJSON(&r); err != nil {
		badRequest(c, err)
		return
	}
	r.EntityA = model.NormalizeCode(r.EntityA)
	r.EntityB = model.NormalizeCode(r.EntityB)
	if err := s.store.PutRule(c.Request.Context(), r); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}
