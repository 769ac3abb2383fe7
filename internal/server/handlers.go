package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suitepilot/suitepilot/internal/errors"
	"github.com/suitepilot/suitepilot/internal/model"
	"github.com/suitepilot/suitepilot/internal/queue"
	"github.com/suitepilot/suitepilot/internal/resolver"
	"github.com/suitepilot/suitepilot/internal/resource"
)

// maxBodyBytes caps submitted configuration documents.
const maxBodyBytes = 1 << 20

// defaultHorizon is used when a prediction request has no horizon.
const defaultHorizon = 15 * time.Minute

// SessionList is the response body for GET /api/v1/sessions.
type SessionList struct {
	Sessions []*model.TestSession `json:"sessions"`
	Total    int                  `json:"total"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Error    string             `json:"error"`
	Category string             `json:"category,omitempty"`
	Session  *model.TestSession `json:"session,omitempty"`
}

// PredictionQuery is the query string of GET /api/v1/resources/prediction.
type PredictionQuery struct {
	Horizon         string  `form:"horizon"`
	MemoryMB        float64 `form:"memory_mb"`
	CPUPercent      float64 `form:"cpu_percent"`
	NetworkMbps     float64 `form:"network_mbps"`
	StorageMB       float64 `form:"storage_mb"`
	ConcurrentUsers int     `form:"concurrent_users"`
}

// Prediction is the response body for GET /api/v1/resources/prediction.
type Prediction struct {
	Horizon      string                `json:"horizon"`
	Requirements resource.Requirements `json:"requirements"`
	Available    bool                  `json:"available"`
}

// RegisterRoutes adds every route to router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", s.healthz)
	router.GET("/readyz", s.readyz)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics))
	}

	api := router.Group("/api/v1")
	{
		api.POST("/plans", s.createPlan)
		api.GET("/sessions", s.listSessions)
		api.POST("/sessions", s.createSession)
		api.GET("/sessions/:id", s.getSession)
		api.POST("/sessions/:id/stop", s.stopSession)
		api.POST("/sessions/:id/cancel", s.cancelSession)
		api.GET("/queue", s.queueHealth)
		api.GET("/resources", s.resources)
		api.GET("/resources/prediction", s.predictResources)
		api.PUT("/resources/limits", s.updateLimits)
	}
}

// healthz handles GET /healthz
func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// readyz handles GET /readyz
func (s *Server) readyz(c *gin.Context) {
	health := s.orch.QueueHealth()
	status := http.StatusOK
	if health.Status == queue.HealthCritical {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":  status == http.StatusOK,
		"queue":  health.Status,
		"active": len(s.orch.ActiveSessions()),
	})
}

// createPlan handles POST /api/v1/plans. It plans the submitted
// configuration without starting a session.
func (s *Server) createPlan(c *gin.Context) {
	cfg, ok := s.bindConfiguration(c)
	if !ok {
		return
	}
	plan, _, err := resolver.BuildPlan("", cfg)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// listSessions handles GET /api/v1/sessions. The optional status query
// filters by session status.
func (s *Server) listSessions(c *gin.Context) {
	sessions := s.orch.ListSessions()
	if status := c.Query("status"); status != "" {
		filtered := sessions[:0]
		for _, sess := range sessions {
			if string(sess.Status) == status {
				filtered = append(filtered, sess)
			}
		}
		sessions = filtered
	}
	if sessions == nil {
		sessions = []*model.TestSession{}
	}
	c.JSON(http.StatusOK, SessionList{Sessions: sessions, Total: len(sessions)})
}

// createSession handles POST /api/v1/sessions
func (s *Server) createSession(c *gin.Context) {
	cfg, ok := s.bindConfiguration(c)
	if !ok {
		return
	}
	sess, err := s.orch.StartTestSession(c.Request.Context(), cfg)
	if err != nil {
		s.fail(c, err, sess)
		return
	}
	c.Header("Location", "/api/v1/sessions/"+sess.ID)
	c.JSON(http.StatusAccepted, sess)
}

// getSession handles GET /api/v1/sessions/:id
func (s *Server) getSession(c *gin.Context) {
	sess, err := s.orch.GetSession(c.Param("id"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// stopSession handles POST /api/v1/sessions/:id/stop
func (s *Server) stopSession(c *gin.Context) {
	s.transition(c, s.orch.StopTestSession)
}

// cancelSession handles POST /api/v1/sessions/:id/cancel
func (s *Server) cancelSession(c *gin.Context) {
	s.transition(c, s.orch.CancelQueuedSession)
}

func (s *Server) transition(c *gin.Context, fn func(id string) error) {
	id := c.Param("id")
	if err := fn(id); err != nil {
		s.fail(c, err, nil)
		return
	}
	sess, err := s.orch.GetSession(id)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// queueHealth handles GET /api/v1/queue
func (s *Server) queueHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.QueueHealth())
}

// resources handles GET /api/v1/resources
func (s *Server) resources(c *gin.Context) {
	c.JSON(http.StatusOK, s.orch.ResourceUtilization())
}

// predictResources handles GET /api/v1/resources/prediction. It reports
// whether the requested resources are expected to fit after the horizon,
// judged from the pool's recent usage trend.
func (s *Server) predictResources(c *gin.Context) {
	var q PredictionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	horizon := defaultHorizon
	if q.Horizon != "" {
		d, err := time.ParseDuration(q.Horizon)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "horizon must be a non-negative duration such as 15m"})
			return
		}
		horizon = d
	}
	req := resource.Requirements{
		MemoryMB:        q.MemoryMB,
		CPUPercent:      q.CPUPercent,
		NetworkMbps:     q.NetworkMbps,
		StorageMB:       q.StorageMB,
		ConcurrentUsers: q.ConcurrentUsers,
	}
	if err := req.Validate(); err != nil {
		s.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, Prediction{
		Horizon:      horizon.String(),
		Requirements: req,
		Available:    s.orch.Pool().PredictAvailability(req, horizon),
	})
}

// updateLimits handles PUT /api/v1/resources/limits. Zero dimensions keep
// their current limit.
func (s *Server) updateLimits(c *gin.Context) {
	var limits resource.Requirements
	if err := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes)).Decode(&limits); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := s.orch.Pool().UpdateLimits(limits); err != nil {
		s.fail(c, err, nil)
		return
	}
	s.logger.Info("resource limits updated over http", "limits", limits.Map())
	c.JSON(http.StatusOK, s.orch.ResourceUtilization())
}

// bindConfiguration reads exactly one configuration from the request body.
func (s *Server) bindConfiguration(c *gin.Context) (model.TestConfiguration, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return model.TestConfiguration{}, false
	}
	cfgs, err := s.loader.Parse(data, "request body")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Category: string(errors.CategoryConfiguration)})
		return model.TestConfiguration{}, false
	}
	if len(cfgs) != 1 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "request body must contain exactly one configuration"})
		return model.TestConfiguration{}, false
	}
	return cfgs[0], true
}

func (s *Server) fail(c *gin.Context, err error, sess *model.TestSession) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, ErrorResponse{
		Error:    err.Error(),
		Category: string(errors.CategoryOf(err)),
		Session:  sess,
	})
}

// statusFor maps an orchestrator error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrOrchestratorStopped), errors.Is(err, errors.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrSessionNotRunning), errors.Is(err, errors.ErrSessionNotQueued):
		return http.StatusConflict
	case errors.Is(err, errors.ErrInsufficientResources):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	}
	switch errors.CategoryOf(err) {
	case errors.CategoryConfiguration, errors.CategoryDependency:
		return http.StatusBadRequest
	case errors.CategoryResource:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
