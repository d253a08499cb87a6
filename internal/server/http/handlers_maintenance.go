package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/maintenance"
)

func (s *Server) handleMaintenanceState(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Maintenance.State())
}

type enterMaintenanceRequest struct {
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
}

func (s *Server) handleEnterMaintenance(c *gin.Context) {
	var req enterMaintenanceRequest
	_ = c.ShouldBindJSON(&req)
	state := s.deps.Maintenance.EnterMaintenance(maintenance.EnterOptions{Reason: req.Reason, Actor: req.Actor})
	c.JSON(http.StatusOK, state)
}

type startDrainingRequest struct {
	DeadlineSeconds int    `json:"deadlineSeconds" binding:"required"`
	Reason          string `json:"reason"`
	Actor           string `json:"actor"`
}

func (s *Server) handleStartDraining(c *gin.Context) {
	var req startDrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := s.deps.Maintenance.StartDraining(maintenance.DrainOptions{
		DeadlineSeconds: req.DeadlineSeconds,
		Reason:          req.Reason,
		Actor:           req.Actor,
	})
	c.JSON(http.StatusOK, state)
}

type exitMaintenanceRequest struct {
	Actor string `json:"actor"`
}

func (s *Server) handleExitMaintenance(c *gin.Context) {
	var req exitMaintenanceRequest
	_ = c.ShouldBindJSON(&req)
	state := s.deps.Maintenance.ExitMaintenance(maintenance.ExitOptions{Actor: req.Actor})
	c.JSON(http.StatusOK, state)
}

// maintenanceGate rejects new requests with 503 while draining/maintenance,
// attaching Retry-After when a deadline is known. It is only installed
// on the v1 group, never on /healthz, /v1/ws, or /v1/maintenance: those
// stay reachable so operators can observe the gateway and, critically,
// still call exit/drain to get back to ModeRunning.
func (s *Server) maintenanceGate(c *gin.Context) {
	state := s.deps.Maintenance.State()
	if state.Mode == maintenance.ModeRunning {
		end := s.deps.Maintenance.BeginRequest()
		defer end()
		c.Next()
		return
	}

	if state.Mode == maintenance.ModeDraining && state.RetryAfterSeconds != nil {
		c.Header("Retry-After", strconv.Itoa(*state.RetryAfterSeconds))
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
		"error": "gateway is in " + string(state.Mode) + " mode",
		"mode":  state.Mode,
	})
}
