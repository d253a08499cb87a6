package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/contexthealth"
)

type registerSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`
}

func (s *Server) handleRegisterSession(c *gin.Context) {
	var req registerSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state := s.deps.ContextHealth.RegisterSession(req.SessionID, contexthealth.RegisterOptions{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	})
	c.JSON(http.StatusCreated, state)
}

type updateTokensRequest struct {
	Tokens int    `json:"tokens" binding:"required"`
	Event  string `json:"event"`
}

func (s *Server) handleUpdateTokens(c *gin.Context) {
	id := c.Param("id")
	var req updateTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Event == "" {
		req.Event = "manual"
	}
	if err := s.deps.ContextHealth.UpdateTokens(id, req.Tokens, req.Event); err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type addMessageRequest struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleAddMessage(c *gin.Context) {
	id := c.Param("id")
	var req addMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.ContextHealth.AddMessage(id, contexthealth.Message{Role: req.Role, Content: req.Content}); err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCheckHealth(c *gin.Context) {
	id := c.Param("id")
	health, err := s.deps.ContextHealth.CheckHealth(c.Request.Context(), id)
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, health)
}

type compactRequest struct {
	Strategy        string  `json:"strategy"`
	TargetReduction float64 `json:"targetReduction"`
}

func (s *Server) handleCompact(c *gin.Context) {
	id := c.Param("id")
	var req compactRequest
	_ = c.ShouldBindJSON(&req)

	opts := contexthealth.CompactOptions{TargetReduction: req.TargetReduction}
	if req.Strategy != "" {
		opts.Strategy = contexthealth.CompactStrategy(req.Strategy)
	}

	result, err := s.deps.ContextHealth.Compact(c.Request.Context(), id, opts)
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type rotateRequest struct {
	Reason    string `json:"reason"`
	Model     string `json:"model"`
	MaxTokens int    `json:"maxTokens"`
}

func (s *Server) handleRotate(c *gin.Context) {
	id := c.Param("id")
	var req rotateRequest
	_ = c.ShouldBindJSON(&req)

	result, err := s.deps.ContextHealth.Rotate(c.Request.Context(), id, contexthealth.RotateOptions{
		Reason:    req.Reason,
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleUnregisterSession(c *gin.Context) {
	id := c.Param("id")
	s.deps.ContextHealth.UnregisterSession(id)
	c.Status(http.StatusNoContent)
}
