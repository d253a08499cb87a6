package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/toolprobe"
)

// handleUpdates reports which fleet tools have newer GitHub releases
// than the currently detected versions.
func (s *Server) handleUpdates(c *gin.Context) {
	if s.deps.Updates == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "update checking is not configured"})
		return
	}

	agg := s.deps.Detector.DetectAll(c.Request.Context(), s.deps.Agents, s.deps.Tools, false)
	current := make(map[string]string)
	for _, d := range append(append([]toolprobe.DetectedCLI{}, agg.Agents...), agg.Tools...) {
		if d.Available && d.Version != nil {
			current[d.Name] = *d.Version
		}
	}

	updates, err := s.deps.Updates.Check(c.Request.Context(), current)
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": updates})
}
