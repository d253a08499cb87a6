package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/snapshot"
)

// handleGetSnapshot returns the cached or freshly-collected cross-source
// health snapshot.
func (s *Server) handleGetSnapshot(c *gin.Context) {
	opts := snapshot.GetOptions{BypassCache: c.Query("bypassCache") == "true"}
	snap := s.deps.SnapshotService.GetSnapshot(c.Request.Context(), opts)
	c.JSON(http.StatusOK, snap)
}

// handleClearSnapshotCache invalidates the cached snapshot.
func (s *Server) handleClearSnapshotCache(c *gin.Context) {
	s.deps.SnapshotService.ClearCache()
	c.Status(http.StatusNoContent)
}

// handleSnapshotCacheStats reports cache age/hit state.
func (s *Server) handleSnapshotCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.SnapshotService.GetCacheStats())
}
