package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Engine builds the gin.Engine exposing the gateway's REST and
// WebSocket API over deps.
func (s *Server) Engine() *gin.Engine {
	if s.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())
	r.Use(s.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/v1/ws", s.handleWebSocket)

	// The maintenance control surface is registered on a sibling group
	// that does not carry maintenanceGate: it is the only way back to
	// ModeRunning, so it must stay reachable while the gateway is in
	// maintenance or draining mode.
	maint := r.Group("/v1/maintenance")
	{
		maint.GET("", s.handleMaintenanceState)
		maint.POST("/enter", s.handleEnterMaintenance)
		maint.POST("/drain", s.handleStartDraining)
		maint.POST("/exit", s.handleExitMaintenance)
	}

	v1 := r.Group("/v1")
	v1.Use(s.maintenanceGate)
	{
		v1.GET("/tools", s.handleListTools)
		v1.GET("/tools/metadata", s.handleRegistryMetadata)
		v1.POST("/tools/reload", s.handleRegistryReload)
		v1.GET("/diagnostics", s.handleDiagnostics)
		v1.GET("/install-plan", s.handleInstallPlan)
		v1.GET("/readiness", s.handleReadiness)
		v1.GET("/updates", s.handleUpdates)

		v1.GET("/snapshot", s.handleGetSnapshot)
		v1.POST("/snapshot/cache/clear", s.handleClearSnapshotCache)
		v1.GET("/snapshot/cache/stats", s.handleSnapshotCacheStats)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", s.handleRegisterSession)
			sessions.POST("/:id/tokens", s.handleUpdateTokens)
			sessions.POST("/:id/messages", s.handleAddMessage)
			sessions.GET("/:id/health", s.handleCheckHealth)
			sessions.POST("/:id/compact", s.handleCompact)
			sessions.POST("/:id/rotate", s.handleRotate)
			sessions.DELETE("/:id", s.handleUnregisterSession)
		}
	}

	return r
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) > 0 {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}
