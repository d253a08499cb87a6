package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/contexthealth"
	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/shared/logging"
)

// Server wires RouterDeps into a gin.Engine exposing the gateway's REST
// and WebSocket API.
type Server struct {
	deps   RouterDeps
	cfg    RouterConfig
	logger *logging.Logger
}

// NewServer builds a Server. Call Engine() to obtain the gin.Engine to
// run; the caller serves it through its own http.Server.
func NewServer(deps RouterDeps, cfg RouterConfig) *Server {
	if deps.Hub == nil {
		deps.Hub = eventhub.NoopHub{}
	}
	return &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logging.NewComponentLogger("HTTPServer"),
	}
}

// writeCoreError maps a returned error to an HTTP status and JSON body,
// recognizing shared/errors.CoreError and the contexthealth package's
// typed errors; anything else becomes a 500.
func (s *Server) writeCoreError(c *gin.Context, err error) {
	if status, message := mapCoreError(err); status != 0 {
		c.JSON(status, gin.H{"error": message})
		return
	}

	var notFound *contexthealth.ContextHealthError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return
	}

	var rotationErr *contexthealth.RotationError
	if errors.As(err, &rotationErr) {
		c.JSON(http.StatusConflict, gin.H{"error": rotationErr.Error()})
		return
	}

	var summarizationErr *contexthealth.SummarizationError
	if errors.As(err, &summarizationErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": summarizationErr.Error()})
		return
	}

	s.logger.Error("unmapped handler error", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
