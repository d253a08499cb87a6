package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acfsgateway/internal/contexthealth"
	"acfsgateway/internal/maintenance"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *maintenance.Coordinator) {
	t.Helper()
	coord := maintenance.New(nil)
	srv := NewServer(RouterDeps{Maintenance: coord}, RouterConfig{Environment: "test"})
	return srv, coord
}

// TestMaintenanceGate_AdmitsWhileRunning verifies a gated v1 route
// succeeds normally when the coordinator is in ModeRunning.
func TestMaintenanceGate_AdmitsWhileRunning(t *testing.T) {
	srv := NewServer(RouterDeps{
		Maintenance:   maintenance.New(nil),
		ContextHealth: contexthealth.NewEngine(contexthealth.Config{}, nil),
	}, RouterConfig{Environment: "test"})
	engine := srv.Engine()

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{"sessionId":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

// TestMaintenanceGate_RejectsGatedRoutesWhileDraining verifies a gated
// v1 route is aborted with 503 once the coordinator is draining, with a
// Retry-After header attached.
func TestMaintenanceGate_RejectsGatedRoutesWhileDraining(t *testing.T) {
	srv, coord := newTestServer(t)
	engine := srv.Engine()

	coord.StartDraining(maintenance.DrainOptions{DeadlineSeconds: 30, Reason: "upgrade"})

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

// TestMaintenanceGate_ExemptsMaintenanceControlRoutes is the regression
// test for the maintenance-control-route lockout: once the gateway
// enters maintenance mode, GET /v1/maintenance and POST
// /v1/maintenance/exit must remain reachable, since exit is the only
// path back to ModeRunning.
func TestMaintenanceGate_ExemptsMaintenanceControlRoutes(t *testing.T) {
	srv, coord := newTestServer(t)
	engine := srv.Engine()

	coord.EnterMaintenance(maintenance.EnterOptions{Reason: "patch", Actor: "operator"})
	require.Equal(t, maintenance.ModeMaintenance, coord.State().Mode)

	getReq := httptest.NewRequest(http.MethodGet, "/v1/maintenance", nil)
	getRec := httptest.NewRecorder()
	engine.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code, "GET /v1/maintenance must stay reachable in maintenance mode")

	exitReq := httptest.NewRequest(http.MethodPost, "/v1/maintenance/exit", nil)
	exitRec := httptest.NewRecorder()
	engine.ServeHTTP(exitRec, exitReq)
	assert.Equal(t, http.StatusOK, exitRec.Code, "POST /v1/maintenance/exit must stay reachable in maintenance mode")

	assert.Equal(t, maintenance.ModeRunning, coord.State().Mode)
}

// TestMaintenanceGate_HealthzAlwaysReachable verifies the ungated
// health check bypasses the gate regardless of mode.
func TestMaintenanceGate_HealthzAlwaysReachable(t *testing.T) {
	srv, coord := newTestServer(t)
	engine := srv.Engine()

	coord.EnterMaintenance(maintenance.EnterOptions{Reason: "patch"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
