package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"acfsgateway/internal/diagnostics"
	"acfsgateway/internal/installplan"
	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
)

// handleListTools returns the full manifest-derived tool catalog.
func (s *Server) handleListTools(c *gin.Context) {
	tools, err := s.deps.Registry.ListAll()
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

// handleRegistryMetadata returns manifest provenance: path, hash, source.
func (s *Server) handleRegistryMetadata(c *gin.Context) {
	meta, err := s.deps.Registry.GetMetadata()
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// handleRegistryReload bypasses the manifest cache and reloads from disk.
func (s *Server) handleRegistryReload(c *gin.Context) {
	_, meta, err := s.deps.Registry.Load(toolregistry.LoadOptions{BypassCache: true})
	if err != nil {
		s.writeCoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

// handleDiagnostics runs dependency-aware health diagnosis across the
// detected CLI set.
func (s *Server) handleDiagnostics(c *gin.Context) {
	bypass := c.Query("bypassCache") == "true"

	tools, err := s.deps.Registry.ListAll()
	if err != nil {
		s.writeCoreError(c, err)
		return
	}

	agg := s.deps.Detector.DetectAll(c.Request.Context(), s.deps.Agents, s.deps.Tools, bypass)
	detected := append(append([]toolprobe.DetectedCLI{}, agg.Agents...), agg.Tools...)

	report := diagnostics.Diagnose(tools, detected)
	c.JSON(http.StatusOK, report)
}

// handleInstallPlan computes the phase-ordered install plan from the
// current manifest and the latest detection pass.
func (s *Server) handleInstallPlan(c *gin.Context) {
	bypass := c.Query("bypassCache") == "true"

	tools, err := s.deps.Registry.ListAll()
	if err != nil {
		s.writeCoreError(c, err)
		return
	}

	agg := s.deps.Detector.DetectAll(c.Request.Context(), s.deps.Agents, s.deps.Tools, bypass)
	all := append(append([]toolprobe.DetectedCLI{}, agg.Agents...), agg.Tools...)

	detectedStatuses := make([]installplan.DetectedStatus, 0, len(all))
	for _, d := range all {
		detectedStatuses = append(detectedStatuses, installplan.FromDetectedCLI(d))
	}

	plan := installplan.Build(tools, detectedStatuses)
	c.JSON(http.StatusOK, plan)
}

// handleReadiness degrades rather than fails: a fallback registry or an
// empty detection pass still yields a 200 with ready=false and
// remediation recommendations.
func (s *Server) handleReadiness(c *gin.Context) {
	tools, err := s.deps.Registry.ListAll()
	if err != nil {
		s.writeCoreError(c, err)
		return
	}

	agg := s.deps.Detector.DetectAll(c.Request.Context(), s.deps.Agents, s.deps.Tools, false)
	all := append(append([]toolprobe.DetectedCLI{}, agg.Agents...), agg.Tools...)

	detectedStatuses := make([]installplan.DetectedStatus, 0, len(all))
	for _, d := range all {
		detectedStatuses = append(detectedStatuses, installplan.FromDetectedCLI(d))
	}

	readiness := installplan.DeriveReadiness(installplan.Build(tools, detectedStatuses))
	c.JSON(http.StatusOK, readiness)
}
