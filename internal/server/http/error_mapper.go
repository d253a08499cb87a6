// Package http is the thin REST + WebSocket glue in front of the
// coordination cores: tool registry, diagnostics, install planner,
// snapshot aggregator, context health engine, and maintenance
// coordinator. It is deliberately not part of any core — routing and
// request validation live here and only here; the package performs no
// authentication.
package http

import (
	"net/http"

	"acfsgateway/internal/shared/errors"
	"acfsgateway/internal/toolprobe"
)

// mapCoreError translates a shared/errors.CoreError into an HTTP status
// code and user-facing message. Returns (0, "") if err is not a
// recognized CoreError, leaving the caller to pick a default.
func mapCoreError(err error) (status int, message string) {
	if err == nil {
		return 0, ""
	}

	var coreErr *errors.CoreError
	if !errors.As(err, &coreErr) {
		return 0, ""
	}

	switch coreErr.Kind {
	case errors.KindNotFound:
		return http.StatusNotFound, coreErr.Message
	case errors.KindValidation:
		return http.StatusBadRequest, coreErr.Message
	case errors.KindConflict:
		return http.StatusConflict, coreErr.Message
	case errors.KindUnavailable:
		return http.StatusServiceUnavailable, coreErr.Message
	default:
		return http.StatusInternalServerError, coreErr.Message
	}
}

// mapUnavailabilityReason returns the wire-stable HTTP status for a
// detected CLI's unavailability reason.
func mapUnavailabilityReason(r toolprobe.UnavailabilityReason) int {
	return r.Info().HTTPStatus
}
