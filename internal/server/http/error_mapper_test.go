package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	sharederrors "acfsgateway/internal/shared/errors"
	"acfsgateway/internal/toolprobe"
)

func TestMapCoreError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"nil", nil, 0},
		{"not a core error", assertionError{"boom"}, 0},
		{"not found", sharederrors.NotFoundError("missing"), http.StatusNotFound},
		{"validation", sharederrors.ValidationError("bad input"), http.StatusBadRequest},
		{"conflict", sharederrors.ConflictError("already exists"), http.StatusConflict},
		{"unavailable", sharederrors.UnavailableError("down"), http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := mapCoreError(tc.err)
			assert.Equal(t, tc.wantStatus, status)
		})
	}
}

func TestMapCoreError_Message(t *testing.T) {
	_, message := mapCoreError(sharederrors.NotFoundError("tool xyz not found"))
	assert.Equal(t, "tool xyz not found", message)
}

func TestMapUnavailabilityReason(t *testing.T) {
	cases := []struct {
		reason     toolprobe.UnavailabilityReason
		wantStatus int
	}{
		{toolprobe.ReasonNotInstalled, http.StatusNotFound},
		{toolprobe.ReasonAuthRequired, http.StatusUnauthorized},
		{toolprobe.ReasonMCPUnreachable, http.StatusServiceUnavailable},
		{toolprobe.ReasonCrash, http.StatusInternalServerError},
		{toolprobe.UnavailabilityReason("made-up-reason"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.wantStatus, mapUnavailabilityReason(tc.reason))
	}
}

type assertionError struct{ msg string }

func (e assertionError) Error() string { return e.msg }
