package maintenance

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterMaintenance_NoDeadline(t *testing.T) {
	c := New(nil)
	state := c.EnterMaintenance(EnterOptions{Reason: "planned upgrade", Actor: "operator"})
	assert.Equal(t, ModeMaintenance, state.Mode)
	assert.Nil(t, state.DeadlineAt)
	assert.Nil(t, state.RetryAfterSeconds)
	require.NotNil(t, state.Reason)
	assert.Equal(t, "planned upgrade", *state.Reason)
}

func TestStartDraining_ComputesRetryAfter(t *testing.T) {
	c := New(nil)
	state := c.StartDraining(DrainOptions{DeadlineSeconds: 30, Reason: "rolling restart"})
	assert.Equal(t, ModeDraining, state.Mode)
	require.NotNil(t, state.DeadlineAt)
	require.NotNil(t, state.RetryAfterSeconds)
	assert.LessOrEqual(t, *state.RetryAfterSeconds, 30)
	assert.Greater(t, *state.RetryAfterSeconds, 0)
}

func TestExitMaintenance_ReturnsToRunning(t *testing.T) {
	c := New(nil)
	c.EnterMaintenance(EnterOptions{Reason: "x"})
	state := c.ExitMaintenance(ExitOptions{Actor: "operator"})
	assert.Equal(t, ModeRunning, state.Mode)
	assert.Nil(t, state.Reason)
	assert.Nil(t, state.DeadlineAt)
}

func TestReasonTrimmedAndTruncated(t *testing.T) {
	c := New(nil)
	long := strings.Repeat("x", 600)
	state := c.EnterMaintenance(EnterOptions{Reason: "  " + long + "  "})
	require.NotNil(t, state.Reason)
	assert.Len(t, *state.Reason, maxReasonLength)
}

func TestInFlightCounter_ClampsAtZero(t *testing.T) {
	c := New(nil)
	end := c.BeginRequest()
	assert.Equal(t, 1, c.InFlightCount())
	end()
	assert.Equal(t, 0, c.InFlightCount())

	end()
	assert.Equal(t, 0, c.InFlightCount(), "double-end must not go negative")
}

func TestRetryAfterPastDeadlineIsZero(t *testing.T) {
	c := New(nil)
	c.StartDraining(DrainOptions{DeadlineSeconds: 0})
	time.Sleep(5 * time.Millisecond)
	state := c.State()
	require.NotNil(t, state.RetryAfterSeconds)
	assert.Equal(t, 0, *state.RetryAfterSeconds)
}
