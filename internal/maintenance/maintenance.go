// Package maintenance implements the process-wide running/maintenance/
// draining state machine (component I) that gates request admission at
// the boundary.
package maintenance

import (
	"math"
	"strings"
	"sync"
	"time"

	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/shared/logging"
)

// Mode is the coordinator's current admission mode.
type Mode string

const (
	ModeRunning     Mode = "running"
	ModeMaintenance Mode = "maintenance"
	ModeDraining    Mode = "draining"
)

const maxReasonLength = 500

// State is the externally-visible maintenance state.
type State struct {
	Mode              Mode
	StartedAt         *time.Time
	DeadlineAt        *time.Time
	Reason            *string
	UpdatedAt         time.Time
	UpdatedBy         *string
	RetryAfterSeconds *int
	InFlightRequests  int
}

// Coordinator is an explicitly-constructed singleton: callers build one
// at process startup and pass the handle to consumers, rather than
// reaching for a package-level global.
type Coordinator struct {
	mu sync.Mutex

	mode      Mode
	startedAt *time.Time
	deadline  *time.Time
	reason    *string
	updatedAt time.Time
	updatedBy *string

	inFlight int

	hub    eventhub.Bus
	logger *logging.Logger
}

// New builds a Coordinator in the running mode. If hub is nil a NoopHub
// is installed.
func New(hub eventhub.Bus) *Coordinator {
	if hub == nil {
		hub = eventhub.NoopHub{}
	}
	return &Coordinator{
		mode:      ModeRunning,
		updatedAt: time.Now(),
		hub:       hub,
		logger:    logging.NewComponentLogger("MaintenanceCoordinator"),
	}
}

// EnterOptions configures EnterMaintenance.
type EnterOptions struct {
	Reason string
	Actor  string
}

// EnterMaintenance transitions running -> maintenance, no deadline.
func (c *Coordinator) EnterMaintenance(opts EnterOptions) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.mode = ModeMaintenance
	c.startedAt = &now
	c.deadline = nil
	c.reason = trimReason(opts.Reason)
	c.updatedAt = now
	c.updatedBy = actorPtr(opts.Actor)

	c.logger.Info("entered maintenance", "actor", opts.Actor, "reason", opts.Reason)
	c.publish("maintenance.entered")
	return c.snapshotLocked()
}

// DrainOptions configures StartDraining.
type DrainOptions struct {
	DeadlineSeconds int
	Reason          string
	Actor           string
}

// StartDraining transitions running -> draining with a required deadline.
func (c *Coordinator) StartDraining(opts DrainOptions) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	deadline := now.Add(time.Duration(opts.DeadlineSeconds) * time.Second)

	c.mode = ModeDraining
	c.startedAt = &now
	c.deadline = &deadline
	c.reason = trimReason(opts.Reason)
	c.updatedAt = now
	c.updatedBy = actorPtr(opts.Actor)

	c.logger.Info("started draining", "actor", opts.Actor, "reason", opts.Reason, "deadline_seconds", opts.DeadlineSeconds)
	c.publish("maintenance.draining")
	return c.snapshotLocked()
}

// ExitOptions configures ExitMaintenance.
type ExitOptions struct {
	Actor string
}

// ExitMaintenance transitions any mode -> running.
func (c *Coordinator) ExitMaintenance(opts ExitOptions) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.mode = ModeRunning
	c.startedAt = nil
	c.deadline = nil
	c.reason = nil
	c.updatedAt = now
	c.updatedBy = actorPtr(opts.Actor)

	c.logger.Info("exited maintenance", "actor", opts.Actor)
	c.publish("maintenance.exited")
	return c.snapshotLocked()
}

// State returns the current maintenance state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	var retryAfter *int
	if c.mode == ModeDraining && c.deadline != nil {
		remaining := time.Until(*c.deadline).Seconds()
		secs := int(math.Ceil(remaining))
		if secs < 0 {
			secs = 0
		}
		retryAfter = &secs
	}

	return State{
		Mode:              c.mode,
		StartedAt:         c.startedAt,
		DeadlineAt:        c.deadline,
		Reason:            c.reason,
		UpdatedAt:         c.updatedAt,
		UpdatedBy:         c.updatedBy,
		RetryAfterSeconds: retryAfter,
		InFlightRequests:  c.inFlight,
	}
}

// BeginRequest increments the in-flight counter; the caller must invoke
// the returned func when the request ends.
func (c *Coordinator) BeginRequest() func() {
	c.mu.Lock()
	c.inFlight++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.inFlight--
			if c.inFlight < 0 {
				c.logger.Warn("in-flight counter went negative, clamping to 0")
				c.inFlight = 0
			}
			c.mu.Unlock()
		})
	}
}

// InFlightCount returns the current in-flight request count.
func (c *Coordinator) InFlightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

func (c *Coordinator) publish(eventType string) {
	snap := c.snapshotLocked()
	c.hub.Publish(eventhub.System(eventhub.ChannelMaintenance), eventType, snap, nil)
}

func trimReason(reason string) *string {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxReasonLength {
		trimmed = trimmed[:maxReasonLength]
	}
	return &trimmed
}

func actorPtr(actor string) *string {
	if actor == "" {
		return nil
	}
	return &actor
}
