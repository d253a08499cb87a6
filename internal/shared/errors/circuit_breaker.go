package errors

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is a circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreakerConfig configures trip/recovery thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures before tripping open
	SuccessThreshold int           // consecutive half-open successes before closing
	Timeout          time.Duration // how long to stay open before trying half-open
}

// DefaultCircuitBreakerConfig is the configuration the tool probe
// Detector wraps every CLI probe with.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// CircuitBreaker guards a single named dependency (in this module, one
// probed CLI) against repeated failing calls.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	mu     sync.Mutex
	state  State
	fails  int
	succs  int
	openAt time.Time
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultCircuitBreakerConfig().FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = DefaultCircuitBreakerConfig().SuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCircuitBreakerConfig().Timeout
	}
	return &CircuitBreaker{name: name, cfg: cfg, state: StateClosed}
}

// State returns the current breaker state, transitioning open->half-open
// as a side effect once the timeout has elapsed.
func (c *CircuitBreaker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeHalfOpenLocked()
	return c.state
}

func (c *CircuitBreaker) maybeHalfOpenLocked() {
	if c.state == StateOpen && time.Since(c.openAt) >= c.cfg.Timeout {
		c.state = StateHalfOpen
		c.succs = 0
	}
}

// Execute runs fn if the breaker allows it, recording the outcome.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	c.mu.Lock()
	c.maybeHalfOpenLocked()
	if c.state == StateOpen {
		c.mu.Unlock()
		return fmt.Errorf("circuit breaker %q is open", c.name)
	}
	c.mu.Unlock()

	err := fn(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fails++
		c.succs = 0
		if c.state == StateHalfOpen || c.fails >= c.cfg.FailureThreshold {
			c.state = StateOpen
			c.openAt = time.Now()
			c.fails = 0
		}
		return err
	}

	c.fails = 0
	switch c.state {
	case StateHalfOpen:
		c.succs++
		if c.succs >= c.cfg.SuccessThreshold {
			c.state = StateClosed
			c.succs = 0
		}
	case StateOpen:
		// Shouldn't happen (Execute blocked above), defensive no-op.
	}
	return nil
}

// IsTransient reports whether err should be retried. This repo treats
// every Go error returned across a probe/collector boundary as
// transient; application-level failures are carried as typed results,
// not Go errors, by the callers of Execute.
func IsTransient(err error) bool { return err != nil }

// CircuitBreakerManager hands out one CircuitBreaker per name, creating
// it lazily and sharing configuration across the store.
type CircuitBreakerManager struct {
	mu       sync.Mutex
	cfg      CircuitBreakerConfig
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerManager creates a manager sharing cfg across breakers.
func NewCircuitBreakerManager(cfg CircuitBreakerConfig) *CircuitBreakerManager {
	return &CircuitBreakerManager{cfg: cfg, breakers: make(map[string]*CircuitBreaker)}
}

// Get returns the breaker for name, creating it if necessary.
func (m *CircuitBreakerManager) Get(name string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b := NewCircuitBreaker(name, m.cfg)
	m.breakers[name] = b
	return b
}
