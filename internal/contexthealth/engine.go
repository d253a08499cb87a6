package contexthealth

import (
	"context"
	"math"
	"sync"
	"time"

	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/shared/logging"
)

const (
	defaultWarningThreshold  = 75.0
	defaultCriticalThreshold = 85.0
	defaultEmergencyThreshold = 95.0
	defaultHistoryMaxLen     = 200
	defaultMaxTokens         = 128_000
	defaultCooldown          = 60 * time.Second
	defaultMonitorInterval   = 30 * time.Second
	defaultTargetReduction   = 0.3
	escalationThreshold      = 93.0
)

// Thresholds configures the percentUsed bands.
type Thresholds struct {
	Warning   float64
	Critical  float64
	Emergency float64
}

// Config configures an Engine.
type Config struct {
	ModelLimits            map[string]int
	DefaultMaxTokens       int
	Thresholds             Thresholds
	HistoryMaxLen          int
	MonitorInterval        time.Duration
	Cooldown               time.Duration
	AutoHeal               bool
	SummarizationEnabled   bool
	RotationEnabled        bool
	PreserveRecentCount    int
	PreserveRecentDuration time.Duration
	DefaultTargetReduction float64
	CostPerTokenUSD        float64
}

func (c Config) normalized() Config {
	if c.DefaultMaxTokens <= 0 {
		c.DefaultMaxTokens = defaultMaxTokens
	}
	if c.Thresholds.Warning <= 0 {
		c.Thresholds.Warning = defaultWarningThreshold
	}
	if c.Thresholds.Critical <= 0 {
		c.Thresholds.Critical = defaultCriticalThreshold
	}
	if c.Thresholds.Emergency <= 0 {
		c.Thresholds.Emergency = defaultEmergencyThreshold
	}
	if c.HistoryMaxLen <= 0 {
		c.HistoryMaxLen = defaultHistoryMaxLen
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = defaultMonitorInterval
	}
	if c.Cooldown <= 0 {
		c.Cooldown = defaultCooldown
	}
	if c.PreserveRecentCount <= 0 {
		c.PreserveRecentCount = 10
	}
	if c.PreserveRecentDuration <= 0 {
		c.PreserveRecentDuration = 15 * time.Minute
	}
	if c.DefaultTargetReduction <= 0 {
		c.DefaultTargetReduction = defaultTargetReduction
	}
	if c.CostPerTokenUSD <= 0 {
		c.CostPerTokenUSD = 0.000003
	}
	return c
}

// Engine is the per-process Context Health coordinator. Session state
// mutations are serialized per session ID via a per-session mutex held
// only across in-memory work, never across I/O.
type Engine struct {
	cfg    Config
	hub    eventhub.Bus
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[string]*sessionRecord

	stopOnce sync.Once
	stopCh   chan struct{}
}

type sessionRecord struct {
	mu    sync.Mutex
	state SessionState
	stop  chan struct{}
}

// NewEngine builds an Engine. If hub is nil, a NoopHub is installed so
// callers never need to nil-check before publishing.
func NewEngine(cfg Config, hub eventhub.Bus) *Engine {
	if hub == nil {
		hub = eventhub.NoopHub{}
	}
	return &Engine{
		cfg:      cfg.normalized(),
		hub:      hub,
		logger:   logging.NewComponentLogger("ContextHealthEngine"),
		sessions: make(map[string]*sessionRecord),
		stopCh:   make(chan struct{}),
	}
}

// resolveMaxTokens implements arg -> model-specific limit table -> default.
func (e *Engine) resolveMaxTokens(opts RegisterOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	if opts.Model != "" {
		if limit, ok := e.cfg.ModelLimits[opts.Model]; ok {
			return limit
		}
	}
	return e.cfg.DefaultMaxTokens
}

// RegisterSession creates a new session and, if monitoring is enabled,
// starts its periodic health check ticker.
func (e *Engine) RegisterSession(id string, opts RegisterOptions) SessionState {
	state := SessionState{
		ID:        id,
		Model:     opts.Model,
		MaxTokens: e.resolveMaxTokens(opts),
		CreatedAt: time.Now(),
		Status:    SessionActive,
	}

	rec := &sessionRecord{state: state, stop: make(chan struct{})}

	e.mu.Lock()
	e.sessions[id] = rec
	e.mu.Unlock()

	if e.cfg.MonitorInterval > 0 {
		go e.monitorLoop(id, rec)
	}

	return state
}

func (e *Engine) monitorLoop(id string, rec *sessionRecord) {
	ticker := time.NewTicker(e.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := e.CheckHealth(context.Background(), id); err != nil {
				return
			}
		case <-rec.stop:
			return
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) getSession(id string) (*sessionRecord, error) {
	e.mu.Lock()
	rec, ok := e.sessions[id]
	e.mu.Unlock()
	if !ok {
		return nil, newSessionNotFound(id)
	}
	return rec, nil
}

// UpdateTokens appends a TokenHistoryEntry and trims history to the
// configured max length.
func (e *Engine) UpdateTokens(id string, tokens int, event string) error {
	rec, err := e.getSession(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	prev := rec.state.CurrentTokens
	rec.state.CurrentTokens = tokens
	rec.state.History = append(rec.state.History, TokenHistoryEntry{
		Timestamp: time.Now(),
		Tokens:    tokens,
		Delta:     tokens - prev,
		Event:     event,
	})
	if len(rec.state.History) > e.cfg.HistoryMaxLen {
		rec.state.History = rec.state.History[len(rec.state.History)-e.cfg.HistoryMaxLen:]
	}
	return nil
}

// AddMessage appends a message and bumps tokens by countTokens(content).
func (e *Engine) AddMessage(id string, message Message) error {
	rec, err := e.getSession(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	if rec.state.Status == SessionRotated {
		rec.mu.Unlock()
		return &ContextHealthError{SessionID: id, Message: "session is rotated, no further messages accepted"}
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	rec.state.Messages = append(rec.state.Messages, message)
	newTokens := rec.state.CurrentTokens + countTokens(message.Content)
	prev := rec.state.CurrentTokens
	rec.state.CurrentTokens = newTokens
	rec.state.History = append(rec.state.History, TokenHistoryEntry{
		Timestamp: time.Now(),
		Tokens:    newTokens,
		Delta:     newTokens - prev,
		Event:     "message",
	})
	if len(rec.state.History) > e.cfg.HistoryMaxLen {
		rec.state.History = rec.state.History[len(rec.state.History)-e.cfg.HistoryMaxLen:]
	}
	rec.mu.Unlock()
	return nil
}

// UnregisterSession releases session state and stops its monitoring.
func (e *Engine) UnregisterSession(id string) {
	e.mu.Lock()
	rec, ok := e.sessions[id]
	if ok {
		delete(e.sessions, id)
	}
	e.mu.Unlock()
	if ok {
		close(rec.stop)
	}
}

// Shutdown stops every session's monitoring ticker.
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}

func bandFor(percentUsed float64, t Thresholds) Status {
	switch {
	case percentUsed >= t.Emergency:
		return StatusEmergency
	case percentUsed >= t.Critical:
		return StatusCritical
	case percentUsed >= t.Warning:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// CheckHealth computes the derived read-model for a session and, if
// auto-healing is enabled, runs graduated interventions.
func (e *Engine) CheckHealth(ctx context.Context, id string) (ContextHealth, error) {
	rec, err := e.getSession(id)
	if err != nil {
		return ContextHealth{}, err
	}

	rec.mu.Lock()
	snapshot := rec.state
	rec.mu.Unlock()

	percentUsed := 0.0
	if snapshot.MaxTokens > 0 {
		percentUsed = float64(snapshot.CurrentTokens) / float64(snapshot.MaxTokens) * 100
	}
	status := bandFor(percentUsed, e.cfg.Thresholds)

	overflow := projectedOverflowInMessages(snapshot)
	eta := estimatedTimeToWarning(snapshot, e.cfg.Thresholds.Warning)

	health := ContextHealth{
		SessionID:                   id,
		Status:                      status,
		CurrentTokens:               snapshot.CurrentTokens,
		MaxTokens:                   snapshot.MaxTokens,
		PercentUsed:                 percentUsed,
		ProjectedOverflowInMessages: overflow,
		EstimatedTimeToWarning:      eta,
		TokenHistory:                snapshot.History,
		LastCompaction:              snapshot.LastCompaction,
		LastRotation:                snapshot.LastRotation,
		Recommendations:             e.recommendations(status, snapshot),
		CheckedAt:                   time.Now(),
	}

	if e.cfg.AutoHeal {
		e.runInterventions(ctx, id, status, percentUsed)
	}

	return health, nil
}

// projectedOverflowInMessages computes ceil((max - current) / avgDelta)
// over the last <=10 positive-delta history entries; nil if fewer than
// 3 history points or non-positive average.
func projectedOverflowInMessages(s SessionState) *int {
	deltas := positiveDeltas(s.History, 10)
	if len(deltas) < 3 {
		return nil
	}
	avg := average(deltas)
	if avg <= 0 {
		return nil
	}
	remaining := float64(s.MaxTokens - s.CurrentTokens)
	if remaining <= 0 {
		v := 0
		return &v
	}
	v := int(math.Ceil(remaining / avg))
	return &v
}

// estimatedTimeToWarning computes tokensToWarning / velocity over the
// last <=10 history entries; nil when velocity <= 0 or insufficient
// data; zero duration if threshold already met.
func estimatedTimeToWarning(s SessionState, warningThreshold float64) *time.Duration {
	warningTokens := warningThreshold / 100 * float64(s.MaxTokens)
	if float64(s.CurrentTokens) >= warningTokens {
		d := time.Duration(0)
		return &d
	}

	window := lastN(s.History, 10)
	if len(window) < 2 {
		return nil
	}

	elapsed := window[len(window)-1].Timestamp.Sub(window[0].Timestamp)
	if elapsed <= 0 {
		return nil
	}
	tokenDelta := float64(window[len(window)-1].Tokens - window[0].Tokens)
	velocity := tokenDelta / elapsed.Seconds()
	if velocity <= 0 {
		return nil
	}

	tokensToWarning := warningTokens - float64(s.CurrentTokens)
	seconds := tokensToWarning / velocity
	d := time.Duration(seconds * float64(time.Second))
	return &d
}

func positiveDeltas(history []TokenHistoryEntry, limit int) []float64 {
	window := lastN(history, limit)
	var out []float64
	for _, h := range window {
		if h.Delta > 0 {
			out = append(out, float64(h.Delta))
		}
	}
	return out
}

func lastN(history []TokenHistoryEntry, n int) []TokenHistoryEntry {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// recommendations implements the status -> {action, urgency,
// estimatedTokenSavings} table.
func (e *Engine) recommendations(status Status, s SessionState) []Recommendation {
	var r Recommendation
	switch status {
	case StatusHealthy:
		r = Recommendation{Action: "none", Urgency: "low", Reason: "token usage is within healthy bounds", EstimatedTokenSavings: 0}
	case StatusWarning:
		savings := int(float64(s.CurrentTokens) * 0.2)
		r = Recommendation{Action: "summarize", Urgency: "medium", Reason: "token usage has crossed the warning threshold", EstimatedTokenSavings: savings}
	case StatusCritical:
		savings := int(float64(s.CurrentTokens) * 0.3)
		r = Recommendation{Action: "compact", Urgency: "high", Reason: "token usage has crossed the critical threshold", EstimatedTokenSavings: savings}
	case StatusEmergency:
		savings := int(float64(s.CurrentTokens) * 0.8)
		r = Recommendation{Action: "rotate", Urgency: "critical", Reason: "token usage has crossed the emergency threshold", EstimatedTokenSavings: savings}
	}
	r.EstimatedCostUSD = float64(r.EstimatedTokenSavings) * e.cfg.CostPerTokenUSD
	return []Recommendation{r}
}

// runInterventions implements the graduated-intervention cascade: warn
// logs and emits; critical compacts (escalating to emergency at >=93%
// on failure); emergency rotates unless within cooldown.
func (e *Engine) runInterventions(ctx context.Context, id string, status Status, percentUsed float64) {
	switch status {
	case StatusWarning:
		e.logger.Warn("session token usage crossed warning threshold", "session_id", id, "percent_used", percentUsed)
		e.publishBoth(id, eventhub.EventContextWarning, map[string]any{"sessionId": id, "percentUsed": percentUsed})

	case StatusCritical:
		if !e.cfg.SummarizationEnabled {
			return
		}
		if _, err := e.compactLocked(id, CompactOptions{}); err != nil && percentUsed >= escalationThreshold {
			e.runInterventions(ctx, id, StatusEmergency, percentUsed)
		}

	case StatusEmergency:
		if !e.cfg.RotationEnabled {
			return
		}
		rec, err := e.getSession(id)
		if err != nil {
			return
		}
		rec.mu.Lock()
		lastRotation := rec.state.LastRotation
		rec.mu.Unlock()
		if lastRotation != nil && time.Since(*lastRotation) < e.cfg.Cooldown {
			skipErr := &RotationError{SessionID: id, Reason: RotationCooldown, Message: "rotation requested within cooldown window"}
			e.logger.Info("rotation skipped", "session_id", id, "error", skipErr)
			return
		}
		if _, err := e.Rotate(ctx, id, RotateOptions{Reason: "emergency token pressure"}); err != nil {
			e.logger.Warn("emergency rotation failed", "session_id", id, "error", err)
		}
	}
}

func (e *Engine) publishBoth(sessionID, eventType string, payload any) {
	e.hub.Publish(eventhub.System(eventhub.ChannelSession), eventType, payload, nil)
	e.hub.Publish(eventhub.Session(eventhub.ChannelSession, sessionID), eventType, payload, nil)
}
