package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/shared/logging"
)

const (
	defaultCacheTTL         = 10 * time.Second
	defaultCollectionTimeout = 2500 * time.Millisecond
)

// Config controls caching and per-source timeouts.
type Config struct {
	CacheTTL          time.Duration // default 10s
	CollectionTimeout time.Duration // default 2.5s, applied per source
	Cwd               string
	Registerer        prometheus.Registerer
	// Hub receives a snapshot.collected event after every fresh
	// aggregation pass. Nil installs a NoopHub; snapshot publication is
	// never contract-critical.
	Hub eventhub.Bus
}

func (c Config) normalized() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.CollectionTimeout <= 0 {
		c.CollectionTimeout = defaultCollectionTimeout
	}
	return c
}

// GetOptions configures a single GetSnapshot call.
type GetOptions struct {
	BypassCache bool
}

// CacheStats reports whether a cached snapshot exists and its age.
type CacheStats struct {
	Cached bool
	Age    time.Duration
}

// Service is the Snapshot Aggregator: it fans out to four collectors
// under per-source deadlines and caches the assembled result.
type Service struct {
	cfg Config

	ntm       NTMCollector
	beads     BeadsCollector
	tools     ToolHealthCollector
	agentMail AgentMailCollector

	mu        sync.Mutex
	cached    *Snapshot
	fetchedAt time.Time

	hub     eventhub.Bus
	metrics *metrics
	logger  *logging.Logger
}

// NewService builds a Service. A nil ntm, beads, or tools collector is
// replaced with one that always returns the empty fallback snapshot
// (unavailable); a nil agentMail collector is replaced with a
// FileAgentMailCollector reading the JSONL files under cfg.Cwd.
func NewService(cfg Config, ntm NTMCollector, beads BeadsCollector, tools ToolHealthCollector, agentMail AgentMailCollector) *Service {
	if ntm == nil {
		ntm = NTMCollectorFunc(func(ctx context.Context) (NTMSnapshot, error) { return emptyNTMSnapshot(), nil })
	}
	if beads == nil {
		beads = BeadsCollectorFunc(func(ctx context.Context) (BeadsSnapshot, error) { return emptyBeadsSnapshot(), nil })
	}
	if tools == nil {
		tools = ToolHealthCollectorFunc(func(ctx context.Context) (ToolHealthSnapshot, error) { return emptyToolHealthSnapshot(), nil })
	}
	if agentMail == nil {
		agentMail = FileAgentMailCollector{Dir: cfg.Cwd}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = eventhub.NoopHub{}
	}

	return &Service{
		cfg:       cfg.normalized(),
		ntm:       ntm,
		beads:     beads,
		tools:     tools,
		agentMail: agentMail,
		hub:       hub,
		metrics:   newMetrics(cfg.Registerer),
		logger:    logging.NewComponentLogger("SnapshotAggregator"),
	}
}

// GetSnapshot returns the cached snapshot if still fresh, otherwise
// collects fresh data from all four sources in parallel.
func (s *Service) GetSnapshot(ctx context.Context, opts GetOptions) Snapshot {
	if !opts.BypassCache {
		s.mu.Lock()
		if s.cached != nil && time.Since(s.fetchedAt) < s.cfg.CacheTTL {
			snap := *s.cached
			s.mu.Unlock()
			return snap
		}
		s.mu.Unlock()
	}

	start := time.Now()

	var ntmSnap NTMSnapshot
	var beadsSnap BeadsSnapshot
	var toolsSnap ToolHealthSnapshot
	var mailSnap AgentMailSnapshot

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		ntmSnap = s.collectNTM(ctx)
	}()
	go func() {
		defer wg.Done()
		beadsSnap = s.collectBeads(ctx)
	}()
	go func() {
		defer wg.Done()
		toolsSnap = s.collectTools(ctx)
	}()
	go func() {
		defer wg.Done()
		mailSnap = s.collectAgentMail(ctx)
	}()

	wg.Wait()

	now := time.Now()
	snap := Snapshot{
		Meta: Meta{
			SchemaVersion:        SchemaVersion,
			GeneratedAt:          now,
			GenerationDurationMs: now.Sub(start).Milliseconds(),
		},
		NTM:       ntmSnap,
		Beads:     beadsSnap,
		Tools:     toolsSnap,
		AgentMail: mailSnap,
		FetchedAt: now,
	}
	snap.Summary = deriveSummary(snap)

	s.mu.Lock()
	s.cached = &snap
	s.fetchedAt = snap.FetchedAt
	s.mu.Unlock()

	s.hub.Publish(eventhub.System(eventhub.ChannelSnapshot), eventhub.EventSnapshotCollected, map[string]any{
		"status":     string(snap.Summary.Status),
		"issues":     snap.Summary.Issues,
		"durationMs": snap.Meta.GenerationDurationMs,
	}, nil)

	s.logger.Info("snapshot collected", "duration_ms", snap.Meta.GenerationDurationMs, "status", string(snap.Summary.Status))

	return snap
}

// ClearCache drops the cached snapshot.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
}

// GetCacheStats reports whether a cached snapshot exists and its age.
func (s *Service) GetCacheStats() CacheStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return CacheStats{}
	}
	return CacheStats{Cached: true, Age: time.Since(s.fetchedAt)}
}

func (s *Service) collectNTM(ctx context.Context) NTMSnapshot {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.ntm.Collect(cctx)
	latency := time.Since(start).Milliseconds()

	if err != nil || cctx.Err() != nil {
		snap = emptyNTMSnapshot()
		snap.CollectionResult = failureResult(err, cctx, latency)
		s.metrics.observe("ntm", snap.CollectionResult)
		return snap
	}
	snap.CollectionResult = CollectionResult{Success: true, LatencyMs: latency, CapturedAt: time.Now()}
	s.metrics.observe("ntm", snap.CollectionResult)
	return snap
}

func (s *Service) collectBeads(ctx context.Context) BeadsSnapshot {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.beads.Collect(cctx)
	latency := time.Since(start).Milliseconds()

	if err != nil || cctx.Err() != nil {
		snap = emptyBeadsSnapshot()
		snap.CollectionResult = failureResult(err, cctx, latency)
		s.metrics.observe("beads", snap.CollectionResult)
		return snap
	}
	snap.CollectionResult = CollectionResult{Success: true, LatencyMs: latency, CapturedAt: time.Now()}
	s.metrics.observe("beads", snap.CollectionResult)
	return snap
}

func (s *Service) collectTools(ctx context.Context) ToolHealthSnapshot {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.tools.Collect(cctx)
	latency := time.Since(start).Milliseconds()

	if err != nil || cctx.Err() != nil {
		snap = emptyToolHealthSnapshot()
		snap.CollectionResult = failureResult(err, cctx, latency)
		s.metrics.observe("tools", snap.CollectionResult)
		return snap
	}
	snap.CollectionResult = CollectionResult{Success: true, LatencyMs: latency, CapturedAt: time.Now()}
	s.metrics.observe("tools", snap.CollectionResult)
	return snap
}

func (s *Service) collectAgentMail(ctx context.Context) AgentMailSnapshot {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.agentMail.Collect(cctx)
	latency := time.Since(start).Milliseconds()

	if err != nil || cctx.Err() != nil {
		snap = emptyAgentMailSnapshot()
		snap.CollectionResult = failureResult(err, cctx, latency)
		s.metrics.observe("agent_mail", snap.CollectionResult)
		return snap
	}
	snap.CollectionResult = CollectionResult{Success: true, LatencyMs: latency, CapturedAt: time.Now()}
	s.metrics.observe("agent_mail", snap.CollectionResult)
	return snap
}

func failureResult(err error, cctx context.Context, latencyMs int64) CollectionResult {
	msg := "unknown collection error"
	if cctx.Err() == context.DeadlineExceeded {
		msg = "collection timed out"
	} else if err != nil {
		msg = err.Error()
	}
	return CollectionResult{Success: false, Error: msg, LatencyMs: latencyMs, CapturedAt: time.Now()}
}

// deriveSummary folds per-source health statuses into one overall
// status: any unhealthy component makes the whole unhealthy; any
// degraded or unknown makes it degraded; otherwise healthy.
func deriveSummary(snap Snapshot) Summary {
	statuses := map[string]HealthStatus{
		"ntm":        ntmStatus(snap.NTM),
		"beads":      beadsStatus(snap.Beads),
		"tools":      toolsStatus(snap.Tools),
		"agent_mail": agentMailStatus(snap.AgentMail),
	}

	overall := StatusHealthy
	var issues []string
	for source, st := range statuses {
		switch st {
		case StatusUnhealthy:
			overall = StatusUnhealthy
			issues = append(issues, source+" is unhealthy")
		case StatusDegraded, StatusUnknown:
			if overall != StatusUnhealthy {
				overall = StatusDegraded
			}
			issues = append(issues, source+" is "+string(st))
		}
	}

	return Summary{Status: overall, Issues: issues}
}

func ntmStatus(s NTMSnapshot) HealthStatus {
	switch {
	case s.Success && s.Available:
		return StatusHealthy
	case s.Success && !s.Available:
		return StatusUnhealthy
	default:
		return StatusUnknown
	}
}

func beadsStatus(s BeadsSnapshot) HealthStatus {
	switch {
	case s.Success && (s.BRAvailable || s.BVAvailable):
		return StatusHealthy
	case s.Success && !s.BRAvailable && !s.BVAvailable:
		return StatusUnhealthy
	default:
		return StatusUnknown
	}
}

func toolsStatus(s ToolHealthSnapshot) HealthStatus {
	if !s.Success {
		return StatusUnknown
	}
	return s.Status
}

func agentMailStatus(s AgentMailSnapshot) HealthStatus {
	switch {
	case s.Success && s.Available && s.Status != "":
		return HealthStatus(s.Status)
	case s.Success && !s.Available:
		return StatusUnhealthy
	default:
		return StatusUnknown
	}
}
