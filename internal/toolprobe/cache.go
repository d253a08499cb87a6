package toolprobe

import (
	"context"
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	sharederrors "acfsgateway/internal/shared/errors"
	"acfsgateway/internal/shared/logging"
)

const (
	defaultDetectionCacheSize = 128
	defaultDetectionCacheTTL  = 30 * time.Second
)

type cachedDetection struct {
	cli      DetectedCLI
	cachedAt time.Time
}

// Detector runs CLI probes concurrently and caches per-CLI and aggregate
// results behind a TTL, so repeated snapshot/readiness requests don't
// reissue a process spawn per tool on every call.
type Detector struct {
	prober *Prober
	ttl    time.Duration

	mu    sync.Mutex
	cache *lru.Cache[string, cachedDetection]

	aggMu       sync.Mutex
	aggSnapshot *AggregateDetection
	aggAt       time.Time

	breakers *sharederrors.CircuitBreakerManager
	logger   *logging.Logger
}

// NewDetector builds a Detector with the given per-entry TTL (0 selects
// the default of 30s) and cache size (0 selects 128 entries). A
// CircuitBreaker per CLI name guards against repeatedly spawning a tool
// that keeps crashing, timing out, or failing to spawn.
func NewDetector(ttl time.Duration, cacheSize int) *Detector {
	if ttl <= 0 {
		ttl = defaultDetectionCacheTTL
	}
	if cacheSize <= 0 {
		cacheSize = defaultDetectionCacheSize
	}
	cache, _ := lru.New[string, cachedDetection](cacheSize)
	return &Detector{
		prober:   NewProber(),
		ttl:      ttl,
		cache:    cache,
		breakers: sharederrors.NewCircuitBreakerManager(sharederrors.DefaultCircuitBreakerConfig()),
		logger:   logging.NewComponentLogger("ToolProbeCache"),
	}
}

// probeGuarded runs the Prober under def.Name's circuit breaker. Once
// open, it skips the subprocess spawn entirely and returns a fast
// spawn_failed result until the breaker's timeout elapses.
func (d *Detector) probeGuarded(ctx context.Context, def CLIDefinition) DetectedCLI {
	breaker := d.breakers.Get(def.Name)
	if breaker.State() == sharederrors.StateOpen {
		reason := ReasonSpawnFailed
		return DetectedCLI{
			Name:                 def.Name,
			Capabilities:         def.Capabilities,
			DetectedAt:           time.Now(),
			UnavailabilityReason: &reason,
		}
	}

	var result DetectedCLI
	_ = breaker.Execute(ctx, func(ctx context.Context) error {
		result = d.prober.Detect(ctx, def)
		if isTransientProbeFailure(result) {
			return errProbeTransient
		}
		return nil
	})
	return result
}

// DetectOne returns a cached detection for def.Name if still fresh,
// otherwise probes it and refreshes the cache.
func (d *Detector) DetectOne(ctx context.Context, def CLIDefinition) DetectedCLI {
	d.mu.Lock()
	if entry, ok := d.cache.Get(def.Name); ok && time.Since(entry.cachedAt) < d.ttl {
		d.mu.Unlock()
		return entry.cli
	}
	d.mu.Unlock()

	result := d.probeGuarded(ctx, def)

	d.mu.Lock()
	d.cache.Add(def.Name, cachedDetection{cli: result, cachedAt: time.Now()})
	d.mu.Unlock()

	return result
}

// DetectAll runs agents and tools concurrently, one goroutine per CLI,
// and assembles the aggregate summary. It bypasses the per-CLI cache
// freshness check only when bypassCache is set.
func (d *Detector) DetectAll(ctx context.Context, agents, tools []CLIDefinition, bypassCache bool) AggregateDetection {
	if !bypassCache {
		d.aggMu.Lock()
		if d.aggSnapshot != nil && time.Since(d.aggAt) < d.ttl {
			snap := *d.aggSnapshot
			d.aggMu.Unlock()
			return snap
		}
		d.aggMu.Unlock()
	}

	agentResults := d.detectConcurrently(ctx, agents, bypassCache)
	toolResults := d.detectConcurrently(ctx, tools, bypassCache)

	summary := DetectionSummary{Total: len(agentResults) + len(toolResults)}
	for _, r := range append(append([]DetectedCLI{}, agentResults...), toolResults...) {
		if r.Available {
			summary.Available++
		} else {
			summary.Unavailable++
		}
	}

	agg := AggregateDetection{Agents: agentResults, Tools: toolResults, Summary: summary}

	d.aggMu.Lock()
	d.aggSnapshot = &agg
	d.aggAt = time.Now()
	d.aggMu.Unlock()

	return agg
}

func (d *Detector) detectConcurrently(ctx context.Context, defs []CLIDefinition, bypassCache bool) []DetectedCLI {
	results := make([]DetectedCLI, len(defs))
	var wg sync.WaitGroup
	for i, def := range defs {
		wg.Add(1)
		go func(i int, def CLIDefinition) {
			defer wg.Done()
			if bypassCache {
				results[i] = d.probeGuarded(ctx, def)
				d.mu.Lock()
				d.cache.Add(def.Name, cachedDetection{cli: results[i], cachedAt: time.Now()})
				d.mu.Unlock()
				return
			}
			results[i] = d.DetectOne(ctx, def)
		}(i, def)
	}
	wg.Wait()
	return results
}

// ClearCache drops every cached per-CLI and aggregate result.
func (d *Detector) ClearCache() {
	d.mu.Lock()
	d.cache.Purge()
	d.mu.Unlock()

	d.aggMu.Lock()
	d.aggSnapshot = nil
	d.aggMu.Unlock()
}

var errProbeTransient = errors.New("toolprobe: transient probe failure")

// isTransientProbeFailure reports whether result reflects an
// environmental failure (spawn, timeout, crash, unreachable MCP) as
// opposed to a deterministic state like "not installed" or "needs auth"
// that shouldn't trip the breaker.
func isTransientProbeFailure(result DetectedCLI) bool {
	if result.UnavailabilityReason == nil {
		return false
	}
	switch *result.UnavailabilityReason {
	case ReasonSpawnFailed, ReasonTimeout, ReasonCrash, ReasonMCPUnreachable:
		return true
	default:
		return false
	}
}
