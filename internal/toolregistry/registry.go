package toolregistry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"acfsgateway/internal/shared/logging"
)

const (
	envManifestPathPrimary   = "ACFS_MANIFEST_PATH"
	envManifestPathSecondary = "TOOL_REGISTRY_PATH"
	envManifestTTLPrimary    = "ACFS_MANIFEST_TTL_MS"
	envManifestTTLSecondary  = "TOOL_REGISTRY_TTL_MS"
	defaultManifestName      = "acfs.manifest.yaml"
	defaultCacheTTL          = 60 * time.Second
)

// Config configures a Registry instance.
type Config struct {
	// ProjectRoot is used to resolve the default manifest path when no
	// override/env var is set.
	ProjectRoot string
	// OverridePath, if set, takes precedence over every other path
	// resolution source.
	OverridePath string
	// CacheTTL overrides the manifest cache TTL; if zero it is resolved
	// from ACFS_MANIFEST_TTL_MS / TOOL_REGISTRY_TTL_MS, defaulting to 60s.
	CacheTTL time.Duration
	// ThrowOnError disables fallback substitution: Load returns the
	// error instead.
	ThrowOnError bool
}

type cacheEntry struct {
	manifest Manifest
	meta     Metadata
	loadedAt time.Time
}

// Registry loads, validates, and caches the ACFS tool manifest, keyed by
// resolved path with a configurable TTL.
type Registry struct {
	cfg    Config
	mu     sync.RWMutex
	cache  map[string]*cacheEntry
	logger *logging.Logger
}

// New creates a Registry. It performs no I/O until Load is called.
func New(cfg Config) *Registry {
	return &Registry{
		cfg:    cfg,
		cache:  make(map[string]*cacheEntry),
		logger: logging.NewComponentLogger("ToolRegistry"),
	}
}

// ResolvePath implements the precedence chain: override arg ->
// ACFS_MANIFEST_PATH -> TOOL_REGISTRY_PATH -> default relative to
// project root.
func (r *Registry) ResolvePath() string {
	if strings.TrimSpace(r.cfg.OverridePath) != "" {
		return r.cfg.OverridePath
	}
	if v := os.Getenv(envManifestPathPrimary); strings.TrimSpace(v) != "" {
		return v
	}
	if v := os.Getenv(envManifestPathSecondary); strings.TrimSpace(v) != "" {
		return v
	}
	root := r.cfg.ProjectRoot
	if root == "" {
		root = "."
	}
	return filepath.Join(root, defaultManifestName)
}

func (r *Registry) resolveTTL() time.Duration {
	if r.cfg.CacheTTL > 0 {
		return r.cfg.CacheTTL
	}
	for _, name := range []string{envManifestTTLPrimary, envManifestTTLSecondary} {
		if v := os.Getenv(name); v != "" {
			if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
				return time.Duration(ms) * time.Millisecond
			}
		}
	}
	return defaultCacheTTL
}

// LoadOptions configures a single Load call.
type LoadOptions struct {
	BypassCache bool
}

// Load resolves the manifest path, returning the cached manifest if the
// TTL has not elapsed (unless BypassCache is set — reads bypass the
// cache but still refresh it). On any failure the fallback registry is
// substituted and cached with its error category, unless ThrowOnError is
// set.
func (r *Registry) Load(opts LoadOptions) (Manifest, Metadata, error) {
	path := r.ResolvePath()
	ttl := r.resolveTTL()

	if !opts.BypassCache {
		r.mu.RLock()
		entry, ok := r.cache[path]
		r.mu.RUnlock()
		if ok && time.Since(entry.loadedAt) < ttl {
			return entry.manifest, entry.meta, nil
		}
	}

	manifest, meta, err := r.loadFromDisk(path)
	if err != nil && r.cfg.ThrowOnError {
		return Manifest{}, Metadata{}, err
	}

	r.mu.Lock()
	r.cache[path] = &cacheEntry{manifest: manifest, meta: meta, loadedAt: time.Now()}
	r.mu.Unlock()

	return manifest, meta, nil
}

// ClearCache invalidates every cached manifest entry.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*cacheEntry)
}

func (r *Registry) loadFromDisk(path string) (Manifest, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		cat := ErrManifestReadError
		if os.IsNotExist(err) {
			cat = ErrManifestMissing
		}
		r.logger.Warn("manifest load failed, using fallback", "path", path, "category", string(cat), "error", err)
		return r.fallbackWithCategory(cat), r.fallbackMeta(path, cat), fmt.Errorf("%s: %w", cat, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		r.logger.Warn("manifest parse failed, using fallback", "path", path, "error", err)
		return r.fallbackWithCategory(ErrManifestParseError), r.fallbackMeta(path, ErrManifestParseError), fmt.Errorf("%s: %w", ErrManifestParseError, err)
	}

	if issues := Validate(manifest); len(issues) > 0 {
		r.logger.Warn("manifest validation failed, using fallback", "path", path, "issue_count", len(issues))
		return r.fallbackWithCategory(ErrManifestValidationError), r.fallbackMeta(path, ErrManifestValidationError), fmt.Errorf("%s: %d issue(s)", ErrManifestValidationError, len(issues))
	}

	hash := sha256.Sum256(data)
	meta := Metadata{
		ManifestPath:   path,
		ManifestHash:   hex.EncodeToString(hash[:]),
		SchemaVersion:  manifest.SchemaVersion,
		Source:         manifest.Source,
		GeneratedAt:    manifest.GeneratedAt,
		LoadedAt:       time.Now().UnixMilli(),
		RegistrySource: SourceManifest,
	}
	return manifest, meta, nil
}

func (r *Registry) fallbackWithCategory(cat ErrorCategory) Manifest {
	return fallbackRegistry()
}

func (r *Registry) fallbackMeta(path string, cat ErrorCategory) Metadata {
	msg := userMessages[cat]
	return Metadata{
		ManifestPath:   path,
		SchemaVersion:  "1.0.0",
		Source:         "fallback",
		LoadedAt:       time.Now().UnixMilli(),
		RegistrySource: SourceFallback,
		ErrorCategory:  &cat,
		UserMessage:    &msg,
	}
}

// --- accessors -------------------------------------------------------

// ListAll returns every tool in the currently loaded manifest.
func (r *Registry) ListAll() ([]ToolDefinition, error) {
	m, _, err := r.Load(LoadOptions{})
	if err != nil && r.cfg.ThrowOnError {
		return nil, err
	}
	return m.Tools, nil
}

// ListAgent returns tools with Category == agent.
func (r *Registry) ListAgent() ([]ToolDefinition, error) {
	return r.filterCategory(CategoryAgent)
}

// ListSetup returns tools with Category == tool (non-agent setup tools).
func (r *Registry) ListSetup() ([]ToolDefinition, error) {
	return r.filterCategory(CategoryTool)
}

func (r *Registry) filterCategory(cat Category) ([]ToolDefinition, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	out := make([]ToolDefinition, 0, len(all))
	for _, t := range all {
		if t.Category == cat {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetRequired returns tools classified as required.
func (r *Registry) GetRequired() ([]ToolDefinition, error) { return r.filterClass(ClassRequired) }

// GetRecommended returns tools classified as recommended.
func (r *Registry) GetRecommended() ([]ToolDefinition, error) {
	return r.filterClass(ClassRecommended)
}

// GetOptional returns tools classified as optional.
func (r *Registry) GetOptional() ([]ToolDefinition, error) { return r.filterClass(ClassOptional) }

func (r *Registry) filterClass(class Classification) ([]ToolDefinition, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	out := make([]ToolDefinition, 0, len(all))
	for _, t := range all {
		if Classify(t) == class {
			out = append(out, t)
		}
	}
	return out, nil
}

// CategorizeTools buckets every tool by its derived classification.
func (r *Registry) CategorizeTools() (map[Classification][]ToolDefinition, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	out := map[Classification][]ToolDefinition{
		ClassRequired:    nil,
		ClassRecommended: nil,
		ClassOptional:    nil,
	}
	for _, t := range all {
		c := Classify(t)
		out[c] = append(out[c], t)
	}
	return out, nil
}

// GetToolsByPhase groups tools by EffectivePhase (default bucket 999),
// sorted ascending by phase; within a phase, registry order is kept.
func (r *Registry) GetToolsByPhase() ([]PhaseGroup, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	groups := make(map[int][]ToolDefinition)
	for _, t := range all {
		p := t.EffectivePhase()
		groups[p] = append(groups[p], t)
	}
	phases := make([]int, 0, len(groups))
	for p := range groups {
		phases = append(phases, p)
	}
	sort.Ints(phases)

	out := make([]PhaseGroup, 0, len(phases))
	for _, p := range phases {
		out = append(out, PhaseGroup{Phase: p, Tools: groups[p]})
	}
	return out, nil
}

// PhaseGroup is one phase bucket of tools, in registry order.
type PhaseGroup struct {
	Phase int
	Tools []ToolDefinition
}

// GetMetadata returns the provenance of the currently cached manifest,
// loading it first if necessary.
func (r *Registry) GetMetadata() (Metadata, error) {
	_, meta, err := r.Load(LoadOptions{})
	return meta, err
}

// FindByID returns the tool with the given ID.
func (r *Registry) FindByID(id string) (ToolDefinition, bool, error) {
	all, err := r.ListAll()
	if err != nil {
		return ToolDefinition{}, false, err
	}
	for _, t := range all {
		if t.ID == id {
			return t, true, nil
		}
	}
	return ToolDefinition{}, false, nil
}

// FindByName returns the tool with the given executable name within
// category.
func (r *Registry) FindByName(name string, category Category) (ToolDefinition, bool, error) {
	all, err := r.ListAll()
	if err != nil {
		return ToolDefinition{}, false, err
	}
	for _, t := range all {
		if t.Name == name && t.Category == category {
			return t, true, nil
		}
	}
	return ToolDefinition{}, false, nil
}
