package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
)

// RegistryToolHealthCollector derives the tools sub-snapshot from a live
// Detector pass over the critical setup tools (dcg, slb, ubs, br, bv)
// plus the manifest's declared checksums for whichever of those it
// resolves a binary for. It is the concrete ToolHealthCollector the
// gateway wires in; tests exercise the interface with
// ToolHealthCollectorFunc instead.
type RegistryToolHealthCollector struct {
	Registry *toolregistry.Registry
	Detector *toolprobe.Detector
	Tools    []toolprobe.CLIDefinition
}

// Collect runs detection across the configured setup-tool CLIDefinitions
// and folds the result into a HealthStatus plus checksum/ecosystem info.
func (c RegistryToolHealthCollector) Collect(ctx context.Context) (ToolHealthSnapshot, error) {
	agg := c.Detector.DetectAll(ctx, nil, c.Tools, false)

	checksums := map[string]string{}
	var detected, ecosystems []string
	available, unavailable := 0, 0

	declared := c.declaredChecksums()

	for _, d := range agg.Tools {
		if !d.Available {
			unavailable++
			continue
		}
		available++
		detected = append(detected, d.Name)
		if d.Path != nil {
			if sum, ok := hashFile(*d.Path); ok {
				checksums[d.Name] = sum
			}
		}
		ecosystems = append(ecosystems, ecosystemFor(d.Name)...)
	}

	status := StatusHealthy
	switch {
	case available == 0 && len(c.Tools) > 0:
		status = StatusUnhealthy
	case unavailable > 0:
		status = StatusDegraded
	}
	if status != StatusUnhealthy && staleChecksums(declared, checksums) {
		status = StatusDegraded
	}

	return ToolHealthSnapshot{
		Status:     status,
		Checksums:  checksums,
		Detected:   dedupeStrings(detected),
		Ecosystems: dedupeStrings(ecosystems),
	}, nil
}

// declaredChecksums reads the currently cached manifest's per-tool
// checksum declarations, keyed by executable name, ignoring load
// failures (checksum freshness is best-effort, never a collection
// failure).
func (c RegistryToolHealthCollector) declaredChecksums() map[string]string {
	out := map[string]string{}
	if c.Registry == nil {
		return out
	}
	tools, err := c.Registry.ListAll()
	if err != nil {
		return out
	}
	for _, t := range tools {
		for algo, sum := range t.Checksums {
			if algo == "sha256" {
				out[t.Name] = sum
			}
		}
	}
	return out
}

// staleChecksums reports whether any declared checksum disagrees with
// the one computed from the resolved binary on disk.
func staleChecksums(declared, computed map[string]string) bool {
	for name, want := range declared {
		if got, ok := computed[name]; ok && got != want {
			return true
		}
	}
	return false
}

func hashFile(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), true
}

// ecosystemFor maps a detected setup tool to the package ecosystem(s) it
// indicates are usable (cargo for the Rust-built coordination tools,
// plus git for the sync-capable ones).
func ecosystemFor(name string) []string {
	switch name {
	case "dcg", "slb", "ubs":
		return []string{"cargo"}
	case "br", "bv":
		return []string{"cargo", "git"}
	default:
		return nil
	}
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var _ ToolHealthCollector = RegistryToolHealthCollector{}
