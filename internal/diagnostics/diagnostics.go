// Package diagnostics builds dependency-aware health reports from a
// tool registry and a detection run (component E). It is the only
// consumer that understands dependsOn/dependedBy relationships and
// cascade failures.
package diagnostics

import (
	"sort"

	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
)

// ToolHealth is the per-tool diagnostic entry.
type ToolHealth struct {
	ID                   string
	DisplayName          string
	Available            bool
	DependsOn            []string
	DependedBy           []string
	Reason               *toolprobe.UnavailabilityReason
	ReasonLabel          string
	RootCausePath        []string
	RootCause            *string
	RootCauseExplanation *string
}

// CascadeFailure names a tool whose unavailability is transitively
// caused by a deeper missing dependency.
type CascadeFailure struct {
	AffectedTool string
	RootCause    string
	Path         []string
}

// Summary counts diagnostic outcomes and lists de-duplicated root causes.
type Summary struct {
	Total           int
	Available       int
	Unavailable     int
	CascadeFailures int
	RootCauses      []string
}

// Report is the full diagnostics result for a detection run.
type Report struct {
	Tools           []ToolHealth
	CascadeFailures []CascadeFailure
	Summary         Summary
}

// detectedIndex resolves availability by both ID and executable name,
// since tool dependencies are declared by ID but detection runs by
// command name.
type detectedIndex struct {
	byID   map[string]toolprobe.DetectedCLI
	byName map[string]toolprobe.DetectedCLI
}

func buildDetectedIndex(tools []toolregistry.ToolDefinition, detected []toolprobe.DetectedCLI) detectedIndex {
	idx := detectedIndex{byID: make(map[string]toolprobe.DetectedCLI), byName: make(map[string]toolprobe.DetectedCLI)}
	byName := make(map[string]toolprobe.DetectedCLI, len(detected))
	for _, d := range detected {
		byName[d.Name] = d
	}
	idx.byName = byName
	for _, t := range tools {
		if d, ok := byName[t.Name]; ok {
			idx.byID[t.ID] = d
		}
	}
	return idx
}

func (idx detectedIndex) available(id string) (toolprobe.DetectedCLI, bool) {
	d, ok := idx.byID[id]
	return d, ok && d.Available
}

func (idx detectedIndex) lookup(id string) (toolprobe.DetectedCLI, bool) {
	d, ok := idx.byID[id]
	return d, ok
}

// Diagnose builds a Report for the given tools and their detection
// results, computing dependency indices, cycle-guarded root-cause
// paths, and cascade-failure grouping per the dependency graph.
func Diagnose(tools []toolregistry.ToolDefinition, detected []toolprobe.DetectedCLI) Report {
	byID := make(map[string]toolregistry.ToolDefinition, len(tools))
	dependsOn := make(map[string][]string, len(tools))
	dependedBy := make(map[string][]string, len(tools))

	for _, t := range tools {
		byID[t.ID] = t
		dependsOn[t.ID] = append([]string{}, t.Depends...)
	}
	for _, t := range tools {
		for _, dep := range t.Depends {
			dependedBy[dep] = append(dependedBy[dep], t.ID)
		}
	}

	idx := buildDetectedIndex(tools, detected)

	rootCauseSet := make(map[string]bool)
	var cascades []CascadeFailure
	results := make([]ToolHealth, 0, len(tools))

	for _, t := range tools {
		entry := ToolHealth{
			ID:          t.ID,
			DisplayName: t.DisplayNameOrID(),
			DependsOn:   dependsOn[t.ID],
			DependedBy:  dependedBy[t.ID],
		}

		if _, ok := idx.available(t.ID); ok {
			entry.Available = true
			results = append(results, entry)
			continue
		}

		entry.Available = false
		reason := toolprobe.ReasonUnknown
		if d, ok := idx.lookup(t.ID); ok && d.UnavailabilityReason != nil {
			reason = *d.UnavailabilityReason
		}
		entry.Reason = &reason
		entry.ReasonLabel = reason.Info().Label

		path := rootCausePath(t.ID, byID, idx)
		entry.RootCausePath = path
		if len(path) > 0 {
			root := path[0]
			entry.RootCause = &root
			rootCauseSet[root] = true

			explanation := entry.DisplayName + " is unavailable because " + displayNameOf(byID, root) + " is missing"
			entry.RootCauseExplanation = &explanation

			if root != t.ID {
				cascades = append(cascades, CascadeFailure{
					AffectedTool: t.ID,
					RootCause:    root,
					Path:         path,
				})
			}
		}

		results = append(results, entry)
	}

	summary := Summary{Total: len(tools), CascadeFailures: len(cascades)}
	for _, r := range results {
		if r.Available {
			summary.Available++
		} else {
			summary.Unavailable++
		}
	}
	rootCauses := make([]string, 0, len(rootCauseSet))
	for id := range rootCauseSet {
		rootCauses = append(rootCauses, id)
	}
	sort.Strings(rootCauses)
	summary.RootCauses = rootCauses

	return Report{Tools: results, CascadeFailures: cascades, Summary: summary}
}

func displayNameOf(byID map[string]toolregistry.ToolDefinition, id string) string {
	if t, ok := byID[id]; ok {
		return t.DisplayNameOrID()
	}
	return id
}

// rootCausePath walks the dependency chain from id through unavailable
// dependencies via DFS, cycle-guarded with a visited set, returning a
// root-first path terminating with id. If id itself has no unavailable
// dependency, the path is just [id] (id is its own root cause).
func rootCausePath(id string, byID map[string]toolregistry.ToolDefinition, idx detectedIndex) []string {
	visited := make(map[string]bool)
	return dfsRootCause(id, byID, idx, visited)
}

func dfsRootCause(id string, byID map[string]toolregistry.ToolDefinition, idx detectedIndex, visited map[string]bool) []string {
	if visited[id] {
		return []string{id}
	}
	visited[id] = true

	t, ok := byID[id]
	if !ok {
		return []string{id}
	}

	for _, dep := range t.Depends {
		if _, available := idx.available(dep); available {
			continue
		}
		deeper := dfsRootCause(dep, byID, idx, visited)
		return append(deeper, id)
	}

	return []string{id}
}
