// Package installplan derives a phase-ordered remediation plan from the
// tool registry and a detection run (component F): what's installed,
// what's missing, how to install it, and a ready-to-run install script.
package installplan

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"acfsgateway/internal/toolprobe"
	"acfsgateway/internal/toolregistry"
)

// Status is the per-tool install-plan outcome.
type Status string

const (
	StatusInstalled       Status = "installed"
	StatusMissing         Status = "missing"
	StatusOptionalMissing Status = "optional_missing"
	StatusError           Status = "error"
)

// DetectedStatus is the minimal detection signal the planner consumes.
type DetectedStatus struct {
	Name      string
	Available bool
	Version   *string
	Error     *string
}

// FromDetectedCLI narrows a full toolprobe.DetectedCLI down to the
// fields the planner needs.
func FromDetectedCLI(d toolprobe.DetectedCLI) DetectedStatus {
	var errStr *string
	if d.UnavailabilityReason != nil {
		s := d.UnavailabilityReason.Info().Label
		errStr = &s
	}
	return DetectedStatus{Name: d.Name, Available: d.Available, Version: d.Version, Error: errStr}
}

// Entry is one tool's plan row.
type Entry struct {
	ToolID         string
	Name           string
	DisplayName    string
	Phase          int
	Status         Status
	Version        *string
	Required       bool
	InstallCommand *string
	DocsURL        string
	Remediation    []string
}

// Plan is the full install plan for a manifest + detection run.
type Plan struct {
	Entries         []Entry
	Installed       int
	MissingRequired int
	MissingOptional int
	Ready           bool
	InstallScript   string
	ComputedAt      time.Time
}

// Build derives the full Plan, ordering entries by phase ascending
// (unknown phase defaults to 999, per ToolDefinition.EffectivePhase).
func Build(tools []toolregistry.ToolDefinition, detected []DetectedStatus) Plan {
	byName := make(map[string]DetectedStatus, len(detected))
	for _, d := range detected {
		byName[d.Name] = d
	}

	sorted := append([]toolregistry.ToolDefinition{}, tools...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectivePhase() < sorted[j].EffectivePhase()
	})

	var entries []Entry
	var installed, missingRequired, missingOptional int

	for _, t := range sorted {
		required := toolregistry.Classify(t) == toolregistry.ClassRequired
		d, detectedOK := byName[t.Name]

		var status Status
		var version *string
		switch {
		case detectedOK && d.Available:
			status = StatusInstalled
			version = d.Version
			installed++
		case detectedOK && d.Error != nil:
			status = StatusError
			if required {
				missingRequired++
			}
		case required:
			status = StatusMissing
			missingRequired++
		default:
			status = StatusOptionalMissing
			missingOptional++
		}

		cmd := resolveInstallCommand(t)
		entries = append(entries, Entry{
			ToolID:         t.ID,
			Name:           t.Name,
			DisplayName:    t.DisplayNameOrID(),
			Phase:          t.EffectivePhase(),
			Status:         status,
			Version:        version,
			Required:       required,
			InstallCommand: cmd,
			DocsURL:        t.DocsURL,
			Remediation:    remediationSteps(t, cmd),
		})
	}

	ready := missingRequired == 0
	script := formatInstallScript(sorted, entries)

	return Plan{
		Entries:         entries,
		Installed:       installed,
		MissingRequired: missingRequired,
		MissingOptional: missingOptional,
		Ready:           ready,
		InstallScript:   script,
		ComputedAt:      time.Now(),
	}
}

// resolveInstallCommand implements the precedence chain:
// verifiedInstaller -> install[0] -> none.
func resolveInstallCommand(t toolregistry.ToolDefinition) *string {
	if t.VerifiedInstaller != nil {
		cmd := strings.TrimSpace(t.VerifiedInstaller.Runner + " " + strings.Join(t.VerifiedInstaller.Args, " "))
		return &cmd
	}
	if len(t.Install) > 0 {
		first := t.Install[0]
		cmd := strings.TrimSpace(first.Command + " " + strings.Join(first.Args, " "))
		return &cmd
	}
	return nil
}

func remediationSteps(t toolregistry.ToolDefinition, installCmd *string) []string {
	var steps []string

	if installCmd != nil {
		steps = append(steps, fmt.Sprintf("Install: `%s`", *installCmd))
	}

	if t.VerifiedInstaller != nil && t.VerifiedInstaller.FallbackURL != "" {
		steps = append(steps, "Manual: "+t.VerifiedInstaller.FallbackURL)
	} else if len(t.Install) > 0 && t.Install[0].URL != "" {
		steps = append(steps, "Manual: "+t.Install[0].URL)
	}

	if t.DocsURL != "" {
		steps = append(steps, "Docs: "+t.DocsURL)
	}

	if t.Verify != nil && len(t.Verify.Command) > 0 {
		steps = append(steps, fmt.Sprintf("Verify: `%s`", strings.Join(t.Verify.Command, " ")))
	}

	if len(t.Install) > 0 && t.Install[0].RequiresSudo {
		steps = append(steps, "requires sudo")
	}
	if len(t.Install) > 0 && t.Install[0].Mode == "interactive" {
		steps = append(steps, "interactive install (may need tmux)")
	}

	if len(steps) == 0 {
		if t.DocsURL != "" {
			steps = append(steps, "See documentation: "+t.DocsURL)
		} else {
			steps = append(steps, "See documentation for install instructions")
		}
	}

	return steps
}

// formatInstallScript is the phase-ordered concatenation of a header
// comment plus install command for each missing-required tool that has
// a resolved install command, wrapped in a runnable bash script.
func formatInstallScript(sorted []toolregistry.ToolDefinition, entries []Entry) string {
	byID := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byID[e.ToolID] = e
	}

	var body strings.Builder
	any := false
	for _, t := range sorted {
		e, ok := byID[t.ID]
		if !ok || e.Status != StatusMissing || !e.Required || e.InstallCommand == nil {
			continue
		}
		fmt.Fprintf(&body, "# %s (phase %d)\n%s\n\n", e.DisplayName, e.Phase, *e.InstallCommand)
		any = true
	}

	if !any {
		return "#!/usr/bin/env bash\n# all required tools are already installed\n"
	}

	var out strings.Builder
	out.WriteString("#!/usr/bin/env bash\nset -euo pipefail\n\n")
	out.WriteString(body.String())
	out.WriteString("echo \"install complete\"\n")
	return out.String()
}
