// Package toolprobe detects installed CLIs on PATH, parses their
// versions, checks authentication, and classifies why a CLI is
// unavailable (component D). It is the probing layer Health Diagnostics
// (E) and the Snapshot Aggregator (G) both consume.
package toolprobe

import "time"

// UnavailabilityReason is the wire-stable fourteen-variant enum
// describing why a CLI was found unavailable.
type UnavailabilityReason string

const (
	ReasonNotInstalled      UnavailabilityReason = "not_installed"
	ReasonNotInPath         UnavailabilityReason = "not_in_path"
	ReasonPermissionDenied  UnavailabilityReason = "permission_denied"
	ReasonVersionUnsupported UnavailabilityReason = "version_unsupported"
	ReasonAuthRequired      UnavailabilityReason = "auth_required"
	ReasonAuthExpired       UnavailabilityReason = "auth_expired"
	ReasonConfigMissing     UnavailabilityReason = "config_missing"
	ReasonConfigInvalid     UnavailabilityReason = "config_invalid"
	ReasonDependencyMissing UnavailabilityReason = "dependency_missing"
	ReasonMCPUnreachable    UnavailabilityReason = "mcp_unreachable"
	ReasonSpawnFailed       UnavailabilityReason = "spawn_failed"
	ReasonTimeout           UnavailabilityReason = "timeout"
	ReasonCrash             UnavailabilityReason = "crash"
	ReasonUnknown           UnavailabilityReason = "unknown"
)

// ReasonInfo is the fixed {httpStatus, label, retryable} tuple for a
// reason, wire-stable across releases.
type ReasonInfo struct {
	HTTPStatus int
	Label      string
	Retryable  bool
}

var reasonTable = map[UnavailabilityReason]ReasonInfo{
	ReasonNotInstalled:       {404, "Tool is not installed", false},
	ReasonNotInPath:          {404, "Tool executable is not on PATH", false},
	ReasonPermissionDenied:   {403, "Permission denied executing tool", false},
	ReasonVersionUnsupported: {400, "Installed tool version is unsupported", false},
	ReasonAuthRequired:       {401, "Tool requires authentication", true},
	ReasonAuthExpired:        {401, "Tool authentication has expired", true},
	ReasonConfigMissing:      {400, "Tool configuration is missing", false},
	ReasonConfigInvalid:      {400, "Tool configuration is invalid", false},
	ReasonDependencyMissing:  {424, "A dependency of this tool is unavailable", true},
	ReasonMCPUnreachable:     {503, "MCP endpoint is unreachable", true},
	ReasonSpawnFailed:        {500, "Failed to spawn tool process", true},
	ReasonTimeout:            {504, "Tool invocation timed out", true},
	ReasonCrash:              {500, "Tool process crashed", true},
	ReasonUnknown:            {500, "Tool is unavailable for an unknown reason", true},
}

// Info returns the wire-stable metadata for a reason, defaulting to
// ReasonUnknown's info if r is not recognized.
func (r UnavailabilityReason) Info() ReasonInfo {
	if info, ok := reasonTable[r]; ok {
		return info
	}
	return reasonTable[ReasonUnknown]
}

// Capabilities flags what a CLI supports.
type Capabilities struct {
	Streaming     bool
	ToolUse       bool
	Vision        bool
	CodeExecution bool
	FileAccess    bool
}

// CLIDefinition describes how to invoke and classify a single CLI.
type CLIDefinition struct {
	Name         string
	Commands     []string // candidate executable names; the first found on PATH is run with VersionFlag
	VersionFlag  string
	AuthCheckCmd []string // first element is remapped to the resolved path
	Capabilities Capabilities
	Timeout      time.Duration
}

// DetectedCLI is the per-tool detection result.
type DetectedCLI struct {
	Name                 string
	Available            bool
	Path                 *string
	Version              *string
	Authenticated         *bool
	AuthError             *string
	UnavailabilityReason  *UnavailabilityReason
	Capabilities          Capabilities
	DetectedAt            time.Time
	DurationMs            int64
}

// AggregateDetection bundles detection results the way the Snapshot
// Aggregator and readiness endpoints consume them.
type AggregateDetection struct {
	Agents  []DetectedCLI
	Tools   []DetectedCLI
	Summary DetectionSummary
}

// DetectionSummary counts available vs unavailable across a detection run.
type DetectionSummary struct {
	Total       int
	Available   int
	Unavailable int
}
