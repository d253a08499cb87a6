// Package snapshot aggregates system state from four independent
// sources (NTM, beads, tool health, Agent Mail) into a single cached
// view (component G).
package snapshot

import "time"

// SchemaVersion is the wire-stable version stamped into Snapshot.Meta.
// Consumers tolerate unknown sub-fields but rely on the summary status
// enum exactly as healthy|degraded|unhealthy.
const SchemaVersion = "1.0.0"

// Meta describes one aggregation pass.
type Meta struct {
	SchemaVersion        string
	GeneratedAt          time.Time
	GenerationDurationMs int64
}

// CollectionResult is the outcome of probing one source: success/failure,
// the error (if any), and how long the attempt took.
type CollectionResult struct {
	Success    bool
	Error      string
	LatencyMs  int64
	CapturedAt time.Time
}

// HealthStatus is the four-value status enum used throughout the
// snapshot and its sub-components.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusUnknown   HealthStatus = "unknown"
)

// NTMSnapshot reports external session/agent status from NTM.
type NTMSnapshot struct {
	CollectionResult
	Available bool
	Sessions  []NTMSession
}

// NTMSession is a single agent session reported by NTM.
type NTMSession struct {
	ID     string
	Agent  string
	Status string
}

func emptyNTMSnapshot() NTMSnapshot {
	return NTMSnapshot{Available: false}
}

// BeadsSnapshot reports br (sync status) and bv (triage) state.
type BeadsSnapshot struct {
	CollectionResult
	BRAvailable bool
	BVAvailable bool
	SyncStatus  string
	Triage      []TriageItem
}

// TriageItem is one bv-reported item.
type TriageItem struct {
	ID       string
	Title    string
	Priority string
}

func emptyBeadsSnapshot() BeadsSnapshot {
	return BeadsSnapshot{}
}

// ToolHealthSnapshot reports DCG/SLB/UBS status plus checksum and
// ecosystem detection info.
type ToolHealthSnapshot struct {
	CollectionResult
	Status     HealthStatus
	Checksums  map[string]string
	Detected   []string
	Ecosystems []string
}

func emptyToolHealthSnapshot() ToolHealthSnapshot {
	return ToolHealthSnapshot{Status: StatusUnknown, Checksums: map[string]string{}}
}

// AgentMailSnapshot reports local JSONL-backed agent messaging state.
type AgentMailSnapshot struct {
	CollectionResult
	Available bool
	Status    string // healthy or degraded, only meaningful when Available
	Agents    []string
	Messages  []MailMessage
}

// MailMessage mirrors one messages.jsonl record.
type MailMessage struct {
	ID        string
	From      string
	To        string
	Subject   string
	Body      string
	Priority  string
	Timestamp time.Time
	Read      bool
}

func emptyAgentMailSnapshot() AgentMailSnapshot {
	return AgentMailSnapshot{Available: false}
}

// Summary is the folded overall status plus the list of issues.
type Summary struct {
	Status HealthStatus
	Issues []string
}

// Snapshot is the full aggregated view. Every sub-snapshot is always
// populated: a failed source carries its typed empty fallback, never a
// half-filled partial.
type Snapshot struct {
	Meta      Meta
	NTM       NTMSnapshot
	Beads     BeadsSnapshot
	Tools     ToolHealthSnapshot
	AgentMail AgentMailSnapshot
	Summary   Summary
	FetchedAt time.Time
}
