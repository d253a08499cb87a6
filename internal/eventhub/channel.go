package eventhub

// ChannelType enumerates the structured identifier kinds publishers and
// subscribers address. New producers should add a constant here rather
// than using ad-hoc strings.
type ChannelType string

const (
	ChannelSystem      ChannelType = "system"
	ChannelSession     ChannelType = "session"
	ChannelTool        ChannelType = "tool"
	ChannelSnapshot    ChannelType = "snapshot"
	ChannelMaintenance ChannelType = "maintenance"
	ChannelSweep       ChannelType = "sweep"
	ChannelAccount     ChannelType = "account"
)

// Channel identifies a pub/sub destination by type + optional ID (e.g. a
// session ID). Two channels are equal iff both fields match.
type Channel struct {
	Type ChannelType
	ID   string
}

// System returns the process-wide channel for a given type with no ID.
// Context-health events, for instance, are published both here and to
// a per-session channel.
func System(t ChannelType) Channel { return Channel{Type: t} }

// Session returns the per-session channel for a given type.
func Session(t ChannelType, sessionID string) Channel { return Channel{Type: t, ID: sessionID} }

// Well-known event type strings.
const (
	EventContextWarning          = "context.warning"
	EventContextCompacted        = "context.compacted"
	EventContextEmergencyRotated = "context.emergency_rotated"
	EventSnapshotCollected       = "snapshot.collected"
	EventToolUpdateAvailable     = "tool.update_available"
)
