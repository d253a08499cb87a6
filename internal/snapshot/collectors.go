package snapshot

import "context"

// NTMCollector reports external session/agent status.
type NTMCollector interface {
	Collect(ctx context.Context) (NTMSnapshot, error)
}

// BeadsCollector reports br/bv state.
type BeadsCollector interface {
	Collect(ctx context.Context) (BeadsSnapshot, error)
}

// ToolHealthCollector reports DCG/SLB/UBS status, checksums, and
// ecosystem detection.
type ToolHealthCollector interface {
	Collect(ctx context.Context) (ToolHealthSnapshot, error)
}

// AgentMailCollector reports local JSONL-backed agent messaging state.
type AgentMailCollector interface {
	Collect(ctx context.Context) (AgentMailSnapshot, error)
}

// NTMCollectorFunc adapts a plain function to NTMCollector.
type NTMCollectorFunc func(ctx context.Context) (NTMSnapshot, error)

func (f NTMCollectorFunc) Collect(ctx context.Context) (NTMSnapshot, error) { return f(ctx) }

// BeadsCollectorFunc adapts a plain function to BeadsCollector.
type BeadsCollectorFunc func(ctx context.Context) (BeadsSnapshot, error)

func (f BeadsCollectorFunc) Collect(ctx context.Context) (BeadsSnapshot, error) { return f(ctx) }

// ToolHealthCollectorFunc adapts a plain function to ToolHealthCollector.
type ToolHealthCollectorFunc func(ctx context.Context) (ToolHealthSnapshot, error)

func (f ToolHealthCollectorFunc) Collect(ctx context.Context) (ToolHealthSnapshot, error) {
	return f(ctx)
}

// AgentMailCollectorFunc adapts a plain function to AgentMailCollector.
type AgentMailCollectorFunc func(ctx context.Context) (AgentMailSnapshot, error)

func (f AgentMailCollectorFunc) Collect(ctx context.Context) (AgentMailSnapshot, error) {
	return f(ctx)
}
