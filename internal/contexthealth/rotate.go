package contexthealth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"acfsgateway/internal/eventhub"
)

const recentMessageWindow = 20

// Rotate runs rotate() for a session: mints a checkpoint, synthesizes a
// context transfer, registers a new session seeded from it, and marks
// the source session rotated.
func (e *Engine) Rotate(ctx context.Context, id string, opts RotateOptions) (RotateResult, error) {
	rec, err := e.getSession(id)
	if err != nil {
		return RotateResult{}, &RotationError{SessionID: id, Reason: RotationNotFound, Message: err.Error()}
	}

	rec.mu.Lock()
	if rec.state.Status == SessionRotated {
		rec.mu.Unlock()
		return RotateResult{}, &RotationError{SessionID: id, Reason: RotationAlreadyRotated, Message: "session already rotated"}
	}

	transfer := synthesizeTransfer(rec.state)
	checkpointID := uuid.NewString()

	model := opts.Model
	if model == "" {
		model = rec.state.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = rec.state.MaxTokens
	}

	now := time.Now()
	rec.state.Status = SessionRotated
	rec.state.LastRotation = &now
	rec.mu.Unlock()

	newID := uuid.NewString()
	e.RegisterSession(newID, RegisterOptions{Model: model, MaxTokens: maxTokens})
	seedMessage := Message{Role: "system", Content: formatTransferMessage(transfer), Timestamp: time.Now()}
	if err := e.AddMessage(newID, seedMessage); err != nil {
		return RotateResult{}, &RotationError{SessionID: id, Reason: RotationFailed, Message: fmt.Sprintf("failed to seed new session: %v", err)}
	}

	rec.mu.Lock()
	rec.state.RotatedTo = &newID
	rec.mu.Unlock()

	e.mu.Lock()
	if newRec, ok := e.sessions[newID]; ok {
		newRec.mu.Lock()
		newRec.state.RotatedFrom = &id
		newRec.mu.Unlock()
	}
	e.mu.Unlock()

	result := RotateResult{
		NewSessionID: newID,
		CheckpointID: checkpointID,
		Transfer:     transfer,
		Reason:       opts.Reason,
		RotatedAt:    now,
	}

	payload := map[string]any{
		"sessionId":    id,
		"newSessionId": newID,
		"checkpointId": checkpointID,
		"reason":       opts.Reason,
	}
	e.hub.Publish(eventhub.System(eventhub.ChannelSession), eventhub.EventContextEmergencyRotated, payload, nil)
	e.hub.Publish(eventhub.Session(eventhub.ChannelSession, id), eventhub.EventContextEmergencyRotated, payload, nil)

	return result, nil
}

func synthesizeTransfer(s SessionState) ContextTransfer {
	_, summarizable := partitionMessages(s.Messages, recentMessageWindow, 0)
	summary := summarize(summarizable)

	recent := s.Messages
	if len(recent) > recentMessageWindow {
		recent = recent[len(recent)-recentMessageWindow:]
	}

	sourceTokens := s.CurrentTokens
	transferTokens := countTokens(summary)
	for _, m := range recent {
		transferTokens += countTokens(m.Content)
	}
	if transferTokens <= 0 {
		transferTokens = 1
	}

	ratio := float64(sourceTokens) / float64(maxInt(1, transferTokens))

	return ContextTransfer{
		Summary:          summary,
		RecentMessages:   recent,
		SourceTokens:     sourceTokens,
		TransferTokens:   transferTokens,
		CompressionRatio: ratio,
		TransferredAt:    time.Now(),
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// formatTransferMessage renders the seed system message for a rotated
// session: Summary, Recent Conversation, Active Work Items, Relevant
// Guidelines sections, each omitted if empty.
func formatTransferMessage(t ContextTransfer) string {
	var b strings.Builder

	if t.Summary != "" {
		b.WriteString("## Summary\n")
		b.WriteString(t.Summary)
		b.WriteString("\n\n")
	}

	if len(t.RecentMessages) > 0 {
		b.WriteString("## Recent Conversation\n")
		for _, m := range t.RecentMessages {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}

	if len(t.ActiveBeads) > 0 {
		b.WriteString("## Active Work Items\n")
		for _, item := range t.ActiveBeads {
			b.WriteString("- " + item + "\n")
		}
		b.WriteString("\n")
	}

	if len(t.MemoryRules) > 0 {
		b.WriteString("## Relevant Guidelines\n")
		for _, r := range t.MemoryRules {
			b.WriteString("- " + r + "\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
