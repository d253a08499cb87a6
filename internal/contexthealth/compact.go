package contexthealth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"acfsgateway/internal/eventhub"
)

var extractiveBulletPattern = regexp.MustCompile(`^\s*([-*]|\d+\.)\s+`)
var extractiveKeywordPattern = regexp.MustCompile(`(?i)TODO:|IMPORTANT:|Decision:|Conclusion:`)

const maxSummaryLines = 10

// Compact runs compact() for a session: summarize and/or prune older
// messages to reduce token usage.
func (e *Engine) Compact(ctx context.Context, id string, opts CompactOptions) (CompactResult, error) {
	return e.compactLocked(id, opts)
}

func (e *Engine) compactLocked(id string, opts CompactOptions) (CompactResult, error) {
	if opts.Strategy == "" {
		opts.Strategy = StrategyBoth
	}
	if opts.TargetReduction <= 0 {
		opts.TargetReduction = e.cfg.DefaultTargetReduction
	}

	rec, err := e.getSession(id)
	if err != nil {
		return CompactResult{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	before := rec.state.CurrentTokens
	preserved, summarizable := partitionMessages(rec.state.Messages, e.cfg.PreserveRecentCount, e.cfg.PreserveRecentDuration)

	// Nothing older than the preservation window means compaction cannot
	// reduce anything; callers (including the auto-heal path, which
	// escalates on this) need to know rather than get a no-op result.
	if len(summarizable) == 0 && before > 0 {
		return CompactResult{}, &SummarizationError{SessionID: id, Message: "no messages old enough to summarize or prune"}
	}

	var summaries []string
	var summaryMessage *Message

	if opts.Strategy == StrategySummarize || opts.Strategy == StrategyBoth {
		summary := summarize(summarizable)
		if summary != "" {
			summaries = append(summaries, summary)
			summaryMessage = &Message{Role: "system", Content: summary, Timestamp: time.Now()}
		}
	}

	if opts.Strategy == StrategyPrune || opts.Strategy == StrategyBoth {
		var kept []Message
		if summaryMessage != nil {
			kept = append(kept, *summaryMessage)
		}
		kept = append(kept, preserved...)
		rec.state.Messages = kept
	}

	after := 0
	for _, m := range rec.state.Messages {
		after += countTokens(m.Content)
	}
	rec.state.CurrentTokens = after
	now := time.Now()
	rec.state.LastCompaction = &now

	reduction := before - after
	reductionPercent := 0.0
	if before > 0 {
		reductionPercent = float64(reduction) / float64(before) * 100
	}

	result := CompactResult{
		BeforeTokens:       before,
		AfterTokens:        after,
		Reduction:          reduction,
		ReductionPercent:   reductionPercent,
		SummarizedSections: len(summarizable),
		PreservedSections:  len(preserved),
		Summaries:          summaries,
		AppliedAt:          now,
	}

	e.hub.Publish(eventhub.System(eventhub.ChannelSession), eventhub.EventContextCompacted, compactedPayload(id, result), nil)
	e.hub.Publish(eventhub.Session(eventhub.ChannelSession, id), eventhub.EventContextCompacted, compactedPayload(id, result), nil)

	return result, nil
}

func compactedPayload(sessionID string, r CompactResult) map[string]any {
	return map[string]any{
		"sessionId":        sessionID,
		"beforeTokens":     r.BeforeTokens,
		"afterTokens":      r.AfterTokens,
		"reduction":        r.Reduction,
		"reductionPercent": r.ReductionPercent,
	}
}

// partitionMessages splits messages into preserved (recent N by count OR
// within the last preserveDuration) and summarizable (the rest, in
// original order).
func partitionMessages(messages []Message, preserveCount int, preserveDuration time.Duration) (preserved, summarizable []Message) {
	if len(messages) == 0 {
		return nil, nil
	}

	cutoffIdx := len(messages) - preserveCount
	if cutoffIdx < 0 {
		cutoffIdx = 0
	}
	cutoffTime := time.Now().Add(-preserveDuration)

	for i, m := range messages {
		if i >= cutoffIdx || m.Timestamp.After(cutoffTime) {
			preserved = append(preserved, m)
		} else {
			summarizable = append(summarizable, m)
		}
	}
	return preserved, summarizable
}

// summarize implements an extractive heuristic: lines that look like
// bullets/numbered items or contain a marker keyword, 10-200 chars,
// deduplicated, capped at 10, formatted as a single "Key points" block.
func summarize(messages []Message) string {
	seen := make(map[string]bool)
	var lines []string

	for _, m := range messages {
		for _, raw := range strings.Split(m.Content, "\n") {
			line := strings.TrimSpace(raw)
			if len(line) < 10 || len(line) > 200 {
				continue
			}
			if !extractiveBulletPattern.MatchString(line) && !extractiveKeywordPattern.MatchString(line) {
				continue
			}
			if seen[line] {
				continue
			}
			seen[line] = true
			lines = append(lines, line)
			if len(lines) >= maxSummaryLines {
				break
			}
		}
		if len(lines) >= maxSummaryLines {
			break
		}
	}

	if len(lines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Key points from previous conversation:\n")
	for _, l := range lines {
		b.WriteString("- ")
		b.WriteString(l)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
