package snapshot

import (
	"context"
	"encoding/json"
	"os/exec"
	"strings"
)

// CLIBeadsCollector shells out to the beads pair: bv for triage output
// and br for sync status. Either binary being absent just leaves its
// half of the snapshot empty; a present binary whose invocation fails
// is still reported available (the CLI exists, its state is what's
// broken) with no data.
type CLIBeadsCollector struct{}

type bvTriageRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

// Collect resolves br/bv on PATH and, for each one found, invokes it
// under ctx's deadline.
func (c CLIBeadsCollector) Collect(ctx context.Context) (BeadsSnapshot, error) {
	snap := BeadsSnapshot{}

	brPath, brErr := exec.LookPath("br")
	bvPath, bvErr := exec.LookPath("bv")
	snap.BRAvailable = brErr == nil
	snap.BVAvailable = bvErr == nil

	if snap.BRAvailable {
		out, err := exec.CommandContext(ctx, brPath, "sync", "--status").Output()
		if err == nil {
			snap.SyncStatus = firstLine(string(out))
		}
	}

	if snap.BVAvailable {
		out, err := exec.CommandContext(ctx, bvPath, "triage", "--json").Output()
		if err == nil {
			snap.Triage = parseTriage(out)
		}
	}

	if ctx.Err() != nil {
		return BeadsSnapshot{}, ctx.Err()
	}
	return snap, nil
}

// parseTriage decodes bv's triage output: either a JSON array of items
// or an object wrapping one under "items".
func parseTriage(out []byte) []TriageItem {
	var records []bvTriageRecord
	if err := json.Unmarshal(out, &records); err != nil {
		var wrapped struct {
			Items []bvTriageRecord `json:"items"`
		}
		if err := json.Unmarshal(out, &wrapped); err != nil {
			return nil
		}
		records = wrapped.Items
	}

	items := make([]TriageItem, 0, len(records))
	for _, r := range records {
		items = append(items, TriageItem{ID: r.ID, Title: r.Title, Priority: r.Priority})
	}
	return items
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	return s
}

var _ BeadsCollector = CLIBeadsCollector{}
