package snapshot

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileAgentMailCollector reads the two append-only JSONL files
// (agents.jsonl, messages.jsonl) that make up the Agent Mail persisted
// state layout. Malformed lines are skipped rather than failing the
// whole collection.
type FileAgentMailCollector struct {
	Dir string // working-directory subfolder holding the JSONL files
}

type agentRecord struct {
	Name string `json:"name"`
}

type messageRecord struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Priority  string `json:"priority"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
}

// Collect reads agents.jsonl and messages.jsonl from Dir. A missing
// directory or missing files are not errors: Agent Mail is simply
// unavailable.
func (c FileAgentMailCollector) Collect(ctx context.Context) (AgentMailSnapshot, error) {
	agentsPath := filepath.Join(c.Dir, "agents.jsonl")
	messagesPath := filepath.Join(c.Dir, "messages.jsonl")

	if _, err := os.Stat(c.Dir); err != nil {
		return AgentMailSnapshot{Available: false}, nil
	}

	agents := readJSONLAgents(agentsPath)
	messages := readJSONLMessages(messagesPath)

	status := "healthy"
	if len(agents) == 0 {
		status = "degraded"
	}

	return AgentMailSnapshot{
		Available: true,
		Status:    status,
		Agents:    agents,
		Messages:  messages,
	}, nil
}

func readJSONLAgents(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec agentRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if rec.Name != "" {
			names = append(names, rec.Name)
		}
	}
	return names
}

func readJSONLMessages(path string) []MailMessage {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []MailMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec messageRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		priority := rec.Priority
		if priority == "" {
			priority = "normal"
		}
		ts, _ := time.Parse(time.RFC3339, rec.Timestamp)
		out = append(out, MailMessage{
			ID:        rec.ID,
			From:      rec.From,
			To:        rec.To,
			Subject:   rec.Subject,
			Body:      rec.Body,
			Priority:  priority,
			Timestamp: ts,
			Read:      rec.Read,
		})
	}
	return out
}

var _ AgentMailCollector = FileAgentMailCollector{}
