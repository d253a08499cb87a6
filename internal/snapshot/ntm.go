package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPNTMCollector talks to a local NTM daemon over its status API.
// A daemon that is simply not running (connection refused, no such
// host) is reported as unavailable rather than as a collection failure:
// the gateway keeps working without NTM, it just can't see its
// sessions.
type HTTPNTMCollector struct {
	BaseURL string
	Client  *http.Client
}

type ntmSessionRecord struct {
	ID     string `json:"id"`
	Agent  string `json:"agent"`
	Status string `json:"status"`
}

type ntmStatusResponse struct {
	Sessions []ntmSessionRecord `json:"sessions"`
}

// Collect queries {BaseURL}/api/v1/sessions under ctx's deadline.
func (c HTTPNTMCollector) Collect(ctx context.Context) (NTMSnapshot, error) {
	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		return NTMSnapshot{Available: false}, nil
	}

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/sessions", nil)
	if err != nil {
		return NTMSnapshot{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if isConnectionFailure(err) {
			return NTMSnapshot{Available: false}, nil
		}
		return NTMSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NTMSnapshot{}, fmt.Errorf("ntm status endpoint returned %d", resp.StatusCode)
	}

	var body ntmStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return NTMSnapshot{}, fmt.Errorf("decode ntm status: %w", err)
	}

	sessions := make([]NTMSession, 0, len(body.Sessions))
	for _, s := range body.Sessions {
		sessions = append(sessions, NTMSession{ID: s.ID, Agent: s.Agent, Status: s.Status})
	}

	return NTMSnapshot{Available: true, Sessions: sessions}, nil
}

// isConnectionFailure distinguishes "daemon not running" from a real
// transport error. Deadline expiry is NOT a connection failure: it must
// surface to the aggregator as a collection timeout.
func isConnectionFailure(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

var _ NTMCollector = HTTPNTMCollector{}
