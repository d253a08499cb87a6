// Package updatecheck asks the GitHub releases API whether newer
// versions of the fleet's tools exist. It is an event producer like the
// other collectors: results are cached behind a TTL and surfaced both
// over REST and as tool.update_available events.
package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"acfsgateway/internal/eventhub"
	"acfsgateway/internal/shared/logging"
)

const (
	defaultBaseURL  = "https://api.github.com"
	defaultCacheTTL = 15 * time.Minute
)

// RepoSpec maps one tool to the GitHub repository its releases come from.
type RepoSpec struct {
	Tool  string
	Owner string
	Repo  string
}

// Config configures a Checker.
type Config struct {
	Repos []RepoSpec
	// Token is sent as a bearer token when set (GITHUB_TOKEN).
	Token    string
	CacheTTL time.Duration
	// BaseURL overrides the GitHub API root; tests point it at a local
	// server.
	BaseURL string
	Client  *http.Client
	Hub     eventhub.Bus
}

// UpdateInfo is the per-tool check result.
type UpdateInfo struct {
	Tool            string
	Repo            string
	LatestVersion   string
	CurrentVersion  *string
	UpdateAvailable bool
	ReleaseURL      string
	CheckedAt       time.Time
}

// Checker queries release state for every configured repo, caching the
// aggregate behind a TTL so operator dashboards don't hammer the API.
type Checker struct {
	cfg    Config
	client *http.Client
	hub    eventhub.Bus
	logger *logging.Logger

	mu        sync.Mutex
	cached    []UpdateInfo
	fetchedAt time.Time
}

// New builds a Checker. A nil hub gets a NoopHub.
func New(cfg Config) *Checker {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	hub := cfg.Hub
	if hub == nil {
		hub = eventhub.NoopHub{}
	}
	return &Checker{
		cfg:    cfg,
		client: client,
		hub:    hub,
		logger: logging.NewComponentLogger("UpdateChecker"),
	}
}

type releaseResponse struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Check returns update state for every configured repo, consulting the
// cache first. current maps tool name to its detected version; a tool
// with no known current version is reported with UpdateAvailable=false
// (nothing to compare against). Per-repo API failures are logged and
// skipped, not fatal: a partially reachable GitHub still yields results
// for the repos that answered.
func (c *Checker) Check(ctx context.Context, current map[string]string) ([]UpdateInfo, error) {
	c.mu.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.cfg.CacheTTL {
		out := append([]UpdateInfo{}, c.cached...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	now := time.Now()
	results := make([]UpdateInfo, 0, len(c.cfg.Repos))
	for _, spec := range c.cfg.Repos {
		release, err := c.latestRelease(ctx, spec)
		if err != nil {
			c.logger.Warn("release lookup failed", "tool", spec.Tool, "repo", spec.Owner+"/"+spec.Repo, "error", err)
			continue
		}

		info := UpdateInfo{
			Tool:          spec.Tool,
			Repo:          spec.Owner + "/" + spec.Repo,
			LatestVersion: strings.TrimPrefix(release.TagName, "v"),
			ReleaseURL:    release.HTMLURL,
			CheckedAt:     now,
		}
		if cur, ok := current[spec.Tool]; ok && cur != "" {
			v := strings.TrimPrefix(cur, "v")
			info.CurrentVersion = &v
			info.UpdateAvailable = versionLess(v, info.LatestVersion)
		}
		results = append(results, info)

		if info.UpdateAvailable {
			c.hub.Publish(eventhub.Channel{Type: eventhub.ChannelTool, ID: spec.Tool}, eventhub.EventToolUpdateAvailable, map[string]any{
				"tool":           spec.Tool,
				"currentVersion": *info.CurrentVersion,
				"latestVersion":  info.LatestVersion,
				"releaseUrl":     info.ReleaseURL,
			}, nil)
		}
	}

	c.mu.Lock()
	c.cached = results
	c.fetchedAt = now
	c.mu.Unlock()

	return append([]UpdateInfo{}, results...), nil
}

// ClearCache drops the cached check result.
func (c *Checker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

func (c *Checker) latestRelease(ctx context.Context, spec RepoSpec) (releaseResponse, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimRight(c.cfg.BaseURL, "/"), spec.Owner, spec.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return releaseResponse{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return releaseResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return releaseResponse{}, fmt.Errorf("releases endpoint returned %d", resp.StatusCode)
	}

	var release releaseResponse
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return releaseResponse{}, err
	}
	return release, nil
}

// versionLess reports whether a < b under a tolerant dotted-numeric
// compare: non-numeric segments fall back to string comparison, and a
// prerelease suffix ("1.2.0-rc1") is split off and compared last.
func versionLess(a, b string) bool {
	aCore, aPre := splitPrerelease(a)
	bCore, bPre := splitPrerelease(b)

	aParts := strings.Split(aCore, ".")
	bParts := strings.Split(bCore, ".")
	n := len(aParts)
	if len(bParts) > n {
		n = len(bParts)
	}
	for i := 0; i < n; i++ {
		av, bv := segment(aParts, i), segment(bParts, i)
		an, aNum := atoi(av)
		bn, bNum := atoi(bv)
		switch {
		case aNum && bNum:
			if an != bn {
				return an < bn
			}
		default:
			if av != bv {
				return av < bv
			}
		}
	}

	// Equal cores: a release beats a prerelease of the same version.
	if aPre != bPre {
		if aPre == "" {
			return false
		}
		if bPre == "" {
			return true
		}
		return aPre < bPre
	}
	return false
}

func splitPrerelease(v string) (core, pre string) {
	if idx := strings.IndexByte(v, '-'); idx >= 0 {
		return v[:idx], v[idx+1:]
	}
	return v, ""
}

func segment(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return "0"
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
