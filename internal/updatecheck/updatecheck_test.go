package updatecheck

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReleaseServer(t *testing.T, tags map[string]string, wantAuth string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantAuth != "" {
			assert.Equal(t, wantAuth, r.Header.Get("Authorization"))
		}
		for repo, tag := range tags {
			if r.URL.Path == "/repos/"+repo+"/releases/latest" {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"tag_name":%q,"html_url":"https://github.com/%s/releases"}`, tag, repo)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
}

func TestCheck_ReportsUpdateWhenBehind(t *testing.T) {
	ts := newReleaseServer(t, map[string]string{"acme/dcg": "v2.1.0"}, "")
	defer ts.Close()

	checker := New(Config{
		Repos:   []RepoSpec{{Tool: "dcg", Owner: "acme", Repo: "dcg"}},
		BaseURL: ts.URL,
	})

	updates, err := checker.Check(context.Background(), map[string]string{"dcg": "2.0.3"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.True(t, updates[0].UpdateAvailable)
	assert.Equal(t, "2.1.0", updates[0].LatestVersion)
	require.NotNil(t, updates[0].CurrentVersion)
	assert.Equal(t, "2.0.3", *updates[0].CurrentVersion)
}

func TestCheck_UpToDate(t *testing.T) {
	ts := newReleaseServer(t, map[string]string{"acme/slb": "v1.4.0"}, "")
	defer ts.Close()

	checker := New(Config{
		Repos:   []RepoSpec{{Tool: "slb", Owner: "acme", Repo: "slb"}},
		BaseURL: ts.URL,
	})

	updates, err := checker.Check(context.Background(), map[string]string{"slb": "v1.4.0"})
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.False(t, updates[0].UpdateAvailable)
}

func TestCheck_NoCurrentVersionMeansNoUpdateFlag(t *testing.T) {
	ts := newReleaseServer(t, map[string]string{"acme/ubs": "v3.0.0"}, "")
	defer ts.Close()

	checker := New(Config{
		Repos:   []RepoSpec{{Tool: "ubs", Owner: "acme", Repo: "ubs"}},
		BaseURL: ts.URL,
	})

	updates, err := checker.Check(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.False(t, updates[0].UpdateAvailable)
	assert.Nil(t, updates[0].CurrentVersion)
}

func TestCheck_SendsBearerToken(t *testing.T) {
	ts := newReleaseServer(t, map[string]string{"acme/br": "v0.9.0"}, "Bearer gh-token")
	defer ts.Close()

	checker := New(Config{
		Repos:   []RepoSpec{{Tool: "br", Owner: "acme", Repo: "br"}},
		Token:   "gh-token",
		BaseURL: ts.URL,
	})

	_, err := checker.Check(context.Background(), nil)
	require.NoError(t, err)
}

func TestCheck_CachesWithinTTL(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"tag_name":"v1.0.0","html_url":"u"}`))
	}))
	defer ts.Close()

	checker := New(Config{
		Repos:    []RepoSpec{{Tool: "bv", Owner: "acme", Repo: "bv"}},
		CacheTTL: time.Hour,
		BaseURL:  ts.URL,
	})

	_, err := checker.Check(context.Background(), nil)
	require.NoError(t, err)
	_, err = checker.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	checker.ClearCache()
	_, err = checker.Check(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCheck_FailedRepoIsSkippedNotFatal(t *testing.T) {
	ts := newReleaseServer(t, map[string]string{"acme/good": "v1.0.0"}, "")
	defer ts.Close()

	checker := New(Config{
		Repos: []RepoSpec{
			{Tool: "bad", Owner: "acme", Repo: "missing"},
			{Tool: "good", Owner: "acme", Repo: "good"},
		},
		BaseURL: ts.URL,
	})

	updates, err := checker.Check(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "good", updates[0].Tool)
}

func TestVersionLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "1.0.1", true},
		{"1.0.1", "1.0.0", false},
		{"1.9.0", "1.10.0", true},
		{"2.0.0", "2.0.0", false},
		{"1.2", "1.2.1", true},
		{"1.2.0-rc1", "1.2.0", true},
		{"1.2.0", "1.2.0-rc1", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, versionLess(tc.a, tc.b), "%s < %s", tc.a, tc.b)
	}
}
