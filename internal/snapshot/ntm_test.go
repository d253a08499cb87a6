package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNTMCollector_ParsesSessions(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sessions", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sessions":[{"id":"s1","agent":"claude","status":"running"},{"id":"s2","agent":"claude","status":"idle"}]}`))
	}))
	defer ts.Close()

	snap, err := HTTPNTMCollector{BaseURL: ts.URL}.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Available)
	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, "s1", snap.Sessions[0].ID)
	assert.Equal(t, "running", snap.Sessions[0].Status)
}

func TestHTTPNTMCollector_DaemonNotRunningIsUnavailableNotError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close() // nothing listening anymore

	snap, err := HTTPNTMCollector{BaseURL: url}.Collect(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Available)
}

func TestHTTPNTMCollector_NonOKStatusIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := HTTPNTMCollector{BaseURL: ts.URL}.Collect(context.Background())
	require.Error(t, err)
}

func TestHTTPNTMCollector_EmptyBaseURLIsUnavailable(t *testing.T) {
	snap, err := HTTPNTMCollector{}.Collect(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.Available)
}
