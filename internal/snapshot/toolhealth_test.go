package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acfsgateway/internal/toolprobe"
)

func TestRegistryToolHealthCollector_NoToolsConfigured_Healthy(t *testing.T) {
	c := RegistryToolHealthCollector{Detector: toolprobe.NewDetector(time.Minute, 8)}
	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, snap.Status)
	assert.Empty(t, snap.Detected)
}

func TestRegistryToolHealthCollector_AllUnavailable_Unhealthy(t *testing.T) {
	c := RegistryToolHealthCollector{
		Detector: toolprobe.NewDetector(time.Minute, 8),
		Tools: []toolprobe.CLIDefinition{
			{Name: "definitely-not-a-real-binary-xyz", Commands: []string{"definitely-not-a-real-binary-xyz"}, VersionFlag: "--version"},
		},
	}
	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusUnhealthy, snap.Status)
	assert.Empty(t, snap.Detected)
}

func TestRegistryToolHealthCollector_PartialAvailable_Degraded(t *testing.T) {
	c := RegistryToolHealthCollector{
		Detector: toolprobe.NewDetector(time.Minute, 8),
		Tools: []toolprobe.CLIDefinition{
			{Name: "sh", Commands: []string{"sh"}},
			{Name: "definitely-not-a-real-binary-xyz", Commands: []string{"definitely-not-a-real-binary-xyz"}},
		},
	}
	snap, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Contains(t, snap.Detected, "sh")
	assert.Equal(t, []string{"cargo", "git"}, ecosystemFor("br"))
}

func TestDedupeStrings(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, dedupeStrings([]string{"a", "b", "a"}))
	assert.Nil(t, dedupeStrings(nil))
}

func TestStaleChecksums(t *testing.T) {
	assert.True(t, staleChecksums(map[string]string{"dcg": "aaa"}, map[string]string{"dcg": "bbb"}))
	assert.False(t, staleChecksums(map[string]string{"dcg": "aaa"}, map[string]string{"dcg": "aaa"}))
	assert.False(t, staleChecksums(map[string]string{"dcg": "aaa"}, map[string]string{}))
}
