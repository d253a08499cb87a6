package installplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acfsgateway/internal/toolregistry"
)

// TestDeriveReadiness_FallbackRegistryNothingDetected covers the
// degrade-not-fail readiness path: the built-in fallback registry with
// zero detected CLIs yields ready=false plus an install recommendation
// naming the missing critical tools.
func TestDeriveReadiness_FallbackRegistryNothingDetected(t *testing.T) {
	registry := toolregistry.New(toolregistry.Config{OverridePath: "/does/not/exist.yaml"})
	tools, err := registry.ListAll()
	require.NoError(t, err)
	require.NotEmpty(t, tools)

	readiness := DeriveReadiness(Build(tools, nil))

	assert.False(t, readiness.Ready)
	assert.Contains(t, readiness.MissingRequiredTools, "dcg")
	assert.Contains(t, readiness.MissingRequiredTools, "br")
	require.NotEmpty(t, readiness.Recommendations)
	assert.Contains(t, readiness.Recommendations[0], "Install required tools:")
	assert.Contains(t, readiness.Recommendations[0], "dcg")
	assert.Contains(t, readiness.Recommendations[0], "br")
}

func TestDeriveReadiness_AllInstalled(t *testing.T) {
	tools := []toolregistry.ToolDefinition{
		{ID: "a", Name: "a", Category: toolregistry.CategoryTool, Tags: []string{"critical"}},
	}
	readiness := DeriveReadiness(Build(tools, []DetectedStatus{{Name: "a", Available: true}}))
	assert.True(t, readiness.Ready)
	assert.Empty(t, readiness.MissingRequiredTools)
	assert.Empty(t, readiness.Recommendations)
	assert.Equal(t, 1, readiness.Installed)
}

func TestDeriveReadiness_ErroredRequiredToolCountsAsMissing(t *testing.T) {
	tools := []toolregistry.ToolDefinition{
		{ID: "a", Name: "a", Category: toolregistry.CategoryTool, Tags: []string{"critical"}},
	}
	errStr := "spawn_failed"
	readiness := DeriveReadiness(Build(tools, []DetectedStatus{{Name: "a", Available: false, Error: &errStr}}))
	assert.False(t, readiness.Ready)
	assert.Contains(t, readiness.MissingRequiredTools, "a")
}
