package toolprobe

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StderrDominatesExitCode(t *testing.T) {
	exitCode := 1
	reason := Classify(ClassificationInput{Stderr: "bash: foo: command not found", ExitCode: &exitCode})
	assert.Equal(t, ReasonNotInstalled, reason)
}

func TestClassify_ExitCodeFallback(t *testing.T) {
	code127 := 127
	assert.Equal(t, ReasonNotInstalled, Classify(ClassificationInput{ExitCode: &code127}))

	code126 := 126
	assert.Equal(t, ReasonPermissionDenied, Classify(ClassificationInput{ExitCode: &code126}))

	code139 := 139
	assert.Equal(t, ReasonCrash, Classify(ClassificationInput{ExitCode: &code139}))

	other := 3
	assert.Equal(t, ReasonUnknown, Classify(ClassificationInput{ExitCode: &other}))
}

func TestClassify_NoSignalAtAll(t *testing.T) {
	assert.Equal(t, ReasonUnknown, Classify(ClassificationInput{}))
}

func TestDetectAuthError(t *testing.T) {
	phrase, ok := DetectAuthError("Error: Not Logged In. Run `claude auth login`.")
	require.True(t, ok)
	assert.Equal(t, "not logged in", phrase)

	_, ok = DetectAuthError("everything is fine")
	assert.False(t, ok)
}

func TestParseVersion(t *testing.T) {
	assert.Equal(t, "1.2.3", ParseVersion("mytool version 1.2.3\n"))
	assert.Equal(t, "v2.0.0-beta.1", ParseVersion("v2.0.0-beta.1"))
}

func TestReasonInfo_AllFourteenPopulated(t *testing.T) {
	reasons := []UnavailabilityReason{
		ReasonNotInstalled, ReasonNotInPath, ReasonPermissionDenied, ReasonVersionUnsupported,
		ReasonAuthRequired, ReasonAuthExpired, ReasonConfigMissing, ReasonConfigInvalid,
		ReasonDependencyMissing, ReasonMCPUnreachable, ReasonSpawnFailed, ReasonTimeout,
		ReasonCrash, ReasonUnknown,
	}
	require.Len(t, reasons, 14)
	for _, r := range reasons {
		info := r.Info()
		assert.GreaterOrEqual(t, info.HTTPStatus, 400, r)
		assert.NotEmpty(t, info.Label, r)
	}
}

func TestProber_Detect_NotInstalled(t *testing.T) {
	p := NewProber()
	def := CLIDefinition{Name: "definitely-not-a-real-cli-xyz", Commands: []string{"definitely-not-a-real-cli-xyz"}, VersionFlag: "--version"}
	result := p.Detect(context.Background(), def)
	assert.False(t, result.Available)
	require.NotNil(t, result.UnavailabilityReason)
	assert.Equal(t, ReasonNotInstalled, *result.UnavailabilityReason)
}

func TestProber_Detect_FindsShOnPath(t *testing.T) {
	p := NewProber()
	def := CLIDefinition{Name: "sh", Commands: []string{"sh"}, Timeout: 2 * time.Second}
	result := p.Detect(context.Background(), def)
	assert.True(t, result.Available)
	require.NotNil(t, result.Path)
}

func TestDetector_CachesWithinTTL(t *testing.T) {
	d := NewDetector(time.Hour, 10)
	def := CLIDefinition{Name: "sh", Commands: []string{"sh"}}
	first := d.DetectOne(context.Background(), def)
	second := d.DetectOne(context.Background(), def)
	assert.Equal(t, first.DetectedAt, second.DetectedAt, "second call should be served from cache")
}

func TestDetector_DetectAll_CountsSummary(t *testing.T) {
	d := NewDetector(time.Hour, 10)
	agents := []CLIDefinition{{Name: "sh", Commands: []string{"sh"}}}
	tools := []CLIDefinition{{Name: "definitely-not-a-real-cli-xyz", Commands: []string{"definitely-not-a-real-cli-xyz"}}}
	agg := d.DetectAll(context.Background(), agents, tools, true)
	assert.Equal(t, 2, agg.Summary.Total)
	assert.Equal(t, 1, agg.Summary.Available)
	assert.Equal(t, 1, agg.Summary.Unavailable)
}

func TestDetector_ClearCache(t *testing.T) {
	d := NewDetector(time.Hour, 10)
	def := CLIDefinition{Name: "sh", Commands: []string{"sh"}}
	first := d.DetectOne(context.Background(), def)
	d.ClearCache()
	time.Sleep(time.Millisecond)
	second := d.DetectOne(context.Background(), def)
	assert.NotEqual(t, first.DetectedAt, second.DetectedAt)
}
