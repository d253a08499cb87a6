package toolprobe

import (
	"regexp"
	"strings"
)

// versionPattern is the single canonical, precompiled version regex,
// compiled once rather than per detection call.
var versionPattern = regexp.MustCompile(`v?\d+\.\d+(\.\d+)?(-[\w.]+)?`)

// ParseVersion extracts the first version-looking substring from combined
// stdout/stderr, falling back to the first 50 characters if no match.
func ParseVersion(combinedOutput string) string {
	if m := versionPattern.FindString(combinedOutput); m != "" {
		return m
	}
	trimmed := strings.TrimSpace(combinedOutput)
	if len(trimmed) > 50 {
		return trimmed[:50]
	}
	return trimmed
}

// authErrorPhrases are matched against the lowercased combined output of
// an auth check invocation, in order.
var authErrorPhrases = []*regexp.Regexp{
	regexp.MustCompile(`not logged in`),
	regexp.MustCompile(`not authenticated`),
	regexp.MustCompile(`no api key`),
	regexp.MustCompile(`unauthorized`),
	regexp.MustCompile(`authentication required`),
	regexp.MustCompile(`token expired`),
	regexp.MustCompile(`invalid.*token`),
	regexp.MustCompile(`credentials.*not found`),
}

// DetectAuthError scans combined output for a known auth-failure phrase,
// returning (matchedPhrase, true) on the first hit.
func DetectAuthError(combinedOutput string) (string, bool) {
	lower := strings.ToLower(combinedOutput)
	for _, p := range authErrorPhrases {
		if m := p.FindString(lower); m != "" {
			return m, true
		}
	}
	return "", false
}

// stderrPatternRow is one entry of the ordered stderr classification table.
type stderrPatternRow struct {
	pattern *regexp.Regexp
	reason  UnavailabilityReason
}

var stderrPatterns = []stderrPatternRow{
	{regexp.MustCompile(`(?i)command not found|not recognized`), ReasonNotInstalled},
	{regexp.MustCompile(`(?i)permission denied|EACCES`), ReasonPermissionDenied},
	{regexp.MustCompile(`(?i)not logged in|unauthorized|authentication required|no api key`), ReasonAuthRequired},
	{regexp.MustCompile(`(?i)token expired|session expired`), ReasonAuthExpired},
	{regexp.MustCompile(`(?i)config (file )?not found|missing config`), ReasonConfigMissing},
	{regexp.MustCompile(`(?i)ECONNREFUSED|ENOTFOUND|unreachable`), ReasonMCPUnreachable},
	{regexp.MustCompile(`(?i)segmentation fault|core dumped|out of memory|fatal error`), ReasonCrash},
}

// ClassificationInput is the signal set available to classify an
// unavailable CLI.
type ClassificationInput struct {
	Stderr   string
	ExitCode *int
}

// Classify determines the UnavailabilityReason for a failed probe.
// Stderr signal dominates exit code: if stderr matches any known
// pattern, that reason wins regardless of ExitCode.
func Classify(in ClassificationInput) UnavailabilityReason {
	for _, row := range stderrPatterns {
		if row.pattern.MatchString(in.Stderr) {
			return row.reason
		}
	}

	if in.ExitCode == nil {
		return ReasonUnknown
	}
	switch *in.ExitCode {
	case 126:
		return ReasonPermissionDenied
	case 127:
		return ReasonNotInstalled
	case 139:
		return ReasonCrash
	default:
		return ReasonUnknown
	}
}
