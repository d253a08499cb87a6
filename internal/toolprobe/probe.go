package toolprobe

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"acfsgateway/internal/shared/logging"
)

// Prober detects a single CLI's availability, version, and auth state.
type Prober struct {
	logger *logging.Logger
}

// NewProber builds a Prober.
func NewProber() *Prober {
	return &Prober{logger: logging.NewComponentLogger("ToolProbe")}
}

// Detect runs the full detection sequence for one CLI definition: PATH
// resolution, version invocation, and (if a definition provides one) an
// auth check. It never returns an error; every failure mode is folded
// into DetectedCLI.UnavailabilityReason.
func (p *Prober) Detect(ctx context.Context, def CLIDefinition) DetectedCLI {
	start := time.Now()
	result := DetectedCLI{
		Name:         def.Name,
		Capabilities: def.Capabilities,
		DetectedAt:   start,
	}
	defer func() { result.DurationMs = time.Since(start).Milliseconds() }()

	path, err := resolveOnPath(def.Commands)
	if err != nil {
		reason := ReasonNotInstalled
		result.UnavailabilityReason = &reason
		return result
	}
	result.Available = true
	result.Path = &path

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if def.VersionFlag != "" {
		out, exitCode, runErr := p.invoke(ctx, timeout, path, def.VersionFlag)
		switch {
		case errors.Is(runErr, context.DeadlineExceeded):
			reason := ReasonTimeout
			result.Available = false
			result.UnavailabilityReason = &reason
			return result
		case runErr != nil && !isExitError(runErr):
			reason := ReasonSpawnFailed
			result.Available = false
			result.UnavailabilityReason = &reason
			return result
		case runErr != nil:
			reason := Classify(ClassificationInput{Stderr: out, ExitCode: exitCode})
			result.Available = false
			result.UnavailabilityReason = &reason
			return result
		}
		version := ParseVersion(out)
		result.Version = &version
	}

	if len(def.AuthCheckCmd) > 0 {
		args := append([]string{}, def.AuthCheckCmd...)
		args[0] = path
		out, exitCode, runErr := p.invoke(ctx, timeout, args[0], args[1:]...)
		authenticated := runErr == nil
		result.Authenticated = &authenticated
		if !authenticated {
			if phrase, ok := DetectAuthError(out); ok {
				result.AuthError = &phrase
				reason := ReasonAuthRequired
				if strings.Contains(strings.ToLower(phrase), "expired") {
					reason = ReasonAuthExpired
				}
				result.UnavailabilityReason = &reason
			} else {
				reason := Classify(ClassificationInput{Stderr: out, ExitCode: exitCode})
				result.UnavailabilityReason = &reason
			}
		}
	}

	return result
}

// resolveOnPath returns the first command name in candidates found on
// PATH, its resolved absolute path, or an error if none is found.
func resolveOnPath(candidates []string) (string, error) {
	for _, name := range candidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no candidate commands configured")
	}
	return "", exec.ErrNotFound
}

// invoke runs path with args under a deadline, disabling ANSI color
// output so stdout/stderr parsing stays regex-friendly. It returns the
// combined stdout+stderr, the process exit code (nil if it never
// started), and any error from Wait/Start.
func (p *Prober) invoke(ctx context.Context, timeout time.Duration, path string, args ...string) (string, *int, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, path, args...)
	cmd.Env = append(os.Environ(), "NO_COLOR=1")

	out, err := cmd.CombinedOutput()
	combined := string(out)

	if cctx.Err() == context.DeadlineExceeded {
		return combined, nil, context.DeadlineExceeded
	}
	if err == nil {
		return combined, intPtr(0), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return combined, &code, err
	}
	return combined, nil, err
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

func intPtr(v int) *int { return &v }
