// Package toolregistry implements the manifest-driven tool catalog
// (component C): load/validate/cache a YAML manifest of tool
// definitions, classify each tool as required/recommended/optional, and
// expose phase-ordered listings consumed by the Install Planner (F) and
// Health Diagnostics (E).
package toolregistry

// Category is the top-level kind of a cataloged tool.
type Category string

const (
	CategoryAgent Category = "agent"
	CategoryTool  Category = "tool"
)

// Classification is the derived required/recommended/optional bucket.
type Classification string

const (
	ClassRequired    Classification = "required"
	ClassRecommended Classification = "recommended"
	ClassOptional    Classification = "optional"
)

// InstallSpec is one entry of a tool's install command list.
type InstallSpec struct {
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args,omitempty"`
	URL          string   `yaml:"url,omitempty"`
	RequiresSudo bool     `yaml:"requiresSudo,omitempty"`
	Mode         string   `yaml:"mode,omitempty"` // e.g. "interactive"
}

// VerifiedInstaller describes a preferred, known-good installer.
type VerifiedInstaller struct {
	Runner      string   `yaml:"runner"`
	Args        []string `yaml:"args,omitempty"`
	FallbackURL string   `yaml:"fallback_url,omitempty"`
}

// VerifySpec describes how to confirm a tool is installed and usable.
type VerifySpec struct {
	Command           []string `yaml:"command"`
	ExpectedExitCodes []int    `yaml:"expectedExitCodes,omitempty"`
	MinVersion        string   `yaml:"minVersion,omitempty"`
	VersionRegex      string   `yaml:"versionRegex,omitempty"`
	TimeoutMs         int      `yaml:"timeoutMs,omitempty"`
}

// InstalledCheck is a lightweight presence check distinct from Verify.
type InstalledCheck struct {
	Command   []string `yaml:"command"`
	TimeoutMs int      `yaml:"timeoutMs,omitempty"`
}

// ToolDefinition is the immutable-after-load description of one catalog
// entry. Identity is ID (globally unique); Name is the executable
// basename (unique per Category).
type ToolDefinition struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Category          Category          `yaml:"category"`
	DisplayName       string            `yaml:"displayName,omitempty"`
	Description       string            `yaml:"description,omitempty"`
	Tags              []string          `yaml:"tags,omitempty"`
	Optional          *bool             `yaml:"optional,omitempty"`
	EnabledByDefault  *bool             `yaml:"enabledByDefault,omitempty"`
	Phase             *int              `yaml:"phase,omitempty"`
	Depends           []string          `yaml:"depends,omitempty"`
	DocsURL           string            `yaml:"docsUrl,omitempty"`
	Install           []InstallSpec     `yaml:"install,omitempty"`
	VerifiedInstaller *VerifiedInstaller `yaml:"verifiedInstaller,omitempty"`
	Verify            *VerifySpec       `yaml:"verify,omitempty"`
	InstalledCheck    *InstalledCheck   `yaml:"installedCheck,omitempty"`
	Checksums         map[string]string `yaml:"checksums,omitempty"`
	RobotMode         bool              `yaml:"robotMode,omitempty"`
	MCP               bool              `yaml:"mcp,omitempty"`
}

// DisplayNameOrID returns DisplayName if set, else ID.
func (t ToolDefinition) DisplayNameOrID() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.ID
}

// EffectivePhase returns Phase if set, else the default bucket 999.
func (t ToolDefinition) EffectivePhase() int {
	if t.Phase != nil {
		return *t.Phase
	}
	return defaultPhase
}

const defaultPhase = 999

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Classify derives the required/recommended/optional bucket for a tool;
// exactly one of the three always holds.
func Classify(t ToolDefinition) Classification {
	optionalSet := t.Optional != nil && *t.Optional
	optionalUnset := t.Optional == nil
	enabledByDefault := t.EnabledByDefault != nil && *t.EnabledByDefault

	required := hasTag(t.Tags, "critical") || hasTag(t.Tags, "required") ||
		(!optionalSet && enabledByDefault) || optionalUnset

	if required {
		return ClassRequired
	}

	recommended := hasTag(t.Tags, "recommended") || (optionalSet && enabledByDefault)
	if recommended {
		return ClassRecommended
	}

	return ClassOptional
}

// Manifest is the root YAML document shape.
type Manifest struct {
	SchemaVersion string           `yaml:"schemaVersion"`
	Source        string           `yaml:"source,omitempty"`
	GeneratedAt   string           `yaml:"generatedAt,omitempty"`
	Tools         []ToolDefinition `yaml:"tools"`
}

// RegistrySource records whether the active registry came from a loaded
// manifest or the built-in fallback.
type RegistrySource string

const (
	SourceManifest RegistrySource = "manifest"
	SourceFallback RegistrySource = "fallback"
)

// ErrorCategory classifies why a manifest load did not yield a usable
// manifest.
type ErrorCategory string

const (
	ErrManifestMissing          ErrorCategory = "manifest_missing"
	ErrManifestReadError         ErrorCategory = "manifest_read_error"
	ErrManifestParseError        ErrorCategory = "manifest_parse_error"
	ErrManifestValidationError   ErrorCategory = "manifest_validation_error"
	ErrRegistryLoadFailed        ErrorCategory = "registry_load_failed"
)

// userMessages are the fixed, human-readable strings keyed by error
// category that Metadata().UserMessage surfaces to operators.
var userMessages = map[ErrorCategory]string{
	ErrManifestMissing:        "Tool manifest file was not found; using the built-in fallback registry.",
	ErrManifestReadError:      "Tool manifest file could not be read; using the built-in fallback registry.",
	ErrManifestParseError:     "Tool manifest file is not valid YAML; using the built-in fallback registry.",
	ErrManifestValidationError: "Tool manifest file failed schema validation; using the built-in fallback registry.",
	ErrRegistryLoadFailed:     "Tool registry failed to load for an unexpected reason; using the built-in fallback registry.",
}

// Metadata describes the provenance of the currently cached registry.
type Metadata struct {
	ManifestPath   string
	ManifestHash   string
	SchemaVersion  string
	Source         string
	GeneratedAt    string
	LoadedAt       int64 // unix millis
	RegistrySource RegistrySource
	ErrorCategory  *ErrorCategory
	UserMessage    *string
}
