// Package config resolves the gateway's runtime configuration from a
// YAML file plus environment variable overrides, the way alex-server
// resolves its own config.yaml/ALEX_* pair before bootstrap. Every
// coordination core still takes its own explicit Config struct (see
// each package's Config type); this package is only responsible for
// turning on-disk settings and env vars into those structs at process
// startup.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig controls the HTTP/WebSocket listener and CORS policy.
type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig controls the shared/logging output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RegistryConfig feeds internal/toolregistry.Config.
type RegistryConfig struct {
	ManifestPath string        `mapstructure:"manifest_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	ThrowOnError bool          `mapstructure:"throw_on_error"`
}

// DetectorConfig feeds internal/toolprobe.NewDetector.
type DetectorConfig struct {
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	CacheSize int           `mapstructure:"cache_size"`
}

// SnapshotConfig feeds internal/snapshot.Config.
type SnapshotConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CollectionTimeout time.Duration `mapstructure:"collection_timeout"`
	AgentMailDir      string        `mapstructure:"agent_mail_dir"`
	NTMBaseURL        string        `mapstructure:"ntm_base_url"`
}

// UpdatesConfig feeds internal/updatecheck.Config. Repos maps a tool
// name to its "owner/repo" GitHub location; an empty map disables
// update checking.
type UpdatesConfig struct {
	CacheTTL time.Duration     `mapstructure:"cache_ttl"`
	Repos    map[string]string `mapstructure:"repos"`
}

// ContextHealthConfig feeds internal/contexthealth.Config.
type ContextHealthConfig struct {
	DefaultMaxTokens       int               `mapstructure:"default_max_tokens"`
	ModelLimits            map[string]int    `mapstructure:"model_limits"`
	WarningThreshold       float64           `mapstructure:"warning_threshold"`
	CriticalThreshold      float64           `mapstructure:"critical_threshold"`
	EmergencyThreshold     float64           `mapstructure:"emergency_threshold"`
	MonitorInterval        time.Duration     `mapstructure:"monitor_interval"`
	Cooldown               time.Duration     `mapstructure:"cooldown"`
	AutoHeal               bool              `mapstructure:"auto_heal"`
	SummarizationEnabled   bool              `mapstructure:"summarization_enabled"`
	RotationEnabled        bool              `mapstructure:"rotation_enabled"`
	DefaultTargetReduction float64           `mapstructure:"default_target_reduction"`
}

// EventHubConfig feeds internal/eventhub.Config.
type EventHubConfig struct {
	BacklogCapacity int           `mapstructure:"backlog_capacity"`
	BacklogTTL      time.Duration `mapstructure:"backlog_ttl"`
	SubscriberQueue int           `mapstructure:"subscriber_queue"`
}

// Config is the full root document, mirroring config.yaml's sections.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Registry      RegistryConfig      `mapstructure:"registry"`
	Detector      DetectorConfig      `mapstructure:"detector"`
	Snapshot      SnapshotConfig      `mapstructure:"snapshot"`
	ContextHealth ContextHealthConfig `mapstructure:"context_health"`
	EventHub      EventHubConfig      `mapstructure:"event_hub"`
	Updates       UpdatesConfig       `mapstructure:"updates"`
	GitHubToken   string              `mapstructure:"-"`
}

// defaults mirrors every zero-value fallback the coordination cores
// themselves apply; set here too so `acfsgateway-server config show` prints
// the values actually in effect rather than Go zero values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("registry.cache_ttl", 60*time.Second)
	v.SetDefault("registry.throw_on_error", false)

	v.SetDefault("detector.cache_ttl", 30*time.Second)
	v.SetDefault("detector.cache_size", 128)

	v.SetDefault("snapshot.cache_ttl", 10*time.Second)
	v.SetDefault("snapshot.collection_timeout", 2500*time.Millisecond)
	v.SetDefault("snapshot.agent_mail_dir", ".acfs/agent-mail")
	v.SetDefault("snapshot.ntm_base_url", "http://127.0.0.1:7337")

	v.SetDefault("context_health.default_max_tokens", 128000)
	v.SetDefault("context_health.warning_threshold", 75.0)
	v.SetDefault("context_health.critical_threshold", 85.0)
	v.SetDefault("context_health.emergency_threshold", 95.0)
	v.SetDefault("context_health.monitor_interval", 30*time.Second)
	v.SetDefault("context_health.cooldown", 60*time.Second)
	v.SetDefault("context_health.auto_heal", true)
	v.SetDefault("context_health.summarization_enabled", true)
	v.SetDefault("context_health.rotation_enabled", true)
	v.SetDefault("context_health.default_target_reduction", 0.3)

	v.SetDefault("updates.cache_ttl", 15*time.Minute)

	v.SetDefault("event_hub.backlog_capacity", 256)
	v.SetDefault("event_hub.backlog_ttl", 0)
	v.SetDefault("event_hub.subscriber_queue", 64)
}

// bindEnv wires the wire-stable environment variables §6 names onto the
// viper keys they override, in addition to viper's automatic
// ACFSGATEWAY_-prefixed env binding for everything else.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("ACFSGATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("registry.manifest_path", "ACFS_MANIFEST_PATH", "TOOL_REGISTRY_PATH")
	_ = v.BindEnv("registry.cache_ttl_ms", "ACFS_MANIFEST_TTL_MS", "TOOL_REGISTRY_TTL_MS")
	_ = v.BindEnv("github_token", "GITHUB_TOKEN")
}

// Options configures Load.
type Options struct {
	// ConfigName is the base file name viper searches for (default
	// "acfsgateway", extension resolved automatically: yaml/yml/json).
	ConfigName string
	// ConfigPaths are searched in order in addition to "." and "$HOME".
	ConfigPaths []string
	// ExplicitPath, if set, is read directly instead of being searched
	// for, mirroring --config on the CLI.
	ExplicitPath string
}

// Load resolves Config from (in ascending precedence) built-in
// defaults, an optional YAML/JSON config file, and environment
// variables. A missing config file is not an error — the gateway runs
// on defaults plus env vars alone, the same degrade-not-fail posture
// §7 requires of the cores themselves.
func Load(opts Options) (Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	if opts.ExplicitPath != "" {
		v.SetConfigFile(opts.ExplicitPath)
	} else {
		name := opts.ConfigName
		if name == "" {
			name = "acfsgateway"
		}
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		for _, p := range opts.ConfigPaths {
			v.AddConfigPath(p)
		}
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	// ACFS_MANIFEST_TTL_MS/TOOL_REGISTRY_TTL_MS are documented in
	// milliseconds (§6); viper can't unmarshal an int env var straight
	// into a time.Duration field, so resolve it by hand.
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if ms := v.GetInt64("registry.cache_ttl_ms"); ms > 0 {
		cfg.Registry.CacheTTL = time.Duration(ms) * time.Millisecond
	}
	cfg.Registry.ManifestPath = v.GetString("registry.manifest_path")
	cfg.GitHubToken = v.GetString("github_token")

	return cfg, nil
}
