package toolprobe

import "time"

// defaultTimeout bounds every probe invocation (version check, auth
// check) unless a CLIDefinition overrides it.
const defaultTimeout = 5 * time.Second

// BuiltinAgents is the CLIDefinition set for the agent CLIs the gateway
// probes out of the box, mirroring the fallback tool registry's
// agents.* entries.
func BuiltinAgents() []CLIDefinition {
	return []CLIDefinition{
		{
			Name:         "claude",
			Commands:     []string{"claude"},
			VersionFlag:  "--version",
			AuthCheckCmd: []string{"claude", "auth", "status"},
			Capabilities: Capabilities{Streaming: true, ToolUse: true, FileAccess: true},
			Timeout:      defaultTimeout,
		},
	}
}

// BuiltinTools is the CLIDefinition set for the critical setup tools
// (dcg, slb, ubs, br, bv) from the fallback registry.
func BuiltinTools() []CLIDefinition {
	return []CLIDefinition{
		{Name: "dcg", Commands: []string{"dcg"}, VersionFlag: "--version", Timeout: defaultTimeout},
		{Name: "slb", Commands: []string{"slb"}, VersionFlag: "--version", Timeout: defaultTimeout},
		{Name: "ubs", Commands: []string{"ubs"}, VersionFlag: "--version", Timeout: defaultTimeout},
		{Name: "br", Commands: []string{"br"}, VersionFlag: "--version", Timeout: defaultTimeout},
		{Name: "bv", Commands: []string{"bv"}, VersionFlag: "--version", Timeout: defaultTimeout},
	}
}
