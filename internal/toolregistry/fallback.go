package toolregistry

// fallbackRegistry is the built-in constant bundle substituted whenever
// manifest load fails (unless ThrowOnError is set). It covers
// agents.claude plus the critical tools.* set: dcg, slb, ubs, br, bv.
func fallbackRegistry() Manifest {
	truth := true
	return Manifest{
		SchemaVersion: "1.0.0",
		Source:        "fallback",
		Tools: []ToolDefinition{
			{
				ID:               "agents.claude",
				Name:             "claude",
				Category:         CategoryAgent,
				DisplayName:      "Claude Code",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(0),
			},
			{
				ID:               "tools.dcg",
				Name:             "dcg",
				Category:         CategoryTool,
				DisplayName:      "dcg",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(1),
			},
			{
				ID:               "tools.slb",
				Name:             "slb",
				Category:         CategoryTool,
				DisplayName:      "slb",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(1),
			},
			{
				ID:               "tools.ubs",
				Name:             "ubs",
				Category:         CategoryTool,
				DisplayName:      "ubs",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(1),
			},
			{
				ID:               "tools.br",
				Name:             "br",
				Category:         CategoryTool,
				DisplayName:      "br",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(2),
			},
			{
				ID:               "tools.bv",
				Name:             "bv",
				Category:         CategoryTool,
				DisplayName:      "bv",
				Tags:             []string{"critical"},
				EnabledByDefault: &truth,
				Phase:            intPtr(2),
			},
		},
	}
}

func intPtr(v int) *int { return &v }
func boolPtr(v bool) *bool { return &v }
