package toolregistry

import (
	"fmt"
	"strings"
)

// ValidationIssue is one schema problem found in a manifest.
type ValidationIssue struct {
	ToolID  string
	Field   string
	Message string
}

func (i ValidationIssue) String() string {
	if i.ToolID == "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.ToolID, i.Field, i.Message)
}

// Validate checks a decoded Manifest against the strict-required-field
// schema: unknown fields are always permitted (the YAML decoder simply
// ignores them), but required fields and global identity uniqueness are
// enforced here.
func Validate(m Manifest) []ValidationIssue {
	var issues []ValidationIssue

	if strings.TrimSpace(m.SchemaVersion) == "" {
		issues = append(issues, ValidationIssue{Field: "schemaVersion", Message: "must not be empty"})
	}

	seenID := make(map[string]bool)
	seenNameByCategory := make(map[Category]map[string]bool)

	for idx, t := range m.Tools {
		label := t.ID
		if label == "" {
			label = fmt.Sprintf("tools[%d]", idx)
		}

		if strings.TrimSpace(t.ID) == "" {
			issues = append(issues, ValidationIssue{ToolID: label, Field: "id", Message: "must not be empty"})
		} else if seenID[t.ID] {
			issues = append(issues, ValidationIssue{ToolID: label, Field: "id", Message: "duplicate tool id"})
		}
		seenID[t.ID] = true

		if strings.TrimSpace(t.Name) == "" {
			issues = append(issues, ValidationIssue{ToolID: label, Field: "name", Message: "must not be empty"})
		}

		if t.Category != CategoryAgent && t.Category != CategoryTool {
			issues = append(issues, ValidationIssue{ToolID: label, Field: "category", Message: fmt.Sprintf("must be %q or %q", CategoryAgent, CategoryTool)})
		} else {
			byName := seenNameByCategory[t.Category]
			if byName == nil {
				byName = make(map[string]bool)
				seenNameByCategory[t.Category] = byName
			}
			if t.Name != "" {
				if byName[t.Name] {
					issues = append(issues, ValidationIssue{ToolID: label, Field: "name", Message: "duplicate name within category"})
				}
				byName[t.Name] = true
			}
		}

		for _, dep := range t.Depends {
			if strings.TrimSpace(dep) == "" {
				issues = append(issues, ValidationIssue{ToolID: label, Field: "depends", Message: "dependency id must not be empty"})
			}
		}
	}

	return issues
}
