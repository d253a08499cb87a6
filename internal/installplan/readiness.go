package installplan

import (
	"strings"
	"time"
)

// Readiness is the operator-facing degrade-not-fail view of a Plan: the
// gateway answers readiness even when the manifest fell back, flagging
// what's missing instead of erroring.
type Readiness struct {
	Ready                bool
	Installed            int
	MissingRequired      int
	MissingOptional      int
	MissingRequiredTools []string
	Recommendations      []string
	CheckedAt            time.Time
}

// DeriveReadiness folds a Plan into a Readiness report. Required tools
// whose entry is missing or errored both count as not ready; the
// recommendation line lists them by executable name in plan (phase)
// order.
func DeriveReadiness(p Plan) Readiness {
	var missingNames []string
	for _, e := range p.Entries {
		if !e.Required {
			continue
		}
		if e.Status == StatusMissing || e.Status == StatusError {
			missingNames = append(missingNames, e.Name)
		}
	}

	var recommendations []string
	if len(missingNames) > 0 {
		recommendations = append(recommendations, "Install required tools: "+strings.Join(missingNames, ", "))
	}
	if p.MissingOptional > 0 {
		recommendations = append(recommendations, "Optional tools are missing; run the install plan for details")
	}

	return Readiness{
		Ready:                p.Ready,
		Installed:            p.Installed,
		MissingRequired:      p.MissingRequired,
		MissingOptional:      p.MissingOptional,
		MissingRequiredTools: missingNames,
		Recommendations:      recommendations,
		CheckedAt:            time.Now(),
	}
}
