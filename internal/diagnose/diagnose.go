// ABOUTME: Fallback diagnostics engine that classifies capability failures.
// ABOUTME: Maps (capability, error message) onto pattern groups yielding recovery suggestions.

package diagnose

import (
	"fmt"
	"strings"
)

// Classification identifies which failure-pattern group matched.
type Classification string

const (
	ClassBuildSystem   Classification = "build-system"
	ClassUIFramework   Classification = "ui-framework"
	ClassTestFramework Classification = "test-framework"
	ClassTimeout       Classification = "timeout"
	ClassGeneric       Classification = "generic"
)

// Bundle is a structured recovery suggestion attached to a failed call.
// It accompanies the original error message and never replaces it.
type Bundle struct {
	Classification        Classification `json:"classification"`
	ErrorAnalysis         string         `json:"errorAnalysis"`
	PossibleCauses        []string       `json:"possibleCauses"`
	RecommendedActions    []string       `json:"recommendedActions"`
	AlternativeApproaches []string       `json:"alternativeApproaches"`
}

// Classifier maps a failed capability call to a diagnostic bundle.
// Implementations must be deterministic and side-effect free.
type Classifier interface {
	Classify(capability, errMsg string) Bundle
}

// patternGroup is one entry in the ordered failure-pattern table.
// The first group whose keywords match the capability name (or the error
// message) wins.
type patternGroup struct {
	class    Classification
	keywords []string
	causes   []string
	actions  []string
}

// defaultPatterns is checked in order; more specific groups come first.
var defaultPatterns = []patternGroup{
	{
		class:    ClassBuildSystem,
		keywords: []string{"gradle", "build", "assemble", "compile"},
		causes: []string{
			"Gradle daemon not running",
			"Project not properly configured",
			"Missing dependencies or wrong versions",
		},
		actions: []string{
			"Check the Gradle wrapper configuration",
			"Verify the Android SDK setup",
			"Review build.gradle files for errors",
		},
	},
	{
		class:    ClassUIFramework,
		keywords: []string{"compose", "layout", "view", "ui"},
		causes: []string{
			"Compose dependencies not configured",
			"Incompatible Compose version",
			"Missing Compose compiler options",
		},
		actions: []string{
			"Add the Compose BOM to dependencies",
			"Enable Compose in build.gradle",
			"Check Kotlin compiler version compatibility",
		},
	},
	{
		class:    ClassTestFramework,
		keywords: []string{"test", "junit", "espresso"},
		causes: []string{
			"Test dependencies missing",
			"Test source directories not configured",
			"Android test device or emulator not available",
		},
		actions: []string{
			"Add test dependencies (JUnit, MockK)",
			"Check the test source set configuration",
			"Ensure an emulator is running for instrumented tests",
		},
	},
}

// genericBundle is emitted when no pattern matches. Never empty.
func genericBundle(capability, errMsg string) Bundle {
	return Bundle{
		Classification: ClassGeneric,
		ErrorAnalysis:  fmt.Sprintf("capability %q failed: %s", capability, errMsg),
		PossibleCauses: []string{
			"Project configuration incomplete",
			"Required external tool not installed",
		},
		RecommendedActions: []string{
			"Check the project configuration and dependencies",
			"Consult the capability documentation for setup requirements",
		},
		AlternativeApproaches: alternatives(capability),
	}
}

func alternatives(capability string) []string {
	return []string{
		fmt.Sprintf("Try a simpler variant of %s", capability),
		"Use a manual approach as a temporary workaround",
	}
}

// DefaultClassifier implements the built-in heuristic pattern table.
type DefaultClassifier struct{}

// Classify matches the capability name, then the error message, against the
// ordered pattern table and returns the first hit. The match is a keyword
// heuristic, not an exact diagnosis.
func (DefaultClassifier) Classify(capability, errMsg string) Bundle {
	lowerName := strings.ToLower(capability)
	lowerErr := strings.ToLower(errMsg)

	for _, g := range defaultPatterns {
		for _, kw := range g.keywords {
			if strings.Contains(lowerName, kw) || strings.Contains(lowerErr, kw) {
				return Bundle{
					Classification:        g.class,
					ErrorAnalysis:         fmt.Sprintf("capability %q failed: %s", capability, errMsg),
					PossibleCauses:        g.causes,
					RecommendedActions:    g.actions,
					AlternativeApproaches: alternatives(capability),
				}
			}
		}
	}
	return genericBundle(capability, errMsg)
}

// Timeout builds the distinguished bundle for a call that exceeded its
// configured deadline. Kept separate from Classify so timeouts are never
// mistaken for capability-internal failures.
func Timeout(capability string, limit string) Bundle {
	return Bundle{
		Classification: ClassTimeout,
		ErrorAnalysis:  fmt.Sprintf("capability %q timed out after %s", capability, limit),
		PossibleCauses: []string{
			"Operation legitimately needs more time than the configured limit",
			"External process hung waiting for input",
		},
		RecommendedActions: []string{
			"Retry the call",
			fmt.Sprintf("Raise the timeout for %s in the project overrides", capability),
		},
		AlternativeApproaches: []string{
			"Split the operation into smaller steps",
		},
	}
}

// Text renders the bundle as a human-readable block for an error response.
func (b Bundle) Text() string {
	var sb strings.Builder
	sb.WriteString(b.ErrorAnalysis)
	writeList(&sb, "Possible causes", b.PossibleCauses)
	writeList(&sb, "Recommended actions", b.RecommendedActions)
	writeList(&sb, "Alternative approaches", b.AlternativeApproaches)
	return sb.String()
}

func writeList(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString("\n")
	sb.WriteString(heading)
	sb.WriteString(":")
	for _, item := range items {
		sb.WriteString("\n- ")
		sb.WriteString(item)
	}
}
