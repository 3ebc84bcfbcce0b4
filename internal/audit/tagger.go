// ABOUTME: Default keyword-based compliance tagger for audit entries.
// ABOUTME: Flags personal-data and health-data relevance from disjoint keyword sets.

package audit

import "strings"

// KeywordTagger flags entries whose action or resource text matches one of
// two disjoint keyword sets. Substring matching is deliberately loose: a
// false positive costs a review glance, a false negative hides an access.
type KeywordTagger struct {
	Personal []string
	Health   []string
}

// NewKeywordTagger returns a tagger with the default keyword sets.
func NewKeywordTagger() *KeywordTagger {
	return &KeywordTagger{
		Personal: []string{"personal", "email", "profile", "contact", "gdpr"},
		Health:   []string{"health", "patient", "diagnosis", "medical", "hipaa"},
	}
}

// Tag implements Tagger.
func (t *KeywordTagger) Tag(action, resource string) []Flag {
	text := strings.ToLower(action + " " + resource)

	var flags []Flag
	if matchAny(text, t.Personal) {
		flags = append(flags, FlagPersonalData)
	}
	if matchAny(text, t.Health) {
		flags = append(flags, FlagHealthData)
	}
	return flags
}

func matchAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
