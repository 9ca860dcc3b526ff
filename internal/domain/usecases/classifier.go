package usecases

import (
	"strings"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

// KeywordRule selects Tag when any of Keywords occurs in the lower-cased query.
type KeywordRule struct {
	Tag      entities.SourceTag
	Keywords []string
}

// DefaultKeywordRules is the routing table used by the assistant.
// Rules are evaluated in order; the order also fixes adapter merge order.
var DefaultKeywordRules = []KeywordRule{
	{
		Tag: entities.SourceDocuments,
		Keywords: []string{
			"policy", "rule", "procedure", "placement", "about", "history",
			"vision", "mission", "accreditation", "handbook", "guideline",
			"attendance", "grading", "hostel", "library rule", "conduct",
			"what is klu", "tell me about", "percentage", "statistic",
		},
	},
	{
		Tag: entities.SourceDatabase,
		Keywords: []string{
			"student", "faculty", "course", "event", "department", "admission",
			"fee", "seat", "hod", "timing", "facility", "how many", "list",
			"count", "who teach", "schedule", "cgpa", "contact", "name",
			"professor", "section", "year",
		},
	},
}

// KeywordClassifier maps a query to the knowledge sources worth consulting.
// It is pure and safe for concurrent use.
type KeywordClassifier struct {
	rules []KeywordRule
}

// NewKeywordClassifier creates a classifier over rules.
// A nil or empty table falls back to DefaultKeywordRules.
func NewKeywordClassifier(rules []KeywordRule) *KeywordClassifier {
	if len(rules) == 0 {
		rules = DefaultKeywordRules
	}
	normalized := make([]KeywordRule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		normalized[i] = KeywordRule{Tag: r.Tag, Keywords: kws}
	}
	return &KeywordClassifier{rules: normalized}
}

// Classify returns the matching source tags. When no rule matches, every
// tag in the table is returned so the query still reaches all sources.
func (c *KeywordClassifier) Classify(query string) entities.SourceSelection {
	q := strings.ToLower(query)

	var selected entities.SourceSelection
	for _, r := range c.rules {
		if selected.Has(r.Tag) {
			continue
		}
		if containsAny(q, r.Keywords) {
			selected = append(selected, r.Tag)
		}
	}
	if len(selected) > 0 {
		return selected
	}

	for _, r := range c.rules {
		if !selected.Has(r.Tag) {
			selected = append(selected, r.Tag)
		}
	}
	return selected
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
