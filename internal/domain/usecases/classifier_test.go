package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	c := NewKeywordClassifier(nil)

	tests := []struct {
		name  string
		query string
		want  entities.SourceSelection
	}{
		{
			name:  "database only",
			query: "How many seats are available for B.Tech CSE?",
			want:  entities.SourceSelection{entities.SourceDatabase},
		},
		{
			name:  "documents only",
			query: "What is KLU's attendance policy?",
			want:  entities.SourceSelection{entities.SourceDocuments},
		},
		{
			name:  "hybrid",
			query: "Tell me about the hostel fee",
			want:  entities.SourceSelection{entities.SourceDocuments, entities.SourceDatabase},
		},
		{
			name:  "no keyword fails open",
			query: "Where is the cafeteria?",
			want:  entities.SourceSelection{entities.SourceDocuments, entities.SourceDatabase},
		},
		{
			name:  "case insensitive",
			query: "WHO IS THE HOD OF ECE",
			want:  entities.SourceSelection{entities.SourceDatabase},
		},
		{
			name:  "empty query fails open",
			query: "",
			want:  entities.SourceSelection{entities.SourceDocuments, entities.SourceDatabase},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.query))
		})
	}
}

func TestKeywordClassifier_EveryDatabaseKeywordAlone(t *testing.T) {
	c := NewKeywordClassifier(nil)

	for _, kw := range DefaultKeywordRules[1].Keywords {
		want := entities.SourceSelection{entities.SourceDatabase}
		if kw == "admission" {
			// substring match: "admission" contains "mission"
			want = entities.SourceSelection{entities.SourceDocuments, entities.SourceDatabase}
		}
		assert.Equal(t, want, c.Classify("zz "+kw+" zz"), "keyword %q", kw)
	}
}

func TestKeywordClassifier_CustomRules(t *testing.T) {
	c := NewKeywordClassifier([]KeywordRule{
		{Tag: entities.SourceDatabase, Keywords: []string{" Bus Route "}},
	})

	assert.Equal(t, entities.SourceSelection{entities.SourceDatabase}, c.Classify("which bus route goes downtown"))
	// Only one tag in the table, so the fail-open default is that tag.
	assert.Equal(t, entities.SourceSelection{entities.SourceDatabase}, c.Classify("hello"))
}
