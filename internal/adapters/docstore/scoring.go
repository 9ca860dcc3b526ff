package docstore

import (
	"sort"
	"strings"

	"github.com/0xcro3dile/kluagent/internal/domain/entities"
)

// phraseBonus is added when the whole query occurs verbatim in a chunk.
const phraseBonus = 10

// keywordScore rates content against a query by distinct-word overlap plus a
// bonus for a verbatim phrase match, normalized by the number of query words.
// Zero means no match.
func keywordScore(query, content string) float64 {
	q := strings.ToLower(query)
	qWords := wordSet(q)
	if len(qWords) == 0 {
		return 0
	}

	c := strings.ToLower(content)
	cWords := wordSet(c)

	matches := 0
	for w := range qWords {
		if _, ok := cWords[w]; ok {
			matches++
		}
	}
	if strings.Contains(c, q) {
		matches += phraseBonus
	}
	return float64(matches) / float64(len(qWords))
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// rank scores chunks against query, drops non-matches and returns the top k.
// Ties keep a stable source/index order.
func rank(query string, chunks []entities.Chunk, k int) []entities.SearchResult {
	if k <= 0 {
		return nil
	}

	var results []entities.SearchResult
	for _, c := range chunks {
		if score := keywordScore(query, c.Content); score > 0 {
			results = append(results, entities.SearchResult{Chunk: c, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Source != b.Chunk.Source {
			return a.Chunk.Source < b.Chunk.Source
		}
		return a.Chunk.Index < b.Chunk.Index
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// summarize derives store statistics and per-document listings from chunks.
func summarize(chunks []entities.Chunk) (entities.DocumentStats, []entities.DocumentInfo) {
	byName := make(map[string]*entities.DocumentInfo)
	for _, c := range chunks {
		if c.Source == "" {
			continue
		}
		d, ok := byName[c.Source]
		if !ok {
			d = &entities.DocumentInfo{
				ID:         c.DocumentID,
				Name:       c.Source,
				Size:       c.Size,
				UploadDate: c.UploadedAt,
			}
			byName[c.Source] = d
		}
		d.ChunkCount++
	}

	docs := make([]entities.DocumentInfo, 0, len(byName))
	sources := make([]string, 0, len(byName))
	for name, d := range byName {
		docs = append(docs, *d)
		sources = append(sources, name)
	}
	sort.Strings(sources)
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })

	return entities.DocumentStats{
		TotalDocuments: len(byName),
		TotalChunks:    len(chunks),
		Sources:        sources,
	}, docs
}
