package search

import (
	"sort"
	"strings"

	"github.com/mohammad-safakhou/copilot/models"
)

const (
	titleWeight   = 0.6
	snippetWeight = 0.4
)

// TextRelevance scores text against query as the fraction of distinct query
// words that appear in the text. Returns 0 for empty text or query.
func TextRelevance(query, text string) float64 {
	if text == "" {
		return 0
	}
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return 0
	}
	textWords := wordSet(text)

	overlap := 0
	for w := range queryWords {
		if _, ok := textWords[w]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryWords))
}

// RankLocal scores results by weighted title/snippet word overlap with the
// query and sorts them best-first. Scores are written onto the results.
func RankLocal(query string, results []models.SearchResult) []models.SearchResult {
	for i := range results {
		title := TextRelevance(query, results[i].Title)
		snippet := TextRelevance(query, results[i].Snippet)
		results[i].RelevanceScore = title*titleWeight + snippet*snippetWeight
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	return results
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = struct{}{}
	}
	return set
}
