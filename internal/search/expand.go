package search

import "strings"

var (
	businessTerms = []string{"business", "startup", "company", "market"}
	locativeTerms = []string{"in", "location", "city", "country"}
)

// ExpandQuery generates semantically related query variants for deep mode,
// capped at three. Temporal variants are added for business queries and a
// "requirements" variant when no locative term is present.
func ExpandQuery(query string) []string {
	queries := []string{query}

	lower := strings.ToLower(query)
	if containsAny(lower, businessTerms) {
		queries = append(queries, query+" 2024 trends", query+" latest statistics")
	}
	if !containsWord(lower, locativeTerms) {
		queries = append(queries, query+" requirements")
	}

	if len(queries) > 3 {
		queries = queries[:3]
	}
	return queries
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func containsWord(s string, terms []string) bool {
	words := strings.Fields(s)
	for _, t := range terms {
		for _, w := range words {
			if w == t {
				return true
			}
		}
	}
	return false
}
