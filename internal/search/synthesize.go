package search

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mohammad-safakhou/copilot/models"
)

const (
	synthesisTop  = 3
	snippetCutoff = 200
)

// SynthesizeAnswer concatenates the top ranked snippets into a short answer
// with a trailing source list.
func SynthesizeAnswer(query string, results []models.SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No relevant information found for: %s", query)
	}

	top := results
	if len(top) > synthesisTop {
		top = top[:synthesisTop]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on current information regarding '%s':\n\n", query)
	for i, r := range top {
		if r.Snippet == "" {
			continue
		}
		snippet := r.Snippet
		if utf8.RuneCountInString(snippet) > snippetCutoff {
			snippet = string([]rune(snippet)[:snippetCutoff])
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   %s...\n\n", snippet)
	}

	b.WriteString("Sources:\n")
	for i, r := range top {
		if r.URL == "" {
			continue
		}
		title := r.Title
		if title == "" {
			title = fmt.Sprintf("Source %d", i+1)
		}
		fmt.Fprintf(&b, "- %s: %s\n", title, r.URL)
	}
	return b.String()
}
