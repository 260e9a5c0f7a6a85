package llm

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Pattern list maintained separately for content filtering. The masked forms
// ("f*ck") show up when upstream filters half-censor model output.
var profanityReplacements = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bf[*u]ck\w*\b`), "very"},
	{regexp.MustCompile(`(?i)\bs[*h]it\w*\b`), "issues"},
	{regexp.MustCompile(`(?i)\bd[*a]mn\w*\b`), "very"},
	{regexp.MustCompile(`(?i)\bh[*e]ll\b`), "difficulty"},
	{regexp.MustCompile(`(?i)\ba[*s]shole\w*\b`), "person"},
	{regexp.MustCompile(`(?i)\ba[*s]s\b`), ""},
	{regexp.MustCompile(`(?i)\bb[*i]tch\w*\b`), "complaint"},
	{regexp.MustCompile(`(?i)\bc[*r]ap\w*\b`), "issues"},
	{regexp.MustCompile(`(?i)\bb[*a]stard\w*\b`), "person"},
	{regexp.MustCompile(`(?i)\bd[*i]ck\w*\b`), "person"},
	{regexp.MustCompile(`(?i)\bp[*i]ss\w*\b`), "upset"},
}

var (
	excessiveExclaim = regexp.MustCompile(`!{2,}`)
	innerSpaces      = regexp.MustCompile(`[ \t]{2,}`)
	leadingSpaces    = regexp.MustCompile(`^[ \t]*`)
	htmlTag          = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)

	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func strictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Sanitize cleans raw model output: HTML tags are stripped, profanity is
// replaced with neutral wording, runs of exclamation marks collapse to one,
// and repeated spaces inside a line collapse to one while leading indentation
// and blank lines are preserved verbatim.
func Sanitize(raw string) string {
	cleaned := stripMarkup(raw)

	for _, r := range profanityReplacements {
		cleaned = r.pattern.ReplaceAllString(cleaned, r.replacement)
	}
	cleaned = excessiveExclaim.ReplaceAllString(cleaned, "!")

	lines := strings.Split(cleaned, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = ""
			continue
		}
		indent := leadingSpaces.FindString(line)
		content := line[len(indent):]
		content = innerSpaces.ReplaceAllString(content, " ")
		out[i] = indent + strings.TrimRight(content, " \t")
	}
	return strings.Join(out, "\n")
}

// stripMarkup removes HTML elements when the text actually contains markup.
// Plain text passes through untouched so literal '<' and '&' survive.
func stripMarkup(s string) string {
	if !htmlTag.MatchString(s) {
		return s
	}
	return html.UnescapeString(strictHTMLPolicy().Sanitize(s))
}
