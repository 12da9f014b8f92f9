package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var reLocatedAt = regexp.MustCompile(`(?i)\b(?:ubicad[oa]|situad[oa])\s+en\s+([^;\n]{3,120}?)(?:;|\n|\.\s|\.$|$)`)

// Analyze runs every heuristic over text and returns ranked candidates.
// It never fails: a field without candidates is simply absent.
func Analyze(text string) Report {
	var r Report
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return r
	}
	analyzeDates(text, &r)
	analyzePayDay(text, &r)
	analyzeRent(text, &r)
	analyzeParties(text, &r)
	analyzeAddress(text, &r)
	return r
}

// Extract returns the top candidate of every field.
func Extract(text string) ExtractedFields {
	return Analyze(text).Fields()
}

func analyzeAddress(text string, r *Report) {
	var cs []Candidate[string]
	for _, m := range reLocatedAt.FindAllStringSubmatchIndex(text, -1) {
		addr := strings.Trim(strings.Join(strings.Fields(text[m[2]:m[3]]), " "), " ,.")
		if addr == "" {
			continue
		}
		cs = append(cs, Candidate[string]{Value: addr, Confidence: 0.5, Rule: RuleLocatedAt, Offset: m[2]})
	}
	r.Address = rank(cs, stringKey)
}
