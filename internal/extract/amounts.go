package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money-shaped tokens: "$611", "$ 350.000", "$350.000,50" or a bare
// thousands-grouped figure such as "350.000".
var reMoney = regexp.MustCompile(`\$\s*(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?|\d+(?:,\d{1,2})?)|(?:^|[^\d.,$])(\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?)`)

// An ungrouped figure such as "350000"; only trusted right after a rent label.
var reBareAmount = regexp.MustCompile(`(?:^|[^\d.,$])(\d{4,}(?:,\d{1,2})?)`)

type rentLabel struct {
	re   *regexp.Regexp
	conf float64
}

var rentLabels = []rentLabel{
	{regexp.MustCompile(`(?i)\brenta\s+mensual\b`), 0.9},
	{regexp.MustCompile(`(?i)\bcanon\b`), 0.85},
	{regexp.MustCompile(`(?i)\brenta\b`), 0.8},
	{regexp.MustCompile(`(?i)\barr(?:iendo|endamiento)\b`), 0.75},
}

const rentLabelWindow = 100

// ParseLatinAmount converts "350.000", "350.000,50" or "611" into a decimal.
// Dots are thousands separators and the comma is the decimal mark.
func ParseLatinAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "-"), ".")
	if s == "" {
		return decimal.Zero, false
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var (
	rePlainAmount   = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
	reGroupedAmount = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d{1,2})?$`)
	reCommaDecimal  = regexp.MustCompile(`^\d+,\d{1,2}$`)
)

// ParseAmountString parses a typed or model-supplied amount: "350000",
// "350000.50", "350.000", "350.000,50" or "350000,50". Shapes that fit
// neither convention, such as "350,000" or "350000.555", are rejected
// rather than guessed.
func ParseAmountString(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	switch {
	case rePlainAmount.MatchString(s):
		d, err := decimal.NewFromString(s)
		return d, err == nil
	case reGroupedAmount.MatchString(s), reCommaDecimal.MatchString(s):
		return ParseLatinAmount(s)
	}
	return decimal.Zero, false
}

type moneyHit struct {
	value      decimal.Decimal
	start, end int
}

// moneyTokens scans text[from:to] for positive money tokens. Tax IDs
// ("9.647.123-8") and longer dotted figures are skipped.
func moneyTokens(text string, from, to int) []moneyHit {
	return scanAmounts(text, from, to, reMoney)
}

// labeledAmount returns the first money token in text[from:to], or the first
// bare figure when there is none.
func labeledAmount(text string, from, to int) (moneyHit, bool) {
	hits := moneyTokens(text, from, to)
	if len(hits) == 0 {
		hits = scanAmounts(text, from, to, reBareAmount)
	}
	if len(hits) == 0 {
		return moneyHit{}, false
	}
	return hits[0], true
}

func scanAmounts(text string, from, to int, re *regexp.Regexp) []moneyHit {
	from, to = window(text, from, to)
	seg := text[from:to]
	var out []moneyHit
	for _, m := range re.FindAllStringSubmatchIndex(seg, -1) {
		s, e := m[2], m[3]
		if s < 0 && len(m) > 5 {
			s, e = m[4], m[5]
		}
		if s < 0 {
			continue
		}
		if rest := text[from+e:]; looksLikeTaxIDTail(rest) || continuesNumber(rest) {
			continue
		}
		d, ok := ParseLatinAmount(seg[s:e])
		if !ok || !d.IsPositive() {
			continue
		}
		out = append(out, moneyHit{value: d, start: from + s, end: from + e})
	}
	return out
}

func looksLikeTaxIDTail(rest string) bool {
	rest = strings.TrimLeft(rest, " ")
	if len(rest) < 2 || rest[0] != '-' {
		return false
	}
	c := rest[1]
	return (c >= '0' && c <= '9') || c == 'k' || c == 'K'
}

func continuesNumber(rest string) bool {
	if rest == "" {
		return false
	}
	if rest[0] >= '0' && rest[0] <= '9' {
		return true
	}
	return len(rest) > 1 && (rest[0] == '.' || rest[0] == ',') && rest[1] >= '0' && rest[1] <= '9'
}

// analyzeRent prefers an amount right after a rent label; every money token
// is also a candidate, the largest ranked first. Picking the maximum keeps
// street numbers and small fees out but breaks when a larger unrelated
// figure (a guarantee, a fine) is present.
func analyzeRent(text string, r *Report) {
	var cs []Candidate[decimal.Decimal]
	for _, l := range rentLabels {
		for _, m := range l.re.FindAllStringIndex(text, -1) {
			hit, ok := labeledAmount(text, m[1], m[1]+rentLabelWindow)
			if !ok {
				continue
			}
			cs = append(cs, Candidate[decimal.Decimal]{
				Value: hit.value, Confidence: l.conf, Rule: RuleLabeledAmount, Offset: hit.start,
			})
			break
		}
	}

	all := moneyTokens(text, 0, len(text))
	if len(all) > 0 {
		max := all[0]
		for _, h := range all[1:] {
			if h.value.GreaterThan(max.value) {
				max = h
			}
		}
		cs = append(cs, Candidate[decimal.Decimal]{Value: max.value, Confidence: 0.4, Rule: RuleMaxAmount, Offset: max.start})
		for _, h := range all {
			ratio, _ := h.value.Div(max.value).Float64()
			cs = append(cs, Candidate[decimal.Decimal]{Value: h.value, Confidence: 0.3 * ratio, Rule: RuleOtherAmount, Offset: h.start})
		}
	}
	r.MonthlyRent = rank(cs, decimalKey)
}
