package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthAlt = `enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|setiembre|octubre|noviembre|diciembre`

var months = map[string]time.Month{
	"enero": time.January, "febrero": time.February, "marzo": time.March,
	"abril": time.April, "mayo": time.May, "junio": time.June, "julio": time.July,
	"agosto": time.August, "septiembre": time.September, "setiembre": time.September,
	"octubre": time.October, "noviembre": time.November, "diciembre": time.December,
}

// "<day> de <month> de <year>", also "1° de abril del 2003"
const writtenDate = `(\d{1,2})\s*(?:°|º)?\s+de\s+(` + monthAlt + `)\s+(?:de|del)\s+(?:año\s+)?(\d{4})`

var (
	reWrittenDate = regexp.MustCompile(`(?i)\b` + writtenDate + `\b`)

	reStartPhrase = regexp.MustCompile(`(?i)\bregir[aá]?\b[^.;]{0,80}?` + writtenDate)
	reEndPhrase   = regexp.MustCompile(`(?i)\b(?:terminar|finalizar|expirar)[aá]?\b[^.;]{0,80}?` + writtenDate)

	reStartNumeric = regexp.MustCompile(`(?i)\b(?:inicio|regir[aá]?)\b[^0-9]{0,60}(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
	reEndNumeric   = regexp.MustCompile(`(?i)(?:\bt[ée]rmino|\bfin\b|\bterminar[aá]?\b)[^0-9]{0,60}(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`)
)

// numericLayouts are tried in order; the first successful parse wins.
var numericLayouts = []string{"2-1-2006", "2/1/2006", "2-1-06", "2/1/06"}

// ParseNumericDate parses dd-mm-yyyy, dd/mm/yyyy, dd-mm-yy or dd/mm/yy.
func ParseNumericDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range numericLayouts {
		if t, err := time.Parse(layout, s); err == nil && plausibleYear(t.Year()) {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseWritten(day, month, year string) (time.Time, bool) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	m, ok := months[strings.ToLower(month)]
	if !ok {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil || !plausibleYear(y) {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes "31 de febrero" into March; reject it.
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

func plausibleYear(y int) bool { return y >= 1900 && y <= 2200 }

// writtenDates returns every written-form date in text order.
func writtenDates(text string) []Candidate[time.Time] {
	var out []Candidate[time.Time]
	for _, m := range reWrittenDate.FindAllStringSubmatchIndex(text, -1) {
		if t, ok := parseWritten(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]); ok {
			out = append(out, Candidate[time.Time]{Value: t, Offset: m[0]})
		}
	}
	return out
}

// phraseDate returns the first written date introduced by a labeled phrase.
func phraseDate(text string, re *regexp.Regexp) (Candidate[time.Time], bool) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if t, ok := parseWritten(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]); ok {
			return Candidate[time.Time]{Value: t, Confidence: 0.9, Rule: RuleLabeledPhrase, Offset: m[2]}, true
		}
	}
	return Candidate[time.Time]{}, false
}

// numericDate returns the first labeled dd/mm/yyyy date that parses.
func numericDate(text string, re *regexp.Regexp) (Candidate[time.Time], bool) {
	for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
		if t, ok := ParseNumericDate(text[m[2]:m[3]]); ok {
			return Candidate[time.Time]{Value: t, Confidence: 0.85, Rule: RuleLabeledNumeric, Offset: m[2]}, true
		}
	}
	return Candidate[time.Time]{}, false
}

// analyzeDates fills the start/end candidate lists.
//
// Labeled values win. When either side has one, the other written dates are
// only low alternatives to the labeled side and an unlabeled side stays empty.
// Without labels the written dates are assigned by position: three or more ->
// 2nd/3rd (the 1st is usually the signing date), two -> 1st/2nd, one -> start
// only. The positional rule is a guess. End candidates before the chosen start
// are dropped.
func analyzeDates(text string, r *Report) {
	var start, end []Candidate[time.Time]
	if c, ok := phraseDate(text, reStartPhrase); ok {
		start = append(start, c)
	}
	if c, ok := numericDate(text, reStartNumeric); ok {
		start = append(start, c)
	}
	if c, ok := phraseDate(text, reEndPhrase); ok {
		end = append(end, c)
	}
	if c, ok := numericDate(text, reEndNumeric); ok {
		end = append(end, c)
	}

	written := writtenDates(text)
	if labeledStart, labeledEnd := len(start) > 0, len(end) > 0; labeledStart || labeledEnd {
		for _, w := range written {
			w.Confidence, w.Rule = 0.1, RuleWrittenOther
			if labeledStart {
				start = append(start, w)
			}
			if labeledEnd {
				end = append(end, w)
			}
		}
	} else {
		startIdx, endIdx := -1, -1
		switch n := len(written); {
		case n >= 3:
			startIdx, endIdx = 1, 2
		case n == 2:
			startIdx, endIdx = 0, 1
		case n == 1:
			startIdx = 0
		}
		for i, w := range written {
			switch i {
			case startIdx:
				w.Confidence, w.Rule = 0.45, RulePositional
				start = append(start, w)
			case endIdx:
				w.Confidence, w.Rule = 0.45, RulePositional
				end = append(end, w)
			default:
				w.Confidence, w.Rule = 0.1, RuleWrittenOther
				start = append(start, w)
				end = append(end, w)
			}
		}
	}

	r.StartDate = rank(start, dateKey)
	r.EndDate = rank(notBefore(end, r.StartDate), dateKey)
}

// notBefore drops end candidates earlier than the top start candidate.
func notBefore(end, start []Candidate[time.Time]) []Candidate[time.Time] {
	if len(start) == 0 {
		return end
	}
	first := start[0].Value
	out := end[:0]
	for _, c := range end {
		if !c.Value.Before(first) {
			out = append(out, c)
		}
	}
	return out
}
