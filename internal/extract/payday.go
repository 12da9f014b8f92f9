package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var numberWords = map[string]int{
	"un": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
	"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

var (
	reBusinessDays     = regexp.MustCompile(`(?i)\b(\d{1,2})\)?\s+primeros\s+d[ií]as(\s+h[aá]biles)?`)
	reBusinessDaysWord = regexp.MustCompile(`(?i)\b(un|uno|dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez)\s+(?:\(\d{1,2}\)\s+)?primeros\s+d[ií]as(\s+h[aá]biles)?`)
	rePayDayLabel      = regexp.MustCompile(`(?i)\bd[ií]a\s+de\s+pago[^0-9]{0,40}(\d{1,2})\b`)
	reDayOfEachMonth   = regexp.MustCompile(`(?i)\bd[ií]a\s+(\d{1,2})\s+de\s+cada\s+mes\b`)
)

func validDay(n int) bool { return n >= 1 && n <= 31 }

// analyzePayDay fills the pay-day candidates: "<N> primeros días hábiles" -> N,
// "cinco primeros días hábiles" -> 5, then a labeled integer.
func analyzePayDay(text string, r *Report) {
	var cs []Candidate[int]
	for _, m := range reBusinessDays.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || !validDay(n) {
			continue
		}
		conf := 0.75
		if m[4] >= 0 {
			conf = 0.9
		}
		cs = append(cs, Candidate[int]{Value: n, Confidence: conf, Rule: RuleBusinessDays, Offset: m[0]})
	}
	for _, m := range reBusinessDaysWord.FindAllStringSubmatchIndex(text, -1) {
		n := numberWords[strings.ToLower(text[m[2]:m[3]])]
		conf := 0.7
		if m[4] >= 0 {
			conf = 0.85
		}
		cs = append(cs, Candidate[int]{Value: n, Confidence: conf, Rule: RuleBusinessWord, Offset: m[0]})
	}
	for _, re := range []*regexp.Regexp{rePayDayLabel, reDayOfEachMonth} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			n, err := strconv.Atoi(text[m[2]:m[3]])
			if err != nil || !validDay(n) {
				continue
			}
			cs = append(cs, Candidate[int]{Value: n, Confidence: 0.6, Rule: RuleLabeledInteger, Offset: m[2]})
		}
	}
	r.PayDay = rank(cs, intKey)
}
