package ocr

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`[\t\v]+`)
	reMultiSpace = regexp.MustCompile(`[ \x{00A0}]{2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)
)

// Normalize collapses noisy whitespace and composes accents (NFC) so "é"
// has one representation no matter which tool produced the text.
// Line breaks are kept; runs of blank lines collapse into one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
