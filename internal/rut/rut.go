// Package rut handles Chilean national tax identifiers (RUT/RUN).
package rut

import (
	"regexp"
	"strings"
	"unicode"
)

var reCanonical = regexp.MustCompile(`^\d{7,8}[0-9K]$`)

// Normalize strips every non-alphanumeric character and uppercases a trailing
// check character: "9.647.123-8", "9647123-8" and "9647123-8 " all become
// "96471238"; "12.345.678-k" becomes "12345678K".
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r < unicode.MaxASCII && (unicode.IsDigit(r) || unicode.IsLetter(r)) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return ""
	}
	last := len(s) - 1
	return s[:last] + strings.ToUpper(s[last:])
}

// LooksLike reports whether raw normalizes to a RUT-shaped value
// (7–8 body digits plus a digit or K check character).
func LooksLike(raw string) bool {
	return reCanonical.MatchString(Normalize(raw))
}

// CheckDigit computes the modulo-11 check character for a numeric body.
func CheckDigit(body string) (byte, bool) {
	if body == "" {
		return 0, false
	}
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		c := body[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		sum += int(c-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0', true
	case 10:
		return 'K', true
	default:
		return byte('0' + r), true
	}
}

// Valid reports whether raw is RUT-shaped and its check character matches.
func Valid(raw string) bool {
	n := Normalize(raw)
	if !reCanonical.MatchString(n) {
		return false
	}
	want, ok := CheckDigit(n[:len(n)-1])
	return ok && want == n[len(n)-1]
}

// Format renders a normalized RUT as "9.647.123-8".
func Format(normalized string) string {
	if !reCanonical.MatchString(normalized) {
		return normalized
	}
	body, dv := normalized[:len(normalized)-1], normalized[len(normalized)-1:]
	var parts []string
	for len(body) > 3 {
		parts = append([]string{body[len(body)-3:]}, parts...)
		body = body[:len(body)-3]
	}
	parts = append([]string{body}, parts...)
	return strings.Join(parts, ".") + "-" + dv
}
