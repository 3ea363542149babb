package utils

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	digitRunRe   = regexp.MustCompile(`[0-9]+`)
	dayFirstRe   = regexp.MustCompile(`^\s*([A-Za-z]{3,9})\b[^0-9]*([0-9]+)\s*$`)
	stepsFirstRe = regexp.MustCompile(`^\s*([0-9]+)[\s,.:;-]*([A-Za-z]{3,9})\s*$`)
	digitsOnlyRe = regexp.MustCompile(`^\s*([0-9]+)\s*$`)
)

// NormalizeThousands removes a thousands separator (comma, period, or any
// space including NBSP variants) that sits between a digit and a group of
// exactly three digits ending at a word boundary. "12,345" becomes "12345";
// "3, 4" is untouched because the trailing group is not three digits. The
// transformation is idempotent.
func NormalizeThousands(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		if isThousandsSep(r) && i > 0 && isDigit(runes[i-1]) && followedByGroupOfThree(runes, i+1) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

func isThousandsSep(r rune) bool {
	return r == ',' || r == '.' || r == ' ' || r == ' ' || unicode.Is(unicode.Zs, r)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// followedByGroupOfThree reports whether runes[i:] starts with exactly three
// digits ending the numeric run (end of string or a non-word rune).
func followedByGroupOfThree(runes []rune, i int) bool {
	n := 0
	for i+n < len(runes) && n < 4 && isDigit(runes[i+n]) {
		n++
	}
	if n != 3 {
		return false
	}
	if i+3 >= len(runes) {
		return true
	}
	next := runes[i+3]
	return !isDigit(next) && !unicode.IsLetter(next) && next != '_'
}

// CountNumberRuns counts the distinct digit runs in a normalized body. More
// than one run is unparseable: the grammar cannot tell a step count from a
// stray day-of-month.
func CountNumberRuns(s string) int {
	return len(digitRunRe.FindAllString(s, -1))
}

// ParseSteps extracts an optional day-name override and a step count from a
// normalized body. Accepted shapes: "Tue 5000", "5000 Tue", "5000".
func ParseSteps(norm string) (dayOverride string, steps int, ok bool) {
	if m := dayFirstRe.FindStringSubmatch(norm); m != nil {
		steps, _ = strconv.Atoi(m[2])
		return m[1], steps, true
	}
	if m := digitsOnlyRe.FindStringSubmatch(norm); m != nil {
		steps, _ = strconv.Atoi(m[1])
		return "", steps, true
	}
	if m := stepsFirstRe.FindStringSubmatch(norm); m != nil {
		steps, _ = strconv.Atoi(m[1])
		return m[2], steps, true
	}
	return "", 0, false
}

// MaxSteps is the sanity ceiling on a single day's report.
const MaxSteps = 200000

// StepsInBounds checks the inclusive [0, MaxSteps] range.
func StepsInBounds(steps int) bool {
	return steps >= 0 && steps <= MaxSteps
}
