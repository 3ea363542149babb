package utils

import "strings"

// ToE164 normalizes a raw phone string to +1XXXXXXXXXX, the identifier users
// are enrolled under. Returns "" when the input cannot be normalized.
func ToE164(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return ""
	}
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) == 10 {
		return "+1" + d
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + d
	}
	return ""
}
