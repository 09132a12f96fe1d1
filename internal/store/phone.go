// phone.go — Phone normalization helpers.
// The customer entity is keyed by normalized phone, so these must be stable:
// the same input always yields the same key.
package store

import "strings"

// NormalizePhone strips everything but digits. Empty result means no usable
// phone.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// ToE164 renders a phone in E.164 form. Inputs already carrying a plus keep
// their digits; bare 10-digit nationals get the default country code.
func ToE164(raw, defaultCountryCode string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := NormalizePhone(raw)
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(raw, "+") {
		return "+" + digits
	}
	if len(digits) == 10 {
		return "+" + defaultCountryCode + digits
	}
	return "+" + digits
}
