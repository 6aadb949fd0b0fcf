package telephony

import "strings"

// NormalizeNumber canonicalizes a dialable phone address.
//
// Rules, applied in order:
//  1. strip everything except digits and a leading +
//  2. already +-prefixed numbers pass through unchanged
//  3. a leading 0 is replaced with countryPrefix (e.g. "+61")
//  4. bare 10-digit numbers get fallbackCountryCode (e.g. "+1")
//  5. anything else is returned as its bare digits
func NormalizeNumber(raw, countryPrefix, fallbackCountryCode string) string {
	raw = strings.TrimSpace(raw)
	plus := strings.HasPrefix(raw, "+")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	if plus {
		return "+" + digits
	}
	if strings.HasPrefix(digits, "0") {
		return countryPrefix + digits[1:]
	}
	if len(digits) == 10 {
		return fallbackCountryCode + digits
	}
	return digits
}
