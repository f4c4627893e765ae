package mapper

import "strings"

// Phone is one normalized phone number.
type Phone struct {
	CountryCode string
	Number      string
	Extension   string
}

// NormalizePhone parses a free-text legacy phone number:
//
//   - a trailing extension delimited by the last literal 'x' is split off
//   - a leading '+' marks an explicit country code (digits up to the first
//     separator); otherwise defaultCountryCode applies
//   - the remainder is squeezed to digits and leading zeros are trimmed
//
// Returns ok=false when no digits remain after normalization.
func NormalizePhone(raw, defaultCountryCode string) (Phone, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Phone{}, false
	}

	var extension string
	if i := strings.LastIndexAny(s, "xX"); i >= 0 {
		extension = asNumeric(s[i+1:])
		s = s[:i]
	}

	countryCode := defaultCountryCode
	if strings.HasPrefix(s, "+") {
		rest := s[1:]
		end := strings.IndexFunc(rest, func(r rune) bool {
			return r < '0' || r > '9'
		})
		if end < 0 {
			end = len(rest)
		}
		countryCode = rest[:end]
		s = rest[end:]
	}

	number := strings.TrimLeft(asNumeric(s), "0")
	if number == "" {
		return Phone{}, false
	}

	return Phone{
		CountryCode: countryCode,
		Number:      number,
		Extension:   extension,
	}, true
}

// asNumeric squeezes a string down to its digits.
func asNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
