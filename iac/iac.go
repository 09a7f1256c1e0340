// Package iac canonicalizes and syntactically checks Internet Access
// Codes. The full checksum grammar belongs to the code-issuing service;
// this package is only the cheap local gate the orchestrator consults
// before spending a lookup round trip.
package iac

// Length is the number of characters in a canonical access code. Codes are
// entered as three four-character groups.
const Length = 12

// Canonicalize joins submitted code segments and lower-cases the result.
func Canonicalize(segments ...string) string {
	n := 0
	for _, s := range segments {
		n += len(s)
	}

	buf := make([]byte, 0, n)
	for _, s := range segments {
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// Valid reports whether a canonical code is syntactically plausible:
// exactly twelve lowercase alphanumeric characters.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
