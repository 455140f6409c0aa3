package account

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxIdentifierLength bounds logins, tokens and emails read from requests
	MaxIdentifierLength = 255
	// MaxPasswordLength bounds submitted passwords
	MaxPasswordLength = 4096
)

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func cleanIdentifier(s string) string {
	return Truncate(strings.TrimSpace(s), MaxIdentifierLength)
}

func cleanPassword(s string) string {
	return Truncate(s, MaxPasswordLength)
}
