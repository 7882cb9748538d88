// Package normalize canonicalizes user-supplied identifiers and names before
// validation and storage.
package normalize

import (
	"strings"
)

// Phone canonicalizes a phone number toward E.164 form: it strips spaces,
// dashes, dots and parentheses. Returns "" if the result does not look like
// E.164 (leading + followed by 8-15 digits, no leading zero).
func Phone(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch r {
		case ' ', '-', '.', '(', ')':
			continue
		}
		b.WriteRune(r)
	}
	p := b.String()
	if len(p) < 9 || len(p) > 16 || p[0] != '+' || p[1] == '0' {
		return ""
	}
	for _, r := range p[1:] {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return p
}

// Email lowercases and trims an email address. Returns "" if it does not
// have the basic shape local@domain.tld.
func Email(s string) string {
	e := strings.ToLower(strings.TrimSpace(s))
	at := strings.Index(e, "@")
	if at < 1 || at == len(e)-1 {
		return ""
	}
	domain := e[at+1:]
	if !strings.Contains(domain, ".") || strings.Contains(e, " ") {
		return ""
	}
	return e
}

// Name trims a display name and collapses internal whitespace runs to a
// single space.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsFullName reports whether a display name contains at least two
// space-separated tokens (first + last name).
func IsFullName(s string) bool {
	return len(strings.Fields(s)) >= 2
}

// Role lowercases and trims a role string.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
