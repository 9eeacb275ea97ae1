// Package handle canonicalizes chat user handles into document keys.
package handle

import "strings"

// Normalize trims whitespace, drops the leading "@" and lowercases raw.
// Repeated prefixes such as "@@ali" or "@ ali" collapse to the same key, so
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, "@") {
		s = strings.TrimSpace(s[1:])
	}
	return strings.ToLower(s)
}

// Valid reports whether key is a non-empty normalized handle.
func Valid(key string) bool {
	return key != "" && Normalize(key) == key
}
