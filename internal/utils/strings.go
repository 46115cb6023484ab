// Package utils provides common utility functions.
package utils

// MaskToken reduces a bearer credential to a loggable stub. Tokens shorter
// than 16 bytes are fully redacted; prefix+suffix would reveal most of them.
func MaskToken(token string) string {
	if token == "" {
		return "(empty)"
	}
	if len(token) < 16 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
