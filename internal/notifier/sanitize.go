package notifier

import "strings"

// SanitizeTokens drops empty and whitespace-only entries from a raw device
// token list. Order and duplicates are preserved; the trimmed form of each
// surviving token is returned.
func SanitizeTokens(tokens []string) []string {
	valid := make([]string, 0, len(tokens))
	for _, token := range tokens {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		valid = append(valid, trimmed)
	}
	return valid
}
