package utils

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ContainsControlChars checks if a string contains control characters other than tab
func ContainsControlChars(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			return true
		}
	}
	return false
}

// CountGaps returns how many gap markers the query holds
func CountGaps(query, mask string) int {
	if mask == "" {
		return 0
	}
	return strings.Count(query, mask)
}

// ValidateQuery checks if a query should be processed.
// It rejects empty, invalid UTF-8, overlong or control-character laden queries.
func ValidateQuery(query string, maxLen int) error {
	if query == "" {
		return fmt.Errorf("query is empty")
	}
	if !utf8.ValidString(query) {
		return fmt.Errorf("query is not valid UTF-8")
	}
	if maxLen > 0 && utf8.RuneCountInString(query) > maxLen {
		return fmt.Errorf("query exceeds maximum length of %d characters", maxLen)
	}
	if ContainsControlChars(query) {
		return fmt.Errorf("query contains control characters")
	}
	return nil
}

// StripSymbols removes every occurrence of the given symbols, e.g. padding sentinels from generated text
func StripSymbols(symbols []string, drop ...string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		keep := true
		for _, d := range drop {
			if s == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, s)
		}
	}
	return out
}
