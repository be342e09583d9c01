package util

import "strings"

// DedupeNonEmptyStrings returns a copy of values without empty strings or duplicates, preserving order.
func DedupeNonEmptyStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// LowerTrimmed lowercases and trims every value, dropping blanks and duplicates.
func LowerTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(strings.TrimSpace(v)))
	}
	return DedupeNonEmptyStrings(out)
}
