package util

import "strings"

// NormalizeSymbols trims symbols, drops empty entries and keeps the first
// occurrence of duplicates. Case is preserved since provider symbols are
// case sensitive.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
