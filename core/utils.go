package core

import "strings"

// CleanString trims all leading and trailing whitespace in `s`, collapses inner
// runs of whitespace and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// JoinNames joins the non-empty name parts with a single space.
func JoinNames(parts ...string) string {
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanString(p); p != "" {
			names = append(names, p)
		}
	}
	return strings.Join(names, " ")
}
