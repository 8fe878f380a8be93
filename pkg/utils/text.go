package utils

import "strings"

// TruncateRunes returns s cut to at most max runes. Rune-aware so multi-byte
// text is never split mid-character. max <= 0 returns s unchanged.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// JoinNonEmpty joins the non-empty parts with a single space.
func JoinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
