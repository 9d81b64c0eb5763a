package text

// Truncate cuts s to at most max runes and marks the cut with "...".
// Multi-byte characters are never split.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
