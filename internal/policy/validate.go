package policy

import "strings"

// unsafeRewriteMarkers indicate a rewrite introduced a liability cap, a damages exclusion
// or a monetary figure.
var unsafeRewriteMarkers = []string{
	"liability shall be limited",
	"in no event shall",
	"consequential damages",
	"punitive damages",
	"indirect damages",
	"fees paid",
	"liability cap",
	"cap on liability",
	"capped at",
	"$",
}

// Validate reports whether a generated rewrite is safe to present. Empty text is unsafe.
func Validate(rewritten string) bool {
	if strings.TrimSpace(rewritten) == "" {
		return false
	}
	return !containsAny(strings.ToLower(rewritten), unsafeRewriteMarkers)
}
