package util

import (
	"regexp"
	"strings"
)

var disallowedEntryChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeEntryName normalizes an arbitrary source basename into a recycle
// entry name. Only `[A-Za-z0-9._-]` survive; any run of other characters
// collapses to a single underscore. The caller prefixes a sequence number, so
// sanitized names stay unique within a batch.
func SanitizeEntryName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "_"
	}

	cleaned := disallowedEntryChars.ReplaceAllString(trimmed, "_")
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "_"
	}

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	runes := []rune(cleaned)
	if len(runes) > 200 {
		cleaned = string(runes[:200])
	}

	return cleaned
}
