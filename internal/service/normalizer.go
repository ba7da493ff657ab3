package service

import (
	"regexp"
	"slices"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// sanitizeString collapses whitespace and trims the result.
func sanitizeString(value string) string {
	value = whitespaceRegex.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// normalizeID trims surrounding whitespace; ids are otherwise opaque.
func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

// normalizeName returns nil for names that are empty after sanitising.
func normalizeName(name string) *string {
	name = sanitizeString(name)
	if name == "" {
		return nil
	}
	return &name
}

// normalizeNames keys the lookup by normalized id and drops blank names. When several raw
// keys normalize to the same id, an exact key wins, then the lexically smallest raw key.
func normalizeNames(namesByID map[string]string) map[string]string {
	if len(namesByID) == 0 {
		return nil
	}
	keys := make([]string, 0, len(namesByID))
	for k := range namesByID {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		aExact, bExact := normalizeID(a) == a, normalizeID(b) == b
		switch {
		case aExact && !bExact:
			return -1
		case !aExact && bExact:
			return 1
		}
		return strings.Compare(a, b)
	})

	out := make(map[string]string, len(namesByID))
	for _, k := range keys {
		id := normalizeID(k)
		if id == "" {
			continue
		}
		if _, ok := out[id]; ok {
			continue
		}
		if name := normalizeName(namesByID[k]); name != nil {
			out[id] = *name
		}
	}
	return out
}
