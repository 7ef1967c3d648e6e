package paper

import "strings"

// SetKey is the comparison key for members of a string set: surrounding
// whitespace is ignored, internal runs collapse, and case is folded.
func SetKey(s string) string {
	return strings.ToLower(CollapseSpace(s))
}

// AddToSet appends each item to set unless an equal item (under SetKey) is
// already present. Items are stored trimmed; empty items are dropped.
// Existing order is preserved so merges are deterministic.
func AddToSet(set []string, items ...string) []string {
	if len(items) == 0 {
		return set
	}
	seen := make(map[string]bool, len(set)+len(items))
	for _, s := range set {
		seen[SetKey(s)] = true
	}
	for _, item := range items {
		item = CollapseSpace(item)
		if item == "" {
			continue
		}
		key := SetKey(item)
		if seen[key] {
			continue
		}
		seen[key] = true
		set = append(set, item)
	}
	return set
}

// AddDOIsToSet is AddToSet for DOI lists: resolver prefixes are stripped
// before comparison.
func AddDOIsToSet(set []string, dois ...string) []string {
	cleaned := make([]string, 0, len(dois))
	for _, d := range dois {
		if d = CleanDOI(d); d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return AddToSet(set, cleaned...)
}

// SetContains reports whether set holds item under SetKey comparison.
func SetContains(set []string, item string) bool {
	key := SetKey(item)
	for _, s := range set {
		if SetKey(s) == key {
			return true
		}
	}
	return false
}
