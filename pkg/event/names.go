package event

import "strings"

// NameEqual compares two character names case-insensitively.
func NameEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// NameIn reports whether name appears in the list, case-insensitively.
func NameIn(name string, list []string) bool {
	for _, candidate := range list {
		if NameEqual(name, candidate) {
			return true
		}
	}
	return false
}

func anyNameIn(names, list []string) bool {
	for _, name := range names {
		if NameIn(name, list) {
			return true
		}
	}
	return false
}
