package shader

import (
	"slices"
	"strings"
)

// SplitDefine splits "NAME=value" into its name and value. Flags without a value return "".
//
// Parameters:
//   - define: the define string
//
// Returns:
//   - string: the trimmed define name
//   - string: the trimmed value, or empty for a flag
func SplitDefine(define string) (string, string) {
	name, value, _ := strings.Cut(define, "=")
	return strings.TrimSpace(name), strings.TrimSpace(value)
}

// CanonicalDefines returns defines sorted by name with duplicates removed. When a name appears
// more than once the last occurrence wins. Empty names are dropped.
//
// Parameters:
//   - defines: the define strings, "NAME" or "NAME=value"
//
// Returns:
//   - []string: the canonical define list
func CanonicalDefines(defines []string) []string {
	byName := make(map[string]string, len(defines))
	for _, d := range defines {
		name, value := SplitDefine(d)
		if name == "" {
			continue
		}
		if value == "" {
			byName[name] = name
		} else {
			byName[name] = name + "=" + value
		}
	}
	out := make([]string, 0, len(byName))
	for _, d := range byName {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b string) int {
		an, _ := SplitDefine(a)
		bn, _ := SplitDefine(b)
		return strings.Compare(an, bn)
	})
	return out
}

// defineTable maps define names to values for lookups during expansion.
type defineTable map[string]string

func newDefineTable(defines []string) defineTable {
	t := make(defineTable, len(defines))
	for _, d := range defines {
		name, value := SplitDefine(d)
		if name != "" {
			t[name] = value
		}
	}
	return t
}

func (t defineTable) has(name string) bool {
	_, ok := t[name]
	return ok
}
