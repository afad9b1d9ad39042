package licensing

import "strings"

// Matches reports whether a directory entry holds the extracted source
// of the named dependency. Package caches suffix extracted sources
// with a version string, so the rule is name, dash, anything:
// "slog-json" matches "slog-json-0.9.4" but not a bare "slog-json".
func Matches(dependency, entry string) bool {
	if dependency == "" {
		return false
	}
	return strings.HasPrefix(entry, dependency+"-") && len(entry) > len(dependency)+1
}

// Match filters candidate entry names down to those holding the
// dependency's source. Order of candidates is preserved. Pure: no
// filesystem access.
func Match(dependency string, candidates []string) []string {
	var matched []string
	for _, c := range candidates {
		if Matches(dependency, c) {
			matched = append(matched, c)
		}
	}
	return matched
}
