package extract

import (
	"regexp"
	"sort"
	"strings"
)

// subjectAliases maps short subject keys to the prefix variants
// institutions actually print. Keys are what users pass on the command
// line; anything not listed here is treated as a literal prefix.
var subjectAliases = map[string][]string{
	"math":    {"MATH", "MAT", "MTH", "MA"},
	"cs":      {"CS", "CSC", "CSCI", "CSE", "COSC"},
	"stat":    {"STAT", "STA", "STATS"},
	"physics": {"PHYS", "PHY", "PH"},
	"chem":    {"CHEM", "CHM", "CH"},
	"bio":     {"BIO", "BIOL", "BI"},
	"econ":    {"ECON", "ECO", "EC"},
	"engr":    {"ENGR", "ENG", "EGR"},
}

// ExpandSubjects expands subject keys into course prefixes. Known keys
// expand to their alias sets; unknown entries pass through uppercased
// as literal prefixes. Duplicates are dropped, first occurrence wins.
func ExpandSubjects(keys []string) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(prefix string) {
		prefix = strings.ToUpper(strings.TrimSpace(prefix))
		if prefix == "" || seen[prefix] {
			return
		}
		seen[prefix] = true
		out = append(out, prefix)
	}

	for _, key := range keys {
		if aliases, ok := subjectAliases[strings.ToLower(strings.TrimSpace(key))]; ok {
			for _, a := range aliases {
				add(a)
			}
			continue
		}
		add(key)
	}
	return out
}

// SubjectKeys returns the known alias keys, sorted.
func SubjectKeys() []string {
	keys := make([]string, 0, len(subjectAliases))
	for k := range subjectAliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// genericCoursePattern matches any plausible course code when no
// subject prefixes are configured. The prefix must be uppercase in the
// source text, otherwise ordinary words would match.
var genericCoursePattern = regexp.MustCompile(`\b([A-Z]{2,5})\s*[-:]?\s*(\d{3,4}[A-Za-z]?)\b`)

// compileCoursePattern builds the course-code matcher for a prefix
// set. With prefixes the match is case-insensitive, since the set
// itself pins down what counts as a subject.
func compileCoursePattern(prefixes []string) *regexp.Regexp {
	if len(prefixes) == 0 {
		return genericCoursePattern
	}

	// Longest first so MATH is preferred over MA at the same position.
	sorted := make([]string, len(prefixes))
	copy(sorted, prefixes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})

	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = regexp.QuoteMeta(p)
	}

	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\s*[-:]?\s*(\d{3,4}[A-Za-z]?)\b`)
}

// canonicalCode normalizes a matched prefix and number into the
// emitted course code form, PREFIX123A.
func canonicalCode(prefix, number string) string {
	return strings.ToUpper(prefix) + strings.ToUpper(number)
}
