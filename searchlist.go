package evdns

import "strings"

// searchSequence is the ordered list of fully-qualified candidate names one Lookup will try, per
// spec.md §4.D's ndots/search-list rule. Grounded on the original library's resolvconf.cpp
// search-path handling (capped list, ordered suffixes) reworked into a precomputed slice that the
// Lookup state machine advances through on NXDOMAIN rather than recomputing per attempt.
type searchSequence struct {
	names []string
}

// newSearchSequence builds the list of names a Lookup will try for baseName, in order:
//
//   - A name ending in "." is absolute: exactly one candidate, the name itself with its trailing
//     dot kept (AppendName drops a trailing dot when encoding).
//   - A name with >= ndots dots attempts the bare name first, then every search suffix in order.
//   - A name with < ndots dots skips the bare name and goes straight to the search list; if the
//     search list is empty, the bare name is tried anyway (nothing else to try).
func newSearchSequence(baseName string, ndots int, searchPaths []string) searchSequence {
	if strings.HasSuffix(baseName, ".") {
		return searchSequence{names: []string{baseName}}
	}

	dots := strings.Count(baseName, ".")
	var names []string
	if dots >= ndots || len(searchPaths) == 0 {
		names = append(names, baseName)
	}
	for _, suffix := range searchPaths {
		suffix = strings.TrimSuffix(suffix, ".")
		if suffix == "" {
			continue
		}
		names = append(names, baseName+"."+suffix)
	}
	if len(names) == 0 {
		names = append(names, baseName) // Defensive: always try something
	}

	return searchSequence{names: names}
}

// Len reports the total number of candidate names, including any already tried.
func (s searchSequence) Len() int { return len(s.names) }

// At returns the candidate name at index i.
func (s searchSequence) At(i int) string { return s.names[i] }
