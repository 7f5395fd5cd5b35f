package keywords

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicatePhrase    = errors.New("phrase assigned to more than one group")
	ErrIncompleteCoverage = errors.New("plan does not cover the cleaned keyword set")
)

// DuplicateAcrossGroups returns the first phrase that appears in two groups,
// compared case-insensitively. Empty string means the partition is clean.
func DuplicateAcrossGroups(groups [][]string) string {
	seen := make(map[string]bool)
	for _, phrases := range groups {
		for _, p := range phrases {
			key := strings.ToLower(strings.TrimSpace(p))
			if key == "" {
				continue
			}
			if seen[key] {
				return p
			}
			seen[key] = true
		}
	}
	return ""
}

// CheckPartition verifies the completeness invariant approval requires: the
// multiset union of all group phrases equals the cleaned keyword set exactly,
// with no phrase in two groups and no omissions. An incomplete plan is legal
// while editing; it only becomes an error at the approval gate.
func CheckPartition(groups [][]string, cleaned []string) error {
	if dup := DuplicateAcrossGroups(groups); dup != "" {
		return fmt.Errorf("%w: %q", ErrDuplicatePhrase, dup)
	}

	want := make(map[string]bool, len(cleaned))
	for _, kw := range cleaned {
		want[strings.ToLower(strings.TrimSpace(kw))] = true
	}

	assigned := 0
	for _, phrases := range groups {
		for _, p := range phrases {
			key := strings.ToLower(strings.TrimSpace(p))
			if key == "" {
				continue
			}
			if !want[key] {
				return fmt.Errorf("%w: %q is not a cleaned keyword", ErrIncompleteCoverage, p)
			}
			assigned++
		}
	}
	if assigned != len(want) {
		return fmt.Errorf("%w: %d of %d keywords assigned", ErrIncompleteCoverage, assigned, len(want))
	}
	return nil
}
