// Package keywords holds the pure keyword-set operations: merge/dedupe of
// uploaded lists, the count gates, and the partition checks run before a
// grouping plan can be approved. Nothing here touches the store.
package keywords

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MinKeywords and MaxKeywords bound the merged set; validation applies
	// to the merge result, not either input on its own.
	MinKeywords = 5
	MaxKeywords = 5000

	// LowVolumeThreshold triggers an advisory warning, not a failure.
	LowVolumeThreshold = 20
)

var (
	ErrTooFewKeywords  = errors.New("too few keywords")
	ErrTooManyKeywords = errors.New("too many keywords")
)

// Merge combines an existing keyword list with an incoming one. Terms are
// trimmed, empties dropped, and deduplicated case-insensitively; the first
// occurrence's original casing wins. Existing entries precede incoming ones
// and each side keeps its relative order, which makes Merge idempotent:
// Merge(Merge(a, b), b) == Merge(a, b).
func Merge(existing, incoming []string) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	appendSide := func(terms []string) {
		for _, term := range terms {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			key := strings.ToLower(term)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, term)
		}
	}
	appendSide(existing)
	appendSide(incoming)
	return out
}

// Validate applies the count gates to a merged keyword set. It returns a
// non-empty warning string for low-volume sets that still pass.
func Validate(merged []string) (string, error) {
	n := len(merged)
	if n < MinKeywords {
		return "", fmt.Errorf("%w: got %d, need at least %d", ErrTooFewKeywords, n, MinKeywords)
	}
	if n > MaxKeywords {
		return "", fmt.Errorf("%w: got %d, limit is %d", ErrTooManyKeywords, n, MaxKeywords)
	}
	if n < LowVolumeThreshold {
		return fmt.Sprintf("keyword set is small (%d terms); grouping quality may suffer below %d", n, LowVolumeThreshold), nil
	}
	return "", nil
}
