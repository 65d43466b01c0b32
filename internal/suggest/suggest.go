// Package suggest offers "did you mean" candidates for mistyped names
// using Levenshtein distance.
package suggest

import (
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns up to three candidates near unknown, best first.
// Comparison ignores case and leading dashes. A candidate qualifies when it
// is within 3 edits or half the input length, or when one contains the other.
func Closest(unknown string, candidates []string) []string {
	norm := func(s string) string { return strings.ToLower(strings.TrimLeft(s, "-")) }
	u := norm(unknown)
	if u == "" {
		return nil
	}

	type scored struct {
		name  string
		score int
	}
	var matches []scored
	maxDist := max(3, len(u)/2)
	for _, c := range candidates {
		n := norm(c)
		dist := levenshtein(u, n)
		if dist > maxDist && !strings.Contains(n, u) {
			continue
		}
		matches = append(matches, scored{c, dist})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	var out []string
	for i := 0; i < len(matches) && i < 3; i++ {
		out = append(out, matches[i].name)
	}
	return out
}
