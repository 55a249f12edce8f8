package textutil

import "strings"

// LevenshteinDistance computes the edit distance between two strings counted
// in runes. Substitution, insertion, and deletion each cost 1.
func LevenshteinDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// SlugSimilarity returns a similarity score in [0, 1] for two slugs, computed
// as 1 - distance/max(len). Inputs are lowercased and whitespace-normalized
// before comparison so raw keywords and derived slugs score identically.
func SlugSimilarity(a, b string) float64 {
	a = normalizeForComparison(a)
	b = normalizeForComparison(b)
	if a == "" && b == "" {
		return 1
	}
	longest := len([]rune(a))
	if lb := len([]rune(b)); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	distance := LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

func normalizeForComparison(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

func minInt(values ...int) int {
	out := values[0]
	for _, v := range values[1:] {
		if v < out {
			out = v
		}
	}
	return out
}
