package textutil_test

import (
	"testing"

	"newsmill/internal/textutil"
)

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"gemini-3-release", "gemini-3-release-info", 5},
		{"same", "same", 0},
	}
	for _, tc := range cases {
		if got := textutil.LevenshteinDistance(tc.a, tc.b); got != tc.want {
			t.Fatalf("LevenshteinDistance(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSlugSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "gemini-3-release", "gemini-3-release", 1, 1},
		{"case and spacing folded", "Gemini 3 Release", "gemini 3   release", 1, 1},
		{"near duplicate", "gemini-3-release", "gemini-3-release-info", 0.7, 0.8},
		{"unrelated short", "ai", "ml", 0, 0.5},
		{"both empty", "", "", 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := textutil.SlugSimilarity(tc.a, tc.b)
			if got < tc.min || got > tc.max {
				t.Fatalf("SlugSimilarity(%q, %q) = %f, want in [%f, %f]", tc.a, tc.b, got, tc.min, tc.max)
			}
		})
	}
}
