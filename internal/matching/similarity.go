package matching

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Similarity compares two normalized strings and returns a value in [0, 100]. Token order never affects the result.
// An empty side scores 0, even against another empty string.
func Similarity(a, b string, m Metric) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	switch m {
	case MetricTokenSet:
		return tokenSetRatio(a, b)
	case MetricJaroWinkler:
		return 100 * smetrics.JaroWinkler(sortTokens(a), sortTokens(b), 0.7, 4)
	default:
		return ratio(sortTokens(a), sortTokens(b))
	}
}

// ratio is the Levenshtein distance scaled against the longer string.
func ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	slices.Sort(tokens)
	return strings.Join(tokens, " ")
}

// tokenSetRatio compares the shared tokens against each side's remainder and keeps the best pairing.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)

	var common, onlyA, onlyB []string
	for t := range setA {
		if _, ok := setB[t]; ok {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range setB {
		if _, ok := setA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	slices.Sort(common)
	slices.Sort(onlyA)
	slices.Sort(onlyB)

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	if base == "" {
		return ratio(withA, withB)
	}
	return max(ratio(base, withA), ratio(base, withB), ratio(withA, withB))
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		out[t] = struct{}{}
	}
	return out
}
