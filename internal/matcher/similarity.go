package matcher

import (
	"math"

	"github.com/hbollon/go-edlib"
)

// Scorer computes string similarity on a 0-100 scale.
type Scorer interface {
	Ratio(a, b string) int
	PartialRatio(a, b string) int
}

// FuzzScorer is the default [Scorer], built on longest common subsequence lengths.
type FuzzScorer struct{}

func (FuzzScorer) Ratio(a, b string) int        { return Ratio(a, b) }
func (FuzzScorer) PartialRatio(a, b string) int { return PartialRatio(a, b) }

// Ratio is the indel similarity of a and b: 100 * 2*LCS / (len(a)+len(b)), counted in runes
// and rounded half to even. It is 0 when either string is empty.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return int(math.RoundToEven(ratio([]rune(a), []rune(b))))
}

// PartialRatio scores the shorter string against its best-aligned substring of the longer one.
//
// Every window of the longer string with the shorter string's length is tried, along with the shorter
// prefixes and suffixes at its edges. A substring match scores 100. It is 0 when either string is empty.
func PartialRatio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	s, l := []rune(a), []rune(b)
	if len(s) > len(l) {
		s, l = l, s
	}

	best := partialRatio(s, l)
	if best < 100 && len(s) == len(l) {
		best = max(best, partialRatio(l, s))
	}
	return int(math.RoundToEven(best))
}

func partialRatio(short, long []rune) float64 {
	n, m := len(short), len(long)
	best := 0.0

	consider := func(window []rune) bool {
		if score := ratio(short, window); score > best {
			best = score
		}
		return best == 100
	}

	for i := 1; i < n; i++ {
		if consider(long[:i]) {
			return best
		}
	}
	for i := 0; i+n <= m; i++ {
		if consider(long[i : i+n]) {
			return best
		}
	}
	for i := m - n + 1; i < m; i++ {
		if consider(long[i:]) {
			return best
		}
	}
	return best
}

func ratio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	lcs := edlib.LCS(string(a), string(b))
	return 100 * float64(2*lcs) / float64(total)
}
