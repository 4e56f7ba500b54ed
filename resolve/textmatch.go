// CLAUDE:SUMMARY Text normalization and Dice-coefficient similarity (word sets and character bigrams) for fuzzy matching.
package resolve

import (
	"strings"
	"unicode/utf8"
)

// maxNormalizedLen caps normalized text so pathological nodes (whole-page
// wrappers) don't dominate similarity scoring.
const maxNormalizedLen = 500

// normalizeText trims, collapses whitespace, lowercases, and truncates. The
// cut backs off to a rune boundary so truncation never leaves invalid UTF-8.
func normalizeText(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	if len(s) > maxNormalizedLen {
		cut := maxNormalizedLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// diceCoefficient computes 2|A∩B| / (|A|+|B|) over two sets. Symmetric.
// Two empty sets are identical (1); exactly one empty set scores 0.
func diceCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(a)+len(b))
}

// wordSet returns the unique words of length >= 2 in normalized text.
func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if len(w) >= 2 {
			set[w] = true
		}
	}
	return set
}

// bigramSet returns the unique character 2-grams of normalized text.
func bigramSet(s string) map[string]bool {
	set := make(map[string]bool)
	for i := 0; i+2 <= len(s); i++ {
		set[s[i:i+2]] = true
	}
	return set
}

// FuzzyTuning holds the blend constants for short-string similarity. The
// defaults reproduce the recorded behavior; they are exposed rather than
// hard-coded because they are tuning values, not structural ones.
type FuzzyTuning struct {
	// WordWeight and BigramWeight blend the two similarities when either
	// normalized string is shorter than ShortLen characters.
	WordWeight   float64
	BigramWeight float64
	ShortLen     int
}

func defaultFuzzyTuning() FuzzyTuning {
	return FuzzyTuning{WordWeight: 0.6, BigramWeight: 0.4, ShortLen: 20}
}

// textSimilarity scores two already-normalized strings in [0,1]. Long
// strings use the word-set similarity alone; short strings blend in the
// bigram similarity, which is more forgiving of small edits.
func textSimilarity(a, b string, tuning FuzzyTuning) float64 {
	word := diceCoefficient(wordSet(a), wordSet(b))
	if len(a) >= tuning.ShortLen && len(b) >= tuning.ShortLen {
		return word
	}
	bigram := diceCoefficient(bigramSet(a), bigramSet(b))
	return tuning.WordWeight*word + tuning.BigramWeight*bigram
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
