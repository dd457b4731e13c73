// Package similarity scores how alike two transaction descriptions are,
// on an integer scale from 0 to 100.
package similarity

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"

	"bank-ledger-reconciler/pkg/errors"
)

// Scorer compares two descriptions. Callers pass (bank, ledger) in that
// order; not every algorithm is symmetric.
type Scorer interface {
	Score(a, b string) int
	Name() string
}

// Algorithm names a similarity algorithm.
type Algorithm string

const (
	// AlgorithmPartialRatio aligns the shorter string against the best window of the longer one
	AlgorithmPartialRatio Algorithm = "partial_ratio"
	// AlgorithmRatio compares the full strings with an insert/delete edit distance
	AlgorithmRatio Algorithm = "ratio"
	// AlgorithmLevenshtein uses unit-cost Levenshtein distance over the longer length
	AlgorithmLevenshtein Algorithm = "levenshtein"
	// AlgorithmJaroWinkler uses Jaro-Winkler similarity
	AlgorithmJaroWinkler Algorithm = "jaro_winkler"
)

// DefaultAlgorithm is used when no algorithm is configured.
const DefaultAlgorithm = AlgorithmPartialRatio

// Algorithms lists the supported algorithms in display order.
func Algorithms() []Algorithm {
	return []Algorithm{AlgorithmPartialRatio, AlgorithmRatio, AlgorithmLevenshtein, AlgorithmJaroWinkler}
}

type scorerFunc struct {
	name string
	fn   func(a, b string) int
}

func (s scorerFunc) Score(a, b string) int { return s.fn(a, b) }

func (s scorerFunc) Name() string { return s.name }

// Default returns the partial ratio scorer.
func Default() Scorer {
	return scorerFunc{name: string(AlgorithmPartialRatio), fn: PartialRatio}
}

// ForAlgorithm returns the scorer registered under name. An empty name
// selects the default.
func ForAlgorithm(name string) (Scorer, error) {
	algorithm := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}

	switch algorithm {
	case AlgorithmPartialRatio:
		return Default(), nil
	case AlgorithmRatio:
		return scorerFunc{name: string(algorithm), fn: Ratio}, nil
	case AlgorithmLevenshtein:
		return scorerFunc{name: string(algorithm), fn: LevenshteinRatio}, nil
	case AlgorithmJaroWinkler:
		return scorerFunc{name: string(algorithm), fn: JaroWinkler}, nil
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "similarity", name,
			fmt.Errorf("unknown similarity algorithm %q", name)).
			WithSuggestion(fmt.Sprintf("use one of %v", Algorithms()))
	}
}

// indel is Levenshtein with substitution priced as a delete plus an insert,
// which makes Distance equal to len(a)+len(b)-2*LCS(a,b).
var indel = &metrics.Levenshtein{
	CaseSensitive: true,
	InsertCost:    1,
	DeleteCost:    1,
	ReplaceCost:   2,
}

var jaroWinkler = metrics.NewJaroWinkler()

// PartialRatio scores the best alignment of the shorter string (by runes)
// inside the longer one. When both have the same length a is the needle.
// Windows are every full-length window of the longer string plus its
// shorter prefixes and suffixes, each scored with the insert/delete ratio.
// Two empty strings score 100; one empty string scores 0.
func PartialRatio(a, b string) int {
	needle, hay := []rune(a), []rune(b)
	if len(hay) < len(needle) {
		needle, hay = hay, needle
	}

	if len(needle) == 0 {
		if len(hay) == 0 {
			return 100
		}
		return 0
	}

	n := len(needle)
	s := string(needle)
	best := 0
	consider := func(window []rune) {
		if score := indelRatio(s, n, string(window), len(window)); score > best {
			best = score
		}
	}

	for i := 0; i+n <= len(hay); i++ {
		consider(hay[i : i+n])
		if best == 100 {
			return best
		}
	}
	for k := 1; k < n; k++ {
		consider(hay[:k])
		consider(hay[len(hay)-k:])
	}

	return best
}

// Ratio scores the full strings with the insert/delete ratio.
func Ratio(a, b string) int {
	return indelRatio(a, utf8.RuneCountInString(a), b, utf8.RuneCountInString(b))
}

// LevenshteinRatio scores 1 - distance/maxLen with unit-cost edits.
func LevenshteinRatio(a, b string) int {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(a, b)
	return roundRatio(maxLen-distance, maxLen)
}

// JaroWinkler scores the strings with Jaro-Winkler similarity.
func JaroWinkler(a, b string) int {
	if a == "" && b == "" {
		return 100
	}
	score := strutil.Similarity(a, b, jaroWinkler)
	return roundRatio(int(score*10000+0.5), 10000)
}

func indelRatio(a string, la int, b string, lb int) int {
	total := la + lb
	if total == 0 {
		return 100
	}
	return roundRatio(total-indel.Distance(a, b), total)
}

// roundRatio returns 100*num/den rounded half up, in integer arithmetic.
func roundRatio(num, den int) int {
	if num <= 0 {
		return 0
	}
	return (200*num + den) / (2 * den)
}
