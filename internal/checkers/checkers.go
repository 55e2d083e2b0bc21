// internal/checkers/checkers.go

// Package checkers decides whether retrieved memories contain an expected answer.
// All strategies are deterministic string heuristics over normalized text.
package checkers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Checker decides whether retrieved contains expected.
type Checker interface {
	Name() string
	Matches(expected string, retrieved []string) bool
}

// Method names a checking strategy.
type Method string

const (
	MethodSubstring  Method = "substring"
	MethodPhrase     Method = "phrase"
	MethodFuzzy      Method = "fuzzy"
	MethodAbstention Method = "abstention"
)

const (
	// DefaultFuzzyThreshold is the minimum partial similarity accepted by the fuzzy checker.
	DefaultFuzzyThreshold = 0.75
	// DefaultAbstentionMaxChars is the combined length under which retrieved text
	// is treated as nothing relevant.
	DefaultAbstentionMaxChars = 50
	abstentionTopN            = 3
	minPhraseLength           = 2
)

// AbstentionIndicators mark an expected answer as "the system should not know".
var AbstentionIndicators = []string{
	"no information",
	"don't know",
	"cannot determine",
	"not mentioned",
	"no record",
	"not specified",
	"unable to answer",
	"no prior conversation",
}

// Options tunes the strategies that have thresholds.
type Options struct {
	FuzzyThreshold     float64
	AbstentionMaxChars int
}

// New returns the checker for method. An empty method selects phrase.
func New(method Method, opts Options) (Checker, error) {
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.AbstentionMaxChars <= 0 {
		opts.AbstentionMaxChars = DefaultAbstentionMaxChars
	}
	switch Method(strings.ToLower(strings.TrimSpace(string(method)))) {
	case MethodSubstring:
		return Substring{}, nil
	case MethodPhrase, "":
		return Phrase{}, nil
	case MethodFuzzy:
		return Fuzzy{Threshold: opts.FuzzyThreshold}, nil
	case MethodAbstention:
		return Abstention{MaxChars: opts.AbstentionMaxChars}, nil
	default:
		return nil, fmt.Errorf("unknown checker method: %q", method)
	}
}

// Func adapts a plain function to Checker.
type Func func(expected string, retrieved []string) bool

func (f Func) Name() string { return "func" }

func (f Func) Matches(expected string, retrieved []string) bool { return f(expected, retrieved) }

// Substring matches when the normalized expected answer occurs in the
// normalized, space-joined retrieved items.
type Substring struct{}

func (Substring) Name() string { return string(MethodSubstring) }

func (Substring) Matches(expected string, retrieved []string) bool {
	if expected == "" || len(retrieved) == 0 {
		return false
	}
	return strings.Contains(combine(retrieved), Normalize(expected))
}

// Phrase extends Substring: any comma, semicolon or pipe separated part of the
// expected answer longer than two characters is also accepted.
type Phrase struct{}

func (Phrase) Name() string { return string(MethodPhrase) }

func (Phrase) Matches(expected string, retrieved []string) bool {
	if expected == "" || len(retrieved) == 0 {
		return false
	}
	combined := combine(retrieved)
	if strings.Contains(combined, Normalize(expected)) {
		return true
	}
	for _, part := range phraseDelimiters.Split(expected, -1) {
		norm := Normalize(part)
		if utf8.RuneCountInString(norm) > minPhraseLength && strings.Contains(combined, norm) {
			return true
		}
	}
	return false
}

// Fuzzy matches on partial similarity: the best edit-distance similarity between
// the expected text and any equally long window of the retrieved text.
type Fuzzy struct {
	Threshold float64
}

func (Fuzzy) Name() string { return string(MethodFuzzy) }

func (f Fuzzy) Matches(expected string, retrieved []string) bool {
	if expected == "" || len(retrieved) == 0 {
		return false
	}
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	exp := Normalize(expected)
	combined := combine(retrieved)
	if utf8.RuneCountInString(combined) < utf8.RuneCountInString(exp) {
		return TokenOverlap(exp, combined) >= threshold
	}
	return PartialSimilarity(exp, combined) >= threshold
}

// Abstention scores "the system should not know" answers: success means nothing
// substantial came back. Answers without an abstention indicator are checked
// with Phrase.
type Abstention struct {
	MaxChars int
}

func (Abstention) Name() string { return string(MethodAbstention) }

func (a Abstention) Matches(expected string, retrieved []string) bool {
	if !IsAbstention(expected) {
		return Phrase{}.Matches(expected, retrieved)
	}
	if len(retrieved) == 0 {
		return true
	}
	maxChars := a.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultAbstentionMaxChars
	}
	top := retrieved
	if len(top) > abstentionTopN {
		top = top[:abstentionTopN]
	}
	return utf8.RuneCountInString(combine(top)) < maxChars
}

// IsAbstention reports whether expected contains an abstention indicator.
func IsAbstention(expected string) bool {
	lower := strings.ToLower(expected)
	for _, indicator := range AbstentionIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// PartialSimilarity returns the best similarity in [0,1] between needle and any
// window of haystack with needle's length. Windows start at word boundaries and
// at the haystack's tail.
func PartialSimilarity(needle, haystack string) float64 {
	n := []rune(needle)
	h := []rune(haystack)
	if len(n) == 0 || len(h) == 0 {
		return 0
	}
	if len(h) <= len(n) {
		return similarity(string(n), string(h))
	}

	best := 0.0
	last := len(h) - len(n)
	for start := 0; start <= last; start++ {
		if start != 0 && start != last && h[start-1] != ' ' {
			continue
		}
		score := similarity(needle, string(h[start:start+len(n)]))
		if score > best {
			best = score
			if best == 1 {
				break
			}
		}
	}
	return best
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if lb := utf8.RuneCountInString(b); lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// TokenOverlap returns the share of expected's distinct tokens present in combined.
func TokenOverlap(expected, combined string) float64 {
	want := map[string]struct{}{}
	for _, tok := range strings.Fields(expected) {
		want[tok] = struct{}{}
	}
	if len(want) == 0 {
		return 0
	}
	have := map[string]struct{}{}
	for _, tok := range strings.Fields(combined) {
		have[tok] = struct{}{}
	}
	overlap := 0
	for tok := range want {
		if _, ok := have[tok]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(want))
}

// ReciprocalRank returns 1/rank of the first retrieved item that satisfies
// checker on its own, or 0 when none does.
func ReciprocalRank(expected string, retrieved []string, checker Checker) float64 {
	for i, item := range retrieved {
		if checker.Matches(expected, []string{item}) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}
