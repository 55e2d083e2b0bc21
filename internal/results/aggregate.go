// internal/results/aggregate.go

// Package results aggregates scored questions into benchmark artifacts and
// renders them as JSON and Markdown.
package results

import (
	"math"
	"sort"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
)

// DefaultConfidenceLevel is the level used for the interval stored with every result.
const DefaultConfidenceLevel = 0.95

// CategoryResults groups results by category, sorted by category name.
func CategoryResults(questions []bench.QuestionResult) []bench.CategoryResult {
	byCategory := map[string][]bench.QuestionResult{}
	for _, q := range questions {
		cat := bench.CategoryOrUnknown(q.Category)
		byCategory[cat] = append(byCategory[cat], q)
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]bench.CategoryResult, 0, len(names))
	for _, name := range names {
		qs := byCategory[name]
		total := float64(len(qs))
		var correct, hit1, hit5, hit10 int
		var latency, rr float64
		for _, q := range qs {
			if q.Correct {
				correct++
			}
			if q.HitAtK[1] {
				hit1++
			}
			if q.HitAtK[5] {
				hit5++
			}
			if q.HitAtK[10] {
				hit10++
			}
			latency += q.LatencyMs
			rr += q.ReciprocalRank
		}
		out = append(out, bench.CategoryResult{
			Category:     name,
			Total:        len(qs),
			Correct:      correct,
			Accuracy:     float64(correct) / total,
			AvgLatencyMs: latency / total,
			HitAt1:       float64(hit1) / total,
			HitAt5:       float64(hit5) / total,
			HitAt10:      float64(hit10) / total,
			MRR:          rr / total,
		})
	}
	return out
}

// Aggregate builds the final artifact for a run. Rates are 0 when there are no questions.
func Aggregate(name, provider string, questions []bench.QuestionResult, metadata map[string]any) *bench.BenchmarkResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	res := &bench.BenchmarkResult{
		Benchmark:      name,
		Provider:       provider,
		Timestamp:      time.Now().UTC(),
		TotalQuestions: len(questions),
		Categories:     CategoryResults(questions),
		Questions:      questions,
		Metadata:       metadata,
	}
	if len(questions) == 0 {
		return res
	}

	var latency, rr float64
	for _, q := range questions {
		if q.Correct {
			res.TotalCorrect++
		}
		latency += q.LatencyMs
		rr += q.ReciprocalRank
	}
	n := float64(len(questions))
	res.OverallAccuracy = float64(res.TotalCorrect) / n
	res.AvgLatencyMs = latency / n
	res.MRR = rr / n
	lo, hi := ConfidenceInterval(res.OverallAccuracy, res.TotalQuestions, DefaultConfidenceLevel)
	res.ConfidenceInterval = [2]float64{lo, hi}
	return res
}

// ConfidenceInterval returns the normal-approximation interval for proportion p
// over n trials, clamped to [0,1]. Levels other than 0.99 use z = 1.96.
func ConfidenceInterval(p float64, n int, level float64) (float64, float64) {
	if n <= 0 {
		return 0, 0
	}
	z := 1.96
	if level == 0.99 {
		z = 2.576
	}
	margin := z * math.Sqrt(p*(1-p)/float64(n))
	return math.Max(0, p-margin), math.Min(1, p+margin)
}
