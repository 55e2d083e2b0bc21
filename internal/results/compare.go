// internal/results/compare.go
package results

import "github.com/mwiater/recallbench/internal/bench"

// Tie is reported as the winner when both results score the same.
const Tie = "tie"

// Comparison summarises two results. Diffs are a minus b.
type Comparison struct {
	A              string  `json:"a"`
	B              string  `json:"b"`
	AccuracyDiff   float64 `json:"accuracy_diff"`
	MRRDiff        float64 `json:"mrr_diff"`
	LatencyDiffMs  float64 `json:"latency_diff_ms"`
	WinnerAccuracy string  `json:"winner_accuracy"`
	WinnerMRR      string  `json:"winner_mrr"`
	WinnerLatency  string  `json:"winner_latency"`
}

// Compare contrasts a and b. Higher accuracy and MRR win; lower latency wins.
// Results are named by provider, or by benchmark when the providers match.
func Compare(a, b *bench.BenchmarkResult) Comparison {
	nameA, nameB := a.Provider, b.Provider
	if nameA == nameB {
		nameA = a.Provider + "/" + a.Benchmark + "@" + a.Timestamp.Format("20060102T150405")
		nameB = b.Provider + "/" + b.Benchmark + "@" + b.Timestamp.Format("20060102T150405")
	}
	return Comparison{
		A:              nameA,
		B:              nameB,
		AccuracyDiff:   a.OverallAccuracy - b.OverallAccuracy,
		MRRDiff:        a.MRR - b.MRR,
		LatencyDiffMs:  a.AvgLatencyMs - b.AvgLatencyMs,
		WinnerAccuracy: higher(nameA, a.OverallAccuracy, nameB, b.OverallAccuracy),
		WinnerMRR:      higher(nameA, a.MRR, nameB, b.MRR),
		WinnerLatency:  higher(nameA, -a.AvgLatencyMs, nameB, -b.AvgLatencyMs),
	}
}

func higher(nameA string, a float64, nameB string, b float64) string {
	switch {
	case a > b:
		return nameA
	case b > a:
		return nameB
	default:
		return Tie
	}
}
