// internal/results/report.go
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
)

// Markdown renders a human-readable report of r.
func Markdown(r *bench.BenchmarkResult) string {
	lines := []string{
		fmt.Sprintf("# %s Results", r.Benchmark),
		"",
		fmt.Sprintf("**Provider:** %s", r.Provider),
		fmt.Sprintf("**Timestamp:** %s", r.Timestamp.Format(time.RFC3339)),
		fmt.Sprintf("**Overall Accuracy:** %s (%d/%d)", percent(r.OverallAccuracy), r.TotalCorrect, r.TotalQuestions),
		fmt.Sprintf("**95%% CI:** %s - %s", percent(r.ConfidenceInterval[0]), percent(r.ConfidenceInterval[1])),
		fmt.Sprintf("**MRR:** %.3f", r.MRR),
		fmt.Sprintf("**Avg Latency:** %s", bench.FormatMs(r.AvgLatencyMs)),
		"",
		"## By Category",
		"",
		"| Category | Accuracy | Hit@1 | Hit@5 | Hit@10 | MRR | Latency |",
		"|----------|----------|-------|-------|--------|-----|---------|",
	}
	for _, c := range r.Categories {
		lines = append(lines, fmt.Sprintf("| %s | %s (%d/%d) | %s | %s | %s | %.3f | %s |",
			c.Category, percent(c.Accuracy), c.Correct, c.Total,
			percent(c.HitAt1), percent(c.HitAt5), percent(c.HitAt10), c.MRR, bench.FormatMs(c.AvgLatencyMs)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// CompareMarkdown renders a comparison table.
func CompareMarkdown(c Comparison) string {
	lines := []string{
		fmt.Sprintf("# %s vs %s", c.A, c.B),
		"",
		"| Metric | Difference | Winner |",
		"|--------|------------|--------|",
		fmt.Sprintf("| Accuracy | %+.1f pts | %s |", c.AccuracyDiff*100, c.WinnerAccuracy),
		fmt.Sprintf("| MRR | %+.3f | %s |", c.MRRDiff, c.WinnerMRR),
		fmt.Sprintf("| Latency | %+.1fms | %s |", c.LatencyDiffMs, c.WinnerLatency),
	}
	return strings.Join(lines, "\n") + "\n"
}

func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// WriteArtifacts writes <dir>/<stem>.json and <dir>/<stem>.md and returns both paths.
func WriteArtifacts(dir, stem string, jsonValue any, markdown string) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(jsonValue, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode results: %w", err)
	}
	jsonPath := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(jsonPath, append(data, '\n'), 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonPath, err)
	}
	mdPath := filepath.Join(dir, stem+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return jsonPath, "", fmt.Errorf("write %s: %w", mdPath, err)
	}
	return jsonPath, mdPath, nil
}

// Save writes r's JSON and Markdown artifacts under dir, named after the
// benchmark and the run timestamp.
func Save(dir string, r *bench.BenchmarkResult) (string, string, error) {
	stem := fmt.Sprintf("%s_%s", r.Benchmark, r.Timestamp.Format("20060102_150405"))
	return WriteArtifacts(dir, stem, r, Markdown(r))
}

// Load reads a BenchmarkResult JSON artifact.
func Load(path string) (*bench.BenchmarkResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r bench.BenchmarkResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &r, nil
}
