// internal/scenario/suite.go
package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/results"
	"go.uber.org/zap"
)

// SuiteName labels scenario suite artifacts.
const SuiteName = "scenarios"

// CategorySummary counts passes within one category.
type CategorySummary struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	PassRate float64 `json:"pass_rate"`
}

// SuiteResult summarizes a scenario run.
type SuiteResult struct {
	Suite        string                     `json:"suite"`
	Timestamp    time.Time                  `json:"timestamp"`
	Provider     string                     `json:"provider"`
	Total        int                        `json:"total"`
	Passed       int                        `json:"passed"`
	PassRate     float64                    `json:"pass_rate"`
	ByCategory   map[string]CategorySummary `json:"by_category"`
	AvgLatencyMs float64                    `json:"avg_latency_ms"`
	Results      []Result                   `json:"results"`
}

// Failures returns the failed scenario results in run order.
func (s *SuiteResult) Failures() []Result {
	var out []Result
	for _, r := range s.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// RunSuite evaluates scenarios one at a time and summarizes them. A provider
// error aborts the suite with no result.
func (e Evaluator) RunSuite(ctx context.Context, scenarios []*Scenario, progress func(done, total int)) (*SuiteResult, error) {
	out := make([]Result, 0, len(scenarios))
	for i, sc := range scenarios {
		res, err := e.Evaluate(ctx, sc)
		if err != nil {
			return nil, err
		}
		if !res.Passed {
			logging.L().Debug("scenario failed",
				zap.String("scenario", res.Name),
				zap.String("mode", res.FailureMode),
			)
		}
		out = append(out, res)
		if progress != nil {
			progress(i+1, len(scenarios))
		}
	}
	summary := Summarize(out)
	summary.Provider = e.Provider.Name()
	return summary, nil
}

// Summarize aggregates scenario results.
func Summarize(rs []Result) *SuiteResult {
	s := &SuiteResult{
		Suite:      SuiteName,
		Timestamp:  time.Now().UTC(),
		Total:      len(rs),
		ByCategory: map[string]CategorySummary{},
		Results:    rs,
	}
	var latency float64
	for _, r := range rs {
		cat := s.ByCategory[categoryOf(r)]
		cat.Total++
		if r.Passed {
			cat.Passed++
			s.Passed++
		}
		s.ByCategory[categoryOf(r)] = cat
		latency += r.LatencyMs
	}
	for name, cat := range s.ByCategory {
		cat.PassRate = float64(cat.Passed) / float64(cat.Total)
		s.ByCategory[name] = cat
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total)
		s.AvgLatencyMs = latency / float64(s.Total)
	}
	return s
}

// Markdown renders the suite summary and its failures.
func Markdown(s *SuiteResult) string {
	lines := []string{
		"# Scenario Results",
		"",
		fmt.Sprintf("**Provider:** %s", s.Provider),
		fmt.Sprintf("**Passed:** %d/%d (%.1f%%)", s.Passed, s.Total, s.PassRate*100),
		fmt.Sprintf("**Avg Latency:** %s", bench.FormatMs(s.AvgLatencyMs)),
		"",
		"## By Category",
		"",
		"| Category | Passed | Pass Rate |",
		"|----------|--------|-----------|",
	}
	names := make([]string, 0, len(s.ByCategory))
	for name := range s.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := s.ByCategory[name]
		lines = append(lines, fmt.Sprintf("| %s | %d/%d | %.1f%% |", name, c.Passed, c.Total, c.PassRate*100))
	}

	if failures := s.Failures(); len(failures) > 0 {
		lines = append(lines, "", "## Failures", "")
		for _, f := range failures {
			lines = append(lines, fmt.Sprintf("- **%s** (%s): %s", f.Name, f.FailureMode, f.FailureDescription))
		}
	}
	return strings.Join(lines, "\n") + "\n"
}

// Save writes the suite JSON and Markdown artifacts under dir.
func Save(dir string, s *SuiteResult) (string, string, error) {
	stem := fmt.Sprintf("%s_%s", SuiteName, s.Timestamp.Format("20060102_150405"))
	return results.WriteArtifacts(dir, stem, s, Markdown(s))
}
