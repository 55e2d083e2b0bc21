// internal/cli/output.go
package recallbench

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/results"
	"github.com/mwiater/recallbench/internal/scenario"
)

const maxListedFailures = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Faint(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	passLabel = color.New(color.FgGreen, color.Bold).SprintFunc()
	failLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	warnLabel = color.New(color.FgYellow).SprintFunc()
)

// progressReporter prints a single updating progress line for a phase.
// Updates may arrive from several goroutines.
type progressReporter struct {
	mu    sync.Mutex
	out   io.Writer
	label string
	bar   progress.Model
	last  int
}

func newProgress(out io.Writer, label string) func(done, total int) {
	p := &progressReporter{
		out:   out,
		label: label,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		last:  -1,
	}
	return p.update
}

func (p *progressReporter) update(done, total int) {
	if total <= 0 {
		return
	}
	percent := done * 100 / total
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent == p.last && done != total {
		return
	}
	p.last = percent
	fmt.Fprintf(p.out, "\r%-10s %s %3d%% (%d/%d)", p.label, p.bar.ViewAs(float64(done)/float64(total)), percent, done, total)
	if done == total {
		fmt.Fprintln(p.out)
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func pct(v float64) string { return fmt.Sprintf("%.1f%%", v*100) }

func printBenchmark(out io.Writer, r *bench.BenchmarkResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s results (%s)", r.Benchmark, r.Provider)))
	fmt.Fprintf(out, "%s %s (%d/%d)  %s %s - %s\n",
		labelStyle.Render("Accuracy:"), pct(r.OverallAccuracy), r.TotalCorrect, r.TotalQuestions,
		labelStyle.Render("95% CI:"), pct(r.ConfidenceInterval[0]), pct(r.ConfidenceInterval[1]))
	fmt.Fprintf(out, "%s %.3f  %s %s\n",
		labelStyle.Render("MRR:"), r.MRR, labelStyle.Render("Avg latency:"), bench.FormatMs(r.AvgLatencyMs))

	t := newTable("Category", "Accuracy", "Hit@1", "Hit@5", "Hit@10", "MRR", "Latency")
	for _, c := range r.Categories {
		t.Row(c.Category,
			fmt.Sprintf("%s (%d/%d)", pct(c.Accuracy), c.Correct, c.Total),
			pct(c.HitAt1), pct(c.HitAt5), pct(c.HitAt10),
			fmt.Sprintf("%.3f", c.MRR), bench.FormatMs(c.AvgLatencyMs))
	}
	fmt.Fprintln(out, t.String())
}

func printSuite(out io.Writer, s *scenario.SuiteResult, broken int) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Scenario results (%s)", s.Provider)))
	fmt.Fprintf(out, "%s %d/%d (%s)  %s %s\n",
		labelStyle.Render("Passed:"), s.Passed, s.Total, pct(s.PassRate),
		labelStyle.Render("Avg latency:"), bench.FormatMs(s.AvgLatencyMs))
	if broken > 0 {
		fmt.Fprintln(out, warnLabel(fmt.Sprintf("%d scenario file(s) could not be loaded", broken)))
	}

	t := newTable("Category", "Passed", "Pass rate")
	for _, name := range sortedKeys(s.ByCategory) {
		c := s.ByCategory[name]
		t.Row(name, fmt.Sprintf("%d/%d", c.Passed, c.Total), pct(c.PassRate))
	}
	fmt.Fprintln(out, t.String())

	failures := s.Failures()
	if len(failures) == 0 {
		fmt.Fprintln(out, passLabel("All scenarios passed"))
		return
	}
	fmt.Fprintln(out, failLabel(fmt.Sprintf("%d failure(s):", len(failures))))
	for i, f := range failures {
		if i == maxListedFailures {
			fmt.Fprintf(out, "  ... and %d more\n", len(failures)-maxListedFailures)
			break
		}
		fmt.Fprintf(out, "  %s %s [%s] %s\n", failLabel("FAIL"), f.Name, f.FailureMode, f.FailureDescription)
	}
}

func printComparison(out io.Writer, a, b *bench.BenchmarkResult, c results.Comparison) {
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%s vs %s", c.A, c.B)))
	t := newTable("Metric", c.A, c.B, "Difference", "Winner")
	t.Row("Accuracy", pct(a.OverallAccuracy), pct(b.OverallAccuracy), fmt.Sprintf("%+.1f pts", c.AccuracyDiff*100), c.WinnerAccuracy)
	t.Row("MRR", fmt.Sprintf("%.3f", a.MRR), fmt.Sprintf("%.3f", b.MRR), fmt.Sprintf("%+.3f", c.MRRDiff), c.WinnerMRR)
	t.Row("Latency", bench.FormatMs(a.AvgLatencyMs), bench.FormatMs(b.AvgLatencyMs), fmt.Sprintf("%+.1fms", c.LatencyDiffMs), c.WinnerLatency)
	fmt.Fprintln(out, t.String())
}

func printArtifacts(out io.Writer, paths ...string) {
	var saved []string
	for _, p := range paths {
		if p != "" {
			saved = append(saved, p)
		}
	}
	if len(saved) > 0 {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Saved:"), strings.Join(saved, ", "))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
