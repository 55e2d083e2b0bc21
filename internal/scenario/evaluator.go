// internal/scenario/evaluator.go
package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/ingest"
	"github.com/mwiater/recallbench/internal/providers"
)

// Failure modes assigned by Classify.
const (
	ModeFalsePositive     = "false_positive"
	ModeNoRetrieval       = "no_retrieval"
	ModeMissingExpected   = "missing_expected"
	ModeStaleRetrieval    = "stale_retrieval"
	ModeUnexpectedContent = "unexpected_content"
)

const (
	// DefaultNegativeMaxChars is the combined normalized length below which
	// retrieved content on a negative scenario is treated as noise.
	DefaultNegativeMaxChars = 30
	// DefaultRecallLimit is the number of memories requested for the task query.
	DefaultRecallLimit = 10
	sampleSize         = 3
)

// Thresholds tunes the relevance heuristics used by Classify.
type Thresholds struct {
	NegativeMaxChars int
}

func (t Thresholds) negativeMaxChars() int {
	if t.NegativeMaxChars <= 0 {
		return DefaultNegativeMaxChars
	}
	return t.NegativeMaxChars
}

// Verdict is the outcome of classifying one retrieval.
type Verdict struct {
	Passed      bool
	Mode        string
	Description string
}

func pass() Verdict { return Verdict{Passed: true} }

func fail(mode, description string) Verdict {
	return Verdict{Mode: mode, Description: description}
}

// Classify decides whether retrieved satisfies the task and, if not, which
// failure mode explains it.
func Classify(task Task, modes []FailureMode, retrieved []string, th Thresholds) Verdict {
	normalized := make([]string, len(retrieved))
	for i, r := range retrieved {
		normalized[i] = checkers.Normalize(r)
	}
	combined := strings.Join(normalized, " ")

	if !task.ExpectedBehavior.Retrieves() {
		if len(retrieved) == 0 || utf8.RuneCountInString(combined) < th.negativeMaxChars() {
			return pass()
		}
		return fail(ModeFalsePositive, "Retrieved content when should not have")
	}

	if len(retrieved) == 0 {
		return fail(ModeNoRetrieval, "No memories retrieved")
	}

	if indicators := task.Success.Indicators(); len(indicators) > 0 && !anyPresent(indicators, combined) {
		for _, fm := range modes {
			if fm.Type == ModeStaleRetrieval && anyPresent(task.ExpectedBehavior.ShouldIgnore, combined) {
				return fail(ModeStaleRetrieval, fm.Description)
			}
		}
		return fail(ModeMissingExpected, "Expected indicators not found in retrieved")
	}

	for _, phrase := range task.Success.Forbidden() {
		if !strings.Contains(combined, checkers.Normalize(phrase)) {
			continue
		}
		for _, fm := range modes {
			if fm.Type == ModeStaleRetrieval {
				return fail(ModeStaleRetrieval, fm.Description)
			}
		}
		return fail(ModeUnexpectedContent, fmt.Sprintf("Found '%s' which should not appear", phrase))
	}
	return pass()
}

func anyPresent(phrases []string, combined string) bool {
	for _, p := range phrases {
		if strings.Contains(combined, checkers.Normalize(p)) {
			return true
		}
	}
	return false
}

// Result is the outcome of one scenario.
type Result struct {
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Passed             bool     `json:"passed"`
	FailureMode        string   `json:"failure_mode,omitempty"`
	FailureDescription string   `json:"failure_description,omitempty"`
	LatencyMs          float64  `json:"latency_ms"`
	Retrieved          []string `json:"retrieved"`
	Query              string   `json:"query"`
}

// Evaluator replays scenarios against a provider.
type Evaluator struct {
	Provider   providers.Provider
	Thresholds Thresholds
	Limit      int
	// Isolate clears the provider before each scenario so earlier sessions
	// cannot leak into later recalls.
	Isolate bool
}

// Evaluate ingests the scenario conversations as message pairs, issues the
// task query once and classifies what came back. Provider errors abort.
func (e Evaluator) Evaluate(ctx context.Context, sc *Scenario) (Result, error) {
	res := Result{Name: sc.Name, Category: sc.Category, Query: sc.Task.Query, Retrieved: []string{}}

	if e.Isolate {
		if err := e.Provider.Clear(ctx); err != nil {
			return res, fmt.Errorf("scenario %s: clear: %w", sc.Name, err)
		}
	}
	for _, conv := range sc.Conversations {
		for _, chunk := range ingest.PairChunks(conv.Messages, ingest.SessionContext(conv.Session)) {
			if _, err := e.Provider.Store(ctx, chunk.Content, chunk.Context); err != nil {
				return res, fmt.Errorf("scenario %s: store: %w", sc.Name, err)
			}
		}
	}

	limit := e.Limit
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	start := time.Now()
	memories, err := e.Provider.Recall(ctx, sc.Task.Query, limit)
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		return res, fmt.Errorf("scenario %s: recall: %w", sc.Name, err)
	}

	retrieved := providers.Contents(memories)
	v := Classify(sc.Task, sc.FailureModes, retrieved, e.Thresholds)
	res.Passed = v.Passed
	res.FailureMode = v.Mode
	res.FailureDescription = v.Description
	if len(retrieved) > sampleSize {
		retrieved = retrieved[:sampleSize]
	}
	res.Retrieved = retrieved
	return res, nil
}

// categoryOf keeps the scenario category vocabulary aligned with benchmark results.
func categoryOf(r Result) string { return bench.CategoryOrUnknown(r.Category) }
