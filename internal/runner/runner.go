// internal/runner/runner.go

// Package runner drives a benchmark: sample questions, ingest conversations,
// query the provider with bounded concurrency and aggregate the scores.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultConcurrency caps in-flight recalls.
	DefaultConcurrency = 10
	// DefaultRecallLimit is the number of memories requested per question.
	DefaultRecallLimit = 10
)

// Runner answers questions against a provider.
type Runner struct {
	Provider    providers.Provider
	Checker     checkers.Checker
	Concurrency int
	Limit       int
	// Progress, when set, is called after each question completes.
	Progress func(done, total int)
}

// Run issues one recall per question with at most Concurrency in flight.
// Results arrive in completion order and every question appears exactly once.
// A failed recall is recorded as an incorrect answer; only cancellation aborts.
func (r Runner) Run(ctx context.Context, questions []bench.Question) ([]bench.QuestionResult, error) {
	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	var (
		mu      sync.Mutex
		results = make([]bench.QuestionResult, 0, len(questions))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, q := range questions {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := r.RunQuestion(gctx, q)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logging.L().Warn("recall failed",
					zap.String("question_id", q.ID),
					zap.String("category", q.Category),
					zap.Error(err),
				)
			}
			mu.Lock()
			results = append(results, res)
			done := len(results)
			mu.Unlock()
			if r.Progress != nil {
				r.Progress(done, len(questions))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// RunQuestion recalls memories for q and scores them. On a recall error the
// returned result is marked incorrect and carries the error text.
func (r Runner) RunQuestion(ctx context.Context, q bench.Question) (bench.QuestionResult, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultRecallLimit
	}
	expected := q.Expected.String()
	res := bench.QuestionResult{
		QuestionID: q.ID,
		Category:   bench.CategoryOrUnknown(q.Category),
		Question:   q.Text,
		Expected:   expected,
		Retrieved:  []string{},
		HitAtK:     map[int]bool{},
	}

	start := time.Now()
	memories, err := r.Provider.Recall(ctx, q.Text, limit)
	res.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		res.Error = err.Error()
		for _, k := range bench.HitKs {
			res.HitAtK[k] = false
		}
		return res, err
	}

	res.Retrieved = providers.Contents(memories)
	res.Correct = r.Checker.Matches(expected, res.Retrieved)
	// A hit at a smaller k stays a hit at every larger k, even for checkers
	// (abstention) that can reject a longer prefix.
	hit := false
	for _, k := range bench.HitKs {
		hit = hit || r.Checker.Matches(expected, prefix(res.Retrieved, k))
		res.HitAtK[k] = hit
	}
	res.ReciprocalRank = checkers.ReciprocalRank(expected, res.Retrieved, r.Checker)
	return res, nil
}

func prefix(items []string, k int) []string {
	if k < len(items) {
		return items[:k]
	}
	return items
}

// ErrNoQuestions is returned when a run has nothing to ask.
var ErrNoQuestions = errors.New("no questions to run")
