// internal/runner/benchmark.go
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/ingest"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providers"
	"github.com/mwiater/recallbench/internal/results"
	"github.com/mwiater/recallbench/internal/sampling"
	"go.uber.org/zap"
)

// DefaultSeed drives sampling when no seed is configured.
const DefaultSeed = 42

// Options configures one dataset run.
type Options struct {
	Name          string
	Provider      providers.Provider
	Checker       checkers.Checker
	Conversations []bench.Conversation
	Questions     []bench.Question
	// Sample, when positive and smaller than the question count, selects a
	// stratified subset of questions.
	Sample      int
	Seed        int64
	BatchSize   int
	Concurrency int
	Limit       int
	// Metadata is merged into the result metadata.
	Metadata       map[string]any
	IngestProgress func(done, total int)
	QueryProgress  func(done, total int)
}

// RunBenchmark ingests the conversations, answers the (optionally sampled)
// questions and aggregates the result. A fatal ingestion error aborts the run
// before any query is issued and no result is returned.
func RunBenchmark(ctx context.Context, opts Options) (*bench.BenchmarkResult, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("run %s: nil provider", opts.Name)
	}
	if opts.Checker == nil {
		opts.Checker = checkers.Phrase{}
	}
	questions := opts.Questions
	if len(questions) == 0 {
		return nil, fmt.Errorf("run %s: %w", opts.Name, ErrNoQuestions)
	}
	if opts.Sample > 0 && opts.Sample < len(questions) {
		questions = sampling.StratifiedSeed(questions, opts.Sample, func(q bench.Question) string {
			return bench.CategoryOrUnknown(q.Category)
		}, opts.Seed)
	}

	log := logging.L().With(zap.String("benchmark", opts.Name), zap.String("provider", opts.Provider.Name()))
	log.Info("starting run",
		zap.Int("conversations", len(opts.Conversations)),
		zap.Int("questions", len(questions)),
		zap.Int64("seed", opts.Seed),
	)

	chunks := ingest.ChunkConversations(opts.Conversations)
	log.Info("ingesting", zap.Int("chunks", len(chunks)))
	pipeline := ingest.Pipeline{BatchSize: opts.BatchSize, Progress: opts.IngestProgress}
	ingestStats, err := pipeline.Ingest(ctx, opts.Provider, chunks)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", opts.Name, err)
	}
	log.Info("ingestion complete",
		zap.Duration("elapsed", ingestStats.Duration),
		zap.Int("degraded_batches", ingestStats.Degraded),
	)

	r := Runner{
		Provider:    opts.Provider,
		Checker:     opts.Checker,
		Concurrency: opts.Concurrency,
		Limit:       opts.Limit,
		Progress:    opts.QueryProgress,
	}
	queryStart := time.Now()
	questionResults, err := r.Run(ctx, questions)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", opts.Name, err)
	}
	queryTime := time.Since(queryStart)

	failed := 0
	for _, q := range questionResults {
		if q.Error != "" {
			failed++
		}
	}
	log.Info("queries complete", zap.Duration("elapsed", queryTime), zap.Int("failed_recalls", failed))

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = ingest.DefaultBatchSize
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	metadata := map[string]any{
		"sample_size":        sampleSize(opts.Sample),
		"seed":               opts.Seed,
		"ingest_time_s":      ingestStats.Duration.Seconds(),
		"query_time_s":       queryTime.Seconds(),
		"conversation_count": len(opts.Conversations),
		"memory_chunk_count": len(chunks),
		"batch_size":         batchSize,
		"query_concurrency":  concurrency,
		"degraded_batches":   ingestStats.Degraded,
		"failed_recalls":     failed,
		"checker":            opts.Checker.Name(),
	}
	for k, v := range opts.Metadata {
		metadata[k] = v
	}

	return results.Aggregate(opts.Name, opts.Provider.Name(), questionResults, metadata), nil
}

func sampleSize(n int) any {
	if n <= 0 {
		return nil
	}
	return n
}
