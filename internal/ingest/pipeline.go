// internal/ingest/pipeline.go

// Package ingest turns conversations into chunks and stores them in a memory provider.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwiater/recallbench/internal/bench"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providers"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of chunks submitted per batch store.
const DefaultBatchSize = 20

// ErrIngestFailed marks a chunk that could not be stored even sequentially.
var ErrIngestFailed = errors.New("ingestion failed")

// Stats summarises one ingestion pass.
type Stats struct {
	Chunks   int
	Batches  int
	Degraded int
	Duration time.Duration
}

// Pipeline stores chunks in batches, degrading to per-chunk stores when a batch fails.
type Pipeline struct {
	BatchSize int
	// Progress, when set, is called after every batch with chunks done so far.
	Progress func(done, total int)
}

// Ingest stores chunks in order. Batches are submitted sequentially.
func (p Pipeline) Ingest(ctx context.Context, provider providers.Provider, chunks []bench.Chunk) (Stats, error) {
	start := time.Now()
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	stats := Stats{Chunks: len(chunks)}
	for i := 0; i < len(chunks); i += size {
		end := i + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]
		stats.Batches++

		if _, err := provider.StoreBatch(ctx, toInputs(batch)); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				stats.Duration = time.Since(start)
				return stats, ctxErr
			}
			stats.Degraded++
			logging.L().Warn("batch store failed, falling back to sequential",
				zap.Int("batch", stats.Batches),
				zap.Int("size", len(batch)),
				zap.Error(err),
			)
			for j, chunk := range batch {
				if _, err := provider.Store(ctx, chunk.Content, chunk.Context); err != nil {
					stats.Duration = time.Since(start)
					return stats, fmt.Errorf("%w: chunk %d: %w", ErrIngestFailed, i+j, err)
				}
			}
		}

		if p.Progress != nil {
			p.Progress(end, len(chunks))
		}
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func toInputs(chunks []bench.Chunk) []providers.MemoryInput {
	inputs := make([]providers.MemoryInput, 0, len(chunks))
	for _, c := range chunks {
		inputs = append(inputs, providers.MemoryInput{Content: c.Content, Context: c.Context})
	}
	return inputs
}
