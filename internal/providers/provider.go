// internal/providers/provider.go

// Package providers defines the contract every memory service adapter implements.
// The benchmark stores conversation chunks through a Provider, recalls them by
// query and scores what comes back, so adapters only need to speak their
// service's wire protocol and map failures onto the error kinds declared here.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// MemoryInput is a single item submitted for storage.
type MemoryInput struct {
	Content string `json:"content"`
	Context string `json:"context,omitempty"`
}

// Memory is a recalled item. Recall returns memories ordered by descending relevance.
type Memory struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// Provider is the interface that all memory service adapters must implement.
type Provider interface {
	// Store persists one item and returns its identifier.
	Store(ctx context.Context, content, context string) (string, error)
	// StoreBatch persists items in one call. Adapters whose service has no batch
	// endpoint may fall back to sequential stores.
	StoreBatch(ctx context.Context, items []MemoryInput) ([]string, error)
	// Recall returns up to limit memories for query, most relevant first.
	Recall(ctx context.Context, query string, limit int) ([]Memory, error)
	// Clear drops everything stored under the adapter's namespace.
	Clear(ctx context.Context) error
	// Stats returns service-defined statistics for the namespace.
	Stats(ctx context.Context) (map[string]any, error)
	// Name identifies the provider in results.
	Name() string
	// Close releases connections held by the adapter.
	Close() error
}

// ErrBatchUnsupported reports that the service has no batch store endpoint.
var ErrBatchUnsupported = errors.New("batch store not supported by provider")

// TransientError is a failure worth retrying: a connection error, a timeout or a 5xx.
type TransientError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: transient failure (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: transient failure: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ClientError is a 4xx answer other than a recognised degradation. It is never retried.
type ClientError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: client error (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// IsTransient reports whether err, or anything it wraps, is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsClientError reports whether err, or anything it wraps, is a ClientError.
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}

// Contents returns the content of each memory, preserving order.
func Contents(memories []Memory) []string {
	out := make([]string, 0, len(memories))
	for _, m := range memories {
		out = append(out, m.Content)
	}
	return out
}
