// internal/providers/memory/provider.go
// Package memory provides a process-local Provider that ranks stored chunks by
// token overlap with the query. It backs smoke runs without a memory service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mwiater/recallbench/internal/checkers"
	"github.com/mwiater/recallbench/internal/providers"
)

type stored struct {
	id      string
	content string
	context string
	tokens  map[string]struct{}
}

// Provider keeps memories in a slice guarded by an RWMutex. Search is a linear
// scan, so it is only suitable for tests and small datasets.
type Provider struct {
	mu    sync.RWMutex
	items []stored
	next  int
}

// New creates an empty in-memory provider.
func New() *Provider {
	return &Provider{}
}

// Name implements providers.Provider.
func (p *Provider) Name() string { return "memory" }

// Store appends a memory and returns its generated id.
func (p *Provider) Store(ctx context.Context, content, memContext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	id := fmt.Sprintf("mem_%d", p.next)
	p.next++
	p.items = append(p.items, stored{id: id, content: content, context: memContext, tokens: tokenSet(content)})
	return id, nil
}

// StoreBatch stores every item in order.
func (p *Provider) StoreBatch(ctx context.Context, items []providers.MemoryInput) ([]string, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := p.Store(ctx, item.Content, item.Context)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Recall scores memories by the share of query tokens they contain. Memories
// with no overlap are not returned; ties keep insertion order.
func (p *Provider) Recall(ctx context.Context, query string, limit int) ([]providers.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := tokenSet(query)
	if len(q) == 0 || limit <= 0 {
		return []providers.Memory{}, nil
	}

	p.mu.RLock()
	var hits []providers.Memory
	for _, item := range p.items {
		overlap := 0
		for tok := range q {
			if _, ok := item.tokens[tok]; ok {
				overlap++
			}
		}
		if overlap == 0 {
			continue
		}
		hits = append(hits, providers.Memory{
			ID:        item.id,
			Content:   item.content,
			Relevance: float64(overlap) / float64(len(q)),
		})
	}
	p.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Relevance > hits[j].Relevance })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Clear drops every stored memory.
func (p *Provider) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
	return nil
}

// Stats reports the number of stored memories.
func (p *Provider) Stats(ctx context.Context) (map[string]any, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return map[string]any{"total_memories": len(p.items)}, nil
}

// Close is a no-op.
func (p *Provider) Close() error { return nil }

// stopwords are ignored when scoring so that question scaffolding does not match everything.
var stopwords = map[string]struct{}{
	"i": {}, "you": {}, "user": {}, "assistant": {}, "is": {}, "was": {}, "what": {},
	"my": {}, "to": {}, "of": {}, "and": {}, "in": {}, "did": {}, "do": {}, "does": {},
}

func tokenSet(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(checkers.Normalize(text)) {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}
