// internal/providers/tribal/provider.go
// Package tribal provides a memory Provider backed by the TribalMemory HTTP API.
package tribal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mwiater/recallbench/internal/appconfig"
	"github.com/mwiater/recallbench/internal/logging"
	"github.com/mwiater/recallbench/internal/providers"
	"github.com/mwiater/recallbench/internal/retry"
)

const sourceType = "auto_capture"

// Provider implements providers.Provider against one TribalMemory instance namespace.
type Provider struct {
	client   *http.Client
	baseURL  string
	instance string
	retry    retry.Config

	// noBatch is set once the service has answered the batch endpoint with 404.
	noBatch atomic.Bool
}

// New constructs a Provider from the application config. A fresh bench-<hex>
// instance id is generated when none is configured so runs never share data.
func New(cfg *appconfig.Config) *Provider {
	instance := strings.TrimSpace(cfg.Provider.Instance)
	if instance == "" {
		instance = NewInstanceID()
	}
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.MaxRetries()
	rc.MaxDelay = cfg.MaxBackoff()
	rc.Retryable = providers.IsTransient

	return &Provider{
		client:   &http.Client{Timeout: cfg.RequestTimeout()},
		baseURL:  cfg.ProviderURL(),
		instance: instance,
		retry:    rc,
	}
}

// NewInstanceID returns a namespace id of the form bench-<8 hex chars>.
func NewInstanceID() string {
	return "bench-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Name implements providers.Provider.
func (p *Provider) Name() string { return "tribalmemory" }

// Instance returns the namespace every call is scoped to.
func (p *Provider) Instance() string { return p.instance }

type rememberRequest struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
	InstanceID string `json:"instance_id"`
	Context    string `json:"context,omitempty"`
}

type rememberResponse struct {
	MemoryID string `json:"memory_id"`
}

type batchRequest struct {
	Memories []rememberRequest `json:"memories"`
}

type batchResponse struct {
	MemoryIDs []string `json:"memory_ids"`
}

type recallRequest struct {
	Query      string `json:"query"`
	Limit      int    `json:"limit"`
	InstanceID string `json:"instance_id"`
}

type recallResponse struct {
	Results []struct {
		Memory struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"memory"`
		Relevance float64 `json:"relevance"`
	} `json:"results"`
}

// Store persists a single memory.
func (p *Provider) Store(ctx context.Context, content, memContext string) (string, error) {
	var resp rememberResponse
	err := p.do(ctx, "store", http.MethodPost, "/v1/remember", nil, p.remember(content, memContext), &resp)
	if err != nil {
		return "", err
	}
	return resp.MemoryID, nil
}

// StoreBatch persists items through the batch endpoint. If the service does not
// expose it, items are stored one at a time and later batches skip the probe.
func (p *Provider) StoreBatch(ctx context.Context, items []providers.MemoryInput) ([]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if !p.noBatch.Load() {
		ids, err := p.storeBatch(ctx, items)
		if !errors.Is(err, providers.ErrBatchUnsupported) {
			return ids, err
		}
		p.noBatch.Store(true)
		logging.LogWarn("[TRIBAL] batch endpoint unavailable, storing sequentially (instance=%s)", p.instance)
	}

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

func (p *Provider) storeBatch(ctx context.Context, items []providers.MemoryInput) ([]string, error) {
	payload := batchRequest{Memories: make([]rememberRequest, 0, len(items))}
	for _, item := range items {
		payload.Memories = append(payload.Memories, p.remember(item.Content, item.Context))
	}
	var resp batchResponse
	err := p.do(ctx, "store_batch", http.MethodPost, "/v1/remember/batch", nil, payload, &resp)
	if isNotFound(err) {
		return nil, fmt.Errorf("store_batch: %w", providers.ErrBatchUnsupported)
	}
	if err != nil {
		return nil, err
	}
	return resp.MemoryIDs, nil
}

// Recall returns up to limit memories for query, most relevant first.
func (p *Provider) Recall(ctx context.Context, query string, limit int) ([]providers.Memory, error) {
	var resp recallResponse
	req := recallRequest{Query: query, Limit: limit, InstanceID: p.instance}
	if err := p.do(ctx, "recall", http.MethodPost, "/v1/recall", nil, req, &resp); err != nil {
		return nil, err
	}
	memories := make([]providers.Memory, 0, len(resp.Results))
	for _, r := range resp.Results {
		memories = append(memories, providers.Memory{
			ID:        r.Memory.ID,
			Content:   r.Memory.Content,
			Relevance: r.Relevance,
		})
	}
	return memories, nil
}

// Clear deletes the instance's memories. Services without the endpoint answer
// 404, which is ignored: isolation then relies on the unique instance id.
func (p *Provider) Clear(ctx context.Context) error {
	err := p.do(ctx, "clear", http.MethodDelete, "/v1/memories", p.instanceQuery(), nil, nil)
	if isNotFound(err) {
		logging.LogEvent("[TRIBAL] clear endpoint unavailable, relying on instance isolation (instance=%s)", p.instance)
		return nil
	}
	return err
}

// Stats returns the service statistics for this instance.
func (p *Provider) Stats(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{}
	if err := p.do(ctx, "stats", http.MethodGet, "/v1/stats", p.instanceQuery(), nil, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Close releases idle connections held by the shared client.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

func (p *Provider) remember(content, memContext string) rememberRequest {
	return rememberRequest{
		Content:    content,
		SourceType: sourceType,
		InstanceID: p.instance,
		Context:    memContext,
	}
}

func (p *Provider) instanceQuery() url.Values {
	return url.Values{"instance_id": []string{p.instance}}
}

// do sends one JSON request with retries. Transport failures and 5xx answers
// are retried; any other 4xx surfaces immediately as a ClientError.
func (p *Provider) do(ctx context.Context, op, method, path string, query url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}
	endpoint := p.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	res := retry.Do(ctx, p.retry, func() error {
		return p.attempt(ctx, op, method, endpoint, body, out)
	})
	if res.Err != nil && res.Attempts > 1 {
		return fmt.Errorf("%s failed after %d attempts: %w", op, res.Attempts, res.Err)
	}
	return res.Err
}

func (p *Provider) attempt(ctx context.Context, op, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	logging.LogRequest("bench->memory", p.baseURL, p.instance, op, body)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &providers.TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &providers.TransientError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	logging.LogRequest("memory->bench", p.baseURL, p.instance, op,
		fmt.Sprintf("status=%d elapsed=%s body=%s", resp.StatusCode, time.Since(start), strings.TrimSpace(string(respBody))))

	switch {
	case resp.StatusCode >= 500:
		return &providers.TransientError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	case resp.StatusCode >= 400:
		return &providers.ClientError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var ce *providers.ClientError
	return errors.As(err, &ce) && ce.StatusCode == http.StatusNotFound
}
