package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vectordb/vectordb/internal/apperrors"
)

// DefaultRemoteTimeout is the HTTP client timeout used when
// RemoteConfig.Timeout is not set.
const DefaultRemoteTimeout = 30 * time.Second

// RemoteConfig configures a RemoteEmbedder.
type RemoteConfig struct {
	Host       string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// remoteEmbedRequest/Response mirror a generic "POST /embed" JSON API:
// {"model": "...", "input": ["text", ...]} -> {"embeddings": [[...], ...]}.
type remoteEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type remoteEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// RemoteEmbedder calls an HTTP embedding service, protected by a circuit
// breaker and exponential-backoff retry so a flaky provider degrades the
// caller with ProviderUnavailable rather than hanging indefinitely.
type RemoteEmbedder struct {
	client *http.Client
	config RemoteConfig
	cb     *apperrors.CircuitBreaker
	retry  apperrors.RetryConfig

	mu     sync.RWMutex
	closed bool
}

var _ Embedder = (*RemoteEmbedder)(nil)

// NewRemoteEmbedder constructs a RemoteEmbedder with default circuit breaker
// and retry settings.
func NewRemoteEmbedder(cfg RemoteConfig) *RemoteEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRemoteTimeout
	}
	return &RemoteEmbedder{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		cb:     apperrors.NewCircuitBreaker("embedder:" + cfg.Host),
		retry:  apperrors.DefaultRetryConfig(),
	}
}

// Embed generates an embedding for one piece of text.
func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one HTTP call,
// guarded by the circuit breaker and retried with backoff on failure.
func (e *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, apperrors.Internal("remote embedder is closed", nil)
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := e.requestBatchWithProtection(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, apperrors.Internal(fmt.Sprintf("embedding provider returned %d vectors for %d inputs", len(vecs), len(texts)), nil)
	}
	return vecs, nil
}

// requestBatchWithProtection funnels the HTTP call through the single-vector
// circuit/retry helpers for the common case of one text, and for a genuine
// batch uses the same circuit breaker/retry policy directly (the apperrors
// helpers are specialized to a single []float32 return, which doesn't fit a
// batch response shape).
func (e *RemoteEmbedder) requestBatchWithProtection(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 1 {
		vec, err := apperrors.ExecuteVector(e.cb, func() ([]float32, error) {
			return apperrors.RetryVector(ctx, e.retry, func() ([]float32, error) {
				vecs, err := e.doRequest(ctx, texts)
				if err != nil {
					return nil, err
				}
				return vecs[0], nil
			})
		})
		if err != nil {
			return nil, err
		}
		return [][]float32{vec}, nil
	}

	var result [][]float32
	err := e.cb.Execute(func() error {
		vecs, rerr := retryBatch(ctx, e.retry, func() ([][]float32, error) {
			return e.doRequest(ctx, texts)
		})
		if rerr != nil {
			return rerr
		}
		result = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// retryBatch applies the exponential-backoff policy of apperrors.RetryVector
// to a batch ([][]float32) result; unlike RetryVector it never applies
// jitter, whatever cfg.Jitter says.
func retryBatch(ctx context.Context, cfg apperrors.RetryConfig, fn func() ([][]float32, error)) ([][]float32, error) {
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		vecs, err := fn()
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if attempt >= cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return nil, lastErr
}

func (e *RemoteEmbedder) doRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(remoteEmbedRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, apperrors.Internal("failed to marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(e.config.Host, "/")+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Internal("failed to build embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, apperrors.ProviderUnavailable("embedding provider unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.RateLimited(string(respBody), nil)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, apperrors.ProviderUnavailable(fmt.Sprintf("embedding request failed with status %d: %s", resp.StatusCode, respBody), nil)
	}

	var parsed remoteEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, apperrors.ProviderUnavailable("failed to decode embedding response", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, apperrors.ProviderUnavailable("embedding provider returned no vectors", nil)
	}
	return parsed.Embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *RemoteEmbedder) Dimensions() int { return e.config.Dimensions }

// ModelName identifies the configured remote model.
func (e *RemoteEmbedder) ModelName() string { return e.config.Model }

// Available reports whether the circuit breaker currently allows calls.
func (e *RemoteEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	return !closed && e.cb.State() != apperrors.StateOpen
}

// Close marks the embedder closed; subsequent calls fail immediately.
func (e *RemoteEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}
