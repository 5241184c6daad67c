package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/cenkalti/backoff/v5"

	"GossipSearch/internal/ports"
)

// OpenAIClient talks to an OpenAI-compatible embeddings endpoint. Useful
// as a drop-in alternative backend (Ollama, vLLM, hosted OpenAI).
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	limits  Limits
	client  *http.Client
}

var _ ports.Embedder = (*OpenAIClient)(nil)

// OpenAIConfig configures the OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Limits    Limits
}

// NewOpenAI builds a client from configuration.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}

	limits := cfg.Limits.withDefaults()
	return &OpenAIClient{
		baseURL: baseURL,
		apiKey:  key,
		model:   model,
		limits:  limits,
		client:  &http.Client{Timeout: limits.Timeout},
	}, nil
}

// EmbedDocuments embeds article bodies, one vector per input text in the
// same order, chunking into provider-sized batches.
func (c *OpenAIClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, batch := range c.limits.batches(texts) {
		batchVectors, err := retryEmbed(ctx, c.limits, func(attemptCtx context.Context) ([][]float32, error) {
			return c.embed(attemptCtx, batch)
		})
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := retryEmbed(ctx, c.limits, func(attemptCtx context.Context) ([][]float32, error) {
		return c.embed(attemptCtx, []string{truncate(text, c.limits.MaxTextLen)})
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}

func (c *OpenAIClient) embed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{
		"input": texts,
		"model": c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		reqErr := fmt.Errorf("embeddings endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		if !retryableStatus(resp.StatusCode) {
			return nil, backoff.Permanent(reqErr)
		}
		return nil, reqErr
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings, want %d", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// retryableStatus reports whether the request may succeed on retry:
// rate limits and server errors do, other client errors never will.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
