package embedding

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"GossipSearch/internal/ports"
)

// Task types understood by the Gemini embedding models. Documents and
// queries are embedded differently for retrieval.
const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// GeminiClient produces embeddings through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
	limits Limits
}

var _ ports.Embedder = (*GeminiClient)(nil)

// GeminiConfig configures the Gemini embeddings client.
type GeminiConfig struct {
	APIKeyEnv string
	Model     string
	Limits    Limits
}

// NewGemini builds a client from configuration. The API key is read from
// the configured environment variable.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "GOOGLE_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "models/embedding-001"
	}
	return &GeminiClient{client: client, model: model, limits: cfg.Limits.withDefaults()}, nil
}

// EmbedDocuments embeds article bodies, one vector per input text in the
// same order, chunking into provider-sized batches.
func (c *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, batch := range c.limits.batches(texts) {
		batchVectors, err := retryEmbed(ctx, c.limits, func(attemptCtx context.Context) ([][]float32, error) {
			return c.embed(attemptCtx, batch, taskDocument)
		})
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batchVectors...)
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (c *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := retryEmbed(ctx, c.limits, func(attemptCtx context.Context) ([][]float32, error) {
		return c.embed(attemptCtx, []string{truncate(text, c.limits.MaxTextLen)}, taskQuery)
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("gemini returned no embedding for query")
	}
	return vectors[0], nil
}

func (c *GeminiClient) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType: taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings, want %d", len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embed: empty embedding at index %d", i)
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}
