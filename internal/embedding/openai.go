package embedding

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient generates embeddings via the OpenAI Embeddings API.
// Remote calls are wrapped with circuit breaker protection.
type OpenAIClient struct {
	client         *openai.Client
	circuitBreaker *CircuitBreaker
	model          openai.EmbeddingModel
	dimensions     int
}

// OpenAIConfig holds OpenAI embedding client configuration.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// Model is the embedding model name (default: text-embedding-3-small).
	Model string

	// BaseURL overrides the API base URL for OpenAI-compatible endpoints.
	BaseURL string

	// Dimensions is the output vector dimensionality (default: 1536).
	Dimensions int
}

// NewOpenAIClient creates a new OpenAI embedding client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	model := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		model = openai.SmallEmbedding3
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = 1536
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(config),
		circuitBreaker: NewCircuitBreaker(),
		model:          model,
		dimensions:     dimensions,
	}
}

// Embed converts a single text into a vector embedding.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	result, err := c.circuitBreaker.Execute(ctx, func() (interface{}, error) {
		return c.embed(ctx, text)
	})

	if err != nil {
		if errors.Is(err, ErrCircuitOpen) {
			return nil, fmt.Errorf("openai circuit breaker open: %w", err)
		}
		return nil, err
	}

	return result.([]float64), nil
}

func (c *OpenAIClient) embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("openai returned no embedding data")
	}

	// The SDK returns float32; the engine works in float64 throughout.
	embedding32 := resp.Data[0].Embedding
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}

	return embedding64, nil
}

// Dimensions returns the configured vector dimensionality.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// GetModel returns the configured model name.
func (c *OpenAIClient) GetModel() string {
	return string(c.model)
}

var _ Provider = (*OpenAIClient)(nil)
