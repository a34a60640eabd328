// Package oracle wraps the external model endpoints used for scoring:
// text embeddings and sentiment classification. Both clients are
// constructed once at startup and injected into the services that need
// them.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimensions is the vector size requested from the model
	DefaultEmbeddingDimensions = 384
)

var (
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoAPIKey is returned when the OpenAI API key is not configured
	ErrNoAPIKey = errors.New("OPENAI_API_KEY not set")
)

// EmbeddingAPI defines the interface for raw embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingClient generates fixed-dimension embeddings for free text.
// Empty or whitespace-only input short-circuits to the zero vector
// without an API call.
type EmbeddingClient struct {
	api        EmbeddingAPI
	dimensions int
}

type openAIEmbeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

func newOpenAIEmbeddingAdapter(apiKey, model string, dims int) *openAIEmbeddingAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &openAIEmbeddingAdapter{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(model),
		dims:   dims,
	}
}

func (a *openAIEmbeddingAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      a.model,
		Dimensions: a.dims,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// EmbeddingConfig holds configuration for the embedding client
type EmbeddingConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

// NewEmbeddingClient creates a new embedding client using defaults.
func NewEmbeddingClient(apiKey string) *EmbeddingClient {
	return NewEmbeddingClientWithConfig(EmbeddingConfig{APIKey: apiKey})
}

// NewEmbeddingClientWithConfig creates a new embedding client with explicit configuration.
func NewEmbeddingClientWithConfig(cfg EmbeddingConfig) *EmbeddingClient {
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &EmbeddingClient{
		api:        newOpenAIEmbeddingAdapter(cfg.APIKey, cfg.Model, dimensions),
		dimensions: dimensions,
	}
}

// NewEmbeddingClientWithAPI creates a client backed by a custom API (for testing).
func NewEmbeddingClientWithAPI(api EmbeddingAPI, dimensions int) *EmbeddingClient {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &EmbeddingClient{api: api, dimensions: dimensions}
}

// Dimensions returns the configured embedding size.
func (c *EmbeddingClient) Dimensions() int {
	return c.dimensions
}

// Encode generates an embedding for the given text.
// Empty input yields the zero vector.
func (c *EmbeddingClient) Encode(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, c.dimensions), nil
	}

	embeddings, err := c.api.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, errors.New("no embedding data returned")
	}
	if len(embeddings[0]) != c.dimensions {
		return nil, ErrWrongDimensions
	}

	return embeddings[0], nil
}

// EncodeBatch generates embeddings for multiple texts in one call.
// Empty texts are replaced with the zero vector without hitting the API.
func (c *EmbeddingClient) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var nonEmpty []string
	var indices []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, c.dimensions)
			continue
		}
		nonEmpty = append(nonEmpty, t)
		indices = append(indices, i)
	}

	if len(nonEmpty) > 0 {
		embeddings, err := c.api.CreateEmbeddings(ctx, nonEmpty)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		for j, emb := range embeddings {
			if len(emb) != c.dimensions {
				return nil, ErrWrongDimensions
			}
			out[indices[j]] = emb
		}
	}

	return out, nil
}
