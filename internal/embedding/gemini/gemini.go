package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docchat/internal/domain"
)

// DefaultModel produces vectors of domain.EmbeddingDim dimensions.
const DefaultModel = "text-embedding-004"

// Embedder converts text into embedding vectors via the Gemini API.
type Embedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewEmbedder(ctx context.Context, apiKey, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Embedder{client: client, model: client.EmbeddingModel(model)}, nil
}

// EmbedBatch embeds up to the API's batch limit of texts in one call.
// Vectors come back in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	b := e.model.NewBatch()
	for _, t := range texts {
		b.AddContent(genai.Text(t))
	}
	resp, err := e.model.BatchEmbedContents(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("batch embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 {
		return nil, errors.New("empty embeddings response")
	}
	out := make([][]float32, 0, len(resp.Embeddings))
	for _, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, errors.New("embeddings response has empty vector")
		}
		out = append(out, emb.Values)
	}
	return out, nil
}

// Embed embeds a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return resp.Embedding.Values, nil
}

func (e *Embedder) Dimension() int { return domain.EmbeddingDim }

func (e *Embedder) Close() error { return e.client.Close() }
