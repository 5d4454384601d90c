package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	geminiModel    = "gemini-embedding-001"
	geminiTaskType = "RETRIEVAL_DOCUMENT"
)

// contentEmbedder is the slice of the genai Models API this package uses.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GeminiEmbedder calls the Gemini embeddings API.
type GeminiEmbedder struct {
	models contentEmbedder
}

var _ Embedder = (*GeminiEmbedder)(nil)

// NewGeminiEmbedder creates a client for the Gemini Developer API.
func NewGeminiEmbedder(ctx context.Context, apiKey string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: creating gemini client: %w", err)
	}
	return &GeminiEmbedder{models: client.Models}, nil
}

// Embed returns the normalised embedding of text.
func (g *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := g.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The result is index-aligned with
// texts.
func (g *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(Dimensions)
	resp, err := g.models.EmbedContent(ctx, geminiModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dims,
		TaskType:             geminiTaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: calling gemini: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, ErrEmptyResponse
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptyResponse, i)
		}
		out[i] = Normalize(e.Values)
	}
	return out, nil
}
