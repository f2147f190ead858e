package embed

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// outputDims matches gemini-embedding-001's native dimensionality.
const outputDims = int32(768)

// GenAIEmbedder is an Embedder backed by Google's embedding API,
// grounded on theRebelliousNerd-codenerd's internal/embedding/genai.go.
// The hybrid matcher (M5) is the only consumer; on any error it
// degrades the semantic component to zero rather than failing the
// match (§4.6).
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder dials the GenAI client. Construction fails fast so
// the caller can fall back to NoopEmbedder at boot time instead of
// discovering the missing key mid-request.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("embed: GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("embed: creating GenAI client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model}, nil
}

// Embed returns the text's embedding vector, widened to float64 for
// the kernel's similarity arithmetic.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &outputDims,
	})
	if err != nil {
		return nil, fmt.Errorf("embed: GenAI EmbedContent failed: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("embed: GenAI returned no embeddings")
	}
	values := result.Embeddings[0].Values
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out, nil
}
