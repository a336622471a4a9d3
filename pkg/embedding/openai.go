package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIDimension = 1536

// OpenAI embeds text via the OpenAI embeddings API.
type OpenAI struct {
	cli   *openai.Client
	model openai.EmbeddingModel
	dim   int
}

// NewOpenAI returns an OpenAI embedding provider. Model defaults to
// text-embedding-ada-002 (1536 dims) when blank.
func NewOpenAI(apiKey, model string, dim int) *OpenAI {
	m := openai.AdaEmbeddingV2
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	if dim <= 0 {
		dim = defaultOpenAIDimension
	}
	return &OpenAI{
		cli:   openai.NewClient(apiKey),
		model: m,
		dim:   dim,
	}
}

func (o *OpenAI) Name() string   { return "openai" }
func (o *OpenAI) Dimension() int { return o.dim }

func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := o.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: o.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}
