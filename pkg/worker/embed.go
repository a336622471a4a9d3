package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ostren/ember/pkg/embedding"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

// OpEmbed is the embedding generation op.
const OpEmbed = "embed"

type embedArgs struct {
	Text  string   `json:"text"`
	Texts []string `json:"texts"`
}

type embedResult struct {
	Provider  string      `json:"provider"`
	Dimension int         `json:"dimension"`
	Texts     []string    `json:"texts"`
	Vectors   [][]float32 `json:"vectors"`
}

// EmbedExecutor turns job text into embedding vectors. Deterministic for a
// given provider & input, so duplicate execution is harmless.
type EmbedExecutor struct {
	provider embedding.Provider
}

func NewEmbedExecutor(provider embedding.Provider) *EmbedExecutor {
	return &EmbedExecutor{provider: provider}
}

func (e *EmbedExecutor) Execute(ctx context.Context, job *structs.Job) ([]byte, error) {
	args := embedArgs{}
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return nil, fmt.Errorf("%w bad embed args: %v", errors.ErrInvalidRequest, err)
	}
	texts := args.Texts
	if args.Text != "" {
		texts = append([]string{args.Text}, texts...)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w embed requires text or texts", errors.ErrInvalidRequest)
	}

	vecs, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrExecution, err)
	}

	return json.Marshal(&embedResult{
		Provider:  e.provider.Name(),
		Dimension: e.provider.Dimension(),
		Texts:     texts,
		Vectors:   vecs,
	})
}

// IndexContent extracts the text worth indexing from an embed job.
func (e *EmbedExecutor) IndexContent(job *structs.Job) string {
	args := embedArgs{}
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return ""
	}
	if args.Text != "" {
		return args.Text
	}
	if len(args.Texts) > 0 {
		return args.Texts[0]
	}
	return ""
}
