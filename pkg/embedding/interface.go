package embedding

import (
	"context"
)

// Provider turns text into fixed-dimension vectors.
//
// All providers wired into one service must agree on Dimension; the index
// store's schema is built for a single dimension.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Dimension is the length of vectors this provider returns.
	Dimension() int

	// Embed returns one vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
