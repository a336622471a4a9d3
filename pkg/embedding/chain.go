package embedding

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Chain tries each provider in order until one succeeds.
type Chain struct {
	providers []Provider
}

// NewChain builds a fallback chain. All providers must share a dimension.
func NewChain(providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one embedding provider is required")
	}
	dim := providers[0].Dimension()
	for _, p := range providers[1:] {
		if p.Dimension() != dim {
			return nil, fmt.Errorf("provider %s has dimension %d, expected %d", p.Name(), p.Dimension(), dim)
		}
	}
	return &Chain{providers: providers}, nil
}

func (c *Chain) Name() string   { return "chain" }
func (c *Chain) Dimension() int { return c.providers[0].Dimension() }

func (c *Chain) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for _, p := range c.providers {
		vecs, err := p.Embed(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		log.WithField("provider", p.Name()).Warn("embedding provider failed: ", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("all embedding providers failed: %w", lastErr)
}
