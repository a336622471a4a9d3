package embedding

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDeterministic(t *testing.T) {
	l := NewLocal(64)
	ctx := context.Background()

	a, err := l.Embed(ctx, []string{"the quick brown fox"})
	require.Nil(t, err)
	b, err := l.Embed(ctx, []string{"the quick brown fox"})
	require.Nil(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a[0], 64)
}

func TestLocalUnitLength(t *testing.T) {
	l := NewLocal(64)
	vecs, err := l.Embed(context.Background(), []string{"some text to embed", ""})
	require.Nil(t, err)

	for _, v := range vecs {
		var mag float64
		for _, x := range v {
			mag += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(mag), 0.001)
	}
}

func TestLocalDistinguishesTexts(t *testing.T) {
	l := NewLocal(64)
	vecs, err := l.Embed(context.Background(), []string{"alpha bravo charlie", "totally different words"})
	require.Nil(t, err)
	assert.NotEqual(t, vecs[0], vecs[1])
}

type failingProvider struct{ dim int }

func (f *failingProvider) Name() string   { return "failing" }
func (f *failingProvider) Dimension() int { return f.dim }
func (f *failingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("provider down")
}

func TestChainFallsBack(t *testing.T) {
	c, err := NewChain(&failingProvider{dim: 64}, NewLocal(64))
	require.Nil(t, err)

	vecs, err := c.Embed(context.Background(), []string{"hello"})
	require.Nil(t, err)
	assert.Len(t, vecs, 1)
}

func TestChainRejectsMixedDimensions(t *testing.T) {
	_, err := NewChain(NewLocal(64), NewLocal(128))
	assert.NotNil(t, err)
}
