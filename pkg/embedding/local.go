package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Local is a deterministic offline provider: it hashes token n-grams into a
// fixed-dimension vector. No external calls, same text always yields the
// same vector. Intended for tests and deployments without an API key; the
// vectors are crude but stable and unit length.
type Local struct {
	dim int
}

func NewLocal(dim int) *Local {
	if dim <= 0 {
		dim = defaultOpenAIDimension
	}
	return &Local{dim: dim}
}

func (l *Local) Name() string   { return "local" }
func (l *Local) Dimension() int { return l.dim }

func (l *Local) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = l.embedOne(t)
	}
	return out, nil
}

func (l *Local) embedOne(text string) []float32 {
	vec := make([]float32, l.dim)
	b := []byte(text)

	const n = 3
	for i := 0; i+n <= len(b); i++ {
		sum := sha256.Sum256(b[i : i+n])
		idx := binary.BigEndian.Uint32(sum[:4]) % uint32(l.dim)
		sign := float32(1)
		if sum[4]%2 == 1 {
			sign = -1
		}
		vec[idx] += sign
	}

	// normalize so distance comparisons behave
	var mag float64
	for _, v := range vec {
		mag += float64(v) * float64(v)
	}
	if mag == 0 {
		vec[0] = 1
		return vec
	}
	mag = math.Sqrt(mag)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / mag)
	}
	return vec
}
