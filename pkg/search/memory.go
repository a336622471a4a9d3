package search

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ostren/ember/pkg/embedding"
	"github.com/ostren/ember/pkg/structs"
)

type memoryDoc struct {
	doc *Document
	vec []float32
}

// Memory is an in-process Index for tests & single-node setups.
type Memory struct {
	mu       sync.Mutex
	docs     map[string]*memoryDoc
	provider embedding.Provider
}

func NewMemory(provider embedding.Provider) *Memory {
	return &Memory{
		docs:     map[string]*memoryDoc{},
		provider: provider,
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Upsert(ctx context.Context, doc *Document) error {
	vecs, err := m.provider.Embed(ctx, []string{doc.Content})
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.docs[doc.JobID] = &memoryDoc{doc: &cp, vec: vecs[0]}
	return nil
}

func (m *Memory) Query(ctx context.Context, text string, limit int) ([]*structs.SearchResult, error) {
	vecs, err := m.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	q := vecs[0]

	m.mu.Lock()
	defer m.mu.Unlock()

	results := []*structs.SearchResult{}
	for _, d := range m.docs {
		results = append(results, &structs.SearchResult{
			JobID:    d.doc.JobID,
			Location: d.doc.Location,
			Score:    cosine(q, d.vec),
		})
	}
	sort.Slice(results, func(i, k int) bool {
		if results[i].Score == results[k].Score {
			return results[i].JobID < results[k].JobID
		}
		return results[i].Score > results[k].Score
	})
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// Len returns how many documents are indexed.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, ma, mb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		ma += float64(a[i]) * float64(a[i])
		mb += float64(b[i]) * float64(b[i])
	}
	if ma == 0 || mb == 0 {
		return 0
	}
	return dot / (math.Sqrt(ma) * math.Sqrt(mb))
}
