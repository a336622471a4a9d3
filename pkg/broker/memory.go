package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ostren/ember/internal/utils"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

type claim struct {
	jobID   string
	expires time.Time
}

// Memory is an in-process Broker with the same visibility-timeout semantics
// as the redis implementation. Used in tests and single-node setups.
type Memory struct {
	mu      sync.Mutex
	pending []string
	claims  map[string]*claim

	// now is swappable so tests can force lease expiry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		claims: map[string]*claim{},
		now:    time.Now,
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Enqueue(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, jobID)
	return nil
}

func (m *Memory) Lease(ctx context.Context, workerID string, ttl time.Duration) (*structs.Lease, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requeueExpired()

	if len(m.pending) == 0 {
		return nil, nil
	}
	jobID := m.pending[0]
	m.pending = m.pending[1:]

	receipt := utils.NewRandomID()
	expires := m.now().Add(ttl)
	m.claims[receipt] = &claim{jobID: jobID, expires: expires}

	return &structs.Lease{
		JobID:     jobID,
		WorkerID:  workerID,
		Receipt:   receipt,
		ExpiresAt: expires.Unix(),
	}, nil
}

func (m *Memory) Ack(ctx context.Context, l *structs.Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.claims[l.Receipt]
	if !ok {
		return fmt.Errorf("%w lease %s expired before ack", errors.ErrInvalidState, l.Receipt)
	}
	delete(m.claims, l.Receipt)
	return nil
}

func (m *Memory) Nack(ctx context.Context, l *structs.Lease) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.claims[l.Receipt]
	if !ok {
		// already swept back onto the queue
		return nil
	}
	delete(m.claims, l.Receipt)
	m.pending = append(m.pending, c.jobID)
	return nil
}

// requeueExpired must be called with the lock held.
func (m *Memory) requeueExpired() {
	now := m.now()
	for receipt, c := range m.claims {
		if c.expires.After(now) {
			continue
		}
		delete(m.claims, receipt)
		m.pending = append(m.pending, c.jobID)
	}
}
