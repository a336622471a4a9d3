package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLeaseExcludesOthers(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.Nil(t, b.Enqueue(ctx, "j1"))

	l, err := b.Lease(ctx, "w1", time.Minute)
	require.Nil(t, err)
	require.NotNil(t, l)
	assert.Equal(t, "j1", l.JobID)
	assert.Equal(t, "w1", l.WorkerID)

	// job is invisible while the lease is live
	l2, err := b.Lease(ctx, "w2", time.Minute)
	require.Nil(t, err)
	assert.Nil(t, l2)
}

func TestMemoryAckRemoves(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.Nil(t, b.Enqueue(ctx, "j1"))
	l, err := b.Lease(ctx, "w1", time.Minute)
	require.Nil(t, err)
	require.Nil(t, b.Ack(ctx, l))

	// acked jobs never come back, even after expiry
	b.now = func() time.Time { return time.Now().Add(time.Hour) }
	l2, err := b.Lease(ctx, "w2", time.Minute)
	require.Nil(t, err)
	assert.Nil(t, l2)
}

func TestMemoryNackRequeues(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.Nil(t, b.Enqueue(ctx, "j1"))
	l, err := b.Lease(ctx, "w1", time.Minute)
	require.Nil(t, err)
	require.Nil(t, b.Nack(ctx, l))

	l2, err := b.Lease(ctx, "w2", time.Minute)
	require.Nil(t, err)
	require.NotNil(t, l2)
	assert.Equal(t, "j1", l2.JobID)
}

func TestMemoryExpiryRequeuesExactlyOnce(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.Nil(t, b.Enqueue(ctx, "j1"))
	l, err := b.Lease(ctx, "w1", time.Minute)
	require.Nil(t, err)
	require.NotNil(t, l)

	// lapse the lease
	b.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	l2, err := b.Lease(ctx, "w2", time.Hour)
	require.Nil(t, err)
	require.NotNil(t, l2)
	assert.Equal(t, "j1", l2.JobID)

	// exactly once: a third leaser sees nothing
	l3, err := b.Lease(ctx, "w3", time.Hour)
	require.Nil(t, err)
	assert.Nil(t, l3)

	// acking the lapsed lease is refused
	assert.NotNil(t, b.Ack(ctx, l))
}

func TestMemoryNackAfterExpiryIsNoop(t *testing.T) {
	b := NewMemory()
	ctx := context.Background()

	require.Nil(t, b.Enqueue(ctx, "j1"))
	l, err := b.Lease(ctx, "w1", time.Minute)
	require.Nil(t, err)

	b.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	l2, err := b.Lease(ctx, "w2", time.Hour)
	require.Nil(t, err)
	require.NotNil(t, l2)

	// old holder nacks after the sweep; job must not be duplicated
	require.Nil(t, b.Nack(ctx, l))
	l3, err := b.Lease(ctx, "w3", time.Hour)
	require.Nil(t, err)
	assert.Nil(t, l3)
}
