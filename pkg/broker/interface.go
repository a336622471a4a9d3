package broker

import (
	"context"
	"time"

	"github.com/ostren/ember/pkg/structs"
)

// Broker is a thin reliable-delivery wrapper around a queue backend.
//
// Delivery is at-least-once: a leased job is invisible to other leasers until
// the lease expires, after which it is handed out again if it was neither
// Acked nor Nacked. Executors must therefore tolerate duplicate execution.
type Broker interface {
	// Enqueue makes the given job visible to leasers.
	Enqueue(ctx context.Context, jobID string) error

	// Lease claims the next visible job exclusively for ttl. Returns nil
	// (no error) when nothing is available within the poll window.
	Lease(ctx context.Context, workerID string, ttl time.Duration) (*structs.Lease, error)

	// Ack marks the leased job delivered; it will not be handed out again.
	Ack(ctx context.Context, l *structs.Lease) error

	// Nack returns the leased job to the queue immediately.
	Nack(ctx context.Context, l *structs.Lease) error

	// Close shuts down the broker connection.
	Close() error
}
