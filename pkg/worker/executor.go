package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

// Executor performs one kind of computation. Implementations must be
// idempotent: lease expiry can hand the same job to two workers.
type Executor interface {
	// Execute runs the job & returns the artifact bytes to store.
	Execute(ctx context.Context, job *structs.Job) ([]byte, error)
}

// ExecutorFunc adapts a plain function to the Executor interface.
type ExecutorFunc func(ctx context.Context, job *structs.Job) ([]byte, error)

func (f ExecutorFunc) Execute(ctx context.Context, job *structs.Job) ([]byte, error) {
	return f(ctx, job)
}

// Registry maps job ops to their executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

func NewRegistry() *Registry {
	return &Registry{executors: map[string]Executor{}}
}

// Register binds an op name to an executor. Jobs created with this op will
// be dispatched to it.
func (r *Registry) Register(op string, ex Executor) error {
	if op == "" {
		return errors.ErrNoOp
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.executors[op]; ok {
		return fmt.Errorf("%w executor for op %s already registered", errors.ErrNotSupported, op)
	}
	r.executors[op] = ex
	return nil
}

// Get returns the executor for the given op, or nil.
func (r *Registry) Get(op string) Executor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[op]
}

// Ops returns the registered op names.
func (r *Registry) Ops() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.executors))
	for op := range r.executors {
		out = append(out, op)
	}
	return out
}
