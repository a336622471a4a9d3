package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostren/ember/internal/utils"
	"github.com/ostren/ember/pkg/broker"
	"github.com/ostren/ember/pkg/database"
	"github.com/ostren/ember/pkg/embedding"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/search"
	"github.com/ostren/ember/pkg/store"
	"github.com/ostren/ember/pkg/structs"
	"github.com/ostren/ember/pkg/worker"
)

type svcFixture struct {
	root string
	db   *database.Memory
	qu   *broker.Memory
	art  *store.Filesystem
	idx  *search.Memory
	svc  *Service
}

func newSvcFixture(t *testing.T, opts *Options) *svcFixture {
	t.Helper()
	root := t.TempDir()
	art, err := store.NewFilesystem(root)
	require.Nil(t, err)

	f := &svcFixture{
		root: root,
		db:   database.NewMemory(),
		qu:   broker.NewMemory(),
		art:  art,
		idx:  search.NewMemory(embedding.NewLocal(64)),
	}
	if opts == nil {
		opts = &Options{BrokerAttempts: 1, BrokerBackoff: time.Millisecond, BrokerBackoffCap: time.Millisecond}
	}
	f.svc, err = NewService(f.db, f.qu, f.art, f.idx, opts)
	require.Nil(t, err)
	return f
}

func (f *svcFixture) create(t *testing.T, op string, args string) string {
	t.Helper()
	resp, err := f.svc.CreateJob(context.Background(), &structs.CreateJobRequest{
		JobSpec: structs.JobSpec{Op: op, Args: json.RawMessage(args)},
	})
	require.Nil(t, err)
	require.True(t, utils.IsValidID(resp.JobID))
	return resp.JobID
}

// runWorker drains the queue through a real pool so service tests exercise
// the whole submit -> execute -> report path.
func (f *svcFixture) runWorker(t *testing.T, reg *worker.Registry) {
	t.Helper()
	pool := worker.NewPool(f.qu, f.db, f.art, nil, reg, &worker.Options{
		Size: 1, LeaseTTL: time.Minute, IdleDelay: time.Millisecond,
		BrokerAttempts: 1, BrokerBackoff: time.Millisecond, BrokerBackoffCap: time.Millisecond,
	})
	for {
		worked, err := pool.ProcessOne(context.Background(), "test-worker")
		require.Nil(t, err)
		if !worked {
			return
		}
	}
}

func echoRegistry(t *testing.T) *worker.Registry {
	t.Helper()
	reg := worker.NewRegistry()
	require.Nil(t, reg.Register("echo", worker.ExecutorFunc(func(ctx context.Context, job *structs.Job) ([]byte, error) {
		return job.Args, nil
	})))
	return reg
}

func TestCreateJobThroughToDone(t *testing.T) {
	f := newSvcFixture(t, nil)

	id := f.create(t, "echo", `{"n": 1}`)

	// visible as pending before any worker touches it
	status, err := f.svc.Job(id)
	require.Nil(t, err)
	assert.Equal(t, "pending", status.Status)
	assert.Empty(t, status.Result)

	f.runWorker(t, echoRegistry(t))

	status, err = f.svc.Job(id)
	require.Nil(t, err)
	assert.Equal(t, "done", status.Status)
	assert.Equal(t, "art/"+id, status.Result)
	assert.Empty(t, status.Error)

	data, err := f.svc.Result(id)
	require.Nil(t, err)
	assert.Equal(t, []byte(`{"n": 1}`), data)
}

func TestCreateJobValidates(t *testing.T) {
	f := newSvcFixture(t, nil)

	cases := []struct {
		Name string
		Spec structs.JobSpec
		Err  error
	}{
		{"NoOp", structs.JobSpec{}, errors.ErrNoOp},
		{"ArgsTooLarge", structs.JobSpec{Op: "echo", Args: make([]byte, maxArgsLength+1)}, errors.ErrMaxExceeded},
		{"NameTooLong", structs.JobSpec{Op: "echo", Name: string(make([]byte, maxNameLength+1))}, errors.ErrMaxExceeded},
		{"NegativeRetries", structs.JobSpec{Op: "echo", Retries: -1}, errors.ErrInvalidRequest},
		{"AbsurdRetries", structs.JobSpec{Op: "echo", Retries: maxRetries + 1}, errors.ErrInvalidRequest},
	}

	for _, tt := range cases {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := f.svc.CreateJob(context.Background(), &structs.CreateJobRequest{JobSpec: tt.Spec})
			assert.ErrorIs(t, err, tt.Err)
		})
	}
}

func TestCreateJobOverloaded(t *testing.T) {
	f := newSvcFixture(t, &Options{
		AdmissionCeiling: 1,
		BrokerAttempts:   1, BrokerBackoff: time.Millisecond, BrokerBackoffCap: time.Millisecond,
	})

	f.create(t, "echo", `{}`)

	_, err := f.svc.CreateJob(context.Background(), &structs.CreateJobRequest{
		JobSpec: structs.JobSpec{Op: "echo"},
	})
	assert.ErrorIs(t, err, errors.ErrOverloaded)

	// settled jobs don't count against the ceiling
	f.runWorker(t, echoRegistry(t))
	f.create(t, "echo", `{}`)
}

type downBroker struct {
	*broker.Memory
}

func (d *downBroker) Enqueue(ctx context.Context, jobID string) error {
	return fmt.Errorf("%w connection refused", errors.ErrBrokerUnavailable)
}

func TestCreateJobBrokerDown(t *testing.T) {
	f := newSvcFixture(t, nil)
	svc, err := NewService(f.db, &downBroker{f.qu}, f.art, f.idx, &Options{
		BrokerAttempts: 2, BrokerBackoff: time.Millisecond, BrokerBackoffCap: time.Millisecond,
	})
	require.Nil(t, err)

	_, err = svc.CreateJob(context.Background(), &structs.CreateJobRequest{
		JobSpec: structs.JobSpec{Op: "echo"},
	})
	require.NotNil(t, err)
	assert.ErrorIs(t, err, errors.ErrBrokerUnavailable)

	// the orphaned row must not sit queued forever
	jobs, err := f.db.Jobs(&structs.Query{Statuses: []structs.Status{structs.FAILED}, Limit: 10})
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0].Message, "enqueue failed")
}

func TestJobNotFound(t *testing.T) {
	f := newSvcFixture(t, nil)

	_, err := f.svc.Job(utils.NewRandomID())
	assert.ErrorIs(t, err, errors.ErrNotFound)

	_, err = f.svc.Job("not-a-valid-id")
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestJobFailureReported(t *testing.T) {
	f := newSvcFixture(t, nil)
	reg := worker.NewRegistry()
	require.Nil(t, reg.Register("boom", worker.ExecutorFunc(func(ctx context.Context, job *structs.Job) ([]byte, error) {
		return nil, fmt.Errorf("kaboom")
	})))

	id := f.create(t, "boom", `{}`)
	f.runWorker(t, reg)

	status, err := f.svc.Job(id)
	require.Nil(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Contains(t, status.Error, "kaboom")

	_, err = f.svc.Result(id)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}

func TestCancel(t *testing.T) {
	f := newSvcFixture(t, nil)

	pending := f.create(t, "echo", `{}`)
	settled := f.create(t, "echo", `{}`)

	// settle one of them
	f.runWorker(t, echoRegistry(t))

	count, err := f.svc.Cancel([]string{pending, settled})
	require.Nil(t, err)
	// both ran above, nothing left to cancel
	assert.Equal(t, int64(0), count)

	fresh := f.create(t, "echo", `{}`)
	count, err = f.svc.Cancel([]string{fresh})
	require.Nil(t, err)
	assert.Equal(t, int64(1), count)

	// the flagged job is dropped, not run
	f.runWorker(t, echoRegistry(t))
	status, err := f.svc.Job(fresh)
	require.Nil(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Contains(t, status.Error, "cancelled")
}

func TestCancelRejectsBadID(t *testing.T) {
	f := newSvcFixture(t, nil)

	_, err := f.svc.Cancel([]string{"nope"})
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestSearch(t *testing.T) {
	f := newSvcFixture(t, nil)
	ctx := context.Background()

	require.Nil(t, f.idx.Upsert(ctx, &search.Document{JobID: "a1", Location: "art/a1", Content: "grey wolf"}))
	require.Nil(t, f.idx.Upsert(ctx, &search.Document{JobID: "b2", Location: "art/b2", Content: "stock ticker"}))

	results, err := f.svc.Search(ctx, &structs.SearchRequest{Text: "grey wolf"})
	require.Nil(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "a1", results[0].JobID)

	_, err = f.svc.Search(ctx, &structs.SearchRequest{})
	assert.ErrorIs(t, err, errors.ErrInvalidRequest)
}

func TestResultChecksumVerified(t *testing.T) {
	f := newSvcFixture(t, nil)

	id := f.create(t, "echo", `{"x": true}`)
	f.runWorker(t, echoRegistry(t))

	data, err := f.svc.Result(id)
	require.Nil(t, err)
	assert.Equal(t, []byte(`{"x": true}`), data)

	// flip bits on disk behind the store's back
	require.Nil(t, os.WriteFile(filepath.Join(f.root, "art", id), []byte("tampered"), 0644))

	_, err = f.svc.Result(id)
	assert.ErrorIs(t, err, errors.ErrCorruptArtifact)
}

func TestResultCorruptionFailsJob(t *testing.T) {
	f := newSvcFixture(t, nil)

	id := f.create(t, "echo", `{"x": true}`)
	f.runWorker(t, echoRegistry(t))

	require.Nil(t, os.WriteFile(filepath.Join(f.root, "art", id), []byte("tampered"), 0644))

	_, err := f.svc.Result(id)
	require.ErrorIs(t, err, errors.ErrCorruptArtifact)

	// corruption is fatal; the job must stop reporting done
	status, err := f.svc.Job(id)
	require.Nil(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Contains(t, status.Error, "corrupt artifact")

	_, err = f.svc.Result(id)
	assert.ErrorIs(t, err, errors.ErrInvalidState)
}
