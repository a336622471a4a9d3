package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ostren/ember/internal/utils"
	"github.com/ostren/ember/pkg/broker"
	"github.com/ostren/ember/pkg/database"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/search"
	"github.com/ostren/ember/pkg/store"
	"github.com/ostren/ember/pkg/structs"
)

// IndexSink receives completed artifacts for (eventual) indexing.
// Implementations must not block job completion on index availability.
type IndexSink interface {
	EnqueueUpsert(doc *search.Document) error
}

// ContentIndexer is implemented by executors that know what text of a job
// is worth indexing.
type ContentIndexer interface {
	IndexContent(job *structs.Job) string
}

// Options configure a worker pool.
type Options struct {
	// Size is how many jobs the pool works on concurrently.
	Size int

	// LeaseTTL is the visibility timeout requested per lease. Must exceed
	// the longest expected execution plus margin or jobs run twice.
	LeaseTTL time.Duration

	// IdleDelay is how long a worker sleeps when the queue is empty.
	IdleDelay time.Duration

	// BrokerAttempts / BrokerBackoff / BrokerBackoffCap bound retries when
	// the broker is unreachable.
	BrokerAttempts   int
	BrokerBackoff    time.Duration
	BrokerBackoffCap time.Duration
}

func OptionsDefault() *Options {
	return &Options{
		Size:             4,
		LeaseTTL:         5 * time.Minute,
		IdleDelay:        time.Second,
		BrokerAttempts:   5,
		BrokerBackoff:    250 * time.Millisecond,
		BrokerBackoffCap: 10 * time.Second,
	}
}

// Pool runs a fixed number of workers, each leasing one job at a time:
// lease -> execute -> write artifact -> flip status -> ack.
//
// The artifact is always written before the status flips to done, so done
// implies a readable artifact; a crash in between leaves the job running
// and the lease expiry re-runs it.
type Pool struct {
	qu    broker.Broker
	db    database.Database
	art   store.Store
	index IndexSink
	reg   *Registry
	opts  *Options
}

func NewPool(qu broker.Broker, db database.Database, art store.Store, index IndexSink, reg *Registry, opts *Options) *Pool {
	if opts == nil {
		opts = OptionsDefault()
	}
	return &Pool{qu: qu, db: db, art: art, index: index, reg: reg, opts: opts}
}

// Run blocks until ctx is done, processing jobs on opts.Size workers.
func (p *Pool) Run(ctx context.Context) {
	wg := sync.WaitGroup{}
	for i := 0; i < p.opts.Size; i++ {
		workerID := fmt.Sprintf("worker-%s", utils.NewRandomID()[:8])
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}
	wg.Wait()
}

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	wlog := log.WithField("worker", workerID)
	wlog.Info("worker started")
	for {
		select {
		case <-ctx.Done():
			wlog.Info("worker stopping")
			return
		default:
		}

		worked, err := p.ProcessOne(ctx, workerID)
		if err != nil {
			wlog.Warn("process failed: ", err)
		}
		if !worked {
			select {
			case <-time.After(p.opts.IdleDelay):
			case <-ctx.Done():
			}
		}
	}
}

// ProcessOne leases & fully handles a single job. Returns false when the
// queue had nothing for us.
func (p *Pool) ProcessOne(ctx context.Context, workerID string) (bool, error) {
	var lease *structs.Lease
	err := broker.Retry(ctx, p.opts.BrokerAttempts, p.opts.BrokerBackoff, p.opts.BrokerBackoffCap, func() error {
		var lerr error
		lease, lerr = p.qu.Lease(ctx, workerID, p.opts.LeaseTTL)
		return lerr
	})
	if err != nil {
		return false, err
	}
	if lease == nil {
		return false, nil
	}

	jlog := log.WithField("worker", workerID).WithField("job", lease.JobID)

	job, err := p.loadJob(lease.JobID)
	if err != nil {
		return true, err
	}
	if job == nil || structs.IsFinalStatus(job.Status) {
		// stale delivery (duplicate or already settled); drop it
		return true, p.qu.Ack(ctx, lease)
	}
	if job.CancelRequested {
		jlog.Info("dropping cancelled job")
		return true, p.settleFailed(ctx, lease, job, "cancelled before execution")
	}

	// claim it in the database; a stale etag means someone else got here
	// after our broker lease was swept, let them have it
	tag := utils.NewRandomID()
	altered, err := p.db.SetJobLeased(structs.NewObjectRef(job.ID, job.ETag), tag, workerID)
	if err != nil {
		return true, err
	}
	if altered == 0 {
		jlog.Info("lost claim race, skipping")
		return true, p.qu.Nack(ctx, lease)
	}
	job.ETag = tag
	job.Attempt++

	tag = utils.NewRandomID()
	_, err = p.db.SetJobsStatus(structs.RUNNING, tag, []*structs.ObjectRef{structs.NewObjectRef(job.ID, job.ETag)})
	if err != nil {
		return true, err
	}
	job.ETag = tag

	ex := p.reg.Get(job.Op)
	if ex == nil {
		jlog.Warn("no executor for op ", job.Op)
		return true, p.settleFailed(ctx, lease, job, fmt.Sprintf("no executor registered for op %q", job.Op))
	}

	jlog.Info("executing op ", job.Op, " attempt ", job.Attempt)
	data, err := ex.Execute(ctx, job)
	if err != nil {
		return true, p.settleError(ctx, lease, job, err)
	}

	// last look before the write; after it the artifact stands
	fresh, err := p.loadJob(job.ID)
	if err != nil {
		return true, err
	}
	if fresh != nil && fresh.CancelRequested {
		jlog.Info("dropping cancelled job post execution")
		return true, p.settleFailed(ctx, lease, job, "cancelled during execution")
	}

	art, err := p.art.Write(job.ID, data)
	if err != nil {
		return true, p.settleError(ctx, lease, job, fmt.Errorf("%w artifact write: %v", errors.ErrExecution, err))
	}
	if err := p.db.InsertArtifact(art); err != nil {
		return true, p.settleError(ctx, lease, job, fmt.Errorf("%w artifact record: %v", errors.ErrExecution, err))
	}

	tag = utils.NewRandomID()
	_, err = p.db.SetJobDone(structs.NewObjectRef(job.ID, job.ETag), tag, art.Location)
	if err != nil {
		return true, err
	}

	p.enqueueIndex(job, art, ex)

	jlog.Info("job done, artifact at ", art.Location)
	return true, p.qu.Ack(ctx, lease)
}

// settleError records a failed attempt, requeueing if retries remain.
func (p *Pool) settleError(ctx context.Context, lease *structs.Lease, job *structs.Job, execErr error) error {
	if job.Attempt > job.Retries {
		return p.settleFailed(ctx, lease, job, fmt.Sprintf("retries exhausted after attempt %d: %v", job.Attempt, execErr))
	}

	tag := utils.NewRandomID()
	_, err := p.db.SetJobsStatus(structs.QUEUED, tag, []*structs.ObjectRef{structs.NewObjectRef(job.ID, job.ETag)}, execErr.Error())
	if err != nil {
		return err
	}
	return p.qu.Nack(ctx, lease)
}

// settleFailed marks the job permanently failed & removes it from the queue.
func (p *Pool) settleFailed(ctx context.Context, lease *structs.Lease, job *structs.Job, reason string) error {
	tag := utils.NewRandomID()
	_, err := p.db.SetJobsStatus(structs.FAILED, tag, []*structs.ObjectRef{structs.NewObjectRef(job.ID, job.ETag)}, reason)
	if err != nil {
		return err
	}
	return p.qu.Ack(ctx, lease)
}

// enqueueIndex hands the finished artifact to the index sink. Failures are
// logged, never propagated; the index retries on its own schedule.
func (p *Pool) enqueueIndex(job *structs.Job, art *structs.Artifact, ex Executor) {
	if p.index == nil {
		return
	}
	content := ""
	if ci, ok := ex.(ContentIndexer); ok {
		content = ci.IndexContent(job)
	}
	err := p.index.EnqueueUpsert(&search.Document{
		JobID:    job.ID,
		Location: art.Location,
		Checksum: art.Checksum,
		Content:  content,
	})
	if err != nil {
		log.WithField("job", job.ID).Warn("index enqueue failed: ", err)
	}
}

func (p *Pool) loadJob(id string) (*structs.Job, error) {
	jobs, err := p.db.Jobs(&structs.Query{JobIDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return jobs[0], nil
}
