package core

import (
	"context"
	stderrors "errors"
	"fmt"
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

const (
	// max values
	maxNameLength = 500
	maxOpLength   = 500
	maxArgsLength = 10000
	maxRetries    = 100

	// defaults
	defAdmissionCeiling = 10000
	defBrokerAttempts   = 5
	defBrokerBackoff    = 250 * time.Millisecond
	defBrokerBackoffCap = 10 * time.Second
	defSearchLimit      = 10
	maxSearchLimit      = 100
)

var (
	// inflightStates count against the admission ceiling
	inflightStates = []structs.Status{
		structs.QUEUED,
		structs.LEASED,
		structs.RUNNING,
	}
)

// Options tune gateway behaviour.
type Options struct {
	// AdmissionCeiling is the max number of in-flight jobs before new
	// submissions are refused with ErrOverloaded.
	AdmissionCeiling int64

	// Broker retry knobs for enqueueing.
	BrokerAttempts   int
	BrokerBackoff    time.Duration
	BrokerBackoffCap time.Duration
}

func (o *Options) SetDefaults() {
	if o.AdmissionCeiling <= 0 {
		o.AdmissionCeiling = defAdmissionCeiling
	}
	if o.BrokerAttempts <= 0 {
		o.BrokerAttempts = defBrokerAttempts
	}
	if o.BrokerBackoff <= 0 {
		o.BrokerBackoff = defBrokerBackoff
	}
	if o.BrokerBackoffCap <= 0 {
		o.BrokerBackoffCap = defBrokerBackoffCap
	}
}

// Service is the gateway brain: it admits, records & enqueues new jobs,
// answers status questions and runs searches. Execution happens elsewhere
// (the worker pool); the service never leases.
type Service struct {
	db   database.Database
	qu   broker.Broker
	art  store.Store
	idx  search.Index
	opts *Options
}

func NewService(db database.Database, qu broker.Broker, art store.Store, idx search.Index, opts *Options) (*Service, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()
	return &Service{db: db, qu: qu, art: art, idx: idx, opts: opts}, nil
}

func (c *Service) Close() error {
	c.qu.Close()
	c.db.Close()
	return nil
}

// CreateJob validates, admits, records and enqueues a new job.
// The job row is written before the broker enqueue; if the broker is down
// past our retry budget the row is flipped to failed so it can't dangle
// queued forever.
func (c *Service) CreateJob(ctx context.Context, cjr *structs.CreateJobRequest) (*structs.CreateJobResponse, error) {
	err := validateJobSpec(&cjr.JobSpec)
	if err != nil {
		return nil, err
	}

	// admission check before we touch anything durable
	inflight, err := c.db.CountJobs(inflightStates)
	if err != nil {
		return nil, err
	}
	if inflight >= c.opts.AdmissionCeiling {
		return nil, fmt.Errorf("%w %d jobs in flight (ceiling %d)", errors.ErrOverloaded, inflight, c.opts.AdmissionCeiling)
	}

	job := &structs.Job{
		JobSpec: cjr.JobSpec,
		ID:      utils.NewRandomID(),
		Status:  structs.QUEUED,
		ETag:    utils.NewRandomID(),
	}
	if err := c.db.InsertJob(job); err != nil {
		return nil, err
	}

	err = broker.Retry(ctx, c.opts.BrokerAttempts, c.opts.BrokerBackoff, c.opts.BrokerBackoffCap, func() error {
		return c.qu.Enqueue(ctx, job.ID)
	})
	if err != nil {
		log.WithField("job", job.ID).Error("enqueue failed: ", err)
		_, derr := c.db.SetJobsStatus(structs.FAILED, utils.NewRandomID(),
			[]*structs.ObjectRef{structs.NewObjectRef(job.ID, job.ETag)},
			fmt.Sprintf("enqueue failed: %v", err))
		if derr != nil {
			log.WithField("job", job.ID).Error("failed to mark job failed: ", derr)
		}
		return nil, err
	}

	return &structs.CreateJobResponse{JobID: job.ID}, nil
}

// Job reports one job's status in client terms: every non-terminal state is
// "pending", done carries the result ref, failed the reason.
func (c *Service) Job(id string) (*structs.JobStatusResponse, error) {
	if !utils.IsValidID(id) {
		return nil, fmt.Errorf("%w invalid job id %q", errors.ErrInvalidRequest, id)
	}
	jobs, err := c.db.Jobs(&structs.Query{JobIDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w job %s", errors.ErrNotFound, id)
	}

	job := jobs[0]
	resp := &structs.JobStatusResponse{JobID: job.ID}
	switch job.Status {
	case structs.DONE:
		resp.Status = string(structs.DONE)
		resp.Result = job.ResultRef
	case structs.FAILED:
		resp.Status = string(structs.FAILED)
		resp.Error = job.Message
	default:
		resp.Status = "pending"
	}
	return resp, nil
}

// Jobs lists full job records matching the query.
func (c *Service) Jobs(q *structs.Query) ([]*structs.Job, error) {
	q.Sanitize()
	return c.db.Jobs(q)
}

// Cancel flags the given jobs so the next worker that sees them drops them.
// Jobs already settled are left alone; returns how many were flagged.
func (c *Service) Cancel(ids []string) (int64, error) {
	for _, id := range ids {
		if !utils.IsValidID(id) {
			return 0, fmt.Errorf("%w invalid job id %q", errors.ErrInvalidRequest, id)
		}
	}
	jobs, err := c.db.Jobs(&structs.Query{JobIDs: ids, Limit: len(ids)})
	if err != nil {
		return 0, err
	}

	refs := []*structs.ObjectRef{}
	for _, j := range jobs {
		if structs.IsFinalStatus(j.Status) {
			continue
		}
		refs = append(refs, structs.NewObjectRef(j.ID, j.ETag))
	}
	if len(refs) == 0 {
		return 0, nil
	}
	return c.db.SetJobsCancelRequested(refs)
}

// Search embeds the query text and returns jobs ranked by similarity.
func (c *Service) Search(ctx context.Context, req *structs.SearchRequest) ([]*structs.SearchResult, error) {
	if req.Text == "" {
		return nil, fmt.Errorf("%w search text is required", errors.ErrInvalidRequest)
	}
	if req.Limit <= 0 {
		req.Limit = defSearchLimit
	}
	if req.Limit > maxSearchLimit {
		req.Limit = maxSearchLimit
	}
	return c.idx.Query(ctx, req.Text, req.Limit)
}

// Result returns the artifact bytes for a done job, checksum verified.
// A corrupt artifact is fatal: the job flips to failed so callers stop
// trusting a result that no longer exists.
func (c *Service) Result(id string) ([]byte, error) {
	if !utils.IsValidID(id) {
		return nil, fmt.Errorf("%w invalid job id %q", errors.ErrInvalidRequest, id)
	}
	jobs, err := c.db.Jobs(&structs.Query{JobIDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w job %s", errors.ErrNotFound, id)
	}

	job := jobs[0]
	if job.Status != structs.DONE {
		return nil, fmt.Errorf("%w job %s is %s, not done", errors.ErrInvalidState, id, job.Status)
	}

	data, err := c.art.Read(job.ResultRef)
	if stderrors.Is(err, errors.ErrCorruptArtifact) {
		log.WithField("job", job.ID).Error("artifact failed verification: ", err)
		_, derr := c.db.SetJobsStatus(structs.FAILED, utils.NewRandomID(),
			[]*structs.ObjectRef{structs.NewObjectRef(job.ID, job.ETag)},
			fmt.Sprintf("corrupt artifact: %v", err))
		if derr != nil {
			log.WithField("job", job.ID).Error("failed to mark job failed: ", derr)
		}
	}
	return data, err
}

func validateJobSpec(spec *structs.JobSpec) error {
	if spec.Op == "" {
		return errors.ErrNoOp
	}
	if len(spec.Op) > maxOpLength {
		return fmt.Errorf("%w op exceeds %d chars", errors.ErrMaxExceeded, maxOpLength)
	}
	if len(spec.Name) > maxNameLength {
		return fmt.Errorf("%w name exceeds %d chars", errors.ErrMaxExceeded, maxNameLength)
	}
	if len(spec.Args) > maxArgsLength {
		return fmt.Errorf("%w args exceed %d bytes", errors.ErrMaxExceeded, maxArgsLength)
	}
	if spec.Retries < 0 || spec.Retries > maxRetries {
		return fmt.Errorf("%w retries must be 0..%d", errors.ErrInvalidRequest, maxRetries)
	}
	return nil
}
