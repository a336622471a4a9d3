package structs

import (
	"encoding/json"
)

// JobSpec are fields that can be set when a job is created
type JobSpec struct {
	// Op is the computation this job asks for. This should match the name
	// of a registered executor.
	//
	// Required.
	Op string `json:"op"`

	// Args is data the executor should use, op specific.
	Args json.RawMessage `json:"args"`

	// Name is an optional human readable name for this job
	Name string `json:"name"`

	// Retries is the number of times this job may be re-run on failure(s).
	Retries int64 `json:"retries"`
}

// Job represents a single unit of work that needs to be done.
type Job struct {
	// JobSpec are fields that can be set when a job is created
	JobSpec `json:",inline"`

	// ID is a unique identifier for this job
	ID string `json:"id"`

	// Status is the current status of this job
	Status Status `json:"status"`

	// ETag is used when updating a job for optimistic locking
	ETag string `json:"etag"`

	// Attempt is how many times this job has been handed to a worker.
	Attempt int64 `json:"attempt"`

	// CancelRequested asks the next worker that looks at this job to drop it.
	// Not honored once an artifact has been written.
	CancelRequested bool `json:"cancel_requested"`

	// WorkerID is the worker currently (or last) holding this job's lease.
	WorkerID string `json:"worker_id"`

	// Message is a human readable reason for the current status, set on failure.
	Message string `json:"message"`

	// ResultRef points into the artifact store once the job is done.
	ResultRef string `json:"result_ref"`

	// CreatedAt is the time this job was created unix time in seconds
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the time this job was last updated unix time in seconds
	UpdatedAt int64 `json:"updated_at"`
}
