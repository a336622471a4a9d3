package structs

type CreateJobRequest struct {
	JobSpec `json:",inline"`
}

// CreateJobResponse acknowledges an accepted job; the work happens later.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// JobStatusResponse is the gateway's view of a job's progress.
//
// Status is "done" or "failed" for finished jobs and "pending" otherwise;
// exactly one of Result / Error is set for finished jobs.
type JobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}
