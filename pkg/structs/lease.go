package structs

// Lease is a time-bounded exclusive claim on a queued job.
//
// The broker guarantees at most one non-expired lease per job; a lease that
// is neither Acked nor Nacked becomes invalid at ExpiresAt and the job is
// visible to other leasers again.
type Lease struct {
	// JobID is the job this lease claims.
	JobID string `json:"job_id"`

	// WorkerID identifies the holder.
	WorkerID string `json:"worker_id"`

	// Receipt is the broker's handle for this particular claim. Ack / Nack
	// require it; a stale receipt (post expiry) is rejected.
	Receipt string `json:"receipt"`

	// ExpiresAt is when this lease lapses, unix time in seconds.
	ExpiresAt int64 `json:"expires_at"`
}
