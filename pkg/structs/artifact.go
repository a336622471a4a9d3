package structs

// Artifact is the immutable output of a completed job.
//
// The artifact is the source of truth for a job's result; index documents
// derived from it are rebuildable projections.
type Artifact struct {
	// JobID is the job that produced this artifact.
	JobID string `json:"job_id"`

	// Location is an opaque pointer into the artifact store.
	Location string `json:"location"`

	// Checksum is the hex encoded sha256 of the artifact contents, computed
	// on write and verified on read.
	Checksum string `json:"checksum"`

	// Size is the artifact length in bytes.
	Size int64 `json:"size"`

	// CreatedAt is the time this artifact was written unix time in seconds
	CreatedAt int64 `json:"created_at"`
}
