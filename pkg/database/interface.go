package database

import (
	"github.com/ostren/ember/pkg/structs"
)

// Database is the source of truth for job & artifact records.
//
// Status flips take ObjectRefs (id + etag) so concurrent writers can't
// clobber each other: an update given a stale etag alters nothing.
type Database interface {
	InsertJob(j *structs.Job) error

	Jobs(q *structs.Query) ([]*structs.Job, error)

	// CountJobs returns how many jobs are in any of the given states.
	// The gateway uses this for admission control.
	CountJobs(statuses []structs.Status) (int64, error)

	SetJobsStatus(status structs.Status, newTag string, ids []*structs.ObjectRef, msg ...string) (int64, error)

	// SetJobLeased moves a job to leased, recording the holder and bumping
	// the attempt counter.
	SetJobLeased(ref *structs.ObjectRef, newTag, workerID string) (int64, error)

	// SetJobDone moves a job to done with its artifact pointer. The artifact
	// row must already exist; done always implies a readable artifact.
	SetJobDone(ref *structs.ObjectRef, newTag, resultRef string) (int64, error)

	// SetJobsCancelRequested flags jobs so the next worker to look drops them.
	SetJobsCancelRequested(ids []*structs.ObjectRef) (int64, error)

	InsertArtifact(a *structs.Artifact) error

	Artifacts(jobIDs []string) ([]*structs.Artifact, error)

	Close() error
}
