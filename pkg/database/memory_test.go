package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ostren/ember/pkg/structs"
)

func testJob(id, etag string) *structs.Job {
	return &structs.Job{
		JobSpec: structs.JobSpec{Op: "embed", Retries: 3},
		ID:      id,
		Status:  structs.QUEUED,
		ETag:    etag,
	}
}

func TestMemoryInsertAndQuery(t *testing.T) {
	db := NewMemory()
	require.Nil(t, db.InsertJob(testJob("j1", "e1")))
	require.Nil(t, db.InsertJob(testJob("j2", "e2")))

	jobs, err := db.Jobs(&structs.Query{Limit: 10, JobIDs: []string{"j1"}})
	require.Nil(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "j1", jobs[0].ID)

	jobs, err = db.Jobs(&structs.Query{Limit: 10, Statuses: []structs.Status{structs.QUEUED}})
	require.Nil(t, err)
	assert.Len(t, jobs, 2)

	count, err := db.CountJobs([]structs.Status{structs.QUEUED, structs.RUNNING})
	require.Nil(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryETagGuardsUpdates(t *testing.T) {
	db := NewMemory()
	require.Nil(t, db.InsertJob(testJob("j1", "e1")))

	// stale etag alters nothing
	altered, err := db.SetJobsStatus(structs.RUNNING, "e2", []*structs.ObjectRef{structs.NewObjectRef("j1", "stale")})
	require.Nil(t, err)
	assert.Equal(t, int64(0), altered)

	altered, err = db.SetJobsStatus(structs.RUNNING, "e2", []*structs.ObjectRef{structs.NewObjectRef("j1", "e1")})
	require.Nil(t, err)
	assert.Equal(t, int64(1), altered)

	jobs, err := db.Jobs(&structs.Query{Limit: 1, JobIDs: []string{"j1"}})
	require.Nil(t, err)
	assert.Equal(t, structs.RUNNING, jobs[0].Status)
	assert.Equal(t, "e2", jobs[0].ETag)
}

func TestMemorySetJobLeased(t *testing.T) {
	db := NewMemory()
	require.Nil(t, db.InsertJob(testJob("j1", "e1")))

	altered, err := db.SetJobLeased(structs.NewObjectRef("j1", "e1"), "e2", "w1")
	require.Nil(t, err)
	assert.Equal(t, int64(1), altered)

	jobs, _ := db.Jobs(&structs.Query{Limit: 1, JobIDs: []string{"j1"}})
	assert.Equal(t, structs.LEASED, jobs[0].Status)
	assert.Equal(t, "w1", jobs[0].WorkerID)
	assert.Equal(t, int64(1), jobs[0].Attempt)
}

func TestMemorySetJobDone(t *testing.T) {
	db := NewMemory()
	require.Nil(t, db.InsertJob(testJob("j1", "e1")))
	require.Nil(t, db.InsertArtifact(&structs.Artifact{JobID: "j1", Location: "art/j1", Checksum: "abc", Size: 3}))

	altered, err := db.SetJobDone(structs.NewObjectRef("j1", "e1"), "e2", "art/j1")
	require.Nil(t, err)
	assert.Equal(t, int64(1), altered)

	jobs, _ := db.Jobs(&structs.Query{Limit: 1, JobIDs: []string{"j1"}})
	assert.Equal(t, structs.DONE, jobs[0].Status)
	assert.Equal(t, "art/j1", jobs[0].ResultRef)

	arts, err := db.Artifacts([]string{"j1"})
	require.Nil(t, err)
	require.Len(t, arts, 1)
	assert.Equal(t, "art/j1", arts[0].Location)
}

func TestMemoryCancelRequested(t *testing.T) {
	db := NewMemory()
	require.Nil(t, db.InsertJob(testJob("j1", "e1")))

	altered, err := db.SetJobsCancelRequested([]*structs.ObjectRef{structs.NewObjectRef("j1", "e1")})
	require.Nil(t, err)
	assert.Equal(t, int64(1), altered)

	jobs, _ := db.Jobs(&structs.Query{Limit: 1, JobIDs: []string{"j1"}})
	assert.True(t, jobs[0].CancelRequested)
}
