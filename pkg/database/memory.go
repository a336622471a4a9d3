package database

import (
	"sort"
	"strings"
	"sync"

	"github.com/ostren/ember/pkg/structs"
)

// Memory is an in-process Database for tests & single-node setups.
// It honours the same etag semantics as the postgres implementation.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*structs.Job
	arts map[string]*structs.Artifact
}

func NewMemory() *Memory {
	return &Memory{
		jobs: map[string]*structs.Job{},
		arts: map[string]*structs.Artifact{},
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) InsertJob(j *structs.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.CreatedAt == 0 {
		j.CreatedAt = timeNow()
		j.UpdatedAt = j.CreatedAt
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *Memory) Jobs(q *structs.Query) ([]*structs.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*structs.Job{}
	for _, j := range m.jobs {
		if !matchStrs(q.JobIDs, j.ID) {
			continue
		}
		if !matchStrs(q.Ops, j.Op) {
			continue
		}
		if !matchStrs(statusToStrings(q.Statuses), string(j.Status)) {
			continue
		}
		cp := *j
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, k int) bool {
		if matched[i].CreatedAt == matched[k].CreatedAt {
			return strings.Compare(matched[i].ID, matched[k].ID) < 0
		}
		return matched[i].CreatedAt > matched[k].CreatedAt
	})

	if q.Offset >= len(matched) {
		return []*structs.Job{}, nil
	}
	matched = matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (m *Memory) CountJobs(statuses []structs.Status) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := statusToStrings(statuses)
	var count int64
	for _, j := range m.jobs {
		if matchStrs(want, string(j.Status)) {
			count++
		}
	}
	return count, nil
}

func (m *Memory) SetJobsStatus(status structs.Status, newTag string, ids []*structs.ObjectRef, msg ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var altered int64
	for _, ref := range ids {
		j := m.match(ref)
		if j == nil {
			continue
		}
		j.Status = status
		j.ETag = newTag
		j.UpdatedAt = timeNow()
		if len(msg) > 0 {
			j.Message = strings.Join(msg, " ")
		}
		altered++
	}
	return altered, nil
}

func (m *Memory) SetJobLeased(ref *structs.ObjectRef, newTag, workerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := m.match(ref)
	if j == nil {
		return 0, nil
	}
	j.Status = structs.LEASED
	j.ETag = newTag
	j.WorkerID = workerID
	j.Attempt++
	j.UpdatedAt = timeNow()
	return 1, nil
}

func (m *Memory) SetJobDone(ref *structs.ObjectRef, newTag, resultRef string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j := m.match(ref)
	if j == nil {
		return 0, nil
	}
	j.Status = structs.DONE
	j.ETag = newTag
	j.ResultRef = resultRef
	j.UpdatedAt = timeNow()
	return 1, nil
}

func (m *Memory) SetJobsCancelRequested(ids []*structs.ObjectRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var altered int64
	for _, ref := range ids {
		j := m.match(ref)
		if j == nil {
			continue
		}
		j.CancelRequested = true
		j.UpdatedAt = timeNow()
		altered++
	}
	return altered, nil
}

func (m *Memory) InsertArtifact(a *structs.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.CreatedAt == 0 {
		a.CreatedAt = timeNow()
	}
	cp := *a
	m.arts[a.JobID] = &cp
	return nil
}

func (m *Memory) Artifacts(jobIDs []string) ([]*structs.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*structs.Artifact{}
	for _, id := range jobIDs {
		a, ok := m.arts[id]
		if !ok {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

// match must be called with the lock held.
func (m *Memory) match(ref *structs.ObjectRef) *structs.Job {
	j, ok := m.jobs[ref.ID]
	if !ok || j.ETag != ref.ETag {
		return nil
	}
	return j
}

func matchStrs(want []string, have string) bool {
	if want == nil || len(want) == 0 {
		return true
	}
	for _, w := range want {
		if w == have {
			return true
		}
	}
	return false
}
