package api

import (
	"context"

	"github.com/ostren/ember/pkg/structs"
)

// API represents the functions ember gateways expose.
type API interface {
	// Implemented in ember/internal/core.Service

	CreateJob(ctx context.Context, cjr *structs.CreateJobRequest) (*structs.CreateJobResponse, error)

	Job(id string) (*structs.JobStatusResponse, error)
	Jobs(q *structs.Query) ([]*structs.Job, error)
	Cancel(ids []string) (int64, error)

	Search(ctx context.Context, req *structs.SearchRequest) ([]*structs.SearchResult, error)
	Result(id string) ([]byte, error)
}

type Server interface {
	ServeForever(api API) error
	Close() error
}
