package search

import (
	"context"

	"github.com/ostren/ember/pkg/structs"
)

// Document is what we project into the index for one artifact. It is a
// rebuildable view; the artifact itself stays authoritative.
type Document struct {
	JobID    string `json:"job_id"`
	Location string `json:"location"`
	Checksum string `json:"checksum"`

	// Content is the text the document is ranked by.
	Content string `json:"content"`
}

// Index stores artifact projections and answers ranked queries.
type Index interface {
	// Upsert writes the document, replacing any previous version for the
	// same job. Upserting the same document twice yields one document.
	Upsert(ctx context.Context, doc *Document) error

	// Query ranks indexed documents against the given text.
	Query(ctx context.Context, text string, limit int) ([]*structs.SearchResult, error)

	Close() error
}
