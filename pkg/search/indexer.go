package search

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

const (
	// TypeIndexUpsert is the queued task that projects one artifact into
	// the index.
	TypeIndexUpsert = "index:upsert"

	indexQueue    = "ember:index"
	indexMaxRetry = 10
	indexTimeout  = 30 * time.Second
)

// Indexer decouples indexing from job completion: upserts are queued and
// retried with backoff, so a down search backend never fails a job. The
// worst case is a stale index, which a rebuild fixes.
type Indexer struct {
	cli *asynq.Client
}

// NewIndexer returns an Indexer enqueueing onto the given redis backend.
func NewIndexer(redisURL string) (*Indexer, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	return &Indexer{cli: asynq.NewClient(opt)}, nil
}

func (i *Indexer) Close() error {
	return i.cli.Close()
}

// EnqueueUpsert schedules the document for (re)indexing.
func (i *Indexer) EnqueueUpsert(doc *Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeIndexUpsert, payload)
	_, err = i.cli.Enqueue(task,
		asynq.Queue(indexQueue),
		asynq.MaxRetry(indexMaxRetry),
		asynq.Timeout(indexTimeout),
	)
	return err
}

// RunIndexServer consumes queued upserts & applies them to the index.
// Blocks until the server errors or is shut down; failed upserts are
// retried by the queue with its default backoff.
func RunIndexServer(redisURL string, index Index) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, err
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Queues:      map[string]int{indexQueue: 1},
		Concurrency: 2,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeIndexUpsert, func(ctx context.Context, t *asynq.Task) error {
		doc := &Document{}
		if err := json.Unmarshal(t.Payload(), doc); err != nil {
			return err
		}
		err := index.Upsert(ctx, doc)
		if err != nil {
			log.WithField("job", doc.JobID).Warn("index upsert failed, will retry: ", err)
		}
		return err
	})

	go func() {
		if err := srv.Run(mux); err != nil {
			log.Error("index server stopped: ", err)
		}
	}()
	return srv, nil
}
