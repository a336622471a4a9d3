package search

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ostren/ember/pkg/embedding"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

const tableIndex = "index_documents"

// Postgres is an Index over a pgvector table. Ranking is cosine similarity
// between the stored document embedding and the embedded query text.
type Postgres struct {
	pool     *pgxpool.Pool
	provider embedding.Provider
}

// NewPostgres returns a pgvector backed Index.
func NewPostgres(url string, provider embedding.Provider) (*Postgres, error) {
	pool, err := pgxpool.New(context.Background(), url)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}
	return &Postgres{pool: pool, provider: provider}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, doc *Document) error {
	vecs, err := p.provider.Embed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}

	qstr := fmt.Sprintf(`INSERT INTO %s (job_id, location, checksum, content, embedding, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (job_id) DO UPDATE SET location=$2, checksum=$3, content=$4, embedding=$5, updated_at=$6;`, tableIndex)
	args := []interface{}{
		doc.JobID, doc.Location, doc.Checksum, doc.Content,
		pgvector.NewVector(vecs[0]), time.Now().Unix(),
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, qstr, args...)
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}
	return nil
}

func (p *Postgres) Query(ctx context.Context, text string, limit int) ([]*structs.SearchResult, error) {
	vecs, err := p.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}

	qstr := fmt.Sprintf(`SELECT job_id, location, 1 - (embedding <=> $1) AS score
	FROM %s ORDER BY embedding <=> $1 LIMIT $2;`, tableIndex)

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, pgvector.NewVector(vecs[0]), limit)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrSearchUnavailable, err)
	}

	results := []*structs.SearchResult{}
	for rows.Next() {
		r := structs.SearchResult{}
		err = rows.Scan(&r.JobID, &r.Location, &r.Score)
		if err != nil {
			return nil, err
		}
		results = append(results, &r)
	}

	return results, nil
}
