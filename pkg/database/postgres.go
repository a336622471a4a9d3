package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ostren/ember/pkg/structs"
)

const (
	tableJobs      = "jobs"
	tableArtifacts = "artifacts"
)

// Postgres is an ember database implementation that uses postgres.
type Postgres struct {
	opts *Options
	pool *pgxpool.Pool
}

// NewPostgres returns a new Postgres database connection.
func NewPostgres(opts *Options) (*Postgres, error) {
	opts.SetDefaults()
	opts.URL = strings.Replace(opts.URL, "$"+opts.UsernameEnvVar, os.Getenv(opts.UsernameEnvVar), 1)
	opts.URL = strings.Replace(opts.URL, "$"+opts.PasswordEnvVar, os.Getenv(opts.PasswordEnvVar), 1)
	pool, err := pgxpool.New(context.Background(), opts.URL)
	return &Postgres{pool: pool, opts: opts}, err
}

// Close shuts down the database connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// InsertJob inserts a job into the database.
func (p *Postgres) InsertJob(j *structs.Job) error {
	if j.CreatedAt == 0 {
		j.CreatedAt = timeNow()
		j.UpdatedAt = j.CreatedAt
	}
	qstr := fmt.Sprintf(`INSERT INTO %s
	(id, op, args, name, retries, status, etag, attempt, cancel_requested, worker_id, message, result_ref, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);`, tableJobs)
	args := []interface{}{
		j.ID, j.Op, []byte(j.Args), j.Name, j.Retries, j.Status, j.ETag,
		j.Attempt, j.CancelRequested, j.WorkerID, j.Message, j.ResultRef,
		j.CreatedAt, j.UpdatedAt,
	}

	ctx := context.Background()
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, qstr, args...)
	return err
}

// Jobs returns jobs matching the given query
func (p *Postgres) Jobs(q *structs.Query) ([]*structs.Job, error) {
	where, args := toSqlQuery(map[string][]string{
		"id":     q.JobIDs,
		"op":     q.Ops,
		"status": statusToStrings(q.Statuses),
	})
	args = append(args, q.Limit, q.Offset)

	qstr := fmt.Sprintf(`SELECT id, op, args, name, retries, status, etag, attempt, cancel_requested, worker_id, message, result_ref, created_at, updated_at
	FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		tableJobs, where, len(args)-1, len(args),
	)

	ctx := context.Background()
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}

	jobs := []*structs.Job{}
	for rows.Next() {
		j := structs.Job{}
		var rawArgs []byte
		err = rows.Scan(
			&j.ID,
			&j.Op,
			&rawArgs,
			&j.Name,
			&j.Retries,
			&j.Status,
			&j.ETag,
			&j.Attempt,
			&j.CancelRequested,
			&j.WorkerID,
			&j.Message,
			&j.ResultRef,
			&j.CreatedAt,
			&j.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		j.Args = rawArgs
		jobs = append(jobs, &j)
	}

	return jobs, nil
}

// CountJobs returns how many jobs are in any of the given states.
func (p *Postgres) CountJobs(statuses []structs.Status) (int64, error) {
	where, args := toSqlQuery(map[string][]string{
		"status": statusToStrings(statuses),
	})
	qstr := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s;`, tableJobs, where)

	ctx := context.Background()
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, qstr, args...).Scan(&count)
	return count, err
}

// SetJobsStatus sets the status of the given jobs
func (p *Postgres) SetJobsStatus(status structs.Status, newTag string, ids []*structs.ObjectRef, msg ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var qstr string
	var args []interface{}
	if msg == nil || len(msg) == 0 {
		qstr, args = toSqlTags(4, ids)
		qstr = fmt.Sprintf(`UPDATE %s SET status=$1, etag=$2, updated_at=$3 WHERE %s;`, tableJobs, qstr)
		args = append([]interface{}{status, newTag, timeNow()}, args...)
	} else {
		qstr, args = toSqlTags(5, ids)
		qstr = fmt.Sprintf(`UPDATE %s SET status=$1, etag=$2, updated_at=$3, message=$4 WHERE %s;`, tableJobs, qstr)
		args = append([]interface{}{status, newTag, timeNow(), strings.Join(msg, " ")}, args...)
	}

	return p.exec(qstr, args)
}

// SetJobLeased moves a job to leased, recording the holder & bumping attempts.
func (p *Postgres) SetJobLeased(ref *structs.ObjectRef, newTag, workerID string) (int64, error) {
	qstr := fmt.Sprintf(`UPDATE %s SET status=$1, etag=$2, updated_at=$3, worker_id=$4, attempt=attempt+1
	WHERE id=$5 AND etag=$6;`, tableJobs)
	args := []interface{}{structs.LEASED, newTag, timeNow(), workerID, ref.ID, ref.ETag}
	return p.exec(qstr, args)
}

// SetJobDone moves a job to done with its artifact pointer.
func (p *Postgres) SetJobDone(ref *structs.ObjectRef, newTag, resultRef string) (int64, error) {
	qstr := fmt.Sprintf(`UPDATE %s SET status=$1, etag=$2, updated_at=$3, result_ref=$4
	WHERE id=$5 AND etag=$6;`, tableJobs)
	args := []interface{}{structs.DONE, newTag, timeNow(), resultRef, ref.ID, ref.ETag}
	return p.exec(qstr, args)
}

// SetJobsCancelRequested flags the given jobs for cancellation.
func (p *Postgres) SetJobsCancelRequested(ids []*structs.ObjectRef) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	qstr, args := toSqlTags(2, ids)
	qstr = fmt.Sprintf(`UPDATE %s SET cancel_requested=true, updated_at=$1 WHERE %s;`, tableJobs, qstr)
	args = append([]interface{}{timeNow()}, args...)
	return p.exec(qstr, args)
}

// InsertArtifact inserts an artifact record.
func (p *Postgres) InsertArtifact(a *structs.Artifact) error {
	if a.CreatedAt == 0 {
		a.CreatedAt = timeNow()
	}
	// a retried job may legitimately re-write its artifact record
	qstr := fmt.Sprintf(`INSERT INTO %s (job_id, location, checksum, size, created_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (job_id) DO UPDATE SET location=$2, checksum=$3, size=$4, created_at=$5;`, tableArtifacts)
	args := []interface{}{a.JobID, a.Location, a.Checksum, a.Size, a.CreatedAt}

	_, err := p.exec(qstr, args)
	return err
}

// Artifacts returns artifact records for the given job ids.
func (p *Postgres) Artifacts(jobIDs []string) ([]*structs.Artifact, error) {
	where, args := toSqlQuery(map[string][]string{"job_id": jobIDs})
	args = append(args, len(jobIDs))

	qstr := fmt.Sprintf(`SELECT job_id, location, checksum, size, created_at FROM %s %s LIMIT $%d;`,
		tableArtifacts, where, len(args),
	)

	ctx := context.Background()
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, qstr, args...)
	if err != nil {
		return nil, err
	}

	arts := []*structs.Artifact{}
	for rows.Next() {
		a := structs.Artifact{}
		err = rows.Scan(&a.JobID, &a.Location, &a.Checksum, &a.Size, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		arts = append(arts, &a)
	}

	return arts, nil
}

// exec runs a single statement & returns the rows affected
func (p *Postgres) exec(qstr string, args []interface{}) (int64, error) {
	ctx := context.Background()
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	info, err := conn.Exec(ctx, qstr, args...)
	if err == nil {
		return info.RowsAffected(), nil
	}
	return 0, err
}

// toSqlQuery converts query data into a SQL query string & args
func toSqlQuery(in map[string][]string) (string, []interface{}) {
	if in == nil {
		in = map[string][]string{}
	}
	and := []string{}
	args := []interface{}{}
	for k, v := range in {
		if v == nil || len(v) == 0 {
			continue
		}
		s, a := toSqlIn(len(args)+1, k, v)
		and = append(and, s)
		args = append(args, a...)
	}
	if len(and) == 0 {
		return "", args
	}
	return fmt.Sprintf("WHERE %s", strings.Join(and, " AND ")), args
}

// toSqlIn converts a list of strings into a SQL IN clause
func toSqlIn(offset int, field string, args []string) (string, []interface{}) {
	if len(args) == 0 {
		return "", []interface{}{}
	}
	vals := []string{}
	ifargs := []interface{}{}
	for i, a := range args {
		vals = append(vals, fmt.Sprintf("$%d", i+offset))
		ifargs = append(ifargs, a)
	}
	return fmt.Sprintf("%s IN (%s)", field, strings.Join(vals, ", ")), ifargs
}

// toSqlTags converts a list of object refs into a SQL query string & args
func toSqlTags(offset int, ids []*structs.ObjectRef) (string, []interface{}) {
	vals := []string{}
	subs := []interface{}{}
	for _, id := range ids {
		vals = append(vals, fmt.Sprintf("(id=$%d AND etag=$%d)", offset+len(subs), offset+len(subs)+1))
		subs = append(subs, id.ID, id.ETag)
	}
	return strings.Join(vals, " OR "), subs
}

// statusToStrings converts a list of statuses into a list of strings
func statusToStrings(in []structs.Status) []string {
	if in == nil || len(in) == 0 {
		return nil
	}
	out := []string{}
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

// timeNow returns the current time in unix seconds
func timeNow() int64 {
	return time.Now().Unix()
}
