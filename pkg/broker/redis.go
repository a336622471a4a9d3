package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ostren/ember/internal/utils"
	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

// Redis is a Broker implementation over a redis list + sorted set.
//
// Layout:
//   - <prefix>:pending    list of job ids visible to leasers
//   - <prefix>:leases     zset of lease receipts scored by expiry (unix ms)
//   - <prefix>:claims     hash of receipt -> job id
//
// A lease moves the job id out of pending and into claims; expiry sweeps move
// it back. The ZREM-before-requeue guard means each expiry requeues the job
// exactly once even with many sweepers racing.
type Redis struct {
	opts *Options
	cli  *redis.Client
}

const leasePollInterval = 100 * time.Millisecond

// leaseScript pops the next job and registers its claim + expiry in a single
// atomic step. A job id is therefore always on the pending list or in the
// lease zset; a leaser crashing mid-call can never strand it on neither.
var leaseScript = redis.NewScript(`
local job = redis.call('RPOP', KEYS[1])
if not job then
	return false
end
redis.call('HSET', KEYS[2], ARGV[1], job)
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return job
`)

// NewRedis returns a redis backed Broker.
func NewRedis(opts *Options) (*Redis, error) {
	opts.SetDefaults()
	rOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	if opts.TLSConfig != nil {
		rOpts.TLSConfig = opts.TLSConfig
	}
	return &Redis{opts: opts, cli: redis.NewClient(rOpts)}, nil
}

func (r *Redis) pendingKey() string { return r.opts.Prefix + ":pending" }
func (r *Redis) leasesKey() string  { return r.opts.Prefix + ":leases" }
func (r *Redis) claimsKey() string  { return r.opts.Prefix + ":claims" }

func (r *Redis) Close() error {
	return r.cli.Close()
}

func (r *Redis) Enqueue(ctx context.Context, jobID string) error {
	err := r.cli.LPush(ctx, r.pendingKey(), jobID).Err()
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	return nil
}

func (r *Redis) Lease(ctx context.Context, workerID string, ttl time.Duration) (*structs.Lease, error) {
	deadline := time.Now().Add(r.opts.Block)
	for {
		if err := r.requeueExpired(ctx); err != nil {
			return nil, err
		}

		receipt := utils.NewRandomID()
		expires := time.Now().Add(ttl)
		res, err := leaseScript.Run(ctx, r.cli,
			[]string{r.pendingKey(), r.claimsKey(), r.leasesKey()},
			receipt, expires.UnixMilli(),
		).Result()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
		}
		if err == nil {
			jobID, ok := res.(string)
			if !ok {
				return nil, fmt.Errorf("%w unexpected lease reply %v", errors.ErrBrokerUnavailable, res)
			}
			return &structs.Lease{
				JobID:     jobID,
				WorkerID:  workerID,
				Receipt:   receipt,
				ExpiresAt: expires.Unix(),
			}, nil
		}

		// nothing pending; poll until the block window lapses
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-time.After(leasePollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *Redis) Ack(ctx context.Context, l *structs.Lease) error {
	removed, err := r.cli.ZRem(ctx, r.leasesKey(), l.Receipt).Result()
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	if removed == 0 {
		// the lease lapsed & was swept; the job is someone else's now
		return fmt.Errorf("%w lease %s expired before ack", errors.ErrInvalidState, l.Receipt)
	}
	return r.dropClaim(ctx, l.Receipt)
}

func (r *Redis) Nack(ctx context.Context, l *structs.Lease) error {
	removed, err := r.cli.ZRem(ctx, r.leasesKey(), l.Receipt).Result()
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	if removed == 0 {
		// already swept back onto the queue, nothing to do
		return nil
	}
	if err := r.cli.LPush(ctx, r.pendingKey(), l.JobID).Err(); err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	return r.dropClaim(ctx, l.Receipt)
}

// requeueExpired moves jobs whose leases lapsed back onto the pending list.
func (r *Redis) requeueExpired(ctx context.Context) error {
	now := time.Now().UnixMilli()
	receipts, err := r.cli.ZRangeByScore(ctx, r.leasesKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now),
	}).Result()
	if err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}

	for _, receipt := range receipts {
		removed, err := r.cli.ZRem(ctx, r.leasesKey(), receipt).Result()
		if err != nil {
			return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
		}
		if removed == 0 {
			// a competing sweeper (or the lease holder) beat us to it
			continue
		}
		jobID, err := r.cli.HGet(ctx, r.claimsKey(), receipt).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
		}
		if err := r.cli.LPush(ctx, r.pendingKey(), jobID).Err(); err != nil {
			return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
		}
		if err := r.dropClaim(ctx, receipt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) dropClaim(ctx context.Context, receipt string) error {
	if err := r.cli.HDel(ctx, r.claimsKey(), receipt).Err(); err != nil {
		return fmt.Errorf("%w %v", errors.ErrBrokerUnavailable, err)
	}
	return nil
}
